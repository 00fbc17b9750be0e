package useragent

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/UkralStul/blog-api/internal/logging"
)

// Options - параметры роутера сайдкара.
type Options struct {
	Token       string
	PublicDir   string
	Rate        float64
	Burst       int
	CORSOrigins []string
}

// Server обслуживает /user/* и пишет user-agent каждого запроса в Log.
type Server struct {
	Log  *FileLog
	Opts Options
}

// Router собирает chi-роутер сайдкара.
func (s *Server) Router(log zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(logging.RequestID)
	r.Use(logging.Requests(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.Opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", logging.RequestIDHeader},
	}))
	if s.Opts.Rate > 0 {
		r.Use(RateLimit(rate.Limit(s.Opts.Rate), s.Opts.Burst))
	}
	r.Use(s.CaptureUserAgent)

	r.Route("/user", func(r chi.Router) {
		r.Use(s.RequireToken)
		r.Get("/userlogs", s.userLogs)
		r.Get("/logs", s.page)
	})
	return r
}

// CaptureUserAgent записывает заголовок User-Agent; без него запрос дальше не идет.
func (s *Server) CaptureUserAgent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua := r.UserAgent()
		if ua == "" {
			writeJSON(w, http.StatusOK, "User Agent missing")
			return
		}
		if err := s.Log.Append(ua); err != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("saving user agent failed")
			http.Error(w, "Error saving user agent.", http.StatusInternalServerError)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireToken пропускает только запросы с ?token=<Opts.Token>.
func (s *Server) RequireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("token") != s.Opts.Token {
			writeJSON(w, http.StatusOK, "invalid request")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type graphResponse struct {
	UserAgentGraph map[string]int `json:"UserAgentGraph"`
	Msg            string         `json:"msg"`
}

func (s *Server) userLogs(w http.ResponseWriter, r *http.Request) {
	entries, err := s.Log.Entries()
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("reading user agent log failed")
		http.Error(w, "Error reading user agent log.", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, graphResponse{UserAgentGraph: Graph(entries), Msg: "successful"})
}

func (s *Server) page(w http.ResponseWriter, r *http.Request) {
	path := filepath.Join(s.Opts.PublicDir, "index.html")
	if _, err := os.Stat(path); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("error sending index.html")
		http.Error(w, "Error loading page.", http.StatusInternalServerError)
		return
	}
	http.ServeFile(w, r, path)
}

// maxRateClients - сколько лимитеров держим одновременно; давно молчавшие вытесняются.
const maxRateClients = 4096

// RateLimit - token bucket на каждый IP клиента.
func RateLimit(limit rate.Limit, burst int) func(http.Handler) http.Handler {
	return rateLimit(limit, burst, maxRateClients)
}

func rateLimit(limit rate.Limit, burst, maxClients int) func(http.Handler) http.Handler {
	clients, err := lru.New[string, *rate.Limiter](maxClients)
	if err != nil {
		panic(fmt.Sprintf("create rate limiter cache: %v", err))
	}
	var mu sync.Mutex

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}

			mu.Lock()
			limiter, ok := clients.Get(ip)
			if !ok {
				limiter = rate.NewLimiter(limit, burst)
				clients.Add(ip, limiter)
			}
			mu.Unlock()

			if !limiter.Allow() {
				writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "too many requests"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
