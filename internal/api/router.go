package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/UkralStul/blog-api/internal/logging"
)

// NewRouter собирает chi-роутер с общими middleware и маршрутами блога.
func NewRouter(h *Handler, log zerolog.Logger, timeout time.Duration) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(logging.RequestID)
	router.Use(logging.Requests(log))
	if timeout > 0 {
		router.Use(middleware.Timeout(timeout))
	}

	h.Routes(router)
	return router
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
