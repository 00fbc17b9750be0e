// Package api - HTTP-слой блога: проверка, выделение id, запись/чтение, ответ.
package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/UkralStul/blog-api/internal/allocator"
	"github.com/UkralStul/blog-api/internal/domain"
	"github.com/UkralStul/blog-api/internal/storage"
	"github.com/UkralStul/blog-api/internal/validation"
)

const maxBodyBytes = 1 << 20

// Handler содержит все зависимости, которые нужны маршрутам /post.
type Handler struct {
	Store     storage.PostStore
	IDs       *allocator.Allocator
	Validator *validation.Validator
	// Now подменяется в тестах.
	Now func() time.Time
}

// Routes регистрирует маршруты на r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/post", h.createPost)
	r.Get("/post/{id}", h.getPost)
	r.Get("/healthz", h.health)
}

type validationResponse struct {
	Message string                 `json:"message"`
	Errors  []validation.Violation `json:"errors"`
}

type msgResponse struct {
	Msg   string `json:"msg"`
	Error string `json:"error,omitempty"`
}

type createResponse struct {
	Msg  string      `json:"msg"`
	ID   int64       `json:"id"`
	Post domain.Post `json:"post"`
}

type getResponse struct {
	Post *domain.PostRecord `json:"post"`
}

func (h *Handler) createPost(w http.ResponseWriter, r *http.Request) {
	log := zerolog.Ctx(r.Context())

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, msgResponse{Msg: "Request body too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, msgResponse{Msg: "Could not read request body"})
		return
	}

	in, err := h.Validator.CreatePost(body)
	if err != nil {
		writeValidation(w, err)
		return
	}

	post := domain.NewPost(in.Title, in.Content, in.Author, h.now())

	id, err := h.IDs.Reserve(r.Context())
	if err != nil {
		log.Warn().Err(err).Msg("id reservation failed")
		writeJSON(w, http.StatusServiceUnavailable, msgResponse{Msg: "Service is starting, retry later"})
		return
	}

	if _, err := h.Store.CreatePost(r.Context(), id, post); err != nil {
		log.Error().Err(err).Int64("post_id", id).Msg("error creating post")
		writeJSON(w, http.StatusInternalServerError, msgResponse{
			Msg:   "DB error creating post",
			Error: storage.PublicMessage(err),
		})
		return
	}

	// Отдаем локально собранный пост, а не то, что вернуло хранилище.
	writeJSON(w, http.StatusCreated, createResponse{
		Msg:  "Post created successfully",
		ID:   id,
		Post: post,
	})
}

func (h *Handler) getPost(w http.ResponseWriter, r *http.Request) {
	raw, err := h.Validator.PostID(chi.URLParam(r, "id"))
	if err != nil {
		writeValidation(w, err)
		return
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, msgResponse{Msg: "Invalid post ID provided. ID must be a number."})
		return
	}

	rec, err := h.Store.FindPostByID(r.Context(), id)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Int64("post_id", id).Msg("error fetching post")
		writeJSON(w, http.StatusInternalServerError, msgResponse{
			Msg:   "DB error fetching post",
			Error: storage.PublicMessage(err),
		})
		return
	}
	if rec == nil {
		writeJSON(w, http.StatusNotFound, msgResponse{Msg: "Post not found"})
		return
	}
	writeJSON(w, http.StatusOK, getResponse{Post: rec})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	next, ready := h.IDs.Peek()
	if !ready {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "starting"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "nextId": next})
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func writeValidation(w http.ResponseWriter, err error) {
	var verr *validation.Error
	if !errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, msgResponse{Msg: err.Error()})
		return
	}
	writeJSON(w, http.StatusBadRequest, validationResponse{Message: verr.Message, Errors: verr.Violations})
}
