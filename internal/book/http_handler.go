package book

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"bookreviews/internal/httpx"
	"bookreviews/internal/logger"
)

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
)

type HTTPHandler struct {
	service *Service
}

func NewHTTPHandler(service *Service) *HTTPHandler {
	return &HTTPHandler{service: service}
}

type createBookRequest struct {
	Title       string `json:"title" validate:"required"`
	Author      string `json:"author" validate:"required"`
	Genre       string `json:"genre" validate:"required"`
	Description string `json:"description" validate:"required"`
}

type reviewRequest struct {
	Rating  int    `json:"rating" validate:"required,gte=1,lte=5"`
	Comment string `json:"comment" validate:"required"`
}

// Create handles POST /books
func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createBookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	req.Author = strings.TrimSpace(req.Author)
	req.Genre = strings.TrimSpace(req.Genre)
	req.Description = strings.TrimSpace(req.Description)

	if details := httpx.ValidateStruct(req); details != nil {
		httpx.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", details)
		return
	}

	b := Book{
		Title:       req.Title,
		Author:      req.Author,
		Genre:       req.Genre,
		Description: req.Description,
	}
	if err := h.service.Create(r.Context(), &b); err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccessCreated(w, b)
}

// List handles GET /books
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	page, _ := strconv.Atoi(query.Get("page"))
	if page < 1 {
		page = defaultPage
	}
	limit, _ := strconv.Atoi(query.Get("limit"))
	if limit <= 0 || limit > maxLimit {
		limit = defaultLimit
	}

	params := Query{
		Author: query.Get("author"),
		Genre:  query.Get("genre"),
		Limit:  limit,
		Offset: (page - 1) * limit,
	}

	books, total, err := h.service.List(r.Context(), params)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	httpx.JSONSuccess(w, books, map[string]any{
		"page":        page,
		"limit":       limit,
		"total_pages": int(math.Ceil(float64(total) / float64(limit))),
		"total_books": total,
	})
}

// Search handles GET /books/search
func (h *HTTPHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		httpx.JSONError(w, http.StatusBadRequest, "INVALID_REQUEST", "Search query is required", nil)
		return
	}

	books, err := h.service.Search(r.Context(), query)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, books, nil)
}

// GetByID handles GET /books/{id}
func (h *HTTPHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		httpx.JSONError(w, http.StatusBadRequest, "INVALID_REQUEST", "Book id is required", nil)
		return
	}

	b, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, b, nil)
}

// AddReview handles POST /books/{id}/reviews
func (h *HTTPHandler) AddReview(w http.ResponseWriter, r *http.Request) {
	userID := httpx.UserIDFrom(r)
	if userID == "" {
		httpx.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required", nil)
		return
	}

	req, ok := h.decodeReview(w, r)
	if !ok {
		return
	}

	rev, err := h.service.AddReview(r.Context(), r.PathValue("id"), userID, req.Rating, req.Comment)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccessCreated(w, rev)
}

// UpdateReview handles PUT /books/{id}/reviews/{reviewId}.
// The authoritative key is (book, authenticated user): the user's review is
// updated in place, or created when none exists yet.
func (h *HTTPHandler) UpdateReview(w http.ResponseWriter, r *http.Request) {
	userID := httpx.UserIDFrom(r)
	if userID == "" {
		httpx.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required", nil)
		return
	}

	req, ok := h.decodeReview(w, r)
	if !ok {
		return
	}

	rev, err := h.service.UpdateReview(r.Context(), r.PathValue("id"), userID, req.Rating, req.Comment)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, rev, nil)
}

// DeleteReview handles DELETE /books/{id}/reviews/{reviewId}
func (h *HTTPHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	userID := httpx.UserIDFrom(r)
	if userID == "" {
		httpx.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required", nil)
		return
	}

	reviewID := r.PathValue("reviewId")
	if err := h.service.DeleteReview(r.Context(), r.PathValue("id"), reviewID, userID); err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, map[string]any{"id": reviewID}, nil)
}

func (h *HTTPHandler) decodeReview(w http.ResponseWriter, r *http.Request) (reviewRequest, bool) {
	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
		return req, false
	}
	req.Comment = strings.TrimSpace(req.Comment)
	if details := httpx.ValidateStruct(req); details != nil {
		httpx.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", details)
		return req, false
	}
	return req, true
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.JSONError(w, http.StatusNotFound, "NOT_FOUND", "Book not found", nil)
	case errors.Is(err, ErrReviewNotFound):
		httpx.JSONError(w, http.StatusNotFound, "NOT_FOUND", "Review not found", nil)
	case errors.Is(err, ErrDuplicateReview):
		httpx.JSONError(w, http.StatusBadRequest, "DUPLICATE_REVIEW", "You have already reviewed this book", nil)
	case errors.Is(err, ErrNotReviewOwner):
		httpx.JSONError(w, http.StatusForbidden, "FORBIDDEN", "Only the review author can do that", nil)
	default:
		logger.FromContext(r.Context()).Error("book operation failed", "error", err)
		httpx.JSONError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
	}
}
