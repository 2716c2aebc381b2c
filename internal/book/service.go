package book

import (
	"context"
	"strings"
)

// Service provides book-related business logic.
type Service struct {
	repo Repository
}

// NewService creates a new book service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create stores a new book with an empty review collection.
func (s *Service) Create(ctx context.Context, b *Book) error {
	b.Title = strings.TrimSpace(b.Title)
	b.Author = strings.TrimSpace(b.Author)
	b.Genre = strings.TrimSpace(b.Genre)
	b.Description = strings.TrimSpace(b.Description)
	return s.repo.Create(ctx, b)
}

// GetByID returns a book with its reviews and resolved reviewer names.
func (s *Service) GetByID(ctx context.Context, id string) (Book, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns a page of books matching the query, newest first.
func (s *Service) List(ctx context.Context, q Query) ([]Book, int, error) {
	return s.repo.List(ctx, q)
}

// Search returns up to 10 books whose title or author match the query,
// ordered by descending relevance.
func (s *Service) Search(ctx context.Context, query string) ([]Book, error) {
	return s.repo.Search(ctx, query)
}

// AddReview appends a review to a book. A user may review a book at most once.
func (s *Service) AddReview(ctx context.Context, bookID, userID string, rating int, comment string) (Review, error) {
	return s.repo.AddReview(ctx, bookID, userID, rating, strings.TrimSpace(comment))
}

// UpdateReview updates the user's review in place, or adds one if the user
// has not reviewed the book yet.
func (s *Service) UpdateReview(ctx context.Context, bookID, userID string, rating int, comment string) (Review, error) {
	return s.repo.UpdateReview(ctx, bookID, userID, rating, strings.TrimSpace(comment))
}

// DeleteReview removes a review. Only its author may delete it.
func (s *Service) DeleteReview(ctx context.Context, bookID, reviewID, requestingUserID string) error {
	return s.repo.DeleteReview(ctx, bookID, reviewID, requestingUserID)
}
