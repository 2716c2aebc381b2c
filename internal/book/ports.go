package book

import (
	"context"
)

//go:generate mockgen -source=ports.go -destination=mock_repository.go -package=book

// Repository defines the contract for book aggregate storage. All review
// mutations are atomic: the review rows and the derived columns on the book
// row change together or not at all.
type Repository interface {
	Create(ctx context.Context, b *Book) error
	GetByID(ctx context.Context, id string) (Book, error)
	List(ctx context.Context, q Query) ([]Book, int, error)
	Search(ctx context.Context, query string) ([]Book, error)
	AddReview(ctx context.Context, bookID, userID string, rating int, comment string) (Review, error)
	UpdateReview(ctx context.Context, bookID, userID string, rating int, comment string) (Review, error)
	DeleteReview(ctx context.Context, bookID, reviewID, requestingUserID string) error
}
