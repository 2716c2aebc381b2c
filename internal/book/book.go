package book

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a book is not found.
	ErrNotFound = errors.New("book not found")
	// ErrReviewNotFound is returned when a review is not found on a book.
	ErrReviewNotFound = errors.New("review not found")
	// ErrDuplicateReview is returned when a user already reviewed a book.
	ErrDuplicateReview = errors.New("user already reviewed this book")
	// ErrNotReviewOwner is returned when a user tries to delete someone else's review.
	ErrNotReviewOwner = errors.New("not the review owner")
)

// Review is a single user's rating and comment for one book. Reviews never
// exist outside their parent book.
type Review struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username,omitempty"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Book is the aggregate root. AverageRating and TotalReviews are derived from
// Reviews and are never set independently.
type Book struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Author        string    `json:"author"`
	Genre         string    `json:"genre"`
	Description   string    `json:"description"`
	Reviews       []Review  `json:"reviews"`
	AverageRating float64   `json:"average_rating"`
	TotalReviews  int       `json:"total_reviews"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Query defines filters and pagination for listing books.
type Query struct {
	Author string
	Genre  string
	Limit  int
	Offset int
}
