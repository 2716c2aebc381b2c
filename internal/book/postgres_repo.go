package book

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of *pgxpool.Pool the repository uses. pgxmock satisfies it
// in tests.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// querier is implemented by both DB and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type PostgresRepo struct {
	db      DB
	timeout time.Duration
}

func NewPostgresRepo(db DB, timeout time.Duration) *PostgresRepo {
	return &PostgresRepo{db: db, timeout: timeout}
}

func (r *PostgresRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

func isValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

const bookColumns = `id, title, author, genre, description, average_rating, total_reviews, created_at, updated_at`

func scanBook(row pgx.Row) (Book, error) {
	var b Book
	err := row.Scan(
		&b.ID, &b.Title, &b.Author, &b.Genre, &b.Description,
		&b.AverageRating, &b.TotalReviews, &b.CreatedAt, &b.UpdatedAt,
	)
	return b, err
}

func (r *PostgresRepo) Create(ctx context.Context, b *Book) error {
	const query = `
		INSERT INTO books (id, title, author, genre, description)
		VALUES (gen_random_uuid(), $1, $2, $3, $4)
		RETURNING id, average_rating, total_reviews, created_at, updated_at`

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	if err := r.db.QueryRow(timeoutCtx, query, b.Title, b.Author, b.Genre, b.Description).
		Scan(&b.ID, &b.AverageRating, &b.TotalReviews, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return err
	}
	b.Reviews = []Review{}
	return nil
}

func (r *PostgresRepo) GetByID(ctx context.Context, id string) (Book, error) {
	if !isValidID(id) {
		return Book{}, ErrNotFound
	}

	query := fmt.Sprintf(`SELECT %s FROM books WHERE id = $1 LIMIT 1`, bookColumns)

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	b, err := scanBook(r.db.QueryRow(timeoutCtx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Book{}, ErrNotFound
		}
		return Book{}, err
	}

	reviews, err := r.loadReviews(timeoutCtx, r.db, []string{b.ID})
	if err != nil {
		return Book{}, err
	}
	b.Reviews = reviews[b.ID]
	if b.Reviews == nil {
		b.Reviews = []Review{}
	}
	return b, nil
}

func (r *PostgresRepo) List(ctx context.Context, q Query) ([]Book, int, error) {
	clauses := []string{"1=1"}
	args := []any{}
	argn := 1

	if q.Author != "" {
		clauses = append(clauses, fmt.Sprintf("author ILIKE $%d", argn))
		args = append(args, "%"+q.Author+"%")
		argn++
	}
	if q.Genre != "" {
		clauses = append(clauses, fmt.Sprintf("genre ILIKE $%d", argn))
		args = append(args, "%"+q.Genre+"%")
		argn++
	}

	where := "WHERE " + strings.Join(clauses, " AND ")

	countSQL := fmt.Sprintf("SELECT COUNT(*) FROM books %s", where)
	var total int
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	if err := r.db.QueryRow(timeoutCtx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	dataSQL := fmt.Sprintf(`
		SELECT %s
		FROM books
		%s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d`, bookColumns, where, argn, argn+1)

	argsWithPage := append([]any{}, args...)
	argsWithPage = append(argsWithPage, q.Limit, q.Offset)

	timeoutCtx2, cancel2 := r.withTimeout(ctx)
	defer cancel2()
	rows, err := r.db.Query(timeoutCtx2, dataSQL, argsWithPage...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	books := []Book{}
	ids := []string{}
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, 0, err
		}
		b.Reviews = []Review{}
		books = append(books, b)
		ids = append(ids, b.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if len(ids) > 0 {
		timeoutCtx3, cancel3 := r.withTimeout(ctx)
		defer cancel3()
		byBook, err := r.loadReviews(timeoutCtx3, r.db, ids)
		if err != nil {
			return nil, 0, err
		}
		for i := range books {
			if revs, ok := byBook[books[i].ID]; ok {
				books[i].Reviews = revs
			}
		}
	}
	return books, total, nil
}

func (r *PostgresRepo) Search(ctx context.Context, query string) ([]Book, error) {
	searchSQL := fmt.Sprintf(`
		SELECT %s
		FROM books
		WHERE search_vector @@ plainto_tsquery('english', $1)
		ORDER BY ts_rank(search_vector, plainto_tsquery('english', $1)) DESC
		LIMIT 10`, bookColumns)

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	rows, err := r.db.Query(timeoutCtx, searchSQL, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	books := []Book{}
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		b.Reviews = []Review{}
		books = append(books, b)
	}
	return books, rows.Err()
}

func (r *PostgresRepo) AddReview(ctx context.Context, bookID, userID string, rating int, comment string) (Review, error) {
	if !isValidID(bookID) {
		return Review{}, ErrNotFound
	}

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	tx, err := r.db.Begin(timeoutCtx)
	if err != nil {
		return Review{}, err
	}
	defer func() { _ = tx.Rollback(timeoutCtx) }()

	if err := lockBook(timeoutCtx, tx, bookID); err != nil {
		return Review{}, err
	}

	var exists bool
	const dupSQL = `SELECT EXISTS(SELECT 1 FROM reviews WHERE book_id = $1 AND user_id = $2)`
	if err := tx.QueryRow(timeoutCtx, dupSQL, bookID, userID).Scan(&exists); err != nil {
		return Review{}, err
	}
	if exists {
		return Review{}, ErrDuplicateReview
	}

	rev := Review{UserID: userID, Rating: rating, Comment: comment}
	const insertSQL = `
		INSERT INTO reviews (id, book_id, user_id, rating, comment)
		VALUES (gen_random_uuid(), $1, $2, $3, $4)
		RETURNING id, created_at, updated_at`
	if err := tx.QueryRow(timeoutCtx, insertSQL, bookID, userID, rating, comment).
		Scan(&rev.ID, &rev.CreatedAt, &rev.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return Review{}, ErrDuplicateReview
		}
		return Review{}, err
	}

	if err := applyDerived(timeoutCtx, tx, bookID); err != nil {
		return Review{}, err
	}
	if err := tx.Commit(timeoutCtx); err != nil {
		return Review{}, err
	}
	return rev, nil
}

func (r *PostgresRepo) UpdateReview(ctx context.Context, bookID, userID string, rating int, comment string) (Review, error) {
	if !isValidID(bookID) {
		return Review{}, ErrNotFound
	}

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	tx, err := r.db.Begin(timeoutCtx)
	if err != nil {
		return Review{}, err
	}
	defer func() { _ = tx.Rollback(timeoutCtx) }()

	if err := lockBook(timeoutCtx, tx, bookID); err != nil {
		return Review{}, err
	}

	rev := Review{UserID: userID, Rating: rating, Comment: comment}
	const updateSQL = `
		UPDATE reviews
		SET rating = $1, comment = $2, updated_at = now()
		WHERE book_id = $3 AND user_id = $4
		RETURNING id, created_at, updated_at`
	err = tx.QueryRow(timeoutCtx, updateSQL, rating, comment, bookID, userID).
		Scan(&rev.ID, &rev.CreatedAt, &rev.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		// Upsert semantics: no existing review, add one.
		const insertSQL = `
			INSERT INTO reviews (id, book_id, user_id, rating, comment)
			VALUES (gen_random_uuid(), $1, $2, $3, $4)
			RETURNING id, created_at, updated_at`
		err = tx.QueryRow(timeoutCtx, insertSQL, bookID, userID, rating, comment).
			Scan(&rev.ID, &rev.CreatedAt, &rev.UpdatedAt)
	}
	if err != nil {
		return Review{}, err
	}

	if err := applyDerived(timeoutCtx, tx, bookID); err != nil {
		return Review{}, err
	}
	if err := tx.Commit(timeoutCtx); err != nil {
		return Review{}, err
	}
	return rev, nil
}

func (r *PostgresRepo) DeleteReview(ctx context.Context, bookID, reviewID, requestingUserID string) error {
	if !isValidID(bookID) {
		return ErrNotFound
	}
	if !isValidID(reviewID) {
		return ErrReviewNotFound
	}

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	tx, err := r.db.Begin(timeoutCtx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(timeoutCtx) }()

	if err := lockBook(timeoutCtx, tx, bookID); err != nil {
		return err
	}

	var authorID string
	const ownerSQL = `SELECT user_id FROM reviews WHERE id = $1 AND book_id = $2`
	if err := tx.QueryRow(timeoutCtx, ownerSQL, reviewID, bookID).Scan(&authorID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrReviewNotFound
		}
		return err
	}
	if authorID != requestingUserID {
		return ErrNotReviewOwner
	}

	if _, err := tx.Exec(timeoutCtx, `DELETE FROM reviews WHERE id = $1`, reviewID); err != nil {
		return err
	}

	if err := applyDerived(timeoutCtx, tx, bookID); err != nil {
		return err
	}
	return tx.Commit(timeoutCtx)
}

// lockBook serializes concurrent review writes against the same aggregate.
func lockBook(ctx context.Context, tx pgx.Tx, bookID string) error {
	var id string
	err := tx.QueryRow(ctx, `SELECT id FROM books WHERE id = $1 FOR UPDATE`, bookID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// applyDerived recomputes the derived rating columns from the current review
// collection and writes them to the book row, inside the caller's transaction.
func applyDerived(ctx context.Context, tx pgx.Tx, bookID string) error {
	rows, err := tx.Query(ctx, `SELECT rating FROM reviews WHERE book_id = $1`, bookID)
	if err != nil {
		return err
	}
	defer rows.Close()

	var reviews []Review
	for rows.Next() {
		var rev Review
		if err := rows.Scan(&rev.Rating); err != nil {
			return err
		}
		reviews = append(reviews, rev)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	avg, total := Recompute(reviews)
	const updateSQL = `UPDATE books SET average_rating = $1, total_reviews = $2, updated_at = now() WHERE id = $3`
	_, err = tx.Exec(ctx, updateSQL, avg, total, bookID)
	return err
}

// loadReviews fetches the review collections for the given books in insertion
// order, with reviewer usernames resolved.
func (r *PostgresRepo) loadReviews(ctx context.Context, q querier, bookIDs []string) (map[string][]Review, error) {
	const query = `
		SELECT r.id, r.book_id, r.user_id, u.username, r.rating, r.comment, r.created_at, r.updated_at
		FROM reviews r
		JOIN users u ON u.id = r.user_id
		WHERE r.book_id = ANY($1::uuid[])
		ORDER BY r.created_at, r.id`

	rows, err := q.Query(ctx, query, bookIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]Review)
	for rows.Next() {
		var rev Review
		var bookID string
		if err := rows.Scan(&rev.ID, &bookID, &rev.UserID, &rev.Username, &rev.Rating, &rev.Comment, &rev.CreatedAt, &rev.UpdatedAt); err != nil {
			return nil, err
		}
		out[bookID] = append(out[bookID], rev)
	}
	return out, rows.Err()
}
