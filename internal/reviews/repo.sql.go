package reviews

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/webstore/webstore/internal/shared"
)

// DBTX is the subset of pgxpool.Pool used by the repository.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	db DBTX
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(db DBTX) *PGRepository {
	return &PGRepository{db: db}
}

// InsertReview stores a new review.
func (r *PGRepository) InsertReview(ctx context.Context, rv CreateReview) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx,
		`INSERT INTO reviews (title, text, rating, user_id, product_id)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		rv.Title, rv.Text, rv.Rating, rv.UserID, rv.ProductID,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, shared.ErrConflict
		}
		return 0, err
	}
	return id, nil
}

// GetReview fetches a review joined with poster and product title.
func (r *PGRepository) GetReview(ctx context.Context, id int64) (*Review, error) {
	var rv Review
	err := r.db.QueryRow(ctx,
		`SELECT r.id, r.product_id, p.title, r.title, r.text, r.rating, a.username, r.created_at
		 FROM reviews r
		 JOIN accounts a ON a.id = r.user_id
		 JOIN products p ON p.id = r.product_id
		 WHERE r.id = $1`, id,
	).Scan(&rv.ID, &rv.ProductID, &rv.ProductTitle, &rv.Title, &rv.Text, &rv.Rating, &rv.Poster, &rv.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &rv, nil
}

// ListByProduct returns the reviews about a product.
func (r *PGRepository) ListByProduct(ctx context.Context, productID int64) ([]ProductReview, error) {
	rows, err := r.db.Query(ctx,
		`SELECT r.title, r.text, r.rating, a.username
		 FROM reviews r
		 JOIN accounts a ON a.id = r.user_id
		 WHERE r.product_id = $1
		 ORDER BY r.id`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []ProductReview
	for rows.Next() {
		var rv ProductReview
		if err := rows.Scan(&rv.Title, &rv.Text, &rv.Rating, &rv.Poster); err != nil {
			return nil, err
		}
		result = append(result, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateReview applies the non-zero fields of upd to the caller's review.
func (r *PGRepository) UpdateReview(ctx context.Context, id int64, upd UpdateReview, userID int64, admin bool) error {
	var (
		sets []string
		args []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if upd.Title != "" {
		sets = append(sets, "title = "+arg(upd.Title))
	}
	if upd.Text != "" {
		sets = append(sets, "text = "+arg(upd.Text))
	}
	if upd.Rating != 0 {
		sets = append(sets, "rating = "+arg(upd.Rating))
	}
	if len(sets) == 0 {
		return nil
	}

	query := "UPDATE reviews SET " + strings.Join(sets, ", ") + " WHERE id = " + arg(id)
	if !admin {
		query += " AND user_id = " + arg(userID)
	}
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeleteReview removes the caller's review, or any review for admins.
func (r *PGRepository) DeleteReview(ctx context.Context, id, userID int64, admin bool) error {
	query := `DELETE FROM reviews WHERE id = $1`
	args := []any{id}
	if !admin {
		query += ` AND user_id = $2`
		args = append(args, userID)
	}
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// HasUserReviewed reports whether the user already reviewed the product.
func (r *PGRepository) HasUserReviewed(ctx context.Context, productID, userID int64) (bool, error) {
	var found int64
	err := r.db.QueryRow(ctx,
		`SELECT id FROM reviews WHERE product_id = $1 AND user_id = $2`,
		productID, userID,
	).Scan(&found)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

var _ Repository = (*PGRepository)(nil)
