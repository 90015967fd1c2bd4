package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/webstore/webstore/internal/platform/db"
	"github.com/webstore/webstore/internal/shared"
)

// DBTX is the subset of pgxpool.Pool used by the repository outside of
// transactions.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	db   DBTX
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{db: pool, pool: pool}
}

const productSelect = `
SELECT p.id, p.title, p.description, p.price, COALESCE(p.manufacturer, ''),
       c.name,
       COALESCE(array_agg(i.filename) FILTER (WHERE i.filename IS NOT NULL), '{}'),
       p.created_at, p.updated_at
FROM products p
JOIN categories c ON c.id = p.category_id
LEFT JOIN product_images i ON i.product_id = p.id`

const productGroupBy = ` GROUP BY p.id, c.name`

// InsertProduct stores a new product, resolving the category by name.
func (r *PGRepository) InsertProduct(ctx context.Context, p CreateProduct) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx,
		`INSERT INTO products (title, description, price, manufacturer, category_id)
		 VALUES ($1, $2, $3, $4, (SELECT id FROM categories WHERE name ILIKE $5))
		 RETURNING id`,
		p.Title, p.Description, p.Price, p.Manufacturer, p.Category,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23502" && pgErr.ColumnName == "category_id" {
			return 0, fmt.Errorf("category %w", shared.ErrNotFound)
		}
		return 0, err
	}
	return id, nil
}

// ListProducts returns the products matching the filter.
func (r *PGRepository) ListProducts(ctx context.Context, filter ListFilter) ([]Product, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		where = append(where, fmt.Sprintf("(p.title ILIKE %s OR p.description ILIKE %s)", p, p))
	}
	if filter.Category != "" {
		where = append(where, "c.name ILIKE "+arg(filter.Category))
	}
	if filter.Manufacturer != "" {
		where = append(where, "p.manufacturer ILIKE "+arg(filter.Manufacturer))
	}
	if filter.MaxPrice > 0 {
		where = append(where, "p.price <= "+arg(filter.MaxPrice))
	}

	query := productSelect
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += productGroupBy
	switch filter.OrderBy {
	case "price_asc":
		query += " ORDER BY p.price ASC"
	case "price_desc":
		query += " ORDER BY p.price DESC"
	default:
		query += " ORDER BY p.id"
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Title, &p.Description, &p.Price, &p.Manufacturer,
			&p.Category, &p.Images, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

// GetProduct fetches a single product by id.
func (r *PGRepository) GetProduct(ctx context.Context, id int64) (*Product, error) {
	row := r.db.QueryRow(ctx, productSelect+" WHERE p.id = $1"+productGroupBy, id)
	var p Product
	err := row.Scan(&p.ID, &p.Title, &p.Description, &p.Price, &p.Manufacturer,
		&p.Category, &p.Images, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// UpdateProduct applies the non-empty fields of upd.
func (r *PGRepository) UpdateProduct(ctx context.Context, id int64, upd UpdateProduct) error {
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
	if upd.Description != "" {
		sets = append(sets, "description = "+arg(upd.Description))
	}
	if upd.Price > 0 {
		sets = append(sets, "price = "+arg(upd.Price))
	}
	if upd.Manufacturer != "" {
		sets = append(sets, "manufacturer = "+arg(upd.Manufacturer))
	}
	if upd.Category != "" {
		sets = append(sets, "category_id = (SELECT id FROM categories WHERE name ILIKE "+arg(upd.Category)+")")
	}
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at = now()")

	tag, err := r.db.Exec(ctx,
		"UPDATE products SET "+strings.Join(sets, ", ")+" WHERE id = "+arg(id), args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeleteProduct removes the product, its reviews and its image records in
// one transaction and returns the orphaned image filenames.
func (r *PGRepository) DeleteProduct(ctx context.Context, id int64) ([]string, error) {
	var filenames []string
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `SELECT filename FROM product_images WHERE product_id = $1`, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				return err
			}
			filenames = append(filenames, name)
		}
		if err := rows.Err(); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `DELETE FROM reviews WHERE product_id = $1`, id); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM product_images WHERE product_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return filenames, nil
}

// ProductExists reports whether a product exists.
func (r *PGRepository) ProductExists(ctx context.Context, id int64) (bool, error) {
	var found int64
	err := r.db.QueryRow(ctx, `SELECT id FROM products WHERE id = $1`, id).Scan(&found)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// AddImages records uploaded image filenames for a product.
func (r *PGRepository) AddImages(ctx context.Context, productID int64, filenames []string) error {
	for _, name := range filenames {
		if _, err := r.db.Exec(ctx,
			`INSERT INTO product_images (product_id, filename) VALUES ($1, $2)`,
			productID, name); err != nil {
			return err
		}
	}
	return nil
}

// RemoveImages deletes image records for a product.
func (r *PGRepository) RemoveImages(ctx context.Context, productID int64, filenames []string) error {
	for _, name := range filenames {
		if _, err := r.db.Exec(ctx,
			`DELETE FROM product_images WHERE product_id = $1 AND filename = $2`,
			productID, name); err != nil {
			return err
		}
	}
	return nil
}

var _ Repository = (*PGRepository)(nil)
