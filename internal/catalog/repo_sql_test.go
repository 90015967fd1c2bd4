package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/webstore/webstore/internal/shared"
)

func newMockRepo(t *testing.T) (pgxmock.PgxPoolIface, *PGRepository) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock, &PGRepository{db: mock}
}

func productRows() *pgxmock.Rows {
	now := time.Now()
	return pgxmock.NewRows([]string{
		"id", "title", "description", "price", "manufacturer", "name", "images", "created_at", "updated_at",
	}).AddRow(int64(1), "Mechanical keyboard", "A sturdy keyboard.", 79.99, "Acme", "accessories",
		[]string{"1_a.png"}, now, now)
}

func TestInsertProductUnknownCategory(t *testing.T) {
	mock, repo := newMockRepo(t)
	mock.ExpectQuery(`INSERT INTO products`).
		WithArgs("Mechanical keyboard", "A sturdy keyboard.", 79.99, "Acme", "nosuch").
		WillReturnError(&pgconn.PgError{Code: "23502", ColumnName: "category_id"})

	_, err := repo.InsertProduct(context.Background(), CreateProduct{
		Title:        "Mechanical keyboard",
		Description:  "A sturdy keyboard.",
		Price:        79.99,
		Manufacturer: "Acme",
		Category:     "nosuch",
	})
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListProductsFilterComposition(t *testing.T) {
	mock, repo := newMockRepo(t)
	mock.ExpectQuery(`(?s)SELECT .* FROM products p .* WHERE \(p.title ILIKE \$1 OR p.description ILIKE \$1\) AND c.name ILIKE \$2 AND p.manufacturer ILIKE \$3 AND p.price <= \$4 GROUP BY p.id, c.name ORDER BY p.price DESC`).
		WithArgs("%keyboard%", "accessories", "Acme", 100.0).
		WillReturnRows(productRows())

	products, err := repo.ListProducts(context.Background(), ListFilter{
		Search:       "keyboard",
		Category:     "accessories",
		Manufacturer: "Acme",
		MaxPrice:     100,
		OrderBy:      "price_desc",
	})
	require.NoError(t, err)
	require.Len(t, products, 1)
	require.Equal(t, "accessories", products[0].Category)
	require.Equal(t, []string{"1_a.png"}, products[0].Images)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListProductsDefaultsToIDOrder(t *testing.T) {
	mock, repo := newMockRepo(t)
	mock.ExpectQuery(`(?s)SELECT .* FROM products p .* GROUP BY p.id, c.name ORDER BY p.id`).
		WillReturnRows(productRows())

	_, err := repo.ListProducts(context.Background(), ListFilter{OrderBy: "nonsense"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateProductBuildsPartialSet(t *testing.T) {
	mock, repo := newMockRepo(t)
	mock.ExpectExec(`UPDATE products SET title = \$1, price = \$2, updated_at = now\(\) WHERE id = \$3`).
		WithArgs("Ergonomic keyboard", 89.99, int64(1)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.UpdateProduct(context.Background(), 1, UpdateProduct{Title: "Ergonomic keyboard", Price: 89.99})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateProductNoFieldsIsNoop(t *testing.T) {
	mock, repo := newMockRepo(t)
	require.NoError(t, repo.UpdateProduct(context.Background(), 1, UpdateProduct{}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateProductMissingRow(t *testing.T) {
	mock, repo := newMockRepo(t)
	mock.ExpectExec(`UPDATE products SET`).
		WithArgs("Ergonomic keyboard", int64(404)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.UpdateProduct(context.Background(), 404, UpdateProduct{Title: "Ergonomic keyboard"})
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProductExists(t *testing.T) {
	mock, repo := newMockRepo(t)
	mock.ExpectQuery(`SELECT id FROM products WHERE id = \$1`).
		WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(1)))

	exists, err := repo.ProductExists(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, exists)

	mock.ExpectQuery(`SELECT id FROM products WHERE id = \$1`).
		WithArgs(int64(2)).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	exists, err = repo.ProductExists(context.Background(), 2)
	require.NoError(t, err)
	require.False(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}
