package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stockroomhq/stockroom/internal/models"
	"github.com/stockroomhq/stockroom/internal/store"
)

var productSortColumns = map[string]string{
	"created_at": "created_at",
	"updated_at": "updated_at",
	"name":       "name",
	"price":      "price",
}

const productColumns = `
	product_id, name, description, price,
	created_at, updated_at, deleted_at
`

// ProductStore implements store.ProductStore using PostgreSQL.
type ProductStore struct {
	pool *pgxpool.Pool
}

// NewProductStore creates a new PostgreSQL-backed product store.
func NewProductStore(pool *pgxpool.Pool) *ProductStore {
	return &ProductStore{
		pool: pool,
	}
}

// Create inserts a new product. Used by seeding; products are otherwise
// read-only through the API.
func (s *ProductStore) Create(ctx context.Context, product *models.Product) error {
	query := `
		INSERT INTO products (product_id, name, description, price)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`

	err := s.pool.QueryRow(ctx, query,
		product.ID,
		product.Name,
		product.Description,
		product.Price,
	).Scan(&product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		return mapPostgresError(err)
	}

	return nil
}

// Get retrieves a product by ID, including archived products.
func (s *ProductStore) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE product_id = $1`

	product, err := scanProduct(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	return product, nil
}

// List returns a page of products ordered per params.
func (s *ProductStore) List(ctx context.Context, params store.ListParams) (*store.ProductPage, error) {
	return s.page(ctx, params, "", "")
}

// Search returns a page of products whose name or description matches
// the query, case-insensitively.
func (s *ProductStore) Search(ctx context.Context, query string, params store.ListParams) (*store.ProductPage, error) {
	pattern := "%" + escapeLike(query) + "%"
	where := `(name ILIKE $1 OR description ILIKE $1)`
	return s.page(ctx, params, where, pattern)
}

func (s *ProductStore) page(ctx context.Context, params store.ListParams, match string, pattern string) (*store.ProductPage, error) {
	params.ApplyDefaults()

	var conditions []string
	var args []any
	if match != "" {
		conditions = append(conditions, match)
		args = append(args, pattern)
	}
	if !params.IncludeArchived {
		conditions = append(conditions, "deleted_at IS NULL")
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM products`+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	column, ok := productSortColumns[params.SortBy]
	if !ok {
		column = "created_at"
	}

	query := fmt.Sprintf(`SELECT %s FROM products%s ORDER BY %s %s LIMIT $%d OFFSET $%d`,
		productColumns, where, column, params.OrderBy.SQL(), len(args)+1, len(args)+2)
	args = append(args, params.Limit, params.Offset())

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read product rows: %w", err)
	}

	return &store.ProductPage{
		Records:    products,
		Pagination: store.NewPagination(total, params),
	}, nil
}

func scanProduct(row pgx.Row) (*models.Product, error) {
	var product models.Product
	err := row.Scan(
		&product.ID,
		&product.Name,
		&product.Description,
		&product.Price,
		&product.CreatedAt,
		&product.UpdatedAt,
		&product.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &product, nil
}
