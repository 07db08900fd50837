package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/stockroomhq/stockroom/internal/models"
)

// MemoryProductStore is an in-memory implementation of ProductStore for
// development and testing.
type MemoryProductStore struct {
	mu       sync.RWMutex
	products map[uuid.UUID]*models.Product
}

// NewMemoryProductStore creates a new in-memory product store.
func NewMemoryProductStore() *MemoryProductStore {
	return &MemoryProductStore{
		products: make(map[uuid.UUID]*models.Product),
	}
}

// Put stores a product, used by seeding and tests.
func (s *MemoryProductStore) Put(product *models.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.products[product.ID] = cloneProduct(product)
}

// Get retrieves a product by ID, including archived products.
func (s *MemoryProductStore) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, exists := s.products[id]
	if !exists {
		return nil, ErrProductNotFound
	}

	return cloneProduct(product), nil
}

// List returns a page of products ordered per params.
func (s *MemoryProductStore) List(ctx context.Context, params ListParams) (*ProductPage, error) {
	return s.page(params, nil)
}

// Search returns a page of products whose name or description matches
// the query, case-insensitively.
func (s *MemoryProductStore) Search(ctx context.Context, query string, params ListParams) (*ProductPage, error) {
	needle := strings.ToLower(query)
	return s.page(params, func(p *models.Product) bool {
		return strings.Contains(strings.ToLower(p.Name), needle) ||
			strings.Contains(strings.ToLower(p.Description), needle)
	})
}

func (s *MemoryProductStore) page(params ListParams, match func(*models.Product) bool) (*ProductPage, error) {
	params.ApplyDefaults()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*models.Product
	for _, product := range s.products {
		if !params.IncludeArchived && product.DeletedAt != nil {
			continue
		}
		if match != nil && !match(product) {
			continue
		}
		matched = append(matched, cloneProduct(product))
	}

	sortProducts(matched, params)

	total := int64(len(matched))
	start := params.Offset()
	if start > len(matched) {
		start = len(matched)
	}
	end := start + params.Limit
	if end > len(matched) {
		end = len(matched)
	}

	return &ProductPage{
		Records:    matched[start:end],
		Pagination: NewPagination(total, params),
	}, nil
}

func sortProducts(products []*models.Product, params ListParams) {
	asc := params.OrderBy == SortAsc

	sort.Slice(products, func(i, j int) bool {
		a, b := products[i], products[j]
		if !asc {
			a, b = b, a
		}
		switch params.SortBy {
		case "name":
			return a.Name < b.Name
		case "price":
			return a.Price < b.Price
		case "updated_at":
			return a.UpdatedAt.Before(b.UpdatedAt)
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	})
}

func cloneProduct(product *models.Product) *models.Product {
	copy := *product
	if product.DeletedAt != nil {
		t := *product.DeletedAt
		copy.DeletedAt = &t
	}
	return &copy
}
