package httpapi

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/stockroomhq/stockroom/internal/store"
)

// ProductsHandler serves the read-only product endpoints.
type ProductsHandler struct {
	products store.ProductStore
}

// NewProductsHandler returns a ProductsHandler using the given store.
func NewProductsHandler(products store.ProductStore) *ProductsHandler {
	return &ProductsHandler{
		products: products,
	}
}

// List handles GET /products.
func (h *ProductsHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := h.products.List(r.Context(), parseListParams(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

// Search handles GET /products/search.
func (h *ProductsHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		writeErrorMessage(w, http.StatusBadRequest, "Query parameter is required.")
		return
	}

	page, err := h.products.Search(r.Context(), query, parseListParams(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

// Get handles GET /products/{product_id}.
func (h *ProductsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("product_id"))
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "Invalid product id.")
		return
	}

	product, err := h.products.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, product)
}
