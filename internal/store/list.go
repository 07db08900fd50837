package store

import "github.com/stockroomhq/stockroom/internal/models"

// SortOrder is the direction applied to the sort column.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// SQL returns the ORDER BY keyword for the sort order. Anything other
// than SortAsc renders as DESC.
func (o SortOrder) SQL() string {
	if o == SortAsc {
		return "ASC"
	}
	return "DESC"
}

// ListParams holds pagination and ordering options shared by list and
// search operations. Zero values are replaced by ApplyDefaults.
type ListParams struct {
	Limit           int
	Page            int
	SortBy          string
	OrderBy         SortOrder
	IncludeArchived bool
}

// ApplyDefaults applies default values to unset fields.
func (p *ListParams) ApplyDefaults() {
	if p.Limit <= 0 {
		p.Limit = 25
	}
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.SortBy == "" {
		p.SortBy = "created_at"
	}
	if p.OrderBy != SortAsc && p.OrderBy != SortDesc {
		p.OrderBy = SortDesc
	}
}

// Offset returns the row offset for the configured page.
func (p ListParams) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Pagination describes the position of a page within the full result set.
type Pagination struct {
	TotalRecords int64 `json:"total_records"`
	TotalPages   int   `json:"total_pages"`
	CurrentPage  int   `json:"current_page"`
	NextPage     *int  `json:"next_page"`
	PreviousPage *int  `json:"previous_page"`
}

// NewPagination computes page metadata for a result set of totalRecords
// rows viewed through params.
func NewPagination(totalRecords int64, params ListParams) Pagination {
	totalPages := int((totalRecords + int64(params.Limit) - 1) / int64(params.Limit))

	pg := Pagination{
		TotalRecords: totalRecords,
		TotalPages:   totalPages,
		CurrentPage:  params.Page,
	}
	if params.Page < totalPages {
		next := params.Page + 1
		pg.NextPage = &next
	}
	if params.Page > 1 {
		prev := params.Page - 1
		pg.PreviousPage = &prev
	}
	return pg
}

// UserPage is one page of users plus its pagination metadata.
type UserPage struct {
	Records []*models.User `json:"records"`
	Pagination
}

// ProductPage is one page of products plus its pagination metadata.
type ProductPage struct {
	Records []*models.Product `json:"records"`
	Pagination
}
