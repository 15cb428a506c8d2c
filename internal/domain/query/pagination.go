// Package query holds request-scoped query primitives shared by the
// domain and repository layers.
package query

const (
	// DefaultLimit is applied when a caller does not specify a page size.
	DefaultLimit = 20
	// MaxLimit caps page size to keep list queries bounded.
	MaxLimit = 100
)

// Pagination expresses page/limit list windows.
type Pagination struct {
	Page  int
	Limit int
}

// NewPagination builds a normalized Pagination from raw values.
func NewPagination(page, limit int) *Pagination {
	p := &Pagination{Page: page, Limit: limit}
	p.Normalize()
	return p
}

// Normalize clamps the pagination values into valid ranges.
func (p *Pagination) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
}

// Offset returns the row offset for the current page.
func (p *Pagination) Offset() int {
	return (p.Page - 1) * p.Limit
}
