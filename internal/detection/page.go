package detection

// Page selects one page of a listing. Page numbers start at 1.
type Page struct {
	Page     int
	PageSize int
}

// PageLimits bounds page sizes requested by callers.
type PageLimits struct {
	Default int
	Max     int
}

// DefaultPageLimits are used when the service is built without limits.
var DefaultPageLimits = PageLimits{Default: 10, Max: 100}

// normalize coerces p into range: page < 1 becomes 1, a non-positive size
// becomes the default and sizes above the maximum are clamped.
func (l PageLimits) normalize(p Page) Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = l.Default
	}
	if l.Max > 0 && p.PageSize > l.Max {
		p.PageSize = l.Max
	}
	return p
}

func (p Page) offset() int {
	return (p.Page - 1) * p.PageSize
}

// Paginated is the envelope returned by list and search.
type Paginated[T any] struct {
	Data       []T   `json:"data"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

func newPaginated[T any](data []T, total int64, p Page) *Paginated[T] {
	if data == nil {
		data = []T{}
	}
	pages := 0
	if p.PageSize > 0 {
		pages = int((total + int64(p.PageSize) - 1) / int64(p.PageSize))
	}
	return &Paginated[T]{
		Data:       data,
		Total:      total,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalPages: pages,
	}
}
