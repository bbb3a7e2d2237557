package pagination

// PageResult is one page of T with the totals a client needs to walk the
// rest of the listing.
type PageResult[T any] struct {
	Data        []T  `json:"data"`
	Total       int  `json:"total"`
	Page        int  `json:"page"`
	PageSize    int  `json:"page_size"`
	TotalPages  int  `json:"total_pages"`
	HasNext     bool `json:"has_next"`
	HasPrevious bool `json:"has_previous"`
}

// NewPageResult wraps data as page of pageSize out of total rows. An empty
// listing still reports one page, and nil data encodes as [].
func NewPageResult[T any](data []T, total, page, pageSize int) PageResult[T] {
	totalPages := 1
	if pageSize > 0 && total > 0 {
		totalPages = (total + pageSize - 1) / pageSize
	}

	if data == nil {
		data = []T{}
	}

	return PageResult[T]{
		Data:        data,
		Total:       total,
		Page:        page,
		PageSize:    pageSize,
		TotalPages:  totalPages,
		HasNext:     page < totalPages,
		HasPrevious: page > 1,
	}
}

// Map converts each item of r with fn, keeping the page metadata.
func Map[T, U any](r PageResult[T], fn func(T) U) PageResult[U] {
	out := make([]U, len(r.Data))
	for i, item := range r.Data {
		out[i] = fn(item)
	}

	return PageResult[U]{
		Data:        out,
		Total:       r.Total,
		Page:        r.Page,
		PageSize:    r.PageSize,
		TotalPages:  r.TotalPages,
		HasNext:     r.HasNext,
		HasPrevious: r.HasPrevious,
	}
}
