package catalog

// Page is one slice of an ordered result set.
type Page[T any] struct {
	Items      []T `json:"items"`
	Number     int `json:"page"`
	Size       int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// Bounds describes a clamped page of a result set of known size.
type Bounds struct {
	Number     int
	TotalPages int
	Offset     int
	Limit      int
}

// Window clamps the requested 1-indexed page against total items and
// returns the matching offset and limit. An empty set always yields page 1
// with zero total pages.
func Window(total, size, page int) Bounds {
	if size < 1 {
		size = 1
	}
	if total <= 0 {
		return Bounds{Number: 1, Limit: size}
	}

	pages := (total + size - 1) / size
	switch {
	case page < 1:
		page = 1
	case page > pages:
		page = pages
	}
	return Bounds{
		Number:     page,
		TotalPages: pages,
		Offset:     (page - 1) * size,
		Limit:      size,
	}
}

// Paginate slices items into the requested page.
func Paginate[T any](items []T, size, page int) Page[T] {
	b := Window(len(items), size, page)
	end := min(b.Offset+b.Limit, len(items))

	out := make([]T, 0, end-b.Offset)
	out = append(out, items[b.Offset:end]...)
	return Page[T]{
		Items:      out,
		Number:     b.Number,
		Size:       b.Limit,
		Total:      len(items),
		TotalPages: b.TotalPages,
	}
}
