package model

// Page is one page of a paginated listing.
type Page[T any] struct {
	Data        []T `json:"data"`
	CurrentPage int `json:"current_page"`
	LastPage    int `json:"last_page"`
	PerPage     int `json:"per_page"`
	Total       int `json:"total"`
}

// NewPage builds page metadata for total items split in pages of perPage.
func NewPage[T any](data []T, page, perPage, total int) Page[T] {
	last := 1
	if perPage > 0 && total > 0 {
		last = (total + perPage - 1) / perPage
	}
	if data == nil {
		data = []T{}
	}
	return Page[T]{Data: data, CurrentPage: page, LastPage: last, PerPage: perPage, Total: total}
}
