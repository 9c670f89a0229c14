package dto

type Filter struct {
	Limit int `query:"limit"`
	Page  int `query:"page"`
}

// Offset returns the row offset for the filter, or -1 when no limit is set.
// A limit without a page means the first page.
func (f Filter) Offset() int {
	if f.Limit <= 0 {
		return -1
	}
	if f.Page <= 0 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}
