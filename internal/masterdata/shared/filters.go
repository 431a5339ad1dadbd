package shared

// ListFilters carries the common listing parameters for master data.
// IncludeDeleted must be set explicitly; no read path filters soft-deleted
// rows implicitly.
type ListFilters struct {
	Page           int
	Limit          int
	Search         string
	SortBy         string
	SortDir        string
	IncludeDeleted bool
}

// Offset derives the query offset from page and limit.
func (f ListFilters) Offset() int {
	offset := (f.Page - 1) * f.Limit
	if offset < 0 {
		return 0
	}
	return offset
}

// SortOrder maps the requested sort column to a known column, defaulting to
// name ascending. Only whitelisted columns reach the query text.
func SortOrder(sortBy, sortDir string, allowed ...string) string {
	dir := "ASC"
	if sortDir == "desc" {
		dir = "DESC"
	}
	for _, col := range allowed {
		if sortBy == col {
			return col + " " + dir
		}
	}
	return "name " + dir
}
