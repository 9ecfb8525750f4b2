package utils

import "strconv"

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Page converts page/limit query values into sane bounds.
func Page(pageRaw, limitRaw string) (page, limit int) {
	page = parseIntDefault(pageRaw, 1)
	limit = parseIntDefault(limitRaw, DefaultPageSize)
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return page, limit
}

// Offset returns the row offset for a 1-based page.
func Offset(page, limit int) int {
	return (page - 1) * limit
}

func parseIntDefault(v string, def int) int {
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
