package repository

import (
	"strings"

	"gorm.io/gorm"
)

// ListQuery represents common query parameters
type ListQuery struct {
	Page    int
	PerPage int
	Search  string
	SortBy  string
	SortDir string
	Filters map[string]string
}

// NewListQuery creates a ListQuery with defaults
func NewListQuery() *ListQuery {
	return &ListQuery{
		Page:    1,
		PerPage: 20,
		Filters: make(map[string]string),
	}
}

// paginate applies offset and limit. PerPage 0 returns everything (exports).
func paginate(db *gorm.DB, query *ListQuery) *gorm.DB {
	if query.PerPage <= 0 {
		return db
	}
	page := query.Page
	if page < 1 {
		page = 1
	}
	return db.Offset((page - 1) * query.PerPage).Limit(query.PerPage)
}

// orderBy applies the requested sort if the column is allowed, otherwise the fallback
func orderBy(db *gorm.DB, query *ListQuery, allowed map[string]string, fallback string) *gorm.DB {
	column, ok := allowed[query.SortBy]
	if !ok {
		return db.Order(fallback)
	}
	if strings.ToLower(query.SortDir) == "desc" {
		return db.Order(column + " DESC")
	}
	return db.Order(column + " ASC")
}

// statusList parses "pending", "pending,partial" or "[pending|partial]"
func statusList(filter string) []string {
	filter = strings.TrimSpace(filter)
	if strings.HasPrefix(filter, "[") && strings.HasSuffix(filter, "]") {
		return strings.Split(filter[1:len(filter)-1], "|")
	}
	return strings.Split(filter, ",")
}
