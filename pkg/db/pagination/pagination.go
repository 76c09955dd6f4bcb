// Package pagination provides limit/offset paging for list queries.
package pagination

import "gorm.io/gorm"

const (
	defaultLimit = 25
	maxLimit     = 200
)

type Pagination struct {
	Page  int `form:"page"`
	Limit int `form:"limit"`
}

type PageInfo struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalCount int64 `json:"total_count"`
}

func (p Pagination) Normalize() Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = defaultLimit
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	return p
}

// Apply scopes a query to the requested page.
func (p Pagination) Apply(q *gorm.DB) *gorm.DB {
	p = p.Normalize()
	return q.Offset((p.Page - 1) * p.Limit).Limit(p.Limit)
}

func (p Pagination) PageInfo(total int64) *PageInfo {
	p = p.Normalize()
	return &PageInfo{Page: p.Page, Limit: p.Limit, TotalCount: total}
}
