package shared

import (
	"net/http"
	"strconv"
	"strings"

	coreshared "github.com/revenue-dashboard/revenue-dashboard/internal/shared"
)

// ListFilters represents standard list filters for master data.
type ListFilters struct {
	Page     int
	PerPage  int
	Search   string
	IsActive *bool

	// Dimension narrows by client channel or company category.
	Dimension string
}

// Offset returns the SQL offset of the current page.
func (f ListFilters) Offset() int {
	return coreshared.Offset(f.Page, f.PerPage)
}

// Limit returns the clamped page size.
func (f ListFilters) Limit() int {
	_, perPage := coreshared.NormalizePage(f.Page, f.PerPage)
	return perPage
}

// ParseListFilters reads page, per_page, search, active and dimension query parameters.
func ParseListFilters(r *http.Request, dimensionParam string) ListFilters {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	filters := ListFilters{
		Page:      page,
		PerPage:   perPage,
		Search:    strings.TrimSpace(q.Get("search")),
		Dimension: strings.TrimSpace(q.Get(dimensionParam)),
	}
	if raw := strings.TrimSpace(q.Get("active")); raw != "" {
		if active, err := strconv.ParseBool(raw); err == nil {
			filters.IsActive = &active
		}
	}
	return filters
}
