// Package listing renders the server-paginated readings table.
package listing

import (
	"strconv"

	"kiln_dashboard/internal/surface"
)

// MaxLinks is the widest pagination window.
const MaxLinks = 7

// Window builds the pagination control for page of total. The numbered
// links are centred on page, clamped to [1, total] and never exceed
// MaxLinks. The server owns total; it is only clamped to at least one.
func Window(page, total int) surface.Pagination {
	total = max(total, 1)
	page = min(max(page, 1), total)

	start := page - MaxLinks/2
	end := start + MaxLinks - 1
	if start < 1 {
		start, end = 1, min(total, MaxLinks)
	}
	if end > total {
		start, end = max(1, total-MaxLinks+1), total
	}

	links := make([]surface.PageLink, 0, end-start+1)
	for i := start; i <= end; i++ {
		links = append(links, surface.PageLink{Page: i, Label: strconv.Itoa(i), Active: i == page})
	}
	return surface.Pagination{
		Prev:  surface.PageLink{Page: max(page-1, 1), Label: "‹", Disabled: page == 1},
		Links: links,
		Next:  surface.PageLink{Page: min(page+1, total), Label: "›", Disabled: page == total},
	}
}
