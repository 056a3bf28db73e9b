package query

import "github.com/sambeau/tabula/pkg/table"

// Page is one page of rows.
type Page struct {
	Rows       []*table.Row
	TotalPages int
}

// Paginate returns page (1-based) of rows. total is the number of matching
// rows the page count is computed from. With pagination disabled, or no
// page size, all rows come back as a single page. Pages out of range are
// empty.
func Paginate(rows []*table.Row, page, total int, cfg *table.Config) Page {
	if cfg == nil || !cfg.Paginate || cfg.MaxResultsPerPage <= 0 {
		return Page{Rows: rows, TotalPages: 1}
	}

	size := cfg.MaxResultsPerPage
	totalPages := 0
	if total > 0 {
		totalPages = (total-1)/size + 1
	}

	// Compare page numbers, not offsets: (page-1)*size overflows for huge pages.
	if page < 1 || len(rows) == 0 || page-1 > (len(rows)-1)/size {
		return Page{Rows: []*table.Row{}, TotalPages: totalPages}
	}
	start := (page - 1) * size
	end := min(start+size, len(rows))
	return Page{Rows: rows[start:end], TotalPages: totalPages}
}
