// Package surface holds the widget tree of one dashboard page. The browser
// shell paints snapshots of it; renderers only ever talk to a Page.
package surface

import "time"

// Kind tells the shell how to paint a widget.
type Kind string

const (
	KindText       Kind = "text"
	KindBadge      Kind = "badge"
	KindButton     Kind = "button"
	KindInput      Kind = "input"
	KindChart      Kind = "chart"
	KindTable      Kind = "table"
	KindPagination Kind = "pagination"
	KindGroup      Kind = "group"
	KindList       Kind = "list"
)

// Widget is one addressable element. Slice and pointer fields are replaced
// wholesale on update and never mutated in place, so snapshots may share them.
type Widget struct {
	ID          string       `json:"id"`
	Kind        Kind         `json:"kind"`
	Text        string       `json:"text,omitempty"`
	Class       string       `json:"class,omitempty"`
	Icon        string       `json:"icon,omitempty"`
	Value       string       `json:"value,omitempty"`
	Active      bool         `json:"active,omitempty"`
	Disabled    bool         `json:"disabled,omitempty"`
	Items       []string     `json:"items,omitempty"`
	Chart       *Chart       `json:"chart,omitempty"`
	Placeholder *Placeholder `json:"placeholder,omitempty"`
	Table       *Table       `json:"table,omitempty"`
	Pagination  *Pagination  `json:"pagination,omitempty"`
}

// Chart is a live chart instance. Instance changes when the chart is
// created anew; Revision changes on every in-place data replacement.
type Chart struct {
	Instance int         `json:"instance"`
	Revision int         `json:"revision"`
	Animate  bool        `json:"animate"`
	Config   ChartConfig `json:"config"`
}

type ChartConfig struct {
	Title    string    `json:"title,omitempty"`
	Datasets []Dataset `json:"datasets"`
	Axes     []Axis    `json:"axes"`
}

type Dataset struct {
	Label string `json:"label"`
	Axis  string `json:"y_axis_id"`
	Color string `json:"color"`
	Fill  bool   `json:"fill"`
	Unit  string `json:"unit"`
	// Places is the tooltip precision.
	Places int32   `json:"places"`
	Points []Point `json:"points"`
}

type Point struct {
	X time.Time `json:"x"`
	Y float64   `json:"y"`
}

type Axis struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Position string `json:"position"` // left | right
}

// Placeholder kinds.
const (
	PlaceholderNoData = "no-data"
	PlaceholderError  = "error"
)

// Placeholder stands in for a chart that has nothing valid to show.
type Placeholder struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Retry   bool   `json:"retry,omitempty"`
}

// Table rows are display strings. When Rows is empty Message is shown as a
// single full-width row.
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
	Message string     `json:"message,omitempty"`
	Error   bool       `json:"error,omitempty"`
}

type Pagination struct {
	Prev    PageLink   `json:"prev"`
	Links   []PageLink `json:"links"`
	Next    PageLink   `json:"next"`
	Summary string     `json:"summary"`
}

type PageLink struct {
	Page     int    `json:"page"`
	Label    string `json:"label"`
	Active   bool   `json:"active,omitempty"`
	Disabled bool   `json:"disabled,omitempty"`
}
