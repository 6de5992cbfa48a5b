package listing

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"kiln_dashboard/internal/apiclient"
	"kiln_dashboard/internal/format"
	"kiln_dashboard/internal/logger"
	"kiln_dashboard/internal/models"
	"kiln_dashboard/internal/surface"
)

// Widget ids of the readings screen.
const (
	IDTable      = "data-table"
	IDPagination = "pagination"
)

var columns = []string{"Time", "Sensor", "Temperature", "Pressure", "Velocity", "Type", "Mode"}

// Source is the part of the backend API the listing needs.
type Source interface {
	Readings(ctx context.Context, f models.ReadingFilter, page int) (models.ReadingsPage, error)
	Export(ctx context.Context, f models.ReadingFilter) (*apiclient.Download, error)
}

// Listing owns the filters and current page of one readings screen.
type Listing struct {
	page   *surface.Page
	api    Source
	locale *format.Locale
	log    *logger.Logger

	mu      sync.Mutex
	filter  models.ReadingFilter
	current int
	last    *models.ReadingsPage
	unit    format.PressureUnit
}

func New(page *surface.Page, api Source, locale *format.Locale, unit format.PressureUnit, log *logger.Logger) *Listing {
	if locale == nil {
		locale = format.NewLocale("", nil)
	}
	return &Listing{
		page:    page,
		api:     api,
		locale:  locale,
		log:     logger.OrNop(log),
		current: 1,
		unit:    unit,
	}
}

// Filter returns the active filters.
func (l *Listing) Filter() models.ReadingFilter {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.filter
}

// Current is the page shown last.
func (l *Listing) Current() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current
}

// ApplyFilters replaces the filters and shows page 1.
func (l *Listing) ApplyFilters(ctx context.Context, f models.ReadingFilter) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.filter = normalize(f)
	return l.loadLocked(ctx, 1)
}

// Clear drops every filter and shows page 1.
func (l *Listing) Clear(ctx context.Context) error {
	return l.ApplyFilters(ctx, models.ReadingFilter{})
}

// Refresh re-requests page 1 with the current filters.
func (l *Listing) Refresh(ctx context.Context) error {
	return l.GoTo(ctx, 1)
}

// Reload re-requests the page currently shown, for periodic polling.
func (l *Listing) Reload(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loadLocked(ctx, l.current)
}

// GoTo requests page with the current filters.
func (l *Listing) GoTo(ctx context.Context, page int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loadLocked(ctx, max(page, 1))
}

// Export opens the backend download for the current filters and then
// shows page 1. The download is passed through untouched.
func (l *Listing) Export(ctx context.Context) (*apiclient.Download, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	dl, err := l.api.Export(ctx, l.filter)
	if err != nil {
		return nil, err
	}
	if lerr := l.loadLocked(ctx, 1); lerr != nil {
		l.log.Infow("listing_reload_after_export_failed", "err", lerr)
	}
	return dl, nil
}

// SetUnit re-renders the rows already loaded in pressure unit u.
func (l *Listing) SetUnit(u format.PressureUnit) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.unit = u
	if l.last != nil {
		l.renderLocked(*l.last)
	}
}

func (l *Listing) loadLocked(ctx context.Context, page int) error {
	res, err := l.api.Readings(ctx, l.filter, page)
	if err != nil {
		l.page.Update(IDTable, func(w *surface.Widget) {
			w.Table = &surface.Table{Columns: columns, Message: "Failed to load data: " + err.Error(), Error: true}
		})
		return fmt.Errorf("load readings page %d: %w", page, err)
	}
	if res.Page < 1 {
		res.Page = page
	}
	l.current = res.Page
	l.last = &res
	l.renderLocked(res)
	return nil
}

func (l *Listing) renderLocked(res models.ReadingsPage) {
	rows := make([][]string, 0, len(res.Items))
	for _, it := range res.Items {
		rows = append(rows, []string{
			l.locale.DateTime(it.Timestamp.Time),
			it.SensorName,
			format.Temperature(it.Temperature),
			format.Pressure(it.Pressure, l.unit),
			format.Velocity(it.Velocity),
			it.SensorType,
			modeLabel(it.Mode),
		})
	}
	l.page.Update(IDTable, func(w *surface.Widget) {
		t := &surface.Table{Columns: columns, Rows: rows}
		if len(rows) == 0 {
			t.Message = "No data found"
		}
		w.Table = t
	})

	p := Window(res.Page, res.TotalPages)
	p.Summary = fmt.Sprintf("Page %d of %d (%s total)", res.Page, max(res.TotalPages, 1), l.locale.Count(res.Total))
	l.page.Update(IDPagination, func(w *surface.Widget) { w.Pagination = &p })
}

func normalize(f models.ReadingFilter) models.ReadingFilter {
	return models.ReadingFilter{
		Sensor: strings.TrimSpace(f.Sensor),
		Start:  strings.TrimSpace(f.Start),
		End:    strings.TrimSpace(f.End),
	}
}

func modeLabel(mode string) string {
	if mode == models.ModeHardware {
		return "Hardware"
	}
	return "Simulation"
}
