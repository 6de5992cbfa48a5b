package view

import (
	"context"

	"kiln_dashboard/internal/apiclient"
	"kiln_dashboard/internal/format"
	"kiln_dashboard/internal/listing"
	"kiln_dashboard/internal/models"
	"kiln_dashboard/internal/notify"
	"kiln_dashboard/internal/surface"
	"kiln_dashboard/internal/timers"
)

// IDSensorFilter is the sensor selector of the filter form.
const IDSensorFilter = "sensor-filter"

func readingsWidgets() []surface.Widget {
	return []surface.Widget{
		list(IDSensorsMenu),
		list(IDSensorFilter),
		input(IDPressureUnit),
		table(listing.IDTable),
		{ID: listing.IDPagination, Kind: surface.KindPagination},
	}
}

// Readings is the historical readings table, reloaded on a timer with the
// page and filters currently shown.
type Readings struct {
	*base
	list *listing.Listing
}

func NewReadings(ctx context.Context, d Deps) *Readings {
	v := &Readings{base: newBase(NameReadings, d, readingsWidgets())}
	v.list = listing.New(v.page, d.API, d.Locale, v.unit, v.log)

	if names, err := d.API.Sensors(ctx); err == nil {
		for _, id := range []string{IDSensorsMenu, IDSensorFilter} {
			v.page.Update(id, func(w *surface.Widget) { w.Items = names })
		}
	}
	_ = v.list.GoTo(ctx, 1)

	v.timers.Every(timers.TablePoll, d.Refresh.Readings, func() {
		_ = v.list.Reload(v.ctx)
	})
	return v
}

// Listing exposes the table state.
func (v *Readings) Listing() *listing.Listing { return v.list }

func (v *Readings) ApplyFilters(ctx context.Context, f models.ReadingFilter) error {
	return v.list.ApplyFilters(ctx, f)
}

func (v *Readings) Clear(ctx context.Context) error { return v.list.Clear(ctx) }

func (v *Readings) GoTo(ctx context.Context, page int) error { return v.list.GoTo(ctx, page) }

// Refresh reloads page 1 and confirms with a toast.
func (v *Readings) Refresh(ctx context.Context) error {
	if err := v.list.Refresh(ctx); err != nil {
		return err
	}
	v.deps.Notifier.Notify(notify.Success, "Data updated")
	return nil
}

func (v *Readings) Export(ctx context.Context) (*apiclient.Download, error) {
	return v.list.Export(ctx)
}

func (v *Readings) SetUnit(u format.PressureUnit) {
	v.mu.Lock()
	v.setUnitLocked(u)
	v.mu.Unlock()
	v.list.SetUnit(u)
}

func (v *Readings) Close() { v.close(nil) }
