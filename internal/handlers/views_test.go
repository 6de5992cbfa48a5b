package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"kiln_dashboard/internal/apiclient"
	"kiln_dashboard/internal/control"
	"kiln_dashboard/internal/format"
	"kiln_dashboard/internal/models"
	"kiln_dashboard/internal/service"
	"kiln_dashboard/internal/surface"
	"kiln_dashboard/internal/view"

	"github.com/sony/gobreaker"
)

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var rd *bytes.Buffer
	if body != "" {
		rd = bytes.NewBufferString(body)
	} else {
		rd = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func snapshotOf(t *testing.T, w *httptest.ResponseRecorder) surface.Snapshot {
	t.Helper()
	var snap surface.Snapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("unmarshal snapshot: %v (%s)", err, w.Body.String())
	}
	return snap
}

func widgetIn(snap surface.Snapshot, id string) (surface.Widget, bool) {
	for _, w := range snap.Widgets {
		if w.ID == id {
			return w, true
		}
	}
	return surface.Widget{}, false
}

func TestHealth(t *testing.T) {
	r := newTestRouter(newFixture(control.Latched).svc)
	w := do(r, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("health status=%d", w.Code)
	}
}

func TestViewLifecycle(t *testing.T) {
	f := newFixture(control.Latched)
	defer f.svc.CloseAll()
	r := newTestRouter(f.svc)

	// snapshot before entering → 409
	if w := do(r, http.MethodGet, "/api/v1/views/sensor", ""); w.Code != http.StatusConflict {
		t.Fatalf("expected 409 before enter, got %d", w.Code)
	}

	// sensor screen needs a sensor → 400
	if w := do(r, http.MethodPost, "/api/v1/views/sensor", `{}`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without sensor, got %d: %s", w.Code, w.Body.String())
	}

	// unknown screen → 404
	if w := do(r, http.MethodPost, "/api/v1/views/settings", ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown view, got %d", w.Code)
	}

	w := do(r, http.MethodPost, "/api/v1/views/sensor", `{"sensor":"Temp Forno","hours":6}`)
	if w.Code != http.StatusOK {
		t.Fatalf("enter status=%d, body=%s", w.Code, w.Body.String())
	}
	snap := snapshotOf(t, w)
	if snap.View != view.NameSensor {
		t.Fatalf("unexpected view %q", snap.View)
	}
	if tr, ok := widgetIn(snap, view.IDTimeRange); !ok || tr.Value != "6" {
		t.Fatalf("time range not applied: %+v", tr)
	}

	if w := do(r, http.MethodGet, "/api/v1/views/sensor", ""); w.Code != http.StatusOK {
		t.Fatalf("snapshot status=%d", w.Code)
	}

	w = do(r, http.MethodDelete, "/api/v1/views/sensor", "")
	var exit struct {
		Status  string `json:"status"`
		WasOpen bool   `json:"was_open"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &exit)
	if exit.Status != statusExited || !exit.WasOpen {
		t.Fatalf("bad exit response: %s", w.Body.String())
	}
}

func TestRefreshAutoRefreshAndUnit(t *testing.T) {
	f := newFixture(control.Latched)
	defer f.svc.CloseAll()
	r := newTestRouter(f.svc)

	do(r, http.MethodPost, "/api/v1/views/sensor", `{"sensor":"Temp Forno"}`)

	if w := do(r, http.MethodPost, "/api/v1/views/sensor/refresh", `{"hours":12}`); w.Code != http.StatusOK {
		t.Fatalf("refresh status=%d, body=%s", w.Code, w.Body.String())
	}

	if w := do(r, http.MethodPost, "/api/v1/views/sensor/auto-refresh", `{}`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without enabled, got %d", w.Code)
	}
	if w := do(r, http.MethodPost, "/api/v1/views/sensor/auto-refresh", `{"enabled":true}`); w.Code != http.StatusOK {
		t.Fatalf("auto-refresh status=%d, body=%s", w.Code, w.Body.String())
	}
	sd, err := f.svc.Sensor()
	if err != nil || !sd.AutoRefreshActive() {
		t.Fatalf("auto-refresh not active: %v", err)
	}

	if w := do(r, http.MethodPost, "/api/v1/views/sensor/unit", `{"unit":"kpa"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad unit, got %d", w.Code)
	}
	w := do(r, http.MethodPost, "/api/v1/views/sensor/unit", `{"unit":"BAR"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("unit status=%d, body=%s", w.Code, w.Body.String())
	}
	if u, _ := widgetIn(snapshotOf(t, w), view.IDPressureUnit); u.Value != "bar" {
		t.Fatalf("unit not applied: %+v", u)
	}
	if f.svc.Unit() != format.Bar {
		t.Fatalf("session unit = %s", f.svc.Unit())
	}
}

func TestControlRoutes_Latched(t *testing.T) {
	f := newFixture(control.Latched)
	defer f.svc.CloseAll()
	r := newTestRouter(f.svc)

	// no panel yet → 409
	if w := do(r, http.MethodPost, "/api/v1/views/control/click", `{"control":"fan"}`); w.Code != http.StatusConflict {
		t.Fatalf("expected 409 without panel, got %d", w.Code)
	}

	if w := do(r, http.MethodPost, "/api/v1/views/control", ""); w.Code != http.StatusOK {
		t.Fatalf("enter control status=%d, body=%s", w.Code, w.Body.String())
	}

	if w := do(r, http.MethodPost, "/api/v1/views/control/click", `{"control":"drum_forward"}`); w.Code != http.StatusOK {
		t.Fatalf("click status=%d, body=%s", w.Code, w.Body.String())
	}
	if w := do(r, http.MethodPost, "/api/v1/views/control/click", `{"control":"conveyor"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown control, got %d", w.Code)
	}
	if w := do(r, http.MethodPost, "/api/v1/views/control/press", `{"control":"fan"}`); w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for press on latched panel, got %d", w.Code)
	}
	if w := do(r, http.MethodPost, "/api/v1/views/control/settings", `{"name":"temp_max","value":"85,5"}`); w.Code != http.StatusOK {
		t.Fatalf("settings status=%d, body=%s", w.Code, w.Body.String())
	}
	if w := do(r, http.MethodPost, "/api/v1/views/control/settings", `{"name":"temp_max","value":"hot"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad number, got %d", w.Code)
	}
	if w := do(r, http.MethodPost, "/api/v1/views/control/mode", `{"mode":3}`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad mode, got %d", w.Code)
	}
	if w := do(r, http.MethodPost, "/api/v1/views/control/mode", `{"mode":0}`); w.Code != http.StatusOK {
		t.Fatalf("mode status=%d, body=%s", w.Code, w.Body.String())
	}
	if w := do(r, http.MethodPost, "/api/v1/views/control/heating", ""); w.Code != http.StatusOK {
		t.Fatalf("heating status=%d", w.Code)
	}

	sent := f.ch.sent()
	want := []any{
		models.ManualPayload{Target: models.ActuatorDrumDir, State: true},
		models.ManualPayload{Target: models.ActuatorDrumPulse, State: true},
		models.SettingPayload{Name: "temp_max", Value: 85.5},
		models.SettingPayload{Name: models.SettingSystemMode, Value: 0},
		models.SettingPayload{Name: models.SettingHeatingStatus, Value: 1},
	}
	if len(sent) != len(want) {
		t.Fatalf("want %d commands, got %d: %+v", len(want), len(sent), sent)
	}
	for i := range want {
		if sent[i].Payload != want[i] {
			t.Fatalf("command %d: want %+v, got %+v", i, want[i], sent[i].Payload)
		}
	}
}

func TestControlRoutes_MomentaryReleaseOnce(t *testing.T) {
	f := newFixture(control.Momentary)
	defer f.svc.CloseAll()
	r := newTestRouter(f.svc)
	do(r, http.MethodPost, "/api/v1/views/control", "")

	do(r, http.MethodPost, "/api/v1/views/control/press", `{"control":"screw"}`)
	// pointer-leave then pointer-up
	do(r, http.MethodPost, "/api/v1/views/control/release", `{"control":"screw"}`)
	do(r, http.MethodPost, "/api/v1/views/control/release", `{"control":"screw"}`)

	if n := len(f.ch.sent()); n != 2 {
		t.Fatalf("want press + one release, got %d commands", n)
	}
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("x: %w", view.ErrUnknownView), http.StatusNotFound},
		{control.ErrInvalidNumber, http.StatusBadRequest},
		{fmt.Errorf("%w %q", format.ErrUnknownUnit, "kpa"), http.StatusBadRequest},
		{service.ErrNotEntered, http.StatusConflict},
		{control.ErrUnsupportedInteraction, http.StatusConflict},
		{fmt.Errorf("chart: %w", apiclient.ErrStatus), http.StatusBadGateway},
		{fmt.Errorf("chart: %w", gobreaker.ErrOpenState), http.StatusBadGateway},
		{errors.New("connection refused"), http.StatusBadGateway},
	}
	for _, tc := range cases {
		if got := statusFor(tc.err); got != tc.want {
			t.Errorf("statusFor(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
