// Package apiclient calls the backend's request/response API.
package apiclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"kiln_dashboard/internal/config"
	"kiln_dashboard/internal/logger"
	"kiln_dashboard/internal/metrics"
	"kiln_dashboard/internal/models"
	"kiln_dashboard/internal/notify"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
)

// ErrStatus wraps any non-success HTTP status from the backend.
var ErrStatus = errors.New("unexpected status")

// Endpoint names, also used as metric labels.
const (
	endpointSensors    = "sensors"
	endpointStats      = "stats"
	endpointChart      = "chart"
	endpointAllSensors = "all_sensors"
	endpointSensorData = "sensor_data"
	endpointReadings   = "readings"
	endpointExport     = "export"
)

// Client is the backend REST client. Every failed call raises one danger
// notification and leaves the caller's state untouched.
type Client struct {
	http     *resty.Client
	breaker  *gobreaker.CircuitBreaker
	notifier notify.Notifier
	log      *logger.Logger
	metrics  *metrics.Metrics
}

// New builds a client for cfg. Retries are disabled: periodic refresh timers
// are the only retry mechanism.
func New(cfg config.Backend, n notify.Notifier, log *logger.Logger, m *metrics.Metrics) *Client {
	if n == nil {
		n = notify.Nop{}
	}
	rc := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")

	c := &Client{http: rc, notifier: n, log: logger.OrNop(log), metrics: m}
	if cfg.Breaker.Enabled {
		c.breaker = newBreaker(cfg.Breaker)
	}
	return c
}

func newBreaker(b config.Breaker) *gobreaker.CircuitBreaker {
	fails := b.ConsecutiveFailures
	if fails == 0 {
		fails = 5
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     "backend-api",
		Interval: b.Interval,
		Timeout:  b.OpenTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= fails
		},
		// Cancelled requests do not count against the backend.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
}

// Sensors lists sensor names in backend order.
func (c *Client) Sensors(ctx context.Context) ([]string, error) {
	var out []string
	err := c.get(ctx, endpointSensors, "/api/sensors", nil, &out)
	return out, err
}

// Stats returns reading counters.
func (c *Client) Stats(ctx context.Context) (models.Stats, error) {
	var out models.Stats
	err := c.get(ctx, endpointStats, "/api/stats", nil, &out)
	return out, err
}

// Chart returns the series of one sensor for the last hours, capped at limit points when limit > 0.
func (c *Client) Chart(ctx context.Context, sensor string, hours, limit int) ([]models.Sample, error) {
	var out []models.Sample
	err := c.get(ctx, endpointChart, "/api/chart/{sensor}", func(r *resty.Request) {
		r.SetPathParam("sensor", sensor)
		r.SetQueryParam("hours", strconv.Itoa(hours))
		if limit > 0 {
			r.SetQueryParam("limit", strconv.Itoa(limit))
		}
	}, &out)
	return out, err
}

// SensorData is the per-sensor data endpoint; same shape as Chart.
func (c *Client) SensorData(ctx context.Context, sensor string, hours int) ([]models.Sample, error) {
	var out []models.Sample
	err := c.get(ctx, endpointSensorData, "/api/sensor/{name}/data", func(r *resty.Request) {
		r.SetPathParam("name", sensor)
		r.SetQueryParam("hours", strconv.Itoa(hours))
	}, &out)
	return out, err
}

// AllSensorsData returns the consolidated multi-field series.
func (c *Client) AllSensorsData(ctx context.Context, hours int) ([]models.ConsolidatedSample, error) {
	var out []models.ConsolidatedSample
	err := c.get(ctx, endpointAllSensors, "/api/all-sensors/data", func(r *resty.Request) {
		r.SetQueryParam("hours", strconv.Itoa(hours))
	}, &out)
	return out, err
}

// Readings fetches one server-side page of readings.
func (c *Client) Readings(ctx context.Context, f models.ReadingFilter, page int) (models.ReadingsPage, error) {
	var out models.ReadingsPage
	err := c.get(ctx, endpointReadings, "/api/readings", func(r *resty.Request) {
		r.SetQueryParams(filterParams(f))
		r.SetQueryParam("page", strconv.Itoa(page))
	}, &out)
	return out, err
}

// Download is a backend-generated file being streamed through.
type Download struct {
	ContentType        string
	ContentDisposition string
	Body               io.ReadCloser
}

// Export opens the backend export for f. The caller must close Body.
func (c *Client) Export(ctx context.Context, f models.ReadingFilter) (*Download, error) {
	var dl *Download
	err := c.do(endpointExport, func() error {
		resp, err := c.http.R().
			SetContext(ctx).
			SetDoNotParseResponse(true).
			SetQueryParams(filterParams(f)).
			Get("/api/readings/export")
		if err != nil {
			return err
		}
		if resp.IsError() {
			_ = resp.RawBody().Close()
			return fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode())
		}
		dl = &Download{
			ContentType:        resp.Header().Get("Content-Type"),
			ContentDisposition: resp.Header().Get("Content-Disposition"),
			Body:               resp.RawBody(),
		}
		return nil
	})
	return dl, err
}

func filterParams(f models.ReadingFilter) map[string]string {
	params := map[string]string{}
	if f.Sensor != "" {
		params["sensor"] = f.Sensor
	}
	if f.Start != "" {
		params["start"] = f.Start
	}
	if f.End != "" {
		params["end"] = f.End
	}
	return params
}

// get runs a JSON GET and decodes the body into out.
func (c *Client) get(ctx context.Context, endpoint, path string, build func(*resty.Request), out any) error {
	return c.do(endpoint, func() error {
		req := c.http.R().SetContext(ctx).SetResult(out).ForceContentType("application/json")
		if build != nil {
			build(req)
		}
		resp, err := req.Get(path)
		if err != nil {
			return err
		}
		if resp.IsError() {
			return fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode())
		}
		return nil
	})
}

// do wraps a call with the breaker, logging, metrics and the failure notification.
func (c *Client) do(endpoint string, call func() error) error {
	start := time.Now()
	var err error
	if c.breaker != nil {
		_, err = c.breaker.Execute(func() (any, error) { return nil, call() })
	} else {
		err = call()
	}
	c.metrics.API(endpoint, err)
	if errors.Is(err, context.Canceled) {
		c.log.Debugw("api_request_canceled", "endpoint", endpoint)
		return fmt.Errorf("%s: %w", endpoint, err)
	}
	if err != nil {
		c.log.Errorw("api_request_failed", "endpoint", endpoint, "err", err, "elapsed", time.Since(start))
		c.notifier.Notify(notify.Danger, "API error: "+err.Error())
		return fmt.Errorf("%s: %w", endpoint, err)
	}
	c.log.Debugw("api_request_ok", "endpoint", endpoint, "elapsed", time.Since(start))
	return nil
}
