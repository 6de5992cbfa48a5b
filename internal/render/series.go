// Package render turns fetched series and pushed state into widgets.
package render

import (
	"encoding/json"
	"strconv"
	"time"

	"kiln_dashboard/internal/format"
	"kiln_dashboard/internal/models"
	"kiln_dashboard/internal/surface"

	"github.com/cespare/xxhash/v2"
)

// Quantity is one measured dimension of a sample.
type Quantity int

const (
	Temperature Quantity = iota
	Pressure
	Velocity
)

func (q Quantity) pick(s models.Sample) *float64 {
	switch q {
	case Temperature:
		return s.Temperature
	case Pressure:
		return s.Pressure
	default:
		return s.Velocity
	}
}

// Places is the display precision of q. Pressure depends on the unit.
func (q Quantity) Places(u format.PressureUnit) int32 {
	switch q {
	case Temperature:
		return format.TemperaturePlaces
	case Pressure:
		return u.Places()
	default:
		return format.VelocityPlaces
	}
}

// Extract returns the points of q in series order. Missing values are
// skipped, never zeroed. Pressure is converted to u.
func Extract(samples []models.Sample, q Quantity, u format.PressureUnit) []surface.Point {
	var conv func(float64) float64
	if q == Pressure {
		conv = u.Convert
	}
	return points(samples, sampleTime, q.pick, conv)
}

func sampleTime(s models.Sample) time.Time { return s.Timestamp.Time }

// points builds a series from any sample type through pick.
func points[T any](samples []T, at func(T) time.Time, pick func(T) *float64, conv func(float64) float64) []surface.Point {
	out := make([]surface.Point, 0, len(samples))
	for _, s := range samples {
		v := pick(s)
		if v == nil {
			continue
		}
		y := *v
		if conv != nil {
			y = conv(y)
		}
		out = append(out, surface.Point{X: at(s), Y: y})
	}
	return out
}

// Summary is the min/max/mean of a loaded window.
type Summary struct {
	Min, Max, Mean float64
	Count          int
}

// Summarize computes the window statistics. ok is false for an empty window.
func Summarize(pts []surface.Point) (s Summary, ok bool) {
	if len(pts) == 0 {
		return Summary{}, false
	}
	s.Min, s.Max = pts[0].Y, pts[0].Y
	var sum float64
	for _, p := range pts {
		s.Min = min(s.Min, p.Y)
		s.Max = max(s.Max, p.Y)
		sum += p.Y
	}
	s.Count = len(pts)
	s.Mean = sum / float64(len(pts))
	return s, true
}

// Signature identifies a rendered series: its length, a content hash and
// the pressure unit it was drawn in.
type Signature struct {
	Len  int
	Sum  uint64
	Unit format.PressureUnit
}

// Sign computes the signature of a fetched series.
func Sign[T any](series []T, unit format.PressureUnit) Signature {
	d := xxhash.New()
	enc := json.NewEncoder(d)
	for _, s := range series {
		_ = enc.Encode(s)
	}
	return Signature{Len: len(series), Sum: d.Sum64(), Unit: unit}
}

func (s Signature) String() string {
	return strconv.Itoa(s.Len) + ":" + strconv.FormatUint(s.Sum, 16) + ":" + string(s.Unit)
}
