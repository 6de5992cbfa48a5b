// Package format turns raw readings into display strings: unit conversion,
// fixed-precision rounding and locale-aware dates and counts.
package format

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// PressureUnit is the session's pressure display unit. Raw values are always psi.
type PressureUnit string

const (
	PSI PressureUnit = "psi"
	Bar PressureUnit = "bar"
)

// PSIPerBar is the psi to bar divisor.
const PSIPerBar = 14.504

// Display precision per quantity.
const (
	TemperaturePlaces int32 = 1
	VelocityPlaces    int32 = 0
	psiPlaces         int32 = 2
	barPlaces         int32 = 3
)

var ErrUnknownUnit = errors.New("unknown pressure unit")

// ParseUnit accepts "psi" or "bar" in any case.
func ParseUnit(s string) (PressureUnit, error) {
	switch u := PressureUnit(strings.ToLower(strings.TrimSpace(s))); u {
	case PSI, Bar:
		return u, nil
	default:
		return "", fmt.Errorf("%w %q", ErrUnknownUnit, s)
	}
}

// Convert maps a raw psi value into u.
func (u PressureUnit) Convert(psi float64) float64 {
	if u == Bar {
		return psi / PSIPerBar
	}
	return psi
}

// Places is the display precision for pressures shown in u.
func (u PressureUnit) Places() int32 {
	if u == Bar {
		return barPlaces
	}
	return psiPlaces
}

// Label is the upper-case unit suffix used on axes and readouts.
func (u PressureUnit) Label() string { return strings.ToUpper(string(u)) }

// Toggle returns the other unit.
func (u PressureUnit) Toggle() PressureUnit {
	if u == Bar {
		return PSI
	}
	return Bar
}

// Round rounds v half away from zero to places decimals.
func Round(v float64, places int32) float64 {
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}

// Fixed renders v with exactly places decimals.
func Fixed(v float64, places int32) string {
	return decimal.NewFromFloat(v).StringFixed(places)
}

// Value renders an optional value with suffix, or "-" when missing.
func Value(v *float64, places int32, suffix string) string {
	if v == nil {
		return "-"
	}
	return Fixed(*v, places) + suffix
}

// Temperature renders a °C readout.
func Temperature(v *float64) string { return Value(v, TemperaturePlaces, "°C") }

// Velocity renders an rpm readout.
func Velocity(v *float64) string { return Value(v, VelocityPlaces, " rpm") }

// Pressure renders a raw psi value in unit u, e.g. "0.138 BAR".
func Pressure(psi *float64, u PressureUnit) string {
	if psi == nil {
		return "-"
	}
	return Fixed(u.Convert(*psi), u.Places()) + " " + u.Label()
}
