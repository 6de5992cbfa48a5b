package format

import (
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

type layouts struct {
	dateTime string
	clock    string
}

var localeLayouts = map[string]layouts{
	"pt-BR": {dateTime: "02/01/2006, 15:04:05", clock: "15:04:05"},
	"en-US": {dateTime: "1/2/2006, 3:04:05 PM", clock: "3:04:05 PM"},
	"en-GB": {dateTime: "02/01/2006, 15:04:05", clock: "15:04:05"},
	"de-DE": {dateTime: "2.1.2006, 15:04:05", clock: "15:04:05"},
}

const defaultLocale = "pt-BR"

// Locale formats timestamps and counts for one display locale.
type Locale struct {
	layouts layouts
	printer *message.Printer
	loc     *time.Location
}

// NewLocale builds a formatter for tag (e.g. "pt-BR"). Unknown tags fall back to pt-BR
// layouts while still using the tag's number grouping when x/text knows it.
func NewLocale(tag string, loc *time.Location) *Locale {
	l, ok := localeLayouts[tag]
	if !ok {
		l = localeLayouts[defaultLocale]
	}
	lang, err := language.Parse(tag)
	if err != nil {
		lang = language.MustParse(defaultLocale)
	}
	if loc == nil {
		loc = time.Local
	}
	return &Locale{layouts: l, printer: message.NewPrinter(lang), loc: loc}
}

// DateTime renders t like a browser's toLocaleString. Zero time renders "-".
func (l *Locale) DateTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.In(l.loc).Format(l.layouts.dateTime)
}

// Clock renders only the time of day.
func (l *Locale) Clock(t time.Time) string {
	return t.In(l.loc).Format(l.layouts.clock)
}

// Count renders an integer with the locale's digit grouping.
func (l *Locale) Count(n int) string {
	return l.printer.Sprintf("%d", n)
}
