// Package format renders stops and arrivals for the terminal. Every function
// here is pure: same input, same string, no I/O.
package format

import (
	"fmt"
	"strings"

	"github.com/noamsh/otobus/internal/models"
)

// Options controls text rendering.
type Options struct {
	// DisableBidi skips the visual reordering of right-to-left text.
	DisableBidi bool
}

// Render applies the bidi display transform unless it is disabled.
func (o Options) Render(s string) string {
	if o.DisableBidi {
		return s
	}
	return Display(s)
}

// StopLine renders one indexed stop entry, e.g.
// "[0] Dizengoff Center (ID: 26629) - 45m".
func StopLine(index int, stop models.Stop, opts Options) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%d] %s (ID: %s)", index, opts.Render(stop.Name), orUnknown(stop.ID))
	if stop.DistanceMeters > 0 {
		fmt.Fprintf(&b, " - %dm", stop.DistanceMeters)
	}
	return b.String()
}

// StopList renders a header plus one line per stop.
func StopList(stops []models.Stop, radiusMeters int, opts Options) string {
	if len(stops) == 0 {
		return "No stops found."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d stops within %dm:\n", len(stops), radiusMeters)
	for i, stop := range stops {
		b.WriteString("\n" + StopLine(i, stop, opts))
	}
	return b.String()
}

// Line renders the line number, destination and operator, e.g.
// "12 -> Central Station (Dan)".
func Line(a models.LineArrival, opts Options) string {
	s := a.Line + " -> " + opts.Render(a.Destination)
	if a.Operator != "" {
		s += " (" + opts.Render(a.Operator) + ")"
	}
	return s
}

// Arrival renders the arrival estimate parts joined by " | ", e.g.
// "5 min | 2 km | 14:30 (scheduled)".
func Arrival(a models.LineArrival) string {
	var parts []string

	switch {
	case a.Minutes == nil:
		parts = append(parts, "? min")
	case *a.Minutes <= 0:
		parts = append(parts, "Due")
	case *a.Minutes == 1:
		parts = append(parts, "1 min")
	default:
		parts = append(parts, fmt.Sprintf("%d min", *a.Minutes))
	}

	if a.DistanceKm > 0 {
		parts = append(parts, fmt.Sprintf("%d km", a.DistanceKm))
	}

	if !a.Scheduled.IsZero() {
		parts = append(parts, a.Scheduled.Format("15:04")+" (scheduled)")
	}

	return strings.Join(parts, " | ")
}

// LineList renders a header plus one " - line [arrival]" row per arrival.
func LineList(stopID string, arrivals []models.LineArrival, opts Options) string {
	if len(arrivals) == 0 {
		return "No realtime lines."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Lines at stop %s:", stopID)
	for _, a := range arrivals {
		fmt.Fprintf(&b, "\n - %s [%s]", Line(a, opts), Arrival(a))
	}
	return b.String()
}

// PlaceList renders indexed geocoder candidates for selection.
func PlaceList(places []models.Place, opts Options) string {
	var b strings.Builder
	for i, p := range places {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "[%d] %s", i, opts.Render(p.Label))
	}
	return b.String()
}

func orUnknown(s string) string {
	if s == "" {
		return "?"
	}
	return s
}
