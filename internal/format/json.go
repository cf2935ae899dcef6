package format

import "github.com/noamsh/otobus/internal/models"

// StopsPayload is the machine-readable shape of a nearby-stops result.
type StopsPayload struct {
	Count  int         `json:"count"`
	Radius int         `json:"radius"`
	Stops  []StopEntry `json:"stops"`
}

// StopEntry is one stop in a StopsPayload.
type StopEntry struct {
	Index    int    `json:"index"`
	ID       string `json:"id"`
	Name     string `json:"name"`
	Distance int    `json:"distance"`
}

// LinesPayload is the machine-readable shape of a realtime-lines result.
type LinesPayload struct {
	StopID string      `json:"stop_id"`
	Lines  []LineEntry `json:"lines"`
}

// LineEntry is one line in a LinesPayload: the rendered strings plus the
// underlying data.
type LineEntry struct {
	Line    string             `json:"line"`
	Arrival string             `json:"arrival"`
	Raw     models.LineArrival `json:"raw"`
}

// Stops builds the JSON payload for a nearby-stops result.
func Stops(stops []models.Stop, radiusMeters int) StopsPayload {
	entries := make([]StopEntry, 0, len(stops))
	for i, s := range stops {
		entries = append(entries, StopEntry{
			Index:    i,
			ID:       s.ID,
			Name:     s.Name,
			Distance: s.DistanceMeters,
		})
	}
	return StopsPayload{Count: len(entries), Radius: radiusMeters, Stops: entries}
}

// Lines builds the JSON payload for a realtime-lines result. Text fields are
// rendered without bidi reordering so the payload stays in logical order.
func Lines(stopID string, arrivals []models.LineArrival) LinesPayload {
	opts := Options{DisableBidi: true}
	entries := make([]LineEntry, 0, len(arrivals))
	for _, a := range arrivals {
		entries = append(entries, LineEntry{
			Line:    Line(a, opts),
			Arrival: Arrival(a),
			Raw:     a,
		})
	}
	return LinesPayload{StopID: stopID, Lines: entries}
}
