package transit

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// The passenger-info API is inconsistent about field names and about whether
// numbers arrive as JSON numbers or as strings ("123 "). The record types
// here pin the known variants down to explicit fields; flexInt absorbs the
// number-or-string ambiguity and fails fast on anything else.

// flexInt decodes a JSON number, a numeric string (possibly padded with
// spaces), or null. Empty strings and null decode to zero.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}
	s := string(data)
	if strings.HasPrefix(s, `"`) {
		unquoted, err := strconv.Unquote(s)
		if err != nil {
			return fmt.Errorf("malformed numeric string %s", s)
		}
		s = strings.TrimSpace(unquoted)
		if s == "" {
			*f = 0
			return nil
		}
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("expected number, got %s", string(data))
	}
	*f = flexInt(n)
	return nil
}

// stopRecord is one stop entry of a GetBusstopListByRadius response.
type stopRecord struct {
	BusStopID         flexInt `json:"BusStopId"`
	Makat             flexInt `json:"Makat"`
	StopCode          flexInt `json:"StopCode"`
	BusStopName       string  `json:"BusStopName"`
	BusStopNameHe     string  `json:"Busstopnamehe"`
	StopName          string  `json:"StopName"`
	Lat               float64 `json:"Lat"`
	Lon               float64 `json:"Lon"`
	Distance          flexInt `json:"Distance"`
	DistanceFromStart flexInt `json:"DistanceFromStart"`
}

// id returns the stop identifier to use for follow-up calls, preferring the
// realtime endpoint's BusStopId over static catalog codes.
func (r stopRecord) id() string {
	for _, v := range []flexInt{r.BusStopID, r.Makat, r.StopCode} {
		if v != 0 {
			return strconv.Itoa(int(v))
		}
	}
	return ""
}

func (r stopRecord) name() string {
	for _, v := range []string{r.BusStopName, r.BusStopNameHe, r.StopName} {
		if v != "" {
			return v
		}
	}
	if r.Makat != 0 {
		return strconv.Itoa(int(r.Makat))
	}
	return "Unknown Stop"
}

// lineRecord is one line entry of a GetRealtimeBusLineListByBustop response.
type lineRecord struct {
	Shilut                 string   `json:"Shilut"`
	Line                   flexInt  `json:"Line"`
	DestinationName        string   `json:"DestinationName"`
	DestinationQuarterName string   `json:"DestinationQuarterName"`
	CompanyName            string   `json:"CompanyName"`
	CompanyHebrewName      string   `json:"CompanyHebrewName"`
	MinutesToArrival       *flexInt `json:"MinutesToArrival"`
	Distance               flexInt  `json:"Distance"`
	DtArrival              string   `json:"DtArrival"`
}

// lineNumber returns the signed line number shown on the bus.
func (r lineRecord) lineNumber() string {
	if r.Shilut != "" {
		return r.Shilut
	}
	if r.Line != 0 {
		return strconv.Itoa(int(r.Line))
	}
	return "?"
}

func (r lineRecord) destination() string {
	if r.DestinationName != "" {
		return r.DestinationName
	}
	if r.DestinationQuarterName != "" {
		return r.DestinationQuarterName
	}
	return "?"
}

func (r lineRecord) operator() string {
	if r.CompanyName != "" {
		return r.CompanyName
	}
	return r.CompanyHebrewName
}

// scheduled parses the timetabled arrival. The API reports "9999-..." when
// there is no scheduled time; that sentinel maps to the zero time.
func (r lineRecord) scheduled() time.Time {
	if r.DtArrival == "" || strings.HasPrefix(r.DtArrival, "9999-") {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.ParseInLocation(layout, r.DtArrival, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}
