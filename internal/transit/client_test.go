package transit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/noamsh/otobus/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{
		BaseURL:    srv.URL,
		Language:   "he",
		UserAgent:  "otobus-test/1.0",
		Timeout:    time.Second,
		RetryDelay: 10 * time.Millisecond,
		CacheTTL:   time.Minute,
	})
}

var dizengoff = models.Coordinate{Lat: 32.0785, Lon: 34.7749}

func TestStopsNearSortedByDistance(t *testing.T) {
	// Distances arrive out of order and in mixed formats: string, padded
	// string, and plain number.
	body := `[
		{"BusStopId": 26629, "BusStopName": "King George", "Distance": "210"},
		{"BusStopId": 21011, "BusStopName": "Dizengoff Center", "Distance": " 45 "},
		{"BusStopId": 22475, "BusStopName": "Bograshov", "Distance": 120}
	]`
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "/GetBusstopListByRadius/1/") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(body))
	})

	stops, err := c.StopsNear(context.Background(), dizengoff, 300)
	if err != nil {
		t.Fatalf("StopsNear: %v", err)
	}

	if len(stops) != 3 {
		t.Fatalf("got %d stops, want 3", len(stops))
	}
	for i := 1; i < len(stops); i++ {
		if stops[i].DistanceMeters < stops[i-1].DistanceMeters {
			t.Fatalf("stops not sorted by distance: %v", stops)
		}
	}
	if stops[0].ID != "21011" || stops[0].DistanceMeters != 45 {
		t.Errorf("closest stop = %+v, want Dizengoff Center at 45m", stops[0])
	}
}

func TestStopsNearHaversineFallback(t *testing.T) {
	// No Distance field at all; its ~600m haversine distance from the query
	// point must still be computed and usable for ordering.
	body := `[
		{"BusStopId": 1, "BusStopName": "Rabin Square", "Lat": 32.0809, "Lon": 34.7806},
		{"BusStopId": 2, "BusStopName": "Dizengoff Center", "Lat": 32.0785, "Lon": 34.7750}
	]`
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	})

	stops, err := c.StopsNear(context.Background(), dizengoff, 800)
	if err != nil {
		t.Fatalf("StopsNear: %v", err)
	}

	if stops[0].ID != "2" {
		t.Errorf("closest stop = %s, want the Dizengoff Center stop", stops[0].ID)
	}
	if d := stops[1].DistanceMeters; d < 500 || d > 700 {
		t.Errorf("fallback distance = %dm, want ~600m", d)
	}
}

func TestStopsNearInputValidation(t *testing.T) {
	c := New(Config{BaseURL: "http://unused.invalid", Timeout: time.Second, CacheTTL: time.Minute})

	if _, err := c.StopsNear(context.Background(), dizengoff, 0); err == nil {
		t.Error("accepted zero radius")
	}
	if _, err := c.StopsNear(context.Background(), dizengoff, -100); err == nil {
		t.Error("accepted negative radius")
	}
	if _, err := c.StopsNear(context.Background(), models.Coordinate{Lat: 99, Lon: 34}, 300); err == nil {
		t.Error("accepted out-of-range coordinate")
	}
}

func TestStopsNearEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})

	_, err := c.StopsNear(context.Background(), dizengoff, 300)
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}

func TestStopsNearCached(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`[{"BusStopId": 1, "BusStopName": "A", "Distance": 10}]`))
	})

	for i := 0; i < 3; i++ {
		if _, err := c.StopsNear(context.Background(), dizengoff, 300); err != nil {
			t.Fatalf("StopsNear: %v", err)
		}
	}
	if calls != 1 {
		t.Errorf("server saw %d calls, want 1 (cached)", calls)
	}
}

func TestLinesAtStopSortedByArrival(t *testing.T) {
	body := `[
		{"Shilut": "5", "DestinationName": "Central Station", "CompanyName": "Dan", "MinutesToArrival": 12},
		{"Shilut": "61", "DestinationName": "Petah Tikva", "MinutesToArrival": "3", "Distance": 2},
		{"Shilut": "172", "DestinationName": "Holon", "DtArrival": "9999-12-31T23:59:59"},
		{"Shilut": "12", "DestinationName": "Ramat Aviv", "MinutesToArrival": 0}
	]`
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "/GetRealtimeBusLineListByBustop/26629/") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(body))
	})

	arrivals, err := c.LinesAtStop(context.Background(), "26629")
	if err != nil {
		t.Fatalf("LinesAtStop: %v", err)
	}

	if len(arrivals) != 4 {
		t.Fatalf("got %d arrivals, want 4", len(arrivals))
	}

	wantOrder := []string{"12", "61", "5", "172"}
	for i, want := range wantOrder {
		if arrivals[i].Line != want {
			t.Fatalf("arrival %d = line %s, want %s (full order %v)", i, arrivals[i].Line, want, arrivals)
		}
	}

	// The 9999- sentinel means "no scheduled time"
	if !arrivals[3].Scheduled.IsZero() {
		t.Errorf("sentinel timestamp parsed as %v, want zero", arrivals[3].Scheduled)
	}
	if arrivals[3].Minutes != nil {
		t.Errorf("line without countdown has Minutes = %d, want nil", *arrivals[3].Minutes)
	}
	if arrivals[1].DistanceKm != 2 {
		t.Errorf("DistanceKm = %d, want 2", arrivals[1].DistanceKm)
	}
}

func TestLinesAtStopEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})

	_, err := c.LinesAtStop(context.Background(), "26629")
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}

func TestLinesAtStopRequiresID(t *testing.T) {
	c := New(Config{BaseURL: "http://unused.invalid", Timeout: time.Second, CacheTTL: time.Minute})

	if _, err := c.LinesAtStop(context.Background(), ""); err == nil {
		t.Error("accepted empty stop id")
	}
}

func TestFilterByLineNumber(t *testing.T) {
	arrivals := []models.LineArrival{
		{Line: "12"},
		{Line: "120"},
		{Line: "12"},
		{Line: "5"},
	}

	got := FilterByLineNumber(arrivals, "12")
	if len(got) != 2 {
		t.Fatalf("got %d arrivals, want 2 exact matches", len(got))
	}
	for _, a := range got {
		if a.Line != "12" {
			t.Errorf("filter kept line %s", a.Line)
		}
	}

	if all := FilterByLineNumber(arrivals, ""); len(all) != 4 {
		t.Errorf("empty filter dropped entries: %d", len(all))
	}
}

func TestStopRecordFallbacks(t *testing.T) {
	tests := []struct {
		name     string
		record   stopRecord
		wantID   string
		wantName string
	}{
		{
			"primary keys",
			stopRecord{BusStopID: 26629, BusStopName: "Dizengoff Center"},
			"26629", "Dizengoff Center",
		},
		{
			"makat and hebrew name",
			stopRecord{Makat: 21011, BusStopNameHe: "דיזנגוף סנטר"},
			"21011", "דיזנגוף סנטר",
		},
		{
			"stop code only",
			stopRecord{StopCode: 7},
			"7", "Unknown Stop",
		},
		{
			"nothing",
			stopRecord{},
			"", "Unknown Stop",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.record.id(); got != tt.wantID {
				t.Errorf("id() = %q, want %q", got, tt.wantID)
			}
			if got := tt.record.name(); got != tt.wantName {
				t.Errorf("name() = %q, want %q", got, tt.wantName)
			}
		})
	}
}

func TestFlexIntMalformed(t *testing.T) {
	var f flexInt
	if err := f.UnmarshalJSON([]byte(`"12a"`)); err == nil {
		t.Error("accepted non-numeric string")
	}
	if err := f.UnmarshalJSON([]byte(`""`)); err != nil || f != 0 {
		t.Errorf("empty string: f=%d err=%v, want 0, nil", f, err)
	}
	if err := f.UnmarshalJSON([]byte(`null`)); err != nil || f != 0 {
		t.Errorf("null: f=%d err=%v, want 0, nil", f, err)
	}
}
