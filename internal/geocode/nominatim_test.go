package geocode

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/noamsh/otobus/internal/fetch"
)

const dizengoffResponse = `[
	{
		"lat": "32.0785", "lon": "34.7749",
		"display_name": "Dizengoff Street 100, Tel Aviv",
		"address": {"road": "Dizengoff Street", "house_number": "100", "city": "Tel Aviv"}
	},
	{
		"lat": "32.0109", "lon": "34.7855",
		"display_name": "Dizengoff Street, Bat Yam",
		"address": {"road": "Dizengoff Street", "town": "Bat Yam"}
	}
]`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{
		BaseURL:    srv.URL,
		UserAgent:  "otobus-test/1.0",
		Timeout:    time.Second,
		RetryDelay: 10 * time.Millisecond,
	})
}

func TestSearch(t *testing.T) {
	var gotQuery string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		w.Write([]byte(dizengoffResponse))
	})

	places, err := c.Search(context.Background(), "Dizengoff 100, Tel Aviv")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if gotQuery != "Dizengoff 100, Tel Aviv" {
		t.Errorf("query param = %q", gotQuery)
	}
	if len(places) != 2 {
		t.Fatalf("got %d places, want 2", len(places))
	}
	if places[0].Label != "Dizengoff Street 100, Tel Aviv" {
		t.Errorf("label = %q", places[0].Label)
	}
	if places[1].Label != "Dizengoff Street, Bat Yam" {
		t.Errorf("town fallback label = %q", places[1].Label)
	}

	best := places[0].Location
	if best.Lat < 32.0 || best.Lat > 32.2 || best.Lon < 34.7 || best.Lon > 34.9 {
		t.Errorf("best match (%g, %g) not near Dizengoff", best.Lat, best.Lon)
	}
	if !best.Valid() {
		t.Error("resolved coordinate out of valid range")
	}
}

func TestResolveBestMatch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(dizengoffResponse))
	})

	coord, err := c.Resolve(context.Background(), "Dizengoff 100, Tel Aviv")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if coord.Lat != 32.0785 || coord.Lon != 34.7749 {
		t.Errorf("Resolve returned (%g, %g), want first result", coord.Lat, coord.Lon)
	}
}

func TestSearchNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})

	_, err := c.Search(context.Background(), "zzzzzz-invalid-xyz")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	c := New(Config{BaseURL: "http://unused.invalid", Timeout: time.Second})

	_, err := c.Search(context.Background(), "")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for empty query, got %v", err)
	}
}

func TestSearchRateLimited(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.Search(context.Background(), "Dizengoff")
	if !errors.Is(err, fetch.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestSearchRejectsBadCoordinates(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unparseable", `[{"lat": "north", "lon": "34.77"}]`},
		{"out of range", `[{"lat": "132.5", "lon": "34.77"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			})

			if _, err := c.Search(context.Background(), "anywhere"); err == nil {
				t.Error("expected error for bad coordinate")
			}
		})
	}
}
