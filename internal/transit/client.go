// Package transit fetches nearby stops and real-time line arrivals from the
// Israeli MOT passenger-info API (bus.gov.il).
package transit

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/noamsh/otobus/internal/cache"
	"github.com/noamsh/otobus/internal/fetch"
	"github.com/noamsh/otobus/internal/location"
	"github.com/noamsh/otobus/internal/models"
)

// ErrNoData is returned when a valid query produced an empty result. Callers
// should render this as "no data", not as a failure.
var ErrNoData = errors.New("no data for query")

// Client queries the passenger-info API.
type Client struct {
	baseURL    string
	language   string
	http       *fetch.Client
	stopsCache *cache.Cache[[]models.Stop]
	linesCache *cache.Cache[[]models.LineArrival]
}

// Config holds the transit client settings.
type Config struct {
	BaseURL    string
	Language   string
	UserAgent  string
	Timeout    time.Duration
	RetryDelay time.Duration
	CacheTTL   time.Duration
}

// New creates a transit client.
func New(cfg Config) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		language:   cfg.Language,
		http:       fetch.New(cfg.Timeout, cfg.RetryDelay, cfg.UserAgent),
		stopsCache: cache.New[[]models.Stop](cfg.CacheTTL),
		linesCache: cache.New[[]models.LineArrival](cfg.CacheTTL),
	}
}

// StopsNear returns the bus stops within radiusMeters of coord, closest
// first. Returns ErrNoData when the area has no stops.
func (c *Client) StopsNear(ctx context.Context, coord models.Coordinate, radiusMeters int) ([]models.Stop, error) {
	if radiusMeters <= 0 {
		return nil, fmt.Errorf("radius must be positive, got %d", radiusMeters)
	}
	if !coord.Valid() {
		return nil, fmt.Errorf("coordinate (%g, %g) out of range", coord.Lat, coord.Lon)
	}

	cacheKey := fmt.Sprintf("%.5f,%.5f,%d", coord.Lat, coord.Lon, radiusMeters)
	if cached, ok := c.stopsCache.Get(cacheKey); ok {
		return cached, nil
	}

	apiURL := fmt.Sprintf("%s/GetBusstopListByRadius/1/%g/%g/%d/%s/false",
		c.baseURL, coord.Lat, coord.Lon, radiusMeters, c.language)

	var records []stopRecord
	if err := c.http.GetJSON(ctx, apiURL, &records); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no stops within %dm: %w", radiusMeters, ErrNoData)
	}

	stops := make([]models.Stop, 0, len(records))
	for _, r := range records {
		stops = append(stops, r.toStop(coord))
	}
	sort.Slice(stops, func(i, j int) bool {
		return stops[i].DistanceMeters < stops[j].DistanceMeters
	})

	c.stopsCache.Set(cacheKey, stops)
	return stops, nil
}

// LinesAtStop returns the real-time line arrivals at a stop, soonest first.
// Returns ErrNoData when no line is currently reporting.
func (c *Client) LinesAtStop(ctx context.Context, stopID string) ([]models.LineArrival, error) {
	if stopID == "" {
		return nil, errors.New("stop id is required")
	}

	if cached, ok := c.linesCache.Get(stopID); ok {
		return cached, nil
	}

	apiURL := fmt.Sprintf("%s/GetRealtimeBusLineListByBustop/%s/%s/false",
		c.baseURL, stopID, c.language)

	var records []lineRecord
	if err := c.http.GetJSON(ctx, apiURL, &records); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("stop %s: %w", stopID, ErrNoData)
	}

	arrivals := make([]models.LineArrival, 0, len(records))
	for _, r := range records {
		arrivals = append(arrivals, r.toArrival(stopID))
	}
	SortByArrival(arrivals)

	c.linesCache.Set(stopID, arrivals)
	return arrivals, nil
}

// FilterByLineNumber keeps only arrivals whose signed line number matches
// exactly. An empty filter keeps everything.
func FilterByLineNumber(arrivals []models.LineArrival, number string) []models.LineArrival {
	if number == "" {
		return arrivals
	}
	var filtered []models.LineArrival
	for _, a := range arrivals {
		if a.Line == number {
			filtered = append(filtered, a)
		}
	}
	return filtered
}

// SortByArrival orders arrivals by ascending estimated arrival: countdown
// minutes first, then scheduled time, entries with neither last.
func SortByArrival(arrivals []models.LineArrival) {
	sort.SliceStable(arrivals, func(i, j int) bool {
		return arrivalRank(arrivals[i]) < arrivalRank(arrivals[j])
	})
}

// arrivalRank maps an arrival to seconds-from-now for ordering purposes.
func arrivalRank(a models.LineArrival) int64 {
	if a.Minutes != nil {
		return int64(*a.Minutes) * 60
	}
	if !a.Scheduled.IsZero() {
		return int64(time.Until(a.Scheduled).Seconds())
	}
	return 1 << 40
}

func (r stopRecord) toStop(origin models.Coordinate) models.Stop {
	coord := models.Coordinate{Lat: r.Lat, Lon: r.Lon}

	distance := int(r.Distance)
	if distance == 0 {
		distance = int(r.DistanceFromStart)
	}
	if distance == 0 && coord.Valid() && (coord.Lat != 0 || coord.Lon != 0) {
		distance = int(location.Haversine(origin, coord))
	}

	return models.Stop{
		ID:             r.id(),
		Name:           r.name(),
		Location:       coord,
		DistanceMeters: distance,
	}
}

func (r lineRecord) toArrival(stopID string) models.LineArrival {
	arrival := models.LineArrival{
		StopID:      stopID,
		Line:        r.lineNumber(),
		Destination: r.destination(),
		Operator:    r.operator(),
		DistanceKm:  int(r.Distance),
	}
	if r.MinutesToArrival != nil {
		minutes := int(*r.MinutesToArrival)
		arrival.Minutes = &minutes
	}
	arrival.Scheduled = r.scheduled()
	return arrival
}
