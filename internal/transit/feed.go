package transit

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"github.com/noamsh/otobus/internal/cache"
	"github.com/noamsh/otobus/internal/fetch"
	"github.com/noamsh/otobus/internal/models"
)

// FeedProvider reads line arrivals from a GTFS-RT TripUpdates feed instead of
// the passenger-info realtime endpoint. The MOT publishes such a feed; any
// TripUpdates source keyed by the same stop ids works.
type FeedProvider struct {
	feedURL    string
	http       *http.Client
	retryDelay time.Duration
	cache      *cache.Cache[*gtfs.FeedMessage]
}

// NewFeedProvider creates a provider for the given TripUpdates feed URL.
func NewFeedProvider(feedURL string, timeout, retryDelay, cacheTTL time.Duration) *FeedProvider {
	return &FeedProvider{
		feedURL:    feedURL,
		http:       &http.Client{Timeout: timeout},
		retryDelay: retryDelay,
		cache:      cache.New[*gtfs.FeedMessage](cacheTTL),
	}
}

// LinesAtStop returns the upcoming arrivals at a stop from the feed, soonest
// first. Returns ErrNoData when no trip in the feed calls at the stop.
func (p *FeedProvider) LinesAtStop(ctx context.Context, stopID string) ([]models.LineArrival, error) {
	feed, err := p.fetchFeed(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var arrivals []models.LineArrival
	for _, entity := range feed.GetEntity() {
		tripUpdate := entity.GetTripUpdate()
		if tripUpdate == nil {
			continue
		}

		routeID := tripUpdate.GetTrip().GetRouteId()

		for _, stopTimeUpdate := range tripUpdate.GetStopTimeUpdate() {
			if stopTimeUpdate.GetStopId() != stopID {
				continue
			}

			arrivalUnix := stopTimeUpdate.GetArrival().GetTime()
			if arrivalUnix == 0 {
				arrivalUnix = stopTimeUpdate.GetDeparture().GetTime()
			}
			if arrivalUnix == 0 {
				continue
			}

			arrivalTime := time.Unix(arrivalUnix, 0)
			if arrivalTime.Before(now) {
				continue
			}

			minutes := int(arrivalTime.Sub(now).Minutes())
			arrivals = append(arrivals, models.LineArrival{
				StopID:    stopID,
				Line:      routeID,
				Minutes:   &minutes,
				Scheduled: arrivalTime,
			})
		}
	}

	if len(arrivals) == 0 {
		return nil, fmt.Errorf("stop %s: %w", stopID, ErrNoData)
	}
	SortByArrival(arrivals)
	return arrivals, nil
}

func (p *FeedProvider) fetchFeed(ctx context.Context) (*gtfs.FeedMessage, error) {
	if cached, ok := p.cache.Get(p.feedURL); ok {
		return cached, nil
	}

	body, err := p.download(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		select {
		case <-time.After(p.retryDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if body, err = p.download(ctx); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, &fetch.RequestError{URL: p.feedURL, Err: err}
		}
	}

	feed := &gtfs.FeedMessage{}
	if err := proto.Unmarshal(body, feed); err != nil {
		return nil, fmt.Errorf("parsing GTFS-RT feed: %w", err)
	}

	p.cache.Set(p.feedURL, feed)
	return feed, nil
}

func (p *FeedProvider) download(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.feedURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
