// Package geocode resolves free-text addresses to coordinates using the
// OpenStreetMap Nominatim API.
package geocode

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/noamsh/otobus/internal/fetch"
	"github.com/noamsh/otobus/internal/models"
)

// ErrNotFound is returned when a query produced no geocoder matches.
var ErrNotFound = errors.New("address not found")

const resultLimit = 5

// Client queries a Nominatim-compatible geocoding endpoint.
type Client struct {
	baseURL string
	http    *fetch.Client
}

// Config holds the geocoder client settings.
type Config struct {
	BaseURL    string
	UserAgent  string
	Timeout    time.Duration
	RetryDelay time.Duration
}

// New creates a geocoder client.
func New(cfg Config) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		http:    fetch.New(cfg.Timeout, cfg.RetryDelay, cfg.UserAgent),
	}
}

// nominatimResult is one entry of a /search response. Nominatim returns
// coordinates as strings.
type nominatimResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
	Address     struct {
		Road        string `json:"road"`
		HouseNumber string `json:"house_number"`
		City        string `json:"city"`
		Town        string `json:"town"`
	} `json:"address"`
}

// Search returns up to five candidate places for a free-text query,
// best match first.
func (c *Client) Search(ctx context.Context, query string) ([]models.Place, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", ErrNotFound)
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("addressdetails", "1")
	params.Set("limit", strconv.Itoa(resultLimit))
	params.Set("accept-language", "he,en")

	var results []nominatimResult
	apiURL := c.baseURL + "/search?" + params.Encode()
	if err := c.http.GetJSON(ctx, apiURL, &results); err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("%q: %w", query, ErrNotFound)
	}

	places := make([]models.Place, 0, len(results))
	for _, r := range results {
		coord, err := r.coordinate()
		if err != nil {
			return nil, fmt.Errorf("geocoder result for %q: %w", query, err)
		}
		places = append(places, models.Place{
			Label:    r.label(),
			Location: coord,
		})
	}
	return places, nil
}

// Resolve returns the best-match coordinate for a free-text address.
func (c *Client) Resolve(ctx context.Context, address string) (models.Coordinate, error) {
	places, err := c.Search(ctx, address)
	if err != nil {
		return models.Coordinate{}, err
	}
	return places[0].Location, nil
}

func (r nominatimResult) coordinate() (models.Coordinate, error) {
	lat, err := strconv.ParseFloat(r.Lat, 64)
	if err != nil {
		return models.Coordinate{}, fmt.Errorf("bad latitude %q", r.Lat)
	}
	lon, err := strconv.ParseFloat(r.Lon, 64)
	if err != nil {
		return models.Coordinate{}, fmt.Errorf("bad longitude %q", r.Lon)
	}
	coord := models.Coordinate{Lat: lat, Lon: lon}
	if !coord.Valid() {
		return models.Coordinate{}, fmt.Errorf("coordinate (%g, %g) out of range", lat, lon)
	}
	return coord, nil
}

// label builds a short "road number, city" line for display, falling back to
// the full display name when the structured address is empty.
func (r nominatimResult) label() string {
	street := r.Address.Road
	if r.Address.HouseNumber != "" {
		if street != "" {
			street += " " + r.Address.HouseNumber
		} else {
			street = r.Address.HouseNumber
		}
	}

	city := r.Address.City
	if city == "" {
		city = r.Address.Town
	}

	switch {
	case street != "" && city != "":
		return street + ", " + city
	case street != "":
		return street
	case city != "":
		return city
	default:
		return r.DisplayName
	}
}
