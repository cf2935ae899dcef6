// Package main is the otobus command: real-time Israeli bus arrivals for an
// address, a coordinate, or a stop id. Without flags it runs an interactive
// prompt loop.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/noamsh/otobus/internal/config"
	"github.com/noamsh/otobus/internal/format"
	"github.com/noamsh/otobus/internal/geocode"
	"github.com/noamsh/otobus/internal/models"
	"github.com/noamsh/otobus/internal/shell"
	"github.com/noamsh/otobus/internal/transit"
)

// errUsage marks failures caused by the way the command was invoked. They
// exit with status 2; everything else exits 1.
var errUsage = errors.New("invalid usage")

var (
	address      string
	addressIndex int
	lat          float64
	lon          float64
	radius       int
	stopID       string
	firstStop    bool
	lineFilter   string
	listStops    bool
	limitStops   int
	jsonOut      bool
	noBidi       bool
)

var rootCmd = &cobra.Command{
	Use:   "otobus",
	Short: "Real-time bus arrivals for Israel from the command line",
	Long: `otobus finds bus stops near an address or coordinate and shows the
real-time lines arriving at them, using the national passenger-info API.
Addresses are geocoded through OpenStreetMap Nominatim.

Run without flags for an interactive session.`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&address, "address", "", "Free text address to geocode (implies non-interactive)")
	flags.IntVar(&addressIndex, "address-index", 0, "Index of address result to use")
	flags.Float64Var(&lat, "lat", 0, "Latitude (skips geocoding if both --lat and --lon given)")
	flags.Float64Var(&lon, "lon", 0, "Longitude (skips geocoding if both --lat and --lon given)")
	flags.IntVar(&radius, "radius", 0, "Radius in meters for nearby stops")
	flags.StringVar(&stopID, "stop-id", "", "Fetch realtime lines for this stop id directly")
	flags.BoolVar(&firstStop, "first-stop", false, "Automatically select the nearest stop")
	flags.StringVar(&lineFilter, "line", "", "Only show this line number")
	flags.BoolVar(&listStops, "list-stops", false, "List nearby stops and exit")
	flags.IntVar(&limitStops, "limit-stops", 0, "Limit number of stops displayed (0 = all)")
	flags.BoolVar(&jsonOut, "json", false, "Output JSON instead of human readable text")
	flags.BoolVar(&noBidi, "no-bidi", false, "Disable bidi rendering of Hebrew text")
}

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))

	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("startup: %w", err)
	}
	if radius == 0 {
		radius = cfg.DefaultRadius
	}

	geocoder := geocode.New(geocode.Config{
		BaseURL:    cfg.GeocoderURL,
		UserAgent:  cfg.UserAgent,
		Timeout:    cfg.HTTPTimeout,
		RetryDelay: cfg.RetryDelay,
	})
	transitClient := transit.New(transit.Config{
		BaseURL:    cfg.TransitURL,
		Language:   cfg.Language,
		UserAgent:  cfg.UserAgent,
		Timeout:    cfg.HTTPTimeout,
		RetryDelay: cfg.RetryDelay,
		CacheTTL:   cfg.CacheTTL,
	})

	var arrivals shell.ArrivalSource = transitClient
	if cfg.GTFSRTURL != "" {
		arrivals = transit.NewFeedProvider(cfg.GTFSRTURL, cfg.HTTPTimeout, cfg.RetryDelay, cfg.CacheTTL)
	}

	flags := cmd.Flags()
	nonInteractive := address != "" || flags.Changed("lat") || flags.Changed("lon") ||
		stopID != "" || firstStop || listStops || lineFilter != "" || jsonOut

	opts := format.Options{DisableBidi: noBidi}

	if !nonInteractive {
		sh := shell.New(geocoder, transitClient, arrivals, os.Stdin, os.Stdout, cfg.DefaultRadius, opts)
		sh.WatchSignals = true
		return sh.Run(context.Background())
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	return runOnce(ctx, flags.Changed("lat") && flags.Changed("lon"), geocoder, transitClient, arrivals, opts)
}

// runOnce executes a single non-interactive query cycle driven by flags.
func runOnce(ctx context.Context, haveCoords bool, geocoder *geocode.Client, stops shell.StopFinder, arrivals shell.ArrivalSource, opts format.Options) error {
	var coord models.Coordinate
	switch {
	case haveCoords:
		coord = models.Coordinate{Lat: lat, Lon: lon}
		if !coord.Valid() {
			return fmt.Errorf("%w: coordinate (%g, %g) out of range", errUsage, lat, lon)
		}
	case address != "":
		places, err := geocoder.Search(ctx, address)
		if err != nil {
			if errors.Is(err, geocode.ErrNotFound) {
				return fmt.Errorf("%w: no address results for %q", errUsage, address)
			}
			return err
		}
		if addressIndex < 0 || addressIndex >= len(places) {
			return fmt.Errorf("%w: --address-index %d out of range (have %d results)", errUsage, addressIndex, len(places))
		}
		coord = places[addressIndex].Location
	case listStops || firstStop:
		return fmt.Errorf("%w: need --address or --lat/--lon for stop lookup", errUsage)
	}

	var chosen *models.Stop
	if haveCoords || address != "" {
		if listStops || firstStop {
			found, err := stops.StopsNear(ctx, coord, radius)
			if err != nil && !errors.Is(err, transit.ErrNoData) {
				return err
			}
			if limitStops > 0 && len(found) > limitStops {
				found = found[:limitStops]
			}

			if listStops && !firstStop {
				printStops(found, opts)
				return nil
			}
			if len(found) > 0 {
				chosen = &found[0]
				if !jsonOut {
					fmt.Printf("Selected nearest stop: %s (ID: %s)\n", opts.Render(chosen.Name), chosen.ID)
				}
			}
		}
	}

	target := stopID
	if target == "" && chosen != nil {
		target = chosen.ID
	}
	if target == "" {
		if lineFilter != "" {
			return fmt.Errorf("%w: --line needs --stop-id or --first-stop", errUsage)
		}
		return nil
	}

	lines, err := arrivals.LinesAtStop(ctx, target)
	if err != nil && !errors.Is(err, transit.ErrNoData) {
		return err
	}
	lines = transit.FilterByLineNumber(lines, lineFilter)
	printLines(target, lines, opts)
	return nil
}

func printStops(stops []models.Stop, opts format.Options) {
	if jsonOut {
		writeJSON(format.Stops(stops, radius))
		return
	}
	fmt.Println(format.StopList(stops, radius, opts))
}

func printLines(stopID string, lines []models.LineArrival, opts format.Options) {
	if jsonOut {
		writeJSON(format.Lines(stopID, lines))
		return
	}
	fmt.Println(format.LineList(stopID, lines, opts))
}

func writeJSON(payload any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		slog.Error("encoding output", "error", err)
	}
}
