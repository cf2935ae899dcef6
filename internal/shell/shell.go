// Package shell implements the interactive prompt loop. The shell alternates
// between awaiting input and processing a request; client failures are
// reported and the prompt resumes, an explicit quit or EOF ends the loop.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/noamsh/otobus/internal/fetch"
	"github.com/noamsh/otobus/internal/format"
	"github.com/noamsh/otobus/internal/geocode"
	"github.com/noamsh/otobus/internal/models"
	"github.com/noamsh/otobus/internal/transit"
)

// Geocoder resolves free-text queries to candidate places.
type Geocoder interface {
	Search(ctx context.Context, query string) ([]models.Place, error)
}

// StopFinder finds stops around a coordinate.
type StopFinder interface {
	StopsNear(ctx context.Context, coord models.Coordinate, radiusMeters int) ([]models.Stop, error)
}

// ArrivalSource reports real-time line arrivals at a stop.
type ArrivalSource interface {
	LinesAtStop(ctx context.Context, stopID string) ([]models.LineArrival, error)
}

// Shell drives one user session.
type Shell struct {
	geocoder Geocoder
	stops    StopFinder
	arrivals ArrivalSource

	in  *bufio.Scanner
	out io.Writer

	defaultRadius int
	opts          format.Options

	// WatchSignals makes an interrupt during a network call cancel that call
	// and return to the prompt instead of killing the process.
	WatchSignals bool
}

// New creates a shell reading from in and writing to out.
func New(geocoder Geocoder, stops StopFinder, arrivals ArrivalSource, in io.Reader, out io.Writer, defaultRadius int, opts format.Options) *Shell {
	return &Shell{
		geocoder:      geocoder,
		stops:         stops,
		arrivals:      arrivals,
		in:            bufio.NewScanner(in),
		out:           out,
		defaultRadius: defaultRadius,
		opts:          opts,
	}
}

// Run executes the prompt loop until the user quits or input ends.
func (s *Shell) Run(ctx context.Context) error {
	coord, ok := s.promptAddress(ctx)
	if !ok {
		return nil
	}

	for {
		fmt.Fprintln(s.out, "\nMenu: 1) Nearby stops 2) Change address 3) Quit")
		choice, ok := s.readLine("> ")
		if !ok {
			return nil
		}

		switch strings.ToLower(choice) {
		case "1":
			s.showNearbyStops(ctx, coord)
		case "2":
			coord, ok = s.promptAddress(ctx)
			if !ok {
				return nil
			}
		case "3", "q", "quit", "exit":
			return nil
		default:
			fmt.Fprintln(s.out, "Unknown option.")
		}
	}
}

// promptAddress asks for an address until one geocodes, then lets the user
// pick among the candidates. Returns ok=false on quit or EOF.
func (s *Shell) promptAddress(ctx context.Context) (models.Coordinate, bool) {
	for {
		query, ok := s.readLine("Search address (or blank to quit): ")
		if !ok || query == "" {
			return models.Coordinate{}, false
		}

		places, err := call(s, ctx, func(callCtx context.Context) ([]models.Place, error) {
			return s.geocoder.Search(callCtx, query)
		})
		if err != nil {
			s.report(err)
			continue
		}

		fmt.Fprintln(s.out, format.PlaceList(places, s.opts))
		if idx, ok := s.pickIndex("Pick address #: ", len(places)); ok {
			return places[idx].Location, true
		}
		return models.Coordinate{}, false
	}
}

func (s *Shell) showNearbyStops(ctx context.Context, coord models.Coordinate) {
	radius := s.defaultRadius
	if raw, ok := s.readLine(fmt.Sprintf("Radius meters (default %d): ", s.defaultRadius)); ok && raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			radius = n
		}
	}

	stops, err := call(s, ctx, func(callCtx context.Context) ([]models.Stop, error) {
		return s.stops.StopsNear(callCtx, coord, radius)
	})
	if err != nil {
		s.report(err)
		return
	}

	fmt.Fprintln(s.out, format.StopList(stops, radius, s.opts))

	sel, ok := s.readLine("Pick stop # to view lines (blank to return): ")
	if !ok || sel == "" {
		return
	}
	idx, err := strconv.Atoi(sel)
	if err != nil || idx < 0 || idx >= len(stops) {
		fmt.Fprintln(s.out, "Invalid choice.")
		return
	}

	s.showLines(ctx, stops[idx].ID)
}

func (s *Shell) showLines(ctx context.Context, stopID string) {
	arrivals, err := call(s, ctx, func(callCtx context.Context) ([]models.LineArrival, error) {
		return s.arrivals.LinesAtStop(callCtx, stopID)
	})
	if err != nil {
		s.report(err)
		return
	}
	fmt.Fprintln(s.out, format.LineList(stopID, arrivals, s.opts))
}

// call runs one network operation under a per-call context so an interrupt
// aborts the call without ending the session.
func call[T any](s *Shell, ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	callCtx := ctx
	if s.WatchSignals {
		var stop context.CancelFunc
		callCtx, stop = signal.NotifyContext(ctx, os.Interrupt)
		defer stop()
	}
	return fn(callCtx)
}

// report converts a client failure into a user-facing message. Anything
// outside the known taxonomy is logged and the prompt resumes.
func (s *Shell) report(err error) {
	var reqErr *fetch.RequestError
	switch {
	case errors.Is(err, geocode.ErrNotFound):
		fmt.Fprintln(s.out, "No results. Try again.")
	case errors.Is(err, transit.ErrNoData):
		fmt.Fprintln(s.out, "No data.")
	case errors.Is(err, fetch.ErrRateLimited):
		fmt.Fprintln(s.out, "Rate limited by the service. Try again in a minute.")
	case errors.As(err, &reqErr):
		fmt.Fprintln(s.out, "Network problem, please retry:", reqErr.Err)
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(s.out, "Canceled.")
	default:
		slog.Error("unexpected failure", "error", err)
		fmt.Fprintln(s.out, "Something went wrong. Try again.")
	}
}

func (s *Shell) readLine(prompt string) (string, bool) {
	fmt.Fprint(s.out, prompt)
	if !s.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(s.in.Text()), true
}

// pickIndex prompts for a numeric choice in [0, n) until valid; blank or EOF
// abandons the pick.
func (s *Shell) pickIndex(prompt string, n int) (int, bool) {
	for {
		raw, ok := s.readLine(prompt)
		if !ok || raw == "" {
			return 0, false
		}
		idx, err := strconv.Atoi(raw)
		if err == nil && idx >= 0 && idx < n {
			return idx, true
		}
		fmt.Fprintln(s.out, "Invalid choice.")
	}
}
