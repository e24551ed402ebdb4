package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rimasko/orkpulse/internal/domain/models"
	"github.com/rimasko/orkpulse/internal/logger"
	"github.com/rimasko/orkpulse/internal/storage"
)

const (
	ordersTemplate = "ORK_Orders_%s_INET_FSALT_%s.csv.gz"
	phasesTemplate = "ORK_Trading_Phases_%s_INET_FSALT_%s.csv.gz"
	quotesTemplate = "ORK_Equilibrium_Prices_%s_INET_FSALT_%s.csv.gz"

	fileDateLayout = "20060102"

	maxDayWorkers = 6
)

// earliestAvailableDate is the first date the source ever published files for.
// Fetch starts are clamped here rather than rejected.
var earliestAvailableDate = time.Date(2021, 1, 4, 0, 0, 0, 0, time.UTC)

// FileStore reads the daily gzip CSV extracts (orders, trading phases,
// indicative auction prices) from one directory and serves temporally-joined
// events. It implements storage.EventStore.
type FileStore struct {
	root string

	// now is an indirection for the end-date clamp; tests override it.
	now func() time.Time
}

// NewFileStore returns a FileStore rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{root: dir, now: time.Now}
}

// Fetch loads, joins, and filters events for [start, end].
//
// Behavior:
//   - end later than the current time is clamped to now; start earlier than
//     the earliest published date is clamped to it.
//   - One independent task per business day, at most min(6, days/30+1)
//     running at once. Day tasks share no state; every dispatched day runs to
//     completion even when another day has already failed.
//   - A day whose files are missing or empty is skipped with a warning.
//     Any other parse or IO failure aborts the whole fetch.
//   - Surviving days are concatenated in chronological day order; each day is
//     internally ordered by sequence number.
//
// Returns storage.ErrNoData when no day in the range produced rows.
func (s *FileStore) Fetch(ctx context.Context, market string, start, end time.Time, opts storage.FetchOptions) ([]models.EnrichedEvent, error) {
	if now := s.now(); end.After(now) {
		end = now
	}
	if start.Before(earliestAvailableDate) {
		start = earliestAvailableDate
	}

	days := businessDaysBetween(start, end)

	workers := (len(days)+29)/30 + 1
	if workers > maxDayWorkers {
		workers = maxDayWorkers
	}

	results := make([][]models.EnrichedEvent, len(days))

	// Plain group, not WithContext: dispatched days are never cancelled
	// early; a fatal error surfaces after the barrier and the other results
	// are simply discarded.
	var g errgroup.Group
	sem := make(chan struct{}, workers)

	for i, day := range days {
		idx := i
		d := day
		sem <- struct{}{}

		g.Go(func() error {
			defer func() { <-sem }()
			if err := ctx.Err(); err != nil {
				return err
			}
			events, err := s.loadDay(market, d, opts)
			if err != nil {
				return fmt.Errorf("day %s: %w", d.Format(fileDateLayout), err)
			}
			results[idx] = events
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", market, err)
	}

	var all []models.EnrichedEvent
	for _, day := range results {
		all = append(all, day...)
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("%w: market %s from %s to %s",
			storage.ErrNoData, market, start.Format("2006-01-02"), end.Format("2006-01-02"))
	}

	// The "not applicable" price token and an absent transaction price both
	// normalize to numeric zero for downstream consumers.
	for i := range all {
		if p := all[i].TransactionPrice; p == "" || p == models.NotApplicable {
			all[i].TransactionPrice = "0"
		}
	}

	return all, nil
}

// loadDay runs the per-day pipeline. A nil, nil return means the day is
// skipped (recoverable); a non-nil error is fatal to the whole fetch.
func (s *FileStore) loadDay(market string, day time.Time, opts storage.FetchOptions) ([]models.EnrichedEvent, error) {
	date := day.Format(fileDateLayout)
	ordersFile := filepath.Join(s.root, fmt.Sprintf(ordersTemplate, market, date))
	phasesFile := filepath.Join(s.root, fmt.Sprintf(phasesTemplate, market, date))
	quotesFile := filepath.Join(s.root, fmt.Sprintf(quotesTemplate, market, date))

	events, err := readOrders(ordersFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.L().Warn().Str("file", filepath.Base(ordersFile)).Msg("orders file missing, skipping day")
			return nil, nil
		}
		return nil, err
	}
	if len(opts.Tickers) > 0 {
		events = filterByTicker(events, opts.Tickers)
	}
	if len(events) == 0 {
		logger.L().Warn().Str("file", filepath.Base(ordersFile)).Msg("no order data available, skipping day")
		return nil, nil
	}

	sort.SliceStable(events, func(i, j int) bool { return events[i].SeqNum < events[j].SeqNum })

	phases, err := readPhases(phasesFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.L().Warn().Str("file", filepath.Base(phasesFile)).Msg("phases file missing, skipping day")
			return nil, nil
		}
		return nil, err
	}
	if len(phases) == 0 {
		// Loss of phase context invalidates the whole day's orders.
		logger.L().Warn().Str("file", filepath.Base(phasesFile)).Msg("no phase data available, skipping day")
		return nil, nil
	}

	attachPhases(events, phases)
	if len(opts.Phases) > 0 {
		events = filterByPhase(events, opts.Phases)
	}
	if len(events) == 0 {
		logger.L().Warn().Str("file", filepath.Base(ordersFile)).Msg("no order data after phase filter, skipping day")
		return nil, nil
	}

	quotes, err := readQuotes(quotesFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// Quotes are optional; absence does not invalidate the day.
			quotes = nil
		} else {
			return nil, err
		}
	}
	if len(quotes) > 0 {
		attachQuotes(events, quotes)
	}

	return events, nil
}

func filterByTicker(events []models.EnrichedEvent, tickers []string) []models.EnrichedEvent {
	keep := make(map[string]struct{}, len(tickers))
	for _, t := range tickers {
		keep[t] = struct{}{}
	}
	out := events[:0]
	for _, e := range events {
		if _, ok := keep[e.OrderBookCode]; ok {
			out = append(out, e)
		}
	}
	return out
}

func filterByPhase(events []models.EnrichedEvent, phases []string) []models.EnrichedEvent {
	keep := make(map[string]struct{}, len(phases))
	for _, p := range phases {
		keep[p] = struct{}{}
	}
	out := events[:0]
	for _, e := range events {
		if _, ok := keep[e.TradingPhase]; ok {
			out = append(out, e)
		}
	}
	return out
}

// EarliestAvailable returns the date of the oldest orders file for a market.
func (s *FileStore) EarliestAvailable(market string) (time.Time, error) {
	dates, err := s.scanOrderDates(market)
	if err != nil {
		return time.Time{}, err
	}
	return dates[0], nil
}

// LatestAvailable returns the date of the newest orders file for a market.
func (s *FileStore) LatestAvailable(market string) (time.Time, error) {
	dates, err := s.scanOrderDates(market)
	if err != nil {
		return time.Time{}, err
	}
	return dates[len(dates)-1], nil
}

func (s *FileStore) scanOrderDates(market string) ([]time.Time, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", s.root, err)
	}

	prefix := fmt.Sprintf("ORK_Orders_%s_INET_FSALT_", market)
	var dates []time.Time
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".csv.gz") {
			continue
		}
		raw := strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".csv.gz")
		d, err := time.Parse(fileDateLayout, raw)
		if err != nil {
			continue
		}
		dates = append(dates, d)
	}
	if len(dates) == 0 {
		return nil, fmt.Errorf("%w: no order files for market %s in %s", storage.ErrNoData, market, s.root)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates, nil
}
