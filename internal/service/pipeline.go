package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rimasko/orkpulse/internal/logger"
	"github.com/rimasko/orkpulse/internal/storage"
)

// statsFloorDate is the first date statistics are ever computed for; when the
// stats store is empty, processing resumes from here.
var statsFloorDate = time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC)

// Pipeline drives the day-by-day derivation of statistics from source files.
// Fatal errors of a single date are logged and the run continues with the
// next date.
type Pipeline struct {
	events storage.EventStore
	stats  storage.StatsRepository
}

// NewPipeline wires a Pipeline from its two stores.
func NewPipeline(events storage.EventStore, stats storage.StatsRepository) *Pipeline {
	return &Pipeline{events: events, stats: stats}
}

// ProcessNewFiles processes every source date newer than the last stats date
// for the given market, up to the newest available file.
func (p *Pipeline) ProcessNewFiles(ctx context.Context, market string) error {
	latest, err := p.events.LatestAvailable(market)
	if err != nil {
		return fmt.Errorf("latest available for %s: %w", market, err)
	}

	last, err := p.stats.LatestDate()
	if err != nil {
		return fmt.Errorf("latest stats date: %w", err)
	}
	next := statsFloorDate
	if last != nil {
		next = last.AddDate(0, 0, 1)
	}

	p.ProcessDateRange(ctx, market, next, latest)
	return nil
}

// ProcessDateRange processes each date in [start, end]. Per-date failures are
// logged and absorbed so one bad day never halts the run.
func (p *Pipeline) ProcessDateRange(ctx context.Context, market string, start, end time.Time) {
	logger.L().Info().Str("market", market).
		Str("start", start.Format("2006-01-02")).
		Str("end", end.Format("2006-01-02")).
		Msg("processing date range")

	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if err := p.ProcessDate(ctx, market, d); err != nil {
			logger.L().Error().Err(err).Str("market", market).
				Str("date", d.Format("2006-01-02")).Msg("date failed")
		}
	}
}

// ProcessDate extracts one date's events, derives stats, and appends them.
// A date whose stats already exist, or which has no data, is a no-op.
func (p *Pipeline) ProcessDate(ctx context.Context, market string, date time.Time) error {
	exists, err := p.stats.DateExists(date)
	if err != nil {
		return fmt.Errorf("check stats date: %w", err)
	}
	if exists {
		logger.L().Info().Str("market", market).Str("date", date.Format("2006-01-02")).
			Msg("stats already present, skipping")
		return nil
	}

	events, err := p.events.Fetch(ctx, market, date, date, storage.FetchOptions{})
	if err != nil {
		if errors.Is(err, storage.ErrNoData) {
			logger.L().Warn().Str("market", market).Str("date", date.Format("2006-01-02")).
				Msg("no data for date")
			return nil
		}
		return fmt.Errorf("fetch: %w", err)
	}

	stats := ComputeDailyStats(market, date, events)
	if len(stats) == 0 {
		logger.L().Warn().Str("market", market).Str("date", date.Format("2006-01-02")).
			Msg("no stats computed for date")
		return nil
	}

	if err := p.stats.InsertStatsBatch(stats); err != nil {
		return fmt.Errorf("insert stats: %w", err)
	}
	logger.L().Info().Str("market", market).Str("date", date.Format("2006-01-02")).
		Int("instruments", len(stats)).Msg("stats inserted")
	return nil
}
