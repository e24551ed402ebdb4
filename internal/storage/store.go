package storage

import (
	"context"
	"errors"
	"time"

	"github.com/rimasko/orkpulse/internal/domain/models"
)

// ErrNoData signals that no day in the requested range produced any rows, or
// that a per-market scan found no source files at all. Day-level skips never
// surface; only the aggregate condition does.
var ErrNoData = errors.New("no order-book data available")

// FetchOptions narrows a fetch. A nil/empty slice means "no filter".
type FetchOptions struct {
	Tickers []string
	Phases  []string
}

// EventStore fetches temporally-joined order-book events. Implementations
// must absorb day-level recoverable conditions (missing or empty files) and
// return ErrNoData only when the whole range is empty; any other parse or IO
// failure is fatal and propagates.
type EventStore interface {
	// Fetch returns enriched events for [start, end] in chronological day
	// order, each day internally ordered by sequence number.
	Fetch(ctx context.Context, market string, start, end time.Time, opts FetchOptions) ([]models.EnrichedEvent, error)

	// EarliestAvailable and LatestAvailable report the date span of the
	// per-market source files. Both return ErrNoData when none exist.
	EarliestAvailable(market string) (time.Time, error)
	LatestAvailable(market string) (time.Time, error)
}

// StatsRepository persists derived daily statistics.
type StatsRepository interface {
	// LatestDate returns the most recent stats date, or (nil, nil) when the
	// store is empty.
	LatestDate() (*time.Time, error)

	// DatesInRange returns the distinct stats dates in [start, end], ordered.
	DatesInRange(start, end time.Time) ([]time.Time, error)

	// DateExists reports whether stats for the given date are present.
	DateExists(date time.Time) (bool, error)

	// InsertStatsBatch appends a batch of daily stats. An empty batch is a
	// no-op, never an error.
	InsertStatsBatch(stats []models.DailyStats) error

	// AggregateByInstrument returns max price / max daily volume for one
	// instrument, or (nil, nil) when no rows match.
	AggregateByInstrument(code string, start, end *time.Time) (*models.Aggregate, error)
}
