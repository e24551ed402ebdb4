package service

import (
	"context"
	"time"

	"github.com/rimasko/orkpulse/internal/domain/models"
	"github.com/rimasko/orkpulse/internal/report"
	"github.com/rimasko/orkpulse/internal/storage"
)

// ReportService generates ad-hoc regulatory report archives for a market and
// date range.
type ReportService interface {
	// Generate fetches the range and writes the archives, returning the
	// written filenames and the number of events reported.
	Generate(ctx context.Context, market string, start, end time.Time, tickers []string) ([]string, int, error)
}

type reportService struct {
	events storage.EventStore
	writer *report.Writer
	outDir string
}

// NewReportService wires the event store and codec writer together.
func NewReportService(events storage.EventStore, writer *report.Writer, outDir string) ReportService {
	return &reportService{events: events, writer: writer, outDir: outDir}
}

func (s *reportService) Generate(ctx context.Context, market string, start, end time.Time, tickers []string) ([]string, int, error) {
	events, err := s.events.Fetch(ctx, market, start, end, storage.FetchOptions{Tickers: tickers})
	if err != nil {
		return nil, 0, err
	}
	files, err := s.writer.Emit(events, s.outDir)
	if err != nil {
		return files, len(events), err
	}
	return files, len(events), nil
}

// StatsService exposes aggregated statistics queries.
type StatsService interface {
	GetAggregate(ctx context.Context, code string, start, end *time.Time) (*models.Aggregate, error)
}

type statsService struct {
	repo storage.StatsRepository
}

// NewStatsService returns a StatsService backed by the stats repository.
func NewStatsService(repo storage.StatsRepository) StatsService {
	return &statsService{repo: repo}
}

func (s *statsService) GetAggregate(ctx context.Context, code string, start, end *time.Time) (*models.Aggregate, error) {
	return s.repo.AggregateByInstrument(code, start, end)
}
