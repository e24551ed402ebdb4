package storage

import (
	"database/sql"
	"fmt"
	"time"

	pq "github.com/lib/pq"

	"github.com/rimasko/orkpulse/internal/domain/models"
)

type statsRepository struct {
	db *sql.DB
}

// NewStatsRepository returns a StatsRepository backed by PostgreSQL.
func NewStatsRepository(db *sql.DB) StatsRepository {
	return &statsRepository{db: db}
}

// InitSchema creates the statistics table and indexes if they do not exist.
func InitSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS orderbook_stats (
			date           DATE             NOT NULL,
			market         TEXT             NOT NULL,
			orderbook_code TEXT             NOT NULL,
			open           DOUBLE PRECISION,
			high           DOUBLE PRECISION,
			low            DOUBLE PRECISION,
			close          DOUBLE PRECISION,
			volume         BIGINT,
			trade_count    BIGINT,
			PRIMARY KEY (date, market, orderbook_code)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_orderbook_stats_date ON orderbook_stats (date)`,
		`CREATE INDEX IF NOT EXISTS idx_orderbook_stats_code ON orderbook_stats (orderbook_code)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("init stats schema: %w", err)
		}
	}
	return nil
}

// InsertStatsBatch appends daily stats in a single transaction using COPY.
// An empty batch is a no-op.
func (r *statsRepository) InsertStatsBatch(stats []models.DailyStats) error {
	if len(stats) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(pq.CopyIn("orderbook_stats",
		"date", "market", "orderbook_code",
		"open", "high", "low", "close", "volume", "trade_count",
	))
	if err != nil {
		_ = tx.Rollback()
		return err
	}

	for _, s := range stats {
		if _, err := stmt.Exec(
			s.Date, s.Market, s.OrderBookCode,
			s.Open, s.High, s.Low, s.Close, s.Volume, s.TradeCount,
		); err != nil {
			_ = stmt.Close()
			_ = tx.Rollback()
			return err
		}
	}

	// Flush the COPY buffer.
	if _, err := stmt.Exec(); err != nil {
		_ = stmt.Close()
		_ = tx.Rollback()
		return err
	}
	if err := stmt.Close(); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}

// LatestDate returns the most recent stats date, or nil when the store is empty.
func (r *statsRepository) LatestDate() (*time.Time, error) {
	var d sql.NullTime
	err := r.db.QueryRow(`SELECT MAX(date) FROM orderbook_stats`).Scan(&d)
	if err != nil {
		return nil, err
	}
	if !d.Valid {
		return nil, nil
	}
	t := d.Time
	return &t, nil
}

// DatesInRange returns distinct stats dates between start and end, ordered.
func (r *statsRepository) DatesInRange(start, end time.Time) ([]time.Time, error) {
	rows, err := r.db.Query(`
		SELECT DISTINCT date FROM orderbook_stats
		WHERE date BETWEEN $1 AND $2
		ORDER BY date
	`, start, end)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var dates []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

// DateExists reports whether any stats row exists for the given date.
func (r *statsRepository) DateExists(date time.Time) (bool, error) {
	var exists bool
	err := r.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM orderbook_stats WHERE date = $1)`, date).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// AggregateByInstrument returns max daily high and max single-day volume for
// one instrument, or (nil, nil) when no rows match.
func (r *statsRepository) AggregateByInstrument(code string, start, end *time.Time) (*models.Aggregate, error) {
	agg := models.Aggregate{OrderBookCode: code}

	// $1 is always the instrument; date placeholders depend on what is given.
	conditions := "orderbook_code = $1"
	args := []interface{}{code}
	if start != nil {
		conditions += fmt.Sprintf(" AND date >= $%d", len(args)+1)
		args = append(args, *start)
	}
	if end != nil {
		conditions += fmt.Sprintf(" AND date <= $%d", len(args)+1)
		args = append(args, *end)
	}

	query := fmt.Sprintf(`
		SELECT MAX(high) AS max_price, MAX(volume) AS max_volume
		FROM orderbook_stats
		WHERE %s
	`, conditions)

	var maxPrice sql.NullFloat64
	var maxVolume sql.NullInt64
	if err := r.db.QueryRow(query, args...).Scan(&maxPrice, &maxVolume); err != nil {
		return nil, err
	}

	if !maxPrice.Valid && !maxVolume.Valid {
		return nil, nil
	}
	if maxPrice.Valid {
		agg.MaxPrice = maxPrice.Float64
	}
	if maxVolume.Valid {
		agg.MaxDailyVolume = maxVolume.Int64
	}
	return &agg, nil
}
