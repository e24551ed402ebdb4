package models

import "time"

// DailyStats is one per-(date, market, instrument) row of the statistics
// store, derived from the transaction stream of a single day's events.
type DailyStats struct {
	Date          time.Time
	Market        string
	OrderBookCode string
	Open          float64
	High          float64
	Low           float64
	Close         float64
	Volume        int64
	TradeCount    int64
}

// Aggregate is the result of aggregated queries over the statistics store
// for one instrument.
//
// Fields:
//   - OrderBookCode: the instrument the aggregation was computed for.
//   - MaxPrice: the maximum daily high observed in the selected period.
//   - MaxDailyVolume: the maximum single-day traded volume in the period.
type Aggregate struct {
	OrderBookCode  string  `json:"orderbook_code" example:"SAB1L"`
	MaxPrice       float64 `json:"max_price" example:"0.72"`
	MaxDailyVolume int64   `json:"max_daily_volume" example:"150000"`
}
