package dto

// AggregateResponse is the JSON structure returned by
// GET /api/v1/stats/aggregate.
//
// Fields match the API contract and may differ from internal domain models.
type AggregateResponse struct {
	OrderBookCode  string  `json:"orderbook_code" example:"SAB1L"`
	MaxPrice       float64 `json:"max_price" example:"0.72"`
	MaxDailyVolume int64   `json:"max_daily_volume" example:"150000"`
}

// GenerateReportRequest is the JSON body accepted by POST /api/v1/reports.
type GenerateReportRequest struct {
	Market  string   `json:"market" example:"INET_MainMarket"`
	Start   string   `json:"start" example:"2025-04-01"`
	End     string   `json:"end" example:"2025-04-30"`
	Tickers []string `json:"tickers,omitempty" example:"SAB1L"`
}

// GenerateReportResponse reports the archives written for one request.
type GenerateReportResponse struct {
	Files  []string `json:"files"`
	Events int      `json:"events" example:"18243"`
}
