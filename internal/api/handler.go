package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rimasko/orkpulse/internal/domain/dto"
	"github.com/rimasko/orkpulse/internal/domain/models"
	"github.com/rimasko/orkpulse/internal/service"
	"github.com/rimasko/orkpulse/internal/storage"
)

// Handler maps HTTP requests onto the stats and report services.
type Handler struct {
	stats   service.StatsService
	reports service.ReportService
}

// NewHandler constructs a Handler from its service dependencies.
func NewHandler(stats service.StatsService, reports service.ReportService) *Handler {
	return &Handler{stats: stats, reports: reports}
}

// GetAggregate handles GET /api/v1/stats/aggregate.
//
// Query parameters:
//   - instrument (required): order-book code, e.g. "SAB1L".
//   - start, end (optional): YYYY-MM-DD bounds on the stats dates.
//
// Responses: 200 with an AggregateResponse, 400 on bad parameters, 404 when
// no stats rows match, 500 on repository failure.
func (h *Handler) GetAggregate(c *gin.Context) {
	instrument := strings.ToUpper(strings.TrimSpace(c.Query("instrument")))
	if instrument == "" {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("instrument is required", nil))
		return
	}

	var start, end *time.Time
	if s := c.Query("start"); s != "" {
		parsed, err := time.Parse("2006-01-02", s)
		if err != nil {
			c.JSON(http.StatusBadRequest, dto.NewErrorResponse("invalid start, expected YYYY-MM-DD", err))
			return
		}
		start = &parsed
	}
	if s := c.Query("end"); s != "" {
		parsed, err := time.Parse("2006-01-02", s)
		if err != nil {
			c.JSON(http.StatusBadRequest, dto.NewErrorResponse("invalid end, expected YYYY-MM-DD", err))
			return
		}
		end = &parsed
	}

	agg, err := h.stats.GetAggregate(c.Request.Context(), instrument, start, end)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("failed to fetch aggregates", err))
		return
	}
	if agg == nil {
		c.JSON(http.StatusNotFound, dto.NewErrorResponse("no data found", nil))
		return
	}

	c.JSON(http.StatusOK, dto.AggregateResponse{
		OrderBookCode:  agg.OrderBookCode,
		MaxPrice:       agg.MaxPrice,
		MaxDailyVolume: agg.MaxDailyVolume,
	})
}

// GenerateReport handles POST /api/v1/reports: fetches the requested range
// and writes regulatory archives into the configured output directory.
//
// Responses: 200 with the written filenames, 400 on a bad body, 404 when the
// range holds no data, 500 on a fatal fetch or codec failure.
func (h *Handler) GenerateReport(c *gin.Context) {
	var req dto.GenerateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("invalid request body", err))
		return
	}
	if req.Market == "" {
		req.Market = models.MarketINETMain
	}
	start, err := time.Parse("2006-01-02", req.Start)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("invalid start, expected YYYY-MM-DD", err))
		return
	}
	end, err := time.Parse("2006-01-02", req.End)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("invalid end, expected YYYY-MM-DD", err))
		return
	}
	if end.Before(start) {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("end must not precede start", nil))
		return
	}

	files, events, err := h.reports.Generate(c.Request.Context(), req.Market, start, end, req.Tickers)
	if err != nil {
		if errors.Is(err, storage.ErrNoData) {
			c.JSON(http.StatusNotFound, dto.NewErrorResponse("no data for requested range", err))
			return
		}
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("report generation failed", err))
		return
	}

	c.JSON(http.StatusOK, dto.GenerateReportResponse{Files: files, Events: events})
}
