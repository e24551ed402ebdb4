package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rimasko/orkpulse/internal/domain/dto"
	"github.com/rimasko/orkpulse/internal/domain/models"
	"github.com/rimasko/orkpulse/internal/storage"
)

type fakeStatsService struct {
	agg      *models.Aggregate
	err      error
	gotCode  string
	gotStart *time.Time
	gotEnd   *time.Time
}

func (f *fakeStatsService) GetAggregate(_ context.Context, code string, start, end *time.Time) (*models.Aggregate, error) {
	f.gotCode = code
	f.gotStart = start
	f.gotEnd = end
	return f.agg, f.err
}

type fakeReportService struct {
	files     []string
	events    int
	err       error
	gotMarket string
	gotStart  time.Time
	gotEnd    time.Time
}

func (f *fakeReportService) Generate(_ context.Context, market string, start, end time.Time, _ []string) ([]string, int, error) {
	f.gotMarket = market
	f.gotStart = start
	f.gotEnd = end
	return f.files, f.events, f.err
}

func performRequest(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func newTestRouter(stats *fakeStatsService, reports *fakeReportService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(NewHandler(stats, reports))
}

func TestGetAggregate(t *testing.T) {
	stats := &fakeStatsService{agg: &models.Aggregate{OrderBookCode: "SAB1L", MaxPrice: 1.8, MaxDailyVolume: 185}}
	router := newTestRouter(stats, &fakeReportService{})

	w := performRequest(router, http.MethodGet, "/api/v1/stats/aggregate?instrument=sab1l&start=2025-03-01&end=2025-03-31", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var resp dto.AggregateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.OrderBookCode != "SAB1L" || resp.MaxPrice != 1.8 || resp.MaxDailyVolume != 185 {
		t.Fatalf("unexpected response: %+v", resp)
	}

	if stats.gotCode != "SAB1L" {
		t.Fatalf("instrument must be uppercased, got %q", stats.gotCode)
	}
	if stats.gotStart == nil || stats.gotStart.Format("2006-01-02") != "2025-03-01" {
		t.Fatalf("start not forwarded: %v", stats.gotStart)
	}
	if stats.gotEnd == nil || stats.gotEnd.Format("2006-01-02") != "2025-03-31" {
		t.Fatalf("end not forwarded: %v", stats.gotEnd)
	}
}

func TestGetAggregate_Validation(t *testing.T) {
	cases := []struct {
		name string
		path string
	}{
		{name: "missing instrument", path: "/api/v1/stats/aggregate"},
		{name: "bad start", path: "/api/v1/stats/aggregate?instrument=SAB1L&start=17-03-2025"},
		{name: "bad end", path: "/api/v1/stats/aggregate?instrument=SAB1L&end=not-a-date"},
	}

	router := newTestRouter(&fakeStatsService{}, &fakeReportService{})
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := performRequest(router, http.MethodGet, tc.path, "")
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestGetAggregate_NotFound(t *testing.T) {
	router := newTestRouter(&fakeStatsService{agg: nil}, &fakeReportService{})
	w := performRequest(router, http.MethodGet, "/api/v1/stats/aggregate?instrument=GONE", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestGetAggregate_RepositoryFailure(t *testing.T) {
	router := newTestRouter(&fakeStatsService{err: errors.New("db down")}, &fakeReportService{})
	w := performRequest(router, http.MethodGet, "/api/v1/stats/aggregate?instrument=SAB1L", "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
}

func TestGenerateReport(t *testing.T) {
	reports := &fakeReportService{files: []string{"a.zip"}, events: 42}
	router := newTestRouter(&fakeStatsService{}, reports)

	body := `{"start":"2025-03-17","end":"2025-03-18","tickers":["SAB1L"]}`
	w := performRequest(router, http.MethodPost, "/api/v1/reports", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var resp dto.GenerateReportResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Files) != 1 || resp.Files[0] != "a.zip" || resp.Events != 42 {
		t.Fatalf("unexpected response: %+v", resp)
	}

	if reports.gotMarket != models.MarketINETMain {
		t.Fatalf("market must default, got %q", reports.gotMarket)
	}
	if reports.gotStart.Format("2006-01-02") != "2025-03-17" || reports.gotEnd.Format("2006-01-02") != "2025-03-18" {
		t.Fatalf("range not forwarded: %v %v", reports.gotStart, reports.gotEnd)
	}
}

func TestGenerateReport_Validation(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{name: "malformed json", body: `{`},
		{name: "missing start", body: `{"end":"2025-03-18"}`},
		{name: "bad end", body: `{"start":"2025-03-17","end":"tomorrow"}`},
		{name: "inverted range", body: `{"start":"2025-03-18","end":"2025-03-17"}`},
	}

	router := newTestRouter(&fakeStatsService{}, &fakeReportService{})
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := performRequest(router, http.MethodPost, "/api/v1/reports", tc.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestGenerateReport_NoData(t *testing.T) {
	reports := &fakeReportService{err: storage.ErrNoData}
	router := newTestRouter(&fakeStatsService{}, reports)

	w := performRequest(router, http.MethodPost, "/api/v1/reports", `{"start":"2025-03-17","end":"2025-03-18"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestGenerateReport_CodecFailure(t *testing.T) {
	reports := &fakeReportService{err: errors.New("schema init failed")}
	router := newTestRouter(&fakeStatsService{}, reports)

	w := performRequest(router, http.MethodPost, "/api/v1/reports", `{"start":"2025-03-17","end":"2025-03-18"}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
}

func TestHealthEndpoints(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("healthy", func(t *testing.T) {
		r := gin.New()
		NewHealthHandler(func() error { return nil }).Register(r)

		if w := performRequest(r, http.MethodGet, "/healthz", ""); w.Code != http.StatusOK {
			t.Fatalf("healthz = %d", w.Code)
		}
		if w := performRequest(r, http.MethodGet, "/readyz", ""); w.Code != http.StatusOK {
			t.Fatalf("readyz = %d", w.Code)
		}
	})

	t.Run("db unreachable", func(t *testing.T) {
		r := gin.New()
		NewHealthHandler(func() error { return errors.New("refused") }).Register(r)

		if w := performRequest(r, http.MethodGet, "/healthz", ""); w.Code != http.StatusOK {
			t.Fatalf("healthz must stay 200, got %d", w.Code)
		}
		if w := performRequest(r, http.MethodGet, "/readyz", ""); w.Code != http.StatusServiceUnavailable {
			t.Fatalf("readyz = %d, want 503", w.Code)
		}
	})
}

func TestRouter_RequestIDHeader(t *testing.T) {
	router := newTestRouter(&fakeStatsService{agg: &models.Aggregate{}}, &fakeReportService{})
	w := performRequest(router, http.MethodGet, "/api/v1/stats/aggregate?instrument=SAB1L", "")
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatal("X-Request-ID header missing")
	}
}
