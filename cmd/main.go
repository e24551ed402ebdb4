package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rimasko/orkpulse/config"
	"github.com/rimasko/orkpulse/internal/app"
	"github.com/rimasko/orkpulse/internal/ingestion"
	"github.com/rimasko/orkpulse/internal/logger"
	"github.com/rimasko/orkpulse/internal/service"
	"github.com/rimasko/orkpulse/internal/storage"
)

// startServer starts the HTTP server in a separate goroutine.
func startServer(router http.Handler, port string) *http.Server {
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.L().Info().Str("port", port).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L().Fatal().Err(err).Msg("server failed to start")
		}
	}()

	return server
}

// gracefulShutdown terminates the HTTP server and runs cleanup when an OS
// interrupt signal is received.
func gracefulShutdown(ctx context.Context, server *http.Server, cleanup func()) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	logger.L().Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.L().Fatal().Err(err).Msg("server forced to shutdown")
	}

	cleanup()
	logger.L().Info().Msg("server exited gracefully")
}

// main is the entry point.
//
// Modes (selected via --mode flag):
//   - ingest: derive and persist daily statistics for every unprocessed date.
//   - report: generate regulatory XML archives for a date range.
//   - api:    serve the stats/report HTTP API.
func main() {
	ctx := context.Background()

	config.LoadConfig()
	logger.Init()

	mode := flag.String("mode", "ingest", "Mode: ingest, report or api")
	market := flag.String("market", "INET_MainMarket", "Source market identifier")
	dir := flag.String("dir", config.AppConfig.Source.DataDir, "Directory with daily extract files")
	out := flag.String("out", config.AppConfig.Report.OutputDir, "Directory for report archives (report mode)")
	start := flag.String("start", "", "Range start YYYY-MM-DD (report mode)")
	end := flag.String("end", "", "Range end YYYY-MM-DD (report mode)")
	tickers := flag.String("tickers", "", "Comma-separated order-book codes to include (report mode)")
	port := flag.String("port", config.AppConfig.Server.Port, "Port for API mode")
	flag.Parse()

	switch *mode {
	case "ingest":
		logger.L().Info().Str("market", *market).Msg("running statistics ingestion")

		db, err := app.InitPostgres(config.AppConfig)
		if err != nil {
			logger.L().Fatal().Err(err).Msg("db connect error")
		}
		defer func() { _ = db.Close() }()
		if err := storage.InitSchema(db); err != nil {
			logger.L().Fatal().Err(err).Msg("schema init error")
		}

		pipeline := service.NewPipeline(ingestion.NewFileStore(*dir), storage.NewStatsRepository(db))
		if err := pipeline.ProcessNewFiles(ctx, *market); err != nil {
			logger.L().Fatal().Err(err).Msg("ingestion failed")
		}
		logger.L().Info().Msg("ingestion completed")

	case "report":
		startDate, err := time.Parse("2006-01-02", *start)
		if err != nil {
			logger.L().Fatal().Str("start", *start).Msg("invalid or missing --start")
		}
		endDate, err := time.Parse("2006-01-02", *end)
		if err != nil {
			logger.L().Fatal().Str("end", *end).Msg("invalid or missing --end")
		}

		writer, err := app.NewReportWriter(config.AppConfig)
		if err != nil {
			logger.L().Fatal().Err(err).Msg("codec init error")
		}

		var codes []string
		if *tickers != "" {
			codes = strings.Split(*tickers, ",")
		}

		svc := service.NewReportService(ingestion.NewFileStore(*dir), writer, *out)
		files, events, err := svc.Generate(ctx, *market, startDate, endDate, codes)
		if err != nil {
			logger.L().Fatal().Err(err).Msg("report generation failed")
		}
		logger.L().Info().Int("events", events).Strs("files", files).Msg("report generation completed")

	case "api":
		logger.L().Info().Msg("starting API server")

		router, cleanup, err := app.InitializeApp()
		if err != nil {
			logger.L().Fatal().Err(err).Msg("app init error")
		}

		server := startServer(router, *port)
		gracefulShutdown(ctx, server, cleanup)

	default:
		logger.L().Fatal().Str("mode", *mode).Msg("unknown mode")
	}
}
