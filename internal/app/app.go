package app

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/rimasko/orkpulse/config"
	"github.com/rimasko/orkpulse/internal/api"
	"github.com/rimasko/orkpulse/internal/ingestion"
	"github.com/rimasko/orkpulse/internal/report"
	"github.com/rimasko/orkpulse/internal/service"
	"github.com/rimasko/orkpulse/internal/storage"
)

// InitializeApp wires all dependencies for API mode and returns the
// configured router, a cleanup function, and any initialization error.
//
// Wiring order: postgres + stats schema, flat-file event store, master
// schema + validator, anonymizer/builder/writer, services, handlers, router,
// health probes.
func InitializeApp() (*gin.Engine, func(), error) {
	cfg := config.AppConfig

	db, err := postgresOpener(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize postgres: %w", err)
	}
	if err := storage.InitSchema(db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	statsRepo := storage.NewStatsRepository(db)
	events := ingestion.NewFileStore(cfg.Source.DataDir)

	writer, err := NewReportWriter(cfg)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	statsSvc := service.NewStatsService(statsRepo)
	reportSvc := service.NewReportService(events, writer, cfg.Report.OutputDir)

	handler := api.NewHandler(statsSvc, reportSvc)
	router := api.NewRouter(handler)

	health := api.NewHealthHandler(db.Ping)
	health.Register(router)

	cleanup := func() {
		_ = db.Close()
	}
	return router, cleanup, nil
}

// NewReportWriter assembles the regulatory codec from configuration: the
// master schema is written if absent, the validator is bound to it, and the
// anonymization toggle table is fixed here, once.
func NewReportWriter(cfg config.Config) (*report.Writer, error) {
	schemaPath, err := report.EnsureMasterSchema(cfg.Report.SchemaDir)
	if err != nil {
		return nil, err
	}
	validator, err := report.NewXSDValidator(schemaPath)
	if err != nil {
		return nil, err
	}

	anon := report.NewAnonymizer(cfg.Report.HashSecret, report.DefaultFieldPolicy())
	builder := report.NewBuilder(anon)
	return report.NewWriter(builder, validator, cfg.Report.Version, cfg.Report.ChunkCap), nil
}
