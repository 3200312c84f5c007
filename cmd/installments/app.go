package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/installments-tracker/internal/cache"
	"github.com/joseph-ayodele/installments-tracker/internal/common"
	"github.com/joseph-ayodele/installments-tracker/internal/core/runner"
	"github.com/joseph-ayodele/installments-tracker/internal/extract"
	"github.com/joseph-ayodele/installments-tracker/internal/layout"
	"github.com/joseph-ayodele/installments-tracker/internal/metrics"
	"github.com/joseph-ayodele/installments-tracker/internal/ocr"
	"github.com/joseph-ayodele/installments-tracker/internal/ocr/azure"
	"github.com/joseph-ayodele/installments-tracker/internal/ocr/gosseract"
	"github.com/joseph-ayodele/installments-tracker/internal/pdfdoc"
	"github.com/joseph-ayodele/installments-tracker/internal/profile"
	"github.com/joseph-ayodele/installments-tracker/internal/repository"
	profilesvc "github.com/joseph-ayodele/installments-tracker/internal/services/profile"
)

// app holds the wiring shared by the subcommands.
type app struct {
	cfg      *common.Config
	logger   *slog.Logger
	registry *profile.Registry
	profiles *profilesvc.Service
	closers  []io.Closer
	cleanups []func()
}

func newApp(cmd *cobra.Command) (*app, error) {
	envFiles, _ := cmd.Flags().GetStringSlice("env-file")
	level, _ := cmd.Flags().GetString("log-level")
	logger := newLogger(level)

	cfg, err := common.LoadConfig(envFiles...)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &app{cfg: cfg, logger: logger, registry: profile.NewRegistry()}, nil
}

func (a *app) Close() {
	for i := len(a.cleanups) - 1; i >= 0; i-- {
		a.cleanups[i]()
	}
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.logger.Error("close", "error", err)
		}
	}
}

// openStore connects the profile store named by DB_DRIVER and migrates it.
func (a *app) openStore(ctx context.Context) (repository.ProfileStore, error) {
	db := a.cfg.Database
	var store repository.ProfileStore
	switch db.Driver {
	case "postgres":
		pool, err := repository.OpenPostgres(ctx, repository.Config{
			Driver:           db.Driver,
			DSN:              db.DSN,
			MaxConns:         db.MaxConns,
			MinConns:         db.MinConns,
			MaxConnLifetime:  db.MaxConnLifetime,
			MaxConnIdleTime:  db.MaxConnIdleTime,
			DialTimeout:      db.DialTimeout,
			StatementTimeout: db.StatementTimeout,
		}, a.logger)
		if err != nil {
			return nil, fmt.Errorf("open db: %w", err)
		}
		a.cleanups = append(a.cleanups, pool.Close)
		if err := repository.HealthCheck(ctx, pool, db.DialTimeout, a.logger); err != nil {
			return nil, err
		}
		store = repository.NewPostgresProfileStore(pool, a.logger)
	default:
		drv, err := repository.OpenSQLite(ctx, db.DSN, a.logger)
		if err != nil {
			return nil, fmt.Errorf("open db: %w", err)
		}
		s := repository.NewSQLiteProfileStore(drv, a.logger)
		a.closers = append(a.closers, s)
		store = s
	}
	if err := store.Migrate(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// withProfiles opens the store, builds the service and seeds the registry.
func (a *app) withProfiles(ctx context.Context) error {
	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	a.profiles = profilesvc.NewService(store, a.logger)
	_, err = a.profiles.Seed(ctx, a.registry)
	return err
}

func (a *app) ocrFactory(r runner.Runner) (ocr.Factory, error) {
	oc := ocr.Config{
		Tesseract:   a.cfg.OCR.TesseractBin,
		TessdataDir: a.cfg.OCR.TessdataDir,
		DPI:         a.cfg.OCR.DPI,
	}
	switch a.cfg.OCR.Engine {
	case "tesseract":
		return ocr.NewTesseractFactory(oc, r, a.logger), nil
	case "gosseract":
		return gosseract.NewFactory(oc, a.logger), nil
	case "azure":
		return azure.NewFactory(azure.Config{
			Endpoint: a.cfg.OCR.AzureEndpoint,
			Key:      a.cfg.OCR.AzureKey,
			Timeout:  a.cfg.OCR.RequestTimeout,
		}, a.logger), nil
	}
	return nil, fmt.Errorf("unknown OCR engine %q", a.cfg.OCR.Engine)
}

// extractor builds the orchestrator, wrapped in the result cache. The
// collector may be nil.
func (a *app) extractor(collector *metrics.Collector) (cache.Extractor, error) {
	r := runner.NewExec(a.logger)
	factory, err := a.ocrFactory(r)
	if err != nil {
		return nil, err
	}

	textTol := layout.TextLayerTolerances()
	if a.cfg.Extraction.RowTolerance > 0 {
		textTol.RowTolerance = a.cfg.Extraction.RowTolerance
	}
	text := extract.NewTextLayerExtractor(a.registry, textTol, a.logger)
	scan := extract.NewOCRExtractor(factory, extract.OCRConfig{
		DPI:        a.cfg.OCR.DPI,
		Attempts:   ocr.AttemptsFor(a.cfg.OCR.Languages, a.cfg.OCR.PSM),
		Preprocess: a.cfg.OCR.Preprocess,
	}, a.registry, layout.OCRTolerances(), a.logger)

	loader := pdfdoc.NewLoader(pdfdoc.Config{Pdftoppm: a.cfg.OCR.PdftoppmBin}, r, a.logger)
	orch := extract.NewOrchestrator(loader, text, scan, a.logger)
	if collector != nil {
		orch = orch.WithObserver(collector)
	}
	return cache.NewCachingExtractor(orch, a.cfg.Extraction.CacheEntries, a.logger), nil
}

// startMetrics serves /metrics in the background when enabled.
func (a *app) startMetrics(ctx context.Context) *metrics.Collector {
	if !a.cfg.Metrics.Enabled {
		return nil
	}
	c := metrics.NewCollector()
	ctx, cancel := context.WithCancel(ctx)
	a.cleanups = append(a.cleanups, cancel)
	go func() {
		_ = c.Serve(ctx, a.cfg.Metrics.Addr, a.logger)
	}()
	return c
}
