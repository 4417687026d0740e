package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jswiatek/ekw-sourcer/internal/clock/system"
	"github.com/jswiatek/ekw-sourcer/internal/config"
	"github.com/jswiatek/ekw-sourcer/internal/dispatcher"
	"github.com/jswiatek/ekw-sourcer/internal/logging"
	"github.com/jswiatek/ekw-sourcer/internal/metrics"
	"github.com/jswiatek/ekw-sourcer/internal/ops"
	"github.com/jswiatek/ekw-sourcer/internal/portal"
	"github.com/jswiatek/ekw-sourcer/internal/store/postgres"
	"github.com/jswiatek/ekw-sourcer/internal/worker"
)

func newSourceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "source",
		Short: "Runs a full sourcing pass across all departments",
		Long: `Discovers the department codes once, partitions them round-robin across
the worker pool and walks each department's book sequence. Successes and
failures are persisted; the command exits 0 on completion regardless of
per-record failures.`,
		RunE: runSource,
	}
}

func runSource(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := portal.Probe(ctx, portal.ProbeConfig{
		BaseURL:   cfg.Portal.BaseURL,
		UserAgent: cfg.Portal.UserAgent,
		Timeout:   cfg.NavTimeout(),
	}); err != nil {
		return fmt.Errorf("startup probe: %w", err)
	}

	store, err := postgres.New(ctx, postgres.Config{
		DSN:             cfg.DB.DSN,
		MaxConns:        cfg.DB.MaxConns,
		MinConns:        cfg.DB.MinConns,
		MaxConnLifetime: cfg.MaxConnLifetime(),
	})
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer store.Close()

	provider, err := portal.NewProvider(portal.Config{
		Headless:   cfg.Portal.Headless,
		UserAgent:  cfg.Portal.UserAgent,
		NavTimeout: cfg.NavTimeout(),
	}, logger.Named("portal"))
	if err != nil {
		return fmt.Errorf("init browser provider: %w", err)
	}
	defer provider.Close()

	sessions := make([]*portal.Session, 0, cfg.Sourcing.WorkerCount)
	for i := 0; i < cfg.Sourcing.WorkerCount; i++ {
		session, err := provider.NewSession(ctx)
		if err != nil {
			return fmt.Errorf("start browser session %d: %w", i, err)
		}
		defer session.Close()
		sessions = append(sessions, session)
	}

	departments, err := portal.Departments(ctx, sessions[0], cfg.Portal.BaseURL)
	if err != nil {
		return fmt.Errorf("discover departments: %w", err)
	}
	logger.Info("departments discovered", zap.Int("count", len(departments)))

	m := metrics.New()
	if cfg.Metrics.Enabled {
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Metrics.Port),
			Handler:           ops.Router(m),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("ops server started", zap.Int("port", cfg.Metrics.Port))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("ops server error", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("ops server shutdown error", zap.Error(err))
			}
		}()
	}

	runID := uuid.NewString()
	clock := system.New()
	workerCfg := worker.Config{
		MaxRetries:  cfg.Sourcing.MaxRetries,
		ErrorSleep:  cfg.ErrorSleep(),
		MaxSequence: cfg.Sourcing.MaxSequence,
		Resume:      cfg.Sourcing.Resume,
		RunID:       runID,
	}

	sourcers := make([]dispatcher.Sourcer, 0, len(sessions))
	for i, session := range sessions {
		fetcher := portal.NewBookFetcher(session, cfg.Portal.BaseURL, logger.Named("fetcher").With(zap.Int("index", i)))
		sourcers = append(sourcers, worker.New(
			fetcher,
			store,
			clock,
			m,
			workerCfg,
			logger.Named("worker").With(zap.Int("index", i)),
		))
	}

	logger.Info("sourcing pass started",
		zap.String("run_id", runID),
		zap.Int("workers", len(sourcers)),
		zap.Int("departments", len(departments)),
	)

	summary := dispatcher.New(sourcers, m, logger.Named("dispatcher")).Run(ctx, departments)
	reportSummary(logger, summary)
	return nil
}

func reportSummary(logger *zap.Logger, summary dispatcher.Summary) {
	departments := make([]string, 0, len(summary.PerDepartment))
	for department := range summary.PerDepartment {
		departments = append(departments, department)
	}
	sort.Strings(departments)

	for _, department := range departments {
		counters := summary.PerDepartment[department]
		logger.Info("department summary",
			zap.String("department", department),
			zap.Int("succeeded", counters.Succeeded),
			zap.Int("failed", counters.Failed),
			zap.Int("skipped", counters.Skipped),
			zap.Int("retries", counters.Retries),
			zap.Int("store_errors", counters.StoreErrors),
		)
	}
	logger.Info("sourcing pass finished",
		zap.Int("succeeded", summary.Totals.Succeeded),
		zap.Int("failed", summary.Totals.Failed),
		zap.Int("skipped", summary.Totals.Skipped),
		zap.Int("retries", summary.Totals.Retries),
		zap.Int("store_errors", summary.Totals.StoreErrors),
	)
}
