package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jswiatek/ekw-sourcer/internal/config"
	"github.com/jswiatek/ekw-sourcer/internal/logging"
	"github.com/jswiatek/ekw-sourcer/internal/portal"
)

func newDepartmentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "departments",
		Short: "Scrapes and prints the department codes, then exits",
		RunE:  runDepartments,
	}
}

func runDepartments(cmd *cobra.Command, _ []string) error {
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

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := portal.Probe(ctx, portal.ProbeConfig{
		BaseURL:   cfg.Portal.BaseURL,
		UserAgent: cfg.Portal.UserAgent,
		Timeout:   cfg.NavTimeout(),
	}); err != nil {
		return fmt.Errorf("startup probe: %w", err)
	}

	provider, err := portal.NewProvider(portal.Config{
		Headless:   cfg.Portal.Headless,
		UserAgent:  cfg.Portal.UserAgent,
		NavTimeout: cfg.NavTimeout(),
	}, logger.Named("portal"))
	if err != nil {
		return fmt.Errorf("init browser provider: %w", err)
	}
	defer provider.Close()

	session, err := provider.NewSession(ctx)
	if err != nil {
		return fmt.Errorf("start browser session: %w", err)
	}
	defer session.Close()

	departments, err := portal.Departments(ctx, session, cfg.Portal.BaseURL)
	if err != nil {
		return fmt.Errorf("discover departments: %w", err)
	}
	logger.Info("departments discovered", zap.Int("count", len(departments)))

	for _, department := range departments {
		fmt.Fprintln(cmd.OutOrStdout(), department)
	}
	return nil
}
