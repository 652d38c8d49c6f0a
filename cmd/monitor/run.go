package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"token-lifecycle-monitor/internal/health"
	"token-lifecycle-monitor/internal/lifecycle"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Migrate, then run the cycle scheduler and the health server until interrupted",
	Args:  cobra.NoArgs,
	RunE:  runMonitor,
}

func runMonitor(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger.Info("starting monitor", zap.Any("config", cfg.Redacted()))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, true, logger)
	if err != nil {
		return err
	}
	defer st.close()

	archive, closeArchive, err := openArchive(ctx, cfg, logger)
	if err != nil {
		logger.Warn("sample archive unavailable, continuing without it", zap.Error(err))
		archive, closeArchive = nil, func() {}
	}
	defer closeArchive()

	discoverer, sampler := stages(cfg, st, archive, logger)
	scheduler := lifecycle.NewScheduler(discoverer, sampler, lifecycle.SchedulerOptions{
		CycleInterval:   cfg.CycleInterval,
		FailureCooldown: cfg.FailureCooldown,
		Logger:          logger,
	})
	server := health.NewServer(cfg.HealthAddr, st.tokens, scheduler, logger)

	if err := supervise(ctx, logger, scheduler.Run, server.Run); err != nil {
		logger.Error("monitor stopped with error", zap.Error(err))
		return err
	}
	logger.Info("monitor stopped")
	return nil
}

// supervise runs the monitor loop and the health server side by side. The
// loop owns the process lifetime: when it returns the server is stopped and
// the loop's error is returned. A server failure, such as a port already in
// use, is logged and leaves the loop running.
func supervise(ctx context.Context, logger *zap.Logger, loop, server func(context.Context) error) error {
	serverCtx, stopServer := context.WithCancel(ctx)
	defer stopServer()

	var g errgroup.Group
	g.Go(func() error {
		defer stopServer()
		return loop(ctx)
	})
	g.Go(func() error {
		if err := server(serverCtx); err != nil {
			logger.Error("health server stopped, monitor keeps running", zap.Error(err))
		}
		return nil
	})
	return g.Wait()
}
