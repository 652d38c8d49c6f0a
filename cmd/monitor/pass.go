package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Run one discovery pass and exit",
	Args:  cobra.NoArgs,
	RunE:  runDiscover,
}

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Run one sampling pass and exit",
	Args:  cobra.NoArgs,
	RunE:  runSample,
}

func runDiscover(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	ctx := cmd.Context()

	st, err := openStores(ctx, cfg, true, logger)
	if err != nil {
		return err
	}
	defer st.close()

	discoverer, _ := stages(cfg, st, nil, logger)
	report, err := discoverer.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "fetched=%d inserted=%d skipped=%d races=%d failures=%d\n",
		report.Fetched, report.Inserted, report.TotalSkipped(), report.Races, report.Failures)
	return nil
}

func runSample(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	ctx := cmd.Context()

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

	_, sampler := stages(cfg, st, archive, logger)
	report, err := sampler.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "monitored=%d sampled=%d unavailable=%d died=%d failures=%d\n",
		report.Monitored, report.Sampled, report.Unavailable, report.TotalDied(), report.Failures)
	return nil
}
