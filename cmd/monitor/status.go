package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"token-lifecycle-monitor/internal/domain"
	"token-lifecycle-monitor/internal/storage"
)

var statusAddress string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print token counts by lifecycle status, or one token with --address",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusAddress, "address", "", "Show a single token by base asset address")
}

func runStatus(cmd *cobra.Command, args []string) error {
	if err := cfg.ValidateStorage(); err != nil {
		return err
	}
	ctx := cmd.Context()

	st, err := openStores(ctx, cfg, false, logger)
	if err != nil {
		return err
	}
	defer st.close()

	if statusAddress != "" {
		return printToken(ctx, cmd.OutOrStdout(), st.tokens, st.samples, statusAddress)
	}
	return printCounts(ctx, cmd.OutOrStdout(), st.tokens)
}

func printCounts(ctx context.Context, out io.Writer, tokens storage.TokenStore) error {
	counts, err := tokens.CountByStatus(ctx)
	if err != nil {
		return err
	}

	monitoring, dead := counts[domain.StatusMonitoring], counts[domain.StatusDead]
	fmt.Fprintf(out, "monitoring: %d\n", monitoring)
	fmt.Fprintf(out, "dead:       %d\n", dead)
	fmt.Fprintf(out, "total:      %d\n", monitoring+dead)
	return nil
}

func printToken(ctx context.Context, out io.Writer, tokens storage.TokenStore, samples storage.MarketSampleStore, address string) error {
	t, err := tokens.GetByAddress(ctx, address)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("token %s is not tracked: %w", address, err)
	}
	if err != nil {
		return err
	}

	history, err := samples.GetByTokenID(ctx, t.ID)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "address:    %s\n", t.Address)
	fmt.Fprintf(out, "symbol:     %s\n", t.Symbol)
	fmt.Fprintf(out, "pair:       %s (%s)\n", t.PairAddress, t.Chain)
	fmt.Fprintf(out, "discovered: %s\n", t.DiscoveredAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(out, "status:     %s\n", t.Status)
	if t.DeathAt != nil && t.DeathReason != nil {
		fmt.Fprintf(out, "died:       %s (%s)\n", t.DeathAt.UTC().Format(time.RFC3339), *t.DeathReason)
	}
	fmt.Fprintf(out, "holders:    %s\n", orUnknown(t.InitialHolderCount))
	fmt.Fprintf(out, "honeypot:   %s\n", orUnknown(t.IsHoneypot))
	fmt.Fprintf(out, "samples:    %d\n", len(history))
	if n := len(history); n > 0 {
		last := history[n-1]
		fmt.Fprintf(out, "last:       %s liquidity=%s volume_h1=%s\n",
			last.Timestamp.UTC().Format(time.RFC3339), last.LiquidityUSD.StringFixed(2), last.VolumeH1.StringFixed(2))
	}
	return nil
}

func orUnknown[T any](v *T) string {
	if v == nil {
		return "unknown"
	}
	return fmt.Sprint(*v)
}
