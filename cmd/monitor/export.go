package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"token-lifecycle-monitor/internal/reporting"
)

var (
	exportFormat string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the token lifecycle report as CSV or Markdown",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "markdown", "Report format (csv, markdown)")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file (default: stdout)")
}

func runExport(cmd *cobra.Command, args []string) error {
	if exportFormat != "csv" && exportFormat != "markdown" {
		return fmt.Errorf("unknown format %q, want csv or markdown", exportFormat)
	}
	if err := cfg.ValidateStorage(); err != nil {
		return err
	}
	ctx := cmd.Context()

	st, err := openStores(ctx, cfg, false, logger)
	if err != nil {
		return err
	}
	defer st.close()

	report, err := reporting.NewGenerator(st.tokens, st.samples).Generate(ctx)
	if err != nil {
		return fmt.Errorf("generate report: %w", err)
	}

	var w io.Writer = cmd.OutOrStdout()
	if exportOut != "" {
		f, err := os.Create(exportOut)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	switch exportFormat {
	case "csv":
		err = reporting.RenderCSV(w, report)
	default:
		_, err = io.WriteString(w, reporting.RenderMarkdown(report))
	}
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	logger.Info("report exported",
		zap.String("format", exportFormat),
		zap.Int("tokens", report.Summary.TotalTokens),
		zap.String("out", exportOut),
	)
	return nil
}
