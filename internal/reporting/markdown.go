package reporting

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"token-lifecycle-monitor/internal/domain"
)

// RenderMarkdown renders the report summary and token table as Markdown.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Token Lifecycle Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))

	// Summary
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total Tokens | %d |\n", r.Summary.TotalTokens))
	sb.WriteString(fmt.Sprintf("| Monitoring | %d |\n", r.Summary.MonitoringTokens))
	sb.WriteString(fmt.Sprintf("| Dead | %d |\n", r.Summary.DeadTokens))
	sb.WriteString(fmt.Sprintf("| Samples | %d |\n", r.Summary.TotalSamples))
	if r.Summary.DeadTokens > 0 {
		sb.WriteString(fmt.Sprintf("| Median Lifespan | %s |\n", formatLifespan(r.Summary.MedianLifespan)))
	} else {
		sb.WriteString("| Median Lifespan | n/a |\n")
	}
	sb.WriteString("\n")

	// Death reasons
	sb.WriteString("## Death Reasons\n\n")
	if len(r.Summary.DeathReasons) > 0 {
		reasons := make([]domain.DeathReason, 0, len(r.Summary.DeathReasons))
		for reason := range r.Summary.DeathReasons {
			reasons = append(reasons, reason)
		}
		sort.Slice(reasons, func(i, j int) bool { return reasons[i] < reasons[j] })

		sb.WriteString("| Reason | Tokens | Share |\n")
		sb.WriteString("|--------|--------|-------|\n")
		for _, reason := range reasons {
			n := r.Summary.DeathReasons[reason]
			share := float64(n) / float64(r.Summary.DeadTokens) * 100
			sb.WriteString(fmt.Sprintf("| %s | %d | %.1f%% |\n", reason, n, share))
		}
	} else {
		sb.WriteString("No tokens have died yet.\n")
	}
	sb.WriteString("\n")

	// Tokens
	sb.WriteString("## Tokens\n\n")
	if len(r.Tokens) > 0 {
		sb.WriteString("| ID | Symbol | Address | Status | Reason | Lifespan | Holders | Honeypot | Samples | Peak Liquidity |\n")
		sb.WriteString("|----|--------|---------|--------|--------|----------|---------|----------|---------|----------------|\n")
		for _, t := range r.Tokens {
			reason := "-"
			if t.DeathReason != nil {
				reason = t.DeathReason.String()
			}
			sb.WriteString(fmt.Sprintf("| %d | %s | `%s` | %s | %s | %s | %s | %s | %d | %s |\n",
				t.TokenID, escapeCell(t.Symbol), t.Address, t.Status, reason,
				formatLifespan(t.Lifespan),
				orDash(formatInt(t.InitialHolderCount)),
				orDash(formatBool(t.IsHoneypot)),
				t.SampleCount,
				orDash(formatDecimal(t.PeakLiquidityUSD)),
			))
		}
	} else {
		sb.WriteString("No tokens discovered.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}

// formatLifespan rounds to the minute; shorter lifespans render in seconds.
func formatLifespan(d time.Duration) string {
	if d < time.Minute {
		return d.Truncate(time.Second).String()
	}
	return d.Truncate(time.Minute).String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
