package reporting

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

var csvHeader = []string{
	"token_id", "address", "symbol", "chain", "pair_address", "status",
	"discovered_at", "death_at", "death_reason", "lifespan_seconds",
	"initial_holder_count", "is_honeypot", "buy_tax", "sell_tax",
	"sample_count", "peak_liquidity_usd", "last_liquidity_usd",
}

// RenderCSV writes one row per token. Unknown values are empty cells.
func RenderCSV(w io.Writer, r *Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	for _, t := range r.Tokens {
		record := []string{
			strconv.FormatInt(t.TokenID, 10),
			t.Address,
			t.Symbol,
			t.Chain,
			t.PairAddress,
			t.Status.String(),
			t.DiscoveredAt.UTC().Format(time.RFC3339),
			formatTime(t.DeathAt),
			"",
			strconv.FormatInt(int64(t.Lifespan/time.Second), 10),
			formatInt(t.InitialHolderCount),
			formatBool(t.IsHoneypot),
			formatDecimal(t.BuyTax),
			formatDecimal(t.SellTax),
			strconv.Itoa(t.SampleCount),
			formatDecimal(t.PeakLiquidityUSD),
			formatDecimal(t.LastLiquidityUSD),
		}
		if t.DeathReason != nil {
			record[8] = t.DeathReason.String()
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatInt(n *int64) string {
	if n == nil {
		return ""
	}
	return strconv.FormatInt(*n, 10)
}

func formatBool(b *bool) string {
	if b == nil {
		return ""
	}
	return strconv.FormatBool(*b)
}

func formatDecimal(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.String()
}
