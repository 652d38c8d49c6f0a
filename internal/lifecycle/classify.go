package lifecycle

import (
	"github.com/shopspring/decimal"

	"token-lifecycle-monitor/internal/domain"
)

// Default death thresholds in USD.
var (
	DefaultLiquidityDeathThreshold = decimal.NewFromInt(2000)
	DefaultVolumeDeathThreshold    = decimal.NewFromInt(1000)
)

// liquidityFloor is the reading at or below which liquidity is treated as
// not reported. Such readings never classify a token as dead.
//
// TODO: confirm with product whether a reported liquidity of exactly zero
// should count as a collapse rather than an indeterminate reading.
var liquidityFloor = decimal.NewFromInt(1)

// Thresholds holds the death criteria.
type Thresholds struct {
	Liquidity decimal.Decimal // liquidity_collapse below this
	Volume    decimal.Decimal // low_volume below this
}

// DefaultThresholds returns the default death criteria.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Liquidity: DefaultLiquidityDeathThreshold,
		Volume:    DefaultVolumeDeathThreshold,
	}
}

// Valid reports whether both thresholds are positive.
func (t Thresholds) Valid() bool {
	return t.Liquidity.IsPositive() && t.Volume.IsPositive()
}

// Classify evaluates one market reading. It returns the death reason and true
// if the token should be retired, in precedence order:
//
//   - liquidity_collapse: floor < liquidity < Thresholds.Liquidity
//   - low_volume: volume < Thresholds.Volume and liquidity > floor
//
// A liquidity reading at or below the floor is indeterminate and never fatal.
func Classify(liquidityUSD, volumeH1 decimal.Decimal, th Thresholds) (domain.DeathReason, bool) {
	if !liquidityUSD.GreaterThan(liquidityFloor) {
		return "", false
	}
	if liquidityUSD.LessThan(th.Liquidity) {
		return domain.DeathLiquidityCollapse, true
	}
	if volumeH1.LessThan(th.Volume) {
		return domain.DeathLowVolume, true
	}
	return "", false
}
