// Package lifecycle implements token discovery, market sampling, death
// classification and the cycle scheduler that drives them.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"token-lifecycle-monitor/internal/domain"
)

// ErrConfig marks a configuration fault detected by a stage. The scheduler
// stops instead of retrying when a stage returns it.
var ErrConfig = errors.New("lifecycle configuration fault")

// PairFeed lists recently created trading pairs.
type PairFeed interface {
	LatestPairs(ctx context.Context) ([]domain.PairCandidate, error)
}

// SecurityOracle reports honeypot and tax data. A nil report with nil error
// means the oracle has no entry for the address.
type SecurityOracle interface {
	TokenSecurity(ctx context.Context, address string) (*domain.SecurityReport, error)
}

// HolderOracle reports the holder count. A nil count with nil error means unknown.
type HolderOracle interface {
	HolderCount(ctx context.Context, address string) (*int64, error)
}

// SnapshotSource reports the current market state of a pair. A nil snapshot
// with nil error means the pair is unknown to the source.
type SnapshotSource interface {
	PairSnapshot(ctx context.Context, chain, pairAddress string) (*domain.MarketSnapshot, error)
}

// Pacer spaces external calls. Wait blocks until the next call may start and
// Done marks the end of the call it admitted.
type Pacer interface {
	Wait(ctx context.Context) error
	Done()
}

// SampleArchiver receives committed samples for secondary storage.
type SampleArchiver interface {
	Archive(ctx context.Context, token *domain.Token, sample *domain.MarketSample) error
}

type cycleKey struct{}

// WithCycleID tags ctx with the scheduler cycle identifier for log correlation.
func WithCycleID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, cycleKey{}, id)
}

// CycleID returns the cycle identifier carried by ctx, or "".
func CycleID(ctx context.Context) string {
	id, _ := ctx.Value(cycleKey{}).(string)
	return id
}

// stageLogger returns logger annotated with the cycle ID in ctx, if any.
func stageLogger(ctx context.Context, logger *zap.Logger) *zap.Logger {
	if id := CycleID(ctx); id != "" {
		return logger.With(zap.String("cycle_id", id))
	}
	return logger
}

// recoverUnit converts a panic in one unit of work into an error.
func recoverUnit(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("panic: %v", r)
	}
}

func defaultNow() time.Time {
	return time.Now().UTC()
}
