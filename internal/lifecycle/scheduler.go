package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"token-lifecycle-monitor/internal/observability"
)

// Default scheduler delays.
const (
	DefaultCycleInterval   = 15 * time.Minute
	DefaultFailureCooldown = time.Minute
)

// State is the scheduler's position in the cycle.
type State int

const (
	StateIdle State = iota
	StateDiscovering
	StateSampling
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDiscovering:
		return "discovering"
	case StateSampling:
		return "sampling"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Outcome classifies a finished cycle and selects the delay before the next one.
type Outcome int

const (
	// OutcomeSuccess means both stages completed.
	OutcomeSuccess Outcome = iota
	// OutcomePartialFailure means at least one stage aborted or panicked.
	OutcomePartialFailure
	// OutcomeFatalConfig means a stage reported ErrConfig.
	OutcomeFatalConfig
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomePartialFailure:
		return "partial_failure"
	case OutcomeFatalConfig:
		return "fatal_config"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// DiscoveryStage runs one discovery pass.
type DiscoveryStage interface {
	Run(ctx context.Context) (*DiscoveryReport, error)
}

// SamplingStage runs one sampling pass.
type SamplingStage interface {
	Run(ctx context.Context) (*SamplingReport, error)
}

// CycleResult describes one completed cycle.
type CycleResult struct {
	ID         string
	Outcome    Outcome
	StartedAt  time.Time
	FinishedAt time.Time
	Discovery  *DiscoveryReport
	Sampling   *SamplingReport
	// Err joins the stage errors, if any.
	Err error
}

// Status is a point-in-time view of the scheduler for the status endpoint.
type Status struct {
	State       string     `json:"state"`
	Cycles      int        `json:"cycles"`
	LastCycleID string     `json:"last_cycle_id,omitempty"`
	LastOutcome string     `json:"last_outcome,omitempty"`
	LastCycleAt *time.Time `json:"last_cycle_at,omitempty"`
	NextCycleAt *time.Time `json:"next_cycle_at,omitempty"`
}

// SchedulerOptions configures a Scheduler.
type SchedulerOptions struct {
	CycleInterval   time.Duration
	FailureCooldown time.Duration
	Logger          *zap.Logger
	// OnCycle, if set, is called after every cycle.
	OnCycle func(CycleResult)
}

// Scheduler repeats Idle → Discovering → Sampling → Idle until cancelled.
type Scheduler struct {
	discovery DiscoveryStage
	sampling  SamplingStage

	cycleInterval   time.Duration
	failureCooldown time.Duration
	logger          *zap.Logger
	onCycle         func(CycleResult)

	mu     sync.Mutex
	state  State
	cycles int
	last   *CycleResult
	next   *time.Time
}

// NewScheduler creates a Scheduler. Zero delays use the defaults.
func NewScheduler(discovery DiscoveryStage, sampling SamplingStage, opts SchedulerOptions) *Scheduler {
	if opts.CycleInterval <= 0 {
		opts.CycleInterval = DefaultCycleInterval
	}
	if opts.FailureCooldown <= 0 {
		opts.FailureCooldown = DefaultFailureCooldown
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Scheduler{
		discovery:       discovery,
		sampling:        sampling,
		cycleInterval:   opts.CycleInterval,
		failureCooldown: opts.FailureCooldown,
		logger:          opts.Logger.Named("scheduler"),
		onCycle:         opts.OnCycle,
	}
}

// Run drives cycles until ctx is cancelled, returning nil in that case.
// It returns an error only when a cycle ends with OutcomeFatalConfig.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler started",
		zap.Duration("cycle_interval", s.cycleInterval),
		zap.Duration("failure_cooldown", s.failureCooldown),
	)

	for {
		res := s.RunCycle(ctx)
		if ctx.Err() != nil {
			s.logger.Info("scheduler stopped")
			return nil
		}

		var delay time.Duration
		switch res.Outcome {
		case OutcomeFatalConfig:
			s.logger.Error("configuration fault, stopping scheduler", zap.String("cycle_id", res.ID), zap.Error(res.Err))
			return res.Err
		case OutcomeSuccess:
			delay = s.cycleInterval
		default:
			delay = s.failureCooldown
		}

		next := time.Now().Add(delay)
		s.mu.Lock()
		s.next = &next
		s.mu.Unlock()

		s.logger.Info("cycle complete, waiting",
			zap.String("cycle_id", res.ID),
			zap.String("outcome", res.Outcome.String()),
			zap.Duration("delay", delay),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("scheduler stopped")
			return nil
		case <-timer.C:
		}
	}
}

// RunCycle performs exactly one discovery and one sampling pass. A stage
// failure does not prevent the other stage from running unless it is a
// configuration fault.
func (s *Scheduler) RunCycle(ctx context.Context) CycleResult {
	res := CycleResult{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Outcome:   OutcomeSuccess,
	}
	ctx = WithCycleID(ctx, res.ID)
	logger := s.logger.With(zap.String("cycle_id", res.ID))

	s.mu.Lock()
	s.next = nil
	s.mu.Unlock()

	var errs []error

	s.setState(StateDiscovering)
	discovery, err := s.runDiscovery(ctx)
	res.Discovery = discovery
	if err != nil {
		errs = append(errs, fmt.Errorf("discovery: %w", err))
		res.Outcome = worse(res.Outcome, classify(err))
		if ctx.Err() == nil {
			logger.Error("discovery stage failed", zap.Error(err))
		}
	}

	if res.Outcome != OutcomeFatalConfig && ctx.Err() == nil {
		s.setState(StateSampling)
		sampling, err := s.runSampling(ctx)
		res.Sampling = sampling
		if err != nil {
			errs = append(errs, fmt.Errorf("sampling: %w", err))
			res.Outcome = worse(res.Outcome, classify(err))
			if ctx.Err() == nil {
				logger.Error("sampling stage failed", zap.Error(err))
			}
		}
	}

	s.setState(StateIdle)
	res.Err = errors.Join(errs...)
	res.FinishedAt = time.Now().UTC()

	if ctx.Err() == nil {
		observability.RecordCycle(res.Outcome.String(), res.Outcome == OutcomeSuccess, res.FinishedAt)
	}

	s.mu.Lock()
	s.cycles++
	last := res
	s.last = &last
	s.mu.Unlock()

	if s.onCycle != nil {
		s.onCycle(res)
	}
	return res
}

func (s *Scheduler) runDiscovery(ctx context.Context) (report *DiscoveryReport, err error) {
	defer recoverUnit(&err)
	return s.discovery.Run(ctx)
}

func (s *Scheduler) runSampling(ctx context.Context) (report *SamplingReport, err error) {
	defer recoverUnit(&err)
	return s.sampling.Run(ctx)
}

func (s *Scheduler) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Status returns the current scheduler status.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		State:  s.state.String(),
		Cycles: s.cycles,
	}
	if s.last != nil {
		at := s.last.FinishedAt
		st.LastCycleID = s.last.ID
		st.LastOutcome = s.last.Outcome.String()
		st.LastCycleAt = &at
	}
	if s.next != nil {
		next := *s.next
		st.NextCycleAt = &next
	}
	return st
}

func classify(err error) Outcome {
	if errors.Is(err, ErrConfig) {
		return OutcomeFatalConfig
	}
	return OutcomePartialFailure
}

func worse(a, b Outcome) Outcome {
	if b > a {
		return b
	}
	return a
}
