package matchmaking

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"anonchat/internal/app/user"
	"anonchat/internal/pkg/logx"
	"anonchat/internal/pkg/randx"
)

const (
	// CycleInterval is the fixed delay between two pairing cycles.
	CycleInterval = 100 * time.Millisecond

	// ScanTimeout bounds the waiting-pool read of a single cycle.
	ScanTimeout = 2 * time.Second

	// TransitionTimeout bounds one compound pair transition. It is detached from the caller's
	// context, so shutdown never interrupts a transition that has started.
	TransitionTimeout = 5 * time.Second
)

// PickFunc chooses two distinct users from a waiting snapshot of at least two.
type PickFunc func(pool []user.ID) (user.ID, user.ID, error)

// Engine forms pairs out of the waiting pool. It keeps no state between cycles.
type Engine struct {
	sm       *StateMachine
	events   *Dispatcher
	pick     PickFunc
	interval time.Duration
	logger   zerolog.Logger
}

// EngineOption customises an Engine.
type EngineOption func(*Engine)

// WithInterval overrides CycleInterval.
func WithInterval(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.interval = d
		}
	}
}

// WithPicker replaces the uniform random selection.
func WithPicker(pick PickFunc) EngineOption {
	return func(e *Engine) {
		if pick != nil {
			e.pick = pick
		}
	}
}

// NewEngine constructs an Engine that announces new pairs through events.
func NewEngine(sm *StateMachine, events *Dispatcher, opts ...EngineOption) *Engine {
	e := &Engine{
		sm:       sm,
		events:   events,
		pick:     randx.PickPair[user.ID],
		interval: CycleInterval,
		logger:   logx.Component("PairingEngine"),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Run repeats RunCycle every interval until ctx is cancelled. Errors of a single cycle are
// logged and never stop the loop.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	e.logger.Info().Dur("interval", e.interval).Msg("Pairing engine started.")

	for {
		select {
		case <-ctx.Done():
			e.logger.Info().Msg("Pairing engine stopped.")
			return
		case <-ticker.C:
			if _, err := e.RunCycle(ctx); err != nil && ctx.Err() == nil {
				e.logger.Error().Err(err).Msg("Pairing cycle failed.")
			}
		}
	}
}

// RunCycle performs one pairing attempt and reports whether a pair was formed.
// A lost race is not an error: the next cycle works from a fresh snapshot.
func (e *Engine) RunCycle(ctx context.Context) (bool, error) {
	scanCtx, cancel := context.WithTimeout(ctx, ScanTimeout)
	pool, err := e.sm.Waiting(scanCtx)
	cancel()
	if err != nil {
		return false, err
	}

	if len(pool) < 2 {
		return false, nil
	}

	a, b, err := e.pick(pool)
	if err != nil {
		return false, err
	}

	pairCtx, cancelPair := context.WithTimeout(context.WithoutCancel(ctx), TransitionTimeout)
	err = e.sm.Pair(pairCtx, a, b)
	cancelPair()

	switch {
	case err == nil:
	case errors.Is(err, ErrConflict), errors.Is(err, ErrUserNotFound):
		e.logger.Debug().Str("first", a.String()).Str("second", b.String()).Msg("Pair attempt discarded.")
		return false, nil
	default:
		return false, err
	}

	e.logger.Info().Str("first", a.String()).Str("second", b.String()).Int("pool_size", len(pool)).Msg("Users paired.")

	e.events.Dispatch(a, EventPartnerFound)
	e.events.Dispatch(b, EventPartnerFound)

	return true, nil
}
