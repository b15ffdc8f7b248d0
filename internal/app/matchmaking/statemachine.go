/*
Package matchmaking implements the user lifecycle: the state machine that guards every state
change, the pairing engine that links waiting users, session teardown, and the asynchronous
dispatch of partner notifications.

All state lives in the directory. Nothing in this package holds a lock across operations, so
several processes may run engines and command handlers against the same directory.
*/
package matchmaking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/sethvargo/go-retry"

	"anonchat/internal/app/directory"
	"anonchat/internal/app/user"
)

// unpairAttempts bounds how often EndSession re-reads the partner after losing a race.
const unpairAttempts = 3

// StateMachine applies legal lifecycle transitions to the directory and translates every
// directory failure into this package's error taxonomy.
type StateMachine struct {
	dir directory.Directory
}

// NewStateMachine constructs a StateMachine over dir.
func NewStateMachine(dir directory.Directory) *StateMachine {
	return &StateMachine{dir: dir}
}

// Lookup returns the current record of a user.
func (sm *StateMachine) Lookup(ctx context.Context, id user.ID) (user.User, error) {
	u, err := sm.dir.FindByID(ctx, id)
	if err != nil {
		return user.User{}, translate(err, ErrConflict)
	}
	return u, nil
}

// Waiting returns a snapshot of the ids currently in the waiting pool.
func (sm *StateMachine) Waiting(ctx context.Context) ([]user.ID, error) {
	users, err := sm.dir.FindByState(ctx, user.StateWaiting)
	if err != nil {
		return nil, translate(err, ErrConflict)
	}

	return lo.Map(users, func(u user.User, _ int) user.ID { return u.ID }), nil
}

// RequestPairing moves an idle user into the waiting pool.
func (sm *StateMachine) RequestPairing(ctx context.Context, id user.ID) error {
	err := sm.dir.TryTransition(ctx, id, user.StateIdle, user.StateWaiting)
	return translate(err, ErrInvalidTransition)
}

// Cancel takes a waiting user out of the pool.
func (sm *StateMachine) Cancel(ctx context.Context, id user.ID) error {
	err := sm.dir.TryTransition(ctx, id, user.StateWaiting, user.StateIdle)
	return translate(err, ErrNotWaiting)
}

// Pair links two waiting users to each other. Both change or neither does.
func (sm *StateMachine) Pair(ctx context.Context, a, b user.ID) error {
	if a == b {
		return fmt.Errorf("%w: cannot pair %s with itself", ErrInvalidTransition, a)
	}

	err := sm.dir.TryCompoundPair(ctx, a, b)
	return translate(err, ErrConflict)
}

// EndSession returns a paired user and their partner to idle and reports the released partner.
// When the compound update loses a race while the user still looks paired, it is retried with
// a fresh read of the partner.
func (sm *StateMachine) EndSession(ctx context.Context, id user.ID) (user.ID, error) {
	var partner user.ID

	backoff := retry.WithMaxRetries(unpairAttempts-1, retry.NewExponential(10*time.Millisecond))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		p, err := sm.dir.TryCompoundUnpair(ctx, id)
		if err == nil {
			partner = p
			return nil
		}
		if !errors.Is(err, directory.ErrConflict) {
			return translate(err, ErrConflict)
		}

		// Tell "not paired" apart from a lost race.
		u, lookupErr := sm.dir.FindByID(ctx, id)
		if lookupErr != nil {
			return translate(lookupErr, ErrConflict)
		}
		if u.State != user.StatePaired {
			return ErrNotPaired
		}
		return retry.RetryableError(ErrConflict)
	})
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return user.NoPartner, translate(err, ErrConflict)
	}
	if err != nil {
		return user.NoPartner, err
	}

	return partner, nil
}

// translate maps a directory error onto the matchmaking taxonomy. onConflict is the error a
// failed guard means for the calling operation. Anything else, timeouts included, is an
// unavailable directory.
func translate(err, onConflict error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, directory.ErrNotFound):
		return ErrUserNotFound
	case errors.Is(err, directory.ErrConflict):
		return onConflict
	}
	return fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
}
