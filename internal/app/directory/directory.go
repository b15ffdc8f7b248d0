//go:generate go run go.uber.org/mock/mockgen -source=directory.go -destination=../mocks/mock_directory.go -package=mocks

/*
Package directory defines the durable store of per-user lifecycle state and partner linkage.

The Directory is the only shared mutable resource of the system. Every compound change (pairing
two users, ending a session) is applied atomically by the driver, so any number of processes may
operate on the same Directory without in-process locks.
*/
package directory

import (
	"context"
	"errors"
	"fmt"

	"anonchat/internal/app/user"
)

var (
	// ErrNotFound is returned when the referenced user does not exist.
	ErrNotFound = errors.New("directory: user not found")

	// ErrAlreadyExists is returned by Register when the id is taken.
	ErrAlreadyExists = errors.New("directory: user already exists")

	// ErrConflict is returned when a conditional update's guard failed: a user was not in the
	// expected state, or a concurrent writer changed it first. Nothing was written.
	ErrConflict = errors.New("directory: conflict")

	// ErrUnavailable wraps any failure of the underlying store.
	ErrUnavailable = errors.New("directory: unavailable")
)

// Directory is the capability interface consumed by the matchmaking core.
type Directory interface {
	// Register inserts a new user. The user is always stored as idle without a partner.
	Register(ctx context.Context, u user.User) error

	// FindByID returns the user with the given id, or ErrNotFound.
	FindByID(ctx context.Context, id user.ID) (user.User, error)

	// FindByState returns a snapshot of all users currently in the given state.
	FindByState(ctx context.Context, state user.State) ([]user.User, error)

	// TryTransition moves a single user from one state to another if, and only if, the user is
	// currently in the expected state. Only moves that never involve a partner are accepted.
	TryTransition(ctx context.Context, id user.ID, from, to user.State) error

	// TryCompoundPair links two waiting users to each other as a single atomic unit.
	TryCompoundPair(ctx context.Context, a, b user.ID) error

	// TryCompoundUnpair returns a paired user and its partner to idle as a single atomic unit,
	// reading the partner inside the same unit. It returns the partner that was released.
	TryCompoundUnpair(ctx context.Context, id user.ID) (user.ID, error)

	// SetGender updates the user's optional gender attribute.
	SetGender(ctx context.Context, id user.ID, gender user.Gender) error

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error

	// Close releases underlying resources.
	Close() error
}

// checkSingleMove validates the arguments of TryTransition before any driver touches the store.
func checkSingleMove(from, to user.State) error {
	if !user.CanTransition(from, to) || user.IsCompound(from, to) {
		return fmt.Errorf("%w: %s -> %s is not a single-user move", ErrConflict, from, to)
	}
	return nil
}

// checkPair validates the arguments of TryCompoundPair.
func checkPair(a, b user.ID) error {
	if a.IsZero() || b.IsZero() {
		return fmt.Errorf("%w: empty user id", ErrNotFound)
	}
	if a == b {
		return fmt.Errorf("%w: cannot pair %s with itself", ErrConflict, a)
	}
	return nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
}

var (
	_ Directory = (*Postgres)(nil)
	_ Directory = (*Badger)(nil)
)
