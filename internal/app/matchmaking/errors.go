package matchmaking

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition means the requested change is not legal from the user's current state.
	ErrInvalidTransition = errors.New("matchmaking: invalid transition")

	// ErrNotWaiting is returned by Cancel when the user is not in the waiting pool.
	ErrNotWaiting = fmt.Errorf("%w: user is not waiting", ErrInvalidTransition)

	// ErrNotPaired is returned by EndSession when the user is not in a session.
	ErrNotPaired = fmt.Errorf("%w: user is not paired", ErrInvalidTransition)

	// ErrConflict means a compound transition lost a race against a concurrent mutation.
	ErrConflict = errors.New("matchmaking: concurrent state change")

	// ErrUserNotFound means the referenced user is not registered.
	ErrUserNotFound = errors.New("matchmaking: user not found")

	// ErrDirectoryUnavailable means the underlying store could not be reached.
	ErrDirectoryUnavailable = errors.New("matchmaking: directory unavailable")
)
