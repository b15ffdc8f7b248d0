package chat

import (
	"errors"

	"anonchat/internal/app/matchmaking"
	"anonchat/internal/pkg/errs"
)

var (
	// ErrNotConnected is returned by Hub.Deliver when the user has no live connection.
	ErrNotConnected = errors.New("chat: user is not connected")

	// ErrSendQueueFull is returned when a connection's outbound queue cannot take another frame.
	ErrSendQueueFull = errors.New("chat: client send queue full")

	// ErrNotInSession is returned by Relay.Forward when the sender has no partner.
	ErrNotInSession = errors.New("chat: sender is not in a session")

	// ErrPartnerGone is returned by Relay.Forward after a delivery failure ended the session.
	ErrPartnerGone = errors.New("chat: partner is gone, session ended")
)

// codes maps domain errors to their client-facing error code. More specific errors come first
// because ErrNotWaiting and ErrNotPaired also match ErrInvalidTransition.
var codes = []struct {
	err  error
	code int
}{
	{matchmaking.ErrNotWaiting, errs.ErrNotWaiting},
	{matchmaking.ErrNotPaired, errs.ErrNotPaired},
	{matchmaking.ErrInvalidTransition, errs.ErrInvalidTransition},
	{matchmaking.ErrConflict, errs.ErrPairingConflict},
	{matchmaking.ErrUserNotFound, errs.ErrUserNotFound},
	{matchmaking.ErrDirectoryUnavailable, errs.ErrDirectoryUnavailable},
	{ErrNotInSession, errs.ErrNotInSession},
	{ErrPartnerGone, errs.ErrPartnerGone},
	{ErrSendQueueFull, errs.ErrPartnerBusy},
}

// ToCustomError converts an error returned by the matchmaking core or the relay into the
// CustomError reported over HTTP and websocket. Unrecognised errors become ErrUnknown.
func ToCustomError(err error) *errs.CustomError {
	if err == nil {
		return nil
	}

	var customErr *errs.CustomError
	if errors.As(err, &customErr) {
		return customErr
	}

	for _, c := range codes {
		if errors.Is(err, c.err) {
			return errs.NewError(c.code)
		}
	}

	return errs.NewError(errs.ErrUnknown, err)
}
