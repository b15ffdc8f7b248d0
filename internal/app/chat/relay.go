package chat

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"anonchat/internal/app/matchmaking"
	"anonchat/internal/app/user"
	"anonchat/internal/pkg/logx"
)

// Deliverer pushes a frame to one user's live connection.
type Deliverer interface {
	Deliver(id user.ID, msg Message) error
}

// Relay forwards content between the two members of a session.
type Relay struct {
	sm       *matchmaking.StateMachine
	teardown *matchmaking.Teardown
	out      Deliverer
	logger   zerolog.Logger
}

// NewRelay wires a relay to the matchmaking core and the outbound transport.
func NewRelay(sm *matchmaking.StateMachine, teardown *matchmaking.Teardown, out Deliverer) *Relay {
	return &Relay{
		sm:       sm,
		teardown: teardown,
		out:      out,
		logger:   logx.Component("Relay"),
	}
}

// Forward delivers msg from a user to that user's current partner. The partner is read from the
// directory on every call, so a message sent after the session ended is refused with
// ErrNotInSession rather than reaching a former partner.
//
// A partner without a live connection cannot be reached at all; the session is ended on the
// sender's behalf and ErrPartnerGone is returned. A partner whose queue is full stays in the
// session; ErrSendQueueFull goes back to the sender, who may resend.
func (r *Relay) Forward(ctx context.Context, from user.ID, msg Message) error {
	u, err := r.sm.Lookup(ctx, from)
	if err != nil {
		return err
	}
	if !u.IsPaired() {
		return ErrNotInSession
	}

	err = r.out.Deliver(u.PartnerID, msg)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrNotConnected) {
		return err
	}

	r.logger.Info().
		Str("user_id", from.String()).
		Msg("Partner unreachable, ending session.")

	if _, endErr := r.teardown.EndSession(ctx, from); endErr != nil && !errors.Is(endErr, matchmaking.ErrNotPaired) {
		r.logger.Error().Err(endErr).Str("user_id", from.String()).Msg("Failed to end session after relay failure.")
		return endErr
	}

	return ErrPartnerGone
}
