package matchmaking

import (
	"context"

	"github.com/rs/zerolog"

	"anonchat/internal/app/user"
	"anonchat/internal/pkg/logx"
)

// Teardown ends sessions on behalf of either participant.
type Teardown struct {
	sm     *StateMachine
	events *Dispatcher
	logger zerolog.Logger
}

// NewTeardown constructs a Teardown that announces ended sessions through events.
func NewTeardown(sm *StateMachine, events *Dispatcher) *Teardown {
	return &Teardown{
		sm:     sm,
		events: events,
		logger: logx.Component("Teardown"),
	}
}

// EndSession returns id and its partner to idle and tells the partner they were left.
// A second call for the same session fails with ErrNotPaired and notifies nobody.
func (t *Teardown) EndSession(ctx context.Context, id user.ID) (user.ID, error) {
	partner, err := t.sm.EndSession(ctx, id)
	if err != nil {
		return user.NoPartner, err
	}

	t.logger.Info().Str("user_id", id.String()).Str("partner_id", partner.String()).Msg("Session ended.")
	t.events.Dispatch(partner, EventPartnerLeft)

	return partner, nil
}
