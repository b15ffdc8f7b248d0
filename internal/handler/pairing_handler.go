package handler

import (
	"net/http"

	"anonchat/internal/app/chat"
	"anonchat/internal/app/user"
	"anonchat/internal/pkg/resp"
)

// Status is the lifecycle view returned by every pairing command.
type Status struct {
	State      user.State `json:"state"`
	HasPartner bool       `json:"hasPartner"`
}

// HandleSearch puts the caller into the waiting pool.
func HandleSearch(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.StateMachine.RequestPairing(r.Context(), identity(r)); err != nil {
			resp.RespondError(w, r, chat.ToCustomError(err))
			return
		}

		resp.RespondSuccess(w, r, Status{State: user.StateWaiting})
	}
}

// HandleCancel takes the caller out of the waiting pool.
func HandleCancel(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.StateMachine.Cancel(r.Context(), identity(r)); err != nil {
			resp.RespondError(w, r, chat.ToCustomError(err))
			return
		}

		resp.RespondSuccess(w, r, Status{State: user.StateIdle})
	}
}

// HandleEndSession ends the caller's session; the partner is told asynchronously.
func HandleEndSession(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := deps.Teardown.EndSession(r.Context(), identity(r)); err != nil {
			resp.RespondError(w, r, chat.ToCustomError(err))
			return
		}

		resp.RespondSuccess(w, r, Status{State: user.StateIdle})
	}
}

// HandleStatus reports the caller's state and whether a partner exists.
func HandleStatus(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := deps.StateMachine.Lookup(r.Context(), identity(r))
		if err != nil {
			resp.RespondError(w, r, chat.ToCustomError(err))
			return
		}

		resp.RespondSuccess(w, r, Status{State: u.State, HasPartner: u.IsPaired()})
	}
}
