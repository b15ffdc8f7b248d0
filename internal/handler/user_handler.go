/*
Package handler provides HTTP handler functions for anonymous registration and profile management.
*/
package handler

import (
	"errors"
	"net/http"

	"anonchat/internal/app/chat"
	"anonchat/internal/app/directory"
	"anonchat/internal/app/matchmaking"
	"anonchat/internal/app/user"
	"anonchat/internal/pkg/auth/jwt"
	"anonchat/internal/pkg/errs"
	"anonchat/internal/pkg/logx"
	"anonchat/internal/pkg/randx"
	"anonchat/internal/pkg/req"
	"anonchat/internal/pkg/resp"
)

// RegisterInput carries the optional attributes chosen at registration.
type RegisterInput struct {
	DisplayName string `json:"displayName" validate:"omitempty,min=1,max=32"`
	Gender      string `json:"gender"`
}

// GenderInput is the body of the set-gender command.
type GenderInput struct {
	Gender string `json:"gender" validate:"required"`
}

// Profile is the client-facing view of a user. It reports whether a partner exists, never who.
type Profile struct {
	user.User
	HasPartner bool `json:"hasPartner"`
}

func newProfile(u user.User) Profile {
	return Profile{User: u, HasPartner: u.IsPaired()}
}

// HandleRegister creates a new anonymous identity in the idle state and returns its token.
// A caller that already holds a valid token for a registered user gets that user back with a
// refreshed token instead, so repeating the command is harmless.
func HandleRegister(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if payload := jwt.GetPayloadFromContext(r); payload != nil {
			u, err := deps.StateMachine.Lookup(r.Context(), user.ID(payload.ID))
			switch {
			case err == nil:
				respondWithToken(w, r, deps, u)
				return
			case !errors.Is(err, matchmaking.ErrUserNotFound):
				resp.RespondError(w, r, chat.ToCustomError(err))
				return
			}
			logx.Debug("register: token user not found, creating a new identity", "user_id", payload.ID)
		}

		var input RegisterInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		newUser := user.User{
			ID:          user.ID(randx.UserID()),
			DisplayName: input.DisplayName,
		}

		if input.Gender != "" {
			gender, err := user.ParseGender(input.Gender)
			if err != nil {
				resp.RespondError(w, r, errs.NewError(errs.ErrInvalidGender))
				return
			}
			newUser.Gender = gender
		}

		if newUser.DisplayName == "" {
			nickname, err := randx.UserNickname()
			if err != nil {
				nickname = "Anon_X"
			}
			newUser.DisplayName = nickname
		}

		if err := deps.Directory.Register(r.Context(), newUser); err != nil {
			resp.RespondError(w, r, directoryError(err))
			return
		}

		u, err := deps.StateMachine.Lookup(r.Context(), newUser.ID)
		if err != nil {
			resp.RespondError(w, r, chat.ToCustomError(err))
			return
		}

		logx.Info("User registered", "user_id", u.ID.String())

		respondWithToken(w, r, deps, u)
	}
}

func respondWithToken(w http.ResponseWriter, r *http.Request, deps *AppDeps, u user.User) {
	token, err := jwt.GenerateToken(&jwt.Payload{
		ID:       u.ID.String(),
		Nickname: u.DisplayName,
	}, deps.Config.JWTSecret, jwt.IdentityExpiration)
	if err != nil {
		resp.RespondError(w, r, errs.NewError(errs.ErrUnknown, err))
		return
	}

	resp.RespondSuccess(w, r, map[string]any{
		"token": token,
		"user":  newProfile(u),
	})
}

// HandleGetMe returns the caller's profile and lifecycle state.
func HandleGetMe(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := deps.StateMachine.Lookup(r.Context(), identity(r))
		if err != nil {
			resp.RespondError(w, r, chat.ToCustomError(err))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"user": newProfile(u)})
	}
}

// HandleSetGender updates the caller's gender. Only male, female and other are accepted.
func HandleSetGender(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input GenderInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		gender, err := user.ParseGender(input.Gender)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidGender))
			return
		}

		id := identity(r)
		if err := deps.Directory.SetGender(r.Context(), id, gender); err != nil {
			resp.RespondError(w, r, directoryError(err))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"gender": gender})
	}
}

// identity returns the caller's id. Routes using it sit behind jwt.RequireIdentity.
func identity(r *http.Request) user.ID {
	return user.ID(jwt.GetPayloadFromContext(r).ID)
}

// directoryError converts errors of direct Directory calls into client errors.
func directoryError(err error) *errs.CustomError {
	switch {
	case errors.Is(err, directory.ErrNotFound):
		return errs.NewError(errs.ErrUserNotFound)
	case errors.Is(err, directory.ErrUnavailable):
		return errs.NewError(errs.ErrDirectoryUnavailable)
	}
	return errs.NewError(errs.ErrUnknown, err)
}
