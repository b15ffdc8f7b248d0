/*
Package user contains core data structures related to user identity and lifecycle state.

It defines the representation of a participant (the User struct), the three lifecycle states
a participant can be in, and the table of legal state moves shared by every Directory driver
and the matchmaking state machine.
*/
package user

import (
	"fmt"
	"time"
)

// ID is the opaque, immutable identifier of a user.
type ID string

// NoPartner is the zero ID, used as the partner reference of users that are not paired.
const NoPartner ID = ""

// String returns the canonical string form.
func (id ID) String() string { return string(id) }

// IsZero reports whether id is the zero value.
func (id ID) IsZero() bool { return id == NoPartner }

// State is the lifecycle state of a user. A user is in exactly one state at any time.
type State string

const (
	// StateIdle is the resting state: not searching and not in a session.
	StateIdle State = "idle"

	// StateWaiting means the user is in the waiting pool, a candidate for pairing.
	StateWaiting State = "waiting"

	// StatePaired means the user is in a session with exactly one partner.
	StatePaired State = "paired"
)

// ParseState converts a raw string into a State, rejecting anything outside the three known states.
func ParseState(s string) (State, error) {
	switch State(s) {
	case StateIdle, StateWaiting, StatePaired:
		return State(s), nil
	}
	return "", fmt.Errorf("unknown user state %q", s)
}

// Gender is an optional self-declared attribute of a user.
type Gender string

const (
	GenderUnset  Gender = ""
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// ParseGender accepts only the allowed gender values.
func ParseGender(s string) (Gender, error) {
	switch Gender(s) {
	case GenderMale, GenderFemale, GenderOther:
		return Gender(s), nil
	}
	return GenderUnset, fmt.Errorf("gender %q is not one of male, female, other", s)
}

// User represents the durable record of a participant.
// Fields use JSON tags for serialization in HTTP responses.
type User struct {
	// ID is the unique identifier for the user.
	ID ID `json:"id"`

	// DisplayName is the optional human label chosen at registration.
	DisplayName string `json:"displayName,omitempty"`

	// Gender is optional and may be changed after registration.
	Gender Gender `json:"gender,omitempty"`

	// State is the current lifecycle state.
	State State `json:"state"`

	// PartnerID is set if and only if State is StatePaired.
	PartnerID ID `json:"-"`

	RegisteredAt time.Time `json:"registeredAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// IsPaired reports whether the user is currently in a session.
func (u User) IsPaired() bool {
	return u.State == StatePaired && !u.PartnerID.IsZero()
}

// Consistent checks the single-record invariants: a partner exists exactly when paired,
// and a user is never its own partner.
func (u User) Consistent() bool {
	if u.PartnerID == u.ID {
		return false
	}
	return (u.State == StatePaired) == !u.PartnerID.IsZero()
}

// CanTransition reports whether moving a user from one state to another is a legal move.
// Moves into or out of StatePaired are compound and must be applied to both partners together.
func CanTransition(from, to State) bool {
	switch from {
	case StateIdle:
		return to == StateWaiting
	case StateWaiting:
		return to == StateIdle || to == StatePaired
	case StatePaired:
		return to == StateIdle
	}
	return false
}

// IsCompound reports whether a legal move touches a partner and therefore needs a compound update.
func IsCompound(from, to State) bool {
	return from == StatePaired || to == StatePaired
}
