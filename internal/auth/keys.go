package auth

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultSlot is the friend slot used when none is given.
const DefaultSlot = "default"

// Session keys. State and slot-user keys are namespaced by friend slot so
// multiple concurrently-authenticated friends coexist in one browser session.
const (
	statePrefix    = "spotify_state_"
	slotUserPrefix = "barkada_user_"

	KeyUserID         = "user_id"
	KeyAccessToken    = "spotify_access_token"
	KeyRefreshToken   = "spotify_refresh_token"
	KeyTokenExpiresAt = "token_expires_at"
)

// StateKey returns the pending-state session key for a friend slot.
func StateKey(slot string) string {
	return statePrefix + slot
}

// SlotUserKey returns the authenticated-user session key for a friend slot.
func SlotUserKey(slot string) string {
	return slotUserPrefix + slot
}

// IsSlotUserKey reports whether a session key holds a friend slot's user
// entry.
func IsSlotUserKey(key string) bool {
	return strings.HasPrefix(key, slotUserPrefix)
}

// IsStateKey reports whether a session key holds a pending OAuth state.
func IsStateKey(key string) bool {
	return strings.HasPrefix(key, statePrefix)
}

// ResolveSlot splits a callback state parameter into the actual state and the
// friend slot. Secondary logins embed the slot into the state as
// "{state}_{slot}"; an embedded slot wins over the explicit parameter.
func ResolveSlot(state, slot string) (actualState, resolvedSlot string) {
	if slot == "" {
		slot = DefaultSlot
	}
	if i := strings.Index(state, "_"); i >= 0 {
		actualState = state[:i]
		if embedded := state[i+1:]; embedded != "" {
			slot = embedded
		}
		return actualState, slot
	}
	return state, slot
}

// SlotEntry is the per-friend-slot session record written on a successful
// callback.
type SlotEntry struct {
	UserID       uuid.UUID `json:"user_id"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	FriendSlot   string    `json:"friend_slot"`
	AddedAt      time.Time `json:"added_at"`
}
