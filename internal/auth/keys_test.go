package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveSlot(t *testing.T) {
	tests := []struct {
		name      string
		state     string
		slot      string
		wantState string
		wantSlot  string
	}{
		{
			name:      "plain state with explicit slot",
			state:     "abc123",
			slot:      "friend_2",
			wantState: "abc123",
			wantSlot:  "friend_2",
		},
		{
			name:      "embedded slot wins over explicit slot",
			state:     "abc123_friend_3",
			slot:      "friend_1",
			wantState: "abc123",
			wantSlot:  "friend_3",
		},
		{
			name:      "embedded slot splits at first underscore",
			state:     "abc_x_y",
			slot:      "",
			wantState: "abc",
			wantSlot:  "x_y",
		},
		{
			name:      "no slot anywhere defaults",
			state:     "abc123",
			slot:      "",
			wantState: "abc123",
			wantSlot:  DefaultSlot,
		},
		{
			name:      "empty state defaults",
			state:     "",
			slot:      "",
			wantState: "",
			wantSlot:  DefaultSlot,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotState, gotSlot := ResolveSlot(tt.state, tt.slot)
			assert.Equal(t, tt.wantState, gotState)
			assert.Equal(t, tt.wantSlot, gotSlot)
		})
	}
}

func TestSlotKeys(t *testing.T) {
	assert.Equal(t, "spotify_state_friend_2", StateKey("friend_2"))
	assert.Equal(t, "barkada_user_friend_2", SlotUserKey("friend_2"))

	assert.True(t, IsStateKey("spotify_state_default"))
	assert.False(t, IsStateKey("barkada_user_default"))
	assert.True(t, IsSlotUserKey("barkada_user_friend_9"))
	assert.False(t, IsSlotUserKey("user_id"))
}
