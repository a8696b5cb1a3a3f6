package popup

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBridgeSuccess(t *testing.T) {
	b := NewBridge()
	b.Deliver(Message{Type: TypeAuthSuccess, Code: "code1", State: "state1"})

	result := b.Await(context.Background())
	assert.Equal(t, OutcomeSuccess, result.Outcome)
	assert.Equal(t, "code1", result.Code)
	assert.Equal(t, "state1", result.State)

	select {
	case <-b.Done():
	default:
		t.Fatal("done channel not closed after Await")
	}
}

func TestBridgeError(t *testing.T) {
	b := NewBridge()
	b.Deliver(Message{Type: TypeAuthError, Error: "access_denied"})

	result := b.Await(context.Background())
	assert.Equal(t, OutcomeError, result.Outcome)
	assert.Equal(t, "access_denied", result.Err)
}

func TestBridgeFirstMessageWins(t *testing.T) {
	b := NewBridge()
	b.Deliver(Message{Type: TypeAuthSuccess, Code: "first"})
	b.Deliver(Message{Type: TypeAuthSuccess, Code: "second"})
	b.Deliver(Message{Type: TypeAuthError, Error: "late"})

	result := b.Await(context.Background())
	assert.Equal(t, OutcomeSuccess, result.Outcome)
	assert.Equal(t, "first", result.Code)
}

func TestBridgeClosedPopup(t *testing.T) {
	var closed atomic.Bool
	b := NewBridge(
		WithLiveness(func() bool { return !closed.Load() }),
		WithPollInterval(5*time.Millisecond),
	)
	closed.Store(true)

	result := b.Await(context.Background())
	assert.Equal(t, OutcomeUserClosed, result.Outcome)
}

func TestBridgeMessageBeatsClosePoll(t *testing.T) {
	// A message delivered in the same poll window as the close must win.
	b := NewBridge(
		WithLiveness(func() bool { return false }),
		WithPollInterval(20*time.Millisecond),
	)
	b.Deliver(Message{Type: TypeAuthSuccess, Code: "raced"})

	result := b.Await(context.Background())
	assert.Equal(t, OutcomeSuccess, result.Outcome)
	assert.Equal(t, "raced", result.Code)
}

func TestBridgeTimeout(t *testing.T) {
	b := NewBridge(
		WithTimeout(10*time.Millisecond),
		WithPollInterval(time.Hour),
	)

	result := b.Await(context.Background())
	assert.Equal(t, OutcomeTimeout, result.Outcome)
}

func TestBridgeContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := NewBridge(WithPollInterval(time.Hour))
	result := b.Await(ctx)
	assert.Equal(t, OutcomeUserClosed, result.Outcome)
}

func TestWriteRelayPage(t *testing.T) {
	var sb strings.Builder
	msg := Message{Type: TypeAuthSuccess, Code: "c1", State: "s1"}
	require.NoError(t, WriteRelayPage(&sb, msg, "https://app.example.com", "https://app.example.com/callback"))

	page := sb.String()
	assert.Contains(t, page, "SPOTIFY_AUTH_SUCCESS")
	assert.Contains(t, page, `"c1"`)
	assert.Contains(t, page, "window.opener")
	assert.Contains(t, page, "app.example.com")
}

func TestWriteRelayPageError(t *testing.T) {
	var sb strings.Builder
	msg := Message{Type: TypeAuthError, Error: "access_denied"}
	require.NoError(t, WriteRelayPage(&sb, msg, "*", "https://app.example.com"))

	page := sb.String()
	assert.Contains(t, page, "SPOTIFY_AUTH_ERROR")
	assert.Contains(t, page, "Authentication failed")
}
