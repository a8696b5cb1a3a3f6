// Package popup models the popup-window login handshake: a secondary login
// completes the OAuth redirect in a popup, and the popup relays the resulting
// code/state back to the opener through a message channel. The Bridge is the
// opener's side of that handshake.
package popup

import (
	"context"
	"sync"
	"time"
)

// Message kinds relayed from the popup window.
const (
	TypeAuthSuccess = "SPOTIFY_AUTH_SUCCESS"
	TypeAuthError   = "SPOTIFY_AUTH_ERROR"
)

// Message is a structured cross-window auth message.
type Message struct {
	Type  string `json:"type"`
	Code  string `json:"code,omitempty"`
	State string `json:"state,omitempty"`
	Error string `json:"error,omitempty"`
}

// Outcome classifies how a login attempt ended.
type Outcome string

// Outcomes. UserClosed and Timeout are cancellations, not system errors.
const (
	OutcomeSuccess    Outcome = "success"
	OutcomeError      Outcome = "error"
	OutcomeUserClosed Outcome = "user_closed_popup"
	OutcomeTimeout    Outcome = "timeout"
)

// Result is the terminal state of one login attempt.
type Result struct {
	Outcome Outcome
	Code    string
	State   string
	Err     string
}

// Default timings for the login attempt.
const (
	DefaultPollInterval = time.Second
	DefaultTimeout      = 5 * time.Minute
)

// Bridge awaits a single auth message for one login attempt. The mailbox
// holds one message: the first delivery wins and duplicates are dropped, so a
// popup that posts its message twice cannot resolve the attempt twice.
type Bridge struct {
	mailbox      chan Message
	alive        func() bool
	pollInterval time.Duration
	timeout      time.Duration

	closeOnce sync.Once
	done      chan struct{}
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLiveness sets the popup liveness probe polled between messages. When
// it reports false the attempt resolves as OutcomeUserClosed.
func WithLiveness(alive func() bool) Option {
	return func(b *Bridge) {
		b.alive = alive
	}
}

// WithPollInterval sets the liveness poll interval.
func WithPollInterval(d time.Duration) Option {
	return func(b *Bridge) {
		b.pollInterval = d
	}
}

// WithTimeout sets the hard deadline for the whole attempt.
func WithTimeout(d time.Duration) Option {
	return func(b *Bridge) {
		b.timeout = d
	}
}

// NewBridge creates a bridge for one login attempt.
func NewBridge(opts ...Option) *Bridge {
	b := &Bridge{
		mailbox:      make(chan Message, 1),
		alive:        func() bool { return true },
		pollInterval: DefaultPollInterval,
		timeout:      DefaultTimeout,
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Deliver hands a message to the bridge without blocking. Only the first
// message is kept; later deliveries are dropped.
func (b *Bridge) Deliver(msg Message) {
	select {
	case b.mailbox <- msg:
	default:
	}
}

// Await blocks until the attempt resolves: a message arrives, the popup
// closes, the hard timeout fires, or ctx is canceled. Teardown is idempotent;
// Await must be called at most once.
func (b *Bridge) Await(ctx context.Context) Result {
	defer b.teardown()

	ticker := time.NewTicker(b.pollInterval)
	defer ticker.Stop()

	deadline := time.NewTimer(b.timeout)
	defer deadline.Stop()

	for {
		select {
		case msg := <-b.mailbox:
			return resultFrom(msg)
		case <-ticker.C:
			if !b.alive() {
				// Drain a message that raced the close poll.
				select {
				case msg := <-b.mailbox:
					return resultFrom(msg)
				default:
				}
				return Result{Outcome: OutcomeUserClosed}
			}
		case <-deadline.C:
			return Result{Outcome: OutcomeTimeout}
		case <-ctx.Done():
			return Result{Outcome: OutcomeUserClosed}
		}
	}
}

// Done is closed once the attempt has resolved.
func (b *Bridge) Done() <-chan struct{} {
	return b.done
}

func (b *Bridge) teardown() {
	b.closeOnce.Do(func() {
		close(b.done)
	})
}

func resultFrom(msg Message) Result {
	switch msg.Type {
	case TypeAuthSuccess:
		return Result{Outcome: OutcomeSuccess, Code: msg.Code, State: msg.State}
	default:
		return Result{Outcome: OutcomeError, Err: msg.Error}
	}
}
