package presence

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/klipach/firechat/log"
	"github.com/klipach/firechat/user"
)

const (
	uidLogField      = "userID"
	errorMsgLogField = "errorMsg"
)

// Backend is the slice of the document store presence needs.
type Backend interface {
	// SetPresence flips the online flag; the store stamps lastSeen with the
	// server time on every transition.
	SetPresence(ctx context.Context, uid string, online bool) error
	// SetTypingTo points typingTo at peer, or clears it when peer is empty.
	SetTypingTo(ctx context.Context, uid, peer string) error
	// WatchUser delivers the user record on every change until unsubscribed.
	WatchUser(ctx context.Context, uid string, fn func(user.User)) (user.Unsubscribe, error)
}

// Tracker runs the two per-user presence state machines: the online flag and
// the debounced typing pointer. Draft changes are written trailing-edge
// only: during a keystroke burst the timer keeps resetting, and the single
// value standing after the quiet period is the only one persisted.
type Tracker struct {
	uid      string
	backend  Backend
	debounce time.Duration

	mu          sync.Mutex
	timer       *time.Timer
	pending     string
	lastWritten string
	closed      bool
}

func NewTracker(uid string, b Backend, debounce time.Duration) *Tracker {
	return &Tracker{
		uid:      uid,
		backend:  b,
		debounce: debounce,
	}
}

// Online marks the user online. Called on session start and whenever the
// auth state becomes present.
func (t *Tracker) Online(ctx context.Context) error {
	if err := t.backend.SetPresence(ctx, t.uid, true); err != nil {
		return fmt.Errorf("set online: %w", err)
	}
	return nil
}

// Offline marks the user offline. Logout awaits it so the visible
// transition is not lost; tab teardown fires it best-effort.
func (t *Tracker) Offline(ctx context.Context) error {
	if err := t.backend.SetPresence(ctx, t.uid, false); err != nil {
		return fmt.Errorf("set offline: %w", err)
	}
	return nil
}

// SetDraft records the current input buffer for peer and (re)arms the
// debounce timer. A non-empty buffer resolves to typingTo=peer, an empty
// one to a clear.
func (t *Tracker) SetDraft(ctx context.Context, peer, text string) {
	target := ""
	if strings.TrimSpace(text) != "" {
		target = peer
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.pending = target
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(t.debounce, func() { t.flush(ctx) })
}

// Close cancels any pending write and clears the typing pointer
// unconditionally, best-effort. The tracker takes no further drafts.
func (t *Tracker) Close(ctx context.Context) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.mu.Unlock()

	if err := t.backend.SetTypingTo(ctx, t.uid, ""); err != nil {
		log.LoggerFromContext(ctx).Warn("could not clear typing pointer",
			slog.String(uidLogField, t.uid),
			slog.String(errorMsgLogField, err.Error()),
		)
	}
}

// flush commits the pending value after the quiet period. Writing the same
// value twice in a row is skipped, so a burst that ends where it started
// (typed then deleted) persists nothing.
func (t *Tracker) flush(ctx context.Context) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	target := t.pending
	if target == t.lastWritten {
		t.mu.Unlock()
		return
	}
	t.lastWritten = target
	t.mu.Unlock()

	if err := t.backend.SetTypingTo(ctx, t.uid, target); err != nil {
		log.LoggerFromContext(ctx).Warn("could not write typing pointer",
			slog.String(uidLogField, t.uid),
			slog.String(errorMsgLogField, err.Error()),
		)
	}
}

// TypingToMe reports whether peer is currently composing to me.
func TypingToMe(peer user.User, me string) bool {
	return peer.TypingTo == me
}
