// Package client is the per-session engine: it owns the signed-in user's
// presence, roster, unread counts and the one open conversation, and wires
// a send through the log append and the push dispatch.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/klipach/firechat/chat"
	"github.com/klipach/firechat/log"
	"github.com/klipach/firechat/presence"
	"github.com/klipach/firechat/push"
	"github.com/klipach/firechat/user"
)

const (
	peerLogField     = "peerID"
	chatIDLogField   = "chatID"
	outcomeLogField  = "outcome"
	errorMsgLogField = "errorMsg"
)

// ErrNoActiveConversation is returned for a send or draft without an open
// conversation.
var ErrNoActiveConversation = errors.New("no active conversation")

// Callbacks is how the engine reports state to the rendering layer. Every
// callback receives a fresh snapshot; nil callbacks are skipped.
type Callbacks struct {
	Messages func(peerID string, msgs []chat.Message)
	Typing   func(peerID string, typing bool)
	Roster   func(peers []user.User)
	Unread   func(counts map[string]int)
}

// Deps are the collaborators a session runs against.
type Deps struct {
	Users          user.Store
	Log            *chat.Log
	Presence       presence.Backend
	Dispatcher     *push.Dispatcher
	TypingDebounce time.Duration
}

// Session is one signed-in client. All of its subscriptions are owned here
// and torn down on peer switch, conversation close and session shutdown, so
// listeners never leak across navigation.
type Session struct {
	me      user.User
	deps    Deps
	cb      Callbacks
	tracker *presence.Tracker
	unread  *chat.UnreadCounter

	mu           sync.Mutex
	activePeer   string
	convUnsub    chat.Unsubscribe
	peerUnsub    user.Unsubscribe
	rosterUnsub  user.Unsubscribe
	bootstrapped bool
	closed       bool
}

func NewSession(me user.User, deps Deps, cb Callbacks) *Session {
	s := &Session{me: me, deps: deps, cb: cb}
	s.tracker = presence.NewTracker(me.UID, deps.Presence, deps.TypingDebounce)
	s.unread = chat.NewUnreadCounter(me.UID, deps.Log, cb.Unread)
	return s
}

// Start marks the user online and begins following the roster. The first
// roster snapshot additionally runs the bulk unread pass, so the counts are
// populated before the per-peer subscriptions settle.
func (s *Session) Start(ctx context.Context) error {
	if err := s.tracker.Online(ctx); err != nil {
		return err
	}

	unsub, err := user.WatchRoster(ctx, s.deps.Users, s.me.UID, func(peers []user.User) {
		logger := log.LoggerFromContext(ctx)
		ids := make([]string, len(peers))
		for i, p := range peers {
			ids[i] = p.UID
		}

		s.mu.Lock()
		first := !s.bootstrapped
		s.bootstrapped = true
		s.mu.Unlock()

		if first {
			if err := s.unread.Bootstrap(ctx, ids); err != nil {
				logger.Error("unread bootstrap failed", slog.String(errorMsgLogField, err.Error()))
			}
		}
		if err := s.unread.Sync(ctx, ids); err != nil {
			logger.Error("unread sync failed", slog.String(errorMsgLogField, err.Error()))
		}
		if s.cb.Roster != nil {
			s.cb.Roster(peers)
		}
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.rosterUnsub = unsub
	s.mu.Unlock()
	return nil
}

// Open switches the active conversation to peerID. The previous
// conversation's subscriptions are torn down first. Every delivered
// snapshot is rendered and then marked seen for the records addressed to
// this user; re-deliveries are no-ops.
func (s *Session) Open(ctx context.Context, peerID string) error {
	chatID, err := chat.PairID(s.me.UID, peerID)
	if err != nil {
		return err
	}

	s.CloseConversation(ctx)

	convUnsub, err := s.deps.Log.Subscribe(ctx, chatID, func(msgs []chat.Message) {
		if s.cb.Messages != nil {
			s.cb.Messages(peerID, msgs)
		}
		if err := s.deps.Log.MarkSeen(ctx, chatID, s.me.UID, msgs); err != nil {
			log.LoggerFromContext(ctx).Error("mark seen failed",
				slog.String(chatIDLogField, chatID),
				slog.String(errorMsgLogField, err.Error()),
			)
		}
	})
	if err != nil {
		return err
	}

	peerUnsub, err := s.deps.Presence.WatchUser(ctx, peerID, func(u user.User) {
		if s.cb.Typing != nil {
			s.cb.Typing(peerID, presence.TypingToMe(u, s.me.UID))
		}
	})
	if err != nil {
		convUnsub()
		return err
	}

	s.mu.Lock()
	s.activePeer = peerID
	s.convUnsub = convUnsub
	s.peerUnsub = peerUnsub
	s.mu.Unlock()
	return nil
}

// RegisterToken stores this device's delivery token, called after the
// notification permission grant. Last write wins.
func (s *Session) RegisterToken(ctx context.Context, token string) error {
	if err := s.deps.Users.SetToken(ctx, s.me.UID, token); err != nil {
		return fmt.Errorf("register token for %s: %w", s.me.UID, err)
	}
	return nil
}

// Draft forwards the current input buffer to the typing debouncer.
func (s *Session) Draft(ctx context.Context, text string) {
	s.mu.Lock()
	peer := s.activePeer
	s.mu.Unlock()
	if peer == "" {
		return
	}
	s.tracker.SetDraft(ctx, peer, text)
}

// Send appends a message to the active conversation and requests the
// advisory push. A failed dispatch never fails the send: the message is
// already delivered through the log.
func (s *Session) Send(ctx context.Context, text string) (chat.Message, error) {
	s.mu.Lock()
	peer := s.activePeer
	s.mu.Unlock()
	if peer == "" {
		return chat.Message{}, ErrNoActiveConversation
	}

	msg, err := s.deps.Log.Append(ctx, s.me.UID, peer, text)
	if err != nil {
		return chat.Message{}, err
	}

	// the input buffer is empty again; let the debouncer clear the pointer
	s.tracker.SetDraft(ctx, peer, "")

	if s.deps.Dispatcher != nil {
		if outcome := s.deps.Dispatcher.Dispatch(ctx, peer, msg.Text); outcome != push.Dispatched {
			log.LoggerFromContext(ctx).Info("push not delivered",
				slog.String(peerLogField, peer),
				slog.String(outcomeLogField, outcome.String()),
			)
		}
	}
	return msg, nil
}

// CloseConversation tears down the open conversation's subscriptions and
// clears the typing pointer for its peer.
func (s *Session) CloseConversation(ctx context.Context) {
	s.mu.Lock()
	peer := s.activePeer
	convUnsub, peerUnsub := s.convUnsub, s.peerUnsub
	s.activePeer = ""
	s.convUnsub, s.peerUnsub = nil, nil
	s.mu.Unlock()

	if convUnsub != nil {
		convUnsub()
	}
	if peerUnsub != nil {
		peerUnsub()
	}
	if peer != "" {
		s.tracker.SetDraft(ctx, peer, "")
	}
}

// Logout runs the explicit sign-out path: the offline write is awaited so
// the visible transition is not lost, but its failure never blocks the
// logout itself.
func (s *Session) Logout(ctx context.Context) error {
	if err := s.tracker.Offline(ctx); err != nil {
		log.LoggerFromContext(ctx).Error("offline write failed during logout",
			slog.String(errorMsgLogField, err.Error()),
		)
	}
	s.shutdown(ctx)
	return nil
}

// Close is the best-effort teardown for tab close. The offline write may
// race process termination; losing it is acceptable.
func (s *Session) Close(ctx context.Context) {
	if err := s.tracker.Offline(ctx); err != nil {
		log.LoggerFromContext(ctx).Warn("offline write failed during teardown",
			slog.String(errorMsgLogField, err.Error()),
		)
	}
	s.shutdown(ctx)
}

func (s *Session) shutdown(ctx context.Context) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	rosterUnsub := s.rosterUnsub
	convUnsub, peerUnsub := s.convUnsub, s.peerUnsub
	s.rosterUnsub, s.convUnsub, s.peerUnsub = nil, nil, nil
	s.activePeer = ""
	s.mu.Unlock()

	for _, unsub := range []func(){rosterUnsub, convUnsub, peerUnsub} {
		if unsub != nil {
			unsub()
		}
	}
	s.unread.Close()
	s.tracker.Close(ctx)
}
