package chat

import (
	"context"
	"log/slog"
	"sync"

	"github.com/klipach/firechat/log"
)

// CountUnread recomputes the unread count for uid purely from a snapshot of
// the log. No stored counter is authoritative over this.
func CountUnread(msgs []Message, uid string) int {
	n := 0
	for _, m := range msgs {
		if m.ReceiverID == uid && !m.Seen {
			n++
		}
	}
	return n
}

// UnreadCounter keeps a live per-peer unread count for one user across the
// roster. Peers are tracked through one subscription each, keyed by peer id;
// Sync diffs the roster so added peers subscribe and removed peers tear down.
type UnreadCounter struct {
	me       string
	log      *Log
	onChange func(counts map[string]int)

	mu     sync.Mutex
	counts map[string]int
	subs   map[string]Unsubscribe
}

func NewUnreadCounter(me string, l *Log, onChange func(counts map[string]int)) *UnreadCounter {
	return &UnreadCounter{
		me:       me,
		log:      l,
		onChange: onChange,
		counts:   map[string]int{},
		subs:     map[string]Unsubscribe{},
	}
}

// Bootstrap computes counts with one-shot queries, one per peer. It exists to
// avoid an empty-state flash before the live subscriptions settle: a peer
// already tracked live is skipped, the live value wins.
func (c *UnreadCounter) Bootstrap(ctx context.Context, peers []string) error {
	logger := log.LoggerFromContext(ctx)
	for _, peer := range peers {
		chatID, err := PairID(c.me, peer)
		if err != nil {
			return err
		}

		c.mu.Lock()
		_, live := c.subs[peer]
		c.mu.Unlock()
		if live {
			continue
		}

		msgs, err := c.log.backend.List(ctx, chatID)
		if err != nil {
			logger.Error("unread bootstrap failed",
				slog.String(chatIDLogField, chatID),
				slog.String(errorMsgLogField, err.Error()),
			)
			continue
		}
		c.set(peer, CountUnread(msgs, c.me))
	}
	return nil
}

// Sync reconciles the live subscriptions with the current roster.
func (c *UnreadCounter) Sync(ctx context.Context, peers []string) error {
	want := make(map[string]bool, len(peers))
	for _, peer := range peers {
		want[peer] = true
	}

	c.mu.Lock()
	var removed []Unsubscribe
	for peer, unsub := range c.subs {
		if !want[peer] {
			removed = append(removed, unsub)
			delete(c.subs, peer)
			delete(c.counts, peer)
		}
	}
	c.mu.Unlock()
	for _, unsub := range removed {
		unsub()
	}

	for _, peer := range peers {
		c.mu.Lock()
		_, ok := c.subs[peer]
		c.mu.Unlock()
		if ok {
			continue
		}

		chatID, err := PairID(c.me, peer)
		if err != nil {
			return err
		}
		peer := peer
		unsub, err := c.log.Subscribe(ctx, chatID, func(msgs []Message) {
			c.set(peer, CountUnread(msgs, c.me))
		})
		if err != nil {
			return err
		}
		c.mu.Lock()
		c.subs[peer] = unsub
		c.mu.Unlock()
	}
	return nil
}

// Counts returns a snapshot of the per-peer unread counts.
func (c *UnreadCounter) Counts() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int, len(c.counts))
	for peer, n := range c.counts {
		out[peer] = n
	}
	return out
}

// Close tears down every live subscription.
func (c *UnreadCounter) Close() {
	c.mu.Lock()
	subs := c.subs
	c.subs = map[string]Unsubscribe{}
	c.mu.Unlock()
	for _, unsub := range subs {
		unsub()
	}
}

func (c *UnreadCounter) set(peer string, n int) {
	c.mu.Lock()
	c.counts[peer] = n
	snapshot := make(map[string]int, len(c.counts))
	for p, v := range c.counts {
		snapshot[p] = v
	}
	c.mu.Unlock()
	if c.onChange != nil {
		c.onChange(snapshot)
	}
}
