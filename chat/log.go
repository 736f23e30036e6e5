package chat

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrEmptyMessage is returned for a send whose text is empty after trimming.
// It is rejected locally and never reaches the store.
var ErrEmptyMessage = errors.New("message text is empty")

// Unsubscribe tears down a live subscription. Safe to call more than once.
type Unsubscribe func()

// Backend is the slice of the document store the conversation log needs.
// The store delivers the full matching set on every underlying mutation;
// the log does not diff incrementally.
type Backend interface {
	// Append writes one message to the conversation and returns it with the
	// store-assigned id filled in. The timestamp is assigned server-side.
	Append(ctx context.Context, chatID string, msg Message) (Message, error)
	// MarkSeen flips seen=true on the given records as one atomic batch.
	MarkSeen(ctx context.Context, chatID string, ids []string) error
	// Watch delivers the full message set on every change until unsubscribed.
	Watch(ctx context.Context, chatID string, fn func([]Message)) (Unsubscribe, error)
	// List returns the current message set ordered by timestamp descending.
	List(ctx context.Context, chatID string) ([]Message, error)
}

// Log is the append-only ordered message log of per-pair conversations.
type Log struct {
	backend Backend
}

func NewLog(b Backend) *Log {
	return &Log{backend: b}
}

// Append validates and writes a new message. The conversation id is derived
// from the participant pair, never passed in. Callers must not retry a
// failed append automatically; a duplicate send is worse than a missed one.
func (l *Log) Append(ctx context.Context, senderID, receiverID, text string) (Message, error) {
	chatID, err := PairID(senderID, receiverID)
	if err != nil {
		return Message{}, err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return Message{}, ErrEmptyMessage
	}

	msg, err := l.backend.Append(ctx, chatID, Message{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Text:       text,
	})
	if err != nil {
		return Message{}, fmt.Errorf("append to %s: %w", chatID, err)
	}
	return msg, nil
}

// Subscribe delivers the full conversation snapshot on every change, ordered
// by server timestamp ascending. Arrival order is never trusted; every
// snapshot is re-sorted before delivery.
func (l *Log) Subscribe(ctx context.Context, chatID string, fn func([]Message)) (Unsubscribe, error) {
	return l.backend.Watch(ctx, chatID, func(msgs []Message) {
		SortMessages(msgs)
		fn(msgs)
	})
}

// SortMessages orders a snapshot by timestamp ascending, ties broken by
// record id so the order is total.
func SortMessages(msgs []Message) {
	sort.Slice(msgs, func(i, j int) bool {
		if msgs[i].Timestamp.Equal(msgs[j].Timestamp) {
			return msgs[i].ID < msgs[j].ID
		}
		return msgs[i].Timestamp.Before(msgs[j].Timestamp)
	})
}
