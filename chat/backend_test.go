package chat

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// fakeBackend is an in-memory stand-in for the document store. It mimics the
// store contract: server-assigned timestamps, full-snapshot delivery on every
// mutation, and an atomic seen batch.
type fakeBackend struct {
	mu       sync.Mutex
	msgs     map[string][]Message
	watchers map[string]map[int]func([]Message)
	nextSub  int
	nextID   int
	now      time.Time

	appendErr error
	markErr   error
	markCalls [][]string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		msgs:     map[string][]Message{},
		watchers: map[string]map[int]func([]Message){},
		now:      time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (f *fakeBackend) Append(_ context.Context, chatID string, msg Message) (Message, error) {
	f.mu.Lock()
	if f.appendErr != nil {
		err := f.appendErr
		f.mu.Unlock()
		return Message{}, err
	}
	f.nextID++
	f.now = f.now.Add(time.Second)
	msg.ID = fmt.Sprintf("m%03d", f.nextID)
	msg.Timestamp = f.now
	f.msgs[chatID] = append(f.msgs[chatID], msg)
	f.mu.Unlock()

	f.notify(chatID)
	return msg, nil
}

func (f *fakeBackend) MarkSeen(_ context.Context, chatID string, ids []string) error {
	f.mu.Lock()
	if f.markErr != nil {
		err := f.markErr
		f.mu.Unlock()
		return err
	}
	f.markCalls = append(f.markCalls, ids)
	marked := map[string]bool{}
	for _, id := range ids {
		marked[id] = true
	}
	for i := range f.msgs[chatID] {
		if marked[f.msgs[chatID][i].ID] {
			f.msgs[chatID][i].Seen = true
		}
	}
	f.mu.Unlock()

	f.notify(chatID)
	return nil
}

func (f *fakeBackend) Watch(_ context.Context, chatID string, fn func([]Message)) (Unsubscribe, error) {
	f.mu.Lock()
	if f.watchers[chatID] == nil {
		f.watchers[chatID] = map[int]func([]Message){}
	}
	f.nextSub++
	id := f.nextSub
	f.watchers[chatID][id] = fn
	f.mu.Unlock()

	// initial snapshot, like a store listener
	fn(f.snapshot(chatID))
	return func() {
		f.mu.Lock()
		delete(f.watchers[chatID], id)
		f.mu.Unlock()
	}, nil
}

func (f *fakeBackend) List(_ context.Context, chatID string) ([]Message, error) {
	msgs := f.snapshot(chatID)
	// timestamp descending, like the bulk query
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (f *fakeBackend) watcherCount(chatID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.watchers[chatID])
}

func (f *fakeBackend) snapshot(chatID string) []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Message, len(f.msgs[chatID]))
	copy(out, f.msgs[chatID])
	return out
}

func (f *fakeBackend) notify(chatID string) {
	f.mu.Lock()
	fns := make([]func([]Message), 0, len(f.watchers[chatID]))
	for _, fn := range f.watchers[chatID] {
		fns = append(fns, fn)
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(f.snapshot(chatID))
	}
}
