package user

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klipach/firechat/auth"
)

type fakeStore struct {
	mu       sync.Mutex
	users    map[string]User
	upserts  int
	watchers []func([]User)
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: map[string]User{}}
}

func (f *fakeStore) Upsert(_ context.Context, u User) error {
	f.mu.Lock()
	f.upserts++
	existing, ok := f.users[u.UID]
	if ok {
		// merge semantics: identity fields only
		existing.DisplayName = u.DisplayName
		existing.Email = u.Email
		existing.PhotoURL = u.PhotoURL
		f.users[u.UID] = existing
	} else {
		f.users[u.UID] = u
	}
	f.mu.Unlock()
	f.notify()
	return nil
}

func (f *fakeStore) Get(_ context.Context, uid string) (User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[uid], nil
}

func (f *fakeStore) SetToken(_ context.Context, uid, token string) error {
	f.mu.Lock()
	u := f.users[uid]
	u.UID = uid
	u.FCMToken = token
	f.users[uid] = u
	f.mu.Unlock()
	f.notify()
	return nil
}

func (f *fakeStore) WatchAll(_ context.Context, fn func([]User)) (Unsubscribe, error) {
	f.mu.Lock()
	f.watchers = append(f.watchers, fn)
	f.mu.Unlock()
	fn(f.all())
	return func() {}, nil
}

func (f *fakeStore) all() []User {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, u)
	}
	return out
}

func (f *fakeStore) notify() {
	f.mu.Lock()
	watchers := append([]func([]User){}, f.watchers...)
	f.mu.Unlock()
	for _, fn := range watchers {
		fn(f.all())
	}
}

func TestSignInIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	id := auth.Identity{UID: "u1", DisplayName: "Alice", Email: "alice@example.com"}

	_, err := SignIn(ctx, store, id)
	require.NoError(t, err)

	// token lands between the two sign-ins
	require.NoError(t, store.SetToken(ctx, "u1", "tok-A"))

	// returning user: same uid, fresher profile
	id.DisplayName = "Alice B"
	_, err = SignIn(ctx, store, id)
	require.NoError(t, err, "repeat sign-in must not error")

	assert.Len(t, store.users, 1, "repeat sign-in must not duplicate")
	got, _ := store.Get(ctx, "u1")
	assert.Equal(t, "Alice B", got.DisplayName)
	assert.Equal(t, "tok-A", got.FCMToken, "merge keeps the delivery token")
}

func TestSignInRequiresUID(t *testing.T) {
	_, err := SignIn(context.Background(), newFakeStore(), auth.Identity{})
	assert.Error(t, err)
}

func TestWatchRosterExcludesSelf(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	for _, u := range []User{
		{UID: "u1", DisplayName: "Me"},
		{UID: "u2", DisplayName: "Bob"},
		{UID: "u3", DisplayName: "Amy"},
	} {
		store.users[u.UID] = u
	}

	var roster []User
	unsub, err := WatchRoster(ctx, store, "u1", func(users []User) { roster = users })
	require.NoError(t, err)
	defer unsub()

	require.Len(t, roster, 2)
	assert.Equal(t, "Amy", roster[0].DisplayName, "sorted by display name")
	assert.Equal(t, "Bob", roster[1].DisplayName)
}
