package user

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/klipach/firechat/auth"
)

// User is the stored record of one account. TypingTo holds the uid of the
// peer the user is currently composing to, empty otherwise. FCMToken is the
// single delivery token, last write wins.
type User struct {
	UID         string    `firestore:"uid"`
	DisplayName string    `firestore:"displayName"`
	Email       string    `firestore:"email"`
	PhotoURL    string    `firestore:"photoURL"`
	IsOnline    bool      `firestore:"isOnline"`
	LastSeen    time.Time `firestore:"lastSeen"`
	TypingTo    string    `firestore:"typingTo"`
	FCMToken    string    `firestore:"fcmToken"`
}

// Unsubscribe tears down a live subscription. Safe to call more than once.
type Unsubscribe func()

// Store is the slice of the document store the user records need.
type Store interface {
	// Upsert writes the identity fields of the record keyed by uid, merging
	// into an existing document so presence and token fields survive.
	Upsert(ctx context.Context, u User) error
	Get(ctx context.Context, uid string) (User, error)
	// SetToken overwrites the delivery token. Last write wins.
	SetToken(ctx context.Context, uid, token string) error
	// WatchAll delivers the full user set on every change until unsubscribed.
	WatchAll(ctx context.Context, fn func([]User)) (Unsubscribe, error)
}

// FromIdentity maps a federated sign-in result onto the stored record.
func FromIdentity(id auth.Identity) User {
	return User{
		UID:         id.UID,
		DisplayName: id.DisplayName,
		Email:       id.Email,
		PhotoURL:    id.PhotoURL,
	}
}

// SignIn upserts the record for a sign-in result. Keyed by uid, so a
// returning user refreshes the same document; a repeat sign-in is never an
// error and never a duplicate.
func SignIn(ctx context.Context, s Store, id auth.Identity) (User, error) {
	u := FromIdentity(id)
	if u.UID == "" {
		return User{}, fmt.Errorf("sign in: empty uid")
	}
	if err := s.Upsert(ctx, u); err != nil {
		return User{}, fmt.Errorf("sign in %s: %w", u.UID, err)
	}
	return u, nil
}

// WatchRoster delivers every user except me, sorted by display name, on
// every change to the user set.
func WatchRoster(ctx context.Context, s Store, me string, fn func([]User)) (Unsubscribe, error) {
	return s.WatchAll(ctx, func(users []User) {
		peers := make([]User, 0, len(users))
		for _, u := range users {
			if u.UID != me {
				peers = append(peers, u)
			}
		}
		sort.Slice(peers, func(i, j int) bool {
			if peers[i].DisplayName == peers[j].DisplayName {
				return peers[i].UID < peers[j].UID
			}
			return peers[i].DisplayName < peers[j].DisplayName
		})
		fn(peers)
	})
}
