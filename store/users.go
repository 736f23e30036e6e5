package store

import (
	"context"
	"log/slog"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/klipach/firechat/log"
	"github.com/klipach/firechat/user"
)

// Upsert merge-writes the identity fields of the record keyed by uid.
// Presence, typing and token fields are untouched, so a returning user's
// sign-in refreshes the profile without clobbering live state.
func (c *Client) Upsert(ctx context.Context, u user.User) error {
	_, err := c.userDoc(u.UID).Set(ctx, map[string]any{
		uidField:         u.UID,
		displayNameField: u.DisplayName,
		emailField:       u.Email,
		photoURLField:    u.PhotoURL,
	}, firestore.MergeAll)
	return err
}

func (c *Client) Get(ctx context.Context, uid string) (user.User, error) {
	doc, err := c.userDoc(uid).Get(ctx)
	if err != nil {
		return user.User{}, err
	}
	var u user.User
	if err := doc.DataTo(&u); err != nil {
		return user.User{}, err
	}
	return u, nil
}

// SetToken overwrites the delivery token. Last write wins; there is no
// multi-device fan-out.
func (c *Client) SetToken(ctx context.Context, uid, token string) error {
	_, err := c.userDoc(uid).Update(ctx, []firestore.Update{
		{Path: fcmTokenField, Value: token},
	})
	return err
}

// SetPresence flips the online flag and stamps lastSeen with the server
// time, so the ordering of racing transitions is decided store-side.
func (c *Client) SetPresence(ctx context.Context, uid string, online bool) error {
	_, err := c.userDoc(uid).Update(ctx, []firestore.Update{
		{Path: isOnlineField, Value: online},
		{Path: lastSeenField, Value: firestore.ServerTimestamp},
	})
	return err
}

// SetTypingTo points typingTo at peer, or clears it when peer is empty.
func (c *Client) SetTypingTo(ctx context.Context, uid, peer string) error {
	var value any = peer
	if peer == "" {
		value = firestore.Delete
	}
	_, err := c.userDoc(uid).Update(ctx, []firestore.Update{
		{Path: typingToField, Value: value},
	})
	return err
}

// Token resolves a user's current delivery token for push dispatch.
func (c *Client) Token(ctx context.Context, uid string) (string, error) {
	u, err := c.Get(ctx, uid)
	if err != nil {
		return "", err
	}
	return u.FCMToken, nil
}

// WatchUser streams one user's record on every change.
func (c *Client) WatchUser(ctx context.Context, uid string, fn func(user.User)) (user.Unsubscribe, error) {
	ctx, cancel := context.WithCancel(ctx)
	it := c.userDoc(uid).Snapshots(ctx)

	go func() {
		defer it.Stop()
		logger := log.LoggerFromContext(ctx)
		for {
			snap, err := it.Next()
			if err != nil {
				if status.Code(err) != codes.Canceled {
					logger.Error("user listener stopped",
						slog.String(uidLogField, uid),
						slog.String(errorMsgLogField, err.Error()),
					)
				}
				return
			}
			if !snap.Exists() {
				continue
			}
			var u user.User
			if err := snap.DataTo(&u); err != nil {
				logger.Error("could not decode user snapshot",
					slog.String(uidLogField, uid),
					slog.String(errorMsgLogField, err.Error()),
				)
				continue
			}
			fn(u)
		}
	}()

	return user.Unsubscribe(cancel), nil
}

// WatchAll streams the full user set on every change.
func (c *Client) WatchAll(ctx context.Context, fn func([]user.User)) (user.Unsubscribe, error) {
	ctx, cancel := context.WithCancel(ctx)
	it := c.fs.Collection(c.users).Snapshots(ctx)

	go func() {
		defer it.Stop()
		logger := log.LoggerFromContext(ctx)
		for {
			snap, err := it.Next()
			if err != nil {
				if status.Code(err) != codes.Canceled {
					logger.Error("roster listener stopped",
						slog.String(errorMsgLogField, err.Error()),
					)
				}
				return
			}
			docs, err := snap.Documents.GetAll()
			if err != nil {
				logger.Error("could not read roster snapshot",
					slog.String(errorMsgLogField, err.Error()),
				)
				continue
			}
			users := make([]user.User, 0, len(docs))
			for _, doc := range docs {
				var u user.User
				if err := doc.DataTo(&u); err != nil {
					logger.Error("could not decode user record",
						slog.String(uidLogField, doc.Ref.ID),
						slog.String(errorMsgLogField, err.Error()),
					)
					continue
				}
				users = append(users, u)
			}
			fn(users)
		}
	}()

	return user.Unsubscribe(cancel), nil
}
