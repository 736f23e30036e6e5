// Package store adapts Cloud Firestore to the narrow interfaces the core
// packages are written against: the conversation log backend, the user
// record store, the presence backend, and the token source.
package store

import (
	"context"
	"fmt"
	"log/slog"

	"cloud.google.com/go/compute/metadata"
	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/klipach/firechat/chat"
	"github.com/klipach/firechat/config"
	"github.com/klipach/firechat/log"
)

const (
	messagesCollection = "messages"

	timestampField = "timestamp"
	seenField      = "seen"
	isOnlineField  = "isOnline"
	lastSeenField  = "lastSeen"
	typingToField  = "typingTo"
	fcmTokenField  = "fcmToken"

	uidField         = "uid"
	displayNameField = "displayName"
	emailField       = "email"
	photoURLField    = "photoURL"

	chatIDLogField   = "chatID"
	uidLogField      = "userID"
	errorMsgLogField = "errorMsg"
)

type Client struct {
	fs    *firestore.Client
	users string
	chats string
}

// NewClient connects to Firestore. The project id comes from configuration,
// falling back to the metadata server when running on Google Cloud.
func NewClient(ctx context.Context, cfg *config.Config) (*Client, error) {
	projectID := cfg.ProjectID
	if projectID == "" {
		var err error
		projectID, err = metadata.ProjectIDWithContext(ctx)
		if err != nil {
			return nil, fmt.Errorf("resolve project id: %w", err)
		}
	}

	var opts []option.ClientOption
	if cfg.CredentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsPath))
	}

	fs, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}
	return &Client{fs: fs, users: cfg.UsersCollection, chats: cfg.ChatsCollection}, nil
}

func (c *Client) Close() error {
	return c.fs.Close()
}

func (c *Client) messages(chatID string) *firestore.CollectionRef {
	return c.fs.Collection(c.chats).Doc(chatID).Collection(messagesCollection)
}

func (c *Client) userDoc(uid string) *firestore.DocumentRef {
	return c.fs.Collection(c.users).Doc(uid)
}

// Append writes one message; the document id and the timestamp are both
// assigned store-side. The write result's update time stands in for the
// server timestamp until the next snapshot delivers the canonical value.
func (c *Client) Append(ctx context.Context, chatID string, msg chat.Message) (chat.Message, error) {
	doc := c.messages(chatID).NewDoc()
	wr, err := doc.Create(ctx, msg)
	if err != nil {
		return chat.Message{}, err
	}
	msg.ID = doc.ID
	msg.Timestamp = wr.UpdateTime
	return msg, nil
}

// MarkSeen flips seen on the given records in one atomic batch. Sender and
// seen fields are disjoint, so the batch cannot conflict with a concurrent
// sender-side write to the same record.
func (c *Client) MarkSeen(ctx context.Context, chatID string, ids []string) error {
	batch := c.fs.Batch()
	for _, id := range ids {
		batch.Update(c.messages(chatID).Doc(id), []firestore.Update{
			{Path: seenField, Value: true},
		})
	}
	_, err := batch.Commit(ctx)
	return err
}

// Watch streams full conversation snapshots until the returned Unsubscribe
// runs. The listener survives transport reconnects; that is the store's
// guarantee, not replicated here.
func (c *Client) Watch(ctx context.Context, chatID string, fn func([]chat.Message)) (chat.Unsubscribe, error) {
	ctx, cancel := context.WithCancel(ctx)
	it := c.messages(chatID).OrderBy(timestampField, firestore.Asc).Snapshots(ctx)

	go func() {
		defer it.Stop()
		logger := log.LoggerFromContext(ctx)
		for {
			snap, err := it.Next()
			if err != nil {
				if status.Code(err) != codes.Canceled {
					logger.Error("conversation listener stopped",
						slog.String(chatIDLogField, chatID),
						slog.String(errorMsgLogField, err.Error()),
					)
				}
				return
			}
			msgs, err := decodeMessages(snap)
			if err != nil {
				logger.Error("could not decode conversation snapshot",
					slog.String(chatIDLogField, chatID),
					slog.String(errorMsgLogField, err.Error()),
				)
				continue
			}
			fn(msgs)
		}
	}()

	return chat.Unsubscribe(cancel), nil
}

// List returns the conversation's current messages, timestamp descending.
func (c *Client) List(ctx context.Context, chatID string) ([]chat.Message, error) {
	docs, err := c.messages(chatID).OrderBy(timestampField, firestore.Desc).Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	msgs := make([]chat.Message, 0, len(docs))
	for _, doc := range docs {
		var m chat.Message
		if err := doc.DataTo(&m); err != nil {
			return nil, err
		}
		m.ID = doc.Ref.ID
		msgs = append(msgs, m)
	}
	return msgs, nil
}

func decodeMessages(snap *firestore.QuerySnapshot) ([]chat.Message, error) {
	docs, err := snap.Documents.GetAll()
	if err != nil {
		return nil, err
	}
	msgs := make([]chat.Message, 0, len(docs))
	for _, doc := range docs {
		var m chat.Message
		if err := doc.DataTo(&m); err != nil {
			return nil, err
		}
		m.ID = doc.Ref.ID
		msgs = append(msgs, m)
	}
	return msgs, nil
}
