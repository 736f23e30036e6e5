package chat

import "time"

// Message is one record of the append-only conversation log. The document id
// is assigned by the store, the timestamp by the server, and Seen is flipped
// exactly once by the receiving client.
type Message struct {
	ID         string    `firestore:"-"`
	SenderID   string    `firestore:"senderId"`
	ReceiverID string    `firestore:"receiverId"`
	Text       string    `firestore:"text"`
	Timestamp  time.Time `firestore:"timestamp,serverTimestamp"`
	Seen       bool      `firestore:"seen"`
}
