package chat

import (
	"context"
	"fmt"
)

// UnseenIDs selects the records of a snapshot that uid has received but not
// yet seen. Records sent by uid are never candidates.
func UnseenIDs(msgs []Message, uid string) []string {
	var ids []string
	for _, m := range msgs {
		if m.ReceiverID == uid && !m.Seen {
			ids = append(ids, m.ID)
		}
	}
	return ids
}

// MarkSeen flips seen on every record of the snapshot addressed to uid, as a
// single atomic batch. Idempotent: a snapshot with nothing unseen is a no-op,
// and re-marking an already-seen record never errors and never reverts it.
func (l *Log) MarkSeen(ctx context.Context, chatID, uid string, msgs []Message) error {
	ids := UnseenIDs(msgs, uid)
	if len(ids) == 0 {
		return nil
	}
	if err := l.backend.MarkSeen(ctx, chatID, ids); err != nil {
		return fmt.Errorf("mark seen in %s: %w", chatID, err)
	}
	return nil
}
