package chat

import (
	"errors"
	"strings"
)

// pairSeparator joins the two participant ids into a conversation id. It is
// rejected inside ids so the join stays unambiguous.
const pairSeparator = "_"

var (
	ErrEmptyUserID   = errors.New("empty user id")
	ErrSameUser      = errors.New("sender and receiver are the same user")
	ErrInvalidUserID = errors.New("user id contains the pair separator")
)

// PairID derives the canonical conversation id for a pair of users. It is
// symmetric: PairID(a, b) == PairID(b, a).
func PairID(a, b string) (string, error) {
	if a == "" || b == "" {
		return "", ErrEmptyUserID
	}
	if a == b {
		return "", ErrSameUser
	}
	if strings.Contains(a, pairSeparator) || strings.Contains(b, pairSeparator) {
		return "", ErrInvalidUserID
	}
	if a > b {
		a, b = b, a
	}
	return a + pairSeparator + b, nil
}
