package push

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/microcosm-cc/bluemonday"

	"github.com/klipach/firechat/contract"
	"github.com/klipach/firechat/log"
)

const (
	notificationTitle = "New Message"

	receiverLogField = "receiverID"
	outcomeLogField  = "outcome"
	errorMsgLogField = "errorMsg"

	contentTypeHeader = "Content-Type"
	contentTypeJSON   = "application/json"
)

// Outcome is the terminal state of one dispatch. Only Dispatched means the
// provider accepted the push; the other two are non-fatal, the message
// itself is already delivered through the log.
type Outcome int

const (
	Dispatched Outcome = iota
	TokenMissing
	DispatchFailed
)

func (o Outcome) String() string {
	switch o {
	case Dispatched:
		return "dispatched"
	case TokenMissing:
		return "token missing"
	case DispatchFailed:
		return "dispatch failed"
	}
	return "unknown"
}

// TokenSource resolves a user's current delivery token. Empty means the
// user has no registered device.
type TokenSource interface {
	Token(ctx context.Context, uid string) (string, error)
}

// Dispatcher requests an out-of-band push for a delivered message: it
// resolves the receiver's token and hands the payload to the Notify
// endpoint. It never retries; at-most-once is the contract.
type Dispatcher struct {
	tokens   TokenSource
	endpoint string
	icon     string
	client   *http.Client
	sanitize *bluemonday.Policy
}

func NewDispatcher(tokens TokenSource, endpoint, icon string) *Dispatcher {
	return &Dispatcher{
		tokens:   tokens,
		endpoint: endpoint,
		icon:     icon,
		client:   http.DefaultClient,
		sanitize: bluemonday.StrictPolicy(),
	}
}

// Dispatch runs the post-append leg of a send. Failures are logged and
// reported as an outcome, never as an error: the push is advisory.
func (d *Dispatcher) Dispatch(ctx context.Context, receiverID, text string) Outcome {
	logger := log.LoggerFromContext(ctx).With(slog.String(receiverLogField, receiverID))

	token, err := d.tokens.Token(ctx, receiverID)
	if err != nil {
		logger.Warn("token lookup failed",
			slog.String(outcomeLogField, TokenMissing.String()),
			slog.String(errorMsgLogField, err.Error()),
		)
		return TokenMissing
	}
	if token == "" {
		logger.Warn("no delivery token registered",
			slog.String(outcomeLogField, TokenMissing.String()),
		)
		return TokenMissing
	}

	payload := contract.PushRequest{
		Token: token,
		Notification: contract.Notification{
			Title: notificationTitle,
			Body:  d.sanitize.Sanitize(text),
			Icon:  d.icon,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		logger.Error("could not encode push payload",
			slog.String(outcomeLogField, DispatchFailed.String()),
			slog.String(errorMsgLogField, err.Error()),
		)
		return DispatchFailed
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		logger.Error("could not build push request",
			slog.String(outcomeLogField, DispatchFailed.String()),
			slog.String(errorMsgLogField, err.Error()),
		)
		return DispatchFailed
	}
	req.Header.Set(contentTypeHeader, contentTypeJSON)

	resp, err := d.client.Do(req)
	if err != nil {
		logger.Error("push request failed",
			slog.String(outcomeLogField, DispatchFailed.String()),
			slog.String(errorMsgLogField, err.Error()),
		)
		return DispatchFailed
	}
	defer resp.Body.Close()

	var pushResp contract.PushResponse
	if err := json.NewDecoder(resp.Body).Decode(&pushResp); err != nil || !pushResp.Success {
		logger.Error("push endpoint rejected dispatch",
			slog.String(outcomeLogField, DispatchFailed.String()),
			slog.Int("status", resp.StatusCode),
		)
		return DispatchFailed
	}

	logger.Info("push dispatched", slog.String("providerMessageID", pushResp.Message))
	return Dispatched
}
