package firechat

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/GoogleCloudPlatform/functions-framework-go/functions"

	"github.com/klipach/firechat/auth"
	"github.com/klipach/firechat/contract"
	"github.com/klipach/firechat/log"
)

const (
	errorMsgLogField = "errorMsg"
	bodyLogField     = "body"
	userIDLogField   = "userID"
	tokenLogField    = "token"

	iconDataKey = "icon"

	contentTypeHeader = "Content-Type"
	contentTypeJSON   = "application/json"
)

// messageSender is the slice of the FCM client Notify needs.
type messageSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// seams for tests
var (
	authenticate = auth.Authenticate
	newSender    = defaultSender
)

func defaultSender(ctx context.Context) (messageSender, error) {
	app, err := firebase.NewApp(ctx, nil)
	if err != nil {
		return nil, err
	}
	return app.Messaging(ctx)
}

func init() {
	functions.HTTP("Notify", Notify)
}

// Notify accepts a push request from an authenticated client and forwards it
// to FCM. The icon travels in the data channel, not the displayed
// notification fields: the receiving worker decides how to use it.
func Notify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.LoggerFromContext(ctx)
	logger.Info("notify function called")

	if r.Method != http.MethodPost {
		logger.Error("invalid method: " + r.Method)
		http.Error(w, "Method Not Implemented", http.StatusNotImplemented)
		return
	}

	token, err := authenticate(r)
	if err != nil {
		logger.Error("error while authenticating", slog.String(errorMsgLogField, err.Error()))
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	logger = logger.With(slog.String(userIDLogField, token.UID))
	ctx = log.WithLogger(ctx, logger)

	data, err := io.ReadAll(r.Body)
	if err != nil {
		logger.Error("error while reading request body", slog.String(errorMsgLogField, err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var req contract.PushRequest
	if err := json.Unmarshal(data, &req); err != nil {
		logger.Error("error while decoding request", slog.String(errorMsgLogField, err.Error()))
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	if req.Token == "" || req.Notification.Title == "" || req.Notification.Body == "" {
		logger.Error("missing token or notification fields", slog.String(bodyLogField, string(data)))
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	sender, err := newSender(ctx)
	if err != nil {
		logger.Error("error while creating messaging client", slog.String(errorMsgLogField, err.Error()))
		writeJSON(w, http.StatusInternalServerError, contract.PushResponse{Success: false, Error: err.Error()})
		return
	}

	id, err := sender.Send(ctx, &messaging.Message{
		Token: req.Token,
		Notification: &messaging.Notification{
			Title: req.Notification.Title,
			Body:  req.Notification.Body,
		},
		Data: map[string]string{
			iconDataKey: req.Notification.Icon,
		},
	})
	if err != nil {
		logger.Error("error while sending notification", slog.String(errorMsgLogField, err.Error()))
		writeJSON(w, http.StatusInternalServerError, contract.PushResponse{Success: false, Error: err.Error()})
		return
	}

	logger.Info("notification sent", slog.String("providerMessageID", id))
	writeJSON(w, http.StatusOK, contract.PushResponse{Success: true, Message: id})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set(contentTypeHeader, contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
