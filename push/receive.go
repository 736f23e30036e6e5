package push

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/russross/blackfriday/v2"

	"github.com/klipach/firechat/contract"
	"github.com/klipach/firechat/log"
)

// Visibility is the document's state at message-arrival time. It is
// evaluated once per arrival and decides the whole delivery, never
// re-queried mid-handler.
type Visibility int

const (
	Foreground Visibility = iota
	Background
)

// Permission is the user's answer to the notification permission prompt.
type Permission int

const (
	PermissionDefault Permission = iota
	PermissionGranted
	PermissionDenied
)

// Receiver routes an arriving push inside a running client: a toast when the
// document is visible, an OS notification otherwise. Denied or unanswered
// notification permission degrades to nothing; messaging is unaffected.
type Receiver struct {
	toasts     Toaster
	notifier   Notifier
	visibility func() Visibility
	permission func() Permission
	render     *bluemonday.Policy
}

func NewReceiver(toasts Toaster, notifier Notifier, visibility func() Visibility, permission func() Permission) *Receiver {
	return &Receiver{
		toasts:     toasts,
		notifier:   notifier,
		visibility: visibility,
		permission: permission,
		render:     bluemonday.UGCPolicy(),
	}
}

// Receive handles one arriving push.
func (r *Receiver) Receive(ctx context.Context, n contract.Notification) {
	logger := log.LoggerFromContext(ctx)

	switch r.visibility() {
	case Foreground:
		r.toasts.Toast(uuid.NewString(), r.renderBody(n.Body))
	case Background:
		if r.permission() != PermissionGranted {
			logger.Info("notification permission not granted, skipping OS notification")
			return
		}
		if err := r.notifier.Show(Note{Title: n.Title, Body: n.Body, Icon: n.Icon, Image: n.Image}); err != nil {
			logger.Warn("could not show OS notification",
				slog.String(errorMsgLogField, err.Error()),
			)
		}
	}
}

// renderBody turns the message markdown into sanitized HTML for the toast.
func (r *Receiver) renderBody(body string) string {
	html := blackfriday.Run([]byte(body))
	return string(r.render.SanitizeBytes(html))
}
