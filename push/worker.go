package push

import (
	"context"
	"log/slog"

	"github.com/klipach/firechat/contract"
	"github.com/klipach/firechat/log"
)

const (
	defaultTitle = "New Message"
	defaultBody  = "You have a new message."
	defaultIcon  = "/fire.png"
	defaultURL   = "/"

	urlDataKey   = "url"
	iconDataKey  = "icon"
	imageDataKey = "image"
)

// Worker is the background delivery handler registered against the origin's
// root scope. It runs outside any tab and never touches client state; it
// only displays OS notifications and routes clicks back into a window.
type Worker struct {
	notifier Notifier
	window   Window
}

func NewWorker(notifier Notifier, window Window) *Worker {
	return &Worker{notifier: notifier, window: window}
}

// HandlePush displays an OS notification for a push received while no tab
// is focused. Each field prefers the notification block, falls back to the
// data block and finally to a hard default.
func (w *Worker) HandlePush(ctx context.Context, p contract.WorkerPayload) error {
	note := Note{
		Title: defaultTitle,
		Body:  defaultBody,
		Icon:  defaultIcon,
	}
	if v, ok := p.Data[iconDataKey]; ok && v != "" {
		note.Icon = v
	}
	if v, ok := p.Data[imageDataKey]; ok && v != "" {
		note.Image = v
	}
	if n := p.Notification; n != nil {
		if n.Title != "" {
			note.Title = n.Title
		}
		if n.Body != "" {
			note.Body = n.Body
		}
		if n.Icon != "" {
			note.Icon = n.Icon
		}
		if n.Image != "" {
			note.Image = n.Image
		}
	}
	return w.notifier.Show(note)
}

// HandleClick focuses an existing matching window or opens a new one at the
// URL embedded in the payload's data channel.
func (w *Worker) HandleClick(ctx context.Context, p contract.WorkerPayload) {
	url := defaultURL
	if v, ok := p.Data[urlDataKey]; ok && v != "" {
		url = v
	}
	if w.window.Focus(url) {
		return
	}
	if err := w.window.Open(url); err != nil {
		log.LoggerFromContext(ctx).Warn("could not open window",
			slog.String("url", url),
			slog.String(errorMsgLogField, err.Error()),
		)
	}
}
