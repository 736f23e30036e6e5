package firechat

import (
	"context"
	"fmt"

	"github.com/klipach/firechat/auth"
	"github.com/klipach/firechat/chat"
	"github.com/klipach/firechat/client"
	"github.com/klipach/firechat/config"
	"github.com/klipach/firechat/push"
	"github.com/klipach/firechat/store"
	"github.com/klipach/firechat/user"
)

// Dial signs the identity in and assembles a ready-to-Start session against
// the configured Firestore project. The returned session still needs
// Start(ctx) and should be closed with Logout or Close.
func Dial(ctx context.Context, cfg *config.Config, id auth.Identity, cb client.Callbacks) (*client.Session, error) {
	st, err := store.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	me, err := user.SignIn(ctx, st, id)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	return client.NewSession(me, client.Deps{
		Users:          st,
		Log:            chat.NewLog(st),
		Presence:       st,
		Dispatcher:     push.NewDispatcher(st, cfg.PushEndpoint, cfg.DefaultIcon),
		TypingDebounce: cfg.TypingDebounce,
	}, cb), nil
}
