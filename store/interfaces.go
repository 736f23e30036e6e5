package store

import (
	"github.com/klipach/firechat/chat"
	"github.com/klipach/firechat/presence"
	"github.com/klipach/firechat/push"
	"github.com/klipach/firechat/user"
)

var (
	_ chat.Backend     = (*Client)(nil)
	_ user.Store       = (*Client)(nil)
	_ presence.Backend = (*Client)(nil)
	_ push.TokenSource = (*Client)(nil)
)
