package push

// Note is one OS-level notification as handed to the platform.
type Note struct {
	Title string
	Body  string
	Icon  string
	Image string
}

// Notifier shows OS-level notifications.
type Notifier interface {
	Show(n Note) error
}

// Toaster renders in-app transient toasts. Body is sanitized HTML.
type Toaster interface {
	Toast(id, body string)
}

// Window focuses or opens application windows on notification click.
type Window interface {
	// Focus brings an existing window matching url to front, reporting
	// whether one was found.
	Focus(url string) bool
	Open(url string) error
}
