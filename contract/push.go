package contract

// Notification is the displayable block of a push payload.
type Notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Icon  string `json:"icon,omitempty"`
	Image string `json:"image,omitempty"`
}

// PushRequest is what a client posts to the Notify function.
type PushRequest struct {
	Token        string       `json:"token"`
	Notification Notification `json:"notification"`
}

// PushResponse reports the outcome of a Notify call. Message carries the
// provider message id on success.
type PushResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// WorkerPayload is the push payload as the background delivery worker sees
// it: an optional notification block plus the provider's data channel.
type WorkerPayload struct {
	Notification *Notification     `json:"notification,omitempty"`
	Data         map[string]string `json:"data,omitempty"`
}
