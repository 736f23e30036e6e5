package chat

const (
	chatIDLogField   = "chatID"
	errorMsgLogField = "errorMsg"
)
