package chat

import "errors"

// ErrEmptyMessage means the chat request carried no message text.
var ErrEmptyMessage = errors.New("message is required")
