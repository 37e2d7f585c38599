package core

import "github.com/google/uuid"

// Context identifies who an agent turn runs for.
type Context struct {
	UserID    string
	SessionID string
	RequestID string
}

// NewContext creates a turn context with a fresh request id.
func NewContext(userID, sessionID string) *Context {
	return &Context{
		UserID:    userID,
		SessionID: sessionID,
		RequestID: uuid.NewString(),
	}
}
