package session

import "strings"

// Context carries the credentials for one widget session: the bearer token
// used on every HTTP call and socket dial, and the user the chat endpoint is
// scoped to. It is constructed once at startup and handed to the transport
// and the action dispatcher; nothing reads credentials from ambient state.
type Context struct {
	Token  string
	UserID string
}

func New(token, userID string) *Context {
	return &Context{
		Token:  strings.TrimSpace(token),
		UserID: strings.TrimSpace(userID),
	}
}

// Authenticated reports whether the context carries usable credentials.
// Actions must not issue network calls when this is false.
func (c *Context) Authenticated() bool {
	return c != nil && c.Token != "" && c.UserID != ""
}
