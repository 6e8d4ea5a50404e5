package session

import "context"

// ctxKey is an unexported type so the session marker can never collide
// with another package's context key (standard Go context hygiene).
type ctxKey struct{}

var sessionKey ctxKey

// WithSession attaches s to ctx. The session loop calls this before every
// handler invocation, giving handlers (and code they call) an explicit way
// to tell "invoked from inside a session" apart from "invoked from
// outside" via FromContext, in place of ambient global state.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// FromContext reports whether ctx carries a bound session, and returns it
// if so.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionKey).(*Session)
	return s, ok
}
