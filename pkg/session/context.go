package session

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"
)

type contextKey string

const SessionKey contextKey = "session"

var ErrNoSession = errors.New("session not found")

// Current retrieves the session from the context. Returns ErrNoSession if not present.
func Current(ctx context.Context) (*Session, error) {
	s, ok := ctx.Value(SessionKey).(*Session)
	if !ok || s == nil {
		log.Trace("session not found in context")
		return nil, ErrNoSession
	}
	return s, nil
}

func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, SessionKey, s)
}

// Token returns the backend bearer token of the session in ctx.
func Token(ctx context.Context) (string, error) {
	s, err := Current(ctx)
	if err != nil {
		return "", err
	}
	return s.Token(), nil
}
