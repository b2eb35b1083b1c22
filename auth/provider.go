package auth

import (
	"context"
	"errors"
	"strings"
)

// ErrNotAuthenticated is returned when no user is signed in
var ErrNotAuthenticated = errors.New("not authenticated")

// Provider resolves the user publishing content
type Provider interface {
	UserID(ctx context.Context) (string, error)
}

// StaticProvider serves a single configured user
type StaticProvider struct {
	userID string
}

func NewStaticProvider(userID string) *StaticProvider {
	return &StaticProvider{userID: strings.TrimSpace(userID)}
}

func (p *StaticProvider) UserID(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if p.userID == "" {
		return "", ErrNotAuthenticated
	}
	return p.userID, nil
}
