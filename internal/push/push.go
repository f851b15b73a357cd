// Package push supplies the device push-notification token.
package push

import (
	"context"
	"strings"

	onboarderr "github.com/mrz1836/onboard/pkg/errors"
)

// ErrNoToken indicates no push token is configured.
var ErrNoToken = onboarderr.WithSuggestion(onboarderr.ErrNotFound, "set ONBOARD_PUSH_TOKEN or push.token in the config") //nolint:gochecknoglobals // sentinel

// StaticProvider hands out a token fixed at construction, typically from
// configuration. A CLI has no OS push service to ask.
type StaticProvider struct {
	token string
}

// NewStaticProvider creates a provider for token.
func NewStaticProvider(token string) *StaticProvider {
	return &StaticProvider{token: strings.TrimSpace(token)}
}

// RequestPermission always succeeds when a token is configured.
func (p *StaticProvider) RequestPermission(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.token == "" {
		return ErrNoToken
	}
	return nil
}

// Token returns the configured token.
func (p *StaticProvider) Token(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if p.token == "" {
		return "", ErrNoToken
	}
	return p.token, nil
}
