package onboarding

import (
	"context"

	"github.com/mrz1836/onboard/internal/backend"
	"github.com/mrz1836/onboard/internal/chat"
	"github.com/mrz1836/onboard/internal/credential"
	"github.com/mrz1836/onboard/internal/keycrypt"
	"github.com/mrz1836/onboard/internal/rates"
	"github.com/mrz1836/onboard/internal/reconcile"
)

// BackendClient registers the wallet and serves its remote data.
type BackendClient interface {
	Init(privateKey []byte) error
	RegisterOnAuthServer(ctx context.Context, pushToken, username string) (*backend.RegisterResult, error)
	UserInfo(ctx context.Context, walletID string) (*backend.User, error)
	UsernameSearch(ctx context.Context, username string) (*backend.User, error)
	FetchInitialAssets(ctx context.Context, walletID string) (backend.AssetList, error)
}

// ChatClient provisions the messaging account.
type ChatClient interface {
	Init(ctx context.Context, id chat.Identity) error
	RegisterAccount(ctx context.Context) error
	SetPushToken(ctx context.Context, token string) error
}

// PushProvider supplies the device push token.
type PushProvider interface {
	RequestPermission(ctx context.Context) error
	Token(ctx context.Context) (string, error)
}

// RateService fetches exchange rates.
type RateService interface {
	GetExchangeRates(ctx context.Context, symbols []string) (rates.Rates, error)
}

// TokenRestorer reconciles access tokens for a wallet.
type TokenRestorer interface {
	Restore(ctx context.Context, walletID string) ([]reconcile.AccessToken, error)
}

// Encryptor seals and opens wallet credentials.
type Encryptor interface {
	Encrypt(cred *credential.Credential, pin string) (*keycrypt.Record, error)
	Decrypt(rec *keycrypt.Record, pin string) (*credential.Credential, error)
}

// Navigator moves the UI between screens.
type Navigator interface {
	Navigate(route Route)
}

// SupportChannel receives the push token for in-app support messaging.
type SupportChannel interface {
	SendToken(ctx context.Context, token string) error
}

// ImageCache is the avatar cache invalidated after registration.
type ImageCache interface {
	Clear(ctx context.Context) error
}

// LogWriter provides logging capabilities.
type LogWriter interface {
	Debug(format string, args ...any)
	Error(format string, args ...any)
}
