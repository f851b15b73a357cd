// Package chat provisions the messaging account tied to a wallet.
package chat

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"sync"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/mrz1836/onboard/internal/metrics"
	"github.com/mrz1836/onboard/internal/transport"
	onboarderr "github.com/mrz1836/onboard/pkg/errors"
)

// Identity is the messaging identity of a wallet.
type Identity struct {
	UserID     string `json:"userId"`
	Username   string `json:"username"`
	Password   string `json:"-"`
	WalletID   string `json:"walletId"`
	EthAddress string `json:"ethAddress"`
}

// GeneratePassword derives the chat password from the wallet key.
// It is keccak256(privateKey) in hex; the PIN plays no part.
func GeneratePassword(privateKey []byte) string {
	return hex.EncodeToString(crypto.Keccak256(privateKey))
}

// Client is the chat service client.
type Client struct {
	api *transport.Client

	mu       sync.RWMutex
	identity *Identity
}

// NewClient creates a chat client for baseURL.
func NewClient(baseURL string, opts *transport.Options) (*Client, error) {
	api, err := transport.NewClient(baseURL, transport.WithService(opts, metrics.ServiceChat))
	if err != nil {
		return nil, err
	}
	return &Client{api: api}, nil
}

// Init sets the identity used by later calls. It does no I/O.
func (c *Client) Init(_ context.Context, id Identity) error {
	if id.Password == "" || id.EthAddress == "" {
		return onboarderr.WithSuggestion(onboarderr.ErrInvalidInput, "chat identity needs a password and an address")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.identity = &id
	return nil
}

// RegisterAccount creates or activates the chat account.
func (c *Client) RegisterAccount(ctx context.Context) error {
	id, headers, err := c.auth()
	if err != nil {
		return err
	}
	return c.api.Do(ctx, transport.Request{
		Method:  http.MethodPut,
		Path:    "/v1/accounts",
		Body:    id,
		Headers: headers,
	}, nil)
}

// SetPushToken registers the device push token with the chat account.
func (c *Client) SetPushToken(ctx context.Context, token string) error {
	_, headers, err := c.auth()
	if err != nil {
		return err
	}
	return c.api.Do(ctx, transport.Request{
		Method:  http.MethodPut,
		Path:    "/v1/accounts/push",
		Body:    map[string]string{"pushToken": token},
		Headers: headers,
	}, nil)
}

func (c *Client) auth() (*Identity, map[string]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.identity == nil {
		return nil, nil, onboarderr.WithSuggestion(onboarderr.ErrNotInitialized, "chat client needs an identity")
	}
	user := c.identity.EthAddress
	if c.identity.Username != "" {
		user = c.identity.Username
	}
	creds := base64.StdEncoding.EncodeToString([]byte(user + ":" + c.identity.Password))
	id := *c.identity
	return &id, map[string]string{"Authorization": "Basic " + creds}, nil
}
