// Package backend is the client for the remote identity service that
// registers wallets and serves users, assets, tokens and notifications.
package backend

import (
	"context"
	"encoding/hex"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/mrz1836/onboard/internal/metrics"
	"github.com/mrz1836/onboard/internal/transport"
	onboarderr "github.com/mrz1836/onboard/pkg/errors"
)

// Request headers carrying the wallet signature.
const (
	HeaderAddress   = "X-Wallet-Address"
	HeaderTimestamp = "X-Wallet-Timestamp"
	HeaderSignature = "X-Wallet-Signature"
)

// ClientOptions configures the backend client.
type ClientOptions struct {
	transport.Options

	// Now overrides the clock used for request timestamps.
	Now func() time.Time
}

// Client talks to the identity backend. Init must be called with the wallet
// key before any signed call.
type Client struct {
	api *transport.Client
	now func() time.Time

	mu      sync.RWMutex
	key     []byte
	address string
}

// NewClient creates a backend client for baseURL.
func NewClient(baseURL string, opts *ClientOptions) (*Client, error) {
	if opts == nil {
		opts = &ClientOptions{}
	}
	hc, err := transport.NewClient(baseURL, transport.WithService(&opts.Options, metrics.ServiceBackend))
	if err != nil {
		return nil, err
	}

	c := &Client{api: hc, now: time.Now}
	if opts.Now != nil {
		c.now = opts.Now
	}
	return c, nil
}

// Init binds the client to a wallet key. Calling it again replaces the key.
func (c *Client) Init(privateKey []byte) error {
	priv, err := crypto.ToECDSA(privateKey)
	if err != nil {
		return onboarderr.WithCause(onboarderr.ErrInvalidPrivateKey, err)
	}

	key := make([]byte, len(privateKey))
	copy(key, privateKey)

	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.key {
		c.key[i] = 0
	}
	c.key = key
	c.address = crypto.PubkeyToAddress(priv.PublicKey).Hex()
	return nil
}

// Address returns the address the client signs for, or "" before Init.
func (c *Client) Address() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.address
}

// RegisterOnAuthServer registers the wallet with its push token and username.
// A transport failure is returned as an error; a refusal by the backend
// comes back as a result with Error set.
func (c *Client) RegisterOnAuthServer(ctx context.Context, pushToken, username string) (*RegisterResult, error) {
	body := map[string]string{
		"pushToken": pushToken,
		"username":  username,
		"address":   c.Address(),
	}

	var out RegisterResult
	if err := c.signed(ctx, http.MethodPost, "/wallet/register", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UserInfo returns the profile bound to walletID, or an empty user.
func (c *Client) UserInfo(ctx context.Context, walletID string) (*User, error) {
	var out User
	err := c.signed(ctx, http.MethodGet, "/user/info", url.Values{"walletId": {walletID}}, nil, &out)
	if isNotFound(err) {
		return &User{}, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UsernameSearch looks a username up, returning an empty user when it is free.
func (c *Client) UsernameSearch(ctx context.Context, username string) (*User, error) {
	var out User
	err := c.signed(ctx, http.MethodGet, "/user/search", url.Values{"username": {username}}, nil, &out)
	if isNotFound(err) {
		return &User{}, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchInitialAssets returns the assets a new wallet starts with.
func (c *Client) FetchInitialAssets(ctx context.Context, walletID string) (AssetList, error) {
	out := AssetList{}
	if err := c.signed(ctx, http.MethodGet, "/wallet/assets", url.Values{"walletId": {walletID}}, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FetchAccessTokens returns the contact access tokens of the wallet.
func (c *Client) FetchAccessTokens(ctx context.Context, walletID string) ([]AccessToken, error) {
	var out []AccessToken
	if err := c.signed(ctx, http.MethodGet, "/connection/access-tokens", url.Values{"walletId": {walletID}}, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FetchNotifications returns the wallet's notifications of the given types.
func (c *Client) FetchNotifications(ctx context.Context, walletID string, types []string) ([]RawNotification, error) {
	query := url.Values{
		"walletId": {walletID},
		"types":    {strings.Join(types, " ")},
	}
	var out []RawNotification
	if err := c.signed(ctx, http.MethodGet, "/notifications", query, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// signed sends a request carrying the wallet signature headers.
func (c *Client) signed(ctx context.Context, method, path string, query url.Values, body, out any) error {
	headers, err := c.signatureHeaders(method, path)
	if err != nil {
		return err
	}
	return c.api.Do(ctx, transport.Request{
		Method:  method,
		Path:    path,
		Query:   query,
		Body:    body,
		Headers: headers,
	}, out)
}

// signatureHeaders signs keccak256("<timestamp>:<METHOD>:<path>") with the wallet key.
func (c *Client) signatureHeaders(method, path string) (map[string]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.key) == 0 {
		return nil, onboarderr.WithSuggestion(onboarderr.ErrNotInitialized, "backend client needs a wallet key")
	}
	priv, err := crypto.ToECDSA(c.key)
	if err != nil {
		return nil, onboarderr.WithCause(onboarderr.ErrInvalidPrivateKey, err)
	}

	ts := strconv.FormatInt(c.now().UnixMilli(), 10)
	digest := SigningDigest(ts, method, path)
	sig, err := crypto.Sign(digest, priv)
	if err != nil {
		return nil, onboarderr.Wrap(err, "signing request")
	}

	return map[string]string{
		HeaderAddress:   c.address,
		HeaderTimestamp: ts,
		HeaderSignature: "0x" + hex.EncodeToString(sig),
	}, nil
}

// SigningDigest is the hash signed for each request.
func SigningDigest(timestamp, method, path string) []byte {
	return crypto.Keccak256([]byte(timestamp + ":" + strings.ToUpper(method) + ":" + path))
}

func isNotFound(err error) bool {
	var se *transport.StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}
