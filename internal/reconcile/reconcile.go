// Package reconcile restores the contact access-token mapping of a wallet by
// matching the backend's access tokens against connection notifications.
package reconcile

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/mrz1836/onboard/internal/backend"
	"github.com/mrz1836/onboard/internal/store"
	onboarderr "github.com/mrz1836/onboard/pkg/errors"
)

// Notification types fetched for reconciliation.
const (
	TypeReceived = "RECEIVED"
	TypeAccepted = "ACCEPTED"
)

// AccessToken is a reconciled channel secret pair.
type AccessToken struct {
	MyAccessToken   string `json:"myAccessToken"`
	UserID          string `json:"userId"`
	UserAccessToken string `json:"userAccessToken"`
}

// Notification is a parsed connection notification.
type Notification struct {
	ID            string         `json:"id"`
	Type          string         `json:"type"`
	ConnectionKey string         `json:"connectionKey"`
	Username      string         `json:"username,omitempty"`
	CreatedAt     int64          `json:"createdAt"`
	Sender        map[string]any `json:"-"`
}

// Backend is the part of the backend client the reconciler needs.
type Backend interface {
	FetchAccessTokens(ctx context.Context, walletID string) ([]backend.AccessToken, error)
	FetchNotifications(ctx context.Context, walletID string, types []string) ([]backend.RawNotification, error)
}

// Publisher receives the reconciled tokens, usually the app state.
type Publisher interface {
	SetAccessTokens(tokens []AccessToken)
}

// LogWriter is the logging interface used by the reconciler.
type LogWriter interface {
	Debug(format string, args ...any)
	Error(format string, args ...any)
}

// Config holds the reconciler dependencies.
type Config struct {
	Backend   Backend
	Store     store.Store
	Publisher Publisher
	Logger    LogWriter
}

// Reconciler restores access tokens.
type Reconciler struct {
	backend   Backend
	store     store.Store
	publisher Publisher
	logger    LogWriter
}

// New creates a Reconciler. Publisher and Logger are optional.
func New(cfg *Config) *Reconciler {
	return &Reconciler{
		backend:   cfg.Backend,
		store:     cfg.Store,
		publisher: cfg.Publisher,
		logger:    cfg.Logger,
	}
}

// Restore fetches tokens and notifications for walletID, matches them and
// persists the result as a replace-all write.
//
// When the backend has no notifications at all it returns (nil, nil) and
// leaves persisted tokens untouched. Zero matches against a non-empty
// notification set persists an empty list.
func (r *Reconciler) Restore(ctx context.Context, walletID string) ([]AccessToken, error) {
	if walletID == "" {
		return nil, onboarderr.WithSuggestion(onboarderr.ErrInvalidInput, "wallet id is required")
	}

	tokens, err := r.backend.FetchAccessTokens(ctx, walletID)
	if err != nil {
		return nil, onboarderr.Wrap(err, "fetching access tokens")
	}

	raw, err := r.backend.FetchNotifications(ctx, walletID, []string{TypeReceived, TypeAccepted})
	if err != nil {
		return nil, onboarderr.Wrap(err, "fetching notifications")
	}
	if len(raw) == 0 {
		r.debug("no connection notifications for wallet %s, keeping stored tokens", walletID)
		return nil, nil
	}

	restored := Match(tokens, ParseNotifications(raw))
	r.debug("restored %d of %d access tokens", len(restored), len(tokens))

	rec, err := store.List(restored)
	if err != nil {
		return nil, onboarderr.WithCause(onboarderr.ErrStoreFailure, err)
	}
	if err := r.store.Set(store.KeyAccessTokens, rec, true); err != nil {
		return nil, err
	}
	if r.publisher != nil {
		r.publisher.SetAccessTokens(restored)
	}

	return restored, nil
}

// message is the JSON document inside a notification payload.
type message struct {
	Type           string         `json:"type"`
	SenderUserData map[string]any `json:"senderUserData"`
}

// ParseNotifications decodes raw notifications and sorts them newest first.
// Entries whose payload is not valid JSON are skipped. The sort is stable so
// equal timestamps keep their delivery order.
func ParseNotifications(raw []backend.RawNotification) []Notification {
	out := make([]Notification, 0, len(raw))
	for _, rn := range raw {
		var msg message
		if err := json.Unmarshal([]byte(rn.Payload.Msg), &msg); err != nil {
			continue
		}
		n := Notification{
			Type:      msg.Type,
			CreatedAt: rn.CreatedAt,
			Sender:    msg.SenderUserData,
		}
		n.ID = stringField(msg.SenderUserData, "id")
		n.ConnectionKey = stringField(msg.SenderUserData, "connectionKey")
		n.Username = stringField(msg.SenderUserData, "username")
		out = append(out, n)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt > out[j].CreatedAt
	})
	return out
}

// Match pairs tokens with notifications. Notifications must already be
// sorted newest first. Received requests are searched before accepted ones;
// tokens without a match are dropped.
func Match(tokens []backend.AccessToken, notifications []Notification) []AccessToken {
	received := uniqueByID(filterType(notifications, TypeReceived))
	sent := uniqueByID(filterType(notifications, TypeAccepted))

	restored := make([]AccessToken, 0, len(tokens))
	for _, token := range tokens {
		found, ok := received[token.ContactID]
		if !ok {
			found, ok = sent[token.ContactID]
		}
		if !ok {
			continue
		}
		restored = append(restored, AccessToken{
			MyAccessToken:   token.AccessKey,
			UserID:          token.ContactID,
			UserAccessToken: found.ConnectionKey,
		})
	}
	return restored
}

func filterType(notifications []Notification, typ string) []Notification {
	var out []Notification
	for _, n := range notifications {
		if n.Type == typ {
			out = append(out, n)
		}
	}
	return out
}

// uniqueByID keeps the first notification seen for each id.
func uniqueByID(notifications []Notification) map[string]Notification {
	out := make(map[string]Notification, len(notifications))
	for _, n := range notifications {
		if _, seen := out[n.ID]; seen {
			continue
		}
		out[n.ID] = n
	}
	return out
}

func stringField(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func (r *Reconciler) debug(format string, args ...any) {
	if r.logger != nil {
		r.logger.Debug(format, args...)
	}
}
