package backend

import (
	"encoding/json"
	"sort"
)

// UserState is the registration state of a backend user.
type UserState string

// User states.
const (
	UserPending    UserState = "PENDING"
	UserRegistered UserState = "REGISTERED"
)

// RegisterResult is the response of RegisterOnAuthServer.
type RegisterResult struct {
	WalletID string `json:"walletId"`
	UserID   string `json:"userId"`
	Error    bool   `json:"error,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// Succeeded reports whether the backend accepted the registration.
func (r *RegisterResult) Succeeded() bool {
	return r != nil && !r.Error
}

// User is a backend profile. The zero value means "no profile".
type User struct {
	ID           string    `json:"id,omitempty"`
	Username     string    `json:"username,omitempty"`
	WalletID     string    `json:"walletId,omitempty"`
	ProfileImage string    `json:"profileImage,omitempty"`
	State        UserState `json:"state,omitempty"`
}

// Empty reports whether the lookup found nothing.
func (u *User) Empty() bool {
	return u == nil || (u.ID == "" && u.Username == "" && u.WalletID == "")
}

// Asset describes one supported token.
type Asset struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Address  string `json:"address,omitempty"`
	Decimals int    `json:"decimals"`
	IconURL  string `json:"iconUrl,omitempty"`
}

// AssetList maps asset symbol to asset.
type AssetList map[string]Asset

// Symbols returns the asset symbols in sorted order.
func (a AssetList) Symbols() []string {
	out := make([]string, 0, len(a))
	for symbol := range a {
		out = append(out, symbol)
	}
	sort.Strings(out)
	return out
}

// AccessToken is one contact channel secret held by the backend.
type AccessToken struct {
	ContactID string `json:"contactId"`
	AccessKey string `json:"accessKey"`
}

// RawNotification is a notification as delivered by the backend.
// Payload.Msg is a JSON document encoded as a string.
type RawNotification struct {
	Payload   NotificationPayload `json:"payload"`
	CreatedAt int64               `json:"createdAt"`
}

// NotificationPayload wraps the encoded message.
type NotificationPayload struct {
	Msg string `json:"msg"`
}

// NewRawNotification encodes msg into a RawNotification.
func NewRawNotification(msg any, createdAt int64) (RawNotification, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return RawNotification{}, err
	}
	return RawNotification{Payload: NotificationPayload{Msg: string(data)}, CreatedAt: createdAt}, nil
}
