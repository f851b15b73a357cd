// Package keycrypt encrypts wallet credentials under a salted PIN.
//
// The PIN is salted with SHA3-256 and handed to age's scrypt recipient, so the
// memory-hard key derivation and the authenticated encryption both come from age.
// Plaintext key material only ever lives in SecureBytes buffers.
package keycrypt

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"

	"golang.org/x/crypto/sha3"

	"github.com/mrz1836/onboard/internal/credential"
	onboarderr "github.com/mrz1836/onboard/pkg/errors"
)

const (
	// DefaultWorkFactor is log2 of the scrypt cost, N = 16384.
	DefaultWorkFactor = 14

	// MaxWorkFactor bounds the cost accepted when decrypting.
	MaxWorkFactor = 22
)

// errEmptyPayload marks an encryption that produced no ciphertext.
var errEmptyPayload = errors.New("encryption produced an empty payload")

// KDFParams records the key derivation cost used for a record.
type KDFParams struct {
	WorkFactor int `json:"workFactor"`
	N          int `json:"n"`
}

// BackupStatus tracks where the key came from and whether it was backed up.
type BackupStatus struct {
	IsImported bool `json:"isImported"`
	IsBackedUp bool `json:"isBackedUp"`
}

// Record is an encrypted wallet as persisted under the "wallet" key.
type Record struct {
	Address       string       `json:"address"`
	CipherPayload []byte       `json:"cipherPayload"`
	KDF           KDFParams    `json:"kdf"`
	BackupStatus  BackupStatus `json:"backupStatus"`
}

// Empty reports whether the record carries no ciphertext.
// An empty record is a failed encryption, never an empty wallet.
func (r *Record) Empty() bool {
	return r == nil || len(r.CipherPayload) == 0
}

// payload is the serialized plaintext sealed inside a record.
type payload struct {
	Address    string   `json:"address"`
	PrivateKey string   `json:"privateKey"`
	Mnemonic   []string `json:"mnemonic,omitempty"`
}

// SaltPIN returns hex(sha3-256(salt || pin)).
func SaltPIN(pin, salt string) string {
	sum := sha3.Sum256([]byte(salt + pin))
	return hex.EncodeToString(sum[:])
}

// Encryptor seals and opens credentials. The zero value is not usable;
// build one with NewEncryptor.
type Encryptor struct {
	workFactor int
	salt       string
}

// NewEncryptor creates an encryptor. A work factor outside 1..MaxWorkFactor
// falls back to DefaultWorkFactor.
func NewEncryptor(workFactor int, salt string) *Encryptor {
	if workFactor < 1 || workFactor > MaxWorkFactor {
		workFactor = DefaultWorkFactor
	}
	return &Encryptor{workFactor: workFactor, salt: salt}
}

// WorkFactor returns the configured log2 scrypt cost.
func (e *Encryptor) WorkFactor() int {
	return e.workFactor
}

// Encrypt seals the credential under the salted PIN. On any failure it returns
// an empty record together with ErrEncryptionFailed.
func (e *Encryptor) Encrypt(cred *credential.Credential, pin string) (*Record, error) {
	if strings.TrimSpace(pin) == "" {
		return &Record{}, onboarderr.ErrMissingPIN
	}
	if cred == nil || len(cred.PrivateKey) == 0 {
		return &Record{}, onboarderr.ErrInvalidPrivateKey
	}

	plain, err := json.Marshal(payload{
		Address:    cred.Address,
		PrivateKey: cred.PrivateKeyHex(),
		Mnemonic:   cred.Mnemonic,
	})
	if err != nil {
		return &Record{}, onboarderr.WithCause(onboarderr.ErrEncryptionFailed, err)
	}
	sb := SecureBytesFromSlice(plain)
	credential.ZeroBytes(plain)
	defer sb.Destroy()

	ciphertext, err := seal(sb.Bytes(), SaltPIN(pin, e.salt), e.workFactor)
	if err != nil {
		return &Record{}, onboarderr.WithCause(onboarderr.ErrEncryptionFailed, err)
	}
	if len(ciphertext) == 0 {
		return &Record{}, onboarderr.WithCause(onboarderr.ErrEncryptionFailed, errEmptyPayload)
	}

	return &Record{
		Address:       cred.Address,
		CipherPayload: ciphertext,
		KDF:           KDFParams{WorkFactor: e.workFactor, N: 1 << e.workFactor},
		BackupStatus:  BackupStatus{IsImported: cred.Imported},
	}, nil
}

// Decrypt opens a record with the PIN and rebuilds the credential.
func (e *Encryptor) Decrypt(rec *Record, pin string) (*credential.Credential, error) {
	if strings.TrimSpace(pin) == "" {
		return nil, onboarderr.ErrMissingPIN
	}
	if rec.Empty() {
		return nil, onboarderr.ErrWalletNotFound
	}

	sb, err := open(rec.CipherPayload, SaltPIN(pin, e.salt))
	if err != nil {
		return nil, onboarderr.WithCause(onboarderr.ErrDecryptionFailed, err)
	}
	defer sb.Destroy()

	var p payload
	if err := json.Unmarshal(sb.Bytes(), &p); err != nil {
		return nil, onboarderr.WithCause(onboarderr.ErrDecryptionFailed, err)
	}

	key, err := hex.DecodeString(strings.TrimPrefix(p.PrivateKey, "0x"))
	p.PrivateKey = ""
	if err != nil {
		return nil, onboarderr.WithCause(onboarderr.ErrDecryptionFailed, err)
	}

	cred, err := credential.UseImported(&credential.Credential{Address: p.Address, PrivateKey: key})
	credential.ZeroBytes(key)
	if err != nil {
		return nil, err
	}
	cred.Mnemonic = p.Mnemonic
	cred.Imported = rec.BackupStatus.IsImported
	return cred, nil
}
