// Package credential derives wallet key pairs from BIP39 mnemonics and
// accepts imported key pairs. Everything here is deterministic and does no I/O.
package credential

import (
	"encoding/hex"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"

	onboarderr "github.com/mrz1836/onboard/pkg/errors"
)

// Credential is a wallet key pair. It is created by Derive or UseImported,
// consumed once by the encryptor, and never persisted in plaintext.
type Credential struct {
	// Address is the EIP-55 checksummed Ethereum address.
	Address string `json:"address"`

	// PrivateKey is the raw 32-byte secp256k1 private key.
	PrivateKey []byte `json:"privateKey"`

	// Mnemonic holds the phrase words; empty for imported keys.
	Mnemonic []string `json:"mnemonic,omitempty"`

	// Imported is true when the key was supplied instead of derived.
	Imported bool `json:"imported"`
}

// PrivateKeyHex returns the private key as 0x-prefixed hex.
func (c *Credential) PrivateKeyHex() string {
	return "0x" + hex.EncodeToString(c.PrivateKey)
}

// MnemonicPhrase joins the mnemonic words with single spaces.
func (c *Credential) MnemonicPhrase() string {
	return strings.Join(c.Mnemonic, " ")
}

// Destroy zeroes the private key. Safe to call more than once.
func (c *Credential) Destroy() {
	if c == nil {
		return
	}
	ZeroBytes(c.PrivateKey)
	c.PrivateKey = nil
}

// UseImported passes an imported credential through without derivation.
// The address is recomputed from the key so a mismatched pair is rejected.
func UseImported(cred *Credential) (*Credential, error) {
	if cred == nil || len(cred.PrivateKey) == 0 {
		return nil, onboarderr.ErrInvalidPrivateKey
	}

	address, err := AddressFromPrivateKey(cred.PrivateKey)
	if err != nil {
		return nil, err
	}
	if cred.Address != "" && !strings.EqualFold(cred.Address, address) {
		return nil, onboarderr.WithSuggestion(onboarderr.ErrInvalidPrivateKey, "address does not match the private key")
	}

	key := make([]byte, len(cred.PrivateKey))
	copy(key, cred.PrivateKey)

	return &Credential{
		Address:    address,
		PrivateKey: key,
		Imported:   true,
	}, nil
}

// FromPrivateKeyHex builds an imported credential from a hex private key.
func FromPrivateKeyHex(keyHex string) (*Credential, error) {
	keyHex = strings.TrimPrefix(strings.TrimSpace(keyHex), "0x")
	key, err := hex.DecodeString(keyHex)
	if err != nil || len(key) != 32 {
		return nil, onboarderr.ErrInvalidPrivateKey
	}
	defer ZeroBytes(key)

	return UseImported(&Credential{PrivateKey: key})
}

// AddressFromPrivateKey computes the checksummed address for a raw key.
func AddressFromPrivateKey(key []byte) (string, error) {
	priv, err := crypto.ToECDSA(key)
	if err != nil {
		return "", onboarderr.WithCause(onboarderr.ErrInvalidPrivateKey, err)
	}
	return crypto.PubkeyToAddress(priv.PublicKey).Hex(), nil
}

// ZeroBytes zeros out a byte slice.
func ZeroBytes(data []byte) {
	for i := range data {
		data[i] = 0
	}
}
