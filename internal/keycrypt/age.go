package keycrypt

import (
	"bytes"
	"fmt"
	"io"

	"filippo.io/age"
)

// seal encrypts plaintext under passphrase with an age scrypt stanza of the
// given cost.
func seal(plaintext []byte, passphrase string, workFactor int) ([]byte, error) {
	recipient, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return nil, fmt.Errorf("scrypt recipient: %w", err)
	}
	recipient.SetWorkFactor(workFactor)

	var out bytes.Buffer
	if err := writeSealed(&out, recipient, plaintext); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func writeSealed(dst io.Writer, recipient age.Recipient, plaintext []byte) error {
	w, err := age.Encrypt(dst, recipient)
	if err != nil {
		return fmt.Errorf("age header: %w", err)
	}
	if _, err := w.Write(plaintext); err != nil {
		_ = w.Close()
		return fmt.Errorf("age payload: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("age trailer: %w", err)
	}
	return nil
}

// open decrypts a sealed payload into locked memory. Work factors above
// MaxWorkFactor are refused before any scrypt work is done.
func open(ciphertext []byte, passphrase string) (*SecureBytes, error) {
	identity, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return nil, fmt.Errorf("scrypt identity: %w", err)
	}
	identity.SetMaxWorkFactor(MaxWorkFactor)

	r, err := age.Decrypt(bytes.NewReader(ciphertext), identity)
	if err != nil {
		return nil, fmt.Errorf("age header: %w", err)
	}

	var plain bytes.Buffer
	_, err = plain.ReadFrom(r)
	raw := plain.Bytes()
	defer clear(raw)
	if err != nil {
		return nil, fmt.Errorf("age payload: %w", err)
	}
	return SecureBytesFromSlice(raw), nil
}
