package credential

import (
	"fmt"
	"strings"

	"github.com/decred/dcrd/hdkeychain/v3"
	"github.com/tyler-smith/go-bip39"

	onboarderr "github.com/mrz1836/onboard/pkg/errors"
)

// ethCoinType is the SLIP-44 coin type for Ethereum.
const ethCoinType = 60

// DefaultPath is the derivation path of the first Ethereum account.
const DefaultPath = "m/44'/60'/0'/0/0"

// hdNetParams satisfies hdkeychain.NetworkParams with Bitcoin mainnet
// version bytes. They only affect serialization, never the derived keys.
type hdNetParams struct{}

func (hdNetParams) HDPrivKeyVersion() [4]byte { return [4]byte{0x04, 0x88, 0xAD, 0xE4} }
func (hdNetParams) HDPubKeyVersion() [4]byte  { return [4]byte{0x04, 0x88, 0xB2, 0x1E} }

// Derive derives the first Ethereum account from a mnemonic phrase.
// The same phrase always yields the same address and key.
func Derive(mnemonic string) (*Credential, error) {
	if err := ValidateMnemonic(mnemonic); err != nil {
		return nil, err
	}
	normalized := NormalizeMnemonic(mnemonic)

	seed := bip39.NewSeed(normalized, "")
	defer ZeroBytes(seed)

	key, err := deriveAccountKey(seed, 0, 0)
	if err != nil {
		return nil, err
	}

	address, err := AddressFromPrivateKey(key)
	if err != nil {
		ZeroBytes(key)
		return nil, err
	}

	return &Credential{
		Address:    address,
		PrivateKey: key,
		Mnemonic:   strings.Fields(normalized),
	}, nil
}

// deriveAccountKey walks m/44'/60'/account'/0/index and returns a copy of the
// 32-byte private key.
func deriveAccountKey(seed []byte, account, index uint32) ([]byte, error) {
	master, err := hdkeychain.NewMaster(seed, hdNetParams{})
	if err != nil {
		return nil, onboarderr.Wrap(err, "creating master key")
	}

	path := []struct {
		name  string
		index uint32
	}{
		{"purpose", hdkeychain.HardenedKeyStart + 44},
		{"coin type", hdkeychain.HardenedKeyStart + ethCoinType},
		{"account", hdkeychain.HardenedKeyStart + account},
		{"change", 0},
		{"address index", index},
	}

	current := master
	for _, step := range path {
		current, err = current.ChildBIP32Std(step.index)
		if err != nil {
			return nil, fmt.Errorf("failed to derive %s key: %w", step.name, err)
		}
	}

	serialized, err := current.SerializedPrivKey()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize private key: %w", err)
	}

	key := make([]byte, 32)
	copy(key[32-len(serialized):], serialized)
	return key, nil
}
