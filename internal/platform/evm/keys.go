// Package evm generates deposit accounts on EVM compatible chains and seals
// their private keys for storage.
package evm

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	SealAlgorithm = "aes-256-gcm"
	Network       = "BEP20"
)

var ErrInvalidAddress = errors.New("invalid EVM address")

// DepositAccount is a freshly generated key pair. PrivateKey must be sealed
// before it leaves the process.
type DepositAccount struct {
	Address    string
	PrivateKey []byte
}

// SealedKey is the JSON stored alongside a deposit address.
type SealedKey struct {
	Cipher  string `json:"cipher"`
	IV      string `json:"iv"`
	Tag     string `json:"tag"`
	Alg     string `json:"alg"`
	Version int    `json:"version"`
}

// NewDepositAccount creates a secp256k1 key and its checksummed address.
func NewDepositAccount() (*DepositAccount, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return &DepositAccount{
		Address:    crypto.PubkeyToAddress(key.PublicKey).Hex(),
		PrivateKey: crypto.FromECDSA(key),
	}, nil
}

// NormalizeAddress validates a hex address and returns its EIP-55 form.
func NormalizeAddress(addr string) (string, error) {
	addr = strings.TrimSpace(addr)
	if !common.IsHexAddress(addr) {
		return "", ErrInvalidAddress
	}
	normalized := common.HexToAddress(addr)
	if normalized == (common.Address{}) {
		return "", ErrInvalidAddress
	}
	return normalized.Hex(), nil
}

// KeySealer encrypts deposit private keys with AES-256-GCM.
type KeySealer struct {
	aead    cipher.AEAD
	version int
}

// NewKeySealer takes the 32 byte key as 64 hex characters.
func NewKeySealer(hexKey string, version int) (*KeySealer, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decode sealing key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("sealing key must be 32 bytes, got %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &KeySealer{aead: aead, version: version}, nil
}

func (s *KeySealer) Seal(plaintext []byte) (*SealedKey, error) {
	iv := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("generate iv: %w", err)
	}
	out := s.aead.Seal(nil, iv, plaintext, nil)
	split := len(out) - s.aead.Overhead()

	return &SealedKey{
		Cipher:  base64.StdEncoding.EncodeToString(out[:split]),
		IV:      base64.StdEncoding.EncodeToString(iv),
		Tag:     base64.StdEncoding.EncodeToString(out[split:]),
		Alg:     SealAlgorithm,
		Version: s.version,
	}, nil
}

func (s *KeySealer) Open(sealed *SealedKey) ([]byte, error) {
	if sealed.Alg != SealAlgorithm {
		return nil, fmt.Errorf("unsupported algorithm %q", sealed.Alg)
	}
	ct, err := base64.StdEncoding.DecodeString(sealed.Cipher)
	if err != nil {
		return nil, fmt.Errorf("decode cipher: %w", err)
	}
	iv, err := base64.StdEncoding.DecodeString(sealed.IV)
	if err != nil {
		return nil, fmt.Errorf("decode iv: %w", err)
	}
	tag, err := base64.StdEncoding.DecodeString(sealed.Tag)
	if err != nil {
		return nil, fmt.Errorf("decode tag: %w", err)
	}
	if len(iv) != s.aead.NonceSize() {
		return nil, fmt.Errorf("iv must be %d bytes", s.aead.NonceSize())
	}
	return s.aead.Open(nil, iv, append(ct, tag...), nil)
}
