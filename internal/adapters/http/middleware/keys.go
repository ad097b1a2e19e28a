package middleware

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// KeySize is the length of every derived key.
const KeySize = 32

// Keys are the secrets the HTTP layer needs, all derived from one master.
type Keys struct {
	CSRF        []byte
	SessionHash []byte
}

// DeriveKeys expands master into independent keys with HKDF-SHA256.
// PRE: len(master) >= 16
func DeriveKeys(master []byte) (Keys, error) {
	if len(master) < 16 {
		return Keys{}, errors.New("session secret must be at least 16 bytes")
	}
	csrfKey, err := expand(master, "redline csrf")
	if err != nil {
		return Keys{}, err
	}
	hashKey, err := expand(master, "redline session hash")
	if err != nil {
		return Keys{}, err
	}
	return Keys{CSRF: csrfKey, SessionHash: hashKey}, nil
}

func expand(master []byte, info string) ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, master, nil, []byte(info)), key); err != nil {
		return nil, fmt.Errorf("derive %s key: %w", info, err)
	}
	return key, nil
}
