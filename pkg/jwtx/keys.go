package jwtx

import (
	"crypto/ed25519"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aussiebroadwan/invite/pkg/cryptox"
)

// LoadOrGenerateKey reads a PKCS8 Ed25519 key from path. When path is empty
// an ephemeral key is generated; sessions then die with the process. When the
// file does not exist yet, a new key is generated and written there.
func LoadOrGenerateKey(path string) (ed25519.PrivateKey, error) {
	if path == "" {
		pemKey, err := cryptox.GenerateEd25519Key()
		if err != nil {
			return nil, err
		}
		return ParseKey(pemKey)
	}

	path = filepath.Clean(path)
	pemKey, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		pemKey, err = cryptox.GenerateEd25519Key()
		if err != nil {
			return nil, err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, err
		}
		if err := os.WriteFile(path, pemKey, 0o600); err != nil {
			return nil, fmt.Errorf("jwtx: write key: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("jwtx: read key: %w", err)
	}

	return ParseKey(pemKey)
}

// ParseKey loads an Ed25519 private key from PKCS8 PEM bytes.
func ParseKey(pemKey []byte) (ed25519.PrivateKey, error) {
	block, _ := pem.Decode(pemKey)
	if block == nil {
		return nil, errors.New("jwtx: invalid PEM for Ed25519 key")
	}
	if block.Type != "PRIVATE KEY" {
		return nil, fmt.Errorf("jwtx: expected PRIVATE KEY, got %q (Ed25519 requires PKCS8)", block.Type)
	}

	priv, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("jwtx: parse PKCS8: %w", err)
	}

	key, ok := priv.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("jwtx: not Ed25519 private key")
	}
	return key, nil
}
