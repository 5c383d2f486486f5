// Package vault stores API credentials encrypted at rest: a random 32-byte
// key file plus an XChaCha20-Poly1305 sealed JSON credential map under the
// data directory.
package vault

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

const (
	keyFileName  = "vault.key"
	dataFileName = "credentials.vault"
)

// Vault is a file-backed encrypted credential store.
type Vault struct {
	keyPath  string
	dataPath string
}

// Open prepares a vault rooted at dir, generating the key file on first use.
func Open(dir string) (*Vault, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("vault directory is required")
	}

	// #nosec G301 -- parent data directory; the key file itself is 0600
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create vault directory: %w", err)
	}

	v := &Vault{
		keyPath:  filepath.Join(dir, keyFileName),
		dataPath: filepath.Join(dir, dataFileName),
	}

	if _, err := os.Stat(v.keyPath); errors.Is(err, os.ErrNotExist) {
		if err := v.writeNewKey(); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, fmt.Errorf("stat vault key: %w", err)
	}

	return v, nil
}

// Store seals the credential map to disk, replacing previous contents.
func (v *Vault) Store(creds map[string]string) error {
	if creds == nil {
		creds = map[string]string{}
	}

	plaintext, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}

	key, err := v.readKey()
	if err != nil {
		return err
	}

	sealed, err := seal(key, plaintext)
	if err != nil {
		return err
	}

	if err := os.WriteFile(v.dataPath, sealed, 0o600); err != nil {
		return fmt.Errorf("write vault: %w", err)
	}
	return nil
}

// Load opens the sealed credential map. A vault with no stored credentials
// yields an empty map.
func (v *Vault) Load() (map[string]string, error) {
	sealed, err := os.ReadFile(v.dataPath)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read vault: %w", err)
	}

	key, err := v.readKey()
	if err != nil {
		return nil, err
	}

	plaintext, err := open(key, sealed)
	if err != nil {
		return nil, err
	}

	creds := map[string]string{}
	if err := json.Unmarshal(plaintext, &creds); err != nil {
		return nil, fmt.Errorf("decode credentials: %w", err)
	}
	return creds, nil
}

// Set stores a single credential, preserving the others.
func (v *Vault) Set(name, value string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("credential name is required")
	}

	creds, err := v.Load()
	if err != nil {
		return err
	}
	creds[name] = value
	return v.Store(creds)
}

// Rotate generates a new key and re-seals the stored credentials with it.
func (v *Vault) Rotate() error {
	creds, err := v.Load()
	if err != nil {
		return err
	}
	if err := v.writeNewKey(); err != nil {
		return err
	}
	return v.Store(creds)
}

func (v *Vault) writeNewKey() error {
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		return fmt.Errorf("generate vault key: %w", err)
	}
	if err := os.WriteFile(v.keyPath, key, 0o600); err != nil {
		return fmt.Errorf("write vault key: %w", err)
	}
	return nil
}

func (v *Vault) readKey() ([]byte, error) {
	key, err := os.ReadFile(v.keyPath)
	if err != nil {
		return nil, fmt.Errorf("read vault key: %w", err)
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("vault key has wrong size: %d", len(key))
	}
	return key, nil
}

func seal(key, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

func open(key, sealed []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	if len(sealed) < aead.NonceSize() {
		return nil, errors.New("vault data is truncated")
	}

	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("open vault: %w", err)
	}
	return plaintext, nil
}
