// Package protect backs the encrypted cache decorator: it stores a
// symmetric data key in the OS credential store and uses it to seal and
// open payloads with AES-256-GCM. Encryption itself rides the standard
// library (see DESIGN.md: no third-party symmetric-cipher library
// appears anywhere in the retrieved corpus), but key custody reuses the
// same 99designs/keyring backend the original credential store used.
package protect

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"
	"os"
	"path/filepath"

	akerrors "github.com/akavache-go/akavache/internal/errors"

	"github.com/99designs/keyring"
	"golang.org/x/term"
)

const dataKeyEntry = "akavache:data-key"

// Protector seals and opens byte payloads using a key held in the
// platform credential store (Keychain, Secret Service, Credential
// Manager, or an encrypted file as a last resort).
type Protector struct {
	ring keyring.Keyring
	key  []byte
}

// Config selects the keyring backend. The zero value uses the default
// per-OS backend with a file fallback in the user's config directory.
type Config struct {
	ServiceName     string
	AllowedBackends []keyring.BackendType
	FileDir         string
}

// DefaultConfig mirrors the credential-store configuration the rest of
// the stack uses: platform-native backend first, an encrypted file as a
// fallback when no platform keyring is reachable (common on headless
// Linux hosts and CI).
func DefaultConfig(applicationName string) Config {
	home, _ := os.UserHomeDir()
	return Config{
		ServiceName: applicationName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.WinCredBackend,
			keyring.SecretServiceBackend,
			keyring.KWalletBackend,
			keyring.FileBackend,
		},
		FileDir: filepath.Join(home, ".config", applicationName, "protect"),
	}
}

// New opens (or creates) the data key used to encrypt cache payloads.
// A fresh 32-byte key is generated and stored on first use; later calls
// with the same Config reuse it, so payloads written by one process
// remain readable by another on the same machine.
func New(cfg Config) (*Protector, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName:     cfg.ServiceName,
		AllowedBackends: cfg.AllowedBackends,
		FileDir:         cfg.FileDir,
		FilePasswordFunc: func(prompt string) (string, error) {
			if pass := os.Getenv("AKAVACHE_KEYRING_PASS"); pass != "" {
				return pass, nil
			}
			fd := int(os.Stdin.Fd())
			if !term.IsTerminal(fd) {
				return "", fmt.Errorf("AKAVACHE_KEYRING_PASS not set (required for non-interactive key storage)")
			}
			fmt.Fprint(os.Stderr, prompt+": ")
			pass, err := term.ReadPassword(fd)
			fmt.Fprintln(os.Stderr)
			if err != nil {
				return "", fmt.Errorf("read password: %w", err)
			}
			return string(pass), nil
		},
	})
	if err != nil {
		return nil, akerrors.Protection(fmt.Errorf("open keyring: %w", err))
	}

	p := &Protector{ring: ring}
	if err := p.loadOrCreateKey(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Protector) loadOrCreateKey() error {
	item, err := p.ring.Get(dataKeyEntry)
	if err == nil {
		p.key = item.Data
		return nil
	}
	if err != keyring.ErrKeyNotFound {
		return akerrors.Protection(fmt.Errorf("read data key: %w", err))
	}

	key := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return akerrors.Protection(fmt.Errorf("generate data key: %w", err))
	}
	if err := p.ring.Set(keyring.Item{Key: dataKeyEntry, Data: key}); err != nil {
		return akerrors.Protection(fmt.Errorf("store data key: %w", err))
	}
	p.key = key
	return nil
}

// Seal encrypts plaintext with AES-256-GCM, prefixing the nonce. An
// empty plaintext is returned unchanged: an absent value has no
// confidentiality to protect and callers should be able to round-trip
// a zero-length cache entry.
func (p *Protector) Seal(plaintext []byte) ([]byte, error) {
	if len(plaintext) == 0 {
		return plaintext, nil
	}

	block, err := aes.NewCipher(p.key)
	if err != nil {
		return nil, akerrors.Protection(fmt.Errorf("new cipher: %w", err))
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, akerrors.Protection(fmt.Errorf("new gcm: %w", err))
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, akerrors.Protection(fmt.Errorf("generate nonce: %w", err))
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Open decrypts a payload produced by Seal.
func (p *Protector) Open(sealed []byte) ([]byte, error) {
	if len(sealed) == 0 {
		return sealed, nil
	}

	block, err := aes.NewCipher(p.key)
	if err != nil {
		return nil, akerrors.Protection(fmt.Errorf("new cipher: %w", err))
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, akerrors.Protection(fmt.Errorf("new gcm: %w", err))
	}

	nonceSize := gcm.NonceSize()
	if len(sealed) < nonceSize {
		return nil, akerrors.Protection(fmt.Errorf("sealed payload shorter than nonce"))
	}
	nonce, ciphertext := sealed[:nonceSize], sealed[nonceSize:]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, akerrors.Protection(fmt.Errorf("decrypt: %w", err))
	}
	return plaintext, nil
}
