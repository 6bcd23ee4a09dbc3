// Package tokenstore persists OAuth tokens between CLI runs, preferring
// the system keychain with a plaintext file fallback.
package tokenstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/zalando/go-keyring"

	tradestation "github.com/quantpulse/tradestation-go"
)

const serviceName = "tscli"

// StoredToken is the on-disk form of a token. IssuedAt is kept so
// freshness can be recomputed after a restart.
type StoredToken struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
	ExpiresIn    int64  `json:"expires_in"`
	IssuedAt     int64  `json:"issued_at"`
}

// FromToken converts a live token into its storable form.
func FromToken(tok tradestation.Token) StoredToken {
	return StoredToken{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		IDToken:      tok.IDToken,
		TokenType:    tok.TokenType,
		Scope:        tradestation.JoinScopes(tok.Scope),
		ExpiresIn:    tok.ExpiresIn,
		IssuedAt:     tok.IssuedAt.Unix(),
	}
}

// Token converts the stored form back into a live token. Unknown scopes
// in the stored value fail the conversion.
func (s StoredToken) Token() (tradestation.Token, error) {
	scopes, err := tradestation.ParseScopes(s.Scope)
	if err != nil {
		return tradestation.Token{}, err
	}
	return tradestation.Token{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		IDToken:      s.IDToken,
		TokenType:    s.TokenType,
		Scope:        scopes,
		ExpiresIn:    s.ExpiresIn,
		IssuedAt:     time.Unix(s.IssuedAt, 0),
	}, nil
}

// Store handles token storage, preferring the system keychain.
type Store struct {
	useKeyring  bool
	fallbackDir string
}

// NewStore creates a token store. The keyring is probed once; when it is
// unavailable tokens fall back to a plaintext file under fallbackDir.
func NewStore(fallbackDir string) *Store {
	if os.Getenv("TSCLI_NO_KEYRING") != "" {
		return &Store{useKeyring: false, fallbackDir: fallbackDir}
	}

	testKey := "tscli::test"
	err := keyring.Set(serviceName, testKey, "test")
	if err == nil {
		_ = keyring.Delete(serviceName, testKey) // Best-effort cleanup
		return &Store{useKeyring: true, fallbackDir: fallbackDir}
	}
	fmt.Fprintf(os.Stderr, "warning: system keyring unavailable, tokens stored in plaintext at %s\n",
		filepath.Join(fallbackDir, "tokens.json"))
	return &Store{useKeyring: false, fallbackDir: fallbackDir}
}

// key returns the keyring key for a named profile.
func key(profile string) string {
	return fmt.Sprintf("tscli::%s", profile)
}

// Load retrieves the token for the given profile.
func (s *Store) Load(profile string) (*StoredToken, error) {
	if s.useKeyring {
		return s.loadFromKeyring(profile)
	}
	return s.loadFromFile(profile)
}

// Save stores the token for the given profile.
func (s *Store) Save(profile string, tok *StoredToken) error {
	if s.useKeyring {
		return s.saveToKeyring(profile, tok)
	}
	return s.saveToFile(profile, tok)
}

// Delete removes the token for the given profile.
func (s *Store) Delete(profile string) error {
	if s.useKeyring {
		return keyring.Delete(serviceName, key(profile))
	}
	return s.deleteFile(profile)
}

func (s *Store) loadFromKeyring(profile string) (*StoredToken, error) {
	data, err := keyring.Get(serviceName, key(profile))
	if err != nil {
		return nil, fmt.Errorf("token not found: %w", err)
	}

	var tok StoredToken
	if err := json.Unmarshal([]byte(data), &tok); err != nil {
		return nil, fmt.Errorf("invalid stored token: %w", err)
	}
	return &tok, nil
}

func (s *Store) saveToKeyring(profile string, tok *StoredToken) error {
	data, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	return keyring.Set(serviceName, key(profile), string(data))
}

func (s *Store) tokensPath() string {
	return filepath.Join(s.fallbackDir, "tokens.json")
}

func (s *Store) loadAllFromFile() (map[string]*StoredToken, error) {
	data, err := os.ReadFile(s.tokensPath())
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]*StoredToken), nil
		}
		return nil, err
	}

	var all map[string]*StoredToken
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	return all, nil
}

func (s *Store) saveAllToFile(all map[string]*StoredToken) error {
	if err := os.MkdirAll(s.fallbackDir, 0700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return err
	}

	// Atomic write with randomized temp file name
	tmpFile, err := os.CreateTemp(s.fallbackDir, "tokens-*.json.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmpFile.Chmod(0600); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	// Unix: rename atomically replaces the destination.
	// Windows: rename fails when destination exists. Try rename first to
	// preserve the old file on unrelated errors; only remove+retry on failure.
	destPath := s.tokensPath()
	if err := os.Rename(tmpPath, destPath); err != nil {
		if runtime.GOOS == "windows" {
			_ = os.Remove(destPath)
			return os.Rename(tmpPath, destPath)
		}
		os.Remove(tmpPath) // Clean up stale temp on failure
		return err
	}
	return nil
}

func (s *Store) loadFromFile(profile string) (*StoredToken, error) {
	all, err := s.loadAllFromFile()
	if err != nil {
		return nil, err
	}

	tok, ok := all[profile]
	if !ok {
		return nil, fmt.Errorf("token not found for profile %s", profile)
	}
	return tok, nil
}

func (s *Store) saveToFile(profile string, tok *StoredToken) error {
	all, err := s.loadAllFromFile()
	if err != nil {
		return err
	}

	all[profile] = tok
	return s.saveAllToFile(all)
}

func (s *Store) deleteFile(profile string) error {
	all, err := s.loadAllFromFile()
	if err != nil {
		return err
	}

	delete(all, profile)
	return s.saveAllToFile(all)
}

// UsingKeyring returns true if the store is using the system keyring.
func (s *Store) UsingKeyring() bool {
	return s.useKeyring
}
