package auth

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store persists the admin token hash in a single file.
type Store struct {
	path string
}

// NewStore creates a store writing to the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the hash file location.
func (s *Store) Path() string {
	return s.path
}

// Exists reports whether a token has been provisioned.
func (s *Store) Exists() bool {
	info, err := os.Stat(s.path)
	return err == nil && !info.IsDir()
}

// Rotate generates a fresh token, stores its hash, and returns the raw
// token. The raw token cannot be recovered afterwards.
func (s *Store) Rotate() (string, error) {
	token, err := GenerateToken()
	if err != nil {
		return "", err
	}

	hash, err := HashToken(token)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return "", fmt.Errorf("create token directory: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(hash+"\n"), 0600); err != nil {
		return "", fmt.Errorf("write token hash: %w", err)
	}

	return token, nil
}

// LoadHash reads the stored hash.
func (s *Store) LoadHash() (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return "", fmt.Errorf("read token hash: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Verify checks a presented token against the stored hash. Malformed
// tokens are rejected before the bcrypt comparison; a missing or
// unreadable hash file rejects every token.
func (s *Store) Verify(token string) bool {
	if !IsValidTokenFormat(token) {
		return false
	}
	hash, err := s.LoadHash()
	if err != nil || hash == "" {
		return false
	}
	return VerifyToken(token, hash)
}
