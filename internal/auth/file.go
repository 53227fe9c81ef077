package auth

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"filippo.io/age"

	"pagesync/internal/cms"
	"pagesync/internal/config"
)

// FileGate implements cms.AuthGate with file-backed storage. The bearer
// token is encrypted at rest with the operator's passphrase using age's
// scrypt-based passphrase encryption. The username is stored in a plain
// sidecar file so CurrentUser works without the passphrase.
type FileGate struct {
	credentialsPath string
	sessionPath     string
}

var _ cms.AuthGate = (*FileGate)(nil)

// NewFileGate creates a FileGate from configuration.
func NewFileGate(cfg config.AuthConfig) *FileGate {
	return &FileGate{
		credentialsPath: cfg.CredentialsPath,
		sessionPath:     cfg.SessionPath,
	}
}

// CurrentUser reports the logged-in user, or nil when no session is stored.
func (g *FileGate) CurrentUser() *cms.User {
	data, err := os.ReadFile(g.sessionPath)
	if err != nil {
		return nil
	}
	name := strings.TrimSpace(string(data))
	if name == "" {
		return nil
	}
	return &cms.User{Name: name}
}

// Login encrypts and stores the credentials, replacing any prior session.
func (g *FileGate) Login(_ context.Context, creds cms.Credentials) (*cms.Session, error) {
	if creds.Token == "" {
		return nil, fmt.Errorf("login: %w: empty token", cms.ErrAuthFailure)
	}
	if creds.Passphrase == "" {
		return nil, fmt.Errorf("login: %w: empty passphrase", cms.ErrAuthFailure)
	}

	for _, p := range []string{g.credentialsPath, g.sessionPath} {
		if err := os.MkdirAll(filepath.Dir(p), 0700); err != nil {
			return nil, fmt.Errorf("creating credentials directory: %w", err)
		}
	}

	recipient, err := age.NewScryptRecipient(creds.Passphrase)
	if err != nil {
		return nil, fmt.Errorf("creating scrypt recipient: %w", err)
	}

	credFile, err := os.OpenFile(g.credentialsPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return nil, fmt.Errorf("creating credentials file: %w", err)
	}
	defer credFile.Close()

	w, err := age.Encrypt(credFile, recipient)
	if err != nil {
		return nil, fmt.Errorf("creating encrypted writer: %w", err)
	}
	if _, err := io.WriteString(w, creds.User+"\n"+creds.Token+"\n"); err != nil {
		return nil, fmt.Errorf("writing encrypted credentials: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalizing encrypted credentials: %w", err)
	}

	if err := os.WriteFile(g.sessionPath, []byte(creds.User+"\n"), 0600); err != nil {
		return nil, fmt.Errorf("writing session file: %w", err)
	}

	return &cms.Session{User: creds.User, Token: creds.Token}, nil
}

// Unlock decrypts the stored credentials with the passphrase.
func (g *FileGate) Unlock(passphrase string) (*cms.Session, error) {
	data, err := os.ReadFile(g.credentialsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("unlock: %w: not logged in", cms.ErrAuthFailure)
		}
		return nil, fmt.Errorf("reading credentials file: %w", err)
	}

	identity, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return nil, fmt.Errorf("creating scrypt identity: %w", err)
	}

	r, err := age.Decrypt(bytes.NewReader(data), identity)
	if err != nil {
		return nil, fmt.Errorf("unlock: %w: %v", cms.ErrAuthFailure, err)
	}

	payload, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading decrypted credentials: %w", err)
	}

	lines := strings.SplitN(strings.TrimRight(string(payload), "\n"), "\n", 2)
	if len(lines) != 2 || lines[1] == "" {
		return nil, fmt.Errorf("unlock: %w: malformed credentials", cms.ErrAuthFailure)
	}

	return &cms.Session{User: lines[0], Token: lines[1]}, nil
}

// Logout removes the stored session. Removing an absent session is fine.
func (g *FileGate) Logout() error {
	for _, p := range []string{g.credentialsPath, g.sessionPath} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing %s: %w", p, err)
		}
	}
	return nil
}
