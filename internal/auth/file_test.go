package auth_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"pagesync/internal/auth"
	"pagesync/internal/cms"
	"pagesync/internal/config"
)

func newTestGate(t *testing.T) *auth.FileGate {
	t.Helper()
	dir := t.TempDir()
	return auth.NewFileGate(config.AuthConfig{
		CredentialsPath: filepath.Join(dir, "credentials.age"),
		SessionPath:     filepath.Join(dir, "session"),
	})
}

func TestFileGate_LoginUnlock(t *testing.T) {
	t.Run("unlock returns what login stored", func(t *testing.T) {
		t.Parallel()
		gate := newTestGate(t)

		sess, err := gate.Login(context.Background(), cms.Credentials{
			User:       "alice",
			Token:      "ghp_secret",
			Passphrase: "correct horse",
		})
		if err != nil {
			t.Fatalf("Login() error = %v", err)
		}
		if sess.User != "alice" || sess.Token != "ghp_secret" {
			t.Fatalf("Login() session = %+v", sess)
		}

		got, err := gate.Unlock("correct horse")
		if err != nil {
			t.Fatalf("Unlock() error = %v", err)
		}
		if got.User != "alice" {
			t.Errorf("Unlock() user = %q, want alice", got.User)
		}
		if got.Token != "ghp_secret" {
			t.Errorf("Unlock() token = %q, want ghp_secret", got.Token)
		}
	})

	t.Run("wrong passphrase fails with auth failure", func(t *testing.T) {
		t.Parallel()
		gate := newTestGate(t)

		if _, err := gate.Login(context.Background(), cms.Credentials{
			User: "alice", Token: "tok", Passphrase: "right",
		}); err != nil {
			t.Fatal(err)
		}

		_, err := gate.Unlock("wrong")
		if !errors.Is(err, cms.ErrAuthFailure) {
			t.Fatalf("Unlock() error = %v, want ErrAuthFailure", err)
		}
	})

	t.Run("unlock without login fails with auth failure", func(t *testing.T) {
		t.Parallel()
		gate := newTestGate(t)
		_, err := gate.Unlock("anything")
		if !errors.Is(err, cms.ErrAuthFailure) {
			t.Fatalf("Unlock() error = %v, want ErrAuthFailure", err)
		}
	})

	t.Run("empty token or passphrase is rejected", func(t *testing.T) {
		t.Parallel()
		gate := newTestGate(t)
		ctx := context.Background()

		if _, err := gate.Login(ctx, cms.Credentials{User: "a", Passphrase: "p"}); !errors.Is(err, cms.ErrAuthFailure) {
			t.Errorf("Login() without token error = %v, want ErrAuthFailure", err)
		}
		if _, err := gate.Login(ctx, cms.Credentials{User: "a", Token: "t"}); !errors.Is(err, cms.ErrAuthFailure) {
			t.Errorf("Login() without passphrase error = %v, want ErrAuthFailure", err)
		}
	})

	t.Run("token is not stored in plaintext", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		credPath := filepath.Join(dir, "credentials.age")
		gate := auth.NewFileGate(config.AuthConfig{
			CredentialsPath: credPath,
			SessionPath:     filepath.Join(dir, "session"),
		})

		if _, err := gate.Login(context.Background(), cms.Credentials{
			User: "alice", Token: "ghp_supersecret", Passphrase: "p",
		}); err != nil {
			t.Fatal(err)
		}

		raw, err := os.ReadFile(credPath)
		if err != nil {
			t.Fatal(err)
		}
		if bytes.Contains(raw, []byte("ghp_supersecret")) {
			t.Error("credentials file contains the token in plaintext")
		}
	})
}

func TestFileGate_CurrentUser(t *testing.T) {
	t.Parallel()

	gate := newTestGate(t)
	if u := gate.CurrentUser(); u != nil {
		t.Fatalf("CurrentUser() before login = %v, want nil", u)
	}

	if _, err := gate.Login(context.Background(), cms.Credentials{
		User: "bob", Token: "t", Passphrase: "p",
	}); err != nil {
		t.Fatal(err)
	}

	u := gate.CurrentUser()
	if u == nil || u.Name != "bob" {
		t.Fatalf("CurrentUser() = %v, want bob", u)
	}
}

func TestFileGate_Logout(t *testing.T) {
	t.Run("removes the session", func(t *testing.T) {
		t.Parallel()
		gate := newTestGate(t)

		if _, err := gate.Login(context.Background(), cms.Credentials{
			User: "bob", Token: "t", Passphrase: "p",
		}); err != nil {
			t.Fatal(err)
		}
		if err := gate.Logout(); err != nil {
			t.Fatalf("Logout() error = %v", err)
		}

		if u := gate.CurrentUser(); u != nil {
			t.Errorf("CurrentUser() after logout = %v, want nil", u)
		}
		if _, err := gate.Unlock("p"); !errors.Is(err, cms.ErrAuthFailure) {
			t.Errorf("Unlock() after logout error = %v, want ErrAuthFailure", err)
		}
	})

	t.Run("logout without a session is fine", func(t *testing.T) {
		t.Parallel()
		gate := newTestGate(t)
		if err := gate.Logout(); err != nil {
			t.Fatalf("Logout() error = %v", err)
		}
	})
}

