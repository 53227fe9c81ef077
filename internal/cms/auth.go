package cms

import "context"

// User identifies the operator a stored session belongs to.
type User struct {
	Name string
}

// Credentials is what an operator presents at login: a bearer token for
// the store and a passphrase protecting it at rest.
type Credentials struct {
	User       string
	Token      string
	Passphrase string
}

// Session is an unlocked credential set ready to attach to store calls.
type Session struct {
	User  string
	Token string
}

// AuthGate owns authentication. The synchronizer and the store backends
// never authenticate themselves; they receive the bearer token from an
// unlocked Session at construction.
type AuthGate interface {
	// CurrentUser reports the logged-in user, or nil when no session is
	// stored.
	CurrentUser() *User

	// Login verifies and stores the credentials, returning the session.
	// Fails with ErrAuthFailure when the credentials are unusable.
	Login(ctx context.Context, creds Credentials) (*Session, error)

	// Unlock decrypts the stored credentials with the passphrase.
	// Fails with ErrAuthFailure when no session is stored or the
	// passphrase is wrong.
	Unlock(passphrase string) (*Session, error)

	// Logout removes the stored session. Removing an absent session is
	// not an error.
	Logout() error
}
