// Package auth holds password credentials, the per-request auth context,
// server-side sessions and bearer tokens.
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// CredentialKind distinguishes how a stored password is encoded.
type CredentialKind int

const (
	// Hashed is a bcrypt hash.
	Hashed CredentialKind = iota
	// LegacyPlaintext is a password stored before hashing was introduced.
	LegacyPlaintext
)

func (k CredentialKind) String() string {
	if k == Hashed {
		return "hashed"
	}
	return "legacy_plaintext"
}

// Credential is a stored password value tagged with its encoding.
type Credential struct {
	Kind  CredentialKind
	Value string
}

// ErrPasswordMismatch is returned by Verify when the password does not match.
var ErrPasswordMismatch = errors.New("password mismatch")

// ParseCredential classifies a stored password column. bcrypt hashes carry a
// "$2" prefix; anything else is treated as legacy plaintext.
func ParseCredential(stored string) Credential {
	if strings.HasPrefix(stored, "$2") {
		return Credential{Kind: Hashed, Value: stored}
	}
	return Credential{Kind: LegacyPlaintext, Value: stored}
}

// HashPassword returns a bcrypt credential for password.
func HashPassword(password string) (Credential, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Credential{}, fmt.Errorf("failed to hash password: %w", err)
	}
	return Credential{Kind: Hashed, Value: string(hash)}, nil
}

// Verify checks password against the credential.
func (c Credential) Verify(password string) error {
	switch c.Kind {
	case Hashed:
		if err := bcrypt.CompareHashAndPassword([]byte(c.Value), []byte(password)); err != nil {
			if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
				return ErrPasswordMismatch
			}
			return fmt.Errorf("failed to compare password hash: %w", err)
		}
		return nil
	default:
		if subtle.ConstantTimeCompare([]byte(c.Value), []byte(password)) != 1 {
			return ErrPasswordMismatch
		}
		return nil
	}
}

// Upgrade returns the hashed replacement for a legacy credential whose
// password matched. The bool is false when no upgrade is needed: the
// credential is already hashed or the password does not match.
func Upgrade(c Credential, password string) (Credential, bool, error) {
	if c.Kind != LegacyPlaintext {
		return c, false, nil
	}
	if err := c.Verify(password); err != nil {
		return c, false, nil
	}
	hashed, err := HashPassword(password)
	if err != nil {
		return c, false, err
	}
	return hashed, true, nil
}
