package auth

import (
	"errors"

	"schoolboard/internal/models"
)

// ErrUnauthenticated is returned by CurrentUser for anonymous requests.
var ErrUnauthenticated = errors.New("unauthenticated")

// Principal is the authenticated caller.
type Principal struct {
	ID        uint   `json:"id"`
	UserID    string `json:"userId"`
	StudentID string `json:"studentId"`
	Name      string `json:"name"`
	IsAdmin   bool   `json:"isAdmin"`
}

// PrincipalFromUser builds a principal from the public user projection.
func PrincipalFromUser(u models.SafeUser) Principal {
	return Principal{
		ID:        u.ID,
		UserID:    u.UserID,
		StudentID: u.StudentID,
		Name:      u.Name,
		IsAdmin:   u.IsAdmin,
	}
}

// SafeUser converts the principal back into the public user projection.
func (p Principal) SafeUser() models.SafeUser {
	return models.SafeUser{
		ID:        p.ID,
		StudentID: p.StudentID,
		Name:      p.Name,
		UserID:    p.UserID,
		IsAdmin:   p.IsAdmin,
	}
}

// Source records how a request was authenticated.
type Source string

const (
	SourceNone    Source = ""
	SourceSession Source = "session"
	SourceBearer  Source = "bearer"
)

// Context carries the caller identity for one request. The zero value is anonymous.
type Context struct {
	principal *Principal
	sessionID string
	source    Source
}

// Anonymous returns a context with no caller.
func Anonymous() Context {
	return Context{}
}

// NewSessionContext returns a context authenticated through a session cookie.
func NewSessionContext(p Principal, sessionID string) Context {
	return Context{principal: &p, sessionID: sessionID, source: SourceSession}
}

// NewBearerContext returns a context authenticated through a bearer token.
func NewBearerContext(p Principal) Context {
	return Context{principal: &p, source: SourceBearer}
}

// CurrentUser returns the caller or ErrUnauthenticated.
func (c Context) CurrentUser() (Principal, error) {
	if c.principal == nil {
		return Principal{}, ErrUnauthenticated
	}
	return *c.principal, nil
}

// Authenticated reports whether a caller is present.
func (c Context) Authenticated() bool {
	return c.principal != nil
}

// SessionID is the server-side session backing this context, if any.
func (c Context) SessionID() string {
	return c.sessionID
}

// Source reports how the caller was authenticated.
func (c Context) Source() Source {
	return c.source
}
