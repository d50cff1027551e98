package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
)

// ErrInvalidCredentials is returned for every failed login; callers cannot
// tell a wrong username from a wrong password.
var ErrInvalidCredentials = errors.New("Invalid username or password.")

// Gate checks logins against one fixed username and password.
type Gate struct {
	username string
	password string
}

func NewGate(username, password string) *Gate {
	return &Gate{username: username, password: password}
}

func (g *Gate) Authenticate(username, password string) error {
	usernameMatch := subtle.ConstantTimeCompare([]byte(username), []byte(g.username)) == 1
	passwordMatch := subtle.ConstantTimeCompare([]byte(password), []byte(g.password)) == 1
	if !usernameMatch || !passwordMatch {
		return ErrInvalidCredentials
	}
	return nil
}

// NewToken generates a random session token.
func NewToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
