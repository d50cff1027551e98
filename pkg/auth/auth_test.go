package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticate(t *testing.T) {
	g := NewGate("user", "pass")
	require.NoError(t, g.Authenticate("user", "pass"))

	for _, c := range [][2]string{
		{"user", "wrong"},
		{"admin", "pass"},
		{"", ""},
		{"User", "pass"},
		{"user ", "pass"},
	} {
		err := g.Authenticate(c[0], c[1])
		require.ErrorIs(t, err, ErrInvalidCredentials, "%q/%q", c[0], c[1])
		assert.Equal(t, "Invalid username or password.", err.Error())
	}
}

func TestNewToken(t *testing.T) {
	a, err := NewToken()
	require.NoError(t, err)
	b, err := NewToken()
	require.NoError(t, err)
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}
