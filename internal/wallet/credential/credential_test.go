package credential

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewThenVerifyRoundTrips(t *testing.T) {
	h, err := New("correct-horse-battery-staple")
	require.NoError(t, err)
	require.Equal(t, Iterations, h.Iterations)
	require.Equal(t, "PBKDF2-SHA256", h.Algo)

	ok, err := Verify("correct-horse-battery-staple", h)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestVerifyRejectsWrongPassword(t *testing.T) {
	h, err := New("correct-horse-battery-staple")
	require.NoError(t, err)

	ok, err := Verify("wrong-password", h)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestNewGeneratesDistinctSaltsPerCall(t *testing.T) {
	a, err := New("same-password")
	require.NoError(t, err)
	b, err := New("same-password")
	require.NoError(t, err)

	require.NotEqual(t, a.Salt, b.Salt)
	require.NotEqual(t, a.Hash, b.Hash)
}
