package token

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testSecret() []byte {
	return []byte(strings.Repeat("a", 32))
}

func TestIssueThenValidateRoundTrips(t *testing.T) {
	m, err := NewManager(testSecret(), time.Hour)
	require.NoError(t, err)

	tok, err := m.Issue("alice")
	require.NoError(t, err)
	require.NotEmpty(t, tok)

	claims, err := m.Validate(tok)
	require.NoError(t, err)
	require.Equal(t, "alice", claims.Username)
	require.Equal(t, "access", claims.Type)
}

func TestNewManagerRejectsShortSecret(t *testing.T) {
	_, err := NewManager([]byte("short"), time.Hour)
	require.Error(t, err)
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	m, err := NewManager(testSecret(), -time.Minute)
	require.NoError(t, err)

	tok, err := m.Issue("alice")
	require.NoError(t, err)

	_, err = m.Validate(tok)
	require.Error(t, err)
}

func TestValidateRejectsTamperedToken(t *testing.T) {
	m, err := NewManager(testSecret(), time.Hour)
	require.NoError(t, err)

	tok, err := m.Issue("alice")
	require.NoError(t, err)

	_, err = m.Validate(tok + "x")
	require.Error(t, err)
}
