package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(Options{
		SigningKey: []byte("test-secret"),
		Issuer:     "xboard",
		Audience:   "xboard-client",
		TTL:        time.Hour,
	})
	require.NoError(t, err)
	return m
}

func TestIssueAndParse(t *testing.T) {
	m := newTestManager(t)
	signed, issued, err := m.IssueForUser(42, "", false)
	require.NoError(t, err)
	assert.NotEmpty(t, issued.SessionID)
	assert.NotEmpty(t, issued.ID)

	claims, err := m.Parse(signed)
	require.NoError(t, err)
	uid, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, int64(42), uid)
	assert.Equal(t, issued.SessionID, claims.SessionID)
}

func TestParseExpired(t *testing.T) {
	m := newTestManager(t)
	signed, _, err := m.IssueForUser(1, "s", false)
	require.NoError(t, err)

	m.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = m.Parse(signed)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestParseRejectsForeignToken(t *testing.T) {
	m := newTestManager(t)
	other, err := NewManager(Options{SigningKey: []byte("other"), Issuer: "xboard", Audience: "xboard-client"})
	require.NoError(t, err)
	signed, _, err := other.IssueForUser(1, "", false)
	require.NoError(t, err)

	_, err = m.Parse(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.Parse("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssueValidation(t *testing.T) {
	_, err := NewManager(Options{})
	assert.Error(t, err)

	m := newTestManager(t)
	_, _, err = m.IssueForUser(0, "", false)
	assert.Error(t, err)
}
