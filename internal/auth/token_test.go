package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenIssuer_IssueVerify(t *testing.T) {
	ti := NewTokenIssuer([]byte("0123456789abcdef"), time.Hour)

	token, sess, err := ti.Issue("u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", sess.UserID)
	assert.Equal(t, 1, ti.Sessions())

	got, err := ti.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, sess, got)

	other := NewTokenIssuer([]byte("another-secret-value"), time.Hour)
	_, err = other.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = ti.Verify("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenIssuer_Expiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ti := NewTokenIssuer([]byte("0123456789abcdef"), time.Minute)
	ti.now = func() time.Time { return now }

	token, _, err := ti.Issue("u1")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = ti.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenIssuer_RejectsOtherAlgorithms(t *testing.T) {
	ti := NewTokenIssuer([]byte("0123456789abcdef"), time.Hour)
	_, sess, err := ti.Issue("u1")
	require.NoError(t, err)

	claims := jwt.RegisteredClaims{
		ID:        sess.ID,
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("0123456789abcdef"))
	require.NoError(t, err)

	_, err = ti.Verify(forged)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenIssuer_Revoke(t *testing.T) {
	ti := NewTokenIssuer([]byte("0123456789abcdef"), time.Hour)

	t1, s1, _ := ti.Issue("u1")
	t2, s2, _ := ti.Issue("u1")
	_, _, _ = ti.Issue("u2")

	_, ok := ti.Revoke(s1.ID)
	assert.True(t, ok)
	_, ok = ti.Revoke(s1.ID)
	assert.False(t, ok)

	_, err := ti.Verify(t1)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = ti.Verify(t2)
	assert.NoError(t, err)

	assert.Empty(t, ti.RevokeUser("u1", s2.ID))
	revoked := ti.RevokeUser("u1", "")
	require.Len(t, revoked, 1)
	assert.Equal(t, s2.ID, revoked[0].ID)
	assert.Equal(t, 1, ti.Sessions())
}

func TestLimiter(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewLimiter(1, 2)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"))

	now = now.Add(time.Second)
	assert.True(t, l.Allow("a"))

	l.Reset("a")
	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))

	now = now.Add(time.Minute)
	assert.Equal(t, 2, l.Prune(30*time.Second))
	assert.Equal(t, 0, l.Len())
}

func TestLimiter_Disabled(t *testing.T) {
	l := NewLimiter(0, 0)
	for range 100 {
		assert.True(t, l.Allow("a"))
	}
}
