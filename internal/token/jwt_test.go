package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify(t *testing.T) {
	t.Parallel()

	issuer := NewIssuer("super-secret", time.Hour)

	tokenStr, err := issuer.Issue("user-123")
	require.NoError(t, err)

	userID, err := issuer.Verify(tokenStr)
	require.NoError(t, err)
	assert.Equal(t, "user-123", userID)
}

func TestVerify_Expired(t *testing.T) {
	t.Parallel()

	issuer := NewIssuer("super-secret", -time.Minute)

	tokenStr, err := issuer.Issue("user-123")
	require.NoError(t, err)

	_, err = issuer.Verify(tokenStr)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerify_WrongSecret(t *testing.T) {
	t.Parallel()

	tokenStr, err := NewIssuer("right-secret", time.Hour).Issue("user-123")
	require.NoError(t, err)

	_, err = NewIssuer("wrong-secret", time.Hour).Verify(tokenStr)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerify_Malformed(t *testing.T) {
	t.Parallel()

	issuer := NewIssuer("super-secret", time.Hour)

	for _, tokenStr := range []string{"", "not-a-token", "a.b.c"} {
		_, err := issuer.Verify(tokenStr)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	}
}
