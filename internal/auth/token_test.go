package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postboard/internal/domain"
)

func testUser() *domain.User {
	return &domain.User{ID: "u-1", Username: "alice", Email: "alice@example.com"}
}

func TestTokenRoundTrip(t *testing.T) {
	m, err := NewTokenManager("secret", time.Hour)
	require.NoError(t, err)

	token, err := m.Issue(testUser())
	require.NoError(t, err)

	p, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, domain.Principal{UserID: "u-1", Username: "alice", Email: "alice@example.com"}, p)
}

func TestNewTokenManagerRequiresSecret(t *testing.T) {
	_, err := NewTokenManager("  ", time.Hour)
	assert.Error(t, err)

	m, err := NewTokenManager("s", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTokenTTL, m.ttl)
}

func TestVerifyRejectsExpired(t *testing.T) {
	m, err := NewTokenManager("secret", time.Minute)
	require.NoError(t, err)
	issuedAt := time.Now().Add(-time.Hour)
	m.now = func() time.Time { return issuedAt }

	token, err := m.Issue(testUser())
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.Verify(token)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issuer, _ := NewTokenManager("one", time.Hour)
	verifier, _ := NewTokenManager("two", time.Hour)

	token, err := issuer.Issue(testUser())
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsOtherAlgorithms(t *testing.T) {
	m, _ := NewTokenManager("secret", time.Hour)

	claims := &Claims{
		UserID: "u-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = m.Verify(hs512)
	assert.ErrorIs(t, err, ErrInvalidToken)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = m.Verify(none)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	m, _ := NewTokenManager("secret", time.Hour)
	for _, tok := range []string{"", "abc", "a.b.c"} {
		_, err := m.Verify(tok)
		assert.ErrorIs(t, err, ErrInvalidToken, tok)
	}
}
