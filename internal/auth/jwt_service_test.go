package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ now time.Time }

func (f *fakeClock) Now() time.Time { return f.now }

func newTestJWT(t *testing.T, cfg JWTConfig) *JWTService {
	t.Helper()
	if cfg.Secret == "" {
		cfg.Secret = "test-secret"
	}
	svc, err := NewJWTService(cfg)
	require.NoError(t, err)
	return svc
}

func TestNewJWTServiceRequiresSecret(t *testing.T) {
	_, err := NewJWTService(JWTConfig{Secret: "  "})
	require.Error(t, err)
}

func TestJWTServiceTTL(t *testing.T) {
	require.Equal(t, DefaultAccessTokenTTL, newTestJWT(t, JWTConfig{}).TTL())
	require.Equal(t, 30*time.Minute, newTestJWT(t, JWTConfig{TTL: 30 * time.Minute}).TTL())
}

func TestIssueAndVerify(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)}
	svc := newTestJWT(t, JWTConfig{Issuer: "assistente", TTL: time.Hour, Clock: clock.Now})

	issued, err := svc.Issue("operator", ScopeAdmin, "backups:run")
	require.NoError(t, err)
	require.NotEmpty(t, issued.Value)
	require.Len(t, issued.ID, 36)
	require.Equal(t, clock.now.Add(time.Hour), issued.ExpiresAt)

	claims, err := svc.Verify(issued.Value)
	require.NoError(t, err)
	require.Equal(t, "operator", claims.Subject)
	require.Equal(t, "assistente", claims.Issuer)
	require.Equal(t, issued.ID, claims.ID)
	require.Equal(t, "admin backups:run", claims.Scope)
	require.Equal(t, []string{ScopeAdmin, "backups:run"}, claims.Scopes())
	require.True(t, claims.HasScope(ScopeAdmin))
	require.False(t, claims.HasScope("backups"))
}

func TestIssueRequiresSubject(t *testing.T) {
	_, err := newTestJWT(t, JWTConfig{}).Issue(" ")
	require.ErrorIs(t, err, errNoSubject)
}

func TestHasScopeOnNilClaims(t *testing.T) {
	var claims *Claims
	require.False(t, claims.HasScope(ScopeAdmin))
}

func TestVerifyRejections(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)}
	svc := newTestJWT(t, JWTConfig{Issuer: "assistente", TTL: time.Minute, Clock: clock.Now})
	foreign := newTestJWT(t, JWTConfig{Issuer: "elsewhere", Clock: clock.Now})
	otherKey := newTestJWT(t, JWTConfig{Secret: "another-secret", Issuer: "assistente", Clock: clock.Now})

	fromForeign, err := foreign.Issue("operator")
	require.NoError(t, err)
	fromOtherKey, err := otherKey.Issue("operator")
	require.NoError(t, err)

	cases := []struct {
		name  string
		token string
		cause error
	}{
		{"empty", "", jwt.ErrTokenMalformed},
		{"garbage", "a.b.c", jwt.ErrTokenMalformed},
		{"foreign issuer", fromForeign.Value, jwt.ErrTokenInvalidIssuer},
		{"wrong key", fromOtherKey.Value, jwt.ErrTokenSignatureInvalid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Verify(tc.token)
			require.ErrorIs(t, err, ErrInvalidToken)
			require.ErrorIs(t, err, tc.cause)
		})
	}
}

func TestVerifyExpiryAndLeeway(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)}
	strict := newTestJWT(t, JWTConfig{TTL: time.Minute, Clock: clock.Now})
	lenient := newTestJWT(t, JWTConfig{TTL: time.Minute, Leeway: time.Minute, Clock: clock.Now})

	issued, err := strict.Issue("operator")
	require.NoError(t, err)

	clock.now = clock.now.Add(90 * time.Second)

	_, err = strict.Verify(issued.Value)
	require.ErrorIs(t, err, jwt.ErrTokenExpired)

	_, err = lenient.Verify(issued.Value)
	require.NoError(t, err)
}
