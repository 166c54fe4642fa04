package auth

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultAccessTokenTTL is used when no token lifetime is configured.
const DefaultAccessTokenTTL = 15 * time.Minute

// ScopeAdmin grants access to every admin API route.
const ScopeAdmin = "admin"

var (
	// ErrInvalidToken wraps every verification failure.
	ErrInvalidToken = errors.New("auth: invalid token")
	errNoSubject    = errors.New("auth: token subject is required")
)

// JWTConfig configures token signing. Leeway tolerates clock skew when checking
// exp and nbf.
type JWTConfig struct {
	Secret string
	Issuer string
	TTL    time.Duration
	Leeway time.Duration
	Clock  func() time.Time
}

// Claims carry the operator name as subject and a space separated scope list.
type Claims struct {
	Scope string `json:"scope,omitempty"`
	jwt.RegisteredClaims
}

// Scopes splits the scope claim.
func (c *Claims) Scopes() []string {
	if c == nil {
		return nil
	}
	return strings.Fields(c.Scope)
}

// HasScope reports whether the token grants scope.
func (c *Claims) HasScope(scope string) bool {
	return slices.Contains(c.Scopes(), scope)
}

// IssuedToken is a signed bearer token and its metadata.
type IssuedToken struct {
	Value     string
	ID        string
	ExpiresAt time.Time
}

// JWTService signs and verifies HS256 bearer tokens for the admin API.
type JWTService struct {
	key    []byte
	issuer string
	ttl    time.Duration
	leeway time.Duration
	clock  func() time.Time
	parser *jwt.Parser
}

// NewJWTService builds a service from cfg. Secret is mandatory.
func NewJWTService(cfg JWTConfig) (*JWTService, error) {
	if strings.TrimSpace(cfg.Secret) == "" {
		return nil, errors.New("auth: jwt secret is required")
	}
	svc := &JWTService{
		key:    []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    cfg.TTL,
		leeway: max(cfg.Leeway, 0),
		clock:  cfg.Clock,
	}
	if svc.ttl <= 0 {
		svc.ttl = DefaultAccessTokenTTL
	}
	if svc.clock == nil {
		svc.clock = time.Now
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(svc.clock),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(svc.leeway),
	}
	if svc.issuer != "" {
		opts = append(opts, jwt.WithIssuer(svc.issuer))
	}
	svc.parser = jwt.NewParser(opts...)
	return svc, nil
}

// TTL is the lifetime given to issued tokens.
func (s *JWTService) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token for subject granting scopes.
func (s *JWTService) Issue(subject string, scopes ...string) (IssuedToken, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return IssuedToken{}, errNoSubject
	}
	id, err := uuid.NewV7()
	if err != nil {
		return IssuedToken{}, fmt.Errorf("auth: token id: %w", err)
	}

	issuedAt := s.clock().Truncate(time.Second)
	expiresAt := issuedAt.Add(s.ttl)
	claims := Claims{
		Scope: strings.Join(scopes, " "),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id.String(),
			Subject:   subject,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	value, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return IssuedToken{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return IssuedToken{Value: value, ID: claims.ID, ExpiresAt: expiresAt}, nil
}

// Verify checks signature, issuer and lifetime of raw and returns its claims. All
// failures match ErrInvalidToken; the jwt library sentinel stays in the chain.
func (s *JWTService) Verify(raw string) (*Claims, error) {
	claims := new(Claims)
	_, err := s.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.key, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, errNoSubject)
	}
	return claims, nil
}
