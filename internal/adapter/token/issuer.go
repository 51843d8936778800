package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/neomorfeo/garagedesk/internal/domain"
)

// DefaultTTL is the lifetime of a token when none is configured.
const DefaultTTL = 12 * time.Hour

// Compile-time check: Issuer implements domain.TokenIssuer.
var _ domain.TokenIssuer = (*Issuer)(nil)

type claims struct {
	Email          string      `json:"email"`
	Name           string      `json:"name,omitempty"`
	Role           domain.Role `json:"role"`
	OrganisationID string      `json:"org,omitempty"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies HS256 bearer tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// Option configures an Issuer.
type Option func(*Issuer)

// WithClock overrides the time source used for issuing and validating.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) { i.now = now }
}

// NewIssuer creates an issuer. The secret must not be empty.
func NewIssuer(secret string, ttl time.Duration, opts ...Option) (*Issuer, error) {
	if secret == "" {
		return nil, errors.New("token secret is empty")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	i := &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// Issue returns a signed token for p.
func (i *Issuer) Issue(p domain.Principal) (string, error) {
	now := i.now()
	c := claims{
		Email:          p.Email,
		Name:           p.Name,
		Role:           p.Role,
		OrganisationID: p.OrganisationID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Verify parses a token and returns its principal. Any parse, signature, or
// expiry failure is domain.ErrInvalidToken.
func (i *Issuer) Verify(raw string) (domain.Principal, error) {
	var c claims
	_, err := jwt.ParseWithClaims(raw, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now), jwt.WithExpirationRequired())
	if err != nil {
		return domain.Principal{}, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
	if c.Subject == "" || c.Role == "" {
		return domain.Principal{}, domain.ErrInvalidToken
	}

	return domain.Principal{
		ID:             c.Subject,
		Email:          c.Email,
		Name:           c.Name,
		Role:           c.Role,
		OrganisationID: c.OrganisationID,
	}, nil
}
