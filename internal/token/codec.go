// Package token implements the signed-token codec: issuance and verification
// of access, refresh and password-reset JWTs, each in its own signing domain.
package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"authcore.io/internal/ids"
)

const (
	defaultAccessTTL  = 24 * time.Hour
	defaultRefreshTTL = 7 * 24 * time.Hour
	defaultResetTTL   = time.Hour
	defaultIssuer     = "authcore"
)

// ErrInvalidToken indicates the token failed signature, structure or expiry
// validation. Callers must not distinguish the cases.
var ErrInvalidToken = errors.New("token: invalid or expired token")

// Domain selects an independent secret and lifetime used to sign a class of
// tokens. Reset tokens share the access secret but carry their own short TTL.
type Domain int

const (
	DomainAccess Domain = iota
	DomainRefresh
	DomainReset
)

func (d Domain) String() string {
	switch d {
	case DomainAccess:
		return "access"
	case DomainRefresh:
		return "refresh"
	case DomainReset:
		return "reset"
	default:
		return "unknown"
	}
}

// Claims is the decoded token payload: identity plus the authorization
// snapshot taken at issuance time.
type Claims struct {
	Email       string   `json:"email"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
	jwt.RegisteredClaims
}

// Codec signs and verifies tokens. Secrets are immutable after construction.
type Codec struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	resetTTL      time.Duration
	issuer        string
	now           func() time.Time
}

// Option configures Codec behavior.
type Option func(*Codec) error

// WithAccessTTL configures access token lifetime.
func WithAccessTTL(ttl time.Duration) Option {
	return func(c *Codec) error {
		if ttl <= 0 {
			return errors.New("token: access ttl must be positive")
		}
		c.accessTTL = ttl
		return nil
	}
}

// WithRefreshTTL configures refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) Option {
	return func(c *Codec) error {
		if ttl <= 0 {
			return errors.New("token: refresh ttl must be positive")
		}
		c.refreshTTL = ttl
		return nil
	}
}

// WithResetTTL configures password-reset token lifetime.
func WithResetTTL(ttl time.Duration) Option {
	return func(c *Codec) error {
		if ttl <= 0 {
			return errors.New("token: reset ttl must be positive")
		}
		c.resetTTL = ttl
		return nil
	}
}

// WithIssuer overrides the issuer claim.
func WithIssuer(issuer string) Option {
	return func(c *Codec) error {
		issuer = strings.TrimSpace(issuer)
		if issuer == "" {
			return errors.New("token: issuer must not be empty")
		}
		c.issuer = issuer
		return nil
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(c *Codec) error {
		if fn != nil {
			c.now = fn
		}
		return nil
	}
}

// NewCodec constructs a Codec with two independent signing secrets.
func NewCodec(accessSecret, refreshSecret string, opts ...Option) (*Codec, error) {
	if strings.TrimSpace(accessSecret) == "" || strings.TrimSpace(refreshSecret) == "" {
		return nil, errors.New("token: both signing secrets are required")
	}
	c := &Codec{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     defaultAccessTTL,
		refreshTTL:    defaultRefreshTTL,
		resetTTL:      defaultResetTTL,
		issuer:        defaultIssuer,
		now:           time.Now,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Issue signs a token for the given subject in the requested domain and
// returns the serialized token along with its expiry.
func (c *Codec) Issue(claims Claims, domain Domain) (string, time.Time, error) {
	if strings.TrimSpace(claims.Subject) == "" {
		return "", time.Time{}, errors.New("token: subject is required")
	}
	now := c.now().UTC()
	exp := now.Add(c.ttl(domain))

	claims.Issuer = c.issuer
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(exp)
	claims.ID = ids.New()

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(c.secret(domain))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", domain, err)
	}
	return signed, exp, nil
}

// Verify validates signature, structure and expiry against the given domain
// and returns the decoded claims.
func (c *Codec) Verify(raw string, domain Domain) (*Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return c.secret(domain), nil
	},
		jwt.WithTimeFunc(c.now),
		jwt.WithIssuer(c.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (c *Codec) secret(domain Domain) []byte {
	if domain == DomainRefresh {
		return c.refreshSecret
	}
	// Reset tokens reuse the access signing domain.
	return c.accessSecret
}

func (c *Codec) ttl(domain Domain) time.Duration {
	switch domain {
	case DomainRefresh:
		return c.refreshTTL
	case DomainReset:
		return c.resetTTL
	default:
		return c.accessTTL
	}
}
