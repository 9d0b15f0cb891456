package auth

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const minKeyBytes = 32

// Claims is the closed payload shape of an access token. Unknown or
// malformed shapes are rejected at deserialization; timestamps are epoch
// milliseconds on the wire.
type Claims struct {
	Subject   string   `json:"sub"`
	TenantID  string   `json:"tenant_id"`
	Roles     []string `json:"roles"`
	IssuedAt  int64    `json:"iat"`
	ExpiresAt int64    `json:"exp"`
}

func (c Claims) GetExpirationTime() (*jwt.NumericDate, error) {
	if c.ExpiresAt == 0 {
		return nil, nil
	}
	return jwt.NewNumericDate(time.UnixMilli(c.ExpiresAt)), nil
}

func (c Claims) GetIssuedAt() (*jwt.NumericDate, error) {
	if c.IssuedAt == 0 {
		return nil, nil
	}
	return jwt.NewNumericDate(time.UnixMilli(c.IssuedAt)), nil
}

func (c Claims) GetNotBefore() (*jwt.NumericDate, error) { return nil, nil }
func (c Claims) GetIssuer() (string, error)              { return "", nil }
func (c Claims) GetSubject() (string, error)             { return c.Subject, nil }
func (c Claims) GetAudience() (jwt.ClaimStrings, error)  { return nil, nil }

// Codec signs and verifies access tokens. HMAC-SHA256 by default; the
// signing method is pluggable for symmetric schemes.
type Codec struct {
	key    []byte
	method jwt.SigningMethod
	now    func() time.Time
}

// CodecOption configures Codec behavior.
type CodecOption func(*Codec)

// WithSigningMethod overrides the default HS256 signing method.
func WithSigningMethod(m jwt.SigningMethod) CodecOption {
	return func(c *Codec) {
		if m != nil {
			c.method = m
		}
	}
}

// WithCodecClock overrides the time source (useful for tests).
func WithCodecClock(fn func() time.Time) CodecOption {
	return func(c *Codec) {
		if fn != nil {
			c.now = fn
		}
	}
}

// NewCodec constructs a Codec. The key must carry at least 256 bits.
func NewCodec(key []byte, opts ...CodecOption) (*Codec, error) {
	if len(key) < minKeyBytes {
		return nil, fmt.Errorf("auth: signing key must be at least %d bytes", minKeyBytes)
	}
	c := &Codec{
		key:    key,
		method: jwt.SigningMethodHS256,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Issue signs an access token for the subject within the tenant. The token
// carries sub, tenant_id, roles, iat and exp; iat is now, exp is now+ttl.
func (c *Codec) Issue(subject, tenantID string, roles []string, ttl time.Duration) (string, time.Time, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", time.Time{}, errors.New("auth: subject is required")
	}
	if strings.TrimSpace(tenantID) == "" {
		return "", time.Time{}, errors.New("auth: tenant is required")
	}
	if ttl <= 0 {
		return "", time.Time{}, errors.New("auth: ttl must be greater than zero")
	}

	now := c.now().UTC()
	expiresAt := now.Add(ttl)
	claims := Claims{
		Subject:   subject,
		TenantID:  tenantID,
		Roles:     dedupeRoles(roles),
		IssuedAt:  now.UnixMilli(),
		ExpiresAt: expiresAt.UnixMilli(),
	}
	signed, err := jwt.NewWithClaims(c.method, claims).SignedString(c.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Validate re-derives the signature and checks expiry, returning a
// Principal built from the verified claims. Failures map to the distinct
// token error kinds.
func (c *Codec) Validate(raw string) (Principal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Principal{}, ErrTokenMalformed
	}

	parser := jwt.NewParser(
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	)
	parsed, err := parser.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != c.method.Alg() {
			return nil, ErrUnsupportedToken
		}
		return c.key, nil
	})
	if err != nil {
		return Principal{}, classifyTokenError(err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Principal{}, ErrTokenMalformed
	}
	if strings.TrimSpace(claims.Subject) == "" || strings.TrimSpace(claims.TenantID) == "" {
		return Principal{}, ErrTokenMalformed
	}
	return Principal{
		Subject: claims.Subject,
		Tenant:  claims.TenantID,
		Roles:   dedupeRoles(claims.Roles),
	}, nil
}

// ExtractClaim decodes a single payload claim without verifying the
// signature. Diagnostic use only; never an authorization input.
func (c *Codec) ExtractClaim(raw, name string) (string, error) {
	segments := strings.Split(strings.TrimSpace(raw), ".")
	if len(segments) != 3 {
		return "", ErrTokenMalformed
	}
	payloadJSON, err := base64.RawURLEncoding.DecodeString(segments[1])
	if err != nil {
		return "", ErrTokenMalformed
	}
	var payload map[string]any
	if err := json.Unmarshal(payloadJSON, &payload); err != nil {
		return "", ErrTokenMalformed
	}
	v, ok := payload[name]
	if !ok {
		return "", fmt.Errorf("auth: claim %q not present", name)
	}
	switch t := v.(type) {
	case string:
		return t, nil
	case float64:
		if t == math.Trunc(t) {
			return strconv.FormatInt(int64(t), 10), nil
		}
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return "", ErrTokenMalformed
		}
		return string(data), nil
	}
}

func classifyTokenError(err error) error {
	switch {
	case errors.Is(err, ErrUnsupportedToken):
		return ErrUnsupportedToken
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrBadSignature
	default:
		return ErrTokenMalformed
	}
}

func dedupeRoles(roles []string) []string {
	if len(roles) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(roles))
	var normalized []string
	for _, role := range roles {
		role = strings.TrimSpace(strings.ToLower(role))
		if role == "" {
			continue
		}
		if _, ok := seen[role]; ok {
			continue
		}
		seen[role] = struct{}{}
		normalized = append(normalized, role)
	}
	return normalized
}
