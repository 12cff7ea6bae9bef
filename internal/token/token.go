// Package token mints and verifies the HS256 access and refresh tokens issued
// at login. Tokens are self-contained: subject, owning contract, kind, and
// expiry are all claims, and nothing is stored server-side.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	KindAccess  = "access"
	KindRefresh = "refresh"
)

var (
	ErrExpired = errors.New("token expired")
	ErrInvalid = errors.New("token invalid")
)

// Claims is the decoded view of a verified token.
type Claims struct {
	Subject    string
	ContractID string
	Kind       string
	IssuedAt   time.Time
	ExpiresAt  time.Time
}

type signedClaims struct {
	jwt.RegisteredClaims
	ContractID string `json:"cid"`
	Kind       string `json:"kind"`
}

// Manager signs and verifies tokens with a single symmetric secret. It is
// immutable after construction and safe for concurrent use.
type Manager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewManager builds a Manager. now may be nil, in which case time.Now is used.
func NewManager(secret []byte, accessTTL, refreshTTL time.Duration, now func() time.Time) *Manager {
	if now == nil {
		now = time.Now
	}
	return &Manager{
		secret:     secret,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        now,
	}
}

// IssuePair mints an access and a refresh token for the given subject, both
// scoped to the owning contract.
func (m *Manager) IssuePair(username, contractID string) (string, string, error) {
	access, err := m.sign(username, contractID, KindAccess, m.accessTTL)
	if err != nil {
		return "", "", err
	}
	refresh, err := m.sign(username, contractID, KindRefresh, m.refreshTTL)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

// IssueAccess mints a fresh access token, used when renewing from a refresh
// token.
func (m *Manager) IssueAccess(username, contractID string) (string, error) {
	return m.sign(username, contractID, KindAccess, m.accessTTL)
}

func (m *Manager) sign(username, contractID, kind string, ttl time.Duration) (string, error) {
	now := m.now().UTC()
	claims := signedClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		ContractID: contractID,
		Kind:       kind,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Decode verifies the signature and signing method, then checks expiry against
// the manager's clock. Expiry is validated here rather than by the jwt library
// so the clock stays injectable.
func (m *Manager) Decode(tokenStr string) (Claims, error) {
	if tokenStr == "" {
		return Claims{}, ErrInvalid
	}

	var parsed signedClaims
	_, err := jwt.ParseWithClaims(tokenStr, &parsed, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return Claims{}, ErrInvalid
	}
	if parsed.Subject == "" || parsed.ExpiresAt == nil {
		return Claims{}, ErrInvalid
	}
	if parsed.Kind != KindAccess && parsed.Kind != KindRefresh {
		return Claims{}, ErrInvalid
	}

	claims := Claims{
		Subject:    parsed.Subject,
		ContractID: parsed.ContractID,
		Kind:       parsed.Kind,
		ExpiresAt:  parsed.ExpiresAt.Time.UTC(),
	}
	if parsed.IssuedAt != nil {
		claims.IssuedAt = parsed.IssuedAt.Time.UTC()
	}
	if !claims.ExpiresAt.After(m.now().UTC()) {
		return Claims{}, ErrExpired
	}
	return claims, nil
}
