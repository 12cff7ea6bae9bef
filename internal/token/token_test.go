package token

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("test-secret")

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func TestIssueAndDecodePair(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m := NewManager(testSecret, 30*time.Minute, 24*time.Hour, fixedClock(start))

	access, refresh, err := m.IssuePair("alice", "contract-1")
	if err != nil {
		t.Fatalf("issue pair: %v", err)
	}

	claims, err := m.Decode(access)
	if err != nil {
		t.Fatalf("decode access: %v", err)
	}
	if claims.Subject != "alice" || claims.ContractID != "contract-1" || claims.Kind != KindAccess {
		t.Fatalf("unexpected access claims: %+v", claims)
	}
	if !claims.ExpiresAt.Equal(start.Add(30 * time.Minute)) {
		t.Fatalf("unexpected access expiry: %v", claims.ExpiresAt)
	}

	claims, err = m.Decode(refresh)
	if err != nil {
		t.Fatalf("decode refresh: %v", err)
	}
	if claims.Kind != KindRefresh {
		t.Fatalf("expected refresh kind, got %q", claims.Kind)
	}
	if !claims.ExpiresAt.Equal(start.Add(24 * time.Hour)) {
		t.Fatalf("unexpected refresh expiry: %v", claims.ExpiresAt)
	}
}

func TestDecodeExpired(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := start
	m := NewManager(testSecret, 30*time.Minute, 24*time.Hour, func() time.Time { return clock })

	access, err := m.IssueAccess("alice", "contract-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	clock = start.Add(29 * time.Minute)
	if _, err := m.Decode(access); err != nil {
		t.Fatalf("decode before expiry: %v", err)
	}

	clock = start.Add(31 * time.Minute)
	if _, err := m.Decode(access); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestDecodeRejectsTampered(t *testing.T) {
	m := NewManager(testSecret, 30*time.Minute, 24*time.Hour, nil)
	access, err := m.IssueAccess("alice", "contract-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	tampered := access[:len(access)-2] + "xx"
	if _, err := m.Decode(tampered); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid for tampered token, got %v", err)
	}
}

func TestDecodeRejectsWrongSecret(t *testing.T) {
	issuer := NewManager([]byte("other-secret"), 30*time.Minute, 24*time.Hour, nil)
	access, err := issuer.IssueAccess("alice", "contract-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	m := NewManager(testSecret, 30*time.Minute, 24*time.Hour, nil)
	if _, err := m.Decode(access); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid for wrong secret, got %v", err)
	}
}

func TestDecodeRejectsUnsignedAlg(t *testing.T) {
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub":  "alice",
		"cid":  "contract-1",
		"kind": KindAccess,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}

	m := NewManager(testSecret, 30*time.Minute, 24*time.Hour, nil)
	if _, err := m.Decode(raw); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid for alg none, got %v", err)
	}
}

func TestDecodeRejectsEmptyAndGarbage(t *testing.T) {
	m := NewManager(testSecret, 30*time.Minute, 24*time.Hour, nil)
	for _, input := range []string{"", "not-a-token", strings.Repeat("a.", 3)} {
		if _, err := m.Decode(input); !errors.Is(err, ErrInvalid) {
			t.Fatalf("input %q: expected ErrInvalid, got %v", input, err)
		}
	}
}

func TestDecodeRejectsUnknownKind(t *testing.T) {
	m := NewManager(testSecret, 30*time.Minute, 24*time.Hour, nil)
	raw, err := m.sign("alice", "contract-1", "session", time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := m.Decode(raw); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid for unknown kind, got %v", err)
	}
}

func TestRenewedAccessExpiresLater(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := start
	m := NewManager(testSecret, 30*time.Minute, 24*time.Hour, func() time.Time { return clock })

	first, err := m.IssueAccess("alice", "contract-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	firstClaims, err := m.Decode(first)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	clock = start.Add(20 * time.Minute)
	second, err := m.IssueAccess("alice", "contract-1")
	if err != nil {
		t.Fatalf("issue renewed: %v", err)
	}
	secondClaims, err := m.Decode(second)
	if err != nil {
		t.Fatalf("decode renewed: %v", err)
	}

	if !secondClaims.ExpiresAt.After(firstClaims.ExpiresAt) {
		t.Fatalf("renewed token must expire later: first=%v second=%v", firstClaims.ExpiresAt, secondClaims.ExpiresAt)
	}
}
