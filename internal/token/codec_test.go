package token

import (
	"errors"
	"testing"
	"time"
)

func newTestCodec(t *testing.T, opts ...Option) *Codec {
	t.Helper()
	c, err := NewCodec("access-secret", "refresh-secret", opts...)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	return c
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	for _, domain := range []Domain{DomainAccess, DomainRefresh, DomainReset} {
		c := newTestCodec(t)
		in := Claims{Email: "a@x.com", Roles: []string{"ADMIN"}, Permissions: []string{"READ_USER", "CREATE_USER"}}
		in.Subject = "6f1e9c52-0f4b-4c1e-9e5a-9a1f6a2b3c4d"

		raw, exp, err := c.Issue(in, domain)
		if err != nil {
			t.Fatalf("Issue(%s): %v", domain, err)
		}
		if !exp.After(time.Now()) {
			t.Fatalf("expected future expiry, got %v", exp)
		}

		out, err := c.Verify(raw, domain)
		if err != nil {
			t.Fatalf("Verify(%s): %v", domain, err)
		}
		if out.Subject != in.Subject || out.Email != in.Email {
			t.Fatalf("identity claims not preserved: %+v", out)
		}
		if len(out.Roles) != 1 || out.Roles[0] != "ADMIN" {
			t.Fatalf("roles not preserved: %v", out.Roles)
		}
		if len(out.Permissions) != 2 {
			t.Fatalf("permissions not preserved: %v", out.Permissions)
		}
		if out.IssuedAt == nil || out.ExpiresAt == nil || out.ID == "" {
			t.Fatalf("expected issued-at, expiry and jti to be set")
		}
	}
}

func TestVerifyRejectsWrongDomain(t *testing.T) {
	c := newTestCodec(t)
	claims := Claims{Email: "a@x.com"}
	claims.Subject = "user-1"

	raw, _, err := c.Issue(claims, DomainAccess)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := c.Verify(raw, DomainRefresh); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for cross-domain verify, got %v", err)
	}
}

func TestVerifyRejectsMalformedToken(t *testing.T) {
	c := newTestCodec(t)
	for _, raw := range []string{"", "not.a.jwt", "a.b", "   "} {
		if _, err := c.Verify(raw, DomainAccess); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken for %q, got %v", raw, err)
		}
	}
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	issuing := newTestCodec(t)
	verifying, err := NewCodec("different-secret", "refresh-secret")
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	claims := Claims{Email: "a@x.com"}
	claims.Subject = "user-1"

	raw, _, err := issuing.Issue(claims, DomainAccess)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := verifying.Verify(raw, DomainAccess); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for wrong secret, got %v", err)
	}
}

func TestVerifyExpiryBoundary(t *testing.T) {
	issuedAt := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	clock := issuedAt
	c := newTestCodec(t, WithAccessTTL(time.Minute), WithClock(func() time.Time { return clock }))

	claims := Claims{Email: "a@x.com"}
	claims.Subject = "user-1"
	raw, exp, err := c.Issue(claims, DomainAccess)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if !exp.Equal(issuedAt.Add(time.Minute)) {
		t.Fatalf("unexpected expiry: %v", exp)
	}

	clock = exp.Add(-time.Second)
	if _, err := c.Verify(raw, DomainAccess); err != nil {
		t.Fatalf("expected token valid one second before expiry: %v", err)
	}

	clock = exp.Add(time.Second)
	if _, err := c.Verify(raw, DomainAccess); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken one second past expiry, got %v", err)
	}
}

func TestResetDomainUsesShortTTL(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	c := newTestCodec(t, WithClock(func() time.Time { return now }))

	claims := Claims{Email: "a@x.com"}
	claims.Subject = "user-1"
	_, exp, err := c.Issue(claims, DomainReset)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if got := exp.Sub(now); got != time.Hour {
		t.Fatalf("expected 1h reset lifetime, got %v", got)
	}
}

func TestNewCodecRequiresSecrets(t *testing.T) {
	if _, err := NewCodec("", "refresh"); err == nil {
		t.Fatal("expected error for missing access secret")
	}
	if _, err := NewCodec("access", "   "); err == nil {
		t.Fatal("expected error for missing refresh secret")
	}
}
