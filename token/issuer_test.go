package token

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"
)

func TestIssueAndParseHS256(t *testing.T) {
	iss, err := NewIssuer(Config{TTL: time.Hour, SigningMethod: MethodHS256, PrivateKey: []byte("secret"), Issuer: "finserve"})
	if err != nil {
		t.Fatalf("NewIssuer failed: %v", err)
	}

	a, err := iss.Issue("u-1", "a@example.com")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	b, err := iss.Issue("u-1", "a@example.com")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if a == b {
		t.Fatal("expected distinct tokens per issuance")
	}

	claims, err := iss.Parse(a)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if claims.Subject != "u-1" || claims.Email != "a@example.com" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestIssueAndParseEd25519(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}
	iss, err := NewIssuer(Config{TTL: time.Minute, SigningMethod: MethodEd25519, PrivateKey: priv, PublicKey: pub})
	if err != nil {
		t.Fatalf("NewIssuer failed: %v", err)
	}
	tok, err := iss.Issue("u-2", "b@example.com")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := iss.Parse(tok); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
}

func TestParseRejectsForeignKey(t *testing.T) {
	a, _ := NewIssuer(Config{TTL: time.Hour, SigningMethod: MethodHS256, PrivateKey: []byte("one")})
	b, _ := NewIssuer(Config{TTL: time.Hour, SigningMethod: MethodHS256, PrivateKey: []byte("two")})
	tok, err := a.Issue("u", "e")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := b.Parse(tok); err == nil {
		t.Fatal("expected signature mismatch")
	}
}

func TestNewIssuerValidation(t *testing.T) {
	cases := []Config{
		{TTL: 0, SigningMethod: MethodHS256, PrivateKey: []byte("k")},
		{TTL: time.Hour, SigningMethod: MethodHS256},
		{TTL: time.Hour, SigningMethod: "rs512", PrivateKey: []byte("k")},
		{TTL: time.Hour, SigningMethod: MethodEd25519, PrivateKey: []byte("short")},
	}
	for i, cfg := range cases {
		if _, err := NewIssuer(cfg); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}
