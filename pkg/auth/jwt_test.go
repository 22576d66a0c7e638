package auth_test

import (
	"testing"
	"time"

	"github.com/bongoexpress/cargo-api/pkg/auth"
)

const testSecret = "test-secret"

func TestNewTokenAndParse(t *testing.T) {
	token, err := auth.NewToken(42, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("NewToken failed: %v", err)
	}

	claims, err := auth.Parse(token, testSecret)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if claims.Sub != 42 {
		t.Fatalf("Expected sub 42, got %d", claims.Sub)
	}
}

func TestParse_WrongSecret(t *testing.T) {
	token, err := auth.NewToken(42, testSecret, time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := auth.Parse(token, "other-secret"); err == nil {
		t.Fatal("Expected an error for a mismatched secret")
	}
}

func TestParse_Expired(t *testing.T) {
	token, err := auth.NewToken(42, testSecret, -time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := auth.Parse(token, testSecret); err == nil {
		t.Fatal("Expected an error for an expired token")
	}
}

func TestParse_Garbage(t *testing.T) {
	if _, err := auth.Parse("not.a.token", testSecret); err == nil {
		t.Fatal("Expected an error for a malformed token")
	}
}
