package jwt

import (
	"context"
	"testing"
	"time"

	"github.com/kirillkom/file-processor/internal/core/domain"
)

func newTestAuthenticator(t *testing.T) *Authenticator {
	t.Helper()
	auth, err := New("secret", time.Hour, map[string]string{"alice": "wonderland"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return auth
}

func TestLoginAndVerify(t *testing.T) {
	auth := newTestAuthenticator(t)

	token, err := auth.Login(context.Background(), "alice", "wonderland")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if token.TokenType != "Bearer" || token.ExpiresIn != 3600 || token.AccessToken == "" {
		t.Fatalf("unexpected token: %+v", token)
	}

	subject, err := auth.Verify(token.AccessToken)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if subject != "alice" {
		t.Fatalf("expected subject alice, got %q", subject)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	auth := newTestAuthenticator(t)

	for _, tc := range [][2]string{{"alice", "wrong"}, {"bob", "wonderland"}, {"bob", "\x00"}, {"alice", ""}} {
		if _, err := auth.Login(context.Background(), tc[0], tc[1]); !domain.IsKind(err, domain.ErrUnauthorized) {
			t.Fatalf("Login(%q) expected ErrUnauthorized, got %v", tc[0], err)
		}
	}
}

func TestVerifyRejectsExpiredAndForeignTokens(t *testing.T) {
	auth := newTestAuthenticator(t)
	token, err := auth.Login(context.Background(), "alice", "wonderland")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	auth.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := auth.Verify(token.AccessToken); !domain.IsKind(err, domain.ErrUnauthorized) {
		t.Fatalf("expected expired token to be rejected, got %v", err)
	}

	other, err := New("other-secret", time.Hour, map[string]string{"alice": "wonderland"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	foreign, err := other.Login(context.Background(), "alice", "wonderland")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	auth.now = time.Now
	if _, err := auth.Verify(foreign.AccessToken); !domain.IsKind(err, domain.ErrUnauthorized) {
		t.Fatalf("expected foreign token to be rejected, got %v", err)
	}
	if _, err := auth.Verify("not-a-token"); !domain.IsKind(err, domain.ErrUnauthorized) {
		t.Fatalf("expected garbage token to be rejected, got %v", err)
	}
}

func TestParseUsers(t *testing.T) {
	users, err := ParseUsers(" alice:wonderland , bob:pa:ss ,")
	if err != nil {
		t.Fatalf("ParseUsers() error = %v", err)
	}
	if len(users) != 2 || users["alice"] != "wonderland" || users["bob"] != "pa:ss" {
		t.Fatalf("unexpected users: %v", users)
	}
	if _, err := ParseUsers("alice"); err == nil {
		t.Fatalf("expected error for entry without password")
	}
}
