package jwt

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kirillkom/file-processor/internal/core/domain"
)

const (
	tokenType = "Bearer"
	issuer    = "file-processor"
)

// Authenticator issues HS256 tokens for a fixed set of configured users.
type Authenticator struct {
	secret []byte
	ttl    time.Duration
	users  map[string]string
	now    func() time.Time
}

func New(secret string, ttl time.Duration, users map[string]string) (*Authenticator, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("jwt secret is empty")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("jwt ttl must be positive, got %s", ttl)
	}
	copied := make(map[string]string, len(users))
	for name, password := range users {
		copied[name] = password
	}
	return &Authenticator{
		secret: []byte(secret),
		ttl:    ttl,
		users:  copied,
		now:    time.Now,
	}, nil
}

// ParseUsers reads "name:password,name2:password2".
func ParseUsers(raw string) (map[string]string, error) {
	users := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, password, ok := strings.Cut(pair, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" || password == "" {
			return nil, fmt.Errorf("invalid user entry %q", pair)
		}
		users[name] = password
	}
	return users, nil
}

func (a *Authenticator) Login(_ context.Context, username, password string) (*domain.Token, error) {
	expected, ok := a.users[username]
	if !ok {
		// Compare anyway so unknown users cost the same as wrong passwords.
		expected = "\x00"
	}
	if subtle.ConstantTimeCompare([]byte(expected), []byte(password)) != 1 || !ok {
		return nil, domain.WrapError(domain.ErrUnauthorized, "login", errors.New("invalid credentials"))
	}

	now := a.now()
	claims := jwt.RegisteredClaims{
		Subject:   username,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &domain.Token{
		AccessToken: signed,
		TokenType:   tokenType,
		ExpiresIn:   int64(a.ttl.Seconds()),
	}, nil
}

// Verify returns the subject of a valid, unexpired token.
func (a *Authenticator) Verify(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return a.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return "", domain.WrapError(domain.ErrUnauthorized, "verify token", err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return "", domain.WrapError(domain.ErrUnauthorized, "verify token", errors.New("token has no subject"))
	}
	return claims.Subject, nil
}
