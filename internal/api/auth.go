package api

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	TokenUseAccess  = "access"
	TokenUseRefresh = "refresh"

	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
)

var errWrongTokenUse = errors.New("wrong token use")

// timeNow is replaced in tests.
var timeNow = time.Now

// Claims of the tokens issued by the reference server.
type Claims struct {
	Use string `json:"use"`
	jwt.RegisteredClaims
}

// Authenticator issues and verifies HS256 tokens for the reference admin API.
type Authenticator struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{
		secret:     []byte(secret),
		accessTTL:  defaultAccessTTL,
		refreshTTL: defaultRefreshTTL,
	}
}

// Issue signs a fresh access/refresh pair for subject.
func (a *Authenticator) Issue(subject string) (access, refresh string, err error) {
	access, err = a.sign(subject, TokenUseAccess, a.accessTTL)
	if err != nil {
		return "", "", err
	}
	refresh, err = a.sign(subject, TokenUseRefresh, a.refreshTTL)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

// IssueWithTTL signs a single token; a negative ttl yields an already expired token.
func (a *Authenticator) IssueWithTTL(subject, use string, ttl time.Duration) (string, error) {
	return a.sign(subject, use, ttl)
}

func (a *Authenticator) sign(subject, use string, ttl time.Duration) (string, error) {
	now := timeNow()
	claims := Claims{
		Use: use,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Verify checks signature, expiry and intended use of token.
func (a *Authenticator) Verify(token, use string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return a.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(timeNow),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	if claims.Use != use {
		return nil, fmt.Errorf("%w: %q", errWrongTokenUse, claims.Use)
	}
	return claims, nil
}
