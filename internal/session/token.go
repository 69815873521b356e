package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const refreshTimeout = 30 * time.Second

// ErrNoRefreshToken is returned by Refresh when there is nothing to refresh with.
var ErrNoRefreshToken = errors.New("no refresh token")

// StaticTokenSource always returns the same token and cannot refresh.
type StaticTokenSource string

func (s StaticTokenSource) Token(context.Context) (string, error) { return string(s), nil }

func (s StaticTokenSource) Refresh(context.Context) (string, error) {
	return "", ErrNoRefreshToken
}

// RefreshRequest and RefreshResponse are the bodies of `POST /auth/refresh`.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type RefreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// RefreshingTokenSource keeps an access/refresh token pair and exchanges the refresh token
// against the session-refresh endpoint. Concurrent refreshes share a single call.
type RefreshingTokenSource struct {
	url  string
	http *http.Client

	mu      sync.RWMutex
	access  string
	refresh string

	group singleflight.Group
}

func NewRefreshingTokenSource(baseURL, refreshPath string, httpClient *http.Client, access, refresh string) *RefreshingTokenSource {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &RefreshingTokenSource{
		url:     strings.TrimRight(baseURL, "/") + refreshPath,
		http:    httpClient,
		access:  access,
		refresh: refresh,
	}
}

// Token returns the access token, refreshing first when its exp claim has passed.
func (s *RefreshingTokenSource) Token(ctx context.Context) (string, error) {
	s.mu.RLock()
	access, refresh := s.access, s.refresh
	s.mu.RUnlock()
	if access != "" && Expired(access, timeNow()) && refresh != "" {
		return s.Refresh(ctx)
	}
	return access, nil
}

// Refresh exchanges the refresh token once for all concurrent callers. The shared call is
// detached from the caller that started it; each caller only stops waiting when its own
// ctx ends.
func (s *RefreshingTokenSource) Refresh(ctx context.Context) (string, error) {
	ch := s.group.DoChan("refresh", func() (any, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		return s.doRefresh(rctx)
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (s *RefreshingTokenSource) doRefresh(ctx context.Context) (string, error) {
	s.mu.RLock()
	refresh := s.refresh
	s.mu.RUnlock()
	if refresh == "" {
		return "", ErrNoRefreshToken
	}

	body, err := json.Marshal(RefreshRequest{RefreshToken: refresh})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("refresh: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	b, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("refresh: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("refresh: status %d", resp.StatusCode)
	}
	var out RefreshResponse
	if err := json.Unmarshal(b, &out); err != nil {
		return "", fmt.Errorf("refresh: %w", err)
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("refresh: empty access token")
	}

	s.mu.Lock()
	s.access = out.AccessToken
	if out.RefreshToken != "" {
		s.refresh = out.RefreshToken
	}
	s.mu.Unlock()
	log.Info("session token refreshed")
	return out.AccessToken, nil
}

// Expired reports whether the JWT's exp claim is before now. The signature is not
// verified; tokens without a readable exp are treated as not expired and left to the
// server to judge.
func Expired(token string, now time.Time) bool {
	claims := jwt.RegisteredClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(token, &claims)
	if err != nil || claims.ExpiresAt == nil {
		return false
	}
	return !now.Before(claims.ExpiresAt.Time)
}
