package ports

import "context"

// TokenSource supplies the bearer credential attached to API requests.
type TokenSource interface {
	// Token returns the current access token, or "" when there is none.
	Token(ctx context.Context) (string, error)

	// Refresh obtains a new access token. It is called at most once per request, after
	// the server rejected the current token.
	Refresh(ctx context.Context) (string, error)
}
