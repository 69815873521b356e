package types

import (
	"errors"
	"fmt"
	"net/http"
)

func (s *UnitTestSuite) TestTypedErrors() {
	netErr := &NetworkError{Attempts: 4, Err: errors.New("connection refused")}
	wrapped := fmt.Errorf("list projects: %w", netErr)
	s.ErrorIs(wrapped, ErrNetwork)
	s.Contains(netErr.Error(), "4 attempts")

	apiErr := NewAPIError(http.StatusNotFound, "", "")
	s.ErrorIs(apiErr, ErrAPI)
	s.Equal("Not Found", apiErr.Message)
	s.Equal("HTTP 599", NewAPIError(599, "", "").Message)

	authErr := &UnauthorizedError{Reason: ReasonSessionExpired}
	s.ErrorIs(authErr, ErrUnauthorized)
	s.NotErrorIs(authErr, ErrAPI)
}

func (s *UnitTestSuite) TestErrJoinsContext() {
	inner := errors.New("boom")
	err := Err(ErrDataStoreAccess, inner, "put %s", "projects/1")
	s.ErrorIs(err, ErrDataStoreAccess)
	s.ErrorIs(err, inner)
	s.Contains(err.Error(), "put projects/1")

	s.ErrorIs(Err(ErrNotFound, nil, ""), ErrNotFound)
}

func (s *UnitTestSuite) TestUserMessage() {
	s.Equal("", UserMessage(nil))
	s.Equal("Network error, check your connection.", UserMessage(&NetworkError{Attempts: 1, Err: errors.New("x")}))
	s.Equal("Your session has expired, please sign in again.", UserMessage(&UnauthorizedError{Reason: ReasonSessionExpired}))
	s.Equal("You are not signed in.", UserMessage(&UnauthorizedError{Reason: ReasonNoToken}))
	s.Equal("slug taken", UserMessage(NewAPIError(http.StatusConflict, "conflict", "slug taken")))
	s.Equal("At least one item must remain visible.", UserMessage(fmt.Errorf("hide: %w", ErrLastVisible)))
	s.Equal("other", UserMessage(errors.New("other")))
}
