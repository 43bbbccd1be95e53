package auth

import (
	"context"
	"net/http"

	"atm/app/models"
)

type Service interface {
	GetJWTVerifier() func(http.Handler) http.Handler
	GetJWTAuthenticator() func(http.Handler) http.Handler
	IssueAccessToken(ctx context.Context, account string) (string, error)
}

// Sessions reports the account the session is currently bound to.
type Sessions interface {
	Snapshot() *models.Session
}
