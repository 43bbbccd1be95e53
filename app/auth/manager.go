package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/jwtauth"

	"atm/app/models"
	"atm/pkg/log"
	"atm/pkg/response"
	"atm/pkg/web"
)

type Manager struct {
	JWTAuth  *jwtauth.JWTAuth
	Sessions Sessions
}

func (m *Manager) GetJWTVerifier() func(http.Handler) http.Handler {
	return jwtauth.Verifier(m.JWTAuth)
}

func (m *Manager) GetJWTAuthenticator() func(http.Handler) http.Handler {
	return m.Authenticator
}

func (m *Manager) IssueAccessToken(ctx context.Context, account string) (string, error) {
	log.AddFields(ctx, "issue token for", account)

	accessToken := models.NewAccessToken(account)
	return accessToken.Encode(m.JWTAuth)
}

// Authenticator passes requests whose token was issued for the account
// the session is bound to right now.
func (m *Manager) Authenticator(next http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		token, _, err := jwtauth.FromContext(r.Context())

		if err != nil {
			web.RenderError(w, r, response.NewError(response.CodeUnauthorized, err.Error()))
			return
		}

		if token == nil || !token.Valid {
			web.RenderError(
				w, r, response.NewError(response.CodeUnauthorized, http.StatusText(http.StatusUnauthorized)),
			)
			return
		}

		accessToken, err := models.AccessTokenFromContext(r.Context())
		if err != nil {
			web.RenderError(w, r, response.NewError(response.CodeUnauthorized, err.Error()))
			return
		}

		if bound := m.Sessions.Snapshot().Account; !strings.EqualFold(bound, accessToken.Account) {
			log.AddFields(r.Context(), "token account", accessToken.Account, "bound account", bound)
			web.RenderError(
				w, r, response.NewError(response.CodeUnauthorized, "the wallet account changed, connect again"),
			)
			return
		}

		// token is authenticated, pass it through
		next.ServeHTTP(w, r)
	}
	return http.HandlerFunc(fn)
}
