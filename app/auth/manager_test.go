package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atm/app/models"
)

const (
	alice = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	bob   = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
)

type boundAccount struct {
	account string
}

func (b *boundAccount) Snapshot() *models.Session {
	return &models.Session{State: "Authorized", Account: b.account, Bound: b.account != ""}
}

type errorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newProtected(m *Manager) http.Handler {
	router := chi.NewRouter()
	router.Group(func(r chi.Router) {
		r.Use(m.GetJWTVerifier(), m.GetJWTAuthenticator())
		r.Get("/balance", func(w http.ResponseWriter, r *http.Request) {
			token, err := models.AccessTokenFromContext(r.Context())
			if err != nil {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			_, _ = w.Write([]byte(token.Account))
		})
	})
	return router
}

func call(t *testing.T, handler http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/balance", nil)
	if token != "" {
		req.Header.Set("Authorization", "BEARER "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestAuthenticator(t *testing.T) {
	bound := &boundAccount{account: alice}
	m := &Manager{JWTAuth: jwtauth.New("HS256", []byte("secret"), nil), Sessions: bound}
	handler := newProtected(m)

	token, err := m.IssueAccessToken(context.Background(), alice)
	require.NoError(t, err)

	rec := call(t, handler, token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, alice, rec.Body.String())

	// the wallet switched accounts, the old token is stale
	bound.account = bob
	rec = call(t, handler, token)
	body := new(errorBody)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), body))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 401, body.Error.Code)
}

func TestAuthenticator_MissingOrForeignToken(t *testing.T) {
	m := &Manager{JWTAuth: jwtauth.New("HS256", []byte("secret"), nil), Sessions: &boundAccount{account: alice}}
	handler := newProtected(m)

	assert.Equal(t, http.StatusUnauthorized, call(t, handler, "").Code)

	other := &Manager{JWTAuth: jwtauth.New("HS256", []byte("another secret"), nil)}
	token, err := other.IssueAccessToken(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, call(t, handler, token).Code)
}
