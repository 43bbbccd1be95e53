package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atm/pkg/response"
)

func TestRenderError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		code    int
		message string
	}{
		{"plain", errors.New("boom"), http.StatusBadRequest, 0, "boom"},
		{"coded", response.NewError(response.CodeBusy, "busy"), http.StatusBadRequest, response.CodeBusy, "busy"},
		{"unauthorized", response.NewError(response.CodeUnauthorized, "no token"), http.StatusUnauthorized, response.CodeUnauthorized, "no token"},
		{"not found", response.NewError(response.CodeNotFound, "unknown"), http.StatusNotFound, response.CodeNotFound, "unknown"},
		{"wrapped", errors.WithMessage(response.NewError(response.CodeNoProvider, "install"), "connect"), http.StatusBadRequest, response.CodeNoProvider, "install"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			RenderError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)

			assert.Equal(t, tt.status, rec.Code)
			var out webErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
			require.NotNil(t, out.Error)
			assert.Equal(t, tt.code, out.Error.Code)
			assert.Equal(t, tt.message, out.Error.Message)
		})
	}
}

func TestRenderResult(t *testing.T) {
	rec := httptest.NewRecorder()
	RenderResult(rec, httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"state": "Authorized"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"result":{"state":"Authorized"}}`, rec.Body.String())
}
