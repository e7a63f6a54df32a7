// AngelaMos | 2026
// handler_test.go

package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/poin-lunak/internal/config"
)

type authEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func newAuthRouter(t *testing.T) (http.Handler, *authFixture) {
	t.Helper()

	f := newAuthFixture(t)
	h := NewHandler(f.svc, config.AuthConfig{CookieName: "access_token"})

	r := chi.NewRouter()
	h.RegisterRoutes(r, func(next http.Handler) http.Handler { return next })
	return r, f
}

func post(t *testing.T, h http.Handler, path, body string) (*httptest.ResponseRecorder, authEnvelope) {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "10.1.1.1:4000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env authEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

func TestRegisterSetsSessionCookie(t *testing.T) {
	h, f := newAuthRouter(t)

	rec, env := post(t, h, "/auth/register",
		`{"email":"Rina@Example.com","password":"member123","name":"Rina"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, env.Success)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "access_token", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.NotEmpty(t, cookies[0].Value)

	var resp AuthResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, resp.Tokens.AccessToken, cookies[0].Value)

	sessions, err := f.tokens.GetActiveSessionsForUser(t.Context(), resp.User.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "10.1.1.1", sessions[0].IPAddress)

	rec, env = post(t, h, "/auth/register",
		`{"email":"rina@example.com","password":"member123","name":"Rina"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "DUPLICATE", env.Error.Code)
}

func TestAuthHandlerErrors(t *testing.T) {
	h, f := newAuthRouter(t)
	f.register(t, "dewi@example.com")

	tests := []struct {
		name   string
		path   string
		body   string
		status int
		code   string
	}{
		{"malformed body", "/auth/login", `{`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"missing password", "/auth/login", `{"email":"dewi@example.com"}`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"wrong password", "/auth/login", `{"email":"dewi@example.com","password":"nope"}`, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"unknown refresh token", "/auth/refresh", `{"refresh_token":"bogus"}`, http.StatusUnauthorized, "TOKEN_INVALID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := post(t, h, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.code, env.Error.Code)
		})
	}
}

func TestRefreshReplayReportsReuse(t *testing.T) {
	h, f := newAuthRouter(t)
	reg := f.register(t, "wulan@example.com")

	body := `{"refresh_token":"` + reg.Tokens.RefreshToken + `"}`

	rec, _ := post(t, h, "/auth/refresh", body)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env := post(t, h, "/auth/refresh", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "TOKEN_REUSE_DETECTED", env.Error.Code)
}
