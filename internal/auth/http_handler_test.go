package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookreviews/internal/httpx"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string              `json:"code"`
		Message string              `json:"message"`
		Details []httpx.ErrorDetail `json:"details"`
	} `json:"error"`
}

func doJSON(t *testing.T, h http.HandlerFunc, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

func TestHTTPHandler_Register(t *testing.T) {
	t.Run("creates user without exposing the password", func(t *testing.T) {
		svc, _ := newTestService()
		h := NewHTTPHandler(svc)

		rec, env := doJSON(t, h.Register, http.MethodPost, "/auth/register",
			`{"username":"alice","email":"Alice@Example.com","password":"Password1"}`)

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.True(t, env.Success)
		assert.NotContains(t, string(env.Data), "Password1")
		assert.NotContains(t, string(env.Data), `"password"`)

		var got struct {
			Email string `json:"email"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &got))
		assert.Equal(t, "alice@example.com", got.Email, "email is normalized to lower case")
	})

	t.Run("weak password", func(t *testing.T) {
		svc, _ := newTestService()
		h := NewHTTPHandler(svc)

		rec, env := doJSON(t, h.Register, http.MethodPost, "/auth/register",
			`{"username":"alice","email":"alice@example.com","password":"short"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		require.NotNil(t, env.Error)
		assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	})

	t.Run("email already registered", func(t *testing.T) {
		svc, _ := newTestService()
		h := NewHTTPHandler(svc)

		_, first := doJSON(t, h.Register, http.MethodPost, "/auth/register",
			`{"username":"alice","email":"alice@example.com","password":"Password1"}`)
		require.True(t, first.Success)

		rec, env := doJSON(t, h.Register, http.MethodPost, "/auth/register",
			`{"username":"alice2","email":"alice@example.com","password":"Password1"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		require.NotNil(t, env.Error)
		require.Len(t, env.Error.Details, 1)
		assert.Equal(t, "email", env.Error.Details[0].Field)
	})

	t.Run("invalid json", func(t *testing.T) {
		svc, _ := newTestService()
		h := NewHTTPHandler(svc)

		rec, env := doJSON(t, h.Register, http.MethodPost, "/auth/register", `{"username":`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		require.NotNil(t, env.Error)
		assert.Equal(t, "INVALID_REQUEST", env.Error.Code)
	})
}

func TestHTTPHandler_Login(t *testing.T) {
	svc, _ := newTestService()
	h := NewHTTPHandler(svc)

	_, reg := doJSON(t, h.Register, http.MethodPost, "/auth/register",
		`{"username":"alice","email":"alice@example.com","password":"Password1"}`)
	require.True(t, reg.Success)

	t.Run("returns token and user", func(t *testing.T) {
		rec, env := doJSON(t, h.Login, http.MethodPost, "/auth/login",
			`{"email":"alice@example.com","password":"Password1"}`)

		assert.Equal(t, http.StatusOK, rec.Code)
		var got struct {
			Token string `json:"token"`
			User  struct {
				Username string `json:"username"`
			} `json:"user"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &got))
		assert.NotEmpty(t, got.Token)
		assert.Equal(t, "alice", got.User.Username)
	})

	t.Run("bad credentials", func(t *testing.T) {
		rec, env := doJSON(t, h.Login, http.MethodPost, "/auth/login",
			`{"email":"alice@example.com","password":"nope"}`)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		require.NotNil(t, env.Error)
		assert.Equal(t, "UNAUTHORIZED", env.Error.Code)
	})
}

func TestHTTPHandler_Me(t *testing.T) {
	svc, _ := newTestService()
	h := NewHTTPHandler(svc)

	_, reg := doJSON(t, h.Register, http.MethodPost, "/auth/register",
		`{"username":"alice","email":"alice@example.com","password":"Password1"}`)
	require.True(t, reg.Success)
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(reg.Data, &created))

	t.Run("returns current user", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", strings.NewReader(""))
		req = req.WithContext(httpx.ContextWithUser(req.Context(), created.ID, "USER"))
		rec := httptest.NewRecorder()
		h.Me(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var env envelope
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
		var got struct {
			Username string `json:"username"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &got))
		assert.Equal(t, "alice", got.Username)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", strings.NewReader(""))
		rec := httptest.NewRecorder()
		h.Me(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
