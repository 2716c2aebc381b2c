// Package testutil provides fixtures and request helpers shared by handler
// tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"bookreviews/internal/book"
	"bookreviews/internal/platform/crypto"
	"bookreviews/internal/user"
)

// TestUser is a fixture reviewer account.
var TestUser = user.User{
	ID:        "9f1c2a3b-4d5e-4f60-8a7b-1c2d3e4f5a6b",
	Username:  "testuser",
	Email:     "test@example.com",
	Password:  "hashedpassword",
	Role:      "USER",
	CreatedAt: time.Now(),
	UpdatedAt: time.Now(),
}

// TestAdminUser is a fixture admin account.
var TestAdminUser = user.User{
	ID:        "1a2b3c4d-5e6f-4a70-9b8c-2d3e4f5a6b7c",
	Username:  "adminuser",
	Email:     "admin@example.com",
	Password:  "hashedpassword",
	Role:      "ADMIN",
	CreatedAt: time.Now(),
	UpdatedAt: time.Now(),
}

// TestBook is a fixture book with no reviews.
var TestBook = book.Book{
	ID:          "3c4d5e6f-7a8b-4c90-ad1e-3f4a5b6c7d8e",
	Title:       "Test Book Title",
	Author:      "Test Author",
	Genre:       "Fiction",
	Description: "A test book description",
	Reviews:     []book.Review{},
	CreatedAt:   time.Now(),
	UpdatedAt:   time.Now(),
}

// GenerateTestToken issues a short-lived token for the given user.
func GenerateTestToken(secret, userID, role string) string {
	token, _, _ := crypto.GenerateToken(secret, userID, role, time.Hour)
	return token
}

// GenerateExpiredToken issues a token that expired an hour ago.
func GenerateExpiredToken(secret, userID, role string) string {
	c := crypto.Claims{
		Sub:  userID,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	token, _ := t.SignedString([]byte(secret))
	return token
}

// NewRequest builds a JSON request for handler tests.
func NewRequest(method, path string, body interface{}) *http.Request {
	if body == nil {
		return httptest.NewRequest(method, path, nil)
	}
	bodyBytes, _ := json.Marshal(body)
	r := httptest.NewRequest(method, path, bytes.NewReader(bodyBytes))
	r.Header.Set("Content-Type", "application/json")
	return r
}

// NewRequestWithAuth builds a JSON request carrying a bearer token.
func NewRequestWithAuth(method, path string, body interface{}, token string) *http.Request {
	r := NewRequest(method, path, body)
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	return r
}

// RecordResponse is a decoded HTTP response.
type RecordResponse struct {
	Code   int
	Header http.Header
	Body   map[string]interface{}
}

// RecordHTTPResponse decodes the recorder into a RecordResponse.
func RecordHTTPResponse(w *httptest.ResponseRecorder) RecordResponse {
	result := w.Result()
	defer result.Body.Close()

	bodyBytes, _ := io.ReadAll(result.Body)

	var bodyMap map[string]interface{}
	if len(bodyBytes) > 0 {
		_ = json.Unmarshal(bodyBytes, &bodyMap)
	}

	return RecordResponse{
		Code:   result.StatusCode,
		Header: result.Header,
		Body:   bodyMap,
	}
}
