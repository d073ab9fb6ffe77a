package http

import (
	"net/http"
	"testing"
)

func TestRegisterLoginVerify(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do(t, http.MethodPost, "/api/auth/register", "", RegisterRequest{
		Email:    "Jane@Example.com",
		Password: "password123",
		Name:     "Jane",
	})
	expectStatus(t, resp, http.StatusCreated)

	var registered AuthResponse
	decodeBody(t, resp, &registered)
	if registered.Token == "" {
		t.Fatalf("expected token in register response")
	}
	if registered.User.Email != "jane@example.com" || registered.User.Role != "agent" {
		t.Fatalf("unexpected user: %+v", registered.User)
	}

	resp = env.do(t, http.MethodPost, "/api/auth/register", "", RegisterRequest{
		Email:    "jane@example.com",
		Password: "password123",
		Name:     "Jane Again",
	})
	expectStatus(t, resp, http.StatusConflict)

	resp = env.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{Email: "jane@example.com", Password: "wrong-pass"})
	expectStatus(t, resp, http.StatusUnauthorized)

	resp = env.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{Email: "jane@example.com", Password: "password123"})
	expectStatus(t, resp, http.StatusOK)
	var loggedIn AuthResponse
	decodeBody(t, resp, &loggedIn)

	resp = env.do(t, http.MethodGet, "/api/auth/verify", loggedIn.Token, nil)
	expectStatus(t, resp, http.StatusOK)
	var verified VerifyResponse
	decodeBody(t, resp, &verified)
	if verified.User.ID != registered.User.ID || verified.User.Name != "Jane" {
		t.Fatalf("verify returned %+v, want %+v", verified.User, registered.User)
	}
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t, nil)

	cases := map[string]RegisterRequest{
		"bad email":      {Email: "nope", Password: "password123", Name: "Jane"},
		"short password": {Email: "j@example.com", Password: "123", Name: "Jane"},
		"short name":     {Email: "j@example.com", Password: "password123", Name: "J"},
		"unknown role":   {Email: "j@example.com", Password: "password123", Name: "Jane", Role: "owner"},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			resp := env.do(t, http.MethodPost, "/api/auth/register", "", req)
			expectStatus(t, resp, http.StatusBadRequest)
		})
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, path := range []string{"/api/auth/verify", "/api/conversations", "/api/faq", "/api/analytics/dashboard"} {
		resp := env.do(t, http.MethodGet, path, "", nil)
		expectStatus(t, resp, http.StatusUnauthorized)

		resp = env.do(t, http.MethodGet, path, "garbage", nil)
		expectStatus(t, resp, http.StatusUnauthorized)
	}
}
