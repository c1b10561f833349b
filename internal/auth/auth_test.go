package auth

import (
	"chat-workspace/internal/config"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func newTestAuthenticator(t *testing.T) *Authenticator {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret-pass"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	return NewAuthenticator(config.AuthConfig{
		JWTSecret:       []byte(strings.Repeat("x", 32)),
		TokenExpiration: time.Hour,
		Username:        "admin",
		PasswordHash:    hash,
	})
}

func TestGenerateValidateToken(t *testing.T) {
	a := newTestAuthenticator(t)

	token, expires, err := a.GenerateToken("admin")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	if time.Until(expires) <= 0 {
		t.Errorf("expires = %v, want in the future", expires)
	}

	claims, err := a.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.Username != "admin" {
		t.Errorf("Username = %q, want admin", claims.Username)
	}

	other := NewAuthenticator(config.AuthConfig{JWTSecret: []byte(strings.Repeat("y", 32))})
	if _, err := other.ValidateToken(token); err == nil {
		t.Error("token signed with another secret should not validate")
	}
}

func TestValidateToken_Expired(t *testing.T) {
	a := newTestAuthenticator(t)
	a.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, _, err := a.GenerateToken("admin")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	if _, err := a.ValidateToken(token); err == nil {
		t.Error("expired token should not validate")
	}
}

func TestCheckCredentials(t *testing.T) {
	a := newTestAuthenticator(t)

	tests := []struct {
		name     string
		username string
		password string
		wantErr  bool
	}{
		{name: "valid", username: "admin", password: "secret-pass"},
		{name: "wrong password", username: "admin", password: "nope", wantErr: true},
		{name: "wrong user", username: "root", password: "secret-pass", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := a.CheckCredentials(tt.username, tt.password)
			if (err != nil) != tt.wantErr {
				t.Errorf("CheckCredentials() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoginHandler(t *testing.T) {
	a := newTestAuthenticator(t)

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{name: "success", body: `{"username":"admin","password":"secret-pass"}`, wantStatus: http.StatusOK},
		{name: "bad credentials", body: `{"username":"admin","password":"bad"}`, wantStatus: http.StatusUnauthorized},
		{name: "missing password", body: `{"username":"admin"}`, wantStatus: http.StatusBadRequest},
		{name: "invalid json", body: `{`, wantStatus: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			a.LoginHandler(rec, req)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (%s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantStatus == http.StatusOK && !strings.Contains(rec.Body.String(), `"token"`) {
				t.Errorf("body = %s, want token", rec.Body.String())
			}
		})
	}
}

func TestMiddleware(t *testing.T) {
	a := newTestAuthenticator(t)
	token, _, _ := a.GenerateToken("admin")

	var gotUser string
	next := func(w http.ResponseWriter, r *http.Request) {
		gotUser = UsernameFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}
	h := a.Middleware(next)

	tests := []struct {
		name       string
		header     string
		target     string
		wantStatus int
	}{
		{name: "valid header", header: "Bearer " + token, target: "/x", wantStatus: http.StatusNoContent},
		{name: "query token", target: "/x?token=" + token, wantStatus: http.StatusNoContent},
		{name: "missing", target: "/x", wantStatus: http.StatusUnauthorized},
		{name: "bad format", header: "Token " + token, target: "/x", wantStatus: http.StatusUnauthorized},
		{name: "bad token", header: "Bearer garbage", target: "/x", wantStatus: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotUser = ""
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h(rec, req)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusNoContent && gotUser != "admin" {
				t.Errorf("user = %q, want admin", gotUser)
			}
		})
	}
}

func TestMiddleware_Disabled(t *testing.T) {
	a := NewAuthenticator(config.AuthConfig{})
	var gotUser string
	h := a.Middleware(func(w http.ResponseWriter, r *http.Request) {
		gotUser = UsernameFrom(r.Context())
	})

	h(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
	if gotUser != AnonymousUser {
		t.Errorf("user = %q, want %q", gotUser, AnonymousUser)
	}

	rec := httptest.NewRecorder()
	a.LoginHandler(rec, httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(`{}`)))
	if rec.Code != http.StatusNotFound {
		t.Errorf("login status = %d, want 404 when disabled", rec.Code)
	}
}
