package auth

import (
	"chat-workspace/internal/config"
	"chat-workspace/internal/logger"
	"chat-workspace/pkg/validation"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

type contextKey string

const UserContextKey contextKey = "user"

// AnonymousUser is put in the request context when auth is disabled
const AnonymousUser = "anonymous"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAuthDisabled       = errors.New("authentication is disabled")
)

type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Authenticator issues and checks tokens for the single configured account
type Authenticator struct {
	secret       []byte
	ttl          time.Duration
	username     string
	passwordHash []byte
	validator    *validation.AuthRequestValidator
	now          func() time.Time
}

// NewAuthenticator creates an Authenticator from configuration
func NewAuthenticator(cfg config.AuthConfig) *Authenticator {
	ttl := cfg.TokenExpiration
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Authenticator{
		secret:       cfg.JWTSecret,
		ttl:          ttl,
		username:     cfg.Username,
		passwordHash: cfg.PasswordHash,
		validator:    validation.NewAuthRequestValidator(),
		now:          time.Now,
	}
}

// Enabled reports whether tokens are required
func (a *Authenticator) Enabled() bool {
	return len(a.secret) > 0
}

// sendError sends a standardized JSON error response
func sendError(w http.ResponseWriter, status int, message string, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	errResp := ErrorResponse{
		Code:    status,
		Message: message,
	}
	if err != nil {
		errResp.Error = err.Error()
	}
	json.NewEncoder(w).Encode(errResp)
}

// GenerateToken signs a token for username
func (a *Authenticator) GenerateToken(username string) (string, time.Time, error) {
	if !a.Enabled() {
		return "", time.Time{}, ErrAuthDisabled
	}
	now := a.now()
	expires := now.Add(a.ttl)
	claims := Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

// ValidateToken parses and verifies a signed token
func (a *Authenticator) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, jwt.ErrSignatureInvalid
}

// CheckCredentials verifies username and password against the configured account
func (a *Authenticator) CheckCredentials(username, password string) error {
	if subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) != 1 {
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// LoginHandler authenticates the user and returns a JWT token
func (a *Authenticator) LoginHandler(w http.ResponseWriter, r *http.Request) {
	if !a.Enabled() {
		sendError(w, http.StatusNotFound, "Authentication is disabled", nil)
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := a.validator.ValidateLoginRequest(req.Username, req.Password); err != nil {
		sendError(w, http.StatusBadRequest, "Username and password are required", err)
		return
	}

	if err := a.CheckCredentials(req.Username, req.Password); err != nil {
		logger.Log.WithField("username", req.Username).Warn("Login failed")
		sendError(w, http.StatusUnauthorized, "Invalid credentials", nil)
		return
	}

	token, expires, err := a.GenerateToken(req.Username)
	if err != nil {
		logger.Log.WithError(err).Error("Error generating token")
		sendError(w, http.StatusInternalServerError, "Error generating token", err)
		return
	}

	logger.Log.WithField("username", req.Username).Info("User logged in successfully")

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(LoginResponse{Token: token, ExpiresAt: expires})
}

// Middleware requires a valid bearer token when auth is enabled
func (a *Authenticator) Middleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !a.Enabled() {
			ctx := context.WithValue(r.Context(), UserContextKey, AnonymousUser)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		tokenString, ok := bearerToken(r)
		if !ok {
			sendError(w, http.StatusUnauthorized, "Missing or invalid authorization header", nil)
			return
		}

		claims, err := a.ValidateToken(tokenString)
		if err != nil {
			sendError(w, http.StatusUnauthorized, "Invalid token", err)
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, claims.Username)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// bearerToken reads the Authorization header, falling back to the token
// query parameter used by browser WebSocket clients
func bearerToken(r *http.Request) (string, bool) {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.Split(header, " ")
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return "", false
		}
		return parts[1], true
	}
	if token := r.URL.Query().Get("token"); token != "" {
		return token, true
	}
	return "", false
}

// UsernameFrom returns the authenticated user stored by Middleware
func UsernameFrom(ctx context.Context) string {
	if name, ok := ctx.Value(UserContextKey).(string); ok {
		return name
	}
	return ""
}
