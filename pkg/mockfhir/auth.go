package mockfhir

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// AuthConfig controls bearer authentication on the mock server. With both
// fields empty the server is open. Token takes precedence over JWTSecret.
type AuthConfig struct {
	// Token is a static bearer token compared verbatim.
	Token string `json:"token" yaml:"token"`

	// JWTSecret verifies bearer tokens as HS256-signed JWTs.
	JWTSecret string `json:"jwtSecret" yaml:"jwtSecret"`
}

// Enabled reports whether any authentication is configured.
func (a *AuthConfig) Enabled() bool {
	return a != nil && (a.Token != "" || a.JWTSecret != "")
}

// authError distinguishes a missing credential (401) from a rejected one (403).
type authError struct {
	missing bool
	message string
}

func (e *authError) Error() string { return e.message }

// authorize checks the Authorization header of a request. Returns nil when
// the request is allowed.
func (a *AuthConfig) authorize(r *http.Request) *authError {
	if !a.Enabled() {
		return nil
	}

	header := r.Header.Get("Authorization")
	if header == "" {
		return &authError{missing: true, message: "Authentication required"}
	}

	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return &authError{missing: true, message: "Bearer token required"}
	}

	if a.Token != "" {
		if token != a.Token {
			return &authError{message: "Access forbidden"}
		}
		return nil
	}

	if _, err := jwt.Parse(token, a.keyFunc, jwt.WithValidMethods([]string{"HS256"})); err != nil {
		return &authError{message: fmt.Sprintf("Access forbidden: %v", err)}
	}
	return nil
}

func (a *AuthConfig) keyFunc(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
	}
	return []byte(a.JWTSecret), nil
}
