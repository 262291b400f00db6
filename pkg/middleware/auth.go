/**
 * @description
 * Bearer-token authentication for owner endpoints. Tokens are HS256 JWTs whose
 * subject is the account id. For local environments a plain X-User-Id header can
 * be accepted instead when explicitly enabled.
 */
package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const userIDContextKey contextKey = "userID"

// AuthConfig controls how incoming requests are authenticated.
type AuthConfig struct {
	Secret              string
	ExpectedIssuer      string
	ExpectedAudience    string
	AllowHeaderFallback bool
}

// Authenticator validates bearer tokens.
type Authenticator struct {
	cfg    AuthConfig
	parser *jwt.Parser
}

func NewAuthenticator(cfg AuthConfig) *Authenticator {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithLeeway(30 * time.Second),
		jwt.WithExpirationRequired(),
	}
	if iss := strings.TrimSpace(cfg.ExpectedIssuer); iss != "" {
		opts = append(opts, jwt.WithIssuer(iss))
	}
	if aud := strings.TrimSpace(cfg.ExpectedAudience); aud != "" {
		opts = append(opts, jwt.WithAudience(aud))
	}
	return &Authenticator{cfg: cfg, parser: jwt.NewParser(opts...)}
}

// ValidateToken returns the subject of a valid token.
func (a *Authenticator) ValidateToken(tokenString string) (string, error) {
	if a.cfg.Secret == "" {
		return "", errors.New("token verification is not configured")
	}
	claims := jwt.RegisteredClaims{}
	token, err := a.parser.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		return []byte(a.cfg.Secret), nil
	})
	if err != nil || !token.Valid {
		return "", errors.New("token validation failed")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", errors.New("subject claim missing")
	}
	return claims.Subject, nil
}

// Middleware rejects requests without valid credentials and stores the account id in the context.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
		if authHeader != "" {
			tokenString, ok := bearerToken(authHeader)
			if !ok {
				writeUnauthorized(w, "Invalid Authorization header format")
				return
			}
			userID, err := a.ValidateToken(tokenString)
			if err != nil {
				writeUnauthorized(w, "Invalid token")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
			return
		}

		if a.cfg.AllowHeaderFallback {
			if userID := strings.TrimSpace(r.Header.Get("X-User-Id")); userID != "" {
				next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
				return
			}
		}

		writeUnauthorized(w, "Authorization required")
	})
}

// IssueToken signs an HS256 token for subject. Used by tooling and tests.
func IssueToken(cfg AuthConfig, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    cfg.ExpectedIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	if cfg.ExpectedAudience != "" {
		claims.Audience = jwt.ClaimStrings{cfg.ExpectedAudience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
}

// WithUserID stores the authenticated account id in ctx.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}

// GetUserIDFromContext retrieves the account id, or "" when the request was not authenticated.
func GetUserIDFromContext(ctx context.Context) string {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok {
		return ""
	}
	return userID
}

func bearerToken(authHeader string) (string, bool) {
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, message)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{"message": message, "code": status})
}
