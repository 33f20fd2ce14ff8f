package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/golang-jwt/jwt/v5"

	"zenflow/internal/domain"
	"zenflow/internal/engine"
	"zenflow/internal/payroll"
)

type AuthConfig struct {
	JWTSecret string
}

// Principal is the authenticated caller behind a request.
type Principal struct {
	User    domain.User
	Session domain.Session
	Token   string
}

type principalKey struct{}

func withPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func principalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

func requesterFromContext(ctx context.Context) (payroll.Requester, huma.StatusError) {
	if p, ok := principalFromContext(ctx); ok && p.User.ID != "" {
		return engine.RequesterFor(p.User), nil
	}
	return payroll.Requester{}, newAPIError(http.StatusUnauthorized, "unauthorized", "authentication required", nil)
}

type jwtClaims struct {
	jwt.RegisteredClaims
	Role domain.Role `json:"role,omitempty"`
}

// sessionSigner issues an HS256 token whose jti is the session id.
func sessionSigner(secret string) engine.TokenSigner {
	return func(s domain.Session, u domain.User) (string, error) {
		claims := jwtClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   u.ID,
				ID:        s.ID,
				IssuedAt:  jwt.NewNumericDate(time.UnixMilli(s.CreatedAt)),
				ExpiresAt: jwt.NewNumericDate(time.UnixMilli(s.ExpiresAt)),
				Issuer:    "zenflow",
			},
			Role: u.Role,
		}
		return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	}
}

func parseJWT(token, secret string, now time.Time) (*jwtClaims, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("jwt secret not configured")
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	claims := &jwtClaims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, errors.New("subject and jti claims required")
	}
	return claims, nil
}

// authenticate verifies the signature, then requires a live server-side session
// for the exact token.
func authenticate(ctx context.Context, e engine.Engine, secret, token string) (Principal, error) {
	now := time.Now()
	if e.Now != nil {
		now = e.Now()
	}
	claims, err := parseJWT(token, secret, now)
	if err != nil {
		return Principal{}, err
	}
	u, s, err := e.Authenticate(ctx, token)
	if err != nil {
		return Principal{}, err
	}
	if u.ID != claims.Subject || s.ID != claims.ID {
		return Principal{}, errors.New("token does not match session")
	}
	return Principal{User: u, Session: s, Token: token}, nil
}

func bearerToken(authz string) (string, bool) {
	parts := strings.Fields(authz)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

func newAuthMiddleware(basePath string, cfg AuthConfig, e engine.Engine) func(http.Handler) http.Handler {
	public := map[string]bool{
		path.Join(basePath, "health"):       true,
		path.Join(basePath, "auth/login"):   true,
		path.Join(basePath, "openapi.json"): true,
	}
	syncPath := path.Join(basePath, "sync")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			// Only enforce for API base path.
			if basePath != "" && !strings.HasPrefix(req.URL.Path, basePath) {
				next.ServeHTTP(w, req)
				return
			}
			if public[req.URL.Path] {
				next.ServeHTTP(w, req)
				return
			}

			token := ""
			if authz := strings.TrimSpace(req.Header.Get("Authorization")); authz != "" {
				t, ok := bearerToken(authz)
				if !ok {
					respondStatusError(w, newAPIError(http.StatusUnauthorized, "invalid_credentials", "invalid credentials", nil))
					return
				}
				token = t
			} else if req.URL.Path == syncPath {
				// Browsers cannot set headers on websocket upgrades.
				token = strings.TrimSpace(req.URL.Query().Get("token"))
			}
			if token == "" {
				respondStatusError(w, newAPIError(http.StatusUnauthorized, "unauthorized", "authentication required", nil))
				return
			}
			principal, err := authenticate(req.Context(), e, cfg.JWTSecret, token)
			if err != nil {
				respondStatusError(w, newAPIError(http.StatusUnauthorized, "invalid_credentials", "invalid credentials", nil))
				return
			}
			next.ServeHTTP(w, req.WithContext(withPrincipal(req.Context(), principal)))
		})
	}
}

func respondStatusError(w http.ResponseWriter, err huma.StatusError) {
	status := http.StatusInternalServerError
	if e, ok := err.(interface{ GetStatus() int }); ok {
		status = e.GetStatus()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(err)
}
