// AngelaMos | 2026
// auth.go

package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/carterperez-dev/poin-lunak/internal/core"
)

type contextKey string

const (
	UserIDKey    contextKey = "user_id"
	UserRoleKey  contextKey = "user_role"
	UserLevelKey contextKey = "user_level"
	ClaimsKey    contextKey = "jwt_claims"
)

type TokenVerifier interface {
	VerifyAccessToken(
		ctx context.Context,
		token string,
	) (*AccessTokenClaims, error)
}

// AccessTokenClaims is what a verified access token says about its
// bearer.
type AccessTokenClaims struct {
	UserID       string
	Role         string
	Level        string
	TokenVersion int
	TokenID      string
	ExpiresAt    time.Time
}

// Authenticator accepts a bearer token or, for browser sessions, the
// access token cookie named cookieName.
func Authenticator(
	verifier TokenVerifier,
	cookieName string,
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractToken(r, cookieName)
			if token == "" {
				core.Unauthorized(w, "missing authorization token")
				return
			}

			claims, err := verifier.VerifyAccessToken(r.Context(), token)
			if err != nil {
				core.JSONError(w, tokenError(err))
				return
			}

			ctx := r.Context()
			for key, val := range map[contextKey]any{
				UserIDKey:    claims.UserID,
				UserRoleKey:  claims.Role,
				UserLevelKey: claims.Level,
				ClaimsKey:    claims,
			} {
				ctx = context.WithValue(ctx, key, val)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// tokenError maps a verification failure to its response. Unknown
// failures read as an invalid token so nothing internal leaks.
func tokenError(err error) error {
	switch {
	case core.IsAppError(err):
		return err
	case errors.Is(err, core.ErrTokenExpired):
		return core.TokenExpiredError()
	case errors.Is(err, core.ErrTokenRevoked):
		return core.TokenRevokedError()
	default:
		return core.TokenInvalidError()
	}
}

// RequireRole admits callers whose role is one of roles. It must run
// after Authenticator.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := GetUserRole(r.Context())
			switch {
			case role == "":
				core.Unauthorized(w, "authentication required")
			case !allowed[role]:
				core.Forbidden(w, "insufficient permissions")
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

func RequireAdmin(next http.Handler) http.Handler {
	return RequireRole(core.RoleAdmin)(next)
}

// ExtractToken prefers the Authorization header. A malformed header is
// not retried against the cookie.
func ExtractToken(r *http.Request, cookieName string) string {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "bearer") {
			return ""
		}
		return strings.TrimSpace(token)
	}

	if cookieName == "" {
		return ""
	}
	cookie, err := r.Cookie(cookieName)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(cookie.Value)
}

func stringValue(ctx context.Context, key contextKey) string {
	s, _ := ctx.Value(key).(string)
	return s
}

func GetUserID(ctx context.Context) string    { return stringValue(ctx, UserIDKey) }
func GetUserRole(ctx context.Context) string  { return stringValue(ctx, UserRoleKey) }
func GetUserLevel(ctx context.Context) string { return stringValue(ctx, UserLevelKey) }

// CurrentUser is the caller identity placed on the context by
// Authenticator. It is the zero Identity for anonymous requests.
func CurrentUser(ctx context.Context) core.Identity {
	return core.Identity{
		ID:   GetUserID(ctx),
		Role: GetUserRole(ctx),
	}
}

func GetClaims(ctx context.Context) *AccessTokenClaims {
	claims, _ := ctx.Value(ClaimsKey).(*AccessTokenClaims)
	return claims
}
