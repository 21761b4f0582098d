package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"youth-cms-backend/pkg/config"
	"youth-cms-backend/pkg/models"
	"youth-cms-backend/pkg/utils"

	"github.com/golang-jwt/jwt/v5"
)

// ContextKey keys values stored on the request context.
type ContextKey string

const (
	UserContextKey ContextKey = "user"
)

// AuthMiddleware verifies the bearer token and puts the account on the
// request context. Only access tokens pass; refresh tokens are for the
// refresh endpoint alone.
func AuthMiddleware(cfg *config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				utils.WriteUnauthorizedResponse(w, "Missing authorization header")
				return
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				utils.WriteUnauthorizedResponse(w, "Invalid authorization header format")
				return
			}

			claims, err := parseClaims(tokenString, cfg.JWTSecret)
			if err != nil {
				utils.WriteUnauthorizedResponse(w, "Invalid token")
				return
			}
			if claims.Type != "access" {
				utils.WriteUnauthorizedResponse(w, "Invalid token type")
				return
			}
			if time.Now().Unix() > claims.Exp {
				utils.WriteUnauthorizedResponse(w, "Token expired")
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, userFromClaims(claims))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuthMiddleware attaches the account when a valid token is present
// and stays silent otherwise. Public routes use it so signed-in admins can
// preview unapproved content.
func OptionalAuthMiddleware(cfg *config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}
			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := parseClaims(tokenString, cfg.JWTSecret)
			if err == nil && claims.Type == "access" && time.Now().Unix() <= claims.Exp {
				ctx := context.WithValue(r.Context(), UserContextKey, userFromClaims(claims))
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func parseClaims(tokenString, secret string) (*models.TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	claims, ok := token.Claims.(*models.TokenClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

func userFromClaims(claims *models.TokenClaims) *models.AppUser {
	user := &models.AppUser{
		ID:    claims.UserID,
		Email: claims.Email,
		Role:  claims.Role,
	}
	if claims.OrganizationID != "" {
		orgID := claims.OrganizationID
		user.OrganizationID = &orgID
	}
	return user
}

// GetUserFromContext reads the authenticated account off the context.
func GetUserFromContext(ctx context.Context) (*models.AppUser, bool) {
	user, ok := ctx.Value(UserContextKey).(*models.AppUser)
	return user, ok
}

// RequireUser returns the authenticated account or an error.
func RequireUser(ctx context.Context) (*models.AppUser, error) {
	user, ok := GetUserFromContext(ctx)
	if !ok || user == nil {
		return nil, fmt.Errorf("user not authenticated")
	}
	return user, nil
}

// RequireAdmin rejects the request unless the account has the admin role.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := GetUserFromContext(r.Context())
		if !ok || user == nil {
			utils.WriteUnauthorizedResponse(w, "Authentication required")
			return
		}
		if !user.IsAdmin() {
			utils.WriteForbiddenResponse(w, "Admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
