package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"youth-cms-backend/pkg/config"
	"youth-cms-backend/pkg/models"
	"youth-cms-backend/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func authConfig() *config.Config {
	return &config.Config{JWTSecret: "test-secret"}
}

func issueTokens(t *testing.T, user *models.AppUser) (access, refresh string) {
	t.Helper()
	access, refresh, _, err := utils.NewJWTService("test-secret").GenerateTokenPair(user)
	require.NoError(t, err)
	return access, refresh
}

// echoUser records whether a user reached the downstream handler.
func echoUser(captured **models.AppUser) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user, ok := GetUserFromContext(r.Context()); ok {
			*captured = user
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddleware(t *testing.T) {
	orgID := "org-123"
	account := &models.AppUser{
		ID:             "user-1",
		Email:          "account@example.org",
		Role:           models.RoleOrganization,
		OrganizationID: &orgID,
	}
	access, refresh := issueTokens(t, account)

	serve := func(header string) (*httptest.ResponseRecorder, *models.AppUser) {
		var captured *models.AppUser
		handler := AuthMiddleware(authConfig())(echoUser(&captured))
		req := httptest.NewRequest(http.MethodGet, "/api/announcements", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec, captured
	}

	t.Run("valid access token attaches the account", func(t *testing.T) {
		rec, captured := serve("Bearer " + access)
		require.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, captured)
		assert.Equal(t, "user-1", captured.ID)
		assert.Equal(t, models.RoleOrganization, captured.Role)
		assert.Equal(t, "org-123", captured.OrgID())
	})

	t.Run("missing header is rejected", func(t *testing.T) {
		rec, captured := serve("")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Nil(t, captured)
	})

	t.Run("malformed header is rejected", func(t *testing.T) {
		rec, _ := serve(access)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("refresh tokens do not pass as access tokens", func(t *testing.T) {
		rec, _ := serve("Bearer " + refresh)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("token signed with another secret is rejected", func(t *testing.T) {
		other, _, _, err := utils.NewJWTService("other-secret").GenerateTokenPair(account)
		require.NoError(t, err)
		rec, _ := serve("Bearer " + other)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestOptionalAuthMiddleware(t *testing.T) {
	account := &models.AppUser{ID: "user-1", Email: "account@example.org", Role: models.RoleAdmin}
	access, _ := issueTokens(t, account)

	serve := func(header string) (*httptest.ResponseRecorder, *models.AppUser) {
		var captured *models.AppUser
		handler := OptionalAuthMiddleware(authConfig())(echoUser(&captured))
		req := httptest.NewRequest(http.MethodGet, "/api/public/announcements", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec, captured
	}

	t.Run("anonymous requests pass through", func(t *testing.T) {
		rec, captured := serve("")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Nil(t, captured)
	})

	t.Run("valid token attaches the account", func(t *testing.T) {
		rec, captured := serve("Bearer " + access)
		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, captured)
		assert.Equal(t, "user-1", captured.ID)
	})

	t.Run("bad token degrades to anonymous", func(t *testing.T) {
		rec, captured := serve("Bearer garbage")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Nil(t, captured)
	})
}

func TestRequireAdmin(t *testing.T) {
	serve := func(user *models.AppUser) *httptest.ResponseRecorder {
		handler := RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		req := httptest.NewRequest(http.MethodGet, "/api/admin/stats", nil)
		if user != nil {
			req = req.WithContext(context.WithValue(req.Context(), UserContextKey, user))
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusUnauthorized, serve(nil).Code)
	assert.Equal(t, http.StatusForbidden, serve(&models.AppUser{ID: "u", Role: models.RoleOrganization}).Code)
	assert.Equal(t, http.StatusOK, serve(&models.AppUser{ID: "a", Role: models.RoleAdmin}).Code)
}
