package handlers

import (
	"net/http"
	"strings"
	"time"

	"youth-cms-backend/pkg/apperrors"
	"youth-cms-backend/pkg/config"
	"youth-cms-backend/pkg/database"
	"youth-cms-backend/pkg/middleware"
	"youth-cms-backend/pkg/models"
	"youth-cms-backend/pkg/utils"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AuthHandler owns login, token refresh and sign-out.
type AuthHandler struct {
	config     *config.Config
	db         database.DatabaseInterface
	jwtService *utils.JWTService
	revoked    *utils.RevocationList
	logger     *zap.Logger
}

// NewAuthHandler creates the auth handler.
func NewAuthHandler(cfg *config.Config, db database.DatabaseInterface, revoked *utils.RevocationList, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		config:     cfg,
		db:         db,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
		revoked:    revoked,
		logger:     logger,
	}
}

// Login exchanges email and password for a token pair. Archived accounts and
// accounts of archived organizations cannot sign in.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.UserLoginRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		utils.WriteBadRequestResponse(w, "Email and password are required")
		return
	}

	user, err := h.db.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		// Same response for unknown email and wrong password.
		utils.WriteUnauthorizedResponse(w, "Invalid credentials")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		utils.WriteUnauthorizedResponse(w, "Invalid credentials")
		return
	}
	if user.Archived {
		utils.WriteForbiddenResponse(w, "Account is disabled")
		return
	}
	if orgID := user.OrgID(); orgID != "" {
		org, err := h.db.GetOrganization(r.Context(), orgID)
		if err != nil || org.Archived {
			utils.WriteForbiddenResponse(w, "Organization is disabled")
			return
		}
	}

	accessToken, refreshToken, expiresIn, err := h.jwtService.GenerateTokenPair(user)
	if err != nil {
		h.logger.Error("failed to generate tokens", zap.Error(err))
		utils.WriteInternalServerErrorResponse(w, "Failed to generate tokens")
		return
	}

	user.Password = ""
	utils.WriteSuccessResponse(w, models.UserLoginResponse{
		User:         *user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    expiresIn,
	})
}

// Refresh rotates a refresh token into a fresh pair. The old refresh token
// is revoked so it can be used exactly once.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshTokenRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}
	if req.RefreshToken == "" {
		utils.WriteBadRequestResponse(w, "Refresh token is required")
		return
	}

	claims, err := h.jwtService.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Invalid refresh token")
		return
	}
	if h.revoked.IsRevoked(claims.TokenID) {
		utils.WriteUnauthorizedResponse(w, "Refresh token has been revoked")
		return
	}

	user, err := h.db.GetUserByID(r.Context(), claims.UserID)
	if err != nil || user.Archived {
		utils.WriteUnauthorizedResponse(w, "Account is no longer available")
		return
	}

	accessToken, refreshToken, expiresIn, err := h.jwtService.GenerateTokenPair(user)
	if err != nil {
		h.logger.Error("failed to generate tokens", zap.Error(err))
		utils.WriteInternalServerErrorResponse(w, "Failed to generate tokens")
		return
	}

	h.revoked.Revoke(claims.TokenID, time.Unix(claims.Exp, 0))

	user.Password = ""
	utils.WriteSuccessResponse(w, models.UserLoginResponse{
		User:         *user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    expiresIn,
	})
}

// Logout revokes the presented refresh token. The access token simply ages
// out.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshTokenRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}
	if req.RefreshToken == "" {
		utils.WriteBadRequestResponse(w, "Refresh token is required")
		return
	}

	claims, err := h.jwtService.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		// Expired or malformed tokens are already unusable.
		utils.WriteSuccessResponse(w, map[string]string{"status": "signed out"})
		return
	}
	h.revoked.Revoke(claims.TokenID, time.Unix(claims.Exp, 0))
	utils.WriteSuccessResponse(w, map[string]string{"status": "signed out"})
}

// Me returns the authenticated account with its current database state.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	user, err := h.db.GetUserByID(r.Context(), actor.ID)
	if err != nil {
		if apperrors.TypeOf(err) == apperrors.TypeNotFound {
			utils.WriteNotFoundResponse(w, "Account not found")
			return
		}
		utils.WriteAppError(w, err)
		return
	}
	user.Password = ""
	utils.WriteSuccessResponse(w, user)
}

// HashPassword derives the stored bcrypt hash for a new password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
