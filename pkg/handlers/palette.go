package handlers

import (
	"bytes"
	"io"
	"net/http"

	"youth-cms-backend/pkg/apperrors"
	"youth-cms-backend/pkg/config"
	"youth-cms-backend/pkg/database"
	"youth-cms-backend/pkg/palette"
	"youth-cms-backend/pkg/storage"
	"youth-cms-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// maxPaletteBytes caps a palette document upload.
const maxPaletteBytes = 256 << 10

// PaletteHandler validates and stores organization theme palettes. The
// document is checked structurally before anything is written; a palette
// with a missing family or shade never reaches storage.
type PaletteHandler struct {
	config *config.Config
	db     database.DatabaseInterface
	store  storage.ObjectStorage
	logger *zap.Logger
}

// NewPaletteHandler creates the palette handler.
func NewPaletteHandler(cfg *config.Config, db database.DatabaseInterface, store storage.ObjectStorage, logger *zap.Logger) *PaletteHandler {
	return &PaletteHandler{
		config: cfg,
		db:     db,
		store:  store,
		logger: logger,
	}
}

func paletteKey(orgID string) string {
	return orgID + "/palette.json"
}

// SetPalette replaces the organization's palette. Organization accounts can
// only write their own; admins any.
func (h *PaletteHandler) SetPalette(w http.ResponseWriter, r *http.Request) {
	_, user, err := requireActor(r)
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}
	orgID := chi.URLParam(r, "id")
	if !user.IsAdmin() && user.OrgID() != orgID {
		utils.WriteForbiddenResponse(w, "Not your organization")
		return
	}
	if _, err := h.db.GetOrganization(r.Context(), orgID); err != nil {
		utils.WriteAppError(w, err)
		return
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxPaletteBytes))
	if err != nil {
		utils.WriteBadRequestResponse(w, "Failed to read request body")
		return
	}

	doc, err := palette.Parse(raw)
	if err != nil {
		if apperrors.TypeOf(err) == apperrors.TypeValidation {
			utils.WriteValidationErrorResponse(w, "Invalid palette document", err.Error())
			return
		}
		utils.WriteAppError(w, err)
		return
	}

	if err := h.store.Upload(r.Context(), storage.BucketPalettes, paletteKey(orgID), "application/json", bytes.NewReader(raw)); err != nil {
		utils.WriteAppError(w, err)
		return
	}

	h.logger.Info("palette updated", zap.String("organization_id", orgID), zap.String("palette", doc.Name))
	utils.WriteSuccessResponse(w, doc)
}

// GetPalette returns the organization's palette. Public for active
// organizations; owners and admins can fetch it regardless.
func (h *PaletteHandler) GetPalette(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "id")

	org, err := h.db.GetOrganization(r.Context(), orgID)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	if org.Archived || !org.Active {
		user, ok := middlewareUser(r)
		allowed := ok && (user.IsAdmin() || user.OrgID() == orgID)
		if !allowed {
			utils.WriteNotFoundResponse(w, "Organization not found")
			return
		}
	}

	rc, err := h.store.Download(r.Context(), storage.BucketPalettes, paletteKey(orgID))
	if err != nil {
		if apperrors.TypeOf(err) == apperrors.TypeNotFound {
			utils.WriteNotFoundResponse(w, "No palette configured")
			return
		}
		utils.WriteAppError(w, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/json")
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn("palette download interrupted", zap.String("organization_id", orgID), zap.Error(err))
	}
}
