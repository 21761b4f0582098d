package handlers

import (
	"net/http"

	"youth-cms-backend/pkg/config"
	"youth-cms-backend/pkg/database"
	"youth-cms-backend/pkg/models"
	"youth-cms-backend/pkg/storage"
	"youth-cms-backend/pkg/utils"

	"go.uber.org/zap"
)

// PublicHandler serves the unauthenticated site: active organizations and
// approved content only. The approval filter lives in the queries, not here.
type PublicHandler struct {
	config *config.Config
	db     database.DatabaseInterface
	store  storage.ObjectStorage
	logger *zap.Logger
}

// NewPublicHandler creates the public handler.
func NewPublicHandler(cfg *config.Config, db database.DatabaseInterface, store storage.ObjectStorage, logger *zap.Logger) *PublicHandler {
	return &PublicHandler{
		config: cfg,
		db:     db,
		store:  store,
		logger: logger,
	}
}

// ListOrganizations returns the organizations shown on the public site.
func (h *PublicHandler) ListOrganizations(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.db.ListActiveOrganizations(r.Context())
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}
	if orgs == nil {
		orgs = []models.Organization{}
	}
	utils.WriteSuccessResponse(w, orgs)
}

// ListAnnouncements returns approved announcements across organizations.
func (h *PublicHandler) ListAnnouncements(w http.ResponseWriter, r *http.Request) {
	q := listQueryFrom(r)
	list, err := h.db.ListApprovedAnnouncements(r.Context(), q)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}
	writeListResponse(w, list, q)
}

// ListPrograms returns approved programs.
func (h *PublicHandler) ListPrograms(w http.ResponseWriter, r *http.Request) {
	q := listQueryFrom(r)
	list, err := h.db.ListApprovedPrograms(r.Context(), q)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}
	writeListResponse(w, list, q)
}

// ListCarouselItems returns approved slides in display order.
func (h *PublicHandler) ListCarouselItems(w http.ResponseWriter, r *http.Request) {
	q := listQueryFrom(r)
	list, err := h.db.ListApprovedCarouselItems(r.Context(), q)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}
	writeListResponse(w, list, q)
}

// publicFile is approved file metadata with its download address.
type publicFile struct {
	models.OrgFile
	URL string `json:"url"`
}

// ListFiles returns approved files with their public URLs.
func (h *PublicHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	q := listQueryFrom(r)
	list, err := h.db.ListApprovedOrgFiles(r.Context(), q)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	out := make([]publicFile, 0, len(list))
	for _, f := range list {
		out = append(out, publicFile{
			OrgFile: f,
			URL:     h.store.PublicURL(f.Bucket, f.ObjectKey),
		})
	}
	writeListResponse(w, out, q)
}
