package handlers

import (
	"io"
	"net/http"
	"path"
	"strings"

	"youth-cms-backend/pkg/config"
	"youth-cms-backend/pkg/database"
	"youth-cms-backend/pkg/models"
	"youth-cms-backend/pkg/permissions"
	"youth-cms-backend/pkg/realtime"
	"youth-cms-backend/pkg/storage"
	"youth-cms-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxUploadBytes caps a single file upload.
const maxUploadBytes = 32 << 20

// maxLogoBytes caps an organization logo upload.
const maxLogoBytes = 4 << 20

// FileHandler owns file uploads: bytes go to object storage, metadata rows
// go through the same approval lifecycle as the other content types.
type FileHandler struct {
	*ContentHandler
	store storage.ObjectStorage
}

// NewFileHandler creates the file handler.
func NewFileHandler(cfg *config.Config, db database.DatabaseInterface, hub *realtime.Hub, store storage.ObjectStorage, logger *zap.Logger) *FileHandler {
	return &FileHandler{
		ContentHandler: NewContentHandler(cfg, db, hub, logger),
		store:          store,
	}
}

// Upload accepts a multipart upload, stores the payload and records the
// metadata row. The metadata row is the source of truth; if it cannot be
// written the stored object is removed again.
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	_, user, err := requireActor(r)
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid multipart body or file too large")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		utils.WriteBadRequestResponse(w, "file field is required")
		return
	}
	defer file.Close()

	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		name = header.Filename
	}
	if name == "" {
		utils.WriteValidationErrorResponse(w, "file name is required", "")
		return
	}

	orgID, approved, err := creationTarget(r, user, r.FormValue("organization_id"))
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	contentType := header.Header.Get("Content-Type")
	objectKey := orgID + "/" + uuid.New().String() + strings.ToLower(path.Ext(header.Filename))

	if err := h.store.Upload(r.Context(), storage.BucketUploads, objectKey, contentType, file); err != nil {
		utils.WriteAppError(w, err)
		return
	}

	meta := &models.OrgFile{
		ContentMeta: models.ContentMeta{
			OrganizationID: orgID,
			Approved:       approved,
			CreatedBy:      user.ID,
			UpdatedBy:      user.ID,
		},
		Name:        name,
		Bucket:      storage.BucketUploads,
		ObjectKey:   objectKey,
		ContentType: contentType,
		SizeBytes:   header.Size,
	}
	if err := h.db.CreateOrgFile(r.Context(), meta); err != nil {
		// Best effort: the object has no metadata row, remove it again.
		if cleanupErr := h.store.Delete(r.Context(), storage.BucketUploads, objectKey); cleanupErr != nil {
			h.logger.Warn("failed to remove orphaned upload",
				zap.String("object_key", objectKey), zap.Error(cleanupErr))
		}
		utils.WriteAppError(w, err)
		return
	}

	h.notify(database.KindFile, realtime.ActionInsert, meta.ID, orgID, meta)
	utils.WriteCreatedResponse(w, meta)
}

// ListFiles returns the organization's files, pending ones included.
func (h *FileHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	_, user, err := requireActor(r)
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}
	orgID, ok := listOrgFrom(r, user)
	if !ok {
		utils.WriteBadRequestResponse(w, "organization_id is required")
		return
	}

	q := listQueryFrom(r)
	list, err := h.db.ListOrgFilesByOrganization(r.Context(), orgID, q)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}
	writeListResponse(w, list, q)
}

// GetFile returns a single file's metadata.
func (h *FileHandler) GetFile(w http.ResponseWriter, r *http.Request) {
	meta, ok := h.viewableFile(w, r)
	if !ok {
		return
	}
	utils.WriteSuccessResponse(w, meta)
}

// Rename changes the display name of a pending file.
func (h *FileHandler) Rename(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		Name string `json:"name"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		utils.WriteValidationErrorResponse(w, "name is required", "")
		return
	}

	scope, user, err := h.authorizeWrite(r, database.KindFile, id)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	meta, err := h.db.GetOrgFile(r.Context(), id)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}
	meta.Name = req.Name
	meta.UpdatedBy = user.ID

	if err := h.db.UpdateOrgFile(r.Context(), meta, scope); err != nil {
		utils.WriteAppError(w, err)
		return
	}

	h.notify(database.KindFile, realtime.ActionUpdate, meta.ID, meta.OrganizationID, meta)
	utils.WriteSuccessResponse(w, meta)
}

// Download streams the file payload to a caller that may see it.
func (h *FileHandler) Download(w http.ResponseWriter, r *http.Request) {
	meta, ok := h.viewableFile(w, r)
	if !ok {
		return
	}

	rc, err := h.store.Download(r.Context(), meta.Bucket, meta.ObjectKey)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}
	defer rc.Close()

	if meta.ContentType != "" {
		w.Header().Set("Content-Type", meta.ContentType)
	}
	w.Header().Set("Content-Disposition", `attachment; filename="`+strings.ReplaceAll(meta.Name, `"`, "")+`"`)
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn("file download interrupted", zap.String("id", meta.ID), zap.Error(err))
	}
}

// UploadLogo replaces the organization's logo image and points the
// organization's logo_url at the stored object. Organization accounts can
// only set their own; admins any.
func (h *FileHandler) UploadLogo(w http.ResponseWriter, r *http.Request) {
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

	org, err := h.db.GetOrganization(r.Context(), orgID)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxLogoBytes)
	if err := r.ParseMultipartForm(maxLogoBytes); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid multipart body or file too large")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		utils.WriteBadRequestResponse(w, "file field is required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		utils.WriteValidationErrorResponse(w, "logo must be an image", "")
		return
	}

	// A fixed key per organization; a new logo replaces the old object.
	objectKey := orgID + "/logo" + strings.ToLower(path.Ext(header.Filename))
	if err := h.store.Upload(r.Context(), storage.BucketLogos, objectKey, contentType, file); err != nil {
		utils.WriteAppError(w, err)
		return
	}

	org.LogoURL = h.store.PublicURL(storage.BucketLogos, objectKey)
	org.UpdatedBy = user.ID
	if err := h.db.UpdateOrganization(r.Context(), org); err != nil {
		utils.WriteAppError(w, err)
		return
	}

	utils.WriteSuccessResponse(w, org)
}

// viewableFile loads the metadata row and enforces the view permission.
func (h *FileHandler) viewableFile(w http.ResponseWriter, r *http.Request) (*models.OrgFile, bool) {
	actor, _, err := requireActor(r)
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return nil, false
	}

	meta, err := h.db.GetOrgFile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteAppError(w, err)
		return nil, false
	}

	decision := permissions.Evaluate(&permissions.Record{
		OrganizationID: meta.OrganizationID,
		Approved:       meta.Approved,
		Archived:       meta.Archived,
		CreatedBy:      meta.CreatedBy,
	}, actor)
	if !decision.CanView {
		utils.WriteNotFoundResponse(w, permissions.ReasonNotFound)
		return nil, false
	}
	return meta, true
}
