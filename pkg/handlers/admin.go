package handlers

import (
	"net/http"
	"strings"

	"youth-cms-backend/pkg/config"
	"youth-cms-backend/pkg/database"
	"youth-cms-backend/pkg/models"
	"youth-cms-backend/pkg/realtime"
	"youth-cms-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AdminHandler owns platform administration: organizations, accounts and the
// approval queue.
type AdminHandler struct {
	config *config.Config
	db     database.DatabaseInterface
	hub    *realtime.Hub
	logger *zap.Logger
}

// NewAdminHandler creates the admin handler.
func NewAdminHandler(cfg *config.Config, db database.DatabaseInterface, hub *realtime.Hub, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		config: cfg,
		db:     db,
		hub:    hub,
		logger: logger,
	}
}

// CreateOrganizationPayload creates an organization, optionally with its
// first account in the same call.
type CreateOrganizationPayload struct {
	models.CreateOrganizationRequest
	InitialAccount *struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		FullName string `json:"full_name"`
	} `json:"initial_account,omitempty"`
}

// CreateOrganization provisions an organization. When an initial account is
// requested and cannot be created, the fresh organization is archived again
// so it never shows up half-provisioned.
func (h *AdminHandler) CreateOrganization(w http.ResponseWriter, r *http.Request) {
	admin, err := requireAdminActor(r, w)
	if err != nil {
		return
	}

	var req CreateOrganizationPayload
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		utils.WriteValidationErrorResponse(w, "name is required", "")
		return
	}

	org := &models.Organization{
		Name:           req.Name,
		PrimaryColor:   req.PrimaryColor,
		SecondaryColor: req.SecondaryColor,
		LogoURL:        req.LogoURL,
		CreatedBy:      admin.ID,
		UpdatedBy:      admin.ID,
	}
	if err := h.db.CreateOrganization(r.Context(), org); err != nil {
		utils.WriteAppError(w, err)
		return
	}

	var account *models.AppUser
	if req.InitialAccount != nil {
		account, err = h.createOrgAccount(r, org.ID, req.InitialAccount.Email, req.InitialAccount.Password, req.InitialAccount.FullName)
		if err != nil {
			// Roll the organization back; failures here only get logged.
			if rbErr := h.db.SetOrganizationArchived(r.Context(), org.ID, true); rbErr != nil {
				h.logger.Error("failed to archive organization after account creation failure",
					zap.String("organization_id", org.ID), zap.Error(rbErr))
			}
			utils.WriteAppError(w, err)
			return
		}
	}

	utils.WriteCreatedResponse(w, map[string]interface{}{
		"organization": org,
		"account":      account,
	})
}

func (h *AdminHandler) createOrgAccount(r *http.Request, orgID, email, password, fullName string) (*models.AppUser, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, validationErr("email and password are required")
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	account := &models.AppUser{
		OrganizationID: &orgID,
		Role:           models.RoleOrganization,
		Email:          email,
		FullName:       fullName,
		Password:       hash,
	}
	if err := h.db.CreateUser(r.Context(), account); err != nil {
		return nil, err
	}
	account.Password = ""
	return account, nil
}

// UpdateOrganization edits organization profile fields, including the
// active flag that hides an organization from the public site.
func (h *AdminHandler) UpdateOrganization(w http.ResponseWriter, r *http.Request) {
	admin, err := requireAdminActor(r, w)
	if err != nil {
		return
	}

	var req models.UpdateOrganizationRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}

	org, err := h.db.GetOrganization(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		org.Name = name
	}
	if req.PrimaryColor != "" {
		org.PrimaryColor = req.PrimaryColor
	}
	if req.SecondaryColor != "" {
		org.SecondaryColor = req.SecondaryColor
	}
	if req.LogoURL != "" {
		org.LogoURL = req.LogoURL
	}
	if req.Active != nil {
		org.Active = *req.Active
	}
	org.UpdatedBy = admin.ID

	if err := h.db.UpdateOrganization(r.Context(), org); err != nil {
		utils.WriteAppError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, org)
}

// ListOrganizations returns all unarchived organizations.
func (h *AdminHandler) ListOrganizations(w http.ResponseWriter, r *http.Request) {
	if _, err := requireAdminActor(r, w); err != nil {
		return
	}
	orgs, err := h.db.ListOrganizations(r.Context())
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}
	if orgs == nil {
		orgs = []models.Organization{}
	}
	utils.WriteSuccessResponse(w, orgs)
}

// ArchiveOrganization soft-deletes an organization.
func (h *AdminHandler) ArchiveOrganization(w http.ResponseWriter, r *http.Request) {
	h.setOrgArchived(w, r, true)
}

// RestoreOrganization reverses a soft delete.
func (h *AdminHandler) RestoreOrganization(w http.ResponseWriter, r *http.Request) {
	h.setOrgArchived(w, r, false)
}

func (h *AdminHandler) setOrgArchived(w http.ResponseWriter, r *http.Request, archived bool) {
	if _, err := requireAdminActor(r, w); err != nil {
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.db.SetOrganizationArchived(r.Context(), id, archived); err != nil {
		utils.WriteAppError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"id": id, "archived": archived})
}

// CreateUser provisions an account. Organization accounts must name an
// existing organization; admin accounts must not.
func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	if _, err := requireAdminActor(r, w); err != nil {
		return
	}

	var req models.CreateUserRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		utils.WriteValidationErrorResponse(w, "email and password are required", "")
		return
	}

	switch req.Role {
	case models.RoleAdmin:
		if req.OrganizationID != "" {
			utils.WriteValidationErrorResponse(w, "admin accounts cannot belong to an organization", "")
			return
		}
	case models.RoleOrganization:
		if req.OrganizationID == "" {
			utils.WriteValidationErrorResponse(w, "organization_id is required for organization accounts", "")
			return
		}
		if _, err := h.db.GetOrganization(r.Context(), req.OrganizationID); err != nil {
			utils.WriteAppError(w, err)
			return
		}
	default:
		utils.WriteValidationErrorResponse(w, "role must be admin or organization", "")
		return
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		h.logger.Error("failed to hash password", zap.Error(err))
		utils.WriteInternalServerErrorResponse(w, "Failed to create account")
		return
	}

	account := &models.AppUser{
		Role:     req.Role,
		Email:    req.Email,
		FullName: req.FullName,
		Password: hash,
	}
	if req.OrganizationID != "" {
		orgID := req.OrganizationID
		account.OrganizationID = &orgID
	}
	if err := h.db.CreateUser(r.Context(), account); err != nil {
		utils.WriteAppError(w, err)
		return
	}
	account.Password = ""
	utils.WriteCreatedResponse(w, account)
}

// ListUsers returns all unarchived accounts, or one organization's with
// ?organization_id=.
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	if _, err := requireAdminActor(r, w); err != nil {
		return
	}

	var (
		users []models.AppUser
		err   error
	)
	if orgID := utils.GetQueryParam(r, "organization_id", ""); orgID != "" {
		users, err = h.db.ListUsersByOrganization(r.Context(), orgID)
	} else {
		users, err = h.db.ListUsers(r.Context())
	}
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}
	for i := range users {
		users[i].Password = ""
	}
	if users == nil {
		users = []models.AppUser{}
	}
	utils.WriteSuccessResponse(w, users)
}

// ArchiveUser disables an account.
func (h *AdminHandler) ArchiveUser(w http.ResponseWriter, r *http.Request) {
	h.setUserArchived(w, r, true)
}

// RestoreUser re-enables an account.
func (h *AdminHandler) RestoreUser(w http.ResponseWriter, r *http.Request) {
	h.setUserArchived(w, r, false)
}

func (h *AdminHandler) setUserArchived(w http.ResponseWriter, r *http.Request, archived bool) {
	admin, err := requireAdminActor(r, w)
	if err != nil {
		return
	}
	id := chi.URLParam(r, "id")
	if archived && id == admin.ID {
		utils.WriteConflictResponse(w, "Cannot archive your own account")
		return
	}
	if err := h.db.SetUserArchived(r.Context(), id, archived); err != nil {
		utils.WriteAppError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"id": id, "archived": archived})
}

// DeleteUser permanently removes an archived account.
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	admin, err := requireAdminActor(r, w)
	if err != nil {
		return
	}
	id := chi.URLParam(r, "id")
	if id == admin.ID {
		utils.WriteConflictResponse(w, "Cannot delete your own account")
		return
	}
	if err := h.db.DeleteUser(r.Context(), id); err != nil {
		utils.WriteAppError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"id": id, "deleted": true})
}

// Approve marks a batch of records as live. All-or-nothing.
func (h *AdminHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.setApproval(w, r, true)
}

// Reject sends records back to the pending state so their owners can edit
// them again.
func (h *AdminHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.setApproval(w, r, false)
}

func (h *AdminHandler) setApproval(w http.ResponseWriter, r *http.Request, approved bool) {
	admin, err := requireAdminActor(r, w)
	if err != nil {
		return
	}
	kind, ok := kindFromURL(r)
	if !ok {
		utils.WriteBadRequestResponse(w, "Unknown content type")
		return
	}
	ids, err := batchIDs(r)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	if err := h.db.SetApproval(r.Context(), kind, ids, approved, admin.ID); err != nil {
		utils.WriteAppError(w, err)
		return
	}

	for _, id := range ids {
		h.hub.Publish(realtime.Event{
			Table:    kind.Table(),
			Action:   realtime.ActionUpdate,
			RecordID: id,
		})
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{
		"ids":      ids,
		"approved": approved,
	})
}

// HardDelete permanently removes an archived record.
func (h *AdminHandler) HardDelete(w http.ResponseWriter, r *http.Request) {
	if _, err := requireAdminActor(r, w); err != nil {
		return
	}
	kind, ok := kindFromURL(r)
	if !ok {
		utils.WriteBadRequestResponse(w, "Unknown content type")
		return
	}
	id := chi.URLParam(r, "id")

	if err := h.db.HardDelete(r.Context(), kind, id); err != nil {
		utils.WriteAppError(w, err)
		return
	}

	h.hub.Publish(realtime.Event{
		Table:    kind.Table(),
		Action:   realtime.ActionDelete,
		RecordID: id,
	})
	utils.WriteSuccessResponse(w, map[string]interface{}{"id": id, "deleted": true})
}

// Stats reports pool and subscriber state for operations.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if _, err := requireAdminActor(r, w); err != nil {
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{
		"database":    database.GetConnectionStats(),
		"subscribers": h.hub.SubscriberCount(),
	})
}
