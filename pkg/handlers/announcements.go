package handlers

import (
	"net/http"
	"strings"
	"time"

	"youth-cms-backend/pkg/database"
	"youth-cms-backend/pkg/models"
	"youth-cms-backend/pkg/permissions"
	"youth-cms-backend/pkg/realtime"
	"youth-cms-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
)

// CreateAnnouncementRequest is the announcement creation payload.
type CreateAnnouncementRequest struct {
	OrganizationID string     `json:"organization_id,omitempty"`
	Title          string     `json:"title"`
	Body           string     `json:"body"`
	PublishAt      *time.Time `json:"publish_at,omitempty"`
}

// UpdateAnnouncementRequest patches an announcement. Nil fields keep their
// current value.
type UpdateAnnouncementRequest struct {
	Title     *string    `json:"title"`
	Body      *string    `json:"body"`
	PublishAt *time.Time `json:"publish_at"`
}

// ListAnnouncements returns the organization's announcements, pending ones
// included. Admins pick the organization with ?organization_id=.
func (h *ContentHandler) ListAnnouncements(w http.ResponseWriter, r *http.Request) {
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
	list, err := h.db.ListAnnouncementsByOrganization(r.Context(), orgID, q)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}
	writeListResponse(w, list, q)
}

// CreateAnnouncement creates an announcement. Organization submissions start
// unapproved; admin submissions are live immediately.
func (h *ContentHandler) CreateAnnouncement(w http.ResponseWriter, r *http.Request) {
	_, user, err := requireActor(r)
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	var req CreateAnnouncementRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		utils.WriteValidationErrorResponse(w, "title is required", "")
		return
	}

	orgID, approved, err := creationTarget(r, user, req.OrganizationID)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	announcement := &models.Announcement{
		ContentMeta: models.ContentMeta{
			OrganizationID: orgID,
			Approved:       approved,
			CreatedBy:      user.ID,
			UpdatedBy:      user.ID,
		},
		Title:     req.Title,
		Body:      req.Body,
		PublishAt: req.PublishAt,
	}
	if err := h.db.CreateAnnouncement(r.Context(), announcement); err != nil {
		utils.WriteAppError(w, err)
		return
	}

	h.notify(database.KindAnnouncement, realtime.ActionInsert, announcement.ID, orgID, announcement)
	utils.WriteCreatedResponse(w, announcement)
}

// GetAnnouncement returns a single announcement the caller may see.
func (h *ContentHandler) GetAnnouncement(w http.ResponseWriter, r *http.Request) {
	actor, _, err := requireActor(r)
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	announcement, err := h.db.GetAnnouncement(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	decision := permissions.Evaluate(&permissions.Record{
		OrganizationID: announcement.OrganizationID,
		Approved:       announcement.Approved,
		Archived:       announcement.Archived,
		CreatedBy:      announcement.CreatedBy,
	}, actor)
	if !decision.CanView {
		utils.WriteNotFoundResponse(w, permissions.ReasonNotFound)
		return
	}
	utils.WriteSuccessResponse(w, announcement)
}

// UpdateAnnouncement edits a pending announcement. Approved content must be
// rejected back to pending before it can change.
func (h *ContentHandler) UpdateAnnouncement(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req UpdateAnnouncementRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}

	scope, user, err := h.authorizeWrite(r, database.KindAnnouncement, id)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	announcement, err := h.db.GetAnnouncement(r.Context(), id)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}
	if req.Title != nil {
		announcement.Title = strings.TrimSpace(*req.Title)
	}
	if req.Body != nil {
		announcement.Body = *req.Body
	}
	if req.PublishAt != nil {
		announcement.PublishAt = req.PublishAt
	}
	if announcement.Title == "" {
		utils.WriteValidationErrorResponse(w, "title is required", "")
		return
	}
	announcement.UpdatedBy = user.ID

	if err := h.db.UpdateAnnouncement(r.Context(), announcement, scope); err != nil {
		utils.WriteAppError(w, err)
		return
	}

	h.notify(database.KindAnnouncement, realtime.ActionUpdate, announcement.ID, announcement.OrganizationID, announcement)
	utils.WriteSuccessResponse(w, announcement)
}
