package handlers

import (
	"net/http"
	"strings"

	"youth-cms-backend/pkg/database"
	"youth-cms-backend/pkg/models"
	"youth-cms-backend/pkg/permissions"
	"youth-cms-backend/pkg/realtime"
	"youth-cms-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
)

// CreateCarouselItemRequest is the slide creation payload.
type CreateCarouselItemRequest struct {
	OrganizationID string `json:"organization_id,omitempty"`
	Title          string `json:"title"`
	ImageURL       string `json:"image_url"`
	LinkURL        string `json:"link_url,omitempty"`
	Position       int    `json:"position"`
}

// UpdateCarouselItemRequest patches a slide. Nil fields keep their value.
type UpdateCarouselItemRequest struct {
	Title    *string `json:"title"`
	ImageURL *string `json:"image_url"`
	LinkURL  *string `json:"link_url"`
	Position *int    `json:"position"`
}

// ListCarouselItems returns the organization's slides, pending ones included.
func (h *ContentHandler) ListCarouselItems(w http.ResponseWriter, r *http.Request) {
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
	list, err := h.db.ListCarouselItemsByOrganization(r.Context(), orgID, q)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}
	writeListResponse(w, list, q)
}

// CreateCarouselItem creates a slide.
func (h *ContentHandler) CreateCarouselItem(w http.ResponseWriter, r *http.Request) {
	_, user, err := requireActor(r)
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	var req CreateCarouselItemRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		utils.WriteValidationErrorResponse(w, "title is required", "")
		return
	}
	if strings.TrimSpace(req.ImageURL) == "" {
		utils.WriteValidationErrorResponse(w, "image_url is required", "")
		return
	}
	if req.Position < 0 {
		utils.WriteValidationErrorResponse(w, "position cannot be negative", "")
		return
	}

	orgID, approved, err := creationTarget(r, user, req.OrganizationID)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	item := &models.CarouselItem{
		ContentMeta: models.ContentMeta{
			OrganizationID: orgID,
			Approved:       approved,
			CreatedBy:      user.ID,
			UpdatedBy:      user.ID,
		},
		Title:    req.Title,
		ImageURL: req.ImageURL,
		LinkURL:  req.LinkURL,
		Position: req.Position,
	}
	if err := h.db.CreateCarouselItem(r.Context(), item); err != nil {
		utils.WriteAppError(w, err)
		return
	}

	h.notify(database.KindCarousel, realtime.ActionInsert, item.ID, orgID, item)
	utils.WriteCreatedResponse(w, item)
}

// GetCarouselItem returns a single slide the caller may see.
func (h *ContentHandler) GetCarouselItem(w http.ResponseWriter, r *http.Request) {
	actor, _, err := requireActor(r)
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	item, err := h.db.GetCarouselItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	decision := permissions.Evaluate(&permissions.Record{
		OrganizationID: item.OrganizationID,
		Approved:       item.Approved,
		Archived:       item.Archived,
		CreatedBy:      item.CreatedBy,
	}, actor)
	if !decision.CanView {
		utils.WriteNotFoundResponse(w, permissions.ReasonNotFound)
		return
	}
	utils.WriteSuccessResponse(w, item)
}

// UpdateCarouselItem edits a pending slide.
func (h *ContentHandler) UpdateCarouselItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req UpdateCarouselItemRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}

	scope, user, err := h.authorizeWrite(r, database.KindCarousel, id)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	item, err := h.db.GetCarouselItem(r.Context(), id)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}
	if req.Title != nil {
		item.Title = strings.TrimSpace(*req.Title)
	}
	if req.ImageURL != nil {
		item.ImageURL = *req.ImageURL
	}
	if req.LinkURL != nil {
		item.LinkURL = *req.LinkURL
	}
	if req.Position != nil {
		item.Position = *req.Position
	}
	if item.Title == "" {
		utils.WriteValidationErrorResponse(w, "title is required", "")
		return
	}
	if strings.TrimSpace(item.ImageURL) == "" {
		utils.WriteValidationErrorResponse(w, "image_url is required", "")
		return
	}
	if item.Position < 0 {
		utils.WriteValidationErrorResponse(w, "position cannot be negative", "")
		return
	}
	item.UpdatedBy = user.ID

	if err := h.db.UpdateCarouselItem(r.Context(), item, scope); err != nil {
		utils.WriteAppError(w, err)
		return
	}

	h.notify(database.KindCarousel, realtime.ActionUpdate, item.ID, item.OrganizationID, item)
	utils.WriteSuccessResponse(w, item)
}
