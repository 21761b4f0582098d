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

// CreateProgramRequest is the program creation payload.
type CreateProgramRequest struct {
	OrganizationID string `json:"organization_id,omitempty"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	AgeMin         int    `json:"age_min"`
	AgeMax         int    `json:"age_max"`
	Schedule       string `json:"schedule,omitempty"`
	Location       string `json:"location,omitempty"`
}

// UpdateProgramRequest patches a program. Nil fields keep their value.
type UpdateProgramRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	AgeMin      *int    `json:"age_min"`
	AgeMax      *int    `json:"age_max"`
	Schedule    *string `json:"schedule"`
	Location    *string `json:"location"`
}

func validateAgeRange(min, max int) string {
	if min < 0 || max < 0 {
		return "age range cannot be negative"
	}
	if max > 0 && min > max {
		return "age_min cannot exceed age_max"
	}
	return ""
}

// ListPrograms returns the organization's programs, pending ones included.
func (h *ContentHandler) ListPrograms(w http.ResponseWriter, r *http.Request) {
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
	list, err := h.db.ListProgramsByOrganization(r.Context(), orgID, q)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}
	writeListResponse(w, list, q)
}

// CreateProgram creates a program.
func (h *ContentHandler) CreateProgram(w http.ResponseWriter, r *http.Request) {
	_, user, err := requireActor(r)
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	var req CreateProgramRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		utils.WriteValidationErrorResponse(w, "title is required", "")
		return
	}
	if msg := validateAgeRange(req.AgeMin, req.AgeMax); msg != "" {
		utils.WriteValidationErrorResponse(w, msg, "")
		return
	}

	orgID, approved, err := creationTarget(r, user, req.OrganizationID)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	program := &models.Program{
		ContentMeta: models.ContentMeta{
			OrganizationID: orgID,
			Approved:       approved,
			CreatedBy:      user.ID,
			UpdatedBy:      user.ID,
		},
		Title:       req.Title,
		Description: req.Description,
		AgeMin:      req.AgeMin,
		AgeMax:      req.AgeMax,
		Schedule:    req.Schedule,
		Location:    req.Location,
	}
	if err := h.db.CreateProgram(r.Context(), program); err != nil {
		utils.WriteAppError(w, err)
		return
	}

	h.notify(database.KindProgram, realtime.ActionInsert, program.ID, orgID, program)
	utils.WriteCreatedResponse(w, program)
}

// GetProgram returns a single program the caller may see.
func (h *ContentHandler) GetProgram(w http.ResponseWriter, r *http.Request) {
	actor, _, err := requireActor(r)
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	program, err := h.db.GetProgram(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	decision := permissions.Evaluate(&permissions.Record{
		OrganizationID: program.OrganizationID,
		Approved:       program.Approved,
		Archived:       program.Archived,
		CreatedBy:      program.CreatedBy,
	}, actor)
	if !decision.CanView {
		utils.WriteNotFoundResponse(w, permissions.ReasonNotFound)
		return
	}
	utils.WriteSuccessResponse(w, program)
}

// UpdateProgram edits a pending program.
func (h *ContentHandler) UpdateProgram(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req UpdateProgramRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}

	scope, user, err := h.authorizeWrite(r, database.KindProgram, id)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	program, err := h.db.GetProgram(r.Context(), id)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}
	if req.Title != nil {
		program.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		program.Description = *req.Description
	}
	if req.AgeMin != nil {
		program.AgeMin = *req.AgeMin
	}
	if req.AgeMax != nil {
		program.AgeMax = *req.AgeMax
	}
	if req.Schedule != nil {
		program.Schedule = *req.Schedule
	}
	if req.Location != nil {
		program.Location = *req.Location
	}
	if program.Title == "" {
		utils.WriteValidationErrorResponse(w, "title is required", "")
		return
	}
	if msg := validateAgeRange(program.AgeMin, program.AgeMax); msg != "" {
		utils.WriteValidationErrorResponse(w, msg, "")
		return
	}
	program.UpdatedBy = user.ID

	if err := h.db.UpdateProgram(r.Context(), program, scope); err != nil {
		utils.WriteAppError(w, err)
		return
	}

	h.notify(database.KindProgram, realtime.ActionUpdate, program.ID, program.OrganizationID, program)
	utils.WriteSuccessResponse(w, program)
}
