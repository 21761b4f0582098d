package handlers

import (
	"net/http"

	"youth-cms-backend/pkg/database"
	"youth-cms-backend/pkg/realtime"
	"youth-cms-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
)

// kindFromURL validates the {kind} route parameter against the closed set of
// content tables.
func kindFromURL(r *http.Request) (database.ContentKind, bool) {
	kind, err := database.ParseContentKind(chi.URLParam(r, "kind"))
	if err != nil {
		return "", false
	}
	return kind, true
}

// lifecycleScope picks the write scope for archive and restore: admins touch
// anything, organization accounts only their own rows. Owners keep the delete
// right on approved content; the pending-only scope is for edits.
func lifecycleScope(r *http.Request) (database.WriteScope, string, error) {
	_, user, err := requireActor(r)
	if err != nil {
		return database.WriteScope{}, "", err
	}
	if user.IsAdmin() {
		return database.AdminScope(), user.ID, nil
	}
	return database.OwnerScope(user.OrgID()), user.ID, nil
}

// Archive soft-deletes a batch of records. All-or-nothing: if any id is
// missing or out of scope the whole batch is rejected.
func (h *ContentHandler) Archive(w http.ResponseWriter, r *http.Request) {
	h.setArchived(w, r, true)
}

// Restore brings archived records back into the normal lifecycle.
func (h *ContentHandler) Restore(w http.ResponseWriter, r *http.Request) {
	h.setArchived(w, r, false)
}

func (h *ContentHandler) setArchived(w http.ResponseWriter, r *http.Request, archived bool) {
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
	scope, userID, err := lifecycleScope(r)
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	if err := h.db.SetArchived(r.Context(), kind, ids, archived, scope, userID); err != nil {
		utils.WriteAppError(w, err)
		return
	}

	action := realtime.ActionDelete
	if !archived {
		action = realtime.ActionUpdate
	}
	for _, id := range ids {
		h.notify(kind, action, id, scope.OrganizationID, nil)
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{
		"ids":      ids,
		"archived": archived,
	})
}
