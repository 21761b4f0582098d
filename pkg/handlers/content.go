package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"youth-cms-backend/pkg/apperrors"
	"youth-cms-backend/pkg/config"
	"youth-cms-backend/pkg/database"
	"youth-cms-backend/pkg/middleware"
	"youth-cms-backend/pkg/models"
	"youth-cms-backend/pkg/permissions"
	"youth-cms-backend/pkg/realtime"
	"youth-cms-backend/pkg/utils"

	"go.uber.org/zap"
)

// ContentHandler carries the shared machinery of the content endpoints:
// permission checks, write scoping and change notifications. The per-type
// endpoints live in their own files.
type ContentHandler struct {
	config *config.Config
	db     database.DatabaseInterface
	hub    *realtime.Hub
	logger *zap.Logger
}

// NewContentHandler creates the content handler.
func NewContentHandler(cfg *config.Config, db database.DatabaseInterface, hub *realtime.Hub, logger *zap.Logger) *ContentHandler {
	return &ContentHandler{
		config: cfg,
		db:     db,
		hub:    hub,
		logger: logger,
	}
}

// requireActor resolves the authenticated account into a permission actor.
func requireActor(r *http.Request) (permissions.Actor, *models.AppUser, error) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		return permissions.Actor{}, nil, err
	}
	return permissions.ActorFromUser(user), user, nil
}

// requireAdminActor writes the rejection itself so call sites stay short.
// The router also gates admin routes; this guards direct handler use.
func requireAdminActor(r *http.Request, w http.ResponseWriter) (*models.AppUser, error) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return nil, err
	}
	if !user.IsAdmin() {
		utils.WriteForbiddenResponse(w, "Admin role required")
		return nil, apperrors.New(apperrors.TypePermissionDenied, "Admin role required")
	}
	return user, nil
}

// middlewareUser reads the optional authenticated account; routes with
// OptionalAuthMiddleware may or may not have one.
func middlewareUser(r *http.Request) (*models.AppUser, bool) {
	return middleware.GetUserFromContext(r.Context())
}

func validationErr(msg string) error {
	return apperrors.New(apperrors.TypeValidation, msg)
}

// listQueryFrom reads offset/limit pagination from the query string.
func listQueryFrom(r *http.Request) database.ListQuery {
	var q database.ListQuery
	if v, err := strconv.Atoi(utils.GetQueryParam(r, "offset", "0")); err == nil && v > 0 {
		q.Offset = v
	}
	if v, err := strconv.Atoi(utils.GetQueryParam(r, "limit", "0")); err == nil && v > 0 {
		q.Limit = v
	}
	return q
}

// listOrgFrom decides which organization a listing targets. Organization
// accounts always see their own; admins pick one with ?organization_id=.
func listOrgFrom(r *http.Request, user *models.AppUser) (string, bool) {
	if !user.IsAdmin() {
		return user.OrgID(), user.OrgID() != ""
	}
	orgID := utils.GetQueryParam(r, "organization_id", "")
	return orgID, orgID != ""
}

// authorizeWrite loads the row's lifecycle state, runs the permission
// evaluator and converts the decision into a write scope for the update.
func (h *ContentHandler) authorizeWrite(r *http.Request, kind database.ContentKind, id string) (database.WriteScope, *models.AppUser, error) {
	actor, user, err := requireActor(r)
	if err != nil {
		return database.WriteScope{}, nil, apperrors.New(apperrors.TypeUnauthorized, "Authentication required")
	}

	state, err := h.db.GetContentState(r.Context(), kind, id)
	if err != nil {
		if apperrors.TypeOf(err) == apperrors.TypeNotFound {
			return database.WriteScope{}, nil, apperrors.New(apperrors.TypeNotFound, permissions.ReasonNotFound)
		}
		return database.WriteScope{}, nil, err
	}

	decision := permissions.Evaluate(&permissions.Record{
		OrganizationID: state.OrganizationID,
		Approved:       state.Approved,
		Archived:       state.Archived,
		CreatedBy:      state.CreatedBy,
	}, actor)

	if !decision.CanEdit {
		if !decision.CanView {
			return database.WriteScope{}, nil, apperrors.New(apperrors.TypeNotFound, permissions.ReasonNotFound)
		}
		if decision.Reason == permissions.ReasonApprovedRow {
			return database.WriteScope{}, nil, apperrors.New(apperrors.TypeConflict, decision.Reason)
		}
		return database.WriteScope{}, nil, apperrors.New(apperrors.TypePermissionDenied, decision.Reason)
	}

	if user.IsAdmin() {
		return database.AdminScope(), user, nil
	}
	// The scope re-asserts what the evaluator just saw, so a racing approval
	// turns this write into a Conflict instead of clobbering approved content.
	return database.PendingOwnerScope(user.OrgID()), user, nil
}

// creationTarget resolves which organization a new record belongs to and
// whether it starts approved. Admin submissions are approved immediately,
// organization submissions await review.
func creationTarget(r *http.Request, user *models.AppUser, requested string) (orgID string, approved bool, err error) {
	if user.IsAdmin() {
		if requested == "" {
			return "", false, apperrors.New(apperrors.TypeValidation, "organization_id is required")
		}
		return requested, true, nil
	}
	if user.OrgID() == "" {
		return "", false, apperrors.New(apperrors.TypePermissionDenied, "Account has no organization")
	}
	if requested != "" && requested != user.OrgID() {
		return "", false, apperrors.New(apperrors.TypePermissionDenied, permissions.ReasonNotYourOrg)
	}
	return user.OrgID(), false, nil
}

// notify pushes a change event to realtime subscribers. Best effort; a full
// buffer drops the event rather than stalling the request.
func (h *ContentHandler) notify(kind database.ContentKind, action realtime.Action, id, orgID string, record interface{}) {
	var raw json.RawMessage
	if record != nil {
		data, err := json.Marshal(record)
		if err != nil {
			h.logger.Warn("failed to marshal realtime record", zap.Error(err))
		} else {
			raw = data
		}
	}
	h.hub.Publish(realtime.Event{
		Table:          kind.Table(),
		Action:         action,
		RecordID:       id,
		OrganizationID: orgID,
		Record:         raw,
	})
}

// writeListResponse writes a paginated envelope for any list payload.
func writeListResponse[T any](w http.ResponseWriter, list []T, q database.ListQuery) {
	if list == nil {
		list = []T{}
	}
	utils.WritePaginatedResponse(w, list, q.Offset, q.Limit, len(list))
}

// batchIDs parses and bounds a batch lifecycle request.
func batchIDs(r *http.Request) ([]string, error) {
	var req models.BatchRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		return nil, apperrors.New(apperrors.TypeValidation, "Invalid request body")
	}
	if len(req.IDs) == 0 {
		return nil, apperrors.New(apperrors.TypeValidation, "ids is required")
	}
	if len(req.IDs) > 100 {
		return nil, apperrors.New(apperrors.TypeValidation, "too many ids in one batch")
	}
	return req.IDs, nil
}
