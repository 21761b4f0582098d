// Package permissions decides what an actor may do with a content record.
//
// Every mutation path must re-assert the same rules at the data-access
// boundary (compound update predicates); this evaluator is the single place
// the rules are written down, used for gating and for surfacing reasons.
package permissions

import "youth-cms-backend/pkg/models"

// Actor is the acting user, reduced to the fields permissions depend on.
type Actor struct {
	ID             string
	OrganizationID string // empty for admins
	Role           models.UserRole
}

// ActorFromUser builds an Actor from an authenticated user.
func ActorFromUser(u *models.AppUser) Actor {
	return Actor{ID: u.ID, OrganizationID: u.OrgID(), Role: u.Role}
}

// Record is the state of a content record relevant to permissions.
type Record struct {
	OrganizationID string
	Approved       bool
	Archived       bool
	CreatedBy      string
}

// Decision is the set of capabilities granted to an actor on a record.
type Decision struct {
	CanView    bool   `json:"can_view"`
	CanEdit    bool   `json:"can_edit"`
	CanDelete  bool   `json:"can_delete"`
	CanApprove bool   `json:"can_approve"`
	Reason     string `json:"reason,omitempty"`
}

const (
	ReasonNotFound    = "Record not found"
	ReasonNotYourOrg  = "Not your organization content"
	ReasonApprovedRow = "Cannot edit approved content"
)

// Evaluate decides the capabilities for a (record, actor) pair.
// rec == nil stands for a failed record lookup and yields an all-false
// decision. Admins bypass ownership and state checks entirely.
func Evaluate(rec *Record, actor Actor) Decision {
	if actor.Role == models.RoleAdmin {
		return Decision{CanView: true, CanEdit: true, CanDelete: true, CanApprove: true}
	}

	if rec == nil {
		return Decision{Reason: ReasonNotFound}
	}

	if rec.OrganizationID != actor.OrganizationID {
		// Non-owners may only see already-approved content. Same rule the
		// public read path enforces server-side.
		return Decision{CanView: rec.Approved, Reason: ReasonNotYourOrg}
	}

	d := Decision{
		CanView:   true,
		CanEdit:   !rec.Approved && !rec.Archived,
		CanDelete: !rec.Archived,
	}
	if rec.Approved {
		d.Reason = ReasonApprovedRow
	}
	return d
}
