package database

import (
	"context"
	"fmt"

	"youth-cms-backend/pkg/models"

	"go.uber.org/zap"
)

// ContentKind is the closed enumeration of content tables. Repository
// operations that only touch lifecycle state (approval, archival, hard
// delete) are parameterized by kind; everything touching entity-specific
// columns goes through the typed methods below.
type ContentKind string

const (
	KindAnnouncement ContentKind = "announcements"
	KindProgram      ContentKind = "programs"
	KindCarousel     ContentKind = "carousel_items"
	KindFile         ContentKind = "org_files"
)

// Valid reports whether k is one of the enumerated content kinds.
func (k ContentKind) Valid() bool {
	switch k {
	case KindAnnouncement, KindProgram, KindCarousel, KindFile:
		return true
	}
	return false
}

// Table returns the backing table name.
func (k ContentKind) Table() string { return string(k) }

// ParseContentKind maps a URL segment to a content kind.
func ParseContentKind(s string) (ContentKind, error) {
	switch s {
	case "announcements":
		return KindAnnouncement, nil
	case "programs":
		return KindProgram, nil
	case "carousel", "carousel_items":
		return KindCarousel, nil
	case "files", "org_files":
		return KindFile, nil
	}
	return "", fmt.Errorf("unknown content kind %q", s)
}

// WriteScope restricts a mutation's WHERE clause. The zero value is the
// admin scope: match by id only. Organization actors carry their org id, and
// edits additionally re-assert the pending state so a concurrent approval
// fails the write instead of being overwritten.
type WriteScope struct {
	OrganizationID string
	PendingOnly    bool
}

// AdminScope matches by id only.
func AdminScope() WriteScope { return WriteScope{} }

// OwnerScope matches rows owned by orgID.
func OwnerScope(orgID string) WriteScope { return WriteScope{OrganizationID: orgID} }

// PendingOwnerScope matches rows owned by orgID that are still unapproved
// and unarchived. Used for organization edits.
func PendingOwnerScope(orgID string) WriteScope {
	return WriteScope{OrganizationID: orgID, PendingOnly: true}
}

// ContentState is the lifecycle state of a content row, enough for the
// permission evaluator and for Conflict/NotFound resolution.
type ContentState struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organization_id"`
	Approved       bool   `json:"approved"`
	Archived       bool   `json:"archived"`
	CreatedBy      string `json:"created_by"`
}

// ListQuery is offset pagination for listing queries.
type ListQuery struct {
	Offset int
	Limit  int
}

// normalize applies the default page size bound.
func (q ListQuery) normalize() ListQuery {
	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 50
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return q
}

// DatabaseInterface defines the data-access boundary. Both implementations
// (PostgreSQL, Supabase REST) must enforce scoping and approval filters in
// the query itself, never only in the handler.
type DatabaseInterface interface {
	// Users
	CreateUser(ctx context.Context, user *models.AppUser) error
	GetUserByEmail(ctx context.Context, email string) (*models.AppUser, error)
	GetUserByID(ctx context.Context, id string) (*models.AppUser, error)
	UpdateUser(ctx context.Context, user *models.AppUser) error
	SetUserArchived(ctx context.Context, id string, archived bool) error
	// DeleteUser hard-deletes a row; only used to roll back a partially
	// created account.
	DeleteUser(ctx context.Context, id string) error
	ListUsers(ctx context.Context) ([]models.AppUser, error)
	ListUsersByOrganization(ctx context.Context, orgID string) ([]models.AppUser, error)

	// Organizations
	CreateOrganization(ctx context.Context, org *models.Organization) error
	GetOrganization(ctx context.Context, id string) (*models.Organization, error)
	UpdateOrganization(ctx context.Context, org *models.Organization) error
	ListOrganizations(ctx context.Context) ([]models.Organization, error)
	ListActiveOrganizations(ctx context.Context) ([]models.Organization, error)
	SetOrganizationArchived(ctx context.Context, id string, archived bool) error

	// Announcements
	CreateAnnouncement(ctx context.Context, a *models.Announcement) error
	GetAnnouncement(ctx context.Context, id string) (*models.Announcement, error)
	UpdateAnnouncement(ctx context.Context, a *models.Announcement, scope WriteScope) error
	ListAnnouncementsByOrganization(ctx context.Context, orgID string, q ListQuery) ([]models.Announcement, error)
	ListApprovedAnnouncements(ctx context.Context, q ListQuery) ([]models.Announcement, error)

	// Programs
	CreateProgram(ctx context.Context, p *models.Program) error
	GetProgram(ctx context.Context, id string) (*models.Program, error)
	UpdateProgram(ctx context.Context, p *models.Program, scope WriteScope) error
	ListProgramsByOrganization(ctx context.Context, orgID string, q ListQuery) ([]models.Program, error)
	ListApprovedPrograms(ctx context.Context, q ListQuery) ([]models.Program, error)

	// Carousel items
	CreateCarouselItem(ctx context.Context, c *models.CarouselItem) error
	GetCarouselItem(ctx context.Context, id string) (*models.CarouselItem, error)
	UpdateCarouselItem(ctx context.Context, c *models.CarouselItem, scope WriteScope) error
	ListCarouselItemsByOrganization(ctx context.Context, orgID string, q ListQuery) ([]models.CarouselItem, error)
	ListApprovedCarouselItems(ctx context.Context, q ListQuery) ([]models.CarouselItem, error)

	// Org files
	CreateOrgFile(ctx context.Context, f *models.OrgFile) error
	GetOrgFile(ctx context.Context, id string) (*models.OrgFile, error)
	UpdateOrgFile(ctx context.Context, f *models.OrgFile, scope WriteScope) error
	ListOrgFilesByOrganization(ctx context.Context, orgID string, q ListQuery) ([]models.OrgFile, error)
	ListApprovedOrgFiles(ctx context.Context, q ListQuery) ([]models.OrgFile, error)

	// Lifecycle state shared by all content kinds
	GetContentState(ctx context.Context, kind ContentKind, id string) (*ContentState, error)
	// SetApproval flips the approved flag for a set of ids as one backend
	// call; admin-only, unscoped, idempotent.
	SetApproval(ctx context.Context, kind ContentKind, ids []string, approved bool, updatedBy string) error
	// SetArchived archives or restores a set of ids as one backend call,
	// honoring scope for organization actors.
	SetArchived(ctx context.Context, kind ContentKind, ids []string, archived bool, scope WriteScope, updatedBy string) error
	// HardDelete removes an archived row permanently. Admin-only.
	HardDelete(ctx context.Context, kind ContentKind, id string) error

	// Health check
	HealthCheck(ctx context.Context) error

	// Close the underlying connection
	Close() error
}

// DatabaseConfig selects and configures a database implementation.
type DatabaseConfig struct {
	PostgresDSN string
	SupabaseURL string
	SupabaseKey string
	Debug       bool
}

// NewDatabase picks the database implementation from the configuration:
// PostgreSQL when a DSN is set, Supabase REST otherwise.
func NewDatabase(config DatabaseConfig, logger *zap.Logger) (DatabaseInterface, error) {
	if config.PostgresDSN != "" {
		logger.Info("using PostgreSQL database")
		return NewPostgresDatabase(config.PostgresDSN, logger)
	}

	if config.SupabaseURL != "" && config.SupabaseKey != "" {
		logger.Info("using Supabase REST database")
		return NewSupabaseDatabase(config.SupabaseURL, config.SupabaseKey, logger), nil
	}

	return nil, fmt.Errorf("no valid database configuration: set POSTGRES_DSN or SUPABASE_URL+SUPABASE_SERVICE_KEY")
}
