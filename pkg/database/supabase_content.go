package database

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"youth-cms-backend/pkg/apperrors"
	"youth-cms-backend/pkg/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// fetchOne decodes a single-row representation, treating an empty array as a
// missing record.
func fetchOne[T any](ctx context.Context, db *SupabaseDatabase, endpoint, what string) (*T, error) {
	body, err := db.makeRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", what, err)
	}
	var rows []T
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, apperrors.Wrap(apperrors.TypeInternal, "failed to decode "+what, err)
	}
	if len(rows) == 0 {
		return nil, notFound(what)
	}
	return &rows[0], nil
}

// fetchList decodes a multi-row representation.
func fetchList[T any](ctx context.Context, db *SupabaseDatabase, endpoint, what string) ([]T, error) {
	body, err := db.makeRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", what, err)
	}
	var rows []T
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, apperrors.Wrap(apperrors.TypeInternal, "failed to decode "+what, err)
	}
	return rows, nil
}

// scopeFilters appends the write-scope conditions as PostgREST filters.
func scopeFilters(endpoint string, scope WriteScope) string {
	if scope.OrganizationID != "" {
		endpoint += "&" + eq("organization_id", scope.OrganizationID)
	}
	if scope.PendingOnly {
		endpoint += "&approved=eq.false&archived=eq.false"
	}
	return endpoint
}

// resolveWriteFailure distinguishes a vanished row from one the scope
// excluded, mirroring the SQL backend's probe.
func (db *SupabaseDatabase) resolveWriteFailure(ctx context.Context, kind ContentKind, id string, scope WriteScope) error {
	state, err := db.GetContentState(ctx, kind, id)
	if err != nil {
		return notFound("record")
	}
	db.logger.Debug("conditional write matched no rows",
		zap.String("table", kind.Table()),
		zap.String("id", id),
		zap.Bool("approved", state.Approved),
		zap.Bool("archived", state.Archived))
	if scope.OrganizationID != "" && state.OrganizationID != scope.OrganizationID {
		return notFound("record")
	}
	return staleWrite("record")
}

func (db *SupabaseDatabase) stampCreate(meta *models.ContentMeta) {
	if meta.ID == "" {
		meta.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	meta.CreatedAt = now
	meta.UpdatedAt = now
	meta.UpdatedBy = meta.CreatedBy
	meta.Archived = false
}

// ==================== Announcements ====================

// CreateAnnouncement inserts a row, approval preset by the caller.
func (db *SupabaseDatabase) CreateAnnouncement(ctx context.Context, a *models.Announcement) error {
	db.stampCreate(&a.ContentMeta)
	if _, err := db.makeRequest(ctx, http.MethodPost, "/announcements", []models.Announcement{*a}); err != nil {
		return fmt.Errorf("failed to create announcement: %w", err)
	}
	return nil
}

// GetAnnouncement fetches a row by id.
func (db *SupabaseDatabase) GetAnnouncement(ctx context.Context, id string) (*models.Announcement, error) {
	return fetchOne[models.Announcement](ctx, db, "/announcements?"+eq("id", id)+"&limit=1", "announcement")
}

// UpdateAnnouncement patches the editable columns under the given scope.
func (db *SupabaseDatabase) UpdateAnnouncement(ctx context.Context, a *models.Announcement, scope WriteScope) error {
	patch := map[string]interface{}{
		"title":      a.Title,
		"body":       a.Body,
		"publish_at": a.PublishAt,
		"updated_by": a.UpdatedBy,
		"updated_at": time.Now().UTC(),
	}
	endpoint := scopeFilters("/announcements?"+eq("id", a.ID), scope)
	body, err := db.makeRequest(ctx, http.MethodPatch, endpoint, patch)
	if err != nil {
		return fmt.Errorf("failed to update announcement: %w", err)
	}
	if emptyRepresentation(body) {
		return db.resolveWriteFailure(ctx, KindAnnouncement, a.ID, scope)
	}
	return nil
}

// ListAnnouncementsByOrganization lists an organization's unarchived rows.
func (db *SupabaseDatabase) ListAnnouncementsByOrganization(ctx context.Context, orgID string, q ListQuery) ([]models.Announcement, error) {
	q = q.normalize()
	endpoint := "/announcements?" + eq("organization_id", orgID) +
		"&archived=eq.false&order=created_at.desc&" + pageParams(q)
	return fetchList[models.Announcement](ctx, db, endpoint, "announcements")
}

// ListApprovedAnnouncements is the public read path.
func (db *SupabaseDatabase) ListApprovedAnnouncements(ctx context.Context, q ListQuery) ([]models.Announcement, error) {
	q = q.normalize()
	endpoint := "/announcements?approved=eq.true&archived=eq.false&order=created_at.desc&" + pageParams(q)
	return fetchList[models.Announcement](ctx, db, endpoint, "announcements")
}

// ==================== Programs ====================

// CreateProgram inserts a row.
func (db *SupabaseDatabase) CreateProgram(ctx context.Context, p *models.Program) error {
	db.stampCreate(&p.ContentMeta)
	if _, err := db.makeRequest(ctx, http.MethodPost, "/programs", []models.Program{*p}); err != nil {
		return fmt.Errorf("failed to create program: %w", err)
	}
	return nil
}

// GetProgram fetches a row by id.
func (db *SupabaseDatabase) GetProgram(ctx context.Context, id string) (*models.Program, error) {
	return fetchOne[models.Program](ctx, db, "/programs?"+eq("id", id)+"&limit=1", "program")
}

// UpdateProgram patches the editable columns under the given scope.
func (db *SupabaseDatabase) UpdateProgram(ctx context.Context, p *models.Program, scope WriteScope) error {
	patch := map[string]interface{}{
		"title":       p.Title,
		"description": p.Description,
		"age_min":     p.AgeMin,
		"age_max":     p.AgeMax,
		"schedule":    p.Schedule,
		"location":    p.Location,
		"updated_by":  p.UpdatedBy,
		"updated_at":  time.Now().UTC(),
	}
	endpoint := scopeFilters("/programs?"+eq("id", p.ID), scope)
	body, err := db.makeRequest(ctx, http.MethodPatch, endpoint, patch)
	if err != nil {
		return fmt.Errorf("failed to update program: %w", err)
	}
	if emptyRepresentation(body) {
		return db.resolveWriteFailure(ctx, KindProgram, p.ID, scope)
	}
	return nil
}

// ListProgramsByOrganization lists an organization's unarchived programs.
func (db *SupabaseDatabase) ListProgramsByOrganization(ctx context.Context, orgID string, q ListQuery) ([]models.Program, error) {
	q = q.normalize()
	endpoint := "/programs?" + eq("organization_id", orgID) +
		"&archived=eq.false&order=created_at.desc&" + pageParams(q)
	return fetchList[models.Program](ctx, db, endpoint, "programs")
}

// ListApprovedPrograms is the public read path.
func (db *SupabaseDatabase) ListApprovedPrograms(ctx context.Context, q ListQuery) ([]models.Program, error) {
	q = q.normalize()
	endpoint := "/programs?approved=eq.true&archived=eq.false&order=title.asc&" + pageParams(q)
	return fetchList[models.Program](ctx, db, endpoint, "programs")
}

// ==================== Carousel items ====================

// CreateCarouselItem inserts a row.
func (db *SupabaseDatabase) CreateCarouselItem(ctx context.Context, c *models.CarouselItem) error {
	db.stampCreate(&c.ContentMeta)
	if _, err := db.makeRequest(ctx, http.MethodPost, "/carousel_items", []models.CarouselItem{*c}); err != nil {
		return fmt.Errorf("failed to create carousel item: %w", err)
	}
	return nil
}

// GetCarouselItem fetches a row by id.
func (db *SupabaseDatabase) GetCarouselItem(ctx context.Context, id string) (*models.CarouselItem, error) {
	return fetchOne[models.CarouselItem](ctx, db, "/carousel_items?"+eq("id", id)+"&limit=1", "carousel item")
}

// UpdateCarouselItem patches the editable columns under the given scope.
func (db *SupabaseDatabase) UpdateCarouselItem(ctx context.Context, c *models.CarouselItem, scope WriteScope) error {
	patch := map[string]interface{}{
		"title":      c.Title,
		"image_url":  c.ImageURL,
		"link_url":   c.LinkURL,
		"position":   c.Position,
		"updated_by": c.UpdatedBy,
		"updated_at": time.Now().UTC(),
	}
	endpoint := scopeFilters("/carousel_items?"+eq("id", c.ID), scope)
	body, err := db.makeRequest(ctx, http.MethodPatch, endpoint, patch)
	if err != nil {
		return fmt.Errorf("failed to update carousel item: %w", err)
	}
	if emptyRepresentation(body) {
		return db.resolveWriteFailure(ctx, KindCarousel, c.ID, scope)
	}
	return nil
}

// ListCarouselItemsByOrganization lists an organization's unarchived slides.
func (db *SupabaseDatabase) ListCarouselItemsByOrganization(ctx context.Context, orgID string, q ListQuery) ([]models.CarouselItem, error) {
	q = q.normalize()
	endpoint := "/carousel_items?" + eq("organization_id", orgID) +
		"&archived=eq.false&order=position.asc,created_at.asc&" + pageParams(q)
	return fetchList[models.CarouselItem](ctx, db, endpoint, "carousel items")
}

// ListApprovedCarouselItems is the public read path.
func (db *SupabaseDatabase) ListApprovedCarouselItems(ctx context.Context, q ListQuery) ([]models.CarouselItem, error) {
	q = q.normalize()
	endpoint := "/carousel_items?approved=eq.true&archived=eq.false&order=position.asc,created_at.asc&" + pageParams(q)
	return fetchList[models.CarouselItem](ctx, db, endpoint, "carousel items")
}

// ==================== Org files ====================

// CreateOrgFile inserts file metadata.
func (db *SupabaseDatabase) CreateOrgFile(ctx context.Context, f *models.OrgFile) error {
	db.stampCreate(&f.ContentMeta)
	if _, err := db.makeRequest(ctx, http.MethodPost, "/org_files", []models.OrgFile{*f}); err != nil {
		return fmt.Errorf("failed to create org file: %w", err)
	}
	return nil
}

// GetOrgFile fetches file metadata by id.
func (db *SupabaseDatabase) GetOrgFile(ctx context.Context, id string) (*models.OrgFile, error) {
	return fetchOne[models.OrgFile](ctx, db, "/org_files?"+eq("id", id)+"&limit=1", "file")
}

// UpdateOrgFile patches the display name under the given scope.
func (db *SupabaseDatabase) UpdateOrgFile(ctx context.Context, f *models.OrgFile, scope WriteScope) error {
	patch := map[string]interface{}{
		"name":       f.Name,
		"updated_by": f.UpdatedBy,
		"updated_at": time.Now().UTC(),
	}
	endpoint := scopeFilters("/org_files?"+eq("id", f.ID), scope)
	body, err := db.makeRequest(ctx, http.MethodPatch, endpoint, patch)
	if err != nil {
		return fmt.Errorf("failed to update org file: %w", err)
	}
	if emptyRepresentation(body) {
		return db.resolveWriteFailure(ctx, KindFile, f.ID, scope)
	}
	return nil
}

// ListOrgFilesByOrganization lists an organization's unarchived files.
func (db *SupabaseDatabase) ListOrgFilesByOrganization(ctx context.Context, orgID string, q ListQuery) ([]models.OrgFile, error) {
	q = q.normalize()
	endpoint := "/org_files?" + eq("organization_id", orgID) +
		"&archived=eq.false&order=created_at.desc&" + pageParams(q)
	return fetchList[models.OrgFile](ctx, db, endpoint, "files")
}

// ListApprovedOrgFiles is the public read path.
func (db *SupabaseDatabase) ListApprovedOrgFiles(ctx context.Context, q ListQuery) ([]models.OrgFile, error) {
	q = q.normalize()
	endpoint := "/org_files?approved=eq.true&archived=eq.false&order=created_at.desc&" + pageParams(q)
	return fetchList[models.OrgFile](ctx, db, endpoint, "files")
}
