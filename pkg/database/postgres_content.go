package database

import (
	"context"
	"database/sql"
	"fmt"

	"youth-cms-backend/pkg/apperrors"
	"youth-cms-backend/pkg/models"

	"github.com/google/uuid"
)

// Content tables share the lifecycle columns; the typed methods below own
// the entity-specific ones. Conditional updates re-assert ownership and the
// pending state in the WHERE clause so a write racing an approval fails with
// Conflict instead of overwriting it.

// scopePredicate appends the scope conditions to a WHERE clause that already
// binds id as $1... args are extended in place.
func scopePredicate(query string, args []interface{}, scope WriteScope) (string, []interface{}) {
	if scope.OrganizationID != "" {
		query += fmt.Sprintf(` AND organization_id = $%d`, len(args)+1)
		args = append(args, scope.OrganizationID)
	}
	if scope.PendingOnly {
		query += ` AND approved = FALSE AND archived = FALSE`
	}
	return query, args
}

// ==================== Announcements ====================

const announcementColumns = `id, organization_id, title, body, publish_at, approved, archived, COALESCE(created_by,''), COALESCE(updated_by,''), created_at, updated_at`

func scanAnnouncement(s interface{ Scan(...interface{}) error }) (*models.Announcement, error) {
	var a models.Announcement
	err := s.Scan(&a.ID, &a.OrganizationID, &a.Title, &a.Body, &a.PublishAt, &a.Approved, &a.Archived, &a.CreatedBy, &a.UpdatedBy, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateAnnouncement inserts a row; approval state is preset by the caller
// from the actor's role, archived always starts false.
func (db *PostgresDatabase) CreateAnnouncement(ctx context.Context, a *models.Announcement) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	query := `
		INSERT INTO announcements (id, organization_id, title, body, publish_at, approved, archived, created_by, updated_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7, $7, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := db.queryRow(ctx, query, func(row *sql.Row) error {
		return row.Scan(&a.CreatedAt, &a.UpdatedAt)
	}, a.ID, a.OrganizationID, a.Title, a.Body, a.PublishAt, a.Approved, a.CreatedBy)
	if err != nil {
		return fmt.Errorf("failed to create announcement: %w", err)
	}
	a.Archived = false
	return nil
}

// GetAnnouncement fetches a row by id.
func (db *PostgresDatabase) GetAnnouncement(ctx context.Context, id string) (*models.Announcement, error) {
	query := `SELECT ` + announcementColumns + ` FROM announcements WHERE id = $1`
	var a *models.Announcement
	err := db.queryRow(ctx, query, func(row *sql.Row) error {
		var err error
		a, err = scanAnnouncement(row)
		return err
	}, id)
	if err != nil {
		if apperrors.TypeOf(err) == apperrors.TypeNotFound {
			return nil, notFound("announcement")
		}
		return nil, fmt.Errorf("failed to get announcement: %w", err)
	}
	return a, nil
}

// UpdateAnnouncement patches the editable columns under the given scope.
// organization_id and approved are never written here.
func (db *PostgresDatabase) UpdateAnnouncement(ctx context.Context, a *models.Announcement, scope WriteScope) error {
	query := `
		UPDATE announcements
		SET title = $1, body = $2, publish_at = $3, updated_by = $4, updated_at = NOW()
		WHERE id = $5`
	args := []interface{}{a.Title, a.Body, a.PublishAt, a.UpdatedBy, a.ID}
	query, args = scopePredicate(query, args, scope)

	res, err := db.exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update announcement: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return db.resolveWriteFailure(ctx, KindAnnouncement, a.ID, scope)
	}
	return nil
}

// ListAnnouncementsByOrganization lists an organization's unarchived rows,
// pending ones included. Owner/admin path.
func (db *PostgresDatabase) ListAnnouncementsByOrganization(ctx context.Context, orgID string, q ListQuery) ([]models.Announcement, error) {
	q = q.normalize()
	query := `SELECT ` + announcementColumns + ` FROM announcements
		WHERE organization_id = $1 AND archived = FALSE
		ORDER BY created_at DESC OFFSET $2 LIMIT $3`
	return db.listAnnouncements(ctx, query, orgID, q.Offset, q.Limit)
}

// ListApprovedAnnouncements is the public read path; the approval filter is
// part of the query, not a handler afterthought.
func (db *PostgresDatabase) ListApprovedAnnouncements(ctx context.Context, q ListQuery) ([]models.Announcement, error) {
	q = q.normalize()
	query := `SELECT ` + announcementColumns + ` FROM announcements
		WHERE approved = TRUE AND archived = FALSE
		ORDER BY COALESCE(publish_at, created_at) DESC OFFSET $1 LIMIT $2`
	return db.listAnnouncements(ctx, query, q.Offset, q.Limit)
}

func (db *PostgresDatabase) listAnnouncements(ctx context.Context, query string, args ...interface{}) ([]models.Announcement, error) {
	var list []models.Announcement
	err := db.query(ctx, query, func(rows *sql.Rows) error {
		list = list[:0]
		for rows.Next() {
			a, err := scanAnnouncement(rows)
			if err != nil {
				return err
			}
			list = append(list, *a)
		}
		return nil
	}, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list announcements: %w", err)
	}
	return list, nil
}

// ==================== Programs ====================

const programColumns = `id, organization_id, title, description, age_min, age_max, COALESCE(schedule,''), COALESCE(location,''), approved, archived, COALESCE(created_by,''), COALESCE(updated_by,''), created_at, updated_at`

func scanProgram(s interface{ Scan(...interface{}) error }) (*models.Program, error) {
	var p models.Program
	err := s.Scan(&p.ID, &p.OrganizationID, &p.Title, &p.Description, &p.AgeMin, &p.AgeMax, &p.Schedule, &p.Location, &p.Approved, &p.Archived, &p.CreatedBy, &p.UpdatedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateProgram inserts a row.
func (db *PostgresDatabase) CreateProgram(ctx context.Context, p *models.Program) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	query := `
		INSERT INTO programs (id, organization_id, title, description, age_min, age_max, schedule, location, approved, archived, created_by, updated_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, FALSE, $10, $10, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := db.queryRow(ctx, query, func(row *sql.Row) error {
		return row.Scan(&p.CreatedAt, &p.UpdatedAt)
	}, p.ID, p.OrganizationID, p.Title, p.Description, p.AgeMin, p.AgeMax, p.Schedule, p.Location, p.Approved, p.CreatedBy)
	if err != nil {
		return fmt.Errorf("failed to create program: %w", err)
	}
	p.Archived = false
	return nil
}

// GetProgram fetches a row by id.
func (db *PostgresDatabase) GetProgram(ctx context.Context, id string) (*models.Program, error) {
	query := `SELECT ` + programColumns + ` FROM programs WHERE id = $1`
	var p *models.Program
	err := db.queryRow(ctx, query, func(row *sql.Row) error {
		var err error
		p, err = scanProgram(row)
		return err
	}, id)
	if err != nil {
		if apperrors.TypeOf(err) == apperrors.TypeNotFound {
			return nil, notFound("program")
		}
		return nil, fmt.Errorf("failed to get program: %w", err)
	}
	return p, nil
}

// UpdateProgram patches the editable columns under the given scope.
func (db *PostgresDatabase) UpdateProgram(ctx context.Context, p *models.Program, scope WriteScope) error {
	query := `
		UPDATE programs
		SET title = $1, description = $2, age_min = $3, age_max = $4, schedule = $5, location = $6, updated_by = $7, updated_at = NOW()
		WHERE id = $8`
	args := []interface{}{p.Title, p.Description, p.AgeMin, p.AgeMax, p.Schedule, p.Location, p.UpdatedBy, p.ID}
	query, args = scopePredicate(query, args, scope)

	res, err := db.exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update program: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return db.resolveWriteFailure(ctx, KindProgram, p.ID, scope)
	}
	return nil
}

// ListProgramsByOrganization lists an organization's unarchived programs.
func (db *PostgresDatabase) ListProgramsByOrganization(ctx context.Context, orgID string, q ListQuery) ([]models.Program, error) {
	q = q.normalize()
	query := `SELECT ` + programColumns + ` FROM programs
		WHERE organization_id = $1 AND archived = FALSE
		ORDER BY created_at DESC OFFSET $2 LIMIT $3`
	return db.listPrograms(ctx, query, orgID, q.Offset, q.Limit)
}

// ListApprovedPrograms is the public read path.
func (db *PostgresDatabase) ListApprovedPrograms(ctx context.Context, q ListQuery) ([]models.Program, error) {
	q = q.normalize()
	query := `SELECT ` + programColumns + ` FROM programs
		WHERE approved = TRUE AND archived = FALSE
		ORDER BY title ASC OFFSET $1 LIMIT $2`
	return db.listPrograms(ctx, query, q.Offset, q.Limit)
}

func (db *PostgresDatabase) listPrograms(ctx context.Context, query string, args ...interface{}) ([]models.Program, error) {
	var list []models.Program
	err := db.query(ctx, query, func(rows *sql.Rows) error {
		list = list[:0]
		for rows.Next() {
			p, err := scanProgram(rows)
			if err != nil {
				return err
			}
			list = append(list, *p)
		}
		return nil
	}, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list programs: %w", err)
	}
	return list, nil
}

// ==================== Carousel items ====================

const carouselColumns = `id, organization_id, title, image_url, COALESCE(link_url,''), position, approved, archived, COALESCE(created_by,''), COALESCE(updated_by,''), created_at, updated_at`

func scanCarouselItem(s interface{ Scan(...interface{}) error }) (*models.CarouselItem, error) {
	var c models.CarouselItem
	err := s.Scan(&c.ID, &c.OrganizationID, &c.Title, &c.ImageURL, &c.LinkURL, &c.Position, &c.Approved, &c.Archived, &c.CreatedBy, &c.UpdatedBy, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateCarouselItem inserts a row.
func (db *PostgresDatabase) CreateCarouselItem(ctx context.Context, c *models.CarouselItem) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	query := `
		INSERT INTO carousel_items (id, organization_id, title, image_url, link_url, position, approved, archived, created_by, updated_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE, $8, $8, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := db.queryRow(ctx, query, func(row *sql.Row) error {
		return row.Scan(&c.CreatedAt, &c.UpdatedAt)
	}, c.ID, c.OrganizationID, c.Title, c.ImageURL, c.LinkURL, c.Position, c.Approved, c.CreatedBy)
	if err != nil {
		return fmt.Errorf("failed to create carousel item: %w", err)
	}
	c.Archived = false
	return nil
}

// GetCarouselItem fetches a row by id.
func (db *PostgresDatabase) GetCarouselItem(ctx context.Context, id string) (*models.CarouselItem, error) {
	query := `SELECT ` + carouselColumns + ` FROM carousel_items WHERE id = $1`
	var c *models.CarouselItem
	err := db.queryRow(ctx, query, func(row *sql.Row) error {
		var err error
		c, err = scanCarouselItem(row)
		return err
	}, id)
	if err != nil {
		if apperrors.TypeOf(err) == apperrors.TypeNotFound {
			return nil, notFound("carousel item")
		}
		return nil, fmt.Errorf("failed to get carousel item: %w", err)
	}
	return c, nil
}

// UpdateCarouselItem patches the editable columns under the given scope.
func (db *PostgresDatabase) UpdateCarouselItem(ctx context.Context, c *models.CarouselItem, scope WriteScope) error {
	query := `
		UPDATE carousel_items
		SET title = $1, image_url = $2, link_url = $3, position = $4, updated_by = $5, updated_at = NOW()
		WHERE id = $6`
	args := []interface{}{c.Title, c.ImageURL, c.LinkURL, c.Position, c.UpdatedBy, c.ID}
	query, args = scopePredicate(query, args, scope)

	res, err := db.exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update carousel item: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return db.resolveWriteFailure(ctx, KindCarousel, c.ID, scope)
	}
	return nil
}

// ListCarouselItemsByOrganization lists an organization's unarchived slides.
func (db *PostgresDatabase) ListCarouselItemsByOrganization(ctx context.Context, orgID string, q ListQuery) ([]models.CarouselItem, error) {
	q = q.normalize()
	query := `SELECT ` + carouselColumns + ` FROM carousel_items
		WHERE organization_id = $1 AND archived = FALSE
		ORDER BY position ASC, created_at ASC OFFSET $2 LIMIT $3`
	return db.listCarouselItems(ctx, query, orgID, q.Offset, q.Limit)
}

// ListApprovedCarouselItems is the public read path.
func (db *PostgresDatabase) ListApprovedCarouselItems(ctx context.Context, q ListQuery) ([]models.CarouselItem, error) {
	q = q.normalize()
	query := `SELECT ` + carouselColumns + ` FROM carousel_items
		WHERE approved = TRUE AND archived = FALSE
		ORDER BY position ASC, created_at ASC OFFSET $1 LIMIT $2`
	return db.listCarouselItems(ctx, query, q.Offset, q.Limit)
}

func (db *PostgresDatabase) listCarouselItems(ctx context.Context, query string, args ...interface{}) ([]models.CarouselItem, error) {
	var list []models.CarouselItem
	err := db.query(ctx, query, func(rows *sql.Rows) error {
		list = list[:0]
		for rows.Next() {
			c, err := scanCarouselItem(rows)
			if err != nil {
				return err
			}
			list = append(list, *c)
		}
		return nil
	}, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list carousel items: %w", err)
	}
	return list, nil
}

// ==================== Org files ====================

const orgFileColumns = `id, organization_id, name, bucket, object_key, COALESCE(content_type,''), size_bytes, approved, archived, COALESCE(created_by,''), COALESCE(updated_by,''), created_at, updated_at`

func scanOrgFile(s interface{ Scan(...interface{}) error }) (*models.OrgFile, error) {
	var f models.OrgFile
	err := s.Scan(&f.ID, &f.OrganizationID, &f.Name, &f.Bucket, &f.ObjectKey, &f.ContentType, &f.SizeBytes, &f.Approved, &f.Archived, &f.CreatedBy, &f.UpdatedBy, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// CreateOrgFile inserts file metadata; the bytes are already in storage.
func (db *PostgresDatabase) CreateOrgFile(ctx context.Context, f *models.OrgFile) error {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	query := `
		INSERT INTO org_files (id, organization_id, name, bucket, object_key, content_type, size_bytes, approved, archived, created_by, updated_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, FALSE, $9, $9, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := db.queryRow(ctx, query, func(row *sql.Row) error {
		return row.Scan(&f.CreatedAt, &f.UpdatedAt)
	}, f.ID, f.OrganizationID, f.Name, f.Bucket, f.ObjectKey, f.ContentType, f.SizeBytes, f.Approved, f.CreatedBy)
	if err != nil {
		return fmt.Errorf("failed to create org file: %w", err)
	}
	f.Archived = false
	return nil
}

// GetOrgFile fetches file metadata by id.
func (db *PostgresDatabase) GetOrgFile(ctx context.Context, id string) (*models.OrgFile, error) {
	query := `SELECT ` + orgFileColumns + ` FROM org_files WHERE id = $1`
	var f *models.OrgFile
	err := db.queryRow(ctx, query, func(row *sql.Row) error {
		var err error
		f, err = scanOrgFile(row)
		return err
	}, id)
	if err != nil {
		if apperrors.TypeOf(err) == apperrors.TypeNotFound {
			return nil, notFound("file")
		}
		return nil, fmt.Errorf("failed to get org file: %w", err)
	}
	return f, nil
}

// UpdateOrgFile patches the display name under the given scope. Bucket and
// object key are fixed once written.
func (db *PostgresDatabase) UpdateOrgFile(ctx context.Context, f *models.OrgFile, scope WriteScope) error {
	query := `
		UPDATE org_files
		SET name = $1, updated_by = $2, updated_at = NOW()
		WHERE id = $3`
	args := []interface{}{f.Name, f.UpdatedBy, f.ID}
	query, args = scopePredicate(query, args, scope)

	res, err := db.exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update org file: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return db.resolveWriteFailure(ctx, KindFile, f.ID, scope)
	}
	return nil
}

// ListOrgFilesByOrganization lists an organization's unarchived files.
func (db *PostgresDatabase) ListOrgFilesByOrganization(ctx context.Context, orgID string, q ListQuery) ([]models.OrgFile, error) {
	q = q.normalize()
	query := `SELECT ` + orgFileColumns + ` FROM org_files
		WHERE organization_id = $1 AND archived = FALSE
		ORDER BY created_at DESC OFFSET $2 LIMIT $3`
	return db.listOrgFiles(ctx, query, orgID, q.Offset, q.Limit)
}

// ListApprovedOrgFiles is the public read path.
func (db *PostgresDatabase) ListApprovedOrgFiles(ctx context.Context, q ListQuery) ([]models.OrgFile, error) {
	q = q.normalize()
	query := `SELECT ` + orgFileColumns + ` FROM org_files
		WHERE approved = TRUE AND archived = FALSE
		ORDER BY created_at DESC OFFSET $1 LIMIT $2`
	return db.listOrgFiles(ctx, query, q.Offset, q.Limit)
}

func (db *PostgresDatabase) listOrgFiles(ctx context.Context, query string, args ...interface{}) ([]models.OrgFile, error) {
	var list []models.OrgFile
	err := db.query(ctx, query, func(rows *sql.Rows) error {
		list = list[:0]
		for rows.Next() {
			f, err := scanOrgFile(rows)
			if err != nil {
				return err
			}
			list = append(list, *f)
		}
		return nil
	}, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list org files: %w", err)
	}
	return list, nil
}
