package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"youth-cms-backend/pkg/apperrors"
	"youth-cms-backend/pkg/models"
	"youth-cms-backend/pkg/retry"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// PostgresDatabase is the PostgreSQL implementation of DatabaseInterface.
type PostgresDatabase struct {
	db     *sql.DB
	logger *zap.Logger
	policy retry.Policy
}

// NewPostgresDatabase opens a PostgreSQL connection. Several DSN parameter
// strategies are tried in order to cope with pooled/proxied environments.
func NewPostgresDatabase(dsn string, logger *zap.Logger) (DatabaseInterface, error) {
	// Sanitize DSN to avoid stray CR/LF from env values
	dsn = strings.TrimSpace(dsn)
	strategies := []string{
		addConnectionParams(dsn, "prefer_simple_protocol=true"),
		addConnectionParams(dsn, "prefer_simple_protocol=true&connect_timeout=10"),
		addConnectionParams(dsn, "sslmode=require&prefer_simple_protocol=true"),
		dsn, // plain DSN as last resort
	}

	var db *sql.DB
	var err error

	for i, strategy := range strategies {
		db, err = sql.Open("postgres", strategy)
		if err != nil {
			logger.Warn("connection strategy failed to open", zap.Int("strategy", i+1), zap.Error(err))
			continue
		}

		db.SetMaxOpenConns(5)
		db.SetMaxIdleConns(2)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err = db.Ping(); err != nil {
			logger.Warn("connection strategy failed to ping", zap.Int("strategy", i+1), zap.Error(err))
			db.Close()
			continue
		}

		logger.Info("PostgreSQL connection established", zap.Int("strategy", i+1))
		return &PostgresDatabase{db: db, logger: logger, policy: retry.DefaultPolicy()}, nil
	}

	return nil, fmt.Errorf("failed to connect to PostgreSQL with all strategies: %w", err)
}

// addConnectionParams appends params to a DSN.
func addConnectionParams(dsn, params string) string {
	if params == "" {
		return dsn
	}

	separator := "?"
	if strings.Contains(dsn, "?") {
		separator = "&"
	}

	return dsn + separator + params
}

// exec runs a statement through the retry policy with taxonomy mapping.
func (db *PostgresDatabase) exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return retry.DoValue(ctx, db.policy, func() (sql.Result, error) {
		res, err := db.db.ExecContext(ctx, query, args...)
		if err != nil {
			return nil, mapPQError(err)
		}
		return res, nil
	})
}

// query runs a listing query through the retry policy. collect consumes the
// whole row set and must rebuild its result from scratch on every attempt.
func (db *PostgresDatabase) query(ctx context.Context, query string, collect func(*sql.Rows) error, args ...interface{}) error {
	return retry.Do(ctx, db.policy, func() error {
		rows, err := db.db.QueryContext(ctx, query, args...)
		if err != nil {
			return mapPQError(err)
		}
		defer rows.Close()
		if err := collect(rows); err != nil {
			return mapPQError(err)
		}
		return mapPQError(rows.Err())
	})
}

// queryRow runs a single-row query through the retry policy.
func (db *PostgresDatabase) queryRow(ctx context.Context, query string, scan func(*sql.Row) error, args ...interface{}) error {
	return retry.Do(ctx, db.policy, func() error {
		return mapPQError(scan(db.db.QueryRowContext(ctx, query, args...)))
	})
}

// ==================== Users ====================

const userColumns = `id, organization_id, role, email, COALESCE(full_name,''), COALESCE(password_hash,''), archived, created_at, updated_at`

func scanUser(s interface{ Scan(...interface{}) error }) (*models.AppUser, error) {
	var u models.AppUser
	err := s.Scan(&u.ID, &u.OrganizationID, &u.Role, &u.Email, &u.FullName, &u.Password, &u.Archived, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts an account row.
func (db *PostgresDatabase) CreateUser(ctx context.Context, user *models.AppUser) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	query := `
		INSERT INTO app_users (id, organization_id, role, email, full_name, password_hash, archived, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := db.queryRow(ctx, query, func(row *sql.Row) error {
		return row.Scan(&user.CreatedAt, &user.UpdatedAt)
	}, user.ID, user.OrganizationID, user.Role, user.Email, user.FullName, user.Password)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUserByEmail fetches an account by email.
func (db *PostgresDatabase) GetUserByEmail(ctx context.Context, email string) (*models.AppUser, error) {
	query := `SELECT ` + userColumns + ` FROM app_users WHERE email = $1`
	var user *models.AppUser
	err := db.queryRow(ctx, query, func(row *sql.Row) error {
		var err error
		user, err = scanUser(row)
		return err
	}, email)
	if err != nil {
		if apperrors.TypeOf(err) == apperrors.TypeNotFound {
			return nil, notFound("user")
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}

// GetUserByID fetches an account by id.
func (db *PostgresDatabase) GetUserByID(ctx context.Context, id string) (*models.AppUser, error) {
	query := `SELECT ` + userColumns + ` FROM app_users WHERE id = $1`
	var user *models.AppUser
	err := db.queryRow(ctx, query, func(row *sql.Row) error {
		var err error
		user, err = scanUser(row)
		return err
	}, id)
	if err != nil {
		if apperrors.TypeOf(err) == apperrors.TypeNotFound {
			return nil, notFound("user")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// UpdateUser updates profile fields. Role and organization binding are fixed
// after creation.
func (db *PostgresDatabase) UpdateUser(ctx context.Context, user *models.AppUser) error {
	if user.ID == "" {
		return apperrors.New(apperrors.TypeValidation, "user id is required for update")
	}
	query := `
		UPDATE app_users
		SET email = $1,
		    full_name = $2,
		    password_hash = COALESCE(NULLIF($3, ''), password_hash),
		    updated_at = NOW()
		WHERE id = $4
	`
	res, err := db.exec(ctx, query, user.Email, user.FullName, user.Password, user.ID)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return notFound("user")
	}
	return nil
}

// SetUserArchived soft-deletes or restores an account.
func (db *PostgresDatabase) SetUserArchived(ctx context.Context, id string, archived bool) error {
	res, err := db.exec(ctx, `UPDATE app_users SET archived = $1, updated_at = NOW() WHERE id = $2`, archived, id)
	if err != nil {
		return fmt.Errorf("failed to archive user: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return notFound("user")
	}
	return nil
}

// DeleteUser removes a row permanently. Rollback path for partially created
// accounts only.
func (db *PostgresDatabase) DeleteUser(ctx context.Context, id string) error {
	_, err := db.exec(ctx, `DELETE FROM app_users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

// ListUsers lists unarchived accounts.
func (db *PostgresDatabase) ListUsers(ctx context.Context) ([]models.AppUser, error) {
	query := `SELECT ` + userColumns + ` FROM app_users WHERE archived = FALSE ORDER BY created_at ASC`
	var users []models.AppUser
	err := db.query(ctx, query, func(rows *sql.Rows) error {
		users = users[:0]
		for rows.Next() {
			u, err := scanUser(rows)
			if err != nil {
				return err
			}
			users = append(users, *u)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// ListUsersByOrganization lists unarchived accounts bound to orgID.
func (db *PostgresDatabase) ListUsersByOrganization(ctx context.Context, orgID string) ([]models.AppUser, error) {
	query := `SELECT ` + userColumns + ` FROM app_users WHERE organization_id = $1 AND archived = FALSE ORDER BY created_at ASC`
	var users []models.AppUser
	err := db.query(ctx, query, func(rows *sql.Rows) error {
		users = users[:0]
		for rows.Next() {
			u, err := scanUser(rows)
			if err != nil {
				return err
			}
			users = append(users, *u)
		}
		return nil
	}, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list organization users: %w", err)
	}
	return users, nil
}

// ==================== Organizations ====================

const orgColumns = `id, name, COALESCE(primary_color,''), COALESCE(secondary_color,''), COALESCE(logo_url,''), active, archived, COALESCE(created_by,''), COALESCE(updated_by,''), created_at, updated_at`

func scanOrganization(s interface{ Scan(...interface{}) error }) (*models.Organization, error) {
	var o models.Organization
	err := s.Scan(&o.ID, &o.Name, &o.PrimaryColor, &o.SecondaryColor, &o.LogoURL, &o.Active, &o.Archived, &o.CreatedBy, &o.UpdatedBy, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// CreateOrganization inserts an organization row.
func (db *PostgresDatabase) CreateOrganization(ctx context.Context, org *models.Organization) error {
	if org.ID == "" {
		org.ID = uuid.New().String()
	}
	query := `
		INSERT INTO organizations (id, name, primary_color, secondary_color, logo_url, active, archived, created_by, updated_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7, $7, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := db.queryRow(ctx, query, func(row *sql.Row) error {
		return row.Scan(&org.CreatedAt, &org.UpdatedAt)
	}, org.ID, org.Name, org.PrimaryColor, org.SecondaryColor, org.LogoURL, org.Active, org.CreatedBy)
	if err != nil {
		return fmt.Errorf("failed to create organization: %w", err)
	}
	return nil
}

// GetOrganization fetches an organization by id.
func (db *PostgresDatabase) GetOrganization(ctx context.Context, id string) (*models.Organization, error) {
	query := `SELECT ` + orgColumns + ` FROM organizations WHERE id = $1`
	var org *models.Organization
	err := db.queryRow(ctx, query, func(row *sql.Row) error {
		var err error
		org, err = scanOrganization(row)
		return err
	}, id)
	if err != nil {
		if apperrors.TypeOf(err) == apperrors.TypeNotFound {
			return nil, notFound("organization")
		}
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return org, nil
}

// UpdateOrganization updates branding and the active flag.
func (db *PostgresDatabase) UpdateOrganization(ctx context.Context, org *models.Organization) error {
	query := `
		UPDATE organizations
		SET name = $1,
		    primary_color = $2,
		    secondary_color = $3,
		    logo_url = $4,
		    active = $5,
		    updated_by = $6,
		    updated_at = NOW()
		WHERE id = $7
	`
	res, err := db.exec(ctx, query, org.Name, org.PrimaryColor, org.SecondaryColor, org.LogoURL, org.Active, org.UpdatedBy, org.ID)
	if err != nil {
		return fmt.Errorf("failed to update organization: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return notFound("organization")
	}
	return nil
}

// ListOrganizations lists unarchived organizations for admins.
func (db *PostgresDatabase) ListOrganizations(ctx context.Context) ([]models.Organization, error) {
	return db.listOrganizations(ctx, `SELECT `+orgColumns+` FROM organizations WHERE archived = FALSE ORDER BY created_at ASC`)
}

// ListActiveOrganizations lists organizations shown on the public site.
func (db *PostgresDatabase) ListActiveOrganizations(ctx context.Context) ([]models.Organization, error) {
	return db.listOrganizations(ctx, `SELECT `+orgColumns+` FROM organizations WHERE active = TRUE AND archived = FALSE ORDER BY name ASC`)
}

func (db *PostgresDatabase) listOrganizations(ctx context.Context, query string) ([]models.Organization, error) {
	var orgs []models.Organization
	err := db.query(ctx, query, func(rows *sql.Rows) error {
		orgs = orgs[:0]
		for rows.Next() {
			o, err := scanOrganization(rows)
			if err != nil {
				return err
			}
			orgs = append(orgs, *o)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	return orgs, nil
}

// SetOrganizationArchived soft-deletes or restores an organization.
func (db *PostgresDatabase) SetOrganizationArchived(ctx context.Context, id string, archived bool) error {
	res, err := db.exec(ctx, `UPDATE organizations SET archived = $1, updated_at = NOW() WHERE id = $2`, archived, id)
	if err != nil {
		return fmt.Errorf("failed to archive organization: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return notFound("organization")
	}
	return nil
}

// ==================== Shared content lifecycle ====================

// GetContentState loads the lifecycle flags for a content row.
func (db *PostgresDatabase) GetContentState(ctx context.Context, kind ContentKind, id string) (*ContentState, error) {
	if !kind.Valid() {
		return nil, apperrors.New(apperrors.TypeValidation, "unknown content kind")
	}
	query := fmt.Sprintf(`SELECT id, organization_id, approved, archived, COALESCE(created_by,'') FROM %s WHERE id = $1`, kind.Table())
	var st ContentState
	err := db.queryRow(ctx, query, func(row *sql.Row) error {
		return row.Scan(&st.ID, &st.OrganizationID, &st.Approved, &st.Archived, &st.CreatedBy)
	}, id)
	if err != nil {
		if apperrors.TypeOf(err) == apperrors.TypeNotFound {
			return nil, notFound("record")
		}
		return nil, fmt.Errorf("failed to get content state: %w", err)
	}
	return &st, nil
}

// SetApproval flips approved on all ids inside one transaction; the batch is
// applied fully or rolled back. Approving an approved row is a no-op, so the
// operation is idempotent.
func (db *PostgresDatabase) SetApproval(ctx context.Context, kind ContentKind, ids []string, approved bool, updatedBy string) error {
	if !kind.Valid() {
		return apperrors.New(apperrors.TypeValidation, "unknown content kind")
	}
	if len(ids) == 0 {
		return nil
	}
	query := fmt.Sprintf(`UPDATE %s SET approved = $1, updated_by = $2, updated_at = NOW() WHERE id = ANY($3)`, kind.Table())

	return retry.Do(ctx, db.policy, func() error {
		tx, err := db.db.BeginTx(ctx, nil)
		if err != nil {
			return mapPQError(err)
		}
		res, err := tx.ExecContext(ctx, query, approved, updatedBy, pq.Array(ids))
		if err != nil {
			_ = tx.Rollback()
			return mapPQError(err)
		}
		if rows, _ := res.RowsAffected(); rows != int64(len(ids)) {
			_ = tx.Rollback()
			return apperrors.New(apperrors.TypeNotFound,
				fmt.Sprintf("approval batch matched %d of %d records; nothing applied", rows, len(ids)))
		}
		return mapPQError(tx.Commit())
	})
}

// SetArchived archives or restores all ids inside one transaction, honoring
// the caller's write scope.
func (db *PostgresDatabase) SetArchived(ctx context.Context, kind ContentKind, ids []string, archived bool, scope WriteScope, updatedBy string) error {
	if !kind.Valid() {
		return apperrors.New(apperrors.TypeValidation, "unknown content kind")
	}
	if len(ids) == 0 {
		return nil
	}

	query := fmt.Sprintf(`UPDATE %s SET archived = $1, updated_by = $2, updated_at = NOW() WHERE id = ANY($3)`, kind.Table())
	args := []interface{}{archived, updatedBy, pq.Array(ids)}
	if scope.OrganizationID != "" {
		query += fmt.Sprintf(` AND organization_id = $%d`, len(args)+1)
		args = append(args, scope.OrganizationID)
	}
	// Archive toggles both directions, so the pending scope only re-asserts
	// the approval state.
	if scope.PendingOnly {
		query += ` AND approved = FALSE`
	}

	return retry.Do(ctx, db.policy, func() error {
		tx, err := db.db.BeginTx(ctx, nil)
		if err != nil {
			return mapPQError(err)
		}
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			_ = tx.Rollback()
			return mapPQError(err)
		}
		if rows, _ := res.RowsAffected(); rows != int64(len(ids)) {
			_ = tx.Rollback()
			return apperrors.New(apperrors.TypeConflict,
				fmt.Sprintf("archive batch matched %d of %d records; nothing applied", rows, len(ids)))
		}
		return mapPQError(tx.Commit())
	})
}

// HardDelete removes a row permanently. The predicate requires archived so
// normal lifecycle rows can never be hit.
func (db *PostgresDatabase) HardDelete(ctx context.Context, kind ContentKind, id string) error {
	if !kind.Valid() {
		return apperrors.New(apperrors.TypeValidation, "unknown content kind")
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND archived = TRUE`, kind.Table())
	res, err := db.exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return db.resolveWriteFailure(ctx, kind, id, WriteScope{})
	}
	return nil
}

// resolveWriteFailure turns a zero-row conditional write into NotFound or
// Conflict: if the row is gone it was never there (or hard-deleted), if it
// still exists its state or scope stopped matching after the caller's read.
func (db *PostgresDatabase) resolveWriteFailure(ctx context.Context, kind ContentKind, id string, scope WriteScope) error {
	st, err := db.GetContentState(ctx, kind, id)
	if err != nil {
		if apperrors.TypeOf(err) == apperrors.TypeNotFound {
			return notFound("record")
		}
		return err
	}
	db.logger.Debug("conditional write rejected",
		zap.String("kind", kind.Table()),
		zap.String("id", id),
		zap.Bool("approved", st.Approved),
		zap.Bool("archived", st.Archived),
		zap.String("scope_org", scope.OrganizationID))
	return staleWrite(kind.Table())
}

// HealthCheck pings the database.
func (db *PostgresDatabase) HealthCheck(ctx context.Context) error {
	return db.db.PingContext(ctx)
}

// Close closes the connection pool.
func (db *PostgresDatabase) Close() error {
	return db.db.Close()
}
