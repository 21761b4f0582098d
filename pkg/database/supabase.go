package database

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"youth-cms-backend/pkg/apperrors"
	"youth-cms-backend/pkg/models"
	"youth-cms-backend/pkg/retry"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SupabaseDatabase talks to PostgREST instead of the SQL wire protocol. It
// implements the same interface as the Postgres backend; conditional writes
// express their WHERE clauses as query-string filters and check the returned
// representation instead of RowsAffected.
type SupabaseDatabase struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
	policy     retry.Policy
}

// NewSupabaseDatabase creates a REST-backed database client.
func NewSupabaseDatabase(rawURL, key string, logger *zap.Logger) *SupabaseDatabase {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "https://" + rawURL
	}
	return &SupabaseDatabase{
		baseURL: strings.TrimSuffix(rawURL, "/"),
		apiKey:  key,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
		policy: retry.DefaultPolicy(),
	}
}

// makeRequest sends one request to the REST endpoint, retrying transient
// failures. The response body is the PostgREST representation (an array for
// reads and for writes with Prefer: return=representation).
func (db *SupabaseDatabase) makeRequest(ctx context.Context, method, endpoint string, body interface{}) ([]byte, error) {
	var jsonData []byte
	if body != nil {
		var err error
		jsonData, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	fullURL := db.baseURL + "/rest/v1" + endpoint

	var respBody []byte
	err := retry.Do(ctx, db.policy, func() error {
		var reqBody io.Reader
		if jsonData != nil {
			reqBody = bytes.NewReader(jsonData)
		}
		req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
		if err != nil {
			return apperrors.Wrap(apperrors.TypeInternal, "failed to create request", err)
		}
		req.Header.Set("apikey", db.apiKey)
		req.Header.Set("Authorization", "Bearer "+db.apiKey)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Prefer", "return=representation")

		resp, err := db.httpClient.Do(req)
		if err != nil {
			return apperrors.Wrap(apperrors.TypeTransient, "request failed", err)
		}
		defer resp.Body.Close()

		respBody, err = io.ReadAll(resp.Body)
		if err != nil {
			return apperrors.Wrap(apperrors.TypeTransient, "failed to read response body", err)
		}
		if resp.StatusCode >= 400 {
			return mapRESTError(resp.StatusCode, respBody)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return respBody, nil
}

// mapRESTError converts a PostgREST error response into the shared taxonomy.
// PostgREST surfaces the underlying SQLSTATE in the body's "code" field.
func mapRESTError(status int, body []byte) error {
	var payload struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(body, &payload)
	msg := payload.Message
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}

	switch payload.Code {
	case "23505":
		return apperrors.New(apperrors.TypeDuplicate, "duplicate record: "+msg)
	case "23503":
		return apperrors.New(apperrors.TypeForeignKey, "referenced record does not exist: "+msg)
	case "23502", "23514":
		return apperrors.New(apperrors.TypeValidation, "invalid data: "+msg)
	}

	switch {
	case status == http.StatusNotFound:
		return apperrors.New(apperrors.TypeNotFound, "record not found")
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return apperrors.New(apperrors.TypePermissionDenied, "rest api rejected credentials")
	case status == http.StatusTooManyRequests || status >= 500:
		return apperrors.New(apperrors.TypeTransient, fmt.Sprintf("rest api unavailable (status %d): %s", status, msg))
	default:
		return apperrors.New(apperrors.TypeInternal, fmt.Sprintf("rest api error (status %d): %s", status, msg))
	}
}

// eq builds a single PostgREST equality filter with the value escaped.
func eq(column, value string) string {
	return column + "=eq." + url.QueryEscape(value)
}

// in builds a PostgREST membership filter.
func in(column string, values []string) string {
	escaped := make([]string, len(values))
	for i, v := range values {
		escaped[i] = url.QueryEscape(v)
	}
	return column + "=in.(" + strings.Join(escaped, ",") + ")"
}

func pageParams(q ListQuery) string {
	return fmt.Sprintf("offset=%d&limit=%d", q.Offset, q.Limit)
}

// ==================== Users ====================

// supabaseUser carries the password hash on the wire; AppUser hides it from
// API responses.
type supabaseUser struct {
	models.AppUser
	PasswordHash string `json:"password_hash,omitempty"`
}

func (u *supabaseUser) toModel() *models.AppUser {
	user := u.AppUser
	user.Password = u.PasswordHash
	return &user
}

// CreateUser inserts an account row.
func (db *SupabaseDatabase) CreateUser(ctx context.Context, user *models.AppUser) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	payload := supabaseUser{AppUser: *user, PasswordHash: user.Password}
	if _, err := db.makeRequest(ctx, http.MethodPost, "/app_users", []supabaseUser{payload}); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUserByEmail looks an account up for login, archived accounts included.
func (db *SupabaseDatabase) GetUserByEmail(ctx context.Context, email string) (*models.AppUser, error) {
	endpoint := "/app_users?" + eq("email", strings.ToLower(email)) + "&limit=1"
	body, err := db.makeRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	var users []supabaseUser
	if err := json.Unmarshal(body, &users); err != nil {
		return nil, apperrors.Wrap(apperrors.TypeInternal, "failed to decode user", err)
	}
	if len(users) == 0 {
		return nil, notFound("user")
	}
	return users[0].toModel(), nil
}

// GetUserByID fetches an account by id.
func (db *SupabaseDatabase) GetUserByID(ctx context.Context, id string) (*models.AppUser, error) {
	endpoint := "/app_users?" + eq("id", id) + "&limit=1"
	body, err := db.makeRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	var users []supabaseUser
	if err := json.Unmarshal(body, &users); err != nil {
		return nil, apperrors.Wrap(apperrors.TypeInternal, "failed to decode user", err)
	}
	if len(users) == 0 {
		return nil, notFound("user")
	}
	return users[0].toModel(), nil
}

// UpdateUser patches the mutable account fields.
func (db *SupabaseDatabase) UpdateUser(ctx context.Context, user *models.AppUser) error {
	patch := map[string]interface{}{
		"email":      strings.ToLower(user.Email),
		"full_name":  user.FullName,
		"role":       user.Role,
		"updated_at": time.Now().UTC(),
	}
	if user.Password != "" {
		patch["password_hash"] = user.Password
	}
	body, err := db.makeRequest(ctx, http.MethodPatch, "/app_users?"+eq("id", user.ID), patch)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if emptyRepresentation(body) {
		return notFound("user")
	}
	return nil
}

// SetUserArchived toggles the account's soft-delete flag.
func (db *SupabaseDatabase) SetUserArchived(ctx context.Context, id string, archived bool) error {
	patch := map[string]interface{}{
		"archived":   archived,
		"updated_at": time.Now().UTC(),
	}
	body, err := db.makeRequest(ctx, http.MethodPatch, "/app_users?"+eq("id", id), patch)
	if err != nil {
		return fmt.Errorf("failed to set user archived: %w", err)
	}
	if emptyRepresentation(body) {
		return notFound("user")
	}
	return nil
}

// DeleteUser removes an account row permanently. Only archived rows qualify.
func (db *SupabaseDatabase) DeleteUser(ctx context.Context, id string) error {
	endpoint := "/app_users?" + eq("id", id) + "&archived=eq.true"
	body, err := db.makeRequest(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if emptyRepresentation(body) {
		return apperrors.New(apperrors.TypeConflict, "user must be archived before permanent deletion")
	}
	return nil
}

// ListUsers returns all unarchived accounts.
func (db *SupabaseDatabase) ListUsers(ctx context.Context) ([]models.AppUser, error) {
	endpoint := "/app_users?archived=eq.false&order=created_at.desc"
	return db.listUsers(ctx, endpoint)
}

// ListUsersByOrganization returns an organization's unarchived accounts.
func (db *SupabaseDatabase) ListUsersByOrganization(ctx context.Context, orgID string) ([]models.AppUser, error) {
	endpoint := "/app_users?" + eq("organization_id", orgID) + "&archived=eq.false&order=created_at.desc"
	return db.listUsers(ctx, endpoint)
}

func (db *SupabaseDatabase) listUsers(ctx context.Context, endpoint string) ([]models.AppUser, error) {
	body, err := db.makeRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	var wire []supabaseUser
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, apperrors.Wrap(apperrors.TypeInternal, "failed to decode users", err)
	}
	users := make([]models.AppUser, 0, len(wire))
	for i := range wire {
		users = append(users, *wire[i].toModel())
	}
	return users, nil
}

// ==================== Organizations ====================

// CreateOrganization inserts an organization row.
func (db *SupabaseDatabase) CreateOrganization(ctx context.Context, org *models.Organization) error {
	if org.ID == "" {
		org.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	org.CreatedAt = now
	org.UpdatedAt = now
	org.Active = true

	if _, err := db.makeRequest(ctx, http.MethodPost, "/organizations", []models.Organization{*org}); err != nil {
		return fmt.Errorf("failed to create organization: %w", err)
	}
	return nil
}

// GetOrganization fetches an organization by id.
func (db *SupabaseDatabase) GetOrganization(ctx context.Context, id string) (*models.Organization, error) {
	endpoint := "/organizations?" + eq("id", id) + "&limit=1"
	body, err := db.makeRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	var orgs []models.Organization
	if err := json.Unmarshal(body, &orgs); err != nil {
		return nil, apperrors.Wrap(apperrors.TypeInternal, "failed to decode organization", err)
	}
	if len(orgs) == 0 {
		return nil, notFound("organization")
	}
	return &orgs[0], nil
}

// UpdateOrganization patches the mutable organization fields.
func (db *SupabaseDatabase) UpdateOrganization(ctx context.Context, org *models.Organization) error {
	patch := map[string]interface{}{
		"name":            org.Name,
		"primary_color":   org.PrimaryColor,
		"secondary_color": org.SecondaryColor,
		"logo_url":        org.LogoURL,
		"active":          org.Active,
		"updated_by":      org.UpdatedBy,
		"updated_at":      time.Now().UTC(),
	}
	body, err := db.makeRequest(ctx, http.MethodPatch, "/organizations?"+eq("id", org.ID), patch)
	if err != nil {
		return fmt.Errorf("failed to update organization: %w", err)
	}
	if emptyRepresentation(body) {
		return notFound("organization")
	}
	return nil
}

// ListOrganizations returns every unarchived organization.
func (db *SupabaseDatabase) ListOrganizations(ctx context.Context) ([]models.Organization, error) {
	return db.listOrganizations(ctx, "/organizations?archived=eq.false&order=name.asc")
}

// ListActiveOrganizations returns the organizations shown publicly.
func (db *SupabaseDatabase) ListActiveOrganizations(ctx context.Context) ([]models.Organization, error) {
	return db.listOrganizations(ctx, "/organizations?archived=eq.false&active=eq.true&order=name.asc")
}

func (db *SupabaseDatabase) listOrganizations(ctx context.Context, endpoint string) ([]models.Organization, error) {
	body, err := db.makeRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	var orgs []models.Organization
	if err := json.Unmarshal(body, &orgs); err != nil {
		return nil, apperrors.Wrap(apperrors.TypeInternal, "failed to decode organizations", err)
	}
	return orgs, nil
}

// SetOrganizationArchived toggles the organization's soft-delete flag.
func (db *SupabaseDatabase) SetOrganizationArchived(ctx context.Context, id string, archived bool) error {
	patch := map[string]interface{}{
		"archived":   archived,
		"updated_at": time.Now().UTC(),
	}
	body, err := db.makeRequest(ctx, http.MethodPatch, "/organizations?"+eq("id", id), patch)
	if err != nil {
		return fmt.Errorf("failed to set organization archived: %w", err)
	}
	if emptyRepresentation(body) {
		return notFound("organization")
	}
	return nil
}

// ==================== Shared lifecycle ====================

// GetContentState fetches the lifecycle columns of a single row.
func (db *SupabaseDatabase) GetContentState(ctx context.Context, kind ContentKind, id string) (*ContentState, error) {
	if !kind.Valid() {
		return nil, apperrors.New(apperrors.TypeValidation, "unknown content kind: "+string(kind))
	}
	endpoint := "/" + kind.Table() + "?" + eq("id", id) +
		"&select=id,organization_id,approved,archived,created_by&limit=1"
	body, err := db.makeRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get content state: %w", err)
	}
	var states []ContentState
	if err := json.Unmarshal(body, &states); err != nil {
		return nil, apperrors.Wrap(apperrors.TypeInternal, "failed to decode content state", err)
	}
	if len(states) == 0 {
		return nil, notFound("record")
	}
	return &states[0], nil
}

// SetApproval flips the approved flag on a batch of rows. PostgREST has no
// transaction boundary, so a partial match is reported as an error after the
// fact rather than rolled back.
func (db *SupabaseDatabase) SetApproval(ctx context.Context, kind ContentKind, ids []string, approved bool, updatedBy string) error {
	if !kind.Valid() {
		return apperrors.New(apperrors.TypeValidation, "unknown content kind: "+string(kind))
	}
	if len(ids) == 0 {
		return nil
	}
	patch := map[string]interface{}{
		"approved":   approved,
		"updated_by": updatedBy,
		"updated_at": time.Now().UTC(),
	}
	endpoint := "/" + kind.Table() + "?" + in("id", ids)
	body, err := db.makeRequest(ctx, http.MethodPatch, endpoint, patch)
	if err != nil {
		return fmt.Errorf("failed to set approval: %w", err)
	}
	if n := representationCount(body); n != len(ids) {
		db.logger.Warn("approval batch touched fewer rows than requested",
			zap.String("table", kind.Table()),
			zap.Int("requested", len(ids)),
			zap.Int("updated", n))
		return apperrors.New(apperrors.TypeNotFound,
			fmt.Sprintf("approval batch matched %d of %d records", n, len(ids)))
	}
	return nil
}

// SetArchived flips the archived flag on a batch of rows within the scope.
func (db *SupabaseDatabase) SetArchived(ctx context.Context, kind ContentKind, ids []string, archived bool, scope WriteScope, updatedBy string) error {
	if !kind.Valid() {
		return apperrors.New(apperrors.TypeValidation, "unknown content kind: "+string(kind))
	}
	if len(ids) == 0 {
		return nil
	}
	patch := map[string]interface{}{
		"archived":   archived,
		"updated_by": updatedBy,
		"updated_at": time.Now().UTC(),
	}
	endpoint := "/" + kind.Table() + "?" + in("id", ids)
	if scope.OrganizationID != "" {
		endpoint += "&" + eq("organization_id", scope.OrganizationID)
	}
	if scope.PendingOnly {
		endpoint += "&approved=eq.false"
	}
	body, err := db.makeRequest(ctx, http.MethodPatch, endpoint, patch)
	if err != nil {
		return fmt.Errorf("failed to set archived: %w", err)
	}
	if n := representationCount(body); n != len(ids) {
		return apperrors.New(apperrors.TypeConflict,
			fmt.Sprintf("archive batch matched %d of %d records", n, len(ids)))
	}
	return nil
}

// HardDelete permanently removes a single archived row.
func (db *SupabaseDatabase) HardDelete(ctx context.Context, kind ContentKind, id string) error {
	if !kind.Valid() {
		return apperrors.New(apperrors.TypeValidation, "unknown content kind: "+string(kind))
	}
	endpoint := "/" + kind.Table() + "?" + eq("id", id) + "&archived=eq.true"
	body, err := db.makeRequest(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to hard delete: %w", err)
	}
	if emptyRepresentation(body) {
		if _, err := db.GetContentState(ctx, kind, id); err != nil {
			return err
		}
		return apperrors.New(apperrors.TypeConflict, "record must be archived before permanent deletion")
	}
	return nil
}

// HealthCheck probes the REST endpoint.
func (db *SupabaseDatabase) HealthCheck(ctx context.Context) error {
	if _, err := db.makeRequest(ctx, http.MethodGet, "/organizations?select=id&limit=1", nil); err != nil {
		return fmt.Errorf("rest api health check failed: %w", err)
	}
	return nil
}

// Close is a no-op; the HTTP client holds no pooled state worth draining.
func (db *SupabaseDatabase) Close() error {
	return nil
}

// emptyRepresentation reports whether a Prefer: return=representation response
// matched zero rows.
func emptyRepresentation(body []byte) bool {
	return representationCount(body) == 0
}

// representationCount counts the rows in a representation response.
func representationCount(body []byte) int {
	var rows []json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		return 0
	}
	return len(rows)
}
