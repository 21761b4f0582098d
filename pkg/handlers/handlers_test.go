package handlers

import (
	"context"
	"fmt"
	"sort"

	"youth-cms-backend/pkg/apperrors"
	"youth-cms-backend/pkg/config"
	"youth-cms-backend/pkg/database"
	"youth-cms-backend/pkg/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// fakeDB is an in-memory DatabaseInterface with the same conditional-write
// semantics as the real backends: scoped updates match zero rows when the
// organization or pending state stopped holding, and batches are
// all-or-nothing.
type fakeDB struct {
	users map[string]*models.AppUser
	orgs  map[string]*models.Organization
	anns  map[string]*models.Announcement
	progs map[string]*models.Program
	items map[string]*models.CarouselItem
	files map[string]*models.OrgFile
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		users: make(map[string]*models.AppUser),
		orgs:  make(map[string]*models.Organization),
		anns:  make(map[string]*models.Announcement),
		progs: make(map[string]*models.Program),
		items: make(map[string]*models.CarouselItem),
		files: make(map[string]*models.OrgFile),
	}
}

func testConfig() *config.Config {
	return &config.Config{
		Environment:    "development",
		Port:           "8080",
		JWTSecret:      "test-secret",
		AllowedOrigins: []string{"*"},
	}
}

func testLogger() *zap.Logger { return zap.NewNop() }

func notFoundErr(what string) error {
	return apperrors.New(apperrors.TypeNotFound, fmt.Sprintf("%s not found", what))
}

// ==================== users ====================

func (f *fakeDB) CreateUser(_ context.Context, user *models.AppUser) error {
	for _, u := range f.users {
		if u.Email == user.Email {
			return apperrors.New(apperrors.TypeDuplicate, "duplicate email")
		}
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	cp := *user
	f.users[user.ID] = &cp
	return nil
}

func (f *fakeDB) GetUserByEmail(_ context.Context, email string) (*models.AppUser, error) {
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, notFoundErr("user")
}

func (f *fakeDB) GetUserByID(_ context.Context, id string) (*models.AppUser, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, notFoundErr("user")
	}
	cp := *u
	return &cp, nil
}

func (f *fakeDB) UpdateUser(_ context.Context, user *models.AppUser) error {
	if _, ok := f.users[user.ID]; !ok {
		return notFoundErr("user")
	}
	cp := *user
	f.users[user.ID] = &cp
	return nil
}

func (f *fakeDB) SetUserArchived(_ context.Context, id string, archived bool) error {
	u, ok := f.users[id]
	if !ok {
		return notFoundErr("user")
	}
	u.Archived = archived
	return nil
}

func (f *fakeDB) DeleteUser(_ context.Context, id string) error {
	u, ok := f.users[id]
	if !ok {
		return notFoundErr("user")
	}
	if !u.Archived {
		return apperrors.New(apperrors.TypeConflict, "user must be archived before permanent deletion")
	}
	delete(f.users, id)
	return nil
}

func (f *fakeDB) ListUsers(_ context.Context) ([]models.AppUser, error) {
	var out []models.AppUser
	for _, u := range f.users {
		if !u.Archived {
			out = append(out, *u)
		}
	}
	sortUsers(out)
	return out, nil
}

func (f *fakeDB) ListUsersByOrganization(_ context.Context, orgID string) ([]models.AppUser, error) {
	var out []models.AppUser
	for _, u := range f.users {
		if !u.Archived && u.OrgID() == orgID {
			out = append(out, *u)
		}
	}
	sortUsers(out)
	return out, nil
}

func sortUsers(users []models.AppUser) {
	sort.Slice(users, func(i, j int) bool { return users[i].Email < users[j].Email })
}

// ==================== organizations ====================

func (f *fakeDB) CreateOrganization(_ context.Context, org *models.Organization) error {
	if org.ID == "" {
		org.ID = uuid.New().String()
	}
	org.Active = true
	cp := *org
	f.orgs[org.ID] = &cp
	return nil
}

func (f *fakeDB) GetOrganization(_ context.Context, id string) (*models.Organization, error) {
	o, ok := f.orgs[id]
	if !ok {
		return nil, notFoundErr("organization")
	}
	cp := *o
	return &cp, nil
}

func (f *fakeDB) UpdateOrganization(_ context.Context, org *models.Organization) error {
	if _, ok := f.orgs[org.ID]; !ok {
		return notFoundErr("organization")
	}
	cp := *org
	f.orgs[org.ID] = &cp
	return nil
}

func (f *fakeDB) ListOrganizations(_ context.Context) ([]models.Organization, error) {
	var out []models.Organization
	for _, o := range f.orgs {
		if !o.Archived {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeDB) ListActiveOrganizations(_ context.Context) ([]models.Organization, error) {
	var out []models.Organization
	for _, o := range f.orgs {
		if !o.Archived && o.Active {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeDB) SetOrganizationArchived(_ context.Context, id string, archived bool) error {
	o, ok := f.orgs[id]
	if !ok {
		return notFoundErr("organization")
	}
	o.Archived = archived
	return nil
}

// ==================== content helpers ====================

func (f *fakeDB) meta(kind database.ContentKind, id string) (*models.ContentMeta, bool) {
	switch kind {
	case database.KindAnnouncement:
		if a, ok := f.anns[id]; ok {
			return &a.ContentMeta, true
		}
	case database.KindProgram:
		if p, ok := f.progs[id]; ok {
			return &p.ContentMeta, true
		}
	case database.KindCarousel:
		if c, ok := f.items[id]; ok {
			return &c.ContentMeta, true
		}
	case database.KindFile:
		if fl, ok := f.files[id]; ok {
			return &fl.ContentMeta, true
		}
	}
	return nil, false
}

func scopeMatches(meta *models.ContentMeta, scope database.WriteScope) bool {
	if scope.OrganizationID != "" && meta.OrganizationID != scope.OrganizationID {
		return false
	}
	if scope.PendingOnly && (meta.Approved || meta.Archived) {
		return false
	}
	return true
}

func (f *fakeDB) conditionalWriteError(kind database.ContentKind, id string, scope database.WriteScope) error {
	meta, ok := f.meta(kind, id)
	if !ok {
		return notFoundErr("record")
	}
	if scope.OrganizationID != "" && meta.OrganizationID != scope.OrganizationID {
		return notFoundErr("record")
	}
	return apperrors.New(apperrors.TypeConflict, "cannot edit record: approved or not permitted")
}

// ==================== announcements ====================

func (f *fakeDB) CreateAnnouncement(_ context.Context, a *models.Announcement) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	a.Archived = false
	cp := *a
	f.anns[a.ID] = &cp
	return nil
}

func (f *fakeDB) GetAnnouncement(_ context.Context, id string) (*models.Announcement, error) {
	a, ok := f.anns[id]
	if !ok {
		return nil, notFoundErr("announcement")
	}
	cp := *a
	return &cp, nil
}

func (f *fakeDB) UpdateAnnouncement(_ context.Context, a *models.Announcement, scope database.WriteScope) error {
	existing, ok := f.anns[a.ID]
	if !ok || !scopeMatches(&existing.ContentMeta, scope) {
		return f.conditionalWriteError(database.KindAnnouncement, a.ID, scope)
	}
	existing.Title = a.Title
	existing.Body = a.Body
	existing.PublishAt = a.PublishAt
	existing.UpdatedBy = a.UpdatedBy
	return nil
}

func (f *fakeDB) ListAnnouncementsByOrganization(_ context.Context, orgID string, _ database.ListQuery) ([]models.Announcement, error) {
	var out []models.Announcement
	for _, a := range f.anns {
		if a.OrganizationID == orgID && !a.Archived {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeDB) ListApprovedAnnouncements(_ context.Context, _ database.ListQuery) ([]models.Announcement, error) {
	var out []models.Announcement
	for _, a := range f.anns {
		if a.Approved && !a.Archived {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ==================== programs ====================

func (f *fakeDB) CreateProgram(_ context.Context, p *models.Program) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	p.Archived = false
	cp := *p
	f.progs[p.ID] = &cp
	return nil
}

func (f *fakeDB) GetProgram(_ context.Context, id string) (*models.Program, error) {
	p, ok := f.progs[id]
	if !ok {
		return nil, notFoundErr("program")
	}
	cp := *p
	return &cp, nil
}

func (f *fakeDB) UpdateProgram(_ context.Context, p *models.Program, scope database.WriteScope) error {
	existing, ok := f.progs[p.ID]
	if !ok || !scopeMatches(&existing.ContentMeta, scope) {
		return f.conditionalWriteError(database.KindProgram, p.ID, scope)
	}
	existing.Title = p.Title
	existing.Description = p.Description
	existing.AgeMin = p.AgeMin
	existing.AgeMax = p.AgeMax
	existing.Schedule = p.Schedule
	existing.Location = p.Location
	existing.UpdatedBy = p.UpdatedBy
	return nil
}

func (f *fakeDB) ListProgramsByOrganization(_ context.Context, orgID string, _ database.ListQuery) ([]models.Program, error) {
	var out []models.Program
	for _, p := range f.progs {
		if p.OrganizationID == orgID && !p.Archived {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeDB) ListApprovedPrograms(_ context.Context, _ database.ListQuery) ([]models.Program, error) {
	var out []models.Program
	for _, p := range f.progs {
		if p.Approved && !p.Archived {
			out = append(out, *p)
		}
	}
	return out, nil
}

// ==================== carousel ====================

func (f *fakeDB) CreateCarouselItem(_ context.Context, c *models.CarouselItem) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	c.Archived = false
	cp := *c
	f.items[c.ID] = &cp
	return nil
}

func (f *fakeDB) GetCarouselItem(_ context.Context, id string) (*models.CarouselItem, error) {
	c, ok := f.items[id]
	if !ok {
		return nil, notFoundErr("carousel item")
	}
	cp := *c
	return &cp, nil
}

func (f *fakeDB) UpdateCarouselItem(_ context.Context, c *models.CarouselItem, scope database.WriteScope) error {
	existing, ok := f.items[c.ID]
	if !ok || !scopeMatches(&existing.ContentMeta, scope) {
		return f.conditionalWriteError(database.KindCarousel, c.ID, scope)
	}
	existing.Title = c.Title
	existing.ImageURL = c.ImageURL
	existing.LinkURL = c.LinkURL
	existing.Position = c.Position
	existing.UpdatedBy = c.UpdatedBy
	return nil
}

func (f *fakeDB) ListCarouselItemsByOrganization(_ context.Context, orgID string, _ database.ListQuery) ([]models.CarouselItem, error) {
	var out []models.CarouselItem
	for _, c := range f.items {
		if c.OrganizationID == orgID && !c.Archived {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (f *fakeDB) ListApprovedCarouselItems(_ context.Context, _ database.ListQuery) ([]models.CarouselItem, error) {
	var out []models.CarouselItem
	for _, c := range f.items {
		if c.Approved && !c.Archived {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

// ==================== files ====================

func (f *fakeDB) CreateOrgFile(_ context.Context, fl *models.OrgFile) error {
	if fl.ID == "" {
		fl.ID = uuid.New().String()
	}
	fl.Archived = false
	cp := *fl
	f.files[fl.ID] = &cp
	return nil
}

func (f *fakeDB) GetOrgFile(_ context.Context, id string) (*models.OrgFile, error) {
	fl, ok := f.files[id]
	if !ok {
		return nil, notFoundErr("file")
	}
	cp := *fl
	return &cp, nil
}

func (f *fakeDB) UpdateOrgFile(_ context.Context, fl *models.OrgFile, scope database.WriteScope) error {
	existing, ok := f.files[fl.ID]
	if !ok || !scopeMatches(&existing.ContentMeta, scope) {
		return f.conditionalWriteError(database.KindFile, fl.ID, scope)
	}
	existing.Name = fl.Name
	existing.UpdatedBy = fl.UpdatedBy
	return nil
}

func (f *fakeDB) ListOrgFilesByOrganization(_ context.Context, orgID string, _ database.ListQuery) ([]models.OrgFile, error) {
	var out []models.OrgFile
	for _, fl := range f.files {
		if fl.OrganizationID == orgID && !fl.Archived {
			out = append(out, *fl)
		}
	}
	return out, nil
}

func (f *fakeDB) ListApprovedOrgFiles(_ context.Context, _ database.ListQuery) ([]models.OrgFile, error) {
	var out []models.OrgFile
	for _, fl := range f.files {
		if fl.Approved && !fl.Archived {
			out = append(out, *fl)
		}
	}
	return out, nil
}

// ==================== shared lifecycle ====================

func (f *fakeDB) GetContentState(_ context.Context, kind database.ContentKind, id string) (*database.ContentState, error) {
	meta, ok := f.meta(kind, id)
	if !ok {
		return nil, notFoundErr("record")
	}
	return &database.ContentState{
		ID:             meta.ID,
		OrganizationID: meta.OrganizationID,
		Approved:       meta.Approved,
		Archived:       meta.Archived,
		CreatedBy:      meta.CreatedBy,
	}, nil
}

func (f *fakeDB) SetApproval(_ context.Context, kind database.ContentKind, ids []string, approved bool, updatedBy string) error {
	metas := make([]*models.ContentMeta, 0, len(ids))
	for _, id := range ids {
		meta, ok := f.meta(kind, id)
		if !ok {
			return apperrors.New(apperrors.TypeNotFound, "approval batch matched fewer records than requested")
		}
		metas = append(metas, meta)
	}
	for _, meta := range metas {
		meta.Approved = approved
		meta.UpdatedBy = updatedBy
	}
	return nil
}

func (f *fakeDB) SetArchived(_ context.Context, kind database.ContentKind, ids []string, archived bool, scope database.WriteScope, updatedBy string) error {
	metas := make([]*models.ContentMeta, 0, len(ids))
	for _, id := range ids {
		meta, ok := f.meta(kind, id)
		if !ok {
			return apperrors.New(apperrors.TypeConflict, "archive batch matched fewer records than requested")
		}
		if scope.OrganizationID != "" && meta.OrganizationID != scope.OrganizationID {
			return apperrors.New(apperrors.TypeConflict, "archive batch matched fewer records than requested")
		}
		if scope.PendingOnly && meta.Approved {
			return apperrors.New(apperrors.TypeConflict, "archive batch matched fewer records than requested")
		}
		metas = append(metas, meta)
	}
	for _, meta := range metas {
		meta.Archived = archived
		meta.UpdatedBy = updatedBy
	}
	return nil
}

func (f *fakeDB) HardDelete(_ context.Context, kind database.ContentKind, id string) error {
	meta, ok := f.meta(kind, id)
	if !ok {
		return notFoundErr("record")
	}
	if !meta.Archived {
		return apperrors.New(apperrors.TypeConflict, "record must be archived before permanent deletion")
	}
	switch kind {
	case database.KindAnnouncement:
		delete(f.anns, id)
	case database.KindProgram:
		delete(f.progs, id)
	case database.KindCarousel:
		delete(f.items, id)
	case database.KindFile:
		delete(f.files, id)
	}
	return nil
}

func (f *fakeDB) HealthCheck(_ context.Context) error { return nil }
func (f *fakeDB) Close() error                        { return nil }
