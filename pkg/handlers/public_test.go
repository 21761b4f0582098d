package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"youth-cms-backend/pkg/database"
	"youth-cms-backend/pkg/models"
	"youth-cms-backend/pkg/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPublicHandler(t *testing.T, db *fakeDB) *PublicHandler {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir(), "http://localhost:8080/files")
	require.NoError(t, err)
	return NewPublicHandler(testConfig(), db, store, testLogger())
}

func TestPublicListingsShowApprovedOnly(t *testing.T) {
	db := newFakeDB()
	org := seedOrg(t, db, "Scout Group")
	content := newContentHandler(db)
	owner := orgUser(org.ID)
	h := newPublicHandler(t, db)

	pending := createdAnnouncement(t, content, owner, CreateAnnouncementRequest{Title: "Pending"})
	live := createdAnnouncement(t, content, owner, CreateAnnouncementRequest{Title: "Live"})
	require.NoError(t, db.SetApproval(nil, database.KindAnnouncement, []string{live.ID}, true, "reviewer"))

	rec := httptest.NewRecorder()
	h.ListAnnouncements(rec, httptest.NewRequest(http.MethodGet, "/api/public/announcements", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var out []models.Announcement
	decodeResponse(t, rec, &out)
	require.Len(t, out, 1)
	assert.Equal(t, "Live", out[0].Title)
	assert.NotEqual(t, pending.ID, out[0].ID)
}

func TestPublicListingsExcludeArchived(t *testing.T) {
	db := newFakeDB()
	org := seedOrg(t, db, "Scout Group")
	content := newContentHandler(db)
	h := newPublicHandler(t, db)

	a := createdAnnouncement(t, content, orgUser(org.ID), CreateAnnouncementRequest{Title: "Was live"})
	require.NoError(t, db.SetApproval(nil, database.KindAnnouncement, []string{a.ID}, true, "reviewer"))
	require.NoError(t, db.SetArchived(nil, database.KindAnnouncement, []string{a.ID}, true, database.AdminScope(), "admin"))

	rec := httptest.NewRecorder()
	h.ListAnnouncements(rec, httptest.NewRequest(http.MethodGet, "/api/public/announcements", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var out []models.Announcement
	decodeResponse(t, rec, &out)
	assert.Empty(t, out)
}

func TestPublicOrganizations(t *testing.T) {
	db := newFakeDB()
	active := seedOrg(t, db, "Active Group")
	hidden := seedOrg(t, db, "Hidden Group")

	stored, err := db.GetOrganization(nil, hidden.ID)
	require.NoError(t, err)
	stored.Active = false
	require.NoError(t, db.UpdateOrganization(nil, stored))

	h := newPublicHandler(t, db)
	rec := httptest.NewRecorder()
	h.ListOrganizations(rec, httptest.NewRequest(http.MethodGet, "/api/public/organizations", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var out []models.Organization
	decodeResponse(t, rec, &out)
	require.Len(t, out, 1)
	assert.Equal(t, active.ID, out[0].ID)
}

func TestPublicFilesCarryURLs(t *testing.T) {
	db := newFakeDB()
	org := seedOrg(t, db, "Scout Group")
	h := newPublicHandler(t, db)

	file := &models.OrgFile{
		ContentMeta: models.ContentMeta{OrganizationID: org.ID, Approved: true},
		Name:        "Flyer",
		Bucket:      storage.BucketUploads,
		ObjectKey:   org.ID + "/flyer.pdf",
	}
	require.NoError(t, db.CreateOrgFile(nil, file))

	rec := httptest.NewRecorder()
	h.ListFiles(rec, httptest.NewRequest(http.MethodGet, "/api/public/files", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var out []publicFile
	decodeResponse(t, rec, &out)
	require.Len(t, out, 1)
	assert.Equal(t, "Flyer", out[0].Name)
	assert.Contains(t, out[0].URL, file.ObjectKey)
}
