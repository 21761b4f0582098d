package handlers

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"youth-cms-backend/pkg/middleware"
	"youth-cms-backend/pkg/models"
	"youth-cms-backend/pkg/realtime"
	"youth-cms-backend/pkg/storage"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFileHandler(t *testing.T, db *fakeDB) *FileHandler {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir(), "http://localhost:8080/files")
	require.NoError(t, err)
	return NewFileHandler(testConfig(), db, realtime.NewHub(8), store, testLogger())
}

func multipartUpload(t *testing.T, user *models.AppUser, fields map[string]string, filename string, payload []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(payload)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/files", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if user != nil {
		req = req.WithContext(context.WithValue(req.Context(), middleware.UserContextKey, user))
	}
	return req
}

func TestFileUpload(t *testing.T) {
	db := newFakeDB()
	org := seedOrg(t, db, "Scout Group")
	h := newFileHandler(t, db)
	owner := orgUser(org.ID)

	t.Run("upload stores bytes and metadata", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.Upload(rec, multipartUpload(t, owner, map[string]string{"name": "Flyer"}, "flyer.pdf", []byte("%PDF-1.4 fake")))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var meta models.OrgFile
		decodeResponse(t, rec, &meta)
		assert.Equal(t, "Flyer", meta.Name)
		assert.Equal(t, storage.BucketUploads, meta.Bucket)
		assert.Equal(t, org.ID, meta.OrganizationID)
		assert.False(t, meta.Approved)
		assert.Contains(t, meta.ObjectKey, org.ID+"/")
		assert.Contains(t, meta.ObjectKey, ".pdf")

		// The stored bytes stream back through Download.
		dl := httptest.NewRecorder()
		h.Download(dl, authedRequest(http.MethodGet, "/api/files/"+meta.ID+"/download", nil, owner,
			map[string]string{"id": meta.ID}))
		require.Equal(t, http.StatusOK, dl.Code)
		assert.Equal(t, "%PDF-1.4 fake", dl.Body.String())
		assert.Contains(t, dl.Header().Get("Content-Disposition"), `filename="Flyer"`)
	})

	t.Run("name falls back to the uploaded filename", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.Upload(rec, multipartUpload(t, owner, nil, "schedule.ics", []byte("BEGIN:VCALENDAR")))
		require.Equal(t, http.StatusCreated, rec.Code)

		var meta models.OrgFile
		decodeResponse(t, rec, &meta)
		assert.Equal(t, "schedule.ics", meta.Name)
	})

	t.Run("missing file part is rejected", func(t *testing.T) {
		var buf bytes.Buffer
		writer := multipart.NewWriter(&buf)
		require.NoError(t, writer.WriteField("name", "nothing"))
		require.NoError(t, writer.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/files", &buf)
		req.Header.Set("Content-Type", writer.FormDataContentType())
		req = req.WithContext(context.WithValue(req.Context(), middleware.UserContextKey, owner))

		rec := httptest.NewRecorder()
		h.Upload(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("organization cannot upload into another organization", func(t *testing.T) {
		other := seedOrg(t, db, "Other Group")
		rec := httptest.NewRecorder()
		h.Upload(rec, multipartUpload(t, owner, map[string]string{"organization_id": other.ID}, "a.txt", []byte("x")))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestFileRename(t *testing.T) {
	db := newFakeDB()
	org := seedOrg(t, db, "Scout Group")
	h := newFileHandler(t, db)
	owner := orgUser(org.ID)

	up := httptest.NewRecorder()
	h.Upload(up, multipartUpload(t, owner, nil, "draft.txt", []byte("hello")))
	require.Equal(t, http.StatusCreated, up.Code)
	var meta models.OrgFile
	decodeResponse(t, up, &meta)

	rename := func(user *models.AppUser, id, name string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.Rename(rec, authedRequest(http.MethodPatch, "/api/files/"+id, map[string]string{"name": name}, user,
			map[string]string{"id": id}))
		return rec
	}

	t.Run("owner renames a pending file", func(t *testing.T) {
		rec := rename(owner, meta.ID, "Final")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		stored, err := db.GetOrgFile(nil, meta.ID)
		require.NoError(t, err)
		assert.Equal(t, "Final", stored.Name)
	})

	t.Run("empty name is rejected", func(t *testing.T) {
		rec := rename(owner, meta.ID, "   ")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("approved file cannot be renamed by the owner", func(t *testing.T) {
		require.NoError(t, db.SetApproval(nil, "org_files", []string{meta.ID}, true, "reviewer"))
		rec := rename(owner, meta.ID, "Tampered")
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func logoUpload(t *testing.T, user *models.AppUser, orgID, filename, contentType string, payload []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(payload)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPut, "/api/organizations/"+orgID+"/logo", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	ctx := context.WithValue(req.Context(), middleware.UserContextKey, user)
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("id", orgID)
	ctx = context.WithValue(ctx, chi.RouteCtxKey, routeCtx)
	return req.WithContext(ctx)
}

func TestUploadLogo(t *testing.T) {
	db := newFakeDB()
	org := seedOrg(t, db, "Scout Group")
	other := seedOrg(t, db, "Other Group")
	h := newFileHandler(t, db)
	owner := orgUser(org.ID)

	t.Run("owner sets the organization logo", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.UploadLogo(rec, logoUpload(t, owner, org.ID, "logo.png", "image/png", []byte{0x89, 'P', 'N', 'G'}))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var updated models.Organization
		decodeResponse(t, rec, &updated)
		assert.Contains(t, updated.LogoURL, storage.BucketLogos)
		assert.Contains(t, updated.LogoURL, org.ID+"/logo.png")

		stored, err := db.GetOrganization(nil, org.ID)
		require.NoError(t, err)
		assert.Equal(t, updated.LogoURL, stored.LogoURL)
	})

	t.Run("non-image payload is rejected", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.UploadLogo(rec, logoUpload(t, owner, org.ID, "logo.pdf", "application/pdf", []byte("%PDF")))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("owner cannot set another organization's logo", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.UploadLogo(rec, logoUpload(t, owner, other.ID, "logo.png", "image/png", []byte{0x89}))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("admin sets any organization's logo", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.UploadLogo(rec, logoUpload(t, adminUser(), other.ID, "logo.svg", "image/svg+xml", []byte("<svg/>")))
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	})

	t.Run("unknown organization is not found", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.UploadLogo(rec, logoUpload(t, adminUser(), "00000000-0000-0000-0000-000000000000", "logo.png", "image/png", []byte{0x89}))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestGetFileVisibility(t *testing.T) {
	db := newFakeDB()
	org := seedOrg(t, db, "Scout Group")
	other := seedOrg(t, db, "Other Group")
	h := newFileHandler(t, db)
	owner := orgUser(org.ID)

	up := httptest.NewRecorder()
	h.Upload(up, multipartUpload(t, owner, nil, "private.txt", []byte("secret")))
	require.Equal(t, http.StatusCreated, up.Code)
	var meta models.OrgFile
	decodeResponse(t, up, &meta)

	get := func(user *models.AppUser) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.GetFile(rec, authedRequest(http.MethodGet, "/api/files/"+meta.ID, nil, user,
			map[string]string{"id": meta.ID}))
		return rec
	}

	assert.Equal(t, http.StatusOK, get(owner).Code)
	assert.Equal(t, http.StatusOK, get(adminUser()).Code)
	assert.Equal(t, http.StatusNotFound, get(orgUser(other.ID)).Code)
}
