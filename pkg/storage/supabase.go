package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"youth-cms-backend/pkg/apperrors"
)

// SupabaseStorage stores objects through the Supabase storage REST API.
type SupabaseStorage struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewSupabaseStorage creates a storage client against the project URL.
func NewSupabaseStorage(rawURL, key string) *SupabaseStorage {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "https://" + rawURL
	}
	return &SupabaseStorage{
		baseURL: strings.TrimSuffix(rawURL, "/"),
		apiKey:  key,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

func (s *SupabaseStorage) objectURL(bucket, key string) string {
	return s.baseURL + "/storage/v1/object/" + bucket + "/" + key
}

func (s *SupabaseStorage) authorize(req *http.Request) {
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
}

// Upload writes an object, replacing any previous content at the key.
func (s *SupabaseStorage) Upload(ctx context.Context, bucket, key, contentType string, r io.Reader) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.objectURL(bucket, key), r)
	if err != nil {
		return fmt.Errorf("failed to create upload request: %w", err)
	}
	s.authorize(req)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("x-upsert", "true")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return apperrors.Wrap(apperrors.TypeTransient, "upload failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return storageError(resp.StatusCode, body)
	}
	return nil
}

// Download opens an object for reading.
func (s *SupabaseStorage) Download(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.objectURL(bucket, key), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create download request: %w", err)
	}
	s.authorize(req)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.TypeTransient, "download failed", err)
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		resp.Body.Close()
		return nil, storageError(resp.StatusCode, body)
	}
	return resp.Body, nil
}

// Delete removes an object. A missing object is not an error.
func (s *SupabaseStorage) Delete(ctx context.Context, bucket, key string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.objectURL(bucket, key), nil)
	if err != nil {
		return fmt.Errorf("failed to create delete request: %w", err)
	}
	s.authorize(req)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return apperrors.Wrap(apperrors.TypeTransient, "delete failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return storageError(resp.StatusCode, body)
	}
	return nil
}

// PublicURL returns the address an approved object is served from. The
// bucket must be marked public in the project for this to resolve.
func (s *SupabaseStorage) PublicURL(bucket, key string) string {
	return s.baseURL + "/storage/v1/object/public/" + bucket + "/" + key
}

func storageError(status int, body []byte) error {
	msg := strings.TrimSpace(string(body))
	switch {
	case status == http.StatusNotFound:
		return apperrors.New(apperrors.TypeNotFound, "object not found")
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return apperrors.New(apperrors.TypePermissionDenied, "storage rejected credentials")
	case status == http.StatusTooManyRequests || status >= 500:
		return apperrors.New(apperrors.TypeTransient, fmt.Sprintf("storage unavailable (status %d): %s", status, msg))
	default:
		return apperrors.New(apperrors.TypeInternal, fmt.Sprintf("storage error (status %d): %s", status, msg))
	}
}
