package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// FileStorage is the shared object storage holding generated audio and
// uploaded presentation images.
type FileStorage interface {
	Upload(ctx context.Context, path string, data []byte, contentType string) (publicURL string, err error)
	Delete(ctx context.Context, path string) error
}

// StorageService uploads objects to a Supabase storage bucket over its
// REST API and returns public URLs.
type StorageService struct {
	baseURL string
	apiKey  string
	bucket  string
	client  *http.Client
}

// NewStorageService creates a StorageService.
func NewStorageService(baseURL, apiKey, bucket string) *StorageService {
	return &StorageService{
		baseURL: baseURL,
		apiKey:  apiKey,
		bucket:  bucket,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Upload stores an object and returns its public URL.
func (s *StorageService) Upload(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	url := fmt.Sprintf("%s/storage/v1/object/%s/%s", s.baseURL, s.bucket, path)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("storage: upload status %d: %s", resp.StatusCode, string(msg))
	}

	log.Printf("[Storage] File uploaded: %s", path)
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.baseURL, s.bucket, path), nil
}

// Delete removes an object. Used only after a confirmed audio send;
// failed sends strand the file on purpose for manual recovery.
func (s *StorageService) Delete(ctx context.Context, path string) error {
	url := fmt.Sprintf("%s/storage/v1/object/%s/%s", s.baseURL, s.bucket, path)

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("storage: delete status %d", resp.StatusCode)
	}

	return nil
}
