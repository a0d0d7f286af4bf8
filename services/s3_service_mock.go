package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
)

// MockBlobStore is an in-memory BlobStore for testing
type MockBlobStore struct {
	files     map[string][]byte // map of path to file content
	mu        sync.RWMutex
	uploadErr error
	removeErr error
}

// NewMockBlobStore creates an empty mock store
func NewMockBlobStore() *MockBlobStore {
	return &MockBlobStore{
		files: make(map[string][]byte),
	}
}

// FailUploads makes every following Upload return err. Pass nil to recover.
func (m *MockBlobStore) FailUploads(err error) {
	m.mu.Lock()
	m.uploadErr = err
	m.mu.Unlock()
}

// FailRemovals makes every following Remove return err. Pass nil to recover.
func (m *MockBlobStore) FailRemovals(err error) {
	m.mu.Lock()
	m.removeErr = err
	m.mu.Unlock()
}

// Upload stores the content of body under path
func (m *MockBlobStore) Upload(ctx context.Context, path, contentType string, body io.Reader) error {
	content, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.uploadErr != nil {
		return m.uploadErr
	}
	m.files[path] = content
	return nil
}

// Remove deletes the given paths
func (m *MockBlobStore) Remove(ctx context.Context, paths ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.removeErr != nil {
		return m.removeErr
	}
	for _, path := range paths {
		delete(m.files, path)
	}
	return nil
}

// PresignedURL returns a fake link for stored paths
func (m *MockBlobStore) PresignedURL(ctx context.Context, path string) (string, error) {
	if path == "" {
		return "", nil
	}

	m.mu.RLock()
	_, exists := m.files[path]
	m.mu.RUnlock()

	if !exists {
		return "", errors.New("file not found in mock storage: " + path)
	}
	return fmt.Sprintf("https://custom-attachments.s3.us-east-1.amazonaws.com/%s?mock=true", path), nil
}

// Paths returns the stored paths, sorted
func (m *MockBlobStore) Paths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	paths := make([]string, 0, len(m.files))
	for path := range m.files {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// FileExists checks if a path exists in mock storage
func (m *MockBlobStore) FileExists(path string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, exists := m.files[path]
	return exists
}

// Content returns the bytes stored under path
func (m *MockBlobStore) Content(path string) []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.files[path]
}

// Clear removes all files from mock storage
func (m *MockBlobStore) Clear() {
	m.mu.Lock()
	m.files = make(map[string][]byte)
	m.mu.Unlock()
}
