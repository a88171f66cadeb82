package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalStore writes documents below a root directory served by the API at
// /files/.
type LocalStore struct {
	root    string
	baseURL string
	now     func() time.Time
}

func NewLocalStore(root, publicBaseURL string) (*LocalStore, error) {
	if strings.TrimSpace(root) == "" {
		root = "./uploads"
	}
	if err := os.MkdirAll(root, os.ModePerm); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &LocalStore{
		root:    root,
		baseURL: joinURL(publicBaseURL, "files"),
		now:     time.Now,
	}, nil
}

// Root is the directory the router serves at /files.
func (s *LocalStore) Root() string { return s.root }

func (s *LocalStore) Store(ctx context.Context, data []byte, fileName, mimeType string) (DocumentRef, error) {
	if err := ctx.Err(); err != nil {
		return DocumentRef{}, err
	}
	key := BuildKey(s.now(), fileName)
	fullPath := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(fullPath), os.ModePerm); err != nil {
		return DocumentRef{}, fmt.Errorf("create document directory: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return DocumentRef{}, fmt.Errorf("write document: %w", err)
	}
	return DocumentRef{
		URL:  joinURL(s.baseURL, key),
		Name: fileName,
		Key:  key,
	}, nil
}

func (s *LocalStore) Delete(ctx context.Context, ref DocumentRef) error {
	if ref.Key == "" {
		return nil
	}
	fullPath := filepath.Join(s.root, filepath.FromSlash(ref.Key))
	rel, err := filepath.Rel(s.root, fullPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("refusing to delete %q outside upload root", ref.Key)
	}
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
