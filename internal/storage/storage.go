// Package storage is the binary object store for uploaded face images.
// Objects live in the database and are served under /storage/<bucket>/<path>.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/jo-hoe/cubediary/internal/backend/database"
)

// DefaultBucket holds cube face images.
const DefaultBucket = "cube-images"

var (
	ErrExists      = errors.New("object already exists")
	ErrNotFound    = errors.New("object not found")
	ErrInvalidPath = errors.New("invalid object path")
)

type Object struct {
	Path        string
	ContentType string
	Data        []byte
}

// Store uploads to and serves from a single bucket.
type Store struct {
	db            database.DatabaseService
	bucket        string
	publicBaseURL string
}

// NewStore returns a store for bucket. publicBaseURL is the externally
// reachable origin of this server, e.g. "https://diary.example.com".
func NewStore(db database.DatabaseService, bucket, publicBaseURL string) *Store {
	if bucket == "" {
		bucket = DefaultBucket
	}
	return &Store{
		db:            db,
		bucket:        bucket,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

func (s *Store) Bucket() string {
	return s.bucket
}

func cleanPath(p string) (string, error) {
	if p == "" || strings.HasPrefix(p, "/") || strings.Contains(p, "\\") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	cleaned := path.Clean(p)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	return cleaned, nil
}

// Upload stores data at p. Existing objects are never overwritten.
func (s *Store) Upload(ctx context.Context, p, contentType string, data []byte) error {
	cleaned, err := cleanPath(p)
	if err != nil {
		return err
	}
	err = s.db.PutObject(ctx, &database.Object{
		Bucket:      s.bucket,
		Path:        cleaned,
		ContentType: contentType,
		Data:        data,
	})
	if errors.Is(err, database.ErrDuplicate) {
		return fmt.Errorf("%w: %s", ErrExists, cleaned)
	}
	return err
}

// PublicURL returns the absolute URL under which p is served.
func (s *Store) PublicURL(p string) string {
	segments := strings.Split(p, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return fmt.Sprintf("%s/storage/%s/%s", s.publicBaseURL, url.PathEscape(s.bucket), strings.Join(segments, "/"))
}

// PathFromURL reverses PublicURL. ok is false for URLs outside this bucket.
func (s *Store) PathFromURL(raw string) (string, bool) {
	prefix := fmt.Sprintf("%s/storage/%s/", s.publicBaseURL, url.PathEscape(s.bucket))
	if !strings.HasPrefix(raw, prefix) {
		return "", false
	}
	p, err := url.PathUnescape(strings.TrimPrefix(raw, prefix))
	if err != nil || p == "" {
		return "", false
	}
	return p, true
}

func (s *Store) Download(ctx context.Context, p string) (*Object, error) {
	cleaned, err := cleanPath(p)
	if err != nil {
		return nil, err
	}
	obj, err := s.db.GetObject(ctx, s.bucket, cleaned)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", cleaned, err)
	}
	if obj == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, cleaned)
	}
	return &Object{Path: obj.Path, ContentType: obj.ContentType, Data: obj.Data}, nil
}

func (s *Store) Delete(ctx context.Context, p string) error {
	cleaned, err := cleanPath(p)
	if err != nil {
		return err
	}
	return s.db.DeleteObject(ctx, s.bucket, cleaned)
}

// FaceObjectName names the upload for face index with a random prefix,
// e.g. "3f0c…_2.jpg".
func FaceObjectName(index int, ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		ext = "jpg"
	}
	return fmt.Sprintf("%s_%d.%s", uuid.NewString(), index, ext)
}
