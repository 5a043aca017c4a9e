package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jo-hoe/cubediary/internal/entry"
)

// ErrDuplicate is returned when a write collides with an existing unique key.
var ErrDuplicate = errors.New("duplicate key")

// Lookups that find nothing return nil and no error.
type DatabaseService interface {
	CreateDatabase() (*sql.DB, error)
	// DoesDatabaseExist reports whether the database answers.
	DoesDatabaseExist() bool
	Close() error

	// CreateUser assigns ID and CreatedAt and stores the user.
	CreateUser(ctx context.Context, user *User) error
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	// CreateEntry assigns ID and, if zero, CreatedAt.
	CreateEntry(ctx context.Context, e *entry.Entry) (*entry.Entry, error)
	GetEntryByID(ctx context.Context, id string) (*entry.Entry, error)
	// GetEntriesByOwner returns the user's entries, newest first.
	GetEntriesByOwner(ctx context.Context, userID string) ([]*entry.Entry, error)
	UpdateEntry(ctx context.Context, id string, content string, imageURLs []string) (*entry.Entry, error)
	DeleteEntry(ctx context.Context, id string) error

	PutObject(ctx context.Context, obj *Object) error
	GetObject(ctx context.Context, bucket, path string) (*Object, error)
	DeleteObject(ctx context.Context, bucket, path string) error
}

type User struct {
	ID           string
	Email        string // empty for anonymous users
	PasswordHash string
	IsGuest      bool
	CreatedAt    time.Time
}

type Object struct {
	Bucket      string
	Path        string
	ContentType string
	Data        []byte
	CreatedAt   time.Time
}
