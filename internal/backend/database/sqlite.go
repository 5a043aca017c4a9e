package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jo-hoe/cubediary/internal/entry"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type SQLiteDatabase struct {
	db               *sql.DB
	connectionString string
	now              func() time.Time
}

func NewSQLiteDatabase(connectionString string) (DatabaseService, error) {
	db, err := sql.Open("sqlite", connectionString)
	if err != nil {
		return nil, err
	}
	// every connection to ":memory:" opens its own empty database
	if strings.Contains(connectionString, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	return &SQLiteDatabase{
		db:               db,
		connectionString: connectionString,
		now:              time.Now,
	}, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT UNIQUE,
		password_hash TEXT NOT NULL DEFAULT '',
		is_guest INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS entries (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		content TEXT NOT NULL DEFAULT '',
		image_urls TEXT,
		image_url TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER
	)`,
	`CREATE INDEX IF NOT EXISTS entries_owner_created ON entries (user_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS objects (
		bucket TEXT NOT NULL,
		path TEXT NOT NULL,
		content_type TEXT NOT NULL,
		data BLOB,
		created_at INTEGER NOT NULL,
		PRIMARY KEY (bucket, path)
	)`,
}

func (s *SQLiteDatabase) CreateDatabase() (*sql.DB, error) {
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return nil, err
		}
	}
	return s.db, nil
}

func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteDatabase) DoesDatabaseExist() bool {
	// In SQLite, the database file is created when you connect to it.
	// So we can assume it exists if we can successfully ping the database.
	err := s.db.Ping()
	return err == nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

func (s *SQLiteDatabase) CreateUser(ctx context.Context, user *User) error {
	user.ID = uuid.NewString()
	user.CreatedAt = s.now().UTC()

	var email sql.NullString
	if user.Email != "" {
		email = sql.NullString{String: user.Email, Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users (id, email, password_hash, is_guest, created_at) VALUES (?, ?, ?, ?, ?)",
		user.ID, email, user.PasswordHash, user.IsGuest, user.CreatedAt.UnixNano())
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("failed to create user: %w", ErrDuplicate)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, email, password_hash, is_guest, created_at FROM users WHERE email = ?", email)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*User, error) {
	var (
		user    User
		email   sql.NullString
		created int64
	)
	if err := row.Scan(&user.ID, &email, &user.PasswordHash, &user.IsGuest, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	user.Email = email.String
	user.CreatedAt = time.Unix(0, created).UTC()
	return &user, nil
}

func (s *SQLiteDatabase) CreateEntry(ctx context.Context, e *entry.Entry) (*entry.Entry, error) {
	created := *e
	created.ID = uuid.NewString()
	if created.CreatedAt.IsZero() {
		created.CreatedAt = s.now().UTC()
	}
	if created.ImageURLs == nil {
		created.ImageURLs = []string{}
	}

	urls, err := json.Marshal(created.ImageURLs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image urls: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO entries (id, user_id, content, image_urls, created_at) VALUES (?, ?, ?, ?, ?)",
		created.ID, created.UserID, created.Content, string(urls), created.CreatedAt.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("failed to create entry: %w", err)
	}
	return &created, nil
}

const entryColumns = "id, user_id, content, image_urls, image_url, created_at, updated_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*entry.Entry, error) {
	var (
		e         entry.Entry
		imageURLs sql.NullString
		imageURL  sql.NullString
		created   int64
		updated   sql.NullInt64
	)
	if err := row.Scan(&e.ID, &e.UserID, &e.Content, &imageURLs, &imageURL, &created, &updated); err != nil {
		return nil, err
	}
	e.ImageURLs = entry.NormalizeImageURLs(imageURLs.String, imageURL.String)
	e.CreatedAt = time.Unix(0, created).UTC()
	if updated.Valid {
		t := time.Unix(0, updated.Int64).UTC()
		e.UpdatedAt = &t
	}
	return &e, nil
}

func (s *SQLiteDatabase) GetEntryByID(ctx context.Context, id string) (*entry.Entry, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+entryColumns+" FROM entries WHERE id = ?", id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

func (s *SQLiteDatabase) GetEntriesByOwner(ctx context.Context, userID string) ([]*entry.Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+entryColumns+" FROM entries WHERE user_id = ? ORDER BY created_at DESC, rowid DESC", userID)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close() // Explicitly ignore error as we're already returning an error from the function
	}()

	entries := []*entry.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *SQLiteDatabase) UpdateEntry(ctx context.Context, id string, content string, imageURLs []string) (*entry.Entry, error) {
	if imageURLs == nil {
		imageURLs = []string{}
	}
	urls, err := json.Marshal(imageURLs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image urls: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE entries SET content = ?, image_urls = ?, image_url = NULL, updated_at = ? WHERE id = ?",
		content, string(urls), s.now().UTC().UnixNano(), id)
	if err != nil {
		return nil, fmt.Errorf("failed to update entry: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, nil
	}
	return s.GetEntryByID(ctx, id)
}

func (s *SQLiteDatabase) DeleteEntry(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM entries WHERE id = ?", id)
	return err
}

func (s *SQLiteDatabase) PutObject(ctx context.Context, obj *Object) error {
	if obj.CreatedAt.IsZero() {
		obj.CreatedAt = s.now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO objects (bucket, path, content_type, data, created_at) VALUES (?, ?, ?, ?, ?)",
		obj.Bucket, obj.Path, obj.ContentType, obj.Data, obj.CreatedAt.UnixNano())
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("failed to store object %s/%s: %w", obj.Bucket, obj.Path, ErrDuplicate)
		}
		return fmt.Errorf("failed to store object %s/%s: %w", obj.Bucket, obj.Path, err)
	}
	return nil
}

func (s *SQLiteDatabase) GetObject(ctx context.Context, bucket, path string) (*Object, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT bucket, path, content_type, data, created_at FROM objects WHERE bucket = ? AND path = ?",
		bucket, path)
	var (
		obj     Object
		created int64
	)
	if err := row.Scan(&obj.Bucket, &obj.Path, &obj.ContentType, &obj.Data, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	obj.CreatedAt = time.Unix(0, created).UTC()
	return &obj, nil
}

func (s *SQLiteDatabase) DeleteObject(ctx context.Context, bucket, path string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM objects WHERE bucket = ? AND path = ?", bucket, path)
	return err
}
