package database

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/jo-hoe/cubediary/internal/entry"
)

func newTestDB(t *testing.T) DatabaseService {
	t.Helper()

	ds, err := NewSQLiteDatabase(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteDatabase error: %v", err)
	}
	_, err = ds.CreateDatabase()
	if err != nil {
		t.Fatalf("CreateDatabase error: %v", err)
	}
	t.Cleanup(func() { _ = ds.Close() })
	return ds
}

// steppingClock returns a clock advancing one second per call.
func steppingClock(start time.Time) func() time.Time {
	current := start
	return func() time.Time {
		current = current.Add(time.Second)
		return current
	}
}

func TestSQLite_DoesDatabaseExist(t *testing.T) {
	ds := newTestDB(t)
	if !ds.DoesDatabaseExist() {
		t.Fatalf("expected DoesDatabaseExist to return true")
	}
	if err := ds.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if ds.DoesDatabaseExist() {
		t.Fatalf("expected DoesDatabaseExist to return false after Close")
	}
}

func TestNewDatabase_UnsupportedType(t *testing.T) {
	if _, err := NewDatabase("postgres", "whatever"); err == nil {
		t.Fatal("expected error for unsupported database type")
	}
}

func TestSQLite_Users(t *testing.T) {
	ds := newTestDB(t)
	ctx := context.Background()

	user := &User{Email: "a@example.com", PasswordHash: "hash"}
	if err := ds.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser error: %v", err)
	}
	if user.ID == "" {
		t.Fatal("CreateUser did not assign an ID")
	}

	got, err := ds.GetUserByEmail(ctx, "a@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail error: %v", err)
	}
	if got == nil || got.ID != user.ID || got.PasswordHash != "hash" || got.IsGuest {
		t.Fatalf("GetUserByEmail = %+v, want %+v", got, user)
	}

	if err := ds.CreateUser(ctx, &User{Email: "a@example.com"}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for repeated email, got %v", err)
	}

	// anonymous users have no email and must not collide with each other
	for i := 0; i < 2; i++ {
		if err := ds.CreateUser(ctx, &User{IsGuest: true}); err != nil {
			t.Fatalf("CreateUser(guest #%d) error: %v", i, err)
		}
	}

	missing, err := ds.GetUserByEmail(ctx, "missing@example.com")
	if err != nil || missing != nil {
		t.Fatalf("GetUserByEmail(missing) = %+v, %v; want nil, nil", missing, err)
	}
}

func TestSQLite_EntriesOrderedNewestFirst(t *testing.T) {
	ds := newTestDB(t)
	ds.(*SQLiteDatabase).now = steppingClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	ctx := context.Background()

	var ids []string
	for _, content := range []string{"first", "second", "third"} {
		e, err := ds.CreateEntry(ctx, &entry.Entry{UserID: "u1", Content: content, ImageURLs: []string{"#000000"}})
		if err != nil {
			t.Fatalf("CreateEntry(%s) error: %v", content, err)
		}
		ids = append(ids, e.ID)
	}
	if _, err := ds.CreateEntry(ctx, &entry.Entry{UserID: "u2", Content: "other"}); err != nil {
		t.Fatalf("CreateEntry(other) error: %v", err)
	}

	entries, err := ds.GetEntriesByOwner(ctx, "u1")
	if err != nil {
		t.Fatalf("GetEntriesByOwner error: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	want := []string{ids[2], ids[1], ids[0]}
	for i, e := range entries {
		if e.ID != want[i] {
			t.Fatalf("entry %d: got %s, want %s", i, e.ID, want[i])
		}
		if e.UserID != "u1" {
			t.Fatalf("entry %d belongs to %s", i, e.UserID)
		}
	}

	none, err := ds.GetEntriesByOwner(ctx, "nobody")
	if err != nil {
		t.Fatalf("GetEntriesByOwner(nobody) error: %v", err)
	}
	if none == nil || len(none) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", none)
	}
}

func TestSQLite_UpdateAndDeleteEntry(t *testing.T) {
	ds := newTestDB(t)
	ctx := context.Background()

	created, err := ds.CreateEntry(ctx, &entry.Entry{UserID: "u1", Content: "before", ImageURLs: []string{"https://x/a.jpg"}})
	if err != nil {
		t.Fatalf("CreateEntry error: %v", err)
	}
	if created.UpdatedAt != nil {
		t.Fatal("new entry should not have UpdatedAt")
	}

	updated, err := ds.UpdateEntry(ctx, created.ID, "after", []string{"https://x/b.jpg", "#ffffff"})
	if err != nil {
		t.Fatalf("UpdateEntry error: %v", err)
	}
	if updated.Content != "after" || !reflect.DeepEqual(updated.ImageURLs, []string{"https://x/b.jpg", "#ffffff"}) {
		t.Fatalf("UpdateEntry = %+v", updated)
	}
	if updated.UpdatedAt == nil {
		t.Fatal("updated entry should have UpdatedAt")
	}

	missing, err := ds.UpdateEntry(ctx, "missing", "x", nil)
	if err != nil || missing != nil {
		t.Fatalf("UpdateEntry(missing) = %+v, %v; want nil, nil", missing, err)
	}

	if err := ds.DeleteEntry(ctx, created.ID); err != nil {
		t.Fatalf("DeleteEntry error: %v", err)
	}
	gone, err := ds.GetEntryByID(ctx, created.ID)
	if err != nil || gone != nil {
		t.Fatalf("GetEntryByID after delete = %+v, %v; want nil, nil", gone, err)
	}
}

func TestSQLite_LegacySingleImageURL(t *testing.T) {
	ds := newTestDB(t)
	ctx := context.Background()

	db := ds.(*SQLiteDatabase).db
	_, err := db.Exec("INSERT INTO entries (id, user_id, content, image_url, created_at) VALUES (?, ?, ?, ?, ?)",
		"legacy", "u1", "old", "https://x/legacy.jpg", time.Now().UnixNano())
	if err != nil {
		t.Fatalf("insert legacy row: %v", err)
	}

	e, err := ds.GetEntryByID(ctx, "legacy")
	if err != nil {
		t.Fatalf("GetEntryByID error: %v", err)
	}
	if !reflect.DeepEqual(e.ImageURLs, []string{"https://x/legacy.jpg"}) {
		t.Fatalf("ImageURLs = %v", e.ImageURLs)
	}
}

func TestSQLite_Objects(t *testing.T) {
	ds := newTestDB(t)
	ctx := context.Background()

	obj := &Object{Bucket: "cube-images", Path: "a_0.jpg", ContentType: "image/jpeg", Data: []byte{0xff, 0xd8}}
	if err := ds.PutObject(ctx, obj); err != nil {
		t.Fatalf("PutObject error: %v", err)
	}
	if err := ds.PutObject(ctx, obj); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for repeated path, got %v", err)
	}

	got, err := ds.GetObject(ctx, "cube-images", "a_0.jpg")
	if err != nil {
		t.Fatalf("GetObject error: %v", err)
	}
	if got.ContentType != "image/jpeg" || !bytes.Equal(got.Data, obj.Data) {
		t.Fatalf("GetObject = %+v", got)
	}

	if err := ds.DeleteObject(ctx, "cube-images", "a_0.jpg"); err != nil {
		t.Fatalf("DeleteObject error: %v", err)
	}
	gone, err := ds.GetObject(ctx, "cube-images", "a_0.jpg")
	if err != nil || gone != nil {
		t.Fatalf("GetObject after delete = %+v, %v; want nil, nil", gone, err)
	}
}
