package guest

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jo-hoe/cubediary/internal/entry"
)

var _ entry.Reader = (*Generator)(nil)

func TestGenerator_Entries(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	g := NewGenerator(DefaultCount, 7, now)

	entries, err := g.GetEntriesByOwner(context.Background(), UserID)
	if err != nil {
		t.Fatalf("GetEntriesByOwner error: %v", err)
	}
	if len(entries) != DefaultCount {
		t.Fatalf("expected %d entries, got %d", DefaultCount, len(entries))
	}

	if entries[0].ID != "guest-39" || !entries[0].CreatedAt.Equal(now.Add(-day)) {
		t.Fatalf("newest entry = %s at %v", entries[0].ID, entries[0].CreatedAt)
	}
	last := entries[len(entries)-1]
	if last.ID != "guest-0" || !last.CreatedAt.Equal(now.Add(-40*day)) {
		t.Fatalf("oldest entry = %s at %v", last.ID, last.CreatedAt)
	}

	for i, e := range entries {
		if i > 0 && entries[i-1].CreatedAt.Sub(e.CreatedAt) != day {
			t.Fatalf("entries %d and %d are not one day apart", i-1, i)
		}
		if e.UserID != UserID {
			t.Fatalf("entry %s owned by %s", e.ID, e.UserID)
		}
		if e.Content == "" {
			t.Fatalf("entry %s has no caption", e.ID)
		}
		if len(e.ImageURLs) != entry.FaceCount {
			t.Fatalf("entry %s has %d faces", e.ID, len(e.ImageURLs))
		}
		for f, u := range e.ImageURLs {
			if !strings.HasPrefix(u, "https://picsum.photos/800/800?random=") {
				t.Fatalf("entry %s face %d has unexpected image %s", e.ID, f, u)
			}
			if f > 0 && e.ImageURLs[f-1] == u {
				t.Fatalf("entry %s repeats image on faces %d and %d", e.ID, f-1, f)
			}
		}
	}
}

func TestGenerator_Deterministic(t *testing.T) {
	now := time.Now()
	a, _ := NewGenerator(5, 42, now).GetEntriesByOwner(context.Background(), UserID)
	b, _ := NewGenerator(5, 42, now).GetEntriesByOwner(context.Background(), UserID)
	for i := range a {
		if strings.Join(a[i].ImageURLs, ",") != strings.Join(b[i].ImageURLs, ",") {
			t.Fatalf("entry %d differs between generators with equal seeds", i)
		}
	}
}

func TestGenerator_GetEntryByID(t *testing.T) {
	g := NewGenerator(3, 1, time.Now())
	ctx := context.Background()

	e, err := g.GetEntryByID(ctx, "guest-1")
	if err != nil || e == nil {
		t.Fatalf("GetEntryByID(guest-1) = %v, %v", e, err)
	}

	// callers may not mutate the generator's entries
	e.ImageURLs[0] = "#000000"
	again, _ := g.GetEntryByID(ctx, "guest-1")
	if again.ImageURLs[0] == "#000000" {
		t.Fatal("GetEntryByID returned shared state")
	}

	missing, err := g.GetEntryByID(ctx, "guest-99")
	if err != nil || missing != nil {
		t.Fatalf("GetEntryByID(guest-99) = %v, %v; want nil, nil", missing, err)
	}
}

func TestGenerator_CaptionFallback(t *testing.T) {
	if got := caption(45); got != "Sample cube 46" {
		t.Fatalf("caption(45) = %q", got)
	}
}
