// Package guest synthesises the sample diary shown to guest sessions.
package guest

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/jo-hoe/cubediary/internal/entry"
)

// UserID owns the sample entries.
const UserID = "00000000-0000-0000-0000-000000000000"

// DefaultCount is the number of sample entries.
const DefaultCount = 40

const day = 24 * time.Hour

var captions = []string{
	"A beautiful landscape",
	"Memories of today",
	"A lovely moment",
	"An unforgettable day",
	"A special day",
	"Scenery that stays with me",
	"A new discovery",
	"A moving moment",
	"A quiet time",
	"A shining memory",
	"A wonderful experience",
	"A heartwarming moment",
	"Beautiful nature",
	"A special place",
	"Precious time",
	"A lovely encounter",
	"A moment of awe",
	"An unforgettable view",
	"Scenery that speaks to me",
	"A wonderful day",
	"A beautiful world",
	"A special memory",
	"An experience to remember",
	"A lovely time",
	"A brilliant moment",
	"A touching experience",
	"A beautiful memory",
	"A special moment",
	"A heartwarming memory",
	"A wonderful landscape",
	"A day to remember",
	"A beautiful experience",
	"A moment that resonates",
	"A lovely memory",
	"A special time",
	"A day of wonder",
	"A beautiful view",
	"A day that stays with me",
	"A wonderful moment",
	"An unforgettable experience",
}

// Images is the pool of free sample face images.
var Images = func() []string {
	images := make([]string, 40)
	for i := range images {
		images[i] = fmt.Sprintf("https://picsum.photos/800/800?random=%d", i+1)
	}
	return images
}()

// Generator serves a fixed set of sample entries owned by UserID.
// It satisfies entry.Reader.
type Generator struct {
	entries []*entry.Entry
	byID    map[string]*entry.Entry
}

// NewGenerator builds count entries dated one day apart, the newest dated one
// day before now. seed makes the face images reproducible.
func NewGenerator(count int, seed uint64, now time.Time) *Generator {
	if count < 0 {
		count = 0
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	g := &Generator{
		entries: make([]*entry.Entry, count),
		byID:    make(map[string]*entry.Entry, count),
	}
	for i := 0; i < count; i++ {
		e := &entry.Entry{
			ID:        fmt.Sprintf("guest-%d", i),
			UserID:    UserID,
			Content:   caption(i),
			ImageURLs: faceImages(rng),
			CreatedAt: now.Add(-time.Duration(count-i) * day).UTC(),
		}
		// newest first
		g.entries[count-1-i] = e
		g.byID[e.ID] = e
	}
	return g
}

func caption(i int) string {
	if i < len(captions) {
		return captions[i]
	}
	return fmt.Sprintf("Sample cube %d", i+1)
}

// faceImages picks one image per face, never repeating the previous face.
func faceImages(rng *rand.Rand) []string {
	faces := make([]string, entry.FaceCount)
	for i := range faces {
		image := Images[rng.IntN(len(Images))]
		for i > 0 && image == faces[i-1] && len(Images) > 1 {
			image = Images[rng.IntN(len(Images))]
		}
		faces[i] = image
	}
	return faces
}

func clone(e *entry.Entry) *entry.Entry {
	copied := *e
	copied.ImageURLs = append([]string(nil), e.ImageURLs...)
	return &copied
}

func (g *Generator) GetEntriesByOwner(ctx context.Context, userID string) ([]*entry.Entry, error) {
	out := make([]*entry.Entry, len(g.entries))
	for i, e := range g.entries {
		out[i] = clone(e)
	}
	return out, nil
}

func (g *Generator) GetEntryByID(ctx context.Context, id string) (*entry.Entry, error) {
	e, ok := g.byID[id]
	if !ok {
		return nil, nil
	}
	return clone(e), nil
}
