// Package core holds the diary's use cases and wires its collaborators.
package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/h2non/filetype"
	"github.com/jo-hoe/cubediary/internal/auth"
	"github.com/jo-hoe/cubediary/internal/backend/commandstructure"
	"github.com/jo-hoe/cubediary/internal/backend/database"
	"github.com/jo-hoe/cubediary/internal/entry"
	"github.com/jo-hoe/cubediary/internal/guest"
	"github.com/jo-hoe/cubediary/internal/layout"
	"github.com/jo-hoe/cubediary/internal/metrics"
	"github.com/jo-hoe/cubediary/internal/preview"
	"github.com/jo-hoe/cubediary/internal/relay"
	"github.com/jo-hoe/cubediary/internal/storage"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrGuestReadOnly = errors.New("guest sessions are read-only")
	ErrInvalidInput  = errors.New("invalid input")
)

// MaxPlaceholders bounds the number of placeholder placements per gallery.
const MaxPlaceholders = 1000

type CoreService struct {
	config          *ServiceConfig
	databaseService database.DatabaseService
	store           *storage.Store
	auth            *auth.Service
	guests          *guest.Generator
	engine          *layout.Engine
	pipeline        []commandstructure.Command
	relay           *relay.Relay
	metrics         *metrics.Metrics
	redisClient     *redis.Client
	memorySessions  *auth.MemoryStore
	stopSweep       context.CancelFunc
	sweepDone       chan struct{}
	closeOnce       sync.Once
}

// NewCoreService wires every collaborator from config and panics when one
// cannot be started.
func NewCoreService(config *ServiceConfig, m *metrics.Metrics) *CoreService {
	service, err := newCoreService(config, m)
	if err != nil {
		slog.Error("failed to initialize core service", "error", err)
		panic(err)
	}
	return service
}

func newCoreService(config *ServiceConfig, m *metrics.Metrics) (*CoreService, error) {
	if m == nil {
		m = metrics.New()
	}

	databaseService, err := getDatabaseService(config)
	if err != nil {
		return nil, err
	}

	pipeline, err := commandstructure.DefaultRegistry.Build(config.Commands)
	if err != nil {
		_ = databaseService.Close()
		return nil, fmt.Errorf("failed to build image pipeline: %w", err)
	}

	memorySessions := auth.NewMemoryStore()
	var (
		sessions    auth.SessionStore = memorySessions
		relayCache  relay.Cache       = relay.NoopCache{}
		redisClient *redis.Client
	)
	if config.Redis.Addr != "" {
		redisClient, err = getRedisClient(config.Redis)
		if err != nil {
			_ = databaseService.Close()
			return nil, err
		}
		memorySessions = nil
		sessions = auth.NewRedisStore(redisClient)
		relayCache = relay.NewRedisCache(redisClient, config.Relay.CacheTTL, config.Relay.CacheMaxBytes)
	}

	fetcher := relay.NewFetcher(config.Relay.Timeout, config.Relay.MaxBytes, config.Relay.BlockPrivateAddresses)

	service := &CoreService{
		config:          config,
		databaseService: databaseService,
		store:           storage.NewStore(databaseService, config.Storage.Bucket, config.Storage.PublicBaseURL),
		auth:            auth.NewService(databaseService, sessions, config.Auth.SessionTTL),
		guests:          guest.NewGenerator(config.Guest.Count, config.Guest.Seed, time.Now()),
		engine:          layout.NewEngine(config.Layout),
		pipeline:        pipeline,
		relay:           relay.NewRelay(fetcher, relayCache, m),
		metrics:         m,
		redisClient:     redisClient,
		memorySessions:  memorySessions,
	}
	service.startSessionSweep(config.Auth.CleanupInterval)
	return service, nil
}

// startSessionSweep drops expired in-memory sessions in the background.
// Redis expires its keys itself.
func (service *CoreService) startSessionSweep(interval time.Duration) {
	if service.memorySessions == nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	service.stopSweep = cancel
	service.sweepDone = make(chan struct{})
	go func() {
		defer close(service.sweepDone)
		service.memorySessions.Sweep(ctx, interval)
	}()
}

func getDatabaseService(config *ServiceConfig) (database.DatabaseService, error) {
	databaseService, err := database.NewDatabase(config.Database.Type, config.Database.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	slog.Info("database initialized successfully", "type", config.Database.Type)
	return databaseService, nil
}

func getRedisClient(config Redis) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", config.Addr, err)
	}
	slog.Info("redis connected", "addr", config.Addr)
	return client, nil
}

func (service *CoreService) Auth() *auth.Service {
	return service.auth
}

func (service *CoreService) Relay() *relay.Relay {
	return service.relay
}

func (service *CoreService) Metrics() *metrics.Metrics {
	return service.metrics
}

func (service *CoreService) Store() *storage.Store {
	return service.store
}

// Healthy reports whether the record store answers.
func (service *CoreService) Healthy() bool {
	return service.databaseService.DoesDatabaseExist()
}

func (service *CoreService) LayoutParams() layout.Params {
	return service.engine.Params()
}

// Close releases the database and Redis connections.
func (service *CoreService) Close() error {
	var errs []error
	service.closeOnce.Do(func() {
		if service.stopSweep != nil {
			service.stopSweep()
			<-service.sweepDone
		}
		if service.redisClient != nil {
			if err := service.redisClient.Close(); err != nil {
				errs = append(errs, fmt.Errorf("failed to close redis client: %w", err))
			}
		}
		if err := service.databaseService.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	})
	return errors.Join(errs...)
}

// reader selects the entry source for the caller.
func (service *CoreService) reader(caller *auth.Session) entry.Reader {
	if caller.IsGuest {
		return service.guests
	}
	return service.databaseService
}

func ownerOf(caller *auth.Session) string {
	if caller.IsGuest {
		return guest.UserID
	}
	return caller.UserID
}

// ListEntries returns the caller's entries, newest first.
func (service *CoreService) ListEntries(ctx context.Context, caller *auth.Session) ([]*entry.Entry, error) {
	entries, err := service.reader(caller).GetEntriesByOwner(ctx, ownerOf(caller))
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	return entries, nil
}

// EntryView is one entry with its neighbours in list order. PrevID is the
// next newer entry, NextID the next older one.
type EntryView struct {
	*entry.Entry
	PrevID string `json:"prev_id,omitempty"`
	NextID string `json:"next_id,omitempty"`
}

func (service *CoreService) GetEntry(ctx context.Context, caller *auth.Session, id string) (*EntryView, error) {
	entries, err := service.ListEntries(ctx, caller)
	if err != nil {
		return nil, err
	}
	for i, e := range entries {
		if e.ID != id {
			continue
		}
		view := &EntryView{Entry: e}
		if i > 0 {
			view.PrevID = entries[i-1].ID
		}
		if i < len(entries)-1 {
			view.NextID = entries[i+1].ID
		}
		return view, nil
	}
	return nil, fmt.Errorf("%w: entry %s", ErrNotFound, id)
}

// ownedEntry loads id and hides entries of other users.
func (service *CoreService) ownedEntry(ctx context.Context, caller *auth.Session, id string) (*entry.Entry, error) {
	e, err := service.databaseService.GetEntryByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to read entry %s: %w", id, err)
	}
	if e == nil || e.UserID != caller.UserID {
		return nil, fmt.Errorf("%w: entry %s", ErrNotFound, id)
	}
	return e, nil
}

// FaceInput supplies one face: either an uploaded image or a reference
// (http(s) URL or #rrggbb colour).
type FaceInput struct {
	Ref  string
	Data []byte
}

// EntryInput carries the fields of a create or update. Nil fields are left
// unchanged on update.
type EntryInput struct {
	Content *string
	Faces   [entry.FaceCount]*FaceInput
}

func (in EntryInput) faceCount() int {
	n := 0
	for _, f := range in.Faces {
		if f != nil {
			n++
		}
	}
	return n
}

func (in EntryInput) validate() error {
	for i, f := range in.Faces {
		if f == nil {
			continue
		}
		if len(f.Data) == 0 {
			if err := entry.ValidateFaceRef(f.Ref); err != nil {
				return fmt.Errorf("%w: face %d: %v", ErrInvalidInput, i, err)
			}
			continue
		}
		if !filetype.IsImage(f.Data) {
			return fmt.Errorf("%w: face %d is not an image", ErrInvalidInput, i)
		}
	}
	return nil
}

func (service *CoreService) CreateEntry(ctx context.Context, caller *auth.Session, in EntryInput) (*entry.Entry, error) {
	if caller.IsGuest {
		return nil, ErrGuestReadOnly
	}
	if in.faceCount() == 0 {
		return nil, fmt.Errorf("%w: at least one face is required", ErrInvalidInput)
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	urls, uploaded, err := service.resolveFaces(ctx, in.Faces, nil)
	if err != nil {
		return nil, err
	}

	content := ""
	if in.Content != nil {
		content = strings.TrimSpace(*in.Content)
	}
	created, err := service.databaseService.CreateEntry(ctx, &entry.Entry{
		UserID:    caller.UserID,
		Content:   content,
		ImageURLs: urls,
	})
	if err != nil {
		service.deleteObjects(ctx, uploaded)
		return nil, fmt.Errorf("failed to create entry: %w", err)
	}

	service.metrics.RecordEntryCreated()
	slog.Info("createEntry: entry created", "entry_id", created.ID, "faces", len(urls))
	return created, nil
}

func (service *CoreService) UpdateEntry(ctx context.Context, caller *auth.Session, id string, in EntryInput) (*entry.Entry, error) {
	if caller.IsGuest {
		return nil, ErrGuestReadOnly
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	current, err := service.ownedEntry(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	urls, uploaded, err := service.resolveFaces(ctx, in.Faces, current.ImageURLs)
	if err != nil {
		return nil, err
	}
	content := current.Content
	if in.Content != nil {
		content = strings.TrimSpace(*in.Content)
	}

	updated, err := service.databaseService.UpdateEntry(ctx, id, content, urls)
	if err != nil {
		service.deleteObjects(ctx, uploaded)
		return nil, fmt.Errorf("failed to update entry: %w", err)
	}
	if updated == nil {
		service.deleteObjects(ctx, uploaded)
		return nil, fmt.Errorf("%w: entry %s", ErrNotFound, id)
	}

	// drop uploads that are no longer referenced
	service.deleteObjects(ctx, service.ownedObjects(unreferenced(current.ImageURLs, urls)))
	return updated, nil
}

func (service *CoreService) DeleteEntry(ctx context.Context, caller *auth.Session, id string) error {
	if caller.IsGuest {
		return ErrGuestReadOnly
	}
	current, err := service.ownedEntry(ctx, caller, id)
	if err != nil {
		return err
	}
	if err := service.databaseService.DeleteEntry(ctx, id); err != nil {
		return fmt.Errorf("failed to delete entry %s: %w", id, err)
	}
	service.deleteObjects(ctx, service.ownedObjects(current.ImageURLs))
	return nil
}

// resolveFaces merges faces into base. Uploads run concurrently; if any
// fails, the ones that succeeded are removed again. Gaps below the highest
// supplied face get entry.DefaultFillColor.
func (service *CoreService) resolveFaces(ctx context.Context, faces [entry.FaceCount]*FaceInput, base []string) ([]string, []string, error) {
	length := len(base)
	for i, f := range faces {
		if f != nil && i+1 > length {
			length = i + 1
		}
	}
	urls := make([]string, length)
	copy(urls, base)

	var (
		mu       sync.Mutex
		uploaded []string
	)
	group, groupCtx := errgroup.WithContext(ctx)
	for i, f := range faces {
		if f == nil {
			continue
		}
		if len(f.Data) == 0 {
			urls[i] = f.Ref
			continue
		}
		group.Go(func() error {
			path, err := service.uploadFace(groupCtx, i, f.Data)
			if err != nil {
				return fmt.Errorf("failed to upload face %d: %w", i, err)
			}
			mu.Lock()
			uploaded = append(uploaded, path)
			mu.Unlock()
			urls[i] = service.store.PublicURL(path)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		service.deleteObjects(ctx, uploaded)
		return nil, nil, err
	}

	for i := range urls {
		if urls[i] == "" {
			urls[i] = entry.DefaultFillColor
		}
	}
	return urls, uploaded, nil
}

// uploadFace compresses data with the configured pipeline and stores it.
// When the pipeline fails the original bytes are stored.
func (service *CoreService) uploadFace(ctx context.Context, index int, data []byte) (string, error) {
	processed, err := commandstructure.NewCommandInvoker(service.pipeline).Execute(data)
	compressed := err == nil
	if err != nil {
		slog.Warn("uploadFace: image pipeline failed, storing original", "face", index, "error", err)
		processed = data
	}

	kind, err := filetype.Match(processed)
	if err != nil || kind == filetype.Unknown {
		return "", fmt.Errorf("%w: unrecognised image format", ErrInvalidInput)
	}

	path := storage.FaceObjectName(index, kind.Extension)
	if err := service.store.Upload(ctx, path, kind.MIME.Value, processed); err != nil {
		return "", err
	}
	service.metrics.RecordFaceUpload(compressed)
	return path, nil
}

// ownedObjects maps stored face URLs back to object paths, skipping
// external URLs and colours.
func (service *CoreService) ownedObjects(urls []string) []string {
	var paths []string
	for _, u := range urls {
		if p, ok := service.store.PathFromURL(u); ok {
			paths = append(paths, p)
		}
	}
	return paths
}

func (service *CoreService) deleteObjects(ctx context.Context, paths []string) {
	for _, p := range paths {
		if err := service.store.Delete(ctx, p); err != nil {
			slog.Warn("deleteObjects: failed to delete object", "path", p, "error", err)
		}
	}
}

func unreferenced(before, after []string) []string {
	kept := make(map[string]bool, len(after))
	for _, u := range after {
		kept[u] = true
	}
	var out []string
	for _, u := range before {
		if !kept[u] {
			out = append(out, u)
		}
	}
	return out
}

// GalleryItem is one placement. Entry is nil for placeholders.
type GalleryItem struct {
	Index       int            `json:"index"`
	Position    layout.Vector3 `json:"position"`
	Placeholder bool           `json:"placeholder"`
	Entry       *entry.Entry   `json:"entry,omitempty"`
}

type Gallery struct {
	Layout layout.Kind   `json:"layout"`
	Total  int           `json:"total"`
	Items  []GalleryItem `json:"items"`
}

// GalleryOptions tune Gallery. An empty Fill leaves face lists as stored.
type GalleryOptions struct {
	Kind         layout.Kind
	Placeholders int
	Fill         entry.FillMode
	FillColor    string
}

// Gallery places the caller's entries, followed by placeholder slots at
// indices total..total+placeholders-1. The sphere only covers indices below
// total, so with that layout every placeholder position is NaN and encodes
// as [null,null,null]. Helix and wormhole extend past total.
func (service *CoreService) Gallery(ctx context.Context, caller *auth.Session, opts GalleryOptions) (*Gallery, error) {
	if opts.Placeholders < 0 || opts.Placeholders > MaxPlaceholders {
		return nil, fmt.Errorf("%w: placeholders must be within 0..%d", ErrInvalidInput, MaxPlaceholders)
	}
	entries, err := service.ListEntries(ctx, caller)
	if err != nil {
		return nil, err
	}

	total := len(entries)
	count := total + opts.Placeholders
	positions := service.engine.Positions(total, opts.Kind, count)

	items := make([]GalleryItem, count)
	for i := 0; i < count; i++ {
		items[i] = GalleryItem{Index: i, Position: positions[i], Placeholder: i >= total}
		if i < total {
			e := entries[i]
			if opts.Fill != "" {
				e.ImageURLs = entry.Fill(e.ImageURLs, opts.Fill, opts.FillColor)
			}
			items[i].Entry = e
		}
	}
	return &Gallery{Layout: opts.Kind, Total: total, Items: items}, nil
}

// Positions returns the placements of a list of total entries.
func (service *CoreService) Positions(kind layout.Kind, total int) []layout.Vector3 {
	return service.engine.Positions(total, kind, max(total, 1))
}

// Preview renders the layout for total entries as SVG, or PNG when png is set.
func (service *CoreService) Preview(kind layout.Kind, total int, opts preview.Options, png bool) ([]byte, error) {
	points := service.Positions(kind, total)
	if png {
		return preview.RenderPNG(points, opts)
	}
	return preview.RenderSVG(points, opts)
}
