// Package category caches schedule categories and allocates palette colors.
// Each color is held by at most one category, and the color (not the id)
// decides whether AddOrUpdate inserts or renames.
package category

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/sadopc/duet/internal/log"
	"github.com/sadopc/duet/internal/model"
)

const resource = "category"

type Backend interface {
	ListCategories(ctx context.Context) ([]model.Category, error)
	CreateCategory(ctx context.Context, name string, color model.Color) (*model.Category, error)
	UpdateCategory(ctx context.Context, id int64, name string, color model.Color) (*model.Category, error)
	DeleteCategory(ctx context.Context, id int64) error
}

type Snapshotter interface {
	SaveCategories(list []model.Category, fetchedAt time.Time) error
	LoadCategories() ([]model.Category, time.Time, error)
}

type Status struct {
	Loading   bool
	Err       error
	Stale     bool
	FetchedAt time.Time
}

type Option func(*Registry)

func WithSnapshotter(s Snapshotter) Option {
	return func(r *Registry) { r.snap = s }
}

func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

type Registry struct {
	backend Backend
	snap    Snapshotter
	now     func() time.Time

	mu         sync.RWMutex
	categories []model.Category
	byColor    map[model.Color]model.Category
	byID       map[int64]model.Category
	status     Status
	gen        uint64
	inflight   int
	trigger    uint64
}

func New(backend Backend, opts ...Option) *Registry {
	r := &Registry{
		backend: backend,
		now:     time.Now,
		byColor: make(map[model.Color]model.Category),
		byID:    make(map[int64]model.Category),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ============================================================
// Fetching
// ============================================================

// Fetch replaces the cache from the server and recomputes used colors.
// Records with a color outside the palette, or a color already taken by an
// earlier record, are dropped.
func (r *Registry) Fetch(ctx context.Context) error {
	r.mu.Lock()
	r.gen++
	gen := r.gen
	r.inflight++
	r.status.Loading = true
	r.mu.Unlock()

	log.Debug("fetch categories", "gen", gen)
	list, err := r.backend.ListCategories(ctx)

	r.mu.Lock()
	r.inflight--
	r.status.Loading = r.inflight > 0
	if latest := r.gen; gen != latest {
		r.mu.Unlock()
		log.Debug("discard superseded category fetch", "gen", gen, "latest", latest)
		return nil
	}
	if err != nil {
		opErr := &model.OpError{Op: "fetch", Resource: resource, Err: err}
		r.status.Err = opErr
		r.mu.Unlock()
		log.Error("fetch categories failed", err, "gen", gen)
		return opErr
	}

	kept := r.replace(list)
	fetchedAt := r.now()
	r.status.Err = nil
	r.status.Stale = false
	r.status.FetchedAt = fetchedAt
	r.mu.Unlock()

	log.Debug("fetched categories", "gen", gen, "count", len(kept))
	if r.snap != nil {
		if err := r.snap.SaveCategories(kept, fetchedAt); err != nil {
			log.Error("save category snapshot", err)
		}
	}
	return nil
}

// replace installs list as the cache. Callers hold r.mu.
func (r *Registry) replace(list []model.Category) []model.Category {
	kept := make([]model.Category, 0, len(list))
	byColor := make(map[model.Color]model.Category, len(list))
	byID := make(map[int64]model.Category, len(list))

	for _, c := range list {
		color, ok := model.ParseColor(string(c.Color))
		if !ok {
			log.Error("drop category", errors.New("unknown color"), "id", c.ID, "color", c.Color)
			continue
		}
		if holder, taken := byColor[color]; taken {
			log.Error("drop category", errors.New("color already held"), "id", c.ID, "color", color, "holder", holder.ID)
			continue
		}
		c.Color = color
		kept = append(kept, c)
		byColor[color] = c
		byID[c.ID] = c
	}

	r.categories = kept
	r.byColor = byColor
	r.byID = byID
	return kept
}

// Restore loads the last snapshot as a stale cache unless a fetch already
// succeeded.
func (r *Registry) Restore() error {
	if r.snap == nil {
		return nil
	}
	list, fetchedAt, err := r.snap.LoadCategories()
	if err != nil {
		return &model.OpError{Op: "restore", Resource: resource, Err: err}
	}
	if fetchedAt.IsZero() {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.status.FetchedAt.IsZero() {
		return nil
	}
	r.replace(list)
	r.status.Stale = true
	r.status.FetchedAt = fetchedAt
	return nil
}

// ============================================================
// Palette queries
// ============================================================

// IsColorAvailable reports whether no category holds color. Tokens outside
// the palette are never available.
func (r *Registry) IsColorAvailable(color model.Color) bool {
	c, ok := model.ParseColor(string(color))
	if !ok {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, taken := r.byColor[c]
	return !taken
}

// FindByColor returns the category holding color.
func (r *Registry) FindByColor(color model.Color) (model.Category, bool) {
	c, ok := model.ParseColor(string(color))
	if !ok {
		return model.Category{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	cat, found := r.byColor[c]
	return cat, found
}

// FirstAvailableColor scans the palette in order. It returns false when
// every color is held.
func (r *Registry) FirstAvailableColor() (model.Color, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range model.Palette {
		if _, taken := r.byColor[c]; !taken {
			return c, true
		}
	}
	return "", false
}

// UsedColors lists held colors in palette order.
func (r *Registry) UsedColors() []model.Color {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var used []model.Color
	for _, c := range model.Palette {
		if _, taken := r.byColor[c]; taken {
			used = append(used, c)
		}
	}
	return used
}

// Lookup resolves a schedule's category reference. A nil id or a deleted
// category yields false.
func (r *Registry) Lookup(id *int64) (model.Category, bool) {
	if id == nil {
		return model.Category{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	cat, ok := r.byID[*id]
	return cat, ok
}

func (r *Registry) Categories() []model.Category {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]model.Category(nil), r.categories...)
}

func (r *Registry) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

// Trigger is the refresh counter, bumped after every successful mutation.
func (r *Registry) Trigger() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.trigger
}

// ============================================================
// Mutations
// ============================================================

// AddOrUpdate stores name under color. When a category already holds color
// it is renamed in place (its color never changes); otherwise a new
// category is created. The registry refetches after the server answers.
func (r *Registry) AddOrUpdate(ctx context.Context, name string, color model.Color) (*model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &model.OpError{Op: "save", Resource: resource,
			Err: &model.ValidationError{Field: "name", Message: "category name is required"}}
	}
	c, ok := model.ParseColor(string(color))
	if !ok {
		return nil, &model.OpError{Op: "save", Resource: resource,
			Err: &model.ValidationError{Field: "color", Message: "choose one of the palette colors"}}
	}

	holder, exists := r.FindByColor(c)
	var (
		saved *model.Category
		err   error
	)
	if exists {
		saved, err = r.backend.UpdateCategory(ctx, holder.ID, name, c)
		if err == nil && saved == nil {
			saved = &model.Category{ID: holder.ID, Name: name, Color: c, Type: holder.Type}
		}
	} else {
		saved, err = r.backend.CreateCategory(ctx, name, c)
	}
	if err != nil {
		op := "add"
		var id int64
		if exists {
			op, id = "update", holder.ID
		}
		log.Error("save category failed", err, "op", op, "color", c)
		return nil, &model.OpError{Op: op, Resource: resource, ID: id, Err: err}
	}

	log.Info("category saved", "id", saved.ID, "color", c, "renamed", exists)
	r.refresh(ctx)
	return saved, nil
}

// Delete removes category id, freeing its color. Schedules still pointing
// at it become uncategorized.
func (r *Registry) Delete(ctx context.Context, id int64) error {
	if err := r.backend.DeleteCategory(ctx, id); err != nil {
		log.Error("delete category failed", err, "id", id)
		return &model.OpError{Op: "delete", Resource: resource, ID: id, Err: err}
	}
	log.Info("category deleted", "id", id)
	r.refresh(ctx)
	return nil
}

// refresh bumps the trigger and refetches. A failed refetch is recorded in
// Status and does not fail the mutation that caused it.
func (r *Registry) refresh(ctx context.Context) {
	r.mu.Lock()
	r.trigger++
	r.mu.Unlock()
	_ = r.Fetch(ctx)
}
