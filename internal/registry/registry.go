// Package registry maps role names to page objects bound to the active page.
// The whole mapping is rebuilt whenever the active page changes, so a page
// object never outlives the page it drives.
package registry

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/xkilldash9x/crosscheck-cli/internal/browser"
	"github.com/xkilldash9x/crosscheck-cli/internal/observability"
)

var (
	ErrUnknownRole   = errors.New("unknown page object role")
	ErrDuplicateRole = errors.New("page object role already registered")
	ErrNotBound      = errors.New("registry not bound to a page")
	// ErrStaleBinding means the bound page was closed without a rebuild.
	ErrStaleBinding = errors.New("page object bound to a closed page")
	ErrWrongType    = errors.New("page object has unexpected type")
)

// Factory builds the page object for a role on top of page.
type Factory func(page browser.Page) any

// Registry is safe for concurrent readers; rebuilds swap the mapping atomically.
type Registry struct {
	logger *zap.Logger

	mu         sync.RWMutex
	roles      []string
	factories  map[string]Factory
	objects    map[string]any
	page       browser.Page
	generation uint64
}

func New(logger *zap.Logger) *Registry {
	return &Registry{
		logger:    logger.Named("registry"),
		factories: make(map[string]Factory),
	}
}

// Register adds a role. Registration order is kept for Roles.
func (r *Registry) Register(role string, factory Factory) error {
	if role == "" || factory == nil {
		return fmt.Errorf("register %q: role and factory are required", role)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[role]; exists {
		return fmt.Errorf("register %q: %w", role, ErrDuplicateRole)
	}
	r.roles = append(r.roles, role)
	r.factories[role] = factory
	return nil
}

// MustRegister is Register for static wiring; it panics on error.
func (r *Registry) MustRegister(role string, factory Factory) *Registry {
	if err := r.Register(role, factory); err != nil {
		panic(err)
	}
	return r
}

// Rebuild constructs one page object per role bound to page and replaces the
// previous mapping in a single swap.
func (r *Registry) Rebuild(page browser.Page) error {
	if page == nil || page.IsClosed() {
		return fmt.Errorf("rebuild: %w", browser.ErrClosed)
	}

	r.mu.RLock()
	roles := append([]string(nil), r.roles...)
	factories := make(map[string]Factory, len(r.factories))
	for k, v := range r.factories {
		factories[k] = v
	}
	r.mu.RUnlock()

	objects := make(map[string]any, len(roles))
	for _, role := range roles {
		objects[role] = factories[role](page)
	}

	r.mu.Lock()
	r.objects = objects
	r.page = page
	r.generation++
	gen := r.generation
	r.mu.Unlock()

	r.logger.Debug("Registry rebuilt.", zap.String(observability.KeyPage, page.ID()), zap.Uint64("generation", gen), zap.Int("roles", len(roles)))
	return nil
}

// Get returns the page object for role bound to the current page.
func (r *Registry) Get(role string) (any, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.factories[role]; !ok {
		return nil, fmt.Errorf("%q: %w", role, ErrUnknownRole)
	}
	if r.page == nil {
		return nil, fmt.Errorf("%q: %w", role, ErrNotBound)
	}
	if r.page.IsClosed() {
		return nil, fmt.Errorf("%q on page %s: %w", role, r.page.ID(), ErrStaleBinding)
	}
	obj, ok := r.objects[role]
	if !ok {
		// Registered after the last rebuild.
		return nil, fmt.Errorf("%q: %w", role, ErrNotBound)
	}
	return obj, nil
}

// Lookup is the typed form of Get.
func Lookup[T any](r *Registry, role string) (T, error) {
	var zero T
	obj, err := r.Get(role)
	if err != nil {
		return zero, err
	}
	typed, ok := obj.(T)
	if !ok {
		return zero, fmt.Errorf("%q is %T, want %T: %w", role, obj, zero, ErrWrongType)
	}
	return typed, nil
}

// Roles lists the registered roles in registration order.
func (r *Registry) Roles() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.roles...)
}

// Generation counts completed rebuilds.
func (r *Registry) Generation() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.generation
}

// BoundPage returns the page the current mapping is bound to, or nil.
func (r *Registry) BoundPage() browser.Page {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.page
}
