package reciperepo

import (
	"context"
	"sort"
	"sync"

	"github.com/jchen-dev/recipebox/internal/domain/recipe"
)

// MemoryRepository provides an in-memory recipe store for tests/dev.
type MemoryRepository struct {
	mu      sync.RWMutex
	recipes map[string]recipe.Recipe
}

// NewMemoryRepository constructs a new in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{recipes: make(map[string]recipe.Recipe)}
}

// List returns every recipe, newest first.
func (r *MemoryRepository) List(_ context.Context) ([]recipe.Recipe, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]recipe.Recipe, 0, len(r.recipes))
	for _, rec := range r.recipes {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// GetByID fetches by ID.
func (r *MemoryRepository) GetByID(_ context.Context, id string) (recipe.Recipe, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.recipes[id]
	return rec, ok, nil
}

// Create stores the recipe record.
func (r *MemoryRepository) Create(_ context.Context, rec recipe.Recipe) (recipe.Recipe, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recipes[rec.ID] = rec
	return rec, nil
}

// Update replaces the stored record.
func (r *MemoryRepository) Update(_ context.Context, rec recipe.Recipe) (recipe.Recipe, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recipes[rec.ID] = rec
	return rec, nil
}

// Delete removes the record.
func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.recipes, id)
	return nil
}

var _ recipe.Repository = (*MemoryRepository)(nil)
