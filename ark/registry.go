package ark

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/polyneme/termeric/storage"
)

// Registry answers which shoulders are registered per NAAN, and whether a
// NAAN is served by this resolver at all.
//
// Lookups are cached process-wide for concurrent readers; every mutation
// invalidates the cache and lets the next reader repopulate it. Boot-time
// reconciliation is additive only: it re-asserts the configured shoulder
// list without clobbering shoulders registered at runtime.
type Registry struct {
	naans storage.Collection

	mu    sync.RWMutex
	cache map[Naan]map[Shoulder]struct{}
}

// NewRegistry creates a Registry over the naans collection.
func NewRegistry(naans storage.Collection) *Registry {
	return &Registry{
		naans: naans,
		cache: make(map[Naan]map[Shoulder]struct{}),
	}
}

// Serves reports whether this resolver is a name mapping authority for the
// given NAAN.
func (r *Registry) Serves(ctx context.Context, naan Naan) (bool, error) {
	r.mu.RLock()
	_, cached := r.cache[naan]
	r.mu.RUnlock()
	if cached {
		return true, nil
	}
	_, err := r.shouldersUncached(ctx, naan)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Shoulders returns the registered shoulder set for a NAAN.
func (r *Registry) Shoulders(ctx context.Context, naan Naan) (map[Shoulder]struct{}, error) {
	r.mu.RLock()
	set, ok := r.cache[naan]
	r.mu.RUnlock()
	if ok {
		return set, nil
	}
	return r.shouldersUncached(ctx, naan)
}

// IsRegistered reports whether the shoulder is in the NAAN's registered
// set. A false return with a nil error is the caller-facing validation
// condition, not a not-found.
func (r *Registry) IsRegistered(ctx context.Context, naan Naan, shoulder Shoulder) (bool, error) {
	set, err := r.Shoulders(ctx, naan)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	_, ok := set[shoulder]
	return ok, nil
}

// CheckRegistered returns ErrUnregisteredShoulder (with the registered set
// named in the message) when the shoulder is not registered for the NAAN.
func (r *Registry) CheckRegistered(ctx context.Context, naan Naan, shoulder Shoulder) error {
	ok, err := r.IsRegistered(ctx, naan, shoulder)
	if err != nil {
		return err
	}
	if !ok {
		set, _ := r.Shoulders(ctx, naan)
		names := make([]string, 0, len(set))
		for s := range set {
			names = append(names, s.String())
		}
		return fmt.Errorf("%w: shoulder %s, naan %s (must be one of %v)",
			ErrUnregisteredShoulder, shoulder, naan, names)
	}
	return nil
}

// Register adds a shoulder to a NAAN's set, creating the NAAN record if
// needed, and invalidates the cache.
func (r *Registry) Register(ctx context.Context, naan Naan, shoulders ...Shoulder) error {
	each := make([]any, len(shoulders))
	for i, s := range shoulders {
		each[i] = s.String()
	}
	update := storage.Update{
		"$addToSet": map[string]any{
			"shoulders": map[string]any{"$each": each},
		},
	}
	_, err := r.naans.Apply(ctx, naan.String(), update)
	if errors.Is(err, storage.ErrNotFound) {
		err = r.naans.Insert(ctx, storage.Doc{
			storage.IDKey: naan.String(),
			"shoulders":   each,
		})
		if errors.Is(err, storage.ErrExists) {
			// Lost a create race, the record is there now.
			_, err = r.naans.Apply(ctx, naan.String(), update)
		}
	}
	if err != nil {
		return fmt.Errorf("register shoulders for naan %s: %w", naan, err)
	}
	r.Invalidate()
	return nil
}

// Reconcile additively asserts the given NAAN→shoulders map, as loaded
// from the bootstrap CSV. Shoulders registered at runtime survive.
func (r *Registry) Reconcile(ctx context.Context, shoulders map[Naan][]Shoulder) error {
	for naan, set := range shoulders {
		if err := r.Register(ctx, naan, set...); err != nil {
			return err
		}
	}
	return nil
}

// Invalidate drops the process-wide cache; the next lookup repopulates it.
func (r *Registry) Invalidate() {
	r.mu.Lock()
	r.cache = make(map[Naan]map[Shoulder]struct{})
	r.mu.Unlock()
}

func (r *Registry) shouldersUncached(ctx context.Context, naan Naan) (map[Shoulder]struct{}, error) {
	doc, err := r.naans.FindID(ctx, naan.String())
	if err != nil {
		return nil, err
	}
	set := make(map[Shoulder]struct{})
	if list, ok := doc["shoulders"].([]any); ok {
		for _, v := range list {
			if s, ok := v.(string); ok {
				set[Shoulder(s)] = struct{}{}
			}
		}
	}
	r.mu.Lock()
	r.cache[naan] = set
	r.mu.Unlock()
	return set, nil
}
