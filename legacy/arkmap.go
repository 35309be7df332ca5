// Package legacy maintains the bulk-loaded table mapping legacy opaque
// identifiers directly to external URLs, plus the CSV bootstrap for it and
// for the NAAN shoulder registry. The table is consulted before any
// database-backed resolution so historical URLs keep working.
package legacy

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/polyneme/termeric/ark"
	"github.com/polyneme/termeric/storage"
)

// URLKey is the document key holding a legacy target URL in the arks
// collection.
const URLKey = "_t"

// Entry is one legacy identifier→URL mapping.
type Entry struct {
	Ark string
	URL string
}

// ReadCSV parses an ark_map.csv stream: a header line then ark,url rows.
func ReadCSV(r io.Reader) ([]Entry, error) {
	reader := csv.NewReader(r)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read ark map csv: %w", err)
	}
	var out []Entry
	for i, rec := range records {
		if i == 0 || len(rec) < 2 {
			continue // header
		}
		if !strings.HasPrefix(rec[0], "ark:") {
			return nil, fmt.Errorf("ark map row %d: %q is not an ark", i, rec[0])
		}
		out = append(out, Entry{Ark: rec[0], URL: rec[1]})
	}
	return out, nil
}

// ReadShoulderCSV parses an ark_naan_shoulder_map.csv stream: a header
// line then naan,shoulder rows, grouped per NAAN.
func ReadShoulderCSV(r io.Reader) (map[ark.Naan][]ark.Shoulder, error) {
	reader := csv.NewReader(r)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read shoulder map csv: %w", err)
	}
	out := make(map[ark.Naan][]ark.Shoulder)
	for i, rec := range records {
		if i == 0 || len(rec) < 2 {
			continue
		}
		naan, err := ark.ParseNaan(rec[0])
		if err != nil {
			return nil, fmt.Errorf("shoulder map row %d: %w", i, err)
		}
		shoulder, err := ark.ParseShoulder(rec[1])
		if err != nil {
			return nil, fmt.Errorf("shoulder map row %d: %w", i, err)
		}
		out[naan] = append(out[naan], shoulder)
	}
	return out, nil
}

// Map is the process-wide read-through cache over the legacy mappings in
// the arks collection. Concurrent readers are safe; mutations invalidate
// and the next reader repopulates.
type Map struct {
	arks   storage.Collection
	logger *slog.Logger

	mu    sync.RWMutex
	cache map[ark.Naan]map[string]string // ark identifier → URL
}

// NewMap creates a Map over the arks collection.
func NewMap(arks storage.Collection, logger *slog.Logger) *Map {
	if logger == nil {
		logger = slog.Default()
	}
	return &Map{
		arks:   arks,
		logger: logger,
		cache:  make(map[ark.Naan]map[string]string),
	}
}

/// Lookup returns the legacy URL for "ark:<naan>/<basename>", if mapped.
func (m *Map) Lookup(ctx context.Context, naan ark.Naan, basename string) (string, bool, error) {
	m.mu.RLock()
	byArk, ok := m.cache[naan]
	m.mu.RUnlock()
	if !ok {
		var err error
		byArk, err = m.load(ctx, naan)
		if err != nil {
			return "", false, err
		}
	}
	url, ok := byArk[naan.ARK(basename)]
	return url, ok, nil
}

// Invalidate drops the cache, e.g. after a mint or a CSV reload.
func (m *Map) Invalidate() {
	m.mu.Lock()
	m.cache = make(map[ark.Naan]map[string]string)
	m.mu.Unlock()
}

func (m *Map) load(ctx context.Context, naan ark.Naan) (map[string]string, error) {
	docs, err := m.arks.FindPrefix(ctx, storage.IDKey, "ark:"+naan.String()+"/")
	if err != nil {
		return nil, fmt.Errorf("load ark map for naan %s: %w", naan, err)
	}
	byArk := make(map[string]string)
	for _, doc := range docs {
		if url, ok := doc[URLKey].(string); ok {
			byArk[doc.ID()] = url
		}
	}
	m.mu.Lock()
	m.cache[naan] = byArk
	m.mu.Unlock()
	return byArk, nil
}

// Bootstrap bulk-upserts the CSV mappings into the arks collection. The
// load is additive and not atomic: a failure partway leaves earlier rows
// committed, which is the accepted semantic for boot reconciliation.
func Bootstrap(ctx context.Context, arks storage.Collection, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open ark map: %w", err)
	}
	defer f.Close()

	entries, err := ReadCSV(f)
	if err != nil {
		return err
	}
	for _, e := range entries {
		doc := storage.Doc{storage.IDKey: e.Ark, URLKey: e.URL}
		if err := arks.Upsert(ctx, doc); err != nil {
			return fmt.Errorf("upsert %s: %w", e.Ark, err)
		}
	}
	return nil
}

// BootstrapShoulders additively reconciles the shoulder CSV into the
// registry. Shoulders registered at runtime are never removed.
func BootstrapShoulders(ctx context.Context, registry *ark.Registry, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open shoulder map: %w", err)
	}
	defer f.Close()

	shoulders, err := ReadShoulderCSV(f)
	if err != nil {
		return err
	}
	return registry.Reconcile(ctx, shoulders)
}

// Watch re-runs the bootstrap loads whenever either CSV changes on disk,
// then invalidates the caches. It blocks until ctx is done.
func Watch(ctx context.Context, m *Map, registry *ark.Registry, arkMapPath, shoulderMapPath string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the parent directories rather than the files: an atomic
	// rename-replace removes the watched inode, which would end the watch
	// for good. Directory watches survive the swap.
	watched := make(map[string]bool)
	for _, p := range []string{arkMapPath, shoulderMapPath} {
		if p == "" {
			continue
		}
		dir := filepath.Dir(p)
		if watched[dir] {
			continue
		}
		watched[dir] = true
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	arkMap, shoulderMap := filepath.Clean(arkMapPath), filepath.Clean(shoulderMapPath)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Rename) {
				continue
			}
			name := filepath.Clean(event.Name)
			if name != arkMap && name != shoulderMap {
				continue
			}
			m.logger.Info("bootstrap file changed, reloading", slog.String("path", event.Name))
			switch name {
			case arkMap:
				if err := Bootstrap(ctx, m.arks, arkMapPath); err != nil {
					m.logger.Error("reload ark map", slog.String("error", err.Error()))
					continue
				}
				m.Invalidate()
			case shoulderMap:
				if err := BootstrapShoulders(ctx, registry, shoulderMapPath); err != nil {
					m.logger.Error("reload shoulder map", slog.String("error", err.Error()))
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			m.logger.Error("watcher error", slog.String("error", err.Error()))
		}
	}
}
