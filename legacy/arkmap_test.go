package legacy

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polyneme/termeric/ark"
	"github.com/polyneme/termeric/storage"
)

func TestReadCSV(t *testing.T) {
	in := strings.NewReader(
		"ark,url\n" +
			"ark:57802/fk4abc1,https://example.org/one\n" +
			"ark:57802/fk4def2,https://example.org/two\n")

	entries, err := ReadCSV(in)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "ark:57802/fk4abc1", entries[0].Ark)
	assert.Equal(t, "https://example.org/two", entries[1].URL)
}

func TestReadCSVRejectsNonArk(t *testing.T) {
	in := strings.NewReader("ark,url\nnot-an-ark,https://example.org\n")
	_, err := ReadCSV(in)
	assert.Error(t, err)
}

func TestReadShoulderCSV(t *testing.T) {
	in := strings.NewReader(
		"naan,shoulder\n" +
			"57802,fk1\n" +
			"57802,fk4\n" +
			"99999,p0\n")

	shoulders, err := ReadShoulderCSV(in)
	require.NoError(t, err)
	require.Len(t, shoulders, 2)
	assert.Equal(t, []ark.Shoulder{"fk1", "fk4"}, shoulders[ark.Naan(57802)])
	assert.Equal(t, []ark.Shoulder{"p0"}, shoulders[ark.Naan(99999)])
}

func TestMapLookup(t *testing.T) {
	ctx := context.Background()
	arks := storage.NewMemory()
	require.NoError(t, arks.Upsert(ctx, storage.Doc{
		storage.IDKey: "ark:57802/fk4abc1",
		URLKey:        "https://example.org/one",
	}))
	// Minted arks carry no target URL and must not shadow anything.
	require.NoError(t, arks.Upsert(ctx, storage.Doc{
		storage.IDKey: "ark:57802/fk4zzz9",
	}))

	m := NewMap(arks, nil)

	url, ok, err := m.Lookup(ctx, ark.Naan(57802), "fk4abc1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "https://example.org/one", url)

	_, ok, err = m.Lookup(ctx, ark.Naan(57802), "fk4zzz9")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMapInvalidate(t *testing.T) {
	ctx := context.Background()
	arks := storage.NewMemory()
	m := NewMap(arks, nil)

	_, ok, err := m.Lookup(ctx, ark.Naan(57802), "fk4abc1")
	require.NoError(t, err)
	require.False(t, ok)

	// A write after the cache filled is invisible until invalidation.
	require.NoError(t, arks.Upsert(ctx, storage.Doc{
		storage.IDKey: "ark:57802/fk4abc1",
		URLKey:        "https://example.org/one",
	}))
	_, ok, _ = m.Lookup(ctx, ark.Naan(57802), "fk4abc1")
	assert.False(t, ok)

	m.Invalidate()
	_, ok, _ = m.Lookup(ctx, ark.Naan(57802), "fk4abc1")
	assert.True(t, ok)
}

func TestBootstrap(t *testing.T) {
	ctx := context.Background()
	arks := storage.NewMemory()

	require.NoError(t, Bootstrap(ctx, arks, "testdata/ark_map.csv"))

	doc, err := arks.FindID(ctx, "ark:57802/fk4wnsp101")
	require.NoError(t, err)
	assert.Equal(t, "https://n2t.net/ark:57802/fk4wnsp101", doc[URLKey])

	// Re-running is idempotent.
	require.NoError(t, Bootstrap(ctx, arks, "testdata/ark_map.csv"))
	n, err := arks.CountPrefix(ctx, storage.IDKey, "ark:")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestBootstrapShouldersAdditive(t *testing.T) {
	ctx := context.Background()
	naans := storage.NewMemory()
	registry := ark.NewRegistry(naans)

	require.NoError(t, registry.Register(ctx, ark.Naan(57802), "zz1"))
	require.NoError(t, BootstrapShoulders(ctx, registry, "testdata/ark_naan_shoulder_map.csv"))

	got, err := registry.Shoulders(ctx, ark.Naan(57802))
	require.NoError(t, err)
	assert.Contains(t, got, ark.Shoulder("fk1"))
	assert.Contains(t, got, ark.Shoulder("zz1"),
		"runtime registrations survive reconciliation")
}

func TestWatchReloadsOnRenameReplace(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dir := t.TempDir()
	arkMapPath := filepath.Join(dir, "ark_map.csv")
	replace := func(body string) {
		// Atomic swap, the write pattern editors and config management use.
		tmp := filepath.Join(dir, "ark_map.csv.tmp")
		require.NoError(t, os.WriteFile(tmp, []byte(body), 0o644))
		require.NoError(t, os.Rename(tmp, arkMapPath))
	}
	replace("ark,url\nark:57802/fk4abc1,https://example.org/one\n")

	arks := storage.NewMemory()
	m := NewMap(arks, nil)
	require.NoError(t, Bootstrap(ctx, arks, arkMapPath))

	done := make(chan error, 1)
	go func() { done <- Watch(ctx, m, nil, arkMapPath, "") }()

	// Let the watcher establish before swapping the file underneath it.
	time.Sleep(100 * time.Millisecond)
	replace("ark,url\n" +
		"ark:57802/fk4abc1,https://example.org/one\n" +
		"ark:57802/fk4def2,https://example.org/two\n")

	assert.Eventually(t, func() bool {
		url, ok, err := m.Lookup(ctx, ark.Naan(57802), "fk4def2")
		return err == nil && ok && url == "https://example.org/two"
	}, 5*time.Second, 20*time.Millisecond, "reload after rename-replace")

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
