package ark

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polyneme/termeric/storage"
)

func TestMintShape(t *testing.T) {
	ctx := context.Background()
	m := NewMinter(storage.NewMemory(), nil)

	id, err := m.Mint(ctx, Naan(57802), Shoulder("fk1"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "ark:57802/fk1"))

	basename := strings.TrimPrefix(id, "ark:57802/")
	assert.True(t, ValidBasename(basename), "minted basename %q must checksum-validate", basename)
}

func TestMintConcurrentDistinct(t *testing.T) {
	ctx := context.Background()
	arks := storage.NewMemory()
	m := NewMinter(arks, nil)

	const n = 64
	var wg sync.WaitGroup
	ids := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := m.Mint(ctx, Naan(57802), Shoulder("fk1"))
			if err != nil {
				t.Error(err)
				return
			}
			ids <- id
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]struct{})
	for id := range ids {
		_, dup := seen[id]
		assert.False(t, dup, "duplicate identifier %s", id)
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, n)
}

func TestMintRegistersIdentifier(t *testing.T) {
	ctx := context.Background()
	arks := storage.NewMemory()
	m := NewMinter(arks, nil)

	id, err := m.Mint(ctx, Naan(57802), Shoulder("fk1"))
	require.NoError(t, err)

	// The registration insert itself is the uniqueness proof.
	err = arks.Insert(ctx, storage.Doc{storage.IDKey: id})
	assert.ErrorIs(t, err, storage.ErrExists)
}

func TestBladeLengthTable(t *testing.T) {
	tests := []struct {
		next uint64
		want int
	}{
		{1, 4},
		{524_287, 4},
		{524_288, 5}, // 32^4 / 2 exhausted
		{16_777_215, 5},
		{16_777_216, 6},
		{1 << 62, maxBladeLength},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, bladeLength(tt.next), "next count %d", tt.next)
	}
}

func TestMintSizesFromExistingVolume(t *testing.T) {
	ctx := context.Background()
	arks := storage.NewMemory()
	m := NewMinter(arks, nil)

	// Seed registrations under the shoulder so the prefix count is what
	// drives sizing, then check the minted blade length matches the table.
	for i := 0; i < 10; i++ {
		require.NoError(t, arks.Insert(ctx, storage.Doc{
			storage.IDKey: fmt.Sprintf("ark:57802/fk1seed%03d", i),
		}))
	}

	id, err := m.Mint(ctx, Naan(57802), Shoulder("fk1"))
	require.NoError(t, err)

	blade := strings.TrimPrefix(id, "ark:57802/fk1")
	assert.Len(t, blade, bladeLength(11)+1, "encoded length plus checksum character")
}

func TestMintHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := NewMinter(storage.NewMemory(), nil)
	_, err := m.Mint(ctx, Naan(57802), Shoulder("fk1"))
	assert.Error(t, err)
}

func TestMintRetriesOnCollision(t *testing.T) {
	ctx := context.Background()
	arks := &collideOnce{Memory: storage.NewMemory()}
	m := NewMinter(arks, nil)

	id, err := m.Mint(ctx, Naan(57802), Shoulder("fk1"))
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, 2, arks.inserts, "first insert collides, second succeeds")
}

// collideOnce fails the first Insert with ErrExists to simulate a blade
// collision.
type collideOnce struct {
	*storage.Memory
	inserts int
}

func (c *collideOnce) Insert(ctx context.Context, doc storage.Doc) error {
	c.inserts++
	if c.inserts == 1 {
		return storage.ErrExists
	}
	return c.Memory.Insert(ctx, doc)
}
