package ark

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/polyneme/termeric/idgen"
	"github.com/polyneme/termeric/storage"
)

// bladeSizes is the ascending (encoded length, capacity) table the
// allocator sizes blades from. Capacity is half of 32^n, reserving
// headroom so collisions stay rare even near the chosen size.
var bladeSizes = []struct {
	length   int
	capacity uint64
}{
	{4, 524_288},            // 32^4 / 2
	{5, 16_777_216},         // 32^5 / 2
	{6, 536_870_912},        // 32^6 / 2
	{7, 17_179_869_184},     // 32^7 / 2
	{8, 549_755_813_888},    // 32^8 / 2
	{9, 17_592_186_044_416}, // 32^9 / 2
}

// maxBladeLength is used when the sizing table is exhausted.
const maxBladeLength = 10

// bladeLength returns the smallest table length whose capacity exceeds the
// number of identifiers that will exist after the next mint.
func bladeLength(nextCount uint64) int {
	for _, s := range bladeSizes {
		if nextCount < s.capacity {
			return s.length
		}
	}
	return maxBladeLength
}

// Minter allocates fresh identifiers under a NAAN+shoulder prefix.
//
// It does not validate shoulder registration; callers consult the Registry
// first. Uniqueness rests solely on the registration insert: the store's
// atomic duplicate rejection is the proof no concurrent mint produced the
// same identifier, so there is no check-then-insert race.
type Minter struct {
	arks   storage.Collection
	logger *slog.Logger
}

// NewMinter creates a Minter registering identifiers in the arks collection.
func NewMinter(arks storage.Collection, logger *slog.Logger) *Minter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Minter{arks: arks, logger: logger}
}

// Mint generates a fresh identifier "ark:<naan>/<shoulder><blade>" not
// already present in the allocation store and registers it. On a collision
// it regenerates; collisions are expected to be exceedingly rare given the
// sizing policy but are handled, not assumed impossible.
func (m *Minter) Mint(ctx context.Context, naan Naan, shoulder Shoulder) (string, error) {
	prefix := naan.ARK(shoulder.String())
	count, err := m.arks.CountPrefix(ctx, storage.IDKey, prefix)
	if err != nil {
		return "", fmt.Errorf("count existing under %s: %w", prefix, err)
	}
	// One extra character for the blade checksum.
	length := bladeLength(uint64(count)+1) + 1

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		blade, err := idgen.Generate(length, 0, true)
		if err != nil {
			return "", fmt.Errorf("generate blade: %w", err)
		}
		id := prefix + blade
		switch err := m.arks.Insert(ctx, storage.Doc{storage.IDKey: id}); {
		case err == nil:
			return id, nil
		case errors.Is(err, storage.ErrExists):
			m.logger.Warn("identifier collision, regenerating",
				slog.String("naan", naan.String()),
				slog.String("shoulder", shoulder.String()),
				slog.Int("blade_length", length))
		default:
			return "", fmt.Errorf("register %s: %w", id, err)
		}
	}
}
