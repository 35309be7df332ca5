// Package storage provides document storage for termeric over NATS JetStream
// KV buckets, with an in-memory implementation for tests and single-process
// runs. Every persisted resource is a JSON-LD-shaped document: a string-keyed
// map with arbitrary predicate keys plus the reserved identity key.
package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go/jetstream"
)

// IDKey is the reserved internal identity key used purely for storage
// addressing. It is distinct from the JSON-LD "@id" key.
const IDKey = "_id"

// Doc is a persisted JSON-LD-shaped document. Arbitrary extra keys are
// allowed; only IDKey, "@id", "@type", and "@context" are reserved.
type Doc map[string]any

// ID returns the document's identity key, or "".
func (d Doc) ID() string {
	s, _ := d[IDKey].(string)
	return s
}

// Clone returns a shallow copy of the document.
func (d Doc) Clone() Doc {
	out := make(Doc, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Without returns a copy of the document with the given keys removed.
func (d Doc) Without(keys ...string) Doc {
	out := d.Clone()
	for _, k := range keys {
		delete(out, k)
	}
	return out
}

// Collection is the document-store boundary. Implementations must make
// Insert atomic with respect to duplicate identity keys: a successful
// Insert is the proof that no concurrent caller stored the same identity.
type Collection interface {
	// FindID returns the document whose identity key equals id, or
	// ErrNotFound.
	FindID(ctx context.Context, id string) (Doc, error)

	// FindPrefix returns all documents whose string value under field
	// (IDKey or "@id") starts with prefix.
	FindPrefix(ctx context.Context, field, prefix string) ([]Doc, error)

	// CountPrefix counts documents matching as in FindPrefix.
	CountPrefix(ctx context.Context, field, prefix string) (int, error)

	// Insert stores a new document, failing with ErrExists if a document
	// with the same identity key is already present.
	Insert(ctx context.Context, doc Doc) error

	// Replace overwrites the document with the given identity key,
	// failing with ErrNotFound if absent.
	Replace(ctx context.Context, id string, doc Doc) error

	// Apply applies a $-operator update to the document with the given
	// identity key and returns the updated document.
	Apply(ctx context.Context, id string, update Update) (Doc, error)

	// Delete removes the document with the given identity key, returning
	// the number of documents removed (0 or 1).
	Delete(ctx context.Context, id string) (int, error)

	// Upsert stores a document, replacing any existing one with the same
	// identity key. Used by bulk boot loads.
	Upsert(ctx context.Context, doc Doc) error
}

// Store bundles the named collections the resolver operates on.
type Store struct {
	Namespaces Collection
	Terms      Collection
	Arks       Collection
	Naans      Collection
	Agents     Collection
}

// Bucket names for each collection.
const (
	BucketNamespaces = "TERMERIC_NAMESPACES"
	BucketTerms      = "TERMERIC_TERMS"
	BucketArks       = "TERMERIC_ARKS"
	BucketNaans      = "TERMERIC_NAANS"
	BucketAgents     = "TERMERIC_AGENTS"
)

// NewStore creates a Store backed by NATS JetStream KV, creating the
// buckets if they don't exist.
func NewStore(ctx context.Context, js jetstream.JetStream) (*Store, error) {
	s := &Store{}
	for _, b := range []struct {
		name string
		dst  *Collection
	}{
		{BucketNamespaces, &s.Namespaces},
		{BucketTerms, &s.Terms},
		{BucketArks, &s.Arks},
		{BucketNaans, &s.Naans},
		{BucketAgents, &s.Agents},
	} {
		kv, err := getOrCreateBucket(ctx, js, b.name)
		if err != nil {
			return nil, fmt.Errorf("create %s bucket: %w", b.name, err)
		}
		*b.dst = &kvCollection{kv: kv}
	}
	return s, nil
}

// NewMemoryStore creates a Store backed by in-process maps.
func NewMemoryStore() *Store {
	return &Store{
		Namespaces: NewMemory(),
		Terms:      NewMemory(),
		Arks:       NewMemory(),
		Naans:      NewMemory(),
		Agents:     NewMemory(),
	}
}

func getOrCreateBucket(ctx context.Context, js jetstream.JetStream, name string) (jetstream.KeyValue, error) {
	kv, err := js.KeyValue(ctx, name)
	if err == nil {
		return kv, nil
	}
	// Bucket doesn't exist, create it
	return js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      name,
		Description: fmt.Sprintf("Termeric %s storage", strings.ToLower(strings.TrimPrefix(name, "TERMERIC_"))),
		History:     5, // Keep last 5 revisions
	})
}
