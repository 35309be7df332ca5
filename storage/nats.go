package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go/jetstream"
)

// kvCollection implements Collection over a JetStream KV bucket.
//
// Document identities (ARK URIs) contain ':' which is not a legal KV key
// character, so keys are the identity with ':' mapped to '='. The mapping
// is character-for-character, which preserves prefix relationships and so
// keeps identity-prefix scans cheap.
type kvCollection struct {
	kv jetstream.KeyValue
}

// casAttempts bounds read-modify-write retries under concurrent updates.
const casAttempts = 10

func keyFor(id string) string  { return strings.ReplaceAll(id, ":", "=") }
func idForKey(k string) string { return strings.ReplaceAll(k, "=", ":") }

func isKeyNotFound(err error) bool {
	return errors.Is(err, jetstream.ErrKeyNotFound)
}

// FindID implements Collection.
func (c *kvCollection) FindID(ctx context.Context, id string) (Doc, error) {
	entry, err := c.kv.Get(ctx, keyFor(id))
	if err != nil {
		if isKeyNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get %s: %w", id, err)
	}
	return decodeDoc(entry.Value())
}

// FindPrefix implements Collection. A prefix on the identity key filters on
// KV keys directly; any other field requires loading each document.
func (c *kvCollection) FindPrefix(ctx context.Context, field, prefix string) ([]Doc, error) {
	keys, err := c.kv.Keys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("list keys: %w", err)
	}
	var out []Doc
	for _, key := range keys {
		if field == IDKey && !strings.HasPrefix(idForKey(key), prefix) {
			continue
		}
		entry, err := c.kv.Get(ctx, key)
		if err != nil {
			continue // deleted since listing
		}
		doc, err := decodeDoc(entry.Value())
		if err != nil {
			continue
		}
		if v, ok := doc[field].(string); ok && strings.HasPrefix(v, prefix) {
			out = append(out, doc)
		}
	}
	return out, nil
}

// CountPrefix implements Collection.
func (c *kvCollection) CountPrefix(ctx context.Context, field, prefix string) (int, error) {
	docs, err := c.FindPrefix(ctx, field, prefix)
	return len(docs), err
}

// Insert implements Collection. KV Create is atomic: exactly one of any
// number of concurrent creates for the same key succeeds.
func (c *kvCollection) Insert(ctx context.Context, doc Doc) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", doc.ID(), err)
	}
	if _, err := c.kv.Create(ctx, keyFor(doc.ID()), data); err != nil {
		if errors.Is(err, jetstream.ErrKeyExists) {
			return ErrExists
		}
		return fmt.Errorf("create %s: %w", doc.ID(), err)
	}
	return nil
}

// Replace implements Collection.
func (c *kvCollection) Replace(ctx context.Context, id string, doc Doc) error {
	key := keyFor(id)
	if _, err := c.kv.Get(ctx, key); err != nil {
		if isKeyNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("get %s: %w", id, err)
	}
	stored := doc.Clone()
	stored[IDKey] = id
	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", id, err)
	}
	if _, err := c.kv.Put(ctx, key, data); err != nil {
		return fmt.Errorf("put %s: %w", id, err)
	}
	return nil
}

// Apply implements Collection. It is a compare-and-swap loop: read the
// entry with its revision, apply the operators, and write back conditional
// on the revision, retrying when another writer got in between.
func (c *kvCollection) Apply(ctx context.Context, id string, update Update) (Doc, error) {
	key := keyFor(id)
	for attempt := 0; attempt < casAttempts; attempt++ {
		entry, err := c.kv.Get(ctx, key)
		if err != nil {
			if isKeyNotFound(err) {
				return nil, ErrNotFound
			}
			return nil, fmt.Errorf("get %s: %w", id, err)
		}
		doc, err := decodeDoc(entry.Value())
		if err != nil {
			return nil, err
		}
		updated, err := applyUpdate(doc, update)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(updated)
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", id, err)
		}
		_, err = c.kv.Update(ctx, key, data, entry.Revision())
		if err == nil {
			return updated, nil
		}
		if !errors.Is(err, jetstream.ErrKeyExists) {
			return nil, fmt.Errorf("update %s: %w", id, err)
		}
		// Revision conflict, re-read and retry.
	}
	return nil, fmt.Errorf("update %s: revision conflicts exhausted %d attempts", id, casAttempts)
}

// Delete implements Collection.
func (c *kvCollection) Delete(ctx context.Context, id string) (int, error) {
	key := keyFor(id)
	if _, err := c.kv.Get(ctx, key); err != nil {
		if isKeyNotFound(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("get %s: %w", id, err)
	}
	if err := c.kv.Purge(ctx, key); err != nil {
		return 0, fmt.Errorf("purge %s: %w", id, err)
	}
	return 1, nil
}

// Upsert implements Collection.
func (c *kvCollection) Upsert(ctx context.Context, doc Doc) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", doc.ID(), err)
	}
	if _, err := c.kv.Put(ctx, keyFor(doc.ID()), data); err != nil {
		return fmt.Errorf("put %s: %w", doc.ID(), err)
	}
	return nil
}

func decodeDoc(data []byte) (Doc, error) {
	var doc Doc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	return doc, nil
}
