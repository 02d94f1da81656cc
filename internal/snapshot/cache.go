// Package snapshot caches the reduced latest-pair table so page loads do not
// re-read and re-reduce the full all-sites feed.
package snapshot

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/dgraph-io/badger/v4"

	"github.com/wastewater-dashboards/surveillance-review/internal/models"
)

// DefaultTTL matches how long the dashboards treated a local latest_obs.csv
// as fresh.
const DefaultTTL = 24 * time.Hour

type Config struct {
	Path     string
	InMemory bool
	TTL      time.Duration
}

// Entry is one cached reduction.
type Entry struct {
	Built time.Time              `json:"built"`
	Rows  []models.LatestPairRow `json:"rows"`
}

// Cache is a badger-backed TTL store keyed by source fingerprint.
type Cache struct {
	db  *badger.DB
	ttl time.Duration
	now func() time.Time
}

func Open(cfg Config) (*Cache, error) {
	opts := badger.DefaultOptions(cfg.Path).
		WithNumVersionsToKeep(1).
		WithMemTableSize(16 << 20).
		WithValueLogFileSize(64 << 20).
		WithLogger(nil)
	if cfg.InMemory {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open snapshot cache: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{db: db, ttl: ttl, now: time.Now}, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

// Key fingerprints a source definition, e.g. driver, blob key and encodings.
func Key(parts ...string) uint64 {
	return xxhash.Sum64String(strings.Join(parts, "\x00"))
}

func encodeKey(key uint64) []byte {
	buf := make([]byte, 0, 17)
	buf = append(buf, "latest/"...)
	return binary.BigEndian.AppendUint64(buf, key)
}

// Get returns a cached entry younger than the TTL.
func (c *Cache) Get(key uint64) (Entry, bool, error) {
	var entry Entry
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(encodeKey(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("read snapshot: %w", err)
	}
	if c.now().Sub(entry.Built) >= c.ttl {
		return Entry{}, false, nil
	}
	return entry, true, nil
}

// Put stores an entry; badger drops it once the TTL passes.
func (c *Cache) Put(key uint64, entry Entry) error {
	val, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(encodeKey(key), val).WithTTL(c.ttl))
	})
}

// Invalidate removes an entry so the next lookup rebuilds it.
func (c *Cache) Invalidate(key uint64) error {
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(encodeKey(key))
	})
}
