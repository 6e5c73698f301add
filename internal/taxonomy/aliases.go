package taxonomy

import (
	"context"
	"sync"
	"time"
)

// Kind is one of the four taxonomy domains the cascade maps into.
type Kind string

const (
	KindSkill          Kind = "skill"
	KindCertification  Kind = "certification"
	KindRole           Kind = "role"
	KindSoftware       Kind = "software"
)

// CanonicalEntry is one taxonomy row as loaded for the alias cache: a
// canonical id plus every display string (both languages, aliases,
// abbreviations) that should resolve to it.
type CanonicalEntry struct {
	ID      string
	NameEN  string
	NameEL  string
	Aliases []string
}

// AliasSource loads the canonical entries for a kind from the relational
// store (the four taxonomy tables: name in both languages, aliases,
// abbreviations).
type AliasSource interface {
	LoadEntries(ctx context.Context, kind Kind) ([]CanonicalEntry, error)
}

// snapshot is one immutable, read-only alias index for a single kind.
type snapshot struct {
	byNormalized map[string]CanonicalEntry // exact lookup (tier 1)
	entries      []CanonicalEntry          // for substring/fuzzy/semantic scans
	loadedAt     time.Time
}

// Cache is the process-wide, read-mostly alias index. It is a
// single owner of read snapshots, refreshed on a TTL; readers may use a
// stale snapshot while a refresh is in flight (last writer wins, no
// correctness impact).
type Cache struct {
	source AliasSource
	ttl    time.Duration

	mu        sync.RWMutex
	snapshots map[Kind]*snapshot
	refreshing map[Kind]bool
}

// NewCache builds an alias cache with the given TTL (config.Taxonomy.AliasCacheTTL).
func NewCache(source AliasSource, ttl time.Duration) *Cache {
	return &Cache{
		source:     source,
		ttl:        ttl,
		snapshots:  make(map[Kind]*snapshot),
		refreshing: make(map[Kind]bool),
	}
}

// Snapshot returns the current (possibly stale) snapshot for a kind,
// kicking off a background refresh if it is missing or stale. The first
// caller for a never-loaded kind blocks until the initial load completes;
// subsequent staleness only triggers a background refresh.
func (c *Cache) Snapshot(ctx context.Context, kind Kind) (*snapshot, error) {
	c.mu.RLock()
	snap := c.snapshots[kind]
	c.mu.RUnlock()

	if snap == nil {
		if err := c.refresh(ctx, kind); err != nil {
			return nil, err
		}
		c.mu.RLock()
		snap = c.snapshots[kind]
		c.mu.RUnlock()
		return snap, nil
	}

	if time.Since(snap.loadedAt) > c.ttl {
		c.mu.Lock()
		already := c.refreshing[kind]
		if !already {
			c.refreshing[kind] = true
		}
		c.mu.Unlock()
		if !already {
			go func() {
				_ = c.refresh(context.Background(), kind)
				c.mu.Lock()
				c.refreshing[kind] = false
				c.mu.Unlock()
			}()
		}
	}
	return snap, nil
}

func (c *Cache) refresh(ctx context.Context, kind Kind) error {
	entries, err := c.source.LoadEntries(ctx, kind)
	if err != nil {
		return err
	}
	byNorm := make(map[string]CanonicalEntry, len(entries)*2)
	for _, e := range entries {
		for _, name := range append([]string{e.NameEN, e.NameEL}, e.Aliases...) {
			if name == "" {
				continue
			}
			byNorm[normalize(name)] = e
		}
	}
	snap := &snapshot{byNormalized: byNorm, entries: entries, loadedAt: time.Now()}
	c.mu.Lock()
	c.snapshots[kind] = snap
	c.mu.Unlock()
	return nil
}
