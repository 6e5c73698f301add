package cache

import (
	"testing"
	"time"

	"cvintake/internal/core"
)

func TestKeyIsCaseAndWhitespaceInsensitive(t *testing.T) {
	a := Key("  Λογιστης  με SAP ")
	b := Key("λογιστης με sap")
	if a != b {
		t.Fatalf("expected equal keys, got %q vs %q", a, b)
	}
	if len(a) != 16 {
		t.Fatalf("expected 16-char key, got %d: %q", len(a), a)
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	c := New(time.Hour)
	tree := core.FilterTree{QueryType: core.QueryStructured, Confidence: 0.9}
	c.Put("accountant with SAP", tree)

	got, ok := c.Get("accountant with SAP")
	if !ok {
		t.Fatalf("expected cache hit")
	}
	if got.QueryType != core.QueryStructured {
		t.Fatalf("unexpected cached value: %+v", got)
	}
}

func TestGetMissOnDifferentQuery(t *testing.T) {
	c := New(time.Hour)
	c.Put("accountant with SAP", core.FilterTree{})
	if _, ok := c.Get("electrician"); ok {
		t.Fatalf("expected miss for unrelated query")
	}
}

func TestExpiredEntryIsNotReturned(t *testing.T) {
	c := New(-time.Second) // already expired
	c.Put("accountant", core.FilterTree{})
	if _, ok := c.Get("accountant"); ok {
		t.Fatalf("expected expired entry to miss")
	}
}

func TestPurgeRemovesExpiredOnly(t *testing.T) {
	c := New(time.Hour)
	c.Put("fresh", core.FilterTree{})
	c.entries[Key("stale")] = entry{tree: core.FilterTree{}, expiresAt: time.Now().Add(-time.Minute)}

	removed := c.Purge(time.Now())
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if _, ok := c.Get("fresh"); !ok {
		t.Fatalf("expected fresh entry to survive purge")
	}
}
