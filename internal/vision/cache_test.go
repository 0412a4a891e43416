package vision

import (
	"testing"

	"github.com/gridsight/engine/internal/geom"
)

func TestCache_RoundTrip(t *testing.T) {
	c := NewCache(8)
	origin := geom.Point{X: 10, Y: 20}
	poly := []geom.Point{{X: 1}, {X: 2}}

	if _, ok := c.Get(origin, 1, 100); ok {
		t.Fatal("unexpected hit on empty cache")
	}
	c.Put(origin, 1, 100, poly)
	got, ok := c.Get(origin, 1, 100)
	if !ok || len(got) != 2 {
		t.Fatalf("cached polygon not returned: ok=%v len=%d", ok, len(got))
	}
}

func TestCache_VersionAndRadiusDiscriminate(t *testing.T) {
	c := NewCache(8)
	origin := geom.Point{X: 10, Y: 20}
	c.Put(origin, 1, 100, []geom.Point{{X: 1}})

	if _, ok := c.Get(origin, 2, 100); ok {
		t.Fatal("stale version must miss")
	}
	if _, ok := c.Get(origin, 1, 200); ok {
		t.Fatal("different radius must miss")
	}
	if _, ok := c.Get(geom.Point{X: 10, Y: 21}, 1, 100); ok {
		t.Fatal("different origin must miss")
	}
}

func TestCache_ClearsAtCap(t *testing.T) {
	c := NewCache(2)
	c.Put(geom.Point{X: 1}, 1, 100, nil)
	c.Put(geom.Point{X: 2}, 1, 100, nil)
	c.Put(geom.Point{X: 3}, 1, 100, nil)

	if c.Len() != 1 {
		t.Fatalf("Len = %d after cap clear, want 1", c.Len())
	}
	if _, ok := c.Get(geom.Point{X: 1}, 1, 100); ok {
		t.Fatal("entries from before the clear should be gone")
	}
	if _, ok := c.Get(geom.Point{X: 3}, 1, 100); !ok {
		t.Fatal("entry stored after the clear should be present")
	}
}
