package object

import "testing"

type countingRecorder struct {
	committed   int
	discarded   map[DiscardReason]int
	refused     int
	cacheHits   int
	cacheMisses int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{discarded: make(map[DiscardReason]int)}
}

func (r *countingRecorder) WriteCommitted(string) { r.committed++ }
func (r *countingRecorder) WriteDiscarded(_ string, reason DiscardReason) {
	r.discarded[reason]++
}
func (r *countingRecorder) ExtensionRefused() { r.refused++ }
func (r *countingRecorder) LookupCache(hit bool) {
	if hit {
		r.cacheHits++
	} else {
		r.cacheMisses++
	}
}

func TestLookupCacheHitsAndInvalidation(t *testing.T) {
	rec := newCountingRecorder()
	realm := NewRealm(WithLookupCache(true), WithRecorder(rec))
	root := realm.Create(Props{"x": Int(1)})
	mid := Extend(root, nil)
	leaf := Extend(mid, nil)

	if leaf.Get("x").AsNumber() != 1 {
		t.Fatalf("unexpected first read")
	}
	if leaf.Get("x").AsNumber() != 1 {
		t.Fatalf("unexpected cached read")
	}
	stats := realm.CacheStats()
	if !stats.Enabled || stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("stats after two reads = %+v, want 1 hit 1 miss", stats)
	}
	if stats.DeepHits != 1 {
		t.Errorf("expected the hit two levels up to count as deep, got %d", stats.DeepHits)
	}
	if rec.cacheHits != 1 || rec.cacheMisses != 1 {
		t.Errorf("recorder saw %d hits %d misses", rec.cacheHits, rec.cacheMisses)
	}

	// A write anywhere in the realm invalidates cached walks
	mid.Set("x", Int(2))
	if got := leaf.Get("x").AsNumber(); got != 2 {
		t.Errorf("stale cache: leaf.x = %v, want 2", got)
	}
}

func TestLookupCacheRemembersAbsence(t *testing.T) {
	realm := NewRealm(WithLookupCache(true))
	obj := realm.Create(nil)
	if obj.Has("nope") || obj.Has("nope") {
		t.Fatalf("expected absence")
	}
	if realm.CacheStats().Hits != 1 {
		t.Errorf("expected the second absent lookup to hit")
	}
	obj.Set("nope", Int(1))
	if !obj.Has("nope") {
		t.Errorf("cached absence survived a write")
	}
}

func TestLookupCacheBindsPerReceiver(t *testing.T) {
	realm := NewRealm(WithLookupCache(true))
	proto := realm.Create(Props{
		"name": String("proto"),
		"who":  Method(func(this *Object, _ ...Value) Value { return this.Get("name") }),
	})
	a := Extend(proto, Props{"name": String("a")})
	b := Extend(proto, Props{"name": String("b")})
	for i := 0; i < 3; i++ {
		if got := a.MustCall("who").String(); got != "a" {
			t.Errorf("a.who() = %q", got)
		}
		if got := b.MustCall("who").String(); got != "b" {
			t.Errorf("b.who() = %q", got)
		}
	}
}

func TestLookupCacheEviction(t *testing.T) {
	c := newLookupCache(2)
	r := NewRealm()
	objs := []*Object{r.Create(nil), r.Create(nil), r.Create(nil)}
	for _, o := range objs {
		c.update(o, "k", nil, -1, 0)
	}
	if _, hit := c.find(objs[0], "k"); hit {
		t.Errorf("expected the oldest receiver to be evicted")
	}
	if _, hit := c.find(objs[2], "k"); !hit {
		t.Errorf("expected the newest receiver to be cached")
	}
}

func TestLookupCacheReset(t *testing.T) {
	realm := NewRealm(WithLookupCache(true))
	obj := realm.Create(Props{"a": Int(1)})
	obj.Get("a")
	obj.Get("a")
	realm.ResetCache()
	stats := realm.CacheStats()
	if stats.Hits != 0 || stats.Misses != 0 || stats.Sites != 0 {
		t.Errorf("expected empty stats after reset, got %+v", stats)
	}
	if stats.HitRate() != 0 {
		t.Errorf("expected zero hit rate without traffic")
	}
}

func TestLookupCacheDropsObjectsOnWrite(t *testing.T) {
	realm := NewRealm(WithLookupCache(true))
	proto := realm.Create(Props{"a": Int(1)})
	for i := 0; i < 3; i++ {
		Extend(proto, nil).Get("a")
	}
	if got := realm.CacheStats().Sites; got != 1 {
		t.Fatalf("Sites = %d, want 1", got)
	}
	proto.Set("b", Int(2))
	if got := realm.CacheStats().Sites; got != 0 {
		t.Errorf("expected a write to drop every site, %d left", got)
	}
	realm.cache.mu.Lock()
	for name, site := range realm.cache.sites {
		t.Errorf("site %q still holds %d receivers", name, site.entryCount)
	}
	realm.cache.mu.Unlock()
	if proto.Get("a").AsNumber() != 1 {
		t.Errorf("lookup after a dropped cache returned the wrong value")
	}
}

func TestLookupCacheInvalidateEmptiesSites(t *testing.T) {
	c := newLookupCache(4)
	o := NewRealm().Create(nil)
	c.invalidate()
	c.update(o, "k", nil, -1, 0)
	if _, hit := c.find(o, "k"); !hit {
		t.Fatalf("expected a fresh update to be cached")
	}
	c.invalidate()
	if len(c.sites) != 0 {
		t.Errorf("expected invalidate to empty the cache")
	}
}

func TestCacheDisabled(t *testing.T) {
	realm := NewRealm(WithLookupCache(false))
	obj := realm.Create(Props{"a": Int(1)})
	obj.Get("a")
	if realm.CacheStats().Enabled {
		t.Errorf("expected disabled cache stats")
	}
}

func TestClampEntries(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, 1},
		{4, 4},
		{100, maxLookupSlots},
	}
	for _, tt := range tests {
		if got := clampEntries(tt.in); got != tt.want {
			t.Errorf("clampEntries(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
