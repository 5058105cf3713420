package object

import (
	"log/slog"
	"sort"
	"sync/atomic"

	"golang.org/x/text/unicode/norm"
)

// Recorder receives gate and cache events. pkg/metrics provides a
// Prometheus implementation.
type Recorder interface {
	WriteCommitted(name string)
	WriteDiscarded(name string, reason DiscardReason)
	ExtensionRefused()
	LookupCache(hit bool)
}

type nopRecorder struct{}

func (nopRecorder) WriteCommitted(string)                {}
func (nopRecorder) WriteDiscarded(string, DiscardReason) {}
func (nopRecorder) ExtensionRefused()                    {}
func (nopRecorder) LookupCache(bool)                     {}

// Realm is an isolated object environment. Objects created in a realm share
// its shape tree, logger, recorder and key rules; Extend and Assign work in
// the realm of the object they produce or mutate.
type Realm struct {
	id        int64
	rootShape *Shape
	logger    *slog.Logger
	recorder  Recorder
	normalize bool
	cacheOn   bool
	cacheSize int
	cache     *lookupCache // nil when disabled
}

// Option configures a Realm.
type Option func(*Realm)

// WithLogger sets the realm logger. The default is slog.Default() at the
// time of each log call.
func WithLogger(l *slog.Logger) Option {
	return func(r *Realm) { r.logger = l }
}

// WithRecorder installs an event recorder.
func WithRecorder(rec Recorder) Option {
	return func(r *Realm) {
		if rec == nil {
			rec = nopRecorder{}
		}
		r.recorder = rec
	}
}

// WithLookupCache enables or disables the chain lookup cache.
func WithLookupCache(enabled bool) Option {
	return func(r *Realm) { r.cacheOn = enabled }
}

// WithLookupEntries sets how many receivers the lookup cache remembers per
// attribute name. Values are clamped to 1..8.
func WithLookupEntries(n int) Option {
	return func(r *Realm) { r.cacheSize = n }
}

// WithNormalizedKeys makes the realm store and look up attribute names in
// Unicode NFC, so composed and decomposed spellings name one attribute.
func WithNormalizedKeys(enabled bool) Option {
	return func(r *Realm) { r.normalize = enabled }
}

var realmIDs atomic.Int64

// NewRealm creates a realm with its own shape tree.
func NewRealm(opts ...Option) *Realm {
	r := &Realm{
		id:        realmIDs.Add(1),
		rootShape: newRootShape(),
		recorder:  nopRecorder{},
		cacheSize: MaxLookupEntries,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.cacheOn {
		r.cache = newLookupCache(r.cacheSize)
	}
	return r
}

// DefaultRealm backs the package-level API.
var DefaultRealm = NewRealm(WithLookupCache(EnableLookupCache))

// ID returns the realm's process-unique identifier.
func (r *Realm) ID() int64 { return r.id }

func (r *Realm) log() *slog.Logger {
	if r.logger != nil {
		return r.logger
	}
	return slog.Default()
}

func (r *Realm) key(name string) string {
	if r.normalize && !norm.NFC.IsNormalString(name) {
		return norm.NFC.String(name)
	}
	return name
}

// Props maps attribute names to values. Names may carry the ":" static
// marker when used as input.
type Props map[string]Value

// Pair is one named entry, used where installation order matters.
type Pair struct {
	Name  string
	Value Value
}

// Create builds a parentless object holding exactly entries. Entries are
// installed in sorted name order so enumeration is deterministic.
func (r *Realm) Create(entries Props) *Object {
	o := r.newObject(nil)
	o.install(sortedPairs(entries))
	return o
}

// CreateOrdered is Create with caller-defined installation order.
func (r *Realm) CreateOrdered(pairs ...Pair) *Object {
	o := r.newObject(nil)
	o.install(pairs)
	return o
}

// ClearShapeCache drops the realm's memoized shape transitions. Existing
// objects keep working; new objects build fresh shapes.
func (r *Realm) ClearShapeCache() {
	r.rootShape.clearTransitions()
}

// CacheStats reports lookup cache activity.
func (r *Realm) CacheStats() CacheStats {
	if r.cache == nil {
		return CacheStats{}
	}
	return r.cache.stats()
}

// ResetCache empties the lookup cache and its counters.
func (r *Realm) ResetCache() {
	if r.cache != nil {
		r.cache.reset()
	}
}

// install seeds a fresh object. Fresh objects have no observers and no
// flags, so the gate has nothing to consult.
func (o *Object) install(pairs []Pair) {
	for _, p := range pairs {
		name, v := o.realm.entryName(p.Name, p.Value)
		o.store.put(name, v)
	}
}

func sortedPairs(entries Props) []Pair {
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)
	pairs := make([]Pair, len(names))
	for i, name := range names {
		pairs[i] = Pair{Name: name, Value: entries[name]}
	}
	return pairs
}
