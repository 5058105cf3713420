package driver

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"proteus/pkg/config"
	"proteus/pkg/errors"
	"proteus/pkg/object"
	"proteus/pkg/script"
	"proteus/pkg/snapshot"
)

// RunOptions controls optional diagnostics printed after a run.
type RunOptions struct {
	ShowCacheStats bool
}

// Proteus represents a persistent interpreter session.
// It maintains objects between separate code evaluations,
// allowing objects defined in one evaluation to be used in
// subsequent ones.
type Proteus struct {
	mu      sync.Mutex
	realm   *object.Realm
	session *script.Session
	store   *snapshot.Store // nil when snapshots are disabled
	logger  *slog.Logger
}

// NewProteus creates a session configured by cfg. A nil cfg uses defaults;
// a nil recorder records nothing.
func NewProteus(cfg *config.Config, logger *slog.Logger, recorder object.Recorder) (*Proteus, error) {
	if cfg == nil {
		cfg = &config.Config{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	realmOpts := []object.Option{
		object.WithLogger(logger),
		object.WithRecorder(recorder),
		object.WithLookupCache(cfg.Engine.LookupCache),
		object.WithNormalizedKeys(cfg.Engine.NormalizeKeys),
	}
	if cfg.Engine.CacheEntries > 0 {
		realmOpts = append(realmOpts, object.WithLookupEntries(cfg.Engine.CacheEntries))
	}
	realm := object.NewRealm(realmOpts...)

	p := &Proteus{realm: realm, logger: logger}
	sessionOpts := []script.Option{script.WithRealm(realm), script.WithLogger(logger)}
	if cfg.Snapshot.Path != "" {
		store, err := snapshot.Open(cfg.Snapshot.Path)
		if err != nil {
			return nil, fmt.Errorf("open snapshot store: %w", err)
		}
		p.store = store
		sessionOpts = append(sessionOpts, script.WithStore(store))
	}
	p.session = script.NewSession(sessionOpts...)

	logger.Debug("session ready",
		"realm", realm.ID(),
		"lookup_cache", cfg.Engine.LookupCache,
		"snapshot", cfg.Snapshot.Path)
	return p, nil
}

// RunCode runs source code in the session. Output lines are joined with
// newlines.
func (p *Proteus) RunCode(sourceCode string, options RunOptions) (string, []errors.ProteusError) {
	return p.run("<eval>", sourceCode, options)
}

// RunFile reads and runs a script file in the session.
func (p *Proteus) RunFile(filename string, options RunOptions) (string, string, []errors.ProteusError) {
	sourceBytes, err := os.ReadFile(filename)
	if err != nil {
		readErr := &errors.RuntimeError{
			Msg:   fmt.Sprintf("Failed to read file '%s'", filename),
			Cause: err,
		}
		return "", "", []errors.ProteusError{readErr}
	}
	sourceCode := string(sourceBytes)
	out, errs := p.run(filename, sourceCode, options)
	return sourceCode, out, errs
}

func (p *Proteus) run(file, sourceCode string, options RunOptions) (string, []errors.ProteusError) {
	p.mu.Lock()
	defer p.mu.Unlock()

	out, err := p.session.Run(context.Background(), file, sourceCode)

	if options.ShowCacheStats {
		stats := p.realm.CacheStats()
		if out != "" {
			out += "\n"
		}
		out += fmt.Sprintf("lookup cache: enabled=%v hits=%d misses=%d deep=%d sites=%d rate=%.2f",
			stats.Enabled, stats.Hits, stats.Misses, stats.DeepHits, stats.Sites, stats.HitRate())
	}

	if err != nil {
		return out, []errors.ProteusError{err}
	}
	return out, nil
}

// DisplayResult writes the output and any errors to w.
// Returns true if execution completed without any errors, false otherwise.
func (p *Proteus) DisplayResult(w io.Writer, sourceCode string, out string, errs []errors.ProteusError) bool {
	if out != "" {
		fmt.Fprintln(w, out)
	}
	if len(errs) > 0 {
		errors.DisplayErrors(w, sourceCode, errs)
		return false
	}
	return true
}

// GetCacheStats returns lookup cache statistics for the session realm.
func (p *Proteus) GetCacheStats() object.CacheStats {
	return p.realm.CacheStats()
}

// Session returns the underlying script session.
func (p *Proteus) Session() *script.Session { return p.session }

// Close releases the snapshot store, if any.
func (p *Proteus) Close() error {
	if p.store == nil {
		return nil
	}
	return p.store.Close()
}
