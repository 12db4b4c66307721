// Package resolver loads completion specs by location and memoizes them
// per session. Locations come in two flavors: global names resolved in the
// specs directory (or the in-process registry), and local paths for
// commands invoked as ./tool, ~/bin/tool or /usr/bin/tool. loadSpec chains
// between specs are followed here, bounded by the memo table so cyclic
// chains terminate instead of recursing forever.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/glintshell/glint/internal/spec"
	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"
)

// ErrNotFound is returned when no source can produce a spec for a location.
var ErrNotFound = errors.New("completion spec not found")

// wellKnownPaths maps path suffixes of common project entry points to the
// synthetic spec name that describes them.
var wellKnownPaths = map[string]string{
	"bin/console": "php-bin-console",
	"bin/rails":   "rails",
	"gradlew":     "gradle",
	"mvnw":        "mvn",
}

// Options configures a Resolver.
type Options struct {
	// SpecsDir is the directory global spec documents live in.
	SpecsDir string

	// Logger for debug output. If nil, a no-op logger is used.
	Logger *zap.Logger
}

// Resolver loads and memoizes completion specs for one parsing session.
type Resolver struct {
	specsDir string
	logger   *zap.Logger

	mu        sync.Mutex
	memo      map[string]*spec.Subcommand
	resolving map[string]bool
	registry  map[string]*spec.Subcommand
}

// New creates a Resolver over the given spec sources.
func New(opts Options) *Resolver {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Resolver{
		specsDir:  opts.SpecsDir,
		logger:    logger,
		memo:      make(map[string]*spec.Subcommand),
		resolving: make(map[string]bool),
		registry:  make(map[string]*spec.Subcommand),
	}
}

// Register adds an in-process spec under its primary name. Registered specs
// take precedence over spec documents on disk; they are the only way to
// attach custom generator callables and generateSpec functions.
func (r *Resolver) Register(sub *spec.Subcommand) {
	if sub == nil || sub.Name() == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range sub.Names {
		r.registry[name] = sub
	}
}

// LocationsForToken maps the first token of a command to the ordered list
// of candidate spec locations. Precedence: a path-like token resolves to a
// local spec next to the file, then to well-known synthetic names, then to
// a global lookup of its basename; anything else is a global name.
func (r *Resolver) LocationsForToken(token string, cwd string) []string {
	if token == "" {
		return nil
	}

	if !isPathLike(token) {
		return []string{token}
	}

	expanded, err := homedir.Expand(token)
	if err != nil {
		expanded = token
	}
	if !filepath.IsAbs(expanded) {
		expanded = filepath.Join(cwd, expanded)
	}

	base := filepath.Base(expanded)
	locations := []string{
		filepath.Join(filepath.Dir(expanded), ".glint", base+".yaml"),
	}

	for suffix, name := range wellKnownPaths {
		if token == suffix || strings.HasSuffix(token, "/"+suffix) {
			locations = append(locations, name)
		}
	}

	// Dotfile execution like ./deploy.sh still gets a shot at a global
	// spec under its basename.
	locations = append(locations, strings.TrimSuffix(base, filepath.Ext(base)))

	return locations
}

func isPathLike(token string) bool {
	return strings.HasPrefix(token, "./") ||
		strings.HasPrefix(token, "~/") ||
		strings.HasPrefix(token, "/") ||
		strings.Contains(token, "/")
}

// LoadFirst resolves the first of the given locations that yields a spec.
func (r *Resolver) LoadFirst(ctx context.Context, locations []string) (*spec.Subcommand, error) {
	for _, location := range locations {
		sub, err := r.LoadSubcommandCached(ctx, location)
		if err == nil {
			return sub, nil
		}
		r.logger.Debug("spec location failed",
			zap.String("location", location),
			zap.Error(err),
		)
	}
	return nil, ErrNotFound
}

// LoadSubcommandCached loads the spec at location, following any root-level
// loadSpec chain, and memoizes the result for the session. A location is
// either a global name or a path to a spec document.
func (r *Resolver) LoadSubcommandCached(ctx context.Context, location string) (*spec.Subcommand, error) {
	r.mu.Lock()
	if sub, ok := r.memo[location]; ok {
		r.mu.Unlock()
		return sub, nil
	}
	if r.resolving[location] {
		// A loadSpec chain looped back onto a location still being
		// resolved. Refusing here bounds the recursion.
		r.mu.Unlock()
		return nil, fmt.Errorf("cyclic loadSpec chain at %q", location)
	}
	r.resolving[location] = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.resolving, location)
		r.mu.Unlock()
	}()

	sub, err := r.loadRaw(location)
	if err != nil {
		return nil, err
	}

	sub, err = r.followLoadSpec(ctx, sub)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.memo[location] = sub
	r.mu.Unlock()

	return sub, nil
}

func (r *Resolver) loadRaw(location string) (*spec.Subcommand, error) {
	r.mu.Lock()
	registered, ok := r.registry[location]
	r.mu.Unlock()
	if ok {
		return registered, nil
	}

	// Locations that point into the filesystem are used as-is; everything
	// else, including module-style names like "python/django-admin", is a
	// document under the specs directory.
	path := location
	if !filepath.IsAbs(location) && !strings.HasPrefix(location, ".") && !strings.HasPrefix(location, "~") {
		if r.specsDir == "" {
			return nil, ErrNotFound
		}
		path = filepath.Join(r.specsDir, location+".yaml")
	}

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, location)
	}

	return spec.LoadFile(path)
}

// ResolveNode follows a node's loadSpec chain, if any. Used by the parser
// when it descends into a subcommand that defers its definition elsewhere.
func (r *Resolver) ResolveNode(ctx context.Context, sub *spec.Subcommand) (*spec.Subcommand, error) {
	return r.followLoadSpec(ctx, sub)
}

// followLoadSpec walks a node's root-level loadSpec alternatives. The
// resolved spec replaces the node's definition, with the original names and
// persistent options carried over so inherited options merge instead of
// being dropped.
func (r *Resolver) followLoadSpec(ctx context.Context, sub *spec.Subcommand) (*spec.Subcommand, error) {
	for len(sub.LoadSpec) > 0 {
		var (
			next *spec.Subcommand
			err  error
		)
		for _, alt := range sub.LoadSpec {
			next, err = r.LoadSubcommandCached(ctx, alt)
			if err == nil {
				break
			}
		}
		if next == nil {
			return nil, fmt.Errorf("loadSpec %v: %w", sub.LoadSpec, err)
		}

		sub = spliceLoaded(sub, next)
	}
	return sub, nil
}

// spliceLoaded merges a loaded spec into the node that declared it.
func spliceLoaded(original, loaded *spec.Subcommand) *spec.Subcommand {
	merged := *loaded
	if len(original.Names) > 0 {
		merged.Names = original.Names
	}
	if len(original.PersistentOptions) > 0 {
		merged.PersistentOptions = append(
			append([]*spec.Option{}, loaded.PersistentOptions...),
			original.PersistentOptions...,
		)
	}
	merged.LoadSpec = loaded.LoadSpec
	return &merged
}

// ResetCaches drops all session memoization. Called between tests and on
// explicit cache-clear events from the host.
func (r *Resolver) ResetCaches() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.memo = make(map[string]*spec.Subcommand)
	r.resolving = make(map[string]bool)
}
