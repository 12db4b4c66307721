// Package generate runs suggestion generators: external scripts, in-process
// callables and built-in templates. Generators for one argument slot run
// concurrently; a failing or panicking generator contributes nothing instead
// of failing the batch.
package generate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/glintshell/glint/internal/spec"
	"github.com/google/shlex"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// defaultScriptTimeout bounds script generators when the host settings
	// do not say otherwise.
	defaultScriptTimeout = 5 * time.Second

	// defaultCacheTTL applies when caching is forced on a generator that
	// declares no policy of its own.
	defaultCacheTTL = 30 * time.Second
)

// Context is the execution context handed to every generator in a batch.
type Context struct {
	// SearchTerm is the text of the cursor token.
	SearchTerm string

	// Tokens are the texts of all tokens of the current command.
	Tokens []string

	// CWD is the directory scripts run in and file templates list.
	CWD string

	// Env is the host environment, for scripts.
	Env map[string]string

	// Parent is the subcommand node owning the argument slot; the help
	// template reads its children.
	Parent *spec.Subcommand
}

// Options configures an Executor.
type Options struct {
	// Run executes external commands for script generators and custom
	// callables. Nil disables script generators.
	Run spec.RunCommand

	// Settings supplies timeouts and the cache-all override. Nil means
	// built-in defaults.
	Settings spec.Settings

	// History backs the history template. Nil disables it.
	History spec.HistoryProvider

	// Cache holds generator output across invocations. Nil disables
	// caching entirely.
	Cache *Cache

	// Logger for debug output. If nil, a no-op logger is used.
	Logger *zap.Logger
}

// Executor runs generator batches.
type Executor struct {
	run      spec.RunCommand
	settings spec.Settings
	history  spec.HistoryProvider
	cache    *Cache
	logger   *zap.Logger
}

// NewExecutor creates an Executor.
func NewExecutor(opts Options) *Executor {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		run:      opts.Run,
		settings: opts.Settings,
		history:  opts.History,
		cache:    opts.Cache,
		logger:   logger,
	}
}

// Run executes all generators concurrently and returns their combined
// output in generator order. Individual generator failures are logged and
// skipped; Run itself never fails.
func (e *Executor) Run(ctx context.Context, generators []*spec.Generator, gctx Context) []spec.Suggestion {
	if len(generators) == 0 {
		return nil
	}

	results := make([][]spec.Suggestion, len(generators))
	g, ctx := errgroup.WithContext(ctx)

	for i, gen := range generators {
		i, gen := i, gen
		g.Go(func() error {
			suggestions, err := e.runOne(ctx, gen, gctx)
			if err != nil {
				e.logger.Debug("generator failed",
					zap.Int("index", i),
					zap.Error(err),
				)
				return nil
			}
			results[i] = suggestions
			return nil
		})
	}
	_ = g.Wait()

	var combined []spec.Suggestion
	for i, batch := range results {
		for _, s := range batch {
			s.Generator = generators[i]
			combined = append(combined, s)
		}
	}
	return combined
}

func (e *Executor) runOne(ctx context.Context, gen *spec.Generator, gctx Context) (suggestions []spec.Suggestion, err error) {
	defer func() {
		if r := recover(); r != nil {
			suggestions = nil
			err = fmt.Errorf("generator panic: %v", r)
		}
	}()

	policy := e.cachePolicy(gen)
	if policy == nil || e.cache == nil {
		return e.compute(ctx, gen, gctx)
	}

	key := cacheKey(gen, gctx, policy)
	return e.cache.Lookup(ctx, key, policy, func(ctx context.Context) ([]spec.Suggestion, error) {
		return e.compute(ctx, gen, gctx)
	})
}

func (e *Executor) compute(ctx context.Context, gen *spec.Generator, gctx Context) ([]spec.Suggestion, error) {
	switch gen.Kind {
	case spec.GeneratorScript:
		return e.runScript(ctx, gen, gctx)
	case spec.GeneratorCustom:
		return e.runCustom(ctx, gen, gctx)
	case spec.GeneratorTemplate:
		return e.runTemplate(ctx, gen, gctx)
	default:
		return nil, fmt.Errorf("unknown generator kind %d", gen.Kind)
	}
}

func (e *Executor) runScript(ctx context.Context, gen *spec.Generator, gctx Context) ([]spec.Suggestion, error) {
	if e.run == nil {
		return nil, fmt.Errorf("no command runner configured")
	}

	argv := gen.ScriptArgv
	if len(argv) == 0 {
		var err error
		argv, err = shlex.Split(gen.Script)
		if err != nil {
			return nil, fmt.Errorf("lex script: %w", err)
		}
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("empty script")
	}

	result, err := e.run(ctx, argv, gctx.CWD, e.scriptTimeout(gen))
	if err != nil {
		return nil, fmt.Errorf("run script: %w", err)
	}
	if result.ExitCode != 0 {
		return nil, fmt.Errorf("script exited %d: %s", result.ExitCode, strings.TrimSpace(result.Stderr))
	}

	if gen.PostProcess != nil {
		return defaultToArg(gen.PostProcess(result.Stdout, gctx.Tokens)), nil
	}

	splitOn := gen.SplitOn
	if splitOn == "" {
		splitOn = "\n"
	}

	var suggestions []spec.Suggestion
	for _, line := range strings.Split(result.Stdout, splitOn) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		suggestions = append(suggestions, spec.Suggestion{
			Names: []string{line},
			Type:  spec.TypeArg,
		})
	}
	return suggestions, nil
}

func (e *Executor) runCustom(ctx context.Context, gen *spec.Generator, gctx Context) ([]spec.Suggestion, error) {
	if gen.Custom == nil {
		return nil, fmt.Errorf("custom generator without callable")
	}
	out, err := gen.Custom(ctx, gctx.Tokens, e.run)
	if err != nil {
		return nil, err
	}
	return defaultToArg(out), nil
}

// defaultToArg types suggestions whose producer set no type.
func defaultToArg(suggestions []spec.Suggestion) []spec.Suggestion {
	for i := range suggestions {
		if suggestions[i].Type == spec.TypeUnspecified {
			suggestions[i].Type = spec.TypeArg
		}
	}
	return suggestions
}

// scriptTimeout resolves the effective bound for one script. The generator
// may extend the engine default but not shorten it below its own declared
// need; a negative value on either side disables the bound entirely.
func (e *Executor) scriptTimeout(gen *spec.Generator) time.Duration {
	limit := defaultScriptTimeout
	if e.settings != nil {
		limit = e.settings.ScriptTimeout()
	}
	if gen.ScriptTimeout > limit {
		limit = gen.ScriptTimeout
	}
	if gen.ScriptTimeout < 0 || limit < 0 {
		return 0
	}
	return limit
}

func (e *Executor) cachePolicy(gen *spec.Generator) *spec.CachePolicy {
	if gen.Cache != nil {
		return gen.Cache
	}
	if e.settings != nil && e.settings.CacheAllGenerators() {
		return &spec.CachePolicy{
			Strategy: spec.CacheStaleWhileRevalidate,
			TTL:      defaultCacheTTL,
		}
	}
	return nil
}

// cacheKey derives the cache identity of one generator invocation: the
// declared override or the full token sequence, scoped to the working
// directory when the policy asks for it.
func cacheKey(gen *spec.Generator, gctx Context, policy *spec.CachePolicy) string {
	key := gen.CacheKey
	if key == "" {
		key = strings.Join(gctx.Tokens, " ")
	}
	if policy.CacheByDirectory {
		key = gctx.CWD + "\x00" + key
	}
	return key
}
