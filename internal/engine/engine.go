// Package engine wires the tokenizer, parser, generator executor and
// suggestion pipeline behind the host-facing interfaces, and owns the
// per-keystroke lifecycle: one Suggest call per buffer/cursor change, with
// superseded work discarded rather than cancelled.
package engine

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/glintshell/glint/internal/generate"
	"github.com/glintshell/glint/internal/insert"
	"github.com/glintshell/glint/internal/parse"
	"github.com/glintshell/glint/internal/shell"
	"github.com/glintshell/glint/internal/spec"
	"github.com/glintshell/glint/internal/spec/resolver"
	"github.com/glintshell/glint/internal/suggest"
	"go.uber.org/zap"
)

// historyQueryLimit caps how many history entries one keystroke pulls.
const historyQueryLimit = 50

// InsertionSink receives the literal text a committed suggestion produces.
// Fire-and-forget; the engine never reads anything back.
type InsertionSink interface {
	Insert(text string)
}

// Options wires an Engine to its collaborators.
type Options struct {
	Resolver *resolver.Resolver
	Context  shell.ContextProvider
	Settings spec.Settings
	Run      spec.RunCommand
	History  spec.HistoryProvider
	Sink     InsertionSink
	Logger   *zap.Logger
}

// State is one atomic snapshot of the suggestion UI: the list and the
// selected index always travel together.
type State struct {
	Suggestions []spec.Suggestion
	Selected    int
	SearchTerm  string
}

// Engine orchestrates one completion session.
type Engine struct {
	resolver *resolver.Resolver
	provider shell.ContextProvider
	settings spec.Settings
	run      spec.RunCommand
	history  spec.HistoryProvider
	sink     InsertionSink
	logger   *zap.Logger

	cache    *generate.Cache
	executor *generate.Executor
	pipeline *suggest.Pipeline

	// generation rises on every Suggest call; results are committed only
	// if no newer call has started since dispatch.
	generation atomic.Int64

	mu    sync.Mutex
	state State
}

// New creates an Engine.
func New(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	settings := opts.Settings
	if settings == nil {
		settings = DefaultSettings()
	}
	res := opts.Resolver
	if res == nil {
		res = resolver.New(resolver.Options{Logger: logger})
	}
	provider := opts.Context
	if provider == nil {
		provider = shell.StaticContextProvider{}
	}

	cache := generate.NewCache(logger)
	executor := generate.NewExecutor(generate.Options{
		Run:      opts.Run,
		Settings: settings,
		History:  opts.History,
		Cache:    cache,
		Logger:   logger,
	})
	pipeline := suggest.New(suggest.Options{
		Settings: settings,
		Logger:   logger,
	})

	return &Engine{
		resolver: res,
		provider: provider,
		settings: settings,
		run:      opts.Run,
		history:  opts.History,
		sink:     opts.Sink,
		logger:   logger,
		cache:    cache,
		executor: executor,
		pipeline: pipeline,
	}
}

// Suggest computes the suggestion list for one buffer/cursor position and
// returns the resulting state. If a newer Suggest call starts while this
// one is still generating, its results are discarded and the newer state is
// returned instead.
func (e *Engine) Suggest(ctx context.Context, buffer string, cursor int) State {
	generation := e.generation.Add(1)
	sctx := e.provider.ShellContext()

	cmd := shell.GetCommand(buffer, sctx.Aliases)
	if cmd == nil || len(cmd.Tokens) == 0 {
		return e.commit(generation, nil, "")
	}

	cursorToken, idx := cmd.TokenAt(cursor)
	tokens := cursorTokens(cmd, cursorToken, idx)
	parseCmd := &shell.Command{
		Buffer:  cmd.Buffer,
		Raw:     cmd.Raw,
		Tokens:  tokens,
		Aliases: cmd.Aliases,
	}

	result, err := parse.ParseArguments(ctx, parseCmd, sctx, parse.Options{
		Resolver: e.resolver,
		Run:      e.run,
		Logger:   e.logger,
	})
	if err != nil {
		// Unrecognized committed token or empty command: quiet reset.
		e.logger.Debug("parse failed", zap.Error(err))
		return e.commit(generation, nil, "")
	}

	in := suggest.Input{
		Static:     staticSuggestions(result),
		SearchTerm: result.SearchTerm,
	}

	if result.CurrentArg != nil {
		in.Strategy = result.CurrentArg.FilterStrategy
		in.SuggestCurrentToken = result.CurrentArg.SuggestCurrentToken
		in.Generated = e.executor.Run(ctx, result.CurrentArg.Generators, generate.Context{
			SearchTerm: result.SearchTerm,
			Tokens:     parseCmd.Texts(),
			CWD:        sctx.CurrentWorkingDirectory,
			Env:        sctx.Environment,
			Parent:     result.Completion,
		})
	}

	in.History = e.historySuggestions(ctx, cmd, cursorToken, sctx)

	return e.commit(generation, e.pipeline.Run(in), result.SearchTerm)
}

// cursorTokens truncates the command at the cursor token: committed tokens
// before it plus the token being typed.
func cursorTokens(cmd *shell.Command, cursorToken shell.Token, idx int) []shell.Token {
	if idx >= 0 {
		return cmd.Tokens[:idx+1]
	}
	// Cursor sits in whitespace between tokens: everything before it is
	// committed and an empty token is being typed.
	var tokens []shell.Token
	for _, t := range cmd.Tokens {
		if t.End <= cursorToken.Start {
			tokens = append(tokens, t)
		}
	}
	return append(tokens, cursorToken)
}

// staticSuggestions maps the parse result's valid categories to candidate
// suggestions.
func staticSuggestions(result *parse.Result) []spec.Suggestion {
	var out []spec.Suggestion

	if result.Flags.Has(parse.FlagSubcommands) && result.Completion != nil {
		for _, child := range result.Completion.Subcommands {
			out = append(out, spec.Suggestion{
				Names:       child.Names,
				Description: child.Description,
				Type:        spec.TypeSubcommand,
				Args:        child.Args,
			})
		}
	}

	if result.Flags.Has(parse.FlagOptions) {
		for _, opt := range result.AvailableOptions {
			out = append(out, spec.Suggestion{
				Names:       opt.Names,
				Description: opt.Description,
				Type:        spec.TypeOption,
				IsDangerous: opt.IsDangerous,
				Args:        opt.Args,
			})
		}
	}

	if result.Flags.Has(parse.FlagArgs) && result.CurrentArg != nil {
		for _, s := range result.CurrentArg.Suggestions {
			if s.Type == spec.TypeSubcommand {
				s.Type = spec.TypeArg
			}
			out = append(out, s)
		}
	}

	return out
}

// historySuggestions queries the provider with the buffer up to the cursor
// and rebases each full command line onto the current token, so it filters
// and inserts like any other candidate.
func (e *Engine) historySuggestions(ctx context.Context, cmd *shell.Command, cursorToken shell.Token, sctx shell.Context) []spec.Suggestion {
	if e.history == nil || e.settings.HistoryMode() == spec.HistoryModeOff {
		return nil
	}

	term := cmd.Buffer
	if cursorToken.End < len(term) {
		term = term[:cursorToken.End]
	}

	entries, err := e.history.HistorySuggestions(ctx, term, sctx.CurrentWorkingDirectory, historyQueryLimit)
	if err != nil {
		e.logger.Debug("history lookup failed", zap.Error(err))
		return nil
	}

	rebased := make([]spec.Suggestion, 0, len(entries))
	for _, entry := range entries {
		full := entry.Name()
		if cursorToken.Start >= len(full) {
			continue
		}
		entry.Names = []string{full[cursorToken.Start:]}
		rebased = append(rebased, entry)
	}
	return rebased
}

// commit atomically replaces the suggestion state, unless a newer Suggest
// call has started since this one was dispatched, in which case the stale
// results are dropped and the current state returned.
func (e *Engine) commit(generation int64, suggestions []spec.Suggestion, term string) State {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.generation.Load() != generation {
		return e.state
	}

	selected := insert.ReconcileSelection(e.state.Suggestions, e.state.Selected, suggestions)
	e.state = State{
		Suggestions: suggestions,
		Selected:    selected,
		SearchTerm:  term,
	}
	return e.state
}

// Current returns the latest committed state.
func (e *Engine) Current() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// MoveSelection shifts the selected index by delta, wrapping around, and
// returns the new state.
func (e *Engine) MoveSelection(delta int) State {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := len(e.state.Suggestions)
	if n == 0 {
		return e.state
	}
	e.state.Selected = ((e.state.Selected+delta)%n + n) % n
	return e.state
}

// CommitSelected plans the insertion of the selected suggestion and hands
// the text to the sink, if one is wired.
func (e *Engine) CommitSelected() (insert.Plan, error) {
	e.mu.Lock()
	state := e.state
	e.mu.Unlock()

	if state.Selected < 0 || state.Selected >= len(state.Suggestions) {
		return insert.Plan{}, insert.ErrNoCommonPrefix
	}

	plan := insert.PlanInsertion(state.SearchTerm, state.Suggestions[state.Selected])
	e.send(plan)
	return plan, nil
}

// CompleteCommonPrefix plans inserting the longest prefix shared by all
// current suggestions. ErrNoCommonPrefix propagates so the caller can fall
// back to navigation.
func (e *Engine) CompleteCommonPrefix() (insert.Plan, error) {
	e.mu.Lock()
	state := e.state
	e.mu.Unlock()

	prefix, err := insert.CommonPrefix(state.Suggestions)
	if err != nil {
		return insert.Plan{}, err
	}
	if !strings.HasPrefix(prefix, state.SearchTerm) {
		return insert.Plan{}, insert.ErrNoCommonPrefix
	}

	plan := insert.Plan{Text: prefix[len(state.SearchTerm):]}
	e.send(plan)
	return plan, nil
}

func (e *Engine) send(plan insert.Plan) {
	if e.sink != nil && plan.Text != "" {
		e.sink.Insert(plan.Text)
	}
}

// ClearCaches drops the resolver memo and the generator cache, for the
// host's explicit clear-cache event.
func (e *Engine) ClearCaches() {
	e.resolver.ResetCaches()
	e.cache.Clear()
}
