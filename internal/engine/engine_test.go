package engine

import (
	"context"
	"testing"

	"github.com/glintshell/glint/internal/insert"
	"github.com/glintshell/glint/internal/spec"
	"github.com/glintshell/glint/internal/spec/resolver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gitSpec() *spec.Subcommand {
	return &spec.Subcommand{
		Names: []string{"git"},
		Subcommands: []*spec.Subcommand{
			{Names: []string{"add"}},
			{Names: []string{"checkout"}, Description: "Switch branches"},
			{Names: []string{"commit"}},
		},
	}
}

func newEngine(t *testing.T, opts Options, specs ...*spec.Subcommand) *Engine {
	t.Helper()
	if opts.Resolver == nil {
		opts.Resolver = resolver.New(resolver.Options{})
	}
	for _, s := range specs {
		opts.Resolver.Register(s)
	}
	return New(opts)
}

func suggestionNames(state State) []string {
	out := make([]string, len(state.Suggestions))
	for i, s := range state.Suggestions {
		out[i] = s.Name()
	}
	return out
}

func TestSuggestSubcommands(t *testing.T) {
	e := newEngine(t, Options{}, gitSpec())

	state := e.Suggest(context.Background(), "git ", 4)

	assert.Equal(t, []string{"add", "checkout", "commit"}, suggestionNames(state))
	assert.Equal(t, 0, state.Selected)
	assert.Equal(t, "", state.SearchTerm)
}

func TestSuggestFiltersBySearchTerm(t *testing.T) {
	e := newEngine(t, Options{}, gitSpec())

	state := e.Suggest(context.Background(), "git c", 5)

	assert.Equal(t, []string{"checkout", "commit"}, suggestionNames(state))
	assert.Equal(t, "c", state.SearchTerm)
}

func TestSuggestQuietResetOnParseFailure(t *testing.T) {
	e := newEngine(t, Options{}, gitSpec())

	e.Suggest(context.Background(), "git c", 5)
	state := e.Suggest(context.Background(), "git frobnicate extra ", 21)

	assert.Empty(t, state.Suggestions)
	assert.Empty(t, e.Current().Suggestions)
}

func TestSuggestEmptyBuffer(t *testing.T) {
	e := newEngine(t, Options{}, gitSpec())

	state := e.Suggest(context.Background(), "", 0)
	assert.Empty(t, state.Suggestions)
}

func TestSelectionFollowsEntryAcrossRecompute(t *testing.T) {
	e := newEngine(t, Options{}, gitSpec())

	e.Suggest(context.Background(), "git ", 4)
	state := e.MoveSelection(1)
	require.Equal(t, "checkout", state.Suggestions[state.Selected].Name())

	state = e.Suggest(context.Background(), "git c", 5)

	// The selected entry survives the recompute at its new index.
	assert.Equal(t, 0, state.Selected)
	assert.Equal(t, "checkout", state.Suggestions[state.Selected].Name())
}

func TestMoveSelectionWrapsAround(t *testing.T) {
	e := newEngine(t, Options{}, gitSpec())
	e.Suggest(context.Background(), "git ", 4)

	state := e.MoveSelection(-1)
	assert.Equal(t, 2, state.Selected)

	state = e.MoveSelection(1)
	assert.Equal(t, 0, state.Selected)
}

func TestGenerationDiscard(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	slow := &spec.Subcommand{
		Names: []string{"slow"},
		Args: []*spec.Arg{{
			Name: "value",
			Generators: []*spec.Generator{{
				Kind: spec.GeneratorCustom,
				Custom: func(ctx context.Context, tokens []string, run spec.RunCommand) ([]spec.Suggestion, error) {
					close(started)
					<-release
					return []spec.Suggestion{{Names: []string{"stale-item"}}}, nil
				},
			}},
		}},
	}
	fast := &spec.Subcommand{
		Names:       []string{"fast"},
		Subcommands: []*spec.Subcommand{{Names: []string{"run"}}},
	}

	e := newEngine(t, Options{}, slow, fast)

	done := make(chan State, 1)
	go func() {
		done <- e.Suggest(context.Background(), "slow ", 5)
	}()

	<-started
	newer := e.Suggest(context.Background(), "fast ", 5)
	require.Equal(t, []string{"run"}, suggestionNames(newer))

	close(release)
	stale := <-done

	// The superseded parse's generator output is discarded, not merged.
	assert.Equal(t, []string{"run"}, suggestionNames(stale))
	assert.Equal(t, []string{"run"}, suggestionNames(e.Current()))
}

func TestGeneratorSuggestionsForCurrentArg(t *testing.T) {
	tool := &spec.Subcommand{
		Names: []string{"deploy"},
		Args: []*spec.Arg{{
			Name: "env",
			Generators: []*spec.Generator{{
				Kind: spec.GeneratorCustom,
				Custom: func(ctx context.Context, tokens []string, run spec.RunCommand) ([]spec.Suggestion, error) {
					return []spec.Suggestion{
						{Names: []string{"staging"}},
						{Names: []string{"production"}},
					}, nil
				},
			}},
		}},
	}

	e := newEngine(t, Options{}, tool)
	state := e.Suggest(context.Background(), "deploy st", 9)

	assert.Equal(t, []string{"staging"}, suggestionNames(state))
}

type stubHistory struct{}

func (stubHistory) HistorySuggestions(ctx context.Context, term string, cwd string, limit int) ([]spec.Suggestion, error) {
	return []spec.Suggestion{
		{Names: []string{"git push origin main"}, Type: spec.TypeShortcut, Priority: 60},
	}, nil
}

func TestHistoryEntriesRebasedOntoCurrentToken(t *testing.T) {
	e := newEngine(t, Options{History: stubHistory{}}, gitSpec())

	state := e.Suggest(context.Background(), "git pu", 6)

	assert.Contains(t, suggestionNames(state), "push origin main")
}

type recordingSink struct {
	texts []string
}

func (s *recordingSink) Insert(text string) {
	s.texts = append(s.texts, text)
}

func TestCommitSelectedSendsToSink(t *testing.T) {
	sink := &recordingSink{}
	e := newEngine(t, Options{Sink: sink}, gitSpec())

	e.Suggest(context.Background(), "git chec", 8)
	plan, err := e.CommitSelected()

	require.NoError(t, err)
	assert.Equal(t, "kout", plan.Text)
	assert.Equal(t, []string{"kout"}, sink.texts)
}

func TestCompleteCommonPrefix(t *testing.T) {
	e := newEngine(t, Options{}, gitSpec())

	e.Suggest(context.Background(), "git c", 5)
	plan, err := e.CompleteCommonPrefix()

	// checkout and commit share "c" beyond what is typed: nothing more to
	// insert than their common prefix.
	require.NoError(t, err)
	assert.Equal(t, "", plan.Text)
}

func TestCompleteCommonPrefixSignalsFallback(t *testing.T) {
	e := newEngine(t, Options{}, gitSpec())

	e.Suggest(context.Background(), "git ", 4)
	_, err := e.CompleteCommonPrefix()

	// add/checkout/commit share no prefix: the designed signal fires.
	assert.ErrorIs(t, err, insert.ErrNoCommonPrefix)
}

func TestClearCaches(t *testing.T) {
	e := newEngine(t, Options{}, gitSpec())

	e.Suggest(context.Background(), "git ", 4)
	e.ClearCaches()

	state := e.Suggest(context.Background(), "git ", 4)
	assert.Equal(t, []string{"add", "checkout", "commit"}, suggestionNames(state))
}
