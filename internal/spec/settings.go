package spec

import (
	"context"
	"time"
)

// HistoryMode controls how history-derived suggestions combine with
// spec-derived ones.
type HistoryMode string

const (
	// HistoryModeOff leaves history out of the pipeline.
	HistoryModeOff HistoryMode = "off"
	// HistoryModeShow merges history entries into spec suggestions.
	HistoryModeShow HistoryMode = "show"
	// HistoryModeOnly replaces spec suggestions with history entirely.
	HistoryModeOnly HistoryMode = "history_only"
)

// Settings is the synchronous key lookup the engine consumes. The host owns
// storage and defaults; the engine only reads.
type Settings interface {
	// FuzzySearch reports whether matching defaults to fuzzy instead of
	// prefix tiers. Overridable per argument slot via FilterStrategy.
	FuzzySearch() bool

	// CacheAllGenerators forces caching even for generators that declare
	// no cache policy.
	CacheAllGenerators() bool

	// HistoryMode returns the history merge mode.
	HistoryMode() HistoryMode

	// HistoryReplacesSuggestions is the user toggle that makes history
	// replace spec suggestions outright regardless of mode.
	HistoryReplacesSuggestions() bool

	// HideAutoExecute suppresses synthetic auto-execute entries.
	HideAutoExecute() bool

	// SuggestCurrentToken enables the literal-typed-text entry globally.
	SuggestCurrentToken() bool

	// ScriptTimeout is the default bound on script generator execution.
	// Negative means no timeout.
	ScriptTimeout() time.Duration
}

// HistoryProvider supplies ranked historical command suggestions. Ranking
// beyond recency is the provider's business, not the engine's.
type HistoryProvider interface {
	HistorySuggestions(ctx context.Context, term string, cwd string, limit int) ([]Suggestion, error)
}
