// Package suggest turns raw suggestion candidates into the ranked list the
// host displays: history merging, priority ranking, search-term filtering
// with prefix tiers or fuzzy matching, synthetic auto-execute entries and
// field-based deduplication.
package suggest

import (
	"reflect"
	"sort"
	"strings"

	"github.com/glintshell/glint/internal/spec"
	"github.com/sahilm/fuzzy"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// dedupLimit is the candidate count above which deduplication is skipped.
// Large lists are assumed already unique enough that the quadratic scan
// costs more than the duplicates it would remove.
const dedupLimit = 50

// Prefix-tier scores. All sit in (-10, 0] so every prefix-tier match ranks
// above every fuzzy match, which scores below fuzzyFloor.
const (
	scoreExact             = 0.0
	scoreExactInsensitive  = -1.0
	scorePrefix            = -2.0
	scorePrefixInsensitive = -3.0

	fuzzyFloor = -10000.0
)

// Input is one pipeline invocation: the candidates gathered for the current
// argument position plus the filtering context.
type Input struct {
	// Static are the spec-declared candidates: subcommands, options and an
	// arg's literal suggestions.
	Static []spec.Suggestion

	// Generated is the combined generator output for the current slot.
	Generated []spec.Suggestion

	// History holds history-derived candidates; ignored when the history
	// mode is off.
	History []spec.Suggestion

	// SearchTerm filters the list; empty passes everything through.
	SearchTerm string

	// Strategy is the per-slot filter override; FilterDefault defers to
	// the engine-wide fuzzy setting.
	Strategy spec.FilterStrategy

	// SuggestCurrentToken enables the literal-typed-text entry for this
	// slot even when the global setting is off.
	SuggestCurrentToken bool

	// DedupFields selects the identity fields for deduplication. Nil means
	// DefaultDedupFields.
	DedupFields []DedupField
}

// Options configures a Pipeline.
type Options struct {
	Settings spec.Settings
	Logger   *zap.Logger
}

// Pipeline applies the suggestion stages in order.
type Pipeline struct {
	settings spec.Settings
	logger   *zap.Logger
}

// New creates a Pipeline.
func New(opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{settings: opts.Settings, logger: logger}
}

// Run executes the pipeline and returns the ranked, filtered, deduplicated
// suggestion list.
func (p *Pipeline) Run(in Input) []spec.Suggestion {
	candidates := p.collect(in)
	rank(candidates)
	candidates = p.filter(candidates, in)
	return Dedup(candidates, in.DedupFields)
}

// collect merges static, generated and history candidates according to the
// history mode.
func (p *Pipeline) collect(in Input) []spec.Suggestion {
	base := make([]spec.Suggestion, 0, len(in.Static)+len(in.Generated))
	base = append(base, in.Static...)
	base = append(base, in.Generated...)

	mode := spec.HistoryModeOff
	replace := false
	if p.settings != nil {
		mode = p.settings.HistoryMode()
		replace = p.settings.HistoryReplacesSuggestions()
	}

	if mode == spec.HistoryModeOff {
		return base
	}
	if mode == spec.HistoryModeOnly || replace {
		return append([]spec.Suggestion{}, in.History...)
	}
	if len(in.History) == 0 {
		return base
	}

	// Merge mode: spec entries that also appear in history take the higher
	// of the two priorities; history entries with unseen names append.
	historyPriority := lo.Associate(in.History, func(s spec.Suggestion) (string, float64) {
		return s.Name(), s.Priority
	})

	seen := make(map[string]bool, len(base))
	for i := range base {
		for _, name := range base[i].Names {
			seen[name] = true
			if hp, ok := historyPriority[name]; ok && hp > base[i].Priority {
				base[i].Priority = hp
			}
		}
	}

	for _, h := range in.History {
		if !seen[h.Name()] {
			base = append(base, h)
		}
	}
	return base
}

// rank sorts by priority descending. Stability preserves the collection
// order between equal priorities.
func rank(suggestions []spec.Suggestion) {
	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Priority > suggestions[j].Priority
	})
}

type scored struct {
	suggestion spec.Suggestion
	score      float64
}

// filter drops candidates that do not match the search term and re-ranks
// the survivors by match quality. The synthetic auto-execute entries of the
// dot term and the current-token setting are added here.
func (p *Pipeline) filter(candidates []spec.Suggestion, in Input) []spec.Suggestion {
	term := in.SearchTerm
	if term == "" {
		return candidates
	}

	fuzzyEnabled := p.fuzzyEnabled(in.Strategy)
	hideAutoExecute := p.settings != nil && p.settings.HideAutoExecute()

	var (
		kept       []scored
		exactMatch bool
	)
	for _, s := range candidates {
		score, ok := matchScore(s.Names, term, fuzzyEnabled)
		if !ok {
			continue
		}
		if score == scoreExact || score == scoreExactInsensitive {
			exactMatch = true
			// An exact file/folder match becomes actionable in place
			// instead of appearing next to a synthetic twin.
			if s.Type == spec.TypeFile || s.Type == spec.TypeFolder {
				s.Type = spec.TypeAutoExecute
				s.InsertValue = "\n"
			}
		}
		kept = append(kept, scored{suggestion: s, score: score})
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].score > kept[j].score
	})

	out := make([]spec.Suggestion, 0, len(kept)+1)
	for _, k := range kept {
		out = append(out, k.suggestion)
	}

	if hideAutoExecute {
		return out
	}

	if term == "." {
		// "." means "enter this directory": upgrade an existing dot entry
		// or synthesize one.
		upgraded := false
		for i := range out {
			if !out[i].HasName(".") {
				continue
			}
			if out[i].Type == spec.TypeFolder || out[i].Type == spec.TypeAutoExecute {
				out[i].Type = spec.TypeAutoExecute
				out[i].InsertValue = "\n"
				upgraded = true
			}
		}
		if !upgraded {
			out = append([]spec.Suggestion{autoExecuteEntry(".")}, out...)
		}
		return out
	}

	suggestCurrent := in.SuggestCurrentToken ||
		(p.settings != nil && p.settings.SuggestCurrentToken())
	if suggestCurrent && !exactMatch && len(out) > 0 {
		out = append([]spec.Suggestion{autoExecuteEntry(term)}, out...)
	}

	return out
}

func autoExecuteEntry(name string) spec.Suggestion {
	return spec.Suggestion{
		Names:       []string{name},
		Type:        spec.TypeAutoExecute,
		InsertValue: "\n",
	}
}

func (p *Pipeline) fuzzyEnabled(strategy spec.FilterStrategy) bool {
	switch strategy {
	case spec.FilterFuzzy:
		return true
	case spec.FilterPrefix:
		return false
	default:
		if p.settings != nil {
			return p.settings.FuzzySearch()
		}
		return false
	}
}

// matchScore scores the best-matching name against the term. Prefix tiers
// always win over fuzzy matches; fuzzy is only consulted when enabled and
// no prefix tier applies.
func matchScore(names []string, term string, fuzzyEnabled bool) (float64, bool) {
	best := fuzzyFloor - 1
	matched := false

	for _, name := range names {
		var tier float64
		switch {
		case name == term:
			return scoreExact, true
		case strings.EqualFold(name, term):
			tier = scoreExactInsensitive
		case strings.HasPrefix(name, term):
			tier = scorePrefix
		case hasPrefixFold(name, term):
			tier = scorePrefixInsensitive
		default:
			continue
		}
		if tier > best || !matched {
			best = tier
			matched = true
		}
	}
	if matched {
		return best, true
	}

	if fuzzyEnabled {
		if matches := fuzzy.Find(term, names); len(matches) > 0 {
			return fuzzyFloor + float64(matches[0].Score), true
		}
	}
	return 0, false
}

func hasPrefixFold(name, prefix string) bool {
	if len(name) < len(prefix) {
		return false
	}
	return strings.EqualFold(name[:len(prefix)], prefix)
}

// DedupField names a suggestion field that participates in dedup identity.
type DedupField int

const (
	DedupName DedupField = iota
	DedupDisplayName
	DedupInsertValue
	DedupDescription
	DedupIcon
	// DedupArgs compares the introduced argument slots by deep equality.
	DedupArgs
)

// DefaultDedupFields is the identity used when the caller does not choose:
// name, display name, insert value and args.
var DefaultDedupFields = []DedupField{DedupName, DedupDisplayName, DedupInsertValue, DedupArgs}

// Dedup drops later duplicates of earlier suggestions, comparing the chosen
// fields. Lists longer than dedupLimit are returned untouched.
func Dedup(suggestions []spec.Suggestion, fields []DedupField) []spec.Suggestion {
	if len(suggestions) > dedupLimit {
		return suggestions
	}
	if fields == nil {
		fields = DefaultDedupFields
	}

	out := make([]spec.Suggestion, 0, len(suggestions))
	for _, s := range suggestions {
		duplicate := false
		for _, kept := range out {
			if sameIdentity(kept, s, fields) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			out = append(out, s)
		}
	}
	return out
}

func sameIdentity(a, b spec.Suggestion, fields []DedupField) bool {
	for _, f := range fields {
		switch f {
		case DedupName:
			if a.Name() != b.Name() {
				return false
			}
		case DedupDisplayName:
			if a.DisplayName != b.DisplayName {
				return false
			}
		case DedupInsertValue:
			if a.InsertValue != b.InsertValue {
				return false
			}
		case DedupDescription:
			if a.Description != b.Description {
				return false
			}
		case DedupIcon:
			if a.Icon != b.Icon {
				return false
			}
		case DedupArgs:
			if !reflect.DeepEqual(a.Args, b.Args) {
				return false
			}
		}
	}
	return true
}
