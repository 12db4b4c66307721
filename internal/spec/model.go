// Package spec defines the completion grammar model: subcommand trees,
// options, argument slots and suggestion generators. The shapes mirror the
// declarative spec documents third parties author, so structural
// compatibility with existing specs is preserved at this level.
package spec

import (
	"context"
	"time"
)

// Directives tune how the argument parser treats a subcommand's tokens.
type Directives struct {
	// OptionsMustPrecedeArguments stops option matching once the first
	// positional argument has been consumed.
	OptionsMustPrecedeArguments bool

	// FlagsArePosixNoncompliant disables posix chaining of single-character
	// flags ("-abc", "-ovalue").
	FlagsArePosixNoncompliant bool

	// OptionArgSeparators are the characters that may join an option and
	// its value inside one token. Defaults to "=".
	OptionArgSeparators []string
}

// Separators returns the effective option/value separators.
func (d Directives) Separators() []string {
	if len(d.OptionArgSeparators) == 0 {
		return []string{"="}
	}
	return d.OptionArgSeparators
}

// Subcommand is one level of a completion spec tree: the root tool or a
// nested verb. Children may be declared inline, deferred to another spec
// document via LoadSpec, or computed at parse time via GenerateSpec.
type Subcommand struct {
	Names       []string
	Description string

	Subcommands []*Subcommand
	Options     []*Option

	// PersistentOptions are inherited by every descendant subcommand.
	PersistentOptions []*Option

	Args []*Arg

	Directives Directives

	// LoadSpec lists fallback locations whose resolved root replaces this
	// node's children. Alternatives are tried in order, first success wins.
	LoadSpec []string

	// GenerateSpec computes this node's definition dynamically, typically
	// by running the tool itself. A failure here degrades to the static
	// definition, it never aborts the parse.
	GenerateSpec GenerateSpecFunc

	// FilterStrategy overrides the engine-wide fuzzy-search setting for
	// suggestions produced under this node.
	FilterStrategy FilterStrategy
}

// Name returns the primary name of the subcommand.
func (s *Subcommand) Name() string {
	if len(s.Names) == 0 {
		return ""
	}
	return s.Names[0]
}

// HasName reports whether name is one of the subcommand's names.
func (s *Subcommand) HasName(name string) bool {
	for _, n := range s.Names {
		if n == name {
			return true
		}
	}
	return false
}

// FindSubcommand looks up a direct child by any of its names.
func (s *Subcommand) FindSubcommand(name string) *Subcommand {
	if name == "" {
		return nil
	}
	for _, child := range s.Subcommands {
		if child.HasName(name) {
			return child
		}
	}
	return nil
}

// Option is a flag belonging to exactly one subcommand, or inherited by all
// descendants when declared persistent.
type Option struct {
	Names       []string
	Description string

	// Args is the ordered argument sequence the option consumes.
	Args []*Arg

	// RequiresEquals restricts the option's value to the inline
	// "--name=value" form.
	RequiresEquals bool

	// RequiresSeparator, when non-empty, is the single character that must
	// join the option and its value inside one token.
	RequiresSeparator string

	IsDangerous bool
}

// Name returns the primary name of the option.
func (o *Option) Name() string {
	if len(o.Names) == 0 {
		return ""
	}
	return o.Names[0]
}

// HasName reports whether name is one of the option's names.
func (o *Option) HasName(name string) bool {
	for _, n := range o.Names {
		if n == name {
			return true
		}
	}
	return false
}

// Separator returns the separator this option requires, or "" when the
// option takes its value as a separate token.
func (o *Option) Separator() string {
	if o.RequiresSeparator != "" {
		return o.RequiresSeparator
	}
	if o.RequiresEquals {
		return "="
	}
	return ""
}

// Arg is one positional argument slot. Variadic slots repeat indefinitely;
// the parser tracks repetition in a counter rather than new Arg instances.
type Arg struct {
	Name        string
	Description string

	IsOptional         bool
	IsVariadic         bool
	IsOptionalVariadic bool

	// Generators produce suggestions for this slot asynchronously.
	Generators []*Generator

	// Suggestions is the static candidate list for this slot.
	Suggestions []Suggestion

	IsDangerous bool

	// IsCommand marks the value as a sub-invocation: the remaining tokens
	// are re-parsed as a brand-new command line (sudo, env, time...).
	IsCommand bool

	// IsScript is like IsCommand but for script interpreters.
	IsScript bool

	// Module, when non-empty, prefixes the arg's value with a fixed path
	// segment to form the location of a spec to splice in.
	Module string

	// LoadSpec names a spec to splice in once the arg's value is known.
	LoadSpec string

	// FilterStrategy overrides the engine-wide matching mode for this slot.
	FilterStrategy FilterStrategy

	// SuggestCurrentToken enables the synthetic auto-execute entry for the
	// literal typed text on this slot.
	SuggestCurrentToken bool
}

// Repeats reports whether the slot consumes tokens unboundedly.
func (a *Arg) Repeats() bool {
	return a.IsVariadic || a.IsOptionalVariadic
}

// Skippable reports whether the slot may be skipped entirely.
func (a *Arg) Skippable() bool {
	return a.IsOptional || a.IsOptionalVariadic
}

// FilterStrategy selects how suggestions are matched against the search
// term for one argument slot.
type FilterStrategy string

const (
	FilterDefault FilterStrategy = "default"
	FilterPrefix  FilterStrategy = "prefix"
	FilterFuzzy   FilterStrategy = "fuzzy"
)

// GeneratorKind discriminates the Generator union.
type GeneratorKind int

const (
	// GeneratorScript runs an external command and maps its stdout.
	GeneratorScript GeneratorKind = iota
	// GeneratorCustom invokes an in-process callable.
	GeneratorCustom
	// GeneratorTemplate produces one of the built-in suggestion sets.
	GeneratorTemplate
)

// Template enumerates the built-in generator templates.
type Template int

const (
	TemplateNone Template = iota
	TemplateFilepaths
	TemplateFolders
	TemplateHelp
	TemplateHistory
)

// CacheStrategy selects the staleness policy for cached generator output.
type CacheStrategy string

const (
	// CacheStaleWhileRevalidate returns an expired entry immediately while
	// refreshing it in the background.
	CacheStaleWhileRevalidate CacheStrategy = "stale-while-revalidate"
	// CacheMaxAge treats an expired entry as a miss.
	CacheMaxAge CacheStrategy = "max-age"
)

// CachePolicy controls caching of one generator's results. A nil policy
// means "never cache" unless the engine-wide cache-all setting is on.
type CachePolicy struct {
	Strategy         CacheStrategy
	TTL              time.Duration
	CacheByDirectory bool
}

// Generator is a pluggable suggestion source for an argument slot.
// Exactly one of the kind-specific fields is meaningful, selected by Kind.
type Generator struct {
	Kind GeneratorKind

	// Script is a shell command line, lexed into argv before execution.
	// ScriptArgv takes precedence when set.
	Script     string
	ScriptArgv []string

	// ScriptTimeout bounds script execution. Zero defers to the engine
	// setting; a negative value disables the timeout.
	ScriptTimeout time.Duration

	// SplitOn is the delimiter stdout is split by. Defaults to newline.
	SplitOn string

	// PostProcess, when set, receives the raw stdout instead of splitting.
	PostProcess PostProcessFunc

	// Custom is the in-process callable for GeneratorCustom.
	Custom CustomFunc

	// Template selects the built-in set for GeneratorTemplate.
	Template Template

	// FilterTemplateSuggestions post-filters template output.
	FilterTemplateSuggestions FilterFunc

	Cache *CachePolicy

	// CacheKey overrides the token-derived cache key.
	CacheKey string
}

// CommandResult is the outcome of running an external command.
type CommandResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// RunCommand is the injected capability for executing external commands.
// The engine never shells out on its own.
type RunCommand func(ctx context.Context, argv []string, cwd string, timeout time.Duration) (CommandResult, error)

// CustomFunc is an in-process suggestion callable. Tokens are the parsed
// token texts of the current command. Callables communicate only through
// the return value: stdout and stderr belong to the host, and anything a
// callable prints there interleaves with the host's own output.
type CustomFunc func(ctx context.Context, tokens []string, run RunCommand) ([]Suggestion, error)

// GenerateSpecFunc computes a subcommand definition dynamically.
type GenerateSpecFunc func(ctx context.Context, tokens []string, run RunCommand) (*Subcommand, error)

// PostProcessFunc maps raw script output to suggestions.
type PostProcessFunc func(output string, tokens []string) []Suggestion

// FilterFunc post-filters a suggestion list.
type FilterFunc func([]Suggestion) []Suggestion
