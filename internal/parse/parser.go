// Package parse implements the argument-state machine at the heart of the
// engine: a recursive-descent walk of the token sequence against a resolved
// completion spec. The walk commits every token except the final one, which
// is the text the user is still typing and becomes the search term.
package parse

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/glintshell/glint/internal/shell"
	"github.com/glintshell/glint/internal/spec"
	"github.com/glintshell/glint/internal/spec/resolver"
	"go.uber.org/zap"
)

var (
	// ErrNoCommand is returned for an empty or nil command.
	ErrNoCommand = errors.New("no command to parse")

	// ErrUnknownToken marks a committed token that matches no grammar
	// node. It distinguishes a bad completion state from a user who is
	// still typing; callers reset their suggestion UI on it.
	ErrUnknownToken = errors.New("unrecognized token")
)

// Options configures one parse.
type Options struct {
	// Resolver loads specs for the first token and for loadSpec hops.
	Resolver *resolver.Resolver

	// Run is the injected command execution capability handed to
	// generateSpec functions.
	Run spec.RunCommand

	// Logger for debug output. If nil, a no-op logger is used.
	Logger *zap.Logger
}

// ParseArguments walks the command's tokens against its resolved spec and
// returns the grammar position of the cursor token.
func ParseArguments(ctx context.Context, cmd *shell.Command, sctx shell.Context, opts Options) (*Result, error) {
	if cmd == nil || len(cmd.Tokens) == 0 {
		return nil, ErrNoCommand
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return parseTokens(ctx, cmd.Tokens, 0, sctx, opts)
}

type consumeAction int

const (
	actionContinue consumeAction = iota
	// actionNested means the token landed on an isCommand slot and the
	// remaining tokens form a brand-new command line.
	actionNested
)

type walker struct {
	ctx  context.Context
	opts Options
	sctx shell.Context

	// texts are all token texts of the current command, handed to
	// generateSpec and custom callables.
	texts []string

	sub       *spec.Subcommand
	inherited []*spec.Option

	opt         *spec.Option
	optArgIndex int

	argIndex      int
	variadicCount int

	endOfOptions       bool
	positionalConsumed bool
	generateFailed     bool

	annotations []Annotation
}

func parseTokens(ctx context.Context, tokens []shell.Token, base int, sctx shell.Context, opts Options) (*Result, error) {
	first := tokens[0]

	w := &walker{
		ctx:   ctx,
		opts:  opts,
		sctx:  sctx,
		texts: tokenTexts(tokens),
	}

	root := w.resolveRoot(first.Text)
	if root == nil {
		// Spec resolution failure degrades to "no completion object" for
		// this position; it is not a parse failure.
		last := tokens[len(tokens)-1]
		return &Result{
			SearchTerm:   last.Text,
			CommandIndex: base,
		}, nil
	}

	w.sub = root
	w.annotations = append(w.annotations, Annotation{
		Token:      first,
		Kind:       AnnotationSubcommand,
		Subcommand: root,
	})

	if len(tokens) == 1 {
		// The command name itself is still being typed.
		return &Result{
			Completion:   root,
			Flags:        FlagSubcommands,
			SearchTerm:   first.Text,
			Annotations:  w.annotations,
			CommandIndex: base,
		}, nil
	}

	for i := 1; i < len(tokens)-1; i++ {
		action, err := w.consume(tokens[i])
		if err != nil {
			return nil, err
		}
		if action == actionNested {
			nested, err := parseTokens(ctx, tokens[i:], base+i, sctx, opts)
			if err != nil {
				return nil, err
			}
			nested.Annotations = append(w.annotations, nested.Annotations...)
			return nested, nil
		}
	}

	return w.finish(tokens[len(tokens)-1], base), nil
}

func tokenTexts(tokens []shell.Token) []string {
	texts := make([]string, len(tokens))
	for i, t := range tokens {
		texts[i] = t.Text
	}
	return texts
}

// resolveRoot loads the spec for the first token, applying first-token
// location precedence and any root-level generateSpec.
func (w *walker) resolveRoot(token string) *spec.Subcommand {
	if w.opts.Resolver == nil {
		return nil
	}
	locations := w.opts.Resolver.LocationsForToken(token, w.sctx.CurrentWorkingDirectory)
	root, err := w.opts.Resolver.LoadFirst(w.ctx, locations)
	if err != nil {
		w.opts.Logger.Debug("no spec for first token",
			zap.String("token", token),
			zap.Error(err),
		)
		return nil
	}
	return w.applyGenerateSpec(root)
}

// applyGenerateSpec runs a node's generateSpec function, degrading to the
// static definition when generation fails. A panic inside the callable is
// treated the same as an error.
func (w *walker) applyGenerateSpec(sub *spec.Subcommand) *spec.Subcommand {
	if sub == nil || sub.GenerateSpec == nil {
		return sub
	}

	generated, err := func() (s *spec.Subcommand, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("generateSpec panic: %v", r)
			}
		}()
		return sub.GenerateSpec(w.ctx, w.texts, w.opts.Run)
	}()

	if err != nil || generated == nil {
		w.generateFailed = true
		w.opts.Logger.Debug("generateSpec failed, using static spec",
			zap.String("spec", sub.Name()),
			zap.Error(err),
		)
		return sub
	}

	merged := *generated
	if len(merged.Names) == 0 {
		merged.Names = sub.Names
	}
	return &merged
}

// consume advances the state machine over one committed (non-final) token.
func (w *walker) consume(tok shell.Token) (consumeAction, error) {
	text := tok.Text

	if !w.endOfOptions && text == "--" {
		w.endOfOptions = true
		w.opt = nil
		w.optArgIndex = 0
		w.annotations = append(w.annotations, Annotation{Token: tok, Kind: AnnotationNone})
		return actionContinue, nil
	}

	if w.optionsAllowed() && isOptionLike(text) {
		if w.tryOption(tok) {
			return actionContinue, nil
		}
	}

	// Collecting args for an option.
	if w.opt != nil && w.optArgIndex < len(w.opt.Args) {
		slot := w.opt.Args[w.optArgIndex]
		w.annotations = append(w.annotations, Annotation{
			Token:  tok,
			Kind:   AnnotationOptionArg,
			Option: w.opt,
			Arg:    slot,
		})
		if !slot.Repeats() {
			w.optArgIndex++
			if w.optArgIndex >= len(w.opt.Args) {
				w.opt = nil
				w.optArgIndex = 0
			}
		}
		return actionContinue, nil
	}

	// Positional args of the current subcommand.
	if w.argIndex < len(w.sub.Args) {
		slot := w.sub.Args[w.argIndex]

		if slot.Repeats() && w.variadicCount > 0 {
			// A variadic run in progress ends when the token is itself a
			// recognized subcommand; options were already tried above.
			if child := w.sub.FindSubcommand(text); child != nil {
				w.argIndex++
				w.variadicCount = 0
				return w.descend(tok, child)
			}
			return w.consumeArgSlot(tok, slot)
		}

		if slot.Skippable() {
			if child := w.sub.FindSubcommand(text); child != nil {
				return w.descend(tok, child)
			}
		}

		return w.consumeArgSlot(tok, slot)
	}

	if child := w.sub.FindSubcommand(text); child != nil {
		return w.descend(tok, child)
	}

	return actionContinue, fmt.Errorf("%w: %q", ErrUnknownToken, text)
}

// consumeArgSlot commits a token as the value of a positional slot.
func (w *walker) consumeArgSlot(tok shell.Token, slot *spec.Arg) (consumeAction, error) {
	if slot.IsCommand || slot.IsScript {
		// The value is a sub-invocation; the nested parse annotates it.
		return actionNested, nil
	}

	w.annotations = append(w.annotations, Annotation{
		Token: tok,
		Kind:  AnnotationSubcommandArg,
		Arg:   slot,
	})
	w.positionalConsumed = true

	if slot.Repeats() {
		w.variadicCount++
	} else {
		w.argIndex++
	}

	if slot.Module != "" || slot.LoadSpec != "" {
		w.spliceArgSpec(tok.Text, slot)
	}

	return actionContinue, nil
}

// spliceArgSpec loads the spec named by an arg's value and splices its
// grammar into the current position, merging inherited options.
func (w *walker) spliceArgSpec(value string, slot *spec.Arg) {
	if w.opts.Resolver == nil {
		return
	}

	location := slot.LoadSpec
	if location == "" {
		location = strings.TrimSuffix(slot.Module, "/") + "/" + value
	}

	loaded, err := w.opts.Resolver.LoadSubcommandCached(w.ctx, location)
	if err != nil {
		w.opts.Logger.Debug("arg spec splice failed",
			zap.String("location", location),
			zap.Error(err),
		)
		// No completion object for this position; later committed tokens
		// will be unrecognized, the final token just gets no suggestions.
		w.setSubcommand(&spec.Subcommand{})
		return
	}

	w.inherited = append(w.inherited, w.sub.PersistentOptions...)
	w.setSubcommand(w.applyGenerateSpec(loaded))
}

func (w *walker) descend(tok shell.Token, child *spec.Subcommand) (consumeAction, error) {
	if len(child.LoadSpec) > 0 && w.opts.Resolver != nil {
		resolved, err := w.opts.Resolver.ResolveNode(w.ctx, child)
		if err != nil {
			w.opts.Logger.Debug("loadSpec hop failed",
				zap.String("subcommand", child.Name()),
				zap.Error(err),
			)
		} else {
			child = resolved
		}
	}
	child = w.applyGenerateSpec(child)

	w.inherited = append(w.inherited, w.sub.PersistentOptions...)
	w.setSubcommand(child)

	w.annotations = append(w.annotations, Annotation{
		Token:      tok,
		Kind:       AnnotationSubcommand,
		Subcommand: child,
	})
	return actionContinue, nil
}

func (w *walker) setSubcommand(sub *spec.Subcommand) {
	w.sub = sub
	w.opt = nil
	w.optArgIndex = 0
	w.argIndex = 0
	w.variadicCount = 0
	w.positionalConsumed = false
}

func (w *walker) optionsAllowed() bool {
	if w.endOfOptions {
		return false
	}
	if w.sub.Directives.OptionsMustPrecedeArguments && w.positionalConsumed {
		return false
	}
	return true
}

func isOptionLike(text string) bool {
	return len(text) > 1 && text[0] == '-'
}

// tryOption attempts to commit a token as an option of the current node.
// Separator forms win over posix chaining when both could apply.
func (w *walker) tryOption(tok shell.Token) bool {
	text := tok.Text

	if opt := w.findOption(text); opt != nil {
		w.annotations = append(w.annotations, Annotation{
			Token:  tok,
			Kind:   AnnotationOption,
			Option: opt,
		})
		if opt.Separator() == "" && len(opt.Args) > 0 {
			w.opt = opt
			w.optArgIndex = 0
		} else {
			// Separator options only take inline values; a bare token is
			// a syntax match with no argument value yet.
			w.opt = nil
		}
		return true
	}

	if opt, value, ok := w.splitSeparator(text); ok {
		w.annotations = append(w.annotations, Annotation{
			Token:       tok,
			Kind:        AnnotationOption,
			Option:      opt,
			InlineValue: value,
		})
		w.opt = nil
		w.optArgIndex = 0
		return true
	}

	if !w.sub.Directives.FlagsArePosixNoncompliant && len(text) > 2 && text[1] != '-' {
		return w.tryChained(tok)
	}

	return false
}

// splitSeparator matches separator forms like --depth=1 or -D:value.
func (w *walker) splitSeparator(text string) (*spec.Option, string, bool) {
	directiveSeps := w.sub.Directives.Separators()

	for _, opt := range w.allOptions() {
		seps := directiveSeps
		if s := opt.Separator(); s != "" {
			seps = []string{s}
		}
		for _, name := range opt.Names {
			for _, sep := range seps {
				if strings.HasPrefix(text, name+sep) {
					return opt, text[len(name)+len(sep):], true
				}
			}
		}
	}
	return nil, "", false
}

// tryChained matches stacked single-character flags ("-abc") and a flag
// immediately followed by its argument with no separator ("-ofile").
func (w *walker) tryChained(tok shell.Token) bool {
	body := tok.Text[1:]

	for i := 0; i < len(body); i++ {
		opt := w.findOption("-" + string(body[i]))
		if opt == nil || opt.Separator() != "" {
			return false
		}
		if len(opt.Args) > 0 {
			rest := body[i+1:]
			w.annotations = append(w.annotations, Annotation{
				Token:       tok,
				Kind:        AnnotationOption,
				Option:      opt,
				InlineValue: rest,
			})
			if rest == "" {
				w.opt = opt
				w.optArgIndex = 0
			} else {
				w.opt = nil
			}
			return true
		}
	}

	last := w.findOption("-" + string(body[len(body)-1]))
	w.annotations = append(w.annotations, Annotation{
		Token:  tok,
		Kind:   AnnotationOption,
		Option: last,
	})
	w.opt = nil
	return true
}

func (w *walker) allOptions() []*spec.Option {
	all := make([]*spec.Option, 0, len(w.sub.Options)+len(w.sub.PersistentOptions)+len(w.inherited))
	all = append(all, w.sub.Options...)
	all = append(all, w.sub.PersistentOptions...)
	all = append(all, w.inherited...)
	return all
}

func (w *walker) findOption(name string) *spec.Option {
	if name == "" {
		return nil
	}
	for _, opt := range w.allOptions() {
		if opt.HasName(name) {
			return opt
		}
	}
	return nil
}

// finish derives the result from the machine state and the final token.
// The final token is never committed; an unrecognized final token simply
// becomes the search term with no matching grammar node.
func (w *walker) finish(final shell.Token, base int) *Result {
	res := &Result{
		Completion:       w.sub,
		SearchTerm:       final.Text,
		Annotations:      w.annotations,
		AvailableOptions: w.allOptions(),
		CommandIndex:     base,
	}
	text := final.Text

	switch {
	case w.optionsAllowed() && isOptionLike(text) && text != "--":
		// Separator forms expose the option's first arg with the value
		// part as the live search term.
		if opt, value, ok := w.splitSeparator(text); ok {
			res.CurrentOption = opt
			res.SearchTerm = value
			if len(opt.Args) > 0 {
				res.CurrentArg = opt.Args[0]
			}
			res.Flags = FlagArgs
			break
		}
		// Still typing an option name. Chained-flag ambiguity forbids
		// subcommand suggestions here.
		res.Flags = FlagOptions

	case w.opt != nil && w.optArgIndex < len(w.opt.Args):
		slot := w.opt.Args[w.optArgIndex]
		res.CurrentOption = w.opt
		res.CurrentArg = slot
		res.Flags = FlagArgs
		if slot.Skippable() && w.optionsAllowed() {
			res.Flags |= FlagOptions
		}

	default:
		if w.argIndex < len(w.sub.Args) {
			res.CurrentArg = w.sub.Args[w.argIndex]
			res.Flags |= FlagArgs
		}
		if len(w.sub.Subcommands) > 0 && !w.positionalConsumed && w.variadicCount == 0 && !w.endOfOptions {
			res.Flags |= FlagSubcommands
		}
		if w.optionsAllowed() {
			res.Flags |= FlagOptions
		}
	}

	if w.generateFailed {
		res.CurrentArg = nil
	}

	return res
}
