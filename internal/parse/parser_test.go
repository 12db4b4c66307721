package parse

import (
	"context"
	"errors"
	"testing"

	"github.com/glintshell/glint/internal/shell"
	"github.com/glintshell/glint/internal/spec"
	"github.com/glintshell/glint/internal/spec/resolver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gitSpec() *spec.Subcommand {
	return &spec.Subcommand{
		Names: []string{"git"},
		PersistentOptions: []*spec.Option{
			{Names: []string{"-C"}, Args: []*spec.Arg{{Name: "path"}}},
		},
		Options: []*spec.Option{
			{Names: []string{"--version"}},
		},
		Subcommands: []*spec.Subcommand{
			{
				Names: []string{"checkout", "co"},
				Args:  []*spec.Arg{{Name: "branch"}},
			},
			{
				Names: []string{"commit"},
				Options: []*spec.Option{
					{Names: []string{"-m", "--message"}, Args: []*spec.Arg{{Name: "message"}}},
					{Names: []string{"-a", "--all"}},
					{Names: []string{"-v"}},
				},
			},
			{
				Names: []string{"add"},
				Args:  []*spec.Arg{{Name: "pathspec", IsVariadic: true}},
			},
		},
	}
}

func newParser(t *testing.T, specs ...*spec.Subcommand) Options {
	t.Helper()
	r := resolver.New(resolver.Options{})
	for _, s := range specs {
		r.Register(s)
	}
	return Options{Resolver: r}
}

func parseLine(t *testing.T, opts Options, line string) (*Result, error) {
	t.Helper()
	cmd := shell.GetCommand(line, nil)
	require.NotNil(t, cmd)
	return ParseArguments(context.Background(), cmd, shell.Context{}, opts)
}

func mustParse(t *testing.T, opts Options, line string) *Result {
	t.Helper()
	res, err := parseLine(t, opts, line)
	require.NoError(t, err)
	return res
}

func TestParseEmptyCommand(t *testing.T) {
	opts := newParser(t, gitSpec())

	_, err := ParseArguments(context.Background(), nil, shell.Context{}, opts)
	assert.ErrorIs(t, err, ErrNoCommand)

	cmd := shell.GetCommand("", nil)
	require.NotNil(t, cmd)
	_, err = ParseArguments(context.Background(), cmd, shell.Context{}, opts)
	assert.ErrorIs(t, err, ErrNoCommand)
}

func TestParseCommandNameOnly(t *testing.T) {
	res := mustParse(t, newParser(t, gitSpec()), "git")

	assert.Equal(t, "git", res.SearchTerm)
	assert.Equal(t, "git", res.Completion.Name())
	assert.True(t, res.Flags.Has(FlagSubcommands))
	require.Len(t, res.Annotations, 1)
	assert.Equal(t, AnnotationSubcommand, res.Annotations[0].Kind)
}

func TestParseSuggestsSubcommandsAfterCommand(t *testing.T) {
	res := mustParse(t, newParser(t, gitSpec()), "git ")

	assert.Equal(t, "", res.SearchTerm)
	assert.True(t, res.Flags.Has(FlagSubcommands))
	assert.True(t, res.Flags.Has(FlagOptions))
	assert.Nil(t, res.CurrentArg)
}

func TestParseDescendsIntoSubcommand(t *testing.T) {
	res := mustParse(t, newParser(t, gitSpec()), "git checkout ")

	assert.Equal(t, "checkout", res.Completion.Name())
	require.NotNil(t, res.CurrentArg)
	assert.Equal(t, "branch", res.CurrentArg.Name)
	assert.True(t, res.Flags.Has(FlagArgs))
}

func TestParseSubcommandAlias(t *testing.T) {
	res := mustParse(t, newParser(t, gitSpec()), "git co ")

	assert.Equal(t, "checkout", res.Completion.Name())
}

func TestParseFinalTokenIsSearchTerm(t *testing.T) {
	res := mustParse(t, newParser(t, gitSpec()), "git checkout mai")

	assert.Equal(t, "mai", res.SearchTerm)
	require.NotNil(t, res.CurrentArg)
	assert.Equal(t, "branch", res.CurrentArg.Name)
}

func TestParseUnknownFinalTokenIsNotAnError(t *testing.T) {
	res := mustParse(t, newParser(t, gitSpec()), "git frobni")

	assert.Equal(t, "frobni", res.SearchTerm)
	assert.Nil(t, res.CurrentArg)
}

func TestParseUnknownCommittedTokenThrows(t *testing.T) {
	_, err := parseLine(t, newParser(t, gitSpec()), "git frobnicate --hard ")
	assert.ErrorIs(t, err, ErrUnknownToken)
}

func TestParseOptionCollectsItsArg(t *testing.T) {
	res := mustParse(t, newParser(t, gitSpec()), "git commit -m ")

	require.NotNil(t, res.CurrentOption)
	assert.Equal(t, "-m", res.CurrentOption.Name())
	require.NotNil(t, res.CurrentArg)
	assert.Equal(t, "message", res.CurrentArg.Name)
	assert.Equal(t, FlagArgs, res.Flags)
}

func TestParseOptionArgCommitted(t *testing.T) {
	res := mustParse(t, newParser(t, gitSpec()), `git commit -m "fix bug" `)

	assert.Nil(t, res.CurrentOption)
	kinds := annotationKinds(res)
	assert.Equal(t, []AnnotationKind{
		AnnotationSubcommand,
		AnnotationSubcommand,
		AnnotationOption,
		AnnotationOptionArg,
	}, kinds)
}

func TestParsePersistentOptionInheritedByDescendants(t *testing.T) {
	res := mustParse(t, newParser(t, gitSpec()), "git commit -C ")

	require.NotNil(t, res.CurrentOption)
	assert.Equal(t, "-C", res.CurrentOption.Name())
	require.NotNil(t, res.CurrentArg)
	assert.Equal(t, "path", res.CurrentArg.Name)
}

func TestParsePosixChainedFlags(t *testing.T) {
	res := mustParse(t, newParser(t, gitSpec()), "git commit -av ")

	kinds := annotationKinds(res)
	assert.Equal(t, []AnnotationKind{
		AnnotationSubcommand,
		AnnotationSubcommand,
		AnnotationOption,
	}, kinds)
	assert.Nil(t, res.CurrentOption)
}

func TestParsePosixChainedFlagWithInlineArg(t *testing.T) {
	res := mustParse(t, newParser(t, gitSpec()), "git commit -amWIP ")

	require.Len(t, res.Annotations, 3)
	last := res.Annotations[2]
	assert.Equal(t, AnnotationOption, last.Kind)
	assert.Equal(t, "-m", last.Option.Name())
	assert.Equal(t, "WIP", last.InlineValue)
	assert.Nil(t, res.CurrentOption)
}

func TestParsePosixNoncompliantDisablesChaining(t *testing.T) {
	tool := &spec.Subcommand{
		Names:      []string{"find"},
		Directives: spec.Directives{FlagsArePosixNoncompliant: true},
		Options: []*spec.Option{
			{Names: []string{"-name"}, Args: []*spec.Arg{{Name: "pattern"}}},
		},
	}

	res := mustParse(t, newParser(t, tool), "find -name ")
	require.NotNil(t, res.CurrentArg)
	assert.Equal(t, "pattern", res.CurrentArg.Name)

	// Without chaining, "-nx" matches nothing and throws when committed.
	_, err := parseLine(t, newParser(t, tool), "find -nx foo ")
	assert.ErrorIs(t, err, ErrUnknownToken)
}

func TestParseRequiresEqualsInlineValue(t *testing.T) {
	tool := &spec.Subcommand{
		Names: []string{"clone"},
		Options: []*spec.Option{
			{Names: []string{"--depth"}, RequiresEquals: true, Args: []*spec.Arg{{Name: "depth"}}},
		},
	}
	opts := newParser(t, tool)

	// Value part of the same token becomes the live search term.
	res := mustParse(t, opts, "clone --depth=1")
	assert.Equal(t, "1", res.SearchTerm)
	require.NotNil(t, res.CurrentArg)
	assert.Equal(t, "depth", res.CurrentArg.Name)
	assert.Equal(t, FlagArgs, res.Flags)

	// Bare token without the separator is a syntax match, no value yet.
	res = mustParse(t, opts, "clone --depth")
	assert.Equal(t, "--depth", res.SearchTerm)
	assert.Nil(t, res.CurrentArg)
	assert.Equal(t, FlagOptions, res.Flags)
}

func TestParseRequiresSeparatorWinsOverChaining(t *testing.T) {
	tool := &spec.Subcommand{
		Names: []string{"mvn"},
		Options: []*spec.Option{
			{Names: []string{"-D"}, RequiresSeparator: "=", Args: []*spec.Arg{{Name: "property"}}},
			{Names: []string{"-X"}},
		},
	}

	opts := newParser(t, tool)

	res := mustParse(t, opts, "mvn -D=skipTests ")
	kinds := annotationKinds(res)
	require.Equal(t, []AnnotationKind{AnnotationSubcommand, AnnotationOption}, kinds)
	assert.Equal(t, "-D", res.Annotations[1].Option.Name())
	assert.Equal(t, "skipTests", res.Annotations[1].InlineValue)

	// Chaining never splits an option that requires a separator, so a
	// glued value without the separator is not an option match at all.
	_, err := parseLine(t, opts, "mvn -DskipTests foo ")
	assert.ErrorIs(t, err, ErrUnknownToken)
}

func TestParseEndOfOptions(t *testing.T) {
	rm := &spec.Subcommand{
		Names: []string{"rm"},
		Options: []*spec.Option{
			{Names: []string{"-r"}},
			{Names: []string{"-f"}},
		},
		Args: []*spec.Arg{{Name: "file", IsVariadic: true}},
	}
	opts := newParser(t, rm)

	res := mustParse(t, opts, "rm -- -r ")

	// After "--", "-r" is a positional argument even though the option
	// exists, and only arg suggestions remain valid.
	kinds := annotationKinds(res)
	assert.Equal(t, []AnnotationKind{
		AnnotationSubcommand,
		AnnotationNone,
		AnnotationSubcommandArg,
	}, kinds)
	assert.Equal(t, FlagArgs, res.Flags)
	require.NotNil(t, res.CurrentArg)
	assert.Equal(t, "file", res.CurrentArg.Name)
}

func TestParseVariadicConsumption(t *testing.T) {
	res := mustParse(t, newParser(t, gitSpec()), "git add a.go b.go c.go ")

	// All three values land in the single variadic slot.
	var argAnnotations []Annotation
	for _, a := range res.Annotations {
		if a.Kind == AnnotationSubcommandArg {
			argAnnotations = append(argAnnotations, a)
		}
	}
	require.Len(t, argAnnotations, 3)
	assert.Same(t, argAnnotations[0].Arg, argAnnotations[1].Arg)
	assert.Same(t, argAnnotations[1].Arg, argAnnotations[2].Arg)

	require.NotNil(t, res.CurrentArg)
	assert.Equal(t, "pathspec", res.CurrentArg.Name)
}

func TestParseVariadicTerminatedBySubcommand(t *testing.T) {
	tool := &spec.Subcommand{
		Names: []string{"task"},
		Args:  []*spec.Arg{{Name: "target", IsOptionalVariadic: true}},
		Subcommands: []*spec.Subcommand{
			{Names: []string{"clean"}, Args: []*spec.Arg{{Name: "dir"}}},
		},
	}

	res := mustParse(t, newParser(t, tool), "task build test clean ")

	assert.Equal(t, "clean", res.Completion.Name())
	require.NotNil(t, res.CurrentArg)
	assert.Equal(t, "dir", res.CurrentArg.Name)
}

func TestParseOptionalArgSkippedForSubcommand(t *testing.T) {
	tool := &spec.Subcommand{
		Names: []string{"serve"},
		Args:  []*spec.Arg{{Name: "port", IsOptional: true}},
		Subcommands: []*spec.Subcommand{
			{Names: []string{"status"}},
		},
	}

	res := mustParse(t, newParser(t, tool), "serve status ")
	assert.Equal(t, "status", res.Completion.Name())
}

func TestParseOptionsMustPrecedeArguments(t *testing.T) {
	tool := &spec.Subcommand{
		Names:      []string{"run"},
		Directives: spec.Directives{OptionsMustPrecedeArguments: true},
		Options: []*spec.Option{
			{Names: []string{"-v"}},
		},
		Args: []*spec.Arg{{Name: "cmd"}, {Name: "extra", IsVariadic: true}},
	}

	res := mustParse(t, newParser(t, tool), "run thing -v ")

	// Once a positional is consumed, "-v" is an argument, not an option.
	kinds := annotationKinds(res)
	assert.Equal(t, []AnnotationKind{
		AnnotationSubcommand,
		AnnotationSubcommandArg,
		AnnotationSubcommandArg,
	}, kinds)
	assert.False(t, res.Flags.Has(FlagOptions))
}

func TestParseRecursiveLoadSpecChain(t *testing.T) {
	r := resolver.New(resolver.Options{})
	r.Register(&spec.Subcommand{Names: []string{"a"}, LoadSpec: []string{"b"}})
	r.Register(&spec.Subcommand{Names: []string{"b"}, LoadSpec: []string{"c"}})
	r.Register(&spec.Subcommand{
		Names: []string{"c"},
		Subcommands: []*spec.Subcommand{
			{Names: []string{"deep"}, Args: []*spec.Arg{{Name: "value", IsVariadic: true}}},
		},
	})
	opts := Options{Resolver: r}

	res := mustParse(t, opts, "a deep x ")

	// Three tokens consumed through the chain means three annotations,
	// not one per hop.
	require.Len(t, res.Annotations, 3)
	require.NotNil(t, res.CurrentArg)
	assert.Equal(t, "value", res.CurrentArg.Name)
}

func TestParseIsCommandNestedParse(t *testing.T) {
	sudo := &spec.Subcommand{
		Names: []string{"sudo"},
		Args:  []*spec.Arg{{Name: "command", IsCommand: true, IsVariadic: true}},
	}

	opts := newParser(t, sudo, gitSpec())

	res := mustParse(t, opts, "sudo git checkout ")

	assert.Equal(t, "checkout", res.Completion.Name())
	assert.Equal(t, 1, res.CommandIndex)
	require.NotNil(t, res.CurrentArg)
	assert.Equal(t, "branch", res.CurrentArg.Name)

	// One annotation per consumed token across both parses.
	kinds := annotationKinds(res)
	assert.Equal(t, []AnnotationKind{
		AnnotationSubcommand,
		AnnotationSubcommand,
		AnnotationSubcommand,
	}, kinds)
}

func TestParseModuleArgSplicesSpec(t *testing.T) {
	r := resolver.New(resolver.Options{})
	r.Register(&spec.Subcommand{
		Names: []string{"python"},
		Args: []*spec.Arg{
			{Name: "module", Module: "python/"},
			{Name: "rest", IsOptionalVariadic: true},
		},
	})
	r.Register(&spec.Subcommand{
		Names: []string{"python/manage.py"},
		Subcommands: []*spec.Subcommand{
			{Names: []string{"migrate"}},
		},
	})
	opts := Options{Resolver: r}

	res := mustParse(t, opts, "python manage.py ")
	assert.True(t, res.Flags.Has(FlagSubcommands))
	assert.NotNil(t, res.Completion.FindSubcommand("migrate"))
}

func TestParseGenerateSpecFailureDegrades(t *testing.T) {
	tool := &spec.Subcommand{
		Names: []string{"dyn"},
		GenerateSpec: func(ctx context.Context, tokens []string, run spec.RunCommand) (*spec.Subcommand, error) {
			return nil, errors.New("generation exploded")
		},
		Subcommands: []*spec.Subcommand{
			{Names: []string{"static"}},
		},
	}

	res := mustParse(t, newParser(t, tool), "dyn ")

	// The static definition survives, but no current argument is
	// recorded.
	assert.NotNil(t, res.Completion.FindSubcommand("static"))
	assert.Nil(t, res.CurrentArg)
}

func TestParseGenerateSpecPanicIsContained(t *testing.T) {
	tool := &spec.Subcommand{
		Names: []string{"dyn"},
		GenerateSpec: func(ctx context.Context, tokens []string, run spec.RunCommand) (*spec.Subcommand, error) {
			panic("boom")
		},
	}

	_, err := parseLine(t, newParser(t, tool), "dyn ")
	assert.NoError(t, err)
}

func TestParseNoSpecDegradesToNoCompletion(t *testing.T) {
	res := mustParse(t, newParser(t), "unknowncmd --flag ")

	assert.Nil(t, res.Completion)
	assert.Nil(t, res.CurrentArg)
	assert.Equal(t, "", res.SearchTerm)
	assert.Equal(t, Flags(0), res.Flags)
}

func TestParseIdempotent(t *testing.T) {
	opts := newParser(t, gitSpec())

	first := mustParse(t, opts, "git commit -m msg --all ")
	second := mustParse(t, opts, "git commit -m msg --all ")

	assert.Equal(t, first.Flags, second.Flags)
	assert.Equal(t, first.SearchTerm, second.SearchTerm)
	assert.Equal(t, annotationKinds(first), annotationKinds(second))
}

func annotationKinds(res *Result) []AnnotationKind {
	kinds := make([]AnnotationKind, len(res.Annotations))
	for i, a := range res.Annotations {
		kinds[i] = a.Kind
	}
	return kinds
}
