package parse

import (
	"github.com/glintshell/glint/internal/shell"
	"github.com/glintshell/glint/internal/spec"
)

// AnnotationKind is the grammar role assigned to one input token.
type AnnotationKind int

const (
	AnnotationNone AnnotationKind = iota
	AnnotationSubcommand
	AnnotationOption
	AnnotationOptionArg
	AnnotationSubcommandArg
)

// String returns a short name for logging.
func (k AnnotationKind) String() string {
	switch k {
	case AnnotationSubcommand:
		return "subcommand"
	case AnnotationOption:
		return "option"
	case AnnotationOptionArg:
		return "option-arg"
	case AnnotationSubcommandArg:
		return "subcommand-arg"
	default:
		return "none"
	}
}

// Annotation tags a token with the grammar node it matched. The back
// references feed both rendering and generator context.
type Annotation struct {
	Token shell.Token
	Kind  AnnotationKind

	Subcommand *spec.Subcommand
	Option     *spec.Option
	Arg        *spec.Arg

	// InlineValue is the option value carried inside the same token for
	// separator forms like --depth=1.
	InlineValue string
}

// Flags is the bitset of suggestion categories valid at the cursor. It is
// a deterministic function of the final parser state, re-derivable from
// the state snapshot alone.
type Flags uint8

const (
	FlagSubcommands Flags = 1 << iota
	FlagOptions
	FlagArgs
)

// Has reports whether all bits in f2 are set.
func (f Flags) Has(f2 Flags) bool {
	return f&f2 == f2
}

// Result is the outcome of one full parse of a command.
type Result struct {
	// CurrentArg is the argument slot the cursor token is filling, or nil
	// when no slot is active.
	CurrentArg *spec.Arg

	// CurrentOption is the option whose args are being collected, if any.
	CurrentOption *spec.Option

	// Completion is the subcommand node the cursor is inside. Nil when no
	// spec could be resolved for this position.
	Completion *spec.Subcommand

	// Flags describes which suggestion categories are currently valid.
	Flags Flags

	// SearchTerm is the literal text of the cursor token, minus any
	// separator prefix already consumed.
	SearchTerm string

	// AvailableOptions are the options valid at the cursor: the current
	// node's own plus persistent options inherited from ancestors.
	AvailableOptions []*spec.Option

	// Annotations cover every committed token, in order.
	Annotations []Annotation

	// CommandIndex is the token index where the innermost command begins;
	// non-zero after an isCommand nested parse.
	CommandIndex int
}
