package spec

// SuggestionType discriminates what a suggestion stands for. It is a closed
// enum; every switch over it should be exhaustive.
type SuggestionType int

const (
	// TypeUnspecified is the zero value: the producer set no type. Generator
	// output normalizes it to TypeArg before it reaches the pipeline.
	TypeUnspecified SuggestionType = iota
	TypeSubcommand
	TypeOption
	TypeArg
	TypeFile
	TypeFolder
	TypeShortcut
	TypeSpecial
	// TypeAutoExecute marks a synthetic entry that runs or enters something
	// immediately instead of just inserting text.
	TypeAutoExecute
	TypeMixin
)

// String returns the wire name of the type as it appears in spec documents.
func (t SuggestionType) String() string {
	switch t {
	case TypeSubcommand:
		return "subcommand"
	case TypeOption:
		return "option"
	case TypeArg:
		return "arg"
	case TypeFile:
		return "file"
	case TypeFolder:
		return "folder"
	case TypeShortcut:
		return "shortcut"
	case TypeSpecial:
		return "special"
	case TypeAutoExecute:
		return "auto-execute"
	case TypeMixin:
		return "mixin"
	default:
		return "arg"
	}
}

// SuggestionTypeFromString parses a wire name; unknown names map to TypeArg.
func SuggestionTypeFromString(s string) SuggestionType {
	switch s {
	case "subcommand":
		return TypeSubcommand
	case "option":
		return TypeOption
	case "file":
		return TypeFile
	case "folder":
		return TypeFolder
	case "shortcut":
		return TypeShortcut
	case "special":
		return TypeSpecial
	case "auto-execute":
		return TypeAutoExecute
	case "mixin":
		return TypeMixin
	default:
		return TypeArg
	}
}

// Suggestion is one completion candidate. Suggestions are ephemeral:
// regenerated on every suggestion-affecting state change, never persisted.
type Suggestion struct {
	// Names are the insertable names; the first is primary.
	Names []string

	DisplayName string
	Description string

	Type SuggestionType

	// InsertValue, when non-empty, is inserted instead of the name. It may
	// contain the "{cursor}" marker to position the cursor after insertion.
	InsertValue string

	Icon string

	Priority float64

	IsDangerous bool

	// Args carries the argument slots a subcommand/option suggestion would
	// introduce; part of the dedup identity.
	Args []*Arg

	// Generator back-references the generator that produced this entry.
	Generator *Generator
}

// Name returns the primary name.
func (s Suggestion) Name() string {
	if len(s.Names) == 0 {
		return ""
	}
	return s.Names[0]
}

// HasName reports whether name is one of the suggestion's names.
func (s Suggestion) HasName(name string) bool {
	for _, n := range s.Names {
		if n == name {
			return true
		}
	}
	return false
}
