// Package insert translates a chosen suggestion into the literal keystrokes
// the host sends to the terminal, and keeps the selection stable across
// suggestion-list recomputation.
package insert

import (
	"errors"
	"strings"

	"github.com/glintshell/glint/internal/spec"
	shellquote "github.com/kballard/go-shellquote"
)

// ErrNoCommonPrefix signals that prefix completion is not applicable: the
// caller falls back to another action (typically list navigation). It is a
// designed control-flow signal, not a failure.
var ErrNoCommonPrefix = errors.New("no common prefix to insert")

// cursorMarker positions the cursor inside an inserted value.
const cursorMarker = "{cursor}"

// Plan is what the host must do to the live edit buffer: erase
// CharsToDelete characters before the cursor, type Text, then move the
// cursor by CursorMove (negative is left).
type Plan struct {
	CharsToDelete int
	Text          string
	CursorMove    int
}

// PlanInsertion computes the edit for committing one suggestion against the
// current search term. Values containing shell-significant characters are
// quoted; a value that merely extends what is already typed is inserted as
// the missing suffix with nothing deleted.
func PlanInsertion(searchTerm string, s spec.Suggestion) Plan {
	// An explicit insert value is literal shell text the spec author
	// already quoted as needed; only plain names get escaped here.
	value := s.InsertValue
	literal := value != ""
	if !literal {
		value = s.Name()
	}

	// Auto-execute entries press enter on the already-typed text.
	if value == "\n" {
		return Plan{Text: "\n"}
	}

	before, after, hasMarker := strings.Cut(value, cursorMarker)
	if !literal {
		before = escape(before)
		after = escape(after)
	}
	text := before
	move := 0
	if hasMarker {
		text += after
		move = -len(after)
	}

	if searchTerm != "" && strings.HasPrefix(text, searchTerm) {
		return Plan{Text: text[len(searchTerm):], CursorMove: move}
	}
	return Plan{
		CharsToDelete: len(searchTerm),
		Text:          text,
		CursorMove:    move,
	}
}

// escape quotes shell-significant characters, leaving clean values and
// trailing path separators untouched.
func escape(value string) string {
	if value == "" {
		return ""
	}
	quoted := shellquote.Join(value)
	if quoted == value {
		return value
	}
	// Keep a folder suggestion's trailing slash outside the quotes so the
	// next completion still sees a path boundary.
	if strings.HasSuffix(value, "/") && !strings.HasSuffix(quoted, "/") {
		return shellquote.Join(strings.TrimSuffix(value, "/")) + "/"
	}
	return quoted
}

// CommonPrefix returns the longest prefix shared by every suggestion's
// primary name, for tab-style completion over the whole list.
// ErrNoCommonPrefix is returned when the list is empty, when the top entry
// is not plain-insertable (auto-execute, special, shortcut), or when the
// names share nothing.
func CommonPrefix(suggestions []spec.Suggestion) (string, error) {
	if len(suggestions) == 0 {
		return "", ErrNoCommonPrefix
	}

	switch suggestions[0].Type {
	case spec.TypeAutoExecute, spec.TypeSpecial, spec.TypeShortcut:
		return "", ErrNoCommonPrefix
	}

	prefix := suggestions[0].Name()
	for _, s := range suggestions[1:] {
		prefix = commonPrefix(prefix, s.Name())
		if prefix == "" {
			return "", ErrNoCommonPrefix
		}
	}
	if prefix == "" {
		return "", ErrNoCommonPrefix
	}
	return prefix, nil
}

func commonPrefix(a, b string) string {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return a[:i]
}

// ReconcileSelection maps the previously selected entry into a recomputed
// list. Identity is {name, type, insertValue, description}; a vanished
// selection resets to the top.
func ReconcileSelection(old []spec.Suggestion, selected int, next []spec.Suggestion) int {
	if selected < 0 || selected >= len(old) {
		return 0
	}
	prev := old[selected]

	for i, s := range next {
		if s.Name() == prev.Name() &&
			s.Type == prev.Type &&
			s.InsertValue == prev.InsertValue &&
			s.Description == prev.Description {
			return i
		}
	}
	return 0
}
