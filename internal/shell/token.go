// Package shell turns a raw edit buffer into the token sequence the
// argument parser walks. Tokenization is quote and escape aware and every
// token keeps its byte range in the buffer, which the insertion planner
// relies on to compute deletion offsets.
package shell

import (
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// Token is a single shell word together with its [Start, End) byte range
// in the buffer it was lexed from. Text holds the unquoted literal.
type Token struct {
	Text  string
	Start int
	End   int
}

// IsEmpty returns true for the synthesized trailing token that follows a
// buffer ending in a delimiter.
func (t Token) IsEmpty() bool {
	return t.Text == "" && t.Start == t.End
}

// tokenize splits buffer into word tokens. It returns ok=false when the
// buffer cannot be lexed, e.g. on an unterminated quote.
func tokenize(buffer string) ([]Token, bool) {
	parser := syntax.NewParser(syntax.Variant(syntax.LangBash))

	tokens := make([]Token, 0, 8)
	err := parser.Words(strings.NewReader(buffer), func(w *syntax.Word) bool {
		start := int(w.Pos().Offset())
		end := int(w.End().Offset())
		if start < 0 || end > len(buffer) || start > end {
			return true
		}
		tokens = append(tokens, Token{
			Text:  unquote(buffer[start:end]),
			Start: start,
			End:   end,
		})
		return true
	})
	if err != nil {
		return nil, false
	}

	// A trailing delimiter means the user finished the last word and is
	// about to type a new one. Represent that as an empty token at the end
	// of the buffer so the parser sees an empty search term.
	if hasTrailingDelimiter(buffer, tokens) {
		tokens = append(tokens, Token{Text: "", Start: len(buffer), End: len(buffer)})
	}

	return tokens, true
}

func hasTrailingDelimiter(buffer string, tokens []Token) bool {
	if len(buffer) == 0 {
		return false
	}
	last := rune(buffer[len(buffer)-1])
	if last != ' ' && last != '\t' {
		return false
	}
	if len(tokens) == 0 {
		return false
	}
	return tokens[len(tokens)-1].End < len(buffer)
}

// unquote removes one level of shell quoting from a word: single quotes,
// double quotes and backslash escapes. Expansions like $VAR are kept
// literal; the engine completes text, it does not evaluate it.
func unquote(word string) string {
	var b strings.Builder
	b.Grow(len(word))

	type quoteState int
	const (
		unquoted quoteState = iota
		single
		double
	)

	state := unquoted
	for i := 0; i < len(word); i++ {
		c := word[i]
		switch state {
		case unquoted:
			switch c {
			case '\'':
				state = single
			case '"':
				state = double
			case '\\':
				if i+1 < len(word) {
					i++
					b.WriteByte(word[i])
				}
			default:
				b.WriteByte(c)
			}
		case single:
			if c == '\'' {
				state = unquoted
			} else {
				b.WriteByte(c)
			}
		case double:
			switch c {
			case '"':
				state = unquoted
			case '\\':
				if i+1 < len(word) && (word[i+1] == '"' || word[i+1] == '\\' || word[i+1] == '$' || word[i+1] == '`') {
					i++
					b.WriteByte(word[i])
				} else {
					b.WriteByte(c)
				}
			default:
				b.WriteByte(c)
			}
		}
	}

	return b.String()
}
