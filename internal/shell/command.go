package shell

// Command owns the tokenized form of one edit buffer. It is immutable once
// constructed and rebuilt from scratch on every buffer change.
type Command struct {
	// Buffer is the text the tokens were lexed from, after any alias
	// expansion of the first token.
	Buffer string

	// Raw is the buffer exactly as typed.
	Raw string

	// Tokens is the ordered token sequence, possibly ending in a
	// synthesized empty token when the buffer has a trailing delimiter.
	Tokens []Token

	// Aliases is the alias table used during construction.
	Aliases map[string]string

	// aliasDelta is how many bytes alias expansion added to (or removed
	// from) the buffer. Zero when no expansion happened.
	aliasDelta int

	// aliasEnd is the end offset of the original first token in Raw.
	aliasEnd int
}

// GetCommand tokenizes buffer and applies alias substitution to the first
// token. It returns nil when the buffer cannot be tokenized, which callers
// must treat as "no suggestions available".
//
// The first token is only expanded once it is complete: either another
// token follows it or the buffer ends in a delimiter. A lone token with no
// trailing space stays unexpanded so the user can keep typing the alias
// name itself. Expansion happens at most once and is never reapplied to
// its own result.
func GetCommand(buffer string, aliases map[string]string) *Command {
	tokens, ok := tokenize(buffer)
	if !ok {
		return nil
	}

	cmd := &Command{
		Buffer:  buffer,
		Raw:     buffer,
		Tokens:  tokens,
		Aliases: aliases,
	}

	if len(tokens) < 2 || len(aliases) == 0 {
		return cmd
	}

	first := tokens[0]
	expansion, found := aliases[first.Text]
	if !found || expansion == first.Text {
		return cmd
	}

	expanded := buffer[:first.Start] + expansion + buffer[first.End:]
	expandedTokens, ok := tokenize(expanded)
	if !ok {
		// An alias whose expansion does not lex cleanly is left alone.
		return cmd
	}

	return &Command{
		Buffer:     expanded,
		Raw:        buffer,
		Tokens:     expandedTokens,
		Aliases:    aliases,
		aliasDelta: len(expansion) - (first.End - first.Start),
		aliasEnd:   first.End,
	}
}

// AdjustCursor maps a cursor offset in the raw buffer to the corresponding
// offset in Buffer, accounting for alias expansion of the first token.
func (c *Command) AdjustCursor(cursor int) int {
	if c.aliasDelta != 0 && cursor >= c.aliasEnd {
		cursor += c.aliasDelta
	}
	if cursor < 0 {
		cursor = 0
	}
	if cursor > len(c.Buffer) {
		cursor = len(c.Buffer)
	}
	return cursor
}

// TokenAt returns the token whose range contains the cursor, along with its
// index. A cursor sitting immediately after a token still counts as inside
// it, which is what makes the token being typed the cursor token. When the
// cursor falls in whitespace between tokens an empty token at the cursor is
// returned with index -1.
func (c *Command) TokenAt(cursor int) (Token, int) {
	cursor = c.AdjustCursor(cursor)

	for i := len(c.Tokens) - 1; i >= 0; i-- {
		t := c.Tokens[i]
		if cursor >= t.Start && cursor <= t.End {
			return t, i
		}
	}

	return Token{Text: "", Start: cursor, End: cursor}, -1
}

// Texts returns the token texts in order.
func (c *Command) Texts() []string {
	texts := make([]string, len(c.Tokens))
	for i, t := range c.Tokens {
		texts[i] = t.Text
	}
	return texts
}
