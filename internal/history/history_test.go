package history

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/glintshell/glint/internal/spec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	return m
}

func TestRecordAndSuggest(t *testing.T) {
	m := newTestManager(t)

	require.NoError(t, m.RecordCommand("git status", "/repo", 0))
	require.NoError(t, m.RecordCommand("git push origin main", "/repo", 0))
	require.NoError(t, m.RecordCommand("ls -la", "/repo", 0))

	got, err := m.HistorySuggestions(context.Background(), "git ", "/repo", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Most recent first, recency-derived priorities strictly decreasing.
	assert.Equal(t, "git push origin main", got[0].Name())
	assert.Equal(t, "git status", got[1].Name())
	assert.Greater(t, got[0].Priority, got[1].Priority)
	for _, s := range got {
		assert.Equal(t, spec.TypeShortcut, s.Type)
	}
}

func TestSuggestionsCollapseDuplicateCommands(t *testing.T) {
	m := newTestManager(t)

	require.NoError(t, m.RecordCommand("git status", "/a", 0))
	require.NoError(t, m.RecordCommand("git status", "/b", 0))

	got, err := m.HistorySuggestions(context.Background(), "git", "/a", 10)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestSuggestionsEscapeLikeMetacharacters(t *testing.T) {
	m := newTestManager(t)

	require.NoError(t, m.RecordCommand("grep 100% done", "/repo", 0))
	require.NoError(t, m.RecordCommand("grep 100x done", "/repo", 0))

	got, err := m.HistorySuggestions(context.Background(), "grep 100%", "/repo", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "grep 100% done", got[0].Name())
}

func TestEmptyCommandNotRecorded(t *testing.T) {
	m := newTestManager(t)

	require.NoError(t, m.RecordCommand("   ", "/repo", 0))

	got, err := m.HistorySuggestions(context.Background(), "", "/repo", 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestImport(t *testing.T) {
	m := newTestManager(t)

	input := strings.NewReader("git status\n# comment line\n\nmake build\n")
	count, err := m.Import(input, "/repo")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	records, err := m.Search("", 10)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestReset(t *testing.T) {
	m := newTestManager(t)

	require.NoError(t, m.RecordCommand("git status", "/repo", 0))
	require.NoError(t, m.Reset())

	got, err := m.HistorySuggestions(context.Background(), "", "/repo", 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReopenExistingDatabase(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.db")

	m, err := NewManager(path)
	require.NoError(t, err)
	require.NoError(t, m.RecordCommand("git status", "/repo", 0))

	again, err := NewManager(path)
	require.NoError(t, err)

	got, err := again.HistorySuggestions(context.Background(), "git", "/repo", 10)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
