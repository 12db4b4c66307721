package generate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/glintshell/glint/internal/spec"
	"github.com/mitchellh/go-homedir"
)

// historySuggestionLimit caps how many entries the history template pulls.
const historySuggestionLimit = 50

func (e *Executor) runTemplate(ctx context.Context, gen *spec.Generator, gctx Context) ([]spec.Suggestion, error) {
	var (
		suggestions []spec.Suggestion
		err         error
	)

	switch gen.Template {
	case spec.TemplateFilepaths:
		suggestions, err = listDir(gctx, false)
	case spec.TemplateFolders:
		suggestions, err = listDir(gctx, true)
	case spec.TemplateHelp:
		suggestions = helpSuggestions(gctx.Parent)
	case spec.TemplateHistory:
		suggestions, err = e.historySuggestions(ctx, gctx)
	default:
		return nil, fmt.Errorf("unknown template %d", gen.Template)
	}
	if err != nil {
		return nil, err
	}

	if gen.FilterTemplateSuggestions != nil {
		suggestions = gen.FilterTemplateSuggestions(suggestions)
	}
	return suggestions, nil
}

// listDir produces filesystem suggestions for the directory the search term
// points into. A term like "src/ma" lists src/; a bare term lists the
// working directory. Entries keep only their base name, the insertion layer
// appends it after the typed directory prefix.
func listDir(gctx Context, foldersOnly bool) ([]spec.Suggestion, error) {
	dir := searchDir(gctx.SearchTerm, gctx.CWD)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	var suggestions []spec.Suggestion
	for _, entry := range entries {
		isDir := entry.IsDir()
		if foldersOnly && !isDir {
			continue
		}

		name := entry.Name()
		kind := spec.TypeFile
		if isDir {
			name += "/"
			kind = spec.TypeFolder
		}

		s := spec.Suggestion{
			Names: []string{name},
			Type:  kind,
		}
		// Dotfiles stay listed but sink below regular entries.
		if strings.HasPrefix(entry.Name(), ".") {
			s.Priority = -1
		}
		suggestions = append(suggestions, s)
	}
	return suggestions, nil
}

// searchDir resolves the directory a partially typed path refers to.
func searchDir(term string, cwd string) string {
	slash := strings.LastIndex(term, "/")
	if slash < 0 {
		if cwd == "" {
			return "."
		}
		return cwd
	}

	dir := term[:slash+1]
	if expanded, err := homedir.Expand(dir); err == nil {
		dir = expanded
	}
	if !filepath.IsAbs(dir) && cwd != "" {
		dir = filepath.Join(cwd, dir)
	}
	return dir
}

// helpSuggestions lists the parent's subcommands, which is what a bare
// "help" template means at any tree position.
func helpSuggestions(parent *spec.Subcommand) []spec.Suggestion {
	if parent == nil {
		return nil
	}
	suggestions := make([]spec.Suggestion, 0, len(parent.Subcommands))
	for _, child := range parent.Subcommands {
		suggestions = append(suggestions, spec.Suggestion{
			Names:       child.Names,
			Description: child.Description,
			Type:        spec.TypeSubcommand,
		})
	}
	return suggestions
}

func (e *Executor) historySuggestions(ctx context.Context, gctx Context) ([]spec.Suggestion, error) {
	if e.history == nil {
		return nil, nil
	}
	return e.history.HistorySuggestions(ctx, gctx.SearchTerm, gctx.CWD, historySuggestionLimit)
}
