package engine

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/glintshell/glint/internal/spec"
	"gopkg.in/yaml.v3"
)

// settingsDoc is the YAML shape of the settings file. Pointer fields
// distinguish "absent" from zero so file entries only override what they
// name.
type settingsDoc struct {
	FuzzySearch                *bool   `yaml:"fuzzySearch"`
	CacheAllGenerators         *bool   `yaml:"cacheAllGenerators"`
	HistoryMode                *string `yaml:"historyMode"`
	HistoryReplacesSuggestions *bool   `yaml:"historyReplacesSuggestions"`
	HideAutoExecute            *bool   `yaml:"hideAutoExecute"`
	SuggestCurrentToken        *bool   `yaml:"suggestCurrentToken"`
	ScriptTimeout              *string `yaml:"scriptTimeout"`
}

// Settings is the file-backed implementation of spec.Settings.
type Settings struct {
	fuzzySearch         bool
	cacheAllGenerators  bool
	historyMode         spec.HistoryMode
	historyReplaces     bool
	hideAutoExecute     bool
	suggestCurrentToken bool
	scriptTimeout       time.Duration
}

// DefaultSettings returns the built-in defaults.
func DefaultSettings() *Settings {
	return &Settings{
		historyMode:   spec.HistoryModeShow,
		scriptTimeout: 5 * time.Second,
	}
}

// LoadSettings reads the settings file at path over the defaults. A missing
// file is not an error; a malformed one is.
func LoadSettings(path string) (*Settings, error) {
	s := DefaultSettings()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var doc settingsDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse settings: %w", err)
	}

	if doc.FuzzySearch != nil {
		s.fuzzySearch = *doc.FuzzySearch
	}
	if doc.CacheAllGenerators != nil {
		s.cacheAllGenerators = *doc.CacheAllGenerators
	}
	if doc.HistoryMode != nil {
		switch mode := spec.HistoryMode(*doc.HistoryMode); mode {
		case spec.HistoryModeOff, spec.HistoryModeShow, spec.HistoryModeOnly:
			s.historyMode = mode
		default:
			return nil, fmt.Errorf("unknown historyMode %q", *doc.HistoryMode)
		}
	}
	if doc.HistoryReplacesSuggestions != nil {
		s.historyReplaces = *doc.HistoryReplacesSuggestions
	}
	if doc.HideAutoExecute != nil {
		s.hideAutoExecute = *doc.HideAutoExecute
	}
	if doc.SuggestCurrentToken != nil {
		s.suggestCurrentToken = *doc.SuggestCurrentToken
	}
	if doc.ScriptTimeout != nil {
		d, err := time.ParseDuration(*doc.ScriptTimeout)
		if err != nil {
			return nil, fmt.Errorf("parse scriptTimeout: %w", err)
		}
		s.scriptTimeout = d
	}
	return s, nil
}

func (s *Settings) FuzzySearch() bool                { return s.fuzzySearch }
func (s *Settings) CacheAllGenerators() bool         { return s.cacheAllGenerators }
func (s *Settings) HistoryMode() spec.HistoryMode    { return s.historyMode }
func (s *Settings) HistoryReplacesSuggestions() bool { return s.historyReplaces }
func (s *Settings) HideAutoExecute() bool            { return s.hideAutoExecute }
func (s *Settings) SuggestCurrentToken() bool        { return s.suggestCurrentToken }
func (s *Settings) ScriptTimeout() time.Duration     { return s.scriptTimeout }
