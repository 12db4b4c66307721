package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/glintshell/glint/internal/core"
	"github.com/glintshell/glint/internal/engine"
	"github.com/glintshell/glint/internal/history"
	"github.com/glintshell/glint/internal/shell"
	"github.com/glintshell/glint/internal/spec"
	"github.com/glintshell/glint/internal/spec/resolver"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
)

var (
	nameStyle        = lipgloss.NewStyle().Bold(true)
	descriptionStyle = lipgloss.NewStyle().Faint(true)
	dangerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	autoExecStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

func newSuggestCommand(logger *zap.Logger) *cobra.Command {
	var (
		buffer string
		cursor int
		cwd    string
	)

	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Print ranked suggestions for a buffer and cursor position",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cursor < 0 || cursor > len(buffer) {
				cursor = len(buffer)
			}
			if cwd == "" {
				var err error
				if cwd, err = os.Getwd(); err != nil {
					return err
				}
			}

			eng, err := buildEngine(logger, cwd)
			if err != nil {
				return err
			}

			state := eng.Suggest(cmd.Context(), buffer, cursor)
			render(cmd, state.Suggestions)
			return nil
		},
	}

	cmd.Flags().StringVarP(&buffer, "buffer", "b", "", "edit buffer content")
	cmd.Flags().IntVarP(&cursor, "cursor", "c", -1, "cursor position (defaults to end of buffer)")
	cmd.Flags().StringVar(&cwd, "cwd", "", "working directory (defaults to the current one)")
	cmd.MarkFlagRequired("buffer")

	return cmd
}

func buildEngine(logger *zap.Logger, cwd string) (*engine.Engine, error) {
	settings, err := engine.LoadSettings(core.SettingsFile())
	if err != nil {
		return nil, err
	}

	var historyProvider spec.HistoryProvider
	if settings.HistoryMode() != spec.HistoryModeOff {
		manager, err := history.NewManager(core.HistoryFile())
		if err != nil {
			logger.Warn("history unavailable", zap.Error(err))
		} else {
			historyProvider = manager
		}
	}

	return engine.New(engine.Options{
		Resolver: resolver.New(resolver.Options{
			SpecsDir: core.SpecsDir(),
			Logger:   logger,
		}),
		Context: shell.StaticContextProvider{Context: shell.Context{
			CurrentWorkingDirectory: cwd,
			Environment:             environMap(),
		}},
		Settings: settings,
		Run:      engine.ExecRunner(),
		History:  historyProvider,
		Logger:   logger,
	}), nil
}

func environMap() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env
}

func render(cmd *cobra.Command, suggestions []spec.Suggestion) {
	styled := term.IsTerminal(int(os.Stdout.Fd()))

	for _, s := range suggestions {
		name := s.DisplayName
		if name == "" {
			name = s.Name()
		}

		if !styled {
			if s.Description != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", name, s.Description)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			continue
		}

		line := nameStyle.Render(name)
		if s.Type == spec.TypeAutoExecute {
			line = autoExecStyle.Render(name + " ↵")
		}
		if s.IsDangerous {
			line = dangerStyle.Render(name)
		}
		if s.Description != "" {
			line += " " + descriptionStyle.Render(s.Description)
		}
		fmt.Fprintln(cmd.OutOrStdout(), line)
	}
}
