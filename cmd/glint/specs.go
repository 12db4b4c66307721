package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/glintshell/glint/internal/core"
	"github.com/glintshell/glint/internal/spec"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newSpecsCommand(logger *zap.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "specs",
		Short: "Inspect installed completion specs",
	}
	cmd.AddCommand(newSpecsListCommand(), newSpecsShowCommand(logger))
	return cmd
}

func newSpecsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List spec documents in the specs directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := os.ReadDir(core.SpecsDir())
			if err != nil {
				return fmt.Errorf("read specs dir: %w", err)
			}

			var names []string
			for _, entry := range entries {
				if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
					continue
				}
				names = append(names, strings.TrimSuffix(entry.Name(), ".yaml"))
			}
			sort.Strings(names)

			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func newSpecsShowCommand(logger *zap.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Print the grammar summary of one spec",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := filepath.Join(core.SpecsDir(), args[0]+".yaml")
			sub, err := spec.LoadFile(path)
			if err != nil {
				return err
			}

			printSubcommand(cmd, sub, 0)
			return nil
		},
	}
}

func printSubcommand(cmd *cobra.Command, sub *spec.Subcommand, depth int) {
	indent := strings.Repeat("  ", depth)

	fmt.Fprintf(cmd.OutOrStdout(), "%s%s", indent, strings.Join(sub.Names, ", "))
	if sub.Description != "" {
		fmt.Fprintf(cmd.OutOrStdout(), " - %s", sub.Description)
	}
	fmt.Fprintln(cmd.OutOrStdout())

	for _, opt := range append(append([]*spec.Option{}, sub.PersistentOptions...), sub.Options...) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", indent, strings.Join(opt.Names, ", "))
	}
	for _, arg := range sub.Args {
		suffix := ""
		if arg.Repeats() {
			suffix = "..."
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s  <%s%s>\n", indent, arg.Name, suffix)
	}
	for _, child := range sub.Subcommands {
		printSubcommand(cmd, child, depth+1)
	}
}
