package main

import (
	"fmt"
	"os"

	"github.com/glintshell/glint/internal/core"
	"github.com/glintshell/glint/internal/history"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newHistoryCommand(logger *zap.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Manage the command history backing history suggestions",
	}
	cmd.AddCommand(newHistoryImportCommand(logger), newHistorySearchCommand(), newHistoryResetCommand())
	return cmd
}

func newHistoryImportCommand(logger *zap.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import newline-separated commands from a shell history file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			manager, err := history.NewManager(core.HistoryFile())
			if err != nil {
				return err
			}

			count, err := manager.Import(f, "")
			if err != nil {
				return err
			}

			logger.Info("imported history", zap.Int("count", count), zap.String("file", args[0]))
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d commands\n", count)
			return nil
		},
	}
}

func newHistorySearchCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search recorded commands",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := history.NewManager(core.HistoryFile())
			if err != nil {
				return err
			}

			records, err := manager.Search(args[0], limit)
			if err != nil {
				return err
			}

			for _, record := range records {
				fmt.Fprintln(cmd.OutOrStdout(), record.Command)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum results")
	return cmd
}

func newHistoryResetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Delete all recorded history",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := history.NewManager(core.HistoryFile())
			if err != nil {
				return err
			}
			return manager.Reset()
		},
	}
}
