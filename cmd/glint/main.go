// glint is a demo host for the completion engine: it evaluates one buffer
// and cursor position and prints the ranked suggestions a shell UI would
// display.
package main

import (
	"fmt"
	"os"

	"github.com/glintshell/glint/internal/core"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var BUILD_VERSION = "dev"

func main() {
	logger, err := initializeLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "glint: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("-------- new glint invocation --------", zap.Any("args", os.Args))

	root := newRootCommand(logger)
	if err := root.Execute(); err != nil {
		logger.Error("unhandled error", zap.Error(err))
		os.Exit(1)
	}
}

func initializeLogger() (*zap.Logger, error) {
	logLevel := zap.NewAtomicLevelAt(zap.InfoLevel)
	if BUILD_VERSION == "dev" {
		logLevel = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	loggerConfig := zap.NewProductionConfig()
	loggerConfig.Level = logLevel
	loggerConfig.OutputPaths = []string{
		core.LogFile(),
	}

	return loggerConfig.Build()
}

func newRootCommand(logger *zap.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:           "glint",
		Short:         "Shell autocompletion engine",
		Version:       BUILD_VERSION,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newSuggestCommand(logger),
		newSpecsCommand(logger),
		newHistoryCommand(logger),
	)
	return root
}
