package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	zencourt "github.com/cladams7905/zencourt-sub006"
)

type globalFlags struct {
	envFiles []string
}

func newRootCommand() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "zencourtd",
		Short:         "Clip generation and render orchestration service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringSliceVar(&flags.envFiles, "env-file", nil, "dotenv files to load (default .env)")

	root.AddCommand(
		newServeCommand(flags),
		newMigrateCommand(flags),
		newSignCommand(),
		newVerifyCommand(),
	)
	return root
}

func loadConfig(flags *globalFlags) (zencourt.Config, error) {
	return zencourt.LoadConfig(flags.envFiles...)
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		l = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}
