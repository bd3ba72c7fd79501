package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/pretrip/internal/logging"
)

func newRootCommand() *cobra.Command {
	ctx := newCommandContext()

	rootCmd := &cobra.Command{
		Use:           "pretrip",
		Short:         "Inspect and submit pretrip inspection blueprints",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			slog.SetDefault(logging.New(cmd.ErrOrStderr(), ctx.logLevel, "text"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&ctx.serverFlag, "server", "", "Pretrip server URL (overrides PRETRIP_SERVER_URL)")
	flags.StringVar(&ctx.tokenFlag, "token", "", "API token (overrides PRETRIP_API_TOKEN)")
	flags.StringVar(&ctx.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	flags.BoolVar(&ctx.jsonOutput, "json", false, "Write JSON instead of tables")

	rootCmd.AddCommand(newInspectCommand(ctx))
	rootCmd.AddCommand(newSubmitCommand(ctx))

	return rootCmd
}
