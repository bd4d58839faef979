package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ManuelReschke/GuildPay/internal/pkg/env"
)

var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "guildpay",
		Short:        "GuildPay - Stripe subscriptions for Discord roles",
		Version:      Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			env.SetupEnvFile()
		},
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(syncCommandsCmd())

	return rootCmd
}
