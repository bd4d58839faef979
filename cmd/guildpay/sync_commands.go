package main

import (
	"fmt"
	"strings"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/spf13/cobra"

	"github.com/ManuelReschke/GuildPay/internal/pkg/discord"
	"github.com/ManuelReschke/GuildPay/internal/pkg/env"
)

func syncCommandsCmd() *cobra.Command {
	var guildID string

	cmd := &cobra.Command{
		Use:   "sync-commands",
		Short: "Register the slash commands with Discord and exit",
		Long: `Overwrite the registered slash commands.

Without --guild the commands are registered for DISCORD_GUILD_ID, or
globally when that is empty. Global commands can take up to an hour to
show up in clients.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("guild") {
				guildID = env.GetEnv("DISCORD_GUILD_ID", "")
			}
			return runSyncCommands(env.GetEnv("DISCORD_TOKEN", ""), strings.TrimSpace(guildID))
		},
	}

	cmd.Flags().StringVar(&guildID, "guild", "", "guild id to register the commands for (empty = global)")

	return cmd
}

func runSyncCommands(token, guildID string) error {
	dg, err := discord.NewSession(token)
	if err != nil {
		return err
	}
	bot := discord.NewBot(dg, nil, guildID)

	if err := dg.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}
	defer func() {
		if err := dg.Close(); err != nil {
			fiberlog.Warnf("[Discord] Close error: %v", err)
		}
	}()

	return bot.SyncCommands()
}
