// Package main provides a utility to sync Discord slash commands.
// It removes stale commands from Discord and registers the ones the bot defines.
//
// Usage:
//
//	sync-commands [--guild <id>] list|clean|sync
package main

import (
	"fmt"
	"os"

	"github.com/bwmarrin/discordgo"
	"github.com/urfave/cli/v2"

	"github.com/Bloectasy/Valeriyya/internal/commands"
	"github.com/Bloectasy/Valeriyya/pkg/config"
	"github.com/Bloectasy/Valeriyya/pkg/discord"
	"github.com/Bloectasy/Valeriyya/pkg/logger"
)

const prefix = "SyncCommands"

func main() {
	app := newApp()
	if err := app.Run(os.Args); err != nil {
		logger.Error(err.Error(), prefix)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "sync-commands"
	app.Usage = "Manage the slash commands registered on Discord"
	app.Version = config.Version
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:  "guild",
			Usage: "target a single guild instead of the global commands",
		},
	}
	app.Commands = []*cli.Command{
		{
			Name:   "list",
			Usage:  "List the registered commands",
			Action: withClient(listCommands),
		},
		{
			Name:   "clean",
			Usage:  "Remove every command without registering new ones",
			Action: withClient(cleanCommands),
		},
		{
			Name:   "sync",
			Usage:  "Replace the registered commands with the current ones",
			Action: withClient(syncCommands),
		},
	}
	// Without a subcommand the tool syncs
	app.Action = withClient(syncCommands)
	return app
}

// withClient opens a Discord session with the bot commands loaded and runs fn
func withClient(fn func(client *discord.ExtendedClient, guildID string) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}

		log := logger.Init(cfg.ErrorWebhook, cfg.LogsWebhook)
		defer log.Close()

		client, err := discord.NewClient(cfg.BotToken)
		if err != nil {
			return fmt.Errorf("create Discord client: %w", err)
		}

		// Only the definitions are needed here, the handlers never run
		commands.RegisterAll(client, commands.Services{})

		if err := client.Session.Open(); err != nil {
			return fmt.Errorf("connect to Discord: %w", err)
		}
		defer client.Session.Close()

		logger.Success("Connected to Discord", prefix)

		if err := fn(client, c.String("guild")); err != nil {
			return err
		}
		logger.Success("Done", prefix)
		return nil
	}
}

func scope(guildID string) string {
	if guildID == "" {
		return "global commands"
	}
	return "commands of guild " + guildID
}

// listCommands lists all commands registered with Discord
func listCommands(client *discord.ExtendedClient, guildID string) error {
	logger.Info("📋 Listing "+scope(guildID), prefix)

	var (
		cmds []*discordgo.ApplicationCommand
		err  error
	)
	if guildID != "" {
		cmds, err = client.CommandHandler.ListGuildCommands(guildID)
	} else {
		cmds, err = client.CommandHandler.ListGlobalCommands()
	}
	if err != nil {
		return fmt.Errorf("list commands: %w", err)
	}

	if len(cmds) == 0 {
		logger.Info("No commands registered", prefix)
		return nil
	}

	logger.Info(fmt.Sprintf("Commands found: %d", len(cmds)), prefix)
	for i, cmd := range cmds {
		logger.Info(fmt.Sprintf("  %d. /%s - %s (ID: %s)", i+1, cmd.Name, cmd.Description, cmd.ID), prefix)
	}
	return nil
}

// cleanCommands removes all commands from Discord
func cleanCommands(client *discord.ExtendedClient, guildID string) error {
	logger.Info("🧹 Removing "+scope(guildID), prefix)

	var err error
	if guildID != "" {
		err = client.CommandHandler.UnregisterGuildCommands(guildID)
	} else {
		err = client.CommandHandler.UnregisterCommands()
	}
	if err != nil {
		return fmt.Errorf("remove commands: %w", err)
	}

	logger.Success("✅ All commands removed", prefix)
	return nil
}

// syncCommands overwrites the registered commands with the current definitions
func syncCommands(client *discord.ExtendedClient, guildID string) error {
	logger.Info("🔄 Syncing "+scope(guildID), prefix)

	var err error
	if guildID != "" {
		err = client.CommandHandler.SyncGuildCommands(guildID, client.CommandHandler.GlobalCommands())
	} else {
		err = client.CommandHandler.SyncCommands()
	}
	if err != nil {
		return fmt.Errorf("sync commands: %w", err)
	}

	logger.Success("✅ Commands synced", prefix)
	return nil
}
