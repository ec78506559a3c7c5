package utils

import (
	"github.com/Bloectasy/Valeriyya/pkg/database"
	"github.com/Bloectasy/Valeriyya/pkg/discord"
)

// StatusSource reports the state of the services behind the bot
type StatusSource interface {
	GetStatus() (string, bool)
}

// RegisterUtilsCommands registers all utility commands as /utils subcommands
func RegisterUtilsCommands(client *discord.ExtendedClient, db *database.Database) {
	var status StatusSource
	if db != nil {
		status = db
	}

	utilsGroup := client.CommandHandler.BuildCommandGroup(
		"utils",
		"Utility commands",
		createPingCommand(),
		createStatusCommand(status),
		createHelpCommand(),
		createStatsCommand(),
	)

	client.CommandHandler.AddGlobalCommand(utilsGroup)
}
