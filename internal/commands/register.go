// Package commands wires every command category into the Discord client.
// Categories live in subdirectories (application, mod, reminder, settings, utils).
package commands

import (
	"github.com/Bloectasy/Valeriyya/internal/commands/application"
	"github.com/Bloectasy/Valeriyya/internal/commands/mod"
	"github.com/Bloectasy/Valeriyya/internal/commands/reminder"
	"github.com/Bloectasy/Valeriyya/internal/commands/settings"
	"github.com/Bloectasy/Valeriyya/internal/commands/utils"
	"github.com/Bloectasy/Valeriyya/internal/moderation"
	"github.com/Bloectasy/Valeriyya/internal/reminders"
	"github.com/Bloectasy/Valeriyya/pkg/database"
	"github.com/Bloectasy/Valeriyya/pkg/discord"
)

// Services are the shared dependencies handed to the commands
type Services struct {
	Database  *database.Database
	Store     database.GuildRepository
	Publisher moderation.CasePublisher
}

// RegisterAll registers all commands with the Discord client
func RegisterAll(client *discord.ExtendedClient, services Services) {
	utils.RegisterUtilsCommands(client, services.Database)

	// /mod ban, kick, mute, unban, reason, reference, cases
	mod.RegisterModCommands(client, mod.Deps{
		Store:     services.Store,
		Publisher: services.Publisher,
	})

	settings.RegisterSettingsCommands(client, services.Store)

	reminder.RegisterReminderCommands(client, &reminders.Service{Store: services.Store})

	// Star message context menu
	application.RegisterApplicationCommands(client, services.Store)
}
