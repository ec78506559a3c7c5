// Package mod provides the moderation commands, registered as /mod subcommands
package mod

import (
	"github.com/Bloectasy/Valeriyya/internal/moderation"
	"github.com/Bloectasy/Valeriyya/pkg/database"
	"github.com/Bloectasy/Valeriyya/pkg/discord"
)

// Deps are the services the moderation commands need
type Deps struct {
	Store     database.GuildRepository
	Publisher moderation.CasePublisher
}

type handlers struct {
	deps Deps
}

// RegisterModCommands registers all moderation commands as /mod subcommands
func RegisterModCommands(client *discord.ExtendedClient, deps Deps) {
	h := &handlers{deps: deps}

	modGroup := client.CommandHandler.BuildCommandGroup(
		"mod",
		"Moderation commands",
		h.banCommand(),
		h.kickCommand(),
		h.muteCommand(),
		h.unbanCommand(),
		h.reasonCommand(),
		h.referenceCommand(),
	)

	modGroup.Options = append(modGroup.Options, client.CommandHandler.BuildSubcommandGroup(
		"mod",
		"cases",
		"Inspect recorded cases",
		h.caseShowCommand(),
		h.caseDeleteCommand(),
	))

	client.CommandHandler.AddGlobalCommand(modGroup)
}

func (h *handlers) cases(ctx *discord.CommandContext) *moderation.CaseManager {
	return &moderation.CaseManager{Store: h.deps.Store, Editor: ctx.Session}
}
