package utils

import (
	"fmt"

	"github.com/Bloectasy/Valeriyya/pkg/discord"
	"github.com/Bloectasy/Valeriyya/pkg/errors"
)

// createStatusCommand creates the /utils status subcommand
func createStatusCommand(db StatusSource) *discord.Command {
	return discord.NewCommand(
		"status",
		"Show the status of the bot",
		"utils",
		func(ctx *discord.CommandContext) error {
			go func() {
				defer errors.RecoverMiddleware()()
				_ = ctx.Reply(statusText(db, ctx.Client.GuildCount()))
			}()
			return nil
		},
	)
}

func statusText(db StatusSource, guilds int) string {
	dbStatus := "🔴 | Offline"
	if db != nil {
		dbStatus, _ = db.GetStatus()
	}
	return fmt.Sprintf(
		"📊 **Bot status**\n"+
			"• Bot: 🟢 Online\n"+
			"• Database: %s\n"+
			"• Servers: %d",
		dbStatus,
		guilds,
	)
}
