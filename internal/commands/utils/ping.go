package utils

import (
	"fmt"

	"github.com/Bloectasy/Valeriyya/pkg/discord"
	"github.com/Bloectasy/Valeriyya/pkg/errors"
)

// createPingCommand creates the /utils ping subcommand
func createPingCommand() *discord.Command {
	return discord.NewCommand(
		"ping",
		"Check the latency of the bot",
		"utils",
		pingHandler,
	)
}

func pingHandler(ctx *discord.CommandContext) error {
	go func() {
		defer errors.RecoverMiddleware()()
		latency := ctx.Session.HeartbeatLatency().Milliseconds()
		_ = ctx.Reply(fmt.Sprintf("🏓 Pong! Latency: %dms", latency))
	}()
	return nil
}
