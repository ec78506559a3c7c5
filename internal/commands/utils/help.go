package utils

import (
	"sort"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/Bloectasy/Valeriyya/pkg/discord"
	"github.com/Bloectasy/Valeriyya/pkg/errors"
)

// createHelpCommand creates the /utils help subcommand
func createHelpCommand() *discord.Command {
	return discord.NewCommand(
		"help",
		"List the available commands",
		"utils",
		helpHandler,
	)
}

func helpHandler(ctx *discord.CommandContext) error {
	go func() {
		defer errors.RecoverMiddleware()()
		_ = ctx.ReplyEphemeral(helpText(ctx.Client.Commands.All()))
	}()
	return nil
}

// helpText lists every slash command key as its slash form, sorted, then
// the message context menu entries
func helpText(commands map[string]*discord.Command) string {
	var slash, menu []string
	for key, cmd := range commands {
		switch {
		case cmd.IsDev:
		case cmd.Type == discordgo.MessageApplicationCommand:
			menu = append(menu, key)
		default:
			slash = append(slash, key)
		}
	}
	sort.Strings(slash)
	sort.Strings(menu)

	var b strings.Builder
	b.WriteString("📖 **Valeriyya help**\n\n**Available commands:**")
	for _, key := range slash {
		b.WriteString("\n• `/")
		b.WriteString(strings.ReplaceAll(key, ".", " "))
		b.WriteString("` - ")
		b.WriteString(commands[key].Description)
	}
	if len(menu) > 0 {
		b.WriteString("\n\n**Message menu (Apps):**")
		for _, key := range menu {
			b.WriteString("\n• `")
			b.WriteString(key)
			b.WriteString("` - ")
			b.WriteString(commands[key].Description)
		}
	}
	return b.String()
}
