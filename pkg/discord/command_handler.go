package discord

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/Bloectasy/Valeriyya/pkg/config"
	"github.com/Bloectasy/Valeriyya/pkg/logger"
)

// CommandHandler manages command loading and registration
type CommandHandler struct {
	client           *ExtendedClient
	slashCommands    []*discordgo.ApplicationCommand
	slashCommandsDev []*discordgo.ApplicationCommand
}

// NewCommandHandler creates a new CommandHandler
func NewCommandHandler(client *ExtendedClient) *CommandHandler {
	return &CommandHandler{
		client:           client,
		slashCommands:    make([]*discordgo.ApplicationCommand, 0),
		slashCommandsDev: make([]*discordgo.ApplicationCommand, 0),
	}
}

// LoadCommands reports the commands registered so far. Commands are added
// programmatically through RegisterCommand and AddGlobalCommand.
func (ch *CommandHandler) LoadCommands() error {
	logger.System(fmt.Sprintf("%d slash commands loaded (%d handlers)", len(ch.slashCommands)+len(ch.slashCommandsDev), ch.client.Commands.Size()), "CommandHandler")
	return nil
}

// RegisterCommand adds a top level command to the handler
func (ch *CommandHandler) RegisterCommand(cmd *Command) {
	ch.client.Commands.Set(cmd.Name, cmd)

	appCmd := cmd.ToApplicationCommand()

	if cmd.IsDev {
		ch.slashCommandsDev = append(ch.slashCommandsDev, appCmd)
	} else {
		ch.slashCommands = append(ch.slashCommands, appCmd)
	}

	logger.Debug("Command registered: "+cmd.Name, "CommandHandler")
}

// BuildCommandGroup creates a command group with subcommands
func (ch *CommandHandler) BuildCommandGroup(name, description string, subcommands ...*Command) *discordgo.ApplicationCommand {
	options := make([]*discordgo.ApplicationCommandOption, 0, len(subcommands))

	for _, cmd := range subcommands {
		ch.client.Commands.Set(name+"."+cmd.Name, cmd)

		options = append(options, &discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        cmd.Name,
			Description: cmd.Description,
			Options:     cmd.Options,
		})
	}

	return &discordgo.ApplicationCommand{
		Name:        name,
		Description: description,
		Options:     options,
	}
}

// BuildSubcommandGroup creates a subcommand group
func (ch *CommandHandler) BuildSubcommandGroup(groupName, name, description string, subcommands ...*Command) *discordgo.ApplicationCommandOption {
	options := make([]*discordgo.ApplicationCommandOption, 0, len(subcommands))

	for _, cmd := range subcommands {
		ch.client.Commands.Set(groupName+"."+name+"."+cmd.Name, cmd)

		options = append(options, &discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        cmd.Name,
			Description: cmd.Description,
			Options:     cmd.Options,
		})
	}

	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionSubCommandGroup,
		Name:        name,
		Description: description,
		Options:     options,
	}
}

// AddGlobalCommand adds a command to the global command list
func (ch *CommandHandler) AddGlobalCommand(cmd *discordgo.ApplicationCommand) {
	ch.slashCommands = append(ch.slashCommands, cmd)
}

// GlobalCommands returns the application commands registered globally
func (ch *CommandHandler) GlobalCommands() []*discordgo.ApplicationCommand {
	return ch.slashCommands
}

func (ch *CommandHandler) applicationID() (string, error) {
	s := ch.client.Session
	if s.State == nil || s.State.User == nil {
		return "", fmt.Errorf("session is not ready")
	}
	return s.State.User.ID, nil
}

// RegisterCommands overwrites the slash commands on Discord with the ones
// loaded here. Dev commands go to the dev guild, global ones everywhere.
func (ch *CommandHandler) RegisterCommands() {
	cfg := config.Get()

	logger.Info("🔄 Registering global commands...", "CommandHandler")
	if err := ch.SyncCommands(); err != nil {
		logger.Error("Error registering global commands: "+err.Error(), "CommandHandler")
	} else {
		logger.Success("✅ Global commands registered.", "CommandHandler")
	}

	if cfg.DevGuildID != "" && len(ch.slashCommandsDev) > 0 {
		logger.Info("🔄 Registering dev commands in "+cfg.DevGuildID+"...", "CommandHandler")
		if err := ch.SyncGuildCommands(cfg.DevGuildID, ch.slashCommandsDev); err != nil {
			logger.Error("Error registering dev commands: "+err.Error(), "CommandHandler")
		} else {
			logger.Success("✅ Dev commands registered.", "CommandHandler")
		}
	}
}

// SyncCommands replaces every global command with the current set. Stale
// commands are dropped by Discord as part of the overwrite.
func (ch *CommandHandler) SyncCommands() error {
	return ch.SyncGuildCommands("", ch.slashCommands)
}

// SyncGuildCommands replaces the commands of a guild ("" for global)
func (ch *CommandHandler) SyncGuildCommands(guildID string, cmds []*discordgo.ApplicationCommand) error {
	appID, err := ch.applicationID()
	if err != nil {
		return err
	}

	created, err := ch.client.Session.ApplicationCommandBulkOverwrite(appID, guildID, cmds)
	if err != nil {
		return fmt.Errorf("bulk overwrite: %w", err)
	}
	logger.Debug(fmt.Sprintf("%d commands synced", len(created)), "CommandHandler")
	return nil
}

// ListGlobalCommands returns the global commands known to Discord
func (ch *CommandHandler) ListGlobalCommands() ([]*discordgo.ApplicationCommand, error) {
	return ch.ListGuildCommands("")
}

// ListGuildCommands returns the commands Discord has for a guild
func (ch *CommandHandler) ListGuildCommands(guildID string) ([]*discordgo.ApplicationCommand, error) {
	appID, err := ch.applicationID()
	if err != nil {
		return nil, err
	}
	return ch.client.Session.ApplicationCommands(appID, guildID)
}

// UnregisterCommands removes all global commands from Discord
func (ch *CommandHandler) UnregisterCommands() error {
	return ch.UnregisterGuildCommands("")
}

// UnregisterGuildCommands removes all commands of a guild from Discord
func (ch *CommandHandler) UnregisterGuildCommands(guildID string) error {
	appID, err := ch.applicationID()
	if err != nil {
		return err
	}

	commands, err := ch.client.Session.ApplicationCommands(appID, guildID)
	if err != nil {
		return err
	}

	for _, cmd := range commands {
		if err := ch.client.Session.ApplicationCommandDelete(appID, guildID, cmd.ID); err != nil {
			logger.Error("Error deleting command "+cmd.Name+": "+err.Error(), "CommandHandler")
		}
	}

	logger.Success(fmt.Sprintf("%d commands deleted.", len(commands)), "CommandHandler")
	return nil
}
