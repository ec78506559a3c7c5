// Package discord provides the Discord bot client and related structures.
// It wraps discordgo with additional functionality for command and event handling.
package discord

import (
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/Bloectasy/Valeriyya/pkg/errors"
	"github.com/Bloectasy/Valeriyya/pkg/logger"
	"github.com/Bloectasy/Valeriyya/pkg/metrics"
)

// discordgo.Logger is a package-level function, route it through our logger
func init() {
	discordgo.Logger = func(msgL int, caller int, format string, a ...interface{}) {
		msg := fmt.Sprintf(format, a...)
		switch msgL {
		case discordgo.LogError:
			logger.Error(msg, "DiscordGo")
		case discordgo.LogWarning:
			logger.Warn(msg, "DiscordGo")
		case discordgo.LogDebug:
			logger.Debug(msg, "DiscordGo")
		default:
			logger.Info(msg, "DiscordGo")
		}
	}
}

// ExtendedClient wraps discordgo.Session with additional functionality
type ExtendedClient struct {
	Session        *discordgo.Session
	Commands       *CommandCollection
	CommandHandler *CommandHandler
	EventHandler   *EventHandler
	StartTime      time.Time
	mu             sync.RWMutex
	isReady        bool
}

// CommandCollection holds registered commands
type CommandCollection struct {
	commands map[string]*Command
	mu       sync.RWMutex
}

// NewCommandCollection creates a new CommandCollection
func NewCommandCollection() *CommandCollection {
	return &CommandCollection{
		commands: make(map[string]*Command),
	}
}

// Set adds or updates a command
func (cc *CommandCollection) Set(name string, cmd *Command) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.commands[name] = cmd
}

// Get retrieves a command by name
func (cc *CommandCollection) Get(name string) (*Command, bool) {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	cmd, ok := cc.commands[name]
	return cmd, ok
}

// Size returns the number of commands
func (cc *CommandCollection) Size() int {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	return len(cc.commands)
}

// All returns all commands
func (cc *CommandCollection) All() map[string]*Command {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	result := make(map[string]*Command)
	for k, v := range cc.commands {
		result[k] = v
	}
	return result
}

var (
	client *ExtendedClient
	once   sync.Once
)

// Init initializes the global Discord client
func Init(token string) (*ExtendedClient, error) {
	var err error
	once.Do(func() {
		client, err = NewClient(token)
	})
	return client, err
}

// NewClient creates a new ExtendedClient
func NewClient(token string) (*ExtendedClient, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildBans

	session.ShardCount = 1
	session.SyncEvents = false
	session.StateEnabled = true
	session.LogLevel = discordgo.LogWarning

	c := &ExtendedClient{
		Session:  session,
		Commands: NewCommandCollection(),
		isReady:  false,
	}

	// Initialize handlers
	c.CommandHandler = NewCommandHandler(c)
	c.EventHandler = NewEventHandler(c)

	return c, nil
}

// Start initializes and starts the bot
func (c *ExtendedClient) Start() error {
	if err := c.CommandHandler.LoadCommands(); err != nil {
		logger.Error("Failed to load commands: "+err.Error(), "Client")
		return err
	}

	if err := c.EventHandler.LoadEvents(); err != nil {
		logger.Error("Failed to load events: "+err.Error(), "Client")
		return err
	}

	c.Session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		c.mu.Lock()
		c.isReady = true
		c.mu.Unlock()

		logger.Success("Logged in as: "+r.User.Username, "Client")

		c.CommandHandler.RegisterCommands()
	})

	c.Session.AddHandler(c.handleInteraction)

	c.StartTime = time.Now()

	return c.Session.Open()
}

// CommandKey builds the dispatch key of an interaction: "name",
// "name.sub" or "name.group.sub"
func CommandKey(data discordgo.ApplicationCommandInteractionData) string {
	if len(data.Options) == 0 {
		return data.Name
	}

	opt := data.Options[0]
	switch opt.Type {
	case discordgo.ApplicationCommandOptionSubCommandGroup:
		if len(opt.Options) > 0 {
			return data.Name + "." + opt.Name + "." + opt.Options[0].Name
		}
	case discordgo.ApplicationCommandOptionSubCommand:
		return data.Name + "." + opt.Name
	}
	return data.Name
}

// handleInteraction handles incoming Discord interactions
func (c *ExtendedClient) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	defer errors.RecoverMiddleware()()

	switch i.Type {
	case discordgo.InteractionApplicationCommandAutocomplete:
		c.Complete(&CommandContext{Session: s, Interaction: i, Client: c})

	case discordgo.InteractionApplicationCommand:
		c.Dispatch(&CommandContext{Session: s, Interaction: i, Client: c})
	}
}

// Complete routes an autocomplete interaction to its command
func (c *ExtendedClient) Complete(ctx *CommandContext) {
	cmd, ok := c.Commands.Get(CommandKey(ctx.Interaction.ApplicationCommandData()))
	if !ok || cmd.AutoComplete == nil {
		return
	}
	cmd.AutoComplete(ctx)
}

// Dispatch runs the command matching the interaction after the guild and
// permission gates
func (c *ExtendedClient) Dispatch(ctx *CommandContext) {
	commandName := CommandKey(ctx.Interaction.ApplicationCommandData())

	cmd, ok := c.Commands.Get(commandName)
	if !ok {
		logger.Warn("Command not found: "+commandName, "Client")
		return
	}

	metrics.CommandsTotal.WithLabelValues(commandName).Inc()

	if cmd.GuildOnly && ctx.Interaction.GuildID == "" {
		_ = ctx.ReplyEphemeral("This command can only be used inside a server.")
		return
	}

	if cmd.UserPermissions != 0 && !HasPermission(ctx.MemberPermissions(), cmd.UserPermissions) {
		_ = ctx.ReplyEphemeralEmbed(MissingPermissionEmbed(ctx.User(), cmd.UserPermissions))
		return
	}

	// app_permissions is only sent for guild interactions
	if cmd.BotPermissions != 0 && ctx.Interaction.GuildID != "" &&
		!HasPermission(ctx.Interaction.AppPermissions, cmd.BotPermissions) {
		_ = ctx.ReplyEphemeralEmbed(BotMissingPermissionEmbed(cmd.BotPermissions))
		return
	}

	if err := cmd.Run(ctx); err != nil {
		logger.Error("Error executing command "+commandName+": "+err.Error(), "Client")
	}
}

// Stop stops the bot and closes the session
func (c *ExtendedClient) Stop() error {
	c.mu.Lock()
	c.isReady = false
	c.mu.Unlock()

	if c.Session != nil {
		return c.Session.Close()
	}
	return nil
}

// IsReady returns true if the bot is ready
func (c *ExtendedClient) IsReady() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isReady
}

// GuildCount returns the number of guilds the bot is in
func (c *ExtendedClient) GuildCount() int {
	if c.Session == nil || c.Session.State == nil {
		return 0
	}
	c.Session.State.RLock()
	defer c.Session.State.RUnlock()
	return len(c.Session.State.Guilds)
}

// Uptime returns the time elapsed since Start
func (c *ExtendedClient) Uptime() time.Duration {
	if c.StartTime.IsZero() {
		return 0
	}
	return time.Since(c.StartTime)
}
