package discord

import (
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/Bloectasy/Valeriyya/pkg/logger"
)

// EventHandler manages event loading and registration
type EventHandler struct {
	client *ExtendedClient
	events []interface{}
	mu     sync.RWMutex
}

// NewEventHandler creates a new EventHandler
func NewEventHandler(client *ExtendedClient) *EventHandler {
	return &EventHandler{
		client: client,
		events: make([]interface{}, 0),
	}
}

// LoadEvents reports the events registered so far. Handlers are added
// programmatically through RegisterEvent.
func (eh *EventHandler) LoadEvents() error {
	logger.System(fmt.Sprintf("%d event handlers loaded", eh.Count()), "EventHandler")
	return nil
}

// Count returns the number of registered handlers
func (eh *EventHandler) Count() int {
	eh.mu.RLock()
	defer eh.mu.RUnlock()
	return len(eh.events)
}

// RegisterEvent adds an event handler to the Discord session
func (eh *EventHandler) RegisterEvent(handler interface{}) {
	eh.client.Session.AddHandler(handler)
	eh.mu.Lock()
	eh.events = append(eh.events, handler)
	eh.mu.Unlock()
	logger.Debug("Event registered", "EventHandler")
}

// Event handler types for the events the bot listens to.
// discordgo matches handlers on their unnamed func type, so the On* helpers
// convert back before registering.

// ReadyHandler is called when the bot is ready
type ReadyHandler func(s *discordgo.Session, r *discordgo.Ready)

// GuildCreateHandler is called when the bot joins a guild
type GuildCreateHandler func(s *discordgo.Session, g *discordgo.GuildCreate)

// GuildDeleteHandler is called when the bot leaves a guild
type GuildDeleteHandler func(s *discordgo.Session, g *discordgo.GuildDelete)

// GuildMemberAddHandler is called when a member joins a guild
type GuildMemberAddHandler func(s *discordgo.Session, m *discordgo.GuildMemberAdd)

// DisconnectHandler is called when the gateway connection drops
type DisconnectHandler func(s *discordgo.Session, d *discordgo.Disconnect)

// ResumedHandler is called when a gateway session is resumed
type ResumedHandler func(s *discordgo.Session, r *discordgo.Resumed)

// OnReady registers a ready event handler
func (eh *EventHandler) OnReady(handler ReadyHandler) {
	eh.RegisterEvent((func(*discordgo.Session, *discordgo.Ready))(handler))
}

// OnGuildCreate registers a guild create event handler
func (eh *EventHandler) OnGuildCreate(handler GuildCreateHandler) {
	eh.RegisterEvent((func(*discordgo.Session, *discordgo.GuildCreate))(handler))
}

// OnGuildDelete registers a guild delete event handler
func (eh *EventHandler) OnGuildDelete(handler GuildDeleteHandler) {
	eh.RegisterEvent((func(*discordgo.Session, *discordgo.GuildDelete))(handler))
}

// OnGuildMemberAdd registers a member join event handler
func (eh *EventHandler) OnGuildMemberAdd(handler GuildMemberAddHandler) {
	eh.RegisterEvent((func(*discordgo.Session, *discordgo.GuildMemberAdd))(handler))
}

// OnDisconnect registers a disconnect event handler
func (eh *EventHandler) OnDisconnect(handler DisconnectHandler) {
	eh.RegisterEvent((func(*discordgo.Session, *discordgo.Disconnect))(handler))
}

// OnResumed registers a resumed event handler
func (eh *EventHandler) OnResumed(handler ResumedHandler) {
	eh.RegisterEvent((func(*discordgo.Session, *discordgo.Resumed))(handler))
}
