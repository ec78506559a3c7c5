package discord

import (
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingTransport answers every REST call with 204 and keeps the paths
type recordingTransport struct {
	mu    sync.Mutex
	paths []string
	body  []string
}

func (rt *recordingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		body, _ = io.ReadAll(req.Body)
	}
	rt.mu.Lock()
	rt.paths = append(rt.paths, req.URL.Path)
	rt.body = append(rt.body, string(body))
	rt.mu.Unlock()
	return &http.Response{
		StatusCode: http.StatusNoContent,
		Body:       io.NopCloser(strings.NewReader("")),
		Header:     make(http.Header),
		Request:    req,
	}, nil
}

func (rt *recordingTransport) requests() []string {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return append([]string(nil), rt.paths...)
}

func offlineClient(t *testing.T) (*ExtendedClient, *recordingTransport) {
	t.Helper()
	client, err := NewClient("token")
	require.NoError(t, err)

	rt := &recordingTransport{}
	client.Session.Client = &http.Client{Transport: rt}
	return client, rt
}

func commandInteraction(guildID string, appPerms int64, data discordgo.ApplicationCommandInteractionData) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		ID:             "10",
		Token:          "tok",
		Type:           discordgo.InteractionApplicationCommand,
		GuildID:        guildID,
		AppPermissions: appPerms,
		Member:         &discordgo.Member{User: &discordgo.User{ID: "2"}, Permissions: discordgo.PermissionAdministrator},
		Data:           data,
	}}
}

func TestNewClientIntents(t *testing.T) {
	client, err := NewClient("token")
	require.NoError(t, err)

	intents := client.Session.Identify.Intents
	for _, want := range []discordgo.Intent{discordgo.IntentsGuilds, discordgo.IntentsGuildMembers, discordgo.IntentsGuildBans} {
		assert.Equal(t, want, intents&want)
	}
}

func TestDispatchChecksBotPermissions(t *testing.T) {
	client, rt := offlineClient(t)

	ran := 0
	client.CommandHandler.RegisterCommand(
		NewCommand("ban", "Ban", "mod", func(ctx *CommandContext) error {
			ran++
			return nil
		}).WithBotPermissions(discordgo.PermissionBanMembers).InGuild(),
	)
	data := discordgo.ApplicationCommandInteractionData{Name: "ban"}

	client.Dispatch(&CommandContext{Session: client.Session, Client: client,
		Interaction: commandInteraction("1", discordgo.PermissionKickMembers, data)})
	assert.Equal(t, 0, ran)
	require.Len(t, rt.requests(), 1)
	assert.Contains(t, rt.requests()[0], "/interactions/10/tok/callback")
	assert.Contains(t, rt.body[0], "BAN_MEMBERS")

	client.Dispatch(&CommandContext{Session: client.Session, Client: client,
		Interaction: commandInteraction("1", discordgo.PermissionBanMembers, data)})
	assert.Equal(t, 1, ran)

	client.Dispatch(&CommandContext{Session: client.Session, Client: client,
		Interaction: commandInteraction("1", discordgo.PermissionAdministrator, data)})
	assert.Equal(t, 2, ran)
	assert.Len(t, rt.requests(), 1)
}

func TestCompleteRoutesToCommand(t *testing.T) {
	client, _ := offlineClient(t)

	var focused string
	client.CommandHandler.BuildCommandGroup("mod", "Moderation",
		NewCommand("reason", "Reason", "mod", noop).WithAutoComplete(func(ctx *CommandContext) {
			focused = ctx.FocusedOption().Name
		}),
	)

	i := commandInteraction("1", 0, discordgo.ApplicationCommandInteractionData{
		Name: "mod",
		Options: []*discordgo.ApplicationCommandInteractionDataOption{{
			Name: "reason",
			Type: discordgo.ApplicationCommandOptionSubCommand,
			Options: []*discordgo.ApplicationCommandInteractionDataOption{
				{Name: "reason", Type: discordgo.ApplicationCommandOptionString, Value: "spam"},
				{Name: "case", Type: discordgo.ApplicationCommandOptionInteger, Value: "4", Focused: true},
			},
		}},
	})
	i.Type = discordgo.InteractionApplicationCommandAutocomplete

	client.Complete(&CommandContext{Session: client.Session, Client: client, Interaction: i})
	assert.Equal(t, "case", focused)
}

func TestMessageCommand(t *testing.T) {
	cmd := NewCommand("Star", "Star a message", "application", noop).
		WithOptions(&discordgo.ApplicationCommandOption{Name: "unused"}).
		AsMessageCommand()

	appCmd := cmd.ToApplicationCommand()
	assert.Equal(t, discordgo.MessageApplicationCommand, appCmd.Type)
	assert.Empty(t, appCmd.Description)
	assert.Nil(t, appCmd.Options)

	msg := &discordgo.Message{ID: "50", Content: "hello"}
	ctx := &CommandContext{Interaction: commandInteraction("1", 0, discordgo.ApplicationCommandInteractionData{
		Name:     "Star",
		TargetID: "50",
		Resolved: &discordgo.ApplicationCommandInteractionDataResolved{
			Messages: map[string]*discordgo.Message{"50": msg},
		},
	})}
	assert.Same(t, msg, ctx.TargetMessage())

	ctx.Interaction.Data = discordgo.ApplicationCommandInteractionData{Name: "Star"}
	assert.Nil(t, ctx.TargetMessage())
}
