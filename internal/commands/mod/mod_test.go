package mod

import (
	"errors"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bloectasy/Valeriyya/pkg/discord"
	"github.com/Bloectasy/Valeriyya/pkg/models"
)

func interaction(sub string, options ...*discordgo.ApplicationCommandInteractionDataOption) *discord.CommandContext {
	return &discord.CommandContext{
		Interaction: &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
			Type:    discordgo.InteractionApplicationCommand,
			GuildID: "100",
			Member: &discordgo.Member{
				User:        &discordgo.User{ID: "1", Username: "staff"},
				Permissions: discordgo.PermissionBanMembers,
			},
			Data: discordgo.ApplicationCommandInteractionData{
				Name: "mod",
				Options: []*discordgo.ApplicationCommandInteractionDataOption{
					{Name: sub, Type: discordgo.ApplicationCommandOptionSubCommand, Options: options},
				},
				Resolved: &discordgo.ApplicationCommandInteractionDataResolved{
					Users: map[string]*discordgo.User{
						"2": {ID: "2", Username: "target"},
					},
				},
			},
		}},
	}
}

func TestRegisterModCommands(t *testing.T) {
	client, err := discord.NewClient("token")
	require.NoError(t, err)

	RegisterModCommands(client, Deps{})

	keys := []string{
		"mod.ban", "mod.kick", "mod.mute", "mod.unban",
		"mod.reason", "mod.reference",
		"mod.cases.show", "mod.cases.delete",
	}
	for _, key := range keys {
		cmd, ok := client.Commands.Get(key)
		require.True(t, ok, key)
		assert.True(t, cmd.GuildOnly, key)
	}

	global := client.CommandHandler.GlobalCommands()
	require.Len(t, global, 1)
	assert.Equal(t, "mod", global[0].Name)
	assert.Len(t, global[0].Options, 7)
}

func TestActionCommandsLeavePermissionCheckToModeration(t *testing.T) {
	client, err := discord.NewClient("token")
	require.NoError(t, err)
	RegisterModCommands(client, Deps{})

	for _, key := range []string{"mod.ban", "mod.kick", "mod.mute", "mod.unban"} {
		cmd, _ := client.Commands.Get(key)
		assert.Zero(t, cmd.UserPermissions, key)
		assert.NotZero(t, cmd.BotPermissions, key)
	}

	cmd, _ := client.Commands.Get("mod.reason")
	assert.EqualValues(t, discordgo.PermissionManageGuild, cmd.UserPermissions)
}

func TestActionData(t *testing.T) {
	h := &handlers{}
	ctx := interaction("ban",
		&discordgo.ApplicationCommandInteractionDataOption{Name: "member", Type: discordgo.ApplicationCommandOptionUser, Value: "2"},
		&discordgo.ApplicationCommandInteractionDataOption{Name: "reason", Type: discordgo.ApplicationCommandOptionString, Value: "spam"},
	)

	data, err := h.actionData(ctx)
	require.NoError(t, err)

	assert.Equal(t, "100", data.GuildID)
	assert.Equal(t, "1", data.Staff.ID)
	assert.Equal(t, "target", data.Target.Username)
	assert.EqualValues(t, discordgo.PermissionBanMembers, data.StaffPermissions)
	assert.Equal(t, "spam", data.Reason)
	assert.Equal(t, deferredReplier{ctx}, data.Replier)
}

func TestActionDataWithoutTarget(t *testing.T) {
	h := &handlers{}

	_, err := h.actionData(interaction("kick"))
	assert.ErrorIs(t, err, errNoTarget)
}

func TestCaseNumber(t *testing.T) {
	ctx := interaction("reason",
		&discordgo.ApplicationCommandInteractionDataOption{Name: "case", Type: discordgo.ApplicationCommandOptionInteger, Value: float64(12)},
		&discordgo.ApplicationCommandInteractionDataOption{Name: "reference", Type: discordgo.ApplicationCommandOptionInteger, Value: float64(-3)},
	)

	assert.EqualValues(t, 12, caseNumber(ctx, "case"))
	assert.Zero(t, caseNumber(ctx, "reference"))
	assert.Zero(t, caseNumber(ctx, "missing"))
}

func TestCaseError(t *testing.T) {
	assert.Equal(t, "Case 4 does not exist.", caseError(models.ErrCaseNotFound, 4))
	assert.Equal(t, "A case can't reference itself.", caseError(models.ErrSelfReference, 4))
	assert.Equal(t, "The case could not be updated, try again later.", caseError(errors.New("boom"), 4))
}

func TestReferenceErrorNamesMissingCase(t *testing.T) {
	doc := models.NewGuildDocument("100")
	doc.AddCase(models.Case{ID: 3})

	_, err := doc.UpdateCaseReference(3, 9)
	assert.Equal(t, "Case 9 does not exist.", referenceError(err, 3, 9))

	_, err = doc.UpdateCaseReference(5, 3)
	assert.Equal(t, "Case 5 does not exist.", referenceError(err, 5, 3))

	assert.Equal(t, "A case can't reference itself.", referenceError(models.ErrSelfReference, 3, 3))
}

func TestCaseChoices(t *testing.T) {
	long := strings.Repeat("x", 200)
	choices := caseChoices([]models.Case{
		{ID: 7, Action: models.ActionBan, TargetID: "2", Reason: "spam"},
		{ID: 6, Action: models.ActionKick, TargetID: "3", Reason: long},
	})

	require.Len(t, choices, 2)
	assert.Equal(t, "#7 Ban <2> spam", choices[0].Name)
	assert.Equal(t, uint32(7), choices[0].Value)
	assert.Len(t, choices[1].Name, 100)
	assert.True(t, strings.HasSuffix(choices[1].Name, "..."))
}

func TestCaseOptionsAutocomplete(t *testing.T) {
	client, err := discord.NewClient("token")
	require.NoError(t, err)
	RegisterModCommands(client, Deps{})

	for _, key := range []string{"mod.reason", "mod.reference", "mod.cases.show", "mod.cases.delete"} {
		cmd, _ := client.Commands.Get(key)
		assert.NotNil(t, cmd.AutoComplete, key)
		for _, opt := range cmd.Options {
			if opt.Type == discordgo.ApplicationCommandOptionInteger {
				assert.True(t, opt.Autocomplete, key)
			}
		}
	}
}
