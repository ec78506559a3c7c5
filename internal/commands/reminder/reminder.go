// Package reminder provides the /reminder commands
package reminder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/Bloectasy/Valeriyya/internal/reminders"
	"github.com/Bloectasy/Valeriyya/pkg/discord"
	"github.com/Bloectasy/Valeriyya/pkg/logger"
	"github.com/Bloectasy/Valeriyya/pkg/models"
)

// maxMessage keeps reminders inside a single Discord message
const maxMessage = 1500

type handlers struct {
	svc *reminders.Service
}

// RegisterReminderCommands registers /reminder add, remove and list
func RegisterReminderCommands(client *discord.ExtendedClient, svc *reminders.Service) {
	h := &handlers{svc: svc}

	group := client.CommandHandler.BuildCommandGroup(
		"reminder",
		"Personal reminders",
		h.addCommand(),
		h.removeCommand(),
		h.listCommand(),
	)
	client.CommandHandler.AddGlobalCommand(group)
}

func (h *handlers) addCommand() *discord.Command {
	return discord.NewCommand("add", "Get reminded about something later", "reminder", func(ctx *discord.CommandContext) error {
		c, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		content, ephemeral := h.add(c, ctx.Interaction.GuildID, ctx.User().ID, ctx.Interaction.ChannelID,
			ctx.GetStringOption("message"), ctx.GetStringOption("time"))
		if ephemeral {
			return ctx.ReplyEphemeral(content)
		}
		return ctx.Reply(content)
	}).WithOptions(
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "message",
			Description: "What to remind you about",
			Required:    true,
			MaxLength:   maxMessage,
		},
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "time",
			Description: "When to remind you, e.g. 10m, 1h 30m or 2 days",
			Required:    true,
		},
	).InGuild()
}

// add schedules a reminder and returns the reply, ephemeral for errors
func (h *handlers) add(ctx context.Context, guildID, userID, channelID, message, when string) (string, bool) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "You have to tell me what to remind you about!", true
	}

	delay, err := reminders.ParseDuration(when)
	switch {
	case errors.Is(err, reminders.ErrDelayTooLong):
		return "Reminders can be set at most one year ahead!", true
	case err != nil:
		return "I could not understand that time, try something like `10m` or `1h 30m`.", true
	}

	r, err := h.svc.Add(ctx, guildID, userID, channelID, message, delay)
	if err != nil {
		logger.Error(fmt.Sprintf("Could not save a reminder in %s: %v", guildID, err), "Reminders")
		return "The reminder could not be saved, try again later.", true
	}
	return fmt.Sprintf("Reminder #%d set for <t:%d:F> (<t:%d:R>).", r.ID, r.DueAt, r.DueAt), false
}

func (h *handlers) removeCommand() *discord.Command {
	minID := 1.0
	return discord.NewCommand("remove", "Remove one of your reminders", "reminder", func(ctx *discord.CommandContext) error {
		c, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		id := ctx.GetIntOption("id")
		if id <= 0 || id > int64(^uint32(0)) {
			return ctx.ReplyEphemeral("No reminder found with that ID!")
		}
		return ctx.ReplyEphemeral(h.remove(c, ctx.Interaction.GuildID, ctx.User().ID, uint32(id)))
	}).WithOptions(
		&discordgo.ApplicationCommandOption{
			Type:         discordgo.ApplicationCommandOptionInteger,
			Name:         "id",
			Description:  "The reminder to remove",
			Required:     true,
			MinValue:     &minID,
			Autocomplete: true,
		},
	).WithAutoComplete(h.completeReminder).
		InGuild()
}

func (h *handlers) remove(ctx context.Context, guildID, userID string, id uint32) string {
	err := h.svc.Remove(ctx, guildID, userID, id)
	switch {
	case err == nil:
		return fmt.Sprintf("Reminder #%d removed.", id)
	case errors.Is(err, models.ErrNotReminderOwner):
		return "You can only remove your own reminders!"
	case errors.Is(err, models.ErrReminderNotFound):
		return "No reminder found with that ID!"
	default:
		logger.Error(fmt.Sprintf("Could not remove reminder %d in %s: %v", id, guildID, err), "Reminders")
		return "The reminder could not be removed, try again later."
	}
}

func (h *handlers) listCommand() *discord.Command {
	return discord.NewCommand("list", "List your reminders", "reminder", func(ctx *discord.CommandContext) error {
		c, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		list, err := h.svc.List(c, ctx.Interaction.GuildID, ctx.User().ID)
		if err != nil {
			logger.Error(fmt.Sprintf("Could not list reminders in %s: %v", ctx.Interaction.GuildID, err), "Reminders")
			return ctx.ReplyEphemeral("Your reminders could not be loaded, try again later.")
		}
		if len(list) == 0 {
			return ctx.ReplyEphemeral("You have no reminders!")
		}
		return ctx.ReplyEphemeralEmbed(listEmbed(ctx.User(), list))
	}).InGuild()
}

// listEmbed shows at most 25 reminders, the embed field limit
func listEmbed(user *discordgo.User, list []models.Reminder) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: "Reminders",
		Color: 0x5865F2,
		Author: &discordgo.MessageEmbedAuthor{
			Name:    user.Username,
			IconURL: user.AvatarURL(""),
		},
	}
	for i, r := range list {
		if i == 25 {
			embed.Footer = &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("%d more not shown", len(list)-i)}
			break
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  fmt.Sprintf("#%d <t:%d:R>", r.ID, r.DueAt),
			Value: truncate(r.Message, 1024),
		})
	}
	return embed
}

// completeReminder suggests the reminders of the invoking user
func (h *handlers) completeReminder(ctx *discord.CommandContext) {
	c, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	list, err := h.svc.List(c, ctx.Interaction.GuildID, ctx.User().ID)
	if err != nil {
		logger.Debug(fmt.Sprintf("Reminder autocomplete for %s failed: %v", ctx.Interaction.GuildID, err), "Reminders")
	}

	typed := ""
	if focused := ctx.FocusedOption(); focused != nil && focused.Value != nil {
		typed = strings.TrimSpace(fmt.Sprint(focused.Value))
	}
	if err := ctx.Autocomplete(reminderChoices(list, typed)); err != nil {
		logger.Debug("Could not answer reminder autocomplete: "+err.Error(), "Reminders")
	}
}

func reminderChoices(list []models.Reminder, prefix string) []*discordgo.ApplicationCommandOptionChoice {
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(list))
	for _, r := range list {
		if len(choices) == 25 {
			break
		}
		if !strings.HasPrefix(fmt.Sprint(r.ID), prefix) {
			continue
		}
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  truncate(fmt.Sprintf("#%d %s", r.ID, r.Message), 100),
			Value: r.ID,
		})
	}
	return choices
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
