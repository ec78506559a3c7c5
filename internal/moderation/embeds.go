package moderation

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/Bloectasy/Valeriyya/pkg/discord"
	"github.com/Bloectasy/Valeriyya/pkg/models"
)

var pastTense = map[models.ActionType]string{
	models.ActionBan:   "banned",
	models.ActionUnban: "unbanned",
	models.ActionKick:  "kicked",
	models.ActionMute:  "muted",
}

func author(user *discordgo.User) *discordgo.MessageEmbedAuthor {
	if user == nil {
		return nil
	}
	return &discordgo.MessageEmbedAuthor{
		Name:    fmt.Sprintf("%s (%s)", discord.UserTag(user), user.ID),
		IconURL: user.AvatarURL(""),
	}
}

func targetName(target *discordgo.User, c models.Case) string {
	if target != nil {
		return discord.UserTag(target)
	}
	return c.TargetID
}

// CaseEmbed is the logs channel entry of a case
func CaseEmbed(staff, target *discordgo.User, c models.Case) *discordgo.MessageEmbed {
	description := fmt.Sprintf("Member: `%s`\nAction: `%s`\nReason: `%s`", targetName(target, c), c.Action, c.Reason)
	if c.Expiration != nil {
		description += fmt.Sprintf("\nExpiration: <t:%d:R>", *c.Expiration)
	}
	if c.Reference != nil {
		description += fmt.Sprintf("\nReference: `%d`", *c.Reference)
	}

	return &discordgo.MessageEmbed{
		Color:       discord.ColorDefault,
		Author:      author(staff),
		Description: description,
		Footer:      &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Case %d", c.ID)},
		Timestamp:   c.Time().UTC().Format(time.RFC3339),
	}
}

// SuccessEmbed is the reply sent once an action went through
func SuccessEmbed(staff, target *discordgo.User, out Outcome) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Color:  discord.ColorDefault,
		Author: author(staff),
		Footer: &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Case %d", out.CaseNumber)},
	}
	if out.Case != nil {
		embed.Description = fmt.Sprintf("`%s` has been %s.\nReason: `%s`", targetName(target, *out.Case), pastTense[out.Case.Action], out.Case.Reason)
	}
	return embed
}

// ErrorEmbed is a plain error reply
func ErrorEmbed(description string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Color:       discord.ColorError,
		Description: description,
	}
}
