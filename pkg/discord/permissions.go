package discord

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// PermissionNames maps permission bits to the flag names shown to users
var PermissionNames = map[int64]string{
	discordgo.PermissionAdministrator:      "ADMINISTRATOR",
	discordgo.PermissionBanMembers:         "BAN_MEMBERS",
	discordgo.PermissionKickMembers:        "KICK_MEMBERS",
	discordgo.PermissionModerateMembers:    "MODERATE_MEMBERS",
	discordgo.PermissionManageGuild:        "MANAGE_GUILD",
	discordgo.PermissionManageRoles:        "MANAGE_ROLES",
	discordgo.PermissionManageMessages:     "MANAGE_MESSAGES",
	discordgo.PermissionManageChannels:     "MANAGE_CHANNELS",
	discordgo.PermissionSendMessages:       "SEND_MESSAGES",
	discordgo.PermissionEmbedLinks:         "EMBED_LINKS",
	discordgo.PermissionViewAuditLogs:      "VIEW_AUDIT_LOG",
	discordgo.PermissionManageNicknames:    "MANAGE_NICKNAMES",
	discordgo.PermissionViewChannel:        "VIEW_CHANNEL",
	discordgo.PermissionReadMessageHistory: "READ_MESSAGE_HISTORY",
}

// HasPermission reports whether perms grants every bit of required.
// Administrator grants everything.
func HasPermission(perms, required int64) bool {
	if perms&discordgo.PermissionAdministrator != 0 {
		return true
	}
	return perms&required == required
}

// PermissionName renders the flag names of a permission set
func PermissionName(required int64) string {
	var names []string
	for bit, name := range PermissionNames {
		if required&bit != 0 {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return fmt.Sprintf("0x%x", required)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// MissingPermissionEmbed is the reply sent when a member lacks a permission
func MissingPermissionEmbed(user *discordgo.User, required int64) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Color:       ColorError,
		Description: fmt.Sprintf("You are missing the `%s` permission", PermissionName(required)),
	}
	if user != nil {
		embed.Author = &discordgo.MessageEmbedAuthor{
			Name:    fmt.Sprintf("%s (%s)", UserTag(user), user.ID),
			IconURL: user.AvatarURL(""),
		}
	}
	return embed
}

// BotMissingPermissionEmbed is the reply sent when the bot itself lacks a
// permission a command needs
func BotMissingPermissionEmbed(required int64) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Color:       ColorError,
		Description: fmt.Sprintf("I am missing the `%s` permission", PermissionName(required)),
	}
}

// UserTag returns username#discriminator, or the bare username for
// accounts on the new username system
func UserTag(user *discordgo.User) string {
	if user.Discriminator == "" || user.Discriminator == "0" {
		return user.Username
	}
	return user.Username + "#" + user.Discriminator
}

// Embed colors
const (
	ColorDefault = 0x524264
	ColorError   = 0xED4245
	ColorSuccess = 0x57F287
)
