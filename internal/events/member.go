package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/Bloectasy/Valeriyya/pkg/database"
	"github.com/Bloectasy/Valeriyya/pkg/discord"
	"github.com/Bloectasy/Valeriyya/pkg/logger"
	"github.com/Bloectasy/Valeriyya/pkg/metrics"
)

type messageSender interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// RegisterMemberEvents registers the member join handler
func RegisterMemberEvents(client *discord.ExtendedClient, store database.GuildRepository) {
	client.EventHandler.OnGuildMemberAdd(func(s *discordgo.Session, m *discordgo.GuildMemberAdd) {
		onMemberAdd(store, s, m)
	})
}

// onMemberAdd greets a new member in the welcome channel, if one is set
func onMemberAdd(store database.GuildRepository, sender messageSender, m *discordgo.GuildMemberAdd) {
	if store == nil || m.Member == nil || m.User == nil || m.User.Bot {
		return
	}

	channelID, err := welcomeChannel(store, m.GuildID)
	if err != nil {
		logger.Warn(fmt.Sprintf("Could not load the welcome channel of %s: %v", m.GuildID, err), "Members")
		return
	}
	if channelID == "" {
		return
	}

	if _, err := sender.ChannelMessageSendComplex(channelID, welcomeMessage(m.Member)); err != nil {
		logger.Warn(fmt.Sprintf("Could not welcome %s in %s: %v", m.User.ID, m.GuildID, err), "Members")
		return
	}
	metrics.WelcomesSent.Inc()
}

func welcomeChannel(store database.GuildRepository, guildID string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	unlock := store.Lock(guildID)
	defer unlock()

	doc, err := store.Lookup(ctx, guildID)
	if errors.Is(err, database.ErrGuildNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return doc.Channels.Welcome, nil
}

func welcomeMessage(member *discordgo.Member) *discordgo.MessageSend {
	user := member.User
	return &discordgo.MessageSend{
		Content: user.Mention(),
		Embeds: []*discordgo.MessageEmbed{{
			Title:       "Welcome!",
			Description: fmt.Sprintf("Welcome to the server, %s! We are glad to have you here.", user.Mention()),
			Color:       0x5865F2,
			Thumbnail:   &discordgo.MessageEmbedThumbnail{URL: user.AvatarURL("256")},
			Footer:      &discordgo.MessageEmbedFooter{Text: user.Username},
			Timestamp:   member.JoinedAt.Format(time.RFC3339),
		}},
		AllowedMentions: &discordgo.MessageAllowedMentions{Users: []string{user.ID}},
	}
}
