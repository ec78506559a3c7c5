// Package starboard reposts starred messages in the starboard channel of a
// guild through a short lived webhook impersonating the author.
package starboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/Bloectasy/Valeriyya/pkg/database"
	"github.com/Bloectasy/Valeriyya/pkg/logger"
	"github.com/Bloectasy/Valeriyya/pkg/metrics"
)

// ErrNoStarboard is returned when the guild has no starboard channel
var ErrNoStarboard = errors.New("no starboard channel set")

// maxEmbeds is the embed limit of a single message
const maxEmbeds = 10

// Webhooks is the part of the Discord API the starboard uses.
// *discordgo.Session satisfies it.
type Webhooks interface {
	WebhookCreate(channelID, name, avatar string, options ...discordgo.RequestOption) (*discordgo.Webhook, error)
	WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
	WebhookDelete(webhookID string, options ...discordgo.RequestOption) error
}

// Starboard posts starred messages
type Starboard struct {
	Store    database.GuildRepository
	Webhooks Webhooks
}

// Channel returns the starboard channel of a guild or ErrNoStarboard
func (s *Starboard) Channel(ctx context.Context, guildID string) (string, error) {
	unlock := s.Store.Lock(guildID)
	defer unlock()

	doc, err := s.Store.Lookup(ctx, guildID)
	if errors.Is(err, database.ErrGuildNotFound) {
		return "", ErrNoStarboard
	}
	if err != nil {
		return "", err
	}
	if doc.Channels.Starboard == "" {
		return "", ErrNoStarboard
	}
	return doc.Channels.Starboard, nil
}

// Star reposts msg in the starboard channel of guildID
func (s *Starboard) Star(ctx context.Context, guildID string, msg *discordgo.Message) error {
	channelID, err := s.Channel(ctx, guildID)
	if err != nil {
		return err
	}

	hook, err := s.Webhooks.WebhookCreate(channelID, "Valeriyya Starboard", "")
	if err != nil {
		return fmt.Errorf("create starboard webhook: %w", err)
	}
	defer func() {
		if err := s.Webhooks.WebhookDelete(hook.ID, discordgo.WithAuditLogReason("Starred a Message")); err != nil {
			logger.Warn(fmt.Sprintf("Could not delete starboard webhook %s: %v", hook.ID, err), "Starboard")
		}
	}()

	if _, err := s.Webhooks.WebhookExecute(hook.ID, hook.Token, false, Post(guildID, msg)); err != nil {
		return fmt.Errorf("post to starboard: %w", err)
	}

	metrics.MessagesStarred.Inc()
	logger.Debug(fmt.Sprintf("Message %s of %s starred into %s", msg.ID, guildID, channelID), "Starboard")
	return nil
}

// Post builds the webhook payload reposting msg under its author's name
// and avatar. Images become embeds, other attachments links.
func Post(guildID string, msg *discordgo.Message) *discordgo.WebhookParams {
	var content strings.Builder
	content.WriteString(msg.Content)
	content.WriteString("\n\nOriginal Message: ")
	content.WriteString(Link(guildID, msg))

	params := &discordgo.WebhookParams{
		AllowedMentions: &discordgo.MessageAllowedMentions{Parse: []discordgo.AllowedMentionType{}},
	}
	if msg.Author != nil {
		params.Username = msg.Author.DisplayName()
		params.AvatarURL = msg.Author.AvatarURL("")
	}

	for _, a := range msg.Attachments {
		if strings.HasPrefix(a.ContentType, "image/") && len(params.Embeds) < maxEmbeds {
			params.Embeds = append(params.Embeds, &discordgo.MessageEmbed{
				Image:     &discordgo.MessageEmbedImage{URL: a.URL},
				Timestamp: msg.Timestamp.Format(time.RFC3339),
			})
			continue
		}
		content.WriteString("\n")
		content.WriteString(a.URL)
	}

	params.Content = content.String()
	return params
}

// Link is the jump URL of a message
func Link(guildID string, msg *discordgo.Message) string {
	return fmt.Sprintf("https://discord.com/channels/%s/%s/%s", guildID, msg.ChannelID, msg.ID)
}
