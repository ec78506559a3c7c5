package moderation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/Bloectasy/Valeriyya/pkg/database"
	"github.com/Bloectasy/Valeriyya/pkg/logger"
	"github.com/Bloectasy/Valeriyya/pkg/models"
)

// LogEditor edits the logs channel entry of a case
type LogEditor interface {
	ChannelMessageEditEmbed(channelID, messageID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// CaseManager edits recorded cases
type CaseManager struct {
	Store  database.GuildRepository
	Editor LogEditor
}

// Find returns a case of a guild
func (m *CaseManager) Find(ctx context.Context, guildID string, id uint32) (*models.Case, error) {
	unlock := m.Store.Lock(guildID)
	defer unlock()

	doc, err := m.Store.Lookup(ctx, guildID)
	if errors.Is(err, database.ErrGuildNotFound) {
		return nil, models.ErrCaseNotFound
	}
	if err != nil {
		return nil, err
	}
	c, ok := doc.FindCase(id)
	if !ok {
		return nil, models.ErrCaseNotFound
	}
	found := *c
	return &found, nil
}

// Recent returns up to limit cases of a guild whose number starts with
// prefix, newest first
func (m *CaseManager) Recent(ctx context.Context, guildID, prefix string, limit int) ([]models.Case, error) {
	unlock := m.Store.Lock(guildID)
	defer unlock()

	doc, err := m.Store.Lookup(ctx, guildID)
	if errors.Is(err, database.ErrGuildNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var out []models.Case
	for i := len(doc.Cases) - 1; i >= 0 && len(out) < limit; i-- {
		if strings.HasPrefix(strconv.FormatUint(uint64(doc.Cases[i].ID), 10), prefix) {
			out = append(out, doc.Cases[i])
		}
	}
	return out, nil
}

// Delete removes a case. The case counter is left untouched.
func (m *CaseManager) Delete(ctx context.Context, guildID string, id uint32) error {
	_, err := m.update(ctx, guildID, func(doc *models.GuildDocument) (*models.Case, error) {
		return nil, doc.DeleteCase(id)
	})
	return err
}

// UpdateReason replaces the reason of a case and refreshes its log entry
func (m *CaseManager) UpdateReason(ctx context.Context, guildID string, id uint32, reason string) (*models.Case, error) {
	return m.update(ctx, guildID, func(doc *models.GuildDocument) (*models.Case, error) {
		return doc.UpdateCaseReason(id, reason)
	})
}

// UpdateReference links a case to another one and refreshes its log entry
func (m *CaseManager) UpdateReference(ctx context.Context, guildID string, id, reference uint32) (*models.Case, error) {
	return m.update(ctx, guildID, func(doc *models.GuildDocument) (*models.Case, error) {
		return doc.UpdateCaseReference(id, reference)
	})
}

func (m *CaseManager) update(ctx context.Context, guildID string, mutate func(*models.GuildDocument) (*models.Case, error)) (*models.Case, error) {
	unlock := m.Store.Lock(guildID)
	defer unlock()

	doc, err := m.Store.Guild(ctx, guildID)
	if err != nil {
		return nil, err
	}

	c, err := mutate(doc)
	if err != nil {
		return nil, err
	}

	var updated *models.Case
	if c != nil {
		cp := *c
		updated = &cp
	}

	if err := m.Store.Save(ctx, doc); err != nil {
		return nil, err
	}

	if updated != nil {
		m.refreshLog(doc, *updated)
	}
	return updated, nil
}

// refreshLog rewrites the logs channel message of a case, when there is one
func (m *CaseManager) refreshLog(doc *models.GuildDocument, c models.Case) {
	if m.Editor == nil || c.Message == nil || doc.Channels.Logs == "" {
		return
	}

	embed := CaseEmbed(nil, nil, c)
	if _, err := m.Editor.ChannelMessageEditEmbed(doc.Channels.Logs, *c.Message, embed); err != nil {
		logger.Warn(fmt.Sprintf("Could not edit the log entry of case %d: %v", c.ID, err), "Moderation")
	}
}
