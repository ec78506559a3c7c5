package moderation

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/Bloectasy/Valeriyya/pkg/models"
)

// MaxMuteDuration is the longest timeout Discord accepts
const MaxMuteDuration = 28 * 24 * time.Hour

// Mute times the target out for Duration
type Mute struct {
	action
}

// NewMute creates a mute action. Duration is capped at MaxMuteDuration.
func NewMute(data ActionData) *Mute {
	if data.Duration > MaxMuteDuration {
		data.Duration = MaxMuteDuration
	}
	return &Mute{action{
		ActionData: data,
		kind:       models.ActionMute,
		permission: discordgo.PermissionModerateMembers,
		verb:       "muting",
		method:     "MUTE",
	}}
}

func (m *Mute) Execute(ctx context.Context) (Outcome, error) {
	return m.execute(ctx, func(auditReason string) error {
		until := m.now().Add(m.Duration)
		return m.Session.GuildMemberTimeout(m.GuildID, m.Target.ID, &until, discordgo.WithAuditLogReason(auditReason))
	})
}
