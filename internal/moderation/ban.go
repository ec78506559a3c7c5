package moderation

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"github.com/Bloectasy/Valeriyya/pkg/models"
)

// Ban bans the target from the guild
type Ban struct {
	action
}

// NewBan creates a ban action. DeleteMessageDays is clamped to 0-7.
func NewBan(data ActionData) *Ban {
	if data.DeleteMessageDays < 0 {
		data.DeleteMessageDays = 0
	}
	if data.DeleteMessageDays > 7 {
		data.DeleteMessageDays = 7
	}
	return &Ban{action{
		ActionData: data,
		kind:       models.ActionBan,
		permission: discordgo.PermissionBanMembers,
		verb:       "banning",
		method:     "BAN",
	}}
}

func (b *Ban) Execute(ctx context.Context) (Outcome, error) {
	return b.execute(ctx, func(auditReason string) error {
		return b.Session.GuildBanCreateWithReason(b.GuildID, b.Target.ID, auditReason, b.DeleteMessageDays)
	})
}
