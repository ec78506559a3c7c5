package moderation

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"github.com/Bloectasy/Valeriyya/pkg/models"
)

// Unban lifts a ban. Unbans take a case number but have no history counter.
type Unban struct {
	action
}

func NewUnban(data ActionData) *Unban {
	return &Unban{action{
		ActionData: data,
		kind:       models.ActionUnban,
		permission: discordgo.PermissionBanMembers,
		verb:       "unbanning",
		method:     "UNBAN",
	}}
}

func (u *Unban) Execute(ctx context.Context) (Outcome, error) {
	return u.execute(ctx, func(auditReason string) error {
		return u.Session.GuildBanDelete(u.GuildID, u.Target.ID, discordgo.WithAuditLogReason(auditReason))
	})
}
