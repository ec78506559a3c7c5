package moderation

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"github.com/Bloectasy/Valeriyya/pkg/models"
)

// Kick removes the target from the guild
type Kick struct {
	action
}

func NewKick(data ActionData) *Kick {
	return &Kick{action{
		ActionData: data,
		kind:       models.ActionKick,
		permission: discordgo.PermissionKickMembers,
		verb:       "kicking",
		method:     "KICK",
	}}
}

func (k *Kick) Execute(ctx context.Context) (Outcome, error) {
	return k.execute(ctx, func(auditReason string) error {
		return k.Session.GuildMemberDeleteWithReason(k.GuildID, k.Target.ID, auditReason)
	})
}
