// Package moderation implements the moderation actions (ban, kick, mute,
// unban). Every action checks the invoking member's permissions, issues a
// single Discord API call and records the result in the guild document.
package moderation

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
	"github.com/Bloectasy/Valeriyya/pkg/models"
)

// ErrPermissionDenied is returned by Run when the invoker lacks the permission
var ErrPermissionDenied = errors.New("missing permission")

// MemberManager is the part of the Discord REST API the actions call.
// *discordgo.Session satisfies it.
type MemberManager interface {
	GuildBanCreateWithReason(guildID, userID, reason string, days int, options ...discordgo.RequestOption) error
	GuildBanDelete(guildID, userID string, options ...discordgo.RequestOption) error
	GuildMemberDeleteWithReason(guildID, userID, reason string, options ...discordgo.RequestOption) error
	GuildMemberTimeout(guildID, userID string, until *time.Time, options ...discordgo.RequestOption) error
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditEmbed(channelID, messageID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Replier answers the invoking interaction. *discord.CommandContext satisfies it.
type Replier interface {
	ReplyEmbed(embed *discordgo.MessageEmbed) error
	ReplyEphemeral(content string) error
}

// CasePublisher announces recorded cases to other services
type CasePublisher interface {
	PublishCase(guildID string, c models.Case) error
}

// ActionData carries everything an action needs
type ActionData struct {
	Session   MemberManager
	Replier   Replier
	Store     database.GuildRepository
	Publisher CasePublisher

	GuildID          string
	Staff            *discordgo.User
	StaffPermissions int64
	Target           *discordgo.User

	// Reason is the staff provided reason, empty when none was given
	Reason string
	// Duration is the timeout length of a mute
	Duration time.Duration
	// DeleteMessageDays is the message history removed by a ban (0-7)
	DeleteMessageDays int

	// Now defaults to time.Now
	Now func() time.Time
}

func (d *ActionData) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// Outcome describes what Execute did
type Outcome struct {
	// Attempted is true once the Discord API call was issued
	Attempted bool
	// APIError is the error returned by the Discord API call
	APIError error
	// CaseNumber is the guild case number consumed by this action
	CaseNumber uint32
	// HistoryCount is the target's counter for this action after the update
	HistoryCount uint16
	// Case is the recorded case, only set when the API call succeeded
	Case *models.Case
}

// Succeeded reports whether the Discord API call went through
func (o Outcome) Succeeded() bool {
	return o.Attempted && o.APIError == nil
}

// Moderation is a single moderation action against a guild member
type Moderation interface {
	Action() models.ActionType
	// Permissions replies with a permission-denied embed and returns false
	// when the invoker can't run the action
	Permissions() bool
	Execute(ctx context.Context) (Outcome, error)
}

// Run checks permissions and executes the action
func Run(ctx context.Context, m Moderation) (Outcome, error) {
	if !m.Permissions() {
		metrics.ModerationActions.WithLabelValues(m.Action().String(), metrics.OutcomeDenied).Inc()
		return Outcome{}, ErrPermissionDenied
	}
	return m.Execute(ctx)
}

// action holds the behaviour shared by every Moderation
type action struct {
	ActionData

	kind       models.ActionType
	permission int64
	// verb and method name the action in error messages:
	// "There was an error <verb> this member", "moderation-<method>"
	verb   string
	method string
}

func (a *action) Action() models.ActionType {
	return a.kind
}

func (a *action) Permissions() bool {
	if discord.HasPermission(a.StaffPermissions, a.permission) {
		return true
	}
	if a.Replier != nil {
		_ = a.Replier.ReplyEmbed(discord.MissingPermissionEmbed(a.Staff, a.permission))
	}
	return false
}

// execute runs the read-increment-write cycle around apply. apply receives
// the audit log reason and performs the single Discord API call.
func (a *action) execute(ctx context.Context, apply func(auditReason string) error) (Outcome, error) {
	unlock := a.Store.Lock(a.GuildID)
	defer unlock()

	doc, err := a.Store.Guild(ctx, a.GuildID)
	if err != nil {
		return Outcome{}, fmt.Errorf("load guild: %w", err)
	}

	history := doc.GetUserHistory(a.Target.ID)
	out := Outcome{
		Attempted:    true,
		CaseNumber:   doc.NextCaseNumber(),
		HistoryCount: history.Count(a.kind) + 1,
	}

	if err := apply(fmt.Sprintf("Case %d", out.CaseNumber)); err != nil {
		out.APIError = err
		if a.Replier != nil {
			_ = a.Replier.ReplyEphemeral(fmt.Sprintf("There was an error %s this member: %v", a.verb, err))
		}
		logger.Error(fmt.Sprintf("There was an error with the moderation-%s method: %v", a.method, err), "Moderation")
	}

	// Counters move even when the API call failed
	doc.CasesNumber = out.CaseNumber
	history.Increment(a.kind)

	if out.Succeeded() {
		c := a.newCase(out.CaseNumber)
		c.Message = a.postLog(doc, c)
		doc.AddCase(c)
		out.Case = &c
	}

	if err := a.Store.Save(ctx, doc); err != nil {
		return out, fmt.Errorf("save guild: %w", err)
	}

	if out.Succeeded() {
		metrics.ModerationActions.WithLabelValues(a.kind.String(), metrics.OutcomeSuccess).Inc()
		a.publish(*out.Case)
	} else {
		metrics.ModerationActions.WithLabelValues(a.kind.String(), metrics.OutcomeFailed).Inc()
	}

	return out, nil
}

func (a *action) newCase(number uint32) models.Case {
	now := a.now()

	reason := a.Reason
	if reason == "" {
		reason = DefaultReason(number)
	}

	c := models.Case{
		ID:       number,
		Action:   a.kind,
		GuildID:  a.GuildID,
		TargetID: a.Target.ID,
		Date:     now.Unix(),
		Reason:   reason,
	}
	if a.Staff != nil {
		c.StaffID = a.Staff.ID
	}
	if a.Duration > 0 {
		exp := now.Add(a.Duration).Unix()
		c.Expiration = &exp
	}
	return c
}

// postLog sends the case embed to the guild's logs channel and returns the
// message ID, nil when no channel is configured or sending failed
func (a *action) postLog(doc *models.GuildDocument, c models.Case) *string {
	if doc.Channels.Logs == "" {
		return nil
	}

	msg, err := a.Session.ChannelMessageSendEmbed(doc.Channels.Logs, CaseEmbed(a.Staff, a.Target, c))
	if err != nil {
		logger.Warn(fmt.Sprintf("Could not post case %d to the logs channel of %s: %v", c.ID, a.GuildID, err), "Moderation")
		return nil
	}
	return &msg.ID
}

func (a *action) publish(c models.Case) {
	if a.Publisher == nil {
		return
	}
	if err := a.Publisher.PublishCase(a.GuildID, c); err != nil {
		metrics.CasePublishErrors.Inc()
		logger.Debug(fmt.Sprintf("Case %d of %s not published: %v", c.ID, a.GuildID, err), "Moderation")
	}
}

// DefaultReason is stored on cases created without a reason
func DefaultReason(caseNumber uint32) string {
	return fmt.Sprintf("Use /reason %d <...reason> to set a reason for this case.", caseNumber)
}
