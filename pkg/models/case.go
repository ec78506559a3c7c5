package models

import (
	"errors"
	"fmt"
	"time"
)

// ActionType represents the kind of moderation action stored in a case
type ActionType string

const (
	ActionBan   ActionType = "Ban"
	ActionUnban ActionType = "Unban"
	ActionKick  ActionType = "Kick"
	ActionMute  ActionType = "Mute"
)

var (
	ErrCaseNotFound  = errors.New("case not found")
	ErrSelfReference = errors.New("a case can't reference itself")
	// ErrReferenceNotFound is returned when the referenced case is missing.
	// It matches ErrCaseNotFound.
	ErrReferenceNotFound = fmt.Errorf("referenced %w", ErrCaseNotFound)
)

// String returns the display name of the action
func (a ActionType) String() string {
	return string(a)
}

// Case represents a single moderation action taken in a guild
type Case struct {
	ID         uint32     `bson:"id" json:"id"`
	Action     ActionType `bson:"action" json:"action"`
	GuildID    string     `bson:"guild_id" json:"guildId"`
	StaffID    string     `bson:"staff_id" json:"staffId"`
	TargetID   string     `bson:"target_id" json:"targetId"`
	Date       int64      `bson:"date" json:"date"`
	Reason     string     `bson:"reason" json:"reason"`
	Reference  *uint32    `bson:"reference,omitempty" json:"reference,omitempty"`
	Expiration *int64     `bson:"expiration,omitempty" json:"expiration,omitempty"`
	Message    *string    `bson:"message,omitempty" json:"message,omitempty"` // log channel message ID
}

// Time returns the case date as a time.Time
func (c *Case) Time() time.Time {
	return time.Unix(c.Date, 0)
}

// History holds the per-user action counters of a guild
type History struct {
	ID   string `bson:"id" json:"id"`
	Ban  uint16 `bson:"ban" json:"ban"`
	Kick uint16 `bson:"kick" json:"kick"`
	Mute uint16 `bson:"mute" json:"mute"`
}

// Increment bumps the counter matching the action. Actions without a counter are ignored.
func (h *History) Increment(action ActionType) {
	switch action {
	case ActionBan:
		h.Ban++
	case ActionKick:
		h.Kick++
	case ActionMute:
		h.Mute++
	}
}

// Count returns the counter matching the action
func (h *History) Count(action ActionType) uint16 {
	switch action {
	case ActionBan:
		return h.Ban
	case ActionKick:
		return h.Kick
	case ActionMute:
		return h.Mute
	default:
		return 0
	}
}
