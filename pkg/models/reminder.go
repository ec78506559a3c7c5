package models

import "errors"

var (
	ErrReminderNotFound = errors.New("reminder not found")
	ErrNotReminderOwner = errors.New("reminder belongs to another user")
)

// Reminder is a message delivered to a user in a channel once DueAt passes.
// Times are unix seconds.
type Reminder struct {
	ID        uint32 `bson:"id" json:"id"`
	UserID    string `bson:"user" json:"userId"`
	ChannelID string `bson:"channel" json:"channelId"`
	Message   string `bson:"message" json:"message"`
	DueAt     int64  `bson:"datetime" json:"dueAt"`
	CreatedAt int64  `bson:"created_at" json:"createdAt"`
}

// AddReminder stores a reminder under the next reminder number
func (g *GuildDocument) AddReminder(r Reminder) Reminder {
	g.ReminderCount++
	r.ID = g.ReminderCount
	g.Reminders = append(g.Reminders, r)
	return r
}

// RemoveReminder deletes a reminder owned by userID
func (g *GuildDocument) RemoveReminder(id uint32, userID string) error {
	for i := range g.Reminders {
		if g.Reminders[i].ID != id {
			continue
		}
		if g.Reminders[i].UserID != userID {
			return ErrNotReminderOwner
		}
		g.Reminders = append(g.Reminders[:i], g.Reminders[i+1:]...)
		return nil
	}
	return ErrReminderNotFound
}

// RemindersFor returns the reminders of a user
func (g *GuildDocument) RemindersFor(userID string) []Reminder {
	var out []Reminder
	for _, r := range g.Reminders {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out
}

// TakeDueReminders removes and returns every reminder due at now
func (g *GuildDocument) TakeDueReminders(now int64) []Reminder {
	var due []Reminder
	kept := g.Reminders[:0]
	for _, r := range g.Reminders {
		if r.DueAt <= now {
			due = append(due, r)
		} else {
			kept = append(kept, r)
		}
	}
	g.Reminders = kept
	return due
}
