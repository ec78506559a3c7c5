// Package models holds the documents persisted in MongoDB.
package models

// GuildChannels holds the configured channel IDs of a guild
type GuildChannels struct {
	Logs      string `bson:"logs,omitempty" json:"logs,omitempty"`
	Welcome   string `bson:"welcome,omitempty" json:"welcome,omitempty"`
	Starboard string `bson:"starboard,omitempty" json:"starboard,omitempty"`
}

// GuildDocument is the guild-scoped document of the "guilds" collection
type GuildDocument struct {
	GID           string        `bson:"gid" json:"gid"`
	Cases         []Case        `bson:"cases" json:"cases"`
	CasesNumber   uint32        `bson:"cases_number" json:"casesNumber"`
	History       []History     `bson:"history" json:"history"`
	Channels      GuildChannels `bson:"channels" json:"channels"`
	Reminders     []Reminder    `bson:"reminders" json:"reminders"`
	ReminderCount uint32        `bson:"reminder_count" json:"reminderCount"`
}

// NewGuildDocument returns an empty document for a guild
func NewGuildDocument(guildID string) *GuildDocument {
	return &GuildDocument{
		GID:       guildID,
		Cases:     make([]Case, 0),
		History:   make([]History, 0),
		Reminders: make([]Reminder, 0),
	}
}

// GetUserHistory returns the history record of a user, creating it when missing.
// The returned pointer stays valid until the next call that appends to History.
func (g *GuildDocument) GetUserHistory(userID string) *History {
	for i := range g.History {
		if g.History[i].ID == userID {
			return &g.History[i]
		}
	}
	g.History = append(g.History, History{ID: userID})
	return &g.History[len(g.History)-1]
}

// NextCaseNumber returns the number the next case will get
func (g *GuildDocument) NextCaseNumber() uint32 {
	return g.CasesNumber + 1
}

// AddCase appends a case and moves the counter to its ID
func (g *GuildDocument) AddCase(c Case) {
	g.Cases = append(g.Cases, c)
	if c.ID > g.CasesNumber {
		g.CasesNumber = c.ID
	}
}

// FindCase returns the case with the given ID
func (g *GuildDocument) FindCase(id uint32) (*Case, bool) {
	for i := range g.Cases {
		if g.Cases[i].ID == id {
			return &g.Cases[i], true
		}
	}
	return nil, false
}

// CasesFor returns every case targeting a user
func (g *GuildDocument) CasesFor(userID string) []Case {
	var result []Case
	for _, c := range g.Cases {
		if c.TargetID == userID {
			result = append(result, c)
		}
	}
	return result
}

// DeleteCase removes a case. The counter is never decremented.
func (g *GuildDocument) DeleteCase(id uint32) error {
	for i := range g.Cases {
		if g.Cases[i].ID == id {
			g.Cases = append(g.Cases[:i], g.Cases[i+1:]...)
			return nil
		}
	}
	return ErrCaseNotFound
}

// UpdateCaseReason replaces the reason of a case
func (g *GuildDocument) UpdateCaseReason(id uint32, reason string) (*Case, error) {
	c, ok := g.FindCase(id)
	if !ok {
		return nil, ErrCaseNotFound
	}
	c.Reason = reason
	return c, nil
}

// UpdateCaseReference links a case to another one
func (g *GuildDocument) UpdateCaseReference(id, reference uint32) (*Case, error) {
	if id == reference {
		return nil, ErrSelfReference
	}
	c, ok := g.FindCase(id)
	if !ok {
		return nil, ErrCaseNotFound
	}
	if _, ok := g.FindCase(reference); !ok {
		return nil, ErrReferenceNotFound
	}
	ref := reference
	c.Reference = &ref
	return c, nil
}
