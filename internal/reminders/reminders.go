// Package reminders stores per-user reminders on the guild document and
// delivers them once they are due.
package reminders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/Bloectasy/Valeriyya/pkg/database"
	"github.com/Bloectasy/Valeriyya/pkg/models"
)

// MaxDelay is the longest a reminder can be scheduled ahead
const MaxDelay = 365 * 24 * time.Hour

var (
	ErrInvalidDuration = errors.New("invalid duration")
	ErrDelayTooLong    = errors.New("reminders can be set at most one year ahead")
)

var units = map[string]time.Duration{
	"s": time.Second, "sec": time.Second, "secs": time.Second, "second": time.Second, "seconds": time.Second,
	"m": time.Minute, "min": time.Minute, "mins": time.Minute, "minute": time.Minute, "minutes": time.Minute,
	"h": time.Hour, "hr": time.Hour, "hrs": time.Hour, "hour": time.Hour, "hours": time.Hour,
	"d": 24 * time.Hour, "day": 24 * time.Hour, "days": 24 * time.Hour,
	"w": 7 * 24 * time.Hour, "week": 7 * 24 * time.Hour, "weeks": 7 * 24 * time.Hour,
}

// ParseDuration reads human durations such as "10m", "1h 30m" or
// "2 days 4hours". Every number needs a unit.
func ParseDuration(s string) (time.Duration, error) {
	rest := strings.ToLower(strings.TrimSpace(s))
	if rest == "" {
		return 0, ErrInvalidDuration
	}

	var total time.Duration
	for rest != "" {
		rest = strings.TrimLeft(rest, " ,")
		if rest == "" {
			break
		}

		digits := strings.IndexFunc(rest, func(r rune) bool { return !unicode.IsDigit(r) })
		if digits == 0 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
		}
		if digits < 0 {
			return 0, fmt.Errorf("%w: %q is missing a unit", ErrInvalidDuration, s)
		}
		n, err := strconv.ParseInt(rest[:digits], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
		}
		rest = strings.TrimLeft(rest[digits:], " ")

		end := strings.IndexFunc(rest, func(r rune) bool { return !unicode.IsLetter(r) })
		if end < 0 {
			end = len(rest)
		}
		unit, ok := units[rest[:end]]
		if !ok {
			return 0, fmt.Errorf("%w: unknown unit %q", ErrInvalidDuration, rest[:end])
		}
		rest = rest[end:]

		if n > int64(MaxDelay/unit) {
			return 0, ErrDelayTooLong
		}
		total += time.Duration(n) * unit
	}

	if total <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
	}
	if total > MaxDelay {
		return 0, ErrDelayTooLong
	}
	return total, nil
}

// Service manages the reminders of a guild
type Service struct {
	Store database.GuildRepository
	// Now defaults to time.Now
	Now func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Add schedules a reminder for userID in channelID, delay from now
func (s *Service) Add(ctx context.Context, guildID, userID, channelID, message string, delay time.Duration) (models.Reminder, error) {
	if delay <= 0 {
		return models.Reminder{}, ErrInvalidDuration
	}
	if delay > MaxDelay {
		return models.Reminder{}, ErrDelayTooLong
	}

	unlock := s.Store.Lock(guildID)
	defer unlock()

	doc, err := s.Store.Guild(ctx, guildID)
	if err != nil {
		return models.Reminder{}, err
	}

	now := s.now()
	r := doc.AddReminder(models.Reminder{
		UserID:    userID,
		ChannelID: channelID,
		Message:   message,
		DueAt:     now.Add(delay).Unix(),
		CreatedAt: now.Unix(),
	})
	if err := s.Store.Save(ctx, doc); err != nil {
		return models.Reminder{}, err
	}
	return r, nil
}

// Remove deletes a reminder of userID
func (s *Service) Remove(ctx context.Context, guildID, userID string, id uint32) error {
	unlock := s.Store.Lock(guildID)
	defer unlock()

	doc, err := s.Store.Lookup(ctx, guildID)
	if errors.Is(err, database.ErrGuildNotFound) {
		return models.ErrReminderNotFound
	}
	if err != nil {
		return err
	}
	if err := doc.RemoveReminder(id, userID); err != nil {
		return err
	}
	return s.Store.Save(ctx, doc)
}

// List returns the reminders of userID, soonest first
func (s *Service) List(ctx context.Context, guildID, userID string) ([]models.Reminder, error) {
	unlock := s.Store.Lock(guildID)
	defer unlock()

	doc, err := s.Store.Lookup(ctx, guildID)
	if errors.Is(err, database.ErrGuildNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	list := doc.RemindersFor(userID)
	sort.SliceStable(list, func(i, j int) bool { return list[i].DueAt < list[j].DueAt })
	return list, nil
}
