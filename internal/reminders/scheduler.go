package reminders

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/sourcegraph/conc/pool"

	"github.com/Bloectasy/Valeriyya/pkg/database"
	"github.com/Bloectasy/Valeriyya/pkg/logger"
	"github.com/Bloectasy/Valeriyya/pkg/metrics"
	"github.com/Bloectasy/Valeriyya/pkg/models"
)

// DefaultInterval is how often due reminders are looked for
const DefaultInterval = 30 * time.Second

// sweepWorkers bounds the guilds processed at once by a sweep
const sweepWorkers = 4

// Sender delivers reminder messages. *discordgo.Session satisfies it.
type Sender interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Scheduler delivers due reminders of the guilds it tracks
type Scheduler struct {
	store    database.GuildRepository
	sender   Sender
	interval time.Duration
	now      func() time.Time

	mu     sync.Mutex
	guilds map[string]struct{}
}

// NewScheduler creates a Scheduler sweeping every interval
func NewScheduler(store database.GuildRepository, sender Sender, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		store:    store,
		sender:   sender,
		interval: interval,
		now:      time.Now,
		guilds:   make(map[string]struct{}),
	}
}

// Track adds a guild to the sweep
func (s *Scheduler) Track(guildID string) {
	s.mu.Lock()
	s.guilds[guildID] = struct{}{}
	s.mu.Unlock()
}

// Forget removes a guild from the sweep
func (s *Scheduler) Forget(guildID string) {
	s.mu.Lock()
	delete(s.guilds, guildID)
	s.mu.Unlock()
}

func (s *Scheduler) tracked() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.guilds))
	for id := range s.guilds {
		ids = append(ids, id)
	}
	return ids
}

// Run sweeps until ctx is cancelled
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logger.System(fmt.Sprintf("Reminder scheduler running every %s", s.interval), "Reminders")
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep delivers every reminder due now and returns how many were sent
func (s *Scheduler) Sweep(ctx context.Context) int {
	var (
		p    = pool.New().WithMaxGoroutines(sweepWorkers)
		mu   sync.Mutex
		sent int
	)

	now := s.now().Unix()
	for _, guildID := range s.tracked() {
		p.Go(func() {
			n := s.sweepGuild(ctx, guildID, now)
			mu.Lock()
			sent += n
			mu.Unlock()
		})
	}
	p.Wait()

	return sent
}

func (s *Scheduler) sweepGuild(ctx context.Context, guildID string, now int64) int {
	due, err := s.takeDue(ctx, guildID, now)
	if err != nil {
		logger.Warn(fmt.Sprintf("Could not check the reminders of %s: %v", guildID, err), "Reminders")
	}

	sent := 0
	for _, r := range due {
		if err := s.deliver(r); err != nil {
			logger.Warn(fmt.Sprintf("Reminder %d of %s not delivered: %v", r.ID, guildID, err), "Reminders")
			continue
		}
		sent++
	}
	if sent > 0 {
		metrics.RemindersDelivered.Add(float64(sent))
	}
	return sent
}

// takeDue removes the due reminders of a guild under its lock. They are
// returned even when saving fails, the cached document already dropped them.
func (s *Scheduler) takeDue(ctx context.Context, guildID string, now int64) ([]models.Reminder, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	unlock := s.store.Lock(guildID)
	defer unlock()

	doc, err := s.store.Lookup(ctx, guildID)
	if errors.Is(err, database.ErrGuildNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	due := doc.TakeDueReminders(now)
	if len(due) == 0 {
		return nil, nil
	}
	return due, s.store.Save(ctx, doc)
}

func (s *Scheduler) deliver(r models.Reminder) error {
	_, err := s.sender.ChannelMessageSendComplex(r.ChannelID, &discordgo.MessageSend{
		Content: fmt.Sprintf("<@%s>, you asked me to remind you <t:%d:R>: %s", r.UserID, r.CreatedAt, r.Message),
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Users: []string{r.UserID},
		},
	})
	return err
}
