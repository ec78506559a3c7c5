package events

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bloectasy/Valeriyya/pkg/database"
	"github.com/Bloectasy/Valeriyya/pkg/discord"
	"github.com/Bloectasy/Valeriyya/pkg/logger"
	"github.com/Bloectasy/Valeriyya/pkg/metrics"
	"github.com/Bloectasy/Valeriyya/pkg/models"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "valeriyya-events")
	if err != nil {
		panic(err)
	}
	logger.LogsDir = dir
	logger.Get().SetConsole(discardWriter{})

	code := m.Run()
	logger.Get().Close()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

type countingStore struct {
	mu     sync.Mutex
	loaded []string
	err    error
	locks  *database.KeyedMutex
}

func (s *countingStore) Guild(ctx context.Context, guildID string) (*models.GuildDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = append(s.loaded, guildID)
	if s.err != nil {
		return nil, s.err
	}
	return models.NewGuildDocument(guildID), nil
}

func (s *countingStore) Lookup(ctx context.Context, guildID string) (*models.GuildDocument, error) {
	return nil, database.ErrGuildNotFound
}

func (s *countingStore) Save(ctx context.Context, doc *models.GuildDocument) error {
	return nil
}

func (s *countingStore) Lock(guildID string) func() {
	return s.locks.Lock(guildID)
}

func guildCreate(id string, joined time.Time) *discordgo.GuildCreate {
	return &discordgo.GuildCreate{Guild: &discordgo.Guild{ID: id, Name: "guild " + id, JoinedAt: joined}}
}

func TestGuildCreateEnsuresDocument(t *testing.T) {
	store := &countingStore{locks: database.NewKeyedMutex()}

	onGuildCreate(Deps{Store: store}, guildCreate("1", time.Now().Add(-time.Hour)), 4)
	onGuildCreate(Deps{Store: store}, guildCreate("2", time.Now()), 5)

	assert.Equal(t, []string{"1", "2"}, store.loaded)
	assert.Equal(t, float64(5), testutil.ToFloat64(metrics.GuildsGauge))
}

func TestGuildCreateSurvivesStoreError(t *testing.T) {
	store := &countingStore{locks: database.NewKeyedMutex(), err: errors.New("offline")}

	assert.NotPanics(t, func() {
		onGuildCreate(Deps{Store: store}, guildCreate("1", time.Now()), 1)
	})
	assert.Zero(t, store.locks.Len())
}

func TestGuildCreateWithoutStore(t *testing.T) {
	assert.NotPanics(t, func() {
		onGuildCreate(Deps{}, guildCreate("1", time.Now()), 1)
	})
}

func TestGuildDeleteIgnoresOutages(t *testing.T) {
	metrics.GuildsGauge.Set(7)

	onGuildDelete(Deps{}, &discordgo.GuildDelete{Guild: &discordgo.Guild{ID: "1", Unavailable: true}}, 3)
	assert.Equal(t, float64(7), testutil.ToFloat64(metrics.GuildsGauge))

	onGuildDelete(Deps{}, &discordgo.GuildDelete{Guild: &discordgo.Guild{ID: "1"}}, 3)
	assert.Equal(t, float64(3), testutil.ToFloat64(metrics.GuildsGauge))
}

func TestRegisterAll(t *testing.T) {
	client, err := discord.NewClient("token")
	require.NoError(t, err)

	RegisterAll(client, Deps{})

	assert.Equal(t, 6, client.EventHandler.Count())
}

type fakeTracker struct {
	tracked map[string]bool
}

func (f *fakeTracker) Track(guildID string)  { f.tracked[guildID] = true }
func (f *fakeTracker) Forget(guildID string) { delete(f.tracked, guildID) }

func TestGuildEventsFollowGuilds(t *testing.T) {
	tracker := &fakeTracker{tracked: map[string]bool{}}
	deps := Deps{Guilds: tracker}

	onGuildCreate(deps, guildCreate("1", time.Now()), 1)
	onGuildCreate(deps, guildCreate("2", time.Now()), 2)
	assert.Equal(t, map[string]bool{"1": true, "2": true}, tracker.tracked)

	// an outage keeps the guild, leaving it does not
	onGuildDelete(deps, &discordgo.GuildDelete{Guild: &discordgo.Guild{ID: "1", Unavailable: true}}, 2)
	onGuildDelete(deps, &discordgo.GuildDelete{Guild: &discordgo.Guild{ID: "2"}}, 1)
	assert.Equal(t, map[string]bool{"1": true}, tracker.tracked)
}
