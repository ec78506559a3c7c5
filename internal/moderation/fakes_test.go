package moderation

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/Bloectasy/Valeriyya/pkg/database"
	"github.com/Bloectasy/Valeriyya/pkg/logger"
	"github.com/Bloectasy/Valeriyya/pkg/models"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "valeriyya-logs")
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

type call struct {
	method string
	guild  string
	user   string
	reason string
	days   int
	until  *time.Time
}

// fakeSession records the REST calls issued by an action
type fakeSession struct {
	mu      sync.Mutex
	calls   []call
	err     error
	sent    map[string][]*discordgo.MessageEmbed
	edited  map[string]*discordgo.MessageEmbed
	sendErr error
}

func (f *fakeSession) record(c call) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	return f.err
}

func (f *fakeSession) GuildBanCreateWithReason(guildID, userID, reason string, days int, _ ...discordgo.RequestOption) error {
	return f.record(call{method: "ban", guild: guildID, user: userID, reason: reason, days: days})
}

func (f *fakeSession) GuildBanDelete(guildID, userID string, _ ...discordgo.RequestOption) error {
	return f.record(call{method: "unban", guild: guildID, user: userID})
}

func (f *fakeSession) GuildMemberDeleteWithReason(guildID, userID, reason string, _ ...discordgo.RequestOption) error {
	return f.record(call{method: "kick", guild: guildID, user: userID, reason: reason})
}

func (f *fakeSession) GuildMemberTimeout(guildID, userID string, until *time.Time, _ ...discordgo.RequestOption) error {
	return f.record(call{method: "timeout", guild: guildID, user: userID, until: until})
}

func (f *fakeSession) ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	if f.sent == nil {
		f.sent = make(map[string][]*discordgo.MessageEmbed)
	}
	f.sent[channelID] = append(f.sent[channelID], embed)
	return &discordgo.Message{ID: "msg-1", ChannelID: channelID}, nil
}

func (f *fakeSession) ChannelMessageEditEmbed(channelID, messageID string, embed *discordgo.MessageEmbed, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.edited == nil {
		f.edited = make(map[string]*discordgo.MessageEmbed)
	}
	f.edited[messageID] = embed
	return &discordgo.Message{ID: messageID, ChannelID: channelID}, nil
}

func (f *fakeSession) apiCalls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

// fakeReplier records interaction replies
type fakeReplier struct {
	mu        sync.Mutex
	embeds    []*discordgo.MessageEmbed
	ephemeral []string
}

func (r *fakeReplier) ReplyEmbed(embed *discordgo.MessageEmbed) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.embeds = append(r.embeds, embed)
	return nil
}

func (r *fakeReplier) ReplyEphemeral(content string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ephemeral = append(r.ephemeral, content)
	return nil
}

// memStore is an in-memory GuildRepository
type memStore struct {
	mu      sync.Mutex
	docs    map[string]*models.GuildDocument
	saves   int
	loadErr error
	saveErr error
	locks   *database.KeyedMutex
}

func newMemStore() *memStore {
	return &memStore{docs: make(map[string]*models.GuildDocument), locks: database.NewKeyedMutex()}
}

func (s *memStore) Guild(ctx context.Context, guildID string) (*models.GuildDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	doc, ok := s.docs[guildID]
	if !ok {
		doc = models.NewGuildDocument(guildID)
		s.docs[guildID] = doc
	}
	return doc, nil
}

func (s *memStore) Lookup(ctx context.Context, guildID string) (*models.GuildDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	doc, ok := s.docs[guildID]
	if !ok {
		return nil, database.ErrGuildNotFound
	}
	return doc, nil
}

func (s *memStore) Save(ctx context.Context, doc *models.GuildDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	s.docs[doc.GID] = doc
	return nil
}

func (s *memStore) Lock(guildID string) func() {
	return s.locks.Lock(guildID)
}

func (s *memStore) put(doc *models.GuildDocument) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.GID] = doc
}

type fakePublisher struct {
	mu     sync.Mutex
	events []models.Case
	err    error
}

func (p *fakePublisher) PublishCase(guildID string, c models.Case) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, c)
	return nil
}

var errMissingAccess = errors.New("HTTP 403 Forbidden, {\"message\": \"Missing Permissions\", \"code\": 50013}")
