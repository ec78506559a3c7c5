package database

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/Bloectasy/Valeriyya/pkg/models"
)

// GuildsCollection is the collection holding one document per guild
const GuildsCollection = "guilds"

// ErrGuildNotFound is returned by Lookup for guilds without a document
var ErrGuildNotFound = errors.New("guild not found")

// GuildRepository loads and persists guild documents.
// Lock serializes access to a single guild; documents returned by Guild and
// Lookup must only be read or changed while holding it.
type GuildRepository interface {
	// Guild returns the document of a guild, creating it when missing
	Guild(ctx context.Context, guildID string) (*models.GuildDocument, error)
	// Lookup returns the document of a guild without creating it
	Lookup(ctx context.Context, guildID string) (*models.GuildDocument, error)
	Save(ctx context.Context, doc *models.GuildDocument) error
	Lock(guildID string) (unlock func())
}

// GuildStore is the MongoDB backed GuildRepository
type GuildStore struct {
	dm    *DataManager[models.GuildDocument]
	locks *KeyedMutex
}

// NewGuildStore creates a GuildStore over the guilds collection
func NewGuildStore(db *Database, opts ...DataManagerOptions) *GuildStore {
	return &GuildStore{
		dm:    NewDataManager[models.GuildDocument](GuildsCollection, db, opts...),
		locks: NewKeyedMutex(),
	}
}

// Guild returns the document of a guild, creating a fresh one when the
// guild has never been seen
func (s *GuildStore) Guild(ctx context.Context, guildID string) (*models.GuildDocument, error) {
	doc, err := s.dm.Get(ctx, bson.M{"gid": guildID})
	if err != nil {
		return nil, fmt.Errorf("load guild %s: %w", guildID, err)
	}
	if doc != nil {
		return doc, nil
	}

	doc = models.NewGuildDocument(guildID)
	if err := s.Save(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Lookup returns the document of a guild or ErrGuildNotFound
func (s *GuildStore) Lookup(ctx context.Context, guildID string) (*models.GuildDocument, error) {
	doc, err := s.dm.Get(ctx, bson.M{"gid": guildID})
	if err != nil {
		return nil, fmt.Errorf("load guild %s: %w", guildID, err)
	}
	if doc == nil {
		return nil, ErrGuildNotFound
	}
	return doc, nil
}

// Save upserts a guild document
func (s *GuildStore) Save(ctx context.Context, doc *models.GuildDocument) error {
	if _, err := s.dm.Set(ctx, bson.M{"gid": doc.GID}, doc); err != nil {
		return fmt.Errorf("save guild %s: %w", doc.GID, err)
	}
	return nil
}

// Lock acquires the per-guild lock
func (s *GuildStore) Lock(guildID string) func() {
	return s.locks.Lock(guildID)
}

// KeyedMutex hands out one mutex per key and frees it once nobody holds it
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

// NewKeyedMutex creates an empty KeyedMutex
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyedLock)}
}

// Lock blocks until the key is free and returns the matching unlock function
func (k *KeyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Unlock()

			k.mu.Lock()
			l.refs--
			if l.refs == 0 {
				delete(k.locks, key)
			}
			k.mu.Unlock()
		})
	}
}

// Len returns the number of keys currently held or awaited
func (k *KeyedMutex) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
