package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/mongo/driver/topology"

	"github.com/Bloectasy/Valeriyya/pkg/models"
)

func TestGenerateCacheKeyIsDeterministic(t *testing.T) {
	dm := NewDataManager[models.GuildDocument](GuildsCollection, NewDatabase())

	a := dm.generateCacheKey(bson.M{"gid": "1", "b": 2, "a": 1})
	b := dm.generateCacheKey(bson.M{"a": 1, "gid": "1", "b": 2})

	assert.Equal(t, a, b)
	assert.Equal(t, "guilds:{a=1,b=2,gid=1}", a)
}

func TestOfflineDatabase(t *testing.T) {
	db := NewDatabase()

	assert.False(t, db.Connected())
	assert.Nil(t, db.GetCollection(GuildsCollection))

	_, err := db.Ping()
	assert.ErrorIs(t, err, ErrNotConnected)

	status, ok := db.GetStatus()
	assert.False(t, ok)
	assert.Contains(t, status, "Offline")
}

func TestDataManagerQueuesWritesWhileOffline(t *testing.T) {
	db := NewDatabase()
	dm := NewDataManager[models.GuildDocument](GuildsCollection, db)
	ctx := t.Context()

	doc := models.NewGuildDocument("42")
	doc.CasesNumber = 7

	saved, err := dm.Set(ctx, bson.M{"gid": "42"}, doc)
	require.NoError(t, err)
	assert.Same(t, doc, saved)
	assert.Equal(t, 1, db.QueueLength())

	// the cache serves the queued value
	got, err := dm.Get(ctx, bson.M{"gid": "42"})
	require.NoError(t, err)
	assert.EqualValues(t, 7, got.CasesNumber)

	// the queue keeps its own copy
	doc.CasesNumber = 99
	op, ok := db.pendingWrite(dm.generateCacheKey(bson.M{"gid": "42"}))
	require.True(t, ok)
	assert.EqualValues(t, 7, op.Data.(*models.GuildDocument).CasesNumber)

	require.NoError(t, dm.Delete(ctx, bson.M{"gid": "42"}))
	assert.Equal(t, 2, db.QueueLength())

	// a queued delete hides the document
	got, err = dm.Get(ctx, bson.M{"gid": "42"})
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = dm.Get(ctx, bson.M{"gid": "other"})
	assert.ErrorIs(t, err, ErrNotConnected)

	_, err = dm.GetAll(ctx, bson.M{})
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestGuildStoreOfflineRoundTrip(t *testing.T) {
	store := NewGuildStore(NewDatabase())
	ctx := t.Context()

	_, err := store.Guild(ctx, "1")
	require.ErrorIs(t, err, ErrNotConnected)

	doc := models.NewGuildDocument("1")
	doc.GetUserHistory("user").Increment(models.ActionBan)
	require.NoError(t, store.Save(ctx, doc))

	got, err := store.Guild(ctx, "1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, got.GetUserHistory("user").Ban)
}

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	k := NewKeyedMutex()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		active  int
		maxSeen int
	)

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock("guild")
			defer unlock()

			mu.Lock()
			active++
			if active > maxSeen {
				maxSeen = active
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
	assert.Equal(t, 0, k.Len())
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	k := NewKeyedMutex()

	unlockA := k.Lock("a")
	done := make(chan struct{})
	go func() {
		unlockB := k.Lock("b")
		unlockB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on another key should not block")
	}

	unlockA()
	unlockA() // second call is a no-op
	assert.Equal(t, 0, k.Len())
}

func TestGuildStoreLookupDoesNotCreate(t *testing.T) {
	db := NewDatabase()
	store := NewGuildStore(db)
	ctx := t.Context()

	require.NoError(t, store.Save(ctx, models.NewGuildDocument("known")))

	doc, err := store.Lookup(ctx, "known")
	require.NoError(t, err)
	assert.Equal(t, "known", doc.GID)

	// offline and uncached: the read fails instead of inventing a document
	_, err = store.Lookup(ctx, "unknown")
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.Equal(t, 1, db.QueueLength())
}

// unreachableDatabase is marked connected but points at a closed port, the
// way a database looks right after the server went away
func unreachableDatabase(t *testing.T) *Database {
	t.Helper()
	client, err := mongo.Connect(context.Background(), options.Client().
		ApplyURI("mongodb://127.0.0.1:1").
		SetServerSelectionTimeout(100*time.Millisecond))
	require.NoError(t, err)

	db := NewDatabase()
	db.client = client
	db.db = client.Database("valeriyya-test")
	db.connected = true
	db.newBackOff = func() backoff.BackOff { return backoff.NewConstantBackOff(time.Hour) }
	t.Cleanup(func() { _ = db.Disconnect() })
	return db
}

func TestWriteFailureSwitchesToOffline(t *testing.T) {
	db := unreachableDatabase(t)
	dm := NewDataManager[models.GuildDocument](GuildsCollection, db, DataManagerOptions{
		MaxCacheSize: 10,
		CacheTTL:     50 * time.Millisecond,
	})
	ctx := t.Context()
	query := bson.M{"gid": "42"}

	doc := models.NewGuildDocument("42")
	doc.CasesNumber = 7
	saved, err := dm.Set(ctx, query, doc)
	require.NoError(t, err)
	assert.EqualValues(t, 7, saved.CasesNumber)

	assert.Equal(t, 1, db.QueueLength())
	assert.False(t, db.Connected())
	assert.True(t, db.Reconnecting())

	doc.CasesNumber = 8
	_, err = dm.Set(ctx, query, doc)
	require.NoError(t, err)
	assert.Equal(t, 2, db.QueueLength())

	// once the cache entry expired the newest queued write answers
	time.Sleep(120 * time.Millisecond)
	got, err := dm.Get(ctx, query)
	require.NoError(t, err)
	assert.EqualValues(t, 8, got.CasesNumber)
}

func TestWritesQueueBehindPendingOnes(t *testing.T) {
	db := unreachableDatabase(t)
	db.AddToWriteQueue(QueuedOperation{CollectionName: GuildsCollection, Key: "older", Operation: OpDelete})

	// connected, but an older write is still waiting
	assert.False(t, db.writeThrough())

	store := NewGuildStore(db)
	require.NoError(t, store.Save(t.Context(), models.NewGuildDocument("1")))
	assert.Equal(t, 2, db.QueueLength())
	assert.True(t, db.Connected())
}

func TestIsConnectionError(t *testing.T) {
	assert.True(t, isConnectionError(ErrNotConnected))
	assert.True(t, isConnectionError(context.DeadlineExceeded))
	assert.True(t, isConnectionError(fmt.Errorf("find: %w", topology.ErrServerSelectionTimeout)))
	assert.True(t, isConnectionError(mongo.ErrClientDisconnected))
	assert.False(t, isConnectionError(errors.New("document failed validation")))
	assert.False(t, isConnectionError(mongo.ErrNoDocuments))
}
