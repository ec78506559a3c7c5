package database

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/maypok86/otter/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Bloectasy/Valeriyya/pkg/logger"
)

// DataManagerOptions contains configuration for a DataManager
type DataManagerOptions struct {
	MaxCacheSize int
	CacheTTL     time.Duration
}

// DefaultDataManagerOptions returns default options for DataManager
func DefaultDataManagerOptions() DataManagerOptions {
	return DataManagerOptions{
		MaxCacheSize: 1000,
		CacheTTL:     30 * time.Minute,
	}
}

// DataManager provides cached access to a MongoDB collection
type DataManager[T any] struct {
	name       string
	dbInstance *Database
	cache      *otter.Cache[string, *T]
}

// NewDataManager creates a new DataManager for a collection
func NewDataManager[T any](collectionName string, db *Database, opts ...DataManagerOptions) *DataManager[T] {
	dmOptions := DefaultDataManagerOptions()
	if len(opts) > 0 {
		dmOptions = opts[0]
	}

	return &DataManager[T]{
		name:       collectionName,
		dbInstance: db,
		cache: otter.Must(&otter.Options[string, *T]{
			MaximumSize:      dmOptions.MaxCacheSize,
			ExpiryCalculator: otter.ExpiryAccessing[string, *T](dmOptions.CacheTTL),
		}),
	}
}

// collection returns the live collection, or nil while offline
func (dm *DataManager[T]) collection() *mongo.Collection {
	if dm.dbInstance == nil || !dm.dbInstance.Connected() {
		return nil
	}
	return dm.dbInstance.GetCollection(dm.name)
}

// generateCacheKey creates a unique, deterministic key from a query.
// Keys are sorted so map iteration order never changes the result.
func (dm *DataManager[T]) generateCacheKey(query bson.M) string {
	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, query[k]))
	}

	return fmt.Sprintf("%s:{%s}", dm.name, strings.Join(parts, ","))
}

// Get retrieves a document from cache or database.
// A missing document is reported as (nil, nil). Documents with queued
// writes are served from the queue, never from a stale database copy.
func (dm *DataManager[T]) Get(ctx context.Context, query bson.M) (*T, error) {
	cacheKey := dm.generateCacheKey(query)

	if cached, ok := dm.cache.GetIfPresent(cacheKey); ok {
		return cached, nil
	}

	if op, ok := dm.dbInstance.pendingWrite(cacheKey); ok {
		if op.Operation == OpDelete {
			return nil, nil
		}
		if data, ok := op.Data.(*T); ok {
			doc, err := snapshot(data)
			if err != nil {
				return nil, err
			}
			dm.cache.Set(cacheKey, doc)
			return doc, nil
		}
	}

	col := dm.collection()
	if col == nil {
		return nil, ErrNotConnected
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var result T
	if err := col.FindOne(ctx, query).Decode(&result); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		logger.Warn(fmt.Sprintf("Failed to read from '%s': %v", dm.name, err), "DataManager")
		if isConnectionError(err) {
			dm.dbInstance.markOffline(err)
		}
		return nil, err
	}

	dm.cache.Set(cacheKey, &result)
	return &result, nil
}

// GetAll retrieves all documents matching a query from the database
func (dm *DataManager[T]) GetAll(ctx context.Context, query bson.M) ([]*T, error) {
	col := dm.collection()
	if col == nil {
		return nil, ErrNotConnected
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cursor, err := col.Find(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = cursor.Close(ctx) }()

	var results []*T
	for cursor.Next(ctx) {
		var doc T
		if err := cursor.Decode(&doc); err != nil {
			continue
		}
		results = append(results, &doc)
	}

	return results, cursor.Err()
}

// Set upserts a document in the database and cache. While offline, or while
// older writes are still queued, the write is queued and the cache alone
// serves the new value. A write that fails to reach the server switches the
// database to offline mode and is queued as well.
func (dm *DataManager[T]) Set(ctx context.Context, query bson.M, data *T) (*T, error) {
	cacheKey := dm.generateCacheKey(query)

	col := dm.collection()
	if col == nil || !dm.dbInstance.writeThrough() {
		logger.Warn(fmt.Sprintf("DB offline. Queueing write for '%s'", dm.name), "DataManager")
		dm.queue(cacheKey, query, OpSet, data)
		dm.cache.Set(cacheKey, data)
		return data, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var result T
	if err := col.FindOneAndUpdate(ctx, query, bson.M{"$set": data}, opts).Decode(&result); err != nil {
		if !isConnectionError(err) {
			logger.Error(fmt.Sprintf("'set' rejected on '%s': %v", dm.name, err), "DataManager")
			return nil, err
		}
		logger.Error(fmt.Sprintf("'set' failed on '%s', queueing the write: %v", dm.name, err), "DataManager")
		dm.queue(cacheKey, query, OpSet, data)
		dm.cache.Set(cacheKey, data)
		dm.dbInstance.markOffline(err)
		return data, nil
	}

	dm.cache.Set(cacheKey, &result)
	return &result, nil
}

// Delete removes a document from the database and cache
func (dm *DataManager[T]) Delete(ctx context.Context, query bson.M) error {
	cacheKey := dm.generateCacheKey(query)
	dm.cache.Invalidate(cacheKey)

	col := dm.collection()
	if col == nil || !dm.dbInstance.writeThrough() {
		logger.Warn(fmt.Sprintf("DB offline. Queueing delete for '%s'", dm.name), "DataManager")
		dm.queue(cacheKey, query, OpDelete, nil)
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := col.DeleteOne(ctx, query); err != nil {
		if !isConnectionError(err) {
			logger.Error(fmt.Sprintf("'delete' rejected on '%s': %v", dm.name, err), "DataManager")
			return err
		}
		logger.Error(fmt.Sprintf("'delete' failed on '%s', queueing the operation: %v", dm.name, err), "DataManager")
		dm.queue(cacheKey, query, OpDelete, nil)
		dm.dbInstance.markOffline(err)
	}

	return nil
}

func (dm *DataManager[T]) queue(key string, query bson.M, op string, data *T) {
	queued := QueuedOperation{
		CollectionName: dm.name,
		Key:            key,
		Query:          query,
		Operation:      op,
	}
	if data != nil {
		// queued documents must not change while the sync reads them
		cp, err := snapshot(data)
		if err != nil {
			logger.Error(fmt.Sprintf("Could not queue a write for '%s': %v", dm.name, err), "DataManager")
			return
		}
		queued.Data = cp
	}
	dm.dbInstance.AddToWriteQueue(queued)
}

// snapshot deep copies a document through its BSON form
func snapshot[T any](data *T) (*T, error) {
	raw, err := bson.Marshal(data)
	if err != nil {
		return nil, err
	}
	var cp T
	if err := bson.Unmarshal(raw, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}
