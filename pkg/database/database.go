// Package database provides MongoDB database connection and data management.
// It includes a DataManager with caching capabilities for efficient data access.
package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/x/mongo/driver/topology"

	"github.com/Bloectasy/Valeriyya/pkg/logger"
)

// ErrNotConnected is returned by reads issued while the database is offline
var ErrNotConnected = errors.New("database not connected")

// Operation kinds stored in the offline write queue
const (
	OpSet    = "set"
	OpDelete = "delete"
)

// QueuedOperation represents a pending database operation
type QueuedOperation struct {
	CollectionName string
	// Key identifies the document, reads of it are served from the queue
	Key       string
	Query     bson.M
	Operation string
	Data      interface{}
}

// Database manages the MongoDB connection and data managers
type Database struct {
	client        *mongo.Client
	db            *mongo.Database
	connected     bool
	reconnecting  bool
	writeQueue    []QueuedOperation
	stopReconnect chan struct{}
	stopOnce      sync.Once
	mu            sync.RWMutex
	queueMu       sync.Mutex
	syncMu        sync.Mutex
	collections   map[string]*mongo.Collection

	mongoURL string
	dbName   string

	// reconnect policy, replaced in tests
	newBackOff func() backoff.BackOff
}

var (
	database *Database
	dbOnce   sync.Once
)

// Init initializes the global database instance
func Init(mongoURL, dbName string) (*Database, error) {
	var err error
	dbOnce.Do(func() {
		database = NewDatabase()
		err = database.Connect(mongoURL, dbName)
	})
	return database, err
}

// Get returns the global database instance
func Get() *Database {
	return database
}

// NewDatabase creates a new Database instance
func NewDatabase() *Database {
	return &Database{
		writeQueue:    make([]QueuedOperation, 0),
		stopReconnect: make(chan struct{}),
		collections:   make(map[string]*mongo.Collection),
		newBackOff:    defaultBackOff,
	}
}

func defaultBackOff() backoff.BackOff {
	return backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(2*time.Second),
		backoff.WithMaxInterval(time.Minute),
		backoff.WithMaxElapsedTime(0),
	)
}

// Connect establishes a connection to MongoDB. On failure a background
// reconnect loop is started and the bot keeps running in offline mode.
func (d *Database) Connect(mongoURL, dbName string) error {
	d.mu.Lock()
	d.mongoURL, d.dbName = mongoURL, dbName
	d.mu.Unlock()

	if err := d.connect(mongoURL, dbName); err != nil {
		d.startReconnect(mongoURL, dbName)
		return err
	}
	return nil
}

func (d *Database) connect(mongoURL, dbName string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		return nil
	}

	logger.System("Connecting to the database...", "DB")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	clientOpts := options.Client().
		ApplyURI(mongoURL).
		SetServerSelectionTimeout(5 * time.Second)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		logger.Critical("Failed to connect to the database.", "DB")
		return fmt.Errorf("connect: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		logger.Critical("Failed to verify the database connection.", "DB")
		_ = client.Disconnect(context.Background())
		return fmt.Errorf("ping: %w", err)
	}

	if d.client != nil {
		_ = d.client.Disconnect(context.Background())
	}
	d.client = client
	d.db = client.Database(dbName)
	d.collections = make(map[string]*mongo.Collection)
	d.connected = true

	logger.Success("Connected to the database.", "DB")

	go d.syncOfflineWrites()

	return nil
}

// markOffline switches to offline mode after a connection failure seen by
// a read or write and starts the reconnect loop. Writes are queued until the
// connection is back.
func (d *Database) markOffline(cause error) {
	d.mu.Lock()
	if !d.connected {
		d.mu.Unlock()
		return
	}
	d.connected = false
	d.collections = make(map[string]*mongo.Collection)
	mongoURL, dbName := d.mongoURL, d.dbName
	d.mu.Unlock()

	logger.Error(fmt.Sprintf("Lost the database connection: %v", cause), "DB")
	d.startReconnect(mongoURL, dbName)
}

// isConnectionError reports whether err means the server could not be
// reached, as opposed to the server rejecting the operation
func isConnectionError(err error) bool {
	return errors.Is(err, ErrNotConnected) ||
		mongo.IsNetworkError(err) ||
		mongo.IsTimeout(err) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, topology.ErrServerSelectionTimeout) ||
		errors.Is(err, topology.ErrTopologyClosed) ||
		errors.Is(err, mongo.ErrClientDisconnected)
}

// Reconnecting reports whether the background reconnect loop is running
func (d *Database) Reconnecting() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.reconnecting
}

// startReconnect retries the connection with exponential backoff until it
// succeeds or Disconnect is called
func (d *Database) startReconnect(mongoURL, dbName string) {
	select {
	case <-d.stopReconnect:
		return
	default:
	}

	d.mu.Lock()
	if d.reconnecting {
		d.mu.Unlock()
		return
	}
	d.reconnecting = true
	d.mu.Unlock()

	logger.Warn("Database unavailable. Running in offline mode.", "DB")

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-d.stopReconnect:
			cancel()
		case <-ctx.Done():
		}
	}()

	go func() {
		defer cancel()
		defer func() {
			d.mu.Lock()
			d.reconnecting = false
			d.mu.Unlock()
		}()

		err := backoff.RetryNotify(func() error {
			return d.connect(mongoURL, dbName)
		}, backoff.WithContext(d.newBackOff(), ctx), func(err error, next time.Duration) {
			logger.Info(fmt.Sprintf("Reconnect failed (%v), retrying in %s", err, next.Round(time.Second)), "DB")
		})
		if err != nil {
			logger.Warn(fmt.Sprintf("Stopped reconnecting to the database: %v", err), "DB")
		}
	}()
}

// Disconnect closes the database connection
func (d *Database) Disconnect() error {
	d.stopOnce.Do(func() { close(d.stopReconnect) })

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.client == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := d.client.Disconnect(ctx); err != nil {
		return err
	}
	d.connected = false
	logger.Warn("Database disconnected", "DB")
	return nil
}

// Connected reports whether the last connection attempt succeeded
func (d *Database) Connected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connected
}

// Ping measures the database response time
func (d *Database) Ping() (time.Duration, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.connected || d.client == nil {
		return 0, ErrNotConnected
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := d.client.Ping(ctx, readpref.Primary())
	return time.Since(start), err
}

// GetStatus returns the database connection status
func (d *Database) GetStatus() (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.client == nil {
		return "🔴 | Offline", false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := d.client.Ping(ctx, readpref.Primary()); err != nil {
		return "🔴 | Offline", false
	}
	return "🟢 | Online", true
}

// GetCollection returns a MongoDB collection, or nil while offline
func (d *Database) GetCollection(name string) *mongo.Collection {
	d.mu.RLock()
	if col, exists := d.collections[name]; exists {
		d.mu.RUnlock()
		return col
	}
	d.mu.RUnlock()

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db == nil {
		return nil
	}

	col := d.db.Collection(name)
	d.collections[name] = col
	return col
}

// AddToWriteQueue adds an operation to the offline write queue
func (d *Database) AddToWriteQueue(op QueuedOperation) {
	d.queueMu.Lock()
	defer d.queueMu.Unlock()
	d.writeQueue = append(d.writeQueue, op)
}

// QueueLength returns the number of writes waiting for a connection
func (d *Database) QueueLength() int {
	d.queueMu.Lock()
	defer d.queueMu.Unlock()
	return len(d.writeQueue)
}

// pendingWrite returns the latest queued operation for a document key
func (d *Database) pendingWrite(key string) (QueuedOperation, bool) {
	if d == nil {
		return QueuedOperation{}, false
	}
	d.queueMu.Lock()
	defer d.queueMu.Unlock()
	for i := len(d.writeQueue) - 1; i >= 0; i-- {
		if d.writeQueue[i].Key == key {
			return d.writeQueue[i], true
		}
	}
	return QueuedOperation{}, false
}

// writeThrough reports whether writes may go straight to MongoDB. Once a
// write is queued every later write queues behind it so the order holds.
func (d *Database) writeThrough() bool {
	return d.Connected() && d.QueueLength() == 0
}

func (d *Database) peekQueue() (QueuedOperation, bool) {
	d.queueMu.Lock()
	defer d.queueMu.Unlock()
	if len(d.writeQueue) == 0 {
		return QueuedOperation{}, false
	}
	return d.writeQueue[0], true
}

func (d *Database) popQueue() {
	d.queueMu.Lock()
	defer d.queueMu.Unlock()
	if len(d.writeQueue) > 0 {
		d.writeQueue = d.writeQueue[1:]
	}
}

// syncOfflineWrites replays queued operations in order. An operation leaves
// the queue only once written, so reads keep seeing it until then. Writes
// issued meanwhile queue behind it.
func (d *Database) syncOfflineWrites() {
	d.syncMu.Lock()
	defer d.syncMu.Unlock()

	pending := d.QueueLength()
	if pending == 0 {
		return
	}

	logger.System(fmt.Sprintf("Syncing %d pending operations with the database...", pending), "DB-Sync")

	synced := 0
	for {
		op, ok := d.peekQueue()
		if !ok {
			break
		}

		err := d.apply(op)
		if err != nil && isConnectionError(err) {
			logger.Warn(fmt.Sprintf("Sync stopped after %d operations, %d left: %v", synced, d.QueueLength(), err), "DB-Sync")
			d.markOffline(err)
			return
		}
		if err != nil {
			logger.Error(fmt.Sprintf("Dropping a queued '%s' on '%s' rejected by the server: %v", op.Operation, op.CollectionName, err), "DB-Sync")
		} else {
			synced++
		}
		d.popQueue()
	}

	logger.Success(fmt.Sprintf("Offline writes synced (%d).", synced), "DB-Sync")
}

func (d *Database) apply(op QueuedOperation) error {
	col := d.GetCollection(op.CollectionName)
	if col == nil {
		return ErrNotConnected
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var err error
	switch op.Operation {
	case OpSet:
		_, err = col.UpdateOne(ctx, op.Query, bson.M{"$set": op.Data}, options.Update().SetUpsert(true))
	case OpDelete:
		_, err = col.DeleteOne(ctx, op.Query)
	}
	return err
}

// Client returns the underlying MongoDB client
func (d *Database) Client() *mongo.Client {
	return d.client
}

// DB returns the underlying MongoDB database
func (d *Database) DB() *mongo.Database {
	return d.db
}
