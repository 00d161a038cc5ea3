// Package store is the append-only persistence sink: scrape outcomes in the
// "results" collection, selector probe logs in "selector_logs", both
// queryable by descending timestamp for dashboard consumption.
package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tablewatch/tablewatch/config"
	"github.com/tablewatch/tablewatch/models"
)

const (
	resultsCollection      = "results"
	selectorLogsCollection = "selector_logs"
)

// Store wraps the MongoDB collections. All writes are inserts; documents are
// never updated after creation.
type Store struct {
	client       *mongo.Client
	results      *mongo.Collection
	selectorLogs *mongo.Collection
}

// Connect dials MongoDB and verifies the connection. Called only when a
// Mongo URL is configured; the rest of the system runs without a Store.
func Connect(ctx context.Context, cfg config.StoreConfig) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURL))
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("store: ping: %w", err)
	}

	db := client.Database(cfg.Database)
	return &Store{
		client:       client,
		results:      db.Collection(resultsCollection),
		selectorLogs: db.Collection(selectorLogsCollection),
	}, nil
}

// SaveOutcome appends one scrape outcome.
func (s *Store) SaveOutcome(ctx context.Context, outcome *models.ScrapeOutcome) error {
	if _, err := s.results.InsertOne(ctx, outcome); err != nil {
		return fmt.Errorf("store: insert outcome: %w", err)
	}
	return nil
}

// SaveProbeLog appends one selector monitoring run.
func (s *Store) SaveProbeLog(ctx context.Context, log *models.SelectorProbeLog) error {
	if _, err := s.selectorLogs.InsertOne(ctx, log); err != nil {
		return fmt.Errorf("store: insert probe log: %w", err)
	}
	return nil
}

// CountOutcomes returns the total number of stored results.
func (s *Store) CountOutcomes(ctx context.Context) (int64, error) {
	count, err := s.results.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("store: count outcomes: %w", err)
	}
	return count, nil
}

// RecentOutcomes returns up to limit results, newest first.
func (s *Store) RecentOutcomes(ctx context.Context, limit int) ([]models.ScrapeOutcome, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := s.results.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("store: find outcomes: %w", err)
	}
	defer cursor.Close(ctx)

	var outcomes []models.ScrapeOutcome
	if err := cursor.All(ctx, &outcomes); err != nil {
		return nil, fmt.Errorf("store: decode outcomes: %w", err)
	}
	return outcomes, nil
}

// RecentProbeLogs returns up to limit probe runs, newest first. Operators
// diff successive runs to spot selector drift.
func (s *Store) RecentProbeLogs(ctx context.Context, limit int) ([]models.SelectorProbeLog, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := s.selectorLogs.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("store: find probe logs: %w", err)
	}
	defer cursor.Close(ctx)

	var logs []models.SelectorProbeLog
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, fmt.Errorf("store: decode probe logs: %w", err)
	}
	return logs, nil
}

// Close disconnects the client during graceful shutdown.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
