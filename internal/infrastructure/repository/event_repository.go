package repository

import (
	"context"
	"fmt"
	"time"

	"cartwise-orchestrator/internal/domain"
	"cartwise-orchestrator/internal/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoEventRepository implements EventRepository using MongoDB. The
// collection is append-only except for bulk merchant-data erasure.
type MongoEventRepository struct {
	collection *mongo.Collection
}

// NewMongoEventRepository creates a new MongoDB event repository
func NewMongoEventRepository(db *mongo.Database) ports.EventRepository {
	return &MongoEventRepository{
		collection: db.Collection("recommendation_events"),
	}
}

// Insert appends one recommendation event
func (r *MongoEventRepository) Insert(ctx context.Context, event *domain.RecommendationEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	_, err := r.collection.InsertOne(ctx, event)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}

	return nil
}

// CountByKind aggregates per-kind event counts for a merchant
func (r *MongoEventRepository) CountByKind(ctx context.Context, shopDomain string) (map[string]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"merchant_domain": shopDomain}}},
		{{Key: "$group", Value: bson.M{"_id": "$kind", "count": bson.M{"$sum": 1}}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate events: %w", err)
	}
	defer cursor.Close(ctx)

	counts := make(map[string]int64)
	for cursor.Next(ctx) {
		var row struct {
			Kind  string `bson:"_id"`
			Count int64  `bson:"count"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, fmt.Errorf("failed to decode event count: %w", err)
		}
		counts[row.Kind] = row.Count
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	return counts, nil
}

// DeleteByMerchant erases all of a merchant's events
func (r *MongoEventRepository) DeleteByMerchant(ctx context.Context, shopDomain string) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"merchant_domain": shopDomain})
	if err != nil {
		return fmt.Errorf("failed to delete merchant events: %w", err)
	}
	return nil
}
