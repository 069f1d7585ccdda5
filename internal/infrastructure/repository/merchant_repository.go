package repository

import (
	"context"
	"fmt"
	"time"

	"cartwise-orchestrator/internal/domain"
	"cartwise-orchestrator/internal/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoMerchantRepository implements MerchantRepository using MongoDB
type MongoMerchantRepository struct {
	collection *mongo.Collection
}

// NewMongoMerchantRepository creates a new MongoDB merchant repository
func NewMongoMerchantRepository(db *mongo.Database) ports.MerchantRepository {
	return &MongoMerchantRepository{
		collection: db.Collection("merchants"),
	}
}

// Save creates or updates a merchant keyed by shop domain
func (r *MongoMerchantRepository) Save(ctx context.Context, merchant *domain.Merchant) error {
	merchant.UpdatedAt = time.Now()
	if merchant.CreatedAt.IsZero() {
		merchant.CreatedAt = time.Now()
	}

	opts := options.Update().SetUpsert(true)
	filter := bson.M{"domain": merchant.Domain}
	update := bson.M{"$set": merchant}

	_, err := r.collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("failed to save merchant: %w", err)
	}

	return nil
}

// Get retrieves a merchant by shop domain, nil when unknown
func (r *MongoMerchantRepository) Get(ctx context.Context, shopDomain string) (*domain.Merchant, error) {
	var merchant domain.Merchant
	err := r.collection.FindOne(ctx, bson.M{"domain": shopDomain}).Decode(&merchant)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get merchant: %w", err)
	}

	return &merchant, nil
}

// ListActive retrieves all merchants with the active flag set
func (r *MongoMerchantRepository) ListActive(ctx context.Context) ([]*domain.Merchant, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"active": true})
	if err != nil {
		return nil, fmt.Errorf("failed to list merchants: %w", err)
	}
	defer cursor.Close(ctx)

	var merchants []*domain.Merchant
	for cursor.Next(ctx) {
		var merchant domain.Merchant
		if err := cursor.Decode(&merchant); err != nil {
			return nil, fmt.Errorf("failed to decode merchant: %w", err)
		}
		merchants = append(merchants, &merchant)
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	return merchants, nil
}

// SetActive flips the active flag without touching credentials
func (r *MongoMerchantRepository) SetActive(ctx context.Context, shopDomain string, active bool) error {
	update := bson.M{"$set": bson.M{"active": active, "updated_at": time.Now()}}
	_, err := r.collection.UpdateOne(ctx, bson.M{"domain": shopDomain}, update)
	if err != nil {
		return fmt.Errorf("failed to update merchant active flag: %w", err)
	}
	return nil
}

// StampLastSync records the completion time of a full sync
func (r *MongoMerchantRepository) StampLastSync(ctx context.Context, shopDomain string) error {
	now := time.Now()
	update := bson.M{"$set": bson.M{"last_sync_at": now, "updated_at": now}}
	_, err := r.collection.UpdateOne(ctx, bson.M{"domain": shopDomain}, update)
	if err != nil {
		return fmt.Errorf("failed to stamp last sync: %w", err)
	}
	return nil
}
