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

// MongoSettingsRepository implements SettingsRepository using MongoDB
type MongoSettingsRepository struct {
	collection *mongo.Collection
}

// NewMongoSettingsRepository creates a new MongoDB settings repository
func NewMongoSettingsRepository(db *mongo.Database) ports.SettingsRepository {
	return &MongoSettingsRepository{
		collection: db.Collection("merchant_settings"),
	}
}

// Save creates or updates a merchant's settings
func (r *MongoSettingsRepository) Save(ctx context.Context, settings *domain.Settings) error {
	settings.UpdatedAt = time.Now()

	opts := options.Update().SetUpsert(true)
	filter := bson.M{"merchant_domain": settings.MerchantDomain}
	update := bson.M{"$set": settings}

	_, err := r.collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	return nil
}

// Get retrieves a merchant's settings, nil when none saved
func (r *MongoSettingsRepository) Get(ctx context.Context, shopDomain string) (*domain.Settings, error) {
	var settings domain.Settings
	err := r.collection.FindOne(ctx, bson.M{"merchant_domain": shopDomain}).Decode(&settings)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}

	return &settings, nil
}
