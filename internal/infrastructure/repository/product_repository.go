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

// MongoProductRepository implements ProductRepository using MongoDB.
// Uniqueness of (merchant_domain, product_id) is enforced by a compound
// unique index created in EnsureIndexes.
type MongoProductRepository struct {
	collection *mongo.Collection
}

// NewMongoProductRepository creates a new MongoDB product repository
func NewMongoProductRepository(db *mongo.Database) *MongoProductRepository {
	return &MongoProductRepository{
		collection: db.Collection("products"),
	}
}

var _ ports.ProductRepository = (*MongoProductRepository)(nil)

// EnsureIndexes creates the compound unique index on the mirror key
func (r *MongoProductRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "merchant_domain", Value: 1},
			{Key: "product_id", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create product index: %w", err)
	}
	return nil
}

// ReplaceAll atomically replaces a merchant's whole mirror: delete-all then
// bulk-insert. A brief empty-catalog window is accepted; the engine push
// only happens after the insert completes.
func (r *MongoProductRepository) ReplaceAll(ctx context.Context, shopDomain string, products []*domain.Product) error {
	if _, err := r.collection.DeleteMany(ctx, bson.M{"merchant_domain": shopDomain}); err != nil {
		return fmt.Errorf("failed to clear products: %w", err)
	}

	if len(products) == 0 {
		return nil
	}

	docs := make([]interface{}, 0, len(products))
	now := time.Now()
	for _, product := range products {
		product.UpdatedAt = now
		docs = append(docs, product)
	}

	if _, err := r.collection.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to insert products: %w", err)
	}

	return nil
}

// Upsert writes a single product keyed by (merchant, product id)
func (r *MongoProductRepository) Upsert(ctx context.Context, product *domain.Product) error {
	product.UpdatedAt = time.Now()

	opts := options.Update().SetUpsert(true)
	filter := bson.M{
		"merchant_domain": product.MerchantDomain,
		"product_id":      product.ProductID,
	}
	update := bson.M{"$set": product}

	_, err := r.collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("failed to upsert product: %w", err)
	}

	return nil
}

// Delete removes one product from the mirror
func (r *MongoProductRepository) Delete(ctx context.Context, shopDomain string, productID string) error {
	filter := bson.M{
		"merchant_domain": shopDomain,
		"product_id":      productID,
	}
	_, err := r.collection.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return nil
}

// Get retrieves one product by normalized id, nil when absent
func (r *MongoProductRepository) Get(ctx context.Context, shopDomain string, productID string) (*domain.Product, error) {
	filter := bson.M{
		"merchant_domain": shopDomain,
		"product_id":      productID,
	}

	var product domain.Product
	err := r.collection.FindOne(ctx, filter).Decode(&product)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	return &product, nil
}

// ListByMerchant retrieves a merchant's full mirror
func (r *MongoProductRepository) ListByMerchant(ctx context.Context, shopDomain string) ([]*domain.Product, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"merchant_domain": shopDomain})
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer cursor.Close(ctx)

	var products []*domain.Product
	for cursor.Next(ctx) {
		var product domain.Product
		if err := cursor.Decode(&product); err != nil {
			return nil, fmt.Errorf("failed to decode product: %w", err)
		}
		products = append(products, &product)
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	return products, nil
}

// CountByMerchant counts a merchant's mirrored products
func (r *MongoProductRepository) CountByMerchant(ctx context.Context, shopDomain string) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"merchant_domain": shopDomain})
	if err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return count, nil
}

// DeleteByMerchant wipes a merchant's whole mirror
func (r *MongoProductRepository) DeleteByMerchant(ctx context.Context, shopDomain string) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"merchant_domain": shopDomain})
	if err != nil {
		return fmt.Errorf("failed to delete merchant products: %w", err)
	}
	return nil
}
