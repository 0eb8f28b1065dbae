package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/electromart/internal/orders/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	collectionName   = "orders"
	defaultListLimit = 50
	maxListLimit     = 200
)

type MongoRepository struct {
	collection *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{
		collection: db.Collection(collectionName),
	}
}

func (m *MongoRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			// legacy documents carry no checkoutId until migrated
			Keys: bson.D{{Key: "checkoutId", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"checkoutId": bson.M{"$exists": true}}),
		},
		{
			Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "orderStatus", Value: 1}, {Key: "createdAt", Value: -1}},
		},
	}

	_, err := m.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

func (m *MongoRepository) CreateOrder(ctx context.Context, order *domain.Order) error {
	_, err := m.collection.InsertOne(ctx, order)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateCheckout
		}
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

func (m *MongoRepository) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	return m.findOne(ctx, bson.M{"_id": id})
}

func (m *MongoRepository) GetOrderByCheckoutID(ctx context.Context, checkoutID string) (*domain.Order, error) {
	return m.findOne(ctx, bson.M{"checkoutId": checkoutID})
}

func (m *MongoRepository) findOne(ctx context.Context, filter bson.M) (*domain.Order, error) {
	var order domain.Order
	err := m.collection.FindOne(ctx, filter).Decode(&order)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &order, nil
}

// ListOrders returns newest first. Legacy documents are excluded until migrated.
func (m *MongoRepository) ListOrders(ctx context.Context, f ListFilter) ([]*domain.Order, error) {
	filter := bson.M{"schemaVersion": bson.M{"$gte": domain.SchemaVersion}}
	if f.UserID != "" {
		filter["userId"] = f.UserID
	}
	if f.Status != "" {
		filter["orderStatus"] = f.Status
	}

	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(limit).
		SetSkip(f.Skip)

	cursor, err := m.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer cursor.Close(ctx)

	orders := make([]*domain.Order, 0)
	for cursor.Next(ctx) {
		var o domain.Order
		if err := cursor.Decode(&o); err != nil {
			return nil, fmt.Errorf("failed to decode order: %w", err)
		}
		orders = append(orders, &o)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return orders, nil
}

func (m *MongoRepository) AppendStatus(ctx context.Context, id string, expected domain.OrderStatus, entry domain.TimelineEntry) (*domain.Order, error) {
	filter := bson.M{"_id": id, "orderStatus": expected}
	update := bson.M{
		"$set": bson.M{
			"orderStatus": entry.Status,
			"updatedAt":   entry.Timestamp,
		},
		"$push": bson.M{"statusTimeline": entry},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var order domain.Order
	err := m.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&order)
	if err == nil {
		return &order, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to append status: %w", err)
	}

	// the filter missed: either the order is gone or its status moved on
	if _, getErr := m.GetOrder(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, ErrStatusConflict
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
