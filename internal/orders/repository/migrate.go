package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fjod/electromart/internal/orders/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type MigrationReport struct {
	Scanned  int `json:"scanned"`
	Upgraded int `json:"upgraded"`
	Failed   int `json:"failed"`
}

// MigrateLegacy rewrites every document without a schemaVersion into the current shape.
// Documents keyed by an ObjectID are re-inserted under its hex form. Safe to re-run.
func (m *MongoRepository) MigrateLegacy(ctx context.Context, log *slog.Logger) (MigrationReport, error) {
	var report MigrationReport

	cursor, err := m.collection.Find(ctx, bson.M{"schemaVersion": bson.M{"$exists": false}})
	if err != nil {
		return report, fmt.Errorf("failed to find legacy orders: %w", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		report.Scanned++
		if err := m.upgradeOne(ctx, cursor.Current); err != nil {
			report.Failed++
			log.Error("legacy order upgrade failed", "id", cursor.Current.Lookup("_id").String(), "error", err)
			continue
		}
		report.Upgraded++
	}
	if err := cursor.Err(); err != nil {
		return report, fmt.Errorf("cursor error: %w", err)
	}

	log.Info("legacy order migration finished", "scanned", report.Scanned, "upgraded", report.Upgraded, "failed", report.Failed)
	return report, nil
}

func (m *MongoRepository) upgradeOne(ctx context.Context, raw bson.Raw) error {
	var legacy domain.LegacyOrder
	if err := bson.Unmarshal(raw, &legacy); err != nil {
		return fmt.Errorf("decode legacy order: %w", err)
	}

	idVal := raw.Lookup("_id")
	if id, ok := idVal.StringValueOK(); ok {
		order := legacy.Upgrade(id)
		order.UpdatedAt = now()
		_, err := m.collection.ReplaceOne(ctx, bson.M{"_id": id, "schemaVersion": bson.M{"$exists": false}}, order)
		if err != nil {
			return fmt.Errorf("replace legacy order: %w", err)
		}
		return nil
	}

	oid, ok := idVal.ObjectIDOK()
	if !ok {
		return fmt.Errorf("unsupported _id type %s", idVal.Type)
	}
	order := legacy.Upgrade(oid.Hex())
	order.UpdatedAt = now()
	if _, err := m.collection.InsertOne(ctx, order); err != nil && !mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("insert upgraded order: %w", err)
	}
	if _, err := m.collection.DeleteOne(ctx, bson.M{"_id": oid}); err != nil {
		return fmt.Errorf("delete legacy order: %w", err)
	}
	return nil
}
