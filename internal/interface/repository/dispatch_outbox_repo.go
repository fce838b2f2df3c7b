package repository

import (
	"context"
	"time"

	"poputchik-service/internal/domain/entity"
	"poputchik-service/internal/domain/repository"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDispatchRepository implements the DispatchRepository interface as a
// MongoDB-backed outbox collection
type MongoDispatchRepository struct {
	collection *mongo.Collection
}

// NewMongoDispatchRepository creates a new MongoDB dispatch outbox repository
func NewMongoDispatchRepository(db *mongo.Database) repository.DispatchRepository {
	collection := db.Collection("dispatch_outbox")

	// Create indexes for better performance
	ctx := context.Background()

	// Compound index for draining pending requests in order
	pendingIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "status", Value: 1},
			{Key: "createdAt", Value: 1},
		},
	}

	// Index on recipient for operational lookups
	recipientIndex := mongo.IndexModel{
		Keys: bson.M{"recipientId": 1},
	}

	collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		pendingIndex,
		recipientIndex,
	})

	return &MongoDispatchRepository{
		collection: collection,
	}
}

// Enqueue inserts a pending dispatch request
func (r *MongoDispatchRepository) Enqueue(ctx context.Context, req *entity.DispatchRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Status == "" {
		req.Status = entity.DispatchStatusPending
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}

	_, err := r.collection.InsertOne(ctx, req)
	return err
}

// FindPending returns up to limit pending requests, oldest first
func (r *MongoDispatchRepository) FindPending(ctx context.Context, limit int) ([]*entity.DispatchRequest, error) {
	opts := options.Find().
		SetSort(bson.M{"createdAt": 1}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, bson.M{"status": entity.DispatchStatusPending}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var requests []*entity.DispatchRequest
	if err := cursor.All(ctx, &requests); err != nil {
		return nil, err
	}
	return requests, nil
}

// MarkSent marks a request as delivered
func (r *MongoDispatchRepository) MarkSent(ctx context.Context, id string) error {
	now := time.Now().UTC()
	_, err := r.collection.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{
			"status": entity.DispatchStatusSent,
			"sentAt": now,
		},
	})
	return err
}

// MarkFailed marks a request as failed with the delivery error detail
func (r *MongoDispatchRepository) MarkFailed(ctx context.Context, id string, detail string) error {
	_, err := r.collection.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{
			"status":      entity.DispatchStatusFailed,
			"errorDetail": detail,
		},
	})
	return err
}
