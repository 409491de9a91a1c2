package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/calftracker/internal/domain/models"
)

const (
	snapshotCollection = "herd_snapshots"
	connectTimeout     = 10 * time.Second
)

// Repository stores one herd snapshot per farm day.
type Repository interface {
	SaveHerdSnapshot(ctx context.Context, snapshot models.HerdSnapshot) error
	RecentHerdSnapshots(ctx context.Context, limit int64) ([]models.HerdSnapshot, error)
}

// MongoDBRepository keeps snapshots in the herd_snapshots collection.
type MongoDBRepository struct {
	client    *mongo.Client
	snapshots *mongo.Collection
}

// NewMongoDBRepository connects, pings and makes sure the unique day index exists.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string) (*MongoDBRepository, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	repo := &MongoDBRepository{
		client:    client,
		snapshots: client.Database(dbName).Collection(snapshotCollection),
	}

	dayIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "day", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("day_unique"),
	}
	if _, err := repo.snapshots.Indexes().CreateOne(ctx, dayIndex); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("create snapshot day index: %w", err)
	}

	return repo, nil
}

// SaveHerdSnapshot stores snapshot, replacing an earlier one for the same day.
func (r *MongoDBRepository) SaveHerdSnapshot(ctx context.Context, snapshot models.HerdSnapshot) error {
	_, err := r.snapshots.ReplaceOne(ctx,
		bson.M{"day": snapshot.Day},
		snapshot,
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save herd snapshot %s: %w", snapshot.Day, err)
	}
	return nil
}

// RecentHerdSnapshots returns up to limit snapshots, newest day first.
func (r *MongoDBRepository) RecentHerdSnapshots(ctx context.Context, limit int64) ([]models.HerdSnapshot, error) {
	cursor, err := r.snapshots.Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "day", Value: -1}}).SetLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query herd snapshots: %w", err)
	}
	defer cursor.Close(ctx)

	out := make([]models.HerdSnapshot, 0, limit)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode herd snapshots: %w", err)
	}
	return out, nil
}

// Close disconnects the client.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
