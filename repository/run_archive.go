package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/yashrajoria/pharmacy-agent/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrRunNotFound = errors.New("run not found")

// RunArchive keeps every finalized run, beyond the bounded history.
type RunArchive interface {
	Archive(ctx context.Context, run *models.RunRecord) error
	Get(ctx context.Context, runID string) (*models.RunRecord, error)
	ListByProduct(ctx context.Context, productName string, limit int64) ([]models.RunRecord, error)
}

type MongoRunArchive struct {
	collection *mongo.Collection
}

func NewMongoRunArchive(db *mongo.Database) *MongoRunArchive {
	return NewMongoRunArchiveFromCollection(db.Collection("runs"))
}

func NewMongoRunArchiveFromCollection(c *mongo.Collection) *MongoRunArchive {
	return &MongoRunArchive{collection: c}
}

// EnsureIndexes creates the unique run_id index.
func (a *MongoRunArchive) EnsureIndexes(ctx context.Context) error {
	_, err := a.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "run_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "product_name", Value: 1}, {Key: "timestamp", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("create run indexes: %w", err)
	}
	return nil
}

func (a *MongoRunArchive) Archive(ctx context.Context, run *models.RunRecord) error {
	if _, err := a.collection.InsertOne(ctx, run); err != nil {
		return fmt.Errorf("archive run %s: %w", run.RunID, err)
	}
	return nil
}

func (a *MongoRunArchive) Get(ctx context.Context, runID string) (*models.RunRecord, error) {
	var run models.RunRecord
	err := a.collection.FindOne(ctx, bson.M{"run_id": runID}).Decode(&run)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find run %s: %w", runID, err)
	}
	return &run, nil
}

func (a *MongoRunArchive) ListByProduct(ctx context.Context, productName string, limit int64) ([]models.RunRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cur, err := a.collection.Find(ctx, bson.M{"product_name": productName}, opts)
	if err != nil {
		return nil, fmt.Errorf("find runs for %s: %w", productName, err)
	}
	defer cur.Close(ctx)

	var runs []models.RunRecord
	if err := cur.All(ctx, &runs); err != nil {
		return nil, fmt.Errorf("decode runs: %w", err)
	}
	return runs, nil
}
