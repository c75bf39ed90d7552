package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/farmdiary/internal/domain/models"
)

// Repository defines the interface for monthly summary storage.
type Repository interface {
	SaveMonthlySummary(ctx context.Context, summary models.MonthlySummary) error
}

// MongoDBRepository implements the Repository interface for MongoDB.
type MongoDBRepository struct {
	client   *mongo.Client
	dbName   string
	collName string
}

type summaryDocument struct {
	Month         string               `bson:"month"`
	Entries       int                  `bson:"entries"`
	TotalEggs     int                  `bson:"total_eggs"`
	TotalFeedCost primitive.Decimal128 `bson:"total_feed_cost"`
	MedicineDays  int                  `bson:"medicine_days"`
	GeneratedAt   time.Time            `bson:"generated_at"`
}

// NewMongoDBRepository creates a new MongoDB repository.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string) (*MongoDBRepository, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoDBRepository{
		client:   client,
		dbName:   dbName,
		collName: "monthly_summaries",
	}, nil
}

// SaveMonthlySummary stores the summary, replacing an earlier one for the same month.
func (r *MongoDBRepository) SaveMonthlySummary(ctx context.Context, summary models.MonthlySummary) error {
	doc, err := toDocument(summary)
	if err != nil {
		return err
	}

	collection := r.client.Database(r.dbName).Collection(r.collName)
	_, err = collection.ReplaceOne(ctx, bson.M{"month": doc.Month}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert monthly summary %s: %w", summary.Month, err)
	}
	return nil
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

func toDocument(summary models.MonthlySummary) (summaryDocument, error) {
	cost, err := primitive.ParseDecimal128(summary.TotalFeedCost.String())
	if err != nil {
		return summaryDocument{}, fmt.Errorf("encode feed cost %s: %w", summary.TotalFeedCost, err)
	}

	return summaryDocument{
		Month:         summary.Month,
		Entries:       summary.Entries,
		TotalEggs:     summary.TotalEggs,
		TotalFeedCost: cost,
		MedicineDays:  summary.MedicineDays,
		GeneratedAt:   summary.GeneratedAt,
	}, nil
}
