package database

import (
	"context"
	"errors"
	"fmt"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"log/slog"
	"qrpass/entity"
	"qrpass/internal/config"
	"qrpass/lib/sl"
	"time"
)

// MongoDB keeps one process-wide client; handlers borrow connections from its pool per operation.
type MongoDB struct {
	client *mongo.Client
	passes *mongo.Collection
	log    *slog.Logger
}

func NewMongoClient(ctx context.Context, conf config.MongoConfig, log *slog.Logger) (*MongoDB, error) {
	if conf.URI == "" {
		return nil, fmt.Errorf("mongodb uri is empty")
	}
	logger := log.With(sl.Module("database.mongo"))

	clientOptions := options.Client().
		ApplyURI(conf.URI).
		SetMaxPoolSize(conf.MaxPoolSize).
		SetConnectTimeout(conf.ConnectTimeout).
		SetServerSelectionTimeout(conf.ServerSelectionTimeout).
		SetSocketTimeout(conf.SocketTimeout).
		SetRetryWrites(true)

	var client *mongo.Client
	err := withRetry(ctx, logger, conf.ConnectAttempts, conf.RetryDelay, func(ctx context.Context) error {
		c, err := mongo.Connect(ctx, clientOptions)
		if err != nil {
			return fmt.Errorf("mongodb connect: %w", err)
		}
		if err = c.Ping(ctx, readpref.Primary()); err != nil {
			_ = c.Disconnect(context.Background())
			return fmt.Errorf("mongodb ping: %w", err)
		}
		client = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	m := &MongoDB{
		client: client,
		passes: client.Database(conf.Database).Collection(collectionPasses),
		log:    logger,
	}
	if err = m.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	logger.With(slog.String("database", conf.Database)).Info("connected to mongodb")
	return m, nil
}

func (m *MongoDB) ensureIndexes(ctx context.Context) error {
	_, err := m.passes.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "status", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("mongodb create index: %w", err)
	}
	return nil
}

func (m *MongoDB) findError(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil
	}
	return fmt.Errorf("mongodb find: %w", err)
}

func (m *MongoDB) CreatePass(ctx context.Context, pass *entity.Pass) error {
	_, err := m.passes.InsertOne(ctx, pass)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %v", ErrDuplicate, err)
		}
		return fmt.Errorf("mongodb insert: %w", err)
	}
	return nil
}

func (m *MongoDB) GetPass(ctx context.Context, token string) (*entity.Pass, error) {
	filter := bson.D{{Key: "_id", Value: token}}
	var pass entity.Pass
	err := m.passes.FindOne(ctx, filter).Decode(&pass)
	if err != nil {
		return nil, m.findError(err)
	}
	return &pass, nil
}

// CheckIn matches {_id, status: unused} and sets {status: used, checkedInAt: now}
// in one FindOneAndUpdate; the server serializes concurrent writers on the document.
func (m *MongoDB) CheckIn(ctx context.Context, token string, now time.Time) (*entity.Pass, error) {
	filter := bson.D{{Key: "_id", Value: token}, {Key: "status", Value: entity.StatusUnused}}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "status", Value: entity.StatusUsed},
		{Key: "checkedInAt", Value: now},
	}}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var pass entity.Pass
	err := m.passes.FindOneAndUpdate(ctx, filter, update, opts).Decode(&pass)
	if err != nil {
		return nil, m.findError(err)
	}
	return &pass, nil
}

func (m *MongoDB) ResetPass(ctx context.Context, token string) (bool, error) {
	filter := bson.D{{Key: "_id", Value: token}}
	update := bson.D{
		{Key: "$set", Value: bson.D{{Key: "status", Value: entity.StatusUnused}}},
		{Key: "$unset", Value: bson.D{{Key: "checkedInAt", Value: ""}}},
	}
	result, err := m.passes.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("mongodb update: %w", err)
	}
	return result.MatchedCount > 0, nil
}

func (m *MongoDB) CountByStatus(ctx context.Context, status entity.Status) (int64, error) {
	count, err := m.passes.CountDocuments(ctx, bson.D{{Key: "status", Value: status}})
	if err != nil {
		return 0, fmt.Errorf("mongodb count: %w", err)
	}
	return count, nil
}

func (m *MongoDB) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.Primary())
}

func (m *MongoDB) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
