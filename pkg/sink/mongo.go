package sink

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"protocol-extractor/pkg/domain"
)

// MongoSink stores speeches as documents, upserted by speech id.
type MongoSink struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoSink connects to Mongo and pings it before returning.
func NewMongoSink(ctx context.Context, uri, database, collection string) (*MongoSink, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &MongoSink{
		client:     client,
		collection: client.Database(database).Collection(collection),
	}, nil
}

// SaveSpeeches upserts each speech, keyed by its id.
func (s *MongoSink) SaveSpeeches(ctx context.Context, p *domain.Protocol, speeches []*domain.ExtractedSpeech) error {
	if s.collection == nil {
		return fmt.Errorf("mongo sink not initialized")
	}
	for _, sp := range speeches {
		filter := bson.M{"id": sp.ID}
		update := bson.M{"$set": sp}
		opts := options.Update().SetUpsert(true)
		if _, err := s.collection.UpdateOne(ctx, filter, update, opts); err != nil {
			return fmt.Errorf("upsert speech %d of %s: %w", sp.ID, p.Number, err)
		}
	}
	return nil
}

// Close disconnects from Mongo.
func (s *MongoSink) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}
