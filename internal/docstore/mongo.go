package docstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type mongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

type mongoDoc struct {
	ID   primitive.ObjectID `bson:"_id,omitempty"`
	Type string             `bson:"type"`
	Date time.Time          `bson:"date"`
	Data bson.M             `bson:"data"`
}

// OpenMongo builds a client without contacting the server; connection errors
// surface on first use.
func OpenMongo(ctx context.Context, uri, database string) (Store, error) {
	if strings.TrimSpace(uri) == "" {
		uri = DefaultMongoURI
	}
	if strings.TrimSpace(database) == "" {
		database = DefaultDatabase
	}

	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(5*time.Second).
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true}))
	if err != nil {
		return nil, fmt.Errorf("docstore: mongo connect %s: %w", uri, err)
	}
	return &mongoStore{client: client, db: client.Database(database)}, nil
}

func (s *mongoStore) Insert(ctx context.Context, collection string, data map[string]any) (string, error) {
	if err := checkTyped(collection); err != nil {
		return "", err
	}
	res, err := s.db.Collection(collection).InsertOne(ctx, mongoDoc{
		Type: collection,
		Date: nowUTC(),
		Data: bson.M(data),
	})
	if err != nil {
		return "", err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		return oid.Hex(), nil
	}
	return fmt.Sprint(res.InsertedID), nil
}

func (s *mongoStore) InsertCurrent(ctx context.Context, collection string, data map[string]any, keep bool) (string, error) {
	if err := checkTyped(collection); err != nil {
		return "", err
	}
	doc := mongoDoc{Type: collection, Date: nowUTC(), Data: bson.M(data)}
	_, err := s.db.Collection("current").ReplaceOne(ctx,
		bson.M{"type": collection},
		doc,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return "", err
	}
	if !keep {
		return "", nil
	}
	return s.Insert(ctx, collection, data)
}

func (s *mongoStore) GetCurrent(ctx context.Context, collection string) (Record, error) {
	if err := checkTyped(collection); err != nil {
		return Record{}, err
	}
	var doc mongoDoc
	err := s.db.Collection("current").FindOne(ctx, bson.M{"type": collection}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	return doc.record(), nil
}

func (s *mongoStore) Find(ctx context.Context, collection string, limit int) ([]Record, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := s.db.Collection(collection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer func() { _ = cur.Close(ctx) }()

	out := []Record{}
	for cur.Next(ctx) {
		var doc mongoDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.record())
	}
	return out, cur.Err()
}

func (s *mongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *mongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (d mongoDoc) record() Record {
	r := Record{Type: d.Type, Date: d.Date.UTC(), Data: plainMap(d.Data)}
	if !d.ID.IsZero() {
		r.ID = d.ID.Hex()
	}
	if r.Data == nil {
		r.Data = map[string]any{}
	}
	return r
}
