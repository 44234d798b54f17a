// Package mongo is the production RecordStore. Primary keys are ObjectIds
// (the 24-hex-char form the dual-key resolver classifies); business
// identifier uniqueness is enforced by a unique index, and identifier
// sequences come from an atomically incremented counter document.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/charmbracelet/log"
	"github.com/firedesk/records-service/internal/config"
	"github.com/firedesk/records-service/internal/model"
	registrymigrate "github.com/firedesk/records-service/internal/registry/migrate"
	registrystore "github.com/firedesk/records-service/internal/registry/store"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const dbName = "firedesk"

func init() {
	registrystore.Register(registrystore.Plugin{
		Name: "mongo",
		Loader: func(ctx context.Context) (registrystore.RecordStore, error) {
			cfg := config.FromContext(ctx)
			opts := options.Client().ApplyURI(cfg.DBURL)
			if cfg.DBMaxOpenConns > 0 {
				opts.SetMaxPoolSize(uint64(cfg.DBMaxOpenConns))
			}
			if cfg.DBMaxIdleConns > 0 {
				opts.SetMinPoolSize(uint64(cfg.DBMaxIdleConns))
			}
			client, err := mongo.Connect(opts)
			if err != nil {
				return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
			}
			if err := client.Ping(ctx, nil); err != nil {
				return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
			}
			return &MongoStore{client: client, db: client.Database(dbName)}, nil
		},
	})

	registrymigrate.Register(registrymigrate.Plugin{Order: 100, Migrator: &mongoMigrator{}})
}

type mongoMigrator struct{}

func (m *mongoMigrator) Name() string { return "mongo-schema" }

func (m *mongoMigrator) Migrate(ctx context.Context) error {
	cfg := config.FromContext(ctx)
	if cfg == nil || cfg.DatastoreType != "mongo" {
		return nil // skip if not using mongo
	}
	if !cfg.DatastoreMigrateAtStart {
		return nil
	}

	log.Info("Running migration", "name", m.Name())
	client, err := mongo.Connect(options.Client().ApplyURI(cfg.DBURL))
	if err != nil {
		return fmt.Errorf("mongo migration: failed to connect: %w", err)
	}
	defer client.Disconnect(ctx)

	db := client.Database(dbName)
	indexes := []mongo.IndexModel{
		{
			// The uniqueness authority for business identifiers: concurrent
			// creations that mint the same id fail here, not at read time.
			Keys:    bson.D{{Key: "business_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "kind", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "kind", Value: 1}, {Key: "created_at", Value: -1}}},
	}
	if _, err := db.Collection("records").Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("mongo migration: create record indexes: %w", err)
	}
	log.Info("Mongo schema migration complete")
	return nil
}

// MongoStore implements RecordStore against MongoDB.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

func (s *MongoStore) records() *mongo.Collection  { return s.db.Collection("records") }
func (s *MongoStore) counters() *mongo.Collection { return s.db.Collection("counters") }

type recordDoc struct {
	ID          bson.ObjectID       `bson:"_id,omitempty"`
	Kind        model.RecordKind    `bson:"kind"`
	BusinessID  string              `bson:"business_id"`
	Subject     model.Subject       `bson:"subject"`
	Checklist   model.Checklist     `bson:"checklist"`
	Attachments model.AttachmentSet `bson:"attachments"`
	Status      model.Status        `bson:"status"`
	Remarks     string              `bson:"remarks"`
	ReviewedBy  string              `bson:"reviewed_by"`
	CreatedAt   time.Time           `bson:"created_at"`
	LastUpdated time.Time           `bson:"last_updated"`
}

func toDoc(rec *model.Record) *recordDoc {
	return &recordDoc{
		Kind:        rec.Kind,
		BusinessID:  rec.BusinessID,
		Subject:     rec.Subject,
		Checklist:   rec.Checklist,
		Attachments: rec.Attachments,
		Status:      rec.Status,
		Remarks:     rec.Remarks,
		ReviewedBy:  rec.ReviewedBy,
		CreatedAt:   rec.CreatedAt,
		LastUpdated: rec.LastUpdated,
	}
}

func (d *recordDoc) toModel() *model.Record {
	return &model.Record{
		ID:          d.ID.Hex(),
		Kind:        d.Kind,
		BusinessID:  d.BusinessID,
		Subject:     d.Subject,
		Checklist:   d.Checklist,
		Attachments: d.Attachments,
		Status:      d.Status,
		Remarks:     d.Remarks,
		ReviewedBy:  d.ReviewedBy,
		CreatedAt:   d.CreatedAt,
		LastUpdated: d.LastUpdated,
	}
}

func (s *MongoStore) Insert(ctx context.Context, rec *model.Record) (*model.Record, error) {
	doc := toDoc(rec)
	doc.ID = bson.NewObjectID()
	if _, err := s.records().InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, &registrystore.ConflictError{Message: "business identifier already exists: " + rec.BusinessID}
		}
		return nil, fmt.Errorf("insert record: %w", err)
	}
	return doc.toModel(), nil
}

func (s *MongoStore) FindByKey(ctx context.Context, kind model.RecordKind, key string) (*model.Record, error) {
	oid, err := bson.ObjectIDFromHex(key)
	if err != nil {
		return nil, &registrystore.NotFoundError{Resource: "record", ID: key}
	}
	return s.findOne(ctx, bson.M{"_id": oid, "kind": kind}, key)
}

func (s *MongoStore) FindByBusinessID(ctx context.Context, kind model.RecordKind, businessID string) (*model.Record, error) {
	return s.findOne(ctx, bson.M{"business_id": businessID, "kind": kind}, businessID)
}

func (s *MongoStore) findOne(ctx context.Context, filter bson.M, id string) (*model.Record, error) {
	var doc recordDoc
	if err := s.records().FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &registrystore.NotFoundError{Resource: "record", ID: id}
		}
		return nil, fmt.Errorf("find record: %w", err)
	}
	return doc.toModel(), nil
}

func (s *MongoStore) List(ctx context.Context, q registrystore.ListQuery) ([]model.Record, error) {
	filter := bson.M{"kind": q.Kind}
	if q.Status != nil {
		filter["status"] = *q.Status
	}
	if q.Search != "" {
		pattern := regexp.QuoteMeta(q.Search)
		search := bson.M{"$regex": pattern, "$options": "i"}
		filter["$or"] = []bson.M{
			{"business_id": search},
			{"subject.building_name": search},
			{"subject.owner_name": search},
		}
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}
	cursor, err := s.records().Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer cursor.Close(ctx)

	var out []model.Record
	for cursor.Next(ctx) {
		var doc recordDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		out = append(out, *doc.toModel())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return out, nil
}

func (s *MongoStore) UpdateStatus(ctx context.Context, kind model.RecordKind, key string, patch registrystore.StatusPatch) (*model.Record, error) {
	set := bson.M{
		"status":       patch.Status,
		"last_updated": time.Now(),
	}
	if patch.Remarks != nil {
		set["remarks"] = *patch.Remarks
	}
	if patch.ReviewedBy != nil {
		set["reviewed_by"] = *patch.ReviewedBy
	}
	return s.findOneAndUpdate(ctx, kind, key, bson.M{"$set": set})
}

func (s *MongoStore) UpdateSubject(ctx context.Context, kind model.RecordKind, key string, subject model.Subject, checklist model.Checklist) (*model.Record, error) {
	return s.findOneAndUpdate(ctx, kind, key, bson.M{"$set": bson.M{
		"subject":      subject,
		"checklist":    checklist,
		"last_updated": time.Now(),
	}})
}

func (s *MongoStore) findOneAndUpdate(ctx context.Context, kind model.RecordKind, key string, update bson.M) (*model.Record, error) {
	oid, err := bson.ObjectIDFromHex(key)
	if err != nil {
		return nil, &registrystore.NotFoundError{Resource: "record", ID: key}
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc recordDoc
	err = s.records().FindOneAndUpdate(ctx, bson.M{"_id": oid, "kind": kind}, update, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &registrystore.NotFoundError{Resource: "record", ID: key}
		}
		return nil, fmt.Errorf("update record: %w", err)
	}
	return doc.toModel(), nil
}

func (s *MongoStore) Delete(ctx context.Context, kind model.RecordKind, key string) (*model.Record, error) {
	oid, err := bson.ObjectIDFromHex(key)
	if err != nil {
		return nil, &registrystore.NotFoundError{Resource: "record", ID: key}
	}
	var doc recordDoc
	err = s.records().FindOneAndDelete(ctx, bson.M{"_id": oid, "kind": kind}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &registrystore.NotFoundError{Resource: "record", ID: key}
		}
		return nil, fmt.Errorf("delete record: %w", err)
	}
	return doc.toModel(), nil
}

func (s *MongoStore) CountByStatus(ctx context.Context, kind model.RecordKind) (*registrystore.StatusCounts, error) {
	cursor, err := s.records().Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"kind": kind}}},
		{{Key: "$group", Value: bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return nil, fmt.Errorf("count records: %w", err)
	}
	defer cursor.Close(ctx)

	counts := &registrystore.StatusCounts{ByStatus: map[model.Status]int64{}}
	for _, status := range model.Statuses() {
		counts.ByStatus[status] = 0
	}
	for cursor.Next(ctx) {
		var row struct {
			Status model.Status `bson:"_id"`
			Count  int64        `bson:"count"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, fmt.Errorf("decode count: %w", err)
		}
		counts.ByStatus[row.Status] = row.Count
		counts.Total += row.Count
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("count records: %w", err)
	}
	return counts, nil
}

// NextSequence reserves the next value of a named counter with a single
// atomic $inc upsert. Two concurrent calls can never observe the same value.
func (s *MongoStore) NextSequence(ctx context.Context, name string) (int64, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var doc struct {
		Seq int64 `bson:"seq"`
	}
	err := s.counters().FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": 1}},
		opts,
	).Decode(&doc)
	if err != nil {
		return 0, fmt.Errorf("next sequence %q: %w", name, err)
	}
	return doc.Seq, nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}
