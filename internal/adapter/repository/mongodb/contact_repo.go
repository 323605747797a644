package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/EMe-U/plotsure/internal/inquiry/domain"
	"github.com/EMe-U/plotsure/internal/platform/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const contactCollectionName = "contacts"

type ContactRepository struct {
	collection *mongo.Collection
	logger     *logger.Logger
}

func NewContactRepository(db *mongo.Database, log *logger.Logger) *ContactRepository {
	collection := db.Collection(contactCollectionName)
	repoLog := log.Named("ContactRepository")
	ensureIndexes(collection, []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "subject", Value: 1}}},
	}, repoLog)
	return &ContactRepository{collection: collection, logger: repoLog}
}

func (r *ContactRepository) Create(ctx context.Context, contact *domain.Contact) error {
	doc, err := fromDomainContact(contact)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		r.logger.Error("Failed to insert contact message", zap.Error(err))
		return fmt.Errorf("db insert failed: %w", err)
	}
	contact.ID = doc.ID.Hex()
	return nil
}

func (r *ContactRepository) GetByID(ctx context.Context, id string) (*domain.Contact, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrContactNotFound
	}
	var doc contactDocument
	if err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrContactNotFound
		}
		return nil, fmt.Errorf("db findone failed: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *ContactRepository) UpdateStatus(ctx context.Context, id string, status domain.ContactStatus) (*domain.Contact, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrContactNotFound
	}
	var doc contactDocument
	err = r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{"status": string(status), "updated_at": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrContactNotFound
		}
		r.logger.Error("Failed to update contact status", zap.String("contact_id", id), zap.Error(err))
		return nil, fmt.Errorf("db update failed: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *ContactRepository) Find(ctx context.Context, filter domain.ContactFilter) ([]*domain.Contact, int64, error) {
	query := bson.M{}
	if filter.Status != "" {
		query["status"] = string(filter.Status)
	}
	if filter.Subject != "" {
		query["subject"] = string(filter.Subject)
	}
	if filter.Search != "" {
		query["$or"] = anyFieldContains(filter.Search, "name", "email", "message")
	}

	opts := pageOptions(filter.Page, filter.Limit).SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("db find failed: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []*contactDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("db cursor all failed: %w", err)
	}
	out := make([]*domain.Contact, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}

	total, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("db count failed: %w", err)
	}
	return out, total, nil
}

func (r *ContactRepository) CountByStatus(ctx context.Context) (map[domain.ContactStatus]int64, error) {
	rows, err := groupCount(ctx, r.collection, bson.M{}, "$status")
	if err != nil {
		return nil, err
	}
	out := make(map[domain.ContactStatus]int64, len(rows))
	for k, v := range rows {
		out[domain.ContactStatus(k)] = v
	}
	return out, nil
}
