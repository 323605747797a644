package mongodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/EMe-U/plotsure/internal/inquiry/domain"
	"github.com/EMe-U/plotsure/internal/platform/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const inquiryCollectionName = "inquiries"

type InquiryRepository struct {
	collection *mongo.Collection
	logger     *logger.Logger
}

func NewInquiryRepository(db *mongo.Database, log *logger.Logger) *InquiryRepository {
	collection := db.Collection(inquiryCollectionName)
	repoLog := log.Named("InquiryRepository")
	ensureIndexes(collection, []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "listing_id", Value: 1}}},
		{Keys: bson.D{{Key: "broker_id", Value: 1}}},
		{Keys: bson.D{{Key: "assigned_to", Value: 1}}},
	}, repoLog)

	return &InquiryRepository{collection: collection, logger: repoLog}
}

func (r *InquiryRepository) Create(ctx context.Context, inquiry *domain.Inquiry) error {
	doc, err := fromDomainInquiry(inquiry)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		r.logger.Error("Failed to insert inquiry", zap.Error(err))
		return fmt.Errorf("db insert failed: %w", err)
	}
	inquiry.ID = doc.ID.Hex()
	return nil
}

func (r *InquiryRepository) GetByID(ctx context.Context, id string) (*domain.Inquiry, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrInquiryNotFound
	}
	var doc inquiryDocument
	if err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrInquiryNotFound
		}
		return nil, fmt.Errorf("db findone failed: %w", err)
	}
	return doc.toDomain(), nil
}

// Update writes the workflow fields. The submitted message itself is immutable.
func (r *InquiryRepository) Update(ctx context.Context, inquiry *domain.Inquiry) error {
	oid, err := primitive.ObjectIDFromHex(inquiry.ID)
	if err != nil {
		return domain.ErrInquiryNotFound
	}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{
		"status":           string(inquiry.Status),
		"priority":         string(inquiry.Priority),
		"assigned_to":      inquiry.AssignedTo,
		"notes":            inquiry.Notes,
		"conversion_value": inquiry.ConversionValue,
		"responded_at":     inquiry.RespondedAt,
		"converted_at":     inquiry.ConvertedAt,
		"updated_at":       inquiry.UpdatedAt,
	}})
	if err != nil {
		r.logger.Error("Failed to update inquiry", zap.String("inquiry_id", inquiry.ID), zap.Error(err))
		return fmt.Errorf("db update failed: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrInquiryNotFound
	}
	return nil
}

func (r *InquiryRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrInquiryNotFound
	}
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("db delete failed: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrInquiryNotFound
	}
	return nil
}

func (r *InquiryRepository) Find(ctx context.Context, filter domain.Filter) ([]*domain.Inquiry, int64, error) {
	query := inquiryQuery(filter)
	opts := pageOptions(filter.Page, filter.Limit).SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		r.logger.Error("Failed to find inquiries", zap.Error(err))
		return nil, 0, fmt.Errorf("db find failed: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []*inquiryDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("db cursor all failed: %w", err)
	}
	out := make([]*domain.Inquiry, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}

	total, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("db count failed: %w", err)
	}
	return out, total, nil
}

func inquiryQuery(f domain.Filter) bson.M {
	var and bson.A
	if f.Status != "" {
		and = append(and, bson.M{"status": string(f.Status)})
	}
	if f.Priority != "" {
		and = append(and, bson.M{"priority": string(f.Priority)})
	}
	if f.ListingID != "" {
		and = append(and, bson.M{"listing_id": f.ListingID})
	}
	if f.InquiryType != "" {
		and = append(and, bson.M{"inquiry_type": string(f.InquiryType)})
	}
	if f.VisibleTo != "" {
		and = append(and, visibleTo(f.VisibleTo))
	}
	if f.Search != "" {
		and = append(and, bson.M{"$or": anyFieldContains(f.Search, "inquirer_name", "inquirer_email", "message")})
	}
	if len(and) == 0 {
		return bson.M{}
	}
	return bson.M{"$and": and}
}

func visibleTo(userID string) bson.M {
	return bson.M{"$or": bson.A{bson.M{"broker_id": userID}, bson.M{"assigned_to": userID}}}
}

func (r *InquiryRepository) CountByStatus(ctx context.Context, visibleToUser string) (map[domain.Status]int64, error) {
	match := bson.M{}
	if visibleToUser != "" {
		match = visibleTo(visibleToUser)
	}
	rows, err := groupCount(ctx, r.collection, match, "$status")
	if err != nil {
		return nil, err
	}
	out := make(map[domain.Status]int64, len(rows))
	for k, v := range rows {
		out[domain.Status(k)] = v
	}
	return out, nil
}

// groupCount counts documents matching match, grouped by the string field expression key.
func groupCount(ctx context.Context, collection *mongo.Collection, match bson.M, key string) (map[string]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: key},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}
	cursor, err := collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("db aggregate failed: %w", err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		ID    string `bson:"_id"`
		Count int64  `bson:"count"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("db cursor all failed: %w", err)
	}
	out := make(map[string]int64, len(results))
	for _, res := range results {
		out[res.ID] = res.Count
	}
	return out, nil
}
