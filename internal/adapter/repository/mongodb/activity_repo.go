package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/EMe-U/plotsure/internal/activity/domain"
	"github.com/EMe-U/plotsure/internal/platform/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const activityCollectionName = "activity_logs"

type ActivityRepository struct {
	collection *mongo.Collection
	logger     *logger.Logger
}

func NewActivityRepository(db *mongo.Database, log *logger.Logger) *ActivityRepository {
	collection := db.Collection(activityCollectionName)
	repoLog := log.Named("ActivityRepository")
	ensureIndexes(collection, []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "action", Value: 1}}},
		{Keys: bson.D{{Key: "entity", Value: 1}, {Key: "entity_id", Value: 1}}},
	}, repoLog)
	return &ActivityRepository{collection: collection, logger: repoLog}
}

func (r *ActivityRepository) Create(ctx context.Context, log *domain.Log) error {
	doc := fromDomainActivity(log)
	doc.ID = primitive.NewObjectID()
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("db insert failed: %w", err)
	}
	log.ID = doc.ID.Hex()
	return nil
}

func activityQuery(f domain.Filter) bson.M {
	query := bson.M{}
	if f.Action != "" {
		query["action"] = string(f.Action)
	}
	if f.Entity != "" {
		query["entity"] = string(f.Entity)
	}
	if f.UserID != "" {
		query["user_id"] = f.UserID
	}
	if f.StartDate != nil || f.EndDate != nil {
		rng := bson.M{}
		if f.StartDate != nil {
			rng["$gte"] = *f.StartDate
		}
		if f.EndDate != nil {
			rng["$lte"] = *f.EndDate
		}
		query["created_at"] = rng
	}
	if f.Search != "" {
		query["$or"] = anyFieldContains(f.Search, "action", "entity", "user_name", "user_email", "details.title", "details.search")
	}
	return query
}

func (r *ActivityRepository) Find(ctx context.Context, filter domain.Filter) ([]*domain.Log, int64, error) {
	query := activityQuery(filter)
	opts := pageOptions(filter.Page, filter.Limit).SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})

	logs, err := r.find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	total, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("db count failed: %w", err)
	}
	return logs, total, nil
}

func (r *ActivityRepository) FindAll(ctx context.Context, filter domain.Filter) ([]*domain.Log, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	return r.find(ctx, activityQuery(filter), opts)
}

func (r *ActivityRepository) find(ctx context.Context, query bson.M, opts *options.FindOptions) ([]*domain.Log, error) {
	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		r.logger.Error("Failed to find activity logs", zap.Error(err))
		return nil, fmt.Errorf("db find failed: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []*activityDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("db cursor all failed: %w", err)
	}
	out := make([]*domain.Log, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (r *ActivityRepository) Count(ctx context.Context, since *time.Time) (int64, error) {
	query := bson.M{}
	if since != nil {
		query["created_at"] = bson.M{"$gte": *since}
	}
	n, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("db count failed: %w", err)
	}
	return n, nil
}

func (r *ActivityRepository) CountByAction(ctx context.Context, userID string, since time.Time) ([]domain.ActionCount, error) {
	match := bson.M{"created_at": bson.M{"$gte": since}}
	if userID != "" {
		match["user_id"] = userID
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$action"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
	}

	var results []struct {
		Action string `bson:"_id"`
		Count  int64  `bson:"count"`
	}
	if err := r.aggregate(ctx, pipeline, &results); err != nil {
		return nil, err
	}
	out := make([]domain.ActionCount, 0, len(results))
	for _, res := range results {
		out = append(out, domain.ActionCount{Action: domain.Action(res.Action), Count: res.Count})
	}
	return out, nil
}

func (r *ActivityRepository) CountByDay(ctx context.Context, since time.Time) ([]domain.DayCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"created_at": bson.M{"$gte": since}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{{Key: "$dateToString", Value: bson.D{
				{Key: "format", Value: "%Y-%m-%d"},
				{Key: "date", Value: "$created_at"},
			}}}},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}

	var results []struct {
		Date  string `bson:"_id"`
		Count int64  `bson:"count"`
	}
	if err := r.aggregate(ctx, pipeline, &results); err != nil {
		return nil, err
	}
	out := make([]domain.DayCount, 0, len(results))
	for _, res := range results {
		out = append(out, domain.DayCount{Date: res.Date, Count: res.Count})
	}
	return out, nil
}

func (r *ActivityRepository) aggregate(ctx context.Context, pipeline mongo.Pipeline, results interface{}) error {
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		r.logger.Error("Failed to aggregate activity logs", zap.Error(err))
		return fmt.Errorf("db aggregate failed: %w", err)
	}
	defer cursor.Close(ctx)
	if err := cursor.All(ctx, results); err != nil {
		return fmt.Errorf("db cursor all failed: %w", err)
	}
	return nil
}

func (r *ActivityRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{"created_at": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, fmt.Errorf("db delete failed: %w", err)
	}
	return res.DeletedCount, nil
}
