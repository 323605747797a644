package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/EMe-U/plotsure/internal/platform/logger"
	"github.com/EMe-U/plotsure/internal/user/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const userCollectionName = "users"

type UserRepository struct {
	collection *mongo.Collection
	logger     *logger.Logger
}

func NewUserRepository(db *mongo.Database, log *logger.Logger) *UserRepository {
	collection := db.Collection(userCollectionName)
	repoLog := log.Named("UserRepository")
	ensureIndexes(collection, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "role", Value: 1}, {Key: "is_active", Value: 1}}},
	}, repoLog)

	return &UserRepository{collection: collection, logger: repoLog}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	doc, err := fromDomainUser(user)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicateEmail
		}
		r.logger.Error("Failed to insert user", zap.String("email", user.Email), zap.Error(err))
		return fmt.Errorf("db insert failed: %w", err)
	}
	user.ID = doc.ID.Hex()
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"email": domain.NormalizeEmail(email)})
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var doc userDocument
	if err := r.collection.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("db findone failed: %w", err)
	}
	return doc.toDomain(), nil
}

// Update writes the profile fields. Credentials and 2FA state have their own methods.
func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	return r.set(ctx, user.ID, bson.M{
		"name":        user.Name,
		"phone":       user.Phone,
		"role":        string(user.Role),
		"is_active":   user.IsActive,
		"is_verified": user.IsVerified,
		"updated_at":  user.UpdatedAt,
	})
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.set(ctx, id, bson.M{"password_hash": passwordHash, "updated_at": time.Now().UTC()})
}

func (r *UserRepository) SetActive(ctx context.Context, id string, active bool) error {
	return r.set(ctx, id, bson.M{"is_active": active, "updated_at": time.Now().UTC()})
}

func (r *UserRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	return r.set(ctx, id, bson.M{"last_login": at})
}

func (r *UserRepository) SetTwoFactor(ctx context.Context, id string, enabled bool, secret string, backupCodes []string) error {
	if secret == "" {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			return domain.ErrNotFound
		}
		res, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{
			"$set":   bson.M{"two_factor_enabled": false, "updated_at": time.Now().UTC()},
			"$unset": bson.M{"two_factor_secret": "", "backup_codes": ""},
		})
		if err != nil {
			return fmt.Errorf("db update failed: %w", err)
		}
		if res.MatchedCount == 0 {
			return domain.ErrNotFound
		}
		return nil
	}

	fields := bson.M{"two_factor_enabled": enabled, "two_factor_secret": secret, "updated_at": time.Now().UTC()}
	if backupCodes != nil {
		fields["backup_codes"] = backupCodes
	}
	return r.set(ctx, id, fields)
}

// ConsumeBackupCode pulls the hash atomically, so a code can only be used once.
func (r *UserRepository) ConsumeBackupCode(ctx context.Context, id, codeHash string) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, domain.ErrNotFound
	}
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": oid, "backup_codes": codeHash},
		bson.M{"$pull": bson.M{"backup_codes": codeHash}, "$set": bson.M{"updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return false, fmt.Errorf("db update failed: %w", err)
	}
	return res.ModifiedCount == 1, nil
}

func (r *UserRepository) List(ctx context.Context, filter domain.UserFilter) ([]*domain.User, int64, error) {
	query := bson.M{}
	if filter.Role != "" {
		query["role"] = string(filter.Role)
	}
	if filter.IsActive != nil {
		query["is_active"] = *filter.IsActive
	}
	if filter.Search != "" {
		query["$or"] = anyFieldContains(filter.Search, "name", "email")
	}

	opts := pageOptions(filter.Page, filter.Limit).SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("db find failed: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []*userDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("db cursor all failed: %w", err)
	}
	users := make([]*domain.User, 0, len(docs))
	for _, d := range docs {
		users = append(users, d.toDomain())
	}

	total, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("db count failed: %w", err)
	}
	return users, total, nil
}

func (r *UserRepository) CountByRole(ctx context.Context) (*domain.RoleCounts, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "admins", Value: countIf(bson.D{{Key: "$eq", Value: bson.A{"$role", string(domain.RoleAdmin)}}})},
			{Key: "brokers", Value: countIf(bson.D{{Key: "$eq", Value: bson.A{"$role", string(domain.RoleBroker)}}})},
			{Key: "users", Value: countIf(bson.D{{Key: "$eq", Value: bson.A{"$role", string(domain.RoleUser)}}})},
			{Key: "verified", Value: countIf("$is_verified")},
			{Key: "active", Value: countIf("$is_active")},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("db aggregate failed: %w", err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		Total    int64 `bson:"total"`
		Admins   int64 `bson:"admins"`
		Brokers  int64 `bson:"brokers"`
		Users    int64 `bson:"users"`
		Verified int64 `bson:"verified"`
		Active   int64 `bson:"active"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("db cursor all failed: %w", err)
	}
	if len(results) == 0 {
		return &domain.RoleCounts{}, nil
	}
	res := results[0]
	return &domain.RoleCounts{
		Total:    res.Total,
		Admins:   res.Admins,
		Brokers:  res.Brokers,
		Users:    res.Users,
		Verified: res.Verified,
		Active:   res.Active,
	}, nil
}

func (r *UserRepository) set(ctx context.Context, id string, fields bson.M) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrNotFound
	}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": fields})
	if err != nil {
		r.logger.Error("Failed to update user", zap.String("user_id", id), zap.Error(err))
		return fmt.Errorf("db update failed: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// countIf sums 1 for every document where cond is true.
func countIf(cond interface{}) bson.D {
	return bson.D{{Key: "$sum", Value: bson.D{{Key: "$cond", Value: bson.A{cond, 1, 0}}}}}
}
