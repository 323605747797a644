package mongodb

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/EMe-U/plotsure/internal/listing/domain"
	"github.com/EMe-U/plotsure/internal/platform/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const listingCollectionName = "listings"

type ListingRepository struct {
	collection *mongo.Collection
	logger     *logger.Logger
}

func NewListingRepository(db *mongo.Database, log *logger.Logger) *ListingRepository {
	collection := db.Collection(listingCollectionName)
	repoLog := log.Named("ListingRepository")
	ensureIndexes(collection, []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "broker_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "land_type", Value: 1}}},
		{Keys: bson.D{{Key: "district", Value: 1}, {Key: "sector", Value: 1}}},
		{Keys: bson.D{{Key: "price_amount", Value: 1}}},
		{Keys: bson.D{{Key: "featured", Value: 1}, {Key: "verified", Value: 1}}},
	}, repoLog)

	return &ListingRepository{collection: collection, logger: repoLog}
}

func (r *ListingRepository) Create(ctx context.Context, listing *domain.Listing) error {
	doc, err := fromDomainListing(listing)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		r.logger.Error("Failed to insert listing", zap.String("broker_id", listing.BrokerID), zap.Error(err))
		return fmt.Errorf("db insert failed: %w", err)
	}
	listing.ID = doc.ID.Hex()
	r.logger.Debug("Listing inserted", zap.String("listing_id", listing.ID))
	return nil
}

func (r *ListingRepository) GetByID(ctx context.Context, id string) (*domain.Listing, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrListingNotFound
	}
	var doc listingDocument
	if err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrListingNotFound
		}
		r.logger.Error("Failed to get listing", zap.String("listing_id", id), zap.Error(err))
		return nil, fmt.Errorf("db findone failed: %w", err)
	}
	return doc.toDomain(), nil
}

// Update writes the editable fields. Views, media, owner and creation time
// are maintained by their own operations and are left untouched.
func (r *ListingRepository) Update(ctx context.Context, listing *domain.Listing) error {
	oid, err := primitive.ObjectIDFromHex(listing.ID)
	if err != nil {
		return domain.ErrListingNotFound
	}
	doc, err := fromDomainListing(listing)
	if err != nil {
		return err
	}

	set := bson.M{
		"title":                doc.Title,
		"description":          doc.Description,
		"district":             doc.District,
		"sector":               doc.Sector,
		"cell":                 doc.Cell,
		"village":              doc.Village,
		"plot_number":          doc.PlotNumber,
		"price_amount":         doc.PriceAmount,
		"price_currency":       doc.PriceCurrency,
		"price_negotiable":     doc.PriceNegotiable,
		"land_size_value":      doc.LandSizeValue,
		"land_size_unit":       doc.LandSizeUnit,
		"land_type":            doc.LandType,
		"landowner_name":       doc.LandownerName,
		"landowner_phone":      doc.LandownerPhone,
		"landowner_id_number":  doc.LandownerIDNumber,
		"landowner_email":      doc.LandownerEmail,
		"land_title_available": doc.LandTitleAvailable,
		"amenities":            doc.Amenities,
		"infrastructure":       doc.Infrastructure,
		"latitude":             doc.Latitude,
		"longitude":            doc.Longitude,
		"status":               doc.Status,
		"verified":             doc.Verified,
		"verification_notes":   doc.VerificationNotes,
		"verified_at":          doc.VerifiedAt,
		"verified_by":          doc.VerifiedBy,
		"featured":             doc.Featured,
		"updated_at":           doc.UpdatedAt,
	}

	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		r.logger.Error("Failed to update listing", zap.String("listing_id", listing.ID), zap.Error(err))
		return fmt.Errorf("db update failed: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrListingNotFound
	}
	return nil
}

func (r *ListingRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrListingNotFound
	}
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		r.logger.Error("Failed to delete listing", zap.String("listing_id", id), zap.Error(err))
		return fmt.Errorf("db delete failed: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrListingNotFound
	}
	return nil
}

func (r *ListingRepository) Find(ctx context.Context, filter domain.Filter) ([]*domain.Listing, int64, error) {
	query := listingQuery(filter)

	order := -1
	if filter.SortOrder == "asc" {
		order = 1
	}
	sortBy := filter.SortBy
	if !domain.IsSortable(sortBy) {
		sortBy = "created_at"
	}
	opts := pageOptions(filter.Page, filter.Limit).
		SetSort(bson.D{{Key: sortBy, Value: order}, {Key: "_id", Value: order}})

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		r.logger.Error("Failed to find listings", zap.Error(err))
		return nil, 0, fmt.Errorf("db find failed: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []*listingDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("db cursor all failed: %w", err)
	}
	listings := make([]*domain.Listing, 0, len(docs))
	for _, d := range docs {
		listings = append(listings, d.toDomain())
	}

	total, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("db count failed: %w", err)
	}
	return listings, total, nil
}

func listingQuery(f domain.Filter) bson.M {
	query := bson.M{}
	if len(f.Statuses) > 0 {
		statuses := make(bson.A, 0, len(f.Statuses))
		for _, s := range f.Statuses {
			statuses = append(statuses, string(s))
		}
		query["status"] = bson.M{"$in": statuses}
	}
	if f.LandType != "" {
		query["land_type"] = string(f.LandType)
	}
	if f.District != "" {
		query["district"] = equalsCI(f.District)
	}
	if f.Sector != "" {
		query["sector"] = equalsCI(f.Sector)
	}
	if f.BrokerID != "" {
		query["broker_id"] = f.BrokerID
	}
	if rng := floatRange(f.MinPrice, f.MaxPrice); rng != nil {
		query["price_amount"] = rng
	}
	if rng := floatRange(f.MinSize, f.MaxSize); rng != nil {
		query["land_size_value"] = rng
	}
	if f.Verified != nil {
		query["verified"] = *f.Verified
	}
	if f.Featured != nil {
		query["featured"] = *f.Featured
	}
	if f.Search != "" {
		query["$or"] = anyFieldContains(f.Search, "title", "description", "sector", "cell", "village")
	}
	return query
}

func equalsCI(s string) primitive.Regex {
	return primitive.Regex{Pattern: "^" + regexp.QuoteMeta(s) + "$", Options: "i"}
}

func floatRange(min, max *float64) bson.M {
	if min == nil && max == nil {
		return nil
	}
	rng := bson.M{}
	if min != nil {
		rng["$gte"] = *min
	}
	if max != nil {
		rng["$lte"] = *max
	}
	return rng
}

func (r *ListingRepository) IncrementViews(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrListingNotFound
	}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$inc": bson.M{"views": 1}})
	if err != nil {
		return fmt.Errorf("db update failed: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrListingNotFound
	}
	return nil
}

func (r *ListingRepository) AppendMedia(ctx context.Context, id string, media map[domain.MediaKind][]domain.Media) error {
	push := bson.M{}
	for kind, items := range media {
		switch kind {
		case domain.MediaImages, domain.MediaDocuments, domain.MediaVideos:
		default:
			return fmt.Errorf("%w: unknown media kind %q", domain.ErrInvalidInput, kind)
		}
		if len(items) > 0 {
			push[string(kind)] = bson.M{"$each": fromDomainMedia(items)}
		}
	}
	if len(push) == 0 {
		return nil
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrListingNotFound
	}

	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$push": push})
	if err != nil {
		r.logger.Error("Failed to append media", zap.String("listing_id", id), zap.Error(err))
		return fmt.Errorf("db update failed: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrListingNotFound
	}
	return nil
}

func (r *ListingRepository) Stats(ctx context.Context, brokerID string) (*domain.Stats, error) {
	match := bson.M{}
	if brokerID != "" {
		match["broker_id"] = brokerID
	}
	statusIs := func(s domain.ListingStatus) bson.D {
		return countIf(bson.D{{Key: "$eq", Value: bson.A{"$status", string(s)}}})
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "available", Value: statusIs(domain.StatusAvailable)},
			{Key: "reserved", Value: statusIs(domain.StatusReserved)},
			{Key: "sold", Value: statusIs(domain.StatusSold)},
			{Key: "verified", Value: countIf("$verified")},
			{Key: "featured", Value: countIf("$featured")},
			{Key: "total_views", Value: bson.D{{Key: "$sum", Value: "$views"}}},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		r.logger.Error("Failed to aggregate listing stats", zap.Error(err))
		return nil, fmt.Errorf("db aggregate failed: %w", err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		Total      int64 `bson:"total"`
		Available  int64 `bson:"available"`
		Reserved   int64 `bson:"reserved"`
		Sold       int64 `bson:"sold"`
		Verified   int64 `bson:"verified"`
		Featured   int64 `bson:"featured"`
		TotalViews int64 `bson:"total_views"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("db cursor all failed: %w", err)
	}
	if len(results) == 0 {
		return &domain.Stats{}, nil
	}
	res := results[0]
	return &domain.Stats{
		Total:      res.Total,
		Available:  res.Available,
		Reserved:   res.Reserved,
		Sold:       res.Sold,
		Verified:   res.Verified,
		Featured:   res.Featured,
		TotalViews: res.TotalViews,
	}, nil
}
