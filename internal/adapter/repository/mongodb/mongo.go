package mongodb

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/EMe-U/plotsure/internal/platform/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const indexTimeout = 10 * time.Second

// Connect opens a client and pings the primary.
func Connect(ctx context.Context, uri string, log *logger.Logger) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	log.Info("Connected to MongoDB")
	return client, nil
}

func ensureIndexes(collection *mongo.Collection, indexes []mongo.IndexModel, log *logger.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), indexTimeout)
	defer cancel()

	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		log.Error("Failed to create indexes", zap.String("collection", collection.Name()), zap.Error(err))
		return
	}
	log.Info("Ensured indexes", zap.String("collection", collection.Name()))
}

// containsCI matches a case-insensitive substring.
func containsCI(s string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
}

// anyFieldContains builds an $or over fields for a substring search.
func anyFieldContains(search string, fields ...string) bson.A {
	or := bson.A{}
	for _, f := range fields {
		or = append(or, bson.M{f: containsCI(search)})
	}
	return or
}

func pageOptions(page, limit int) *options.FindOptions {
	opts := options.Find()
	if limit > 0 {
		opts.SetLimit(int64(limit))
		if page > 1 {
			opts.SetSkip(int64(page-1) * int64(limit))
		}
	}
	return opts
}
