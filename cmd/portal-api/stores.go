package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"land-portal/parcel-portal/parcel-portal-backend/internal/config"
	"land-portal/parcel-portal/parcel-portal-backend/internal/draft"
)

// openStore connects the configured draft backend. The returned func
// releases its connections.
func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (draft.Store, func(), error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	noop := func() {}

	switch cfg.Draft.Backend {
	case config.BackendRedis:
		client, err := draft.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			return nil, noop, err
		}
		log.Info("Draft store: redis", zap.Duration("ttl", cfg.Redis.TTL))
		return draft.NewRedisStore(client, cfg.Redis.TTL), func() { client.Close() }, nil

	case config.BackendPostgres:
		db, err := draft.OpenPostgres(cfg.Database.GetDatabaseURL())
		if err != nil {
			return nil, noop, err
		}
		log.Info("Draft store: postgres", zap.String("host", cfg.Database.Host), zap.String("db", cfg.Database.DBName))
		return draft.NewPostgresStore(db), func() {
			if sqlDB, err := db.DB(); err == nil {
				sqlDB.Close()
			}
		}, nil

	case config.BackendDynamoDB:
		client, err := draft.NewDynamoClient(ctx, cfg.DynamoDB.Region, cfg.DynamoDB.Endpoint, cfg.DynamoDB.AccessKey, cfg.DynamoDB.SecretKey)
		if err != nil {
			return nil, noop, err
		}
		log.Info("Draft store: dynamodb", zap.String("table", cfg.DynamoDB.Table), zap.String("region", cfg.DynamoDB.Region))
		return draft.NewDynamoStore(client, cfg.DynamoDB.Table), noop, nil

	case config.BackendMongo:
		client, err := draft.ConnectMongo(ctx, cfg.Mongo.URI)
		if err != nil {
			return nil, noop, err
		}
		log.Info("Draft store: mongo", zap.String("database", cfg.Mongo.Database), zap.String("collection", cfg.Mongo.Collection))
		collection := client.Database(cfg.Mongo.Database).Collection(cfg.Mongo.Collection)
		return draft.NewMongoStore(collection), func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(ctx)
		}, nil

	case config.BackendMemory:
		log.Warn("Draft store: memory, drafts will not survive a restart")
		return draft.NewMemoryStore(), noop, nil
	}

	return nil, noop, fmt.Errorf("unknown draft backend %q", cfg.Draft.Backend)
}
