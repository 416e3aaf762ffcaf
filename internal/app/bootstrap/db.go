// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dalemusser/shgledger/internal/app/recovery"
	"github.com/dalemusser/shgledger/internal/app/store/audit"
	fdstore "github.com/dalemusser/shgledger/internal/app/store/fds"
	groupstore "github.com/dalemusser/shgledger/internal/app/store/groups"
	loanstore "github.com/dalemusser/shgledger/internal/app/store/loans"
	memberstore "github.com/dalemusser/shgledger/internal/app/store/members"
	recoverystore "github.com/dalemusser/shgledger/internal/app/store/recoveries"
	"github.com/dalemusser/shgledger/internal/app/system/auditlog"
	"github.com/dalemusser/shgledger/internal/app/system/indexes"
	"github.com/dalemusser/shgledger/internal/app/system/locks"
	"github.com/dalemusser/shgledger/internal/app/system/metrics"
	"github.com/dalemusser/shgledger/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// ConnectDB connects MongoDB and, when configured, Redis, and assembles the
// long-lived collaborators every handler shares.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	loc, err := loadLocation(appCfg.TimeZone)
	if err != nil {
		return DBDeps{}, err
	}

	opts := options.Client().
		ApplyURI(appCfg.MongoURI).
		SetMaxPoolSize(appCfg.MongoMaxPoolSize).
		SetMinPoolSize(appCfg.MongoMinPoolSize)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return DBDeps{}, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return DBDeps{}, fmt.Errorf("ping mongo: %w", err)
	}
	db := client.Database(appCfg.MongoDatabase)
	logger.Info("connected to MongoDB", zap.String("database", appCfg.MongoDatabase))

	deps := DBDeps{
		MongoClient:   client,
		MongoDatabase: db,
		Locker:        locks.Noop{},
		Location:      loc,
		Metrics:       metrics.New(),
	}

	if appCfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     appCfg.RedisAddr,
			Password: appCfg.RedisPassword,
			DB:       appCfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			// Locks are an optimisation; version checks still keep writes safe.
			logger.Warn("redis unreachable at startup, session writes fall back to version checks",
				zap.String("addr", appCfg.RedisAddr), zap.Error(err))
		}
		deps.Redis = rdb
		deps.Locker = locks.NewRedis(rdb, locks.Config{TTL: appCfg.LockTTL, Wait: appCfg.LockWait}, logger)
		logger.Info("distributed session locks enabled", zap.String("redis_addr", appCfg.RedisAddr))
	}

	deps.Audit = auditlog.New(audit.New(db), logger, auditlog.Config{
		Ledger: appCfg.AuditLogLedger,
		Admin:  appCfg.AuditLogAdmin,
	})

	deps.Recovery = recovery.NewManager(recovery.Deps{
		Groups:   groupstore.New(db),
		Members:  memberstore.New(db),
		Loans:    loanstore.New(db),
		Sessions: recoverystore.New(db),
		Locker:   deps.Locker,
		Metrics:  deps.Metrics,
		Location: loc,
		Retries:  appCfg.SessionWriteRetries,
		Log:      logger,
	})

	if appCfg.FDMaturityInterval > 0 {
		deps.FDMaturity = workers.NewFDMaturity(fdstore.New(db), logger, appCfg.FDMaturityInterval)
	}

	return deps, nil
}

// EnsureSchema reconciles the indexes every store relies on, including the
// unique (group, day) key on recovery sessions.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if err := indexes.EnsureAll(ctx, deps.MongoDatabase); err != nil {
		logger.Error("ensure indexes failed", zap.Error(err))
		return err
	}
	return nil
}
