// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"time"

	"github.com/dalemusser/shgledger/internal/app/recovery"
	"github.com/dalemusser/shgledger/internal/app/system/auditlog"
	"github.com/dalemusser/shgledger/internal/app/system/locks"
	"github.com/dalemusser/shgledger/internal/app/system/metrics"
	"github.com/dalemusser/shgledger/internal/app/system/workers"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	// Redis is nil when redis_addr is blank.
	Redis  redis.UniversalClient
	Locker locks.Locker

	Location *time.Location
	Metrics  *metrics.Metrics
	Audit    *auditlog.Logger
	Recovery *recovery.Manager

	// FDMaturity is nil when fd_maturity_interval is zero.
	FDMaturity *workers.FDMaturity
}
