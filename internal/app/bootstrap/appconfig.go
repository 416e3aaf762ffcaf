// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration; ports, TLS, log level and
// CORS stay in WAFFLE's CoreConfig.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Redis backs the per-meeting session lock. Blank RedisAddr disables it.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	LockTTL       time.Duration // lifetime of an unreleased lock
	LockWait      time.Duration // how long a writer waits for the lock

	// Calendar days (meeting dates, month boundaries) are computed in this zone.
	TimeZone string

	// Recovery session writes retried on version conflicts before giving up.
	SessionWriteRetries int

	// Audit logging: "all" (db+log), "db", "log" or "off".
	AuditLogLedger string
	AuditLogAdmin  string

	// Request timeouts. Zero keeps the package default.
	TimeoutShort  time.Duration
	TimeoutMedium time.Duration
	TimeoutLong   time.Duration

	// How often active FDs past their maturity date are marked matured.
	// Zero disables the background sweep.
	FDMaturityInterval time.Duration
}
