// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for the ledger.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, redis_addr, etc.
//   - Environment variables: SHGLEDGER_MONGO_URI, SHGLEDGER_REDIS_ADDR, etc.
//   - Command-line flags: --mongo_uri, --redis_addr, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "shg_ledger", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	// Distributed session locks
	{Name: "redis_addr", Default: "", Desc: "Redis address for session locks (blank disables distributed locking)"},
	{Name: "redis_password", Default: "", Desc: "Redis password"},
	{Name: "redis_db", Default: 0, Desc: "Redis database number"},
	{Name: "lock_ttl", Default: "10s", Desc: "Lifetime of an unreleased session lock (e.g., 10s)"},
	{Name: "lock_wait", Default: "3s", Desc: "How long a writer waits for a busy session lock"},

	// Ledger behaviour
	{Name: "time_zone", Default: "Asia/Kolkata", Desc: "IANA time zone used for calendar days"},
	{Name: "session_write_retries", Default: 3, Desc: "Retries for a recovery session write after a version conflict"},
	{Name: "fd_maturity_interval", Default: "1h", Desc: "How often due FDs are marked matured (0 disables)"},

	// Audit logging settings
	{Name: "audit_log", Default: "all", Desc: "Ledger event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_admin", Default: "all", Desc: "Admin event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	// Request timeouts
	{Name: "timeout_short", Default: "5s", Desc: "Timeout for single-document reads and writes"},
	{Name: "timeout_medium", Default: "10s", Desc: "Timeout for multi-document operations"},
	{Name: "timeout_long", Default: "30s", Desc: "Timeout for range reads"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, SHGLEDGER_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "SHGLEDGER", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		// Locks
		RedisAddr:     appValues.String("redis_addr"),
		RedisPassword: appValues.String("redis_password"),
		RedisDB:       appValues.Int("redis_db"),
		LockTTL:       appValues.Duration("lock_ttl", 10*time.Second),
		LockWait:      appValues.Duration("lock_wait", 3*time.Second),

		// Ledger
		TimeZone:            appValues.String("time_zone"),
		SessionWriteRetries: appValues.Int("session_write_retries"),
		FDMaturityInterval:  appValues.Duration("fd_maturity_interval", time.Hour),

		// Audit logging
		AuditLogLedger: appValues.String("audit_log"),
		AuditLogAdmin:  appValues.String("audit_log_admin"),

		// Timeouts
		TimeoutShort:  appValues.Duration("timeout_short", 0),
		TimeoutMedium: appValues.Duration("timeout_medium", 0),
		TimeoutLong:   appValues.Duration("timeout_long", 0),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// The MongoDB URI is checked before attempting to connect, and the time
// zone is resolved once here so every calendar-day computation uses it.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if _, err := loadLocation(appCfg.TimeZone); err != nil {
		logger.Error("invalid time zone", zap.String("time_zone", appCfg.TimeZone), zap.Error(err))
		return err
	}
	if appCfg.SessionWriteRetries < 1 {
		return fmt.Errorf("session_write_retries must be at least 1, got %d", appCfg.SessionWriteRetries)
	}
	if appCfg.FDMaturityInterval < 0 {
		return fmt.Errorf("fd_maturity_interval must not be negative")
	}
	for _, mode := range []string{appCfg.AuditLogLedger, appCfg.AuditLogAdmin} {
		switch mode {
		case "all", "db", "log", "off":
		default:
			return fmt.Errorf("audit log mode %q must be one of all, db, log, off", mode)
		}
	}
	return nil
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" {
		return nil, fmt.Errorf("time_zone is required")
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid time_zone %q: %w", name, err)
	}
	return loc, nil
}
