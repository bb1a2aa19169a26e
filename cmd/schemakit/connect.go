package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"go.uber.org/zap"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/schemakit/schemakit/cache"
	"github.com/schemakit/schemakit/postgres"
	"github.com/schemakit/schemakit/schema"
	"github.com/schemakit/schemakit/sqlite"
)

// openSession connects to the configured database and builds a metadata
// session over it. The caller owns the returned cleanup function.
func openSession(ctx context.Context, cfg *CLIConfig, logger *zap.Logger) (*schema.Session, func(), error) {
	dsn := databaseURL(cfg)
	if dsn == "" {
		return nil, nil, fmt.Errorf("no database URL configured (set DATABASE_URL or database.url in schemakit.yml)")
	}

	db, err := openDB(ctx, cfg.Database.Driver, dsn)
	if err != nil {
		return nil, nil, err
	}

	var loader schema.Loader
	switch cfg.Database.Driver {
	case "sqlite3":
		loader = sqlite.NewLoader(db)
	default:
		loader = postgres.NewLoader(db)
	}

	var store cache.Store
	if cfg.Cache.RedisAddr != "" {
		redisCfg := cache.DefaultRedisConfig()
		redisCfg.Addr = cfg.Cache.RedisAddr
		redisCfg.Password = cfg.Cache.RedisPassword
		redisCfg.DB = cfg.Cache.RedisDB
		rs, err := cache.NewRedisStore(redisCfg)
		if err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		store = rs
	}

	session := schema.NewSession(loader, schema.Config{
		TablePrefix: cfg.Database.TablePrefix,
		Store:       store,
		CacheTTL:    cfg.Cache.TTL,
		CacheTag:    cfg.Cache.Tag,
		Exclude:     cfg.Database.Exclude,
		Logger:      logger,
	})

	cleanup := func() {
		db.Close()
	}
	return session, cleanup, nil
}

// openDB opens and pings the database, prompting for a password once if
// the server rejects the credentials in the DSN.
func openDB(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pingErr := db.PingContext(pingCtx)
	if pingErr == nil {
		return db, nil
	}
	db.Close()
	if !postgres.IsInvalidPassword(pingErr) {
		return nil, fmt.Errorf("failed to connect to database: %w", pingErr)
	}

	// Password authentication failed - prompt and retry once
	var password string
	prompt := &survey.Password{
		Message: "Database password:",
	}
	if err := survey.AskOne(prompt, &password); err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}

	retryDSN, err := withPassword(dsn, password)
	if err != nil {
		return nil, err
	}

	db, err = sql.Open(driver, retryDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// withPassword returns the DSN with its password replaced
func withPassword(dsn, password string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("failed to parse database URL: %w", err)
	}
	username := ""
	if u.User != nil {
		username = u.User.Username()
	}
	u.User = url.UserPassword(username, password)
	return u.String(), nil
}
