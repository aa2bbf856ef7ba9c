package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Supported drivers.
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
)

// Config selects and tunes the relational store.
type Config struct {
	Driver string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string
	PostgresTimeZone string

	MySQLDSN   string
	SQLitePath string

	MaxOpenConns int
	MaxIdleConns int
	Retries      int
	RetryDelay   time.Duration
}

// Dialector builds the gorm dialector for the configured driver.
func (c Config) Dialector() (gorm.Dialector, error) {
	switch strings.ToLower(c.Driver) {
	case "", DriverPostgres:
		if c.PostgresUser == "" {
			return nil, fmt.Errorf("POSTGRES_USER environment variable not set")
		}
		if c.PostgresDB == "" {
			return nil, fmt.Errorf("POSTGRES_DB environment variable not set")
		}
		dsn := fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
			c.PostgresHost, c.PostgresUser, c.PostgresPassword, c.PostgresDB,
			c.PostgresPort, c.PostgresSSLMode, c.PostgresTimeZone,
		)
		return postgres.Open(dsn), nil
	case DriverMySQL:
		if c.MySQLDSN == "" {
			return nil, fmt.Errorf("MYSQL_DSN environment variable not set")
		}
		return mysql.Open(mysqlDSN(c.MySQLDSN)), nil
	case DriverSQLite:
		path := c.SQLitePath
		if path == "" {
			path = "webook.db"
		}
		return sqlite.Open(path), nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", c.Driver)
	}
}

// mysqlDSN makes MySQL report matched rows instead of changed rows, so an
// update that rewrites identical values still counts as found.
func mysqlDSN(dsn string) string {
	if !strings.Contains(dsn, "parseTime=") {
		dsn = appendParam(dsn, "parseTime=true")
	}
	if !strings.Contains(dsn, "clientFoundRows=") {
		dsn = appendParam(dsn, "clientFoundRows=true")
	}
	return dsn
}

func appendParam(dsn, param string) string {
	if strings.Contains(dsn, "?") {
		return dsn + "&" + param
	}
	return dsn + "?" + param
}

// Open connects with retries, applies pool settings and migrates the
// given models.
func Open(cfg Config, log *zap.Logger, autoMigrateModels ...interface{}) (*gorm.DB, error) {
	dialector, err := cfg.Dialector()
	if err != nil {
		return nil, err
	}

	retries := cfg.Retries
	if retries <= 0 {
		retries = 1
	}
	delay := cfg.RetryDelay
	if delay <= 0 {
		delay = 2 * time.Second
	}

	gormCfg := &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	}

	var db *gorm.DB
	for i := 0; i < retries; i++ {
		db, err = gorm.Open(dialector, gormCfg)
		if err == nil {
			err = Ping(context.Background(), db)
		}
		if err == nil {
			log.Info("Connected to database", zap.String("driver", cfg.Driver))
			break
		}
		log.Warn("Database connection failed",
			zap.Int("attempt", i+1),
			zap.Int("max_attempts", retries),
			zap.Error(err),
		)
		if i < retries-1 {
			time.Sleep(delay)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", retries, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if len(autoMigrateModels) > 0 {
		if err := db.AutoMigrate(autoMigrateModels...); err != nil {
			return nil, fmt.Errorf("AutoMigrate failed: %w", err)
		}
	}
	return db, nil
}

// Ping checks that the underlying connection is alive.
func Ping(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database not connected")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection gracefully
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.Close()
}
