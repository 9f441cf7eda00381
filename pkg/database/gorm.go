package database

import (
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type PoolConfig struct {
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// DefaultPool suits one API process serving retrieval queries.
var DefaultPool = PoolConfig{
	MaxIdleConns:    10,
	MaxOpenConns:    50,
	ConnMaxLifetime: time.Hour,
}

type Option func(*options)

type options struct {
	pool     PoolConfig
	logLevel logger.LogLevel
}

func WithPool(pool PoolConfig) Option {
	return func(o *options) { o.pool = pool }
}

// WithLogLevel sets the gorm SQL log level. Default: Warn.
func WithLogLevel(level logger.LogLevel) Option {
	return func(o *options) { o.logLevel = level }
}

func sqlLogger(level logger.LogLevel) logger.Interface {
	return logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      true, // keep embedding literals out of the log
			Colorful:                  true,
		},
	)
}

// NewGormDBFromDSN opens a postgres connection and applies the pool limits.
func NewGormDBFromDSN(dsn string, opts ...Option) (*gorm.DB, error) {
	o := options{pool: DefaultPool, logLevel: logger.Warn}
	for _, opt := range opts {
		opt(&o)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: sqlLogger(o.logLevel)})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(o.pool.MaxIdleConns)
	sqlDB.SetMaxOpenConns(o.pool.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(o.pool.ConnMaxLifetime)

	return db, nil
}
