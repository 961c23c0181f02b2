package database

import (
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Options tunes the connection. OptionsFor derives them from GO_ENV.
type Options struct {
	LogLevel        logger.LogLevel
	SlowThreshold   time.Duration
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// OptionsFor logs every statement in development and only warnings and
// slow queries elsewhere.
func OptionsFor(environment string) Options {
	opts := Options{
		LogLevel:        logger.Warn,
		SlowThreshold:   500 * time.Millisecond,
		MaxIdleConns:    10,
		MaxOpenConns:    50,
		ConnMaxLifetime: time.Hour,
	}
	if environment == "development" {
		opts.LogLevel = logger.Info
		opts.SlowThreshold = time.Second
	}
	return opts
}

func newLogger(opts Options) logger.Interface {
	return logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             opts.SlowThreshold,
			LogLevel:                  opts.LogLevel,
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      true,
			Colorful:                  opts.LogLevel == logger.Info,
		},
	)
}

// Open connects to Postgres. Users and kv_entries live here.
func Open(dsn string, opts Options) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: newLogger(opts),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)

	return db, nil
}
