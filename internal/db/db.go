package db

import (
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Logger          *logrus.Logger
}

// Open connects to Postgres and applies the pool settings.
func Open(dsn string, opts Options) (*gorm.DB, error) {
	if dsn == "" {
		return nil, errors.New("DATABASE_URL is not set")
	}
	cfg := &gorm.Config{}
	if opts.Logger != nil {
		cfg.Logger = gormlogger.New(opts.Logger, gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		})
	}
	conn, err := gorm.Open(postgres.Open(dsn), cfg)
	if err != nil {
		return nil, err
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}
	return conn, nil
}

// Migrate runs GORM auto-migrations for the core tables. The SQL files in
// db/migrations describe the same schema for golang-migrate.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return errors.New("db connection is nil")
	}
	if err := conn.AutoMigrate(
		&Room{},
		&Player{},
		&Stroke{},
		&Guess{},
		&Sketch{},
		&Invite{},
		&Word{},
		&Event{},
	); err != nil {
		return err
	}
	if err := conn.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_words_text_lower ON words (lower(text))").Error; err != nil {
		return err
	}
	logrus.Info("database migration complete")
	return nil
}
