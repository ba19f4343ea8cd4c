package main

import (
	"context"
	"flag"
	"time"

	"draw-royale/internal/config"
	"draw-royale/internal/db"

	"github.com/sirupsen/logrus"
)

func main() {
	filePath := flag.String("file", "words.csv", "path to words csv (text,difficulty,category)")
	flag.Parse()

	if err := config.LoadDotEnv(".env"); err != nil {
		logrus.WithError(err).Warn("failed to load .env")
	}
	cfg := config.Load()
	logger := cfg.NewLogger()

	conn, err := db.Open(cfg.DatabaseURL, db.Options{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.DBConnMaxLifetimeSeconds) * time.Second,
		Logger:          logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("database connection failed")
	}
	if err := db.Migrate(conn); err != nil {
		logger.WithError(err).Fatal("database migration failed")
	}

	inserted, err := db.LoadWords(context.Background(), db.NewStore(conn), *filePath)
	if err != nil {
		logger.WithError(err).Fatal("failed to load words")
	}
	logger.WithFields(logrus.Fields{"file": *filePath, "inserted": inserted}).Info("words loaded")
}
