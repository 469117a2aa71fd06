package database

import (
	"sync"
	"time"

	"github.com/krishkalaria12/decor-serve/config"
	"github.com/krishkalaria12/decor-serve/logger"
	"github.com/krishkalaria12/decor-serve/models"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var (
	instance *gorm.DB
	once     sync.Once
)

func GetDB() *gorm.DB {
	once.Do(func() {
		instance = connectDB()
	})

	return instance
}

func connectDB() *gorm.DB {
	dsn := config.Config("DATABASE_URL")

	db, err := Open(dsn, logLevel(config.Optional("LOG_LEVEL", "info")))
	if err != nil {
		logger.Log.Fatal("Failed to connect to database", zap.Error(err))
	}

	logger.Log.Info("Successfully connected to Postgres database")
	return db
}

// Open connects to Postgres and configures the pool.
func Open(dsn string, level gormlogger.LogLevel) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(level),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(30 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, err
	}

	return db, nil
}

func logLevel(level string) gormlogger.LogLevel {
	switch level {
	case "debug":
		return gormlogger.Info
	case "error":
		return gormlogger.Error
	default:
		return gormlogger.Warn
	}
}

// MigrateModels runs auto migration for every persisted model.
func MigrateModels() error {
	db := GetDB()
	return db.AutoMigrate(&models.User{}, &models.UserSettings{}, &models.Image{})
}

func CloseDB() error {
	if instance != nil {
		sqlDB, err := instance.DB()
		if err != nil {
			return err
		}

		return sqlDB.Close()
	}

	return nil
}
