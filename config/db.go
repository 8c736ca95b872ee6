package config

import (
	"errors"
	def_log "log"
	"os"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gorm_logger "gorm.io/gorm/logger"
)

func OpenDatabaseConnection(url string) *gorm.DB {
	log.Info("Opening database connection")

	gormLogger := gorm_logger.New(
		def_log.New(os.Stdout, "\r\n", def_log.LstdFlags),
		gorm_logger.Config{
			LogLevel:                  gorm_logger.Warn,
			SlowThreshold:             time.Second,
			IgnoreRecordNotFoundError: true,
		},
	)

	db, err := gorm.Open(postgres.Open(url), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		log.Panic("Failed to open database connection")
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Panic("failed to retrieve database instance from GORM")
	}

	sqlDB.SetMaxIdleConns(Conf.Application.Datasource.MaxIdleConnections)
	sqlDB.SetMaxOpenConns(Conf.Application.Datasource.MaxOpenConnections)
	sqlDB.SetConnMaxLifetime(time.Minute * time.Duration(Conf.Application.Datasource.ConnectionMaxLifetime))

	log.Info("Database connection pool successfully configured")
	return db
}

func Migrate(url string) {
	m, err := migrate.New(
		Conf.Application.Migration,
		url,
	)
	if err != nil {
		log.Panic("failed to create migration instance")
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Panic("failed to run migration: ", err)
	}

	log.Info("Database migrated successfully")
}

func CloseDatabaseConnection(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Error("Failed to close the database connection")
	} else {
		log.Info("Database connection closed successfully")
	}
}
