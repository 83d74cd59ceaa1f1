package database

import (
	"fmt"
	"log"

	"quiz_portal_backend/internal/config"
	"quiz_portal_backend/internal/model"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(cfg *config.Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.DBName,
		cfg.Database.Charset,
		cfg.Database.ParseTime,
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	log.Println("Database connection established")

	if ShouldMigrate(cfg) {
		if err := Migrate(db); err != nil {
			return nil, err
		}
		log.Println("Database migration completed")
	}

	return db, nil
}

// ShouldMigrate: auto-migration runs on every start outside release mode;
// in release mode only when forced from the command line, so production
// schema changes stay an explicit operation.
func ShouldMigrate(cfg *config.Config) bool {
	if cfg.ForceMigrate {
		return true
	}
	return cfg.Server.Mode != "release"
}

// Migrate creates or updates the schema. The unique indexes on
// certificates (code, and student+test) are part of the model tags and are
// what makes certificate issuance idempotent under concurrency.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Course{},
		&model.Test{},
		&model.TestQuestion{},
		&model.TestAttempt{},
		&model.AttemptAnswer{},
		&model.ViolationEvent{},
		&model.Certificate{},
	)
}
