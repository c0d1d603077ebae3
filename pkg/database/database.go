package database

import (
	"bridge4er_backend/internal/config"
	"bridge4er_backend/internal/model"
	"fmt"
	"log"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		cfg.Charset,
		cfg.ParseTime,
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})

	if err != nil {
		return nil, err
	}

	log.Println("Database connection established")

	return db, nil
}

// Migrate creates or updates the content-library schema. Shared with tests,
// which run it against sqlite.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Subject{},
		&model.Chapter{},
		&model.MCQQuestion{},
		&model.ExamSet{},
		&model.ExamQuestion{},
	)
}
