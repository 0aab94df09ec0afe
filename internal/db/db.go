package db

import (
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"fitagent/internal/config"
	"fitagent/internal/conversation"
	"fitagent/internal/goal"
	"fitagent/internal/interaction"
	"fitagent/internal/pattern"
	"fitagent/internal/profile"
)

// Init opens the postgres connection and migrates every model. The handle
// is returned, not stored globally, so tests and the server wire their own.
func Init(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.Postgres.DSN), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	log.Printf("Database connected and migrated")
	return db, nil
}

// Migrate applies the schema for all coaching models
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&profile.UserProfile{},
		&goal.Goal{},
		&interaction.Record{},
		&pattern.BehaviorPattern{},
		&conversation.Conversation{},
	)
}
