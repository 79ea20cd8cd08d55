package main

import (
	"github.com/joho/godotenv"

	"github.com/onurcolak/crm-whatsapp-service/environments"
	"github.com/onurcolak/crm-whatsapp-service/pkg/database"
	"github.com/onurcolak/crm-whatsapp-service/pkg/logger"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logger.Debugf("No .env file loaded: %v", err)
	}

	cfg := environments.Load()
	logger.Init(cfg.Log.Level)

	db, err := database.NewMySQLDB(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	defer func() {
		if err := db.Close(); err != nil {
			logger.Errorf("Failed to close database: %v", err)
		}
	}()

	if err := database.RunMigrations(db); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}

	if err := database.SeedTestData(db); err != nil {
		logger.Fatalf("Failed to seed test data: %v", err)
	}

	logger.Infof("Seed completed successfully")
}
