// Command seed bootstraps the first manager account so the system has a user
// able to create everyone else. It is idempotent: a non-empty users table is
// left untouched.
package main

import (
	"log"
	"os"

	"github.com/dharmikvarsani/task-management/internal/auth"
	"github.com/dharmikvarsani/task-management/internal/config"
	"github.com/dharmikvarsani/task-management/internal/database"
	"github.com/dharmikvarsani/task-management/internal/models"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer database.Close(db)

	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		log.Fatalf("Failed to count users: %v", err)
	}
	if count > 0 {
		log.Println("Users already exist, skipping seeding")
		return
	}

	email := envOr("SEED_MANAGER_EMAIL", "manager@example.com")
	password := envOr("SEED_MANAGER_PASSWORD", "change-me")

	hashed, err := auth.HashPassword(password)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	manager := models.User{
		ID:       uuid.New().String(),
		Name:     envOr("SEED_MANAGER_NAME", "Manager"),
		Email:    email,
		Password: hashed,
		Role:     models.RoleManager,
		IsActive: true,
	}
	if err := db.Create(&manager).Error; err != nil {
		log.Fatalf("Failed to seed manager: %v", err)
	}

	log.Printf("Seeded first manager: %s", manager.Email)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
