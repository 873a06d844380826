package testutil

import (
	"time"

	"github.com/dharmikvarsani/task-management/internal/database"
	"github.com/dharmikvarsani/task-management/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewInMemoryDB creates an in-memory SQLite DB and runs migrations.
func NewInMemoryDB() (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// SeedUser inserts a user with the given role and returns it. The password
// column holds a throwaway hash; tests that exercise login seed their own.
func SeedUser(db *gorm.DB, name string, role models.Role, teamLeadID *string) *models.User {
	user := &models.User{
		ID:         uuid.New().String(),
		Name:       name,
		Email:      name + "@example.com",
		Password:   "x",
		Role:       role,
		TeamLeadID: teamLeadID,
		IsActive:   true,
	}
	if err := db.Create(user).Error; err != nil {
		panic(err)
	}
	return user
}

// SeedTask inserts a task assigned by manager to assignee with sane dates.
func SeedTask(db *gorm.DB, assignedBy, assignedTo string) *models.Task {
	task := &models.Task{
		ID:                 uuid.New().String(),
		Title:              "Seeded task",
		Description:        "seeded",
		AssignedByID:       assignedBy,
		AssignedToID:       assignedTo,
		Priority:           models.PriorityMedium,
		Status:             models.StatusInProgress,
		AssignedDate:       time.Now().Add(-24 * time.Hour),
		TargetDeliveryDate: time.Now().Add(72 * time.Hour),
		Version:            1,
	}
	if err := db.Create(task).Error; err != nil {
		panic(err)
	}
	return task
}
