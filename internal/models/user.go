package models

import "time"

// Role identifies what a user is allowed to do in the system.
type Role string

const (
	RoleManager   Role = "manager"
	RoleTL        Role = "tl"
	RoleDeveloper Role = "developer"
)

// Valid reports whether r is one of the declared roles.
func (r Role) Valid() bool {
	switch r {
	case RoleManager, RoleTL, RoleDeveloper:
		return true
	}
	return false
}

// User represents a user in the system. Password holds the bcrypt hash and is
// never serialized.
type User struct {
	ID         string    `json:"id" gorm:"primaryKey"`
	Name       string    `json:"name" gorm:"not null"`
	Email      string    `json:"email" gorm:"uniqueIndex;not null"`
	Password   string    `json:"-" gorm:"not null"`
	Role       Role      `json:"role" gorm:"not null;index;default:'developer'"`
	TeamLeadID *string   `json:"teamLead,omitempty" gorm:"column:team_lead_id;index"`
	IsActive   bool      `json:"isActive" gorm:"not null;default:true"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// TableName specifies the table name for User Model
func (User) TableName() string {
	return "users"
}
