package models

import "time"

// TaskStatus represents the status of a task
type TaskStatus string

const (
	StatusRnD        TaskStatus = "R&D Phase"
	StatusInProgress TaskStatus = "In Progress"
	StatusCompleted  TaskStatus = "Completed"
)

// Valid reports whether s is one of the declared statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusRnD, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// TaskPriority represents the priority of a task
type TaskPriority string

const (
	PriorityHigh   TaskPriority = "High"
	PriorityMedium TaskPriority = "Medium"
	PriorityLow    TaskPriority = "Low"
)

// Valid reports whether p is one of the declared priorities.
func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Task represents a task in the system. AssignedTo must reference a team lead
// at creation time; reassignment later moves it to one of that lead's
// developers. Version is an optimistic-concurrency stamp checked and
// incremented by every mutating call.
type Task struct {
	ID                 string         `json:"id" gorm:"primaryKey"`
	Title              string         `json:"title" gorm:"not null"`
	Description        string         `json:"description"`
	AssignedByID       string         `json:"assignedBy" gorm:"column:assigned_by_id;not null;index"`
	AssignedToID       string         `json:"assignedTo" gorm:"column:assigned_to_id;not null;index"`
	Priority           TaskPriority   `json:"priority" gorm:"not null;default:'Medium'"`
	Status             TaskStatus     `json:"status" gorm:"not null;default:'In Progress';index"`
	AssignedDate       time.Time      `json:"assignedDate" gorm:"column:assigned_date;not null"`
	TargetDeliveryDate time.Time      `json:"targetDeliveryDate" gorm:"column:target_delivery_date;not null"`
	ActualDeliveryDate *time.Time     `json:"actualDeliveryDate,omitempty" gorm:"column:actual_delivery_date"`
	Version            int            `json:"version" gorm:"not null;default:1"`
	History            []HistoryEntry `json:"history,omitempty" gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE"`
	CreatedAt          time.Time      `json:"createdAt"`
	UpdatedAt          time.Time      `json:"updatedAt"`
}

// TableName specifies the table name for Task Model
func (Task) TableName() string {
	return "tasks"
}
