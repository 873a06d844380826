package models

import "time"

// HistoryAction represents one kind of task lifecycle event.
type HistoryAction string

const (
	ActionCreated       HistoryAction = "created"
	ActionReassigned    HistoryAction = "reassigned"
	ActionStatusChanged HistoryAction = "status_changed"
	ActionUpdated       HistoryAction = "updated"
)

// HistoryEntry is an immutable audit record attached to a task. Rows are only
// ever inserted; they are removed solely by the cascade when their task is
// hard-deleted.
type HistoryEntry struct {
	ID         uint          `json:"id" gorm:"primaryKey;autoIncrement"`
	TaskID     string        `json:"-" gorm:"column:task_id;not null;index"`
	At         time.Time     `json:"at" gorm:"not null"`
	Action     HistoryAction `json:"action" gorm:"not null"`
	FromID     *string       `json:"from,omitempty" gorm:"column:from_id"`
	ToID       *string       `json:"to,omitempty" gorm:"column:to_id"`
	StatusFrom string        `json:"statusFrom,omitempty" gorm:"column:status_from"`
	StatusTo   string        `json:"statusTo,omitempty" gorm:"column:status_to"`
	Note       string        `json:"note,omitempty"`
}

// TableName specifies the table name for HistoryEntry Model
func (HistoryEntry) TableName() string {
	return "task_history"
}
