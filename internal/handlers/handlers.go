package handlers

import (
	"log"
	"math"
	"net/http"
	"time"

	"github.com/dharmikvarsani/task-management/internal/apperrors"
	"github.com/dharmikvarsani/task-management/internal/models"

	"github.com/gin-gonic/gin"
)

// respondError maps a domain error onto its HTTP shape. Unexpected errors are
// logged here and surfaced as a generic 500.
func respondError(c *gin.Context, err error) {
	httpErr := apperrors.Map(err)
	if httpErr.StatusCode == http.StatusInternalServerError {
		log.Printf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(httpErr.StatusCode, httpErr.ToErrorResponse())
}

// UserSummary is the safe projection of a user returned in rosters and task
// enrichment. Never includes the password hash.
type UserSummary struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Email string      `json:"email"`
	Role  models.Role `json:"role"`
}

func summarize(u *models.User) UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

// TaskView is a task enriched with assignor/assignee display data and the
// derived completion time.
type TaskView struct {
	ID                 string              `json:"id"`
	Title              string              `json:"title"`
	Description        string              `json:"description"`
	AssignedBy         string              `json:"assignedBy"`
	AssignedByName     string              `json:"assignedByName"`
	AssignedTo         string              `json:"assignedTo"`
	AssignedToName     string              `json:"assignedToName"`
	AssigneeRole       models.Role         `json:"assigneeRole"`
	Priority           models.TaskPriority `json:"priority"`
	Status             models.TaskStatus   `json:"status"`
	AssignedDate       time.Time           `json:"assignedDate"`
	TargetDeliveryDate time.Time           `json:"targetDeliveryDate"`
	ActualDeliveryDate *time.Time          `json:"actualDeliveryDate,omitempty"`
	TimeTakenDays      *int                `json:"timeTakenDays"`
	Version            int                 `json:"version"`
}

// timeTakenDays returns ceil(actual-assigned in days) once a task completed,
// nil otherwise.
func timeTakenDays(t *models.Task) *int {
	if t.ActualDeliveryDate == nil {
		return nil
	}
	days := int(math.Ceil(t.ActualDeliveryDate.Sub(t.AssignedDate).Hours() / 24))
	return &days
}

// viewTask builds a TaskView using the given user lookup.
func viewTask(t *models.Task, userByID map[string]models.User) TaskView {
	v := TaskView{
		ID:                 t.ID,
		Title:              t.Title,
		Description:        t.Description,
		AssignedBy:         t.AssignedByID,
		AssignedTo:         t.AssignedToID,
		Priority:           t.Priority,
		Status:             t.Status,
		AssignedDate:       t.AssignedDate,
		TargetDeliveryDate: t.TargetDeliveryDate,
		ActualDeliveryDate: t.ActualDeliveryDate,
		TimeTakenDays:      timeTakenDays(t),
		Version:            t.Version,
	}
	if u, ok := userByID[t.AssignedByID]; ok {
		v.AssignedByName = u.Name
	}
	if u, ok := userByID[t.AssignedToID]; ok {
		v.AssignedToName = u.Name
		v.AssigneeRole = u.Role
	}
	return v
}
