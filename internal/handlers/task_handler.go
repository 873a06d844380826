package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dharmikvarsani/task-management/internal/apperrors"
	"github.com/dharmikvarsani/task-management/internal/auth"
	"github.com/dharmikvarsani/task-management/internal/authz"
	"github.com/dharmikvarsani/task-management/internal/middleware"
	"github.com/dharmikvarsani/task-management/internal/models"
	"github.com/dharmikvarsani/task-management/internal/realtime"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TaskHandler serves the task workflow endpoints. It holds the database
// handle and the realtime hub used to notify a task's participants.
type TaskHandler struct {
	db  *gorm.DB
	hub *realtime.Hub
}

// NewTaskHandler creates a TaskHandler. hub may be nil when no realtime feed
// is wired (tests).
func NewTaskHandler(db *gorm.DB, hub *realtime.Hub) *TaskHandler {
	return &TaskHandler{db: db, hub: hub}
}

// CreateTaskRequest represents the payload for creating a task.
type CreateTaskRequest struct {
	Title              string              `json:"title" binding:"required,min=2"`
	Description        string              `json:"description"`
	AssignedTo         string              `json:"assignedTo" binding:"required"`
	Priority           models.TaskPriority `json:"priority" binding:"required"`
	AssignedDate       string              `json:"assignedDate" binding:"required"`
	TargetDeliveryDate string              `json:"targetDeliveryDate" binding:"required"`
}

// UpdateTaskRequest represents a partial manager update. Version, when
// supplied, is the optimistic-concurrency stamp the client last read.
type UpdateTaskRequest struct {
	Title              *string              `json:"title"`
	Description        *string              `json:"description"`
	Priority           *models.TaskPriority `json:"priority"`
	AssignedDate       *string              `json:"assignedDate"`
	TargetDeliveryDate *string              `json:"targetDeliveryDate"`
	Status             *models.TaskStatus   `json:"status"`
	Version            *int                 `json:"version"`
}

// UpdateTaskStatusRequest represents a status transition.
type UpdateTaskStatusRequest struct {
	Status  models.TaskStatus `json:"status" binding:"required"`
	Note    string            `json:"note"`
	Version *int              `json:"version"`
}

// ReassignTaskRequest represents a tl handing a task to one of their developers.
type ReassignTaskRequest struct {
	DeveloperID string `json:"developerId" binding:"required"`
	Version     *int   `json:"version"`
}

func parseDateFlexible(dateStr string) (time.Time, bool) {
	if dateStr == "" {
		return time.Time{}, false
	}
	layouts := []string{
		"2006-01-02", // ISO date
		time.RFC3339, // full RFC3339
		"2 Jan 2006",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, dateStr); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// loadTask fetches a task or maps the miss to NotFound.
func (h *TaskHandler) loadTask(id string) (*models.Task, error) {
	var task models.Task
	if err := h.db.Where("id = ?", id).First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &task, nil
}

// developerIDs returns the ids of all developers reporting to the given tl.
func (h *TaskHandler) developerIDs(tlID string) ([]string, error) {
	var ids []string
	err := h.db.Model(&models.User{}).
		Where("role = ? AND team_lead_id = ?", models.RoleDeveloper, tlID).
		Pluck("id", &ids).Error
	return ids, err
}

// canView reports whether the identity may read the task: manager always, tl
// for self-assigned tasks and tasks of their own developers, developer only
// for self-assigned tasks.
func (h *TaskHandler) canView(ident *auth.Claims, task *models.Task) (bool, error) {
	switch ident.Role {
	case models.RoleManager:
		return true, nil
	case models.RoleTL:
		if task.AssignedToID == ident.UserID {
			return true, nil
		}
		devIDs, err := h.developerIDs(ident.UserID)
		if err != nil {
			return false, err
		}
		for _, id := range devIDs {
			if task.AssignedToID == id {
				return true, nil
			}
		}
		return false, nil
	default:
		return task.AssignedToID == ident.UserID, nil
	}
}

// userMap loads the users backing a set of tasks for response enrichment.
func (h *TaskHandler) userMap(tasks []models.Task) (map[string]models.User, error) {
	idSet := make(map[string]struct{}, len(tasks)*2)
	for i := range tasks {
		idSet[tasks[i].AssignedByID] = struct{}{}
		idSet[tasks[i].AssignedToID] = struct{}{}
	}
	ids := make([]string, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}

	byID := make(map[string]models.User, len(ids))
	if len(ids) == 0 {
		return byID, nil
	}
	var users []models.User
	if err := h.db.Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		byID[u.ID] = u
	}
	return byID, nil
}

// mutate applies column updates guarded by the version stamp and appends the
// history entry in the same transaction. Zero rows affected means another
// request won the race.
func (h *TaskHandler) mutate(task *models.Task, expectedVersion int, updates map[string]any, entry models.HistoryEntry) error {
	return h.db.Transaction(func(tx *gorm.DB) error {
		updates["version"] = expectedVersion + 1
		res := tx.Model(&models.Task{}).
			Where("id = ? AND version = ?", task.ID, expectedVersion).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.ErrStaleVersion
		}

		entry.TaskID = task.ID
		if entry.At.IsZero() {
			entry.At = time.Now()
		}
		return tx.Create(&entry).Error
	})
}

func (h *TaskHandler) publish(evtType string, task *models.Task, actorID string, extra ...string) {
	if h.hub == nil {
		return
	}
	targets := append([]string{task.AssignedByID, task.AssignedToID}, extra...)
	h.hub.Publish(realtime.Event{Type: evtType, TaskID: task.ID, ActorID: actorID}, targets...)
}

// CreateTask handles POST /api/task (manager only).
// The assignee must be a team lead; a "created" history entry is appended.
func (h *TaskHandler) CreateTask(c *gin.Context) {
	ident := middleware.Identity(c)
	if ident == nil {
		respondError(c, apperrors.ErrUnauthorized)
		return
	}
	if err := authz.RequireCapability(ident.Role, authz.CapCreateTask); err != nil {
		respondError(c, err)
		return
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.NewValidation("Invalid data: %s", err.Error()))
		return
	}

	if !req.Priority.Valid() {
		respondError(c, apperrors.NewValidation("Invalid priority"))
		return
	}
	assignedDate, ok := parseDateFlexible(req.AssignedDate)
	if !ok {
		respondError(c, apperrors.NewValidation("Invalid assignedDate"))
		return
	}
	targetDate, ok := parseDateFlexible(req.TargetDeliveryDate)
	if !ok {
		respondError(c, apperrors.NewValidation("Invalid targetDeliveryDate"))
		return
	}

	var tl models.User
	if err := h.db.Where("id = ?", req.AssignedTo).First(&tl).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, apperrors.NewValidation("assignedTo must be a team leader"))
		} else {
			respondError(c, err)
		}
		return
	}
	if tl.Role != models.RoleTL {
		respondError(c, apperrors.NewValidation("assignedTo must be a team leader"))
		return
	}

	task := models.Task{
		ID:                 uuid.New().String(),
		Title:              req.Title,
		Description:        req.Description,
		AssignedByID:       ident.UserID,
		AssignedToID:       tl.ID,
		Priority:           req.Priority,
		Status:             models.StatusInProgress,
		AssignedDate:       assignedDate,
		TargetDeliveryDate: targetDate,
		Version:            1,
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&task).Error; err != nil {
			return err
		}
		entry := models.HistoryEntry{
			TaskID: task.ID,
			At:     time.Now(),
			Action: models.ActionCreated,
			FromID: &task.AssignedByID,
			ToID:   &task.AssignedToID,
		}
		return tx.Create(&entry).Error
	})
	if err != nil {
		respondError(c, err)
		return
	}

	h.publish("task_created", &task, ident.UserID)

	c.JSON(http.StatusCreated, gin.H{
		"message": "Task created successfully",
		"id":      task.ID,
	})
}

// ListTasks handles GET /api/task.
// Managers see everything, a tl sees self-assigned tasks plus those of their
// developers, a developer sees only self-assigned tasks. Optional ?status=.
func (h *TaskHandler) ListTasks(c *gin.Context) {
	ident := middleware.Identity(c)
	if ident == nil {
		respondError(c, apperrors.ErrUnauthorized)
		return
	}

	query := h.db.Model(&models.Task{})
	switch ident.Role {
	case models.RoleManager:
		// no scope restriction
	case models.RoleTL:
		devIDs, err := h.developerIDs(ident.UserID)
		if err != nil {
			respondError(c, err)
			return
		}
		scope := append([]string{ident.UserID}, devIDs...)
		query = query.Where("assigned_to_id IN ?", scope)
	default:
		query = query.Where("assigned_to_id = ?", ident.UserID)
	}

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var tasks []models.Task
	if err := query.Order("updated_at desc").Find(&tasks).Error; err != nil {
		respondError(c, err)
		return
	}

	userByID, err := h.userMap(tasks)
	if err != nil {
		respondError(c, err)
		return
	}

	views := make([]TaskView, 0, len(tasks))
	for i := range tasks {
		views = append(views, viewTask(&tasks[i], userByID))
	}

	c.JSON(http.StatusOK, gin.H{
		"tasks": views,
		"count": len(views),
	})
}

// GetTaskByID handles GET /api/task/:id, scoped like ListTasks. The response
// includes the full history log in append order.
func (h *TaskHandler) GetTaskByID(c *gin.Context) {
	ident := middleware.Identity(c)
	if ident == nil {
		respondError(c, apperrors.ErrUnauthorized)
		return
	}

	task, err := h.loadTask(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	visible, err := h.canView(ident, task)
	if err != nil {
		respondError(c, err)
		return
	}
	if !visible {
		respondError(c, apperrors.ErrForbidden)
		return
	}

	var history []models.HistoryEntry
	if err := h.db.Where("task_id = ?", task.ID).Order("id asc").Find(&history).Error; err != nil {
		respondError(c, err)
		return
	}

	userByID, err := h.userMap([]models.Task{*task})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"task":    viewTask(task, userByID),
		"history": history,
	})
}

// UpdateTask handles PUT /api/task/:id (manager only).
// Applies any subset of title/description/priority/assignedDate/
// targetDeliveryDate/status and appends an "updated" history entry.
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	ident := middleware.Identity(c)
	if ident == nil {
		respondError(c, apperrors.ErrUnauthorized)
		return
	}
	if err := authz.RequireCapability(ident.Role, authz.CapUpdateTask); err != nil {
		respondError(c, err)
		return
	}

	task, err := h.loadTask(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.NewValidation("Invalid request body"))
		return
	}

	updates := make(map[string]any)
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Priority != nil {
		if !req.Priority.Valid() {
			respondError(c, apperrors.NewValidation("Invalid priority"))
			return
		}
		updates["priority"] = *req.Priority
	}
	if req.AssignedDate != nil {
		d, ok := parseDateFlexible(*req.AssignedDate)
		if !ok {
			respondError(c, apperrors.NewValidation("Invalid assignedDate"))
			return
		}
		updates["assigned_date"] = d
	}
	if req.TargetDeliveryDate != nil {
		d, ok := parseDateFlexible(*req.TargetDeliveryDate)
		if !ok {
			respondError(c, apperrors.NewValidation("Invalid targetDeliveryDate"))
			return
		}
		updates["target_delivery_date"] = d
	}
	if req.Status != nil {
		if !req.Status.Valid() {
			respondError(c, apperrors.NewValidation("Invalid status"))
			return
		}
		updates["status"] = *req.Status
		// First completion stamps the delivery date; never overwritten after.
		if *req.Status == models.StatusCompleted && task.ActualDeliveryDate == nil {
			updates["actual_delivery_date"] = time.Now()
		}
	}

	expected := task.Version
	if req.Version != nil {
		expected = *req.Version
	}

	entry := models.HistoryEntry{
		Action: models.ActionUpdated,
		FromID: &ident.UserID,
		Note:   "Task updated by manager",
	}
	if err := h.mutate(task, expected, updates, entry); err != nil {
		respondError(c, err)
		return
	}

	updated, err := h.loadTask(task.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	h.publish("task_updated", updated, ident.UserID)

	c.JSON(http.StatusOK, gin.H{
		"message": "Task updated successfully",
		"task":    updated,
	})
}

// UpdateTaskStatus handles PUT /api/task/:id/status (tl or developer, on the
// task currently assigned to them).
func (h *TaskHandler) UpdateTaskStatus(c *gin.Context) {
	ident := middleware.Identity(c)
	if ident == nil {
		respondError(c, apperrors.ErrUnauthorized)
		return
	}
	if err := authz.RequireCapability(ident.Role, authz.CapChangeStatus); err != nil {
		respondError(c, err)
		return
	}

	var req UpdateTaskStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.NewValidation("Invalid data"))
		return
	}
	if !req.Status.Valid() {
		respondError(c, apperrors.NewValidation("Invalid status"))
		return
	}

	task, err := h.loadTask(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	if task.AssignedToID != ident.UserID {
		respondError(c, apperrors.ErrForbidden)
		return
	}

	prevStatus := task.Status
	updates := map[string]any{"status": req.Status}
	if req.Status == models.StatusCompleted && task.ActualDeliveryDate == nil {
		updates["actual_delivery_date"] = time.Now()
	}

	expected := task.Version
	if req.Version != nil {
		expected = *req.Version
	}

	note := req.Note
	if note == "" {
		note = fmt.Sprintf("Status changed from %s to %s", prevStatus, req.Status)
	}
	entry := models.HistoryEntry{
		Action:     models.ActionStatusChanged,
		FromID:     &ident.UserID,
		ToID:       &task.AssignedToID,
		StatusFrom: string(prevStatus),
		StatusTo:   string(req.Status),
		Note:       note,
	}
	if err := h.mutate(task, expected, updates, entry); err != nil {
		respondError(c, err)
		return
	}

	h.publish("task_status_changed", task, ident.UserID)

	c.JSON(http.StatusOK, gin.H{"message": "Task status updated successfully"})
}

// ReassignTask handles PUT /api/task/:id/reassign (tl only).
// The task must currently be assigned to the requesting tl and the target
// must be a developer reporting to them.
func (h *TaskHandler) ReassignTask(c *gin.Context) {
	ident := middleware.Identity(c)
	if ident == nil {
		respondError(c, apperrors.ErrUnauthorized)
		return
	}
	if err := authz.RequireCapability(ident.Role, authz.CapReassignTask); err != nil {
		respondError(c, err)
		return
	}

	var req ReassignTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.NewValidation("Invalid data"))
		return
	}

	task, err := h.loadTask(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	if task.AssignedToID != ident.UserID {
		respondError(c, apperrors.ErrForbidden)
		return
	}

	var developer models.User
	if err := h.db.Where("id = ?", req.DeveloperID).First(&developer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, apperrors.NewValidation("Invalid developer"))
		} else {
			respondError(c, err)
		}
		return
	}
	if developer.Role != models.RoleDeveloper ||
		developer.TeamLeadID == nil || *developer.TeamLeadID != ident.UserID {
		respondError(c, apperrors.NewValidation("Invalid developer"))
		return
	}

	expected := task.Version
	if req.Version != nil {
		expected = *req.Version
	}

	entry := models.HistoryEntry{
		Action: models.ActionReassigned,
		FromID: &ident.UserID,
		ToID:   &developer.ID,
		Note:   "TL reassigned task to developer",
	}
	updates := map[string]any{"assigned_to_id": developer.ID}
	if err := h.mutate(task, expected, updates, entry); err != nil {
		respondError(c, err)
		return
	}

	task.AssignedToID = developer.ID
	h.publish("task_reassigned", task, ident.UserID, ident.UserID)

	c.JSON(http.StatusOK, gin.H{"message": "Task reassigned successfully"})
}

// DeleteTask handles DELETE /api/task/:id (manager only).
// Hard delete; the history log is discarded with the task.
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	ident := middleware.Identity(c)
	if ident == nil {
		respondError(c, apperrors.ErrUnauthorized)
		return
	}
	if err := authz.RequireCapability(ident.Role, authz.CapDeleteTask); err != nil {
		respondError(c, err)
		return
	}

	task, err := h.loadTask(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", task.ID).Delete(&models.HistoryEntry{}).Error; err != nil {
			return err
		}
		return tx.Delete(task).Error
	})
	if err != nil {
		respondError(c, err)
		return
	}

	h.publish("task_deleted", task, ident.UserID)

	c.JSON(http.StatusOK, gin.H{
		"message": "Task deleted successfully",
		"id":      task.ID,
	})
}

// GetTeam handles GET /api/task/team.
// Manager: everyone. TL: their developers. Developer: their tl and teammates.
func (h *TaskHandler) GetTeam(c *gin.Context) {
	ident := middleware.Identity(c)
	if ident == nil {
		respondError(c, apperrors.ErrUnauthorized)
		return
	}

	var team []models.User
	switch ident.Role {
	case models.RoleManager:
		if err := h.db.Find(&team).Error; err != nil {
			respondError(c, err)
			return
		}
	case models.RoleTL:
		if err := h.db.Where("team_lead_id = ?", ident.UserID).Find(&team).Error; err != nil {
			respondError(c, err)
			return
		}
	default:
		var self models.User
		if err := h.db.Where("id = ?", ident.UserID).First(&self).Error; err != nil {
			respondError(c, err)
			return
		}
		if self.TeamLeadID != nil {
			var tl models.User
			if err := h.db.Where("id = ?", *self.TeamLeadID).First(&tl).Error; err == nil {
				team = append(team, tl)
			}
			var mates []models.User
			if err := h.db.Where("team_lead_id = ?", *self.TeamLeadID).Find(&mates).Error; err != nil {
				respondError(c, err)
				return
			}
			team = append(team, mates...)
		}
	}

	resp := make([]UserSummary, 0, len(team))
	for i := range team {
		resp = append(resp, summarize(&team[i]))
	}

	c.JSON(http.StatusOK, gin.H{"team": resp})
}
