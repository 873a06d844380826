package handlers

import (
	"net/http"
	"testing"

	"github.com/dharmikvarsani/task-management/internal/models"
	"github.com/dharmikvarsani/task-management/internal/testutil"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func loadTask(t *testing.T, db *gorm.DB, id string) *models.Task {
	t.Helper()
	var task models.Task
	require.NoError(t, db.Where("id = ?", id).First(&task).Error)
	return &task
}

func TestCreateTask_ManagerAssignsToTL(t *testing.T) {
	db, r := newTestEnv(t)
	manager := testutil.SeedUser(db, "manager", models.RoleManager, nil)
	tl := testutil.SeedUser(db, "lead", models.RoleTL, nil)

	w := doJSON(t, r, http.MethodPost, "/api/task", map[string]any{
		"title":              "Build importer",
		"description":        "CSV importer for the billing team",
		"assignedTo":         tl.ID,
		"priority":           "High",
		"assignedDate":       "2025-01-01",
		"targetDeliveryDate": "2025-01-15",
	}, manager)
	require.Equal(t, http.StatusCreated, w.Code)

	taskID := decodeBody(t, w)["id"].(string)
	task := loadTask(t, db, taskID)
	require.Equal(t, models.StatusInProgress, task.Status) // documented default
	require.Equal(t, tl.ID, task.AssignedToID)
	require.Equal(t, manager.ID, task.AssignedByID)
	require.Equal(t, 1, task.Version)

	var entries []models.HistoryEntry
	require.NoError(t, db.Where("task_id = ?", taskID).Find(&entries).Error)
	require.Len(t, entries, 1)
	require.Equal(t, models.ActionCreated, entries[0].Action)
}

func TestCreateTask_AssigneeMustBeTL(t *testing.T) {
	db, r := newTestEnv(t)
	manager := testutil.SeedUser(db, "manager", models.RoleManager, nil)
	tl := testutil.SeedUser(db, "lead", models.RoleTL, nil)
	dev := testutil.SeedUser(db, "dev", models.RoleDeveloper, &tl.ID)

	w := doJSON(t, r, http.MethodPost, "/api/task", map[string]any{
		"title":              "Build importer",
		"assignedTo":         dev.ID,
		"priority":           "Low",
		"assignedDate":       "2025-01-01",
		"targetDeliveryDate": "2025-01-15",
	}, manager)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateTask_TLForbidden(t *testing.T) {
	db, r := newTestEnv(t)
	tl := testutil.SeedUser(db, "lead", models.RoleTL, nil)

	w := doJSON(t, r, http.MethodPost, "/api/task", map[string]any{
		"title":              "Not allowed",
		"assignedTo":         tl.ID,
		"priority":           "Low",
		"assignedDate":       "2025-01-01",
		"targetDeliveryDate": "2025-01-15",
	}, tl)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestListTasks_RoleScoping(t *testing.T) {
	db, r := newTestEnv(t)
	manager := testutil.SeedUser(db, "manager", models.RoleManager, nil)
	tl1 := testutil.SeedUser(db, "lead1", models.RoleTL, nil)
	tl2 := testutil.SeedUser(db, "lead2", models.RoleTL, nil)
	dev1 := testutil.SeedUser(db, "dev1", models.RoleDeveloper, &tl1.ID)
	dev2 := testutil.SeedUser(db, "dev2", models.RoleDeveloper, &tl2.ID)

	testutil.SeedTask(db, manager.ID, tl1.ID)
	testutil.SeedTask(db, manager.ID, dev1.ID)
	testutil.SeedTask(db, manager.ID, tl2.ID)
	testutil.SeedTask(db, manager.ID, dev2.ID)

	w := doJSON(t, r, http.MethodGet, "/api/task", nil, manager)
	require.Equal(t, http.StatusOK, w.Code)
	require.EqualValues(t, 4, decodeBody(t, w)["count"])

	// tl1: own task plus dev1's task
	w = doJSON(t, r, http.MethodGet, "/api/task", nil, tl1)
	require.Equal(t, http.StatusOK, w.Code)
	require.EqualValues(t, 2, decodeBody(t, w)["count"])

	// dev1: only self-assigned
	w = doJSON(t, r, http.MethodGet, "/api/task", nil, dev1)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	require.EqualValues(t, 1, body["count"])
	only := body["tasks"].([]any)[0].(map[string]any)
	require.Equal(t, dev1.ID, only["assignedTo"])
	require.Nil(t, only["timeTakenDays"])
}

func TestReassignTask_TLToOwnDeveloper(t *testing.T) {
	db, r := newTestEnv(t)
	manager := testutil.SeedUser(db, "manager", models.RoleManager, nil)
	tl := testutil.SeedUser(db, "lead", models.RoleTL, nil)
	dev := testutil.SeedUser(db, "dev", models.RoleDeveloper, &tl.ID)
	task := testutil.SeedTask(db, manager.ID, tl.ID)

	w := doJSON(t, r, http.MethodPut, "/api/task/"+task.ID+"/reassign",
		map[string]any{"developerId": dev.ID}, tl)
	require.Equal(t, http.StatusOK, w.Code)

	updated := loadTask(t, db, task.ID)
	require.Equal(t, dev.ID, updated.AssignedToID)
	require.Equal(t, task.Version+1, updated.Version)

	var entries []models.HistoryEntry
	require.NoError(t, db.Where("task_id = ?", task.ID).Order("id asc").Find(&entries).Error)
	require.Len(t, entries, 1)
	require.Equal(t, models.ActionReassigned, entries[0].Action)
	require.Equal(t, tl.ID, *entries[0].FromID)
	require.Equal(t, dev.ID, *entries[0].ToID)
}

func TestReassignTask_NotOwnTaskForbidden(t *testing.T) {
	db, r := newTestEnv(t)
	manager := testutil.SeedUser(db, "manager", models.RoleManager, nil)
	tl1 := testutil.SeedUser(db, "lead1", models.RoleTL, nil)
	tl2 := testutil.SeedUser(db, "lead2", models.RoleTL, nil)
	dev2 := testutil.SeedUser(db, "dev2", models.RoleDeveloper, &tl2.ID)
	task := testutil.SeedTask(db, manager.ID, tl1.ID)

	w := doJSON(t, r, http.MethodPut, "/api/task/"+task.ID+"/reassign",
		map[string]any{"developerId": dev2.ID}, tl2)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestReassignTask_ForeignDeveloperRejected(t *testing.T) {
	db, r := newTestEnv(t)
	manager := testutil.SeedUser(db, "manager", models.RoleManager, nil)
	tl1 := testutil.SeedUser(db, "lead1", models.RoleTL, nil)
	tl2 := testutil.SeedUser(db, "lead2", models.RoleTL, nil)
	dev2 := testutil.SeedUser(db, "dev2", models.RoleDeveloper, &tl2.ID)
	task := testutil.SeedTask(db, manager.ID, tl1.ID)

	w := doJSON(t, r, http.MethodPut, "/api/task/"+task.ID+"/reassign",
		map[string]any{"developerId": dev2.ID}, tl1)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateTaskStatus_CompletionStampsDeliveryDateOnce(t *testing.T) {
	db, r := newTestEnv(t)
	manager := testutil.SeedUser(db, "manager", models.RoleManager, nil)
	tl := testutil.SeedUser(db, "lead", models.RoleTL, nil)
	task := testutil.SeedTask(db, manager.ID, tl.ID)

	w := doJSON(t, r, http.MethodPut, "/api/task/"+task.ID+"/status",
		map[string]any{"status": "Completed"}, tl)
	require.Equal(t, http.StatusOK, w.Code)

	completed := loadTask(t, db, task.ID)
	require.Equal(t, models.StatusCompleted, completed.Status)
	require.NotNil(t, completed.ActualDeliveryDate)
	firstStamp := *completed.ActualDeliveryDate

	// Completing again must not move the stamp
	w = doJSON(t, r, http.MethodPut, "/api/task/"+task.ID+"/status",
		map[string]any{"status": "Completed"}, tl)
	require.Equal(t, http.StatusOK, w.Code)

	again := loadTask(t, db, task.ID)
	require.NotNil(t, again.ActualDeliveryDate)
	require.True(t, firstStamp.Equal(*again.ActualDeliveryDate))
}

func TestUpdateTaskStatus_HistoryAppendOnly(t *testing.T) {
	db, r := newTestEnv(t)
	manager := testutil.SeedUser(db, "manager", models.RoleManager, nil)
	tl := testutil.SeedUser(db, "lead", models.RoleTL, nil)
	task := testutil.SeedTask(db, manager.ID, tl.ID)

	before := historyCount(t, db, task.ID)
	statuses := []string{"R&D Phase", "In Progress", "Completed"}
	for _, s := range statuses {
		w := doJSON(t, r, http.MethodPut, "/api/task/"+task.ID+"/status",
			map[string]any{"status": s}, tl)
		require.Equal(t, http.StatusOK, w.Code)

		after := historyCount(t, db, task.ID)
		require.Equal(t, before+1, after)
		before = after
	}

	var entries []models.HistoryEntry
	require.NoError(t, db.Where("task_id = ?", task.ID).Order("id asc").Find(&entries).Error)
	require.Equal(t, "In Progress", entries[0].StatusFrom)
	require.Equal(t, "R&D Phase", entries[0].StatusTo)
}

func TestUpdateTaskStatus_NotAssigneeForbidden(t *testing.T) {
	db, r := newTestEnv(t)
	manager := testutil.SeedUser(db, "manager", models.RoleManager, nil)
	tl := testutil.SeedUser(db, "lead", models.RoleTL, nil)
	dev := testutil.SeedUser(db, "dev", models.RoleDeveloper, &tl.ID)
	task := testutil.SeedTask(db, manager.ID, tl.ID)

	w := doJSON(t, r, http.MethodPut, "/api/task/"+task.ID+"/status",
		map[string]any{"status": "Completed"}, dev)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestUpdateTaskStatus_InvalidStatus(t *testing.T) {
	db, r := newTestEnv(t)
	manager := testutil.SeedUser(db, "manager", models.RoleManager, nil)
	tl := testutil.SeedUser(db, "lead", models.RoleTL, nil)
	task := testutil.SeedTask(db, manager.ID, tl.ID)

	w := doJSON(t, r, http.MethodPut, "/api/task/"+task.ID+"/status",
		map[string]any{"status": "Shipped"}, tl)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateTask_ManagerPartialUpdate(t *testing.T) {
	db, r := newTestEnv(t)
	manager := testutil.SeedUser(db, "manager", models.RoleManager, nil)
	tl := testutil.SeedUser(db, "lead", models.RoleTL, nil)
	task := testutil.SeedTask(db, manager.ID, tl.ID)

	w := doJSON(t, r, http.MethodPut, "/api/task/"+task.ID, map[string]any{
		"title":    "Renamed",
		"priority": "Low",
	}, manager)
	require.Equal(t, http.StatusOK, w.Code)

	updated := loadTask(t, db, task.ID)
	require.Equal(t, "Renamed", updated.Title)
	require.Equal(t, models.PriorityLow, updated.Priority)
	require.Equal(t, "seeded", updated.Description) // untouched field survives

	var entries []models.HistoryEntry
	require.NoError(t, db.Where("task_id = ?", task.ID).Find(&entries).Error)
	require.Len(t, entries, 1)
	require.Equal(t, models.ActionUpdated, entries[0].Action)
}

func TestUpdateTask_StaleVersionConflict(t *testing.T) {
	db, r := newTestEnv(t)
	manager := testutil.SeedUser(db, "manager", models.RoleManager, nil)
	tl := testutil.SeedUser(db, "lead", models.RoleTL, nil)
	task := testutil.SeedTask(db, manager.ID, tl.ID)

	// First writer bumps the version
	w := doJSON(t, r, http.MethodPut, "/api/task/"+task.ID, map[string]any{
		"title": "First writer", "version": 1,
	}, manager)
	require.Equal(t, http.StatusOK, w.Code)

	// Second writer still holds version 1
	w = doJSON(t, r, http.MethodPut, "/api/task/"+task.ID, map[string]any{
		"title": "Second writer", "version": 1,
	}, manager)
	require.Equal(t, http.StatusConflict, w.Code)

	require.Equal(t, "First writer", loadTask(t, db, task.ID).Title)
}

func TestDeleteTask_RemovesHistory(t *testing.T) {
	db, r := newTestEnv(t)
	manager := testutil.SeedUser(db, "manager", models.RoleManager, nil)
	tl := testutil.SeedUser(db, "lead", models.RoleTL, nil)
	task := testutil.SeedTask(db, manager.ID, tl.ID)

	w := doJSON(t, r, http.MethodPut, "/api/task/"+task.ID+"/status",
		map[string]any{"status": "Completed"}, tl)
	require.Equal(t, http.StatusOK, w.Code)
	require.EqualValues(t, 1, historyCount(t, db, task.ID))

	w = doJSON(t, r, http.MethodDelete, "/api/task/"+task.ID, nil, manager)
	require.Equal(t, http.StatusOK, w.Code)

	var count int64
	require.NoError(t, db.Model(&models.Task{}).Where("id = ?", task.ID).Count(&count).Error)
	require.EqualValues(t, 0, count)
	require.EqualValues(t, 0, historyCount(t, db, task.ID))
}

func TestDeleteTask_NonManagerForbidden(t *testing.T) {
	db, r := newTestEnv(t)
	manager := testutil.SeedUser(db, "manager", models.RoleManager, nil)
	tl := testutil.SeedUser(db, "lead", models.RoleTL, nil)
	task := testutil.SeedTask(db, manager.ID, tl.ID)

	w := doJSON(t, r, http.MethodDelete, "/api/task/"+task.ID, nil, tl)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestGetTaskByID_ScopedVisibility(t *testing.T) {
	db, r := newTestEnv(t)
	manager := testutil.SeedUser(db, "manager", models.RoleManager, nil)
	tl1 := testutil.SeedUser(db, "lead1", models.RoleTL, nil)
	tl2 := testutil.SeedUser(db, "lead2", models.RoleTL, nil)
	task := testutil.SeedTask(db, manager.ID, tl1.ID)

	w := doJSON(t, r, http.MethodGet, "/api/task/"+task.ID, nil, tl1)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/task/"+task.ID, nil, tl2)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/task/"+task.ID, nil, manager)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestGetTaskByID_NotFound(t *testing.T) {
	db, r := newTestEnv(t)
	manager := testutil.SeedUser(db, "manager", models.RoleManager, nil)

	w := doJSON(t, r, http.MethodGet, "/api/task/no-such-task", nil, manager)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestListTasks_CompletedTaskHasTimeTaken(t *testing.T) {
	db, r := newTestEnv(t)
	manager := testutil.SeedUser(db, "manager", models.RoleManager, nil)
	tl := testutil.SeedUser(db, "lead", models.RoleTL, nil)
	task := testutil.SeedTask(db, manager.ID, tl.ID)

	w := doJSON(t, r, http.MethodPut, "/api/task/"+task.ID+"/status",
		map[string]any{"status": "Completed"}, tl)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/task", nil, tl)
	require.Equal(t, http.StatusOK, w.Code)

	listed := decodeBody(t, w)["tasks"].([]any)[0].(map[string]any)
	// Seeded assignedDate is 24h in the past, so completion takes ceil(1) day
	require.EqualValues(t, 1, listed["timeTakenDays"])
	require.Equal(t, tl.Name, listed["assignedToName"])
	require.Equal(t, string(models.RoleTL), listed["assigneeRole"])
}

func TestGetTeam_RoleScopes(t *testing.T) {
	db, r := newTestEnv(t)
	manager := testutil.SeedUser(db, "manager", models.RoleManager, nil)
	tl := testutil.SeedUser(db, "lead", models.RoleTL, nil)
	dev1 := testutil.SeedUser(db, "dev1", models.RoleDeveloper, &tl.ID)
	testutil.SeedUser(db, "dev2", models.RoleDeveloper, &tl.ID)

	// Manager sees everyone
	w := doJSON(t, r, http.MethodGet, "/api/task/team", nil, manager)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decodeBody(t, w)["team"].([]any), 4)

	// TL sees their developers
	w = doJSON(t, r, http.MethodGet, "/api/task/team", nil, tl)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decodeBody(t, w)["team"].([]any), 2)

	// Developer sees their tl plus teammates (self included)
	w = doJSON(t, r, http.MethodGet, "/api/task/team", nil, dev1)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decodeBody(t, w)["team"].([]any), 3)
}
