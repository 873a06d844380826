package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dharmikvarsani/task-management/internal/auth"
	"github.com/dharmikvarsani/task-management/internal/middleware"
	"github.com/dharmikvarsani/task-management/internal/models"
	"github.com/dharmikvarsani/task-management/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// newTestEnv builds an in-memory DB and a router with the full API surface,
// mirroring the production route table without the realtime hub.
func newTestEnv(t *testing.T) (*gorm.DB, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)

	authHandler := NewAuthHandler(db, false)
	userHandler := NewUserHandler(db)
	taskHandler := NewTaskHandler(db, nil)

	r := gin.New()
	api := r.Group("/api")
	api.POST("/auth/login", authHandler.Login)
	api.GET("/auth/me", authHandler.Me)

	protected := api.Group("")
	protected.Use(middleware.SessionAuth())
	protected.GET("/auth/register/developers", userHandler.GetDevelopers)
	protected.GET("/auth/register", userHandler.ListUsers)
	protected.POST("/auth/register", userHandler.Register)
	protected.GET("/auth/register/:id", userHandler.GetUser)
	protected.PUT("/auth/register/:id", userHandler.UpdateUser)
	protected.DELETE("/auth/register/:id", userHandler.DeleteUser)
	protected.GET("/task/team", taskHandler.GetTeam)
	protected.POST("/task", taskHandler.CreateTask)
	protected.GET("/task", taskHandler.ListTasks)
	protected.GET("/task/:id", taskHandler.GetTaskByID)
	protected.PUT("/task/:id", taskHandler.UpdateTask)
	protected.DELETE("/task/:id", taskHandler.DeleteTask)
	protected.PUT("/task/:id/status", taskHandler.UpdateTaskStatus)
	protected.PUT("/task/:id/reassign", taskHandler.ReassignTask)

	return db, r
}

// doJSON performs a request as the given user (nil for anonymous) and returns
// the recorder.
func doJSON(t *testing.T, r *gin.Engine, method, path string, body any, as *models.User) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if as != nil {
		token, err := auth.GenerateToken(as)
		require.NoError(t, err)
		req.AddCookie(&http.Cookie{Name: "token", Value: token})
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func historyCount(t *testing.T, db *gorm.DB, taskID string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.HistoryEntry{}).Where("task_id = ?", taskID).Count(&n).Error)
	return n
}
