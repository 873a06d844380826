package routes

import (
	"github.com/dharmikvarsani/task-management/internal/handlers"
	"github.com/dharmikvarsani/task-management/internal/middleware"
	"github.com/dharmikvarsani/task-management/internal/realtime"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Setup wires all endpoints over the given database handle and realtime hub.
func Setup(db *gorm.DB, hub *realtime.Hub, secureCookies bool) *gin.Engine {
	ginRouter := gin.Default()

	// CORS middleware (for frontend integration)
	ginRouter.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	authHandler := handlers.NewAuthHandler(db, secureCookies)
	userHandler := handlers.NewUserHandler(db)
	taskHandler := handlers.NewTaskHandler(db, hub)
	wsHandler := handlers.NewWSHandler(hub)

	// Health check endpoint
	ginRouter.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "Task tracker API is running",
		})
	})

	api := ginRouter.Group("/api")

	// Public routes (no authentication required)
	api.POST("/auth/login", authHandler.Login)
	api.GET("/auth/me", authHandler.Me)

	// Protected routes (authentication required)
	protected := api.Group("")
	protected.Use(middleware.SessionAuth())
	{
		// User endpoints. The literal "developers" segment must be declared
		// before the :id param route matches it.
		protected.GET("/auth/register/developers", userHandler.GetDevelopers)
		protected.GET("/auth/register", userHandler.ListUsers)
		protected.POST("/auth/register", userHandler.Register)
		protected.GET("/auth/register/:id", userHandler.GetUser)
		protected.PUT("/auth/register/:id", userHandler.UpdateUser)
		protected.DELETE("/auth/register/:id", userHandler.DeleteUser)

		// Task endpoints
		protected.GET("/task/team", taskHandler.GetTeam)
		protected.POST("/task", taskHandler.CreateTask)
		protected.GET("/task", taskHandler.ListTasks)
		protected.GET("/task/:id", taskHandler.GetTaskByID)
		protected.PUT("/task/:id", taskHandler.UpdateTask)
		protected.DELETE("/task/:id", taskHandler.DeleteTask)
		protected.PUT("/task/:id/status", taskHandler.UpdateTaskStatus)
		protected.PUT("/task/:id/reassign", taskHandler.ReassignTask)

		// Realtime event feed
		protected.GET("/ws", wsHandler.Subscribe)
	}

	return ginRouter
}
