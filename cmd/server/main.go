package main

import (
	"log"

	"github.com/dharmikvarsani/task-management/internal/config"
	"github.com/dharmikvarsani/task-management/internal/database"
	"github.com/dharmikvarsani/task-management/internal/realtime"
	"github.com/dharmikvarsani/task-management/internal/routes"

	"github.com/joho/godotenv"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		log.Fatal("Failed to open database: ", err)
	}
	defer database.Close(db)

	hub := realtime.NewHub()
	ginRoutes := routes.Setup(db, hub, cfg.IsProduction())

	port := ":" + cfg.ServerPort
	log.Printf("Server starting on port %s", port)
	log.Println("API endpoints:")
	log.Println("  POST   /api/auth/login")
	log.Println("  GET    /api/auth/me")
	log.Println("  GET    /api/auth/register")
	log.Println("  POST   /api/auth/register")
	log.Println("  GET    /api/auth/register/developers")
	log.Println("  GET    /api/task")
	log.Println("  POST   /api/task")
	log.Println("  PUT    /api/task/:id/status")
	log.Println("  PUT    /api/task/:id/reassign")
	log.Println("  GET    /api/task/team")
	log.Println("  GET    /health")

	if err := ginRoutes.Run(port); err != nil {
		log.Fatal("Failed to start server: ", err)
	}
}
