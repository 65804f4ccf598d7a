// chatd is the offline-development chat backend the mobile client runs
// against: gin HTTP endpoints for tokens and history, a websocket endpoint
// feeding the hub, PostgreSQL-backed history, and Redis pub/sub fan-out.
package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/ronalking182/errand-shop-mobile-app-sub001/internal/api/handler"
	"github.com/ronalking182/errand-shop-mobile-app-sub001/internal/chathub"
	"github.com/ronalking182/errand-shop-mobile-app-sub001/internal/config"
	"github.com/ronalking182/errand-shop-mobile-app-sub001/internal/models"
	"github.com/ronalking182/errand-shop-mobile-app-sub001/internal/storage"
)

func setupDependencies(cfg *config.Config) (*gorm.DB, *redis.Client) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect PostgreSQL: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Fatalf("Failed to connect Redis: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.ChatRoom{},
		&models.ChatHistory{},
	); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Database and Redis connections established, migrations complete.")
	return db, rdb
}

func main() {
	log.Println("Starting errand-shop chat backend...")

	cfg := config.Load()
	db, rdb := setupDependencies(cfg)
	s := storage.NewStorageService(db, rdb)

	hub := chathub.NewHub(s)
	assigner := chathub.NewAssigner(hub, s)

	go hub.Run()
	go assigner.Run()

	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	h := handler.NewHandler(hub, s, cfg.JWTSecret, cfg.AgentKey)

	r.POST("/api/auth/guest", h.GuestToken)
	r.POST("/api/auth/agent", h.AgentToken)
	r.GET("/api/chat/messages", h.ChatMessages)
	r.POST("/api/chat/read", h.MarkRead)
	r.GET("/ws", h.ServeWebSocket)

	server := &http.Server{
		Addr:           ":" + cfg.ServerPort,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	log.Fatal(server.ListenAndServe())
}
