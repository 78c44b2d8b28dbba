package main

import (
	"context"
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"clinic-service/internal/app"
	"clinic-service/internal/availability"
	"clinic-service/internal/config"
	"clinic-service/internal/gcal"
	"clinic-service/internal/server"
	"clinic-service/internal/store"
	appsync "clinic-service/internal/sync"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	defer pool.Close()

	st := store.New(pool)

	connector := gcal.NewConnector(cfg.Google)
	if connector == nil {
		log.Printf("google calendar not configured; stored calendar connections are treated as disconnected")
	}
	gateway := gcal.NewGateway(connector, app.NewTokenStore(st),
		cfg.Google.Timezone, time.Duration(cfg.Google.TimeoutSeconds)*time.Second)

	appInstance := &app.App{
		Store:        st,
		Connector:    connector,
		Calendar:     gateway,
		Syncer:       appsync.New(gateway, st, cfg.Google.Timezone),
		Availability: availability.New(st, gateway),
		Config:       cfg,
	}

	router := gin.Default()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Origin}
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	router.Use(cors.New(corsConfig))

	appInstance.Register(router)

	server.Run(router, cfg.Port)
}
