package main

import (
	"context"
	"net/http"

	"foodmap-api/internal/boundary"
	"foodmap-api/internal/config"
	"foodmap-api/internal/geocoder"
	"foodmap-api/internal/handler"
	"foodmap-api/internal/pipeline"
	"foodmap-api/internal/repository"
	"foodmap-api/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

func main() {
	_ = godotenv.Load(".env.local")

	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatal().Err(err).Msg("cannot load config")
	}

	// Database connection
	conn, err := pgxpool.New(context.Background(), cfg.DBSource)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot connect to db")
	}
	defer conn.Close()

	repo := repository.NewRepository(conn)
	if err := repo.EnsureSchema(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("cannot ensure schema")
	}

	boundaries, err := boundary.Load(cfg.BoundaryDir, cfg.RegionCode)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot load boundary index")
	}

	// Initialize layers
	filter := pipeline.NewAddressFilter(cfg.RegionCode, cfg.RegionName)
	newBatch := func(rps float64) (service.BatchGeocoder, error) {
		client, err := geocoder.NewClient(cfg.LocationIQURL, cfg.LocationIQKey)
		if err != nil {
			return nil, err
		}
		return geocoder.NewBatch(client, rps, nil), nil
	}

	pipelineService := service.NewPipelineService(filter, newBatch, repo, cfg.DefaultRPS)
	statsService := service.NewStatsService(boundaries, repo)

	pipelineHandler := handler.NewPipelineHandler(pipelineService)
	statsHandler := handler.NewStatsHandler(statsService)

	r := gin.Default()

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	api := r.Group("/api")
	api.POST("/heatmap", pipelineHandler.Run)
	api.POST("/heatmap/dry-run", pipelineHandler.DryRun)
	api.GET("/stats", statsHandler.Stats)
	r.GET("/data/:name", statsHandler.Artifact)

	r.Run(cfg.ServerAddress)
}
