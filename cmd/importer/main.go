package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"

	"foodmap-api/internal/config"
	"foodmap-api/internal/models"
	"foodmap-api/internal/pipeline"
	"foodmap-api/internal/repository"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	schoolsFile := flag.String("schools", "", "Path to the schools CSV file to import")
	librariesFile := flag.String("libraries", "", "Path to the libraries CSV file to import")
	flag.Parse()

	if *schoolsFile == "" && *librariesFile == "" {
		fmt.Println("Error: at least one of --schools or --libraries is required")
		os.Exit(1)
	}

	_ = godotenv.Load(".env.local")

	cfg, err := config.LoadConfig(".")
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	conn, err := pgxpool.New(context.Background(), cfg.DBSource)
	if err != nil {
		fmt.Printf("Error connecting to database: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	repo := repository.NewRepository(conn)
	if err := repo.EnsureSchema(context.Background()); err != nil {
		fmt.Printf("Error creating tables: %v\n", err)
		os.Exit(1)
	}

	if *schoolsFile != "" {
		records, skipped, err := loadSchools(*schoolsFile)
		if err != nil {
			fmt.Printf("Error parsing schools CSV: %v\n", err)
			os.Exit(1)
		}
		if err := repo.UpsertSchools(context.Background(), records); err != nil {
			fmt.Printf("Error inserting schools: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Imported %d schools (%d rows skipped)\n", len(records), skipped)
	}

	if *librariesFile != "" {
		records, skipped, err := loadLibraries(*librariesFile)
		if err != nil {
			fmt.Printf("Error parsing libraries CSV: %v\n", err)
			os.Exit(1)
		}
		if err := repo.UpsertLibraries(context.Background(), records); err != nil {
			fmt.Printf("Error inserting libraries: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Imported %d libraries (%d rows skipped)\n", len(records), skipped)
	}
}

// loadSchools reads the NCES-style schools export. Expected headers:
// ncesid, name, level (optional), lat, lon. Rows without usable coordinates
// are skipped, not fatal.
func loadSchools(path string) ([]models.SchoolRecord, int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open file: %w", err)
	}

	var records []models.SchoolRecord
	skipped := 0
	for _, row := range pipeline.ParseRows(string(raw)) {
		lat, latErr := strconv.ParseFloat(row["lat"], 64)
		lon, lonErr := strconv.ParseFloat(row["lon"], 64)
		if row["ncesid"] == "" || latErr != nil || lonErr != nil {
			skipped++
			continue
		}
		level := row["level"]
		if level == "" {
			level = models.ClassifySchoolLevel(row["name"])
		}
		records = append(records, models.SchoolRecord{
			ID:    row["ncesid"],
			Name:  row["name"],
			Level: level,
			Lat:   lat,
			Lon:   lon,
		})
	}
	return records, skipped, nil
}

// loadLibraries reads the library export. Expected headers: id, name, lat, lon.
func loadLibraries(path string) ([]models.LibraryRecord, int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open file: %w", err)
	}

	var records []models.LibraryRecord
	skipped := 0
	for _, row := range pipeline.ParseRows(string(raw)) {
		lat, latErr := strconv.ParseFloat(row["lat"], 64)
		lon, lonErr := strconv.ParseFloat(row["lon"], 64)
		if row["id"] == "" || latErr != nil || lonErr != nil {
			skipped++
			continue
		}
		records = append(records, models.LibraryRecord{
			ID:   row["id"],
			Name: row["name"],
			Lat:  lat,
			Lon:  lon,
		})
	}
	return records, skipped, nil
}
