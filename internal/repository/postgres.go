package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paulmach/orb/geojson"

	"foodmap-api/internal/models"
)

// ErrArtifactNotFound means no artifact with the requested name exists.
var ErrArtifactNotFound = errors.New("repository: artifact not found")

// batchChunkSize is the document store's atomic batch write limit. Writes
// larger than this commit in independent sequential chunks; a failure
// mid-sequence leaves earlier chunks persisted.
const batchChunkSize = 500

// Repository is the PostgreSQL-backed document store for heatmap artifacts
// and the school/library point datasets.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// EnsureSchema creates the backing tables when absent.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS heatmap_artifacts (
		name TEXT PRIMARY KEY,
		k_anonymity INT NOT NULL,
		rps DOUBLE PRECISION NOT NULL,
		cap_per_address BOOLEAN NOT NULL,
		body JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE TABLE IF NOT EXISTS schools (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		level TEXT NOT NULL,
		lat DOUBLE PRECISION NOT NULL,
		lon DOUBLE PRECISION NOT NULL
	);
	CREATE TABLE IF NOT EXISTS libraries (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		lat DOUBLE PRECISION NOT NULL,
		lon DOUBLE PRECISION NOT NULL
	);
	`
	if _, err := r.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("repository: ensuring schema: %w", err)
	}
	return nil
}

// SaveArtifact persists one heatmap FeatureCollection under its run name.
func (r *Repository) SaveArtifact(ctx context.Context, art models.Artifact) error {
	body, err := json.Marshal(art.Body)
	if err != nil {
		return fmt.Errorf("repository: encoding artifact: %w", err)
	}
	created := art.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO heatmap_artifacts (name, k_anonymity, rps, cap_per_address, body, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (name) DO UPDATE SET body = EXCLUDED.body`,
		art.Name, art.KAnonymity, art.RPS, art.CapPerAddress, body, created)
	if err != nil {
		return fmt.Errorf("repository: saving artifact: %w", err)
	}
	return nil
}

// GetArtifact loads a persisted FeatureCollection by name.
func (r *Repository) GetArtifact(ctx context.Context, name string) (*geojson.FeatureCollection, error) {
	var body []byte
	err := r.db.QueryRow(ctx,
		`SELECT body FROM heatmap_artifacts WHERE name = $1`, name).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrArtifactNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("repository: loading artifact: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(body)
	if err != nil {
		return nil, fmt.Errorf("repository: decoding artifact: %w", err)
	}
	return fc, nil
}

// LatestArtifactName returns the most recently written artifact's name.
func (r *Repository) LatestArtifactName(ctx context.Context) (string, error) {
	var name string
	err := r.db.QueryRow(ctx,
		`SELECT name FROM heatmap_artifacts ORDER BY created_at DESC LIMIT 1`).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrArtifactNotFound
	}
	if err != nil {
		return "", fmt.Errorf("repository: finding latest artifact: %w", err)
	}
	return name, nil
}

// UpsertSchools writes school records in chunks of at most batchChunkSize.
// Each chunk commits independently; partial persistence on a mid-sequence
// failure is accepted, not rolled back.
func (r *Repository) UpsertSchools(ctx context.Context, records []models.SchoolRecord) error {
	for start := 0; start < len(records); start += batchChunkSize {
		end := min(start+batchChunkSize, len(records))
		batch := &pgx.Batch{}
		for _, rec := range records[start:end] {
			batch.Queue(`
				INSERT INTO schools (id, name, level, lat, lon)
				VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (id) DO UPDATE SET
					name = EXCLUDED.name, level = EXCLUDED.level,
					lat = EXCLUDED.lat, lon = EXCLUDED.lon`,
				rec.ID, rec.Name, rec.Level, rec.Lat, rec.Lon)
		}
		if err := r.db.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("repository: school batch at offset %d: %w", start, err)
		}
	}
	return nil
}

// UpsertLibraries writes library records in chunks of at most batchChunkSize.
func (r *Repository) UpsertLibraries(ctx context.Context, records []models.LibraryRecord) error {
	for start := 0; start < len(records); start += batchChunkSize {
		end := min(start+batchChunkSize, len(records))
		batch := &pgx.Batch{}
		for _, rec := range records[start:end] {
			batch.Queue(`
				INSERT INTO libraries (id, name, lat, lon)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (id) DO UPDATE SET
					name = EXCLUDED.name, lat = EXCLUDED.lat, lon = EXCLUDED.lon`,
				rec.ID, rec.Name, rec.Lat, rec.Lon)
		}
		if err := r.db.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("repository: library batch at offset %d: %w", start, err)
		}
	}
	return nil
}

// ListSchools returns every school record.
func (r *Repository) ListSchools(ctx context.Context) ([]models.SchoolRecord, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, level, lat, lon FROM schools ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("repository: listing schools: %w", err)
	}
	defer rows.Close()

	var schools []models.SchoolRecord
	for rows.Next() {
		var s models.SchoolRecord
		if err := rows.Scan(&s.ID, &s.Name, &s.Level, &s.Lat, &s.Lon); err != nil {
			return nil, fmt.Errorf("repository: scanning school: %w", err)
		}
		schools = append(schools, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: iterating schools: %w", err)
	}
	return schools, nil
}

// ListLibraries returns every library record.
func (r *Repository) ListLibraries(ctx context.Context) ([]models.LibraryRecord, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, lat, lon FROM libraries ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("repository: listing libraries: %w", err)
	}
	defer rows.Close()

	var libraries []models.LibraryRecord
	for rows.Next() {
		var l models.LibraryRecord
		if err := rows.Scan(&l.ID, &l.Name, &l.Lat, &l.Lon); err != nil {
			return nil, fmt.Errorf("repository: scanning library: %w", err)
		}
		libraries = append(libraries, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: iterating libraries: %w", err)
	}
	return libraries, nil
}
