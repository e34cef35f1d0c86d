package model

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"credit-scoring/internal/common/database"
	"credit-scoring/pkg/registry"
)

// Source yields a model artifact.
type Source interface {
	Name() string
	Fetch(ctx context.Context) (*registry.ModelArtifact, error)
}

// Publisher stores a model artifact where a Source can later fetch it.
type Publisher interface {
	Publish(ctx context.Context, a *registry.ModelArtifact) error
}

// FileSource reads a JSON or YAML artifact from disk.
type FileSource struct {
	Path string
}

func (s *FileSource) Name() string { return "file" }

func (s *FileSource) Fetch(_ context.Context) (*registry.ModelArtifact, error) {
	return registry.LoadArtifact(s.Path)
}

// KeyValueStore is the subset of database.RedisClient used for artifacts.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
}

// RedisSource keeps the active artifact as JSON under a single key.
type RedisSource struct {
	Store KeyValueStore
	Key   string
}

func (s *RedisSource) Name() string { return "redis" }

func (s *RedisSource) Fetch(ctx context.Context) (*registry.ModelArtifact, error) {
	raw, err := s.Store.Get(ctx, s.Key)
	if err != nil {
		return nil, err
	}
	return registry.ParseArtifact([]byte(raw), registry.FormatJSON)
}

func (s *RedisSource) Publish(ctx context.Context, a *registry.ModelArtifact) error {
	if err := a.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode artifact: %w", err)
	}
	return s.Store.Set(ctx, s.Key, string(data), 0)
}

// SQL for the scoring_models table.
const (
	CreateModelsTableSQL = `CREATE TABLE IF NOT EXISTS scoring_models (
	name         TEXT        NOT NULL,
	version      TEXT        NOT NULL,
	artifact     JSONB       NOT NULL,
	published_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (name, version)
)`

	selectModelSQL = `SELECT artifact FROM scoring_models WHERE name = $1 AND ($2 = '' OR version = $2) ORDER BY published_at DESC LIMIT 1`

	upsertModelSQL = `INSERT INTO scoring_models (name, version, artifact, published_at) VALUES ($1, $2, $3, $4)
ON CONFLICT (name, version) DO UPDATE SET artifact = EXCLUDED.artifact, published_at = EXCLUDED.published_at`
)

// PostgresSource reads the newest artifact named Name, pinned to Version when set.
type PostgresSource struct {
	DB        *database.PostgresClient
	ModelName string
	Version   string
	now       func() time.Time
}

func (s *PostgresSource) Name() string { return "postgres" }

func (s *PostgresSource) Fetch(ctx context.Context) (*registry.ModelArtifact, error) {
	var raw []byte
	err := s.DB.QueryRow(ctx, selectModelSQL, s.ModelName, s.Version).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("model %s version %q: %w", s.ModelName, s.Version, database.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query scoring_models: %w", err)
	}
	return registry.ParseArtifact(raw, registry.FormatJSON)
}

func (s *PostgresSource) Publish(ctx context.Context, a *registry.ModelArtifact) error {
	if err := a.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode artifact: %w", err)
	}
	now := time.Now
	if s.now != nil {
		now = s.now
	}
	if _, err := s.DB.Exec(ctx, upsertModelSQL, a.Name, a.Version, string(data), now().UTC()); err != nil {
		return fmt.Errorf("upsert scoring_models: %w", err)
	}
	return nil
}

// EnsureSchema creates the scoring_models table if needed.
func (s *PostgresSource) EnsureSchema(ctx context.Context) error {
	_, err := s.DB.Exec(ctx, CreateModelsTableSQL)
	return err
}
