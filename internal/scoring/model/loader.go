package model

import (
	"context"
	"errors"
	"fmt"
	"time"

	"credit-scoring/internal/common/config"
	"credit-scoring/internal/common/database"
	apperrors "credit-scoring/internal/common/errors"
	"credit-scoring/internal/common/logger"
	"credit-scoring/pkg/registry"
)

// Info describes the loaded scoring capability.
type Info struct {
	Name     string    `json:"name"`
	Version  string    `json:"version"`
	Kind     string    `json:"kind"`
	Source   string    `json:"source"`
	LoadedAt time.Time `json:"loadedAt"`
}

// Loaded is the process-wide scoring handle: loaded once, shared read-only.
type Loaded struct {
	Scorer Scorer
	Info   Info
}

// Dependencies holds the optional backing stores a source may need.
type Dependencies struct {
	Redis    KeyValueStore
	Postgres *database.PostgresClient
}

// Load resolves the configured model source. Any failure is a
// MODEL_LOAD_FAILED or MODEL_NOT_FOUND StandardError.
func Load(ctx context.Context, cfg config.ModelConfig, deps Dependencies, log logger.Logger) (*Loaded, error) {
	if cfg.Source == config.ModelSourceRemote {
		if cfg.Remote.URL == "" {
			return nil, apperrors.NewModelLoadFailedError(cfg.Source, fmt.Errorf("remote url is required"))
		}
		loaded := &Loaded{
			Scorer: NewRemoteScorer(cfg.Remote.URL, config.GetDuration(cfg.Remote.Timeout)),
			Info: Info{
				Name:     cfg.Name,
				Version:  cfg.Version,
				Kind:     "remote",
				Source:   cfg.Source,
				LoadedAt: time.Now().UTC(),
			},
		}
		log.Info("remote scoring model configured", map[string]interface{}{"url": cfg.Remote.URL})
		return loaded, nil
	}

	source, err := sourceFor(cfg, deps)
	if err != nil {
		return nil, apperrors.NewModelLoadFailedError(cfg.Source, err)
	}

	var artifact *registry.ModelArtifact
	if source == nil {
		artifact = DefaultArtifact()
	} else {
		artifact, err = source.Fetch(ctx)
		if errors.Is(err, database.ErrNotFound) {
			return nil, apperrors.NewModelNotFoundError(cfg.Source, refOf(cfg))
		}
		if err != nil {
			return nil, apperrors.NewModelLoadFailedError(cfg.Source, err)
		}
	}

	lm, err := NewLinearModel(artifact)
	if err != nil {
		return nil, apperrors.NewModelLoadFailedError(cfg.Source, err)
	}

	loaded := &Loaded{
		Scorer: lm,
		Info: Info{
			Name:     artifact.Name,
			Version:  artifact.Version,
			Kind:     artifact.Kind,
			Source:   cfg.Source,
			LoadedAt: time.Now().UTC(),
		},
	}
	log.Info("scoring model loaded", map[string]interface{}{
		"model":  artifact.Ref(),
		"source": cfg.Source,
	})
	return loaded, nil
}

// sourceFor returns nil for the builtin model.
func sourceFor(cfg config.ModelConfig, deps Dependencies) (Source, error) {
	switch cfg.Source {
	case config.ModelSourceBuiltin, "":
		return nil, nil
	case config.ModelSourceFile:
		if cfg.Path == "" {
			return nil, fmt.Errorf("model path is required")
		}
		return &FileSource{Path: cfg.Path}, nil
	case config.ModelSourceRedis:
		if deps.Redis == nil {
			return nil, fmt.Errorf("redis client is not configured")
		}
		return &RedisSource{Store: deps.Redis, Key: cfg.Key}, nil
	case config.ModelSourcePostgres:
		if deps.Postgres == nil {
			return nil, fmt.Errorf("postgres client is not configured")
		}
		return &PostgresSource{DB: deps.Postgres, ModelName: cfg.Name, Version: cfg.Version}, nil
	default:
		return nil, fmt.Errorf("unknown model source %q", cfg.Source)
	}
}

func refOf(cfg config.ModelConfig) string {
	switch cfg.Source {
	case config.ModelSourceRedis:
		return cfg.Key
	case config.ModelSourceFile:
		return cfg.Path
	}
	if cfg.Version != "" {
		return cfg.Name + "@" + cfg.Version
	}
	return cfg.Name
}
