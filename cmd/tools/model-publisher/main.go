// cmd/tools/model-publisher/main.go
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"credit-scoring/internal/common/config"
	"credit-scoring/internal/common/database"
	"credit-scoring/internal/common/logger"
	"credit-scoring/internal/scoring/model"
	"credit-scoring/internal/scoring/pipeline"
	"credit-scoring/pkg/registry"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

const (
	configFlagName = "config"
	formatFlagName = "format"
	pathFlagName   = "path"
)

func pathFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:      pathFlagName,
		Usage:     "Path to the model artifact (.json, .yaml)",
		Required:  true,
		TakesFile: true,
	}
}

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "model-publisher",
		Usage: "Validate, try out and publish credit scoring model artifacts",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  configFlagName,
				Usage: "Path to the service config file (optional, defaults to configs/config.yaml)",
			},
			&cli.StringFlag{
				Name:  formatFlagName,
				Usage: "Output format [json, yaml]",
				Value: formatJSON,
			},
		},
		Commands: []*cli.Command{
			validateCmd(),
			scoreCmd(),
			convertCmd(),
			publishRedisCmd(),
			publishPostgresCmd(),
		},
	}
}

func validateCmd() *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "Check an artifact and print its summary",
		Flags: []cli.Flag{pathFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := registry.LoadArtifact(cmd.String(pathFlagName))
			if err != nil {
				return err
			}
			return encode(cmd, map[string]interface{}{
				"ref":         a.Ref(),
				"kind":        a.Kind,
				"numeric":     len(a.Numeric),
				"categorical": len(a.Categorical),
				"valid":       true,
			})
		},
	}
}

func scoreCmd() *cli.Command {
	inputFlag := &cli.StringFlag{
		Name:     "input",
		Usage:    "Path to a JSON feature payload, - for stdin",
		Required: true,
	}
	return &cli.Command{
		Name:  "score",
		Usage: "Score one feature payload with an artifact",
		Flags: []cli.Flag{pathFlag(), inputFlag},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			a, err := registry.LoadArtifact(cmd.String(pathFlagName))
			if err != nil {
				return err
			}
			scorer, err := model.NewLinearModel(a)
			if err != nil {
				return err
			}
			p, err := pipeline.New(scorer, pipeline.Thresholds{
				LowRiskMin:    cfg.Scoring.LowRiskMin,
				MediumRiskMin: cfg.Scoring.MediumRiskMin,
			}, pipeline.WithLogger(logger.NewStructured(cfg.Logging.Level, "console", "stderr")))
			if err != nil {
				return err
			}

			raw, err := readPayload(cmd, cmd.String(inputFlag.Name))
			if err != nil {
				return err
			}
			res, err := p.Predict(ctx, raw)
			if encErr := encode(cmd, pipeline.ToResponse(res, err)); encErr != nil {
				return encErr
			}
			return err
		},
	}
}

func convertCmd() *cli.Command {
	outFlag := &cli.StringFlag{
		Name:     "out",
		Usage:    "Destination path; the extension selects the format",
		Required: true,
	}
	return &cli.Command{
		Name:  "convert",
		Usage: "Rewrite an artifact as JSON or YAML",
		Flags: []cli.Flag{pathFlag(), outFlag},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := registry.LoadArtifact(cmd.String(pathFlagName))
			if err != nil {
				return err
			}
			return registry.SaveArtifact(a, cmd.String(outFlag.Name))
		},
	}
}

func publishRedisCmd() *cli.Command {
	keyFlag := &cli.StringFlag{
		Name:  "key",
		Usage: "Redis key (optional, defaults to model.key from config)",
	}
	return &cli.Command{
		Name:  "publish-redis",
		Usage: "Store an artifact as the active Redis model",
		Flags: []cli.Flag{pathFlag(), keyFlag},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			a, err := registry.LoadArtifact(cmd.String(pathFlagName))
			if err != nil {
				return err
			}

			rdb, err := database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			defer rdb.Close()

			key := cmd.String(keyFlag.Name)
			if key == "" {
				key = cfg.Model.Key
			}
			if err := (&model.RedisSource{Store: rdb, Key: key}).Publish(ctx, a); err != nil {
				return err
			}
			return encode(cmd, map[string]interface{}{"published": a.Ref(), "redisKey": key})
		},
	}
}

func publishPostgresCmd() *cli.Command {
	initFlag := &cli.BoolFlag{
		Name:  "init",
		Usage: "Create the scoring_models table if missing",
	}
	return &cli.Command{
		Name:  "publish-postgres",
		Usage: "Insert or replace an artifact in the scoring_models table",
		Flags: []cli.Flag{pathFlag(), initFlag},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			a, err := registry.LoadArtifact(cmd.String(pathFlagName))
			if err != nil {
				return err
			}

			pg, err := database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			defer pg.Close()

			src := &model.PostgresSource{DB: pg, ModelName: a.Name, Version: a.Version}
			if cmd.Bool(initFlag.Name) {
				if err := src.EnsureSchema(ctx); err != nil {
					return fmt.Errorf("create scoring_models: %w", err)
				}
			}
			if err := src.Publish(ctx, a); err != nil {
				return err
			}
			return encode(cmd, map[string]interface{}{"published": a.Ref(), "table": "scoring_models"})
		},
	}
}

func loadConfig(cmd *cli.Command) (*config.Config, error) {
	if path := cmd.String(configFlagName); path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

func readPayload(cmd *cli.Command, path string) (map[string]interface{}, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.Root().Reader)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return raw, nil
}

func encode(cmd *cli.Command, v interface{}) error {
	w := cmd.Root().Writer
	if w == nil {
		w = os.Stdout
	}
	if cmd.String(formatFlagName) == formatYAML {
		return yaml.NewEncoder(w).Encode(v)
	}
	e := json.NewEncoder(w)
	e.SetIndent("", "  ")
	return e.Encode(v)
}
