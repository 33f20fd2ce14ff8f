package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"zenflow/internal/ai"
	"zenflow/internal/config"
	"zenflow/internal/db"
	"zenflow/internal/engine"
	"zenflow/internal/migrate"
)

// Options controls how a workspace is opened.
type Options struct {
	Workspace string
	// APIKey overrides the Gemini key read from the environment.
	APIKey string
	Logger *zap.Logger
	// SkipSeed disables demo seeding even when zenflow.yml enables it.
	SkipSeed bool
}

// Env is an opened workspace. Close releases the database handle and the event bus.
type Env struct {
	Workspace string
	Config    *config.Config
	DB        *sql.DB
	Engine    engine.Engine
	Seeded    bool
}

// LoadDotEnv reads <workspace>/.env into the process environment. Variables already set win.
func LoadDotEnv(workspace string) error {
	if workspace == "" {
		workspace = "."
	}
	path := filepath.Join(workspace, ".env")
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// APIKeyFromEnv returns the Gemini key, preferring ZENFLOW_GEMINI_API_KEY over API_KEY.
func APIKeyFromEnv() string {
	if v := os.Getenv("ZENFLOW_GEMINI_API_KEY"); v != "" {
		return v
	}
	return os.Getenv("API_KEY")
}

// Open loads config, migrates the store and builds an engine for the workspace.
func Open(ctx context.Context, opts Options) (*Env, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	cfg, err := config.LoadOptional(opts.Workspace)
	if err != nil {
		return nil, err
	}
	conn, err := db.Open(db.Config{Workspace: opts.Workspace})
	if err != nil {
		return nil, err
	}
	if err := migrate.Migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	e := engine.New(conn, cfg)
	e.Log = log
	key := opts.APIKey
	if key == "" {
		key = APIKeyFromEnv()
	}
	svc, err := ai.New(ctx, key, cfg.AI, log)
	if err != nil {
		// Assistant calls answer with fallback text.
		log.Warn("ai client unavailable", zap.Error(err))
		svc = ai.NewWithModel(nil, cfg.AI, log)
	}
	e.AI = svc

	env := &Env{Workspace: opts.Workspace, Config: cfg, DB: conn, Engine: e}
	if cfg.Seed.Demo && !opts.SkipSeed {
		seeded, err := e.SeedDemo(ctx, cfg.Seed.Password)
		if err != nil {
			env.Close()
			return nil, fmt.Errorf("seed demo data: %w", err)
		}
		env.Seeded = seeded
		if seeded {
			log.Info("seeded demo organization")
		}
	}
	return env, nil
}

func (e *Env) Close() error {
	if e.Engine.Events != nil {
		e.Engine.Events.Close()
	}
	return e.DB.Close()
}
