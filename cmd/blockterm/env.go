package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fentz26/blockterm/internal/config"
	"github.com/fentz26/blockterm/internal/logging"
	"github.com/fentz26/blockterm/internal/session"
	"github.com/fentz26/blockterm/internal/store"
	"go.uber.org/zap"
)

const dbFileName = "blockterm.db"

// appEnv is what every command needs: configuration, logging and storage.
type appEnv struct {
	cfg       *config.Config
	cfgPath   string
	dataDir   string
	logger    *zap.Logger
	db        *store.Store
	snapshots session.SnapshotStore
}

// resolvePaths returns the data directory and config file location. The
// config file's data_dir applies only when neither the flag nor the
// environment names one.
func resolvePaths() (dataDir, cfgPath string) {
	dataDir = config.ResolveDataDir(dataDirArg)
	cfgPath = configPath
	if cfgPath == "" {
		cfgPath = filepath.Join(dataDir, config.FileName)
	}
	return dataDir, cfgPath
}

func loadEnv() (*appEnv, error) {
	dataDir, cfgPath := resolvePaths()
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return nil, err
	}
	if cfg.DataDir != "" && dataDirArg == "" && os.Getenv("BLOCKTERM_DATA_DIR") == "" {
		dataDir = cfg.DataDir
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	logger, err := logging.New(dataDir, cfg.LogLevel, verbose)
	if err != nil {
		return nil, err
	}

	db, err := store.New(filepath.Join(dataDir, dbFileName))
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	var snapshots session.SnapshotStore = store.NewFiles(filepath.Join(dataDir, "sessions"), logger)
	if cfg.Session.Backend == config.BackendSQLite {
		snapshots = db
	}

	logger.Debug("environment loaded",
		zap.String("data_dir", dataDir),
		zap.String("config", cfgPath),
		zap.String("session_backend", cfg.Session.Backend),
	)
	return &appEnv{
		cfg:       cfg,
		cfgPath:   cfgPath,
		dataDir:   dataDir,
		logger:    logger,
		db:        db,
		snapshots: snapshots,
	}, nil
}

func (e *appEnv) Close() {
	if err := e.db.Close(); err != nil {
		e.logger.Warn("closing database", zap.Error(err))
	}
	_ = e.logger.Sync()
}

// sessions returns a manager over the configured snapshot store.
func (e *appEnv) sessions() *session.Manager {
	return session.NewManager(e.snapshots, session.WithLogger(e.logger))
}

// withEnv runs fn with a loaded environment and closes it afterwards.
func withEnv(fn func(env *appEnv) error) error {
	env, err := loadEnv()
	if err != nil {
		return err
	}
	defer env.Close()
	return fn(env)
}
