package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"tradepilot/internal/config"
	"tradepilot/internal/logger"
	"tradepilot/internal/manager"
	"tradepilot/internal/prompt"
	"tradepilot/internal/runtime"
	"tradepilot/internal/store"
	"tradepilot/internal/store/sqlite"
	transport "tradepilot/internal/transport/http"

	"golang.org/x/sync/errgroup"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	configPath := os.Getenv("TRADEPILOT_CONFIG")
	if configPath == "" {
		configPath = defaultConfigPath
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Errorf("load config: %v", err)
		os.Exit(1)
	}

	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Errorf("tradepilot: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	persistence, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	prompts, err := prompt.NewProvider(cfg.Prompt.TemplateDir)
	if err != nil {
		return err
	}
	defer prompts.Close()
	if cfg.Prompt.HotReload {
		if err := prompts.Watch(); err != nil {
			logger.Warnf("prompt watch disabled: %v", err)
		}
	}

	builder := &runtime.Builder{
		Oracle:  cfg.Oracle,
		Market:  cfg.Market,
		Store:   persistence,
		Prompts: prompts,
		Dump:    cfg.App.OracleDump,
	}
	mgr := manager.New(builder)
	mgr.Start(ctx)

	for _, spec := range cfg.Strategies {
		if _, err := mgr.Launch(spec); err != nil {
			logger.Errorf("launch strategy %q: %v", spec.Name, err)
		}
	}

	group, groupCtx := errgroup.WithContext(ctx)
	if cfg.Server.Enabled {
		srv := transport.NewServer(mgr, persistence)
		group.Go(func() error {
			return srv.Run(groupCtx, cfg.Server.Listen)
		})
	}
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Infof("shutdown requested, waiting for strategies")
		return mgr.Wait()
	})
	return group.Wait()
}

func openStore(cfg *config.Config) (store.Persistence, func(), error) {
	if cfg.Store.Path == "" {
		return store.NewMemoryStore(), func() {}, nil
	}
	db, err := sqlite.Open(cfg.Store.Path)
	if err != nil {
		return nil, nil, err
	}
	return db, func() {
		if cerr := db.Close(); cerr != nil {
			logger.Warnf("closing store: %v", cerr)
		}
	}, nil
}

func setupLogging(cfg *config.Config) {
	logger.SetLevel(cfg.App.LogLevel)
	if cfg.App.LogPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.App.LogPath), 0o755); err == nil {
			if f, err := os.OpenFile(cfg.App.LogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644); err == nil {
				logger.SetOutput(io.MultiWriter(os.Stdout, f))
			} else {
				logger.Warnf("open log file %s: %v", cfg.App.LogPath, err)
			}
		}
	}
	if cfg.App.OracleDump && cfg.App.OracleLog != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.App.OracleLog), 0o755); err == nil {
			if f, err := os.OpenFile(cfg.App.OracleLog, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644); err == nil {
				logger.SetOracleWriter(f)
			} else {
				logger.Warnf("open oracle log %s: %v", cfg.App.OracleLog, err)
			}
		}
	}
}
