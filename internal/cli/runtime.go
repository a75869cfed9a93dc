package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"pocketpages/internal/config"
	"pocketpages/internal/domain"
	"pocketpages/internal/logger"
	"pocketpages/internal/service"
	"pocketpages/internal/storage"
)

// runtime is everything a command needs, built from flags and config.
type runtime struct {
	cfg      config.Config
	logger   *logger.Logger
	log      zerolog.Logger
	store    domain.PageStore
	versions service.PageVersioner
	settings service.SettingsStore
	// watchDir is the sqlite directory; empty for server databases.
	watchDir string
}

func loadConfig() (config.Config, error) {
	path := cfgFile
	if path == "" && dataDir != "" {
		path = filepath.Join(dataDir, "config.toml")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

func openRuntime(cmd *cobra.Command) (*runtime, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	b := logger.New().FromWriter(cmd.ErrOrStderr()).WithLevel(cfg.Log.Level)
	if cfg.Log.File != "" {
		b = b.FromPath(cfg.Log.File)
	}
	l, err := b.Make()
	if err != nil {
		return nil, err
	}

	r := &runtime{cfg: cfg, logger: l, log: l.Logger}
	if err := r.openStore(cmd.Context()); err != nil {
		l.Close()
		return nil, err
	}
	r.log.Debug().Str("driver", cfg.Storage.Driver).Msg("store opened")
	return r, nil
}

func (r *runtime) openStore(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	switch r.cfg.Storage.Driver {
	case config.DriverMongoDB:
		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		ms, err := storage.OpenMongo(ctx, r.cfg.Storage.DSN, r.cfg.Storage.Database)
		if err != nil {
			return err
		}
		r.store, r.versions = ms, ms
		return nil
	case config.DriverSQLite:
		db, err := storage.OpenSQLite(r.cfg.SQLitePath())
		if err != nil {
			return err
		}
		r.useSQL(db)
		r.watchDir = filepath.Dir(db.Path())
		return nil
	default:
		db, err := storage.Open(storage.Dialect(r.cfg.Storage.Driver), r.cfg.Storage.DSN)
		if err != nil {
			return err
		}
		r.useSQL(db)
		return nil
	}
}

func (r *runtime) useSQL(db *storage.DB) {
	ps := storage.NewPageStore(db)
	r.store, r.versions = ps, ps
	r.settings = storage.NewSettingsStore(db)
}

func (r *runtime) pages() *service.PageService {
	return service.NewPageService(r.store, nil, r.log)
}

func (r *runtime) settingsService() *service.SettingsService {
	return service.NewSettingsService(r.settings)
}

func (r *runtime) Close() error {
	var err error
	if r.store != nil {
		if cerr := r.store.Close(); cerr != nil {
			err = fmt.Errorf("close store: %w", cerr)
		}
	}
	r.logger.Close()
	return err
}

// withRuntime adapts a command body that needs an open runtime.
func withRuntime(fn func(cmd *cobra.Command, args []string, r *runtime) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		r, err := openRuntime(cmd)
		if err != nil {
			return err
		}
		defer r.Close()
		return fn(cmd, args, r)
	}
}
