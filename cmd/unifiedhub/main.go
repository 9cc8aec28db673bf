// Command unifiedhub manages UnifiedHub's provider connections.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/unifiedhub/unifiedhub/internal/adapters/driven/auth"
	configfile "github.com/unifiedhub/unifiedhub/internal/adapters/driven/config/file"
	"github.com/unifiedhub/unifiedhub/internal/adapters/driven/identity"
	"github.com/unifiedhub/unifiedhub/internal/adapters/driven/oauth"
	tokenfile "github.com/unifiedhub/unifiedhub/internal/adapters/driven/storage/file"
	"github.com/unifiedhub/unifiedhub/internal/adapters/driven/storage/memory"
	"github.com/unifiedhub/unifiedhub/internal/adapters/driven/storage/sqlite"
	"github.com/unifiedhub/unifiedhub/internal/adapters/driving/cli"
	redirect "github.com/unifiedhub/unifiedhub/internal/adapters/driving/oauth"
	"github.com/unifiedhub/unifiedhub/internal/core/domain"
	"github.com/unifiedhub/unifiedhub/internal/core/ports/driven"
	"github.com/unifiedhub/unifiedhub/internal/core/services"
	"github.com/unifiedhub/unifiedhub/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	configDir, err := configfile.DefaultDir()
	if err != nil {
		return report(fmt.Errorf("locate config directory: %w", err))
	}
	loadEnv(configDir)

	configStore, err := configfile.NewConfigStore(configDir)
	if err != nil {
		return report(err)
	}
	settingsService := services.NewSettingsService(configStore)
	settings, err := settingsService.Get()
	if err != nil {
		return report(fmt.Errorf("load settings: %w", err))
	}
	registry := services.NewProviderRegistry(settings)

	persister, watcher, err := openPersister(settings.Tokens, configStore.Dir())
	if err != nil {
		return report(err)
	}
	defer func() {
		if err := persister.Close(); err != nil {
			logger.Warn("close token storage: %v", err)
		}
	}()
	logger.Debug("tokens stored in %s", persister.Location())

	store := memory.NewTokenStore(persister)
	directory, err := services.NewDirectory(services.DirectoryDeps{
		Registry:  registry,
		Listener:  redirect.NewListener(settings.Redirect),
		Exchanger: oauth.NewExchanger(settings.Redirect.URI(), nil, settings.HTTPTimeout),
		Store:     store,
		Browser:   redirect.SystemBrowser{},
		Identity:  identity.NewResolver(settings.HTTPTimeout),
	}, services.DirectoryConfigFromSettings(settings))
	if err != nil {
		return report(err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := directory.Close(closeCtx); err != nil {
			logger.Warn("close session directory: %v", err)
		}
	}()

	if err := directory.Reload(ctx); err != nil {
		logger.Warn("load tokens: %v", err)
	}
	if watcher != nil && settings.Tokens.Watch {
		go func() {
			if err := directory.WatchTokens(ctx, watcher); err != nil {
				logger.Warn("watch tokens: %v", err)
			}
		}()
	}

	cli.SetVersion(version)
	cli.SetServices(&cli.Services{
		Sessions:  directory,
		Providers: registry,
		Settings:  settingsService,
		Accounts:  auth.NewAccountLookup(directory, identity.NewResolver(settings.HTTPTimeout), settings.HTTPTimeout),
	})
	return cli.Execute(ctx)
}

// report prints err the way cobra would for errors raised before any
// command runs.
func report(err error) error {
	fmt.Fprintln(os.Stderr, "Error:", err)
	return err
}

// loadEnv loads .env from the working directory, then from configDir.
// Variables already set are never overridden.
func loadEnv(configDir string) {
	for _, path := range []string{".env", filepath.Join(configDir, ".env")} {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("load %s: %v", path, err)
		}
	}
}

// openPersister opens the configured token backend. The watcher is nil for
// backends that cannot report external changes.
func openPersister(cfg domain.TokenSettings, configDir string) (driven.TokenPersister, driven.TokenWatcher, error) {
	switch cfg.Backend {
	case domain.TokenBackendSQLite:
		dir := cfg.Path
		if dir == "" {
			dir = configDir
		}
		store, err := sqlite.NewStore(dir)
		if err != nil {
			return nil, nil, fmt.Errorf("open token database: %w", err)
		}
		return store, nil, nil
	case domain.TokenBackendFile, "":
		path := cfg.Path
		if path == "" {
			path = filepath.Join(configDir, tokenfile.DefaultFileName)
		}
		f := tokenfile.NewTokenFile(path)
		return f, f, nil
	default:
		return nil, nil, fmt.Errorf("%w: token backend %q", domain.ErrInvalidInput, cfg.Backend)
	}
}
