package helpers

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"runtime"

	"github.com/rs/zerolog"

	"github.com/imgbed/imgbed/internal/adminauth"
	"github.com/imgbed/imgbed/internal/api"
	"github.com/imgbed/imgbed/internal/config"
	"github.com/imgbed/imgbed/internal/device"
	"github.com/imgbed/imgbed/internal/localstate"
	"github.com/imgbed/imgbed/internal/logging"
	"github.com/imgbed/imgbed/internal/tgauth"
	"github.com/imgbed/imgbed/internal/vault"
)

// App bundles the client-side stores every command needs: config, the API
// client, the token vault, and the two auth stores. Build one per command
// invocation with NewApp.
type App struct {
	Config      *config.Config
	Loader      *config.Loader
	Logger      zerolog.Logger
	Client      *api.Client
	State       *localstate.Store
	Vault       *vault.Store
	Fingerprint *device.Fingerprint
	TgAuth      *tgauth.Store
	Admin       *adminauth.Store
}

// NewApp loads config and wires the full client stack. The vault is not
// restored here; commands that need the active token call RestoreVault.
func NewApp() (*App, error) {
	loader := config.NewLoader()
	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	logger := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Pretty: cfg.Logging.Pretty,
		Output: os.Stderr,
	})

	state, err := localstate.Open(loader.StatePath(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open client state: %w", err)
	}

	fp, err := resolveFingerprint(state, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:      cfg,
		Loader:      loader,
		Logger:      logger,
		State:       state,
		Fingerprint: fp,
	}

	client, err := api.New(config.NormalizeBaseURL(cfg.Server.BaseURL),
		api.WithLogger(logger),
		api.WithDeviceHeaders(fp.Headers()),
		api.WithHTTPClient(&http.Client{Timeout: cfg.Server.Timeout}),
		api.WithOnUnauthorized(func() {
			if app.Admin != nil {
				app.Admin.HandleUnauthorized()
			}
		}),
	)
	if err != nil {
		return nil, err
	}
	app.Client = client

	app.Vault = vault.New(loader.VaultPath(cfg), client,
		vault.WithLogger(logger),
		vault.WithLegacyState(state),
	)
	app.Admin = adminauth.New(client, state, adminauth.WithLogger(logger))
	app.TgAuth = tgauth.New(client,
		tgauth.WithLogger(logger),
		tgauth.WithVault(app.Vault),
		tgauth.WithFingerprint(fp),
	)

	return app, nil
}

// RestoreVault loads the persisted vault, migrates legacy single-token
// state, and re-verifies the active selection. Restore already tolerates
// network failures (offline use), so any error returned here is a local
// problem worth surfacing.
func (a *App) RestoreVault(ctx context.Context) error {
	if err := a.Vault.Restore(ctx); err != nil {
		return fmt.Errorf("failed to restore token vault: %w", err)
	}
	return nil
}

// resolveFingerprint derives the device identity for this host. The CLI
// has no browser user agent, so OS comes from the build target and the
// label defaults to "<OS> · imgbed CLI" unless configured.
func resolveFingerprint(state *localstate.Store, cfg *config.Config) (*device.Fingerprint, error) {
	deviceID, err := device.EnsureDeviceID(state, "", "")
	if err != nil {
		return nil, err
	}

	osName := osDisplayName(runtime.GOOS)
	label := device.BuildDeviceLabel(osName, "imgbed CLI")
	if cfg.Device.Name != "" {
		label = cfg.Device.Name
	}

	return &device.Fingerprint{
		DeviceID:    deviceID,
		OSName:      osName,
		BrowserName: "imgbed CLI",
		Platform:    "cli",
		DeviceLabel: label,
	}, nil
}

func osDisplayName(goos string) string {
	switch goos {
	case "darwin":
		return "macOS"
	case "windows":
		return "Windows"
	case "linux":
		return "Linux"
	case "android":
		return "Android"
	case "ios":
		return "iOS"
	default:
		return goos
	}
}
