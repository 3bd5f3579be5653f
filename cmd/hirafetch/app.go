package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"hirafetch/pkg/auth"
	"hirafetch/pkg/checkpoint"
	"hirafetch/pkg/config"
	"hirafetch/pkg/hira"
	"hirafetch/pkg/logger"
	"hirafetch/pkg/metrics"
	"hirafetch/pkg/storage"
	"hirafetch/pkg/ui"
)

// app bundles what a fetch command needs once configuration is resolved
type app struct {
	cfg     *config.Config
	log     logger.Logger
	client  *hira.Client
	mode    hira.AuthMode
	metrics *metrics.Collector
	output  *storage.Manager
}

// loadConfig merges global flags with the command's own into the configuration
func loadConfig(flags map[string]interface{}) (*config.Config, error) {
	if flags == nil {
		flags = make(map[string]interface{})
	}
	if serviceKey != "" {
		flags["service-key"] = serviceKey
	}
	if authMode != "" {
		flags["auth-mode"] = authMode
	}
	if logLevel != "" {
		flags["log-level"] = logLevel
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, err
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}

// newApp loads configuration, resolves the service key and builds the client
func newApp(flags map[string]interface{}) (*app, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}
	log := logger.GetLogger()

	if err := resolveServiceKey(cfg); err != nil {
		return nil, err
	}

	mode, err := hira.ParseAuthMode(cfg.API.AuthMode)
	if err != nil {
		return nil, err
	}

	output, err := storage.NewManager(cfg.Output.Directory, cfg.Output.Format)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	client := hira.NewClient(cfg.API.ServiceKey, cfg.API.ConnectTimeout, cfg.API.ReadTimeout, log)
	client.SetMetrics(m)

	logger.LogComponentStart(log, "hirafetch", map[string]interface{}{
		"version":     version,
		"auth_mode":   string(mode),
		"service_key": auth.MaskKey(cfg.API.ServiceKey),
		"output_dir":  output.GetOutputDir(),
		"format":      cfg.Output.Format,
	})

	return &app{
		cfg:     cfg,
		log:     log,
		client:  client,
		mode:    mode,
		metrics: m,
		output:  output,
	}, nil
}

// resolveServiceKey fills in the service key from the credential store when
// neither a flag, the environment nor the config file provided one. A named
// account always wins.
func resolveServiceKey(cfg *config.Config) error {
	if account == "" && cfg.API.ServiceKey != "" {
		return nil
	}

	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	var cred *auth.Credential
	if account != "" {
		cred, err = manager.Retrieve(account)
	} else {
		cred, err = manager.RetrieveDefault()
	}
	if err != nil {
		if errors.Is(err, auth.ErrCredentialsNotFound) {
			return fmt.Errorf("no service key found; run 'hirafetch auth set-key' or set %s", auth.EnvServiceKey)
		}
		return err
	}

	cfg.API.ServiceKey = cred.ServiceKey
	if cred.AuthMode != "" && authMode == "" {
		cfg.API.AuthMode = cred.AuthMode
	}
	logger.WithField("account", cred.Name).Info("Using stored service key")
	return nil
}

// openStore opens the named checkpoint, discarding it first when fresh is set
func (a *app) openStore(ctx context.Context, name string, fresh bool) (checkpoint.Store, error) {
	store, err := checkpoint.Open(a.cfg.Checkpoint, name, a.log)
	if err != nil {
		return nil, err
	}
	if fresh {
		if err := store.Delete(ctx); err != nil {
			return nil, fmt.Errorf("failed to discard checkpoint %s: %w", store.Location(), err)
		}
	}
	return store, nil
}

// writeMetrics dumps the run metrics when a textfile path is configured
func (a *app) writeMetrics() {
	path := a.cfg.Metrics.TextfilePath
	if path == "" {
		return
	}
	if err := a.metrics.WriteTextfile(path); err != nil {
		a.log.WithError(err).Warn("Failed to write metrics textfile")
	}
}

func closeStore(store checkpoint.Store) {
	if c, ok := store.(io.Closer); ok {
		_ = c.Close()
	}
}

// signalContext is cancelled on Ctrl-C or SIGTERM so a running fetch can
// checkpoint before the process exits
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// reportInterrupted explains how to resume after a failed or cancelled run
func (a *app) reportInterrupted(store checkpoint.Store, name string) {
	if !a.cfg.Checkpoint.Enabled {
		return
	}
	ui.PrintWarning("Progress kept in checkpoint", store.Location())
	ui.PrintInfo("Resume with", "the same command and --checkpoint "+name)
}
