package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/rubiojr/bookexplorer/pkg/api"
	"github.com/rubiojr/bookexplorer/pkg/catalog"
	"github.com/rubiojr/bookexplorer/pkg/config"
	"github.com/rubiojr/bookexplorer/pkg/log"
	"github.com/rubiojr/bookexplorer/pkg/recent"
	"github.com/rubiojr/bookexplorer/pkg/session"
	"github.com/urfave/cli/v3"
)

var webLogger = log.ForService("web")

// WebCommand creates the web command serving the JSON API
func WebCommand() *cli.Command {
	return &cli.Command{
		Name:  "web",
		Usage: "Start the HTTP API server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "port",
				Usage: "Port to listen on (defaults to the [web] port setting)",
			},
			&cli.StringFlag{
				Name:  "host",
				Usage: "Host to bind to (defaults to the [web] host setting)",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return startWebServer(ctx, c)
		},
	}
}

func startWebServer(ctx context.Context, c *cli.Command) error {
	configPath := c.String("config")
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	store, err := openRecent(cfg, false)
	if err != nil {
		return err
	}
	defer closeQuietly("recent searches", store)

	client := newCatalog(cfg)
	manager := session.NewManager(sessionDeps(cfg, client, store), cfg.Web.SessionTTL.Duration)
	defer manager.Close()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go manager.Run(runCtx)

	host := c.String("host")
	if host == "" {
		host = cfg.Web.Host
	}
	port := c.String("port")
	if port == "" {
		port = strconv.Itoa(cfg.Web.Port)
	}
	addr := net.JoinHostPort(host, port)

	server := &http.Server{
		Addr:              addr,
		Handler:           api.NewServer(manager, store, client).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		webLogger.Infof("Starting API server on http://%s", addr)
		webLogger.Infof("Available endpoints:")
		webLogger.Infof("  POST   /api/sessions - Create a search session")
		webLogger.Infof("  GET    /api/sessions/{id} - Current view")
		webLogger.Infof("  POST   /api/sessions/{id}/input|submit|more|retry")
		webLogger.Infof("  PUT    /api/sessions/{id}/sort - Change sort mode")
		webLogger.Infof("  GET    /api/sessions/{id}/books/{bookID}/details")
		webLogger.Infof("  GET    /api/sessions/{id}/events - WebSocket event stream")
		webLogger.Infof("  GET    /api/recent, DELETE /api/recent")
		webLogger.Infof("  GET    /api/covers/{coverID}?size=S|M|L")
		webLogger.Infof("  GET    /health, /metrics")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	r := &reloader{
		configPath: configPath,
		debug:      c.Bool("debug"),
		client:     client,
		manager:    manager,
		store:      store,
		current:    cfg,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	var (
		events    <-chan fsnotify.Event
		watchErrs <-chan error
	)
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		webLogger.Warnf("failed to create config file watcher: %v", err)
	} else {
		defer func() {
			if err := watcher.Close(); err != nil {
				webLogger.Warnf("failed to close config file watcher: %v", err)
			}
		}()
		if err := watcher.Add(configPath); err != nil {
			webLogger.Warnf("failed to watch config file %s: %v", configPath, err)
		} else {
			webLogger.Infof("Watching config file for changes: %s", configPath)
			events, watchErrs = watcher.Events, watcher.Errors
		}
	}

	for {
		select {
		case <-ctx.Done():
			return shutdown(server)
		case err := <-errCh:
			return fmt.Errorf("server failed: %w", err)
		case sig := <-sigCh:
			if sig == syscall.SIGHUP {
				webLogger.Infof("Received SIGHUP, reloading configuration...")
				r.reloadAndLog()
				continue
			}
			return shutdown(server)
		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if configChanged(watcher, event, configPath) {
				webLogger.Infof("Config file changed: %s (event: %s), reloading configuration...", event.Name, event.Op.String())
				r.reloadAndLog()
			}
		case err, ok := <-watchErrs:
			if !ok {
				watchErrs = nil
				continue
			}
			webLogger.Warnf("config file watcher error: %v", err)
		}
	}
}

func shutdown(server *http.Server) error {
	webLogger.Infof("Shutting down API server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}

// configChanged reports whether a watcher event should trigger a reload.
// Editors often save with an atomic rename, which drops the watch, so the
// path is re-added when the file was replaced.
func configChanged(watcher *fsnotify.Watcher, event fsnotify.Event, configPath string) bool {
	if !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove)) {
		return false
	}

	if event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
		time.Sleep(200 * time.Millisecond)
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			webLogger.Infof("Config file was removed and not replaced, skipping reload")
			return false
		}
		if err := watcher.Add(configPath); err != nil {
			webLogger.Warnf("failed to re-add config file to watcher: %v", err)
		}
		return true
	}

	// let the writer finish
	time.Sleep(100 * time.Millisecond)
	return true
}

// reloader applies configuration changes to a running server. Catalog
// options, logging and the settings of new sessions are swapped in place;
// the listen address and the storage directory need a restart.
type reloader struct {
	configPath string
	debug      bool
	client     *catalog.Client
	manager    *session.Manager
	store      recent.Store

	mu      sync.Mutex
	current *config.Config
}

func (r *reloader) reload() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	newCfg, err := config.LoadConfig(r.configPath)
	if err != nil {
		return fmt.Errorf("loading new config: %w", err)
	}

	if newCfg.StorageDir != r.current.StorageDir {
		webLogger.Warnf("storage_dir changed to %s, restart to apply", newCfg.StorageDir)
	}
	if newCfg.Web != r.current.Web {
		webLogger.Warnf("[web] settings changed, restart to apply")
	}

	log.Configure(r.debug, newCfg.DebugServices)
	r.client.Reconfigure(catalog.OptionsFromConfig(newCfg.Catalog))
	r.manager.SetDeps(sessionDeps(newCfg, r.client, r.store))

	r.current = newCfg
	return nil
}

func (r *reloader) reloadAndLog() {
	if err := r.reload(); err != nil {
		webLogger.Errorf("Failed to reload configuration: %v", err)
		return
	}
	webLogger.Infof("Configuration reloaded successfully")
}
