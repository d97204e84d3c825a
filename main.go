package main

import (
	"context"
	"embed"
	"encoding/json"
	"flag"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/loganbvh/ssm-analyze/internal/api"
	"github.com/loganbvh/ssm-analyze/internal/catalog"
	"github.com/loganbvh/ssm-analyze/internal/config"
	"github.com/loganbvh/ssm-analyze/internal/version"
)

var (
	//go:embed static/*
	staticFiles embed.FS

	devMode    = flag.Bool("dev", false, "Run in dev mode")
	configPath = flag.String("config", "", "Path to a JSON config file")
	listen     = flag.String("listen", "", "Listen address (overrides config)")
	dataRoot   = flag.String("data", "", "Data root to index (overrides config)")
	dbPath     = flag.String("db", "", "Catalog database path (overrides config)")
	migrateCmd = flag.String("migrate", "", "Run a migration command and exit: up, down, version, status, force=N")
	rescanOnly = flag.Bool("rescan", false, "Rescan the data root and exit")
)

func loadConfig() *config.Config {
	cfg := &config.Config{}
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			logrus.WithError(err).Fatalf("failed to load config %s", *configPath)
		}
	}
	if *listen != "" {
		cfg.Listen = listen
	}
	if *dataRoot != "" {
		cfg.DataRoot = dataRoot
	}
	if *dbPath != "" {
		cfg.DBPath = dbPath
	}
	return cfg
}

// runMigration executes one -migrate command against the catalog.
func runMigration(c *catalog.Catalog, dir, command string) error {
	switch {
	case command == "up":
		return c.MigrateUp(dir)
	case command == "down":
		return c.MigrateDown(dir)
	case command == "version":
		v, dirty, err := c.MigrateVersion(dir)
		if err != nil {
			return err
		}
		fmt.Printf("version=%d dirty=%v\n", v, dirty)
		return nil
	case command == "status":
		status, err := c.MigrationStatus(dir)
		if err != nil {
			return err
		}
		return json.NewEncoder(os.Stdout).Encode(status)
	case strings.HasPrefix(command, "force="):
		v, err := strconv.Atoi(strings.TrimPrefix(command, "force="))
		if err != nil {
			return fmt.Errorf("invalid force version: %w", err)
		}
		return c.MigrateForce(dir, v)
	default:
		return fmt.Errorf("unknown migrate command %q, want up, down, version, status, or force=N", command)
	}
}

func main() {
	flag.Parse()

	cfg := loadConfig()
	logrus.Infof("ssm-analyze %s", version.String())

	c, err := catalog.Open(cfg.GetDBPath(), cfg.GetDataRoot())
	if err != nil {
		logrus.WithError(err).Fatal("failed to open catalog")
	}
	defer c.Close()

	if *migrateCmd != "" {
		if err := runMigration(c, cfg.GetMigrationsDir(), *migrateCmd); err != nil {
			logrus.WithError(err).Fatal("migration failed")
		}
		return
	}

	if err := c.MigrateUp(cfg.GetMigrationsDir()); err != nil {
		logrus.WithError(err).Fatal("failed to migrate catalog schema")
	}

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	n, err := c.Rescan(ctx)
	if err != nil {
		logrus.WithError(err).Fatal("failed to index the data root")
	}
	logrus.Infof("indexed %d datasets under %s", n, cfg.GetDataRoot())

	if *rescanOnly {
		return
	}

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := api.NewServer(c, cfg).ServeMux()

		// Admin debugging routes (tailsql console, backup) only in dev mode.
		if *devMode {
			c.AttachAdminRoutes(mux)
		}

		// Read the dashboard from the embedded filesystem in production or
		// from the local ./static in dev for easier iteration without
		// restarting the server.
		var staticHandler http.Handler
		if *devMode {
			staticHandler = http.FileServer(http.Dir("./static"))
		} else {
			subFS, err := fs.Sub(staticFiles, "static")
			if err != nil {
				panic(err)
			}
			staticHandler = http.FileServer(http.FS(subFS))
		}
		mux.Handle("/", staticHandler)

		server := &http.Server{
			Addr:    cfg.GetListen(),
			Handler: api.LoggingMiddleware(mux),
		}

		// Start server in a goroutine so it doesn't block
		go func() {
			logrus.Infof("listening on http://%s", cfg.GetListen())
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logrus.WithError(err).Fatal("failed to start server")
			}
		}()

		// Wait for context cancellation to shut down server
		<-ctx.Done()
		logrus.Info("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logrus.WithError(err).Error("HTTP server shutdown error")
		}

		logrus.Info("HTTP server routine stopped")
	}()

	wg.Wait()
	logrus.Info("Graceful shutdown complete")
}
