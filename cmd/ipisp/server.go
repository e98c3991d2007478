package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/yapily/ipisp/internal/api"
	"github.com/yapily/ipisp/internal/bridge"
	"github.com/yapily/ipisp/internal/config"
	"github.com/yapily/ipisp/internal/deeplink"
	"github.com/yapily/ipisp/internal/logging"
	"github.com/yapily/ipisp/internal/prefs"
	"github.com/yapily/ipisp/internal/storage"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the ipisp server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running ipisp server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show ipisp server status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(cmd.Context())
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "ipisp.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

// app is the wired set of components behind the HTTP and MCP surfaces.
type app struct {
	prefs    *prefs.Store
	deepLink *deeplink.Holder
	channels *bridge.Channels
	handler  http.Handler
}

func newApp(cfg config.Config, backend prefs.Backend, token string, logger *slog.Logger) *app {
	store := prefs.NewStore(backend,
		prefs.WithNamespace(cfg.Prefs.Namespace),
		prefs.WithLogger(logger.With("component", "prefs")),
	)
	holder := deeplink.NewHolder(cfg.DeepLink.Param, logger.With("component", "deeplink"))

	channels := bridge.NewChannels()
	channels.Register(cfg.Prefs.Channel, bridge.NewPreferencesHandler(store, logger.With("channel", cfg.Prefs.Channel)))
	channels.Register(cfg.DeepLink.Channel, bridge.NewPaymentHandler(holder))

	return &app{
		prefs:    store,
		deepLink: holder,
		channels: channels,
		handler: api.NewAppHandler(api.AppDeps{
			Channels: channels,
			DeepLink: holder,
			Token:    token,
			Logger:   logger.With("component", "api"),
		}),
	}
}

func runServer() error {
	fmt.Fprintf(stderr, "ipisp version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	slog.SetDefault(logger)

	apiToken, err := config.GetAPIToken(config.NewKeychain())
	if err != nil {
		return fmt.Errorf("initializing API token: %w", err)
	}
	logger.Info("API bearer token available")

	// Refuse to start twice: a healthy server on our port wins.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("ipisp is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("ipisp is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("closing storage", "error", err)
		}
	}()

	a := newApp(cfg, store, apiToken, logger)

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("ipisp listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.Server.MCPStdio {
		mcpSrv := api.NewMCPServer(api.MCPDeps{Prefs: a.prefs, Version: version})
		stdioSrv := server.NewStdioServer(mcpSrv)
		g.Go(func() error {
			if err := stdioSrv.Listen(gCtx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("MCP stdio server error", "error", err)
			}
			return nil
		})
		logger.Info("MCP server started (stdio transport)")
	}

	return g.Wait()
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("ipisp is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop ipisp (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to ipisp (PID %d)", pid)
	return nil
}

func showStatus(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		// Still show partial status even if config fails.
		printError("config error: %v", err)
		return nil
	}

	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	running := false
	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			running = true
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	if running {
		if c, err := newAPIClient(); err == nil {
			if raw, err := c.invoke(ctx, c.prefsChannel, "getAll", nil); err == nil {
				var all map[string]any
				if err := decodeResult(raw, &all); err == nil {
					printStatus("Preferences", "%d", len(all))
				}
			}
		}
	}

	printStatus("Namespace", "%s", cfg.Prefs.Namespace)
	printStatus("Channels", "%s, %s", cfg.Prefs.Channel, cfg.DeepLink.Channel)
	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}
