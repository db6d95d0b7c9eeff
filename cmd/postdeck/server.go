package main

import (
	"context"
	"errors"
	"fmt"
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

	"github.com/kalambet/postdeck/internal/api"
	"github.com/kalambet/postdeck/internal/config"
	"github.com/kalambet/postdeck/internal/notify"
)

const shutdownTimeout = 5 * time.Second

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "postdeck.pid")
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

// reminderRuntime is the notification center and stores shared by serve
// and watch. Reminders for future unposted posts are re-armed on start.
type reminderRuntime struct {
	center *notify.Center
	stores *stores
}

func (a *app) startReminders(ctx context.Context) (*reminderRuntime, error) {
	center, err := a.newCenter()
	if err != nil {
		return nil, err
	}
	if ok, err := center.RequestAuthorization(ctx); err != nil || !ok {
		printWarning("Reminders may not be delivered: notification permission not granted")
	}

	s, err := a.openStores(ctx, center)
	if err != nil {
		center.Close()
		return nil, err
	}
	n := s.schedule.RearmNotifications(ctx)
	a.logger.Info("reminders armed", "count", n)
	return &reminderRuntime{center: center, stores: s}, nil
}

func (r *reminderRuntime) Close() {
	if err := r.center.Close(); err != nil {
		printWarning("closing reminders: %v", err)
	}
	if err := r.stores.Close(); err != nil {
		printWarning("closing storage: %v", err)
	}
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local API, reminders and optionally the MCP server (foreground)",
	Long: `Run the local REST API on 127.0.0.1 and keep reminders armed.

With --mcp the MCP server also runs on stdin/stdout, so postdeck can be
registered as a tool server in an MCP client.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		withMCP, _ := cmd.Flags().GetBool("mcp")
		return runServer(withMCP)
	},
}

func runServer(withMCP bool) error {
	fmt.Fprintf(os.Stderr, "postdeck version %s\n", version)

	a, err := loadApp()
	if err != nil {
		return err
	}

	pidPath := pidFilePath(a.cfg.Storage.DataDir)
	probeCtx, cancelProbe := context.WithTimeout(context.Background(), 2*time.Second)
	running := detectServer(probeCtx, a)
	cancelProbe()
	if running != nil {
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		return fmt.Errorf("server already running on port %d", a.cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	token, err := config.GetAPIToken(config.NewKeychain())
	if err != nil {
		return fmt.Errorf("getting API token: %w", err)
	}

	rt, err := a.startReminders(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	s := a.studio(rt.stores.history)
	if conn, err := s.Connect(ctx); err != nil {
		printWarning("Generation backend: %v", err)
	} else {
		a.logger.Info("generation backend connected", "status", conn.Status, "companies", len(conn.Companies))
	}

	handler := api.NewHandler(api.Deps{
		History:        rt.stores.history,
		Schedule:       rt.stores.schedule,
		Studio:         s,
		Token:          token,
		AllowedOrigins: a.cfg.Server.Origins(),
		Logger:         a.logger,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", a.cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	if withMCP {
		mcpSrv := api.NewMCPServer(api.MCPDeps{
			History:  rt.stores.history,
			Schedule: rt.stores.schedule,
		})
		stdioSrv := server.NewStdioServer(mcpSrv)
		go func() {
			if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Error("MCP stdio server error", "error", err)
			}
		}()
		a.logger.Info("MCP server started (stdio transport)")
	}

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "postdeck listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running postdeck server",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}

		pidPath := pidFilePath(a.cfg.Storage.DataDir)
		pid, err := readPIDFile(pidPath)
		if err != nil {
			return fmt.Errorf("postdeck is not running: %w", err)
		}
		process, err := os.FindProcess(pid)
		if err != nil {
			return fmt.Errorf("finding process %d: %w", pid, err)
		}
		if err := process.Signal(syscall.SIGTERM); err != nil {
			removePIDFile(pidPath)
			return fmt.Errorf("stopping postdeck (PID %d): %w", pid, err)
		}
		printSuccess("Sent stop signal to postdeck (PID %d)", pid)
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Deliver reminders for scheduled posts without the API (foreground)",
	Long: `Deliver reminders for scheduled posts until interrupted.

Use this instead of "serve" when nothing needs the local API. Posts
scheduled from other terminals while watch runs are picked up on restart.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		rt, err := a.startReminders(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		pending := rt.center.Pending()
		printSuccess("Watching %d reminder(s), Ctrl+C to stop", len(pending))
		for _, r := range pending {
			printStatus(r.FireAt.Local().Format(displayLayout), "%s", r.Title)
		}

		<-ctx.Done()
		fmt.Fprintln(os.Stderr, "stopping...")
		return nil
	},
}

func init() {
	serveCmd.Flags().Bool("mcp", false, "also serve MCP over stdin/stdout")
}
