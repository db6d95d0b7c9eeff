package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/kalambet/postdeck/internal/config"
	"github.com/kalambet/postdeck/internal/genclient"
	"github.com/kalambet/postdeck/internal/history"
	"github.com/kalambet/postdeck/internal/notify"
	"github.com/kalambet/postdeck/internal/schedule"
	"github.com/kalambet/postdeck/internal/storage"
	"github.com/kalambet/postdeck/internal/studio"
)

// loadConfig is replaced in tests.
var loadConfig = config.Load

type app struct {
	cfg    config.Config
	logger *slog.Logger
}

func loadApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg.Log.Level)
	slog.SetDefault(logger)
	return &app{cfg: cfg, logger: logger}, nil
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}

func (a *app) backendClient() *genclient.Client {
	opts := []genclient.Option{genclient.WithTimeout(a.cfg.Backend.TimeoutDuration())}
	if a.cfg.Backend.APIKey != "" {
		opts = append(opts, genclient.WithAPIKey(a.cfg.Backend.APIKey))
	}
	return genclient.New(a.cfg.Backend.BaseURL, opts...)
}

// studio builds a generation session. rec may be nil for commands that
// never generate.
func (a *app) studio(rec studio.Recorder) *studio.Studio {
	return studio.New(a.backendClient(), rec, studio.WithLogger(a.logger))
}

// stores are the two persistent collections over one storage backend.
type stores struct {
	backend  storage.Backend
	history  *history.Store
	schedule *schedule.Store
}

func (a *app) openStores(ctx context.Context, gw notify.Gateway) (*stores, error) {
	b, err := storage.OpenBackend(a.cfg.Storage.Backend, a.cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}
	a.logger.Debug("storage opened", "backend", a.cfg.Storage.Backend, "location", b.Location())
	return &stores{
		backend:  b,
		history:  history.Open(b, history.WithLogger(a.logger)),
		schedule: schedule.Open(ctx, b, gw, schedule.WithLogger(a.logger)),
	}, nil
}

func (s *stores) Close() error {
	return s.backend.Close()
}

// deliverer builds the reminder channels enabled in config: desktop
// notifications, plus Telegram when a bot token and chat id are set.
func (a *app) deliverer() (notify.Deliverer, error) {
	if !a.cfg.Notify.Enabled {
		return notify.Noop{}, nil
	}
	out := notify.Fanout{notify.Desktop()}
	if a.cfg.Notify.TelegramEnabled() {
		tg, err := notify.NewTelegramDeliverer(a.cfg.Notify.TelegramToken, a.cfg.Notify.TelegramChatID)
		if err != nil {
			return nil, fmt.Errorf("setting up telegram reminders: %w", err)
		}
		out = append(out, tg)
	}
	return out, nil
}

// newCenter returns the gateway used by long-running commands.
func (a *app) newCenter() (*notify.Center, error) {
	d, err := a.deliverer()
	if err != nil {
		return nil, err
	}
	return notify.NewCenter(d, notify.WithLogger(a.logger)), nil
}

var errNotFound = errors.New("not found")
