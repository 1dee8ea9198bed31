// Package cli wires the application together for the command entrypoints:
// configuration, logging, environment detection, storage selection, the
// credential resolver, the client selector, the sync cache and the agent
// conversation.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	stdsync "sync"
	"time"

	"github.com/joho/godotenv"

	"fingram/internal/agent"
	"fingram/internal/api"
	"fingram/internal/auth"
	"fingram/internal/config"
	"fingram/internal/datasync"
	"fingram/internal/log"
	"fingram/internal/storage"
	"fingram/internal/telegram"
)

// LoadEnvFile loads the optional .env file for local development.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// Components is everything a command needs, fully wired.
type Components struct {
	Config       *config.Config
	Logger       *log.Logger
	Env          telegram.Environment
	Store        storage.Store
	Resolver     *auth.Resolver
	Selector     *api.Selector
	Sync         *datasync.Manager
	Conversation *agent.Conversation

	sqlite *storage.SQLiteStore
}

// Bootstrap builds the component graph. The TUI owns the terminal, so logs
// go to the configured file.
func Bootstrap(ctx context.Context) (*Components, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := log.NewFile(cfg.LogFile, parseLevel(cfg.LogLevel), "fingram")

	env := detectEnvironment(ctx, cfg, logger)

	sqlite, err := storage.NewSQLiteStore(cfg.StorePath())
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	store := storage.Select(env.Embedded(), env.Secure, sqlite, logger)

	jar, err := cookiejar.New(nil)
	if err != nil {
		sqlite.Close()
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	httpClient := &http.Client{Jar: jar, Timeout: 30 * time.Second}

	var launchURL *url.URL
	if cfg.LaunchURL != "" {
		launchURL, err = url.Parse(cfg.LaunchURL)
		if err != nil {
			sqlite.Close()
			return nil, fmt.Errorf("parse launch URL: %w", err)
		}
	}

	resolver := auth.NewResolver(cfg.APIBaseURL, env, store, httpClient, launchURL, logger)

	cookie := api.NewCookieClient(cfg.APIBaseURL, httpClient)
	bearer := api.NewBearerClient(cfg.APIBaseURL, httpClient, "")
	mock := api.NewMockClient(api.MockOptions{
		LatencyMin:  cfg.MockLatencyMin,
		LatencyMax:  cfg.MockLatencyMax,
		FailureRate: cfg.MockFailureRate,
	})
	selector := api.NewSelector(cookie, bearer, mock, logger)
	selector.SetEnvironment(env)

	sync := datasync.NewManager(func() api.Client { return selector.Current() }, datasync.Options{}, logger)
	// Data from one backend must never survive a rebind.
	selector.Subscribe(func(api.Client) { sync.InvalidateAll() })
	// Nor from one identity to the next: in standalone mode the cookie client
	// stays bound across logout and re-authentication, so the rebind hook
	// alone would serve the previous session's data.
	resolver.Subscribe(authInvalidation(sync))

	conv := agent.NewConversation(agent.NewHTTPTransport(cfg.APIBaseURL, httpClient), logger)

	return &Components{
		Config:       cfg,
		Logger:       logger,
		Env:          env,
		Store:        store,
		Resolver:     resolver,
		Selector:     selector,
		Sync:         sync,
		Conversation: conv,
		sqlite:       sqlite,
	}, nil
}

// detectEnvironment resolves embedded vs standalone. Forcing the mock
// backend leaves the environment unresolved on purpose: the selector then
// binds the mock client.
func detectEnvironment(ctx context.Context, cfg *config.Config, logger *log.Logger) telegram.Environment {
	if cfg.UseMock {
		logger.Info("mock backend forced, skipping environment detection")
		return telegram.Environment{}
	}

	var bridge telegram.Bridge
	if cfg.InitData != "" {
		init, err := telegram.ParseInitData(cfg.InitData)
		if err != nil {
			logger.Warn("invalid init data, detecting as standalone", "error", err)
		} else {
			bridge = &telegram.StaticBridge{Init: init}
		}
	}
	detector := telegram.NewDetector(bridge, nil, cfg.DetectTimeout, logger)
	return detector.Resolve(ctx)
}

// authInvalidation returns a resolver subscriber that drops the whole cache
// on every transition into an authenticated session.
func authInvalidation(m *datasync.Manager) func(auth.State) {
	var mu stdsync.Mutex
	authed := false
	return func(st auth.State) {
		mu.Lock()
		was := authed
		authed = st.IsAuthenticated
		mu.Unlock()
		if st.IsAuthenticated && !was {
			m.InvalidateAll()
		}
	}
}

func (c *Components) Close() error {
	if c.sqlite != nil {
		return c.sqlite.Close()
	}
	return nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
