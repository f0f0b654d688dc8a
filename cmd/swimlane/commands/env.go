package commands

import (
	"context"
	"fmt"

	"github.com/dyluth/swimlane/internal/config"
	"github.com/dyluth/swimlane/internal/logging"
	"github.com/dyluth/swimlane/internal/printer"
	"github.com/dyluth/swimlane/internal/resolver"
	"github.com/dyluth/swimlane/internal/session"
	"github.com/dyluth/swimlane/internal/store"
	"github.com/dyluth/swimlane/pkg/board"
	"github.com/sirupsen/logrus"
)

// environment is what a command needs to talk to the store.
type environment struct {
	cfg    *config.SwimlaneConfig
	log    *logrus.Logger
	client *board.Client
}

// connect loads configuration, builds the logger and opens a verified Redis
// connection. Failures are rendered through the printer.
func connect(ctx context.Context, opts *globalOptions) (*environment, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, printer.Error(
			"invalid configuration",
			err.Error(),
			[]string{fmt.Sprintf("Fix %s or remove it to use the defaults", opts.configPath)},
		)
	}
	if opts.namespace != "" {
		cfg.Namespace = opts.namespace
	}

	logger, err := logging.New(logging.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}

	redisOpts, err := cfg.RedisOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client, err := board.NewClient(redisOpts, cfg.Namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to create board client: %w", err)
	}

	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, printer.ErrorWithContext(
			"Redis connection failed",
			fmt.Sprintf("Could not connect to Redis: %v", err),
			map[string]string{"URL": cfg.Redis.URL, "Namespace": cfg.Namespace},
			[]string{
				"Start a local Redis:\n  docker run -d -p 6379:6379 redis:7-alpine",
				fmt.Sprintf("Point swimlane at another server:\n  export %s=redis://host:6379/0", config.EnvRedisURL),
			},
		)
	}

	return &environment{cfg: cfg, log: logger, client: client}, nil
}

func (e *environment) Close() {
	e.client.Close()
}

// adapter returns a store adapter configured from the loaded config.
func (e *environment) adapter() *store.Adapter {
	return store.NewAdapter(e.client, store.Options{
		MaxFailures: e.cfg.Store.Breaker.MaxFailures,
		OpenTimeout: e.cfg.BreakerOpenTimeout(),
		Logger:      e.log,
	})
}

// openSession opens a live session on boardID using the loaded config.
func (e *environment) openSession(ctx context.Context, boardID string) (*session.Session, error) {
	return session.Open(ctx, e.client, boardID, session.Options{
		Debounce:           e.cfg.Debounce(),
		ActivationDistance: e.cfg.Drag.ActivationDistance,
		BreakerMaxFailures: e.cfg.Store.Breaker.MaxFailures,
		BreakerOpenTimeout: e.cfg.BreakerOpenTimeout(),
		Logger:             e.log,
	})
}

type resolveFunc func(context.Context, resolver.Store, string) (string, error)

// resolveID turns a short or full ID into a full one, rendering resolver errors.
func (e *environment) resolveID(ctx context.Context, kind string, fn resolveFunc, shortID string) (string, error) {
	id, err := fn(ctx, e.client, shortID)
	if err == nil {
		return id, nil
	}
	if resolver.IsNotFoundError(err) {
		return "", printer.Error(
			fmt.Sprintf("%s with ID '%s' not found", kind, shortID),
			fmt.Sprintf("No %s in namespace '%s' matches this ID.", kind, e.cfg.Namespace),
			[]string{fmt.Sprintf("List what exists:\n  swimlane %s", listHint(kind))},
		)
	}
	if ambErr, ok := err.(*resolver.AmbiguousError); ok {
		return "", printer.Error(
			"ambiguous short ID",
			resolver.FormatAmbiguousError(ambErr),
			nil,
		)
	}
	return "", printer.Error(
		fmt.Sprintf("invalid %s ID", kind),
		err.Error(),
		nil,
	)
}

func (e *environment) resolveBoard(ctx context.Context, shortID string) (string, error) {
	return e.resolveID(ctx, "board", resolver.ResolveBoardID, shortID)
}

func (e *environment) resolveColumn(ctx context.Context, shortID string) (string, error) {
	return e.resolveID(ctx, "column", resolver.ResolveColumnID, shortID)
}

func (e *environment) resolveTask(ctx context.Context, shortID string) (string, error) {
	return e.resolveID(ctx, "task", resolver.ResolveTaskID, shortID)
}

func listHint(kind string) string {
	switch kind {
	case "board":
		return "board list --team <team>"
	case "column":
		return "board show <board>"
	default:
		return "task list --board <board>"
	}
}

// storeError renders the typed store errors; anything else is returned as is.
func storeError(action string, err error) error {
	switch {
	case board.IsValidation(err):
		return printer.Error(fmt.Sprintf("cannot %s", action), err.Error(), nil)
	case board.IsNotFound(err):
		return printer.Error(fmt.Sprintf("cannot %s", action), err.Error(),
			[]string{"The record was probably deleted concurrently; refresh and retry"})
	case board.IsPersistence(err):
		return printer.Error(fmt.Sprintf("failed to %s", action), err.Error(),
			[]string{"Check Redis health and retry; nothing was partially written"})
	default:
		return fmt.Errorf("failed to %s: %w", action, err)
	}
}
