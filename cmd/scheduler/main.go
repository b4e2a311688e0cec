package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/example/shift-scheduler/internal/application"
	"github.com/example/shift-scheduler/internal/config"
	httptransport "github.com/example/shift-scheduler/internal/http"
	"github.com/example/shift-scheduler/internal/logging"
	"github.com/example/shift-scheduler/internal/metrics"
	"github.com/example/shift-scheduler/internal/persistence/sqlite"
	"github.com/example/shift-scheduler/internal/recurrence"
	"github.com/example/shift-scheduler/internal/session"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

type rootOptions struct {
	envFile        string
	insecureCookie bool
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	serve := func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context(), opts)
	}

	root := &cobra.Command{
		Use:          "scheduler",
		Short:        "Shift scheduling API server",
		Long:         "scheduler serves the shift scheduling HTTP API backed by a local SQLite database.",
		SilenceUsage: true,
		RunE:         serve,
	}
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", config.DefaultEnvFile, "path to an optional .env file")
	root.PersistentFlags().BoolVar(&opts.insecureCookie, "insecure-cookie", false, "issue the session cookie without the Secure attribute (plain HTTP development)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Apply migrations, seed the administrator and serve HTTP",
		RunE:  serve,
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations and print the schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	seedCmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create the built-in administrator when the user table is empty",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeedAdmin(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version number of scheduler",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "scheduler version %s\n", version)
		},
	}

	root.AddCommand(serveCmd, migrateCmd, seedCmd, versionCmd)
	return root
}

func bootstrap(opts *rootOptions) (config.Config, *slog.Logger, io.Closer, error) {
	cfg, err := config.LoadWithEnvFile(opts.envFile)
	if err != nil {
		return config.Config{}, nil, nil, err
	}
	logger, closer, err := logging.New(logging.Options{
		Level:      cfg.LogLevel,
		Format:     cfg.LogFormat,
		FilePath:   cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
	})
	if err != nil {
		return config.Config{}, nil, nil, err
	}
	return cfg, logger, closer, nil
}

// openStore opens the database and applies the embedded migrations.
func openStore(ctx context.Context, dsn string, logger *slog.Logger) (*sqlite.Store, error) {
	store, err := sqlite.OpenPath(dsn, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	applied, err := store.Migrate(ctx)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}
	logger.Info("database ready", "dsn", dsn, "migrations_applied", applied)
	return store, nil
}

func runMigrate(ctx context.Context, out io.Writer, opts *rootOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, logger, closer, err := bootstrap(opts)
	if err != nil {
		return err
	}
	defer closer.Close()

	store, err := openStore(ctx, cfg.SQLiteDSN, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	status, err := store.MigrationStatus(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "schema version %s (%d applied, %d pending)\n", status.CurrentVersion, len(status.AppliedMigrations), status.PendingCount)
	return nil
}

func runSeedAdmin(ctx context.Context, out io.Writer, opts *rootOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, logger, closer, err := bootstrap(opts)
	if err != nil {
		return err
	}
	defer closer.Close()

	store, err := openStore(ctx, cfg.SQLiteDSN, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	users := application.NewUserServiceWithLogger(newUserRepositoryAdapter(store), nil, uuid.NewString, time.Now, logger)
	admin, created, err := users.EnsureBuiltInAdmin(ctx, cfg.AdminName, cfg.AdminPIN)
	if err != nil {
		return fmt.Errorf("failed to seed administrator: %w", err)
	}
	if !created {
		fmt.Fprintln(out, "users already exist; nothing to seed")
		return nil
	}
	fmt.Fprintf(out, "created administrator %q (%s)\n", admin.Name, admin.ID)
	return nil
}

func runServe(ctx context.Context, opts *rootOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, logger, closer, err := bootstrap(opts)
	if err != nil {
		return err
	}
	defer closer.Close()

	store, err := openStore(ctx, cfg.SQLiteDSN, logger)
	if err != nil {
		logger.Error("failed to prepare storage", "error", err)
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	handler, err := newApplication(ctx, store, cfg, logger, appOptions{insecureCookie: opts.insecureCookie})
	if err != nil {
		logger.Error("failed to assemble application", "error", err)
		return err
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("scheduler API listening", "addr", server.Addr, "version", version, "timezone", cfg.Timezone)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		return err
	}
	logger.Info("scheduler API stopped")
	return nil
}

type appOptions struct {
	insecureCookie bool
	now            func() time.Time
	idGenerator    func() string
}

// newApplication wires repositories, services and handlers into the HTTP
// handler and seeds the built-in administrator.
func newApplication(ctx context.Context, store *sqlite.Store, cfg config.Config, logger *slog.Logger, opts appOptions) (http.Handler, error) {
	now := opts.now
	if now == nil {
		now = time.Now
	}
	idGenerator := opts.idGenerator
	if idGenerator == nil {
		idGenerator = uuid.NewString
	}

	workplaceRepo := newWorkplaceRepositoryAdapter(store)
	shiftRepo := newShiftRepositoryAdapter(store)
	ruleRepo := newRuleRepositoryAdapter(store)
	userRepo := newUserRepositoryAdapter(store)

	issuer, err := session.NewIssuerWithClock(session.Config{SecretKey: cfg.SessionSecret, Duration: cfg.SessionTTL}, now)
	if err != nil {
		return nil, fmt.Errorf("failed to configure sessions: %w", err)
	}

	var collectors *metrics.Metrics
	ruleOpts := application.RuleServiceOptions{Location: cfg.Location, Logger: logger, HorizonDays: cfg.RuleHorizonDays}
	if cfg.MetricsEnabled {
		collectors = metrics.New(metrics.DefaultNamespace)
		ruleOpts.Observer = collectors
	}

	workplaceService := application.NewWorkplaceServiceWithLogger(workplaceRepo, shiftRepo, idGenerator, now, logger)
	shiftService := application.NewShiftServiceWithLogger(shiftRepo, workplaceRepo, idGenerator, now, cfg.Location, logger)
	ruleService := application.NewRuleServiceWithOptions(ruleRepo, shiftRepo, workplaceRepo, recurrence.NewEngine(idGenerator), now, ruleOpts)
	userService := application.NewUserServiceWithLogger(userRepo, nil, idGenerator, now, logger)
	authService := application.NewAuthServiceWithLogger(userRepo, issuer, nil, logger)

	admin, created, err := userService.EnsureBuiltInAdmin(ctx, cfg.AdminName, cfg.AdminPIN)
	if err != nil {
		return nil, fmt.Errorf("failed to seed administrator: %w", err)
	}
	if created {
		logger.Info("built-in administrator created", "user_id", admin.ID, "name", admin.Name)
	}

	authHandler := httptransport.NewAuthHandler(authService, logger)
	if opts.insecureCookie {
		authHandler = authHandler.WithInsecureCookie()
	}

	routerCfg := httptransport.RouterConfig{
		Auth:       authHandler,
		Users:      httptransport.NewUserHandler(userService, logger),
		Workplaces: httptransport.NewWorkplaceHandler(workplaceService, logger),
		Shifts:     httptransport.NewShiftHandler(shiftService, userService, logger),
		Rules:      httptransport.NewRuleHandler(ruleService, logger),
		Calendar:   httptransport.NewCalendarHandler(shiftService, logger),
		Sessions:   authService,
		Health:     store,
		Middleware: []func(http.Handler) http.Handler{httptransport.RequestLogger(logger)},
		Logger:     logger,
	}
	if collectors != nil {
		routerCfg.Instrument = collectors.Middleware
		routerCfg.MetricsHandler = collectors.Handler()
	}

	return httptransport.NewRouter(routerCfg), nil
}
