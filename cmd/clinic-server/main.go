package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/clinic/clinic/internal/config"
	"github.com/clinic/clinic/internal/domain/scheduling"
	"github.com/clinic/clinic/internal/platform/auth"
	"github.com/clinic/clinic/internal/platform/db"
	"github.com/clinic/clinic/internal/platform/metrics"
	"github.com/clinic/clinic/internal/platform/middleware"
	"github.com/clinic/clinic/migrations"
)

const (
	serviceName      = "clinic-server"
	metricsNamespace = "clinic"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   serviceName,
		Short: "Clinic appointment scheduling server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration commands",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			table, _ := cmd.Flags().GetString("version-table")
			ctx := cmd.Context()

			conn, err := connect(ctx)
			if err != nil {
				return err
			}
			defer conn.Close(ctx)

			from, to, err := db.NewMigrator(migrations.FS, table).Up(ctx, conn)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			if from == to {
				fmt.Printf("Schema already at version %d.\n", to)
				return nil
			}
			fmt.Printf("Migrated schema from version %d to %d.\n", from, to)
			return nil
		},
	}
	upCmd.Flags().String("version-table", db.DefaultVersionTable, "Table recording the applied schema version")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			table, _ := cmd.Flags().GetString("version-table")
			ctx := cmd.Context()

			conn, err := connect(ctx)
			if err != nil {
				return err
			}
			defer conn.Close(ctx)

			statuses, err := db.NewMigrator(migrations.FS, table).Status(ctx, conn)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %s\n", "VERSION", "NAME", "STATUS")
			fmt.Println("---------- ---------------------------------------- ----------")
			for _, s := range statuses {
				status := "pending"
				if s.Applied {
					status = "applied"
				}
				fmt.Printf("%-10d %-40s %s\n", s.Version, s.Name, status)
			}
			return nil
		},
	}
	statusCmd.Flags().String("version-table", db.DefaultVersionTable, "Table recording the applied schema version")
	cmd.AddCommand(statusCmd)

	return cmd
}

// connect opens a single connection for the migration commands.
func connect(ctx context.Context) (*pgx.Conn, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	conn, err := pgx.Connect(ctx, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return conn, nil
}

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", serviceName).Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return logger.Level(cfg.Level())
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := newLogger(cfg)

	ctx := context.Background()
	var poolOpts []db.PoolOption
	if cfg.Level() <= zerolog.DebugLevel {
		poolOpts = append(poolOpts, db.WithQueryLog(logger))
	}
	pool, err := db.NewPool(ctx, cfg.DSN(), cfg.DBMaxConns, cfg.DBMinConns, poolOpts...)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	logger.Info().Str("host", cfg.DBHost).Str("database", cfg.DBName).Msg("connected to database")

	collector := metrics.NewCollector(metricsNamespace)
	repo := scheduling.NewRepoPG(pool,
		scheduling.WithUpsertStrategy(scheduling.UpsertStrategy(cfg.UpsertStrategy)),
		scheduling.WithLogger(logger),
		scheduling.WithMetrics(collector),
	)
	svc := scheduling.NewService(repo, scheduling.BaseValidator{}, logger)

	e := newRouter(cfg, logger, svc, pool, collector)

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("upsert_strategy", cfg.UpsertStrategy).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}

// newRouter assembles the HTTP surface. pinger may be nil, in which case
// /health/db is not registered.
func newRouter(cfg *config.Config, logger zerolog.Logger, svc *scheduling.Service, pinger db.Pinger, collector *metrics.Collector) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.Metrics(collector))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
	}))
	e.Use(echomw.BodyLimit("1M"))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	if pinger != nil {
		e.GET("/health/db", db.HealthHandler(pinger))
	}
	if collector != nil {
		e.GET("/metrics", echo.WrapHandler(collector.Handler()))
	}

	apiV1 := e.Group("/api/v1")
	if cfg.IsDev() && cfg.AuthSigningKey == "" {
		logger.Warn().Msg("no signing key configured, using development identity")
		apiV1.Use(auth.DevAuthMiddleware())
	} else {
		apiV1.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			SigningKey: []byte(cfg.AuthSigningKey),
		}))
	}

	// Keyed by user once authenticated, so it runs after auth.
	rl := middleware.DefaultRateLimitConfig()
	rl.RequestsPerSecond = cfg.RateLimitRPS
	rl.BurstSize = cfg.RateLimitBurst
	apiV1.Use(middleware.RateLimit(rl))

	scheduling.NewHandler(svc).RegisterRoutes(apiV1)
	return e
}
