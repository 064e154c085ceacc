package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ward/ward/internal/config"
	"github.com/ward/ward/internal/domain/catalog"
	"github.com/ward/ward/internal/domain/orders"
	"github.com/ward/ward/internal/domain/patient"
	"github.com/ward/ward/internal/domain/staff"
	"github.com/ward/ward/internal/domain/timeline"
	"github.com/ward/ward/internal/platform/auth"
	"github.com/ward/ward/internal/platform/db"
	"github.com/ward/ward/internal/platform/events"
	"github.com/ward/ward/internal/platform/middleware"
	"github.com/ward/ward/internal/platform/websocket"
	"github.com/ward/ward/migrations"
)

const (
	version     = "0.1.0"
	tokenIssuer = "ward-server"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "ward-server",
		Short:         "Hospital ward administration API server",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(adminCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(env string) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the ward API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	// migrate up
	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, migrations.FS)
			fmt.Fprintf(cmd.OutOrStdout(), "Running migrations on schema: %s\n", schema)

			count, err := migrator.Up(ctx, schema)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("schema", "public", "Target schema for migrations")
	cmd.AddCommand(upCmd)

	// migrate status
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, migrations.FS).Status(ctx, schema)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			printMigrationStatus(cmd, schema, statuses)
			return nil
		},
	}
	statusCmd.Flags().String("schema", "public", "Target schema")
	cmd.AddCommand(statusCmd)

	return cmd
}

func printMigrationStatus(cmd *cobra.Command, schema string, statuses []db.MigrationStatus) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Migration status for schema: %s\n", schema)
	fmt.Fprintf(out, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
	fmt.Fprintln(out, "---------- ---------------------------------------- ---------- --------------------")
	for _, s := range statuses {
		status, appliedAt := "pending", ""
		if s.Applied {
			status = "applied"
			if s.AppliedAt != nil {
				appliedAt = s.AppliedAt.Format(time.RFC3339)
			}
		}
		fmt.Fprintf(out, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
	}
}

func adminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage administrator accounts",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create an administrator account",
		RunE: func(cmd *cobra.Command, args []string) error {
			username, _ := cmd.Flags().GetString("username")
			password, _ := cmd.Flags().GetString("password")
			name, _ := cmd.Flags().GetString("name")
			role, _ := cmd.Flags().GetString("role")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := staff.NewService(staff.NewDepartmentRepoPG(pool), staff.NewStaffRepoPG(pool), staff.NewAdminRepoPG(pool))
			admin, err := svc.CreateAdmin(ctx, username, password, name, role)
			if err != nil {
				return fmt.Errorf("create admin: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Created %s account %q (id %s).\n", admin.Role, admin.Username, admin.ID)
			return nil
		},
	}
	createCmd.Flags().String("username", "", "Login name (required)")
	createCmd.Flags().String("password", "", "Password, at least 8 characters (required)")
	createCmd.Flags().String("name", "", "Full name")
	createCmd.Flags().String("role", auth.RoleAdmin, "Role: admin, doctor or nurse")
	createCmd.MarkFlagRequired("username")
	createCmd.MarkFlagRequired("password")
	cmd.AddCommand(createCmd)

	return cmd
}

// serverDeps are the external resources the HTTP server is built from.
type serverDeps struct {
	cfg         *config.Config
	logger      zerolog.Logger
	querier     db.Querier
	dbHealth    echo.HandlerFunc
	revocations auth.RevocationStore
	publisher   events.Publisher
	hub         *websocket.Hub
}

// newServer builds the echo instance with middleware and every route.
func newServer(d serverDeps) (*echo.Echo, error) {
	cfg := d.cfg
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	metrics := middleware.NewMetrics()

	// Global middleware
	e.Use(middleware.Recovery(d.logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(d.logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	e.Use(metrics.Middleware())
	if cfg.RequestTimeout > 0 {
		e.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	}

	// Auth middleware
	e.Use(auth.JWTMiddleware(auth.JWTConfig{
		SigningKey:  []byte(cfg.JWTSecret),
		Issuer:      tokenIssuer,
		Revocations: d.revocations,
		Skipper:     auth.AuthSkipper,
	}))

	// Health and metrics
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	if d.dbHealth != nil {
		e.GET("/health/db", d.dbHealth)
	}
	e.GET("/metrics", metrics.Handler())

	// API group
	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	api := e.Group("/api", middleware.RateLimit(rateLimitCfg), middleware.Audit(d.logger))

	// Staff, departments and accounts
	staffSvc := staff.NewService(
		staff.NewDepartmentRepoPG(d.querier),
		staff.NewStaffRepoPG(d.querier),
		staff.NewAdminRepoPG(d.querier),
	)
	issuer := auth.NewTokenIssuer([]byte(cfg.JWTSecret), tokenIssuer, cfg.JWTTTL)
	staff.NewAuthHandler(staffSvc, issuer, d.revocations, d.logger).RegisterRoutes(api)
	staff.NewHandler(staffSvc).RegisterRoutes(api)

	// Treatment catalog
	catalogSvc := catalog.NewService(
		catalog.NewMedicationRepoPG(d.querier),
		catalog.NewProcedureRepoPG(d.querier),
		catalog.NewInvestigationRepoPG(d.querier),
	)
	catalog.NewHandler(catalogSvc).RegisterRoutes(api)

	// Patients, assignments and charting
	patientSvc := patient.NewService(
		patient.NewPatientRepoPG(d.querier),
		patient.NewAssignmentRepoPG(d.querier),
		patient.NewNursingNoteRepoPG(d.querier),
		patient.NewVitalSignRepoPG(d.querier),
		staffSvc,
	)
	patient.NewHandler(patientSvc).RegisterRoutes(api)

	// Live order feed
	hub := d.hub
	if hub == nil {
		hub = websocket.NewHub(d.logger)
	}
	websocket.NewHandler(hub, cfg.CORSOrigins, d.logger).RegisterRoutes(api)
	publisher := events.MultiPublisher{hub}
	if d.publisher != nil {
		publisher = append(publisher, d.publisher)
	}

	// Orders
	ordersSvc := orders.NewService(
		orders.NewMedicationOrderRepoPG(d.querier),
		orders.NewProcedureOrderRepoPG(d.querier),
		orders.NewInvestigationOrderRepoPG(d.querier),
		publisher,
		d.logger,
	)
	ordersSvc.SetMetrics(orders.NewMetrics(metrics.Registry))
	orders.NewHandler(ordersSvc, loc).RegisterRoutes(api)

	// Timeline and notifications
	timelineSvc := timeline.NewService(ordersSvc, patientSvc, catalogSvc, staffSvc, loc, d.logger)
	timeline.NewHandler(timelineSvc).RegisterRoutes(api)

	return e, nil
}

func runServer() error {
	// Logger
	logger := newLogger(os.Getenv("ENV"))

	// Config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Token revocation
	var revocations auth.RevocationStore
	if cfg.RedisURL != "" {
		client, err := auth.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer client.Close()
		revocations = auth.NewRedisRevocationStore(client)
		logger.Info().Msg("using redis token revocation store")
	} else {
		mem := auth.NewMemoryRevocationStore(time.Minute)
		defer mem.Close()
		revocations = mem
		logger.Warn().Msg("REDIS_URL is unset, token revocations are kept in memory")
	}

	// Order events
	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		logger.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaTopic).Msg("publishing order events to kafka")
	}
	defer publisher.Close()

	hub := websocket.NewHub(logger)
	defer hub.Close()

	e, err := newServer(serverDeps{
		cfg:         cfg,
		logger:      logger,
		querier:     pool,
		dbHealth:    db.HealthHandler(pool),
		revocations: revocations,
		publisher:   publisher,
		hub:         hub,
	})
	if err != nil {
		return err
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}
