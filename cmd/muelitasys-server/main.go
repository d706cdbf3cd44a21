package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/MatiGranjero/MuelitaSys/internal/config"
	"github.com/MatiGranjero/MuelitaSys/internal/domain/appointment"
	"github.com/MatiGranjero/MuelitaSys/internal/domain/odontogram"
	"github.com/MatiGranjero/MuelitaSys/internal/domain/patient"
	"github.com/MatiGranjero/MuelitaSys/internal/domain/periodontics"
	"github.com/MatiGranjero/MuelitaSys/internal/domain/treatment"
	"github.com/MatiGranjero/MuelitaSys/internal/platform/auth"
	"github.com/MatiGranjero/MuelitaSys/internal/platform/db"
	"github.com/MatiGranjero/MuelitaSys/internal/platform/middleware"
	"github.com/MatiGranjero/MuelitaSys/pkg/fdi"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "muelitasys-server",
		Short: "Dental clinic records API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the clinic API server",
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
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if dir == "" {
				dir = cfg.Migrations.Dir
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "", "Path to migrations directory (defaults to migrations.dir)")
	cmd.AddCommand(upCmd)

	// migrate status
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if dir == "" {
				dir = cfg.Migrations.Dir
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "", "Path to migrations directory (defaults to migrations.dir)")
	cmd.AddCommand(statusCmd)

	// migrate down
	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if dir == "" {
				dir = cfg.Migrations.Dir
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			version, err := migrator.Down(ctx)
			if err != nil {
				return fmt.Errorf("rollback failed: %w", err)
			}
			if version == 0 {
				fmt.Println("No applied migrations to roll back.")
				return nil
			}

			fmt.Printf("Rolled back migration %d.\n", version)
			return nil
		},
	}
	downCmd.Flags().String("dir", "", "Path to migrations directory (defaults to migrations.dir)")
	cmd.AddCommand(downCmd)

	return cmd
}

// tokenCmd mints a signed bearer token for installs running auth.mode=token.
// Each device the clinic uses gets its own token.
func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a signed API token",
		RunE: func(cmd *cobra.Command, args []string) error {
			subject, _ := cmd.Flags().GetString("subject")
			roles, _ := cmd.Flags().GetStringSlice("role")

			if err := checkRoles(roles); err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret == "" {
				return fmt.Errorf("auth.jwt_secret is not set")
			}

			token, err := auth.MintToken([]byte(cfg.Auth.JWTSecret), subject, roles, cfg.Auth.TokenTTL)
			if err != nil {
				return err
			}

			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().String("subject", "", "Who the token identifies, e.g. front-desk")
	cmd.Flags().StringSlice("role", []string{"dentist"}, "Role(s) to embed: dentist, assistant")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}

// checkRoles rejects any role the clinic does not know.
func checkRoles(roles []string) error {
	for _, r := range roles {
		if r != "dentist" && r != "assistant" {
			return fmt.Errorf("unknown role %q: want dentist or assistant", r)
		}
	}
	return nil
}

// newLogger builds the root logger from the log.* settings. With log.file set,
// output goes through a size-rotated file instead of stdout.
func newLogger(cfg config.LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var out io.Writer = os.Stdout
	if cfg.File != "" {
		out = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		}
	}
	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, NoColor: cfg.File != ""}
	}

	return zerolog.New(out).With().Timestamp().Logger().Level(level)
}

func runServer() error {
	// Config
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Logger
	logger := newLogger(cfg.Log)

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))

	// Auth guards the API group only; the health probes stay open.
	var authMW echo.MiddlewareFunc
	if cfg.Auth.Mode == "dev" {
		authMW = auth.DevAuthMiddleware()
	} else {
		authMW = auth.JWTMiddleware([]byte(cfg.Auth.JWTSecret))
	}
	apiV1 := e.Group("/api/v1", authMW)

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"clinic":  cfg.Clinic.Name,
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	// Clinical settings shared across domains
	defaultScheme, err := fdi.ParseScheme(cfg.Clinical.DefaultScheme)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid clinical.default_scheme")
	}
	perioLayout, err := periodontics.ParseLayout(cfg.Clinical.PerioLayout)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid clinical.perio_layout")
	}
	docFormat, err := patient.ParseDocumentFormat(cfg.Clinical.IdentifierFormat)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid clinical.identifier_format")
	}

	// Patient domain
	patientRepo := patient.NewRepoPG(pool)
	patientSvc := patient.NewService(patientRepo, docFormat, cfg.Clinic.Country)
	patientHandler := patient.NewHandler(patientSvc)
	patientHandler.RegisterRoutes(apiV1)

	// Appointment domain
	apptRepo := appointment.NewRepoPG(pool)
	apptSvc := appointment.NewService(apptRepo)
	apptHandler := appointment.NewHandler(apptSvc)
	apptHandler.RegisterRoutes(apiV1)

	// Treatment domain
	treatRepo := treatment.NewRepoPG(pool)
	treatSvc := treatment.NewService(treatRepo)
	treatHandler := treatment.NewHandler(treatSvc)
	treatHandler.RegisterRoutes(apiV1)

	// Odontogram domain
	odontoRepo := odontogram.NewRepoPG(pool)
	odontoSvc := odontogram.NewService(odontoRepo, cfg.Clinical.ExtendedStatuses)
	odontoHandler := odontogram.NewHandler(odontoSvc)
	odontoHandler.RegisterRoutes(apiV1)

	// Periodontogram domain
	perioRepo := periodontics.NewRepoPG(pool)
	perioSvc := periodontics.NewService(perioRepo, defaultScheme, perioLayout)
	perioHandler := periodontics.NewHandler(perioSvc)
	perioHandler.RegisterRoutes(apiV1)

	// Graceful shutdown
	go func() {
		addr := cfg.Addr()
		logger.Info().Str("addr", addr).Str("clinic", cfg.Clinic.Name).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
