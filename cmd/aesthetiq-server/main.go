package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/aesthetiq/aesthetiq/internal/config"
	"github.com/aesthetiq/aesthetiq/internal/domain/badge"
	"github.com/aesthetiq/aesthetiq/internal/domain/messaging"
	"github.com/aesthetiq/aesthetiq/internal/domain/moderation"
	"github.com/aesthetiq/aesthetiq/internal/domain/practitioner"
	"github.com/aesthetiq/aesthetiq/internal/domain/trust"
	"github.com/aesthetiq/aesthetiq/internal/domain/verification"
	"github.com/aesthetiq/aesthetiq/internal/platform/auth"
	"github.com/aesthetiq/aesthetiq/internal/platform/db"
	"github.com/aesthetiq/aesthetiq/internal/platform/middleware"
)

// BadgeSignalAdapter assembles the badge eligibility snapshot from the
// practitioner and trust services, avoiding circular imports between those
// packages and badge.
type BadgeSignalAdapter struct {
	practitioners *practitioner.Service
	trust         *trust.Service
}

func NewBadgeSignalAdapter(p *practitioner.Service, t *trust.Service) *BadgeSignalAdapter {
	return &BadgeSignalAdapter{practitioners: p, trust: t}
}

// Signals implements badge.SignalSource.
func (a *BadgeSignalAdapter) Signals(ctx context.Context, practitionerID uuid.UUID) (*badge.Signals, error) {
	p, err := a.practitioners.Get(ctx, practitionerID)
	if err != nil {
		return nil, err
	}
	licenses, err := a.practitioners.ValidLicenses(ctx, practitionerID)
	if err != nil {
		return nil, err
	}
	recent, err := a.trust.CareEventCount(ctx, practitionerID, badge.ContinuityWindow)
	if err != nil {
		return nil, err
	}
	total, err := a.trust.TotalEventCount(ctx, practitionerID)
	if err != nil {
		return nil, err
	}
	return &badge.Signals{
		VerificationStatus: p.VerificationStatus,
		VerifiedAt:         p.VerifiedAt,
		ValidLicenseCount:  len(licenses),
		HasPracticeAddress: p.PracticeAddress != nil && *p.PracticeAddress != "",
		RecentCareEvents:   recent,
		TotalEvents:        total,
	}, nil
}

// PractitionerDirectoryAdapter exposes the slice of the practitioner
// package the verification state machine needs.
type PractitionerDirectoryAdapter struct {
	svc  *practitioner.Service
	repo practitioner.Repository
}

func NewPractitionerDirectoryAdapter(svc *practitioner.Service, repo practitioner.Repository) *PractitionerDirectoryAdapter {
	return &PractitionerDirectoryAdapter{svc: svc, repo: repo}
}

// Profile implements verification.PractitionerDirectory.
func (a *PractitionerDirectoryAdapter) Profile(ctx context.Context, id uuid.UUID) (*verification.Profile, error) {
	p, err := a.svc.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &verification.Profile{
		ID:                 p.ID,
		VerificationStatus: p.VerificationStatus,
		ProfessionalTitle:  p.ProfessionalTitle,
		ProfessionalType:   p.ProfessionalType,
		YearsExperience:    p.YearsExperience,
		Bio:                p.Bio,
	}, nil
}

// ValidLicenseCount implements verification.PractitionerDirectory.
func (a *PractitionerDirectoryAdapter) ValidLicenseCount(ctx context.Context, id uuid.UUID) (int, error) {
	licenses, err := a.svc.ValidLicenses(ctx, id)
	if err != nil {
		return 0, err
	}
	return len(licenses), nil
}

// SetVerificationStatus implements verification.PractitionerDirectory.
func (a *PractitionerDirectoryAdapter) SetVerificationStatus(ctx context.Context, id uuid.UUID, status string, verifiedAt *time.Time) error {
	return a.repo.SetVerificationStatus(ctx, id, status, verifiedAt)
}

// ReportEventAdapter feeds moderation reports into the trust ledger.
type ReportEventAdapter struct {
	trust *trust.Service
}

func NewReportEventAdapter(t *trust.Service) *ReportEventAdapter {
	return &ReportEventAdapter{trust: t}
}

// ReportSubmitted implements moderation.EventRecorder.
func (a *ReportEventAdapter) ReportSubmitted(ctx context.Context, reportedUserID, reporterID uuid.UUID) error {
	_, err := a.trust.RecordEvent(ctx, trust.EventReportSubmitted, reportedUserID, &reporterID, nil)
	return err
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "aesthetiq-server",
		Short: "AesthetIQ marketplace API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
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

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

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

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

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
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Rollback last migration (not supported)",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("WARNING: migrate down is destructive and not supported by the built-in runner.")
			fmt.Println("Write a forward migration instead.")
			return nil
		},
	})

	return cmd
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
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
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Auth middleware
	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:   cfg.AuthIssuer,
			Audience: cfg.AuthAudience,
			JWKSURL:  cfg.AuthJWKSURL,
		}))
	}

	// API group
	apiV1 := e.Group("/api/v1")

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	// Repositories
	practitionerRepo := practitioner.NewRepoPG(pool)
	licenseRepo := practitioner.NewLicenseRepoPG(pool)
	subscriptionRepo := practitioner.NewSubscriptionRepoPG(pool)
	trustEventRepo := trust.NewEventRepoPG(pool)
	badgeRepo := badge.NewRepoPG(pool)
	badgeAuditRepo := badge.NewAuditRepoPG(pool)
	verificationRepo := verification.NewRepoPG(pool)
	verificationAuditRepo := verification.NewAuditRepoPG(pool)
	threadRepo := messaging.NewThreadRepoPG(pool)
	messageRepo := messaging.NewMessageRepoPG(pool)
	consultRepo := messaging.NewConsultRepoPG(pool)
	reportRepo := moderation.NewRepoPG(pool)

	// Services and cross-domain adapters
	practitionerSvc := practitioner.NewService(practitionerRepo, licenseRepo, subscriptionRepo)
	trustSvc := trust.NewService(trustEventRepo, practitionerRepo, cfg.HashKey(), logger)
	badgeSvc := badge.NewService(badgeRepo, badgeAuditRepo, NewBadgeSignalAdapter(practitionerSvc, trustSvc), logger)
	verificationSvc := verification.NewService(verificationRepo, verificationAuditRepo,
		NewPractitionerDirectoryAdapter(practitionerSvc, practitionerRepo), pool, logger)
	messagingSvc := messaging.NewService(threadRepo, messageRepo, consultRepo, practitionerSvc, pool, logger)
	moderationSvc := moderation.NewService(reportRepo, NewReportEventAdapter(trustSvc), logger)

	// Handlers
	practitioner.NewHandler(practitionerSvc).RegisterRoutes(apiV1)
	trust.NewHandler(trustSvc).RegisterRoutes(apiV1)
	badge.NewHandler(badgeSvc).RegisterRoutes(apiV1)
	verification.NewHandler(verificationSvc).RegisterRoutes(apiV1)
	messaging.NewHandler(messagingSvc).RegisterRoutes(apiV1)
	moderation.NewHandler(moderationSvc).RegisterRoutes(apiV1)

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
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
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
