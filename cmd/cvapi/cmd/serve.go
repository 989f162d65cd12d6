package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/duongduc025/CV-Management-sub000/cmd/cvapi/internal/auth"
	"github.com/duongduc025/CV-Management-sub000/cmd/cvapi/internal/db/bunx"
	"github.com/duongduc025/CV-Management-sub000/cmd/cvapi/internal/migrations"
	"github.com/duongduc025/CV-Management-sub000/cmd/cvapi/internal/repository"
	"github.com/duongduc025/CV-Management-sub000/cmd/cvapi/internal/server"
	"github.com/duongduc025/CV-Management-sub000/cmd/cvapi/internal/telemetry"
)

var (
	autoMigrate      bool
	revocationCache  int
	cleanupInterval  time.Duration
	revocationGrace  time.Duration
	shutdownDeadline = 10 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the cvapi server",
	Long: `Starts the HTTP server with the auth, profile and dashboard endpoints.
SIGHUP reloads Casbin policies from the database.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.RequireSecret(); err != nil {
			return err
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		shutdownTelemetry, err := telemetry.Init(ctx, cfg.Observability, log)
		if err != nil {
			return err
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), shutdownDeadline)
			defer cancel()
			if err := shutdownTelemetry(flushCtx); err != nil {
				log.WithError(err).Warn("telemetry shutdown failed")
			}
		}()

		db, err := bunx.NewDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer bunx.Close(db)
		log.WithField("dialect", bunx.DetectDatabaseType(cfg.DatabaseURL)).Info("connected to database")

		if autoMigrate {
			group, err := migrations.Apply(ctx, db)
			if err != nil {
				return err
			}
			if group.ID == 0 {
				log.Info("no new migrations to apply")
			} else {
				log.WithField("group", group.ID).Info("applied migrations")
			}
		}

		userRepo := repository.NewBunUserRepository(db)
		roleRepo := repository.NewBunRoleRepository(db)
		deptRepo := repository.NewBunDepartmentRepository(db)
		bunRevoked := repository.NewBunRevokedTokenRepository(db)
		revokedRepo, err := repository.NewCachedRevokedTokenRepository(bunRevoked, revocationCache)
		if err != nil {
			return err
		}

		enforcer, err := auth.InitEnforcer(db)
		if err != nil {
			return fmt.Errorf("configure casbin enforcer: %w", err)
		}
		// Policies are only changed by migrations; the server never writes them.
		enforcer.EnableAutoSave(false)

		router, err := server.NewRouter(server.RouterOptions{
			Users:         userRepo,
			Roles:         roleRepo,
			Departments:   deptRepo,
			Revoked:       revokedRepo,
			Tokens:        auth.NewTokenIssuer(cfg.JWT),
			Enforcer:      enforcer,
			Cfg:           cfg,
			Logger:        log,
			HealthHandler: server.NewHealthHandler(db),
		})
		if err != nil {
			return fmt.Errorf("build router: %w", err)
		}

		cleanupCtx, cancelCleanup := context.WithCancel(ctx)
		defer cancelCleanup()
		go func() {
			ticker := time.NewTicker(cleanupInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					n, err := bunRevoked.DeleteExpired(cleanupCtx, revocationGrace)
					if err != nil {
						log.WithError(err).Error("revoked token cleanup failed")
						continue
					}
					if n > 0 {
						log.WithField("deleted", n).Info("removed expired revoked tokens")
					}
				case <-cleanupCtx.Done():
					return
				}
			}
		}()

		srv := &http.Server{
			Addr:         cfg.ServerAddr,
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		serverErrors := make(chan error, 1)
		go func() {
			log.WithField("addr", cfg.ServerAddr).Info("starting server")
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		reload := make(chan os.Signal, 1)
		signal.Notify(reload, syscall.SIGHUP)

		for {
			select {
			case err := <-serverErrors:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return fmt.Errorf("server error: %w", err)

			case sig := <-reload:
				if err := enforcer.LoadPolicy(); err != nil {
					log.WithError(err).Error("policy reload failed")
				} else {
					log.WithField("signal", sig.String()).Info("reloaded casbin policies")
				}

			case sig := <-shutdown:
				log.WithField("signal", sig.String()).Info("shutting down gracefully")

				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownDeadline)
				defer cancel()

				if err := srv.Shutdown(shutdownCtx); err != nil {
					srv.Close()
					return fmt.Errorf("graceful shutdown failed: %w", err)
				}

				log.Info("server stopped")
				return nil
			}
		}
	},
}

func init() {
	serveCmd.Flags().BoolVar(&autoMigrate, "migrate", false, "Apply pending migrations before serving")
	serveCmd.Flags().IntVar(&revocationCache, "revocation-cache-size", 4096, "Number of revoked token IDs kept in memory")
	serveCmd.Flags().DurationVar(&cleanupInterval, "revocation-cleanup-interval", time.Hour, "How often expired revoked tokens are deleted")
	serveCmd.Flags().DurationVar(&revocationGrace, "revocation-grace", 24*time.Hour, "How long revoked tokens are kept after they expire")

	rootCmd.AddCommand(serveCmd)
}
