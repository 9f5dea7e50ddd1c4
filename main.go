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

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/gestordeclinica/backend/internal/api"
	"github.com/gestordeclinica/backend/internal/cache"
	"github.com/gestordeclinica/backend/internal/config"
	"github.com/gestordeclinica/backend/internal/crypto"
	"github.com/gestordeclinica/backend/internal/events"
	"github.com/gestordeclinica/backend/internal/logging"
	"github.com/gestordeclinica/backend/internal/migrate"
	"github.com/gestordeclinica/backend/internal/reminder"
	"github.com/gestordeclinica/backend/internal/repo"
	"github.com/gestordeclinica/backend/internal/seed"
	"github.com/gestordeclinica/backend/internal/whatsapp"
	"github.com/gestordeclinica/backend/migrations"
)

func main() {
	root := &cobra.Command{
		Use:          "clinica",
		Short:        "Backend do gestor de clínica",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), serve)
		},
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Sobe a API HTTP (padrão)",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withEnv(cmd.Context(), serve)
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Aplica as migrations pendentes e sai",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withEnv(cmd.Context(), func(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
					db, err := openDB(ctx, cfg)
					if err != nil {
						return err
					}
					defer closeDB(db)
					_, err = migrate.Run(ctx, db, migrations.FS, log)
					return err
				})
			},
		},
		&cobra.Command{
			Use:   "seed",
			Short: "Cria admin, profissionais e pacientes de exemplo (idempotente)",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withEnv(cmd.Context(), func(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
					db, err := openDB(ctx, cfg)
					if err != nil {
						return err
					}
					defer closeDB(db)
					return seed.Run(ctx, db, log)
				})
			},
		},
		newScheduleCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// withEnv carrega config e logger e entrega ao comando.
func withEnv(ctx context.Context, run func(context.Context, *config.Config, *zap.Logger) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	if err := run(ctx, cfg, log); err != nil {
		log.Error("falhou", zap.Error(err))
		return err
	}
	return nil
}

func openDB(ctx context.Context, cfg *config.Config) (*gorm.DB, error) {
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	db, err := repo.OpenGorm(cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func serve(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	if cfg.UsingDefaultSecret() {
		if cfg.IsProduction() {
			return errors.New("JWT_SECRET must be set (min 32 chars) in production")
		}
		log.Warn("JWT_SECRET ausente ou curto; usando segredo padrão de desenvolvimento")
	}

	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDB(db)
	pool, err := repo.OpenPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return err
	}
	defer pool.Close()

	if _, err := migrate.Run(ctx, db, migrations.FS, log); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	if cfg.IsDev() {
		if err := seed.Run(ctx, db, log); err != nil {
			log.Warn("seed", zap.Error(err))
		}
	}

	keys, err := crypto.KeyringFromEnv(cfg.DataEncryptionKeys, cfg.CurrentDataKeyVer)
	if err != nil {
		return fmt.Errorf("DATA_ENCRYPTION_KEYS: %w", err)
	}

	readyChecks := map[string]api.ReadyCheck{"postgres": pool.Ping}
	var c cache.Cache
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedis(ctx, cfg.RedisURL, cfg.CacheTTL(), log.Named("cache"))
		if err != nil {
			return err
		}
		defer func() { _ = rc.Close() }()
		c = rc
		readyChecks["redis"] = rc.Ping
	} else {
		mem := cache.NewTTL(cfg.CacheTTL())
		defer mem.Close()
		c = mem
	}

	var pub events.Publisher = events.Nop{}
	if cfg.AMQPURL != "" {
		amqpPub, err := events.NewAMQP(cfg.AMQPURL, cfg.AMQPExchange, log.Named("events"))
		if err != nil {
			return err
		}
		pub = amqpPub
	}
	defer func() { _ = pub.Close() }()

	appointments := repo.NewAppointmentStore(db)
	audit := repo.NewAuditStore(db)
	sender := reminder.DefaultWhatsAppSender(whatsapp.Config{
		AccountSid: cfg.TwilioAccountSid,
		AuthToken:  cfg.TwilioAuthToken,
		From:       cfg.TwilioWhatsAppFrom,
	})
	h := &api.Handler{
		Cfg:           cfg,
		Log:           log,
		Patients:      repo.NewPatientStore(db),
		Professionals: repo.NewProfessionalStore(db),
		Appointments:  appointments,
		Financial:     repo.NewFinancialStore(db),
		EHR:           repo.NewEHRStore(pool, keys),
		Users:         repo.NewUserStore(db),
		Audit:         audit,
		Cache:         c,
		Events:        pub,
		Reminders:     reminder.NewService(appointments, sender, audit, log),
		ReadyChecks:   readyChecks,
	}
	h.Scheduler = api.NewAppointmentService(h)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.Wrap(h, api.NewRouter(h)),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.RequestTimeout() + 5*time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("backend listening", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown", zap.Error(err))
	}
	log.Info("backend stopped")
	return nil
}
