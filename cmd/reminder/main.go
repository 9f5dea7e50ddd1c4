// Worker de lembretes: envia pelo WhatsApp o lembrete das consultas de amanhã. Com --once roda uma
// vez e sai (cron externo); sem a flag agenda REMINDER_CRON no fuso REMINDER_TZ.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gestordeclinica/backend/internal/config"
	"github.com/gestordeclinica/backend/internal/logging"
	"github.com/gestordeclinica/backend/internal/reminder"
	"github.com/gestordeclinica/backend/internal/repo"
	"github.com/gestordeclinica/backend/internal/whatsapp"
)

func main() {
	var once bool
	cmd := &cobra.Command{
		Use:          "reminder",
		Short:        "Envia lembretes de consulta por WhatsApp",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), once)
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "envia os lembretes de amanhã e sai")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := cmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, once bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	if cfg.DatabaseURL == "" {
		log.Error("DATABASE_URL is required")
		return fmt.Errorf("DATABASE_URL is required")
	}
	db, err := repo.OpenGorm(cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		log.Error("database", zap.Error(err))
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer func() { _ = sqlDB.Close() }()
	if err := sqlDB.PingContext(ctx); err != nil {
		log.Error("ping", zap.Error(err))
		return err
	}

	sender := reminder.DefaultWhatsAppSender(whatsapp.Config{
		AccountSid: cfg.TwilioAccountSid,
		AuthToken:  cfg.TwilioAuthToken,
		From:       cfg.TwilioWhatsAppFrom,
	})
	svc := reminder.NewService(repo.NewAppointmentStore(db), sender, repo.NewAuditStore(db), log)
	loc := cfg.ReminderLocation()

	if once {
		res, err := svc.SendTomorrow(ctx, time.Now(), loc)
		if err != nil {
			return err
		}
		log.Info("done", zap.String("date", res.Date.String()), zap.Int("sent", res.Sent), zap.Int("skipped", res.Skipped))
		return nil
	}

	c, err := reminder.NewScheduler(cfg.ReminderCron, loc, svc, 10*time.Minute)
	if err != nil {
		log.Error("REMINDER_CRON inválido", zap.String("spec", cfg.ReminderCron), zap.Error(err))
		return err
	}
	c.Start()
	log.Info("agendador de lembretes iniciado", zap.String("cron", cfg.ReminderCron), zap.String("tz", loc.String()))
	<-ctx.Done()
	// Espera o envio em andamento terminar.
	<-c.Stop().Done()
	log.Info("agendador parado")
	return nil
}
