package reminder

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/gestordeclinica/backend/internal/caldate"
	"github.com/gestordeclinica/backend/internal/repo"
	"github.com/gestordeclinica/backend/internal/whatsapp"
)

const auditActionReminderSent = "APPOINTMENT_REMINDER_SENT"

// Twilio aceita ~1 msg/s por número remetente no sandbox.
const defaultSendRate = rate.Limit(1)

type WhatsAppSender interface {
	SendReminder(ctx context.Context, r whatsapp.Reminder) error
}

// AppointmentLister é o recorte de repo.AppointmentRepository usado aqui.
type AppointmentLister interface {
	ListForReminder(ctx context.Context, date caldate.Date) ([]repo.ReminderRow, error)
}

type Result struct {
	Date    caldate.Date `json:"date"`
	Total   int          `json:"total"`
	Sent    int          `json:"sent"`
	Skipped int          `json:"skipped"`
}

type Service struct {
	Lister  AppointmentLister
	Sender  WhatsAppSender // nil = WhatsApp não configurado
	Audit   repo.AuditRepository
	Log     *zap.Logger
	Limiter *rate.Limiter
}

func NewService(lister AppointmentLister, sender WhatsAppSender, audit repo.AuditRepository, log *zap.Logger) *Service {
	return &Service{
		Lister:  lister,
		Sender:  sender,
		Audit:   audit,
		Log:     log.Named("reminder"),
		Limiter: rate.NewLimiter(defaultSendRate, 1),
	}
}

// Send envia um lembrete por consulta da data. Falha de um destinatário é logada e não interrompe
// os demais.
func (s *Service) Send(ctx context.Context, date caldate.Date) (Result, error) {
	res := Result{Date: date}
	rows, err := s.Lister.ListForReminder(ctx, date)
	if err != nil {
		s.Log.Error("listar consultas para lembrete", zap.String("date", date.String()), zap.Error(err))
		return res, err
	}
	res.Total = len(rows)
	if s.Sender == nil {
		s.Log.Info("WhatsApp não configurado, nenhum lembrete enviado", zap.Int("would_send", len(rows)))
		res.Skipped = len(rows)
		return res, nil
	}
	dateStr := date.FormatBR()
	for _, r := range rows {
		if s.Limiter != nil {
			if err := s.Limiter.Wait(ctx); err != nil {
				res.Skipped += len(rows) - res.Sent - res.Skipped
				return res, err
			}
		}
		msg := whatsapp.Reminder{
			Phone:            r.PatientPhone,
			PatientName:      r.PatientName,
			ProfessionalName: r.ProfessionalName,
			Date:             dateStr,
			Time:             repo.TimeStringToHHMM(r.StartTime),
		}
		if err := s.Sender.SendReminder(ctx, msg); err != nil {
			s.Log.Warn("falha no envio", zap.String("appointment_id", r.AppointmentID.String()), zap.Error(err))
			res.Skipped++
			continue
		}
		res.Sent++
		if s.Audit != nil {
			appointmentID, patientID := r.AppointmentID, r.PatientID
			if err := s.Audit.Create(ctx, repo.AuditEvent{
				Action:       auditActionReminderSent,
				ActorType:    repo.ActorSystem,
				ResourceType: repo.StrPtr("appointment"),
				ResourceID:   &appointmentID,
				PatientID:    &patientID,
				Metadata:     map[string]string{"date": date.String(), "start_time": msg.Time},
			}); err != nil {
				s.Log.Warn("audit do lembrete", zap.Error(err))
			}
		}
	}
	s.Log.Info("lembretes enviados", zap.String("date", date.String()), zap.Int("sent", res.Sent), zap.Int("skipped", res.Skipped))
	return res, nil
}

// SendTomorrow usa o "amanhã" do fuso da clínica.
func (s *Service) SendTomorrow(ctx context.Context, now time.Time, loc *time.Location) (Result, error) {
	return s.Send(ctx, caldate.Of(now.In(loc)).AddDays(1))
}

// DefaultWhatsAppSender devolve nil quando faltam credenciais.
func DefaultWhatsAppSender(cfg whatsapp.Config) WhatsAppSender {
	if !cfg.Configured() {
		return nil
	}
	return whatsapp.NewClient(cfg)
}

// NewScheduler agenda SendTomorrow na expressão cron (5 campos) no fuso loc.
func NewScheduler(spec string, loc *time.Location, svc *Service, timeout time.Duration) (*cron.Cron, error) {
	c := cron.New(cron.WithLocation(loc), cron.WithChain(cron.Recover(cronLogger{svc.Log})))
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		_, _ = svc.SendTomorrow(ctx, time.Now(), loc)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// cronLogger adapta zap para cron.Logger.
type cronLogger struct{ log *zap.Logger }

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Sugar().Infow(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
