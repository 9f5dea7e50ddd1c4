package api

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gestordeclinica/backend/internal/auth"
	"github.com/gestordeclinica/backend/internal/cache"
	"github.com/gestordeclinica/backend/internal/caldate"
	"github.com/gestordeclinica/backend/internal/config"
	"github.com/gestordeclinica/backend/internal/events"
	"github.com/gestordeclinica/backend/internal/middleware"
	"github.com/gestordeclinica/backend/internal/reminder"
	"github.com/gestordeclinica/backend/internal/repo"
)

// ReminderTrigger dispara o envio de lembretes de uma data (reminder.Service em produção).
type ReminderTrigger interface {
	Send(ctx context.Context, date caldate.Date) (reminder.Result, error)
}

// ReadyCheck é uma dependência verificada por /ready (postgres, redis).
type ReadyCheck func(ctx context.Context) error

type Handler struct {
	Cfg           *config.Config
	Log           *zap.Logger
	Patients      repo.PatientRepository
	Professionals repo.ProfessionalRepository
	Appointments  repo.AppointmentRepository
	Financial     repo.FinancialRepository
	EHR           repo.EHRRepository
	Users         repo.UserRepository
	Audit         repo.AuditRepository
	Cache         cache.Cache
	Events        events.Publisher
	Reminders     ReminderTrigger
	ReadyChecks   map[string]ReadyCheck
	// Scheduler cria consultas (única e lote) com as checagens de agenda.
	Scheduler *AppointmentService
	now       func() time.Time
}

func (h *Handler) clock() time.Time {
	if h.now != nil {
		return h.now()
	}
	return time.Now()
}

// audit grava o evento com ator e request id do context. Falha de auditoria só vai para o log.
func (h *Handler) audit(ctx context.Context, ev repo.AuditEvent) {
	if h.Audit == nil {
		return
	}
	if err := h.Audit.Create(ctx, withActor(ctx, ev)); err != nil {
		h.Log.Warn("audit", zap.String("action", ev.Action), zap.Error(err))
	}
}

func withActor(ctx context.Context, ev repo.AuditEvent) repo.AuditEvent {
	if ev.ActorID == nil {
		if id, err := uuid.Parse(auth.UserIDFrom(ctx)); err == nil {
			ev.ActorID = &id
		}
	}
	if ev.ActorType == "" {
		ev.ActorType = repo.ActorUser
	}
	if ev.RequestID == nil {
		if rid := middleware.RequestIDFromContext(ctx); rid != "" {
			ev.RequestID = &rid
		}
	}
	return ev
}

func resource(kind string, id uuid.UUID) (*string, *uuid.UUID) {
	return &kind, &id
}
