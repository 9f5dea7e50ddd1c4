package scheduling

import (
	"context"
	"errors"
	"fmt"

	"github.com/gestordeclinica/backend/internal/caldate"
	"github.com/gestordeclinica/backend/internal/validation"
)

const (
	StatusScheduled = "scheduled"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusNoShow    = "no_show"
)

// ErrNoDate: recorrência vazia e nenhuma data escolhida.
var ErrNoDate = errors.New("appointment date is required")

// Shared são os campos comuns a todas as consultas geradas pelo formulário.
type Shared struct {
	PatientID      string  `json:"patient_id" validate:"required"`
	ProfessionalID string  `json:"professional_id" validate:"required"`
	StartTime      string  `json:"start_time" validate:"required,hhmm"`
	Duration       int     `json:"duration" validate:"gt=0,lte=1440"`
	Specialty      *string `json:"specialty"`
	Notes          *string `json:"notes"`
}

// BatchRequest é o corpo de POST /api/appointments/batch.
type BatchRequest struct {
	PatientID      string         `json:"patient_id" validate:"required"`
	ProfessionalID string         `json:"professional_id" validate:"required"`
	StartTime      string         `json:"start_time" validate:"required,hhmm"`
	EndTime        string         `json:"end_time" validate:"omitempty,hhmm"`
	Duration       int            `json:"duration" validate:"gt=0,lte=1440"`
	Specialty      *string        `json:"specialty"`
	Notes          *string        `json:"notes"`
	Dates          []caldate.Date `json:"dates" validate:"min=1"`
}

// SingleRequest é o corpo de POST /api/appointments.
type SingleRequest struct {
	PatientID       string       `json:"patient_id" validate:"required"`
	ProfessionalID  string       `json:"professional_id" validate:"required"`
	AppointmentDate caldate.Date `json:"appointment_date"`
	StartTime       string       `json:"start_time" validate:"required,hhmm"`
	EndTime         string       `json:"end_time" validate:"omitempty,hhmm"`
	Duration        int          `json:"duration" validate:"gt=0,lte=1440"`
	Status          string       `json:"status" validate:"omitempty,oneof=scheduled confirmed completed cancelled no_show"`
	Specialty       *string      `json:"specialty"`
	Notes           *string      `json:"notes"`
}

// Submission tem exatamente um dos dois preenchido.
type Submission struct {
	Single *SingleRequest
	Batch  *BatchRequest
}

func (s Submission) IsBatch() bool { return s.Batch != nil }

// Dates retorna as datas que serão criadas, para log e confirmação.
func (s Submission) Dates() []caldate.Date {
	switch {
	case s.Batch != nil:
		return s.Batch.Dates
	case s.Single != nil:
		return []caldate.Date{s.Single.AppointmentDate}
	}
	return nil
}

// Decide escolhe entre lote e consulta única.
//
// Lote só quando a recorrência está ativa (plan != nil) e gerou mais de uma data. Se gerou
// exatamente uma, vira consulta única nessa data; se não gerou nenhuma (ou não há plano), usa
// a data escolhida no formulário. Nunca monta lote de tamanho um.
func Decide(plan *RecurrencePlan, chosen caldate.Date, shared Shared) (Submission, error) {
	if err := validation.Struct(shared); err != nil {
		return Submission{}, err
	}
	endTime, err := ComputeEndTime(shared.StartTime, shared.Duration)
	if err != nil {
		return Submission{}, err
	}

	var dates []caldate.Date
	if plan != nil {
		dates = plan.Dates()
	}
	if len(dates) > 1 {
		return Submission{Batch: &BatchRequest{
			PatientID:      shared.PatientID,
			ProfessionalID: shared.ProfessionalID,
			StartTime:      shared.StartTime,
			EndTime:        endTime,
			Duration:       shared.Duration,
			Specialty:      shared.Specialty,
			Notes:          shared.Notes,
			Dates:          dates,
		}}, nil
	}

	date := chosen
	if len(dates) == 1 {
		date = dates[0]
	}
	if date.IsZero() {
		return Submission{}, ErrNoDate
	}
	return Submission{Single: &SingleRequest{
		PatientID:       shared.PatientID,
		ProfessionalID:  shared.ProfessionalID,
		AppointmentDate: date,
		StartTime:       shared.StartTime,
		EndTime:         endTime,
		Duration:        shared.Duration,
		Status:          StatusScheduled,
		Specialty:       shared.Specialty,
		Notes:           shared.Notes,
	}}, nil
}

// Creator persiste os pedidos. O servidor implementa sobre o repositório; o CLI, sobre HTTP.
type Creator interface {
	CreateAppointment(ctx context.Context, req SingleRequest) (string, error)
	CreateAppointmentBatch(ctx context.Context, req BatchRequest) ([]string, error)
}

// ServerMessager é implementado por erros que trazem texto do servidor apresentável ao usuário.
type ServerMessager interface {
	ServerMessage() string
}

const fallbackMessage = "Não foi possível salvar o agendamento. Tente novamente."

// SubmissionError embrulha qualquer falha de Submit. Não há retry: o usuário reenvia manualmente.
type SubmissionError struct {
	Batch bool
	Err   error
}

func (e *SubmissionError) Error() string {
	kind := "single"
	if e.Batch {
		kind = "batch"
	}
	return fmt.Sprintf("submit %s appointment: %v", kind, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// UserMessage retorna o texto do servidor quando existe, senão uma mensagem genérica.
func (e *SubmissionError) UserMessage() string {
	var sm ServerMessager
	if errors.As(e.Err, &sm) {
		if msg := sm.ServerMessage(); msg != "" {
			return msg
		}
	}
	if validation.IsValidationError(e.Err) {
		return validation.Message(e.Err)
	}
	return fallbackMessage
}

// Submit envia a decisão em uma única chamada. Lote é tratado como uma requisição atômica.
func Submit(ctx context.Context, c Creator, s Submission) ([]string, error) {
	switch {
	case s.Batch != nil:
		ids, err := c.CreateAppointmentBatch(ctx, *s.Batch)
		if err != nil {
			return nil, &SubmissionError{Batch: true, Err: err}
		}
		return ids, nil
	case s.Single != nil:
		id, err := c.CreateAppointment(ctx, *s.Single)
		if err != nil {
			return nil, &SubmissionError{Err: err}
		}
		return []string{id}, nil
	}
	return nil, &SubmissionError{Err: errors.New("empty submission")}
}
