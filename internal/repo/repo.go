package repo

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/gestordeclinica/backend/internal/caldate"
)

// Interfaces consumidas pelos handlers e pelo worker de lembretes. As implementações GORM ficam em
// *Store; o EHR usa pgx direto (EHRStore).

type PatientRepository interface {
	List(ctx context.Context, search string, limit, offset int) ([]Patient, int64, error)
	Get(ctx context.Context, id uuid.UUID) (*Patient, error)
	Create(ctx context.Context, p *Patient) error
	Update(ctx context.Context, p *Patient) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

type ProfessionalRepository interface {
	List(ctx context.Context, activeOnly bool) ([]Professional, error)
	Get(ctx context.Context, id uuid.UUID) (*Professional, error)
	Create(ctx context.Context, p *Professional) error
	Update(ctx context.Context, p *Professional) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type AppointmentRepository interface {
	List(ctx context.Context, f AppointmentFilter) ([]AppointmentView, int64, error)
	Get(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Create(ctx context.Context, a *Appointment) error
	CreateBatch(ctx context.Context, list []*Appointment) (uuid.UUID, error)
	Update(ctx context.Context, a *Appointment) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindConflicts(ctx context.Context, professionalID uuid.UUID, dates []caldate.Date, start, end string, excludeID *uuid.UUID) ([]Appointment, error)
	ListForReminder(ctx context.Context, date caldate.Date) ([]ReminderRow, error)
}

type FinancialRepository interface {
	List(ctx context.Context, f TransactionFilter) ([]Transaction, int64, error)
	Get(ctx context.Context, id uuid.UUID) (*Transaction, error)
	Create(ctx context.Context, t *Transaction) error
	Update(ctx context.Context, t *Transaction) error
	Delete(ctx context.Context, id uuid.UUID) error
	Pay(ctx context.Context, id uuid.UUID, paidDate caldate.Date, method *string) (*Transaction, error)
	Summary(ctx context.Context, from, to caldate.Date) (*FinancialSummary, error)
}

type EHRRepository interface {
	ListByPatient(ctx context.Context, patientID uuid.UUID, types []string, limit, offset int) ([]EHREvent, int, error)
	Get(ctx context.Context, id uuid.UUID) (*EHREvent, error)
	Create(ctx context.Context, e *EHREvent) error
}

type UserRepository interface {
	ByEmail(ctx context.Context, email string) (*User, error)
	ByID(ctx context.Context, id uuid.UUID) (*User, error)
	Create(ctx context.Context, u *User) error
}

type AuditRepository interface {
	Create(ctx context.Context, ev AuditEvent) error
	List(ctx context.Context, f AuditFilter) ([]AuditEvent, int64, error)
}

// Timestamps comuns.
type Timestamps struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
