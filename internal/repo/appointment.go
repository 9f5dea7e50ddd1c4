package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gestordeclinica/backend/internal/caldate"
	"github.com/gestordeclinica/backend/internal/scheduling"
)

// Appointment é uma consulta da agenda. StartTime/EndTime chegam do Postgres como "HH:MM:SS" e são
// normalizados para "HH:MM" em toda leitura.
type Appointment struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	// SeriesID agrupa consultas criadas no mesmo lote recorrente.
	SeriesID        *uuid.UUID   `gorm:"type:uuid;index" json:"series_id"`
	PatientID       uuid.UUID    `gorm:"type:uuid;not null;index" json:"patient_id"`
	ProfessionalID  uuid.UUID    `gorm:"type:uuid;not null;index" json:"professional_id"`
	AppointmentDate caldate.Date `gorm:"not null;index" json:"appointment_date"`
	StartTime       string       `gorm:"column:start_time;type:time;not null" json:"start_time"`
	EndTime         string       `gorm:"column:end_time;type:time;not null" json:"end_time"`
	Duration        int          `gorm:"not null" json:"duration"`
	Status          string       `gorm:"not null;default:scheduled" json:"status"`
	Specialty       *string      `json:"specialty"`
	Notes           *string      `json:"notes"`
	Timestamps
}

func (a *Appointment) normalize() {
	a.StartTime = TimeStringToHHMM(a.StartTime)
	a.EndTime = TimeStringToHHMM(a.EndTime)
}

func (a *Appointment) AfterFind(*gorm.DB) error {
	a.normalize()
	return nil
}

// AppointmentView é a linha da agenda com os nomes já resolvidos.
type AppointmentView struct {
	Appointment
	PatientName      string `json:"patient_name"`
	ProfessionalName string `json:"professional_name"`
}

type AppointmentFilter struct {
	From           caldate.Date
	To             caldate.Date
	ProfessionalID *uuid.UUID
	PatientID      *uuid.UUID
	Status         string
	Limit          int
	Offset         int
}

// ReminderRow é uma consulta do dia com o telefone do paciente, para o lembrete por WhatsApp.
type ReminderRow struct {
	AppointmentID    uuid.UUID
	PatientID        uuid.UUID
	PatientName      string
	PatientPhone     string
	ProfessionalName string
	AppointmentDate  caldate.Date
	StartTime        string
}

type AppointmentStore struct {
	DB *gorm.DB
}

func NewAppointmentStore(db *gorm.DB) *AppointmentStore { return &AppointmentStore{DB: db} }

func (s *AppointmentStore) filtered(ctx context.Context, f AppointmentFilter) *gorm.DB {
	q := s.DB.WithContext(ctx).Table("appointments a")
	if !f.From.IsZero() {
		q = q.Where("a.appointment_date >= ?", f.From)
	}
	if !f.To.IsZero() {
		q = q.Where("a.appointment_date <= ?", f.To)
	}
	if f.ProfessionalID != nil {
		q = q.Where("a.professional_id = ?", *f.ProfessionalID)
	}
	if f.PatientID != nil {
		q = q.Where("a.patient_id = ?", *f.PatientID)
	}
	if f.Status != "" {
		q = q.Where("a.status = ?", f.Status)
	}
	return q
}

func (s *AppointmentStore) List(ctx context.Context, f AppointmentFilter) ([]AppointmentView, int64, error) {
	var total int64
	if err := s.filtered(ctx, f).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	q := s.filtered(ctx, f).
		Select("a.*, p.full_name AS patient_name, pr.full_name AS professional_name").
		Joins("JOIN patients p ON p.id = a.patient_id").
		Joins("JOIN professionals pr ON pr.id = a.professional_id").
		Order("a.appointment_date, a.start_time")
	if f.Limit > 0 {
		q = q.Limit(f.Limit).Offset(f.Offset)
	}
	var list []AppointmentView
	if err := q.Scan(&list).Error; err != nil {
		return nil, 0, err
	}
	for i := range list {
		list[i].normalize()
	}
	return list, total, nil
}

func (s *AppointmentStore) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	var a Appointment
	if err := s.DB.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, mapErr(err)
	}
	return &a, nil
}

func (s *AppointmentStore) Create(ctx context.Context, a *Appointment) error {
	newID(&a.ID)
	if a.Status == "" {
		a.Status = scheduling.StatusScheduled
	}
	return mapErr(s.DB.WithContext(ctx).Create(a).Error)
}

// CreateBatch grava todas as consultas numa única transação com o mesmo series_id: ou entram
// todas ou nenhuma.
func (s *AppointmentStore) CreateBatch(ctx context.Context, list []*Appointment) (uuid.UUID, error) {
	if len(list) == 0 {
		return uuid.Nil, fmt.Errorf("empty batch")
	}
	seriesID := uuid.New()
	for _, a := range list {
		newID(&a.ID)
		a.SeriesID = &seriesID
		if a.Status == "" {
			a.Status = scheduling.StatusScheduled
		}
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(list, 100).Error
	})
	if err != nil {
		return uuid.Nil, mapErr(err)
	}
	return seriesID, nil
}

func (s *AppointmentStore) Update(ctx context.Context, a *Appointment) error {
	res := s.DB.WithContext(ctx).Model(&Appointment{}).Where("id = ?", a.ID).Select(
		"patient_id", "professional_id", "appointment_date", "start_time", "end_time", "duration",
		"status", "specialty", "notes", "updated_at",
	).Updates(a)
	if res.Error != nil {
		return mapErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *AppointmentStore) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	res := s.DB.WithContext(ctx).Model(&Appointment{}).Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *AppointmentStore) Delete(ctx context.Context, id uuid.UUID) error {
	res := s.DB.WithContext(ctx).Delete(&Appointment{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// FindConflicts devolve as consultas não canceladas do profissional nas datas informadas cujo
// intervalo [start, end) cruza o pedido. O cruzamento é calculado em Go para funcionar igual no
// Postgres (TIME) e no sqlite (texto). end <= start indica que passou da meia-noite: o intervalo vai
// até o fim do dia.
func (s *AppointmentStore) FindConflicts(ctx context.Context, professionalID uuid.UUID, dates []caldate.Date, start, end string, excludeID *uuid.UUID) ([]Appointment, error) {
	if len(dates) == 0 {
		return nil, nil
	}
	reqStart, reqEnd, err := minuteRange(start, end)
	if err != nil {
		return nil, err
	}
	q := s.DB.WithContext(ctx).
		Where("professional_id = ? AND appointment_date IN ? AND status <> ?", professionalID, dates, scheduling.StatusCancelled)
	if excludeID != nil {
		q = q.Where("id <> ?", *excludeID)
	}
	var candidates []Appointment
	if err := q.Order("appointment_date, start_time").Find(&candidates).Error; err != nil {
		return nil, err
	}
	var out []Appointment
	for _, c := range candidates {
		cs, ce, err := minuteRange(c.StartTime, c.EndTime)
		if err != nil {
			continue
		}
		if cs < reqEnd && reqStart < ce {
			out = append(out, c)
		}
	}
	return out, nil
}

func minuteRange(start, end string) (int, int, error) {
	s, err := scheduling.ParseHHMM(start)
	if err != nil {
		return 0, 0, err
	}
	e, err := scheduling.ParseHHMM(end)
	if err != nil {
		return 0, 0, err
	}
	if e <= s {
		e = 24 * 60
	}
	return s, e, nil
}

// ListForReminder: consultas scheduled/confirmed da data cujo paciente tem telefone.
func (s *AppointmentStore) ListForReminder(ctx context.Context, date caldate.Date) ([]ReminderRow, error) {
	var rows []ReminderRow
	err := s.DB.WithContext(ctx).Raw(`
		SELECT a.id AS appointment_id, a.patient_id, p.full_name AS patient_name, p.phone AS patient_phone,
		       pr.full_name AS professional_name, a.appointment_date, a.start_time
		FROM appointments a
		JOIN patients p ON p.id = a.patient_id AND p.deleted_at IS NULL
		JOIN professionals pr ON pr.id = a.professional_id
		WHERE a.appointment_date = ? AND a.status IN (?, ?)
		  AND p.phone IS NOT NULL AND p.phone <> ''
		ORDER BY a.start_time
	`, date, scheduling.StatusScheduled, scheduling.StatusConfirmed).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].StartTime = TimeStringToHHMM(rows[i].StartTime)
	}
	return rows, nil
}
