package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gestordeclinica/backend/internal/caldate"
	"github.com/gestordeclinica/backend/internal/events"
	"github.com/gestordeclinica/backend/internal/middleware"
	"github.com/gestordeclinica/backend/internal/repo"
	"github.com/gestordeclinica/backend/internal/scheduling"
	"github.com/gestordeclinica/backend/internal/validation"
)

const (
	auditAppointmentCreated       = "APPOINTMENT_CREATED"
	auditAppointmentsCreatedBatch = "APPOINTMENTS_CREATED_BATCH"
	auditAppointmentUpdated       = "APPOINTMENT_UPDATED"
	auditAppointmentStatus        = "APPOINTMENT_STATUS_CHANGED"
	auditAppointmentDeleted       = "APPOINTMENT_DELETED"
)

// AppointmentService é o lado servidor de scheduling.Creator: valida paciente e profissional,
// completa o horário de término, recusa sobreposição na agenda do profissional e grava.
type AppointmentService struct {
	Patients      repo.PatientRepository
	Professionals repo.ProfessionalRepository
	Appointments  repo.AppointmentRepository
	Events        events.Publisher
	Log           *zap.Logger
	// audit recebe o evento já com ator/request id.
	audit func(ctx context.Context, ev repo.AuditEvent)
}

var _ scheduling.Creator = (*AppointmentService)(nil)

// NewAppointmentService usa os repositórios, o publisher e a auditoria do handler.
func NewAppointmentService(h *Handler) *AppointmentService {
	return &AppointmentService{
		Patients:      h.Patients,
		Professionals: h.Professionals,
		Appointments:  h.Appointments,
		Events:        h.Events,
		Log:           h.Log.Named("appointments"),
		audit:         h.audit,
	}
}

// slot é o que single, lote e edição têm em comum depois de validados.
type slot struct {
	patientID      uuid.UUID
	professionalID uuid.UUID
	start, end     string
	duration       int
}

func (s *AppointmentService) resolveSlot(ctx context.Context, patientID, professionalID, start, end string, duration int) (slot, error) {
	var out slot
	var err error
	if out.patientID, err = uuid.Parse(strings.TrimSpace(patientID)); err != nil {
		return out, badRequest("invalid patient_id")
	}
	if out.professionalID, err = uuid.Parse(strings.TrimSpace(professionalID)); err != nil {
		return out, badRequest("invalid professional_id")
	}
	if _, err := s.Patients.Get(ctx, out.patientID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return out, notFound("Paciente não encontrado")
		}
		return out, err
	}
	prof, err := s.Professionals.Get(ctx, out.professionalID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return out, notFound("Profissional não encontrado")
		}
		return out, err
	}
	if !prof.Active {
		return out, &RequestError{Status: http.StatusUnprocessableEntity, Message: "Profissional inativo"}
	}
	out.start, out.duration = start, duration
	if out.end, err = scheduling.ComputeEndTime(start, duration); err != nil {
		return out, badRequest(err.Error())
	}
	// end_time é sempre start + duration; o informado só pode repetir esse valor.
	if end != "" && end != out.end {
		return out, badRequest("end_time must be start_time + duration (" + out.end + ")")
	}
	if scheduling.CrossesMidnight(start, duration) {
		s.Log.Warn("consulta termina após a meia-noite",
			zap.String("start_time", start), zap.Int("duration", duration), zap.String("end_time", out.end))
	}
	return out, nil
}

func (s *AppointmentService) checkConflicts(ctx context.Context, sl slot, dates []caldate.Date, exclude *uuid.UUID) error {
	conflicts, err := s.Appointments.FindConflicts(ctx, sl.professionalID, dates, sl.start, sl.end, exclude)
	if err != nil {
		return err
	}
	if len(conflicts) == 0 {
		return nil
	}
	infos := make([]ConflictInfo, len(conflicts))
	labels := make([]string, 0, len(conflicts))
	for i, c := range conflicts {
		infos[i] = ConflictInfo{AppointmentID: c.ID.String(), Date: c.AppointmentDate, StartTime: c.StartTime, EndTime: c.EndTime}
		labels = append(labels, c.AppointmentDate.FormatBR()+" "+c.StartTime)
	}
	return &RequestError{
		Status:    http.StatusConflict,
		Message:   "Profissional já possui consulta nesse horário: " + strings.Join(labels, ", "),
		Conflicts: infos,
	}
}

func (s *AppointmentService) CreateAppointment(ctx context.Context, req scheduling.SingleRequest) (string, error) {
	if err := validation.Struct(req); err != nil {
		return "", err
	}
	if req.AppointmentDate.IsZero() {
		return "", badRequest("appointment_date is required")
	}
	if !req.AppointmentDate.InRange() {
		return "", badRequest("appointment_date out of range")
	}
	sl, err := s.resolveSlot(ctx, req.PatientID, req.ProfessionalID, req.StartTime, req.EndTime, req.Duration)
	if err != nil {
		return "", err
	}
	status := req.Status
	if status == "" {
		status = scheduling.StatusScheduled
	}
	if status != scheduling.StatusCancelled {
		if err := s.checkConflicts(ctx, sl, []caldate.Date{req.AppointmentDate}, nil); err != nil {
			return "", err
		}
	}
	a := &repo.Appointment{
		PatientID:       sl.patientID,
		ProfessionalID:  sl.professionalID,
		AppointmentDate: req.AppointmentDate,
		StartTime:       sl.start,
		EndTime:         sl.end,
		Duration:        sl.duration,
		Status:          status,
		Specialty:       req.Specialty,
		Notes:           req.Notes,
	}
	if err := s.Appointments.Create(ctx, a); err != nil {
		return "", err
	}
	rt, rid := resource("appointment", a.ID)
	s.audit(ctx, repo.AuditEvent{
		Action: auditAppointmentCreated, ResourceType: rt, ResourceID: rid, PatientID: &a.PatientID,
		Metadata: map[string]string{"date": a.AppointmentDate.String(), "start_time": a.StartTime},
	})
	events.Emit(ctx, s.Events, s.Log, events.Event{
		Type:      events.AppointmentCreated,
		RequestID: middleware.RequestIDFromContext(ctx),
		Data:      a,
	})
	return a.ID.String(), nil
}

// CreateAppointmentBatch grava todas as datas numa transação. Datas repetidas são ignoradas.
func (s *AppointmentService) CreateAppointmentBatch(ctx context.Context, req scheduling.BatchRequest) ([]string, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	dates := append([]caldate.Date(nil), req.Dates...)
	for _, d := range dates {
		if d.IsZero() {
			return nil, badRequest("dates must not contain empty values")
		}
		if !d.InRange() {
			return nil, badRequest("dates contain a date out of range: " + d.String())
		}
	}
	scheduling.SortDates(dates)
	dates = scheduling.DedupeSorted(dates)
	sl, err := s.resolveSlot(ctx, req.PatientID, req.ProfessionalID, req.StartTime, req.EndTime, req.Duration)
	if err != nil {
		return nil, err
	}
	if err := s.checkConflicts(ctx, sl, dates, nil); err != nil {
		return nil, err
	}
	list := make([]*repo.Appointment, len(dates))
	for i, d := range dates {
		list[i] = &repo.Appointment{
			PatientID:       sl.patientID,
			ProfessionalID:  sl.professionalID,
			AppointmentDate: d,
			StartTime:       sl.start,
			EndTime:         sl.end,
			Duration:        sl.duration,
			Status:          scheduling.StatusScheduled,
			Specialty:       req.Specialty,
			Notes:           req.Notes,
		}
	}
	seriesID, err := s.Appointments.CreateBatch(ctx, list)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(list))
	dateStrs := make([]string, len(list))
	for i, a := range list {
		ids[i] = a.ID.String()
		dateStrs[i] = a.AppointmentDate.String()
	}
	rt, rid := resource("appointment_series", seriesID)
	s.audit(ctx, repo.AuditEvent{
		Action: auditAppointmentsCreatedBatch, ResourceType: rt, ResourceID: rid, PatientID: &sl.patientID,
		Metadata: map[string]interface{}{"count": len(list), "dates": dateStrs, "start_time": sl.start},
	})
	events.Emit(ctx, s.Events, s.Log, events.Event{
		Type:      events.AppointmentBatchCreated,
		RequestID: middleware.RequestIDFromContext(ctx),
		Data:      map[string]interface{}{"series_id": seriesID, "appointments": list},
	})
	return ids, nil
}

// Update substitui a consulta inteira. A checagem de sobreposição ignora a própria consulta.
func (s *AppointmentService) Update(ctx context.Context, id uuid.UUID, req scheduling.SingleRequest) (*repo.Appointment, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if req.AppointmentDate.IsZero() {
		return nil, badRequest("appointment_date is required")
	}
	if !req.AppointmentDate.InRange() {
		return nil, badRequest("appointment_date out of range")
	}
	current, err := s.Appointments.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	sl, err := s.resolveSlot(ctx, req.PatientID, req.ProfessionalID, req.StartTime, req.EndTime, req.Duration)
	if err != nil {
		return nil, err
	}
	status := req.Status
	if status == "" {
		status = current.Status
	}
	if status != scheduling.StatusCancelled {
		if err := s.checkConflicts(ctx, sl, []caldate.Date{req.AppointmentDate}, &id); err != nil {
			return nil, err
		}
	}
	current.PatientID = sl.patientID
	current.ProfessionalID = sl.professionalID
	current.AppointmentDate = req.AppointmentDate
	current.StartTime = sl.start
	current.EndTime = sl.end
	current.Duration = sl.duration
	current.Status = status
	current.Specialty = req.Specialty
	current.Notes = req.Notes
	if err := s.Appointments.Update(ctx, current); err != nil {
		return nil, err
	}
	rt, rid := resource("appointment", id)
	s.audit(ctx, repo.AuditEvent{Action: auditAppointmentUpdated, ResourceType: rt, ResourceID: rid, PatientID: &current.PatientID})
	return current, nil
}

// ChangeStatus troca o status. Reabrir uma consulta cancelada volta a ocupar a agenda e por isso
// passa pela checagem de sobreposição.
func (s *AppointmentService) ChangeStatus(ctx context.Context, id uuid.UUID, status string) (*repo.Appointment, error) {
	a, err := s.Appointments.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status == status {
		return a, nil
	}
	if a.Status == scheduling.StatusCancelled {
		sl := slot{professionalID: a.ProfessionalID, start: a.StartTime, end: a.EndTime}
		if err := s.checkConflicts(ctx, sl, []caldate.Date{a.AppointmentDate}, &id); err != nil {
			return nil, err
		}
	}
	previous := a.Status
	if err := s.Appointments.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	a.Status = status
	rt, rid := resource("appointment", id)
	s.audit(ctx, repo.AuditEvent{
		Action: auditAppointmentStatus, ResourceType: rt, ResourceID: rid, PatientID: &a.PatientID,
		Metadata: map[string]string{"from": previous, "to": status},
	})
	events.Emit(ctx, s.Events, s.Log, events.Event{
		Type:      events.AppointmentStatusChanged,
		RequestID: middleware.RequestIDFromContext(ctx),
		Data:      map[string]interface{}{"appointment_id": id, "from": previous, "to": status},
	})
	return a, nil
}
