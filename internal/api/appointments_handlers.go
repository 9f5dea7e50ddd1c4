package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/gestordeclinica/backend/internal/auth"
	"github.com/gestordeclinica/backend/internal/caldate"
	"github.com/gestordeclinica/backend/internal/repo"
	"github.com/gestordeclinica/backend/internal/scheduling"
)

// RecurringRequest é o formulário de agendamento: campos comuns, a data escolhida no calendário e,
// se a recorrência estiver ligada, o plano.
type RecurringRequest struct {
	scheduling.Shared
	AppointmentDate caldate.Date               `json:"appointment_date"`
	Recurrence      *scheduling.RecurrencePlan `json:"recurrence"`
}

type RecurringResponse struct {
	Mode  string         `json:"mode"`
	IDs   []string       `json:"ids"`
	Dates []caldate.Date `json:"dates"`
}

type StatusRequest struct {
	Status string `json:"status" validate:"required,oneof=scheduled confirmed completed cancelled no_show"`
}

func submissionMode(s scheduling.Submission) string {
	if s.IsBatch() {
		return "batch"
	}
	return "single"
}

func (h *Handler) appointmentFilter(r *http.Request) (repo.AppointmentFilter, error) {
	var f repo.AppointmentFilter
	var err error
	if f.From, err = queryDate(r, "from"); err != nil {
		return f, err
	}
	if f.To, err = queryDate(r, "to"); err != nil {
		return f, err
	}
	if f.ProfessionalID, err = queryUUID(r, "professional_id"); err != nil {
		return f, err
	}
	if f.PatientID, err = queryUUID(r, "patient_id"); err != nil {
		return f, err
	}
	f.Status = strings.TrimSpace(r.URL.Query().Get("status"))
	// Profissional só enxerga a própria agenda.
	if auth.RoleFrom(r.Context()) == auth.RoleProfessional {
		pid := auth.ProfessionalIDFrom(r.Context())
		if pid == nil {
			return f, &RequestError{Status: http.StatusForbidden, Message: "forbidden"}
		}
		id, err := uuid.Parse(*pid)
		if err != nil {
			return f, &RequestError{Status: http.StatusForbidden, Message: "forbidden"}
		}
		f.ProfessionalID = &id
	}
	f.Limit, f.Offset = ParseLimitOffset(r)
	return f, nil
}

func (h *Handler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	f, err := h.appointmentFilter(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	list, total, err := h.Appointments.List(r.Context(), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if list == nil {
		list = []repo.AppointmentView{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"appointments": list,
		"limit":        f.Limit,
		"offset":       f.Offset,
		"total":        total,
	})
}

func (h *Handler) ListPatientAppointments(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if _, err := h.Patients.Get(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	f, err := h.appointmentFilter(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	f.PatientID = &id
	list, total, err := h.Appointments.List(r.Context(), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if list == nil {
		list = []repo.AppointmentView{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"appointments": list,
		"limit":        f.Limit,
		"offset":       f.Offset,
		"total":        total,
	})
}

func (h *Handler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	a, err := h.Appointments.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Handler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	var req scheduling.SingleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	id, err := h.Scheduler.CreateAppointment(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	uid, _ := uuid.Parse(id)
	a, err := h.Appointments.Get(r.Context(), uid)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (h *Handler) CreateAppointmentBatch(w http.ResponseWriter, r *http.Request) {
	var req scheduling.BatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ids, err := h.Scheduler.CreateAppointmentBatch(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"ids": ids, "count": len(ids)})
}

// CreateRecurringAppointments recebe o formulário inteiro e decide aqui entre consulta única e
// lote, com a mesma regra do cliente: lote só com mais de uma data gerada.
func (h *Handler) CreateRecurringAppointments(w http.ResponseWriter, r *http.Request) {
	var req RecurringRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Recurrence != nil && req.Recurrence.StartDate.IsZero() {
		// Recorrência sem início parte da data escolhida ou, sem ela, de hoje.
		req.Recurrence.StartDate = req.AppointmentDate
		if req.Recurrence.StartDate.IsZero() {
			req.Recurrence.StartDate = caldate.Of(h.clock().In(h.Cfg.ReminderLocation()))
		}
	}
	sub, err := scheduling.Decide(req.Recurrence, req.AppointmentDate, req.Shared)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ids, err := scheduling.Submit(r.Context(), h.Scheduler, sub)
	if err != nil {
		// SubmissionError embrulha o RequestError do serviço; fail desembrulha status e mensagem.
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, RecurringResponse{Mode: submissionMode(sub), IDs: ids, Dates: sub.Dates()})
}

// RecurrencePreview mostra as datas que o formulário vai gerar, sem gravar nada.
func (h *Handler) RecurrencePreview(w http.ResponseWriter, r *http.Request) {
	start, err := queryDate(r, "start_date")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if start.IsZero() {
		start = caldate.Of(h.clock().In(h.Cfg.ReminderLocation()))
	}
	count := 0
	if s := strings.TrimSpace(r.URL.Query().Get("session_count")); s != "" {
		if count, err = strconv.Atoi(s); err != nil {
			writeError(w, http.StatusBadRequest, "invalid session_count")
			return
		}
	}
	plan := scheduling.RecurrencePlan{
		StartDate:    start,
		Weekdays:     scheduling.ParseWeekdays(r.URL.Query().Get("weekdays")),
		SessionCount: count,
	}
	dates := plan.Dates()
	mode := "single"
	if len(dates) > 1 {
		mode = "batch"
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"dates":     dates,
		"mode":      mode,
		"requested": count,
		// Menos datas que o pedido: a janela de varredura acabou antes.
		"truncated": count > 0 && !plan.Weekdays.IsEmpty() && len(dates) < count,
	})
}

func (h *Handler) UpdateAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req scheduling.SingleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	a, err := h.Scheduler.Update(r.Context(), id, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Handler) UpdateAppointmentStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req StatusRequest
	if !decodeJSON(w, r, &req) || !validate(w, req) {
		return
	}
	a, err := h.Scheduler.ChangeStatus(r.Context(), id, req.Status)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Handler) DeleteAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	a, err := h.Appointments.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.Appointments.Delete(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	rt, rid := resource("appointment", id)
	h.audit(r.Context(), repo.AuditEvent{Action: auditAppointmentDeleted, ResourceType: rt, ResourceID: rid, PatientID: &a.PatientID})
	w.WriteHeader(http.StatusNoContent)
}
