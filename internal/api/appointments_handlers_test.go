package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gestordeclinica/backend/internal/events"
	"github.com/gestordeclinica/backend/internal/repo"
)

func TestCreateAppointment_DerivesEndTime(t *testing.T) {
	env := newEnv(t)
	rec := env.do(http.MethodPost, "/api/appointments", env.receptionToken, env.appointmentBody("2026-02-02", "14:00", 50))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var a repo.Appointment
	decode(t, rec, &a)
	assert.Equal(t, "14:50", a.EndTime)
	assert.Equal(t, "scheduled", a.Status)
	assert.Equal(t, "2026-02-02", a.AppointmentDate.String())
	assert.Nil(t, a.SeriesID)
	assert.Equal(t, []string{events.AppointmentCreated}, env.events.types())

	audits, _, err := env.h.Audit.List(context.Background(), repo.AuditFilter{Action: auditAppointmentCreated})
	require.NoError(t, err)
	require.Len(t, audits, 1)
	assert.Equal(t, a.ID, *audits[0].ResourceID)
}

func TestCreateAppointment_MidnightWrapIsKeptAndLogged(t *testing.T) {
	env := newEnv(t)
	rec := env.do(http.MethodPost, "/api/appointments", env.adminToken, env.appointmentBody("2026-02-02", "23:30", 45))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var a repo.Appointment
	decode(t, rec, &a)
	assert.Equal(t, "00:15", a.EndTime)
	assert.Equal(t, 1, env.logs.FilterMessage("consulta termina após a meia-noite").Len())
}

func TestCreateAppointment_Conflict(t *testing.T) {
	env := newEnv(t)
	require.Equal(t, http.StatusCreated, env.do(http.MethodPost, "/api/appointments", env.adminToken, env.appointmentBody("2026-02-02", "14:00", 50)).Code)

	rec := env.do(http.MethodPost, "/api/appointments", env.adminToken, env.appointmentBody("2026-02-02", "14:30", 30))
	require.Equal(t, http.StatusConflict, rec.Code)
	var body struct {
		Error     string         `json:"error"`
		Conflicts []ConflictInfo `json:"conflicts"`
	}
	decode(t, rec, &body)
	assert.Contains(t, body.Error, "02/02/2026 14:00")
	require.Len(t, body.Conflicts, 1)
	assert.Equal(t, "14:50", body.Conflicts[0].EndTime)

	// Outro profissional no mesmo horário não conflita.
	other := env.appointmentBody("2026-02-02", "14:30", 30)
	other["professional_id"] = env.other.ID.String()
	assert.Equal(t, http.StatusCreated, env.do(http.MethodPost, "/api/appointments", env.adminToken, other).Code)
}

func TestCreateAppointment_Validation(t *testing.T) {
	env := newEnv(t)

	body := env.appointmentBody("2026-02-02", "25:00", 0)
	rec := env.do(http.MethodPost, "/api/appointments", env.adminToken, body)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "start_time must be a time in HH:MM format")
	assert.Contains(t, rec.Body.String(), "duration must be greater than 0")

	body = env.appointmentBody("2026-02-30", "10:00", 30)
	rec = env.do(http.MethodPost, "/api/appointments", env.adminToken, body)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid date")

	body = env.appointmentBody("2026-02-02", "10:00", 30)
	body["patient_id"] = "6f1c1d8e-0000-4000-8000-000000000000"
	rec = env.do(http.MethodPost, "/api/appointments", env.adminToken, body)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Paciente não encontrado"}`, rec.Body.String())
}

func TestCreateAppointment_InactiveProfessional(t *testing.T) {
	env := newEnv(t)
	require.Equal(t, http.StatusNoContent, env.do(http.MethodDelete, "/api/professionals/"+env.professional.ID.String(), env.adminToken, nil).Code)
	rec := env.do(http.MethodPost, "/api/appointments", env.adminToken, env.appointmentBody("2026-02-02", "10:00", 30))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCreateAppointmentBatch_SortsAndDedupes(t *testing.T) {
	env := newEnv(t)
	body := map[string]interface{}{
		"patient_id":      env.patient.ID.String(),
		"professional_id": env.professional.ID.String(),
		"start_time":      "09:00",
		"duration":        60,
		"dates":           []string{"2026-02-04", "2026-02-02", "2026-02-04"},
	}
	rec := env.do(http.MethodPost, "/api/appointments/batch", env.adminToken, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var out struct {
		IDs   []string `json:"ids"`
		Count int      `json:"count"`
	}
	decode(t, rec, &out)
	assert.Equal(t, 2, out.Count)

	list, _, err := env.h.Appointments.List(context.Background(), repo.AppointmentFilter{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "2026-02-02", list[0].AppointmentDate.String())
	assert.Equal(t, "10:00", list[0].EndTime)
	require.NotNil(t, list[0].SeriesID)
	assert.Equal(t, list[0].SeriesID, list[1].SeriesID)
	assert.Equal(t, []string{events.AppointmentBatchCreated}, env.events.types())
}

func TestCreateAppointmentBatch_EmptyDates(t *testing.T) {
	env := newEnv(t)
	body := map[string]interface{}{
		"patient_id":      env.patient.ID.String(),
		"professional_id": env.professional.ID.String(),
		"start_time":      "09:00",
		"duration":        60,
		"dates":           []string{},
	}
	rec := env.do(http.MethodPost, "/api/appointments/batch", env.adminToken, body)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "dates must have at least 1 items")
}

func recurringBody(env *testEnv, chosen string, recurrence map[string]interface{}) map[string]interface{} {
	b := map[string]interface{}{
		"patient_id":       env.patient.ID.String(),
		"professional_id":  env.professional.ID.String(),
		"start_time":       "14:00",
		"duration":         50,
		"specialty":        "Psicologia",
		"appointment_date": chosen,
	}
	if recurrence != nil {
		b["recurrence"] = recurrence
	}
	return b
}

func TestRecurring_BatchWhenSeveralDates(t *testing.T) {
	env := newEnv(t)
	rec := env.do(http.MethodPost, "/api/appointments/recurring", env.adminToken, recurringBody(env, "", map[string]interface{}{
		"start_date": "2026-02-02", "weekdays": []int{1, 3}, "session_count": 4,
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var out RecurringResponse
	decode(t, rec, &out)
	assert.Equal(t, "batch", out.Mode)
	assert.Len(t, out.IDs, 4)
	require.Len(t, out.Dates, 4)
	assert.Equal(t, "2026-02-11", out.Dates[3].String())
	assert.EqualValues(t, 4, env.countAppointments())
}

func TestRecurring_SingleWhenOneDate(t *testing.T) {
	env := newEnv(t)
	rec := env.do(http.MethodPost, "/api/appointments/recurring", env.adminToken, recurringBody(env, "2026-02-10", map[string]interface{}{
		"start_date": "2026-02-03", "weekdays": []int{2}, "session_count": 1,
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var out RecurringResponse
	decode(t, rec, &out)
	assert.Equal(t, "single", out.Mode)
	require.Len(t, out.IDs, 1)
	assert.Equal(t, "2026-02-03", out.Dates[0].String())
	assert.Equal(t, []string{events.AppointmentCreated}, env.events.types())
}

func TestRecurring_NoRecurrenceUsesChosenDate(t *testing.T) {
	env := newEnv(t)
	rec := env.do(http.MethodPost, "/api/appointments/recurring", env.adminToken, recurringBody(env, "2026-03-10", nil))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var out RecurringResponse
	decode(t, rec, &out)
	assert.Equal(t, "single", out.Mode)
	assert.Equal(t, "2026-03-10", out.Dates[0].String())
}

func TestRecurring_NoDate(t *testing.T) {
	env := newEnv(t)
	rec := env.do(http.MethodPost, "/api/appointments/recurring", env.adminToken, recurringBody(env, "", map[string]interface{}{
		"start_date": "2026-02-02", "weekdays": []int{}, "session_count": 4,
	}))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"appointment date is required"}`, rec.Body.String())
}

func TestRecurring_MissingStartDateUsesChosenDate(t *testing.T) {
	env := newEnv(t)
	rec := env.do(http.MethodPost, "/api/appointments/recurring", env.adminToken, recurringBody(env, "2026-02-10", map[string]interface{}{
		"weekdays": []int{1}, "session_count": 3,
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var out RecurringResponse
	decode(t, rec, &out)
	assert.Equal(t, "batch", out.Mode)
	require.Len(t, out.Dates, 3)
	assert.Equal(t, "2026-02-16", out.Dates[0].String())
	assert.Equal(t, "2026-03-02", out.Dates[2].String())
}

func TestRecurring_MissingStartAndChosenDateUsesToday(t *testing.T) {
	env := newEnv(t)
	rec := env.do(http.MethodPost, "/api/appointments/recurring", env.adminToken, recurringBody(env, "", map[string]interface{}{
		"weekdays": []int{1}, "session_count": 2,
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var out RecurringResponse
	decode(t, rec, &out)
	// Relógio de teste: domingo 01/02/2026.
	require.Len(t, out.Dates, 2)
	assert.Equal(t, "2026-02-02", out.Dates[0].String())
	assert.Equal(t, "2026-02-09", out.Dates[1].String())
}

func TestCreateAppointmentBatch_RejectsOutOfRangeYear(t *testing.T) {
	env := newEnv(t)
	body := map[string]interface{}{
		"patient_id":      env.patient.ID.String(),
		"professional_id": env.professional.ID.String(),
		"start_time":      "09:00",
		"duration":        60,
		"dates":           []string{"2026-02-02", "0000-01-03"},
	}
	rec := env.do(http.MethodPost, "/api/appointments/batch", env.adminToken, body)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "dates contain a date out of range: 0000-01-03")
	assert.EqualValues(t, 0, env.countAppointments())

	single := env.appointmentBody("0001-01-01", "09:00", 60)
	rec = env.do(http.MethodPost, "/api/appointments", env.adminToken, single)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "appointment_date out of range")
}

func TestRecurring_ConflictCreatesNothing(t *testing.T) {
	env := newEnv(t)
	require.Equal(t, http.StatusCreated, env.do(http.MethodPost, "/api/appointments", env.adminToken, env.appointmentBody("2026-02-04", "14:30", 30)).Code)

	rec := env.do(http.MethodPost, "/api/appointments/recurring", env.adminToken, recurringBody(env, "", map[string]interface{}{
		"start_date": "2026-02-02", "weekdays": []int{1, 3}, "session_count": 4,
	}))
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "04/02/2026 14:30")
	assert.EqualValues(t, 1, env.countAppointments())
}

func TestRecurrencePreview(t *testing.T) {
	env := newEnv(t)
	rec := env.do(http.MethodGet, "/api/appointments/recurrence-preview?start_date=2026-02-02&weekdays=1,3&session_count=3", env.receptionToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"dates":["2026-02-02","2026-02-04","2026-02-09"],"mode":"batch","requested":3,"truncated":false}`, rec.Body.String())

	// Sem start_date usa hoje (domingo 01/02/2026 no relógio de teste).
	rec = env.do(http.MethodGet, "/api/appointments/recurrence-preview?weekdays=0&session_count=1", env.receptionToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"dates":["2026-02-01"],"mode":"single","requested":1,"truncated":false}`, rec.Body.String())

	rec = env.do(http.MethodGet, "/api/appointments/recurrence-preview?session_count=abc", env.receptionToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateAppointmentStatus_CancelFreesSlot(t *testing.T) {
	env := newEnv(t)
	rec := env.do(http.MethodPost, "/api/appointments", env.adminToken, env.appointmentBody("2026-02-02", "14:00", 50))
	require.Equal(t, http.StatusCreated, rec.Code)
	var a repo.Appointment
	decode(t, rec, &a)

	rec = env.do(http.MethodPatch, "/api/appointments/"+a.ID.String()+"/status", env.adminToken, map[string]string{"status": "cancelled"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, env.events.types(), events.AppointmentStatusChanged)

	rec = env.do(http.MethodPost, "/api/appointments", env.adminToken, env.appointmentBody("2026-02-02", "14:00", 50))
	require.Equal(t, http.StatusCreated, rec.Code)

	// Reabrir a cancelada bateria com a nova.
	rec = env.do(http.MethodPatch, "/api/appointments/"+a.ID.String()+"/status", env.adminToken, map[string]string{"status": "scheduled"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(http.MethodPatch, "/api/appointments/"+a.ID.String()+"/status", env.adminToken, map[string]string{"status": "archived"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateAppointment_ExcludesItself(t *testing.T) {
	env := newEnv(t)
	rec := env.do(http.MethodPost, "/api/appointments", env.adminToken, env.appointmentBody("2026-02-02", "14:00", 50))
	require.Equal(t, http.StatusCreated, rec.Code)
	var a repo.Appointment
	decode(t, rec, &a)

	body := env.appointmentBody("2026-02-02", "14:20", 50)
	rec = env.do(http.MethodPut, "/api/appointments/"+a.ID.String(), env.adminToken, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &a)
	assert.Equal(t, "15:10", a.EndTime)
	assert.Equal(t, "scheduled", a.Status)
}

func TestListAppointments_ProfessionalSeesOwnAgenda(t *testing.T) {
	env := newEnv(t)
	require.Equal(t, http.StatusCreated, env.do(http.MethodPost, "/api/appointments", env.adminToken, env.appointmentBody("2026-02-02", "14:00", 50)).Code)
	other := env.appointmentBody("2026-02-02", "14:00", 50)
	other["professional_id"] = env.other.ID.String()
	require.Equal(t, http.StatusCreated, env.do(http.MethodPost, "/api/appointments", env.adminToken, other).Code)

	var out struct {
		Appointments []repo.AppointmentView `json:"appointments"`
		Total        int64                  `json:"total"`
	}
	rec := env.do(http.MethodGet, "/api/appointments?from=2026-02-01&to=2026-02-28", env.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &out)
	assert.EqualValues(t, 2, out.Total)

	rec = env.do(http.MethodGet, "/api/appointments?professional_id="+env.other.ID.String(), env.professionalToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &out)
	require.Len(t, out.Appointments, 1)
	assert.Equal(t, env.professional.ID, out.Appointments[0].ProfessionalID)
	assert.Equal(t, "Ana Souza", out.Appointments[0].PatientName)

	rec = env.do(http.MethodGet, "/api/appointments?from=02/02/2026", env.adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteAppointment(t *testing.T) {
	env := newEnv(t)
	rec := env.do(http.MethodPost, "/api/appointments", env.adminToken, env.appointmentBody("2026-02-02", "14:00", 50))
	var a repo.Appointment
	decode(t, rec, &a)

	assert.Equal(t, http.StatusNoContent, env.do(http.MethodDelete, "/api/appointments/"+a.ID.String(), env.adminToken, nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/api/appointments/"+a.ID.String(), env.adminToken, nil).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodGet, "/api/appointments/not-a-uuid", env.adminToken, nil).Code)
}
