package api

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gestordeclinica/backend/internal/caldate"
	"github.com/gestordeclinica/backend/internal/scheduling"
)

// O serviço é o mesmo Creator usado por scheduling.Submit; a mensagem do 409 chega ao usuário.
func TestAppointmentService_SubmitSurfacesServerMessage(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	shared := scheduling.Shared{
		PatientID:      env.patient.ID.String(),
		ProfessionalID: env.professional.ID.String(),
		StartTime:      "08:00",
		Duration:       30,
	}
	sub, err := scheduling.Decide(nil, caldate.MustParse("2026-02-02"), shared)
	require.NoError(t, err)
	ids, err := scheduling.Submit(ctx, env.h.Scheduler, sub)
	require.NoError(t, err)
	require.Len(t, ids, 1)

	_, err = scheduling.Submit(ctx, env.h.Scheduler, sub)
	var se *scheduling.SubmissionError
	require.True(t, errors.As(err, &se))
	assert.False(t, se.Batch)
	assert.Equal(t, "Profissional já possui consulta nesse horário: 02/02/2026 08:00", se.UserMessage())
}

func TestAppointmentService_EndTimeMustMatchDuration(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	req := scheduling.SingleRequest{
		PatientID:       env.patient.ID.String(),
		ProfessionalID:  env.professional.ID.String(),
		AppointmentDate: caldate.MustParse("2026-02-02"),
		StartTime:       "10:00",
		EndTime:         "10:40",
		Duration:        50,
	}
	_, err := env.h.Scheduler.CreateAppointment(ctx, req)
	var re *RequestError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, 400, re.Status)
	assert.Equal(t, "end_time must be start_time + duration (10:50)", re.Message)
	assert.EqualValues(t, 0, env.countAppointments())

	req.EndTime = "10:50"
	id, err := env.h.Scheduler.CreateAppointment(ctx, req)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	_, err = env.h.Scheduler.CreateAppointment(ctx, scheduling.SingleRequest{
		PatientID:       env.patient.ID.String(),
		ProfessionalID:  env.professional.ID.String(),
		AppointmentDate: caldate.MustParse("2026-02-02"),
		StartTime:       "10:50",
		Duration:        20,
	})
	require.NoError(t, err, "10:50 encosta no fim da anterior, sem sobrepor")
}

func TestAppointmentService_CancelledSingleSkipsConflictCheck(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	req := scheduling.SingleRequest{
		PatientID:       env.patient.ID.String(),
		ProfessionalID:  env.professional.ID.String(),
		AppointmentDate: caldate.MustParse("2026-02-02"),
		StartTime:       "10:00",
		Duration:        50,
	}
	_, err := env.h.Scheduler.CreateAppointment(ctx, req)
	require.NoError(t, err)

	req.Status = scheduling.StatusCancelled
	_, err = env.h.Scheduler.CreateAppointment(ctx, req)
	assert.NoError(t, err)

	req.Status = ""
	req.PatientID = "abc"
	_, err = env.h.Scheduler.CreateAppointment(ctx, req)
	var re *RequestError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, 400, re.Status)
}
