package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gestordeclinica/backend/internal/caldate"
	"github.com/gestordeclinica/backend/internal/scheduling"
)

func TestSubmitThroughClient(t *testing.T) {
	var gotPath, gotAuth string
	var gotBatch scheduling.BatchRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBatch))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ids":["a","b"],"count":2}`))
	}))
	defer srv.Close()

	plan := &scheduling.RecurrencePlan{StartDate: caldate.MustParse("2026-02-02"), Weekdays: scheduling.NewWeekdaySet(1), SessionCount: 2}
	sub, err := scheduling.Decide(plan, caldate.Date{}, scheduling.Shared{PatientID: "p", ProfessionalID: "q", StartTime: "09:00", Duration: 30})
	require.NoError(t, err)

	ids, err := scheduling.Submit(context.Background(), New(srv.URL+"/", "tok"), sub)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)
	assert.Equal(t, "/api/appointments/batch", gotPath)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "09:30", gotBatch.EndTime)
	assert.Len(t, gotBatch.Dates, 2)
}

func TestServerErrorMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":"Profissional já possui consulta nesse horário: 02/02/2026 09:00"}`))
	}))
	defer srv.Close()

	sub, err := scheduling.Decide(nil, caldate.MustParse("2026-02-02"), scheduling.Shared{PatientID: "p", ProfessionalID: "q", StartTime: "09:00", Duration: 30})
	require.NoError(t, err)
	_, err = scheduling.Submit(context.Background(), New(srv.URL, ""), sub)

	var se *scheduling.SubmissionError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "Profissional já possui consulta nesse horário: 02/02/2026 09:00", se.UserMessage())
	var he *HTTPError
	require.True(t, errors.As(err, &he))
	assert.Equal(t, http.StatusConflict, he.Status)
}

func TestTransportErrorFallsBackToGenericMessage(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	sub, err := scheduling.Decide(nil, caldate.MustParse("2026-02-02"), scheduling.Shared{PatientID: "p", ProfessionalID: "q", StartTime: "09:00", Duration: 30})
	require.NoError(t, err)
	_, err = scheduling.Submit(context.Background(), New(url, ""), sub)
	var se *scheduling.SubmissionError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "Não foi possível salvar o agendamento. Tente novamente.", se.UserMessage())
}
