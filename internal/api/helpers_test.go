package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"

	"github.com/gestordeclinica/backend/internal/auth"
	"github.com/gestordeclinica/backend/internal/cache"
	"github.com/gestordeclinica/backend/internal/caldate"
	"github.com/gestordeclinica/backend/internal/config"
	"github.com/gestordeclinica/backend/internal/events"
	"github.com/gestordeclinica/backend/internal/reminder"
	"github.com/gestordeclinica/backend/internal/repo"
	"github.com/gestordeclinica/backend/internal/testutil"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

// memEHR substitui o EHRStore (pgx) nos testes de handler.
type memEHR struct {
	mu     sync.Mutex
	events map[uuid.UUID]repo.EHREvent
}

func (m *memEHR) ListByPatient(_ context.Context, patientID uuid.UUID, types []string, limit, offset int) ([]repo.EHREvent, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []repo.EHREvent
	for _, e := range m.events {
		if e.PatientID != patientID {
			continue
		}
		if len(types) > 0 && !contains(types, e.EventType) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OccurredAt.After(out[j].OccurredAt) })
	total := len(out)
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, total, nil
}

func (m *memEHR) Get(_ context.Context, id uuid.UUID) (*repo.EHREvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &e, nil
}

func (m *memEHR) Create(_ context.Context, e *repo.EHREvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	e.CreatedAt = time.Now().UTC()
	if m.events == nil {
		m.events = map[uuid.UUID]repo.EHREvent{}
	}
	m.events[e.ID] = *e
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

type fakeReminders struct {
	dates []caldate.Date
}

func (f *fakeReminders) Send(_ context.Context, date caldate.Date) (reminder.Result, error) {
	f.dates = append(f.dates, date)
	return reminder.Result{Date: date, Total: 2, Sent: 1, Skipped: 1}, nil
}

type testEnv struct {
	t         *testing.T
	h         *Handler
	router    http.Handler
	db        *gorm.DB
	events    *recordingPublisher
	reminders *fakeReminders
	logs      *observer.ObservedLogs

	patient      repo.Patient
	professional repo.Professional
	other        repo.Professional

	adminToken, receptionToken, professionalToken string
}

// 2026-02-01 é um domingo.
var fixedNow = time.Date(2026, 2, 1, 15, 0, 0, 0, time.UTC)

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.OpenSQLite(t)
	core, logs := observer.New(zap.DebugLevel)
	ttl := cache.NewTTL(time.Minute)
	t.Cleanup(ttl.Close)

	env := &testEnv{t: t, db: db, events: &recordingPublisher{}, reminders: &fakeReminders{}, logs: logs}
	env.h = &Handler{
		Cfg: &config.Config{
			JWTSecret:    testSecret,
			ReminderTZ:   "UTC",
			AppPublicURL: "http://app.test",
			ClinicName:   "Clínica Teste",
			CORSOrigins:  []string{"http://app.test"},
		},
		Log:           zap.New(core),
		Patients:      repo.NewPatientStore(db),
		Professionals: repo.NewProfessionalStore(db),
		Appointments:  repo.NewAppointmentStore(db),
		Financial:     repo.NewFinancialStore(db),
		EHR:           &memEHR{},
		Users:         repo.NewUserStore(db),
		Audit:         repo.NewAuditStore(db),
		Cache:         ttl,
		Events:        env.events,
		Reminders:     env.reminders,
		now:           func() time.Time { return fixedNow },
	}
	env.h.Scheduler = NewAppointmentService(env.h)
	env.router = NewRouter(env.h)

	ctx := context.Background()
	phone := "+5585999990000"
	env.patient = repo.Patient{FullName: "Ana Souza", Phone: &phone, BirthDate: caldate.MustParse("1990-05-10")}
	require.NoError(t, env.h.Patients.Create(ctx, &env.patient))
	env.professional = repo.Professional{FullName: "Dra. Carla Lima"}
	require.NoError(t, env.h.Professionals.Create(ctx, &env.professional))
	env.other = repo.Professional{FullName: "Dr. Rafael Costa"}
	require.NoError(t, env.h.Professionals.Create(ctx, &env.other))

	env.adminToken = env.user("admin@clinica.test", auth.RoleAdmin, nil)
	env.receptionToken = env.user("recepcao@clinica.test", auth.RoleReceptionist, nil)
	env.professionalToken = env.user("carla@clinica.test", auth.RoleProfessional, &env.professional.ID)
	return env
}

func (e *testEnv) user(email, role string, professionalID *uuid.UUID) string {
	e.t.Helper()
	hash, err := auth.HashPassword("Senha123!")
	require.NoError(e.t, err)
	u := repo.User{Email: email, PasswordHash: hash, FullName: email, Role: role, ProfessionalID: professionalID}
	require.NoError(e.t, e.h.Users.Create(context.Background(), &u))
	var pid *string
	if professionalID != nil {
		s := professionalID.String()
		pid = &s
	}
	tok, err := auth.BuildJWT(testSecret, u.ID.String(), role, pid, time.Hour)
	require.NoError(e.t, err)
	return tok
}

func (e *testEnv) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(e.t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

func (e *testEnv) appointmentBody(date, start string, duration int) map[string]interface{} {
	return map[string]interface{}{
		"patient_id":       e.patient.ID.String(),
		"professional_id":  e.professional.ID.String(),
		"appointment_date": date,
		"start_time":       start,
		"duration":         duration,
	}
}

func (e *testEnv) countAppointments() int64 {
	var n int64
	require.NoError(e.t, e.db.Model(&repo.Appointment{}).Count(&n).Error)
	return n
}
