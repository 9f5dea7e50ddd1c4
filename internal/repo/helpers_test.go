package repo_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/gestordeclinica/backend/internal/caldate"
	"github.com/gestordeclinica/backend/internal/repo"
	"github.com/gestordeclinica/backend/internal/testutil"
)

type fixture struct {
	db           *gorm.DB
	patients     *repo.PatientStore
	professional *repo.ProfessionalStore
	appointments *repo.AppointmentStore
	financial    *repo.FinancialStore
	audit        *repo.AuditStore
	users        *repo.UserStore
	patient      *repo.Patient
	prof         *repo.Professional
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.OpenSQLite(t)
	f := &fixture{
		db:           db,
		patients:     repo.NewPatientStore(db),
		professional: repo.NewProfessionalStore(db),
		appointments: repo.NewAppointmentStore(db),
		financial:    repo.NewFinancialStore(db),
		audit:        repo.NewAuditStore(db),
		users:        repo.NewUserStore(db),
	}
	ctx := context.Background()
	f.patient = &repo.Patient{FullName: "Ana Souza", Phone: repo.StrPtr("+5585999990000"), BirthDate: caldate.MustParse("1990-05-10")}
	require.NoError(t, f.patients.Create(ctx, f.patient))
	f.prof = &repo.Professional{FullName: "Dra. Carla Lima", Specialty: repo.StrPtr("Psicologia")}
	require.NoError(t, f.professional.Create(ctx, f.prof))
	return f
}

func (f *fixture) appointment(date, start, end string) *repo.Appointment {
	return &repo.Appointment{
		PatientID:       f.patient.ID,
		ProfessionalID:  f.prof.ID,
		AppointmentDate: caldate.MustParse(date),
		StartTime:       start,
		EndTime:         end,
		Duration:        50,
	}
}
