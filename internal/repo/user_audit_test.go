package repo_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gestordeclinica/backend/internal/repo"
)

func TestUserByEmailIgnoresCase(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := &repo.User{Email: " Recepcao@Clinica.com ", PasswordHash: "hash", FullName: "Recepção", Role: "RECEPTIONIST"}
	require.NoError(t, f.users.Create(ctx, u))
	assert.Equal(t, "recepcao@clinica.com", u.Email)

	got, err := f.users.ByEmail(ctx, "RECEPCAO@clinica.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	got, err = f.users.ByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "RECEPTIONIST", got.Role)

	_, err = f.users.ByEmail(ctx, "ninguem@clinica.com")
	assert.ErrorIs(t, err, repo.ErrNotFound)

	err = f.users.Create(ctx, &repo.User{Email: "recepcao@clinica.com", PasswordHash: "x", FullName: "dup", Role: "ADMIN"})
	assert.ErrorIs(t, err, repo.ErrConflict)
}

func TestAuditCreateAndList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	actor := uuid.New()
	require.NoError(t, f.audit.Create(ctx, repo.AuditEvent{
		Action:       "APPOINTMENT_BATCH_CREATED",
		ActorID:      &actor,
		ResourceType: repo.StrPtr("appointment_series"),
		PatientID:    &f.patient.ID,
		Metadata:     map[string]interface{}{"count": 4},
	}))
	require.NoError(t, f.audit.Create(ctx, repo.AuditEvent{Action: "REMINDER_SENT", ActorType: repo.ActorSystem}))

	list, total, err := f.audit.List(ctx, repo.AuditFilter{PatientID: &f.patient.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, list, 1)
	assert.Equal(t, repo.ActorUser, list[0].ActorType)
	var meta map[string]int
	require.NoError(t, json.Unmarshal(list[0].MetadataJSON, &meta))
	assert.Equal(t, 4, meta["count"])

	list, total, err = f.audit.List(ctx, repo.AuditFilter{Action: "REMINDER_SENT"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, repo.ActorSystem, list[0].ActorType)
	assert.JSONEq(t, `{}`, string(list[0].MetadataJSON))
}
