package repo_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gestordeclinica/backend/internal/repo"
)

func TestPatientSearchAndPagination(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.patients.Create(ctx, &repo.Patient{FullName: "Bruno Alves", CPF: repo.StrPtr("52998224725")}))
	require.NoError(t, f.patients.Create(ctx, &repo.Patient{FullName: "Carlos Souza"}))

	list, total, err := f.patients.List(ctx, "SOUZA", 0, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, list, 2)
	assert.Equal(t, "Ana Souza", list[0].FullName)

	list, total, err = f.patients.List(ctx, "5299822", 0, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "Bruno Alves", list[0].FullName)

	list, total, err = f.patients.List(ctx, "", 1, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, list, 1)
	assert.Equal(t, "Bruno Alves", list[0].FullName)
}

func TestPatientCPFUniqueAmongActive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := &repo.Patient{FullName: "Bruno Alves", CPF: repo.StrPtr("52998224725")}
	require.NoError(t, f.patients.Create(ctx, first))

	err := f.patients.Create(ctx, &repo.Patient{FullName: "Outro", CPF: repo.StrPtr("52998224725")})
	assert.ErrorIs(t, err, repo.ErrConflict)

	// Depois de removido, o CPF pode ser reaproveitado.
	require.NoError(t, f.patients.SoftDelete(ctx, first.ID))
	require.NoError(t, f.patients.Create(ctx, &repo.Patient{FullName: "Outro", CPF: repo.StrPtr("52998224725")}))
}

func TestPatientUpdateAndSoftDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, err := f.patients.Get(ctx, f.patient.ID)
	require.NoError(t, err)
	p.FullName = "Ana Souza Lima"
	p.Phone = nil
	require.NoError(t, f.patients.Update(ctx, p))

	p, err = f.patients.Get(ctx, f.patient.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana Souza Lima", p.FullName)
	assert.Nil(t, p.Phone)
	assert.Equal(t, "1990-05-10", p.BirthDate.String())

	assert.ErrorIs(t, f.patients.Update(ctx, &repo.Patient{ID: uuid.New(), FullName: "x"}), repo.ErrNotFound)

	require.NoError(t, f.patients.SoftDelete(ctx, p.ID))
	_, err = f.patients.Get(ctx, p.ID)
	assert.ErrorIs(t, err, repo.ErrNotFound)
	_, total, err := f.patients.List(ctx, "", 0, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 0, total)
	assert.ErrorIs(t, f.patients.SoftDelete(ctx, p.ID), repo.ErrNotFound)
}

func TestProfessionalDeactivate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other := &repo.Professional{FullName: "Dr. Bruno Reis"}
	require.NoError(t, f.professional.Create(ctx, other))

	list, err := f.professional.List(ctx, true)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, f.professional.Delete(ctx, other.ID))
	list, err = f.professional.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, f.prof.ID, list[0].ID)

	all, err := f.professional.List(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	got, err := f.professional.Get(ctx, other.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)

	got.Active = true
	got.Color = repo.StrPtr("#3366ff")
	require.NoError(t, f.professional.Update(ctx, got))
	got, err = f.professional.Get(ctx, other.ID)
	require.NoError(t, err)
	assert.True(t, got.Active)
	assert.Equal(t, "#3366ff", *got.Color)

	assert.ErrorIs(t, f.professional.Delete(ctx, uuid.New()), repo.ErrNotFound)
}
