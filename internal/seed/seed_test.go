package seed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gestordeclinica/backend/internal/auth"
	"github.com/gestordeclinica/backend/internal/repo"
	"github.com/gestordeclinica/backend/internal/testutil"
)

func TestRunIsIdempotent(t *testing.T) {
	db := testutil.OpenSQLite(t)
	ctx := context.Background()
	require.NoError(t, Run(ctx, db, zap.NewNop()))
	require.NoError(t, Run(ctx, db, zap.NewNop()))

	admin, err := repo.NewUserStore(db).ByEmail(ctx, AdminEmail)
	require.NoError(t, err)
	assert.Equal(t, auth.RoleAdmin, admin.Role)
	assert.True(t, auth.CheckPassword(admin.PasswordHash, adminPassword))

	profs, err := repo.NewProfessionalStore(db).List(ctx, true)
	require.NoError(t, err)
	assert.Len(t, profs, 2)

	_, total, err := repo.NewPatientStore(db).List(ctx, "", 0, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)

	prof, err := repo.NewUserStore(db).ByEmail(ctx, "carla@clinica.local")
	require.NoError(t, err)
	require.NotNil(t, prof.ProfessionalID)
}
