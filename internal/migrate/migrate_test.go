package migrate

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestPendingOrdersAndSkipsApplied(t *testing.T) {
	fsys := fstest.MapFS{
		"0002_b.sql": {Data: []byte("SELECT 1")},
		"0001_a.sql": {Data: []byte("SELECT 1")},
		"0003_c.sql": {Data: []byte("SELECT 1")},
		"README.md":  {Data: []byte("x")},
	}
	names, err := Pending(fsys, map[string]bool{"0002_b": true})
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_a.sql", "0003_c.sql"}, names)
}

func TestRunIsIdempotent(t *testing.T) {
	db := openSQLite(t)
	fsys := fstest.MapFS{
		"0001_create.sql": {Data: []byte("CREATE TABLE things (id TEXT PRIMARY KEY, name TEXT)")},
		"0002_seed.sql":   {Data: []byte("INSERT INTO things (id, name) VALUES ('1', 'a')")},
	}
	ctx := context.Background()
	done, err := Run(ctx, db, fsys, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_create", "0002_seed"}, done)

	done, err = Run(ctx, db, fsys, nil)
	require.NoError(t, err)
	assert.Empty(t, done)

	var n int64
	require.NoError(t, db.Table("things").Count(&n).Error)
	assert.EqualValues(t, 1, n)
}

func TestRunStopsOnBrokenMigration(t *testing.T) {
	db := openSQLite(t)
	fsys := fstest.MapFS{
		"0001_ok.sql":     {Data: []byte("CREATE TABLE ok (id TEXT)")},
		"0002_broken.sql": {Data: []byte("CREATE TABLE")},
	}
	done, err := Run(context.Background(), db, fsys, nil)
	require.Error(t, err)
	assert.Equal(t, []string{"0001_ok"}, done)

	applied, err := appliedVersions(context.Background(), db)
	require.NoError(t, err)
	assert.False(t, applied["0002_broken"])
}

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// :memory: é por conexão
	sqlDB.SetMaxOpenConns(1)
	return db
}
