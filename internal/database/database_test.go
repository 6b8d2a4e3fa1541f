package database

import (
	"context"
	"fmt"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openMemoryDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", t.Name())
	db, err := Open(DialectSQLite, dsn)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func tableExists(t *testing.T, db *gorm.DB, kind, name string) bool {
	t.Helper()
	var count int64
	require.NoError(t, db.Raw("SELECT COUNT(*) FROM sqlite_master WHERE type = ? AND name = ?", kind, name).Scan(&count).Error)
	return count > 0
}

func TestLoadMigrations_BothDialectsAligned(t *testing.T) {
	sqliteSet, err := LoadMigrations(DialectSQLite)
	require.NoError(t, err)
	pgSet, err := LoadMigrations(DialectPostgres)
	require.NoError(t, err)

	require.NotEmpty(t, sqliteSet)
	require.Len(t, pgSet, len(sqliteSet))
	for i := range sqliteSet {
		assert.Equal(t, sqliteSet[i].Version, pgSet[i].Version)
		assert.Equal(t, sqliteSet[i].Name, pgSet[i].Name)
		assert.NotEmpty(t, sqliteSet[i].DownScript)
	}
	assert.Equal(t, "000001_init_schema", sqliteSet[0].String())
}

func TestLoadMigrations_RejectsBadNames(t *testing.T) {
	fsys := fstest.MapFS{
		"m/abc_bad.up.sql":   {Data: []byte("SELECT 1")},
		"m/abc_bad.down.sql": {Data: []byte("SELECT 1")},
	}
	_, err := loadMigrations(fsys, "m")
	assert.Error(t, err)

	missingDown := fstest.MapFS{
		"m/000001_only_up.up.sql": {Data: []byte("SELECT 1")},
	}
	_, err = loadMigrations(missingDown, "m")
	assert.Error(t, err)
}

func TestRunMigrations_SQLite(t *testing.T) {
	db := openMemoryDB(t)
	ctx := context.Background()

	require.NoError(t, RunMigrations(ctx, db))
	// Idempotent on a second run.
	require.NoError(t, RunMigrations(ctx, db))

	for _, table := range []string{"users", "posts", "comments", "post_reactions", "favorites", "post_images", "dishes", "meal_dishes", "dish_feedback", "sessions"} {
		assert.True(t, tableExists(t, db, "table", table), "table %s missing", table)
	}
	assert.True(t, tableExists(t, db, "trigger", "trg_comments_delete_when_post_deleted"))

	status, err := GetSchemaStatus(ctx, db)
	require.NoError(t, err)
	for _, s := range status {
		assert.True(t, s.Applied, "migration %06d not applied", s.Version)
	}
}

func TestRollbackMigration_SQLite(t *testing.T) {
	db := openMemoryDB(t)
	ctx := context.Background()
	require.NoError(t, RunMigrations(ctx, db))

	require.NoError(t, RollbackMigration(ctx, db, 3))
	assert.False(t, tableExists(t, db, "table", "sessions"))

	err := RollbackMigration(ctx, db, 3)
	assert.Error(t, err, "rolling back twice must fail")

	err = RollbackMigration(ctx, db, 999)
	assert.Error(t, err)

	require.NoError(t, RunMigrations(ctx, db))
	assert.True(t, tableExists(t, db, "table", "sessions"))
}

func TestValidateAppliedVersions(t *testing.T) {
	registered := []Migration{{Version: 1}, {Version: 2}}
	assert.NoError(t, validateAppliedVersions(nil, registered))
	assert.NoError(t, validateAppliedVersions([]int{1, 2}, registered))
	assert.ErrorContains(t, validateAppliedVersions([]int{1, 7}, registered), "000007")
}
