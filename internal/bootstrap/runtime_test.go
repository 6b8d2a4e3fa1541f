package bootstrap

import (
	"context"
	"testing"

	"schoolboard/internal/auth"
	"schoolboard/internal/config"
	"schoolboard/internal/models"
	"schoolboard/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDevAdmin(t *testing.T) {
	db := testutil.NewTestDB(t)
	cfg := &config.Config{
		Env:               "development",
		DevBootstrapAdmin: true,
		DevAdminUserID:    "admin",
		DevAdminPassword:  "admin-pass",
	}
	ctx := context.Background()

	require.NoError(t, EnsureDevAdmin(ctx, cfg, db))
	require.NoError(t, EnsureDevAdmin(ctx, cfg, db))

	var admins []models.User
	require.NoError(t, db.Where("user_id = ?", "admin").Find(&admins).Error)
	require.Len(t, admins, 1)
	assert.True(t, admins[0].IsAdmin)
	assert.NoError(t, auth.ParseCredential(admins[0].Password).Verify("admin-pass"))
}

func TestEnsureDevAdmin_PromotesExistingUser(t *testing.T) {
	db := testutil.NewTestDB(t)
	testutil.CreateUser(t, db, "teacher", "T-01", "선생님")
	cfg := &config.Config{Env: "development", DevBootstrapAdmin: true, DevAdminUserID: "teacher", DevAdminPassword: "pw"}

	require.NoError(t, EnsureDevAdmin(context.Background(), cfg, db))

	var u models.User
	require.NoError(t, db.Where("user_id = ?", "teacher").First(&u).Error)
	assert.True(t, u.IsAdmin)
	assert.Equal(t, "선생님", u.Name)
}

func TestEnsureDevAdmin_Skipped(t *testing.T) {
	db := testutil.NewTestDB(t)
	tests := []struct {
		name string
		cfg  *config.Config
	}{
		{"production", &config.Config{Env: "production", DevBootstrapAdmin: true, DevAdminPassword: "pw"}},
		{"disabled", &config.Config{Env: "development", DevAdminPassword: "pw"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, EnsureDevAdmin(context.Background(), tt.cfg, db))
			var n int64
			require.NoError(t, db.Model(&models.User{}).Count(&n).Error)
			assert.Zero(t, n)
		})
	}
}

func TestEnsureDevAdmin_RequiresPassword(t *testing.T) {
	db := testutil.NewTestDB(t)
	cfg := &config.Config{Env: "development", DevBootstrapAdmin: true}

	assert.Error(t, EnsureDevAdmin(context.Background(), cfg, db))
}
