package preference_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newssense/internal/domain/entity"
	"newssense/internal/infra/adapter/persistence/sqlite"
	"newssense/internal/infra/db"
	"newssense/internal/usecase/preference"
)

/* ────────────────────────────  ヘルパ  ──────────────────────────── */

func newUsers(t *testing.T) *preference.Service {
	t.Helper()
	ctx := context.Background()
	conn, err := db.Open(ctx, db.Options{Driver: db.DriverSQLite, DSN: ":memory:", Pool: db.DefaultConnectionConfig()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, db.MigrateUp(ctx, conn, db.DriverSQLite))

	users := sqlite.NewUserRepo(conn)
	require.NoError(t, users.Create(ctx, &entity.User{ID: "u-1", Email: "reader@example.com", PasswordHash: "h"}))
	require.NoError(t, users.UpdatePreferences(ctx, "u-1", entity.Preference{
		Topics:   []string{"Technology"},
		Sources:  []string{"BBC"},
		Keywords: []string{"AI"},
	}))
	return &preference.Service{Users: users, Mode: preference.ModeReplace}
}

/* ────────────────────────────  テスト  ──────────────────────────── */

func TestService_Get(t *testing.T) {
	svc := newUsers(t)

	got, err := svc.Get(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Technology"}, got.Topics)
	assert.Equal(t, []string{"BBC"}, got.Sources)
	assert.Equal(t, []string{"AI"}, got.Keywords)

	_, err = svc.Get(context.Background(), "ghost")
	assert.ErrorIs(t, err, preference.ErrUserNotFound)
}

func TestService_Set_ReplaceClearsOmittedFields(t *testing.T) {
	svc := newUsers(t)
	ctx := context.Background()

	got, err := svc.Set(ctx, "u-1", preference.Update{Topics: []string{"Sports", " Sports ", ""}})
	require.NoError(t, err)
	assert.Equal(t, entity.Preference{Topics: []string{"Sports"}, Sources: []string{}, Keywords: []string{}}, got)

	stored, err := svc.Get(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, got, stored)
}

func TestService_Set_MergeKeepsOmittedFields(t *testing.T) {
	svc := newUsers(t)
	svc.Mode = preference.ModeMerge

	got, err := svc.Set(context.Background(), "u-1", preference.Update{Keywords: []string{}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Technology"}, got.Topics)
	assert.Equal(t, []string{"BBC"}, got.Sources)
	assert.Empty(t, got.Keywords, "explicit empty set clears the field")
}

func TestService_Set_UnknownUser(t *testing.T) {
	for _, mode := range []preference.UpdateMode{preference.ModeReplace, preference.ModeMerge} {
		t.Run(string(mode), func(t *testing.T) {
			svc := newUsers(t)
			svc.Mode = mode
			_, err := svc.Set(context.Background(), "ghost", preference.Update{Topics: []string{"x"}})
			assert.True(t, errors.Is(err, preference.ErrUserNotFound), "got %v", err)
		})
	}
}

func TestApply(t *testing.T) {
	base := entity.Preference{Topics: []string{"a"}, Sources: []string{"b"}, Keywords: []string{"c"}}

	got := preference.Apply(base, preference.Update{Sources: []string{"z"}})
	assert.Equal(t, entity.Preference{Topics: []string{"a"}, Sources: []string{"z"}, Keywords: []string{"c"}}, got)
}

func TestModeFromEnv(t *testing.T) {
	tests := []struct {
		env  string
		want preference.UpdateMode
	}{
		{"", preference.ModeReplace},
		{"merge", preference.ModeMerge},
		{"MERGE", preference.ModeMerge},
		{"upsert", preference.ModeReplace},
	}
	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			t.Setenv("PREFERENCES_UPDATE_MODE", tt.env)
			assert.Equal(t, tt.want, preference.ModeFromEnv())
		})
	}
}
