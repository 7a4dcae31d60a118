package database

import (
	"context"
	"os"
	"testing"

	"github.com/JonMunkholm/userimport/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestStore connects to TEST_DATABASE_URL. Tests using it are skipped when
// the variable is unset. The users tables are truncated before each test.
func openTestStore(t *testing.T) *Store {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	store, err := Open(ctx, Config{URL: url, MaxConns: 4, AutoMigrate: true})
	require.NoError(t, err)
	t.Cleanup(store.Close)

	_, err = store.pool.Exec(ctx, `TRUNCATE users, student_profiles, doctor_profiles, import_audit RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
	return store
}

func TestStore_UniqueViolationIsRejectedAndRecoverable(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	sess, err := store.Begin(ctx)
	require.NoError(t, err)
	defer sess.Rollback(ctx)

	user := core.UserRecord{
		Identifier: "USR000001_1", FullName: "Ann", Email: "ann@x.io",
		Username: "ann", PasswordHash: "h", Role: core.RoleUser, IsActive: true,
	}
	_, err = sess.InsertUser(ctx, user)
	require.NoError(t, err)

	require.NoError(t, sess.Savepoint(ctx, "sp_2"))
	user.Identifier = "USR000001_2"
	_, err = sess.InsertUser(ctx, user)
	assert.True(t, core.IsRejected(err), "duplicate username should be a rejection, got %v", err)
	require.NoError(t, sess.RollbackToSavepoint(ctx, "sp_2"))

	exists, err := sess.Exists(ctx, core.FieldUsername, "ann")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, sess.Commit(ctx))
}

func TestStore_BatchPipelineAgainstPostgres(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	hasher, err := core.NewBcryptHasher(4)
	require.NoError(t, err)
	coord := core.NewCoordinator(hasher)

	rows := []core.ImportRow{
		{"username": "s1", "email": "s1@x.io", "fullName": "S One", "password": "pw", "role": "student", "studentUniversityId": "U1", "studyYear": "2"},
		{"username": "d1", "email": "d1@x.io", "fullName": "D One", "password": "pw", "role": "doctor", "allowedFeatures": `["grades"]`},
		{"username": "s2", "email": "s2@x.io", "fullName": "S Two", "password": "pw", "role": "student"},
	}

	sess, err := store.Begin(ctx)
	require.NoError(t, err)
	res, err := coord.Run(ctx, sess, rows)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Inserted)
	assert.Equal(t, 1, res.Failed)

	var users, students, doctors int
	require.NoError(t, store.pool.QueryRow(ctx, `SELECT count(*) FROM users`).Scan(&users))
	require.NoError(t, store.pool.QueryRow(ctx, `SELECT count(*) FROM student_profiles`).Scan(&students))
	require.NoError(t, store.pool.QueryRow(ctx, `SELECT count(*) FROM doctor_profiles`).Scan(&doctors))
	assert.Equal(t, 2, users, "failed student row must not leave a user behind")
	assert.Equal(t, 1, students)
	assert.Equal(t, 1, doctors)
}
