package core_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/userimport/internal/core"
	"github.com/JonMunkholm/userimport/internal/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeHasher avoids bcrypt's cost in pipeline tests.
type fakeHasher struct{}

func (fakeHasher) Hash(plain string) (string, error) {
	if len(plain) > 72 {
		return "", errors.New("password length exceeds 72 bytes")
	}
	return "hashed:" + plain, nil
}

var fixedNow = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

func newCoordinator() *core.Coordinator {
	return core.NewCoordinator(fakeHasher{}, core.WithClock(func() time.Time { return fixedNow }))
}

func runBatch(t *testing.T, store *memstore.Store, rows []core.ImportRow) (*core.BatchResult, error) {
	t.Helper()
	sess, err := store.Begin(context.Background())
	require.NoError(t, err)
	return newCoordinator().Run(context.Background(), sess, rows)
}

func row(username, email string, extra ...string) core.ImportRow {
	r := core.ImportRow{
		core.ColUsername: username,
		core.ColEmail:    email,
		core.ColFullName: "Full " + username,
		core.ColPassword: "pw-" + username,
	}
	for i := 0; i+1 < len(extra); i += 2 {
		r[extra[i]] = extra[i+1]
	}
	return r
}

func assertBalanced(t *testing.T, res *core.BatchResult) {
	t.Helper()
	assert.Equal(t, res.Total, res.Inserted+res.Skipped+res.Failed, "inserted+skipped+failed must equal total")
	assert.Len(t, res.Rows, res.Total)
}

func TestRun_EndToEndExample(t *testing.T) {
	store := memstore.New()

	rows := []core.ImportRow{
		row("sara", "sara@uni.edu",
			core.ColRole, "student",
			core.ColIdentifier, "S001",
			core.ColStudentUniversityID, "U123"),
		row("sara", "other@uni.edu"),
		{core.ColUsername: "nopass", core.ColEmail: "np@uni.edu", core.ColFullName: "No Pass"},
	}

	res, err := runBatch(t, store, rows)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 1, res.Inserted)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 1, res.Failed)
	assertBalanced(t, res)

	assert.Equal(t, core.StatusSuccess, res.Rows[0].Status)
	assert.Equal(t, "S001", res.Rows[0].Identifier)
	assert.Equal(t, core.RoleStudent, res.Rows[0].Role)

	assert.Equal(t, core.StatusSkipped, res.Rows[1].Status)
	assert.Equal(t, "USERNAME already exists", res.Rows[1].Reason)

	assert.Equal(t, core.StatusFailed, res.Rows[2].Status)
	assert.Equal(t, "PASSWORD is required", res.Rows[2].Reason)

	profiles := store.StudentProfiles()
	require.Len(t, profiles, 1)
	users := store.Users()
	require.Len(t, users, 1)
	assert.Equal(t, users[0].ID, profiles[0].UserID)
	assert.Equal(t, "S001", users[0].Identifier)
	assert.Equal(t, "U123", profiles[0].StudentUniversityID)
}

func TestRun_RowNumbersFollowInputOrder(t *testing.T) {
	res, err := runBatch(t, memstore.New(), []core.ImportRow{
		row("a", "a@x"), {}, row("c", "c@x"),
	})
	require.NoError(t, err)
	for i, o := range res.Rows {
		assert.Equal(t, i+1, o.Row)
	}
}

func TestRun_DuplicateFieldOrder(t *testing.T) {
	store := memstore.New()
	require.NoError(t, store.Seed(core.UserRecord{
		Identifier: "ID-1", Username: "taken", Email: "taken@x", FullName: "T", Role: core.RoleUser,
	}))

	tests := []struct {
		name   string
		row    core.ImportRow
		reason string
	}{
		{"username first", row("taken", "taken@x", core.ColIdentifier, "ID-1"), "USERNAME already exists"},
		{"email second", row("fresh", "taken@x", core.ColIdentifier, "ID-1"), "EMAIL already exists"},
		{"identifier third", row("fresh2", "fresh2@x", core.ColIdentifier, "ID-1"), "IDENTIFIER already exists"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := runBatch(t, store, []core.ImportRow{tt.row})
			require.NoError(t, err)
			assert.Equal(t, core.StatusSkipped, res.Rows[0].Status)
			assert.Equal(t, tt.reason, res.Rows[0].Reason)
		})
	}
	assert.Len(t, store.Users(), 1, "skipped rows must not write")
}

func TestRun_IdempotentReplay(t *testing.T) {
	store := memstore.New()
	rows := []core.ImportRow{
		row("u1", "u1@x"),
		row("d1", "d1@x", core.ColRole, "doctor"),
		row("s1", "s1@x", core.ColRole, "student", core.ColStudentUniversityID, "U1"),
	}

	first, err := runBatch(t, store, rows)
	require.NoError(t, err)
	require.Equal(t, 3, first.Inserted)

	second, err := runBatch(t, store, rows)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Inserted)
	assert.Equal(t, 3, second.Skipped)
	assert.Equal(t, 0, second.Failed)
	assert.Len(t, store.Users(), 3)
}

func TestRun_SynthesizedIdentifiersUniqueWithinBatch(t *testing.T) {
	var rows []core.ImportRow
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		rows = append(rows, row(name, name+"@x", core.ColRole, "doctor"))
	}

	res, err := runBatch(t, memstore.New(), rows)
	require.NoError(t, err)
	require.Equal(t, 5, res.Inserted)

	seen := map[string]bool{}
	for _, o := range res.Rows {
		assert.True(t, strings.HasPrefix(o.Identifier, "DOC"), o.Identifier)
		assert.False(t, seen[o.Identifier], "duplicate identifier %s", o.Identifier)
		seen[o.Identifier] = true
	}
}

func TestRun_StudentWithoutUniversityIDLeavesNoUser(t *testing.T) {
	store := memstore.New()

	res, err := runBatch(t, store, []core.ImportRow{
		row("s1", "s1@x", core.ColRole, "student"),
		row("s2", "s2@x", core.ColRole, "student", core.ColStudentUniversityID, "U2", core.ColStudyYear, "3"),
	})
	require.NoError(t, err)

	assert.Equal(t, core.StatusFailed, res.Rows[0].Status)
	assert.Equal(t, "STUDENT_UNIVERSITY_ID is required for student role", res.Rows[0].Reason)
	assert.Equal(t, core.StatusSuccess, res.Rows[1].Status)

	users := store.Users()
	require.Len(t, users, 1, "the failed student's user record must be rolled back with its savepoint")
	assert.Equal(t, "s2", users[0].Username)

	profiles := store.StudentProfiles()
	require.Len(t, profiles, 1)
	require.NotNil(t, profiles[0].StudyYear)
	assert.Equal(t, 3, *profiles[0].StudyYear)
}

func TestRun_DoctorProfileDefaults(t *testing.T) {
	store := memstore.New()

	_, err := runBatch(t, store, []core.ImportRow{
		row("doc", "doc@x", core.ColRole, "doctor", core.ColIsActive, "0"),
		row("doc2", "doc2@x", core.ColRole, "Dr.", core.ColDoctorType, "surgeon", core.ColAllowedFeatures, `"[\"grades\"]"`),
	})
	require.NoError(t, err)

	profiles := store.DoctorProfiles()
	require.Len(t, profiles, 2)

	assert.Equal(t, "general", profiles[0].DoctorType)
	assert.Equal(t, []string{}, profiles[0].AllowedFeatures)
	assert.False(t, profiles[0].IsActive, "doctor profile mirrors the user's active flag")

	assert.Equal(t, "surgeon", profiles[1].DoctorType)
	assert.Equal(t, []string{"grades"}, profiles[1].AllowedFeatures)
	assert.Empty(t, store.StudentProfiles())
}

func TestRun_PasswordIsHashedNotEchoed(t *testing.T) {
	store := memstore.New()

	res, err := runBatch(t, store, []core.ImportRow{row("ann", "ann@x")})
	require.NoError(t, err)

	assert.Equal(t, "hashed:pw-ann", store.Users()[0].PasswordHash)
	for _, o := range res.Rows {
		assert.NotContains(t, o.Reason, "pw-ann")
	}
}

func TestRun_HashFailureFailsRow(t *testing.T) {
	res, err := runBatch(t, memstore.New(), []core.ImportRow{
		row("long", "long@x", core.ColPassword, strings.Repeat("x", 80)),
	})
	require.NoError(t, err)
	assert.Equal(t, core.StatusFailed, res.Rows[0].Status)
	assert.Contains(t, res.Rows[0].Reason, "PASSWORD")
}

func TestRun_EmptyBatchCommits(t *testing.T) {
	res, err := runBatch(t, memstore.New(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Total)
	assertBalanced(t, res)
}

// faultySession fails the nth InsertUser with a non-rejection error, as if the
// connection dropped.
type faultySession struct {
	core.Session
	failOn  int
	inserts int
}

func (s *faultySession) InsertUser(ctx context.Context, u core.UserRecord) (int64, error) {
	s.inserts++
	if s.inserts == s.failOn {
		return 0, errors.New("conn closed")
	}
	return s.Session.InsertUser(ctx, u)
}

func TestRun_SessionFailureRollsBackWholeBatch(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()

	inner, err := store.Begin(ctx)
	require.NoError(t, err)
	sess := &faultySession{Session: inner, failOn: 3}

	rows := []core.ImportRow{row("r1", "r1@x"), row("r2", "r2@x"), row("r3", "r3@x")}
	res, err := newCoordinator().Run(ctx, sess, rows)

	var fatal *core.BatchFatalError
	require.True(t, errors.As(err, &fatal), "want BatchFatalError, got %v", err)
	assert.Equal(t, 3, fatal.Row)
	assert.Len(t, res.Rows, 2, "rows staged before the failure are still reported")
	assert.Empty(t, store.Users(), "no row of a failed batch may be durable")

	_, err = inner.InsertUser(ctx, core.UserRecord{})
	assert.ErrorIs(t, err, memstore.ErrSessionClosed, "session must be released")
}

// lookupFailSession fails every Exists call.
type lookupFailSession struct {
	core.Session
}

func (lookupFailSession) Exists(context.Context, core.UniqueField, string) (bool, error) {
	return false, errors.New("read timeout")
}

func TestRun_LookupFailureIsFatal(t *testing.T) {
	store := memstore.New()
	inner, err := store.Begin(context.Background())
	require.NoError(t, err)

	_, err = newCoordinator().Run(context.Background(), lookupFailSession{inner}, []core.ImportRow{row("a", "a@x")})

	var fatal *core.BatchFatalError
	require.True(t, errors.As(err, &fatal))
	assert.Equal(t, "duplicate check", fatal.Op)
}

func TestRun_CommitConflictIsFatal(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()

	slow, err := store.Begin(ctx)
	require.NoError(t, err)

	_, err = runBatch(t, store, []core.ImportRow{row("race", "race@x")})
	require.NoError(t, err)

	_, err = newCoordinator().Run(ctx, slow, []core.ImportRow{row("race", "race@x")})
	var fatal *core.BatchFatalError
	require.True(t, errors.As(err, &fatal), "want BatchFatalError, got %v", err)
	assert.Equal(t, "commit", fatal.Op)
	assert.ErrorIs(t, err, memstore.ErrConflict)
	assert.Len(t, store.Users(), 1)
}
