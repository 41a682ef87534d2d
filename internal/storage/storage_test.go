package storage_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foundermate/foundermate/internal/model"
	"github.com/foundermate/foundermate/internal/storage"
	"github.com/foundermate/foundermate/internal/testutil"
)

var testDB *storage.DB

func TestMain(m *testing.M) {
	if os.Getenv("SKIP_INTEGRATION") != "" {
		os.Exit(0)
	}
	tc := testutil.MustStartPostgres()
	defer tc.Terminate()

	var err error
	testDB, err = tc.NewTestDB(context.Background(), testutil.TestLogger())
	if err != nil {
		tc.Terminate()
		panic(err)
	}
	code := m.Run()
	testDB.Close()
	tc.Terminate()
	os.Exit(code)
}

func createTestUser(t *testing.T) model.UserProfile {
	t.Helper()
	user := model.UserProfile{
		ID:          uuid.New(),
		Email:       uuid.New().String() + "@example.com",
		Name:        "Test Founder",
		CompanyName: "Testco",
		Stage:       "seed",
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, testDB.CreateUser(context.Background(), user, "hash"))
	return user
}

func newRun(userID uuid.UUID, agentID string) model.TaskRun {
	now := time.Now().UTC()
	return model.TaskRun{
		ID:        uuid.New(),
		AgentID:   agentID,
		UserID:    userID,
		Status:    model.RunStatusRunning,
		Input:     map[string]any{"goal": "test"},
		StartedAt: now,
		CreatedAt: now,
	}
}

func TestRunLifecycle(t *testing.T) {
	ctx := context.Background()
	user := createTestUser(t)

	run := newRun(user.ID, "strategic-planner")
	require.NoError(t, testDB.CreateRun(ctx, run))

	tokens := 120
	require.NoError(t, testDB.CompleteRun(ctx, run.ID, map[string]any{"summary": "ok"}, &tokens))

	runs, err := testDB.ListRuns(ctx, user.ID, storage.RunFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, model.RunStatusCompleted, runs[0].Status)
	assert.Equal(t, "ok", runs[0].Output["summary"])
	require.NotNil(t, runs[0].TokensUsed)
	assert.Equal(t, 120, *runs[0].TokensUsed)
	require.NotNil(t, runs[0].CompletedAt)

	// A second terminal write must not overwrite the first.
	err = testDB.FailRun(ctx, run.ID, "late failure")
	assert.Error(t, err)
}

func TestFailRun(t *testing.T) {
	ctx := context.Background()
	user := createTestUser(t)

	run := newRun(user.ID, "pitch-feedback")
	require.NoError(t, testDB.CreateRun(ctx, run))
	require.NoError(t, testDB.FailRun(ctx, run.ID, "model unavailable"))

	runs, err := testDB.ListRuns(ctx, user.ID, storage.RunFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, model.RunStatusFailed, runs[0].Status)
	require.NotNil(t, runs[0].Error)
	assert.Equal(t, "model unavailable", *runs[0].Error)
}

func TestListRuns_FiltersAndIsolation(t *testing.T) {
	ctx := context.Background()
	alice := createTestUser(t)
	bob := createTestUser(t)

	require.NoError(t, testDB.CreateRun(ctx, newRun(alice.ID, "strategic-planner")))
	require.NoError(t, testDB.CreateRun(ctx, newRun(alice.ID, "weekly-review")))
	require.NoError(t, testDB.CreateRun(ctx, newRun(bob.ID, "strategic-planner")))

	// Per-user isolation.
	runs, err := testDB.ListRuns(ctx, alice.ID, storage.RunFilter{})
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	// Agent filter.
	runs, err = testDB.ListRuns(ctx, alice.ID, storage.RunFilter{AgentID: "weekly-review"})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "weekly-review", runs[0].AgentID)

	// Limit.
	runs, err = testDB.ListRuns(ctx, alice.ID, storage.RunFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	// An oversized limit clamps to the ceiling instead of shrinking to the
	// default, so all rows under the ceiling still come back.
	runs, err = testDB.ListRuns(ctx, alice.ID, storage.RunFilter{Limit: 600})
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	// Missing user id is an error, not an unfiltered query.
	_, err = testDB.ListRuns(ctx, uuid.Nil, storage.RunFilter{})
	assert.Error(t, err)
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	user := createTestUser(t)

	got, err := testDB.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, got.Email)

	byEmail, hash, err := testDB.GetUserByEmail(ctx, user.Email)
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)
	assert.Equal(t, "hash", hash)

	_, err = testDB.GetUser(ctx, uuid.New())
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, _, err = testDB.GetUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTasks(t *testing.T) {
	ctx := context.Background()
	user := createTestUser(t)
	now := time.Now().UTC()

	due := now.Add(24 * time.Hour)
	stale := now.Add(-30 * 24 * time.Hour)
	tasks := []model.Task{
		{ID: uuid.New(), UserID: user.ID, Title: "Close pilot", Status: model.TaskStatusOpen, Priority: 2, DueAt: &due, UpdatedAt: now, CreatedAt: now},
		{ID: uuid.New(), UserID: user.ID, Title: "Old idea", Status: model.TaskStatusOpen, Priority: 1, UpdatedAt: stale, CreatedAt: stale},
		{ID: uuid.New(), UserID: user.ID, Title: "Shipped thing", Status: model.TaskStatusDone, Priority: 1, UpdatedAt: now, CreatedAt: now},
	}
	for _, task := range tasks {
		require.NoError(t, testDB.CreateTask(ctx, task))
	}

	open, err := testDB.ListTasks(ctx, user.ID, storage.TaskFilter{Status: model.TaskStatusOpen})
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.Equal(t, "Close pilot", open[0].Title) // higher priority first

	cutoff := now.Add(-14 * 24 * time.Hour)
	staleOnly, err := testDB.ListTasks(ctx, user.ID, storage.TaskFilter{Status: model.TaskStatusOpen, StaleBefore: &cutoff})
	require.NoError(t, err)
	require.Len(t, staleOnly, 1)
	assert.Equal(t, "Old idea", staleOnly[0].Title)

	horizon := now.Add(48 * time.Hour)
	dueSoon, err := testDB.ListTasks(ctx, user.ID, storage.TaskFilter{Status: model.TaskStatusOpen, DueBefore: &horizon})
	require.NoError(t, err)
	require.Len(t, dueSoon, 1)
	assert.Equal(t, "Close pilot", dueSoon[0].Title)
}

func TestFingerprints(t *testing.T) {
	ctx := context.Background()
	user := createTestUser(t)
	fp := "stale_task:" + uuid.New().String() + ":2026-08-01"
	windowCutoff := time.Now().Add(-time.Hour)

	claimed, err := testDB.ClaimSurfaced(ctx, user.ID, fp, windowCutoff)
	require.NoError(t, err)
	assert.True(t, claimed, "first claim wins")

	seen, err := testDB.SeenSince(ctx, user.ID, windowCutoff)
	require.NoError(t, err)
	assert.True(t, seen[fp])

	// The claim is held for the rest of the window: a second claim loses.
	claimed, err = testDB.ClaimSurfaced(ctx, user.ID, fp, windowCutoff)
	require.NoError(t, err)
	assert.False(t, claimed, "live claim must suppress")

	// Once the prior surfacing falls outside the window the fingerprint is
	// claimable again. A cutoff in the future treats every row as expired.
	claimed, err = testDB.ClaimSurfaced(ctx, user.ID, fp, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, claimed, "expired claim must be reclaimable")

	// Other users never see this fingerprint and claim independently.
	other := createTestUser(t)
	seen, err = testDB.SeenSince(ctx, other.ID, windowCutoff)
	require.NoError(t, err)
	assert.False(t, seen[fp])
	claimed, err = testDB.ClaimSurfaced(ctx, other.ID, fp, windowCutoff)
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestPruneFingerprints(t *testing.T) {
	ctx := context.Background()
	user := createTestUser(t)

	claimed, err := testDB.ClaimSurfaced(ctx, user.ID, "prune:me:now", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.True(t, claimed)

	n, err := testDB.PruneFingerprints(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, int64(1))

	seen, err := testDB.SeenSince(ctx, user.ID, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.False(t, seen["prune:me:now"])
}

func TestScopedStore(t *testing.T) {
	ctx := context.Background()
	user := createTestUser(t)
	now := time.Now().UTC()

	require.NoError(t, testDB.CreateTask(ctx, model.Task{
		ID: uuid.New(), UserID: user.ID, Title: "Scoped task",
		Status: model.TaskStatusOpen, Priority: 1, UpdatedAt: now, CreatedAt: now,
	}))

	store := testDB.ScopedTo(user.ID)
	assert.Equal(t, user.ID, store.UserID())

	profile, err := store.Profile(ctx)
	require.NoError(t, err)
	assert.Equal(t, user.Email, profile.Email)
}
