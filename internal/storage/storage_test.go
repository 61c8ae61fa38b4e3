package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "data", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRunLifecycle(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	id, err := s.StartRun(ctx)
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	require.NoError(t, err)

	require.NoError(t, s.FinishRun(ctx, id, 5, 5, 4))

	var found, attempted, succeeded int
	err = s.db.QueryRow(`SELECT profiles_found, attempted, succeeded FROM runs WHERE id = ?`, id).
		Scan(&found, &attempted, &succeeded)
	require.NoError(t, err)
	assert.Equal(t, []int{5, 5, 4}, []int{found, attempted, succeeded})

	err = s.FinishRun(ctx, "missing", 0, 0, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no run found")
}

func TestSaveCandidateUpserts(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	url := "https://www.linkedin.com/in/jane-doe"
	require.NoError(t, s.SaveCandidate(ctx, Candidate{ProfileURL: url, Name: "Jane"}))
	require.NoError(t, s.SaveCandidate(ctx, Candidate{ProfileURL: url, Name: "Jane Doe", Headline: "Engineer"}))

	st, err := s.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.TotalCandidates)

	var name, headline string
	require.NoError(t, s.db.QueryRow(`SELECT name, headline FROM candidates WHERE profile_url = ?`, url).Scan(&name, &headline))
	assert.Equal(t, "Jane Doe", name)
	assert.Equal(t, "Engineer", headline)
}

func TestRequestsSentTodayAndHistory(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	now := time.Date(2026, 10, 18, 15, 0, 0, 0, time.Local)
	s.now = func() time.Time { return now }

	yesterday := now.Add(-24 * time.Hour)
	reqs := []ConnectionRequest{
		{RunID: "r1", ProfileURL: "https://www.linkedin.com/in/a", Status: StatusSent, SentAt: yesterday},
		{RunID: "r2", ProfileURL: "https://www.linkedin.com/in/b", Status: StatusSent},
		{RunID: "r2", ProfileURL: "https://www.linkedin.com/in/c", Status: StatusSent},
		{RunID: "r2", ProfileURL: "https://www.linkedin.com/in/d", Status: StatusFailed, Reason: "connect control not found"},
	}
	for _, r := range reqs {
		require.NoError(t, s.RecordRequest(ctx, r))
	}

	today, err := s.RequestsSentToday(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, today)

	contacted, err := s.HasContacted(ctx, "https://www.linkedin.com/in/a")
	require.NoError(t, err)
	assert.True(t, contacted)

	contacted, err = s.HasContacted(ctx, "https://www.linkedin.com/in/d")
	require.NoError(t, err)
	assert.False(t, contacted, "failed attempts do not count as contacted")

	st, err := s.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, st.TotalSent)
	assert.Equal(t, 1, st.TotalFailed)
	assert.Equal(t, 2, st.SentToday)
	assert.Equal(t, now.Unix(), st.LastSentAt.Unix())
}

func TestStatsOnEmptyLedger(t *testing.T) {
	s := openTestStore(t)

	st, err := s.GetStats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, st.TotalRuns)
	assert.True(t, st.LastSentAt.IsZero())
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveCandidate(ctx, Candidate{ProfileURL: "https://www.linkedin.com/in/x"}))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	st, err := s.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.TotalCandidates)
}
