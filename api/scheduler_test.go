package api

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/bookkeeper/audit"
	"github.com/warp/bookkeeper/generic/store"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestAuditScheduler_RecordsRunsWithoutFixing(t *testing.T) {
	// GIVEN: One drifted profile and one consistent profile
	core, logs := observer.New(zapcore.InfoLevel)
	h := NewHandler(store.NewProfiles(), zap.New(core))
	h.Now = func() time.Time { return testNow }

	loadInto(t, h, "drifted", "drift")
	loadInto(t, h, "clean", "sale-lifecycle")

	// WHEN: The scheduler runs once
	s := NewAuditScheduler(h, []string{"drifted", "clean"})
	runs := s.RunNow(context.Background())

	// THEN: Both profiles are audited and drift is logged, not fixed
	require.Len(t, runs, 2)
	assert.Equal(t, 4, runs[0].Found)
	assert.Equal(t, 4, runs[0].Remaining)
	assert.Zero(t, runs[0].Fixed)
	assert.Zero(t, runs[1].Found)

	assert.Equal(t, 1, logs.FilterMessage("drift detected").Len())
	assert.Equal(t, 1, logs.FilterMessage("books are consistent").Len())

	assert.Len(t, auditOf(t, h, "drifted").Discrepancies, 4)

	history, err := audit.New(h.Profiles.ForProfile("drifted"), nil).Runs(context.Background())
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, TriggerScheduled, history[0].Trigger)
}

func TestAuditScheduler_ReadOnlyDoesNotRecord(t *testing.T) {
	h := NewHandler(store.NewProfiles(), zap.NewNop())
	h.Now = func() time.Time { return testNow }
	loadInto(t, h, "p", "sale-lifecycle")
	h.ReadOnly = true

	NewAuditScheduler(h, []string{"p"}).RunNow(context.Background())

	history, err := audit.New(h.Profiles.ForProfile("p"), nil).Runs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestAuditScheduler_StartStop(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	h := NewHandler(store.NewProfiles(), zap.New(core))

	s := NewAuditScheduler(h, []string{"p"})
	s.CheckInterval = time.Hour
	s.Start()
	s.Start() // second start is a no-op
	s.Stop()
	s.Stop()

	// The immediate pass ran before Stop returned
	assert.Equal(t, 1, logs.FilterMessage("books are consistent").Len())
	assert.Equal(t, 1, logs.FilterMessage("stopped").Len())
}

func TestAuditScheduler_Disabled(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	h := NewHandler(store.NewProfiles(), zap.New(core))

	s := NewAuditScheduler(h, []string{"p"})
	s.Enabled = false
	s.Start()
	s.Stop()

	assert.Equal(t, 1, logs.FilterMessage("disabled, not starting").Len())
	assert.Zero(t, logs.FilterMessage("books are consistent").Len())
}

func TestAuditScheduler_NoProfilesConfigured_AuditsStoredProfiles(t *testing.T) {
	// GIVEN: A SQLite store holding two profiles and no configured list
	core, logs := observer.New(zapcore.InfoLevel)
	h := setupSQLiteHandler(t)
	h.Log = zap.New(core)
	loadInto(t, h, "shop", "sale-lifecycle")
	loadInto(t, h, "workshop", "drift")

	// WHEN: The scheduler runs once
	s := NewAuditScheduler(h, nil)
	runs := s.RunNow(context.Background())

	// THEN: Every stored profile is audited, in name order
	require.Len(t, runs, 2)
	assert.Zero(t, runs[0].Found)
	assert.Equal(t, 4, runs[1].Found)
	assert.Equal(t, 1, logs.FilterMessage("drift detected").Len())

	history, err := audit.New(h.Profiles.ForProfile("workshop"), nil).Runs(context.Background())
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, TriggerScheduled, history[0].Trigger)
}

func TestAuditScheduler_NoProfilesConfigured_MemorySkipsEmptyProfiles(t *testing.T) {
	h := NewHandler(store.NewProfiles(), zap.NewNop())
	h.Now = func() time.Time { return testNow }
	loadInto(t, h, "p", "sale-lifecycle")
	h.Profiles.ForProfile("untouched")

	runs := NewAuditScheduler(h, nil).RunNow(context.Background())

	require.Len(t, runs, 1)
	assert.Zero(t, runs[0].Found)
}
