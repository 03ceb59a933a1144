package storage

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redsand/roversim/sim/mission"
	"github.com/redsand/roversim/sim/world"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "missions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleResult() *mission.Result {
	return &mission.Result{
		Success:       true,
		Reason:        mission.ReasonGoalReached,
		FinalPosition: world.Position{X: 9, Y: 9},
		FinalBattery:  60,
		PathHistory: []world.Position{
			{X: 0, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1},
		},
		BatteryHistory: []int{100, 95, 90},
		Events: []mission.Event{
			{Step: 3, Kind: mission.EventRecharge, Position: world.Position{X: 5, Y: 5}},
			{Step: 7, Kind: mission.EventStormDetected, Position: world.Position{X: 6, Y: 5}},
		},
		RechargeCount: 1,
		ReplanCount:   2,
		TotalDistance: 18,
		NodesExpanded: 120,
		Steps:         18,
	}
}

func TestSaveAndListMissions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.SaveResult(ctx, "sess-1", "benchmark", "manhattan", sampleResult())
	require.NoError(t, err)
	require.NotEmpty(t, id)

	records, err := store.ListMissions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, id, rec.ID)
	assert.Equal(t, "sess-1", rec.SessionID)
	assert.Equal(t, "benchmark", rec.ScenarioName)
	assert.Equal(t, "manhattan", rec.Heuristic)
	assert.True(t, rec.Success)
	assert.Equal(t, mission.ReasonGoalReached, rec.Reason)
	assert.Equal(t, 18, rec.Steps)
	assert.Equal(t, 60, rec.FinalBattery)
	assert.Equal(t, 1, rec.RechargeCount)
	assert.InDelta(t, 18.0, rec.Distance, 0.001)
	assert.False(t, rec.CreatedAt.IsZero())
}

func TestListMissionsLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := store.SaveResult(ctx, "sess-1", "benchmark", "euclidean", sampleResult())
		require.NoError(t, err)
	}

	records, err := store.ListMissions(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, records, 3)

	// Zero falls back to the default limit.
	records, err = store.ListMissions(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, records, 5)
}

func TestMissionEventsRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.SaveResult(ctx, "sess-1", "benchmark", "risk_aware", sampleResult())
	require.NoError(t, err)

	events, err := store.MissionEvents(ctx, id)
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, mission.EventRecharge, events[0].Kind)
	assert.Equal(t, 3, events[0].Step)
	assert.Equal(t, world.Position{X: 5, Y: 5}, events[0].Position)
	assert.Equal(t, mission.EventStormDetected, events[1].Kind)
	assert.Equal(t, 7, events[1].Step)
}

func TestMissionEventsUnknownMission(t *testing.T) {
	store := newTestStore(t)

	events, err := store.MissionEvents(context.Background(), "no-such-mission")
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestMissionHistories(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.SaveResult(ctx, "sess-1", "benchmark", "manhattan", sampleResult())
	require.NoError(t, err)

	pathRaw, batteryRaw, err := store.MissionHistories(ctx, id)
	require.NoError(t, err)

	var path []world.Position
	require.NoError(t, json.Unmarshal(pathRaw, &path))
	assert.Equal(t, []world.Position{{X: 0, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}}, path)

	var battery []int
	require.NoError(t, json.Unmarshal(batteryRaw, &battery))
	assert.Equal(t, []int{100, 95, 90}, battery)
}

func TestMissionHistoriesUnknownMission(t *testing.T) {
	store := newTestStore(t)

	_, _, err := store.MissionHistories(context.Background(), "no-such-mission")
	assert.Error(t, err)
}
