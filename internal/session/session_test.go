package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreate_DemotesPriorActiveSession(t *testing.T) {
	r := NewRegistry()
	first, err := r.Create("client-1")
	require.NoError(t, err)
	assert.Equal(t, StateActive, first.State)

	second, err := r.Create("client-1")
	require.NoError(t, err)
	assert.Equal(t, StateActive, second.State)

	reloaded, ok := r.Get(first.ID)
	require.True(t, ok)
	assert.Equal(t, StateInactive, reloaded.State)
}

func TestDelete_RejectsFromMigrating(t *testing.T) {
	r := NewRegistry()
	s, err := r.Create("client-1")
	require.NoError(t, err)
	require.NoError(t, r.SetState(s.ID, StateMigrating))

	err = r.Delete(s.ID)
	assert.Error(t, err)
}

func TestDelete_AllowedFromFinished(t *testing.T) {
	r := NewRegistry()
	s, err := r.Create("client-1")
	require.NoError(t, err)
	require.NoError(t, r.SetState(s.ID, StateFinished))

	assert.NoError(t, r.Delete(s.ID))
	_, ok := r.Get(s.ID)
	assert.False(t, ok)
}

func TestAbort_OnlyFromMigrating(t *testing.T) {
	r := NewRegistry()
	s, err := r.Create("client-1")
	require.NoError(t, err)

	assert.Error(t, r.Abort(s.ID))

	require.NoError(t, r.SetState(s.ID, StateMigrating))
	assert.NoError(t, r.Abort(s.ID))

	reloaded, _ := r.Get(s.ID)
	assert.Equal(t, StateAborting, reloaded.State)
}

func TestAssertAbort_TrueOnlyWhileAborting(t *testing.T) {
	r := NewRegistry()
	s, err := r.Create("client-1")
	require.NoError(t, err)

	assert.False(t, r.AssertAbort(s.ID))

	require.NoError(t, r.SetState(s.ID, StateMigrating))
	require.NoError(t, r.Abort(s.ID))
	assert.True(t, r.AssertAbort(s.ID))

	reloaded, _ := r.Get(s.ID)
	assert.NotEmpty(t, reloaded.Errors)
}

func TestGetActive_ReturnsOnlyTheActiveSession(t *testing.T) {
	r := NewRegistry()
	s1, err := r.Create("client-1")
	require.NoError(t, err)
	_, err = r.Create("client-2")
	require.NoError(t, err)

	active, ok := r.GetActive("client-1")
	require.True(t, ok)
	assert.Equal(t, s1.ID, active.ID)

	_, ok = r.GetActive("client-3")
	assert.False(t, ok)
}

func TestSetActive_PromoteDemotesSibling(t *testing.T) {
	r := NewRegistry()
	s1, err := r.Create("client-1")
	require.NoError(t, err)
	require.NoError(t, r.SetActive(s1.ID, false))

	s2, err := r.Create("client-1")
	require.NoError(t, err)

	require.NoError(t, r.SetActive(s1.ID, true))

	reloadedS1, _ := r.Get(s1.ID)
	reloadedS2, _ := r.Get(s2.ID)
	assert.Equal(t, StateActive, reloadedS1.State)
	assert.Equal(t, StateInactive, reloadedS2.State)
}

func TestDefaultMetrics_MatchesSpecDefaults(t *testing.T) {
	m := DefaultMetrics()
	assert.Equal(t, int64(1e6), m.BatchSizeIn)
	assert.Equal(t, int64(1e6), m.BatchSizeOut)
	assert.Equal(t, int64(1<<20), m.ChunkSize)
	assert.Equal(t, int64(1e5), m.IncrementalSize)
	assert.Equal(t, 1, m.LobdataChannels)
	assert.Equal(t, 1, m.PlaindataChannels)
}

func TestMetricsClamp_ClipsOutOfRangeValues(t *testing.T) {
	m := Metrics{
		BatchSizeIn:       1,
		BatchSizeOut:      1 << 30,
		ChunkSize:         10,
		IncrementalSize:   1 << 30,
		LobdataChannels:   0,
		PlaindataChannels: 1000,
	}.Clamp()

	assert.Equal(t, int64(1e3), m.BatchSizeIn)
	assert.Equal(t, int64(1e6), m.BatchSizeOut)
	assert.Equal(t, int64(1024), m.ChunkSize)
	assert.Equal(t, int64(1e7), m.IncrementalSize)
	assert.Equal(t, 1, m.LobdataChannels)
	assert.Equal(t, 32, m.PlaindataChannels)
}
