package simulation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/evfleet/core/model"
)

func TestManager(t *testing.T) {
	ctx := context.Background()
	repo := seed(t, "M2", "M1")
	m, err := NewManager(ctx, repo, settings(), nil)
	require.NoError(t, err)
	assert.Equal(t, []model.Target{"M1", "M2"}, m.Targets())

	_, err = m.Get("M7")
	assert.ErrorIs(t, err, model.ErrUnknownTarget)

	require.NoError(t, m.RunAll(ctx))
	for _, target := range m.Targets() {
		sim, err := m.Get(target)
		require.NoError(t, err)
		rs, err := sim.Results()
		require.NoError(t, err)
		assert.Equal(t, target, rs.Target)
	}

	m1, _ := m.Get("M1")
	require.NoError(t, m1.Persist(ctx))
	reloaded, err := NewManager(ctx, repo, settings(), nil)
	require.NoError(t, err)
	n, err := reloaded.LoadPersisted(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestManager_ExplicitTargets(t *testing.T) {
	ctx := context.Background()
	m, err := NewManager(ctx, seed(t, "M1"), settings(), []model.Target{"M1", "M3"})
	require.NoError(t, err)
	assert.Equal(t, []model.Target{"M1", "M3"}, m.Targets())
	assert.ErrorIs(t, m.RunAll(ctx), model.ErrDataUnavailable)
	m1, _ := m.Get("M1")
	_, err = m1.Results()
	assert.NoError(t, err, "M1 keeps its results although M3 failed")
}
