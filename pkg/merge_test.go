package recon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// transitionEvent deposits a shower across the left edge of the crystal
// sector: crystals in column 0 and the lead glass next to them.
func transitionEvent() ChannelEnergyMap {
	energies := NewChannelEnergyMap(MeV)
	energies.Set(crystalID(0, 10), 800)
	energies.Set(crystalID(0, 11), 100)
	energies.Set(glassID(5, 11), 300)
	energies.Set(glassID(4, 11), 50)
	return energies
}

func TestTransitionClustersAreMerged(t *testing.T) {
	engine := testEngine(t, testGeometry(t), func(o *ClusterOptions) { o.DoNonLinearCorrection = false })

	clusters := engine.Reconstruct(transitionEvent())

	require.Len(t, clusters, 1)
	c := clusters[0]
	assert.InDelta(t, 1250, c.Energy, 1e-9)
	assert.Equal(t, crystalID(0, 10), c.CenterID)
	assert.Equal(t, 0, c.Sector)
	assert.Len(t, c.Hits, 4)
	assert.True(t, c.Flags.Has(FlagGlued))
	assert.True(t, c.Flags.Has(FlagTransition))
	assert.True(t, c.Flags.Has(FlagCrystal))
	assert.Equal(t, TypeTransition, c.Type)
}

func TestGlassSectorsAreGluedWithoutTransitionFlag(t *testing.T) {
	engine := testEngine(t, testGeometry(t), func(o *ClusterOptions) { o.DoNonLinearCorrection = false })
	energies := NewChannelEnergyMap(MeV)
	energies.Set(glassID(2, 5), 800) // sector 1
	energies.Set(glassID(2, 6), 300) // sector 4

	clusters := engine.Reconstruct(energies)

	require.Len(t, clusters, 1)
	c := clusters[0]
	assert.InDelta(t, 1100, c.Energy, 1e-9)
	assert.Equal(t, glassID(2, 5), c.CenterID)
	assert.Equal(t, 1, c.Sector)
	assert.Len(t, c.Hits, 2)
	// same material on both sides: glued, not transition
	assert.Equal(t, FlagGlass|FlagGlued, c.Flags)
	assert.Equal(t, TypeGlass, c.Type)
}

func TestTransitionMergeDisabled(t *testing.T) {
	engine := testEngine(t, testGeometry(t), func(o *ClusterOptions) {
		o.DoNonLinearCorrection = false
		o.DoTransitionMerge = false
	})

	clusters := engine.Reconstruct(transitionEvent())

	require.Len(t, clusters, 2)
	assert.InDelta(t, 900, clusters[0].Energy, 1e-9)
	assert.InDelta(t, 350, clusters[1].Energy, 1e-9)
	for _, c := range clusters {
		assert.False(t, c.Flags.Has(FlagGlued))
	}
}

func TestTransitionMergeNeedsContact(t *testing.T) {
	engine := testEngine(t, testGeometry(t), nil)
	energies := NewChannelEnergyMap(MeV)
	energies.Set(crystalID(0, 10), 800)
	energies.Set(glassID(3, 11), 300)

	clusters := engine.Reconstruct(energies)

	assert.Len(t, clusters, 2)
}

func TestTouchingUsesAverageModuleSize(t *testing.T) {
	geo := testGeometry(t)
	engine := testEngine(t, geo, nil)
	crystal, _ := geo.Module(crystalID(0, 10))
	glass, _ := geo.Module(glassID(5, 11))

	a := Cluster{Hits: []ModuleHit{{ID: crystal.ID, Energy: 1, X: crystal.X, Y: crystal.Y}}}
	b := Cluster{Hits: []ModuleHit{{ID: glass.ID, Energy: 1, X: glass.X, Y: glass.Y}}}
	assert.True(t, engine.touching(&a, &b))

	strict := testEngine(t, geo, func(o *ClusterOptions) { o.TransitionDistance = 0.9 })
	assert.False(t, strict.touching(&a, &b))
}

func TestMergeIntoSumsSharedModules(t *testing.T) {
	engine := testEngine(t, testGeometry(t), nil)
	dst := Cluster{CenterID: 1, Hits: []ModuleHit{{ID: 1, Energy: 1, X: 0, Y: 0}, {ID: 2, Energy: 0.5, X: 2, Y: 0}}}
	src := Cluster{CenterID: 3, Flags: FlagSplit, Hits: []ModuleHit{{ID: 2, Energy: 0.25, X: 4, Y: 2}, {ID: 3, Energy: 0.75, X: 6, Y: 0}}}

	engine.mergeInto(&dst, &src)

	require.Len(t, dst.Hits, 3)
	assert.InDelta(t, 2.5, dst.Energy, 1e-12)
	assert.InDelta(t, 0.75, dst.Hits[1].Energy, 1e-12)
	assert.InDelta(t, 3, dst.Hits[1].X, 1e-12)
	assert.InDelta(t, 1, dst.Hits[1].Y, 1e-12)
	assert.True(t, dst.Flags.Has(FlagSplit))
	assert.Empty(t, src.Hits)
}

func TestUnionFindGroups(t *testing.T) {
	uf := newUnionFind(6)
	uf.union(4, 1)
	uf.union(1, 3)
	uf.union(2, 5)

	assert.Equal(t, [][]int{{1, 3, 4}, {2, 5}}, uf.groups())
}
