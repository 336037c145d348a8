package joingraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metricflow-go/planner/core"
	"github.com/metricflow-go/planner/core/index"
	"github.com/metricflow-go/planner/core/manifest"
)

func bookingsIndex(t *testing.T) *index.Index {
	t.Helper()
	idx, err := index.New(manifest.ExampleBookingsManifest())
	require.NoError(t, err)
	return idx
}

func TestFindPathsOneHop(t *testing.T) {
	idx := bookingsIndex(t)
	r := New(idx, 0)

	paths := r.FindPaths(core.DataSourceReference{Name: "bookings_source"}, map[string]bool{"listings_source": true})
	require.Len(t, paths, 1)
	assert.Equal(t, []core.DataSourceReference{{Name: "listings_source"}}, paths[0].DataSources())
	assert.Equal(t, core.EntityLinkPath{{Name: "listing"}}, paths[0].EntityLinks())
}

func TestFindPathsTwoHop(t *testing.T) {
	idx := bookingsIndex(t)
	r := New(idx, 0)

	paths := r.FindPaths(core.DataSourceReference{Name: "views_source"}, map[string]bool{"users_source": true})
	require.Len(t, paths, 1)
	assert.Equal(t,
		[]core.DataSourceReference{{Name: "listings_source"}, {Name: "users_source"}},
		paths[0].DataSources(),
	)
	assert.Equal(t, core.EntityLinkPath{{Name: "listing"}, {Name: "user"}}, paths[0].EntityLinks())
}

func TestFindPathsRejectsForeignSideHop(t *testing.T) {
	idx := bookingsIndex(t)
	r := New(idx, 0)

	// bookings_source and revenue_source both declare "booking", but only as
	// PRIMARY on each; hopping bookings_source -> revenue_source is valid
	// (revenue_source's booking is PRIMARY). The reverse check that matters
	// here is that hopping onto a FOREIGN role never appears as a valid hop:
	// "guest" is FOREIGN everywhere it is declared, so no data source can be
	// reached over it.
	hops, err := r.Neighbors(core.DataSourceReference{Name: "bookings_source"}, map[string]bool{"bookings_source": true})
	require.NoError(t, err)
	for _, h := range hops {
		assert.NotEqual(t, "guest", h.JoinEntity.Name)
	}
}

func TestChooseBestPathPrefersShortest(t *testing.T) {
	short := Path{Hops: []Hop{{FromDataSource: core.DataSourceReference{Name: "a"}, ToDataSource: core.DataSourceReference{Name: "b"}, JoinEntity: core.EntityReference{Name: "e"}}}}
	long := Path{Hops: []Hop{
		{FromDataSource: core.DataSourceReference{Name: "a"}, ToDataSource: core.DataSourceReference{Name: "c"}, JoinEntity: core.EntityReference{Name: "e2"}},
		{FromDataSource: core.DataSourceReference{Name: "c"}, ToDataSource: core.DataSourceReference{Name: "b"}, JoinEntity: core.EntityReference{Name: "e"}},
	}}

	best, ok := ChooseBestPath([]Path{long, short}, nil)
	require.True(t, ok)
	assert.Equal(t, short, best)
}

func TestChooseBestPathLexicographicTieBreak(t *testing.T) {
	viaB := Path{Hops: []Hop{{ToDataSource: core.DataSourceReference{Name: "b"}, JoinEntity: core.EntityReference{Name: "e1"}}}}
	viaC := Path{Hops: []Hop{{ToDataSource: core.DataSourceReference{Name: "c"}, JoinEntity: core.EntityReference{Name: "e2"}}}}

	best, ok := ChooseBestPath([]Path{viaC, viaB}, nil)
	require.True(t, ok)
	assert.Equal(t, viaB, best)
}

func TestAmbiguousAfterTieBreakSameDataSourceSequenceDifferentEntity(t *testing.T) {
	overA := Path{Hops: []Hop{{ToDataSource: core.DataSourceReference{Name: "target"}, JoinEntity: core.EntityReference{Name: "entity_a"}}}}
	overB := Path{Hops: []Hop{{ToDataSource: core.DataSourceReference{Name: "target"}, JoinEntity: core.EntityReference{Name: "entity_b"}}}}

	assert.True(t, AmbiguousAfterTieBreak([]Path{overA, overB}, nil))
}

func TestAmbiguousAfterTieBreakDifferentIntermediateNotAmbiguous(t *testing.T) {
	viaB := Path{Hops: []Hop{{ToDataSource: core.DataSourceReference{Name: "b"}, JoinEntity: core.EntityReference{Name: "e"}}}}
	viaC := Path{Hops: []Hop{{ToDataSource: core.DataSourceReference{Name: "c"}, JoinEntity: core.EntityReference{Name: "e"}}}}

	assert.False(t, AmbiguousAfterTieBreak([]Path{viaB, viaC}, nil))
}
