package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metricflow-go/planner/core"
	"github.com/metricflow-go/planner/core/manifest"
)

func bookingsIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := New(manifest.ExampleBookingsManifest())
	require.NoError(t, err)
	return idx
}

func TestNewRejectsInvalidManifest(t *testing.T) {
	_, err := New(manifest.Manifest{
		DataSources: []manifest.DataSource{
			{Name: "orders_source", Entities: []manifest.Entity{
				{Name: "order", Role: manifest.Primary},
				{Name: "order", Role: manifest.Primary},
			}},
		},
	})
	require.Error(t, err)
}

func TestDataSourceLookup(t *testing.T) {
	idx := bookingsIndex(t)

	ds, err := idx.DataSource(core.DataSourceReference{Name: "bookings_source"})
	require.NoError(t, err)
	assert.Equal(t, "bookings_source", ds.Name)

	_, err = idx.DataSource(core.DataSourceReference{Name: "no_such_source"})
	require.Error(t, err)
}

func TestGetMeasure(t *testing.T) {
	idx := bookingsIndex(t)

	meas, ds, err := idx.GetMeasure(core.MeasureReference{Name: "bookings"})
	require.NoError(t, err)
	assert.Equal(t, "bookings", meas.Name)
	assert.Equal(t, "bookings_source", ds.Name)

	_, _, err = idx.GetMeasure(core.MeasureReference{Name: "no_such_measure"})
	require.Error(t, err)
}

func TestDataSourcesContainingMeasure(t *testing.T) {
	idx := bookingsIndex(t)

	sources := idx.DataSourcesContainingMeasure(core.MeasureReference{Name: "bookings"})
	require.Len(t, sources, 1)
	assert.Equal(t, "bookings_source", sources[0].Name)

	assert.Empty(t, idx.DataSourcesContainingMeasure(core.MeasureReference{Name: "no_such_measure"}))
}

func TestDimensionLocationsAcrossMultipleSources(t *testing.T) {
	idx := bookingsIndex(t)

	// ds is declared on bookings_source, views_source, and revenue_source.
	locs := idx.DimensionLocations("ds")
	assert.Len(t, locs, 3)

	assert.Empty(t, idx.DimensionLocations("no_such_dimension"))
}

func TestGetDimension(t *testing.T) {
	idx := bookingsIndex(t)

	dim, err := idx.GetDimension(core.DataSourceReference{Name: "bookings_source"}, "is_instant")
	require.NoError(t, err)
	assert.Equal(t, "is_instant", dim.Name)

	_, err = idx.GetDimension(core.DataSourceReference{Name: "bookings_source"}, "does_not_exist")
	require.Error(t, err)

	_, err = idx.GetDimension(core.DataSourceReference{Name: "no_such_source"}, "is_instant")
	require.Error(t, err)
}

func TestDataSourcesContainingEntity(t *testing.T) {
	idx := bookingsIndex(t)

	// listing is declared on bookings_source, listings_source, and views_source.
	sources := idx.DataSourcesContainingEntity(core.EntityReference{Name: "listing"})
	assert.Len(t, sources, 3)
}

func TestGetEntity(t *testing.T) {
	idx := bookingsIndex(t)

	e, err := idx.GetEntity(core.DataSourceReference{Name: "bookings_source"}, core.EntityReference{Name: "booking"})
	require.NoError(t, err)
	assert.Equal(t, manifest.Primary, e.Role)

	_, err = idx.GetEntity(core.DataSourceReference{Name: "bookings_source"}, core.EntityReference{Name: "no_such_entity"})
	require.Error(t, err)
}

func TestGetMetric(t *testing.T) {
	idx := bookingsIndex(t)

	m, err := idx.GetMetric(core.MetricReference{Name: "bookings"})
	require.NoError(t, err)
	assert.Equal(t, manifest.MetricSimple, m.Type)

	_, err = idx.GetMetric(core.MetricReference{Name: "no_such_metric"})
	require.Error(t, err)
}

func TestTimeSpineForGrain(t *testing.T) {
	idx := bookingsIndex(t)

	ts, ok := idx.TimeSpineForGrain(core.GranularityDay)
	require.True(t, ok)
	assert.Equal(t, "revenue_source", ts.DataSourceName)

	_, ok = idx.TimeSpineForGrain(core.GranularityMonth)
	assert.False(t, ok)
}

func TestBackingMeasuresSimple(t *testing.T) {
	idx := bookingsIndex(t)

	measures, err := idx.BackingMeasures(core.MetricReference{Name: "bookings"})
	require.NoError(t, err)
	require.Len(t, measures, 1)
	assert.Equal(t, "bookings", measures[0].Name)
}

func TestBackingMeasuresRatio(t *testing.T) {
	idx := bookingsIndex(t)

	measures, err := idx.BackingMeasures(core.MetricReference{Name: "average_booking_value"})
	require.NoError(t, err)
	require.Len(t, measures, 2)
}

func TestBackingMeasuresDerivedRecurses(t *testing.T) {
	idx := bookingsIndex(t)

	// bookings_5_day_lag derives from bookings, which backs onto a single
	// measure; walking the derived metric must reach that same measure.
	measures, err := idx.BackingMeasures(core.MetricReference{Name: "bookings_5_day_lag"})
	require.NoError(t, err)
	require.Len(t, measures, 1)
	assert.Equal(t, "bookings", measures[0].Name)
}

func TestDataSourceNamesSortedLexicographically(t *testing.T) {
	idx := bookingsIndex(t)

	names := idx.DataSourceNames()
	for i := 1; i < len(names); i++ {
		assert.Less(t, names[i-1], names[i])
	}
}

func TestNonAdditiveDimensionNilWhenUnset(t *testing.T) {
	idx := bookingsIndex(t)
	assert.Nil(t, idx.NonAdditiveDimension(core.MeasureReference{Name: "bookings"}))
}

func TestManifestReturnsUnderlyingManifest(t *testing.T) {
	idx := bookingsIndex(t)
	assert.NotEmpty(t, idx.Manifest().DataSources)
}
