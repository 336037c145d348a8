package queryspec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metricflow-go/planner/core"
)

func TestResolveWhereFilterEmpty(t *testing.T) {
	idx := testIndex(t)
	filter, err := ResolveWhereFilter(idx, "")
	require.NoError(t, err)
	assert.Nil(t, filter)
}

func TestResolveWhereFilterLocalDimension(t *testing.T) {
	idx := testIndex(t)
	filter, err := ResolveWhereFilter(idx, `{{ Dimension "is_instant" }} = true`)
	require.NoError(t, err)
	require.NotNil(t, filter)
	assert.Equal(t, "{{ is_instant }} = true", filter.WhereSQL)
	require.Len(t, filter.ReferencedSpecs, 1)
	assert.Equal(t, core.DimensionSpec{Name: "is_instant"}, filter.ReferencedSpecs[0])
}

func TestResolveWhereFilterEntityLinkedDimension(t *testing.T) {
	idx := testIndex(t)
	filter, err := ResolveWhereFilter(idx, `{{ Dimension "country_latest" "listing" }} = 'us'`)
	require.NoError(t, err)
	require.NotNil(t, filter)
	assert.Equal(t, "{{ listing__country_latest }} = 'us'", filter.WhereSQL)
	require.Len(t, filter.ReferencedSpecs, 1)
	assert.Equal(t, core.DimensionSpec{Name: "country_latest", EntityLinks: core.EntityLinkPath{{Name: "listing"}}}, filter.ReferencedSpecs[0])
}

func TestResolveWhereFilterTimeDimension(t *testing.T) {
	idx := testIndex(t)
	filter, err := ResolveWhereFilter(idx, `{{ TimeDimension "metric_time" "month" }} >= '2020-01-01'`)
	require.NoError(t, err)
	require.NotNil(t, filter)
	assert.Equal(t, "{{ metric_time__month }} >= '2020-01-01'", filter.WhereSQL)
	require.Len(t, filter.ReferencedSpecs, 1)
	assert.Equal(t, core.TimeDimensionSpec{Name: "metric_time", Granularity: core.GranularityMonth}, filter.ReferencedSpecs[0])
}

func TestResolveWhereFilterMetricToken(t *testing.T) {
	idx := testIndex(t)
	filter, err := ResolveWhereFilter(idx, `{{ Metric "bookings" }} > 0`)
	require.NoError(t, err)
	require.NotNil(t, filter)
	assert.Equal(t, "{{ metric:bookings }} > 0", filter.WhereSQL)
	require.Len(t, filter.ReferencedSpecs, 1)

	spec := filter.ReferencedSpecs[0]
	assert.Equal(t, "__metric__bookings", spec.QualifiedName())
}

func TestResolveWhereFilterUnknownDimension(t *testing.T) {
	idx := testIndex(t)
	_, err := ResolveWhereFilter(idx, `{{ Dimension "no_such_dimension" }} = 1`)
	require.Error(t, err)
}

func TestResolveWhereFilterCombine(t *testing.T) {
	idx := testIndex(t)
	a, err := ResolveWhereFilter(idx, `{{ Dimension "is_instant" }} = true`)
	require.NoError(t, err)
	b, err := ResolveWhereFilter(idx, `{{ Metric "bookings" }} > 0`)
	require.NoError(t, err)

	combined := a.Combine(*b)
	assert.Equal(t, "({{ is_instant }} = true) AND ({{ metric:bookings }} > 0)", combined.WhereSQL)
	assert.Len(t, combined.ReferencedSpecs, 2)
}
