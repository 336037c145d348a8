package queryspec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metricflow-go/planner/core"
)

func TestBuildQuerySpecGroupBy(t *testing.T) {
	idx := testIndex(t)

	req := QueryRequest{
		Metrics: []MetricInput{{Name: "bookings"}},
		GroupBy: []string{"is_instant", "listing__country_latest", "metric_time__month"},
	}

	q, err := BuildQuerySpec(idx, req)
	require.NoError(t, err)

	require.Len(t, q.Metrics, 1)
	assert.Equal(t, "bookings", q.Metrics[0].Name)

	require.Len(t, q.Dimensions, 2)
	assert.Equal(t, core.DimensionSpec{Name: "is_instant"}, q.Dimensions[0])
	assert.Equal(t, core.DimensionSpec{Name: "country_latest", EntityLinks: core.EntityLinkPath{{Name: "listing"}}}, q.Dimensions[1])

	require.Len(t, q.TimeDimensions, 1)
	assert.Equal(t, core.TimeDimensionSpec{Name: "metric_time", Granularity: core.GranularityMonth}, q.TimeDimensions[0])

	assert.Len(t, q.GroupBySpecs(), 3)
}

func TestBuildQuerySpecUnknownGroupBy(t *testing.T) {
	idx := testIndex(t)
	req := QueryRequest{
		Metrics: []MetricInput{{Name: "bookings"}},
		GroupBy: []string{"no_such_dimension"},
	}
	_, err := BuildQuerySpec(idx, req)
	require.Error(t, err)
}

func TestBuildQuerySpecMetricConstraint(t *testing.T) {
	idx := testIndex(t)
	req := QueryRequest{
		Metrics: []MetricInput{{Name: "bookings", Constraint: `{{ Dimension "is_instant" }} = true`}},
	}
	q, err := BuildQuerySpec(idx, req)
	require.NoError(t, err)
	require.NotNil(t, q.Metrics[0].Constraint)
	assert.Equal(t, "{{ is_instant }} = true", q.Metrics[0].Constraint.WhereSQL)
}

func TestBuildQuerySpecOrderByDimensionAndMetric(t *testing.T) {
	idx := testIndex(t)
	req := QueryRequest{
		Metrics: []MetricInput{{Name: "bookings"}},
		GroupBy: []string{"is_instant"},
		OrderBy: []OrderByInput{
			{Name: "is_instant"},
			{Name: "bookings", Descending: true},
		},
	}
	q, err := BuildQuerySpec(idx, req)
	require.NoError(t, err)
	require.Len(t, q.OrderBy, 2)

	assert.Equal(t, core.DimensionSpec{Name: "is_instant"}, q.OrderBy[0].Instance)
	assert.False(t, q.OrderBy[0].Descending)

	assert.Nil(t, q.OrderBy[1].Instance)
	assert.Equal(t, "bookings", q.OrderBy[1].MetricName)
	assert.True(t, q.OrderBy[1].Descending)
}

func TestBuildQuerySpecLimit(t *testing.T) {
	idx := testIndex(t)
	limit := 10
	req := QueryRequest{
		Metrics: []MetricInput{{Name: "bookings"}},
		Limit:   &limit,
	}
	q, err := BuildQuerySpec(idx, req)
	require.NoError(t, err)
	require.NotNil(t, q.Limit)
	assert.Equal(t, 10, *q.Limit)
}
