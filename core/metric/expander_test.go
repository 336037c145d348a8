package metric

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metricflow-go/planner/core"
	"github.com/metricflow-go/planner/core/index"
	"github.com/metricflow-go/planner/core/manifest"
)

func bookingsExpander(t *testing.T) *Expander {
	t.Helper()
	idx, err := index.New(manifest.ExampleBookingsManifest())
	require.NoError(t, err)
	return New(idx)
}

func TestInputMeasuresSimple(t *testing.T) {
	e := bookingsExpander(t)
	specs, err := e.InputMeasures(core.MetricReference{Name: "bookings"})
	require.NoError(t, err)
	require.Len(t, specs, 1)
	assert.Equal(t, "bookings", specs[0].MeasureSpec.Name)
}

func TestInputMeasuresRatio(t *testing.T) {
	e := bookingsExpander(t)
	specs, err := e.InputMeasures(core.MetricReference{Name: "average_booking_value"})
	require.NoError(t, err)
	require.Len(t, specs, 2)
	assert.Equal(t, "booking_value", specs[0].MeasureSpec.Name)
	assert.Equal(t, "bookings", specs[1].MeasureSpec.Name)
}

func TestInputMeasuresDerivedReturnsNone(t *testing.T) {
	e := bookingsExpander(t)
	specs, err := e.InputMeasures(core.MetricReference{Name: "bookings_5_day_lag"})
	require.NoError(t, err)
	assert.Empty(t, specs)
}

func TestInputMetricsDerived(t *testing.T) {
	e := bookingsExpander(t)
	specs, err := e.InputMetrics(core.MetricReference{Name: "bookings_5_day_lag"})
	require.NoError(t, err)
	require.Len(t, specs, 1)
	assert.Equal(t, "bookings", specs[0].Name)
	require.NotNil(t, specs[0].OffsetWindow)
	assert.Equal(t, 5, specs[0].OffsetWindow.Count)
	assert.Equal(t, core.GranularityDay, specs[0].OffsetWindow.Grain)
}

func TestContainsCumulativeOrTimeOffsetMetric(t *testing.T) {
	e := bookingsExpander(t)

	has, err := e.ContainsCumulativeOrTimeOffsetMetric([]core.MetricReference{{Name: "bookings"}})
	require.NoError(t, err)
	assert.False(t, has)

	has, err = e.ContainsCumulativeOrTimeOffsetMetric([]core.MetricReference{{Name: "trailing_2_months_revenue"}})
	require.NoError(t, err)
	assert.True(t, has)

	has, err = e.ContainsCumulativeOrTimeOffsetMetric([]core.MetricReference{{Name: "bookings_5_day_lag"}})
	require.NoError(t, err)
	assert.True(t, has)
}

func TestExpandToMeasuresSimple(t *testing.T) {
	e := bookingsExpander(t)
	expanded, err := e.ExpandToMeasures(core.MetricReference{Name: "bookings"})
	require.NoError(t, err)
	require.Len(t, expanded, 1)
	assert.Equal(t, "bookings", expanded[0].Input.MeasureSpec.Name)
	assert.Nil(t, expanded[0].OffsetWindow)
}

func TestExpandToMeasuresDerivedPropagatesOffset(t *testing.T) {
	e := bookingsExpander(t)
	expanded, err := e.ExpandToMeasures(core.MetricReference{Name: "bookings_5_day_lag"})
	require.NoError(t, err)
	require.Len(t, expanded, 1)
	assert.Equal(t, "bookings", expanded[0].Input.MeasureSpec.Name)
	require.NotNil(t, expanded[0].OffsetWindow)
	assert.Equal(t, 5, expanded[0].OffsetWindow.Count)
}

func TestExpandToMeasuresCumulativeCarriesParams(t *testing.T) {
	e := bookingsExpander(t)
	expanded, err := e.ExpandToMeasures(core.MetricReference{Name: "trailing_2_months_revenue"})
	require.NoError(t, err)
	require.Len(t, expanded, 1)
	require.NotNil(t, expanded[0].Cumulative)
	require.NotNil(t, expanded[0].Cumulative.Window)
	assert.Equal(t, 2, expanded[0].Cumulative.Window.Count)
	assert.Equal(t, core.GranularityMonth, expanded[0].Cumulative.Window.Grain)
}

func TestInputMeasuresCarryMetricFilter(t *testing.T) {
	idx, err := index.New(manifest.Manifest{
		DataSources: []manifest.DataSource{
			{
				Name: "orders_source",
				Entities: []manifest.Entity{{Name: "order", Role: manifest.Primary}},
				Measures: []manifest.Measure{{Name: "order_count", Agg: manifest.AggCount}},
			},
		},
		Metrics: []manifest.Metric{
			{
				Name:    "orders",
				Type:    manifest.MetricSimple,
				Measure: &manifest.InputMeasure{MeasureReference: core.MeasureReference{Name: "order_count"}},
				Filter:  &core.WhereFilterSpec{WhereSQL: "metric_filter"},
			},
		},
	})
	require.NoError(t, err)
	e := New(idx)

	specs, err := e.InputMeasures(core.MetricReference{Name: "orders"})
	require.NoError(t, err)
	require.Len(t, specs, 1)
	require.NotNil(t, specs[0].Constraint)
	assert.Equal(t, "metric_filter", specs[0].Constraint.WhereSQL)
}
