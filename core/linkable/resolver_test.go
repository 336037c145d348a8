package linkable

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

func findSpec(t *testing.T, specs []TaggedSpec, qualifiedName string) TaggedSpec {
	t.Helper()
	for _, s := range specs {
		if s.Spec.QualifiedName() == qualifiedName {
			return s
		}
	}
	t.Fatalf("spec %q not found among %d results", qualifiedName, len(specs))
	return TaggedSpec{}
}

func hasSpec(specs []TaggedSpec, qualifiedName string) bool {
	for _, s := range specs {
		if s.Spec.QualifiedName() == qualifiedName {
			return true
		}
	}
	return false
}

func TestElementSpecsForMeasureLocal(t *testing.T) {
	r := New(bookingsIndex(t), 0)
	specs, err := r.ElementSpecsForMeasure(core.MeasureReference{Name: "bookings"})
	require.NoError(t, err)

	local := findSpec(t, specs, "is_instant")
	assert.True(t, local.Properties.Has(Local))

	entity := findSpec(t, specs, "listing")
	assert.True(t, entity.Properties.Has(Local))
	assert.True(t, entity.Properties.Has(IsEntityProperty))
}

func TestElementSpecsForMeasureOneHopJoined(t *testing.T) {
	r := New(bookingsIndex(t), 0)
	specs, err := r.ElementSpecsForMeasure(core.MeasureReference{Name: "bookings"})
	require.NoError(t, err)

	joined := findSpec(t, specs, "listing__country_latest")
	assert.True(t, joined.Properties.Has(Joined))
	assert.False(t, joined.Properties.Has(Local))
}

func TestElementSpecsForMeasureTwoHopJoined(t *testing.T) {
	r := New(bookingsIndex(t), 0)
	specs, err := r.ElementSpecsForMeasure(core.MeasureReference{Name: "bookings"})
	require.NoError(t, err)

	twoHop := findSpec(t, specs, "listing__user__home_country")
	assert.True(t, twoHop.Properties.Has(MultiHopJoined))
}

func TestElementSpecsForMeasureMetricTime(t *testing.T) {
	r := New(bookingsIndex(t), 0)
	specs, err := r.ElementSpecsForMeasure(core.MeasureReference{Name: "bookings"})
	require.NoError(t, err)

	monthly := findSpec(t, specs, "metric_time__month")
	assert.True(t, monthly.Properties.Has(MetricTime))
	assert.True(t, monthly.Properties.Has(DerivedTimeGranularity))

	daily := findSpec(t, specs, "metric_time__day")
	assert.True(t, daily.Properties.Has(MetricTime))
	assert.False(t, daily.Properties.Has(DerivedTimeGranularity))
}

func TestElementSpecsForMeasureNoFinerGrainFanOut(t *testing.T) {
	r := New(bookingsIndex(t), 0)
	specs, err := r.ElementSpecsForMeasure(core.MeasureReference{Name: "bookings"})
	require.NoError(t, err)

	// ds is declared at DAY grain; coarsening (week/month/...) fans out, but
	// there is no finer grain than DAY to fan out to.
	assert.True(t, hasSpec(specs, "ds__day"))
	assert.True(t, hasSpec(specs, "ds__month"))
}

func TestElementSpecsForMetricsIntersection(t *testing.T) {
	r := New(bookingsIndex(t), 0)

	bookingsOnly, err := r.ElementSpecsForMetrics([]core.MetricReference{{Name: "bookings"}}, 0, 0)
	require.NoError(t, err)
	assert.True(t, hasSpec(bookingsOnly, "is_instant"), "is_instant is local to bookings_source")

	intersection, err := r.ElementSpecsForMetrics(
		[]core.MetricReference{{Name: "bookings"}, {Name: "views"}}, 0, 0,
	)
	require.NoError(t, err)

	assert.False(t, hasSpec(intersection, "is_instant"), "is_instant is unreachable from views_source within the hop bound")
	assert.True(t, hasSpec(intersection, "listing"), "listing entity is local to both bookings_source and views_source")
}

func TestElementSpecsForMetricsWithoutAnyOfFiltersMultiHop(t *testing.T) {
	r := New(bookingsIndex(t), 0)

	specs, err := r.ElementSpecsForMetrics([]core.MetricReference{{Name: "bookings"}}, 0, MultiHopJoined)
	require.NoError(t, err)

	assert.False(t, hasSpec(specs, "listing__user__home_country"))
	assert.True(t, hasSpec(specs, "listing__country_latest"))
}
