package queryspec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metricflow-go/planner/core"
	"github.com/metricflow-go/planner/core/index"
	"github.com/metricflow-go/planner/core/manifest"
)

func testIndex(t *testing.T) *index.Index {
	t.Helper()
	idx, err := index.New(manifest.ExampleBookingsManifest())
	require.NoError(t, err)
	return idx
}

func TestParseName(t *testing.T) {
	idx := testIndex(t)

	tests := []struct {
		name string
		in   string
		want core.LinkableSpec
	}{
		{
			name: "local categorical dimension",
			in:   "is_instant",
			want: core.DimensionSpec{Name: "is_instant"},
		},
		{
			name: "entity-linked categorical dimension",
			in:   "listing__country_latest",
			want: core.DimensionSpec{
				Name:        "country_latest",
				EntityLinks: core.EntityLinkPath{{Name: "listing"}},
			},
		},
		{
			name: "two-hop entity-linked dimension",
			in:   "listing__user__home_country",
			want: core.DimensionSpec{
				Name:        "home_country",
				EntityLinks: core.EntityLinkPath{{Name: "listing"}, {Name: "user"}},
			},
		},
		{
			name: "metric_time with no suffix defaults to day",
			in:   "metric_time",
			want: core.TimeDimensionSpec{Name: "metric_time", Granularity: core.GranularityDay},
		},
		{
			name: "metric_time at month grain",
			in:   "metric_time__month",
			want: core.TimeDimensionSpec{Name: "metric_time", Granularity: core.GranularityMonth},
		},
		{
			name: "time dimension with date_part only",
			in:   "ds__dow",
			want: core.TimeDimensionSpec{Name: "ds", Granularity: core.GranularityDay, DatePart: datePartPtr(core.DatePartDOW)},
		},
		{
			name: "time dimension with grain and date_part",
			in:   "ds__month__year",
			want: core.TimeDimensionSpec{Name: "ds", Granularity: core.GranularityMonth, DatePart: datePartPtr(core.DatePartYear)},
		},
		{
			name: "bare entity reference",
			in:   "listing",
			want: core.EntitySpec{Name: "listing"},
		},
		{
			name: "entity-linked entity reference",
			in:   "listing__host",
			want: core.EntitySpec{Name: "host", EntityLinks: core.EntityLinkPath{{Name: "listing"}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseName(idx, tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseNameErrors(t *testing.T) {
	idx := testIndex(t)

	tests := []struct {
		name string
		in   string
	}{
		{name: "empty name", in: ""},
		{name: "unknown element", in: "no_such_dimension"},
		{name: "categorical dimension with grain suffix", in: "is_instant__month"},
		{name: "time dimension with garbage suffix", in: "ds__not_a_grain"},
		{name: "time dimension with too many suffix tokens", in: "ds__day__day__day"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseName(idx, tt.in)
			require.Error(t, err)
			var parseErr interface{ Error() string }
			require.ErrorAs(t, err, &parseErr)
		})
	}
}

// TestParseNameRoundTrip pins spec.md §8's round-trip property:
// parse(canonical_name(spec)) == spec.
func TestParseNameRoundTrip(t *testing.T) {
	idx := testIndex(t)

	specs := []core.LinkableSpec{
		core.DimensionSpec{Name: "is_instant"},
		core.DimensionSpec{Name: "country_latest", EntityLinks: core.EntityLinkPath{{Name: "listing"}}},
		core.TimeDimensionSpec{Name: "metric_time", Granularity: core.GranularityDay},
		core.TimeDimensionSpec{Name: "metric_time", Granularity: core.GranularityMonth},
		core.TimeDimensionSpec{Name: "ds", Granularity: core.GranularityDay, DatePart: datePartPtr(core.DatePartDOW)},
		core.EntitySpec{Name: "listing"},
		core.EntitySpec{Name: "host", EntityLinks: core.EntityLinkPath{{Name: "listing"}}},
	}

	for _, spec := range specs {
		t.Run(spec.QualifiedName(), func(t *testing.T) {
			roundTripped, err := ParseName(idx, CanonicalName(spec))
			require.NoError(t, err)
			assert.Equal(t, spec, roundTripped)
		})
	}
}

func TestParseMetricName(t *testing.T) {
	assert.Equal(t, core.MetricReference{Name: "bookings"}, ParseMetricName("bookings"))
}

func datePartPtr(d core.DatePart) *core.DatePart { return &d }
