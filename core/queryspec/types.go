// Package queryspec canonicalizes user-facing names into specs and carries
// the planner's top-level query input type. Grounded on
// datalog/parser/parser.go's recursive-descent, plain-(T, error)-returning
// style, applied to the canonical name grammar of spec.md §4.6 rather than
// EDN.
package queryspec

import "github.com/metricflow-go/planner/core"

// TimeRangeConstraint bounds a query to a closed date range. Dates are
// carried as ISO-8601 strings (YYYY-MM-DD): the core never parses or
// compares them, it only threads them through to a WhereConstraintNode for
// the external SQL renderer to interpret against the warehouse's date type.
type TimeRangeConstraint struct {
	Start string
	End   string
}

// MetricFlowQuerySpec is the planner's input: a user-level request for one
// or more metrics, grouped by zero or more linkable specs, constrained,
// ordered, and optionally limited.
type MetricFlowQuerySpec struct {
	Metrics        []core.MetricSpec
	Dimensions     []core.DimensionSpec
	TimeDimensions []core.TimeDimensionSpec
	Entities       []core.EntitySpec
	OrderBy        []core.OrderBySpec
	Limit          *int
	TimeRange      *TimeRangeConstraint
	WhereFilter    *core.WhereFilterSpec
	MinMaxOnly     bool
}

// GroupBySpecs returns every requested dimension, time-dimension, and entity
// spec as a single LinkableSpec slice, the form the linkable-spec resolver
// and the dataflow builder both consume.
func (q MetricFlowQuerySpec) GroupBySpecs() []core.LinkableSpec {
	out := make([]core.LinkableSpec, 0, len(q.Dimensions)+len(q.TimeDimensions)+len(q.Entities))
	for _, d := range q.Dimensions {
		out = append(out, d)
	}
	for _, td := range q.TimeDimensions {
		out = append(out, td)
	}
	for _, e := range q.Entities {
		out = append(out, e)
	}
	return out
}

// MetricReferences returns the plain references of every requested metric,
// the form the metric expander and linkable-spec resolver key their
// per-metric lookups by.
func (q MetricFlowQuerySpec) MetricReferences() []core.MetricReference {
	out := make([]core.MetricReference, len(q.Metrics))
	for i, m := range q.Metrics {
		out[i] = core.MetricReference{Name: m.Name}
	}
	return out
}

// RequestsTimeDimension reports whether the query asks for any time
// dimension, a precondition for the time-spine join described in
// spec.md §4.5 step 6.
func (q MetricFlowQuerySpec) RequestsTimeDimension() bool {
	return len(q.TimeDimensions) > 0
}
