package queryspec

import (
	"github.com/metricflow-go/planner/core"
	"github.com/metricflow-go/planner/core/index"
)

// MetricInput names a requested metric plus the raw where-filter template
// (if any) and offset context that applies only to that reference, the
// user-facing counterpart of core.MetricSpec.
type MetricInput struct {
	Name          string
	Constraint    string
	Alias         string
	OffsetWindow  *core.TimeOffset
	OffsetToGrain *core.Granularity
}

// QueryRequest is the planner's user-facing query surface: every name is a
// raw canonical-grammar string, not yet resolved against a semantic index.
// BuildQuerySpec is the one function that turns this into a
// MetricFlowQuerySpec the dataflow builder accepts.
type QueryRequest struct {
	Metrics      []MetricInput
	GroupBy      []string // canonical names; resolved to Dimension/TimeDimension/Entity specs by grammar
	WhereFilter  string
	OrderBy      []OrderByInput
	Limit        *int
	TimeRange    *TimeRangeConstraint
	MinMaxOnly   bool
}

// OrderByInput orders by a raw group-by or metric name.
type OrderByInput struct {
	Name       string
	Descending bool
}

// BuildQuerySpec canonicalizes every name in req against idx, producing a
// MetricFlowQuerySpec. It does not itself validate reachability - that is
// the dataflow builder's job (spec.md §4.5 step 2) - only that each name
// parses under the canonical grammar.
func BuildQuerySpec(idx *index.Index, req QueryRequest) (MetricFlowQuerySpec, error) {
	q := MetricFlowQuerySpec{Limit: req.Limit, TimeRange: req.TimeRange, MinMaxOnly: req.MinMaxOnly}

	for _, mi := range req.Metrics {
		spec := core.MetricSpec{Name: mi.Name, Alias: mi.Alias, OffsetWindow: mi.OffsetWindow, OffsetToGrain: mi.OffsetToGrain}
		if mi.Constraint != "" {
			filter, err := ResolveWhereFilter(idx, mi.Constraint)
			if err != nil {
				return MetricFlowQuerySpec{}, err
			}
			spec.Constraint = filter
		}
		q.Metrics = append(q.Metrics, spec)
	}

	for _, name := range req.GroupBy {
		spec, err := ParseName(idx, name)
		if err != nil {
			return MetricFlowQuerySpec{}, err
		}
		switch s := spec.(type) {
		case core.DimensionSpec:
			q.Dimensions = append(q.Dimensions, s)
		case core.TimeDimensionSpec:
			q.TimeDimensions = append(q.TimeDimensions, s)
		case core.EntitySpec:
			q.Entities = append(q.Entities, s)
		}
	}

	if req.WhereFilter != "" {
		filter, err := ResolveWhereFilter(idx, req.WhereFilter)
		if err != nil {
			return MetricFlowQuerySpec{}, err
		}
		q.WhereFilter = filter
	}

	for _, ob := range req.OrderBy {
		order, err := resolveOrderBy(idx, ob)
		if err != nil {
			return MetricFlowQuerySpec{}, err
		}
		q.OrderBy = append(q.OrderBy, order)
	}

	return q, nil
}

func resolveOrderBy(idx *index.Index, ob OrderByInput) (core.OrderBySpec, error) {
	if spec, err := ParseName(idx, ob.Name); err == nil {
		return core.OrderBySpec{Instance: spec, Descending: ob.Descending}, nil
	}
	return core.OrderBySpec{MetricName: ob.Name, Descending: ob.Descending}, nil
}
