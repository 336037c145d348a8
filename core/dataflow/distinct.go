package dataflow

import (
	"github.com/metricflow-go/planner/core"
	"github.com/metricflow-go/planner/core/manifest"
	"github.com/metricflow-go/planner/core/queryspec"
	"github.com/metricflow-go/planner/planerrors"
)

// BuildPlanForDistinctValues implements build_plan_for_distinct_values: a
// query with no metrics, producing distinct tuples over the requested
// group-bys (or, with MinMaxOnly, the two-row min/max collapse of
// spec.md §4.5's edge cases).
func (b *Builder) BuildPlanForDistinctValues(q queryspec.MetricFlowQuerySpec) (*Plan, error) {
	if len(q.Metrics) != 0 {
		return nil, planerrors.UnableToSatisfyQueryError{RequestedName: "distinct_values", Reason: "build_plan_for_distinct_values does not accept metrics"}
	}
	groupBys := q.GroupBySpecs()
	if len(groupBys) == 0 {
		return nil, planerrors.UnableToSatisfyQueryError{RequestedName: "distinct_values", Reason: "at least one dimension, time dimension, or entity must be requested"}
	}

	ds, err := b.dataSourceForLinkables(groupBys)
	if err != nil {
		return nil, err
	}

	var current Node = ReadSqlSourceNode{base: base{id: b.allocID()}, DataSource: ds.Reference()}

	links, err := b.resolveJoinDescriptions(ds, groupBys)
	if err != nil {
		return nil, err
	}
	if len(links) > 0 {
		current = JoinToBaseNode{base: base{id: b.allocID(), parents: []Node{current}}, Links: links}
	}

	if q.WhereFilter != nil && !q.WhereFilter.IsEmpty() {
		current = WhereConstraintNode{base: base{id: b.allocID(), parents: []Node{current}}, Predicate: *q.WhereFilter}
	}

	keep := make([]core.LinkableSpec, len(groupBys))
	copy(keep, groupBys)
	current = FilterElementsNode{base: base{id: b.allocID(), parents: []Node{current}}, Keep: keep}

	if q.MinMaxOnly {
		// min_max_only collapses to two rows of min/max column values,
		// ignoring any requested granularity bucketing (spec.md §4.5 edge
		// cases).
		current = MinMaxNode{base: base{id: b.allocID(), parents: []Node{current}}, Specs: groupBys}
	} else {
		current = DistinctValuesNode{base: base{id: b.allocID(), parents: []Node{current}}, GroupBy: groupBys}
	}

	if len(q.OrderBy) > 0 || q.Limit != nil {
		current = OrderByLimitNode{base: base{id: b.allocID(), parents: []Node{current}}, Order: q.OrderBy, Limit: q.Limit}
	}

	sink := WriteToResultDataframeNode{base: base{id: b.allocID(), parents: []Node{current}}}
	return &Plan{Sink: sink}, nil
}

// dataSourceForLinkables picks the data source to read from when no metric
// anchors the query: for the first requested linkable with an empty
// entity-link path that some source holds locally, the first such source in
// name order; otherwise the first source in name order from which every
// requested linkable can be joined.
func (b *Builder) dataSourceForLinkables(specs []core.LinkableSpec) (manifest.DataSource, error) {
	for _, spec := range specs {
		if len(refEntityLinks(spec)) == 0 {
			for _, name := range b.idx.DataSourceNames() {
				ds, err := b.idx.DataSource(core.DataSourceReference{Name: name})
				if err != nil {
					return manifest.DataSource{}, err
				}
				if isLocalToDataSource(ds, spec) {
					return ds, nil
				}
			}
		}
	}
	for _, name := range b.idx.DataSourceNames() {
		ds, err := b.idx.DataSource(core.DataSourceReference{Name: name})
		if err != nil {
			return manifest.DataSource{}, err
		}
		if _, err := b.resolveJoinDescriptions(ds, specs); err == nil {
			return ds, nil
		}
	}
	return manifest.DataSource{}, planerrors.UnableToSatisfyQueryError{RequestedName: specs[0].QualifiedName(), Reason: "no data source can satisfy every requested linkable"}
}
