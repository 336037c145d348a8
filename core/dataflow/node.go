// Package dataflow builds and represents the DataflowPlan DAG: a tree of
// relational operator nodes (read, join, filter, aggregate, combine,
// compute-metrics, time-spine join, cumulative window, order/limit, sink)
// that an external SQL renderer lowers into a statement. The node hierarchy
// is realized as a closed interface with an unexported marker method,
// following query.Clause's clause() marker-method pattern in
// datalog/query/types.go; Builder's shape (index + stateless collaborators +
// a monotonic node-id counter) follows planner.Planner in datalog/planner/planner.go,
// with the teacher's PlanCache dropped since planning never touches I/O.
//
// File organization:
//   - node.go: the Node interface and its 13 concrete kinds
//   - plan.go: Plan, its textual structural dump, and its tablewriter dump
//   - builder.go: Builder and the build_plan orchestration (§4.5 steps 1-2, 4-9)
//   - builder_measure.go: per-measure subplan construction (§4.5 step 3)
//   - distinct.go: build_plan_for_distinct_values and min_max_only
package dataflow

import (
	"fmt"
	"strings"

	"github.com/metricflow-go/planner/core"
	"github.com/metricflow-go/planner/core/joingraph"
	"github.com/metricflow-go/planner/core/manifest"
)

// Node is implemented by every dataflow plan operator. The marker method
// closes the set to the 13 kinds below.
type Node interface {
	ID() int
	Parents() []Node
	Describe() string
	node()
}

type base struct {
	id      int
	parents []Node
}

func (b base) ID() int         { return b.id }
func (b base) Parents() []Node { return b.parents }
func (b base) node()           {}

// ReadSqlSourceNode is a leaf: a scan of one data source's backing table.
type ReadSqlSourceNode struct {
	base
	DataSource core.DataSourceReference
}

func (n ReadSqlSourceNode) Describe() string {
	return fmt.Sprintf("ReadSqlSourceNode(data_source=%s)", n.DataSource.Name)
}

// JoinDescription is one hop of a JoinToBaseNode: the join itself plus the
// columns the right side must retain downstream.
type JoinDescription struct {
	Hop  joingraph.Hop
	Keep []core.LinkableSpec
}

func (d JoinDescription) String() string {
	keep := make([]string, len(d.Keep))
	for i, k := range d.Keep {
		keep[i] = k.QualifiedName()
	}
	return fmt.Sprintf("%s -[%s]-> %s (keep: %s)", d.Hop.FromDataSource.Name, d.Hop.JoinEntity.Name, d.Hop.ToDataSource.Name, strings.Join(keep, ", "))
}

// JoinToBaseNode joins one or more additional data sources onto its parent,
// one JoinDescription per hop required to acquire the subplan's requested
// linkables.
type JoinToBaseNode struct {
	base
	Links []JoinDescription
}

func (n JoinToBaseNode) Describe() string {
	parts := make([]string, len(n.Links))
	for i, l := range n.Links {
		parts[i] = l.String()
	}
	return fmt.Sprintf("JoinToBaseNode(%s)", strings.Join(parts, "; "))
}

// WhereConstraintNode applies a predicate: a time-range constraint, a
// local-only where-filter pushed before a join, a post-join where-filter, or
// a measure-level filter.
type WhereConstraintNode struct {
	base
	Predicate core.WhereFilterSpec
}

func (n WhereConstraintNode) Describe() string {
	return fmt.Sprintf("WhereConstraintNode(%s)", n.Predicate.WhereSQL)
}

// FilterElementsNode projects its input down to exactly the specs it keeps,
// used to push only the needed columns across a join or into an aggregate.
type FilterElementsNode struct {
	base
	Keep []core.LinkableSpec
}

func (n FilterElementsNode) Describe() string {
	keep := make([]string, len(n.Keep))
	for i, k := range n.Keep {
		keep[i] = k.QualifiedName()
	}
	return fmt.Sprintf("FilterElementsNode(keep=[%s])", strings.Join(keep, ", "))
}

// AggregateMeasuresNode groups its input by GroupBy and aggregates Measures,
// applying semi-additive rules for any measure carrying a non-additive
// dimension.
type AggregateMeasuresNode struct {
	base
	Measures         []core.MetricInputMeasureSpec
	GroupBy          []core.LinkableSpec
	NonAdditiveRules []core.NonAdditiveDimensionSpec
}

func (n AggregateMeasuresNode) Describe() string {
	measures := make([]string, len(n.Measures))
	for i, m := range n.Measures {
		measures[i] = m.ResultName()
	}
	groupBy := make([]string, len(n.GroupBy))
	for i, g := range n.GroupBy {
		groupBy[i] = g.QualifiedName()
	}
	return fmt.Sprintf("AggregateMeasuresNode(measures=[%s], group_by=[%s])", strings.Join(measures, ", "), strings.Join(groupBy, ", "))
}

// MetricExpression is one requested metric's computation over the already
// aggregated and combined input columns (any time-spine join comes after
// ComputeMetricsNode): the contributing column names, in the order the
// metric type needs them (numerator, denominator for RATIO; one per expanded
// input measure for DERIVED; one name otherwise).
type MetricExpression struct {
	Metric            core.MetricReference
	Kind              manifest.MetricType
	InputColumns      []string
	FillNullsWithZero bool
}

func (e MetricExpression) String() string {
	return fmt.Sprintf("%s=%s(%s)", e.Metric.Name, e.Kind, strings.Join(e.InputColumns, ", "))
}

// ComputeMetricsNode evaluates the final metric expressions (ratio division,
// derived arithmetic) over the combined aggregate output.
type ComputeMetricsNode struct {
	base
	Metrics []MetricExpression
}

func (n ComputeMetricsNode) Describe() string {
	parts := make([]string, len(n.Metrics))
	for i, m := range n.Metrics {
		parts[i] = m.String()
	}
	return fmt.Sprintf("ComputeMetricsNode(%s)", strings.Join(parts, "; "))
}

// OrderByLimitNode sorts and optionally truncates the final result set.
type OrderByLimitNode struct {
	base
	Order []core.OrderBySpec
	Limit *int
}

func (n OrderByLimitNode) Describe() string {
	parts := make([]string, len(n.Order))
	for i, o := range n.Order {
		dir := "asc"
		if o.Descending {
			dir = "desc"
		}
		parts[i] = fmt.Sprintf("%s %s", o.QualifiedName(), dir)
	}
	limit := "none"
	if n.Limit != nil {
		limit = fmt.Sprintf("%d", *n.Limit)
	}
	return fmt.Sprintf("OrderByLimitNode(order=[%s], limit=%s)", strings.Join(parts, ", "), limit)
}

// JoinToTimeSpineNode joins its input against the model's dense time spine
// at the given granularity, optionally shifted by Offset, to null-fill rows
// missing from the data. Fill selects the post-join null-fill strategy.
type JoinToTimeSpineNode struct {
	base
	Granularity core.Granularity
	Offset      *core.TimeOffset
	Fill        manifest.FillNullsWith
}

func (n JoinToTimeSpineNode) Describe() string {
	offset := "none"
	if n.Offset != nil {
		offset = n.Offset.String()
	}
	fill := "NULL"
	if n.Fill == manifest.FillZero {
		fill = "ZERO"
	}
	return fmt.Sprintf("JoinToTimeSpineNode(grain=%s, offset=%s, fill=%s)", n.Granularity, offset, fill)
}

// CumulativeWindowNode aggregates its input measure over a trailing window,
// since the start of the enclosing grain, or (if both are nil) over all
// time up to each row.
type CumulativeWindowNode struct {
	base
	Window  *core.TimeOffset
	ToGrain *core.Granularity
}

func (n CumulativeWindowNode) Describe() string {
	switch {
	case n.Window != nil:
		return fmt.Sprintf("CumulativeWindowNode(window=%s)", n.Window)
	case n.ToGrain != nil:
		return fmt.Sprintf("CumulativeWindowNode(grain_to_date=%s)", n.ToGrain)
	default:
		return "CumulativeWindowNode(all_time)"
	}
}

// CombineAggregatedOutputsNode full-outer-joins two or more per-measure
// aggregate outputs on their common group-by keys; rows missing from one
// side yield NULL for that side's measure.
type CombineAggregatedOutputsNode struct {
	base
}

func (n CombineAggregatedOutputsNode) Describe() string { return "CombineAggregatedOutputsNode()" }

// MinMaxNode collapses its input to a two-row min/max output over the
// requested column values, used by build_plan_for_distinct_values's
// min_max_only mode.
type MinMaxNode struct {
	base
	Specs []core.LinkableSpec
}

func (n MinMaxNode) Describe() string {
	specs := make([]string, len(n.Specs))
	for i, s := range n.Specs {
		specs[i] = s.QualifiedName()
	}
	return fmt.Sprintf("MinMaxNode(specs=[%s])", strings.Join(specs, ", "))
}

// DistinctValuesNode de-duplicates its input down to distinct tuples over
// GroupBy, with no metric aggregation.
type DistinctValuesNode struct {
	base
	GroupBy []core.LinkableSpec
}

func (n DistinctValuesNode) Describe() string {
	groupBy := make([]string, len(n.GroupBy))
	for i, g := range n.GroupBy {
		groupBy[i] = g.QualifiedName()
	}
	return fmt.Sprintf("DistinctValuesNode(group_by=[%s])", strings.Join(groupBy, ", "))
}

// WriteToResultDataframeNode is the plan's single sink.
type WriteToResultDataframeNode struct {
	base
}

func (n WriteToResultDataframeNode) Describe() string { return "WriteToResultDataframeNode()" }
