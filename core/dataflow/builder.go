package dataflow

import (
	"github.com/metricflow-go/planner/core"
	"github.com/metricflow-go/planner/core/index"
	"github.com/metricflow-go/planner/core/joingraph"
	"github.com/metricflow-go/planner/core/linkable"
	"github.com/metricflow-go/planner/core/manifest"
	"github.com/metricflow-go/planner/core/metric"
	"github.com/metricflow-go/planner/core/queryspec"
	"github.com/metricflow-go/planner/planerrors"
)

// Builder orchestrates the dataflow plan algorithm of spec.md §4.5: expand
// metrics, validate reachability, build a per-measure subplan, combine,
// compute final metrics, time-spine join, filter, order/limit, sink.
// Its field shape - an index plus stateless collaborators plus a counter in
// place of the teacher's PlanCache - follows planner.Planner, with caching
// dropped (see DESIGN.md).
type Builder struct {
	idx       *index.Index
	expander  *metric.Expander
	linkables *linkable.Resolver
	joins     *joingraph.Resolver
	nextID    int
}

// NewBuilder creates a Builder bounded to the join-graph's default hop
// count.
func NewBuilder(idx *index.Index) *Builder {
	return &Builder{
		idx:       idx,
		expander:  metric.New(idx),
		linkables: linkable.New(idx, joingraph.MaxJoinHops),
		joins:     joingraph.New(idx, joingraph.MaxJoinHops),
	}
}

func (b *Builder) allocID() int {
	b.nextID++
	return b.nextID
}

// expandedSubplan is one leaf measure's fully-resolved contribution: its
// expanded input plus the aggregate node at the top of its subplan.
type expandedSubplan struct {
	expanded  metric.ExpandedMeasure
	topMetric core.MetricSpec
	aggregate Node
}

// BuildPlan implements build_plan: a metric query over the semantic model.
func (b *Builder) BuildPlan(q queryspec.MetricFlowQuerySpec) (*Plan, error) {
	groupBys := q.GroupBySpecs()

	// Step 1: expand each requested metric to its input measure specs.
	var subplans []expandedSubplan
	metricTypes := make(map[string]manifest.MetricType)
	for _, topMetric := range q.Metrics {
		ref := core.MetricReference{Name: topMetric.Name}
		m, err := b.idx.GetMetric(ref)
		if err != nil {
			return nil, err
		}
		metricTypes[topMetric.Name] = m.Type

		expanded, err := b.expander.ExpandToMeasures(ref)
		if err != nil {
			return nil, err
		}
		for _, exp := range expanded {
			if topMetric.Constraint != nil {
				combined := exp.Input.Constraint
				if combined == nil {
					combined = topMetric.Constraint
				} else {
					c := combined.Combine(*topMetric.Constraint)
					combined = &c
				}
				exp.Input.Constraint = combined
			}
			subplans = append(subplans, expandedSubplan{expanded: exp, topMetric: topMetric})
		}
	}

	// Step 2: validate every requested linkable is reachable from every
	// requested metric (the intersection property, spec.md §8).
	if err := b.validateReachability(q.MetricReferences(), groupBys); err != nil {
		return nil, err
	}

	// Step 3: per-measure subplans.
	for i := range subplans {
		agg, err := b.buildMeasureSubplan(subplans[i].expanded, groupBys, q.TimeRange, q.WhereFilter)
		if err != nil {
			return nil, err
		}
		subplans[i].aggregate = agg
	}

	// Step 4: combine per-measure outputs.
	var combined Node
	if len(subplans) == 1 {
		combined = subplans[0].aggregate
	} else {
		parents := make([]Node, len(subplans))
		for i, s := range subplans {
			parents[i] = s.aggregate
		}
		combined = CombineAggregatedOutputsNode{base: base{id: b.allocID(), parents: parents}}
	}

	// Step 5: compute final metric expressions.
	expressions := b.buildMetricExpressions(q.Metrics, subplans, metricTypes)
	computed := ComputeMetricsNode{base: base{id: b.allocID(), parents: []Node{combined}}, Metrics: expressions}
	var current Node = computed

	// Step 6: time-spine join for null-fill, or to preserve offset-shifted
	// rows, whenever a time dimension is requested. A plain CUMULATIVE
	// metric with no fill request and no offset (scenario 4) does not need
	// one - its window is self-contained in CumulativeWindowNode.
	fillZeroRequested, err := b.anyFillZero(q.Metrics)
	if err != nil {
		return nil, err
	}
	var offset *core.TimeOffset
	for _, s := range subplans {
		if s.expanded.OffsetWindow != nil {
			offset = s.expanded.OffsetWindow
			break
		}
	}
	if q.RequestsTimeDimension() && (fillZeroRequested || offset != nil) {
		grain := requestedGrain(q.TimeDimensions)
		fill := manifest.FillNone
		if fillZeroRequested {
			fill = manifest.FillZero
		}
		current = JoinToTimeSpineNode{
			base:        base{id: b.allocID(), parents: []Node{current}},
			Granularity: grain,
			Offset:      offset,
			Fill:        fill,
		}
	}

	// Step 7: remaining post-aggregation where filters.
	if q.WhereFilter != nil && !q.WhereFilter.IsEmpty() && !allLocalToSubplans(*q.WhereFilter) {
		current = WhereConstraintNode{base: base{id: b.allocID(), parents: []Node{current}}, Predicate: *q.WhereFilter}
	}

	// Step 8: order/limit.
	if len(q.OrderBy) > 0 || q.Limit != nil {
		if err := b.validateOrderBy(q.OrderBy, groupBys, q.Metrics); err != nil {
			return nil, err
		}
		current = OrderByLimitNode{base: base{id: b.allocID(), parents: []Node{current}}, Order: q.OrderBy, Limit: q.Limit}
	}

	// Step 9: sink.
	sink := WriteToResultDataframeNode{base: base{id: b.allocID(), parents: []Node{current}}}
	return &Plan{Sink: sink}, nil
}

func (b *Builder) validateReachability(metricRefs []core.MetricReference, requested []core.LinkableSpec) error {
	reachable, err := b.linkables.ElementSpecsForMetrics(metricRefs, 0, 0)
	if err != nil {
		return err
	}
	reachableNames := make(map[string]bool, len(reachable))
	for _, ts := range reachable {
		reachableNames[ts.Spec.QualifiedName()] = true
	}
	for _, spec := range requested {
		if !reachableNames[spec.QualifiedName()] {
			return planerrors.UnableToSatisfyQueryError{RequestedName: spec.QualifiedName()}
		}
	}
	return nil
}

func (b *Builder) validateOrderBy(order []core.OrderBySpec, groupBys []core.LinkableSpec, metrics []core.MetricSpec) error {
	available := make(map[string]bool)
	for _, g := range groupBys {
		available[g.QualifiedName()] = true
	}
	for _, m := range metrics {
		available[m.ResultName()] = true
	}
	for _, o := range order {
		if !available[o.QualifiedName()] {
			return planerrors.UnableToSatisfyQueryError{RequestedName: o.QualifiedName(), Reason: "order_by must reference a spec present in the query output"}
		}
	}
	return nil
}

func (b *Builder) buildMetricExpressions(topMetrics []core.MetricSpec, subplans []expandedSubplan, metricTypes map[string]manifest.MetricType) []MetricExpression {
	byTopMetric := make(map[string][]string)
	for _, s := range subplans {
		name := s.topMetric.Name
		byTopMetric[name] = append(byTopMetric[name], s.expanded.Input.ResultName())
	}

	expressions := make([]MetricExpression, 0, len(topMetrics))
	for _, m := range topMetrics {
		fillZero := false
		if mm, err := b.idx.GetMetric(core.MetricReference{Name: m.Name}); err == nil {
			fillZero = mm.FillNullsWith == manifest.FillZero
		}
		expressions = append(expressions, MetricExpression{
			Metric:            core.MetricReference{Name: m.Name},
			Kind:              metricTypes[m.Name],
			InputColumns:      byTopMetric[m.Name],
			FillNullsWithZero: fillZero,
		})
	}
	return expressions
}

// anyFillZero reports whether any requested metric is configured in the
// semantic model with fill_nulls_with:0.
func (b *Builder) anyFillZero(metrics []core.MetricSpec) (bool, error) {
	for _, m := range metrics {
		mm, err := b.idx.GetMetric(core.MetricReference{Name: m.Name})
		if err != nil {
			return false, err
		}
		if mm.FillNullsWith == manifest.FillZero {
			return true, nil
		}
	}
	return false, nil
}

func requestedGrain(timeDims []core.TimeDimensionSpec) core.Granularity {
	finest := core.GranularityYear
	for _, td := range timeDims {
		if td.Granularity < finest {
			finest = td.Granularity
		}
	}
	return finest
}

func allLocalToSubplans(filter core.WhereFilterSpec) bool {
	for _, ref := range filter.ReferencedSpecs {
		if len(refEntityLinks(ref)) > 0 {
			return false
		}
	}
	return true
}

// sentinelLink is a one-element path returned for a LinkableSpec kind the
// builder doesn't recognize (e.g. a where-filter's Metric(...) token),
// so allLocalToSubplans conservatively treats it as non-local rather than
// risking an early filter push past a join it can't actually precede.
var sentinelLink = core.EntityLinkPath{core.EntityReference{Name: "__unrecognized__"}}

func refEntityLinks(spec core.LinkableSpec) core.EntityLinkPath {
	switch s := spec.(type) {
	case core.DimensionSpec:
		return s.EntityLinks
	case core.TimeDimensionSpec:
		return s.EntityLinks
	case core.EntitySpec:
		return s.EntityLinks
	default:
		return sentinelLink
	}
}
