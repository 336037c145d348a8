package dataflow

import (
	"sort"

	"github.com/metricflow-go/planner/core"
	"github.com/metricflow-go/planner/core/index"
	"github.com/metricflow-go/planner/core/joingraph"
	"github.com/metricflow-go/planner/core/manifest"
	"github.com/metricflow-go/planner/core/metric"
	"github.com/metricflow-go/planner/core/queryspec"
	"github.com/metricflow-go/planner/planerrors"
)

// buildMeasureSubplan implements spec.md §4.5 step 3: the per-measure
// subplan from a source read through aggregation (and, for CUMULATIVE
// measures, the cumulative window).
func (b *Builder) buildMeasureSubplan(exp metric.ExpandedMeasure, groupBys []core.LinkableSpec, timeRange *queryspec.TimeRangeConstraint, whereFilter *core.WhereFilterSpec) (Node, error) {
	measRef := core.MeasureReference{Name: exp.Input.MeasureSpec.Name}
	_, ds, err := b.idx.GetMeasure(measRef)
	if err != nil {
		return nil, err
	}

	var current Node = ReadSqlSourceNode{base: base{id: b.allocID()}, DataSource: ds.Reference()}

	localWhere := whereFilter != nil && !whereFilter.IsEmpty() && allLocalToSubplans(*whereFilter)
	if localWhere {
		current = WhereConstraintNode{base: base{id: b.allocID(), parents: []Node{current}}, Predicate: *whereFilter}
	}

	links, err := b.resolveJoinDescriptions(ds, groupBys)
	if err != nil {
		return nil, err
	}
	if len(links) > 0 {
		current = JoinToBaseNode{base: base{id: b.allocID(), parents: []Node{current}}, Links: links}
	}

	if timeRange != nil {
		pred := core.WhereFilterSpec{WhereSQL: timeRangeSQL(*timeRange)}
		current = WhereConstraintNode{base: base{id: b.allocID(), parents: []Node{current}}, Predicate: pred}
	}
	if whereFilter != nil && !whereFilter.IsEmpty() && !localWhere {
		current = WhereConstraintNode{base: base{id: b.allocID(), parents: []Node{current}}, Predicate: *whereFilter}
	}
	if exp.Input.Constraint != nil && !exp.Input.Constraint.IsEmpty() {
		current = WhereConstraintNode{base: base{id: b.allocID(), parents: []Node{current}}, Predicate: *exp.Input.Constraint}
	}

	keep := make([]core.LinkableSpec, len(groupBys))
	copy(keep, groupBys)
	current = FilterElementsNode{base: base{id: b.allocID(), parents: []Node{current}}, Keep: keep}

	var nonAdditive []core.NonAdditiveDimensionSpec
	if exp.Input.MeasureSpec.NonAdditiveDimension != nil {
		nonAdditive = append(nonAdditive, *exp.Input.MeasureSpec.NonAdditiveDimension)
	}
	current = AggregateMeasuresNode{
		base:             base{id: b.allocID(), parents: []Node{current}},
		Measures:         []core.MetricInputMeasureSpec{exp.Input},
		GroupBy:          groupBys,
		NonAdditiveRules: nonAdditive,
	}

	if exp.Cumulative != nil {
		current = CumulativeWindowNode{
			base:    base{id: b.allocID(), parents: []Node{current}},
			Window:  exp.Cumulative.Window,
			ToGrain: exp.Cumulative.GrainToDate,
		}
	}

	return current, nil
}

func timeRangeSQL(tr queryspec.TimeRangeConstraint) string {
	return "metric_time BETWEEN '" + tr.Start + "' AND '" + tr.End + "'"
}

// pathGroup collects the requested linkables that all share the same
// entity-link path from a measure's owning data source, so they can be
// satisfied by a single join chain.
type pathGroup struct {
	path  core.EntityLinkPath
	specs []core.LinkableSpec
}

// resolveJoinDescriptions computes, for a measure's owning data source, the
// JoinDescriptions needed to acquire every requested linkable not already
// local to ds. Linkables that share an entity-link path are grouped so the
// shared hop chain is resolved once; the final hop of each chain keeps the
// group's specs.
func (b *Builder) resolveJoinDescriptions(ds manifest.DataSource, requested []core.LinkableSpec) ([]JoinDescription, error) {
	groups := make(map[string]*pathGroup)
	var order []string
	for _, spec := range requested {
		path := refEntityLinks(spec)
		if len(path) == 0 && isLocalToDataSource(ds, spec) {
			continue
		}
		key := path.Key()
		g, ok := groups[key]
		if !ok {
			g = &pathGroup{path: path}
			groups[key] = g
			order = append(order, key)
		}
		g.specs = append(g.specs, spec)
	}
	sort.Strings(order)

	byHopKey := make(map[string]*JoinDescription)
	var hopOrder []string
	for _, key := range order {
		group := groups[key]
		if len(group.path) == 0 {
			return nil, planerrors.UnableToSatisfyQueryError{RequestedName: group.specs[0].QualifiedName(), Reason: "not local to the measure's data source and carries no entity-link path"}
		}
		hops, err := b.resolveHopChain(ds, group.path)
		if err != nil {
			return nil, err
		}
		for i, hop := range hops {
			hopKey := hop.FromDataSource.Name + "->" + hop.ToDataSource.Name + "/" + hop.JoinEntity.Name
			desc, exists := byHopKey[hopKey]
			if !exists {
				desc = &JoinDescription{Hop: hop}
				byHopKey[hopKey] = desc
				hopOrder = append(hopOrder, hopKey)
			}
			if i == len(hops)-1 {
				desc.Keep = append(desc.Keep, group.specs...)
			}
		}
	}

	sort.Strings(hopOrder)
	links := make([]JoinDescription, len(hopOrder))
	for i, key := range hopOrder {
		links[i] = *byHopKey[key]
	}
	return links, nil
}

// resolveHopChain walks path one entity at a time from ds, picking at each
// step the valid (cardinality-checked) neighbor over that entity using the
// same shortest/overlap/lexicographic discipline as joingraph.ChooseBestPath,
// specialized to a single hop so it stays deterministic without needing a
// full target-directed search. When two or more data sources qualify for the
// same hop and tie on overlap - leaving nothing but an arbitrary name order
// to prefer one - that is the multi-hop-ambiguous case spec.md §4.3 and §8
// scenario 6 call out, and it fails the query rather than silently picking
// one (see also joingraph.AmbiguousAfterTieBreak, which catches the narrower
// case of two candidates reaching the same data source over different
// entities).
func (b *Builder) resolveHopChain(start manifest.DataSource, path core.EntityLinkPath) ([]joingraph.Hop, error) {
	hops := make([]joingraph.Hop, 0, len(path))
	current := start
	visited := map[string]bool{start.Name: true}

	for _, entityRef := range path {
		neighbors, err := b.joins.Neighbors(current.Reference(), visited)
		if err != nil {
			return nil, err
		}
		var candidates []joingraph.Hop
		for _, hop := range neighbors {
			if hop.JoinEntity == entityRef {
				candidates = append(candidates, hop)
			}
		}
		if len(candidates) == 0 {
			return nil, planerrors.UnableToSatisfyQueryError{RequestedName: path.Key(), Reason: "no valid join over entity `" + entityRef.Name + "` from data source `" + current.Name + "`"}
		}
		sort.Slice(candidates, func(i, j int) bool { return candidates[i].ToDataSource.Name < candidates[j].ToDataSource.Name })

		candidatePaths := make([]joingraph.Path, len(candidates))
		for i, hop := range candidates {
			candidatePaths[i] = joingraph.Path{Hops: []joingraph.Hop{hop}}
		}
		if tiedOnOverlap(candidatePaths, visited) || joingraph.AmbiguousAfterTieBreak(candidatePaths, visited) {
			return nil, planerrors.UnableToSatisfyQueryError{
				RequestedName: path.Key(),
				Reason:        "more than one data source qualifies for entity `" + entityRef.Name + "` from data source `" + current.Name + "`, with no way to prefer one",
			}
		}
		best, ok := joingraph.ChooseBestPath(candidatePaths, visited)
		if !ok {
			return nil, planerrors.NewPlannerInvariantError("resolveHopChain: ChooseBestPath returned no result for %d non-empty candidates over entity `%s`", len(candidatePaths), entityRef.Name)
		}
		chosen := best.Hops[0]
		hops = append(hops, chosen)
		next, err := b.idx.DataSource(chosen.ToDataSource)
		if err != nil {
			return nil, planerrors.WrapPlannerInvariantError(err, "resolveHopChain: join-graph hop target `"+chosen.ToDataSource.Name+"` missing from the semantic index")
		}
		current = next
		visited[current.Name] = true
	}
	return hops, nil
}

// tiedOnOverlap reports whether two or more single-hop candidates tie on
// overlap-with-already-selected (hop count is always 1 here, so length never
// breaks the tie). ChooseBestPath would still pick one via the lexicographic
// data-source-name rule, but for join-path selection that is an arbitrary
// pick dressed up as a tie-break, not a principled one - spec.md §4.3 treats
// it as a hard failure.
func tiedOnOverlap(candidates []joingraph.Path, alreadySelected map[string]bool) bool {
	if len(candidates) < 2 {
		return false
	}
	bestOverlap := -1
	tied := 0
	for _, cand := range candidates {
		overlap := 0
		for _, ds := range cand.DataSources() {
			if alreadySelected[ds.Name] {
				overlap++
			}
		}
		switch {
		case overlap > bestOverlap:
			bestOverlap = overlap
			tied = 1
		case overlap == bestOverlap:
			tied++
		}
	}
	return tied > 1
}

func isLocalToDataSource(ds manifest.DataSource, spec core.LinkableSpec) bool {
	switch s := spec.(type) {
	case core.EntitySpec:
		_, ok := ds.GetEntity(core.EntityReference{Name: s.Name})
		return ok
	case core.DimensionSpec:
		_, ok := ds.GetDimension(s.Name)
		return ok
	case core.TimeDimensionSpec:
		if s.Name == index.MetricTimeDimensionName {
			for _, dim := range ds.Dimensions {
				if dim.IsPrimaryTimeDimension {
					return true
				}
			}
			return false
		}
		_, ok := ds.GetDimension(s.Name)
		return ok
	default:
		return false
	}
}
