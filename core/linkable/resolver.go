package linkable

import (
	"sort"

	"github.com/metricflow-go/planner/core"
	"github.com/metricflow-go/planner/core/index"
	"github.com/metricflow-go/planner/core/joingraph"
	"github.com/metricflow-go/planner/core/manifest"
)

// TaggedSpec pairs a linkable spec with the properties under which it was
// discovered.
type TaggedSpec struct {
	Spec       core.LinkableSpec
	Properties Property
}

// Resolver computes, per measure or per metric set, every linkable spec
// reachable within the join-graph's hop bound.
type Resolver struct {
	idx   *index.Index
	joins *joingraph.Resolver
}

// New creates a Resolver bounded to maxHops (0 uses joingraph.MaxJoinHops).
func New(idx *index.Index, maxHops int) *Resolver {
	return &Resolver{idx: idx, joins: joingraph.New(idx, maxHops)}
}

func depthProperty(depth int) Property {
	switch {
	case depth == 0:
		return Local
	case depth == 1:
		return Joined
	default:
		return MultiHopJoined
	}
}

// ElementSpecsForMeasure returns every linkable spec reachable from the
// data source that owns measureRef, tagged by how it was reached. This is
// the BFS described in spec.md §4.2: nodes are (data_source, entity_link
// path) pairs, edges are common entities subject to the cardinality rule,
// depth bounded by MAX_JOIN_HOPS.
func (r *Resolver) ElementSpecsForMeasure(measureRef core.MeasureReference) ([]TaggedSpec, error) {
	_, owningDS, err := r.idx.GetMeasure(measureRef)
	if err != nil {
		return nil, err
	}
	return r.elementSpecsFromDataSource(owningDS.Reference())
}

func (r *Resolver) elementSpecsFromDataSource(start core.DataSourceReference) ([]TaggedSpec, error) {
	out := make(map[string]*TaggedSpec)

	type frontierEntry struct {
		ds      core.DataSourceReference
		path    core.EntityLinkPath
		depth   int
		visited map[string]bool
	}

	frontier := []frontierEntry{{ds: start, path: nil, depth: 0, visited: map[string]bool{start.Name: true}}}

	for len(frontier) > 0 {
		var next []frontierEntry
		for _, entry := range frontier {
			ds, err := r.idx.DataSource(entry.ds)
			if err != nil {
				return nil, err
			}
			prop := depthProperty(entry.depth)
			r.emitSpecsForDataSource(out, ds, entry.path, prop)

			if entry.depth >= r.joins.MaxHops() {
				continue
			}
			hops, err := r.joins.Neighbors(entry.ds, entry.visited)
			if err != nil {
				return nil, err
			}
			for _, hop := range hops {
				newPath := append(entry.path.Clone(), hop.JoinEntity)
				newVisited := make(map[string]bool, len(entry.visited)+1)
				for k := range entry.visited {
					newVisited[k] = true
				}
				newVisited[hop.ToDataSource.Name] = true
				next = append(next, frontierEntry{ds: hop.ToDataSource, path: newPath, depth: entry.depth + 1, visited: newVisited})
			}
		}
		frontier = next
	}

	return sortedValues(out), nil
}

func sortedValues(out map[string]*TaggedSpec) []TaggedSpec {
	result := make([]TaggedSpec, 0, len(out))
	for _, ts := range out {
		result = append(result, *ts)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Spec.QualifiedName() < result[j].Spec.QualifiedName() })
	return result
}

// ElementSpecsForMetrics returns the intersection of linkable specs
// reachable from every backing measure of every metric in metricRefs,
// filtered by withAnyOf/withoutAnyOf, sorted by qualified name. This is
// MetricSemantics.element_specs_for_metrics from original_source/, ported
// from a Python set intersection to an explicit Go map-based one.
func (r *Resolver) ElementSpecsForMetrics(metricRefs []core.MetricReference, withAnyOf, withoutAnyOf Property) ([]TaggedSpec, error) {
	measureSet := make(map[string]core.MeasureReference)
	for _, metricRef := range metricRefs {
		backing, err := r.idx.BackingMeasures(metricRef)
		if err != nil {
			return nil, err
		}
		for _, m := range backing {
			measureSet[m.Name] = m
		}
	}

	var perMeasure []map[string]*TaggedSpec
	for _, measRef := range measureSet {
		specs, err := r.ElementSpecsForMeasure(measRef)
		if err != nil {
			return nil, err
		}
		m := make(map[string]*TaggedSpec, len(specs))
		for i := range specs {
			s := specs[i]
			m[s.Spec.QualifiedName()] = &s
		}
		perMeasure = append(perMeasure, m)
	}

	intersection := intersectTaggedSpecs(perMeasure)

	filtered := make(map[string]*TaggedSpec)
	for k, v := range intersection {
		if withAnyOf != 0 && !v.Properties.Intersects(withAnyOf) {
			continue
		}
		if withoutAnyOf != 0 && v.Properties.Intersects(withoutAnyOf) {
			continue
		}
		filtered[k] = v
	}

	return sortedValues(filtered), nil
}

// intersectTaggedSpecs returns the specs present (by qualified name) in
// every map, with properties unioned across all measures that surfaced
// them - a spec reachable as LOCAL from one measure and JOINED from another
// is still reachable from both, so it keeps both tags.
func intersectTaggedSpecs(perMeasure []map[string]*TaggedSpec) map[string]*TaggedSpec {
	if len(perMeasure) == 0 {
		return map[string]*TaggedSpec{}
	}
	result := make(map[string]*TaggedSpec)
	for key, spec := range perMeasure[0] {
		merged := *spec
		inAll := true
		for _, other := range perMeasure[1:] {
			otherSpec, ok := other[key]
			if !ok {
				inAll = false
				break
			}
			merged.Properties |= otherSpec.Properties
		}
		if inAll {
			result[key] = &merged
		}
	}
	return result
}

// emitSpecsForDataSource adds every dimension/entity spec exposed locally
// by ds (reached via path, tagged prop) into out, fanning out time
// dimensions across every allowed granularity and date_part (coarsening
// only) and duplicating the model's designated time axis under the
// canonical "metric_time" name.
func (r *Resolver) emitSpecsForDataSource(out map[string]*TaggedSpec, ds manifest.DataSource, path core.EntityLinkPath, prop Property) {
	for _, e := range ds.Entities {
		spec := core.EntitySpec{Name: e.Name, EntityLinks: path}
		addSpec(out, spec, prop|IsEntityProperty)
	}

	for _, dim := range ds.Dimensions {
		if dim.Type == manifest.Categorical {
			addSpec(out, core.DimensionSpec{Name: dim.Name, EntityLinks: path}, prop)
			continue
		}

		native := dim.Grain
		for _, g := range core.AllGranularities() {
			if g < native {
				continue // coarsening only
			}
			gProp := prop
			if g > native {
				gProp |= DerivedTimeGranularity
			}
			r.emitTimeDimensionVariants(out, dim.Name, path, g, gProp)
			if dim.IsPrimaryTimeDimension {
				r.emitTimeDimensionVariants(out, index.MetricTimeDimensionName, path, g, gProp|MetricTime)
			}
		}
	}
}

func (r *Resolver) emitTimeDimensionVariants(out map[string]*TaggedSpec, name string, path core.EntityLinkPath, g core.Granularity, prop Property) {
	addSpec(out, core.TimeDimensionSpec{Name: name, EntityLinks: path, Granularity: g}, prop)
	for _, dp := range core.AllDateParts() {
		dp := dp
		addSpec(out, core.TimeDimensionSpec{Name: name, EntityLinks: path, Granularity: g, DatePart: &dp}, prop)
	}
}

func addSpec(out map[string]*TaggedSpec, spec core.LinkableSpec, prop Property) {
	key := spec.QualifiedName()
	if existing, ok := out[key]; ok {
		existing.Properties |= prop
		return
	}
	out[key] = &TaggedSpec{Spec: spec, Properties: prop}
}
