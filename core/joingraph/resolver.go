// Package joingraph searches the semantic model's entity graph for valid
// join paths between data sources, enforcing the cardinality rule from
// spec.md §4.3: joining from A to B over a shared entity e is valid only if
// B's role for e is PRIMARY or UNIQUE (the "one" side), which prevents
// fan-out that would double-count measures. The search shape (explicit
// worklist, visited-set, deterministic tie-break) is grounded on the
// teacher's phase_reordering.go symbol-dependency search, adapted from
// symbol availability to data-source adjacency.
package joingraph

import (
	"sort"

	"github.com/metricflow-go/planner/core"
	"github.com/metricflow-go/planner/core/index"
	"github.com/metricflow-go/planner/core/manifest"
)

// MaxJoinHops is the default bound on join-path search depth.
const MaxJoinHops = 2

// Hop is a single join step in a path: from FromDataSource to
// ToDataSource, over the shared JoinEntity.
type Hop struct {
	FromDataSource core.DataSourceReference
	ToDataSource   core.DataSourceReference
	JoinEntity     core.EntityReference
}

// Path is an ordered sequence of hops starting from some data source.
type Path struct {
	Hops []Hop
}

// DataSources returns the data sources visited by the path, in order,
// including the path's ultimate destination but excluding the start (which
// the caller already knows).
func (p Path) DataSources() []core.DataSourceReference {
	out := make([]core.DataSourceReference, len(p.Hops))
	for i, h := range p.Hops {
		out[i] = h.ToDataSource
	}
	return out
}

// EntityLinks returns the path's hops as an entity-link path, the form
// specs carry.
func (p Path) EntityLinks() core.EntityLinkPath {
	out := make(core.EntityLinkPath, len(p.Hops))
	for i, h := range p.Hops {
		out[i] = h.JoinEntity
	}
	return out
}

// Resolver searches a semantic index's entity graph for join paths.
type Resolver struct {
	idx     *index.Index
	maxHops int
}

// New creates a Resolver bounded to maxHops; a maxHops <= 0 uses
// MaxJoinHops.
func New(idx *index.Index, maxHops int) *Resolver {
	if maxHops <= 0 {
		maxHops = MaxJoinHops
	}
	return &Resolver{idx: idx, maxHops: maxHops}
}

// FindPaths enumerates every valid join path from start to any data source
// in targets, up to the resolver's hop bound. A path is valid only if every
// hop's destination is PRIMARY or UNIQUE on the join entity.
func (r *Resolver) FindPaths(start core.DataSourceReference, targets map[string]bool) []Path {
	var results []Path

	type frontierEntry struct {
		current core.DataSourceReference
		path     Path
		visited  map[string]bool
	}

	startVisited := map[string]bool{start.Name: true}
	frontier := []frontierEntry{{current: start, path: Path{}, visited: startVisited}}

	for depth := 0; depth < r.maxHops; depth++ {
		var next []frontierEntry
		for _, entry := range frontier {
			currentDS, err := r.idx.DataSource(entry.current)
			if err != nil {
				continue
			}
			for _, hop := range r.validHopsFrom(currentDS, entry.visited) {
				newPath := Path{Hops: append(appendHops(entry.path.Hops), hop)}
				if targets[hop.ToDataSource.Name] {
					results = append(results, newPath)
				}
				newVisited := make(map[string]bool, len(entry.visited)+1)
				for k := range entry.visited {
					newVisited[k] = true
				}
				newVisited[hop.ToDataSource.Name] = true
				next = append(next, frontierEntry{current: hop.ToDataSource, path: newPath, visited: newVisited})
			}
		}
		frontier = next
	}

	return results
}

func appendHops(hops []Hop) []Hop {
	out := make([]Hop, len(hops))
	copy(out, hops)
	return out
}

// Neighbors returns every valid single hop out of the data source named by
// dsRef, excluding hops into any data source in visited. Exported for the
// linkable-spec resolver, which performs its own unbounded-target BFS over
// the same adjacency rule.
func (r *Resolver) Neighbors(dsRef core.DataSourceReference, visited map[string]bool) ([]Hop, error) {
	ds, err := r.idx.DataSource(dsRef)
	if err != nil {
		return nil, err
	}
	return r.validHopsFrom(ds, visited), nil
}

// MaxHops returns the resolver's configured hop bound.
func (r *Resolver) MaxHops() int { return r.maxHops }

// validHopsFrom returns every valid single hop out of ds: for each entity ds
// declares, every other data source sharing that entity name where the
// other side's role is PRIMARY or UNIQUE, excluding data sources already
// visited on this path (to keep paths simple/acyclic).
func (r *Resolver) validHopsFrom(ds manifest.DataSource, visited map[string]bool) []Hop {
	var hops []Hop
	for _, e := range ds.Entities {
		candidates := r.idx.DataSourcesContainingEntity(e.Reference())
		for _, other := range candidates {
			if other.Name == ds.Name || visited[other.Name] {
				continue
			}
			otherEntity, ok := other.GetEntity(e.Reference())
			if !ok || !otherEntity.Role.IsOneSide() {
				continue
			}
			hops = append(hops, Hop{
				FromDataSource: core.DataSourceReference{Name: ds.Name},
				ToDataSource:   core.DataSourceReference{Name: other.Name},
				JoinEntity:     e.Reference(),
			})
		}
	}
	sort.Slice(hops, func(i, j int) bool { return hops[i].ToDataSource.Name < hops[j].ToDataSource.Name })
	return hops
}

// ChooseBestPath applies the tie-break rule from spec.md §4.3 to a set of
// candidate paths that all reach the same destination: prefer the shortest;
// then the path whose intermediate data sources have the most overlap with
// alreadySelected; then a stable lexicographic order on data-source names.
// Returns false if candidates is empty.
func ChooseBestPath(candidates []Path, alreadySelected map[string]bool) (Path, bool) {
	if len(candidates) == 0 {
		return Path{}, false
	}

	best := candidates[0]
	bestOverlap := overlapCount(best, alreadySelected)
	for _, cand := range candidates[1:] {
		if len(cand.Hops) < len(best.Hops) {
			best = cand
			bestOverlap = overlapCount(cand, alreadySelected)
			continue
		}
		if len(cand.Hops) > len(best.Hops) {
			continue
		}
		candOverlap := overlapCount(cand, alreadySelected)
		if candOverlap > bestOverlap {
			best = cand
			bestOverlap = candOverlap
			continue
		}
		if candOverlap < bestOverlap {
			continue
		}
		if lexLess(cand, best) {
			best = cand
			bestOverlap = candOverlap
		}
	}
	return best, true
}

func overlapCount(p Path, alreadySelected map[string]bool) int {
	count := 0
	for _, ds := range p.DataSources() {
		if alreadySelected[ds.Name] {
			count++
		}
	}
	return count
}

func lexLess(a, b Path) bool {
	aNames := a.DataSources()
	bNames := b.DataSources()
	for i := 0; i < len(aNames) && i < len(bNames); i++ {
		if aNames[i].Name != bNames[i].Name {
			return aNames[i].Name < bNames[i].Name
		}
	}
	return len(aNames) < len(bNames)
}

// AmbiguousAfterTieBreak reports whether two or more candidate paths remain
// indistinguishable after ChooseBestPath's rules. The shortest-path and
// overlap-count rules can tie, and the lexicographic rule only inspects the
// sequence of data-source names a path visits - so two paths that visit the
// exact same data sources in the exact same order, but over different join
// entities, remain genuinely ambiguous. That is a hard failure case per
// spec.md §4.3 (UnableToSatisfyQueryError).
func AmbiguousAfterTieBreak(candidates []Path, alreadySelected map[string]bool) bool {
	if len(candidates) < 2 {
		return false
	}
	best, ok := ChooseBestPath(candidates, alreadySelected)
	if !ok {
		return false
	}
	bestOverlap := overlapCount(best, alreadySelected)
	for _, cand := range candidates {
		if sameHops(cand, best) {
			continue
		}
		if len(cand.Hops) == len(best.Hops) &&
			overlapCount(cand, alreadySelected) == bestOverlap &&
			sameDataSourceSequence(cand, best) {
			return true
		}
	}
	return false
}

func sameDataSourceSequence(a, b Path) bool {
	aNames := a.DataSources()
	bNames := b.DataSources()
	if len(aNames) != len(bNames) {
		return false
	}
	for i := range aNames {
		if aNames[i] != bNames[i] {
			return false
		}
	}
	return true
}

func sameHops(a, b Path) bool {
	if len(a.Hops) != len(b.Hops) {
		return false
	}
	for i := range a.Hops {
		if a.Hops[i] != b.Hops[i] {
			return false
		}
	}
	return true
}
