// Package linkable computes, for a set of metrics, the set of dimension /
// entity / time-dimension specs jointly reachable from every measure
// backing those metrics - the set-intersection semantics of spec.md §4.2.
// Grounded on metric_semantics.py::element_specs_for_metrics in
// original_source/ for the intersection+sort contract; the BFS shape is
// grounded on the teacher's clause_phasing.go symbol-availability
// propagation.
package linkable

// Property tags why a linkable spec is reachable: how far the join is, and
// whether it is time-related. The closed set is
// {LOCAL, JOINED, MULTI_HOP_JOINED, DERIVED_TIME_GRANULARITY, METRIC_TIME,
// ENTITY} per spec.md §4.2.
type Property uint8

const (
	Local Property = 1 << iota
	Joined
	MultiHopJoined
	DerivedTimeGranularity
	MetricTime
	IsEntityProperty
)

// AllProperties is the closed set of every property flag, the default
// with_any_of filter (spec.md §4.2 uses this as a default argument).
func AllProperties() Property {
	return Local | Joined | MultiHopJoined | DerivedTimeGranularity | MetricTime | IsEntityProperty
}

// Has reports whether p includes every flag set in other.
func (p Property) Has(other Property) bool { return p&other == other }

// Intersects reports whether p shares any flag with other.
func (p Property) Intersects(other Property) bool { return p&other != 0 }

func (p Property) String() string {
	if p == 0 {
		return "NONE"
	}
	names := []struct {
		flag Property
		name string
	}{
		{Local, "LOCAL"},
		{Joined, "JOINED"},
		{MultiHopJoined, "MULTI_HOP_JOINED"},
		{DerivedTimeGranularity, "DERIVED_TIME_GRANULARITY"},
		{MetricTime, "METRIC_TIME"},
		{IsEntityProperty, "ENTITY"},
	}
	out := ""
	for _, n := range names {
		if p.Has(n.flag) {
			if out != "" {
				out += "|"
			}
			out += n.name
		}
	}
	return out
}
