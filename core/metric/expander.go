// Package metric converts a user-level metric reference into the input
// measure specs (SIMPLE/RATIO/CUMULATIVE) and/or input metric specs
// (DERIVED) that compute it, combining filters and propagating time
// offsets along the way. Grounded directly on
// metricflow/model/semantics/metric_semantics.py in original_source/:
// measures_for_metric, metric_input_specs_for_metric, and
// contains_cumulative_or_time_offset_metric.
package metric

import (
	"github.com/metricflow-go/planner/core"
	"github.com/metricflow-go/planner/core/index"
	"github.com/metricflow-go/planner/core/manifest"
)

// Expander expands metrics against a semantic index.
type Expander struct {
	idx *index.Index
}

// New creates an Expander over idx.
func New(idx *index.Index) *Expander {
	return &Expander{idx: idx}
}

// InputMeasures returns the measure specs required to compute a
// non-DERIVED metric directly (SIMPLE: one spec; RATIO: two; CUMULATIVE:
// one, aggregated later by a CumulativeWindowNode rather than here).
func (e *Expander) InputMeasures(ref core.MetricReference) ([]core.MetricInputMeasureSpec, error) {
	m, err := e.idx.GetMetric(ref)
	if err != nil {
		return nil, err
	}

	switch m.Type {
	case manifest.MetricSimple:
		return []core.MetricInputMeasureSpec{e.buildInputMeasureSpec(*m.Measure, m.Filter, m.Name)}, nil
	case manifest.MetricCumulative:
		return []core.MetricInputMeasureSpec{e.buildInputMeasureSpec(*m.Measure, m.Filter, m.Name)}, nil
	case manifest.MetricRatio:
		num := e.buildInputMeasureSpec(*m.NumeratorMeasure, m.Filter, m.Name+"_numerator")
		den := e.buildInputMeasureSpec(*m.DenominatorMeasure, m.Filter, m.Name+"_denominator")
		return []core.MetricInputMeasureSpec{num, den}, nil
	default:
		return nil, nil // DERIVED has no direct input measures; see InputMetrics
	}
}

func (e *Expander) buildInputMeasureSpec(input manifest.InputMeasure, metricFilter *core.WhereFilterSpec, defaultAlias string) core.MetricInputMeasureSpec {
	measureSpec := core.MeasureSpec{
		Name:                 input.MeasureReference.Name,
		NonAdditiveDimension: e.idx.NonAdditiveDimension(input.MeasureReference),
	}
	constraint := combineFilters(input.Filter, metricFilter)
	alias := input.Alias
	if alias == "" {
		alias = defaultAlias
	}
	var constraintPtr *core.WhereFilterSpec
	if constraint != nil {
		constraintPtr = constraint
	}
	return core.MetricInputMeasureSpec{MeasureSpec: measureSpec, Constraint: constraintPtr, Alias: alias}
}

// InputMetrics returns the metric specs referenced by a DERIVED metric's
// input_metrics, each carrying the AND-combination of its own per-input
// filter with the referenced metric's own stored filter - in that order,
// pinning the Open Question from spec.md §9 exactly as
// metric_input_specs_for_metric computes it in original_source/.
func (e *Expander) InputMetrics(ref core.MetricReference) ([]core.MetricSpec, error) {
	m, err := e.idx.GetMetric(ref)
	if err != nil {
		return nil, err
	}
	if m.Type != manifest.MetricDerived {
		return nil, nil
	}

	out := make([]core.MetricSpec, 0, len(m.InputMetrics))
	for _, in := range m.InputMetrics {
		original, err := e.idx.GetMetric(in.MetricReference)
		if err != nil {
			return nil, err
		}
		combined := combineFilters(in.Filter, original.Filter)
		out = append(out, core.MetricSpec{
			Name:          in.MetricReference.Name,
			Constraint:    combined,
			Alias:         in.Alias,
			OffsetWindow:  in.OffsetWindow,
			OffsetToGrain: in.OffsetToGrain,
		})
	}
	return out, nil
}

func combineFilters(a, b *core.WhereFilterSpec) *core.WhereFilterSpec {
	switch {
	case a == nil && b == nil:
		return nil
	case a == nil:
		out := *b
		return &out
	case b == nil:
		out := *a
		return &out
	default:
		combined := a.Combine(*b)
		return &combined
	}
}

// ContainsCumulativeOrTimeOffsetMetric returns true if any of the given
// metrics is CUMULATIVE, or is DERIVED with a direct input that carries a
// non-empty offset_window or offset_to_grain. Matches
// contains_cumulative_or_time_offset_metric exactly (one level of DERIVED
// inputs, not recursive).
func (e *Expander) ContainsCumulativeOrTimeOffsetMetric(refs []core.MetricReference) (bool, error) {
	for _, ref := range refs {
		m, err := e.idx.GetMetric(ref)
		if err != nil {
			return false, err
		}
		if m.Type == manifest.MetricCumulative {
			return true, nil
		}
		if m.Type == manifest.MetricDerived {
			for _, in := range m.InputMetrics {
				if in.OffsetWindow != nil || in.OffsetToGrain != nil {
					return true, nil
				}
			}
		}
	}
	return false, nil
}

// ExpandedMeasure is one leaf measure input discovered while recursively
// expanding a (possibly DERIVED) metric, carrying the time-offset context
// accumulated from its enclosing derived-metric input, if any.
type ExpandedMeasure struct {
	Input             core.MetricInputMeasureSpec
	OffsetWindow      *core.TimeOffset
	OffsetToGrain     *core.Granularity
	SourceMetricAlias string
	// Cumulative is set when the leaf metric that produced this measure is
	// CUMULATIVE, carrying its window/grain_to_date configuration for the
	// builder's CumulativeWindowNode.
	Cumulative *manifest.CumulativeParams
}

// ExpandToMeasures fully expands ref to its leaf measure inputs: directly
// for SIMPLE/RATIO/CUMULATIVE, or recursively through DERIVED inputs,
// combining filters multiplicatively (AND) at each level and propagating
// the outermost offset_window/offset_to_grain set along the path onto each
// leaf. The
// semantic manifest's metric graph is validated acyclic at index-build time
// (core/manifest.Validate), so this recursion always terminates.
func (e *Expander) ExpandToMeasures(ref core.MetricReference) ([]ExpandedMeasure, error) {
	m, err := e.idx.GetMetric(ref)
	if err != nil {
		return nil, err
	}

	if m.Type != manifest.MetricDerived {
		inputs, err := e.InputMeasures(ref)
		if err != nil {
			return nil, err
		}
		out := make([]ExpandedMeasure, len(inputs))
		for i, in := range inputs {
			out[i] = ExpandedMeasure{Input: in, SourceMetricAlias: m.Name, Cumulative: m.Cumulative}
		}
		return out, nil
	}

	inputMetrics, err := e.InputMetrics(ref)
	if err != nil {
		return nil, err
	}

	var out []ExpandedMeasure
	for _, im := range inputMetrics {
		childRef := core.MetricReference{Name: im.Name}
		children, err := e.ExpandToMeasures(childRef)
		if err != nil {
			return nil, err
		}
		for _, child := range children {
			combined := combineFilters(im.Constraint, child.Input.Constraint)
			newInput := child.Input
			newInput.Constraint = combined
			out = append(out, ExpandedMeasure{
				Input:             newInput,
				OffsetWindow:      firstNonNilOffset(im.OffsetWindow, child.OffsetWindow),
				OffsetToGrain:     firstNonNilGrain(im.OffsetToGrain, child.OffsetToGrain),
				SourceMetricAlias: im.ResultName(),
				Cumulative:        child.Cumulative,
			})
		}
	}
	return out, nil
}

func firstNonNilOffset(a, b *core.TimeOffset) *core.TimeOffset {
	if a != nil {
		return a
	}
	return b
}

func firstNonNilGrain(a, b *core.Granularity) *core.Granularity {
	if a != nil {
		return a
	}
	return b
}
