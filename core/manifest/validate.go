package manifest

import (
	"github.com/metricflow-go/planner/planerrors"
)

// Validate checks the structural invariants from spec.md §3: at most one
// validity-start and one validity-end dimension per data source, at most
// one partition dimension, at most one primary entity, unique entity names
// within a data source, unique measure names across the whole model, and
// that every metric's input measures/metrics exist. It is the only place
// these invariants are checked; once Validate succeeds, every other
// component may assume them.
func Validate(m Manifest) error {
	measureOwner := make(map[string]string) // measure name -> owning data source
	metricNames := make(map[string]bool)

	for _, ds := range m.DataSources {
		if err := validateDataSource(ds); err != nil {
			return err
		}
		for _, meas := range ds.Measures {
			if owner, exists := measureOwner[meas.Name]; exists {
				return planerrors.NewManifestInvariantError(
					"measure `%s` is registered on both data source `%s` and `%s`; measure names must be unique across the model",
					meas.Name, owner, ds.Name,
				)
			}
			measureOwner[meas.Name] = ds.Name
		}
	}

	for _, metric := range m.Metrics {
		if metricNames[metric.Name] {
			return planerrors.DuplicateMetricError{MetricName: metric.Name}
		}
		metricNames[metric.Name] = true
	}

	for _, metric := range m.Metrics {
		for _, measRef := range metric.MeasureReferences() {
			if _, ok := measureOwner[measRef.Name]; !ok {
				return planerrors.NonExistentMeasureError{MetricName: metric.Name, MeasureName: measRef.Name}
			}
		}
		if metric.Type == MetricDerived {
			if len(metric.InputMetrics) == 0 {
				return planerrors.NewManifestInvariantError("derived metric `%s` has no input metrics", metric.Name)
			}
			for _, in := range metric.InputMetrics {
				if !metricNames[in.MetricReference.Name] {
					return planerrors.NewManifestInvariantError(
						"derived metric `%s` references metric `%s` which has not been registered",
						metric.Name, in.MetricReference.Name,
					)
				}
			}
		}
		if metric.Type == MetricCumulative {
			if metric.Cumulative != nil && metric.Cumulative.Window != nil && metric.Cumulative.GrainToDate != nil {
				return planerrors.NewManifestInvariantError(
					"cumulative metric `%s` sets both a window and a grain-to-date; at most one may be set", metric.Name,
				)
			}
			if metric.Measure == nil {
				return planerrors.NewManifestInvariantError("cumulative metric `%s` must have exactly one input measure", metric.Name)
			}
		}
		if metric.Type == MetricRatio {
			if metric.NumeratorMeasure == nil || metric.DenominatorMeasure == nil {
				return planerrors.NewManifestInvariantError("ratio metric `%s` must have both a numerator and denominator measure", metric.Name)
			}
		}
		if metric.Type == MetricSimple && metric.Measure == nil {
			return planerrors.NewManifestInvariantError("simple metric `%s` must have exactly one input measure", metric.Name)
		}
	}

	if err := detectMetricCycles(m.Metrics); err != nil {
		return err
	}

	return nil
}

func validateDataSource(ds DataSource) error {
	seenEntities := make(map[string]bool)
	primaryCount := 0
	for _, e := range ds.Entities {
		if seenEntities[e.Name] {
			return planerrors.NewManifestInvariantError(
				"data source `%s` declares entity `%s` more than once", ds.Name, e.Name,
			)
		}
		seenEntities[e.Name] = true
		if e.Role == Primary {
			primaryCount++
		}
	}
	if primaryCount > 1 {
		return planerrors.NewManifestInvariantError(
			"data source `%s` marks more than one entity as PRIMARY", ds.Name,
		)
	}

	validityStart := 0
	validityEnd := 0
	partitionCount := 0
	for _, dim := range ds.Dimensions {
		if dim.ValidityParams != nil {
			if dim.ValidityParams.IsStart {
				validityStart++
			}
			if dim.ValidityParams.IsEnd {
				validityEnd++
			}
		}
		if dim.IsPartition {
			partitionCount++
		}
	}
	if validityStart > 1 {
		return planerrors.NewManifestInvariantError("data source `%s` has more than one validity-start dimension", ds.Name)
	}
	if validityEnd > 1 {
		return planerrors.NewManifestInvariantError("data source `%s` has more than one validity-end dimension", ds.Name)
	}
	if partitionCount > 1 {
		return planerrors.NewManifestInvariantError("data source `%s` has more than one partition dimension", ds.Name)
	}
	return nil
}

// detectMetricCycles walks each derived metric's input graph with an
// explicit visited-set worklist (spec.md §9: "iterative worklist with an
// explicit visited-set to detect cycles"), failing at manifest-build time
// rather than at plan time.
func detectMetricCycles(metrics []Metric) error {
	byName := make(map[string]Metric, len(metrics))
	for _, m := range metrics {
		byName[m.Name] = m
	}

	for _, start := range metrics {
		if start.Type != MetricDerived {
			continue
		}
		visiting := map[string]bool{start.Name: true}
		path := []string{start.Name}
		if err := walkDerivedInputs(start, byName, visiting, path); err != nil {
			return err
		}
	}
	return nil
}

func walkDerivedInputs(m Metric, byName map[string]Metric, visiting map[string]bool, path []string) error {
	for _, in := range m.InputMetrics {
		next, ok := byName[in.MetricReference.Name]
		if !ok {
			continue // reported separately above
		}
		if visiting[next.Name] {
			return planerrors.NewManifestInvariantError(
				"metric cycle detected: %v -> %s", path, next.Name,
			)
		}
		if next.Type != MetricDerived {
			continue
		}
		visiting[next.Name] = true
		if err := walkDerivedInputs(next, byName, visiting, append(path, next.Name)); err != nil {
			return err
		}
		delete(visiting, next.Name)
	}
	return nil
}
