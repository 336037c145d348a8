// Package index builds, from a validated manifest, the lookup tables the
// rest of the planner queries by reference: which data source supplies
// which element, which measures are non-additive, which entity is primary
// on each data source, and so on. An Index is built once and is read-only
// thereafter - the same "open once, read many" discipline the teacher
// package applies to its badger-backed Database, with plain Go maps instead
// of an embedded KV store since there is no I/O on the planning path.
package index

import (
	"sort"

	"github.com/metricflow-go/planner/core"
	"github.com/metricflow-go/planner/core/manifest"
	"github.com/metricflow-go/planner/planerrors"
)

// DimensionLocation is one data source that exposes a given dimension name.
type DimensionLocation struct {
	DataSource manifest.DataSource
	Dimension  manifest.Dimension
}

// Index is the read-only semantic model index built from a Manifest.
type Index struct {
	manifest manifest.Manifest

	dataSourceByName map[string]manifest.DataSource
	measureOwner     map[string]manifest.DataSource
	dimensionLocs    map[string][]DimensionLocation
	entityLocs       map[string][]manifest.DataSource
	metricByName     map[string]manifest.Metric
	timeSpineByGrain map[core.Granularity]manifest.TimeSpineSource
}

// New builds an Index from a Manifest, returning a ConfigurationError if
// the manifest violates any structural invariant. Validate is called
// internally so callers never get a half-checked Index.
func New(m manifest.Manifest) (*Index, error) {
	if err := manifest.Validate(m); err != nil {
		return nil, err
	}

	idx := &Index{
		manifest:         m,
		dataSourceByName: make(map[string]manifest.DataSource),
		measureOwner:     make(map[string]manifest.DataSource),
		dimensionLocs:    make(map[string][]DimensionLocation),
		entityLocs:       make(map[string][]manifest.DataSource),
		metricByName:     make(map[string]manifest.Metric),
		timeSpineByGrain: make(map[core.Granularity]manifest.TimeSpineSource),
	}

	for _, ds := range m.DataSources {
		idx.dataSourceByName[ds.Name] = ds
		for _, meas := range ds.Measures {
			idx.measureOwner[meas.Name] = ds
		}
		for _, dim := range ds.Dimensions {
			idx.dimensionLocs[dim.Name] = append(idx.dimensionLocs[dim.Name], DimensionLocation{DataSource: ds, Dimension: dim})
		}
		for _, e := range ds.Entities {
			idx.entityLocs[e.Name] = append(idx.entityLocs[e.Name], ds)
		}
	}
	for _, metric := range m.Metrics {
		idx.metricByName[metric.Name] = metric
	}
	for _, ts := range m.TimeSpines {
		idx.timeSpineByGrain[ts.Grain] = ts
	}

	return idx, nil
}

// Manifest returns the underlying manifest the index was built from.
func (idx *Index) Manifest() manifest.Manifest { return idx.manifest }

// DataSource looks up a data source by reference.
func (idx *Index) DataSource(ref core.DataSourceReference) (manifest.DataSource, error) {
	ds, ok := idx.dataSourceByName[ref.Name]
	if !ok {
		return manifest.DataSource{}, planerrors.NewManifestInvariantError("no data source named `%s`", ref.Name)
	}
	return ds, nil
}

// GetMeasure returns the measure and the data source that owns it.
func (idx *Index) GetMeasure(ref core.MeasureReference) (manifest.Measure, manifest.DataSource, error) {
	ds, ok := idx.measureOwner[ref.Name]
	if !ok {
		return manifest.Measure{}, manifest.DataSource{}, planerrors.NewManifestInvariantError("no measure named `%s`", ref.Name)
	}
	meas, _ := ds.GetMeasure(ref)
	return meas, ds, nil
}

// DataSourcesContainingMeasure returns the (single) data source that owns
// the measure, matching spec.md §4.1's data_sources_containing(measure).
func (idx *Index) DataSourcesContainingMeasure(ref core.MeasureReference) []manifest.DataSource {
	if ds, ok := idx.measureOwner[ref.Name]; ok {
		return []manifest.DataSource{ds}
	}
	return nil
}

// DimensionLocations returns every (data source, dimension) pair exposing a
// dimension with the given name, since a dimension name may appear on many
// sources and is disambiguated by its entity-link path at the spec level.
func (idx *Index) DimensionLocations(name string) []DimensionLocation {
	return idx.dimensionLocs[name]
}

// GetDimension returns the dimension exposed by a specific data source.
func (idx *Index) GetDimension(dsRef core.DataSourceReference, name string) (manifest.Dimension, error) {
	ds, err := idx.DataSource(dsRef)
	if err != nil {
		return manifest.Dimension{}, err
	}
	dim, ok := ds.GetDimension(name)
	if !ok {
		return manifest.Dimension{}, planerrors.NewManifestInvariantError("no dimension named `%s` on data source `%s`", name, dsRef.Name)
	}
	return dim, nil
}

// DataSourcesContainingEntity returns every data source exposing an entity
// with the given name.
func (idx *Index) DataSourcesContainingEntity(ref core.EntityReference) []manifest.DataSource {
	return idx.entityLocs[ref.Name]
}

// GetEntity returns the entity exposed by a specific data source.
func (idx *Index) GetEntity(dsRef core.DataSourceReference, ref core.EntityReference) (manifest.Entity, error) {
	ds, err := idx.DataSource(dsRef)
	if err != nil {
		return manifest.Entity{}, err
	}
	e, ok := ds.GetEntity(ref)
	if !ok {
		return manifest.Entity{}, planerrors.NewManifestInvariantError("no entity named `%s` on data source `%s`", ref.Name, dsRef.Name)
	}
	return e, nil
}

// NonAdditiveDimension returns the non-additive dimension spec for a
// measure, if one is set.
func (idx *Index) NonAdditiveDimension(ref core.MeasureReference) *core.NonAdditiveDimensionSpec {
	ds, ok := idx.measureOwner[ref.Name]
	if !ok {
		return nil
	}
	meas, _ := ds.GetMeasure(ref)
	return meas.NonAdditiveDimensionSpec
}

// GetMetric returns the metric with the given reference.
func (idx *Index) GetMetric(ref core.MetricReference) (manifest.Metric, error) {
	m, ok := idx.metricByName[ref.Name]
	if !ok {
		return manifest.Metric{}, planerrors.MetricNotFoundError{MetricName: ref.Name}
	}
	return m, nil
}

// TimeSpineForGrain returns the designated time-spine source at a given
// grain, if the manifest carries one.
func (idx *Index) TimeSpineForGrain(grain core.Granularity) (manifest.TimeSpineSource, bool) {
	ts, ok := idx.timeSpineByGrain[grain]
	return ts, ok
}

// BackingMeasures returns every measure that ultimately backs a metric:
// its own input measures for SIMPLE/RATIO/CUMULATIVE, or the backing
// measures of every input metric (recursively) for DERIVED. Used by the
// linkable-spec resolver to compute reachability for a metric without
// needing the full metric-expansion machinery.
func (idx *Index) BackingMeasures(ref core.MetricReference) ([]core.MeasureReference, error) {
	metric, err := idx.GetMetric(ref)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var out []core.MeasureReference
	var walk func(manifest.Metric) error
	walk = func(m manifest.Metric) error {
		if m.Type == manifest.MetricDerived {
			for _, in := range m.InputMetrics {
				inputMetric, err := idx.GetMetric(in.MetricReference)
				if err != nil {
					return err
				}
				if err := walk(inputMetric); err != nil {
					return err
				}
			}
			return nil
		}
		for _, measRef := range m.MeasureReferences() {
			if !seen[measRef.Name] {
				seen[measRef.Name] = true
				out = append(out, measRef)
			}
		}
		return nil
	}
	if err := walk(metric); err != nil {
		return nil, err
	}
	return out, nil
}

// MetricTimeDimensionName is the model's designated time axis: every data
// source's time dimension contributes to it via a join to the time spine.
// The linkable resolver exposes each data source's primary time dimension
// under this name in addition to its own name (e.g. "ds").
const MetricTimeDimensionName = "metric_time"

// DataSourceNames returns every data source name in deterministic
// (lexicographic) order, used by the dataflow builder to pick a data source
// deterministically for a distinct-values query.
func (idx *Index) DataSourceNames() []string {
	names := make([]string, 0, len(idx.dataSourceByName))
	for name := range idx.dataSourceByName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
