// Package manifest holds the plain value types that make up a validated
// semantic manifest: data sources and their entities/dimensions/measures,
// and metrics defined over them. Parsing a manifest from YAML (or any other
// on-disk encoding) is an external collaborator's concern; this package only
// describes the in-memory shape and its structural invariants.
package manifest

import "github.com/metricflow-go/planner/core"

// CardinalityRole is the join-cardinality role an entity plays on a given
// data source.
type CardinalityRole int

const (
	// Primary entities are unique and not-null on their data source.
	Primary CardinalityRole = iota
	// Unique entities are unique but may be null.
	Unique
	// Foreign entities may repeat (the "many" side of a join).
	Foreign
)

func (r CardinalityRole) String() string {
	switch r {
	case Primary:
		return "PRIMARY"
	case Unique:
		return "UNIQUE"
	case Foreign:
		return "FOREIGN"
	default:
		return "UNKNOWN"
	}
}

// IsOneSide reports whether this cardinality role can serve as the "one"
// side of a join, i.e. PRIMARY or UNIQUE. Joining onto a FOREIGN entity
// would fan out rows and double-count measures (spec.md §4.3).
func (r CardinalityRole) IsOneSide() bool {
	return r == Primary || r == Unique
}

// Entity is a join key exposed by a data source.
type Entity struct {
	Name        string
	Role        CardinalityRole
	Description string
}

func (e Entity) Reference() core.EntityReference { return core.EntityReference{Name: e.Name} }

// DimensionType distinguishes categorical from time dimensions.
type DimensionType int

const (
	Categorical DimensionType = iota
	Time
)

// ValidityParams marks a time dimension as the start or end of a validity
// window (for slowly-changing dimensions joined via BETWEEN semantics).
type ValidityParams struct {
	IsStart bool
	IsEnd   bool
}

// Dimension is a grouping attribute exposed by a data source.
type Dimension struct {
	Name           string
	Type           DimensionType
	IsPartition    bool
	ValidityParams *ValidityParams
	Description    string

	// Grain is the native column grain for a Time dimension; granularities
	// coarser than Grain may be requested (coarsening-only fan-out per
	// spec.md §4.2). Ignored for Categorical dimensions.
	Grain core.Granularity
	// IsPrimaryTimeDimension marks the data source's designated time axis:
	// it additionally surfaces under the canonical "metric_time" pseudo-
	// dimension name, tagged with the METRIC_TIME property.
	IsPrimaryTimeDimension bool
}

func (d Dimension) Reference() core.LinkableElementReference {
	return core.LinkableElementReference{Name: d.Name}
}

// AggregationType is the aggregation rule applied to a measure.
type AggregationType int

const (
	AggSum AggregationType = iota
	AggCount
	AggCountDistinct
	AggMin
	AggMax
	AggAvg
	AggSumBoolean
)

func (a AggregationType) String() string {
	switch a {
	case AggSum:
		return "sum"
	case AggCount:
		return "count"
	case AggCountDistinct:
		return "count_distinct"
	case AggMin:
		return "min"
	case AggMax:
		return "max"
	case AggAvg:
		return "avg"
	case AggSumBoolean:
		return "sum_boolean"
	default:
		return "unknown"
	}
}

// Measure is a numeric column with an aggregation rule, optionally
// semi-additive over a non-additive dimension.
type Measure struct {
	Name                     string
	Agg                      AggregationType
	Expr                     string // the column or expression to aggregate; empty means the measure's own name
	NonAdditiveDimensionSpec *core.NonAdditiveDimensionSpec
	Description              string
}

func (m Measure) Reference() core.MeasureReference { return core.MeasureReference{Name: m.Name} }

// NodeRelation identifies the physical schema+table a data source reads
// from. The SQL renderer (external) is responsible for lowering this into a
// FROM clause; the core only carries it through.
type NodeRelation struct {
	SchemaName string
	TableName  string
}

func (n NodeRelation) String() string { return n.SchemaName + "." + n.TableName }

// DataSource is a logical table in the semantic model: a NodeRelation plus
// the entities, dimensions, and measures it exposes.
type DataSource struct {
	Name         string
	NodeRelation NodeRelation
	Entities     []Entity
	Measures     []Measure
	Dimensions   []Dimension
	Description  string
}

func (d DataSource) Reference() core.DataSourceReference {
	return core.DataSourceReference{Name: d.Name}
}

// GetMeasure returns the measure with the given name, following
// DataSource.get_measure in the original Python source.
func (d DataSource) GetMeasure(ref core.MeasureReference) (Measure, bool) {
	for _, m := range d.Measures {
		if m.Name == ref.Name {
			return m, true
		}
	}
	return Measure{}, false
}

// GetDimension returns the dimension with the given name.
func (d DataSource) GetDimension(name string) (Dimension, bool) {
	for _, dim := range d.Dimensions {
		if dim.Name == name {
			return dim, true
		}
	}
	return Dimension{}, false
}

// GetEntity returns the entity with the given name.
func (d DataSource) GetEntity(ref core.EntityReference) (Entity, bool) {
	for _, e := range d.Entities {
		if e.Name == ref.Name {
			return e, true
		}
	}
	return Entity{}, false
}

// PrimaryEntity returns the data source's primary entity, if one is marked.
// There is at most one by construction (enforced by Validate).
func (d DataSource) PrimaryEntity() (Entity, bool) {
	for _, e := range d.Entities {
		if e.Role == Primary {
			return e, true
		}
	}
	return Entity{}, false
}

// ValidityStartDimension returns the validity-window start dimension, if
// one is set. Ported from DataSource.validity_start_dimension, computed on
// demand rather than cached, since a DataSource value is immutable once
// built.
func (d DataSource) ValidityStartDimension() (Dimension, bool) {
	for _, dim := range d.Dimensions {
		if dim.ValidityParams != nil && dim.ValidityParams.IsStart {
			return dim, true
		}
	}
	return Dimension{}, false
}

// ValidityEndDimension returns the validity-window end dimension, if one is
// set.
func (d DataSource) ValidityEndDimension() (Dimension, bool) {
	for _, dim := range d.Dimensions {
		if dim.ValidityParams != nil && dim.ValidityParams.IsEnd {
			return dim, true
		}
	}
	return Dimension{}, false
}

// Partition returns the data source's partition dimension, if one is set.
func (d DataSource) Partition() (Dimension, bool) {
	for _, dim := range d.Dimensions {
		if dim.IsPartition {
			return dim, true
		}
	}
	return Dimension{}, false
}

// MetricType distinguishes the four metric shapes.
type MetricType int

const (
	MetricSimple MetricType = iota
	MetricRatio
	MetricCumulative
	MetricDerived
)

func (t MetricType) String() string {
	switch t {
	case MetricSimple:
		return "SIMPLE"
	case MetricRatio:
		return "RATIO"
	case MetricCumulative:
		return "CUMULATIVE"
	case MetricDerived:
		return "DERIVED"
	default:
		return "UNKNOWN"
	}
}

// FillNullsWith selects the null-fill strategy applied after a time-spine
// join.
type FillNullsWith int

const (
	FillNone FillNullsWith = iota
	FillZero
)

// InputMeasure references a measure as a SIMPLE/RATIO/CUMULATIVE metric
// input, with an optional per-input filter and alias.
type InputMeasure struct {
	MeasureReference core.MeasureReference
	Filter           *core.WhereFilterSpec
	Alias            string
}

// InputMetric references another metric as a DERIVED metric input, with an
// optional per-input filter, alias, and time offset.
type InputMetric struct {
	MetricReference core.MetricReference
	Filter          *core.WhereFilterSpec
	Alias           string
	OffsetWindow    *core.TimeOffset
	OffsetToGrain   *core.Granularity
}

// CumulativeParams configures a CUMULATIVE metric: at most one of Window or
// GrainToDate is set; both unset means "all time up to each row".
type CumulativeParams struct {
	Window      *core.TimeOffset
	GrainToDate *core.Granularity
}

// Metric is a user-facing computed quantity.
type Metric struct {
	Name               string
	Type               MetricType
	Filter             *core.WhereFilterSpec
	FillNullsWith      FillNullsWith
	NumeratorMeasure   *InputMeasure // RATIO
	DenominatorMeasure *InputMeasure // RATIO
	Measure            *InputMeasure // SIMPLE, CUMULATIVE
	Cumulative         *CumulativeParams
	InputMetrics       []InputMetric // DERIVED
	Description        string
}

func (m Metric) Reference() core.MetricReference { return core.MetricReference{Name: m.Name} }

// MeasureReferences returns every measure this metric (directly) depends
// on, used by add_metric-style validation that every input measure exists.
func (m Metric) MeasureReferences() []core.MeasureReference {
	switch m.Type {
	case MetricSimple, MetricCumulative:
		if m.Measure != nil {
			return []core.MeasureReference{m.Measure.MeasureReference}
		}
		return nil
	case MetricRatio:
		var out []core.MeasureReference
		if m.NumeratorMeasure != nil {
			out = append(out, m.NumeratorMeasure.MeasureReference)
		}
		if m.DenominatorMeasure != nil {
			out = append(out, m.DenominatorMeasure.MeasureReference)
		}
		return out
	default:
		return nil
	}
}

// TimeSpineSource designates the data source used to null-fill sparse
// results: a dense table of one row per grain unit.
type TimeSpineSource struct {
	DataSourceName string
	ColumnName     string
	Grain          core.Granularity
}

// Manifest is the validated semantic manifest consumed by the planner: a
// catalog of data sources and metrics, plus the designated time spine.
type Manifest struct {
	DataSources []DataSource
	Metrics     []Metric
	TimeSpines  []TimeSpineSource
}
