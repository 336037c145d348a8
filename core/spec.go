package core

import "fmt"

// LinkableSpec is implemented by every spec that can be requested as a
// group-by: DimensionSpec, TimeDimensionSpec, EntitySpec. The unexported
// marker method closes the set, the way query.Clause is closed by an
// unexported clause() method in the teacher package.
type LinkableSpec interface {
	QualifiedName() string
	linkableSpec()
}

// DimensionSpec references a categorical dimension through an entity-link
// path.
type DimensionSpec struct {
	Name        string
	EntityLinks EntityLinkPath
}

func (s DimensionSpec) linkableSpec() {}

// QualifiedName is the entity-link path joined by "__", followed by the
// element name, e.g. "listing__country_latest".
func (s DimensionSpec) QualifiedName() string {
	return LinkableElementReference{Name: s.Name, EntityLinks: s.EntityLinks}.QualifiedName()
}

func (s DimensionSpec) String() string { return s.QualifiedName() }

// TimeDimensionSpec references a time dimension at a requested granularity,
// with an optional date_part extraction.
type TimeDimensionSpec struct {
	Name        string
	EntityLinks EntityLinkPath
	Granularity Granularity
	DatePart    *DatePart
}

func (s TimeDimensionSpec) linkableSpec() {}

// QualifiedName appends the granularity (and, if present, the date part) to
// the dimension's qualified name, e.g. "metric_time__month" or
// "booking__ds__month__day" for a date-part extraction.
func (s TimeDimensionSpec) QualifiedName() string {
	base := LinkableElementReference{Name: s.Name, EntityLinks: s.EntityLinks}.QualifiedName()
	name := fmt.Sprintf("%s__%s", base, grainSuffix(s.Granularity))
	if s.DatePart != nil {
		name = fmt.Sprintf("%s__%s", name, datePartSuffix(*s.DatePart))
	}
	return name
}

func (s TimeDimensionSpec) String() string { return s.QualifiedName() }

func grainSuffix(g Granularity) string {
	switch g {
	case GranularityDay:
		return "day"
	case GranularityWeek:
		return "week"
	case GranularityMonth:
		return "month"
	case GranularityQuarter:
		return "quarter"
	case GranularityYear:
		return "year"
	default:
		return "day"
	}
}

func datePartSuffix(d DatePart) string {
	switch d {
	case DatePartDay:
		return "day"
	case DatePartDOW:
		return "dow"
	case DatePartDOY:
		return "doy"
	case DatePartMonth:
		return "month"
	case DatePartQuarter:
		return "quarter"
	case DatePartYear:
		return "year"
	default:
		return "day"
	}
}

// EntitySpec references an entity reachable through an entity-link path, so
// that it can itself be requested as a group-by (e.g. grouping by
// listing__listing_id).
type EntitySpec struct {
	Name        string
	EntityLinks EntityLinkPath
}

func (s EntitySpec) linkableSpec() {}

func (s EntitySpec) QualifiedName() string {
	return LinkableElementReference{Name: s.Name, EntityLinks: s.EntityLinks, IsEntity: true}.QualifiedName()
}

func (s EntitySpec) String() string { return s.QualifiedName() }

// NonAdditiveDimensionSpec marks a dimension along which a measure must not
// be summed; semi-additive aggregation (min/max over that dimension) is
// applied instead.
type NonAdditiveDimensionSpec struct {
	Name            string
	WindowChoice    SemiAdditiveWindowChoice
	WindowGroupings []string
}

// SemiAdditiveWindowChoice selects which boundary of the non-additive
// dimension's window to keep: the earliest (min) or latest (max) row per
// group.
type SemiAdditiveWindowChoice int

const (
	WindowChoiceMin SemiAdditiveWindowChoice = iota
	WindowChoiceMax
)

func (c SemiAdditiveWindowChoice) String() string {
	if c == WindowChoiceMin {
		return "min"
	}
	return "max"
}

// MeasureSpec references a measure, carrying its non-additive dimension (if
// any) so downstream aggregation knows to apply semi-additive semantics.
type MeasureSpec struct {
	Name                 string
	NonAdditiveDimension *NonAdditiveDimensionSpec
}

func (s MeasureSpec) String() string { return s.Name }

// WhereFilterSpec is an opaque, already-resolved filter predicate: a
// SQL-safe template string plus the specs it references, so the builder can
// decide whether it can be pushed before a join (every referenced spec is
// local) or must wait until after (any referenced spec is joined).
type WhereFilterSpec struct {
	WhereSQL        string
	ReferencedSpecs []LinkableSpec
}

// Combine AND-combines this filter with another, concatenating referenced
// specs. Used to pin the Open Question in spec.md §9: filters combine by
// AND in the order they are supplied to Combine.
func (f WhereFilterSpec) Combine(other WhereFilterSpec) WhereFilterSpec {
	if f.WhereSQL == "" {
		return other
	}
	if other.WhereSQL == "" {
		return f
	}
	refs := make([]LinkableSpec, 0, len(f.ReferencedSpecs)+len(other.ReferencedSpecs))
	refs = append(refs, f.ReferencedSpecs...)
	refs = append(refs, other.ReferencedSpecs...)
	return WhereFilterSpec{
		WhereSQL:        fmt.Sprintf("(%s) AND (%s)", f.WhereSQL, other.WhereSQL),
		ReferencedSpecs: refs,
	}
}

// IsEmpty reports whether the filter has no predicate.
func (f WhereFilterSpec) IsEmpty() bool { return f.WhereSQL == "" }

// MetricSpec references a metric as an input to a derived metric, carrying
// the constraint and time-offset context that applies to that particular
// reference.
type MetricSpec struct {
	Name          string
	Constraint    *WhereFilterSpec
	Alias         string
	OffsetWindow  *TimeOffset
	OffsetToGrain *Granularity
}

// ResultName is the alias if set, otherwise the metric name itself; used to
// disambiguate two references to the same metric with different offsets.
func (s MetricSpec) ResultName() string {
	if s.Alias != "" {
		return s.Alias
	}
	return s.Name
}

// MetricInputMeasureSpec is a measure spec plus the filter and alias that
// apply to it as an input to some metric.
type MetricInputMeasureSpec struct {
	MeasureSpec MeasureSpec
	Constraint  *WhereFilterSpec
	Alias       string
}

// ResultName is the alias if set, otherwise the measure name.
func (s MetricInputMeasureSpec) ResultName() string {
	if s.Alias != "" {
		return s.Alias
	}
	return s.MeasureSpec.Name
}

// OrderBySpec orders the output by a requested linkable or metric spec.
type OrderBySpec struct {
	Instance   LinkableSpec
	MetricName string // set instead of Instance when ordering by a metric
	Descending bool
}

func (o OrderBySpec) QualifiedName() string {
	if o.Instance != nil {
		return o.Instance.QualifiedName()
	}
	return o.MetricName
}
