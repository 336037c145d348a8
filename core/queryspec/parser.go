package queryspec

import (
	"strings"

	"github.com/metricflow-go/planner/core"
	"github.com/metricflow-go/planner/core/index"
	"github.com/metricflow-go/planner/core/manifest"
	"github.com/metricflow-go/planner/planerrors"
)

// ParseName canonicalizes a user-facing name into a LinkableSpec, per
// spec.md §4.6's grammar: `(<entity>__)*<element_name>(__<grain>)?` for
// dimensions, `metric_time(__<grain>)?` for the metric-time pseudo-
// dimension, and a bare name (optionally entity-linked) for an entity
// requested as a group-by. The index disambiguates how many leading
// `__`-separated tokens are entity links versus the element name itself:
// each candidate prefix is consumed only while it names a real entity in
// the manifest.
func ParseName(idx *index.Index, name string) (core.LinkableSpec, error) {
	tokens := strings.Split(name, "__")
	if len(tokens) == 0 || tokens[0] == "" {
		return nil, planerrors.NameParseError{Name: name, Reason: "empty name"}
	}

	if tokens[0] == index.MetricTimeDimensionName {
		return parseMetricTime(name, tokens[1:])
	}

	var links core.EntityLinkPath
	for len(tokens) > 1 {
		ref := core.EntityReference{Name: tokens[0]}
		if len(idx.DataSourcesContainingEntity(ref)) == 0 {
			break
		}
		links = append(links, ref)
		tokens = tokens[1:]
	}

	elementName := tokens[0]
	suffix := tokens[1:]

	if len(suffix) == 0 {
		if len(idx.DataSourcesContainingEntity(core.EntityReference{Name: elementName})) > 0 {
			return core.EntitySpec{Name: elementName, EntityLinks: links}, nil
		}
	}

	locs := idx.DimensionLocations(elementName)
	if len(locs) == 0 {
		return nil, planerrors.NameParseError{Name: name, Reason: "no dimension or entity named `" + elementName + "` in the semantic model"}
	}

	if locs[0].Dimension.Type != manifest.Time {
		if len(suffix) != 0 {
			return nil, planerrors.NameParseError{Name: name, Reason: "`" + elementName + "` is a categorical dimension and takes no grain suffix"}
		}
		return core.DimensionSpec{Name: elementName, EntityLinks: links}, nil
	}

	return parseTimeDimensionSuffix(name, elementName, links, suffix)
}

func parseMetricTime(name string, suffix []string) (core.LinkableSpec, error) {
	return parseTimeDimensionSuffix(name, index.MetricTimeDimensionName, nil, suffix)
}

// parseTimeDimensionSuffix interprets 0, 1, or 2 trailing tokens as an
// optional granularity followed by an optional date_part, e.g.
// `booking__ds__month` or `booking__ds__month__dow`.
func parseTimeDimensionSuffix(name, elementName string, links core.EntityLinkPath, suffix []string) (core.LinkableSpec, error) {
	spec := core.TimeDimensionSpec{Name: elementName, EntityLinks: links, Granularity: core.GranularityDay}
	switch len(suffix) {
	case 0:
		return spec, nil
	case 1:
		grain, ok := core.ParseGranularity(suffix[0])
		if !ok {
			if dp, ok := core.ParseDatePart(suffix[0]); ok {
				spec.DatePart = &dp
				return spec, nil
			}
			return nil, planerrors.NameParseError{Name: name, Reason: "`" + suffix[0] + "` is neither a granularity nor a date_part"}
		}
		spec.Granularity = grain
		return spec, nil
	case 2:
		grain, ok := core.ParseGranularity(suffix[0])
		if !ok {
			return nil, planerrors.NameParseError{Name: name, Reason: "`" + suffix[0] + "` is not a valid granularity"}
		}
		dp, ok := core.ParseDatePart(suffix[1])
		if !ok {
			return nil, planerrors.NameParseError{Name: name, Reason: "`" + suffix[1] + "` is not a valid date_part"}
		}
		spec.Granularity = grain
		spec.DatePart = &dp
		return spec, nil
	default:
		return nil, planerrors.NameParseError{Name: name, Reason: "too many `__`-separated suffix tokens"}
	}
}

// CanonicalName renders a LinkableSpec back to its user-facing name,
// inverse to ParseName: parse(canonical_name(spec)) == spec for every
// dimension/time-dimension/entity spec (spec.md §8's round-trip property).
func CanonicalName(spec core.LinkableSpec) string {
	return spec.QualifiedName()
}

// ParseMetricName canonicalizes a bare metric name. Metrics carry no
// entity-link path or grain suffix, so this is a direct wrap; it exists so
// callers parsing a mixed list of metric/dimension names don't need to
// special-case the metric branch themselves.
func ParseMetricName(name string) core.MetricReference {
	return core.MetricReference{Name: name}
}
