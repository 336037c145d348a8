package queryspec

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/metricflow-go/planner/core"
	"github.com/metricflow-go/planner/core/index"
)

// metricToken stands in for a Metric(...) reference inside a where-filter
// template. It embeds core.DimensionSpec only to pick up core.LinkableSpec's
// unexported marker method, so it can flow through
// WhereFilterSpec.ReferencedSpecs; its own QualifiedName overrides the
// embedded one. The dataflow builder's refEntityLinks switches on concrete
// spec types, so a metricToken falls to its non-local default and any
// filter referencing a metric is treated as non-local - correct, since a
// metric value only exists after ComputeMetricsNode runs.
type metricToken struct {
	core.DimensionSpec
	Metric core.MetricReference
}

func (t metricToken) QualifiedName() string {
	return "__metric__" + t.Metric.Name
}

// ResolveWhereFilter parses a where-filter template against idx, resolving
// each Dimension(...)/TimeDimension(...)/Entity(...)/Metric(...) token to
// the spec it names (spec.md §4.6). The returned WhereSQL is raw: each
// Dimension/TimeDimension/Entity token is rewritten to
// `{{ <qualified_name> }}` and each Metric token to `{{ metric:<name> }}`,
// placeholders the SQL renderer (out of scope here) substitutes with the
// plan's column alias. ReferencedSpecs records exactly what was referenced,
// so the dataflow builder can tell whether the predicate can be pushed
// before a join.
func ResolveWhereFilter(idx *index.Index, raw string) (*core.WhereFilterSpec, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	var referenced []core.LinkableSpec
	var firstErr error
	record := func(spec core.LinkableSpec) string {
		referenced = append(referenced, spec)
		return fmt.Sprintf("{{ %s }}", spec.QualifiedName())
	}
	fail := func(err error) string {
		if firstErr == nil {
			firstErr = err
		}
		return ""
	}

	funcs := template.FuncMap{
		"Dimension": func(name string, linkArgs ...string) string {
			spec, err := ParseName(idx, qualify(name, linkArgs))
			if err != nil {
				return fail(err)
			}
			return record(spec)
		},
		"TimeDimension": func(name string, args ...string) string {
			grain, linkArgs := "", []string(nil)
			if len(args) > 0 {
				grain = args[0]
			}
			if len(args) > 1 {
				linkArgs = args[1:]
			}
			full := qualify(name, linkArgs)
			if grain != "" {
				full = full + "__" + strings.ToLower(grain)
			}
			spec, err := ParseName(idx, full)
			if err != nil {
				return fail(err)
			}
			return record(spec)
		},
		"Entity": func(name string, linkArgs ...string) string {
			spec, err := ParseName(idx, qualify(name, linkArgs))
			if err != nil {
				return fail(err)
			}
			return record(spec)
		},
		"Metric": func(name string, linkable ...string) string {
			spec := metricToken{Metric: core.MetricReference{Name: name}}
			referenced = append(referenced, spec)
			return fmt.Sprintf("{{ metric:%s }}", name)
		},
	}

	tmpl, err := template.New("where").Funcs(funcs).Parse(raw)
	if err != nil {
		return nil, err
	}
	var out strings.Builder
	if err := tmpl.Execute(&out, nil); err != nil {
		return nil, err
	}
	if firstErr != nil {
		return nil, firstErr
	}

	return &core.WhereFilterSpec{WhereSQL: out.String(), ReferencedSpecs: referenced}, nil
}

// qualify joins an element name with its entity-link arguments (given
// innermost-first, the way Dimension('country', 'listing') names the
// listing__country path) into the `__`-joined canonical form ParseName
// expects.
func qualify(name string, linkArgs []string) string {
	if len(linkArgs) == 0 {
		return name
	}
	return strings.Join(linkArgs, "__") + "__" + name
}
