// Command metricplan is a thin demonstration CLI over the planner core: it
// builds the bookings semantic model from spec.md §8, canonicalizes a query
// given on the command line, builds the dataflow plan, and prints it.
// Snapshot testing, SQL rendering, and warehouse execution are all out of
// scope - this exists only to exercise the core end to end.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/metricflow-go/planner/core/dataflow"
	"github.com/metricflow-go/planner/core/index"
	"github.com/metricflow-go/planner/core/queryspec"
)

func main() {
	var metricsFlag string
	var groupByFlag string
	var whereFlag string
	var orderByFlag string
	var limitFlag int
	var scenario int
	var table bool

	flag.StringVar(&metricsFlag, "metrics", "", "comma-separated metric names")
	flag.StringVar(&groupByFlag, "group-by", "", "comma-separated canonical group-by names")
	flag.StringVar(&whereFlag, "where", "", "where-filter template")
	flag.StringVar(&orderByFlag, "order-by", "", "comma-separated order-by names, prefix with - for descending")
	flag.IntVar(&limitFlag, "limit", 0, "row limit (0 means unset)")
	flag.IntVar(&scenario, "scenario", 0, "run one of the built-in scenarios 1-6 instead of a custom query")
	flag.BoolVar(&table, "table", false, "print the plan as a markdown table instead of a structure tree")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Builds a dataflow plan against the built-in bookings semantic model.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -scenario 2\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -metrics bookings -group-by is_instant,metric_time__day\n", os.Args[0])
	}
	flag.Parse()

	m := bookingsManifest()
	idx, err := index.New(m)
	if err != nil {
		log.Fatalf("building semantic index: %v", err)
	}
	builder := dataflow.NewBuilder(idx)

	var req queryspec.QueryRequest
	if scenario > 0 {
		req = builtinScenario(scenario)
	} else {
		req = requestFromFlags(metricsFlag, groupByFlag, whereFlag, orderByFlag, limitFlag)
	}

	q, err := queryspec.BuildQuerySpec(idx, req)
	if err != nil {
		log.Fatalf("resolving query: %v", err)
	}

	var plan *dataflow.Plan
	if len(q.Metrics) == 0 {
		plan, err = builder.BuildPlanForDistinctValues(q)
	} else {
		plan, err = builder.BuildPlan(q)
	}
	if err != nil {
		log.Fatalf("building plan: %v", err)
	}

	fmt.Println(color.New(color.Bold, color.FgGreen).Sprint("=== dataflow plan ==="))
	if table {
		fmt.Print(plan.DumpTable())
	} else {
		fmt.Print(plan.StructureText())
	}
}

func requestFromFlags(metrics, groupBy, where, orderBy string, limit int) queryspec.QueryRequest {
	var req queryspec.QueryRequest
	for _, name := range splitNonEmpty(metrics) {
		req.Metrics = append(req.Metrics, queryspec.MetricInput{Name: name})
	}
	req.GroupBy = splitNonEmpty(groupBy)
	req.WhereFilter = where
	for _, name := range splitNonEmpty(orderBy) {
		descending := strings.HasPrefix(name, "-")
		req.OrderBy = append(req.OrderBy, queryspec.OrderByInput{Name: strings.TrimPrefix(name, "-"), Descending: descending})
	}
	if limit > 0 {
		req.Limit = &limit
	}
	return req
}

func splitNonEmpty(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// builtinScenario reproduces one of spec.md §8's concrete end-to-end
// scenarios, by number.
func builtinScenario(n int) queryspec.QueryRequest {
	switch n {
	case 1:
		return queryspec.QueryRequest{
			Metrics: []queryspec.MetricInput{{Name: "bookings"}},
			GroupBy: []string{"is_instant"},
		}
	case 2:
		return queryspec.QueryRequest{
			Metrics: []queryspec.MetricInput{{Name: "bookings"}},
			GroupBy: []string{"is_instant", "listing__country_latest"},
		}
	case 3:
		return queryspec.QueryRequest{
			Metrics: []queryspec.MetricInput{{Name: "bookings"}, {Name: "booking_value"}},
			GroupBy: []string{"is_instant", "metric_time__day"},
		}
	case 4:
		return queryspec.QueryRequest{
			Metrics: []queryspec.MetricInput{{Name: "trailing_2_months_revenue"}},
			GroupBy: []string{"metric_time__day"},
		}
	case 5:
		return queryspec.QueryRequest{
			Metrics: []queryspec.MetricInput{{Name: "bookings_5_day_lag"}},
			GroupBy: []string{"metric_time__day"},
		}
	case 6:
		// Ambiguous: listing__user__home_country is reachable via two
		// distinct 2-hop paths (users_source and user_profiles_source both
		// qualify), so resolving this plan fails with UnableToSatisfyQueryError.
		return queryspec.QueryRequest{
			Metrics: []queryspec.MetricInput{{Name: "views"}},
			GroupBy: []string{"listing__user__home_country"},
		}
	default:
		log.Fatalf("unknown scenario %d (expected 1-6)", n)
		return queryspec.QueryRequest{}
	}
}
