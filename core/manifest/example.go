package manifest

import "github.com/metricflow-go/planner/core"

// ExampleBookingsManifest returns the small bookings/listings/users/revenue
// semantic model used by tests throughout this module and by
// cmd/metricplan's built-in scenarios, matching spec.md §8's "bookings"
// scenario set. It is not a test helper in the go test sense - it carries
// no *testing.T - but exists purely to give every package's tests (and the
// demonstration CLI) one shared, already-validated fixture instead of each
// reinventing a slightly different one.
//
// user_profiles_source exists only to make spec.md §8 scenario 6 (the
// ambiguous-join hard failure) reproducible: it declares "user" PRIMARY and
// carries its own home_country, so listing__user__home_country is reachable
// via two distinct, equally-valid 2-hop paths (through users_source or
// through user_profiles_source).
func ExampleBookingsManifest() Manifest {
	bookingsSource := DataSource{
		Name:         "bookings_source",
		NodeRelation: NodeRelation{SchemaName: "analytics", TableName: "fct_bookings"},
		Entities: []Entity{
			{Name: "booking", Role: Primary},
			{Name: "listing", Role: Foreign},
			{Name: "guest", Role: Foreign},
			{Name: "host", Role: Foreign},
		},
		Measures: []Measure{
			{Name: "bookings", Agg: AggCount, Expr: "booking_id"},
			{Name: "booking_value", Agg: AggSum, Expr: "booking_value"},
		},
		Dimensions: []Dimension{
			{Name: "is_instant", Type: Categorical},
			{Name: "ds", Type: Time, Grain: core.GranularityDay, IsPrimaryTimeDimension: true},
		},
	}

	listingsSource := DataSource{
		Name:         "listings_source",
		NodeRelation: NodeRelation{SchemaName: "analytics", TableName: "dim_listings"},
		Entities: []Entity{
			{Name: "listing", Role: Primary},
			{Name: "host", Role: Foreign},
			{Name: "user", Role: Foreign},
		},
		Dimensions: []Dimension{
			{Name: "country_latest", Type: Categorical},
			{Name: "capacity_latest", Type: Categorical},
		},
	}

	usersSource := DataSource{
		Name:         "users_source",
		NodeRelation: NodeRelation{SchemaName: "analytics", TableName: "dim_users"},
		Entities: []Entity{
			{Name: "user", Role: Primary},
		},
		Dimensions: []Dimension{
			{Name: "home_country", Type: Categorical},
		},
	}

	userProfilesSource := DataSource{
		Name:         "user_profiles_source",
		NodeRelation: NodeRelation{SchemaName: "analytics", TableName: "dim_user_profiles"},
		Entities: []Entity{
			{Name: "user", Role: Primary},
		},
		Dimensions: []Dimension{
			{Name: "home_country", Type: Categorical},
		},
	}

	viewsSource := DataSource{
		Name:         "views_source",
		NodeRelation: NodeRelation{SchemaName: "analytics", TableName: "fct_listing_views"},
		Entities: []Entity{
			{Name: "view", Role: Primary},
			{Name: "listing", Role: Foreign},
		},
		Measures: []Measure{
			{Name: "views", Agg: AggCount, Expr: "view_id"},
		},
		Dimensions: []Dimension{
			{Name: "ds", Type: Time, Grain: core.GranularityDay, IsPrimaryTimeDimension: true},
		},
	}

	revenueSource := DataSource{
		Name:         "revenue_source",
		NodeRelation: NodeRelation{SchemaName: "analytics", TableName: "fct_daily_revenue"},
		Entities: []Entity{
			{Name: "booking", Role: Primary},
		},
		Measures: []Measure{
			{Name: "revenue", Agg: AggSum, Expr: "revenue"},
		},
		Dimensions: []Dimension{
			{Name: "ds", Type: Time, Grain: core.GranularityDay, IsPrimaryTimeDimension: true},
		},
	}

	return Manifest{
		DataSources: []DataSource{bookingsSource, listingsSource, usersSource, userProfilesSource, viewsSource, revenueSource},
		Metrics: []Metric{
			{
				Name:    "bookings",
				Type:    MetricSimple,
				Measure: &InputMeasure{MeasureReference: core.MeasureReference{Name: "bookings"}},
			},
			{
				Name:    "booking_value",
				Type:    MetricSimple,
				Measure: &InputMeasure{MeasureReference: core.MeasureReference{Name: "booking_value"}},
			},
			{
				Name:               "average_booking_value",
				Type:               MetricRatio,
				NumeratorMeasure:   &InputMeasure{MeasureReference: core.MeasureReference{Name: "booking_value"}},
				DenominatorMeasure: &InputMeasure{MeasureReference: core.MeasureReference{Name: "bookings"}},
			},
			{
				Name:       "trailing_2_months_revenue",
				Type:       MetricCumulative,
				Measure:    &InputMeasure{MeasureReference: core.MeasureReference{Name: "revenue"}},
				Cumulative: &CumulativeParams{Window: &core.TimeOffset{Count: 2, Grain: core.GranularityMonth}},
			},
			{
				Name: "bookings_5_day_lag",
				Type: MetricDerived,
				InputMetrics: []InputMetric{
					{MetricReference: core.MetricReference{Name: "bookings"}, OffsetWindow: &core.TimeOffset{Count: 5, Grain: core.GranularityDay}},
				},
			},
			{
				Name:          "bookings_fill_zero",
				Type:          MetricSimple,
				Measure:       &InputMeasure{MeasureReference: core.MeasureReference{Name: "bookings"}},
				FillNullsWith: FillZero,
			},
			{
				Name:    "views",
				Type:    MetricSimple,
				Measure: &InputMeasure{MeasureReference: core.MeasureReference{Name: "views"}},
			},
		},
		TimeSpines: []TimeSpineSource{
			{DataSourceName: "revenue_source", ColumnName: "ds", Grain: core.GranularityDay},
		},
	}
}
