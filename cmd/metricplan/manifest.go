package main

import "github.com/metricflow-go/planner/core/manifest"

// bookingsManifest is the semantic model behind spec.md §8's scenarios: a
// bookings fact table joined to listings and users, a dedicated
// cumulative-revenue source, and a views fact table two hops from
// home_country - ambiguously, since both users_source and
// user_profiles_source qualify (scenario 6). It is the same fixture
// core/manifest exports for use by tests across this module, so the CLI and
// the test suite never drift apart.
func bookingsManifest() manifest.Manifest {
	return manifest.ExampleBookingsManifest()
}
