package catalog

import (
	"github.com/OpenTasmania/oj-server-sub001/pkg/engine"
)

// Feature flags consulted by the lazy GTFS provisioning hooks.
const (
	// FeatureShapes enables route geometry storage. Many regional feeds
	// ship without shapes.txt, so the table is optional.
	FeatureShapes = "gtfs_shapes"

	// FeatureTransfers enables transfer rule storage.
	FeatureTransfers = "gtfs_transfers"

	// FeatureFrequencies enables frequency-based trip storage.
	FeatureFrequencies = "gtfs_frequencies"
)

// GTFSResources declares the transit schema resources. The core tables
// every feed carries are required; the rest are gated on feature flags so
// deployments whose feeds omit those files never allocate the schema.
func GTFSResources() []engine.ResourceSpec {
	return []engine.ResourceSpec{
		{Kind: "table", Name: "gtfs_agency"},
		{Kind: "table", Name: "gtfs_stops"},
		{Kind: "table", Name: "gtfs_routes"},
		{Kind: "table", Name: "gtfs_trips"},
		{Kind: "table", Name: "gtfs_stop_times"},
		{Kind: "table", Name: "gtfs_calendar"},
		{Kind: "table", Name: "gtfs_shapes", Feature: FeatureShapes},
		{Kind: "table", Name: "gtfs_transfers", Feature: FeatureTransfers},
		{Kind: "table", Name: "gtfs_frequencies", Feature: FeatureFrequencies},
	}
}

// RegisterHooks installs the catalog's lifecycle hooks: lazy GTFS schema
// provisioning before each resource-provision point.
func RegisterHooks(h *engine.Hooks) error {
	return h.RegisterProvision(engine.BeforeResourceProvision, engine.LazyResources(GTFSResources()))
}
