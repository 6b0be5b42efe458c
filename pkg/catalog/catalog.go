package catalog

import (
	"context"

	"github.com/OpenTasmania/oj-server-sub001/pkg/engine"
)

// Provisioner performs the actual system mutations for a catalog
// component. The catalog delegates every install, uninstall, and probe to
// it, identified by component name.
type Provisioner interface {
	Install(ctx context.Context, run *engine.ExecutionContext, component string) error
	Uninstall(ctx context.Context, run *engine.ExecutionContext, component string) error
	Installed(ctx context.Context, run *engine.ExecutionContext, component string) (bool, error)
}

// Component categories. Plans group and report steps by these.
const (
	CategoryDatabase  = "database"
	CategoryData      = "data"
	CategoryRouting   = "routing"
	CategoryRendering = "rendering"
	CategoryWeb       = "web"
	CategorySecurity  = "security"
	CategoryTransit   = "transit"
)

// Entry is one row of the static component manifest.
type Entry struct {
	Name         string
	Dependencies []string
	Description  string
	Category     string
}

// Components returns the full component manifest in registration order.
// The order satisfies the registered-before rule: every dependency appears
// earlier in the slice than its dependents.
func Components() []Entry {
	return []Entry{
		{
			Name:        "postgresql",
			Description: "PostgreSQL server and service configuration",
			Category:    CategoryDatabase,
		},
		{
			Name:         "postgis",
			Dependencies: []string{"postgresql"},
			Description:  "PostGIS and hstore extensions on the gis database",
			Category:     CategoryDatabase,
		},
		{
			Name:         "osmdata",
			Dependencies: []string{"postgis"},
			Description:  "OpenStreetMap extract import via osm2pgsql",
			Category:     CategoryData,
		},
		{
			Name:         "pgadmin",
			Dependencies: []string{"postgresql"},
			Description:  "pgAdmin web interface for database administration",
			Category:     CategoryDatabase,
		},
		{
			Name:         "osrm",
			Dependencies: []string{"osmdata"},
			Description:  "OSRM routing backend built from the imported extract",
			Category:     CategoryRouting,
		},
		{
			Name:         "carto",
			Dependencies: []string{"osmdata"},
			Description:  "OpenStreetMap Carto stylesheet compilation",
			Category:     CategoryRendering,
		},
		{
			Name:         "renderd",
			Dependencies: []string{"carto"},
			Description:  "renderd raster tile daemon with mod_tile layout",
			Category:     CategoryRendering,
		},
		{
			Name:         "apache",
			Dependencies: []string{"renderd"},
			Description:  "Apache with mod_tile serving raster tiles",
			Category:     CategoryWeb,
		},
		{
			Name:         "gtfs",
			Dependencies: []string{"postgis"},
			Description:  "GTFS transit feed schema and ETL import",
			Category:     CategoryTransit,
		},
		{
			Name:         "website",
			Dependencies: []string{"apache"},
			Description:  "Static map website with Leaflet front end",
			Category:     CategoryWeb,
		},
		{
			Name:         "nginx",
			Dependencies: []string{"apache", "pgadmin", "website"},
			Description:  "nginx reverse proxy in front of the stack",
			Category:     CategoryWeb,
		},
		{
			Name:         "certbot",
			Dependencies: []string{"nginx"},
			Description:  "Let's Encrypt certificates for the proxy",
			Category:     CategorySecurity,
		},
		{
			Name:         "ufw",
			Dependencies: []string{"nginx"},
			Description:  "UFW firewall rules for the exposed services",
			Category:     CategorySecurity,
		},
	}
}

// configurator adapts one manifest entry plus the shared Provisioner to
// the engine's Configurator contract.
type configurator struct {
	entry Entry
	prov  Provisioner
}

var (
	_ engine.Configurator = (*configurator)(nil)
	_ engine.Describer    = (*configurator)(nil)
	_ engine.Categorizer  = (*configurator)(nil)
)

func (c *configurator) Name() string           { return c.entry.Name }
func (c *configurator) Dependencies() []string { return c.entry.Dependencies }
func (c *configurator) Description() string    { return c.entry.Description }
func (c *configurator) Category() string       { return c.entry.Category }

func (c *configurator) Install(ctx context.Context, run *engine.ExecutionContext) error {
	return c.prov.Install(ctx, run, c.entry.Name)
}

func (c *configurator) Uninstall(ctx context.Context, run *engine.ExecutionContext) error {
	return c.prov.Uninstall(ctx, run, c.entry.Name)
}

func (c *configurator) IsInstalled(ctx context.Context, run *engine.ExecutionContext) (bool, error) {
	return c.prov.Installed(ctx, run, c.entry.Name)
}

// Register wires every catalog component into the registry, delegating
// bodies to the given provisioner. Registration order follows the
// manifest, so dependencies are always registered first.
func Register(r *engine.Registry, p Provisioner) error {
	for _, e := range Components() {
		if err := r.Register(&configurator{entry: e, prov: p}); err != nil {
			return err
		}
	}
	return nil
}
