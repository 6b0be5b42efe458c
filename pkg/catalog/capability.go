package catalog

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/OpenTasmania/oj-server-sub001/pkg/engine"
	"github.com/OpenTasmania/oj-server-sub001/pkg/telemetry"
)

// Capability is the provisioning capability handed to lifecycle hooks.
// Schema resources are created through psql against the gis database and
// manifest fragments are written to a directory the web components pick
// up.
type Capability struct {
	// Database is the database name resources are created in.
	Database string

	// SchemaDir holds one idempotent DDL file per (kind, name) pair,
	// laid out as <kind>/<name>.sql.
	SchemaDir string

	// ManifestDir receives applied manifest fragments.
	ManifestDir string

	logger *telemetry.Logger
}

var _ engine.ProvisionCapability = (*Capability)(nil)

// NewCapability creates a provisioning capability.
func NewCapability(database, schemaDir, manifestDir string, logger *telemetry.Logger) *Capability {
	if logger == nil {
		logger, _ = telemetry.NewLogger(telemetry.LoggingConfig{Level: "info", Format: "json", Output: "stderr"})
	}
	return &Capability{
		Database:    database,
		SchemaDir:   schemaDir,
		ManifestDir: manifestDir,
		logger:      logger.NewComponentLogger("capability"),
	}
}

// EnsureResource creates the named resource if it does not already exist
// by running its DDL file. The DDL is expected to be idempotent
// (CREATE TABLE IF NOT EXISTS and friends).
func (c *Capability) EnsureResource(ctx context.Context, kind, name string) error {
	ddl := filepath.Join(c.SchemaDir, kind, name+".sql")
	if _, err := os.Stat(ddl); err != nil {
		return fmt.Errorf("no ddl for %s %q: %w", kind, name, err)
	}

	cmd := exec.CommandContext(ctx, "psql",
		"--no-psqlrc",
		"--set", "ON_ERROR_STOP=1",
		"--dbname", c.Database,
		"--file", ddl,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ensure %s %q: %w: %s", kind, name, err, string(out))
	}
	c.logger.WithField("kind", kind).WithField("name", name).Debug("resource ensured")
	return nil
}

// ApplyManifest writes the fragment into the manifest directory,
// replacing any previous fragment of the same name.
func (c *Capability) ApplyManifest(_ context.Context, fragment engine.ManifestFragment) error {
	if err := os.MkdirAll(c.ManifestDir, 0o755); err != nil {
		return fmt.Errorf("create manifest dir: %w", err)
	}
	path := filepath.Join(c.ManifestDir, fragment.Name)
	if err := os.WriteFile(path, []byte(fragment.Content), 0o644); err != nil {
		return fmt.Errorf("apply manifest %q: %w", fragment.Name, err)
	}
	c.logger.WithField("manifest", fragment.Name).Debug("manifest applied")
	return nil
}
