package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/OpenTasmania/oj-server-sub001/pkg/engine"
)

func TestCapability_ApplyManifest(t *testing.T) {
	dir := t.TempDir()
	cap := NewCapability("gis", dir, filepath.Join(dir, "manifests"), nil)

	fragment := engine.ManifestFragment{
		Name:    "nginx-tiles.conf",
		Content: "location /tiles/ { proxy_pass http://localhost:8080; }\n",
	}
	if err := cap.ApplyManifest(context.Background(), fragment); err != nil {
		t.Fatalf("apply manifest failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "manifests", "nginx-tiles.conf"))
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	if string(data) != fragment.Content {
		t.Errorf("unexpected manifest content: %q", string(data))
	}

	// Re-applying replaces the previous fragment.
	fragment.Content = "replaced\n"
	if err := cap.ApplyManifest(context.Background(), fragment); err != nil {
		t.Fatalf("re-apply failed: %v", err)
	}
	data, _ = os.ReadFile(filepath.Join(dir, "manifests", "nginx-tiles.conf"))
	if string(data) != "replaced\n" {
		t.Errorf("expected fragment replaced, got %q", string(data))
	}
}

func TestCapability_EnsureResourceMissingDDL(t *testing.T) {
	cap := NewCapability("gis", t.TempDir(), t.TempDir(), nil)
	if err := cap.EnsureResource(context.Background(), "table", "gtfs_stops"); err == nil {
		t.Error("expected missing DDL file to error")
	}
}
