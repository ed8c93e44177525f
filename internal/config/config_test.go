package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kingrea/bpixm/internal/topology"
)

func TestLoadCreatesDefaultsWhenMissing(t *testing.T) {
	workDir := t.TempDir()
	cfg, err := Load(workDir)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(workDir, FileName)); err != nil {
		t.Fatalf("expected %s to be created: %v", FileName, err)
	}
	if cfg.ActiveRevision() != 1 {
		t.Fatalf("expected default revision 1, got %d", cfg.ActiveRevision())
	}
	if cfg.DataDir() != "data" {
		t.Fatalf("expected default data dir, got %q", cfg.DataDir())
	}
	if cfg.FillDirection() != topology.FillInwards {
		t.Fatalf("expected inwards fill, got %s", cfg.FillDirection())
	}
	if cfg.ZNumbering() != topology.ZNumberingOneBased {
		t.Fatalf("expected one-based numbering, got %s", cfg.ZNumbering())
	}
}

func TestLoadParsesYaml(t *testing.T) {
	workDir := t.TempDir()
	configYAML := strings.TrimSpace(`
version: 1
operator: " Alice "
data_dir: snapshots
data_revision: 7
fill: Outwards
autosave: true
colors: false
display_width: 100
z_numbering: zero-based
`)
	if err := os.WriteFile(filepath.Join(workDir, FileName), []byte(configYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(workDir)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Operator() != "Alice" {
		t.Fatalf("operator = %q, want Alice", cfg.Operator())
	}
	if cfg.DataDir() != "snapshots" || cfg.ActiveRevision() != 7 {
		t.Fatalf("wrong data location: %s rev %d", cfg.DataDir(), cfg.ActiveRevision())
	}
	if cfg.FillDirection() != topology.FillOutwards || !cfg.Autosave() || cfg.Colors() {
		t.Fatalf("wrong preferences: %+v", cfg.Settings)
	}
	if cfg.DisplayWidth() != 100 || cfg.ZNumbering() != topology.ZNumberingZeroBased {
		t.Fatalf("wrong display settings: %+v", cfg.Settings)
	}
}

func TestLoadValidation(t *testing.T) {
	workDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(workDir, FileName), []byte("fill: sideways\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(workDir); err == nil {
		t.Fatalf("expected validation error but got none")
	}
}

func TestLoadRejectsUnparsableFile(t *testing.T) {
	workDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(workDir, FileName), []byte("operator: [unterminated\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(workDir); err == nil {
		t.Fatalf("expected parse error but got none")
	}
}

func TestEnvOverridesAreNotPersisted(t *testing.T) {
	workDir := t.TempDir()
	t.Setenv("BPIXM_OPERATOR", "Bob")
	t.Setenv("BPIXM_REVISION", "3")
	t.Setenv("NO_COLOR", "1")
	cfg, err := Load(workDir)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Operator() != "Bob" || cfg.ActiveRevision() != 3 || cfg.Colors() {
		t.Fatalf("overrides not applied: operator=%q rev=%d colors=%v", cfg.Operator(), cfg.ActiveRevision(), cfg.Colors())
	}
	if err := cfg.SetAutosave(true); err != nil {
		t.Fatalf("SetAutosave: %v", err)
	}
	data, err := os.ReadFile(cfg.Path())
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "Bob") {
		t.Fatalf("env operator leaked into %s:\n%s", FileName, data)
	}
}

func TestSetActiveRevisionPersists(t *testing.T) {
	workDir := t.TempDir()
	t.Setenv("BPIXM_REVISION", "3")
	cfg, err := Load(workDir)
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.SetActiveRevision(5); err != nil {
		t.Fatalf("SetActiveRevision: %v", err)
	}
	if cfg.ActiveRevision() != 5 {
		t.Fatalf("active revision = %d, want 5", cfg.ActiveRevision())
	}
	if err := cfg.SetActiveRevision(0); err == nil {
		t.Fatalf("expected revision 0 to be rejected")
	}
	reloaded := &Config{WorkDir: workDir}
	if err := reloaded.loadSettings(); err != nil {
		t.Fatal(err)
	}
	if reloaded.Settings.DataRevision != 5 {
		t.Fatalf("persisted revision = %d, want 5", reloaded.Settings.DataRevision)
	}
}

func TestSetFillDirectionRejectsUnknown(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.SetFillDirection("diagonal"); err == nil {
		t.Fatalf("expected error for unknown fill direction")
	}
	if err := cfg.SetFillDirection(topology.FillRightToLeft); err != nil {
		t.Fatalf("SetFillDirection: %v", err)
	}
	if cfg.FillDirection() != topology.FillRightToLeft {
		t.Fatalf("fill = %s", cfg.FillDirection())
	}
}
