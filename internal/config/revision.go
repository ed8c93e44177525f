package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/kingrea/bpixm/internal/topology"
)

// RevisionFileName is the per-revision config inside data/{n}/.
const RevisionFileName = "config.yaml"

// LayerPlaceholder is substituted with the layer name in file templates.
const LayerPlaceholder = "{Layer}"

var validate = validator.New(validator.WithRequiredStructEnabled())

// LayerSpec declares one layer of the detector.
type LayerSpec struct {
	Name       string `yaml:"name" validate:"required"`
	Ladders    int    `yaml:"ladders" validate:"min=1"`
	ZPositions int    `yaml:"z_positions" validate:"min=1"`
	TBMs       int    `yaml:"tbms" validate:"min=1"`
}

// Topology converts the spec into addressing rules.
func (s LayerSpec) Topology(numbering topology.ZNumbering) topology.Layer {
	return topology.Layer{
		Name:       s.Name,
		Ladders:    s.Ladders,
		ZPositions: s.ZPositions,
		TBMs:       s.TBMs,
		Numbering:  numbering,
	}
}

// FileTemplates name the per-layer data files. Each must contain {Layer}.
type FileTemplates struct {
	Plan    string `yaml:"plan" validate:"required"`
	Mounted string `yaml:"mounted" validate:"required"`
	HubIDs  string `yaml:"hub_ids" validate:"required"`
	Sectors string `yaml:"sectors" validate:"required"`
}

// RevisionMeta carries free-form revision metadata.
type RevisionMeta struct {
	Tag string `yaml:"tag"`
}

// RevisionConfig models data/{n}/config.yaml.
type RevisionConfig struct {
	Layers      []LayerSpec   `yaml:"layers" validate:"required,min=1,unique=Name,dive"`
	Files       FileTemplates `yaml:"files"`
	ActiveLayer string        `yaml:"active_layer"`
	Revision    RevisionMeta  `yaml:"revision"`
}

// ParseRevisionConfig decodes and validates a revision config.
func ParseRevisionConfig(data []byte) (RevisionConfig, error) {
	var rc RevisionConfig
	if err := yaml.Unmarshal(data, &rc); err != nil {
		return RevisionConfig{}, fmt.Errorf("config: parse revision config: %w", err)
	}
	rc.applyDefaults()
	rc.normalize()
	if err := rc.Validate(); err != nil {
		return RevisionConfig{}, err
	}
	return rc, nil
}

// Marshal encodes the revision config.
func (rc RevisionConfig) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(rc)
	if err != nil {
		return nil, fmt.Errorf("config: encode revision config: %w", err)
	}
	return data, nil
}

// Validate checks structure and cross-field rules.
func (rc RevisionConfig) Validate() error {
	if err := validate.Struct(rc); err != nil {
		return fmt.Errorf("config: revision config: %w", err)
	}
	for name, tmpl := range map[string]string{
		"plan": rc.Files.Plan, "mounted": rc.Files.Mounted,
		"hub_ids": rc.Files.HubIDs, "sectors": rc.Files.Sectors,
	} {
		if !strings.Contains(tmpl, LayerPlaceholder) {
			return fmt.Errorf("config: revision config: files.%s must contain %s", name, LayerPlaceholder)
		}
	}
	if _, ok := rc.Layer(rc.ActiveLayer); !ok {
		return fmt.Errorf("config: revision config: active_layer %q is not a configured layer", rc.ActiveLayer)
	}
	return nil
}

// LayerNames returns the layer names in declaration order.
func (rc RevisionConfig) LayerNames() []string {
	names := make([]string, len(rc.Layers))
	for i, l := range rc.Layers {
		names[i] = l.Name
	}
	return names
}

// Layer looks up a layer spec by name.
func (rc RevisionConfig) Layer(name string) (LayerSpec, bool) {
	for _, l := range rc.Layers {
		if l.Name == name {
			return l, true
		}
	}
	return LayerSpec{}, false
}

// FileFor expands a template for one layer.
func FileFor(template, layer string) string {
	return strings.ReplaceAll(template, LayerPlaceholder, layer)
}

func (rc *RevisionConfig) applyDefaults() {
	if rc.Files.Plan == "" {
		rc.Files.Plan = "{Layer}_plan.txt"
	}
	if rc.Files.Mounted == "" {
		rc.Files.Mounted = "{Layer}_mounted.txt"
	}
	if rc.Files.HubIDs == "" {
		rc.Files.HubIDs = "{Layer}_hubids.txt"
	}
	if rc.Files.Sectors == "" {
		rc.Files.Sectors = "{Layer}_sectors.txt"
	}
}

func (rc *RevisionConfig) normalize() {
	for i := range rc.Layers {
		rc.Layers[i].Name = strings.TrimSpace(rc.Layers[i].Name)
	}
	rc.ActiveLayer = strings.TrimSpace(rc.ActiveLayer)
	if rc.ActiveLayer == "" && len(rc.Layers) > 0 {
		rc.ActiveLayer = rc.Layers[0].Name
	}
}
