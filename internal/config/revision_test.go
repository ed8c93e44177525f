package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/bpixm/internal/topology"
)

func TestParseRevisionConfigDefaults(t *testing.T) {
	rc, err := ParseRevisionConfig([]byte(strings.TrimSpace(`
layers:
  - name: " L1 "
    ladders: 6
    z_positions: 4
    tbms: 1
  - name: L2
    ladders: 14
    z_positions: 4
    tbms: 2
revision:
  tag: first
`)))
	require.NoError(t, err)
	assert.Equal(t, []string{"L1", "L2"}, rc.LayerNames())
	assert.Equal(t, "L1", rc.ActiveLayer)
	assert.Equal(t, "first", rc.Revision.Tag)
	assert.Equal(t, "L2_mounted.txt", FileFor(rc.Files.Mounted, "L2"))

	spec, ok := rc.Layer("L2")
	require.True(t, ok)
	layer := spec.Topology(topology.ZNumberingOneBased)
	assert.Equal(t, 8, layer.SlotsPerLadder())
	assert.Equal(t, 2, layer.TBMs)
}

func TestParseRevisionConfigValidation(t *testing.T) {
	cases := map[string]string{
		"no layers":        "layers: []\n",
		"zero ladders":     "layers:\n  - {name: L1, ladders: 0, z_positions: 4, tbms: 1}\n",
		"duplicate layers": "layers:\n  - {name: L1, ladders: 1, z_positions: 4, tbms: 1}\n  - {name: L1, ladders: 1, z_positions: 4, tbms: 1}\n",
		"bad template":     "layers:\n  - {name: L1, ladders: 1, z_positions: 4, tbms: 1}\nfiles: {plan: plan.txt}\n",
		"unknown active":   "layers:\n  - {name: L1, ladders: 1, z_positions: 4, tbms: 1}\nactive_layer: L9\n",
		"not yaml":         "layers: [\n",
	}
	for name, input := range cases {
		_, err := ParseRevisionConfig([]byte(input))
		assert.Errorf(t, err, "%s: expected error", name)
	}
}

func TestRevisionConfigMarshalRoundTrip(t *testing.T) {
	rc, err := ParseRevisionConfig([]byte("layers:\n  - {name: L1, ladders: 2, z_positions: 4, tbms: 1}\n"))
	require.NoError(t, err)
	rc.Revision.Tag = "after survey"
	data, err := rc.Marshal()
	require.NoError(t, err)
	again, err := ParseRevisionConfig(data)
	require.NoError(t, err)
	assert.Equal(t, rc, again)
}
