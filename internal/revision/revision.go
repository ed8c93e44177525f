// Package revision stores the dataset as numbered directories under the
// data root. One revision is current at a time; it can be saved in place,
// forked into the next number or swapped for another one.
package revision

import (
	"github.com/kingrea/bpixm/internal/config"
	"github.com/kingrea/bpixm/internal/locations"
	"github.com/kingrea/bpixm/internal/logbook"
	"github.com/kingrea/bpixm/internal/slots"
	"github.com/kingrea/bpixm/internal/topology"
)

const (
	// LogFileName is the revision log inside each revision directory.
	LogFileName = "bpixm.log"
	// LocationsFileName is the storage-location index of a revision.
	LocationsFileName = "storage_locations.txt"
)

// LayerData is everything loaded for one layer.
type LayerData struct {
	Topology topology.Layer
	Plan     *slots.Matrix
	Mounted  *slots.Matrix
	Sectors  slots.Sectors
}

// Revision is one loaded revision directory.
type Revision struct {
	Number    int
	Dir       string
	Config    config.RevisionConfig
	Locations *locations.Index
	Logbook   *logbook.Logbook

	// Warnings collects non-fatal problems met while loading: missing
	// files and the HEAD fallback.
	Warnings []string
	// Rejected lists malformed rows per file; each was also logged.
	Rejected map[string][]*slots.FormatError

	layers map[string]*LayerData
}

// LayerNames returns the configured layers in declaration order.
func (r *Revision) LayerNames() []string {
	return r.Config.LayerNames()
}

// Layer returns the data of one layer.
func (r *Revision) Layer(name string) (*LayerData, bool) {
	data, ok := r.layers[name]
	return data, ok
}

// ActiveLayer is the layer the operator last worked on.
func (r *Revision) ActiveLayer() string {
	return r.Config.ActiveLayer
}

// Tag is the free-form revision label.
func (r *Revision) Tag() string {
	return r.Config.Revision.Tag
}

// Dirty reports whether any mounted matrix has unsaved changes.
func (r *Revision) Dirty() bool {
	if r == nil {
		return false
	}
	for _, data := range r.layers {
		if data.Mounted.Dirty() {
			return true
		}
	}
	return false
}

func (r *Revision) markClean() {
	for _, data := range r.layers {
		data.Mounted.MarkClean()
	}
}
