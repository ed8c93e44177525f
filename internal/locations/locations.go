// Package locations maps module IDs to the physical storage bin they are
// kept in before mounting.
package locations

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

const (
	// Unknown is returned for modules missing from the index.
	Unknown = "unknown"
	// Empty is returned for modules listed without a location.
	Empty = "empty"
)

// Index is a read-only module ID -> location table.
type Index struct {
	entries map[string]string
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{entries: map[string]string{}}
}

// Parse reads "moduleId;location" lines. "," and tab are accepted as
// separators too. Lines without a second field are skipped.
func Parse(r io.Reader) (*Index, error) {
	idx := NewIndex()
	normalize := strings.NewReplacer(",", ";", "\t", ";")
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		parts := strings.Split(normalize.Replace(strings.TrimSpace(line)), ";")
		if len(parts) >= 2 {
			idx.entries[parts[0]] = strings.TrimSpace(parts[1])
		}
		if err == io.EOF {
			return idx, nil
		}
		if err != nil {
			return idx, fmt.Errorf("locations: read index: %w", err)
		}
	}
}

// Lookup returns the location of id, Unknown or Empty.
func (i *Index) Lookup(id string) string {
	if i == nil {
		return Unknown
	}
	loc, ok := i.entries[id]
	if !ok {
		return Unknown
	}
	if loc == "" {
		return Empty
	}
	return loc
}

// Len is the number of indexed modules.
func (i *Index) Len() int {
	if i == nil {
		return 0
	}
	return len(i.entries)
}

// IsUnknown reports whether a Lookup result means the module may not exist.
func IsUnknown(location string) bool {
	return location == Unknown || location == Empty
}
