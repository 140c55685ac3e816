// Package assets reads files from a stack of GRF archives.
package assets

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Faultbox/midgard-vat/pkg/grf"
)

// Manager searches several archives for a file. Archives added later take
// priority, so a patch archive can shadow the base data.grf.
type Manager struct {
	archives []*grf.Archive
	paths    []string
}

// Open opens every archive in order. On failure the already opened
// archives are closed.
func Open(paths ...string) (*Manager, error) {
	m := &Manager{}
	for _, path := range paths {
		if err := m.AddArchive(path); err != nil {
			m.Close()
			return nil, err
		}
	}
	return m, nil
}

// AddArchive adds a GRF archive with the highest priority so far.
func (m *Manager) AddArchive(path string) error {
	archive, err := grf.Open(path)
	if err != nil {
		return fmt.Errorf("opening archive %s: %w", path, err)
	}
	m.archives = append(m.archives, archive)
	m.paths = append(m.paths, path)
	return nil
}

// Archives returns the archive paths in priority order, lowest first.
func (m *Manager) Archives() []string {
	return append([]string(nil), m.paths...)
}

// Read returns the named file from the highest priority archive that has
// it. Errors other than a missing file stop the search.
func (m *Manager) Read(name string) ([]byte, error) {
	for i := len(m.archives) - 1; i >= 0; i-- {
		data, err := m.archives[i].Read(name)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, grf.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", m.paths[i], err)
		}
	}
	return nil, fmt.Errorf("%w: %s in %d archive(s)", grf.ErrNotFound, name, len(m.archives))
}

// Find merges Archive.Find over all archives, sorted and without duplicates.
func (m *Manager) Find(ext, pattern string) []string {
	seen := make(map[string]bool)
	var result []string
	for _, archive := range m.archives {
		for _, name := range archive.Find(ext, pattern) {
			if !seen[name] {
				seen[name] = true
				result = append(result, name)
			}
		}
	}
	sort.Strings(result)
	return result
}

// Close closes all archives.
func (m *Manager) Close() {
	for _, archive := range m.archives {
		archive.Close()
	}
	m.archives = nil
	m.paths = nil
}
