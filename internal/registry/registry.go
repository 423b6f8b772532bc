package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pfrederiksen/collegenav/internal/institution"
)

// fileFormat is the on-disk layout
type fileFormat struct {
	MajorIDs   map[string]int `json:"major_ids"`
	ProgramIDs map[string]int `json:"program_ids"`
}

// Registry maps major and program names to stable IDs
type Registry struct {
	mu       sync.Mutex
	path     string
	majors   map[string]int
	programs map[string]int
}

// Load reads the registry at path. A missing file yields an empty registry.
func Load(path string) (*Registry, error) {
	r := &Registry{
		path:     path,
		majors:   make(map[string]int),
		programs: make(map[string]int),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, fmt.Errorf("reading registry: %w", err)
	}

	var stored fileFormat
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("parsing registry %s: %w", path, err)
	}

	for name, id := range stored.MajorIDs {
		if id < 1 {
			return nil, fmt.Errorf("parsing registry %s: major %q has invalid id %d", path, name, id)
		}
		r.majors[name] = id
	}
	for name, id := range stored.ProgramIDs {
		if id < 1 {
			return nil, fmt.Errorf("parsing registry %s: program %q has invalid id %d", path, name, id)
		}
		r.programs[name] = id
	}

	return r, nil
}

// Path returns the file the registry persists to
func (r *Registry) Path() string {
	return r.path
}

// MajorID returns the ID for a major name, assigning and persisting a new one on first sight
func (r *Registry) MajorID(name string) (int, error) {
	return r.getOrAssign(r.majors, name)
}

// ProgramID returns the ID for a program name, assigning and persisting a new one on first sight
func (r *Registry) ProgramID(name string) (int, error) {
	return r.getOrAssign(r.programs, name)
}

// Len returns the number of registered majors and programs
func (r *Registry) Len() (majors, programs int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.majors), len(r.programs)
}

// Majors returns a copy of the major mapping
func (r *Registry) Majors() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return copyMap(r.majors)
}

// Programs returns a copy of the program mapping
func (r *Registry) Programs() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return copyMap(r.programs)
}

func (r *Registry) getOrAssign(m map[string]int, name string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := m[name]; ok {
		return id, nil
	}

	id := nextID(m)
	m[name] = id

	if err := r.save(); err != nil {
		// Keep memory in line with what is on disk.
		delete(m, name)
		return 0, err
	}

	return id, nil
}

// Save writes both mappings to disk
func (r *Registry) Save() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.save()
}

// save replaces the registry file through a temp file in the same directory.
// Callers hold r.mu.
func (r *Registry) save() error {
	data, err := json.MarshalIndent(fileFormat{MajorIDs: r.majors, ProgramIDs: r.programs}, "", "    ")
	if err != nil {
		return &institution.PersistenceError{Op: "encoding registry", Path: r.path, Err: err}
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return &institution.PersistenceError{Op: "writing registry", Path: r.path, Err: err}
	}
	tmpName := tmp.Name()

	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &institution.PersistenceError{Op: "writing registry", Path: r.path, Err: err}
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &institution.PersistenceError{Op: "writing registry", Path: r.path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &institution.PersistenceError{Op: "writing registry", Path: r.path, Err: err}
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		os.Remove(tmpName)
		return &institution.PersistenceError{Op: "replacing registry", Path: r.path, Err: err}
	}

	return nil
}

// nextID is one more than the largest ID in m, or 1 for an empty map
func nextID(m map[string]int) int {
	max := 0
	for _, id := range m {
		if id > max {
			max = id
		}
	}
	return max + 1
}

func copyMap(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
