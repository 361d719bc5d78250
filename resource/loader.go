// Package resource loads arena definitions from a directory of JSON files.
package resource

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Loader holds every arena definition of a directory, keyed by name.
type Loader struct {
	Dir string

	mu     sync.RWMutex
	arenas map[string]*Arena
}

// NewLoader creates a Loader for dir. Call Load before use.
func NewLoader(dir string) *Loader {
	return &Loader{Dir: dir, arenas: make(map[string]*Arena)}
}

// Load reads and validates every *.json file of the directory. A failing file
// aborts the load and leaves the previous set in place.
func (l *Loader) Load() error {
	entries, err := os.ReadDir(l.Dir)
	if err != nil {
		return fmt.Errorf("resource: readdir %s: %w", l.Dir, err)
	}
	arenas := make(map[string]*Arena)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		a := &Arena{}
		if err := loadJSONObject(filepath.Join(l.Dir, e.Name()), a); err != nil {
			return err
		}
		if a.Name == "" {
			a.Name = strings.TrimSuffix(e.Name(), ".json")
		}
		if err := a.Validate(); err != nil {
			return fmt.Errorf("resource: %s: %w", e.Name(), err)
		}
		if _, dup := arenas[a.Name]; dup {
			return fmt.Errorf("resource: %s: duplicate arena name %q", e.Name(), a.Name)
		}
		arenas[a.Name] = a
	}
	l.mu.Lock()
	l.arenas = arenas
	l.mu.Unlock()
	return nil
}

// Put registers a definition directly, bypassing the directory.
func (l *Loader) Put(a *Arena) error {
	if err := a.Validate(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.arenas[a.Name] = a
	return nil
}

// Arena returns the named definition.
func (l *Loader) Arena(name string) (*Arena, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	a, ok := l.arenas[name]
	return a, ok
}

// Names lists the loaded definitions in sorted order.
func (l *Loader) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, 0, len(l.arenas))
	for n := range l.arenas {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func loadJSONObject[T any](path string, out *T) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("resource: read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("resource: parse %s: %w", path, err)
	}
	return nil
}
