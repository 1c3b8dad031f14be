package segment

import (
	"fmt"
	"sort"
	"strings"
)

// Registry manages all available segmenters
type Registry struct {
	segmenters map[string]Segmenter
}

// NewRegistry creates a new segmenter registry
func NewRegistry() *Registry {
	return &Registry{
		segmenters: make(map[string]Segmenter),
	}
}

// DefaultRegistry returns a registry holding the built-in segmenters
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewTesseract())
	r.Register(NewHOCR())
	r.Register(NewLayout())
	r.Register(NewComponents())
	return r
}

// Register adds a segmenter to the registry
func (r *Registry) Register(s Segmenter) {
	r.segmenters[strings.ToLower(s.Name())] = s
}

// Get retrieves a segmenter by name
func (r *Registry) Get(name string) (Segmenter, error) {
	s, exists := r.segmenters[strings.ToLower(name)]
	if !exists {
		return nil, fmt.Errorf("segmenter %s not found", name)
	}
	return s, nil
}

// List returns all available segmenter names, sorted
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.segmenters))
	for name := range r.segmenters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasSegmenter checks if a segmenter is registered
func (r *Registry) HasSegmenter(name string) bool {
	_, exists := r.segmenters[strings.ToLower(name)]
	return exists
}
