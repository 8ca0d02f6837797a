// Package prompt loads named prompt templates from disk and renders them
// with {placeholder} substitution.
package prompt

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// NotFoundError reports a missing template file.
type NotFoundError struct {
	Category string
	Name     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("prompt template not found: %s/%s", e.Category, e.Name)
}

// Registry caches prompt templates loaded from <dir>/<category>/<NAME>.txt.
type Registry struct {
	dir string

	mu    sync.RWMutex
	cache map[string]string
}

// NewRegistry creates a registry rooted at dir. Templates are loaded lazily
// on first render and cached for the process lifetime.
func NewRegistry(dir string) *Registry {
	return &Registry{
		dir:   dir,
		cache: make(map[string]string),
	}
}

// Render loads the (category, name) template and substitutes every {key}
// placeholder with the corresponding value in vars. Placeholders with no
// matching key are left verbatim, so partial renders are safe.
func (r *Registry) Render(category, name string, vars map[string]string) (string, error) {
	tmpl, err := r.load(category, name)
	if err != nil {
		return "", err
	}
	for key, value := range vars {
		tmpl = strings.ReplaceAll(tmpl, "{"+key+"}", value)
	}
	return tmpl, nil
}

func (r *Registry) load(category, name string) (string, error) {
	key := category + "/" + name

	r.mu.RLock()
	cached, ok := r.cache[key]
	r.mu.RUnlock()
	if ok {
		return cached, nil
	}

	path := filepath.Join(r.dir, category, name+".txt")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", &NotFoundError{Category: category, Name: name}
		}
		return "", fmt.Errorf("read prompt template %s: %w", path, err)
	}

	tmpl := string(data)
	r.mu.Lock()
	r.cache[key] = tmpl
	r.mu.Unlock()
	return tmpl, nil
}
