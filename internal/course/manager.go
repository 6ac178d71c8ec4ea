package course

import (
	"sort"
	"strings"
	"sync"

	"github.com/nlavrov/studium/internal/model"
)

// Manager holds all in-memory course state, keyed by course name.
// Courses are created on first access and live for the process lifetime.
type Manager struct {
	mu      sync.Mutex
	courses map[string]*model.Course
}

// NewManager creates an empty course manager.
func NewManager() *Manager {
	return &Manager{courses: make(map[string]*model.Course)}
}

// Get returns the course with the given name, creating it (with the
// seeded notebook) if it does not exist. Names are trimmed but otherwise
// taken as-is.
func (m *Manager) Get(name string) *model.Course {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "default"
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.courses[name]; ok {
		return c
	}
	c := &model.Course{
		Name:     name,
		Notebook: seedNotebook(),
	}
	m.courses[name] = c
	return c
}

// Names lists all known course names, sorted.
func (m *Manager) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.courses))
	for name := range m.courses {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
