package storage

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Model declares an entity target: which table backs it, its primary key,
// and the attributes an import may assign.
type Model struct {
	Name       string
	Table      string
	PrimaryKey string // default "id"
	Fillable   []string
	Timestamps bool // maintain created_at / updated_at
}

// Assignable reports whether field may be written or matched on: it is
// the primary key or a fillable attribute.
func (m Model) Assignable(field string) bool {
	if field == m.primaryKey() {
		return true
	}
	for _, f := range m.Fillable {
		if f == field {
			return true
		}
	}
	return false
}

func (m Model) primaryKey() string {
	if m.PrimaryKey == "" {
		return "id"
	}
	return m.PrimaryKey
}

func (m Model) table() string {
	if m.Table == "" {
		return m.Name
	}
	return m.Table
}

// ModelRegistry holds the declared models. Lookups ignore case.
type ModelRegistry struct {
	mu     sync.RWMutex
	models map[string]Model
}

// NewModelRegistry returns an empty registry.
func NewModelRegistry() *ModelRegistry {
	return &ModelRegistry{models: make(map[string]Model)}
}

// Register adds a model.
// Panics if a model with the same name is already registered.
func (r *ModelRegistry) Register(m Model) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(m.Name)
	if _, exists := r.models[key]; exists {
		panic(fmt.Sprintf("model already registered: %s", m.Name))
	}
	r.models[key] = m
}

// Get returns a model by name.
// Returns false if not found.
func (r *ModelRegistry) Get(name string) (Model, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.models[strings.ToLower(name)]
	return m, ok
}

// Names returns the registered model names, sorted.
func (r *ModelRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.models))
	for _, m := range r.models {
		names = append(names, m.Name)
	}
	sort.Strings(names)
	return names
}

// EntityPrefix marks a target name as an entity model rather than a table.
const EntityPrefix = `\`

// ParseTargetName splits a target name into its entity flag and bare name.
// A leading backslash selects entity mode: `\Customer`.
func ParseTargetName(name string) (entity bool, bare string) {
	name = strings.TrimSpace(name)
	if strings.HasPrefix(name, EntityPrefix) {
		return true, strings.TrimPrefix(name, EntityPrefix)
	}
	return false, name
}
