// Package jurisdiction keeps one compiled flow chart per jurisdiction and swaps it
// atomically when a new version of the definition is published.
package jurisdiction

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/liamcoop/pdc/answerers"
	"github.com/liamcoop/pdc/flowchart"
	"github.com/liamcoop/pdc/internal/logger"
	"github.com/liamcoop/pdc/pdc"
)

// ErrUnknownJurisdiction is returned for jurisdictions without a loaded chart
var ErrUnknownJurisdiction = errors.New("unknown jurisdiction")

// entry pairs a compiled chart with the definition it was built from
type entry struct {
	definition *flowchart.Definition
	chart      *pdc.FlowChart
}

// Manager manages compiled charts for all jurisdictions
type Manager struct {
	charts   map[string]*entry
	store    flowchart.Store
	registry *answerers.Registry
	compiler *answerers.Compiler
	mu       sync.RWMutex

	// writeMu serializes store writes so the loaded chart always matches the active version
	writeMu sync.Mutex
}

// NewManager creates a new manager instance
func NewManager(store flowchart.Store, registry *answerers.Registry, compiler *answerers.Compiler) *Manager {
	return &Manager{
		charts:   make(map[string]*entry),
		store:    store,
		registry: registry,
		compiler: compiler,
	}
}

// LoadAll compiles every active definition in the store
func (m *Manager) LoadAll(ctx context.Context) error {
	defs, err := m.store.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch flow charts: %w", err)
	}

	loaded := make(map[string]*entry, len(defs))
	for _, def := range defs {
		chart, err := flowchart.Compile(def, m.registry, m.compiler)
		if err != nil {
			return fmt.Errorf("failed to compile flow chart for %s: %w", def.Jurisdiction, err)
		}
		loaded[def.Jurisdiction] = &entry{definition: def, chart: chart}
	}

	m.mu.Lock()
	m.charts = loaded
	m.mu.Unlock()

	logger.Info("Loaded flow charts", "count", len(loaded))
	return nil
}

// Update validates and compiles def, saves it as the new active version and swaps it in.
// Running questionnaires keep the chart they started with.
func (m *Manager) Update(ctx context.Context, def *flowchart.Definition) (int, error) {
	chart, err := flowchart.Compile(def, m.registry, m.compiler)
	if err != nil {
		return 0, err
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	version, err := m.store.Put(ctx, def)
	if err != nil {
		return 0, fmt.Errorf("failed to save flow chart: %w", err)
	}

	stored := *def
	stored.Version = version

	m.mu.Lock()
	m.charts[def.Jurisdiction] = &entry{definition: &stored, chart: chart}
	m.mu.Unlock()

	logger.Info("Updated flow chart",
		"jurisdiction", def.Jurisdiction,
		"id", def.ID,
		"version", version,
		"states", chart.Len(),
	)
	return version, nil
}

// Get retrieves the compiled chart of a jurisdiction
func (m *Manager) Get(jurisdiction string) (*pdc.FlowChart, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, exists := m.charts[jurisdiction]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJurisdiction, jurisdiction)
	}
	return e.chart, nil
}

// Definition retrieves the definition the current chart of a jurisdiction was built from
func (m *Manager) Definition(jurisdiction string) (*flowchart.Definition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, exists := m.charts[jurisdiction]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJurisdiction, jurisdiction)
	}
	return e.definition, nil
}

// List returns all loaded jurisdictions in sorted order
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	jurisdictions := make([]string, 0, len(m.charts))
	for j := range m.charts {
		jurisdictions = append(jurisdictions, j)
	}
	sort.Strings(jurisdictions)
	return jurisdictions
}

// Remove deactivates a jurisdiction's chart in the store and unloads it.
// Stored versions are kept.
func (m *Manager) Remove(ctx context.Context, jurisdiction string) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	if _, err := m.Get(jurisdiction); err != nil {
		return err
	}

	if err := m.store.Deactivate(ctx, jurisdiction); err != nil && !errors.Is(err, flowchart.ErrNotFound) {
		return fmt.Errorf("failed to deactivate flow chart: %w", err)
	}

	m.mu.Lock()
	delete(m.charts, jurisdiction)
	m.mu.Unlock()
	logger.Info("Removed flow chart", "jurisdiction", jurisdiction)
	return nil
}
