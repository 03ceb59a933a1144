package scenario

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var (
	ErrScenarioNotFound = errors.New("scenario not found")
	ErrInvalidScenario  = errors.New("invalid scenario")
)

// Info summarizes an available scenario for listings.
type Info struct {
	Filename        string `json:"filename"`
	ScenarioID      string `json:"scenario_id"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	Width           int    `json:"width"`
	Height          int    `json:"height"`
	BatteryCapacity int    `json:"battery_capacity"`
	StormsEnabled   bool   `json:"storms_enabled"`
}

// Manager loads and caches scenarios from a directory.
type Manager struct {
	scenarioDir string
	fallback    *Scenario
	scenarios   map[string]*Scenario
	mu          sync.RWMutex
}

// NewManager creates a scenario manager over dir. The directory does not
// have to exist; the built-in benchmark scenario is always available.
func NewManager(dir string) *Manager {
	return &Manager{
		scenarioDir: dir,
		fallback:    Default(),
		scenarios:   make(map[string]*Scenario),
	}
}

// Load loads a scenario by ID, consulting the cache first. The built-in
// benchmark scenario resolves without touching the filesystem.
func (m *Manager) Load(id string) (*Scenario, error) {
	m.mu.RLock()
	if s, exists := m.scenarios[id]; exists {
		m.mu.RUnlock()
		return s, nil
	}
	m.mu.RUnlock()

	if id == m.fallback.Name {
		return m.fallback, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if s, exists := m.scenarios[id]; exists {
		return s, nil
	}

	filename := id
	if !strings.HasSuffix(filename, ".json") {
		filename += ".json"
	}
	path := filepath.Join(m.scenarioDir, filename)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, ErrScenarioNotFound
	}
	s, err := Load(path)
	if err != nil {
		return nil, err
	}

	m.scenarios[id] = s
	return s, nil
}

// List returns information about all available scenarios, the built-in
// benchmark included. Unreadable or invalid files are skipped.
func (m *Manager) List() ([]*Info, error) {
	infos := []*Info{infoOf("", m.fallback.Name, m.fallback)}

	entries, err := os.ReadDir(m.scenarioDir)
	if err != nil {
		if os.IsNotExist(err) {
			return infos, nil
		}
		return nil, fmt.Errorf("failed to read scenario directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".json")
		s, err := m.Load(id)
		if err != nil {
			continue
		}
		infos = append(infos, infoOf(entry.Name(), id, s))
	}

	return infos, nil
}

// GetDefault returns the built-in benchmark scenario.
func (m *Manager) GetDefault() *Scenario {
	return m.fallback
}

// Save validates and writes a scenario to the managed directory.
func (m *Manager) Save(id string, s *Scenario) error {
	if err := Validate(s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}

	if err := os.MkdirAll(m.scenarioDir, 0755); err != nil {
		return fmt.Errorf("failed to create scenario directory: %w", err)
	}

	filename := id
	if !strings.HasSuffix(filename, ".json") {
		filename += ".json"
	}
	path := filepath.Join(m.scenarioDir, filename)

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal scenario: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write scenario file: %w", err)
	}

	m.mu.Lock()
	m.scenarios[id] = s
	m.mu.Unlock()

	return nil
}

// RefreshCache drops all cached scenarios so the next Load rereads disk.
func (m *Manager) RefreshCache() {
	m.mu.Lock()
	m.scenarios = make(map[string]*Scenario)
	m.mu.Unlock()
}

func infoOf(filename, id string, s *Scenario) *Info {
	return &Info{
		Filename:        filename,
		ScenarioID:      id,
		Name:            s.Name,
		Description:     s.Description,
		Width:           s.Width,
		Height:          s.Height,
		BatteryCapacity: s.BatteryCapacity,
		StormsEnabled:   s.StormsEnabled,
	}
}
