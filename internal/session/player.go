package session

import (
	"sync"

	"github.com/gyaneshwarpardhi/storyloom/internal/savegame"
)

// Player is the profile that personalises node text and gates choices.
type Player struct {
	Name       string `json:"name" yaml:"name"`
	Background string `json:"background" yaml:"background"`
}

// Inventory receives items handed out by story nodes.
type Inventory interface {
	AddItem(item string)
}

// MemoryInventory is an in-process Inventory that also takes part in save games.
type MemoryInventory struct {
	mu    sync.Mutex
	items []string
}

// NewMemoryInventory creates an empty inventory.
func NewMemoryInventory() *MemoryInventory {
	return &MemoryInventory{}
}

func (m *MemoryInventory) AddItem(item string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, item)
}

// Items returns the collected items in pickup order.
func (m *MemoryInventory) Items() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.items))
	copy(out, m.items)
	return out
}

func (m *MemoryInventory) Name() string { return "inventory" }

func (m *MemoryInventory) SaveData(d *savegame.Data) error {
	return d.SetExtra(m.Name(), m.Items())
}

func (m *MemoryInventory) LoadData(d *savegame.Data) error {
	var items []string
	if _, err := d.GetExtra(m.Name(), &items); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = items
	return nil
}
