package savegame

import (
	"fmt"
	"sync"
)

// Participant is a component that contributes to and restores from save data.
type Participant interface {
	// Name is the key the participant is registered under.
	Name() string
	SaveData(d *Data) error
	LoadData(d *Data) error
}

// Registry holds the participants of a session in registration order.
// Register should only be called during session setup.
type Registry struct {
	mu           sync.RWMutex
	participants []Participant
	names        map[string]bool
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{names: make(map[string]bool)}
}

// Register adds a participant. Panics on duplicate name to surface misconfiguration early.
func (r *Registry) Register(p Participant) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.names[p.Name()] {
		panic(fmt.Sprintf("savegame registry: duplicate participant %q", p.Name()))
	}
	r.names[p.Name()] = true
	r.participants = append(r.participants, p)
}

// Names returns the registered participant names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.participants))
	for i, p := range r.participants {
		out[i] = p.Name()
	}
	return out
}

// SaveAll lets every participant write into d. It stops at the first error.
func (r *Registry) SaveAll(d *Data) error {
	for _, p := range r.snapshot() {
		if err := p.SaveData(d); err != nil {
			return fmt.Errorf("save participant %q: %w", p.Name(), err)
		}
	}
	return nil
}

// LoadAll pushes d to every participant. It stops at the first error.
func (r *Registry) LoadAll(d *Data) error {
	for _, p := range r.snapshot() {
		if err := p.LoadData(d); err != nil {
			return fmt.Errorf("load participant %q: %w", p.Name(), err)
		}
	}
	return nil
}

func (r *Registry) snapshot() []Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Participant, len(r.participants))
	copy(out, r.participants)
	return out
}
