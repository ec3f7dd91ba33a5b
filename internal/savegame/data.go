package savegame

import (
	"encoding/json"
	"time"
)

// Data is one save game: where the player stands in a chapter plus any
// payloads contributed by registered participants.
type Data struct {
	Title           string                     `json:"title"`
	Chapter         string                     `json:"chapter"`
	CurrentNode     string                     `json:"current_node"`
	IsStoryNode     bool                       `json:"is_story_node"`
	NodeIndex       int                        `json:"node_index"`
	History         []string                   `json:"history"`
	SelectedChoices map[string]string          `json:"selected_choices,omitempty"`
	Extra           map[string]json.RawMessage `json:"extra,omitempty"`
	SavedAt         time.Time                  `json:"saved_at"`
}

// SetExtra stores v as the named participant payload.
func (d *Data) SetExtra(name string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if d.Extra == nil {
		d.Extra = make(map[string]json.RawMessage)
	}
	d.Extra[name] = raw
	return nil
}

// GetExtra decodes the named participant payload into v.
// It reports false when no payload was saved under name.
func (d *Data) GetExtra(name string, v any) (bool, error) {
	raw, ok := d.Extra[name]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, v)
}
