package traversal

import "fmt"

// Checkpoint is a serialisable snapshot of the traversal position.
type Checkpoint struct {
	Current         string            `json:"current"`
	History         []string          `json:"history"`
	SelectedChoices map[string]string `json:"selected_choices"`
	// Status defaults to at_node when empty.
	Status Status `json:"status,omitempty"`
}

// Checkpoint exports the current position. The result shares nothing with c.
func (c *Controller) Checkpoint() Checkpoint {
	return Checkpoint{
		Current:         c.current,
		History:         c.History(),
		SelectedChoices: c.SelectedChoices(),
		Status:          c.status,
	}
}

// Restore rebuilds the traversal position from cp.
// The current node must exist in the graph; on error the controller is unchanged.
func (c *Controller) Restore(cp Checkpoint) error {
	if cp.Current == "" {
		return ErrNotStarted
	}
	status := cp.Status
	switch status {
	case "":
		status = StatusAtNode
	case StatusAtNode, StatusEndOfChapter, StatusEndOfStory, StatusGameOver:
	default:
		return fmt.Errorf("traversal: unknown status %q", cp.Status)
	}
	if _, ok := c.graph.Node(cp.Current); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, cp.Current)
	}
	for _, id := range cp.History {
		if _, ok := c.graph.Node(id); !ok {
			return fmt.Errorf("%w: history entry %s", ErrUnknownNode, id)
		}
	}

	c.current = cp.Current
	c.history = append([]string(nil), cp.History...)
	c.selected = make(map[string]string, len(cp.SelectedChoices))
	for k, v := range cp.SelectedChoices {
		c.selected[k] = v
	}
	c.status = status
	return nil
}
