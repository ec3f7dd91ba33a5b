package traversal

import (
	"errors"
	"fmt"

	"github.com/gyaneshwarpardhi/storyloom/internal/story"
)

// Status is the controller's position in its state machine.
type Status string

const (
	StatusAtNode       Status = "at_node"
	StatusEndOfChapter Status = "end_of_chapter"
	StatusEndOfStory   Status = "end_of_story"
	StatusGameOver     Status = "game_over"
)

// Terminal reports whether s ends the chapter's traversal.
func (s Status) Terminal() bool { return s != StatusAtNode }

var (
	// ErrNotStarted is returned by operations that need a current node.
	ErrNotStarted = errors.New("traversal: not started")
	// ErrAwaitingChoice means the current node branches into choices; call Choose.
	ErrAwaitingChoice = errors.New("traversal: awaiting a choice")
	// ErrNoTerminal means the current node is a leaf without any terminal flag.
	ErrNoTerminal = errors.New("traversal: leaf node has no terminal flag")
	// ErrNotAChoice means the chosen node is not a child of the current node.
	ErrNotAChoice = errors.New("traversal: not a child of the current node")
	// ErrUnknownNode means an identity does not resolve in the chapter graph.
	ErrUnknownNode = errors.New("traversal: unknown node")
)

// Graph is the read side of a chapter graph the controller walks.
type Graph interface {
	Root() (*story.Node, error)
	Node(identity string) (*story.Node, bool)
	Children(n *story.Node) []*story.Node
	ChoiceChildren(n *story.Node) []*story.Node
}

// Controller tracks the current node, the path that led there and the
// decisions taken at every choice point.
type Controller struct {
	graph    Graph
	current  string
	history  []string
	selected map[string]string // choice point identity → chosen child identity
	status   Status
}

// New creates a controller over g. Call Start or Restore before traversing.
func New(g Graph) *Controller {
	return &Controller{graph: g, selected: make(map[string]string), status: StatusAtNode}
}

// Start positions the controller at the graph's root with a fresh history.
func (c *Controller) Start() error {
	root, err := c.graph.Root()
	if err != nil {
		return err
	}
	c.current = root.Identity()
	c.history = nil
	c.selected = make(map[string]string)
	c.status = StatusAtNode
	return nil
}

// SetGraph swaps the graph walked by the controller, e.g. after a reconciling reload.
// The caller is responsible for checking that the current node survived.
func (c *Controller) SetGraph(g Graph) {
	c.graph = g
}

// Status returns the controller's state.
func (c *Controller) Status() Status { return c.status }

// Current returns the current node.
func (c *Controller) Current() (*story.Node, error) {
	if c.current == "" {
		return nil, ErrNotStarted
	}
	n, ok := c.graph.Node(c.current)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNode, c.current)
	}
	return n, nil
}

// History returns the visited identities, oldest first.
func (c *Controller) History() []string {
	out := make([]string, len(c.history))
	copy(out, c.history)
	return out
}

// Advance moves past the current narrative beat.
//
// When the first child is narrative the controller steps to it. When it is a
// choice, ErrAwaitingChoice is returned and nothing moves. A leaf resolves to
// the first terminal flag set in the order chapter, story, game over; a leaf
// with none returns ErrNoTerminal and stays put.
func (c *Controller) Advance() (Status, error) {
	if c.status.Terminal() {
		return c.status, nil
	}
	cur, err := c.Current()
	if err != nil {
		return c.status, err
	}

	children := c.graph.Children(cur)
	if len(children) > 0 {
		next := children[0]
		if next.IsChoice() {
			return c.status, ErrAwaitingChoice
		}
		c.moveTo(next.Identity())
		return c.status, nil
	}

	switch {
	case cur.IsEndOfChapter():
		c.status = StatusEndOfChapter
	case cur.IsEndOfStory():
		c.status = StatusEndOfStory
	case cur.IsGameOver():
		c.status = StatusGameOver
	default:
		return c.status, fmt.Errorf("%w: %s", ErrNoTerminal, cur.ID())
	}
	return c.status, nil
}

// Choose records identity as the decision taken at the current node and moves to it.
// Any direct child may be chosen; choice children are the ones offered by Choices.
// Once a decision is recorded at the current node only that child is accepted.
func (c *Controller) Choose(identity string) error {
	cur, err := c.Current()
	if err != nil {
		return err
	}
	if c.status.Terminal() {
		return fmt.Errorf("%w: traversal already ended (%s)", ErrNotAChoice, c.status)
	}
	if prev, ok := c.selected[cur.Identity()]; ok && prev != identity {
		return fmt.Errorf("%w: %s was already decided", ErrNotAChoice, cur.ID())
	}
	for _, ch := range c.graph.Children(cur) {
		if ch.Identity() == identity {
			c.selected[cur.Identity()] = identity
			c.moveTo(identity)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNotAChoice, identity)
}

// Rewind steps back to the previous node. It reports false when there is no history.
func (c *Controller) Rewind() bool {
	if len(c.history) == 0 {
		return false
	}
	last := len(c.history) - 1
	c.current = c.history[last]
	c.history = c.history[:last]
	c.status = StatusAtNode
	return true
}

// ReplaySelectedChoice returns the child previously chosen at choicePoint, if any.
func (c *Controller) ReplaySelectedChoice(choicePoint string) (*story.Node, bool) {
	id, ok := c.selected[choicePoint]
	if !ok {
		return nil, false
	}
	return c.graph.Node(id)
}

// Choices returns what the player may pick at the current node: only the past
// decision when one was recorded, otherwise every choice child.
func (c *Controller) Choices() []*story.Node {
	cur, err := c.Current()
	if err != nil {
		return nil
	}
	if n, ok := c.ReplaySelectedChoice(cur.Identity()); ok {
		return []*story.Node{n}
	}
	return c.graph.ChoiceChildren(cur)
}

// SelectedChoices returns a copy of the recorded decisions.
func (c *Controller) SelectedChoices() map[string]string {
	out := make(map[string]string, len(c.selected))
	for k, v := range c.selected {
		out[k] = v
	}
	return out
}

func (c *Controller) moveTo(identity string) {
	c.history = append(c.history, c.current)
	c.current = identity
	c.status = StatusAtNode
}
