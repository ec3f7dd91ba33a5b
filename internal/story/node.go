package story

import "encoding/json"

// Kind discriminates the two kinds of story nodes.
type Kind string

const (
	KindNarrative Kind = "narrative"
	KindChoice    Kind = "choice"
)

// Rect is the authoring-display position and size of a node.
// It has no meaning for traversal.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// DefaultRect is where every freshly created node starts.
var DefaultRect = Rect{X: 10, Y: 10, Width: 300, Height: 150}

// Node is a single story beat or choice.
//
// The markup id is only used while resolving edges during a parse pass; the
// identity is the persistent name stored in child lists and save checkpoints.
type Node struct {
	id       string
	identity string
	label    string
	text     string

	choice       bool
	root         bool
	endOfChapter bool
	endOfStory   bool
	gameOver     bool

	image      string
	item       string
	background string

	children []string
	rect     Rect
}

// NewNode creates a node with the default layout rectangle.
func NewNode(identity, id, label, text string, choice bool) *Node {
	return &Node{
		id:       id,
		identity: identity,
		label:    label,
		text:     text,
		choice:   choice,
		rect:     DefaultRect,
	}
}

func (n *Node) ID() string           { return n.id }
func (n *Node) Identity() string     { return n.identity }
func (n *Node) Label() string        { return n.label }
func (n *Node) Text() string         { return n.text }
func (n *Node) IsChoice() bool       { return n.choice }
func (n *Node) IsRoot() bool         { return n.root }
func (n *Node) IsEndOfChapter() bool { return n.endOfChapter }
func (n *Node) IsEndOfStory() bool   { return n.endOfStory }
func (n *Node) IsGameOver() bool     { return n.gameOver }
func (n *Node) Image() string        { return n.image }
func (n *Node) Item() string         { return n.item }
func (n *Node) Background() string   { return n.background }
func (n *Node) Rect() Rect           { return n.rect }

// Kind reports whether the node is a choice or a narrative beat.
func (n *Node) Kind() Kind {
	if n.choice {
		return KindChoice
	}
	return KindNarrative
}

// IsTerminal reports whether any terminal flag is set.
func (n *Node) IsTerminal() bool {
	return n.endOfChapter || n.endOfStory || n.gameOver
}

// Children returns a copy of the ordered child identities.
func (n *Node) Children() []string {
	out := make([]string, len(n.children))
	copy(out, n.children)
	return out
}

// HasChild reports whether identity is already among the children.
func (n *Node) HasChild(identity string) bool {
	for _, c := range n.children {
		if c == identity {
			return true
		}
	}
	return false
}

// AddChild appends identity to the child list. Order is authored branch order.
func (n *Node) AddChild(identity string) {
	n.children = append(n.children, identity)
}

// RemoveChild strips every occurrence of identity. Removing an absent identity is a no-op.
func (n *Node) RemoveChild(identity string) {
	kept := n.children[:0]
	for _, c := range n.children {
		if c != identity {
			kept = append(kept, c)
		}
	}
	n.children = kept
}

// SetRect moves the node on the authoring canvas, keeping its size.
func (n *Node) SetRect(x, y float64) {
	n.rect.X = x
	n.rect.Y = y
}

// Clone returns a deep copy sharing nothing with n.
func (n *Node) Clone() *Node {
	c := *n
	c.children = n.Children()
	return &c
}

// resetAttributes clears everything the document's attributes control apart
// from the child list, which is append-only across passes.
func (n *Node) resetAttributes() {
	n.root = false
	n.endOfChapter = false
	n.endOfStory = false
	n.gameOver = false
	n.image = ""
	n.item = ""
	n.background = ""
}

type nodeJSON struct {
	ID           string   `json:"id"`
	Identity     string   `json:"identity"`
	Label        string   `json:"label"`
	Text         string   `json:"text"`
	Kind         Kind     `json:"kind"`
	IsRoot       bool     `json:"is_root,omitempty"`
	EndOfChapter bool     `json:"is_end_of_chapter,omitempty"`
	EndOfStory   bool     `json:"is_end_of_story,omitempty"`
	GameOver     bool     `json:"is_game_over,omitempty"`
	Image        string   `json:"image,omitempty"`
	Item         string   `json:"item,omitempty"`
	Background   string   `json:"background,omitempty"`
	Children     []string `json:"children"`
	Rect         Rect     `json:"rect"`
}

// MarshalJSON implements json.Marshaler for the authoring graph dump.
func (n *Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(nodeJSON{
		ID:           n.id,
		Identity:     n.identity,
		Label:        n.label,
		Text:         n.text,
		Kind:         n.Kind(),
		IsRoot:       n.root,
		EndOfChapter: n.endOfChapter,
		EndOfStory:   n.endOfStory,
		GameOver:     n.gameOver,
		Image:        n.image,
		Item:         n.item,
		Background:   n.background,
		Children:     n.Children(),
		Rect:         n.rect,
	})
}
