package story

import "errors"

// ErrNoRoot is returned when a graph has no node flagged isRootNode.
var ErrNoRoot = errors.New("story graph has no root node")

// Graph owns the node set of one chapter.
// It is populated by one or more Load passes and queried by the traversal
// controller for the lifetime of that chapter; nodes are never shared across chapters.
type Graph struct {
	name  string
	title string
	opts  Options
	nodes []*Node
	index map[string]*Node // identity → Node
}

// NewGraph allocates an empty Graph.
func NewGraph(name string, opts Options) *Graph {
	return &Graph{
		name:  name,
		opts:  opts,
		index: make(map[string]*Node),
	}
}

// Load reconciles doc against the current node set.
// On error the graph is left exactly as it was.
func (g *Graph) Load(doc *Document) (*Result, error) {
	res, err := ParseAndReconcile(doc, g.nodes, g.opts)
	if err != nil {
		return nil, err
	}
	g.nodes = res.Nodes
	g.title = doc.Title
	g.RebuildIndex()
	return res, nil
}

// RebuildIndex recomputes the identity lookup. Load calls it once per pass.
func (g *Graph) RebuildIndex() {
	g.index = make(map[string]*Node, len(g.nodes))
	for _, n := range g.nodes {
		g.index[n.identity] = n
	}
}

func (g *Graph) Name() string  { return g.name }
func (g *Graph) Title() string { return g.title }

// Nodes returns the live nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// NodeCount returns the number of live nodes.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// NarrativeCount returns the number of non-choice nodes.
func (g *Graph) NarrativeCount() int {
	count := 0
	for _, n := range g.nodes {
		if !n.choice {
			count++
		}
	}
	return count
}

// Node returns a node by identity.
func (g *Graph) Node(identity string) (*Node, bool) {
	n, ok := g.index[identity]
	return n, ok
}

// NodeByMarkupID returns the live node declared with markup id.
func (g *Graph) NodeByMarkupID(id string) (*Node, bool) {
	for _, n := range g.nodes {
		if n.id == id {
			return n, true
		}
	}
	return nil, false
}

// IndexOf returns the insertion position of identity, or -1.
func (g *Graph) IndexOf(identity string) int {
	for i, n := range g.nodes {
		if n.identity == identity {
			return i
		}
	}
	return -1
}

// Root returns the first node flagged as root.
func (g *Graph) Root() (*Node, error) {
	for _, n := range g.nodes {
		if n.root {
			return n, nil
		}
	}
	return nil, ErrNoRoot
}

// RootCount returns how many nodes are flagged as root; a valid graph has one.
func (g *Graph) RootCount() int {
	count := 0
	for _, n := range g.nodes {
		if n.root {
			count++
		}
	}
	return count
}

// Children resolves n's child identities in authored order.
func (g *Graph) Children(n *Node) []*Node {
	if n == nil {
		return nil
	}
	out := make([]*Node, 0, len(n.children))
	for _, id := range n.children {
		if c, ok := g.index[id]; ok {
			out = append(out, c)
		}
	}
	return out
}

// ChoiceChildren returns the children of n that are choices.
func (g *Graph) ChoiceChildren(n *Node) []*Node {
	return g.partition(n, true)
}

// NarrativeChildren returns the children of n that are narrative beats.
func (g *Graph) NarrativeChildren(n *Node) []*Node {
	return g.partition(n, false)
}

func (g *Graph) partition(n *Node, choice bool) []*Node {
	var out []*Node
	for _, c := range g.Children(n) {
		if c.choice == choice {
			out = append(out, c)
		}
	}
	return out
}
