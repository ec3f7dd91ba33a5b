package story

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrCycle is returned when DAG validation finds a node that can reach itself.
var ErrCycle = errors.New("story graph contains a cycle")

// Layout holds the fixed offsets used to place children on the authoring canvas.
type Layout struct {
	StepX float64
	StepY float64
}

// Options tunes a reconciliation pass.
type Options struct {
	// DedupChildren skips appending a child identity that is already present.
	// Without it repeated passes append the same edge again.
	DedupChildren bool
	// ValidateAcyclic rejects graphs containing a cycle.
	ValidateAcyclic bool
	// StableLayout positions a node only while it still sits at the origin,
	// so positions survive later passes (combat graphs).
	StableLayout bool
	Layout       Layout
	// NewIdentity generates identities for new nodes; uuid.NewString when nil.
	NewIdentity func() string
}

// DefaultOptions returns the options story chapters are loaded with.
func DefaultOptions() Options {
	return Options{
		DedupChildren:   true,
		ValidateAcyclic: true,
		Layout:          Layout{StepX: 350, StepY: 200},
	}
}

// Result describes the outcome of one reconciliation pass.
type Result struct {
	Nodes []*Node // live nodes: survivors in previous order, then new ones in document order

	Added   []string // identities created in this pass
	Removed []string // identities swept because the document no longer declares them
	Kept    []string // identities preserved from the previous set

	Unresolved []string // "<id>: <ref>" child references matching no live node
	Invalid    []string // "<id>: <attr>=<value>" unusable attribute values
}

// -----------------------------------------------------------------------
// Attribute kinds
// -----------------------------------------------------------------------

type attrKind int

const (
	attrNode attrKind = iota + 1
	attrChoice
	attrImage
	attrItem
	attrBackground
	attrRoot
	attrGameOver
	attrEndOfChapter
	attrEndOfStory
)

var attrKinds = map[string]attrKind{
	"node":           attrNode,
	"choice":         attrChoice,
	"image":          attrImage,
	"item":           attrItem,
	"background":     attrBackground,
	"isRootNode":     attrRoot,
	"isGameOver":     attrGameOver,
	"isEndOfChapter": attrEndOfChapter,
	"isEndOfStory":   attrEndOfStory,
}

type attrSetter func(n *Node, name, value string)

// -----------------------------------------------------------------------
// Reconciler
// -----------------------------------------------------------------------

type entry struct {
	node *Node
	live bool
	el   *Element // element that claimed the node in this pass
}

type reconciler struct {
	opts    Options
	entries []*entry
	byID    map[string]*entry // markup id → entry
	index   map[string]*Node  // identity → live node
	setters map[attrKind]attrSetter
	res     *Result
}

// ParseAndReconcile materialises doc against the previously loaded node set.
// Nodes whose markup id is still declared keep their identity and layout,
// undeclared ones are removed together with every edge pointing at them, and
// new elements get fresh identities. previous is not modified.
func ParseAndReconcile(doc *Document, previous []*Node, opts Options) (*Result, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: nil document", ErrInvalidDocument)
	}
	if opts.NewIdentity == nil {
		opts.NewIdentity = uuid.NewString
	}
	r := &reconciler{
		opts: opts,
		byID: make(map[string]*entry, len(previous)),
		res:  &Result{},
	}
	r.setters = r.buildSetters()

	// Everything starts stale until the document proves it live.
	for _, n := range previous {
		e := &entry{node: n.Clone()}
		r.entries = append(r.entries, e)
		if _, dup := r.byID[n.id]; !dup {
			r.byID[n.id] = e
		}
	}

	r.claim(doc)
	r.sweep()
	r.apply()

	if opts.ValidateAcyclic {
		if err := detectCycle(r.res.Nodes, r.index); err != nil {
			return nil, err
		}
	}
	r.layout()
	return r.res, nil
}

func (r *reconciler) claim(doc *Document) {
	for _, el := range doc.Elements() {
		if e, ok := r.byID[el.ID]; ok {
			if e.live {
				continue // duplicate id in this pass
			}
			e.live = true
			e.el = el
			n := e.node
			n.label = el.Tag
			n.text = el.Text
			n.choice = el.Choice()
			n.resetAttributes()
			r.res.Kept = append(r.res.Kept, n.identity)
			continue
		}
		n := NewNode(r.opts.NewIdentity(), el.ID, el.Tag, el.Text, el.Choice())
		e := &entry{node: n, live: true, el: el}
		r.entries = append(r.entries, e)
		r.byID[el.ID] = e
		r.res.Added = append(r.res.Added, n.identity)
	}
}

func (r *reconciler) sweep() {
	live := r.entries[:0]
	var removed []string
	for _, e := range r.entries {
		if e.live {
			live = append(live, e)
			continue
		}
		removed = append(removed, e.node.identity)
		if r.byID[e.node.id] == e {
			delete(r.byID, e.node.id)
		}
	}
	r.entries = live
	r.res.Removed = removed

	r.index = make(map[string]*Node, len(live))
	r.res.Nodes = make([]*Node, 0, len(live))
	for _, e := range live {
		r.index[e.node.identity] = e.node
		r.res.Nodes = append(r.res.Nodes, e.node)
	}
	// Strip edges to swept nodes, and anything else the live set cannot resolve.
	for _, n := range r.res.Nodes {
		for _, c := range n.Children() {
			if _, ok := r.index[c]; !ok {
				n.RemoveChild(c)
			}
		}
	}
}

func (r *reconciler) apply() {
	for _, e := range r.entries {
		for _, a := range e.el.Attrs {
			kind, ok := attrKinds[a.Name]
			if !ok {
				continue
			}
			r.setters[kind](e.node, a.Name, a.Value)
		}
	}
}

func (r *reconciler) buildSetters() map[attrKind]attrSetter {
	return map[attrKind]attrSetter{
		attrNode:         r.addChildren,
		attrChoice:       r.addChildren,
		attrImage:        func(n *Node, _, v string) { n.image = v },
		attrItem:         func(n *Node, _, v string) { n.item = v },
		attrBackground:   func(n *Node, _, v string) { n.background = v },
		attrRoot:         r.flag(func(n *Node, b bool) { n.root = b }),
		attrGameOver:     r.flag(func(n *Node, b bool) { n.gameOver = b }),
		attrEndOfChapter: r.flag(func(n *Node, b bool) { n.endOfChapter = b }),
		attrEndOfStory:   r.flag(func(n *Node, b bool) { n.endOfStory = b }),
	}
}

func (r *reconciler) flag(set func(*Node, bool)) attrSetter {
	return func(n *Node, name, v string) {
		switch {
		case strings.EqualFold(v, "true"):
			set(n, true)
		case strings.EqualFold(v, "false"):
			set(n, false)
		default:
			r.res.Invalid = append(r.res.Invalid, fmt.Sprintf("%s: %s=%q", n.id, name, v))
		}
	}
}

func (r *reconciler) addChildren(n *Node, _, v string) {
	for _, ref := range strings.Split(v, ",") {
		ref = strings.TrimSpace(ref)
		if ref == "" {
			continue
		}
		e, ok := r.byID[ref]
		if !ok {
			r.res.Unresolved = append(r.res.Unresolved, fmt.Sprintf("%s: %s", n.id, ref))
			continue
		}
		if r.opts.DedupChildren && n.HasChild(e.node.identity) {
			continue
		}
		n.AddChild(e.node.identity)
	}
}

// -----------------------------------------------------------------------
// Layout
// -----------------------------------------------------------------------

func (r *reconciler) layout() {
	for _, n := range r.res.Nodes {
		if n.root {
			r.place(n, map[string]bool{})
			return
		}
	}
}

// place positions each child one column right of parent and one row down per
// sibling index, then recurses in child order.
func (r *reconciler) place(parent *Node, path map[string]bool) {
	path[parent.identity] = true
	defer delete(path, parent.identity)

	for i, id := range parent.children {
		child, ok := r.index[id]
		if !ok || path[id] {
			continue
		}
		if r.opts.StableLayout && child.rect.X != DefaultRect.X {
			continue
		}
		child.SetRect(parent.rect.X+r.opts.Layout.StepX, parent.rect.Y+float64(i)*r.opts.Layout.StepY)
		r.place(child, path)
	}
}

// -----------------------------------------------------------------------
// DAG validation
// -----------------------------------------------------------------------

// detectCycle runs a three-colour depth-first search over every node.
func detectCycle(nodes []*Node, index map[string]*Node) error {
	done := make(map[string]bool, len(nodes))
	onPath := make(map[string]bool)

	var visit func(n *Node) error
	visit = func(n *Node) error {
		if done[n.identity] {
			return nil
		}
		if onPath[n.identity] {
			return fmt.Errorf("%w: involving node %q", ErrCycle, n.id)
		}
		onPath[n.identity] = true
		for _, id := range n.children {
			if child, ok := index[id]; ok {
				if err := visit(child); err != nil {
					return err
				}
			}
		}
		delete(onPath, n.identity)
		done[n.identity] = true
		return nil
	}

	for _, n := range nodes {
		if err := visit(n); err != nil {
			return err
		}
	}
	return nil
}
