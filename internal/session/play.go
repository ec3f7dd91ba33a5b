package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gyaneshwarpardhi/storyloom/internal/chapter"
	"github.com/gyaneshwarpardhi/storyloom/internal/metrics"
	"github.com/gyaneshwarpardhi/storyloom/internal/story"
	"github.com/gyaneshwarpardhi/storyloom/internal/traversal"
)

// ErrAtStart is returned by Back when there is nothing to go back to.
var ErrAtStart = errors.New("session: already at the first node")

// namePlaceholder is replaced by the player's name in node text.
const namePlaceholder = "{Name}"

// View is what the player sees at the current node.
type View struct {
	Chapter    string           `json:"chapter"`
	Title      string           `json:"title"`
	Node       string           `json:"node"`
	NodeID     string           `json:"node_id"`
	Text       string           `json:"text"`
	Image      string           `json:"image,omitempty"`
	Background string           `json:"background,omitempty"`
	Item       string           `json:"item,omitempty"`
	Status     traversal.Status `json:"status"`
	Choices    []ChoiceView     `json:"choices,omitempty"`
	CanGoBack  bool             `json:"can_go_back"`
	Progress   float64          `json:"progress"`
}

// ChoiceView is one option offered at a choice point.
type ChoiceView struct {
	Node   string `json:"node"`
	NodeID string `json:"node_id"`
	Text   string `json:"text"`
	// Replay marks the decision taken on an earlier pass through this node.
	Replay bool `json:"replay,omitempty"`
}

// View returns the current view.
func (s *Session) View() (*View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.graph == nil {
		return nil, ErrNoChapter
	}
	return s.viewLocked(), nil
}

// Text returns the current node's text with placeholders substituted.
func (s *Session) Text() (string, error) {
	v, err := s.View()
	if err != nil {
		return "", err
	}
	return v.Text, nil
}

// Next advances past the current narrative node.
func (s *Session) Next() (*View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.graph == nil {
		return nil, ErrNoChapter
	}
	if err := s.stepLocked("advance", func() error {
		_, err := s.ctrl.Advance()
		return err
	}); err != nil {
		return nil, err
	}
	return s.viewLocked(), nil
}

// Choose takes the option identified by node, which may be a node identity or
// markup id. Landing on a choice node moves on to what it leads to.
func (s *Session) Choose(node string) (*View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.graph == nil {
		return nil, ErrNoChapter
	}

	n, ok := s.graph.Node(node)
	if !ok {
		if n, ok = s.graph.NodeByMarkupID(node); !ok {
			return nil, fmt.Errorf("%w: %s", traversal.ErrUnknownNode, node)
		}
	}
	if !s.visible(n) {
		return nil, fmt.Errorf("%w: %s is not available to this player", traversal.ErrNotAChoice, n.ID())
	}
	if err := s.stepLocked("choose", func() error { return s.ctrl.Choose(n.Identity()) }); err != nil {
		return nil, err
	}
	s.settleLocked()
	return s.viewLocked(), nil
}

// Back returns to the previous narrative node. Choice nodes passed through
// on the way forward are skipped.
func (s *Session) Back() (*View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.graph == nil {
		return nil, ErrNoChapter
	}
	if !s.ctrl.Rewind() {
		return nil, ErrAtStart
	}
	for {
		cur, err := s.ctrl.Current()
		if err != nil || !cur.IsChoice() || !s.ctrl.Rewind() {
			break
		}
	}
	metrics.TraversalSteps.WithLabelValues("back").Inc()
	return s.viewLocked(), nil
}

// ContinueStory loads the chapter that follows a finished one: the next
// chapter after an end of chapter, the first chapter of the next part after an
// end of story. When the part has no next chapter the next part is tried.
func (s *Session) ContinueStory(ctx context.Context) (*View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.graph == nil {
		return nil, ErrNoChapter
	}

	name, err := chapter.ParseName(s.chapter)
	var candidates []chapter.Name
	switch s.ctrl.Status() {
	case traversal.StatusEndOfChapter:
		candidates = []chapter.Name{name.Next(), name.NextPart()}
	case traversal.StatusEndOfStory:
		candidates = []chapter.Name{name.NextPart()}
	case traversal.StatusGameOver:
		return nil, ErrGameOver
	default:
		return nil, ErrNotFinished
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoMoreChapters, err)
	}

	for _, next := range candidates {
		err := s.loadLocked(ctx, next.String())
		if errors.Is(err, chapter.ErrChapterNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if err := s.ctrl.Start(); err != nil {
			return nil, err
		}
		s.enterLocked()
		return s.viewLocked(), nil
	}
	return nil, fmt.Errorf("%w after %s", ErrNoMoreChapters, s.chapter)
}

// stepLocked runs a forward move, delivering items and recording metrics
// when the controller actually moved or ended.
func (s *Session) stepLocked(kind string, move func() error) error {
	before := len(s.ctrl.History())
	was := s.ctrl.Status()
	if err := move(); err != nil {
		return err
	}
	metrics.TraversalSteps.WithLabelValues(kind).Inc()
	if len(s.ctrl.History()) > before {
		s.enterLocked()
	}
	if st := s.ctrl.Status(); st.Terminal() && !was.Terminal() {
		metrics.TerminalsReached.WithLabelValues(string(st)).Inc()
		s.log.Info("chapter traversal ended", "chapter", s.chapter, "status", st)
	}
	return nil
}

// settleLocked moves past a chosen choice node onto the node it leads to.
func (s *Session) settleLocked() {
	cur, err := s.ctrl.Current()
	if err != nil || !cur.IsChoice() || s.ctrl.Status().Terminal() {
		return
	}
	err = s.stepLocked("advance", func() error {
		_, err := s.ctrl.Advance()
		return err
	})
	if err != nil {
		s.log.Debug("choice node does not lead on", "chapter", s.chapter, "node", cur.ID(), "err", err)
	}
}

// enterLocked hands the current node's item to the inventory.
func (s *Session) enterLocked() {
	cur, err := s.ctrl.Current()
	if err != nil {
		return
	}
	if item := cur.Item(); item != "" {
		s.inventory.AddItem(item)
		s.log.Info("item collected", "chapter", s.chapter, "node", cur.ID(), "item", item)
	}
	metrics.StoryProgress.Set(s.percentLocked())
}

func (s *Session) visible(n *story.Node) bool {
	bg := n.Background()
	return bg == "" || bg == s.player.Background
}

func (s *Session) personalise(text string) string {
	return strings.ReplaceAll(text, namePlaceholder, s.player.Name)
}

func (s *Session) viewLocked() *View {
	v := &View{
		Chapter:   s.chapter,
		Title:     s.graph.Title(),
		Status:    s.ctrl.Status(),
		CanGoBack: len(s.ctrl.History()) > 0,
		Progress:  s.percentLocked(),
	}
	cur, err := s.ctrl.Current()
	if err != nil {
		return v
	}
	v.Node = cur.Identity()
	v.NodeID = cur.ID()
	v.Text = s.personalise(cur.Text())
	v.Image = cur.Image()
	v.Background = cur.Background()
	v.Item = cur.Item()

	if v.Status.Terminal() {
		return v
	}
	children := s.graph.Children(cur)
	if len(children) == 0 || !children[0].IsChoice() {
		return v
	}
	_, replay := s.ctrl.ReplaySelectedChoice(cur.Identity())
	for _, c := range s.ctrl.Choices() {
		if !s.visible(c) {
			continue
		}
		v.Choices = append(v.Choices, ChoiceView{
			Node:   c.Identity(),
			NodeID: c.ID(),
			Text:   s.personalise(c.Text()),
			Replay: replay,
		})
	}
	return v
}

// percentLocked estimates story completion from the nodes walked in this
// chapter. A finished chapter counts in full.
func (s *Session) percentLocked() float64 {
	if s.estimate == nil || s.ctrl == nil {
		return 0
	}
	if st := s.ctrl.Status(); st == traversal.StatusEndOfChapter || st == traversal.StatusEndOfStory {
		return s.estimate.ChapterWeight * float64(s.estimate.ChapterIndex+1)
	}
	ids := s.ctrl.History()
	if cur, err := s.ctrl.Current(); err == nil {
		ids = append(ids, cur.Identity())
	}
	path := make([]*story.Node, 0, len(ids))
	for _, id := range ids {
		if n, ok := s.graph.Node(id); ok {
			path = append(path, n)
		}
	}
	return s.estimate.Reached(path)
}
