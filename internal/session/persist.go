package session

import (
	"context"
	"fmt"

	"github.com/gyaneshwarpardhi/storyloom/internal/metrics"
	"github.com/gyaneshwarpardhi/storyloom/internal/savegame"
	"github.com/gyaneshwarpardhi/storyloom/internal/traversal"
)

// Store is the persistence the session saves to and restores from.
type Store interface {
	Put(ctx context.Context, slot string, d *savegame.Data) (string, error)
	Get(ctx context.Context, slot string) (*savegame.Data, error)
}

// Checkpoint returns the traversal position of the loaded chapter.
func (s *Session) Checkpoint() (traversal.Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.graph == nil {
		return traversal.Checkpoint{}, ErrNoChapter
	}
	return s.ctrl.Checkpoint(), nil
}

// Save collects save data from every registered participant and writes it
// under slot. An empty slot is assigned by the store. Returns the slot used.
func (s *Session) Save(ctx context.Context, store Store, slot string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.graph == nil {
		return "", ErrNoChapter
	}

	d := &savegame.Data{}
	if err := s.registry.SaveAll(d); err != nil {
		metrics.SaveOperations.WithLabelValues("save", "error").Inc()
		return "", err
	}
	slot, err := store.Put(ctx, slot, d)
	if err != nil {
		metrics.SaveOperations.WithLabelValues("save", "error").Inc()
		return "", err
	}
	metrics.SaveOperations.WithLabelValues("save", "ok").Inc()
	s.log.Info("game saved", "slot", slot, "chapter", d.Chapter, "node", d.CurrentNode)
	return slot, nil
}

// Restore reads slot from store, loads its chapter and hands the data to
// every registered participant. On error the session keeps its previous state.
func (s *Session) Restore(ctx context.Context, store Store, slot string) (*View, error) {
	d, err := store.Get(ctx, slot)
	if err != nil {
		metrics.SaveOperations.WithLabelValues("restore", "error").Inc()
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prevChapter, prevGraph, prevCtrl, prevEstimate, prevPlayer := s.chapter, s.graph, s.ctrl, s.estimate, s.player
	var prevCP traversal.Checkpoint
	if prevCtrl != nil {
		prevCP = prevCtrl.Checkpoint()
	}
	rollback := func() {
		s.chapter, s.graph, s.ctrl, s.estimate, s.player = prevChapter, prevGraph, prevCtrl, prevEstimate, prevPlayer
		if prevCtrl != nil && prevCP.Current != "" {
			_ = prevCtrl.Restore(prevCP)
		}
	}

	if s.graph == nil || d.Chapter != s.chapter {
		if err := s.loadLocked(ctx, d.Chapter); err != nil {
			metrics.SaveOperations.WithLabelValues("restore", "error").Inc()
			return nil, err
		}
	}
	if err := s.registry.LoadAll(d); err != nil {
		rollback()
		metrics.SaveOperations.WithLabelValues("restore", "error").Inc()
		return nil, err
	}
	metrics.SaveOperations.WithLabelValues("restore", "ok").Inc()
	s.log.Info("game restored", "slot", slot, "chapter", d.Chapter, "node", d.CurrentNode)
	return s.viewLocked(), nil
}

// storyParticipant saves the session's own state. Its methods run with s.mu held.
type storyParticipant struct{ s *Session }

func (p storyParticipant) Name() string { return "story" }

// SaveData records node markup ids rather than identities so a save stays
// valid after the chapter is rebuilt in another process.
func (p storyParticipant) SaveData(d *savegame.Data) error {
	s := p.s
	cur, err := s.ctrl.Current()
	if err != nil {
		return err
	}
	d.Title = s.graph.Title()
	d.Chapter = s.chapter
	d.CurrentNode = cur.ID()
	d.IsStoryNode = !cur.IsChoice()
	d.NodeIndex = s.graph.IndexOf(cur.Identity())

	cp := s.ctrl.Checkpoint()
	d.History = make([]string, 0, len(cp.History))
	for _, id := range cp.History {
		if n, ok := s.graph.Node(id); ok {
			d.History = append(d.History, n.ID())
		}
	}
	d.SelectedChoices = make(map[string]string, len(cp.SelectedChoices))
	for from, to := range cp.SelectedChoices {
		fn, ok1 := s.graph.Node(from)
		tn, ok2 := s.graph.Node(to)
		if ok1 && ok2 {
			d.SelectedChoices[fn.ID()] = tn.ID()
		}
	}
	return d.SetExtra("player", s.player)
}

func (p storyParticipant) LoadData(d *savegame.Data) error {
	s := p.s
	identity := func(markupID string) (string, error) {
		n, ok := s.graph.NodeByMarkupID(markupID)
		if !ok {
			return "", fmt.Errorf("%w: %s", traversal.ErrUnknownNode, markupID)
		}
		return n.Identity(), nil
	}

	var cp traversal.Checkpoint
	var err error
	if cp.Current, err = identity(d.CurrentNode); err != nil {
		return err
	}
	for _, id := range d.History {
		ident, err := identity(id)
		if err != nil {
			return err
		}
		cp.History = append(cp.History, ident)
	}
	cp.SelectedChoices = make(map[string]string, len(d.SelectedChoices))
	for from, to := range d.SelectedChoices {
		fi, err := identity(from)
		if err != nil {
			return err
		}
		ti, err := identity(to)
		if err != nil {
			return err
		}
		cp.SelectedChoices[fi] = ti
	}
	if err := s.ctrl.Restore(cp); err != nil {
		return err
	}

	var player Player
	if ok, err := d.GetExtra("player", &player); err != nil {
		return err
	} else if ok {
		s.player = player
	}
	return nil
}

var _ savegame.Participant = storyParticipant{}
