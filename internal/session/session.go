// Package session runs one player's story: the loaded chapter graph, the
// traversal through it and everything the player collects on the way.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gyaneshwarpardhi/storyloom/internal/chapter"
	"github.com/gyaneshwarpardhi/storyloom/internal/metrics"
	"github.com/gyaneshwarpardhi/storyloom/internal/progress"
	"github.com/gyaneshwarpardhi/storyloom/internal/savegame"
	"github.com/gyaneshwarpardhi/storyloom/internal/story"
	"github.com/gyaneshwarpardhi/storyloom/internal/traversal"
)

var (
	// ErrNoChapter is returned by operations that need a loaded chapter.
	ErrNoChapter = errors.New("session: no chapter loaded")
	// ErrNotFinished is returned by ContinueStory before the chapter reached its end.
	ErrNotFinished = errors.New("session: chapter not finished")
	// ErrGameOver is returned by ContinueStory after a game over.
	ErrGameOver = errors.New("session: game over")
	// ErrNoMoreChapters is returned when the story has nothing after the current chapter.
	ErrNoMoreChapters = errors.New("session: no more chapters")
)

// Cataloger lists the chapters of the whole story. Resolvers implementing it
// enable progress estimation across chapters.
type Cataloger interface {
	Catalog() ([]chapter.Name, error)
}

// Config holds the collaborators and options of a Session.
type Config struct {
	Resolver    chapter.Resolver
	Options     story.Options
	Player      Player
	Inventory   Inventory
	Registry    *savegame.Registry
	ScanWorkers int
	Logger      *slog.Logger
}

// Session owns the graph and traversal of the chapter being played.
// All methods are safe for concurrent use.
type Session struct {
	mu        sync.Mutex
	resolver  chapter.Resolver
	opts      story.Options
	player    Player
	inventory Inventory
	registry  *savegame.Registry
	workers   int
	log       *slog.Logger

	chapter  string
	graph    *story.Graph
	ctrl     *traversal.Controller
	estimate *progress.Estimate
}

// New creates a session. No chapter is loaded until LoadChapter.
// The session registers itself with cfg.Registry as the "story" participant.
func New(cfg Config) *Session {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Registry == nil {
		cfg.Registry = savegame.NewRegistry()
	}
	if cfg.Inventory == nil {
		cfg.Inventory = NewMemoryInventory()
	}
	s := &Session{
		resolver:  cfg.Resolver,
		opts:      cfg.Options,
		player:    cfg.Player,
		inventory: cfg.Inventory,
		registry:  cfg.Registry,
		workers:   cfg.ScanWorkers,
		log:       cfg.Logger,
	}
	s.registry.Register(storyParticipant{s})
	if p, ok := cfg.Inventory.(savegame.Participant); ok {
		s.registry.Register(p)
	}
	return s
}

// Player returns the current player profile.
func (s *Session) Player() Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.player
}

// SetPlayer replaces the player profile.
func (s *Session) SetPlayer(p Player) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.player = p
}

// Chapter returns the loaded chapter's name, or "" when none is loaded.
func (s *Session) Chapter() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chapter
}

// LoadChapter builds a fresh graph for name and starts at its root.
// On error the previously loaded chapter stays active.
func (s *Session) LoadChapter(ctx context.Context, name string) (*View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(ctx, name); err != nil {
		return nil, err
	}
	if err := s.ctrl.Start(); err != nil {
		return nil, err
	}
	s.enterLocked()
	return s.viewLocked(), nil
}

func (s *Session) loadLocked(ctx context.Context, name string) error {
	doc, err := s.resolver.Resolve(name)
	if err != nil {
		metrics.ChapterLoads.WithLabelValues("error").Inc()
		return fmt.Errorf("load chapter %s: %w", name, err)
	}

	start := time.Now()
	g := story.NewGraph(name, s.opts)
	res, err := g.Load(doc)
	metrics.ReconcileDuration.Observe(float64(time.Since(start).Microseconds()) / 1000)
	if err != nil {
		metrics.ChapterLoads.WithLabelValues("error").Inc()
		return fmt.Errorf("load chapter %s: %w", name, err)
	}
	if _, err := g.Root(); err != nil {
		metrics.ChapterLoads.WithLabelValues("error").Inc()
		return fmt.Errorf("load chapter %s: %w", name, err)
	}
	s.report(name, res)

	est, err := s.estimateLocked(ctx, name, g)
	if err != nil {
		s.log.Warn("progress estimate unavailable", "chapter", name, "err", err)
	}

	s.chapter = name
	s.graph = g
	s.ctrl = traversal.New(g)
	s.estimate = est
	metrics.ChapterLoads.WithLabelValues("loaded").Inc()
	s.log.Info("chapter loaded", "chapter", name, "title", g.Title(), "nodes", g.NodeCount())
	return nil
}

// Reload reconciles the loaded chapter against its document again. Nodes that
// survive keep their identity, so the traversal continues where it was unless
// the current node disappeared, in which case it restarts at the root.
func (s *Session) Reload(ctx context.Context) (*story.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.graph == nil {
		return nil, ErrNoChapter
	}

	doc, err := s.resolver.Resolve(s.chapter)
	if err != nil {
		metrics.ChapterLoads.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("reload chapter %s: %w", s.chapter, err)
	}
	start := time.Now()
	res, err := s.graph.Load(doc)
	metrics.ReconcileDuration.Observe(float64(time.Since(start).Microseconds()) / 1000)
	if err != nil {
		metrics.ChapterLoads.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("reload chapter %s: %w", s.chapter, err)
	}
	metrics.ChapterLoads.WithLabelValues("reloaded").Inc()
	s.report(s.chapter, res)

	cp := s.ctrl.Checkpoint()
	kept := cp.History[:0]
	for _, id := range cp.History {
		if _, ok := s.graph.Node(id); ok {
			kept = append(kept, id)
		}
	}
	cp.History = kept
	if err := s.ctrl.Restore(cp); err != nil {
		s.log.Warn("current node removed by reload, restarting chapter", "chapter", s.chapter, "err", err)
		if err := s.ctrl.Start(); err != nil {
			return res, err
		}
	}
	if est, err := s.estimateLocked(ctx, s.chapter, s.graph); err == nil {
		s.estimate = est
	}
	return res, nil
}

// Graph returns a snapshot of the loaded chapter's nodes.
func (s *Session) Graph() (*GraphDump, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.graph == nil {
		return nil, ErrNoChapter
	}
	return &GraphDump{Chapter: s.chapter, Title: s.graph.Title(), Nodes: s.graph.Nodes()}, nil
}

// GraphDump is the serialisable form of a chapter graph.
type GraphDump struct {
	Chapter string        `json:"chapter"`
	Title   string        `json:"title"`
	Nodes   []*story.Node `json:"nodes"`
}

// Progress returns the estimate for the loaded chapter.
func (s *Session) Progress() (*progress.Estimate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.graph == nil {
		return nil, ErrNoChapter
	}
	if s.estimate == nil {
		return nil, progress.ErrUnknownChapter
	}
	e := *s.estimate
	return &e, nil
}

func (s *Session) report(name string, res *story.Result) {
	metrics.NodesReconciled.WithLabelValues("added").Add(float64(len(res.Added)))
	metrics.NodesReconciled.WithLabelValues("removed").Add(float64(len(res.Removed)))
	metrics.NodesReconciled.WithLabelValues("kept").Add(float64(len(res.Kept)))
	for _, u := range res.Unresolved {
		metrics.ReconcileWarnings.WithLabelValues("unresolved").Inc()
		s.log.Warn("unresolved child reference", "chapter", name, "ref", u)
	}
	for _, v := range res.Invalid {
		metrics.ReconcileWarnings.WithLabelValues("invalid").Inc()
		s.log.Warn("invalid attribute value", "chapter", name, "attr", v)
	}
}

// estimateLocked computes progress weights. When the resolver can list the
// whole story every chapter is scanned; otherwise g is the only chapter.
func (s *Session) estimateLocked(ctx context.Context, name string, g *story.Graph) (*progress.Estimate, error) {
	chapters := []progress.Chapter{{Name: name, Nodes: g.Nodes()}}
	if c, ok := s.resolver.(Cataloger); ok {
		names, err := c.Catalog()
		if err != nil {
			return nil, err
		}
		scanned, err := chapter.Scan(ctx, s.resolver, names, s.workers, s.opts)
		if err != nil {
			return nil, err
		}
		if len(scanned) > 0 {
			chapters = chapters[:0]
			for _, sc := range scanned {
				nodes := sc.Nodes
				if sc.Name.String() == name {
					nodes = g.Nodes()
				}
				chapters = append(chapters, progress.Chapter{Name: sc.Name.String(), Nodes: nodes})
			}
		}
	}
	return progress.Calculate(name, chapters)
}
