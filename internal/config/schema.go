package config

import (
	"time"

	"github.com/gyaneshwarpardhi/storyloom/internal/session"
	"github.com/gyaneshwarpardhi/storyloom/internal/story"
)

// Config is the top-level YAML structure.
type Config struct {
	Version string         `yaml:"version"`
	Story   StoryConf      `yaml:"story"`
	Graph   GraphConf      `yaml:"graph"`
	Save    SaveConf       `yaml:"save"`
	Player  session.Player `yaml:"player"`
	Reveal  RevealConf     `yaml:"reveal"`
}

// StoryConf locates the chapter documents.
type StoryConf struct {
	Dir          string `yaml:"dir"`
	StartChapter string `yaml:"start_chapter"`
	Watch        bool   `yaml:"watch"`
	ScanWorkers  int    `yaml:"scan_workers"`
}

// GraphConf tunes how chapter documents are reconciled into graphs.
type GraphConf struct {
	DedupChildren   *bool   `yaml:"dedup_children"`
	ValidateAcyclic *bool   `yaml:"validate_acyclic"`
	StableLayout    bool    `yaml:"stable_layout"`
	StepX           float64 `yaml:"step_x"`
	StepY           float64 `yaml:"step_y"`
}

// SaveConf configures the save game database.
type SaveConf struct {
	Path         string `yaml:"path"`
	AutosaveSlot string `yaml:"autosave_slot"` // empty = no autosave
}

// RevealConf configures the typewriter text reveal.
type RevealConf struct {
	IntervalMs int `yaml:"interval_ms"`
}

// Options converts the graph settings into reconcile options.
func (g GraphConf) Options() story.Options {
	opts := story.DefaultOptions()
	if g.DedupChildren != nil {
		opts.DedupChildren = *g.DedupChildren
	}
	if g.ValidateAcyclic != nil {
		opts.ValidateAcyclic = *g.ValidateAcyclic
	}
	opts.StableLayout = g.StableLayout
	if g.StepX != 0 {
		opts.Layout.StepX = g.StepX
	}
	if g.StepY != 0 {
		opts.Layout.StepY = g.StepY
	}
	return opts
}

// Interval returns the pause between revealed characters.
func (r RevealConf) Interval() time.Duration {
	return time.Duration(r.IntervalMs) * time.Millisecond
}
