package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gyaneshwarpardhi/storyloom/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "storyloom.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoader_Defaults(t *testing.T) {
	l, err := config.NewLoader(writeConfig(t, "version: \"1\"\n"))
	if err != nil {
		t.Fatalf("NewLoader error: %v", err)
	}
	cfg := l.Config()
	if cfg.Story.Dir != "stories" || cfg.Story.StartChapter != "Story1Chapter1" {
		t.Errorf("unexpected story defaults %+v", cfg.Story)
	}
	if cfg.Save.Path != "storyloom.db" {
		t.Errorf("save.path = %s", cfg.Save.Path)
	}
	if cfg.Reveal.Interval() != 20*time.Millisecond {
		t.Errorf("reveal interval = %v", cfg.Reveal.Interval())
	}

	opts := cfg.Graph.Options()
	if !opts.DedupChildren || !opts.ValidateAcyclic || opts.StableLayout {
		t.Errorf("unexpected default options %+v", opts)
	}
	if opts.Layout.StepX != 350 || opts.Layout.StepY != 200 {
		t.Errorf("unexpected default layout %+v", opts.Layout)
	}
	if err := config.Validate(cfg); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoader_Overrides(t *testing.T) {
	l, err := config.NewLoader(writeConfig(t, `
version: "1"
story:
  dir: ./chapters
  start_chapter: Story2Chapter1
  watch: true
graph:
  dedup_children: false
  validate_acyclic: false
  stable_layout: true
  step_x: 100
player:
  name: Ada
  background: knight
save:
  path: /tmp/saves.db
  autosave_slot: auto
`))
	if err != nil {
		t.Fatalf("NewLoader error: %v", err)
	}
	cfg := l.Config()
	if cfg.Player.Name != "Ada" || cfg.Player.Background != "knight" {
		t.Errorf("player = %+v", cfg.Player)
	}
	if !cfg.Story.Watch || cfg.Save.AutosaveSlot != "auto" {
		t.Errorf("unexpected config %+v", cfg)
	}
	opts := cfg.Graph.Options()
	if opts.DedupChildren || opts.ValidateAcyclic || !opts.StableLayout {
		t.Errorf("overrides not applied: %+v", opts)
	}
	if opts.Layout.StepX != 100 || opts.Layout.StepY != 200 {
		t.Errorf("layout = %+v", opts.Layout)
	}
}

func TestLoader_Errors(t *testing.T) {
	if _, err := config.NewLoader(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := config.NewLoader(writeConfig(t, "version: [")); err == nil {
		t.Error("expected error for malformed yaml")
	}
}

func TestLoader_ReloadNotifies(t *testing.T) {
	path := writeConfig(t, "version: \"1\"\n")
	l, err := config.NewLoader(path)
	if err != nil {
		t.Fatalf("NewLoader error: %v", err)
	}
	var got *config.Config
	l.OnChange(func(c *config.Config) { got = c })

	if err := os.WriteFile(path, []byte("version: \"2\"\nplayer:\n  name: Bo\n"), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}
	if _, err := l.Reload(); err != nil {
		t.Fatalf("Reload error: %v", err)
	}
	if got == nil || got.Version != "2" || got.Player.Name != "Bo" {
		t.Errorf("callback got %+v", got)
	}
	if l.Config().Version != "2" {
		t.Errorf("current config not replaced")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
		want []string
	}{
		{
			name: "missing version",
			cfg:  config.Config{},
			want: []string{"version is required"},
		},
		{
			name: "missing paths",
			cfg:  config.Config{Version: "1"},
			want: []string{"story.dir is required", "save.path is required"},
		},
		{
			name: "negative settings",
			cfg: config.Config{
				Version: "1",
				Story:   config.StoryConf{Dir: "s", ScanWorkers: -1},
				Graph:   config.GraphConf{StepX: -5},
				Save:    config.SaveConf{Path: "x.db"},
				Reveal:  config.RevealConf{IntervalMs: -1},
			},
			want: []string{"story.scan_workers", "graph.step_x", "reveal.interval_ms"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := config.Validate(&tc.cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			for _, w := range tc.want {
				if !strings.Contains(err.Error(), w) {
					t.Errorf("error %q does not mention %q", err, w)
				}
			}
		})
	}

	ok := config.Config{Version: "1", Story: config.StoryConf{Dir: "s"}, Save: config.SaveConf{Path: "x.db"}}
	if err := config.Validate(&ok); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}
}
