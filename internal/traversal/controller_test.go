package traversal_test

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/gyaneshwarpardhi/storyloom/internal/story"
	"github.com/gyaneshwarpardhi/storyloom/internal/traversal"
)

// A (root) → B (choice point) → C | D, with C and D ending the chapter.
const branchXML = `<Story1Chapter1>
  <Title>Crossroads</Title>
  <Choice id="C" node="E">Go left</Choice>
  <Choice id="D" isEndOfChapter="true">Go right</Choice>
  <Node id="A" node="B" isRootNode="true">Morning.</Node>
  <Node id="B" choice="C,D">A fork in the road.</Node>
  <Node id="E" node="F">The left path is steep.</Node>
  <Node id="F">Dead end.</Node>
</Story1Chapter1>`

func buildGraph(t *testing.T, src string) *story.Graph {
	t.Helper()
	doc, err := story.ParseDocument(strings.NewReader(src))
	if err != nil {
		t.Fatalf("ParseDocument error: %v", err)
	}
	g := story.NewGraph("test", story.DefaultOptions())
	if _, err := g.Load(doc); err != nil {
		t.Fatalf("Load error: %v", err)
	}
	return g
}

func identity(t *testing.T, g *story.Graph, id string) string {
	t.Helper()
	n, ok := g.NodeByMarkupID(id)
	if !ok {
		t.Fatalf("node %q not found", id)
	}
	return n.Identity()
}

func currentID(t *testing.T, c *traversal.Controller) string {
	t.Helper()
	n, err := c.Current()
	if err != nil {
		t.Fatalf("Current error: %v", err)
	}
	return n.ID()
}

func started(t *testing.T, g *story.Graph) *traversal.Controller {
	t.Helper()
	c := traversal.New(g)
	if err := c.Start(); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	return c
}

func TestChoosePathToEndOfChapter(t *testing.T) {
	g := buildGraph(t, `<S>
  <Choice id="B" node="C,D">Pick</Choice>
  <Node id="A" node="B" isRootNode="true">Start</Node>
  <Node id="C" isEndOfChapter="true">Left</Node>
  <Node id="D" isEndOfChapter="true">Right</Node>
</S>`)
	c := started(t, g)

	if _, err := c.Advance(); !errors.Is(err, traversal.ErrAwaitingChoice) {
		t.Fatalf("A leads to a choice, expected ErrAwaitingChoice, got %v", err)
	}
	if err := c.Choose(identity(t, g, "B")); err != nil {
		t.Fatalf("Choose(B) error: %v", err)
	}
	if err := c.Choose(identity(t, g, "D")); err != nil {
		t.Fatalf("Choose(D) error: %v", err)
	}
	want := []string{identity(t, g, "A"), identity(t, g, "B")}
	if !reflect.DeepEqual(c.History(), want) {
		t.Errorf("history = %v, want %v", c.History(), want)
	}
	st, err := c.Advance()
	if err != nil || st != traversal.StatusEndOfChapter {
		t.Errorf("Advance(D) = %s, %v; want end_of_chapter", st, err)
	}
	if err := c.Choose(identity(t, g, "C")); !errors.Is(err, traversal.ErrNotAChoice) {
		t.Errorf("choosing after the chapter ended should fail, got %v", err)
	}
}

func TestAdvanceChooseToEndOfChapter(t *testing.T) {
	g := buildGraph(t, branchXML)
	c := started(t, g)

	if _, err := c.Advance(); err != nil {
		t.Fatalf("Advance(A) error: %v", err)
	}
	if got := currentID(t, c); got != "B" {
		t.Fatalf("current = %s, want B", got)
	}

	if _, err := c.Advance(); !errors.Is(err, traversal.ErrAwaitingChoice) {
		t.Fatalf("expected ErrAwaitingChoice at B, got %v", err)
	}

	d := identity(t, g, "D")
	if err := c.Choose(d); err != nil {
		t.Fatalf("Choose(D) error: %v", err)
	}
	want := []string{identity(t, g, "A"), identity(t, g, "B")}
	if !reflect.DeepEqual(c.History(), want) {
		t.Errorf("history = %v, want %v", c.History(), want)
	}

	st, err := c.Advance()
	if err != nil {
		t.Fatalf("Advance(D) error: %v", err)
	}
	if st != traversal.StatusEndOfChapter || !st.Terminal() {
		t.Errorf("status = %s, want end_of_chapter", st)
	}
	// Terminal states are sticky.
	if st, _ := c.Advance(); st != traversal.StatusEndOfChapter {
		t.Errorf("status after extra advance = %s", st)
	}
}

func TestAdvanceStallsWithoutTerminal(t *testing.T) {
	g := buildGraph(t, branchXML)
	c := started(t, g)
	c.Advance()
	if err := c.Choose(identity(t, g, "C")); err != nil {
		t.Fatalf("Choose(C) error: %v", err)
	}
	c.Advance() // C → E
	c.Advance() // E → F
	if got := currentID(t, c); got != "F" {
		t.Fatalf("current = %s, want F", got)
	}
	st, err := c.Advance()
	if !errors.Is(err, traversal.ErrNoTerminal) {
		t.Fatalf("expected ErrNoTerminal, got %v", err)
	}
	if st != traversal.StatusAtNode || currentID(t, c) != "F" {
		t.Errorf("controller should stay at F")
	}
}

func TestTerminalPriority(t *testing.T) {
	cases := []struct {
		name  string
		attrs string
		want  traversal.Status
	}{
		{"chapter first", `isGameOver="true" isEndOfStory="true" isEndOfChapter="true"`, traversal.StatusEndOfChapter},
		{"story over game over", `isGameOver="true" isEndOfStory="true"`, traversal.StatusEndOfStory},
		{"game over", `isGameOver="true"`, traversal.StatusGameOver},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := buildGraph(t, `<S><Node id="A" isRootNode="true" `+tc.attrs+`>end</Node></S>`)
			c := started(t, g)
			st, err := c.Advance()
			if err != nil {
				t.Fatalf("Advance error: %v", err)
			}
			if st != tc.want {
				t.Errorf("status = %s, want %s", st, tc.want)
			}
		})
	}
}

func TestRewind(t *testing.T) {
	g := buildGraph(t, branchXML)
	c := started(t, g)

	if c.Rewind() {
		t.Errorf("rewind with empty history should be a no-op")
	}
	if got := currentID(t, c); got != "A" {
		t.Errorf("current = %s, want A", got)
	}

	c.Advance()
	c.Choose(identity(t, g, "D"))
	c.Advance() // end of chapter

	if !c.Rewind() {
		t.Fatalf("rewind should succeed")
	}
	if got := currentID(t, c); got != "B" {
		t.Errorf("current = %s, want B", got)
	}
	if c.Status() != traversal.StatusAtNode {
		t.Errorf("status = %s, want at_node", c.Status())
	}
}

func TestReplaySelectedChoice(t *testing.T) {
	g := buildGraph(t, branchXML)
	c := started(t, g)
	c.Advance()
	b := identity(t, g, "B")

	if _, ok := c.ReplaySelectedChoice(b); ok {
		t.Errorf("no decision recorded yet")
	}
	if got := len(c.Choices()); got != 2 {
		t.Errorf("expected both choices offered, got %d", got)
	}

	d := identity(t, g, "D")
	if err := c.Choose(d); err != nil {
		t.Fatalf("Choose error: %v", err)
	}
	c.Rewind()

	for i := 0; i < 3; i++ {
		n, ok := c.ReplaySelectedChoice(b)
		if !ok || n.Identity() != d {
			t.Fatalf("replay %d returned %v, want D", i, n)
		}
	}
	choices := c.Choices()
	if len(choices) != 1 || choices[0].Identity() != d {
		t.Errorf("choices after replay = %v", choices)
	}

	if err := c.Choose(identity(t, g, "C")); !errors.Is(err, traversal.ErrNotAChoice) {
		t.Errorf("choosing another child after a decision: expected ErrNotAChoice, got %v", err)
	}
	if n, _ := c.ReplaySelectedChoice(b); n.Identity() != d {
		t.Errorf("recorded decision changed to %s", n.ID())
	}
	if err := c.Choose(d); err != nil {
		t.Errorf("choosing the recorded child again: %v", err)
	}
}

func TestCheckpointRoundTrip(t *testing.T) {
	g := buildGraph(t, branchXML)
	c := started(t, g)
	c.Advance()
	if err := c.Choose(identity(t, g, "C")); err != nil {
		t.Fatalf("Choose error: %v", err)
	}
	c.Advance() // C → E

	cp := c.Checkpoint()

	restored := traversal.New(g)
	if err := restored.Restore(cp); err != nil {
		t.Fatalf("Restore error: %v", err)
	}
	if !reflect.DeepEqual(restored.Checkpoint(), cp) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", restored.Checkpoint(), cp)
	}

	// Both controllers continue along the same path.
	for i := 0; i < 2; i++ {
		st1, err1 := c.Advance()
		st2, err2 := restored.Advance()
		if st1 != st2 || fmt.Sprint(err1) != fmt.Sprint(err2) {
			t.Fatalf("step %d diverged: (%s, %v) vs (%s, %v)", i, st1, err1, st2, err2)
		}
		if currentID(t, c) != currentID(t, restored) {
			t.Fatalf("step %d diverged: %s vs %s", i, currentID(t, c), currentID(t, restored))
		}
	}
}

func TestCheckpointKeepsTerminalStatus(t *testing.T) {
	g := buildGraph(t, branchXML)
	c := started(t, g)
	c.Advance()
	if err := c.Choose(identity(t, g, "D")); err != nil {
		t.Fatalf("Choose error: %v", err)
	}
	if st, err := c.Advance(); err != nil || st != traversal.StatusEndOfChapter {
		t.Fatalf("Advance = (%s, %v), want end_of_chapter", st, err)
	}

	cp := c.Checkpoint()
	if cp.Status != traversal.StatusEndOfChapter {
		t.Errorf("checkpoint status = %s", cp.Status)
	}
	restored := traversal.New(g)
	if err := restored.Restore(cp); err != nil {
		t.Fatalf("Restore error: %v", err)
	}
	if restored.Status() != traversal.StatusEndOfChapter {
		t.Errorf("restored status = %s, want end_of_chapter", restored.Status())
	}

	cp.Status = ""
	if err := restored.Restore(cp); err != nil {
		t.Fatalf("Restore error: %v", err)
	}
	if restored.Status() != traversal.StatusAtNode {
		t.Errorf("status without a saved value = %s, want at_node", restored.Status())
	}

	cp.Status = "lost"
	if err := restored.Restore(cp); err == nil {
		t.Error("expected error for unknown status")
	}
}

func TestCheckpointIsACopy(t *testing.T) {
	g := buildGraph(t, branchXML)
	c := started(t, g)
	c.Advance()
	cp := c.Checkpoint()
	cp.History[0] = "tampered"
	if c.History()[0] == "tampered" {
		t.Errorf("checkpoint shares history with the controller")
	}
}

func TestRestoreRejectsUnknownNode(t *testing.T) {
	g := buildGraph(t, branchXML)
	c := started(t, g)
	before := c.Checkpoint()

	err := c.Restore(traversal.Checkpoint{Current: "nope"})
	if !errors.Is(err, traversal.ErrUnknownNode) {
		t.Fatalf("expected ErrUnknownNode, got %v", err)
	}
	if !reflect.DeepEqual(c.Checkpoint(), before) {
		t.Errorf("failed restore changed the controller")
	}
}

func TestStartWithoutRoot(t *testing.T) {
	g := buildGraph(t, `<S><Node id="A">orphan</Node></S>`)
	c := traversal.New(g)
	if err := c.Start(); !errors.Is(err, story.ErrNoRoot) {
		t.Fatalf("expected ErrNoRoot, got %v", err)
	}
	if _, err := c.Advance(); !errors.Is(err, traversal.ErrNotStarted) {
		t.Errorf("expected ErrNotStarted, got %v", err)
	}
}
