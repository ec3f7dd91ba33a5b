package progress

import (
	"errors"
	"fmt"
	"math"

	"github.com/gyaneshwarpardhi/storyloom/internal/story"
)

// bookkeepingNodes is subtracted from a chapter's narrative node count: the
// root and terminal beats do not count as progress steps.
const bookkeepingNodes = 2

// ErrUnknownChapter is returned when the chapter is not part of the chapter set.
var ErrUnknownChapter = errors.New("progress: unknown chapter")

// Chapter is one entry of the ordered chapter set.
type Chapter struct {
	Name  string
	Nodes []*story.Node
}

// Estimate holds the per-chapter weights for display-only completion percentages.
type Estimate struct {
	ChapterIndex  int     `json:"chapter_index"`
	ChapterWeight float64 `json:"chapter_weight"`
	NodeWeight    float64 `json:"node_weight"`
	firstNode     string
}

// Calculate computes the weights for chapterName within chapters.
//
// The chapter weight is 100 divided by the chapter count in integer arithmetic;
// the node weight is that divided by the narrative node count minus two,
// rounded half-up to two decimals.
func Calculate(chapterName string, chapters []Chapter) (*Estimate, error) {
	idx := -1
	for i, ch := range chapters {
		if ch.Name == chapterName {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownChapter, chapterName)
	}

	ch := chapters[idx]
	est := &Estimate{
		ChapterIndex:  idx,
		ChapterWeight: float64(100 / len(chapters)),
	}
	if len(ch.Nodes) > 0 {
		est.firstNode = ch.Nodes[0].Identity()
	}

	narrative := 0
	for _, n := range ch.Nodes {
		if !n.IsChoice() {
			narrative++
		}
	}
	if steps := narrative - bookkeepingNodes; steps > 0 {
		est.NodeWeight = roundHalfUp(est.ChapterWeight/float64(steps), 2)
	}
	return est, nil
}

// Progress returns the percentage contributed by reaching identity: the
// completed chapters' share on the chapter's first node, the node weight elsewhere.
func (e *Estimate) Progress(identity string) float64 {
	if identity == e.firstNode {
		return e.ChapterWeight * float64(e.ChapterIndex)
	}
	return e.NodeWeight
}

// Reached sums the progress of a path walked through the chapter. The walk's
// start counts as the completed chapters' share and every later narrative
// node adds its own progress. The result never exceeds the chapter's share.
func (e *Estimate) Reached(path []*story.Node) float64 {
	total := e.Progress(e.firstNode)
	limit := total + e.ChapterWeight
	for i, n := range path {
		if i == 0 || n.IsChoice() || n.Identity() == e.firstNode {
			continue
		}
		total += e.Progress(n.Identity())
	}
	if total > limit {
		total = limit
	}
	return roundHalfUp(total, 2)
}

func roundHalfUp(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Floor(v*p+0.5) / p
}
