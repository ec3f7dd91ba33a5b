package chapter

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
)

// ErrBadName is returned for chapter names not following Story{part}Chapter{n}.
var ErrBadName = errors.New("chapter: name must look like Story{part}Chapter{n}")

var namePattern = regexp.MustCompile(`^Story(\d+)Chapter(\d+)$`)

// Name identifies a chapter by part and chapter number.
type Name struct {
	Part    int
	Chapter int
}

// ParseName parses "Story2Chapter3" into Name{2, 3}.
func ParseName(s string) (Name, error) {
	m := namePattern.FindStringSubmatch(s)
	if m == nil {
		return Name{}, fmt.Errorf("%w: %q", ErrBadName, s)
	}
	part, _ := strconv.Atoi(m[1])
	ch, _ := strconv.Atoi(m[2])
	return Name{Part: part, Chapter: ch}, nil
}

func (n Name) String() string {
	return fmt.Sprintf("Story%dChapter%d", n.Part, n.Chapter)
}

// Next is the following chapter of the same part.
func (n Name) Next() Name {
	return Name{Part: n.Part, Chapter: n.Chapter + 1}
}

// NextPart is the first chapter of the following part.
func (n Name) NextPart() Name {
	return Name{Part: n.Part + 1, Chapter: 1}
}

// Path is the chapter document's location relative to the story root.
func (n Name) Path() string {
	return filepath.Join(fmt.Sprintf("Part%d", n.Part), n.String()+".xml")
}

// Less orders chapters by part, then chapter.
func (n Name) Less(o Name) bool {
	if n.Part != o.Part {
		return n.Part < o.Part
	}
	return n.Chapter < o.Chapter
}
