package chapter

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gyaneshwarpardhi/storyloom/internal/story"
)

// ErrChapterNotFound is returned when no document exists for a chapter name.
var ErrChapterNotFound = errors.New("chapter: not found")

// Resolver turns a chapter name into its parsed markup document.
type Resolver interface {
	Resolve(name string) (*story.Document, error)
}

// FSResolver reads chapter documents from a story directory laid out as
// <root>/Part{p}/Story{p}Chapter{n}.xml. Names outside that convention are
// looked up as <root>/<name>.xml.
type FSResolver struct {
	root string
}

// NewFSResolver creates a resolver rooted at dir.
func NewFSResolver(dir string) *FSResolver {
	return &FSResolver{root: dir}
}

// Root returns the story directory.
func (r *FSResolver) Root() string { return r.root }

// Resolve reads and parses the chapter document.
func (r *FSResolver) Resolve(name string) (*story.Document, error) {
	path, err := r.locate(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open chapter %s: %w", path, err)
	}
	defer f.Close()

	doc, err := story.ParseDocument(f)
	if err != nil {
		return nil, fmt.Errorf("parse chapter %s: %w", path, err)
	}
	return doc, nil
}

// Exists reports whether a document for name is present.
func (r *FSResolver) Exists(name string) bool {
	_, err := r.locate(name)
	return err == nil
}

func (r *FSResolver) locate(name string) (string, error) {
	candidates := []string{filepath.Join(r.root, name+".xml")}
	if n, err := ParseName(name); err == nil {
		candidates = append([]string{filepath.Join(r.root, n.Path())}, candidates...)
	}
	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrChapterNotFound, name)
}

// Catalog lists every conventionally named chapter under the story directory,
// ordered by part and chapter.
func (r *FSResolver) Catalog() ([]Name, error) {
	seen := make(map[Name]bool)
	var names []Name
	err := filepath.WalkDir(r.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".xml" {
			return nil
		}
		n, err := ParseName(strings.TrimSuffix(d.Name(), ".xml"))
		if err != nil {
			return nil
		}
		if !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", r.root, err)
	}
	sort.Slice(names, func(i, j int) bool { return names[i].Less(names[j]) })
	return names, nil
}
