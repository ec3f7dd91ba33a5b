package chapter_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gyaneshwarpardhi/storyloom/internal/chapter"
	"github.com/gyaneshwarpardhi/storyloom/internal/story"
)

const doc = `<Story1Chapter1><Title>One</Title><Node id="A" isRootNode="true">a</Node></Story1Chapter1>`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestParseName(t *testing.T) {
	n, err := chapter.ParseName("Story2Chapter13")
	if err != nil {
		t.Fatalf("ParseName error: %v", err)
	}
	if n.Part != 2 || n.Chapter != 13 {
		t.Errorf("got %+v", n)
	}
	if n.String() != "Story2Chapter13" {
		t.Errorf("String() = %s", n)
	}
	if got := n.Next().String(); got != "Story2Chapter14" {
		t.Errorf("Next() = %s", got)
	}
	if got := n.NextPart().String(); got != "Story3Chapter1" {
		t.Errorf("NextPart() = %s", got)
	}
	if got := n.Path(); got != filepath.Join("Part2", "Story2Chapter13.xml") {
		t.Errorf("Path() = %s", got)
	}

	for _, bad := range []string{"", "Chapter1", "Story1Chapter", "StoryXChapter1", "Story1Chapter1.xml"} {
		if _, err := chapter.ParseName(bad); !errors.Is(err, chapter.ErrBadName) {
			t.Errorf("ParseName(%q) expected ErrBadName, got %v", bad, err)
		}
	}
}

func TestFSResolver(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Part1", "Story1Chapter1.xml"), doc)
	writeFile(t, filepath.Join(root, "Combat1.xml"), `<Combat1><Node id="X" isRootNode="true">x</Node></Combat1>`)

	r := chapter.NewFSResolver(root)

	d, err := r.Resolve("Story1Chapter1")
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if d.Title != "One" || len(d.Nodes) != 1 {
		t.Errorf("unexpected document %+v", d)
	}

	if _, err := r.Resolve("Combat1"); err != nil {
		t.Errorf("flat lookup failed: %v", err)
	}
	if _, err := r.Resolve("Story1Chapter2"); !errors.Is(err, chapter.ErrChapterNotFound) {
		t.Errorf("expected ErrChapterNotFound, got %v", err)
	}
	if r.Exists("Story1Chapter2") || !r.Exists("Story1Chapter1") {
		t.Errorf("Exists reported wrong presence")
	}
}

func TestFSResolver_BrokenDocument(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Broken.xml"), `<Broken><Node id="A">`)
	_, err := chapter.NewFSResolver(root).Resolve("Broken")
	if err == nil {
		t.Fatal("expected parse error")
	}
}

func TestCatalog(t *testing.T) {
	root := t.TempDir()
	for _, p := range []string{
		"Part2/Story2Chapter1.xml",
		"Part1/Story1Chapter10.xml",
		"Part1/Story1Chapter2.xml",
		"Part1/Story1Chapter1.xml",
		"Part1/notes.xml",
		"Part1/Story1Chapter3.txt",
	} {
		writeFile(t, filepath.Join(root, p), doc)
	}

	names, err := chapter.NewFSResolver(root).Catalog()
	if err != nil {
		t.Fatalf("Catalog error: %v", err)
	}
	want := []string{"Story1Chapter1", "Story1Chapter2", "Story1Chapter10", "Story2Chapter1"}
	if len(names) != len(want) {
		t.Fatalf("got %v, want %v", names, want)
	}
	for i, n := range names {
		if n.String() != want[i] {
			t.Errorf("names[%d] = %s, want %s", i, n, want[i])
		}
	}
}

func TestWatcher(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "Part1", "Story1Chapter1.xml")
	writeFile(t, path, doc)

	w := chapter.NewWatcher(root)
	changed := make(chan string, 8)
	w.OnChange(func(name string) {
		select {
		case changed <- name:
		default:
		}
	})
	stop, err := w.Watch()
	if err != nil {
		t.Fatalf("Watch error: %v", err)
	}
	defer stop()

	writeFile(t, path, doc+"\n")

	select {
	case name := <-changed:
		if name != "Story1Chapter1" {
			t.Errorf("changed = %s", name)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no change notification")
	}
}

func TestWatcher_NewPartDirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Part1", "Story1Chapter1.xml"), doc)

	w := chapter.NewWatcher(root)
	changed := make(chan string, 8)
	w.OnChange(func(name string) {
		select {
		case changed <- name:
		default:
		}
	})
	stop, err := w.Watch()
	if err != nil {
		t.Fatalf("Watch error: %v", err)
	}
	defer stop()

	// Part2 did not exist when watching started.
	writeFile(t, filepath.Join(root, "Part2", "Story2Chapter1.xml"), doc)

	timeout := time.After(5 * time.Second)
	for {
		select {
		case name := <-changed:
			if name == "Story2Chapter1" {
				return
			}
		case <-timeout:
			t.Fatal("no notification for a chapter in a new part directory")
		}
	}
}

func TestScan(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Part1", "Story1Chapter1.xml"), doc)
	writeFile(t, filepath.Join(root, "Part1", "Story1Chapter2.xml"),
		`<Story1Chapter2><Title>Two</Title><Node id="A" isRootNode="true" node="B">a</Node><Node id="B">b</Node></Story1Chapter2>`)

	r := chapter.NewFSResolver(root)
	names, err := r.Catalog()
	if err != nil {
		t.Fatalf("Catalog error: %v", err)
	}

	scanned, err := chapter.Scan(context.Background(), r, names, 4, story.DefaultOptions())
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}
	if len(scanned) != 2 {
		t.Fatalf("scanned %d chapters, want 2", len(scanned))
	}
	if scanned[0].Title != "One" || len(scanned[0].Nodes) != 1 {
		t.Errorf("unexpected first chapter %+v", scanned[0])
	}
	if scanned[1].Name.Chapter != 2 || len(scanned[1].Nodes) != 2 {
		t.Errorf("unexpected second chapter %+v", scanned[1])
	}
}

func TestScan_MissingChapter(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Part1", "Story1Chapter1.xml"), doc)

	names := []chapter.Name{{Part: 1, Chapter: 1}, {Part: 1, Chapter: 2}}
	_, err := chapter.Scan(context.Background(), chapter.NewFSResolver(root), names, 2, story.DefaultOptions())
	if !errors.Is(err, chapter.ErrChapterNotFound) {
		t.Errorf("expected ErrChapterNotFound, got %v", err)
	}
}
