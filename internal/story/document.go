package story

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Markup tag names recognised as graph vertices.
const (
	TagChoice = "Choice"
	TagNode   = "Node"
)

// ErrInvalidDocument wraps every failure to read a chapter document.
var ErrInvalidDocument = errors.New("invalid chapter document")

// Attr is one markup attribute in authored order.
type Attr struct {
	Name  string
	Value string
}

// Element is a Choice or Node element lifted out of the document.
type Element struct {
	Tag   string
	ID    string
	Attrs []Attr
	Text  string
}

// Choice reports whether the element was authored as a Choice.
func (e *Element) Choice() bool { return e.Tag == TagChoice }

// Document is a parsed chapter: its choice and node elements in document order.
type Document struct {
	Root    string
	Title   string
	Choices []*Element
	Nodes   []*Element
	Skipped int // Choice/Node elements without any attribute
}

// ParseDocumentBytes is a convenience wrapper around ParseDocument.
func ParseDocumentBytes(data []byte) (*Document, error) {
	return ParseDocument(bytes.NewReader(data))
}

// ParseDocument reads a chapter document. Choice and Node elements are collected
// at any depth; the title is the inner text of the root's first child element.
func ParseDocument(r io.Reader) (*Document, error) {
	dec := xml.NewDecoder(r)
	doc := &Document{}

	type open struct {
		el    *Element
		title bool
		text  strings.Builder
	}
	var stack []*open
	depth := 0
	sawTitle := false

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			o := &open{}
			switch {
			case depth == 0:
				doc.Root = t.Name.Local
			case depth == 1 && !sawTitle:
				sawTitle = true
				o.title = true
			}
			if t.Name.Local == TagChoice || t.Name.Local == TagNode {
				if len(t.Attr) == 0 {
					doc.Skipped++
				} else {
					o.el = newElement(t)
					if o.el.Choice() {
						doc.Choices = append(doc.Choices, o.el)
					} else {
						doc.Nodes = append(doc.Nodes, o.el)
					}
				}
			}
			stack = append(stack, o)
			depth++
		case xml.CharData:
			for _, o := range stack {
				if o.el != nil || o.title {
					o.text.Write(t)
				}
			}
		case xml.EndElement:
			if len(stack) == 0 {
				return nil, fmt.Errorf("%w: unexpected end element %s", ErrInvalidDocument, t.Name.Local)
			}
			o := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			depth--
			text := strings.TrimSpace(o.text.String())
			if o.el != nil {
				o.el.Text = text
			}
			if o.title {
				doc.Title = text
			}
		}
	}

	if doc.Root == "" {
		return nil, fmt.Errorf("%w: no root element", ErrInvalidDocument)
	}
	return doc, nil
}

func newElement(t xml.StartElement) *Element {
	el := &Element{Tag: t.Name.Local, Attrs: make([]Attr, 0, len(t.Attr))}
	for _, a := range t.Attr {
		el.Attrs = append(el.Attrs, Attr{Name: a.Name.Local, Value: a.Value})
	}
	// The id is the "id" attribute when present, else whatever comes first.
	el.ID = el.Attrs[0].Value
	for _, a := range el.Attrs {
		if a.Name == "id" {
			el.ID = a.Value
			break
		}
	}
	return el
}

// Elements returns choices followed by nodes, the order reconciliation visits them in.
func (d *Document) Elements() []*Element {
	out := make([]*Element, 0, len(d.Choices)+len(d.Nodes))
	out = append(out, d.Choices...)
	return append(out, d.Nodes...)
}
