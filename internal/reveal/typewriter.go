// Package reveal shows node text progressively, one character at a time.
package reveal

import (
	"context"
	"strings"
	"time"
)

// DefaultInterval is the pause between two revealed characters.
const DefaultInterval = 30 * time.Millisecond

// Typewriter reveals text word by word, character by character.
type Typewriter struct {
	Interval time.Duration
}

// Run calls emit with a growing prefix of text after every character.
// Words are split on single spaces and re-joined by one space each.
// It returns ctx.Err() as soon as ctx is cancelled.
func (tw Typewriter) Run(ctx context.Context, text string, emit func(shown string)) error {
	var shown strings.Builder
	for i, word := range strings.Split(text, " ") {
		if i > 0 {
			shown.WriteByte(' ')
		}
		for _, r := range word {
			if err := tw.wait(ctx); err != nil {
				return err
			}
			shown.WriteRune(r)
			emit(shown.String())
		}
	}
	return nil
}

func (tw Typewriter) wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if tw.Interval <= 0 {
		return nil
	}
	t := time.NewTimer(tw.Interval)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
