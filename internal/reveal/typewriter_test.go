package reveal_test

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/gyaneshwarpardhi/storyloom/internal/reveal"
)

func TestTypewriter_Run(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"single word", "Hi", []string{"H", "Hi"}},
		{"two words", "Hi yo", []string{"H", "Hi", "Hi y", "Hi yo"}},
		{"double space kept", "a  b", []string{"a", "a  b"}},
		{"multibyte", "né", []string{"n", "né"}},
		{"empty", "", nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got []string
			err := reveal.Typewriter{}.Run(context.Background(), tc.text, func(s string) {
				got = append(got, s)
			})
			if err != nil {
				t.Fatalf("Run error: %v", err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestTypewriter_Cancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var got []string
	tw := reveal.Typewriter{Interval: time.Millisecond}
	err := tw.Run(ctx, "one two three", func(s string) {
		got = append(got, s)
		if len(got) == 2 {
			cancel()
		}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(got) != 2 {
		t.Errorf("emitted %d prefixes after cancel, want 2", len(got))
	}
}
