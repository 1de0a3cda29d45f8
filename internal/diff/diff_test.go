package diff

import (
	"strings"
	"testing"
)

func TestDiffIdentity(t *testing.T) {
	runs := Runs("hello", "hello")
	if len(runs) != 1 {
		t.Fatalf("runs = %d, want 1", len(runs))
	}
	if runs[0].Kind != Unchanged || runs[0].Text != "hello" {
		t.Errorf("run = %+v, want unchanged %q", runs[0], "hello")
	}
}

func TestDiffEmpty(t *testing.T) {
	if runs := Runs("", ""); len(runs) != 0 {
		t.Errorf("empty inputs produced %d runs", len(runs))
	}
	runs := Runs("", "abc")
	if len(runs) != 1 || runs[0].Kind != Inserted || runs[0].Text != "abc" {
		t.Errorf("insert-only diff = %+v", runs)
	}
	runs = Runs("abc", "")
	if len(runs) != 1 || runs[0].Kind != Deleted || runs[0].Text != "abc" {
		t.Errorf("delete-only diff = %+v", runs)
	}
}

func TestDiffRoundTrip(t *testing.T) {
	pairs := [][2]string{
		{"Hello world", "Hello world\n\nLearn more at our page!"},
		{"the quick brown fox", "the slow brown cat"},
		{"abc", "xyz"},
		{"", "something"},
		{"something", ""},
		{"aaaa", "aa"},
		{"kitten", "sitting"},
		{"multi\nline\ntext", "multi\nline edits\ntext here"},
	}
	for _, p := range pairs {
		runs := Runs(p[0], p[1])
		if got := Source(runs); got != p[0] {
			t.Errorf("Source(%q->%q) = %q", p[0], p[1], got)
		}
		if got := Target(runs); got != p[1] {
			t.Errorf("Target(%q->%q) = %q", p[0], p[1], got)
		}
	}
}

func TestDiffNoEmptyRunsAndMerged(t *testing.T) {
	runs := Runs("abcdef", "abXdeYf")
	for i, r := range runs {
		if r.Text == "" {
			t.Errorf("run %d has empty text", i)
		}
		if i > 0 && runs[i-1].Kind == r.Kind {
			t.Errorf("adjacent runs %d and %d share kind %v", i-1, i, r.Kind)
		}
	}
}

func TestDiffTieBreakFavorsInsert(t *testing.T) {
	// Replacing a lone character: the inserted run must come before the
	// deleted run in the alignment.
	runs := Runs("a", "b")
	if len(runs) != 2 {
		t.Fatalf("runs = %+v, want 2", runs)
	}
	if runs[0].Kind != Inserted || runs[1].Kind != Deleted {
		t.Errorf("order = %v,%v, want inserted,deleted", runs[0].Kind, runs[1].Kind)
	}
}

func TestDiffTruncation(t *testing.T) {
	long := strings.Repeat("x", MaxInput+100)
	runs, truncated := Diff(long, "short")
	if !truncated {
		t.Fatal("expected truncation flag")
	}
	if got := Source(runs); len([]rune(got)) != MaxInput {
		t.Errorf("bounded source length = %d, want %d", len([]rune(got)), MaxInput)
	}
	if _, truncated := Diff("a", "b"); truncated {
		t.Error("short inputs flagged as truncated")
	}
}

func TestPretty(t *testing.T) {
	out := Pretty("good morning", "good evening")
	if !strings.Contains(out, "good ") {
		t.Errorf("missing common prefix in %q", out)
	}
	if !strings.Contains(out, "[-") || !strings.Contains(out, "{+") {
		t.Errorf("missing diff markers in %q", out)
	}
}
