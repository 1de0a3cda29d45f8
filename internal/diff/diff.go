// Package diff computes character-level alignments between two versions of a
// draft, tagging every run as unchanged, deleted, or inserted.
package diff

// Kind classifies a run of characters in an alignment.
type Kind int

const (
	Unchanged Kind = iota
	Deleted
	Inserted
)

// String returns the lowercase name used in event payloads.
func (k Kind) String() string {
	switch k {
	case Deleted:
		return "deleted"
	case Inserted:
		return "inserted"
	default:
		return "unchanged"
	}
}

// Run is a contiguous tagged segment of the alignment. Concatenating the
// unchanged+deleted runs in order reproduces the source string; the
// unchanged+inserted runs reproduce the target.
type Run struct {
	Kind Kind   `json:"kind"`
	Text string `json:"text"`
}

// MaxInput bounds both inputs so the O(n*m) table stays tractable.
const MaxInput = 4000

// TruncationMarker is appended to rendered output when an input exceeded
// MaxInput and the alignment is therefore partial.
const TruncationMarker = " […truncated]"

// Diff aligns source against target and reports whether either input was
// truncated to MaxInput characters before alignment. Adjacent runs of the
// same kind are merged; no run has empty text.
func Diff(source, target string) ([]Run, bool) {
	s, truncS := bound(source)
	t, truncT := bound(target)
	return Runs(s, t), truncS || truncT
}

// Runs computes the alignment of two already-bounded strings via a
// longest-common-subsequence dynamic program over characters.
func Runs(source, target string) []Run {
	s := []rune(source)
	t := []rune(target)
	n, m := len(s), len(t)

	// dp[i][j] = LCS length of s[i:] and t[j:], filled back to front.
	dp := make([][]int, n+1)
	for i := range dp {
		dp[i] = make([]int, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if s[i] == t[j] {
				dp[i][j] = dp[i+1][j+1] + 1
			} else if dp[i+1][j] > dp[i][j+1] {
				dp[i][j] = dp[i+1][j]
			} else {
				dp[i][j] = dp[i][j+1]
			}
		}
	}

	var b builder
	i, j := 0, 0
	for i < n && j < m {
		switch {
		case s[i] == t[j]:
			b.add(Unchanged, s[i])
			i++
			j++
		case dp[i][j+1] >= dp[i+1][j]:
			// Tie favors consuming from target: insertions render first.
			b.add(Inserted, t[j])
			j++
		default:
			b.add(Deleted, s[i])
			i++
		}
	}
	for ; i < n; i++ {
		b.add(Deleted, s[i])
	}
	for ; j < m; j++ {
		b.add(Inserted, t[j])
	}
	return b.finish()
}

// Source reconstructs the pre-edit string from an alignment.
func Source(runs []Run) string {
	var out []byte
	for _, r := range runs {
		if r.Kind != Inserted {
			out = append(out, r.Text...)
		}
	}
	return string(out)
}

// Target reconstructs the post-edit string from an alignment.
func Target(runs []Run) string {
	var out []byte
	for _, r := range runs {
		if r.Kind != Deleted {
			out = append(out, r.Text...)
		}
	}
	return string(out)
}

func bound(s string) (string, bool) {
	r := []rune(s)
	if len(r) <= MaxInput {
		return s, false
	}
	return string(r[:MaxInput]), true
}

// builder accumulates runes into runs, merging consecutive same-kind runs.
type builder struct {
	runs []Run
	kind Kind
	buf  []rune
}

func (b *builder) add(k Kind, r rune) {
	if len(b.buf) > 0 && k != b.kind {
		b.runs = append(b.runs, Run{Kind: b.kind, Text: string(b.buf)})
		b.buf = b.buf[:0]
	}
	b.kind = k
	b.buf = append(b.buf, r)
}

func (b *builder) finish() []Run {
	if len(b.buf) > 0 {
		b.runs = append(b.runs, Run{Kind: b.kind, Text: string(b.buf)})
	}
	return b.runs
}
