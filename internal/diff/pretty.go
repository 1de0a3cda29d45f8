package diff

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Pretty renders a human-readable inline diff for logs and event payloads,
// marking deletions as [-text-] and insertions as {+text+}. Display rendering
// uses semantic cleanup so word boundaries read naturally; the run-level
// alignment from Diff stays character-exact.
func Pretty(source, target string) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(source, target, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	var sb strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			sb.WriteString("[-")
			sb.WriteString(d.Text)
			sb.WriteString("-]")
		case diffmatchpatch.DiffInsert:
			sb.WriteString("{+")
			sb.WriteString(d.Text)
			sb.WriteString("+}")
		default:
			sb.WriteString(d.Text)
		}
	}
	return sb.String()
}
