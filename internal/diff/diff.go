// Package diff compares two artifacts line by line.
package diff

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Result describes how two artifacts differ.
type Result struct {
	Added   int
	Removed int
	// Text is the changed lines, "-" for removed and "+" for added, each
	// prefixed with its line number in the old or new file.
	Text string
}

// Differs reports whether any line was added or removed.
func (r Result) Differs() bool { return r.Added > 0 || r.Removed > 0 }

// Lines diffs before against after at line granularity. CRLF line endings are
// treated as LF so a re-saved file does not show every line as changed.
func Lines(before, after string) Result {
	before, after = normalize(before), normalize(after)
	if before == after {
		return Result{}
	}

	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var (
		res        Result
		out        strings.Builder
		oldN, newN = 1, 1
	)
	for _, d := range diffs {
		for _, line := range split(d.Text) {
			switch d.Type {
			case diffmatchpatch.DiffEqual:
				oldN++
				newN++
			case diffmatchpatch.DiffDelete:
				fmt.Fprintf(&out, "-%d: %s\n", oldN, line)
				res.Removed++
				oldN++
			case diffmatchpatch.DiffInsert:
				fmt.Fprintf(&out, "+%d: %s\n", newN, line)
				res.Added++
				newN++
			}
		}
	}
	res.Text = out.String()
	return res
}

// Patch returns before->after as diff-match-patch patch text, or "" when equal.
func Patch(before, after string) string {
	before, after = normalize(before), normalize(after)
	if before == after {
		return ""
	}
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)
	return dmp.PatchToText(dmp.PatchMake(before, diffs))
}

// split breaks a diff chunk into its lines without the trailing newline.
func split(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return []string{""}
	}
	return strings.Split(s, "\n")
}

func normalize(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}
