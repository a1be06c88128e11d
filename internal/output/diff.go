package output

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Diff is a line diff between two renderings.
type Diff struct {
	Text      string
	Additions int
	Deletions int
}

// LineDiff computes a patch-style diff from before to after. label names both
// sides in the header; an empty label omits the header.
func LineDiff(label, before, after string) Diff {
	if before == after {
		return Diff{}
	}

	dmp := diffmatchpatch.New()
	a, b, lineArray := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var d Diff
	for _, df := range diffs {
		switch df.Type {
		case diffmatchpatch.DiffInsert:
			d.Additions += countLines(df.Text)
		case diffmatchpatch.DiffDelete:
			d.Deletions += countLines(df.Text)
		}
	}

	patchText := dmp.PatchToText(dmp.PatchMake(before, diffs))
	if patchText == "" {
		return d
	}

	var builder strings.Builder
	if label != "" {
		builder.WriteString(fmt.Sprintf("--- %s\n", label))
		builder.WriteString(fmt.Sprintf("+++ %s (resolved)\n", label))
	}
	builder.WriteString(patchText)
	d.Text = builder.String()
	return d
}

func countLines(text string) int {
	if text == "" {
		return 0
	}
	n := strings.Count(text, "\n")
	if !strings.HasSuffix(text, "\n") {
		n++
	}
	return n
}
