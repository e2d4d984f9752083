package patch

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// UnifiedDiff renders the change from oldContent to newContent as a single
// hunk unified diff. Equal contents give "".
func UnifiedDiff(name, oldContent, newContent string) string {
	if oldContent == newContent {
		return ""
	}

	dmp := diffmatchpatch.New()
	a, b, lineArray := dmp.DiffLinesToChars(oldContent, newContent)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lineArray)

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "--- a/%s\n", name)
	fmt.Fprintf(&buf, "+++ b/%s\n", name)

	var hunk []string
	oldCount, newCount := 0, 0
	for _, d := range diffs {
		for _, line := range splitLines(d.Text) {
			switch d.Type {
			case diffmatchpatch.DiffEqual:
				hunk = append(hunk, " "+line)
				oldCount++
				newCount++
			case diffmatchpatch.DiffDelete:
				hunk = append(hunk, "-"+line)
				oldCount++
			case diffmatchpatch.DiffInsert:
				hunk = append(hunk, "+"+line)
				newCount++
			}
		}
	}

	fmt.Fprintf(&buf, "@@ -%s +%s @@\n", hunkRange(oldCount), hunkRange(newCount))
	for _, line := range hunk {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	return buf.String()
}

// hunkRange is the "start,count" of a hunk covering the whole file
func hunkRange(count int) string {
	if count == 0 {
		return "0,0"
	}
	return fmt.Sprintf("1,%d", count)
}

// splitLines splits text into lines, without an empty element for a
// trailing newline
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	if strings.HasSuffix(text, "\n") {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// countLines counts lines the way an editor shows them: a final line
// without a newline still counts.
func countLines(content string) int {
	return len(splitLines(content))
}
