// Package markdown provides heuristics over assembled narrative text:
// truncation detection, duplicate-section removal, and table cleanup.
//
// Truncation is judged, not signaled. The producer never tells us it ran
// out of budget mid-document, so the detector reads the tail of the
// buffer for syntactic evidence of a cut. Thresholds are tuned to avoid
// false positives on long documents that simply end plainly.
package markdown

import (
	"regexp"
	"strings"
)

const (
	// MinSignalLen is the buffer length below which truncation is never
	// reported: too little text to judge.
	MinSignalLen = 100

	// SubstantialLen is the buffer length above which only strong
	// evidence (broken fence, long unpunctuated tail) counts.
	SubstantialLen = 80_000

	// longLineLen marks a final line as "long" for the substantial-buffer
	// rule.
	longLineLen = 100
)

// TruncationReport is the detector's verdict for one buffer.
type TruncationReport struct {
	Truncated bool

	// ResumeHeading is the text of the last heading line, passed back to
	// the producer as a continuation hint. Empty when no heading exists.
	ResumeHeading string
}

var headingLine = regexp.MustCompile(`(?m)^#{1,6}\s+(.+?)\s*$`)

// terminalPunctuation are the runes accepted as a sentence-final close.
const terminalPunctuation = `.!?:;"')`

// DetectTruncation classifies a narrative buffer as complete or cut off.
func DetectTruncation(buf string) TruncationReport {
	report := TruncationReport{ResumeHeading: lastHeading(buf)}

	trimmed := strings.TrimRight(buf, " \t\n\r")
	if len(trimmed) < MinSignalLen {
		return report
	}

	final := finalLine(trimmed)

	if len(trimmed) > SubstantialLen {
		// Long documents end plainly all the time; require strong evidence.
		if unbalancedFence(trimmed) {
			report.Truncated = true
			return report
		}
		// A final line containing "[" or "|" looks like a link or table row
		// and is treated as evidence of completeness. This is a tunable
		// heuristic, not a guarantee.
		if len(final) > longLineLen &&
			!endsTerminal(final) &&
			!strings.HasPrefix(final, "#") &&
			!strings.ContainsAny(final, "[|") {
			report.Truncated = true
		}
		return report
	}

	switch {
	case !endsTerminal(trimmed):
		report.Truncated = true
	case openTableRow(final):
		report.Truncated = true
	case unbalancedFence(trimmed):
		report.Truncated = true
	case isListItem(final) && !endsTerminal(final):
		report.Truncated = true
	}
	return report
}

func lastHeading(buf string) string {
	matches := headingLine.FindAllStringSubmatch(buf, -1)
	if len(matches) == 0 {
		return ""
	}
	return matches[len(matches)-1][1]
}

func finalLine(trimmed string) string {
	if i := strings.LastIndexByte(trimmed, '\n'); i >= 0 {
		return strings.TrimSpace(trimmed[i+1:])
	}
	return strings.TrimSpace(trimmed)
}

func endsTerminal(s string) bool {
	s = strings.TrimRight(s, " \t")
	if s == "" {
		return false
	}
	return strings.ContainsRune(terminalPunctuation, rune(s[len(s)-1]))
}

// openTableRow reports a table row that was started but never closed.
func openTableRow(line string) bool {
	return strings.HasPrefix(line, "|") && !strings.HasSuffix(line, "|")
}

func unbalancedFence(buf string) bool {
	count := 0
	for _, line := range strings.Split(buf, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			count++
		}
	}
	return count%2 != 0
}

var listMarker = regexp.MustCompile(`^(?:[-*+]|\d+[.)])\s`)

func isListItem(line string) bool {
	return listMarker.MatchString(line)
}
