package markdown

import "strings"

// RemoveDuplicateSections drops any section whose heading text is
// identical to an earlier section's heading. Continuation rounds
// sometimes re-emit a section they had already finished; the first
// occurrence wins and later copies are trimmed in full.
func RemoveDuplicateSections(text string) string {
	lines := strings.Split(text, "\n")

	type section struct {
		heading string // empty for the preamble before the first heading
		lines   []string
	}

	var sections []section
	current := section{}
	for _, line := range lines {
		if m := headingLine.FindStringSubmatch(line); m != nil {
			sections = append(sections, current)
			current = section{heading: m[1]}
		}
		current.lines = append(current.lines, line)
	}
	sections = append(sections, current)

	seen := make(map[string]bool)
	var out []string
	for _, s := range sections {
		if s.heading != "" {
			key := strings.ToLower(strings.TrimSpace(s.heading))
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		out = append(out, s.lines...)
	}
	return strings.Join(out, "\n")
}

// NormalizeTables removes a trailing table row that was cut before its
// closing pipe. Interior rows are left alone: rewriting table bodies is
// the producer's job, not ours.
func NormalizeTables(text string) string {
	trimmed := strings.TrimRight(text, " \t\n")
	i := strings.LastIndexByte(trimmed, '\n')
	last := strings.TrimSpace(trimmed[i+1:])
	if openTableRow(last) {
		if i < 0 {
			return ""
		}
		return trimmed[:i] + "\n"
	}
	return text
}
