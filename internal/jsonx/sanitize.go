package jsonx

import (
	"regexp"
	"strings"

	"github.com/latticedocs/lattice/internal/types"
)

// Repair is one named textual fix applied to a candidate slice.
type Repair struct {
	Name  string
	Apply func(string) string
}

// repairs is the fixed repair order. Each repair mutates the candidate
// cumulatively and decode is re-attempted after each one. The sequence
// is deterministic: same input, same repairs, same result.
var repairs = []Repair{
	{Name: "escape_invalid_backslashes", Apply: escapeInvalidBackslashes},
	{Name: "strip_trailing_commas", Apply: stripTrailingCommas},
	{Name: "escape_raw_newlines", Apply: escapeRawNewlines},
	{Name: "strip_null_bytes", Apply: stripNullBytes},
	{Name: "trim_open_string", Apply: trimOpenString},
}

// Recover extracts the first JSON object from raw model output and runs
// it through the sanitization pipeline. Absence of any parsable object
// yields an empty concept map, never an error.
func Recover(text string) *types.ConceptMap {
	ext := ExtractObject(text)
	if ext.State == StateNotFound {
		return &types.ConceptMap{}
	}
	return Sanitize(ext.Completed())
}

// Sanitize decodes a candidate slice, applying repairs in order until
// one decode succeeds. If every repair fails the result is an empty
// concept map.
func Sanitize(candidate string) *types.ConceptMap {
	if m, err := Decode(candidate); err == nil {
		return m
	}
	for _, r := range repairs {
		candidate = r.Apply(candidate)
		if m, err := Decode(candidate); err == nil {
			return m
		}
	}
	return &types.ConceptMap{}
}

// invalidBackslash matches a backslash not followed by a recognized
// JSON escape character.
var invalidBackslash = regexp.MustCompile(`\\([^"\\/bfnrtu])`)

func escapeInvalidBackslashes(s string) string {
	return invalidBackslash.ReplaceAllString(s, `\\$1`)
}

// trailingComma matches a comma (plus trailing whitespace) immediately
// before a closing brace or bracket.
var trailingComma = regexp.MustCompile(`,\s*([}\]])`)

func stripTrailingCommas(s string) string {
	return trailingComma.ReplaceAllString(s, `$1`)
}

// escapeRawNewlines replaces raw newlines that occur inside string
// literals with the escaped form. The scan honors backslash escapes so
// already-escaped sequences are untouched.
func escapeRawNewlines(s string) string {
	var (
		b        strings.Builder
		inString bool
		escaped  bool
	)
	b.Grow(len(s))

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			case c == '\n':
				b.WriteString(`\n`)
				continue
			case c == '\r':
				continue
			}
		} else if c == '"' {
			inString = true
		}
		b.WriteByte(c)
	}
	return b.String()
}

func stripNullBytes(s string) string {
	return strings.ReplaceAll(s, "\x00", "")
}

// danglingKey matches a trailing object key with no value, as left
// behind when input is cut between a key and its colon.
var danglingKey = regexp.MustCompile(`,\s*"(?:[^"\\]|\\.)*"\s*:?\s*$`)

// trimOpenString handles a string value left open at end-of-input by
// trimming back to the last closing quote and re-balancing what remains.
func trimOpenString(s string) string {
	last := strings.LastIndexByte(s, '"')
	if last < 0 {
		return s
	}
	trimmed := strings.TrimRight(s[:last+1], " \t\n\r")

	ext := ExtractObject(trimmed)
	if ext.State == StateNotFound {
		return s
	}
	out := ext.Completed()

	if _, err := Decode(out); err != nil {
		// The last quote may close a key rather than a value; dropping
		// the dangling key is the only remaining option.
		if stripped := danglingKey.ReplaceAllString(trimmed, ""); stripped != trimmed {
			if ext2 := ExtractObject(stripped); ext2.State != StateNotFound {
				return ext2.Completed()
			}
		}
	}
	return out
}
