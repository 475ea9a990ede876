// Package jsonx recovers structured JSON documents from raw model output.
//
// Model output may surround the JSON object with narration, truncate it
// mid-token, or damage it with malformed escapes. The extractor locates
// the first balanced object and, when the stream was cut off, reports
// enough scan state to synthesize a closing suffix. The sanitizer then
// applies an ordered list of textual repairs until the candidate decodes.
package jsonx

import "strings"

// ScanState classifies the result of an object scan.
type ScanState int

const (
	// StateNotFound means no opening brace was present.
	StateNotFound ScanState = iota
	// StateComplete means a balanced object was found.
	StateComplete
	// StatePartial means the input ended inside the object.
	StatePartial
)

// Extraction is the result of scanning raw text for a JSON object.
type Extraction struct {
	State ScanState

	// Raw is the object slice as found, unterminated when State is StatePartial.
	Raw string

	// InString reports whether the scan ended inside a quoted string.
	InString bool

	// OpenDepth is the number of unclosed braces at end of input.
	OpenDepth int

	// closers holds the closing delimiters still owed, innermost last.
	closers []byte
}

// ExtractObject scans text for the first JSON object. The scan is
// string-aware: quotes and backslash escapes are honored, and nesting
// depth only changes outside string literals. It never fails; absent
// input yields StateNotFound.
func ExtractObject(text string) Extraction {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return Extraction{State: StateNotFound}
	}

	var (
		inString bool
		escaped  bool
		closers  []byte
	)

	for i := start; i < len(text); i++ {
		c := text[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			closers = append(closers, '}')
		case '[':
			closers = append(closers, ']')
		case '}', ']':
			if n := len(closers); n > 0 && closers[n-1] == c {
				closers = closers[:n-1]
			}
			if len(closers) == 0 {
				return Extraction{State: StateComplete, Raw: text[start : i+1]}
			}
		}
	}

	depth := 0
	for _, c := range closers {
		if c == '}' {
			depth++
		}
	}

	return Extraction{
		State:     StatePartial,
		Raw:       text[start:],
		InString:  inString,
		OpenDepth: depth,
		closers:   closers,
	}
}

// Completed returns the extracted slice with a synthesized closing
// suffix: one closing quote if a string was open, then the owed closing
// delimiters from innermost out. For a complete extraction it returns
// Raw unchanged.
func (e Extraction) Completed() string {
	if e.State != StatePartial {
		return e.Raw
	}

	var b strings.Builder
	b.Grow(len(e.Raw) + len(e.closers) + 1)
	b.WriteString(e.Raw)
	if e.InString {
		b.WriteByte('"')
	}
	for i := len(e.closers) - 1; i >= 0; i-- {
		b.WriteByte(e.closers[i])
	}
	return b.String()
}
