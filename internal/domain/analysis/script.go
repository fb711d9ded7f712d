package analysis

import (
	"regexp"
	"strings"
)

var (
	openFence  = regexp.MustCompile("^\\s*```[A-Za-z0-9_+.-]*\\s*$")
	closeFence = regexp.MustCompile("^\\s*```\\s*$")
)

// StripCodeFence removes a leading ```lang line and a trailing ``` line around a
// script. Anything between them is returned byte for byte. Prose before the opening
// fence is dropped too, but only when the fence is closed at the end.
func StripCodeFence(s string) string {
	lead := strings.TrimLeft(s, " \t\r\n")
	if i := strings.IndexByte(lead, '\n'); i >= 0 && openFence.MatchString(lead[:i]) {
		out, _ := stripClosingFence(lead[i+1:])
		return out
	}
	if body, ok := afterPreamble(lead); ok {
		return body
	}
	out, _ := stripClosingFence(s)
	return out
}

// afterPreamble finds the first fence line after some leading text and returns what it
// encloses, if a closing fence ends s.
func afterPreamble(s string) (string, bool) {
	for off := 0; off < len(s); {
		end := strings.IndexByte(s[off:], '\n')
		if end < 0 {
			return "", false
		}
		if openFence.MatchString(s[off : off+end]) {
			return stripClosingFence(s[off+end+1:])
		}
		off += end + 1
	}
	return "", false
}

func stripClosingFence(s string) (string, bool) {
	trimmed := strings.TrimRight(s, " \t\r\n")
	j := strings.LastIndexByte(trimmed, '\n')
	if !closeFence.MatchString(trimmed[j+1:]) {
		return s, false
	}
	if j < 0 {
		return "", true
	}
	return strings.TrimSuffix(trimmed[:j], "\r"), true
}
