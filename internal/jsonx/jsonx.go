// Package jsonx pulls JSON objects out of free-form model output.
package jsonx

import (
	"errors"
	"strings"

	"github.com/tidwall/gjson"
)

var ErrNoObject = errors.New("no JSON object found")

// ExtractObject returns the first balanced, valid {...} block in s.
// Braces inside JSON strings are ignored.
func ExtractObject(s string) (string, error) {
	for start := strings.IndexByte(s, '{'); start >= 0; {
		if end := matchBrace(s, start); end > 0 {
			obj := s[start : end+1]
			if gjson.Valid(obj) {
				return obj, nil
			}
		}
		next := strings.IndexByte(s[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", ErrNoObject
}

// Span is the byte range [Start, End) of an object inside a larger string.
type Span struct {
	Start, End int
}

// FindObjectWithKey returns the last valid top-level object in s that has the
// given key.
func FindObjectWithKey(s, key string) (string, Span, bool) {
	var (
		found string
		span  Span
		ok    bool
	)
	for i := 0; i < len(s); i++ {
		if s[i] != '{' {
			continue
		}
		end := matchBrace(s, i)
		if end < 0 {
			continue
		}
		obj := s[i : end+1]
		if gjson.Valid(obj) && gjson.Get(obj, key).Exists() {
			found, span, ok = obj, Span{Start: i, End: end + 1}, true
			i = end
		}
	}
	return found, span, ok
}

func matchBrace(s string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
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
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
