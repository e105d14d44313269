package transcript

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	DefaultChunkMin = 300
	DefaultChunkMax = 1000
)

var sentenceEnd = regexp.MustCompile(`[.!?]+\s+`)

// Chunk splits text on sentence boundaries into pieces of at most maxLen
// characters. None is empty. When the last piece is shorter than minLen,
// trailing sentences of the previous piece are moved into it.
func Chunk(text string, minLen, maxLen int) []string {
	if maxLen <= 0 {
		maxLen = DefaultChunkMax
	}
	if minLen < 0 || minLen > maxLen {
		minLen = 0
	}
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return nil
	}

	var (
		groups [][]string
		cur    []string
	)
	for _, s := range sentences(text, maxLen) {
		if len(cur) > 0 && runes(append(cur, s)) > maxLen {
			groups = append(groups, cur)
			cur = nil
		}
		cur = append(cur, s)
	}
	groups = append(groups, cur)

	if n := len(groups); n > 1 {
		prev, last := groups[n-2], groups[n-1]
		for len(prev) > 1 && runes(last) < minLen {
			moved := append([]string{prev[len(prev)-1]}, last...)
			if runes(moved) > maxLen || runes(prev[:len(prev)-1]) < minLen {
				break
			}
			prev, last = prev[:len(prev)-1], moved
		}
		groups[n-2], groups[n-1] = prev, last
	}

	out := make([]string, len(groups))
	for i, g := range groups {
		out[i] = strings.Join(g, " ")
	}
	return out
}

func runes(sentences []string) int {
	n := len(sentences) - 1
	for _, s := range sentences {
		n += utf8.RuneCountInString(s)
	}
	return n
}

// sentences splits after terminal punctuation. Sentences longer than maxLen
// are cut at word boundaries.
func sentences(text string, maxLen int) []string {
	var out []string
	last := 0
	for _, loc := range sentenceEnd.FindAllStringIndex(text, -1) {
		out = append(out, splitLong(strings.TrimSpace(text[last:loc[1]]), maxLen)...)
		last = loc[1]
	}
	if rest := strings.TrimSpace(text[last:]); rest != "" {
		out = append(out, splitLong(rest, maxLen)...)
	}
	return out
}

func splitLong(s string, maxLen int) []string {
	if utf8.RuneCountInString(s) <= maxLen {
		return []string{s}
	}
	var (
		out []string
		cur string
	)
	for _, w := range strings.Fields(s) {
		for utf8.RuneCountInString(w) > maxLen {
			r := []rune(w)
			if cur != "" {
				out = append(out, cur)
				cur = ""
			}
			out = append(out, string(r[:maxLen]))
			w = string(r[maxLen:])
		}
		next := w
		if cur != "" {
			next = cur + " " + w
		}
		if utf8.RuneCountInString(next) > maxLen {
			out = append(out, cur)
			cur = w
			continue
		}
		cur = next
	}
	if cur != "" {
		out = append(out, cur)
	}
	return out
}
