package model

import (
	"regexp"
	"sort"
	"strings"
)

// A tag must start the text or follow a separator, so "a#b" and "example.com/#top" carry
// no tags.
var hashtagRE = regexp.MustCompile(`(?:^|[^\p{L}\p{N}_/&#-])#([\p{L}\p{N}_-]+)`)

// ParseTags extracts #hashtags from text: case-folded, de-duplicated, sorted.
func ParseTags(text string) []string {
	matches := hashtagRE.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return []string{}
	}
	seen := map[string]bool{}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		tag := strings.ToLower(m[1])
		if seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

// SameTags compares two tag sets ignoring order.
func SameTags(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]int, len(a))
	for _, t := range a {
		set[t]++
	}
	for _, t := range b {
		if set[t] == 0 {
			return false
		}
		set[t]--
	}
	return true
}
