package provider

import (
	"sort"
	"strings"
	"time"
	"unicode"
)

// Headline is a news or community post title used as sentiment input.
type Headline struct {
	Source      string    `json:"source"`
	Title       string    `json:"title"`
	URL         string    `json:"url,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

// MentioningCoin keeps headlines that name the coin or its ticker, newest
// first, at most limit of them. Duplicate titles are dropped.
func MentioningCoin(items []Headline, name, symbol string, limit int) []Headline {
	name = strings.ToLower(strings.TrimSpace(name))
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	sorted := make([]Headline, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].PublishedAt.After(sorted[j].PublishedAt) })

	seen := make(map[string]bool)
	out := make([]Headline, 0)
	for _, h := range sorted {
		key := strings.ToLower(h.Title)
		if seen[key] {
			continue
		}
		if !mentions(h.Title, name, symbol) {
			continue
		}
		seen[key] = true
		out = append(out, h)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

func mentions(title, name, symbol string) bool {
	if name != "" && strings.Contains(strings.ToLower(title), name) {
		return true
	}
	if symbol == "" {
		return false
	}
	words := strings.FieldsFunc(title, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '$'
	})
	for _, w := range words {
		if strings.TrimPrefix(w, "$") == symbol {
			return true
		}
	}
	return false
}

func sanitizeText(in string, maxLen int) string {
	in = strings.Join(strings.Fields(in), " ")
	if maxLen > 0 && len(in) > maxLen {
		in = in[:maxLen]
	}
	return in
}

func htmlStrip(in string) string {
	var b strings.Builder
	inside := false
	for _, r := range in {
		switch r {
		case '<':
			inside = true
			continue
		case '>':
			inside = false
			continue
		}
		if !inside {
			b.WriteRune(r)
		}
	}
	return b.String()
}
