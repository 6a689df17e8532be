package advisor

import (
	"strings"

	"velaris/internal/domain"
)

// ExtractCoinMentions returns the coins from listing that the text names by
// ticker or by name. Results keep listing order and are deduplicated.
func ExtractCoinMentions(text string, listing []domain.Coin) []domain.Coin {
	upper := strings.ToUpper(text)
	lower := strings.ToLower(text)
	words := strings.FieldsFunc(upper, func(r rune) bool {
		return !((r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'))
	})
	tickers := make(map[string]bool, len(words))
	for _, w := range words {
		tickers[w] = true
	}

	seen := make(map[string]bool)
	var result []domain.Coin
	for _, c := range listing {
		if seen[c.ID] {
			continue
		}
		sym := strings.ToUpper(c.Symbol)
		name := strings.ToLower(c.Name)
		// one and two letter tickers collide with ordinary words
		byTicker := len(sym) >= 3 && tickers[sym]
		byName := len(name) >= 3 && containsWord(lower, name)
		if byTicker || byName {
			seen[c.ID] = true
			result = append(result, c)
		}
	}
	return result
}

func containsWord(text, phrase string) bool {
	for i := 0; ; {
		j := strings.Index(text[i:], phrase)
		if j < 0 {
			return false
		}
		start := i + j
		end := start + len(phrase)
		if (start == 0 || !isWordByte(text[start-1])) && (end == len(text) || !isWordByte(text[end])) {
			return true
		}
		i = start + 1
	}
}

func isWordByte(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}
