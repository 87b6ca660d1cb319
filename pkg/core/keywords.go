package core

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// wordPattern accepts runs of Latin letters, digits, underscore, and CJK
// ideographs as word characters, so multi-byte scripts are not silently
// dropped during tokenization.
var wordPattern = regexp.MustCompile(`[a-zA-Z0-9_\p{Han}]+`)

// stopwords holds common English and Chinese function words excluded from
// the semantic index. Single-rune tokens are already excluded by the
// minimum-length rule.
var stopwords = map[string]struct{}{
	// English
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {},
	"in": {}, "on": {}, "at": {}, "to": {}, "for": {}, "of": {},
	"with": {}, "by": {}, "from": {}, "as": {}, "is": {}, "are": {},
	"was": {}, "were": {}, "be": {}, "been": {}, "being": {},
	"have": {}, "has": {}, "had": {}, "do": {}, "does": {}, "did": {},
	"will": {}, "would": {}, "could": {}, "should": {}, "can": {},
	"may": {}, "might": {}, "must": {}, "shall": {},
	"this": {}, "that": {}, "these": {}, "those": {},
	"it": {}, "its": {}, "we": {}, "you": {}, "they": {}, "he": {},
	"she": {}, "his": {}, "her": {}, "them": {}, "what": {}, "which": {},
	"who": {}, "how": {}, "when": {}, "where": {}, "why": {}, "not": {},
	"no": {}, "so": {}, "if": {}, "then": {}, "than": {}, "too": {},
	"very": {}, "just": {}, "about": {}, "into": {}, "over": {},
	"also": {}, "only": {}, "some": {}, "any": {}, "all": {}, "there": {},
	// Chinese
	"的": {}, "了": {}, "在": {}, "是": {}, "我": {}, "有": {},
	"和": {}, "就": {}, "不": {}, "人": {}, "都": {}, "一个": {},
	"上": {}, "也": {}, "很": {}, "到": {}, "说": {}, "要": {},
	"去": {}, "你": {}, "会": {}, "着": {}, "没有": {}, "看": {},
	"好": {}, "自己": {}, "这个": {}, "那个": {}, "我们": {},
	"他们": {}, "什么": {}, "怎么": {}, "可以": {}, "因为": {},
	"所以": {}, "但是": {}, "如果": {}, "这样": {}, "还是": {},
}

// ExtractKeywords tokenizes and filters text into the maxKeywords
// highest-frequency keywords, most frequent first.
//
// The text is lowercased and split on word boundaries; tokens shorter than
// two runes and tokens in the stopword set are discarded. Ties in frequency
// are broken by first-encountered order. The function has no side effects.
func ExtractKeywords(text string, maxKeywords int) []string {
	if text == "" || maxKeywords <= 0 {
		return nil
	}

	tokens := wordPattern.FindAllString(strings.ToLower(text), -1)

	type wordStat struct {
		word  string
		count int
		first int
	}

	stats := make(map[string]*wordStat)
	order := make([]*wordStat, 0, len(tokens))

	for _, tok := range tokens {
		if utf8.RuneCountInString(tok) < 2 {
			continue
		}
		if _, stop := stopwords[tok]; stop {
			continue
		}
		if s, ok := stats[tok]; ok {
			s.count++
			continue
		}
		s := &wordStat{word: tok, count: 1, first: len(order)}
		stats[tok] = s
		order = append(order, s)
	}

	sort.SliceStable(order, func(i, j int) bool {
		if order[i].count != order[j].count {
			return order[i].count > order[j].count
		}
		return order[i].first < order[j].first
	})

	if len(order) > maxKeywords {
		order = order[:maxKeywords]
	}

	keywords := make([]string, len(order))
	for i, s := range order {
		keywords[i] = s.word
	}
	return keywords
}

// keywordWeight is the semantic-search weight of a query keyword: longer
// keywords are rarer and carry more signal.
func keywordWeight(keyword string) float64 {
	return float64(utf8.RuneCountInString(keyword) + 1)
}
