// Package summarizer picks the passages that best represent a corpus, for the
// overview printed after indexing.
package summarizer

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

var tokenRe = regexp.MustCompile(`[\p{L}\p{N}]+(?:['’][\p{L}\p{N}]+)*`)

// Representative returns the positions of up to n passages whose words are
// most frequent across the corpus, in corpus order. Blank passages are never
// chosen.
func Representative(passages []string, n int) []int {
	if n <= 0 {
		return nil
	}
	stop := stopwords()
	tokens := make([][]string, len(passages))
	freq := map[string]float64{}
	for i, p := range passages {
		for _, tok := range tokenRe.FindAllString(strings.ToLower(p), -1) {
			if _, ok := stop[tok]; ok {
				continue
			}
			tokens[i] = append(tokens[i], tok)
			freq[tok]++
		}
	}

	maxF := 0.0
	for _, v := range freq {
		maxF = math.Max(maxF, v)
	}

	type scored struct {
		pos   int
		score float64
	}
	var ranked []scored
	for i, toks := range tokens {
		if len(toks) == 0 {
			continue
		}
		s := 0.0
		for _, tok := range toks {
			s += freq[tok] / maxF
		}
		// long passages would otherwise always win
		ranked = append(ranked, scored{i, s / math.Sqrt(float64(len(toks)))})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	if n > len(ranked) {
		n = len(ranked)
	}
	out := make([]int, n)
	for i := range out {
		out[i] = ranked[i].pos
	}
	sort.Ints(out)
	return out
}

func stopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with",
		"as", "is", "are", "was", "were", "be", "been", "being", "it", "its", "this", "that", "these", "those", "from",
		"up", "down", "over", "under", "so", "such", "into", "about", "than", "can", "will", "just", "should", "now",
		"he", "she", "they", "them", "their", "his", "her", "we", "our", "you", "your", "i", "me", "my",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
