// Package summarizer picks the most representative sentences of a transcript
// without calling a model.
package summarizer

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

var (
	tokenRe    = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
	sentenceRe = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)
)

// Extractive ranks sentences by the normalized frequency of their content
// words. Call pleasantries and operator lines are treated as stopwords so
// highlights favour figures and guidance.
type Extractive struct {
	stopwords map[string]struct{}
	minWords  int
}

func NewExtractive() *Extractive {
	return &Extractive{stopwords: defaultStopwords(), minWords: 5}
}

// Highlights returns up to n sentences in their original order.
func (s *Extractive) Highlights(text string, n int) []string {
	if n <= 0 {
		n = 2
	}
	var sentences []string
	for _, sent := range sentenceRe.FindAllString(text, -1) {
		sent = strings.Join(strings.Fields(sent), " ")
		if len(tokenRe.FindAllString(sent, -1)) >= s.minWords {
			sentences = append(sentences, sent)
		}
	}
	if len(sentences) == 0 {
		if t := strings.TrimSpace(text); t != "" {
			return []string{t}
		}
		return nil
	}

	freq := map[string]float64{}
	maxF := 0.0
	for _, sent := range sentences {
		for _, tok := range s.contentTokens(sent) {
			freq[tok]++
			maxF = math.Max(maxF, freq[tok])
		}
	}

	type scored struct {
		idx   int
		score float64
	}
	ranked := make([]scored, len(sentences))
	for i, sent := range sentences {
		toks := s.contentTokens(sent)
		var sum float64
		for _, tok := range toks {
			sum += freq[tok] / maxF
		}
		if len(toks) > 0 {
			sum /= math.Sqrt(float64(len(toks)))
		}
		ranked[i] = scored{i, sum}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	if n > len(ranked) {
		n = len(ranked)
	}
	picked := make([]int, n)
	for i := range picked {
		picked[i] = ranked[i].idx
	}
	sort.Ints(picked)
	out := make([]string, n)
	for i, idx := range picked {
		out[i] = sentences[idx]
	}
	return out
}

func (s *Extractive) contentTokens(sentence string) []string {
	all := tokenRe.FindAllString(strings.ToLower(sentence), -1)
	out := all[:0]
	for _, t := range all {
		if _, stop := s.stopwords[t]; !stop {
			out = append(out, t)
		}
	}
	return out
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "for", "to", "of", "in", "on", "at", "by", "with",
		"as", "is", "are", "was", "were", "be", "been", "it", "this", "that", "these", "those", "from", "so",
		"we", "our", "us", "you", "your", "i", "they", "their", "have", "has", "had", "will", "would", "can",
		"just", "very", "about", "into", "than", "also", "more", "all", "not", "do", "did",
		"thank", "thanks", "operator", "question", "questions", "call", "good", "morning", "afternoon",
		"everyone", "welcome", "please", "next", "line", "go", "ahead",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
