package tui

import (
	"regexp"
	"strings"
	"unicode"
)

// Figures and tickers carry most of the signal in a transcript passage, so
// they outweigh ordinary words when picking the sentence to emphasize.
const (
	weightWord   = 1
	weightSymbol = 2
	weightFigure = 3
)

var termRe = regexp.MustCompile(`\$?\d+(?:[.,]\d+)*%?|\p{L}+(?:['’]\p{L}+)*`)

var fillerWords = map[string]bool{
	"a": true, "about": true, "an": true, "and": true, "are": true, "did": true,
	"do": true, "does": true, "for": true, "how": true, "in": true, "is": true,
	"it": true, "its": true, "of": true, "on": true, "the": true, "their": true,
	"to": true, "was": true, "were": true, "what": true, "which": true, "with": true,
}

// spotlight renders passage with the sentence that best matches the queries
// emphasized. Nothing is emphasized when no sentence shares a term.
func spotlight(passage string, queries ...string) string {
	sentences := splitSentences(passage)
	if len(sentences) == 0 {
		return strings.TrimSpace(passage)
	}
	if i := bestSentence(sentences, queryTerms(queries...)); i >= 0 {
		sentences[i] = highlightStyle.Render(sentences[i])
	}
	return strings.Join(sentences, " ")
}

// splitSentences breaks on terminal punctuation followed by whitespace, so
// decimals like 3.5% or $1.2 stay inside their sentence.
func splitSentences(s string) []string {
	var out []string
	rs := []rune(s)
	start := 0
	for i, r := range rs {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i+1 < len(rs) && !unicode.IsSpace(rs[i+1]) {
			continue
		}
		if t := strings.TrimSpace(string(rs[start : i+1])); t != "" {
			out = append(out, t)
		}
		start = i + 1
	}
	if t := strings.TrimSpace(string(rs[start:])); t != "" {
		out = append(out, t)
	}
	return out
}

// queryTerms maps each lowercased query term to its weight.
func queryTerms(queries ...string) map[string]int {
	terms := make(map[string]int)
	for _, q := range queries {
		for _, tok := range termRe.FindAllString(q, -1) {
			key := strings.ToLower(tok)
			if fillerWords[key] {
				continue
			}
			if w := termWeight(tok); w > terms[key] {
				terms[key] = w
			}
		}
	}
	return terms
}

func termWeight(tok string) int {
	switch {
	case isFigure(tok):
		return weightFigure
	case len(tok) >= 2 && strings.ToUpper(tok) == tok:
		return weightSymbol
	default:
		return weightWord
	}
}

func isFigure(tok string) bool {
	t := strings.TrimPrefix(tok, "$")
	return t != "" && t[0] >= '0' && t[0] <= '9'
}

// bestSentence returns the index of the highest scoring sentence, or -1 when
// none matches. Ties go to the sentence quoting more figures, then the
// earlier one.
func bestSentence(sentences []string, terms map[string]int) int {
	if len(terms) == 0 {
		return -1
	}
	best, bestScore, bestFigures := -1, 0, 0
	for i, s := range sentences {
		score, figures := scoreSentence(s, terms)
		if score == 0 {
			continue
		}
		if score > bestScore || (score == bestScore && figures > bestFigures) {
			best, bestScore, bestFigures = i, score, figures
		}
	}
	return best
}

// scoreSentence sums the weights of distinct query terms found in s and
// counts the figures it quotes.
func scoreSentence(s string, terms map[string]int) (score, figures int) {
	seen := make(map[string]bool)
	for _, tok := range termRe.FindAllString(s, -1) {
		if isFigure(tok) {
			figures++
		}
		key := strings.ToLower(tok)
		if seen[key] {
			continue
		}
		seen[key] = true
		score += terms[key]
	}
	return score, figures
}
