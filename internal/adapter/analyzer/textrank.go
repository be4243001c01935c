package analyzer

import (
	"context"
	"math"
	"sort"
	"strings"
	"unicode"

	"podcast/internal/domain"
)

// TextRanker ranks key phrases with TextRank: words that are not stopwords
// become nodes of a co-occurrence graph keyed by lemma, PageRank scores the
// nodes, and each candidate phrase (a run of adjacent non-stop words) is
// ranked from the scores of its words.
type TextRanker struct {
	tokenizer  *Tokenizer
	window     int
	damping    float64
	iterations int
	epsilon    float64
	maxWords   int
}

// NewTextRanker creates a TextRanker with a co-occurrence window of 3,
// damping 0.85 and phrases of at most 4 words.
func NewTextRanker(tokenizer *Tokenizer) *TextRanker {
	if tokenizer == nil {
		tokenizer = NewTokenizer()
	}
	return &TextRanker{
		tokenizer:  tokenizer,
		window:     3,
		damping:    0.85,
		iterations: 30,
		epsilon:    1e-4,
		maxWords:   4,
	}
}

// Rank returns the candidate phrases of text in order of first occurrence.
// A phrase's rank is the square root of the mean score of its words.
func (r *TextRanker) Rank(ctx context.Context, text string) ([]domain.Phrase, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	sentences := r.tokenizer.Sentences(text)
	scores, err := r.scoreWords(ctx, sentences)
	if err != nil {
		return nil, err
	}

	var phrases []domain.Phrase
	seen := make(map[string]struct{})
	for _, sentence := range sentences {
		for _, run := range r.candidateRuns(sentence) {
			lemmas := make([]string, len(run))
			words := make([]string, len(run))
			var sum float64
			for i, tok := range run {
				lemmas[i] = tok.Lemma
				words[i] = tok.Text
				sum += scores[tok.Lemma]
			}

			key := strings.Join(lemmas, " ")
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}

			phrases = append(phrases, domain.Phrase{
				Text:   strings.Join(words, " "),
				Rank:   math.Sqrt(sum / float64(len(run))),
				Tokens: append([]domain.Token(nil), run...),
			})
		}
	}
	return phrases, nil
}

// scoreWords runs PageRank over the lemma co-occurrence graph.
func (r *TextRanker) scoreWords(ctx context.Context, sentences [][]domain.Token) (map[string]float64, error) {
	edges := make(map[string]map[string]float64)
	addEdge := func(a, b string) {
		if edges[a] == nil {
			edges[a] = make(map[string]float64)
		}
		edges[a][b]++
	}

	for _, sentence := range sentences {
		var lemmas []string
		for _, tok := range sentence {
			if isCandidate(tok) {
				lemmas = append(lemmas, tok.Lemma)
				if edges[tok.Lemma] == nil {
					edges[tok.Lemma] = make(map[string]float64)
				}
			}
		}
		for i := range lemmas {
			for j := i + 1; j < len(lemmas) && j < i+r.window; j++ {
				if lemmas[i] == lemmas[j] {
					continue
				}
				addEdge(lemmas[i], lemmas[j])
				addEdge(lemmas[j], lemmas[i])
			}
		}
	}

	nodes := make([]string, 0, len(edges))
	for n := range edges {
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)

	outWeight := make(map[string]float64, len(nodes))
	for _, n := range nodes {
		for _, w := range edges[n] {
			outWeight[n] += w
		}
	}

	scores := make(map[string]float64, len(nodes))
	for _, n := range nodes {
		scores[n] = 1
	}

	for iter := 0; iter < r.iterations; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		next := make(map[string]float64, len(nodes))
		var delta float64
		for _, n := range nodes {
			var rank float64
			for m, w := range edges[n] {
				rank += w / outWeight[m] * scores[m]
			}
			next[n] = (1 - r.damping) + r.damping*rank
			delta = math.Max(delta, math.Abs(next[n]-scores[n]))
		}
		scores = next
		if delta < r.epsilon {
			break
		}
	}
	return scores, nil
}

// candidateRuns splits a sentence into runs of adjacent candidate tokens,
// each at most maxWords long.
func (r *TextRanker) candidateRuns(sentence []domain.Token) [][]domain.Token {
	var runs [][]domain.Token
	var current []domain.Token
	flush := func() {
		for len(current) > 0 {
			n := len(current)
			if n > r.maxWords {
				n = r.maxWords
			}
			runs = append(runs, current[:n])
			current = current[n:]
		}
		current = nil
	}

	for _, tok := range sentence {
		if isCandidate(tok) {
			current = append(current, tok)
			continue
		}
		flush()
	}
	flush()
	return runs
}

// isCandidate reports whether tok can be part of a key phrase: a non-stop
// word containing at least one letter.
func isCandidate(tok domain.Token) bool {
	if tok.IsStop || tok.IsPunct || tok.Lemma == "" {
		return false
	}
	for _, r := range tok.Text {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
