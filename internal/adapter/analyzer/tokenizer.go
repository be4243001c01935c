package analyzer

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"podcast/internal/domain"
)

// Tokenizer splits text into sentences of flagged tokens.
type Tokenizer struct {
	lemmatizer *Lemmatizer
	stopwords  map[string]struct{}
}

// NewTokenizer creates a new Tokenizer.
func NewTokenizer() *Tokenizer {
	return &Tokenizer{
		lemmatizer: NewLemmatizer(),
		stopwords:  defaultStopwords(),
	}
}

// Sentences normalizes text (NFKC) and splits it into sentences. Word tokens
// carry a lower-cased lemma and a stopword flag; every other non-space rune
// becomes its own punctuation token. Sentences end after '.', '!' or '?'.
func (t *Tokenizer) Sentences(text string) [][]domain.Token {
	text = norm.NFKC.String(text)

	var (
		sentences [][]domain.Token
		current   []domain.Token
		word      strings.Builder
	)

	flushWord := func() {
		if word.Len() == 0 {
			return
		}
		current = append(current, t.wordToken(word.String()))
		word.Reset()
	}
	flushSentence := func() {
		if len(current) > 0 {
			sentences = append(sentences, current)
			current = nil
		}
	}

	runes := []rune(text)
	for i, r := range runes {
		switch {
		case isWordRune(r):
			word.WriteRune(r)
		case r == '\'' && word.Len() > 0 && i+1 < len(runes) && unicode.IsLetter(runes[i+1]):
			// contraction: keep "don't" as one word
			word.WriteRune(r)
		case r == '.' && word.Len() > 0 && unicode.IsDigit(runes[i-1]) && i+1 < len(runes) && unicode.IsDigit(runes[i+1]):
			// decimal point
			word.WriteRune(r)
		case unicode.IsSpace(r):
			flushWord()
		default:
			flushWord()
			current = append(current, domain.Token{Text: string(r), IsPunct: true})
			if r == '.' || r == '!' || r == '?' {
				flushSentence()
			}
		}
	}
	flushWord()
	flushSentence()

	return sentences
}

func (t *Tokenizer) wordToken(w string) domain.Token {
	lower := strings.ToLower(w)
	_, stop := t.stopwords[lower]
	if len([]rune(lower)) < 2 {
		stop = true
	}
	return domain.Token{
		Text:   w,
		Lemma:  t.lemmatizer.Lemma(lower),
		IsStop: stop,
	}
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

// defaultStopwords returns a set of common English stopwords.
func defaultStopwords() map[string]struct{} {
	stops := []string{
		"a", "an", "and", "are", "as", "at", "be", "by", "for",
		"from", "has", "he", "in", "is", "it", "its", "of", "on",
		"that", "the", "to", "was", "were", "will", "with", "this",
		"have", "had", "but", "not", "you", "your", "we", "our",
		"they", "their", "she", "her", "his", "if", "or", "so",
		"no", "can", "do", "does", "did", "been", "being", "would",
		"could", "should", "may", "might", "must", "shall", "which",
		"who", "whom", "what", "when", "where", "why", "how", "all",
		"each", "every", "both", "few", "more", "most", "other",
		"some", "such", "than", "too", "very", "just", "also",
		"i", "me", "my", "us", "him", "them", "these", "those",
		"there", "here", "then", "now", "about", "into", "over",
		"again", "up", "down", "out", "off", "am", "yeah", "like",
		"really", "know", "think", "going", "gonna", "get", "got",
		"lot", "kind", "sort", "thing", "things", "okay", "ok",
		"don't", "it's", "that's", "i'm", "you're", "we're", "they're",
	}
	m := make(map[string]struct{}, len(stops))
	for _, s := range stops {
		m[s] = struct{}{}
	}
	return m
}
