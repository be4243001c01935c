package analyzer

import "strings"

// Lemmatizer reduces inflected English words to an approximate dictionary
// form. It only undoes inflection (plurals, -ed, -ing) and a short list of
// irregular forms; derivational suffixes are left alone, so the result stays
// a readable word.
type Lemmatizer struct {
	irregular map[string]string
}

// NewLemmatizer creates a new Lemmatizer.
func NewLemmatizer() *Lemmatizer {
	return &Lemmatizer{irregular: irregularForms()}
}

// Lemma returns the lemma of a lower-cased word.
func (l *Lemmatizer) Lemma(word string) string {
	if lemma, ok := l.irregular[word]; ok {
		return lemma
	}
	if len(word) <= 3 || !isASCIIWord(word) {
		return word
	}

	switch {
	case strings.HasSuffix(word, "ies") && len(word) > 4:
		return word[:len(word)-3] + "y"
	case strings.HasSuffix(word, "ied") && len(word) > 4:
		return word[:len(word)-3] + "y"
	case strings.HasSuffix(word, "ing") && len(word) > 5:
		return restoreStem(word[:len(word)-3], word)
	case strings.HasSuffix(word, "ed") && len(word) > 4:
		if strings.HasSuffix(word, "eed") {
			return word[:len(word)-1]
		}
		return restoreStem(word[:len(word)-2], word)
	case strings.HasSuffix(word, "sses"),
		strings.HasSuffix(word, "ches"),
		strings.HasSuffix(word, "shes"),
		strings.HasSuffix(word, "xes"),
		strings.HasSuffix(word, "zes"):
		return word[:len(word)-2]
	case strings.HasSuffix(word, "ss"),
		strings.HasSuffix(word, "us"),
		strings.HasSuffix(word, "is"):
		return word
	case strings.HasSuffix(word, "s"):
		return word[:len(word)-1]
	}
	return word
}

// restoreStem repairs a stem left by stripping -ed or -ing: it undoes a
// doubled final consonant and puts back a silent 'e' where the remaining
// stem needs one. orig is returned when the stem has no vowel ("spring").
func restoreStem(stem, orig string) string {
	if !hasVowel(stem) {
		return orig
	}
	if endsDoubleConsonant(stem) {
		switch stem[len(stem)-1] {
		case 'l', 's', 'z':
			return stem
		}
		return stem[:len(stem)-1]
	}
	for _, suffix := range []string{"at", "bl", "iz", "v", "c", "rg", "dg"} {
		if strings.HasSuffix(stem, suffix) {
			return stem + "e"
		}
	}
	if measure(stem) == 1 && endsCVC(stem) {
		return stem + "e"
	}
	return stem
}

func isASCIIWord(word string) bool {
	for i := 0; i < len(word); i++ {
		if word[i] < 'a' || word[i] > 'z' {
			return false
		}
	}
	return true
}

func isConsonant(word string, i int) bool {
	switch word[i] {
	case 'a', 'e', 'i', 'o', 'u':
		return false
	case 'y':
		if i == 0 {
			return true
		}
		return !isConsonant(word, i-1)
	}
	return true
}

// measure counts vowel-consonant sequences in word.
func measure(word string) int {
	n := len(word)
	m := 0
	i := 0

	for i < n && isConsonant(word, i) {
		i++
	}
	for i < n {
		for i < n && !isConsonant(word, i) {
			i++
		}
		if i >= n {
			break
		}
		m++
		for i < n && isConsonant(word, i) {
			i++
		}
	}
	return m
}

func hasVowel(word string) bool {
	for i := 0; i < len(word); i++ {
		if !isConsonant(word, i) {
			return true
		}
	}
	return false
}

func endsDoubleConsonant(word string) bool {
	n := len(word)
	if n < 2 {
		return false
	}
	return word[n-1] == word[n-2] && isConsonant(word, n-1)
}

func endsCVC(word string) bool {
	n := len(word)
	if n < 3 {
		return false
	}
	if !isConsonant(word, n-3) || isConsonant(word, n-2) || !isConsonant(word, n-1) {
		return false
	}
	c := word[n-1]
	return c != 'w' && c != 'x' && c != 'y'
}

func irregularForms() map[string]string {
	return map[string]string{
		"is": "be", "are": "be", "was": "be", "were": "be", "been": "be", "am": "be",
		"has": "have", "had": "have", "does": "do", "did": "do", "done": "do",
		"went": "go", "gone": "go", "made": "make", "said": "say", "took": "take",
		"taken": "take", "got": "get", "gotten": "get", "grew": "grow", "grown": "grow",
		"saw": "see", "seen": "see", "knew": "know", "known": "know", "thought": "think",
		"bought": "buy", "brought": "bring", "built": "build", "sold": "sell",
		"paid": "pay", "spent": "spend", "lost": "lose", "won": "win", "ran": "run",
		"began": "begin", "begun": "begin", "rose": "rise", "risen": "rise", "fell": "fall",
		"fallen": "fall", "children": "child", "people": "person", "men": "man",
		"women": "woman", "mice": "mouse", "feet": "foot", "teeth": "tooth",
		"better": "good", "best": "good", "worse": "bad", "worst": "bad",
		"news": "news", "data": "data", "series": "series", "species": "species",
		"during": "during", "morning": "morning", "evening": "evening", "nothing": "nothing",
		"something": "something", "anything": "anything", "everything": "everything",
	}
}
