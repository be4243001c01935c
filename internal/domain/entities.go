package domain

import "time"

// Token is one word of a ranked phrase, with the flags keyword
// derivation needs.
type Token struct {
	Text    string
	Lemma   string
	IsStop  bool
	IsPunct bool
}

// Phrase is a ranked key phrase produced by a PhraseRanker.
type Phrase struct {
	Text   string
	Rank   float64
	Tokens []Token
}

// Extraction is the result of lesson/keyword extraction for one transcript.
type Extraction struct {
	Lessons  []string `json:"lessons"`
	Keywords []string `json:"keywords"`
}

// FeedItem is a new, unprocessed entry found in a source feed.
type FeedItem struct {
	GUID      string
	Title     string
	AudioURL  string
	Published time.Time
}

// Episode is a processed episode as recorded in the episode store.
type Episode struct {
	Number         int       `json:"number"`
	GUID           string    `json:"guid"`
	Title          string    `json:"title"`
	SourceGUID     string    `json:"source_guid"`
	SourceURL      string    `json:"source_url"`
	AudioPath      string    `json:"audio_path"`
	TranscriptPath string    `json:"transcript_path"`
	Lessons        []string  `json:"lessons"`
	Keywords       []string  `json:"keywords"`
	Context        []string  `json:"context"`
	Script         string    `json:"script,omitempty"`
	ShowNotes      string    `json:"show_notes,omitempty"`
	PublishedAt    time.Time `json:"published_at"`
}

// Draft is the generated text of an episode. Empty fields were not
// generated.
type Draft struct {
	Title     string `json:"title"`
	Script    string `json:"script"`
	ShowNotes string `json:"show_notes"`
}

// Transcript is the output of a transcription step.
type Transcript struct {
	Path string
	Text string
}
