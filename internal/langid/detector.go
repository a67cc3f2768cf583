package langid

import (
	"strings"
	"unicode"
)

// Languages the heuristic detector can score.
const (
	English = "en"
	Italian = "it"
	Spanish = "es"
	French  = "fr"
	German  = "de"
)

// Detector identifies the language of a piece of text.
//
// Implementations return an ISO 639-1 code and a confidence in [0, 1].
// An empty language means detection was unavailable for this text;
// callers treat that as "no opinion".
type Detector interface {
	Detect(text string) (language string, confidence float64)
}

// Noop is a Detector that never has an opinion.
type Noop struct{}

// Detect always reports detection unavailable.
func (Noop) Detect(string) (string, float64) { return "", 0 }

// Heuristic is a lightweight stop-word detector. It trades accuracy
// for zero moving parts: confidence is margin-based and deliberately
// modest, so only clearly slanted text crosses the validation
// threshold.
type Heuristic struct{}

// NewHeuristic returns a ready-to-use heuristic detector.
func NewHeuristic() *Heuristic {
	return &Heuristic{}
}

// Detect scores the text's stop words against each known language and
// returns the front runner. Ties break towards the earlier language in
// the scoring order, with zero confidence.
func (h *Heuristic) Detect(text string) (string, float64) {
	words := tokenise(text)
	if len(words) == 0 {
		return "", 0
	}

	hits := make(map[string]int, len(scoringOrder))
	for _, w := range words {
		for _, lang := range scoringOrder {
			if stopwords[lang][w] {
				hits[lang]++
			}
		}
	}

	var best string
	var bestHits, runnerUp int
	for _, lang := range scoringOrder {
		n := hits[lang]
		if n > bestHits {
			runnerUp = bestHits
			bestHits = n
			best = lang
		} else if n > runnerUp {
			runnerUp = n
		}
	}
	if bestHits == 0 {
		return "", 0
	}

	// Smoothed margin, so a couple of hits on a short utterance never
	// look like certainty.
	confidence := float64(bestHits-runnerUp) / float64(bestHits+runnerUp+1)
	return best, confidence
}

func tokenise(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
}

// scoringOrder fixes both iteration and tie-breaking.
var scoringOrder = []string{English, Italian, Spanish, French, German}

// Words genuinely shared between languages (que, de) appear in every
// set that uses them, so shared text credits all claimants equally
// rather than skewing towards one.
var stopwords = map[string]map[string]bool{
	English: wordSet(
		"the", "and", "was", "were", "are", "is", "has", "have", "had",
		"not", "this", "that", "with", "for", "they", "you", "what",
		"when", "which", "been",
	),
	Italian: wordSet(
		"il", "lo", "la", "gli", "che", "di", "non", "per", "una",
		"uno", "sono", "con", "della", "del", "questo", "questa",
		"come", "anche", "ma", "più",
	),
	Spanish: wordSet(
		"el", "los", "las", "que", "de", "no", "por", "para", "muy",
		"hay", "son", "esta", "este", "pero", "más", "porque",
		"cuando", "ella", "nosotros", "también",
	),
	French: wordSet(
		"le", "les", "des", "une", "est", "et", "que", "pas", "pour",
		"dans", "avec", "qui", "sur", "mais", "nous", "vous", "de",
		"ce", "cette", "être",
	),
	German: wordSet(
		"der", "die", "das", "und", "ist", "nicht", "ein", "eine",
		"mit", "für", "auf", "sind", "wir", "aber", "auch", "nach",
		"bei", "ich", "sie", "werden",
	),
}

func wordSet(words ...string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}
