package search

import (
	"strings"
	"unicode"
)

const (
	latinThreshold       = 0.5  // majority of letters must be Latin script
	englishStopwordMin   = 1    // at least one stopword for long texts
	englishStopwordRatio = 0.08 // or 8% of words for short texts
	shortTextWordCount   = 6
)

var englishStopwords = map[string]struct{}{
	"the": {}, "and": {}, "of": {}, "to": {}, "in": {}, "is": {}, "for": {}, "on": {}, "with": {},
	"as": {}, "by": {}, "from": {}, "at": {}, "that": {}, "this": {}, "be": {}, "are": {}, "was": {},
	"were": {}, "has": {}, "have": {}, "will": {}, "its": {}, "it": {}, "a": {}, "an": {},
}

// isEnglish reports whether a result description looks like English prose.
// Crowd raters are English speakers, so results they cannot read only add
// noise to the judgments. Very short texts pass on script alone since
// stopword evidence is too thin to demand.
func isEnglish(text string) bool {
	if text == "" {
		return false
	}

	var latin, letters int

	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}

		letters++

		if unicode.Is(unicode.Latin, r) {
			latin++
		}
	}

	if letters == 0 || float64(latin)/float64(letters) < latinThreshold {
		return false
	}

	words := strings.Fields(strings.ToLower(text))
	if len(words) <= shortTextWordCount {
		return true
	}

	stopwords := 0

	for _, w := range words {
		if _, ok := englishStopwords[strings.Trim(w, ".,;:!?()\"'")]; ok {
			stopwords++
		}
	}

	return stopwords >= englishStopwordMin &&
		float64(stopwords)/float64(len(words)) >= englishStopwordRatio
}
