package tokenizer

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/bbalet/stopwords"

	apperrors "github.com/Adithya-Monish-Kumar-K/fts/pkg/errors"
)

// SimpleLanguage disables language-specific processing: no stop words and no
// stemming.
const SimpleLanguage = "simple"

// libraryLanguages are the ISO 639-1 codes bbalet/stopwords ships lists for.
var libraryLanguages = map[string]bool{
	"ar": true, "bg": true, "cs": true, "da": true, "de": true, "el": true,
	"en": true, "es": true, "fa": true, "fi": true, "fr": true, "hu": true,
	"hy": true, "id": true, "it": true, "ja": true, "km": true, "lv": true,
	"nl": true, "no": true, "pl": true, "pt": true, "ro": true, "ru": true,
	"sk": true, "sv": true, "th": true, "tr": true,
}

// Stopwords decides whether a normalized token is noise for one language.
// The zero value knows no stop words.
type Stopwords struct {
	// lang selects the library list; empty means none.
	lang  string
	extra map[string]struct{}
}

// Contains reports whether word is a stop word. Only purely alphabetic
// tokens are checked against the library list, since the library strips
// digits and punctuation before matching.
func (s Stopwords) Contains(word string) bool {
	if _, ok := s.extra[word]; ok {
		return true
	}
	if s.lang == "" || !isAlphabetic(word) {
		return false
	}
	return strings.TrimSpace(stopwords.CleanString(word, s.lang, false)) == ""
}

// IsEmpty reports whether the set can never match.
func (s Stopwords) IsEmpty() bool {
	return s.lang == "" && len(s.extra) == 0
}

func isAlphabetic(word string) bool {
	if word == "" {
		return false
	}
	for _, r := range word {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// StopwordTable maps language codes to stop-word sets: the library lists plus
// extra words from configuration.
type StopwordTable struct {
	extra    map[string]map[string]struct{}
	fallback string
}

// NewStopwordTable builds a table over the library lists plus extra words per
// language. Extra words for a language the library lacks make that language
// known. fallback, when not empty, names the set used for unknown languages
// and must be known.
func NewStopwordTable(extra map[string][]string, fallback string) (*StopwordTable, error) {
	t := &StopwordTable{extra: make(map[string]map[string]struct{}, len(extra))}
	for lang, words := range extra {
		t.add(canonicalLanguage(lang), words)
	}
	if fallback != "" {
		fallback = canonicalLanguage(fallback)
		if !t.Knows(fallback) {
			return nil, fmt.Errorf("%w: fallback stop-word language %q has no table", apperrors.ErrConfiguration, fallback)
		}
		t.fallback = fallback
	}
	return t, nil
}

func (t *StopwordTable) add(lang string, words []string) {
	set, ok := t.extra[lang]
	if !ok {
		set = make(map[string]struct{}, len(words))
		t.extra[lang] = set
	}
	for _, w := range words {
		// tokens reach the filter folded
		if f := Fold(strings.TrimSpace(w)); f != "" {
			set[f] = struct{}{}
		}
	}
}

// Knows reports whether lang has its own stop-word set, ignoring the
// fallback.
func (t *StopwordTable) Knows(lang string) bool {
	code := canonicalLanguage(lang)
	if code == SimpleLanguage || libraryLanguages[code] {
		return true
	}
	_, ok := t.extra[code]
	return ok
}

// Lookup returns the stop words for lang, or the fallback set when lang is
// unknown and a fallback is configured.
func (t *StopwordTable) Lookup(lang string) (Stopwords, error) {
	code := canonicalLanguage(lang)
	if !t.Knows(code) {
		if t.fallback == "" {
			return Stopwords{}, fmt.Errorf("%w: no stop-word table for %q", apperrors.ErrUnknownLanguage, lang)
		}
		code = t.fallback
	}
	s := Stopwords{extra: t.extra[code]}
	if libraryLanguages[code] {
		s.lang = code
	}
	return s, nil
}
