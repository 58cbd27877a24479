// Package tokenizer turns field text and query strings into index tokens.
// The pipeline folds diacritics and case, splits on whitespace, removes the
// language's stop words, stems, and in full-index mode expands every token
// into its substrings.
package tokenizer

import (
	"sort"
)

// DefaultMaxTokenLength bounds substring expansion when Options leaves it
// unset.
const DefaultMaxTokenLength = 64

// Options selects the per-collection behavior of an Analyzer.
type Options struct {
	Language  string
	Stem      bool
	FullIndex bool
	// MinLength is the exclusive lower bound on substring length in
	// full-index mode.
	MinLength int
	// Tokens longer than MaxTokenLength runes are indexed as themselves
	// instead of being expanded.
	MaxTokenLength int
}

// Analyzer is the resolved pipeline for one collection. It is safe for
// concurrent use.
type Analyzer struct {
	opts    Options
	stop    Stopwords
	stemmer Stemmer
}

// NewAnalyzer resolves the stop words and stemmer for opts.Language. It fails
// with ErrUnknownLanguage when either table lacks the language. A disabled
// stemmer is replaced by Identity without consulting stems.
func NewAnalyzer(stops *StopwordTable, stems StemmerTable, opts Options) (*Analyzer, error) {
	stop, err := stops.Lookup(opts.Language)
	if err != nil {
		return nil, err
	}
	var stemmer Stemmer = Identity{}
	if opts.Stem {
		stemmer, err = stems.Lookup(opts.Language)
		if err != nil {
			return nil, err
		}
	}
	if opts.MaxTokenLength <= 0 {
		opts.MaxTokenLength = DefaultMaxTokenLength
	}
	return &Analyzer{opts: opts, stop: stop, stemmer: stemmer}, nil
}

func (a *Analyzer) Options() Options {
	return a.opts
}

// terms runs normalization, stop-word removal and stemming, deduplicated.
func (a *Analyzer) terms(text string) []string {
	words := Normalize(text)
	out := words[:0]
	seen := make(map[string]struct{}, len(words))
	for _, w := range words {
		if a.stop.Contains(w) {
			continue
		}
		stemmed := a.stemmer.Stem(w)
		if stemmed == "" {
			continue
		}
		if _, dup := seen[stemmed]; dup {
			continue
		}
		seen[stemmed] = struct{}{}
		out = append(out, stemmed)
	}
	return out
}

// IndexTokens returns the distinct tokens stored for text.
func (a *Analyzer) IndexTokens(text string) []string {
	terms := a.terms(text)
	if !a.opts.FullIndex {
		return terms
	}
	out := make([]string, 0, len(terms)*4)
	seen := make(map[string]struct{}, cap(out))
	emit := func(s string) {
		if _, dup := seen[s]; !dup {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	for _, term := range terms {
		if len([]rune(term)) > a.opts.MaxTokenLength {
			emit(term)
			continue
		}
		for _, sub := range Substrings(term, a.opts.MinLength) {
			emit(sub)
		}
	}
	return out
}

// QueryTokens returns the distinct, sorted token set of a query. Queries are
// never expanded into substrings.
func (a *Analyzer) QueryTokens(text string) []string {
	terms := a.terms(text)
	sort.Strings(terms)
	return terms
}
