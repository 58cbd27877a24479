package tokenizer

import (
	"fmt"
	"strings"

	porterstemmer "github.com/blevesearch/go-porterstemmer"
	"github.com/kljensen/snowball"

	apperrors "github.com/Adithya-Monish-Kumar-K/fts/pkg/errors"
)

// Stemmer reduces a normalized token to its stem. Implementations are pure
// and total; Stem("") returns "".
type Stemmer interface {
	Stem(word string) string
}

// StemmerFunc adapts a function to Stemmer.
type StemmerFunc func(string) string

func (f StemmerFunc) Stem(word string) string {
	if word == "" {
		return ""
	}
	return f(word)
}

// Identity is the stemmer used when stemming is disabled.
type Identity struct{}

func (Identity) Stem(word string) string { return word }

// StemmerTable resolves a language code to a Stemmer.
type StemmerTable interface {
	Lookup(lang string) (Stemmer, error)
}

// languageNames maps ISO codes to the language names used by stemming
// libraries.
var languageNames = map[string]string{
	"da": "danish",
	"nl": "dutch",
	"en": "english",
	"fi": "finnish",
	"fr": "french",
	"de": "german",
	"hu": "hungarian",
	"it": "italian",
	"no": "norwegian",
	"pt": "portuguese",
	"ro": "romanian",
	"ru": "russian",
	"es": "spanish",
	"sv": "swedish",
	"tr": "turkish",
}

// canonicalLanguage lowercases lang and turns a full language name into its
// code. The empty code means SimpleLanguage.
func canonicalLanguage(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" {
		return SimpleLanguage
	}
	for code, name := range languageNames {
		if name == lang {
			return code
		}
	}
	return lang
}

func unknownStemmer(table, lang string) error {
	return fmt.Errorf("%w: %s stemmer has no rules for %q", apperrors.ErrUnknownLanguage, table, lang)
}

// SnowballTable serves every language the snowball library implements.
type SnowballTable struct {
	supported map[string]string
}

// NewSnowballTable asks the snowball library which known languages it stems.
func NewSnowballTable() *SnowballTable {
	t := &SnowballTable{supported: make(map[string]string)}
	for code, name := range languageNames {
		if _, err := snowball.Stem("test", name, true); err == nil {
			t.supported[code] = name
		}
	}
	return t
}

func (t *SnowballTable) Lookup(lang string) (Stemmer, error) {
	code := canonicalLanguage(lang)
	if code == SimpleLanguage {
		return Identity{}, nil
	}
	name, ok := t.supported[code]
	if !ok {
		return nil, unknownStemmer("snowball", lang)
	}
	return StemmerFunc(func(word string) string {
		stemmed, err := snowball.Stem(word, name, true)
		if err != nil {
			return word
		}
		return stemmed
	}), nil
}

// PorterTable is the classic Porter algorithm; English only.
type PorterTable struct{}

func (PorterTable) Lookup(lang string) (Stemmer, error) {
	switch canonicalLanguage(lang) {
	case SimpleLanguage:
		return Identity{}, nil
	case "en":
		return StemmerFunc(porterstemmer.StemString), nil
	}
	return nil, unknownStemmer("porter", lang)
}

// SimpleTable strips common English suffixes. It is the fallback when no
// linguistic stemmer covers a language.
type SimpleTable struct{}

func (SimpleTable) Lookup(lang string) (Stemmer, error) {
	switch canonicalLanguage(lang) {
	case SimpleLanguage:
		return Identity{}, nil
	case "en":
		return StemmerFunc(stripSuffix), nil
	}
	return nil, unknownStemmer("simple", lang)
}

// IdentityTable knows every language and never changes a token.
type IdentityTable struct{}

func (IdentityTable) Lookup(string) (Stemmer, error) { return Identity{}, nil }

// IdentityFor returns a table that serves Identity for every language known
// reports true and ErrUnknownLanguage otherwise. It ends a chain so that a
// language with stop words but no stemming rules is indexed unstemmed.
func IdentityFor(known func(lang string) bool) StemmerTable {
	return identityFor(known)
}

type identityFor func(string) bool

func (f identityFor) Lookup(lang string) (Stemmer, error) {
	if f(canonicalLanguage(lang)) {
		return Identity{}, nil
	}
	return nil, unknownStemmer("identity", lang)
}

func libraryKnows(lang string) bool {
	return lang == SimpleLanguage || libraryLanguages[lang]
}

type chain []StemmerTable

// ChainTables resolves a language through tables in order and returns the
// first match.
func ChainTables(tables ...StemmerTable) StemmerTable {
	return chain(tables)
}

func (c chain) Lookup(lang string) (Stemmer, error) {
	var lastErr error = unknownStemmer("chained", lang)
	for _, t := range c {
		s, err := t.Lookup(lang)
		if err == nil {
			return s, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// NewStemmerTable returns the table selected by the index.stemmer setting.
// Linguistic stemmers fall back to the suffix rules, and every language with a
// built-in stop-word list falls back to Identity.
func NewStemmerTable(name string) (StemmerTable, error) {
	fallback := IdentityFor(libraryKnows)
	switch name {
	case "snowball", "":
		return ChainTables(NewSnowballTable(), SimpleTable{}, fallback), nil
	case "porter":
		return ChainTables(PorterTable{}, SimpleTable{}, fallback), nil
	case "simple":
		return ChainTables(SimpleTable{}, fallback), nil
	case "none":
		return IdentityTable{}, nil
	}
	return nil, fmt.Errorf("%w: unknown stemmer %q", apperrors.ErrConfiguration, name)
}

var suffixRules = []struct {
	suffix      string
	replacement string
	minLen      int
}{
	{"ational", "ate", 2},
	{"tional", "tion", 2},
	{"encies", "ence", 2},
	{"ances", "ance", 2},
	{"ments", "ment", 2},
	{"izing", "ize", 2},
	{"ating", "ate", 2},
	{"iness", "y", 2},
	{"ously", "ous", 2},
	{"ively", "ive", 2},
	{"eness", "ene", 2},
	{"tion", "t", 3},
	{"sion", "s", 3},
	{"ying", "y", 2},
	{"ling", "l", 3},
	{"ies", "y", 2},
	{"ing", "", 3},
	{"ers", "er", 2},
	{"est", "", 3},
	{"ful", "", 3},
	{"ous", "", 3},
	{"ess", "", 3},
	{"ble", "", 3},
	{"ed", "", 3},
	{"er", "", 3},
	{"ly", "", 3},
	{"es", "", 3},
	{"ss", "ss", 2},
	{"s", "", 3},
}

func stripSuffix(word string) string {
	for _, rule := range suffixRules {
		if strings.HasSuffix(word, rule.suffix) {
			stem := word[:len(word)-len(rule.suffix)] + rule.replacement
			if len(stem) >= rule.minLen {
				return stem
			}
		}
	}
	return word
}
