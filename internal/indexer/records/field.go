// Package records describes the records a collection indexes: their field
// values, the extractors that turn a record into text, and the sources that
// load records by identity or in bulk.
package records

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/fts/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/fts/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/fts/pkg/config"
)

// Record is one row of a record kind. Field values are strings, nil, or
// nested map[string]any for related records.
type Record struct {
	ID        string
	Namespace string
	Fields    map[string]any
}

// Extractor turns a record into the text of one field.
type Extractor func(Record) (string, error)

// FieldSpec pairs an extractor with the weight tier of its tokens.
type FieldSpec struct {
	Name    string
	Extract Extractor
	Tier    index.Tier
}

// Field reads a top-level field.
func Field(name string, tier index.Tier) FieldSpec {
	return Path(name, tier)
}

// Path follows a dotted path through related records, e.g. "author.name".
// A related record stored as a JSON object string is decoded on the way.
func Path(path string, tier index.Tier) FieldSpec {
	segments := strings.Split(path, ".")
	return FieldSpec{
		Name: path,
		Tier: tier,
		Extract: func(r Record) (string, error) {
			var cur any = r.Fields
			for i, seg := range segments {
				m, err := asObject(cur)
				if err != nil {
					return "", fmt.Errorf("%w: %s: %s is not a related record", apperrors.ErrMalformedField,
						path, strings.Join(segments[:i], "."))
				}
				if m == nil {
					return "", nil
				}
				cur = m[seg]
			}
			return asText(path, cur)
		},
	}
}

// Computed derives text from the whole record.
func Computed(name string, tier index.Tier, fn func(Record) (any, error)) FieldSpec {
	return FieldSpec{
		Name: name,
		Tier: tier,
		Extract: func(r Record) (string, error) {
			v, err := fn(r)
			if err != nil {
				return "", err
			}
			return asText(name, v)
		},
	}
}

func asObject(v any) (map[string]any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return t, nil
	case string:
		if strings.HasPrefix(strings.TrimSpace(t), "{") {
			var m map[string]any
			if err := json.Unmarshal([]byte(t), &m); err == nil {
				return m, nil
			}
		}
	}
	return nil, fmt.Errorf("not an object: %T", v)
}

// asText accepts only textual values; anything else is surfaced instead of
// being formatted.
func asText(name string, v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	}
	return "", fmt.Errorf("%w: %s holds %T, not text", apperrors.ErrMalformedField, name, v)
}

// SpecsFromConfig builds the field specs of a collection.
func SpecsFromConfig(fields []config.FieldConfig) ([]FieldSpec, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: no fields configured", apperrors.ErrConfiguration)
	}
	specs := make([]FieldSpec, 0, len(fields))
	for _, f := range fields {
		tier, err := index.ParseTier(f.Weight)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Path, err)
		}
		for _, seg := range strings.Split(f.Path, ".") {
			if seg == "" {
				return nil, fmt.Errorf("%w: field path %q has an empty segment", apperrors.ErrConfiguration, f.Path)
			}
		}
		specs = append(specs, Path(f.Path, tier))
	}
	return specs, nil
}

// Columns returns the distinct top-level fields the specs read, in order.
func Columns(fields []config.FieldConfig) []string {
	seen := make(map[string]bool)
	var cols []string
	for _, f := range fields {
		head, _, _ := strings.Cut(f.Path, ".")
		if !seen[head] {
			seen[head] = true
			cols = append(cols, head)
		}
	}
	return cols
}
