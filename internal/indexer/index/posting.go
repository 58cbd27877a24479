// Package index holds the data model shared by the indexing and query paths
// (tokens, record references, postings, scopes and query plans), the weight
// resolver, the Store contract and an in-memory Store.
package index

import (
	"fmt"
	"sort"

	apperrors "github.com/Adithya-Monish-Kumar-K/fts/pkg/errors"
)

// Token is a vocabulary entry. Words are unique; IDs are assigned by the
// store on first use and never change.
type Token struct {
	ID   int64
	Word string
}

// ContentRef identifies an indexed record. Records with the same ID in
// different namespaces are distinct; "" is the default namespace.
type ContentRef struct {
	Kind      string `json:"kind"`
	ID        string `json:"id"`
	Namespace string `json:"namespace,omitempty"`
}

func (r ContentRef) String() string {
	if r.Namespace == "" {
		return r.Kind + "/" + r.ID
	}
	return r.Kind + "/" + r.Namespace + "/" + r.ID
}

// Posting records that Word occurs in Ref with the given weight.
type Posting struct {
	Ref    ContentRef
	Word   string
	Weight int
}

type PostingList []Posting

// Sort orders postings by record ID, then word.
func (l PostingList) Sort() {
	sort.Slice(l, func(i, j int) bool {
		if l[i].Ref.ID != l[j].Ref.ID {
			return l[i].Ref.ID < l[j].Ref.ID
		}
		return l[i].Word < l[j].Word
	})
}

// Document is the resolved token set of one record, ready to be stored.
type Document struct {
	Ref     ContentRef
	Weights map[string]int
}

// Scope selects the postings replaced by one reindex call: the listed record
// IDs, or every record of Kind in Namespace when IDs is empty.
type Scope struct {
	Kind      string   `json:"kind"`
	Namespace string   `json:"namespace,omitempty"`
	IDs       []string `json:"ids,omitempty"`
}

// IsAll reports whether the scope covers the whole collection.
func (s Scope) IsAll() bool {
	return len(s.IDs) == 0
}

func (s Scope) Validate() error {
	if s.Kind == "" {
		return apperrors.New(apperrors.ErrInvalidInput, 400, "scope kind is required")
	}
	for _, id := range s.IDs {
		if id == "" {
			return apperrors.New(apperrors.ErrInvalidInput, 400, "scope contains an empty record id")
		}
	}
	return nil
}

// Contains reports whether ref falls inside the scope.
func (s Scope) Contains(ref ContentRef) bool {
	if ref.Kind != s.Kind || ref.Namespace != s.Namespace {
		return false
	}
	if s.IsAll() {
		return true
	}
	for _, id := range s.IDs {
		if id == ref.ID {
			return true
		}
	}
	return false
}

// CheckDocuments rejects documents that a Replace over s could not remove
// again.
func (s Scope) CheckDocuments(docs []Document) error {
	for _, d := range docs {
		if !s.Contains(d.Ref) {
			return apperrors.Newf(apperrors.ErrInvalidInput, 400, "document %s is outside scope %s", d.Ref, s)
		}
	}
	return nil
}

func (s Scope) String() string {
	ns := s.Namespace
	if ns == "" {
		ns = "default"
	}
	if s.IsAll() {
		return fmt.Sprintf("%s[%s]/*", s.Kind, ns)
	}
	return fmt.Sprintf("%s[%s]/%d ids", s.Kind, ns, len(s.IDs))
}
