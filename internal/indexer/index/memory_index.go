package index

import (
	"context"
	"sort"
	"strings"
	"sync"
)

type partition struct {
	kind      string
	namespace string
}

// MemoryIndex is a Store kept entirely in process memory. Replace holds the
// write lock for the whole swap, so readers see either the old or the new
// postings of a scope.
type MemoryIndex struct {
	mu     sync.RWMutex
	vocab  map[string]Token
	words  []string // sorted, for prefix ranges
	nextID int64
	// byWord: partition -> word -> record id -> weight
	byWord map[partition]map[string]map[string]int
	// byRecord: partition -> record id -> word -> weight
	byRecord map[partition]map[string]map[string]int
	postings int
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		vocab:    make(map[string]Token),
		nextID:   1,
		byWord:   make(map[partition]map[string]map[string]int),
		byRecord: make(map[partition]map[string]map[string]int),
	}
}

func (m *MemoryIndex) Replace(ctx context.Context, scope Scope, docs []Document) error {
	if err := scope.Validate(); err != nil {
		return err
	}
	if err := scope.CheckDocuments(docs); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	p := partition{kind: scope.Kind, namespace: scope.Namespace}
	if scope.IsAll() {
		for id := range m.byRecord[p] {
			m.deleteRecordLocked(p, id)
		}
	} else {
		for _, id := range scope.IDs {
			m.deleteRecordLocked(p, id)
		}
	}

	for _, d := range docs {
		// a document listed twice replaces its earlier copy
		m.deleteRecordLocked(p, d.Ref.ID)
		for word, weight := range d.Weights {
			m.tokenLocked(word)
			m.addPostingLocked(p, d.Ref.ID, word, weight)
		}
	}
	return nil
}

func (m *MemoryIndex) deleteRecordLocked(p partition, id string) {
	words, ok := m.byRecord[p][id]
	if !ok {
		return
	}
	for word := range words {
		delete(m.byWord[p][word], id)
		if len(m.byWord[p][word]) == 0 {
			delete(m.byWord[p], word)
		}
	}
	m.postings -= len(words)
	delete(m.byRecord[p], id)
}

func (m *MemoryIndex) addPostingLocked(p partition, id, word string, weight int) {
	if m.byWord[p] == nil {
		m.byWord[p] = make(map[string]map[string]int)
		m.byRecord[p] = make(map[string]map[string]int)
	}
	if m.byWord[p][word] == nil {
		m.byWord[p][word] = make(map[string]int)
	}
	if m.byRecord[p][id] == nil {
		m.byRecord[p][id] = make(map[string]int)
	}
	if _, exists := m.byRecord[p][id][word]; !exists {
		m.postings++
	}
	m.byWord[p][word][id] = weight
	m.byRecord[p][id][word] = weight
}

func (m *MemoryIndex) tokenLocked(word string) Token {
	if tok, ok := m.vocab[word]; ok {
		return tok
	}
	tok := Token{ID: m.nextID, Word: word}
	m.nextID++
	m.vocab[word] = tok
	i := sort.SearchStrings(m.words, word)
	m.words = append(m.words, "")
	copy(m.words[i+1:], m.words[i:])
	m.words[i] = word
	return tok
}

func (m *MemoryIndex) LookupOrCreateTokens(ctx context.Context, words []string) (map[string]Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make(map[string]Token, len(words))
	m.mu.RLock()
	missing := false
	for _, w := range words {
		if tok, ok := m.vocab[w]; ok {
			out[w] = tok
		} else {
			missing = true
		}
	}
	m.mu.RUnlock()
	if !missing {
		return out, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range words {
		if _, ok := out[w]; !ok {
			out[w] = m.tokenLocked(w)
		}
	}
	return out, nil
}

func (m *MemoryIndex) Postings(ctx context.Context, q PostingQuery) (PostingList, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	p := partition{kind: q.Kind, namespace: q.Namespace}
	words := m.byWord[p]
	result := PostingList{}
	collect := func(word string) {
		for id, weight := range words[word] {
			result = append(result, Posting{
				Ref:    ContentRef{Kind: q.Kind, ID: id, Namespace: q.Namespace},
				Word:   word,
				Weight: weight,
			})
		}
	}
	if q.Match == MatchPrefix {
		for i := sort.SearchStrings(m.words, q.Word); i < len(m.words) && strings.HasPrefix(m.words[i], q.Word); i++ {
			collect(m.words[i])
		}
	} else {
		collect(q.Word)
	}
	result.Sort()
	return result, nil
}

// TokenCount is the vocabulary size, across all kinds.
func (m *MemoryIndex) TokenCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.vocab)
}

// PostingCount is the number of stored postings, across all kinds.
func (m *MemoryIndex) PostingCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.postings
}

// RecordCount is the number of records of kind with postings in namespace.
func (m *MemoryIndex) RecordCount(kind, namespace string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byRecord[partition{kind: kind, namespace: namespace}])
}

// Snapshot returns every posting of kind in namespace, sorted.
func (m *MemoryIndex) Snapshot(kind, namespace string) PostingList {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p := partition{kind: kind, namespace: namespace}
	out := PostingList{}
	for id, words := range m.byRecord[p] {
		for word, weight := range words {
			out = append(out, Posting{Ref: ContentRef{Kind: kind, ID: id, Namespace: namespace}, Word: word, Weight: weight})
		}
	}
	out.Sort()
	return out
}

// PingContext lets the health checker treat the in-memory store like a database.
func (m *MemoryIndex) PingContext(ctx context.Context) error {
	return ctx.Err()
}
