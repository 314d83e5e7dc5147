// Package corpus normalizes raw text into terms and counts term frequencies.
package corpus

import (
	"bufio"
	"io"
	"sort"
	"strings"
	"unicode"

	"wordvec/vocab"
)

// MaxLineSize is the longest line, in bytes, that line readers accept.
// Readers of the same text at train and lookup time must share it.
const MaxLineSize = 16 * 1024 * 1024

// NewLineScanner returns a line scanner over r that accepts lines up to
// MaxLineSize.
func NewLineScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxLineSize)
	return scanner
}

// Normalize lower-cases token and strips punctuation and symbol runes.
// The same function must be applied before counting and before encoding.
func Normalize(token string) string {
	var b strings.Builder
	b.Grow(len(token))
	for _, r := range token {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) || unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// Tokenize splits text on whitespace and normalizes each field, dropping
// fields that normalize to nothing.
func Tokenize(text string) []string {
	fields := strings.Fields(text)
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if t := Normalize(f); t != "" {
			terms = append(terms, t)
		}
	}
	return terms
}

// ReadDocuments reads one document per non-blank line.
func ReadDocuments(r io.Reader) ([][]string, error) {
	scanner := NewLineScanner(r)

	var docs [][]string
	for scanner.Scan() {
		terms := Tokenize(scanner.Text())
		if len(terms) > 0 {
			docs = append(docs, terms)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}

// Frequencies counts terms and remembers the order they were first seen.
type Frequencies struct {
	counts map[string]int
	order  []string
}

func NewFrequencies() *Frequencies {
	return &Frequencies{counts: make(map[string]int)}
}

// Add counts each of terms once.
func (f *Frequencies) Add(terms ...string) {
	for _, t := range terms {
		if _, seen := f.counts[t]; !seen {
			f.order = append(f.order, t)
		}
		f.counts[t]++
	}
}

// Count returns how many times term was added.
func (f *Frequencies) Count(term string) int { return f.counts[term] }

// Len returns the number of distinct terms.
func (f *Frequencies) Len() int { return len(f.order) }

// Top returns the n most frequent terms, most frequent first. Equal counts
// keep first-seen order. n <= 0 returns every term.
func (f *Frequencies) Top(n int) []string {
	ranked := make([]string, len(f.order))
	copy(ranked, f.order)
	sort.SliceStable(ranked, func(i, j int) bool {
		return f.counts[ranked[i]] > f.counts[ranked[j]]
	})
	if n > 0 && n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked
}

// BuildDictionary counts the terms of docs and builds a dictionary from the
// size most frequent ones.
func BuildDictionary(docs [][]string, size int) (*vocab.Dictionary, error) {
	if size <= 0 {
		return nil, vocab.ErrInvalidSize
	}
	freq := NewFrequencies()
	for _, doc := range docs {
		freq.Add(doc...)
	}
	return vocab.Build(freq.Top(size), size)
}
