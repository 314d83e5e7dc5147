// Package vocab assigns dense integer codes to terms and translates term
// sequences to code sequences and back.
package vocab

import (
	"errors"
	"fmt"
)

// Code identifies a term within a fixed vocabulary.
type Code int

// DefaultSize is the vocabulary size used when none is configured.
const DefaultSize = 10000

var (
	// ErrInvalidSize is returned when the vocabulary size is not positive.
	ErrInvalidSize = errors.New("vocab: size must be positive")

	// ErrTooManyTerms is returned when more terms are given than the
	// vocabulary can hold.
	ErrTooManyTerms = errors.New("vocab: more terms than vocabulary size")
)

// DuplicateTermError reports a term that appears twice in the builder input.
type DuplicateTermError struct {
	Term   string
	First  int
	Second int
}

func (e *DuplicateTermError) Error() string {
	return fmt.Sprintf("vocab: duplicate term %q at positions %d and %d", e.Term, e.First, e.Second)
}

// CodeNotFoundError reports a code with no assigned term.
type CodeNotFoundError struct {
	Code Code
}

func (e *CodeNotFoundError) Error() string {
	return fmt.Sprintf("vocab: code %d has no term", int(e.Code))
}

// Dictionary is the immutable pair of TermToCode and CodeToTerm mappings.
// It is safe for concurrent use once built.
type Dictionary struct {
	toCode map[string]Code
	toTerm []string
	size   int
}

// Build assigns codes to terms in the order given, so the first term gets
// code 0. terms must be unique and ordered by descending frequency; size is
// the configured vocabulary size and fixes the OOV code.
func Build(terms []string, size int) (*Dictionary, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	if len(terms) > size {
		return nil, fmt.Errorf("%w: %d terms, size %d", ErrTooManyTerms, len(terms), size)
	}

	toCode := make(map[string]Code, len(terms))
	toTerm := make([]string, len(terms))
	for i, t := range terms {
		if prev, exists := toCode[t]; exists {
			return nil, &DuplicateTermError{Term: t, First: int(prev), Second: i}
		}
		toCode[t] = Code(i)
		toTerm[i] = t
	}

	return &Dictionary{toCode: toCode, toTerm: toTerm, size: size}, nil
}

// Len returns the number of assigned codes.
func (d *Dictionary) Len() int { return len(d.toTerm) }

// Size returns the configured vocabulary size.
func (d *Dictionary) Size() int { return d.size }

// OOV returns the code reserved for out-of-vocabulary terms.
func (d *Dictionary) OOV() Code { return Code(d.size) }

// Code returns the code assigned to term.
func (d *Dictionary) Code(term string) (Code, bool) {
	c, ok := d.toCode[term]
	return c, ok
}

// Term returns the term assigned to code.
func (d *Dictionary) Term(code Code) (string, bool) {
	if code < 0 || int(code) >= len(d.toTerm) {
		return "", false
	}
	return d.toTerm[code], true
}

// Terms returns a copy of the terms in rank order.
func (d *Dictionary) Terms() []string {
	out := make([]string, len(d.toTerm))
	copy(out, d.toTerm)
	return out
}
