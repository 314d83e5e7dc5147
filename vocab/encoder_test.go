package vocab

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEncoder(t *testing.T, terms []string, size int) *Encoder {
	t.Helper()
	d, err := Build(terms, size)
	require.NoError(t, err)
	return NewEncoder(d)
}

func TestEncodeWithOOV(t *testing.T) {
	enc := newTestEncoder(t, []string{"call", "me"}, 3)

	got := enc.Encode([]string{"call", "me", "ishmael"})
	assert.Equal(t, []Code{0, 1, 3}, got)
}

func TestEncodeEmpty(t *testing.T) {
	enc := newTestEncoder(t, []string{"call", "me"}, 3)

	got := enc.Encode([]string{})
	require.NotNil(t, got)
	assert.Len(t, got, 0)
}

func TestEncodePreservesLength(t *testing.T) {
	enc := newTestEncoder(t, []string{"the", "whale"}, 4)

	for _, seq := range [][]string{
		nil,
		{"the"},
		{"unknown", "words", "only"},
		{"the", "white", "whale", "the", "end"},
	} {
		assert.Len(t, enc.Encode(seq), len(seq))
	}
}

func TestLookupCodeOOVStable(t *testing.T) {
	enc := newTestEncoder(t, []string{"the", "of"}, 10)

	for _, term := range []string{"queequeg", "pequod", "", "THE", "the.", "starbuck"} {
		assert.Equal(t, Code(10), enc.LookupCode(term), term)
	}
}

func TestLookupTermRoundTrip(t *testing.T) {
	terms := []string{"the", "of", "and", "a", "to"}
	enc := newTestEncoder(t, terms, 5)

	for _, term := range terms {
		got, err := enc.LookupTerm(enc.LookupCode(term))
		require.NoError(t, err)
		assert.Equal(t, term, got)
	}
}

func TestLookupTermNotFound(t *testing.T) {
	enc := newTestEncoder(t, []string{"call", "me"}, 3)

	// 2 is inside the vocabulary size but unassigned; 3 is the OOV code.
	for _, code := range []Code{-1, 2, 3, 4, 1000} {
		term, err := enc.LookupTerm(code)
		assert.Empty(t, term)

		var notFound *CodeNotFoundError
		require.True(t, errors.As(err, &notFound), "code %d", code)
		assert.Equal(t, code, notFound.Code)
	}
}

func TestDecode(t *testing.T) {
	enc := newTestEncoder(t, []string{"call", "me", "ishmael"}, 3)

	terms, err := enc.Decode([]Code{2, 0, 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"ishmael", "call", "me"}, terms)

	_, err = enc.Decode([]Code{0, enc.Dictionary().OOV()})
	var notFound *CodeNotFoundError
	assert.True(t, errors.As(err, &notFound))
}

func TestEncoderConcurrentReaders(t *testing.T) {
	enc := newTestEncoder(t, []string{"the", "of", "and"}, 3)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				codes := enc.Encode([]string{"the", "and", "moby"})
				assert.Equal(t, []Code{0, 2, 3}, codes)
			}
		}()
	}
	wg.Wait()
}
