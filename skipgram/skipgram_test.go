package skipgram

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wordvec/vocab"
)

func TestGeneratePositivePairs(t *testing.T) {
	cfg := Config{VocabSize: 10, Window: 1}
	pairs, err := Generate([]vocab.Code{1, 2, 3}, cfg, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	assert.Equal(t, []vocab.Code{1, 2, 2, 3}, pairs.Targets)
	assert.Equal(t, []vocab.Code{2, 1, 3, 2}, pairs.Contexts)
	assert.Equal(t, []float32{1, 1, 1, 1}, pairs.Labels)
}

func TestGenerateSkipsOOV(t *testing.T) {
	// 3 is the OOV code for a vocabulary of size 3.
	cfg := Config{VocabSize: 3, Window: 2}
	pairs, err := Generate([]vocab.Code{0, 3, 1, 3}, cfg, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	require.Equal(t, 2, pairs.Len())
	for i := 0; i < pairs.Len(); i++ {
		assert.Less(t, int(pairs.Targets[i]), 3)
		assert.Less(t, int(pairs.Contexts[i]), 3)
	}
}

func TestGenerateNegatives(t *testing.T) {
	cfg := Config{VocabSize: 50, Window: 2, NegativeRatio: 1, Shuffle: true}
	codes := []vocab.Code{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	pairs, err := Generate(codes, cfg, rand.New(rand.NewSource(42)))
	require.NoError(t, err)

	require.Equal(t, len(pairs.Targets), len(pairs.Contexts))
	require.Equal(t, len(pairs.Targets), len(pairs.Labels))

	var pos, neg int
	for i, l := range pairs.Labels {
		switch l {
		case 1:
			pos++
		case 0:
			neg++
			assert.Less(t, int(pairs.Contexts[i]), 50)
			assert.Less(t, int(pairs.Targets[i]), 10)
		default:
			t.Fatalf("unexpected label %v", l)
		}
	}
	assert.Equal(t, pos, neg)
	// 2*1 + 2*3 + 6*4 positives for a window of 2 over 10 codes.
	assert.Equal(t, 34, pos)
}

func TestGenerateDeterministic(t *testing.T) {
	cfg := Config{VocabSize: 20, Window: 3, NegativeRatio: 2, Shuffle: true}
	codes := []vocab.Code{4, 8, 15, 16, 2, 3, 19, 0}

	a, err := Generate(codes, cfg, rand.New(rand.NewSource(7)))
	require.NoError(t, err)
	b, err := Generate(codes, cfg, rand.New(rand.NewSource(7)))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestGenerateEmpty(t *testing.T) {
	pairs, err := Generate(nil, Config{VocabSize: 5, Window: 2, NegativeRatio: 1}, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Equal(t, 0, pairs.Len())
}

func TestGenerateSamplingTableDropsTargets(t *testing.T) {
	table := make([]float64, 4)
	table[1] = 1
	cfg := Config{VocabSize: 4, Window: 1, SamplingTable: table}
	pairs, err := Generate([]vocab.Code{0, 1, 2, 3}, cfg, rand.New(rand.NewSource(3)))
	require.NoError(t, err)

	for _, target := range pairs.Targets {
		assert.Equal(t, vocab.Code(1), target)
	}
	assert.Equal(t, 2, pairs.Len())
}

func TestConfigValidate(t *testing.T) {
	assert.Error(t, Config{VocabSize: 0, Window: 1}.Validate())
	assert.Error(t, Config{VocabSize: 5, Window: 0}.Validate())
	assert.Error(t, Config{VocabSize: 5, Window: 1, NegativeRatio: -1}.Validate())
	assert.NoError(t, Config{VocabSize: 5, Window: 1}.Validate())
}

func TestSamplingTable(t *testing.T) {
	table := SamplingTable(10000, DefaultSamplingFactor)
	require.Len(t, table, 10000)

	for i, p := range table {
		assert.True(t, p > 0 && p <= 1, "rank %d: %v", i, p)
	}
	// Frequent words are kept less often than rare ones.
	for i := 2; i < len(table); i++ {
		assert.LessOrEqual(t, table[i-1], table[i])
	}
	assert.Greater(t, table[9999], 0.9)
	assert.InDelta(t, 1.0, SamplingTable(200000, DefaultSamplingFactor)[199999], 1e-9)
}

func TestPairsAppend(t *testing.T) {
	var all Pairs
	all.Append(Pairs{Targets: []vocab.Code{1}, Contexts: []vocab.Code{2}, Labels: []float32{1}})
	all.Append(Pairs{Targets: []vocab.Code{3}, Contexts: []vocab.Code{4}, Labels: []float32{0}})
	assert.Equal(t, 2, all.Len())
	assert.Equal(t, []vocab.Code{1, 3}, all.Targets)
}
