package embed

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wordvec/skipgram"
	"wordvec/vocab"
)

func testPairs(t *testing.T) skipgram.Pairs {
	t.Helper()
	codes := []vocab.Code{0, 1, 2, 0, 1, 3, 0, 2, 4, 1, 0, 5, 3, 2, 1, 0}
	cfg := skipgram.Config{VocabSize: 6, Window: 2, NegativeRatio: 1, Shuffle: true}
	pairs, err := skipgram.Generate(codes, cfg, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	require.Greater(t, pairs.Len(), 8)
	return pairs
}

func TestTrain(t *testing.T) {
	cfg := TrainConfig{Dim: 4, Batch: 8, Epochs: 3, LearnRate: 0.01, Seed: 1}
	emb, metrics, err := Train(context.Background(), testPairs(t), 6, cfg)
	require.NoError(t, err)

	assert.Equal(t, 6, emb.Rows)
	assert.Equal(t, 4, emb.Dim)
	assert.Len(t, emb.Data, 24)

	require.Len(t, metrics, 3)
	for i, m := range metrics {
		assert.Equal(t, i, m.Epoch)
		assert.Greater(t, m.Batches, 0)
		assert.False(t, math.IsNaN(m.Loss))
		assert.Greater(t, m.Loss, 0.0)
	}
}

func TestTrainErrors(t *testing.T) {
	_, _, err := Train(context.Background(), skipgram.Pairs{}, 6, DefaultTrainConfig())
	assert.ErrorIs(t, err, ErrNoPairs)

	bad := DefaultTrainConfig()
	bad.Dim = 0
	_, _, err = Train(context.Background(), testPairs(t), 6, bad)
	assert.Error(t, err)
}

func TestTrainCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := TrainConfig{Dim: 4, Batch: 4, Epochs: 2, LearnRate: 0.01}
	_, _, err := Train(ctx, testPairs(t), 6, cfg)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestNearest(t *testing.T) {
	emb, err := NewEmbeddings(4, 2, []float32{
		1, 0,
		0.9, 0.1,
		0, 1,
		-1, 0,
	})
	require.NoError(t, err)

	got, err := emb.Nearest(0, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, vocab.Code(1), got[0].Code)
	assert.Equal(t, vocab.Code(2), got[1].Code)
	assert.InDelta(t, 0.0, got[1].Similarity, 1e-9)

	all, err := emb.Nearest(0, -1)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, vocab.Code(3), all[2].Code)
	assert.InDelta(t, -1.0, all[2].Similarity, 1e-9)

	_, err = emb.Nearest(4, 1)
	var notFound *vocab.CodeNotFoundError
	assert.True(t, errors.As(err, &notFound))
}

func TestSimilarityAndVector(t *testing.T) {
	emb, err := NewEmbeddings(2, 2, []float32{3, 4, 0, 0})
	require.NoError(t, err)

	s, err := emb.Similarity(0, 0)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, s, 1e-9)

	s, err = emb.Similarity(0, 1)
	require.NoError(t, err)
	assert.Equal(t, 0.0, s)

	v, err := emb.Vector(0)
	require.NoError(t, err)
	assert.Equal(t, []float32{3, 4}, v)

	_, err = emb.Vector(-1)
	assert.Error(t, err)
}

func TestNewEmbeddingsShape(t *testing.T) {
	_, err := NewEmbeddings(2, 3, make([]float32, 5))
	assert.Error(t, err)
	_, err = NewEmbeddings(0, 3, nil)
	assert.Error(t, err)
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "embeddings.gob")
	emb, err := NewEmbeddings(2, 3, []float32{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)

	require.NoError(t, emb.Save(path))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, emb.Rows, loaded.Rows)
	assert.Equal(t, emb.Dim, loaded.Dim)
	assert.Equal(t, emb.Data, loaded.Data)
}

func TestSaveReportsErrors(t *testing.T) {
	emb, err := NewEmbeddings(1, 2, []float32{1, 2})
	require.NoError(t, err)
	assert.Error(t, emb.Save(filepath.Join(t.TempDir(), "missing", "embeddings.gob")))
}
