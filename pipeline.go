package main

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"wordvec/corpus"
	"wordvec/embed"
	"wordvec/skipgram"
	"wordvec/vocab"
)

const (
	vocabFile      = "vocab.txt"
	embeddingsFile = "embeddings.gob"
	metricsFile    = "metrics.json"
	manifestFile   = "manifest.json"
)

// Manifest records how a model directory was produced.
type Manifest struct {
	RunID      string    `json:"run_id"`
	CorpusPath string    `json:"corpus_path"`
	CorpusHash string    `json:"corpus_hash"`
	Documents  int       `json:"documents"`
	Terms      int       `json:"terms"`
	OOVRate    float64   `json:"oov_rate"`
	VocabSize  int       `json:"vocab_size"`
	Assigned   int       `json:"assigned"`
	Dim        int       `json:"dim"`
	Window     int       `json:"window"`
	Negatives  float64   `json:"negatives"`
	Sampling   float64   `json:"sampling"`
	Epochs     int       `json:"epochs"`
	Batch      int       `json:"batch"`
	LR         float64   `json:"lr"`
	Seed       int64     `json:"seed"`
	Pairs      int       `json:"pairs"`
	FinalLoss  float64   `json:"final_loss"`
	TrainedAt  time.Time `json:"trained_at"`
}

// Model is a dictionary and the embeddings learned for its codes.
type Model struct {
	Encoder    *vocab.Encoder
	Embeddings *embed.Embeddings
}

// trainModel runs the whole pipeline: corpus, dictionary, encoding,
// skip-gram pairs, training, and writes the model directory.
func trainModel(ctx context.Context, cfg TrainConfig, log logrus.FieldLogger) (*Manifest, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Out, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	raw, err := os.ReadFile(cfg.Corpus)
	if err != nil {
		return nil, fmt.Errorf("loading corpus: %w", err)
	}
	docs, err := corpus.ReadDocuments(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("reading corpus: %w", err)
	}
	corpusHash := fmt.Sprintf("%x", sha256.Sum256(raw))[:16]
	log.WithFields(logrus.Fields{"path": cfg.Corpus, "documents": len(docs), "hash": corpusHash}).Info("corpus loaded")

	dict, err := corpus.BuildDictionary(docs, cfg.Size)
	if err != nil {
		return nil, fmt.Errorf("building dictionary: %w", err)
	}
	if dict.Len() == 0 {
		return nil, errors.New("corpus contains no terms")
	}
	enc := vocab.NewEncoder(dict)

	rng := rand.New(rand.NewSource(cfg.Seed))
	sgCfg := cfg.skipgramConfig(dict.Len())
	sgCfg.Shuffle = false

	var pairs skipgram.Pairs
	terms, oov := 0, 0
	for _, doc := range docs {
		codes := enc.Encode(doc)
		for _, c := range codes {
			if c == dict.OOV() {
				oov++
			}
		}
		terms += len(codes)

		p, err := skipgram.Generate(codes, sgCfg, rng)
		if err != nil {
			return nil, err
		}
		pairs.Append(p)
	}
	pairs.Shuffle(rng)

	oovRate := float64(oov) / float64(terms)
	log.WithFields(logrus.Fields{
		"assigned": dict.Len(),
		"size":     dict.Size(),
		"oov_rate": fmt.Sprintf("%.2f%%", oovRate*100),
		"pairs":    pairs.Len(),
	}).Info("corpus encoded")
	if oovRate > 0.1 {
		log.Warn("high OOV rate, consider increasing --size")
	}

	emb, metrics, err := embed.Train(ctx, pairs, dict.Len(), cfg.embedConfig(log))
	if err != nil {
		return nil, fmt.Errorf("training: %w", err)
	}

	if err := vocab.WriteFile(filepath.Join(cfg.Out, vocabFile), dict); err != nil {
		return nil, fmt.Errorf("saving vocabulary: %w", err)
	}
	if err := emb.Save(filepath.Join(cfg.Out, embeddingsFile)); err != nil {
		return nil, fmt.Errorf("saving embeddings: %w", err)
	}
	if err := saveJSON(filepath.Join(cfg.Out, metricsFile), embed.Metrics{Epochs: metrics}); err != nil {
		return nil, fmt.Errorf("saving metrics: %w", err)
	}

	manifest := &Manifest{
		RunID:      uuid.New().String(),
		CorpusPath: cfg.Corpus,
		CorpusHash: corpusHash,
		Documents:  len(docs),
		Terms:      terms,
		OOVRate:    oovRate,
		VocabSize:  dict.Size(),
		Assigned:   dict.Len(),
		Dim:        cfg.Dim,
		Window:     cfg.Window,
		Negatives:  cfg.Negatives,
		Sampling:   cfg.Sampling,
		Epochs:     cfg.Epochs,
		Batch:      cfg.Batch,
		LR:         cfg.LR,
		Seed:       cfg.Seed,
		Pairs:      pairs.Len(),
		TrainedAt:  time.Now(),
	}
	if len(metrics) > 0 {
		manifest.FinalLoss = metrics[len(metrics)-1].Loss
	}
	if err := saveJSON(filepath.Join(cfg.Out, manifestFile), manifest); err != nil {
		return nil, fmt.Errorf("saving manifest: %w", err)
	}

	log.WithFields(logrus.Fields{"out": cfg.Out, "run_id": manifest.RunID}).Info("model saved")
	return manifest, nil
}

// loadModel reads a model directory written by trainModel.
func loadModel(dir string) (*Model, error) {
	dict, err := vocab.ReadFile(filepath.Join(dir, vocabFile))
	if err != nil {
		return nil, err
	}
	emb, err := embed.Load(filepath.Join(dir, embeddingsFile))
	if err != nil {
		return nil, fmt.Errorf("loading embeddings: %w", err)
	}
	if emb.Rows != dict.Len() {
		return nil, fmt.Errorf("embeddings have %d rows, vocabulary has %d terms", emb.Rows, dict.Len())
	}
	return &Model{Encoder: vocab.NewEncoder(dict), Embeddings: emb}, nil
}

// Similar returns the k nearest terms to a raw query term.
func (m *Model) Similar(term string, k int) ([]string, []float64, error) {
	code := m.Encoder.LookupCode(corpus.Normalize(term))
	if code == m.Encoder.Dictionary().OOV() {
		return nil, nil, fmt.Errorf("%q is out of vocabulary", term)
	}
	neighbors, err := m.Embeddings.Nearest(code, k)
	if err != nil {
		return nil, nil, err
	}
	terms := make([]string, len(neighbors))
	sims := make([]float64, len(neighbors))
	for i, n := range neighbors {
		t, err := m.Encoder.LookupTerm(n.Code)
		if err != nil {
			return nil, nil, err
		}
		terms[i] = t
		sims[i] = n.Similarity
	}
	return terms, sims, nil
}

func saveJSON(path string, data interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func loadJSON(path string, data interface{}) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return json.NewDecoder(f).Decode(data)
}
