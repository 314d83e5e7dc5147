// Package skipgram generates (target, context) training pairs from encoded
// term sequences, with negative sampling and frequency-based subsampling.
package skipgram

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"wordvec/vocab"
)

// DefaultSamplingFactor is the subsampling factor of the word2vec paper.
const DefaultSamplingFactor = 1e-5

const eulerGamma = 0.577

// Config controls pair generation.
type Config struct {
	// VocabSize is the number of valid codes; codes >= VocabSize are OOV
	// and never appear in a pair.
	VocabSize int

	// Window is how many neighbours on each side count as context.
	Window int

	// NegativeRatio is the number of negative pairs per positive pair.
	NegativeRatio float64

	// SamplingTable, if non-nil, gives the probability of keeping each
	// code as a target.
	SamplingTable []float64

	Shuffle bool
}

func (c Config) Validate() error {
	if c.VocabSize < 1 {
		return fmt.Errorf("skipgram: vocab size must be positive, got %d", c.VocabSize)
	}
	if c.Window < 1 {
		return fmt.Errorf("skipgram: window must be at least 1, got %d", c.Window)
	}
	if c.NegativeRatio < 0 {
		return errors.New("skipgram: negative ratio must not be negative")
	}
	return nil
}

// Pairs holds parallel target, context and label arrays.
type Pairs struct {
	Targets  []vocab.Code
	Contexts []vocab.Code
	Labels   []float32
}

func (p *Pairs) Len() int { return len(p.Targets) }

func (p *Pairs) add(target, context vocab.Code, label float32) {
	p.Targets = append(p.Targets, target)
	p.Contexts = append(p.Contexts, context)
	p.Labels = append(p.Labels, label)
}

func (p *Pairs) swap(i, j int) {
	p.Targets[i], p.Targets[j] = p.Targets[j], p.Targets[i]
	p.Contexts[i], p.Contexts[j] = p.Contexts[j], p.Contexts[i]
	p.Labels[i], p.Labels[j] = p.Labels[j], p.Labels[i]
}

// Append adds all pairs of other to p.
func (p *Pairs) Append(other Pairs) {
	p.Targets = append(p.Targets, other.Targets...)
	p.Contexts = append(p.Contexts, other.Contexts...)
	p.Labels = append(p.Labels, other.Labels...)
}

// Shuffle permutes the three arrays together.
func (p *Pairs) Shuffle(rng *rand.Rand) {
	rng.Shuffle(p.Len(), p.swap)
}

// SamplingTable returns, for each rank, the probability of keeping a word
// of that rank, assuming word frequencies follow Zipf's law. Rank 0 is the
// most frequent word.
func SamplingTable(size int, factor float64) []float64 {
	table := make([]float64, size)
	for i := range table {
		r := float64(i)
		if i == 0 {
			r = 1
		}
		invFq := r*(math.Log(r)+eulerGamma) + 0.5 - 1/(12*r)
		f := factor * invFq
		table[i] = math.Min(1, f/math.Sqrt(f))
	}
	return table
}

// Generate produces skip-gram pairs from codes. Positive pairs come from
// every non-OOV neighbour within the window; negatives pair a positive
// target with a uniformly drawn code.
func Generate(codes []vocab.Code, cfg Config, rng *rand.Rand) (Pairs, error) {
	if err := cfg.Validate(); err != nil {
		return Pairs{}, err
	}

	var pairs Pairs
	for i, target := range codes {
		if !cfg.valid(target) {
			continue
		}
		if cfg.SamplingTable != nil && int(target) < len(cfg.SamplingTable) &&
			cfg.SamplingTable[target] < rng.Float64() {
			continue
		}

		lo := max(0, i-cfg.Window)
		hi := min(len(codes), i+cfg.Window+1)
		for j := lo; j < hi; j++ {
			if j == i || !cfg.valid(codes[j]) {
				continue
			}
			pairs.add(target, codes[j], 1)
		}
	}

	positives := pairs.Len()
	if positives > 0 && cfg.NegativeRatio > 0 {
		targets := make([]vocab.Code, positives)
		copy(targets, pairs.Targets)
		rng.Shuffle(len(targets), func(i, j int) {
			targets[i], targets[j] = targets[j], targets[i]
		})

		n := int(float64(positives) * cfg.NegativeRatio)
		for k := 0; k < n; k++ {
			pairs.add(targets[k%positives], vocab.Code(rng.Intn(cfg.VocabSize)), 0)
		}
	}

	if cfg.Shuffle {
		pairs.Shuffle(rng)
	}
	return pairs, nil
}

func (c Config) valid(code vocab.Code) bool {
	return code >= 0 && int(code) < c.VocabSize
}
