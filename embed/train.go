package embed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"

	"github.com/sirupsen/logrus"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"wordvec/skipgram"
)

// ErrNoPairs is returned when there is nothing to train on.
var ErrNoPairs = errors.New("embed: no training pairs")

type TrainConfig struct {
	Dim       int
	Batch     int
	Epochs    int
	LearnRate float64
	Seed      int64

	// Logger receives per-epoch progress. Nil discards it.
	Logger logrus.FieldLogger
}

func DefaultTrainConfig() TrainConfig {
	return TrainConfig{
		Dim:       300,
		Batch:     128,
		Epochs:    5,
		LearnRate: 1e-3,
		Seed:      1337,
	}
}

func (c TrainConfig) Validate() error {
	switch {
	case c.Dim < 1:
		return fmt.Errorf("embed: dim must be positive, got %d", c.Dim)
	case c.Batch < 1:
		return fmt.Errorf("embed: batch must be positive, got %d", c.Batch)
	case c.Epochs < 1:
		return fmt.Errorf("embed: epochs must be positive, got %d", c.Epochs)
	case c.LearnRate <= 0:
		return fmt.Errorf("embed: learn rate must be positive, got %v", c.LearnRate)
	}
	return nil
}

type EpochMetrics struct {
	Epoch   int     `json:"epoch"`
	Loss    float64 `json:"loss"`
	Batches int     `json:"batches"`
}

type Metrics struct {
	Epochs []EpochMetrics `json:"epochs"`
}

// Train fits target and context embeddings for vocabSize codes to pairs
// and returns the target embeddings. Batches that do not fill cfg.Batch are
// dropped, unless there are fewer pairs than one batch in total.
func Train(ctx context.Context, pairs skipgram.Pairs, vocabSize int, cfg TrainConfig) (*Embeddings, []EpochMetrics, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	if pairs.Len() == 0 {
		return nil, nil, ErrNoPairs
	}
	log := cfg.Logger
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}

	batch := cfg.Batch
	if pairs.Len() < batch {
		batch = pairs.Len()
	}

	g := gorgonia.NewGraph()
	model := NewModel(g, vocabSize, cfg.Dim)

	targets := gorgonia.NewMatrix(g, tensor.Float32, gorgonia.WithShape(batch, vocabSize), gorgonia.WithName("targets"))
	contexts := gorgonia.NewMatrix(g, tensor.Float32, gorgonia.WithShape(batch, vocabSize), gorgonia.WithName("contexts"))
	labels := gorgonia.NewVector(g, tensor.Float32, gorgonia.WithShape(batch), gorgonia.WithName("labels"))

	probs, err := model.Forward(targets, contexts)
	if err != nil {
		return nil, nil, fmt.Errorf("forward pass failed: %w", err)
	}
	cost, err := model.Loss(probs, labels)
	if err != nil {
		return nil, nil, fmt.Errorf("loss failed: %w", err)
	}
	var costVal gorgonia.Value
	gorgonia.Read(cost, &costVal)

	if _, err := gorgonia.Grad(cost, model.Learnables()...); err != nil {
		return nil, nil, fmt.Errorf("gradient failed: %w", err)
	}

	vm := gorgonia.NewTapeMachine(g, gorgonia.BindDualValues(model.Learnables()...))
	defer vm.Close()
	solver := gorgonia.NewAdamSolver(gorgonia.WithLearnRate(cfg.LearnRate))

	tBuf := make([]float32, batch*vocabSize)
	cBuf := make([]float32, batch*vocabSize)
	lBuf := make([]float32, batch)

	rng := rand.New(rand.NewSource(cfg.Seed))
	order := make([]int, pairs.Len())
	for i := range order {
		order[i] = i
	}

	log.WithFields(logrus.Fields{
		"pairs":  pairs.Len(),
		"vocab":  vocabSize,
		"dim":    cfg.Dim,
		"batch":  batch,
		"epochs": cfg.Epochs,
	}).Info("starting training")

	metrics := make([]EpochMetrics, 0, cfg.Epochs)
	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		rng.Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})

		var total float64
		batches := 0
		for start := 0; start+batch <= len(order); start += batch {
			if err := ctx.Err(); err != nil {
				return nil, metrics, err
			}

			fillBatch(pairs, order[start:start+batch], vocabSize, tBuf, cBuf, lBuf)
			if err := gorgonia.Let(targets, tensor.New(tensor.WithShape(batch, vocabSize), tensor.WithBacking(tBuf))); err != nil {
				return nil, metrics, fmt.Errorf("setting targets failed: %w", err)
			}
			if err := gorgonia.Let(contexts, tensor.New(tensor.WithShape(batch, vocabSize), tensor.WithBacking(cBuf))); err != nil {
				return nil, metrics, fmt.Errorf("setting contexts failed: %w", err)
			}
			if err := gorgonia.Let(labels, tensor.New(tensor.WithShape(batch), tensor.WithBacking(lBuf))); err != nil {
				return nil, metrics, fmt.Errorf("setting labels failed: %w", err)
			}

			if err := vm.RunAll(); err != nil {
				return nil, metrics, fmt.Errorf("vm.RunAll failed at epoch %d, batch %d: %w", epoch, batches, err)
			}
			if err := solver.Step(gorgonia.NodesToValueGrads(model.Learnables())); err != nil {
				return nil, metrics, fmt.Errorf("solver step failed: %w", err)
			}
			vm.Reset()

			loss := float64(costVal.Data().(float32))
			if math.IsNaN(loss) || math.IsInf(loss, 0) {
				log.WithField("epoch", epoch).Warn("non-finite batch loss")
				continue
			}
			total += loss
			batches++
		}

		m := EpochMetrics{Epoch: epoch, Batches: batches}
		if batches > 0 {
			m.Loss = total / float64(batches)
		}
		metrics = append(metrics, m)
		log.WithFields(logrus.Fields{"epoch": epoch, "loss": m.Loss}).Info("epoch complete")
	}

	emb, err := NewEmbeddings(vocabSize, cfg.Dim, model.TargetWeights())
	if err != nil {
		return nil, metrics, err
	}
	return emb, metrics, nil
}

func fillBatch(pairs skipgram.Pairs, idx []int, vocabSize int, tBuf, cBuf, lBuf []float32) {
	for i := range tBuf {
		tBuf[i] = 0
		cBuf[i] = 0
	}
	for row, k := range idx {
		tBuf[row*vocabSize+int(pairs.Targets[k])] = 1
		cBuf[row*vocabSize+int(pairs.Contexts[k])] = 1
		lBuf[row] = pairs.Labels[k]
	}
}
