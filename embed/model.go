// Package embed trains skip-gram word embeddings with gorgonia.
package embed

import (
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Model is a two-tower skip-gram network: one embedding matrix for target
// codes, one for context codes, scored by a sigmoid over their dot product.
type Model struct {
	target  *gorgonia.Node
	context *gorgonia.Node
	vocab   int
	dim     int
	g       *gorgonia.ExprGraph
}

func NewModel(g *gorgonia.ExprGraph, vocab, dim int) *Model {
	return &Model{
		target: gorgonia.NewMatrix(g, tensor.Float32,
			gorgonia.WithShape(vocab, dim),
			gorgonia.WithName("target_embed"),
			gorgonia.WithInit(gorgonia.GlorotU(1.0))),
		context: gorgonia.NewMatrix(g, tensor.Float32,
			gorgonia.WithShape(vocab, dim),
			gorgonia.WithName("context_embed"),
			gorgonia.WithInit(gorgonia.GlorotU(1.0))),
		vocab: vocab,
		dim:   dim,
		g:     g,
	}
}

// Forward scores a batch. targets and contexts are one-hot rows of shape
// (batch, vocab); the result is a (batch) vector of probabilities that each
// context really occurs near its target.
func (m *Model) Forward(targets, contexts *gorgonia.Node) (*gorgonia.Node, error) {
	t, err := gorgonia.Mul(targets, m.target)
	if err != nil {
		return nil, err
	}
	c, err := gorgonia.Mul(contexts, m.context)
	if err != nil {
		return nil, err
	}

	prod, err := gorgonia.HadamardProd(t, c)
	if err != nil {
		return nil, err
	}
	dot, err := gorgonia.Sum(prod, 1)
	if err != nil {
		return nil, err
	}

	return gorgonia.Sigmoid(dot)
}

// Loss is the mean binary cross-entropy of probs against labels.
func (m *Model) Loss(probs, labels *gorgonia.Node) (*gorgonia.Node, error) {
	eps := gorgonia.NewConstant(float32(1e-7), gorgonia.WithName("eps"))
	one := gorgonia.NewConstant(float32(1), gorgonia.WithName("one"))

	// y * log(p)
	pEps, err := gorgonia.Add(probs, eps)
	if err != nil {
		return nil, err
	}
	logP, err := gorgonia.Log(pEps)
	if err != nil {
		return nil, err
	}
	pos, err := gorgonia.HadamardProd(labels, logP)
	if err != nil {
		return nil, err
	}

	// (1 - y) * log(1 - p)
	q, err := gorgonia.Sub(one, probs)
	if err != nil {
		return nil, err
	}
	qEps, err := gorgonia.Add(q, eps)
	if err != nil {
		return nil, err
	}
	logQ, err := gorgonia.Log(qEps)
	if err != nil {
		return nil, err
	}
	notY, err := gorgonia.Sub(one, labels)
	if err != nil {
		return nil, err
	}
	neg, err := gorgonia.HadamardProd(notY, logQ)
	if err != nil {
		return nil, err
	}

	ll, err := gorgonia.Add(pos, neg)
	if err != nil {
		return nil, err
	}
	mean, err := gorgonia.Mean(ll)
	if err != nil {
		return nil, err
	}
	return gorgonia.Neg(mean)
}

// Learnables returns all trainable parameters.
func (m *Model) Learnables() []*gorgonia.Node {
	return []*gorgonia.Node{m.target, m.context}
}

// TargetWeights copies the current target embedding matrix, row-major.
func (m *Model) TargetWeights() []float32 {
	v := m.target.Value()
	if v == nil {
		return nil
	}
	data := v.Data().([]float32)
	out := make([]float32, len(data))
	copy(out, data)
	return out
}
