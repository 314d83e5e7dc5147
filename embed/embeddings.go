package embed

import (
	"encoding/gob"
	"fmt"
	"os"
	"sort"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"wordvec/vocab"
)

// Embeddings is a learned (Rows x Dim) matrix, one row per code.
type Embeddings struct {
	Rows int
	Dim  int
	Data []float32

	once sync.Once
	unit *mat.Dense
}

// Neighbor is a code and its cosine similarity to a query.
type Neighbor struct {
	Code       vocab.Code
	Similarity float64
}

func NewEmbeddings(rows, dim int, data []float32) (*Embeddings, error) {
	if rows < 1 || dim < 1 || rows*dim != len(data) {
		return nil, fmt.Errorf("embed: %d values for a %dx%d matrix", len(data), rows, dim)
	}
	return &Embeddings{Rows: rows, Dim: dim, Data: data}, nil
}

// Vector returns a copy of the row for code.
func (e *Embeddings) Vector(code vocab.Code) ([]float32, error) {
	if code < 0 || int(code) >= e.Rows {
		return nil, &vocab.CodeNotFoundError{Code: code}
	}
	out := make([]float32, e.Dim)
	copy(out, e.Data[int(code)*e.Dim:(int(code)+1)*e.Dim])
	return out, nil
}

// Similarity returns the cosine similarity of two codes.
func (e *Embeddings) Similarity(a, b vocab.Code) (float64, error) {
	for _, c := range []vocab.Code{a, b} {
		if c < 0 || int(c) >= e.Rows {
			return 0, &vocab.CodeNotFoundError{Code: c}
		}
	}
	u := e.normalized()
	return floats.Dot(u.RawRowView(int(a)), u.RawRowView(int(b))), nil
}

// Nearest returns the k codes most similar to code, most similar first,
// excluding code itself.
func (e *Embeddings) Nearest(code vocab.Code, k int) ([]Neighbor, error) {
	if code < 0 || int(code) >= e.Rows {
		return nil, &vocab.CodeNotFoundError{Code: code}
	}
	u := e.normalized()

	sims := mat.NewVecDense(e.Rows, nil)
	sims.MulVec(u, u.RowView(int(code)))

	neighbors := make([]Neighbor, 0, e.Rows-1)
	for i := 0; i < e.Rows; i++ {
		if i == int(code) {
			continue
		}
		neighbors = append(neighbors, Neighbor{Code: vocab.Code(i), Similarity: sims.AtVec(i)})
	}
	sort.SliceStable(neighbors, func(i, j int) bool {
		return neighbors[i].Similarity > neighbors[j].Similarity
	})
	if k >= 0 && k < len(neighbors) {
		neighbors = neighbors[:k]
	}
	return neighbors, nil
}

// normalized returns the matrix with every row scaled to unit length.
// All-zero rows stay zero.
func (e *Embeddings) normalized() *mat.Dense {
	e.once.Do(func() {
		data := make([]float64, len(e.Data))
		for i, v := range e.Data {
			data[i] = float64(v)
		}
		for r := 0; r < e.Rows; r++ {
			row := data[r*e.Dim : (r+1)*e.Dim]
			if n := floats.Norm(row, 2); n > 0 {
				floats.Scale(1/n, row)
			}
		}
		e.unit = mat.NewDense(e.Rows, e.Dim, data)
	})
	return e.unit
}

func (e *Embeddings) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := gob.NewEncoder(f).Encode(e); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func Load(path string) (*Embeddings, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var e Embeddings
	if err := gob.NewDecoder(f).Decode(&e); err != nil {
		return nil, err
	}
	return NewEmbeddings(e.Rows, e.Dim, e.Data)
}
