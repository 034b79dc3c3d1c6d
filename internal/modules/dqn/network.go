package dqn

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// ShapeMismatchError reports a state vector whose length does not match the
// network's input width. It indicates a configuration mismatch between the
// encoder window and the network architecture, and is always fatal.
type ShapeMismatchError struct {
	Want int
	Got  int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("state vector has %d elements, network expects %d", e.Got, e.Want)
}

// Example is a single supervised training pair for the value network.
type Example struct {
	State  []float64
	Target []float64
}

// NetworkParams is a deep value snapshot of a network's parameters.
// Weights are stored row-major per layer.
type NetworkParams struct {
	Sizes   []int       `msgpack:"sizes"`
	Weights [][]float64 `msgpack:"weights"`
	Biases  [][]float64 `msgpack:"biases"`
}

// Network is a small fully-connected value function approximator.
//
// It maps a state vector to one Q-value per action and is trained by
// minibatch gradient descent on mean-squared error. Hidden layers use ReLU,
// the output layer is linear.
type Network struct {
	sizes        []int
	weights      []*mat.Dense
	biases       []*mat.VecDense
	learningRate float64
}

// NewNetwork creates a network with the given layer sizes, e.g.
// [window, 64, 32, 3]. Weights are Glorot-initialized from rng so runs are
// reproducible under a fixed seed.
func NewNetwork(sizes []int, learningRate float64, rng *rand.Rand) (*Network, error) {
	if len(sizes) < 2 {
		return nil, fmt.Errorf("network needs at least input and output layers, got %d sizes", len(sizes))
	}
	for i, s := range sizes {
		if s < 1 {
			return nil, fmt.Errorf("layer %d has invalid size %d", i, s)
		}
	}

	n := &Network{
		sizes:        append([]int(nil), sizes...),
		learningRate: learningRate,
	}

	for l := 0; l < len(sizes)-1; l++ {
		fanIn, fanOut := sizes[l], sizes[l+1]
		limit := math.Sqrt(6.0 / float64(fanIn+fanOut))

		data := make([]float64, fanOut*fanIn)
		for i := range data {
			data[i] = (rng.Float64()*2 - 1) * limit
		}
		n.weights = append(n.weights, mat.NewDense(fanOut, fanIn, data))
		n.biases = append(n.biases, mat.NewVecDense(fanOut, nil))
	}

	return n, nil
}

// InputSize returns the expected state vector length.
func (n *Network) InputSize() int {
	return n.sizes[0]
}

// OutputSize returns the number of action values produced per state.
func (n *Network) OutputSize() int {
	return n.sizes[len(n.sizes)-1]
}

// Predict runs a forward pass and returns one Q-value per action.
func (n *Network) Predict(state []float64) ([]float64, error) {
	if len(state) != n.sizes[0] {
		return nil, &ShapeMismatchError{Want: n.sizes[0], Got: len(state)}
	}

	activations, _ := n.forward(state)
	out := activations[len(activations)-1]

	q := make([]float64, out.Len())
	for i := range q {
		q[i] = out.AtVec(i)
	}
	return q, nil
}

// forward computes all layer activations and pre-activations for one input.
// activations[0] is the input itself; the last entry is the linear output.
func (n *Network) forward(state []float64) (activations, preActivations []*mat.VecDense) {
	a := mat.NewVecDense(len(state), append([]float64(nil), state...))
	activations = append(activations, a)

	for l := range n.weights {
		z := mat.NewVecDense(n.sizes[l+1], nil)
		z.MulVec(n.weights[l], a)
		z.AddVec(z, n.biases[l])
		preActivations = append(preActivations, z)

		a = mat.NewVecDense(z.Len(), nil)
		last := l == len(n.weights)-1
		for i := 0; i < z.Len(); i++ {
			v := z.AtVec(i)
			if !last && v < 0 {
				v = 0 // ReLU
			}
			a.SetVec(i, v)
		}
		activations = append(activations, a)
	}
	return activations, preActivations
}

// Update performs one minibatch gradient descent step on mean-squared error
// and returns the mean loss over the batch.
func (n *Network) Update(batch []Example) (float64, error) {
	if len(batch) == 0 {
		return 0, fmt.Errorf("empty training batch")
	}

	// Gradient accumulators, same shapes as the parameters.
	gradW := make([]*mat.Dense, len(n.weights))
	gradB := make([]*mat.VecDense, len(n.biases))
	for l := range n.weights {
		r, c := n.weights[l].Dims()
		gradW[l] = mat.NewDense(r, c, nil)
		gradB[l] = mat.NewVecDense(n.biases[l].Len(), nil)
	}

	outSize := float64(n.OutputSize())
	var totalLoss float64

	for _, ex := range batch {
		if len(ex.State) != n.sizes[0] {
			return 0, &ShapeMismatchError{Want: n.sizes[0], Got: len(ex.State)}
		}
		if len(ex.Target) != n.OutputSize() {
			return 0, fmt.Errorf("target vector has %d elements, network outputs %d", len(ex.Target), n.OutputSize())
		}

		activations, preActivations := n.forward(ex.State)
		pred := activations[len(activations)-1]

		// Output delta: dL/dz for MSE with a linear output layer.
		delta := mat.NewVecDense(pred.Len(), nil)
		for i := 0; i < pred.Len(); i++ {
			diff := pred.AtVec(i) - ex.Target[i]
			totalLoss += diff * diff / outSize
			delta.SetVec(i, 2*diff/outSize)
		}

		// Backpropagate through the layers.
		for l := len(n.weights) - 1; l >= 0; l-- {
			outer := mat.NewDense(delta.Len(), activations[l].Len(), nil)
			outer.Outer(1, delta, activations[l])
			gradW[l].Add(gradW[l], outer)
			gradB[l].AddVec(gradB[l], delta)

			if l == 0 {
				break
			}

			prev := mat.NewVecDense(activations[l].Len(), nil)
			prev.MulVec(n.weights[l].T(), delta)
			for i := 0; i < prev.Len(); i++ {
				if preActivations[l-1].AtVec(i) <= 0 {
					prev.SetVec(i, 0) // ReLU gradient
				}
			}
			delta = prev
		}
	}

	// Averaged SGD step.
	step := n.learningRate / float64(len(batch))
	for l := range n.weights {
		gradW[l].Scale(step, gradW[l])
		n.weights[l].Sub(n.weights[l], gradW[l])

		gradB[l].ScaleVec(step, gradB[l])
		n.biases[l].SubVec(n.biases[l], gradB[l])
	}

	return totalLoss / float64(len(batch)), nil
}

// SyncFrom overwrites this network's parameters with a deep value copy of
// src's. After the copy, later updates to src leave this network untouched.
func (n *Network) SyncFrom(src *Network) error {
	if len(n.sizes) != len(src.sizes) {
		return fmt.Errorf("cannot sync networks with different depths: %d vs %d", len(n.sizes), len(src.sizes))
	}
	for i := range n.sizes {
		if n.sizes[i] != src.sizes[i] {
			return fmt.Errorf("cannot sync networks with different layer sizes at %d: %d vs %d", i, n.sizes[i], src.sizes[i])
		}
	}

	for l := range n.weights {
		n.weights[l].Copy(src.weights[l])
		n.biases[l].CopyVec(src.biases[l])
	}
	return nil
}

// Parameters returns a deep value snapshot of all weights and biases.
func (n *Network) Parameters() NetworkParams {
	p := NetworkParams{Sizes: append([]int(nil), n.sizes...)}
	for l := range n.weights {
		p.Weights = append(p.Weights, append([]float64(nil), n.weights[l].RawMatrix().Data...))
		p.Biases = append(p.Biases, append([]float64(nil), n.biases[l].RawVector().Data...))
	}
	return p
}

// SetParameters overwrites the network's parameters from a snapshot.
// The snapshot's layer sizes must match the network's architecture exactly.
func (n *Network) SetParameters(p NetworkParams) error {
	if len(p.Sizes) != len(n.sizes) {
		return fmt.Errorf("incompatible parameters: %d layers, network has %d", len(p.Sizes), len(n.sizes))
	}
	for i := range n.sizes {
		if p.Sizes[i] != n.sizes[i] {
			return fmt.Errorf("incompatible parameters: layer %d size %d, network has %d", i, p.Sizes[i], n.sizes[i])
		}
	}
	if len(p.Weights) != len(n.weights) || len(p.Biases) != len(n.biases) {
		return fmt.Errorf("incompatible parameters: malformed snapshot")
	}

	// Validate every layer before touching any parameter, so a malformed
	// snapshot can never leave the network half loaded.
	for l := range n.weights {
		r, c := n.weights[l].Dims()
		if len(p.Weights[l]) != r*c {
			return fmt.Errorf("incompatible parameters: layer %d has %d weights, expected %d", l, len(p.Weights[l]), r*c)
		}
		if len(p.Biases[l]) != n.biases[l].Len() {
			return fmt.Errorf("incompatible parameters: layer %d has %d biases, expected %d", l, len(p.Biases[l]), n.biases[l].Len())
		}
	}

	for l := range n.weights {
		r, c := n.weights[l].Dims()
		n.weights[l].Copy(mat.NewDense(r, c, append([]float64(nil), p.Weights[l]...)))
		n.biases[l].CopyVec(mat.NewVecDense(len(p.Biases[l]), append([]float64(nil), p.Biases[l]...)))
	}
	return nil
}
