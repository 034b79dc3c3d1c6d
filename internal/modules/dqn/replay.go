package dqn

import (
	"errors"
	"math/rand"

	"github.com/aristath/deep-trader/internal/domain"
)

// ErrInsufficientData is returned by Sample when the memory holds fewer
// transitions than the requested batch size. Callers skip the learning step
// and keep going; this is the expected state during warm-up.
var ErrInsufficientData = errors.New("replay memory holds fewer transitions than batch size")

// Transition is one unit of experience: (state, action, reward, next state,
// done). Transitions are immutable once pushed.
type Transition struct {
	State     []float64
	Action    domain.Action
	Reward    float64
	NextState []float64
	Done      bool
}

// ReplayMemory is a fixed-capacity ring buffer of transitions.
// When full, pushing evicts the oldest entry. Sampling is uniform without
// replacement, so a batch never contains the same transition twice.
type ReplayMemory struct {
	buf      []Transition
	capacity int
	head     int
	size     int
	rng      *rand.Rand
}

// NewReplayMemory creates a memory that holds at most capacity transitions.
func NewReplayMemory(capacity int, rng *rand.Rand) *ReplayMemory {
	if capacity < 1 {
		capacity = 1
	}
	return &ReplayMemory{
		buf:      make([]Transition, capacity),
		capacity: capacity,
		rng:      rng,
	}
}

// Push appends a transition, evicting the oldest when at capacity.
func (m *ReplayMemory) Push(tr Transition) {
	m.buf[m.head] = tr
	m.head = (m.head + 1) % m.capacity
	if m.size < m.capacity {
		m.size++
	}
}

// Len returns the number of stored transitions.
func (m *ReplayMemory) Len() int {
	return m.size
}

// Capacity returns the maximum number of stored transitions.
func (m *ReplayMemory) Capacity() int {
	return m.capacity
}

// Sample draws batchSize distinct transitions uniformly at random.
// Returns ErrInsufficientData when the memory is too small.
func (m *ReplayMemory) Sample(batchSize int) ([]Transition, error) {
	if batchSize < 1 {
		return nil, errors.New("batch size must be positive")
	}
	if m.size < batchSize {
		return nil, ErrInsufficientData
	}

	// Partial Fisher-Yates over the occupied indices.
	indices := make([]int, m.size)
	for i := range indices {
		indices[i] = i
	}
	batch := make([]Transition, batchSize)
	for i := 0; i < batchSize; i++ {
		j := i + m.rng.Intn(m.size-i)
		indices[i], indices[j] = indices[j], indices[i]
		batch[i] = m.buf[indices[i]]
	}
	return batch, nil
}

// Transitions returns the stored transitions in insertion order, oldest
// first. The returned slice is a copy.
func (m *ReplayMemory) Transitions() []Transition {
	out := make([]Transition, 0, m.size)
	start := 0
	if m.size == m.capacity {
		start = m.head
	}
	for i := 0; i < m.size; i++ {
		out = append(out, m.buf[(start+i)%m.capacity])
	}
	return out
}
