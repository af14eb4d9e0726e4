// Package performance provides buffer pooling for the synthetic sample
// matrices built on every explanation.
package performance

import (
	"sync"
	"sync/atomic"

	"gonum.org/v1/gonum/mat"
)

// MatrixPool recycles the backing storage of dense matrices to reduce GC
// pressure when many explanations run back to back. It is safe for
// concurrent use.
type MatrixPool struct {
	pool     sync.Pool
	maxElems int
	inUse    atomic.Int64
	created  atomic.Int64
	recycled atomic.Int64
	peak     atomic.Int64
}

// PoolStats tracks pool performance metrics
type PoolStats struct {
	TotalAllocated   int64
	TotalRecycled    int64
	CurrentInUse     int64
	PeakUsage        int64
	AverageReuseRate float64
}

// NewMatrixPool creates a pool. Buffers larger than maxElems float64 values
// are not retained on Release; maxElems <= 0 retains every buffer.
func NewMatrixPool(maxElems int) *MatrixPool {
	mp := &MatrixPool{maxElems: maxElems}
	mp.pool.New = func() interface{} {
		mp.created.Add(1)
		return &PooledMatrix{pool: mp}
	}
	return mp
}

// Get returns a zeroed rows×cols matrix backed by pooled storage.
func (mp *MatrixPool) Get(rows, cols int) *PooledMatrix {
	m := mp.pool.Get().(*PooledMatrix)
	n := rows * cols
	if cap(m.data) < n {
		m.data = make([]float64, n)
	} else {
		m.data = m.data[:n]
		clear(m.data)
	}
	m.dense = mat.NewDense(rows, cols, m.data)
	m.released.Store(false)

	cur := mp.inUse.Add(1)
	for {
		peak := mp.peak.Load()
		if cur <= peak || mp.peak.CompareAndSwap(peak, cur) {
			break
		}
	}
	return m
}

// Put returns m to the pool. Releasing twice is a no-op.
func (mp *MatrixPool) Put(m *PooledMatrix) {
	if m == nil || !m.released.CompareAndSwap(false, true) {
		return
	}
	mp.inUse.Add(-1)
	mp.recycled.Add(1)
	m.dense = nil
	if mp.maxElems > 0 && cap(m.data) > mp.maxElems {
		m.data = nil
	}
	mp.pool.Put(m)
}

// GetStats returns current pool statistics
func (mp *MatrixPool) GetStats() PoolStats {
	total := mp.created.Load()
	recycled := mp.recycled.Load()
	reuse := 0.0
	if total > 0 {
		reuse = float64(recycled) / float64(total)
	}
	return PoolStats{
		TotalAllocated:   total,
		TotalRecycled:    recycled,
		CurrentInUse:     mp.inUse.Load(),
		PeakUsage:        mp.peak.Load(),
		AverageReuseRate: reuse,
	}
}

// PooledMatrix is a dense matrix whose storage belongs to a MatrixPool.
type PooledMatrix struct {
	pool     *MatrixPool
	data     []float64
	dense    *mat.Dense
	released atomic.Bool
}

// Dense returns the matrix. It must not be used after Release.
func (m *PooledMatrix) Dense() *mat.Dense {
	return m.dense
}

// Dims returns the matrix dimensions.
func (m *PooledMatrix) Dims() (int, int) {
	return m.dense.Dims()
}

// Release returns the matrix to its pool.
func (m *PooledMatrix) Release() {
	m.pool.Put(m)
}
