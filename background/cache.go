package background

import (
	"encoding/binary"
	"math"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/kernelshap/pkg/errors"
)

// Cache is a bounded LRU of summarized background sets. Entries are keyed by
// a digest of the summarization method, its parameters and the raw data, so
// repeated summaries of the same data are computed once.
//
// A Cache is owned by its creator and is safe for concurrent use. Purge
// releases every entry.
type Cache struct {
	sets   *lru.Cache[uint64, *Set]
	hits   atomic.Uint64
	misses atomic.Uint64
}

// CacheStats reports cache effectiveness.
type CacheStats struct {
	Hits   uint64
	Misses uint64
	Len    int
}

// NewCache creates a cache holding at most size summarized sets.
func NewCache(size int) (*Cache, error) {
	if size < 1 {
		return nil, errors.NewInvalidInputError("background.NewCache", "size", "cache size must be at least 1", size)
	}
	sets, err := lru.New[uint64, *Set](size)
	if err != nil {
		return nil, errors.Wrap(err, "background.NewCache")
	}
	return &Cache{sets: sets}, nil
}

// Sample returns the cached result of Sample(data, k, seed), computing it on
// a miss.
func (c *Cache) Sample(data mat.Matrix, k int, seed int64) (*Set, error) {
	if data == nil {
		return Sample(data, k, seed)
	}
	key := digest("sample", data, uint64(k), uint64(seed))
	return c.getOrCompute(key, func() (*Set, error) {
		return Sample(data, k, seed)
	})
}

// KMeans returns the cached result of KMeans(data, k, opts...), computing it
// on a miss.
func (c *Cache) KMeans(data mat.Matrix, k int, opts ...KMeansOption) (*Set, error) {
	cfg := defaultKMeansConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if data == nil {
		return kmeansSummarize(data, k, cfg)
	}
	key := digest("kmeans", data,
		uint64(k),
		uint64(cfg.seed),
		uint64(cfg.maxIter),
		uint64(cfg.nInit),
		math.Float64bits(cfg.tol),
		boolBits(cfg.standardize)|boolBits(cfg.roundValues)<<1,
	)
	return c.getOrCompute(key, func() (*Set, error) {
		return kmeansSummarize(data, k, cfg)
	})
}

func (c *Cache) getOrCompute(key uint64, compute func() (*Set, error)) (*Set, error) {
	if s, ok := c.sets.Get(key); ok {
		c.hits.Add(1)
		return s, nil
	}
	c.misses.Add(1)
	s, err := compute()
	if err != nil {
		return nil, err
	}
	c.sets.Add(key, s)
	return s, nil
}

// Len returns the number of cached sets.
func (c *Cache) Len() int {
	return c.sets.Len()
}

// Stats returns hit and miss counters.
func (c *Cache) Stats() CacheStats {
	return CacheStats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Len:    c.sets.Len(),
	}
}

// Purge removes every cached set.
func (c *Cache) Purge() {
	c.sets.Purge()
}

func digest(method string, data mat.Matrix, params ...uint64) uint64 {
	h := xxhash.New()
	_, _ = h.WriteString(method)

	var buf [8]byte
	put := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		_, _ = h.Write(buf[:])
	}
	for _, p := range params {
		put(p)
	}
	r, cols := data.Dims()
	put(uint64(r))
	put(uint64(cols))
	for i := 0; i < r; i++ {
		for j := 0; j < cols; j++ {
			put(math.Float64bits(data.At(i, j)))
		}
	}
	return h.Sum64()
}

func boolBits(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
