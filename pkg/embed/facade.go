// Package embed's facade.go implements the process-wide embedder pool: a
// lazily-initialized singleton with explicit Init/Shutdown lifecycle,
// mirroring how the teacher corpus treats shared resources (see
// pkg/pool.Configure) and adding the LRU-cache discipline from
// pkg/cache.RetrievalCache, repurposed here to cache recent text->vector
// lookups instead of query plans.
package embed

import (
	"container/list"
	"context"
	"hash/fnv"
	"sync"

	smgerrors "github.com/mrorigo/spectral-cortex/pkg/errors"
	"github.com/mrorigo/spectral-cortex/pkg/smglog"
)

// ProgressFunc reports (message, fraction) during a long-running batch
// embed call. fraction is in [0,1]. Implementations must be safe to call
// from multiple goroutines if they carry shared state.
type ProgressFunc func(message string, fraction float64)

var (
	poolMu sync.Mutex
	pool   *Pool
)

// Pool is the singleton embedder resource described in the specification's
// "Embedder façade" component: single- and batch-text to vector conversion,
// with explicit init/shutdown and one bounded cache shared by all workers.
type Pool struct {
	embedder Embedder
	workers  int

	cacheMu sync.Mutex
	cache   *lruCache
}

// Init initializes the global embedder pool. workers controls the degree
// of parallelism used by EmbedBatch; cacheSizePerWorker bounds the total
// LRU cache size (workers * cacheSizePerWorker entries). Calling Init while
// already initialized fails rather than silently replacing the running
// pool, per the design note that re-initialization must be explicit.
func Init(embedder Embedder, workers, cacheSizePerWorker int) error {
	const op = "embed.Init"
	poolMu.Lock()
	defer poolMu.Unlock()
	if pool != nil {
		return smgerrors.New(op, smgerrors.InvalidConfig, errAlreadyInitialized)
	}
	if workers < 1 {
		workers = 1
	}
	if cacheSizePerWorker < 0 {
		cacheSizePerWorker = 0
	}
	pool = &Pool{
		embedder: embedder,
		workers:  workers,
		cache:    newLRUCache(workers * cacheSizePerWorker),
	}
	smglog.Component("embed").Info().Int("workers", workers).Str("model", embedder.Model()).Msg("pool initialized")
	return nil
}

// Shutdown tears down the global embedder pool. It is idempotent: calling
// it twice, or before Init, is a no-op.
func Shutdown() {
	poolMu.Lock()
	defer poolMu.Unlock()
	if pool == nil {
		return
	}
	smglog.Component("embed").Info().Msg("pool shutdown")
	pool = nil
}

// current returns the active pool, or a NotInitialized error.
func current(op string) (*Pool, error) {
	poolMu.Lock()
	defer poolMu.Unlock()
	if pool == nil {
		return nil, smgerrors.New(op, smgerrors.NotInitialized, nil)
	}
	return pool, nil
}

// EmbedOne embeds a single text through the global pool.
func EmbedOne(ctx context.Context, text string) ([]float32, error) {
	const op = "embed.EmbedOne"
	p, err := current(op)
	if err != nil {
		return nil, err
	}
	return p.embedOne(ctx, op, text)
}

func (p *Pool) embedOne(ctx context.Context, op, text string) ([]float32, error) {
	key := cacheKey(text)
	if v, ok := p.cacheGet(key); ok {
		return v, nil
	}
	vec, err := p.embedder.Embed(ctx, text)
	if err != nil {
		return nil, smgerrors.New(op, smgerrors.EmbedFailure, err)
	}
	p.cachePut(key, vec)
	return vec, nil
}

// EmbedBatch embeds texts through the global pool, preserving input order.
// An empty input returns an empty result without touching the pool or
// invoking progress. Each text is queued as one job that Pool.workers
// goroutines pull from a shared channel, and each result is stored at its
// original index, so result order never depends on goroutine completion
// order.
func EmbedBatch(ctx context.Context, texts []string, progress ProgressFunc) ([][]float32, error) {
	const op = "embed.EmbedBatch"
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	p, err := current(op)
	if err != nil {
		return nil, err
	}
	return p.embedBatch(ctx, op, texts, progress)
}

func (p *Pool) embedBatch(ctx context.Context, op string, texts []string, progress ProgressFunc) ([][]float32, error) {
	n := len(texts)
	out := make([][]float32, n)
	var firstErr error
	var errMu sync.Mutex

	type job struct{ idx int }
	jobs := make(chan job, n)
	for i := 0; i < n; i++ {
		jobs <- job{idx: i}
	}
	close(jobs)

	var done int32
	var progMu sync.Mutex
	reportDone := func() {
		progMu.Lock()
		done++
		frac := float64(done) / float64(n)
		progMu.Unlock()
		if progress != nil {
			progress("embedding batch", frac)
		}
	}

	workers := p.workers
	if workers > n {
		workers = n
	}
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for j := range jobs {
				vec, err := p.embedOne(ctx, op, texts[j.idx])
				if err != nil {
					errMu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					errMu.Unlock()
					reportDone()
					continue
				}
				out[j.idx] = vec
				reportDone()
			}
		}()
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

// --- tiny LRU cache keyed by FNV hash of the input text ---

type lruCache struct {
	mu      sync.Mutex
	maxSize int
	ll      *list.List
	items   map[uint64]*list.Element
}

type lruEntry struct {
	key uint64
	val []float32
}

func newLRUCache(maxSize int) *lruCache {
	return &lruCache{
		maxSize: maxSize,
		ll:      list.New(),
		items:   make(map[uint64]*list.Element),
	}
}

func cacheKey(text string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(text))
	return h.Sum64()
}

func (p *Pool) cacheGet(key uint64) ([]float32, bool) {
	if p.cache.maxSize == 0 {
		return nil, false
	}
	p.cache.mu.Lock()
	defer p.cache.mu.Unlock()
	el, ok := p.cache.items[key]
	if !ok {
		return nil, false
	}
	p.cache.ll.MoveToFront(el)
	return el.Value.(*lruEntry).val, true
}

func (p *Pool) cachePut(key uint64, val []float32) {
	if p.cache.maxSize == 0 {
		return
	}
	p.cache.mu.Lock()
	defer p.cache.mu.Unlock()
	if el, ok := p.cache.items[key]; ok {
		p.cache.ll.MoveToFront(el)
		el.Value.(*lruEntry).val = val
		return
	}
	el := p.cache.ll.PushFront(&lruEntry{key: key, val: val})
	p.cache.items[key] = el
	if p.cache.ll.Len() > p.cache.maxSize {
		oldest := p.cache.ll.Back()
		if oldest != nil {
			p.cache.ll.Remove(oldest)
			delete(p.cache.items, oldest.Value.(*lruEntry).key)
		}
	}
}

type sentinelErr string

func (e sentinelErr) Error() string { return string(e) }

const errAlreadyInitialized = sentinelErr("embedder pool already initialized; call Shutdown first")
