package engine

import (
	"context"
	"hash"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/tablehash/TableHash-Engine/digest"
)

// PoolStats contains worker pool statistics.
type PoolStats struct {
	Workers   int   `json:"workers"`
	Active    int64 `json:"active"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
}

// Pool manages a fixed set of goroutine workers processing submitted
// functions in order of arrival.
type Pool struct {
	workers int
	tasks   chan func() error

	active    int64
	completed int64
	failed    int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPool creates a pool with the given number of workers and starts
// them. Zero or negative means one worker per CPU.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		workers: workers,
		tasks:   make(chan func() error, workers*4),
		ctx:     ctx,
		cancel:  cancel,
	}

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}

	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case fn, ok := <-p.tasks:
			if !ok {
				return
			}
			atomic.AddInt64(&p.active, 1)
			if err := fn(); err != nil {
				atomic.AddInt64(&p.failed, 1)
			} else {
				atomic.AddInt64(&p.completed, 1)
			}
			atomic.AddInt64(&p.active, -1)
		}
	}
}

// Submit queues a function for execution. It blocks when the queue is
// full and reports false once the pool is stopped.
func (p *Pool) Submit(fn func() error) bool {
	select {
	case <-p.ctx.Done():
		return false
	default:
	}
	select {
	case <-p.ctx.Done():
		return false
	case p.tasks <- fn:
		return true
	}
}

// Stop drains the workers. Pending queued tasks are abandoned.
func (p *Pool) Stop() {
	p.cancel()
	p.wg.Wait()
}

// Stats returns a snapshot of the pool counters.
func (p *Pool) Stats() PoolStats {
	return PoolStats{
		Workers:   p.workers,
		Active:    atomic.LoadInt64(&p.active),
		Completed: atomic.LoadInt64(&p.completed),
		Failed:    atomic.LoadInt64(&p.failed),
	}
}

// ParallelRecordHasher digests record batches with per-leaf-column
// parallelism. Leaf digesters are independent accumulators, so fanning
// one batch's columns out across workers and folding the digests in
// schema order produces exactly the sequential result.
type ParallelRecordHasher struct {
	rh   *digest.RecordHasher
	pool *Pool

	mu  sync.Mutex
	err error
}

// NewParallelRecordHasher creates a hasher for schema backed by a worker
// pool. The pool is owned by the hasher and released on Finalize.
func NewParallelRecordHasher(schema *arrow.Schema, newHash func() hash.Hash, workers int) (*ParallelRecordHasher, error) {
	rh, err := digest.NewRecordHasher(schema, newHash)
	if err != nil {
		return nil, err
	}
	return &ParallelRecordHasher{rh: rh, pool: NewPool(workers)}, nil
}

// Update digests one batch, fanning the leaf columns out across the
// pool. It blocks until every leaf of this batch is done: batches must
// enter the per-leaf streams in call order.
func (p *ParallelRecordHasher) Update(rec arrow.Record) error {
	p.mu.Lock()
	err := p.err
	p.mu.Unlock()
	if err != nil {
		return err
	}

	if err := p.rh.ValidateRecord(rec); err != nil {
		p.fail(err)
		return err
	}

	var wg sync.WaitGroup
	for i := 0; i < p.rh.NumLeaves(); i++ {
		leaf := i
		wg.Add(1)
		accepted := p.pool.Submit(func() error {
			defer wg.Done()
			if err := p.rh.UpdateLeaf(leaf, rec); err != nil {
				p.fail(err)
				return err
			}
			return nil
		})
		if !accepted {
			wg.Done()
			p.fail(digest.ErrFinalized)
		}
	}
	wg.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *ParallelRecordHasher) fail(err error) {
	p.mu.Lock()
	if p.err == nil {
		p.err = err
	}
	p.mu.Unlock()
}

// Finalize stops the pool and returns the digest.
func (p *ParallelRecordHasher) Finalize() ([]byte, error) {
	p.pool.Stop()
	p.mu.Lock()
	err := p.err
	p.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return p.rh.Finalize()
}

// Stats returns the underlying pool counters.
func (p *ParallelRecordHasher) Stats() PoolStats {
	return p.pool.Stats()
}
