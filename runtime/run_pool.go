package runtime

import (
	"sync"

	"github.com/gammazero/workerpool"
	"github.com/juju/errors"
)

func newRunPool(concurrency int) *runPool {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &runPool{
		wp:      workerpool.New(concurrency),
		runners: make(map[string]*runContext),
	}
}

// runPool bounds how many runs execute at once and tracks the live ones so
// their status can be looked up.
type runPool struct {
	mu sync.Mutex

	wp      *workerpool.WorkerPool
	runners map[string]*runContext
	closed  bool
}

func (p *runPool) get(runID string) *runContext {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.runners[runID]
}

func (p *runPool) add(runID string, rc *runContext) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return errors.MethodNotAllowedf("not running")
	}
	if _, exists := p.runners[runID]; exists {
		return errors.AlreadyExistsf("run id: %s", runID)
	}
	p.runners[runID] = rc
	return nil
}

func (p *runPool) remove(runID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.runners, runID)
}

// submitWait queues fn and blocks until it has returned.
func (p *runPool) submitWait(fn func()) error {
	done := make(chan struct{})

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return errors.MethodNotAllowedf("not running")
	}
	p.wp.Submit(func() {
		defer close(done)
		fn()
	})
	p.mu.Unlock()

	<-done
	return nil
}

func (p *runPool) stopWait() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	p.wp.StopWait()
}
