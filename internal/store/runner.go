package store

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dpshade/prompt-composer/internal/gateway"
	"github.com/dpshade/prompt-composer/internal/metrics"
)

// AsyncRunner executes effects on their own goroutines. Nothing waits for an
// effect to finish: failures are logged, counted and handed to the error hook,
// and the in-memory state is never rolled back.
type AsyncRunner struct {
	gw  gateway.Gateway
	log *logrus.Entry
	ctx context.Context

	mu       sync.Mutex
	inflight map[string]chan struct{}
	onError  func(Effect, error)
	wg       sync.WaitGroup
}

// NewAsyncRunner creates a runner that applies effects to gw
func NewAsyncRunner(gw gateway.Gateway, log *logrus.Entry) *AsyncRunner {
	return &AsyncRunner{
		gw:       gw,
		log:      log,
		ctx:      context.Background(),
		inflight: make(map[string]chan struct{}),
	}
}

// OnError registers a hook called after every failed effect
func (r *AsyncRunner) OnError(fn func(Effect, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onError = fn
}

// Submit starts effects in the given order
func (r *AsyncRunner) Submit(effects ...Effect) {
	for _, e := range effects {
		r.submit(e)
	}
}

func (r *AsyncRunner) submit(e Effect) {
	r.mu.Lock()
	var waits []chan struct{}
	for _, id := range e.DependsOn() {
		if ch, ok := r.inflight[id]; ok {
			waits = append(waits, ch)
		}
	}
	var done chan struct{}
	created := e.Creates()
	if len(created) > 0 {
		done = make(chan struct{})
		for _, id := range created {
			r.inflight[id] = done
		}
	}
	r.wg.Add(1)
	r.mu.Unlock()

	metrics.PendingEffects.Inc()
	go r.run(e, waits, done, created)
}

func (r *AsyncRunner) run(e Effect, waits []chan struct{}, done chan struct{}, created []string) {
	defer r.wg.Done()
	defer metrics.PendingEffects.Dec()

	for _, ch := range waits {
		<-ch
	}

	start := time.Now()
	err := e.Apply(r.ctx, r.gw)
	metrics.PersistenceCallsTotal.WithLabelValues(e.Name()).Inc()
	metrics.PersistenceDuration.WithLabelValues(e.Name()).Observe(time.Since(start).Seconds())

	if done != nil {
		r.mu.Lock()
		for _, id := range created {
			if r.inflight[id] == done {
				delete(r.inflight, id)
			}
		}
		r.mu.Unlock()
		close(done)
	}

	if err == nil {
		return
	}
	metrics.PersistenceFailuresTotal.WithLabelValues(e.Name()).Inc()
	if r.log != nil {
		r.log.WithFields(logrus.Fields{
			"effect": e.Name(),
			"rows":   e.DependsOn(),
		}).WithError(err).Error("Persistence failed; local state kept")
	}

	r.mu.Lock()
	hook := r.onError
	r.mu.Unlock()
	if hook != nil {
		hook(e, err)
	}
}

// Wait blocks until every submitted effect has finished
func (r *AsyncRunner) Wait() {
	r.wg.Wait()
}
