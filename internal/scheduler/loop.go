package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/samijaber1/aegis-guard/internal/eval"
	"github.com/samijaber1/aegis-guard/internal/events"
	"github.com/samijaber1/aegis-guard/internal/guard"
	"github.com/samijaber1/aegis-guard/internal/metrics"
	"github.com/samijaber1/aegis-guard/internal/storage"
	"github.com/samijaber1/aegis-guard/internal/window"
)

// Loop drives the periodic evaluation of all services. One fixed tick fans
// out per-service evaluation under a concurrency cap; a slow or failing
// service never stalls the others.
type Loop struct {
	registry  *window.Registry
	evaluator *eval.Evaluator
	manager   *guard.Manager
	cache     *StateCache
	collector *metrics.Collector
	publisher events.Publisher

	interval    time.Duration
	maxParallel int64

	audit   storage.AuditStorage
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.RWMutex
	running bool
}

// NewLoop creates an evaluation loop
func NewLoop(registry *window.Registry, evaluator *eval.Evaluator, manager *guard.Manager,
	collector *metrics.Collector, publisher events.Publisher, interval time.Duration, maxParallel int64) *Loop {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if maxParallel <= 0 {
		maxParallel = 8
	}
	return &Loop{
		registry:    registry,
		evaluator:   evaluator,
		manager:     manager,
		cache:       NewStateCache(),
		collector:   collector,
		publisher:   publisher,
		interval:    interval,
		maxParallel: maxParallel,
	}
}

// SetAuditStorage sets the audit storage backend (optional)
func (l *Loop) SetAuditStorage(audit storage.AuditStorage) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.audit = audit
}

// Start begins the evaluation loop
func (l *Loop) Start() error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return fmt.Errorf("loop already running")
	}

	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	l.running = true
	l.mu.Unlock()

	l.wg.Add(1)
	go l.run(ctx)

	log.Printf("Started evaluation loop: interval=%s services=%d", l.interval, len(l.manager.ServiceIDs()))
	return nil
}

// Stop stops the loop and waits for in-flight evaluations to finish
func (l *Loop) Stop() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.cancel()
	l.running = false
	l.mu.Unlock()

	log.Println("Stopping evaluation loop...")
	l.wg.Wait()
	log.Println("Evaluation loop stopped")
}

// run ticks until cancelled
func (l *Loop) run(ctx context.Context) {
	defer l.wg.Done()

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	// initial tick so the cache warms before the first interval elapses
	l.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.tick(ctx)
		}
	}
}

// tick ages the window aggregates, then evaluates every service with bounded
// parallel fan-out
func (l *Loop) tick(ctx context.Context) {
	l.registry.DecayTick(time.Now())

	sem := semaphore.NewWeighted(l.maxParallel)
	var tickWG sync.WaitGroup

	for _, serviceID := range l.manager.ServiceIDs() {
		if err := sem.Acquire(ctx, 1); err != nil {
			return // shutting down
		}
		tickWG.Add(1)
		go func(id string) {
			defer tickWG.Done()
			defer sem.Release(1)
			l.evaluateService(id, time.Now())
		}(serviceID)
	}

	tickWG.Wait()
}

// evaluateService runs one service's evaluation and state-machine advance.
// Failures are isolated: they alert, they never propagate to the tick.
func (l *Loop) evaluateService(serviceID string, now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			l.alertEvalFailure(serviceID, fmt.Errorf("panic: %v", r))
		}
	}()

	started := time.Now()

	def, ok := l.manager.Definition(serviceID)
	if !ok {
		return
	}
	machine, ok := l.manager.Machine(serviceID)
	if !ok {
		return
	}

	snaps := l.registry.Snapshots(serviceID)
	result, err := l.evaluator.Evaluate(def, snaps, now)
	if err != nil {
		l.alertEvalFailure(serviceID, err)
		return
	}

	machine.Advance(result, now)

	elapsed := time.Since(started)
	result.EvalDuration = elapsed
	l.collector.Evaluated(elapsed)

	runtime := machine.Snapshot(now)
	l.cache.Set(serviceID, &EvaluationState{
		Result:    result,
		Runtime:   runtime,
		UpdatedAt: now,
		TTL:       l.interval * 3,
	})

	l.mu.RLock()
	audit := l.audit
	l.mu.RUnlock()

	if audit != nil {
		if err := audit.StoreEvaluation(result, runtime); err != nil {
			log.Printf("Warning: failed to store evaluation for %s: %v", serviceID, err)
		}
		if err := audit.UpdateLatestState(serviceID, result, runtime); err != nil {
			log.Printf("Warning: failed to update latest state for %s: %v", serviceID, err)
		}
	}
}

// EvaluateNow forces immediate evaluation of one service
func (l *Loop) EvaluateNow(serviceID string) error {
	if _, ok := l.manager.Definition(serviceID); !ok {
		return fmt.Errorf("service not found: %s", serviceID)
	}
	l.evaluateService(serviceID, time.Now())
	return nil
}

// Cache returns the state cache
func (l *Loop) Cache() *StateCache {
	return l.cache
}

// AuditStorage returns the audit storage backend
func (l *Loop) AuditStorage() storage.AuditStorage {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.audit
}

// alertEvalFailure logs and emits the per-service isolation alert
func (l *Loop) alertEvalFailure(serviceID string, err error) {
	log.Printf("Error evaluating service %s: %v", serviceID, err)
	alert := events.Alert{
		Level:     events.AlertError,
		Message:   "service_eval_failed:" + serviceID,
		Timestamp: time.Now(),
	}
	if pubErr := l.publisher.Publish(events.SubjectAlert, alert); pubErr != nil {
		log.Printf("Error publishing alert for %s: %v", serviceID, pubErr)
	}
}
