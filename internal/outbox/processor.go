// Package outbox retries lifecycle events whose first publish failed.
package outbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"medishare/internal/events"
	"medishare/pkg/logger"

	"go.uber.org/zap"
)

type pending struct {
	env         events.Envelope
	attempts    int
	nextAttempt time.Time
}

// Processor is an events.Bus that publishes through an inner bus and keeps
// failed envelopes in a bounded queue for later attempts.
type Processor struct {
	bus        events.Bus
	log        *logger.Logger
	clock      func() time.Time
	batchSize  int
	interval   time.Duration
	maxRetries int
	capacity   int

	mu    sync.Mutex
	queue []pending
}

func NewProcessor(bus events.Bus, log *logger.Logger, batchSize int, interval time.Duration, maxRetries, capacity int) *Processor {
	if log == nil {
		log = logger.NewNop()
	}
	return &Processor{
		bus:        bus,
		log:        log,
		clock:      time.Now,
		batchSize:  batchSize,
		interval:   interval,
		maxRetries: maxRetries,
		capacity:   capacity,
	}
}

// Publish tries the inner bus once. On failure the envelope is queued and
// the error is still returned so the caller can log it.
func (p *Processor) Publish(ctx context.Context, env events.Envelope) error {
	err := p.bus.Publish(ctx, env)
	if err == nil {
		return nil
	}
	p.enqueue(ctx, pending{env: env, attempts: 1, nextAttempt: p.clock().Add(p.interval)})
	return fmt.Errorf("queued for retry: %w", err)
}

// Pending returns the number of queued envelopes.
func (p *Processor) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

func (p *Processor) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.processBatch(ctx)
		}
	}
}

func (p *Processor) enqueue(ctx context.Context, item pending) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.capacity > 0 && len(p.queue) >= p.capacity {
		dropped := p.queue[0]
		p.queue = p.queue[1:]
		p.log.Warn(ctx, "outbox full, dropping oldest event",
			zap.String("event_type", dropped.env.EventType),
			zap.String("aggregate_id", dropped.env.AggregateID),
		)
	}
	p.queue = append(p.queue, item)
}

// due removes up to batchSize envelopes whose retry time has come.
func (p *Processor) due(now time.Time) []pending {
	p.mu.Lock()
	defer p.mu.Unlock()

	var batch []pending
	rest := p.queue[:0]
	for _, item := range p.queue {
		if len(batch) < p.batchSize && !item.nextAttempt.After(now) {
			batch = append(batch, item)
			continue
		}
		rest = append(rest, item)
	}
	p.queue = rest
	return batch
}

func (p *Processor) processBatch(ctx context.Context) {
	now := p.clock()
	for _, item := range p.due(now) {
		err := p.bus.Publish(ctx, item.env)
		if err == nil {
			continue
		}

		item.attempts++
		if item.attempts >= p.maxRetries {
			p.log.Error(ctx, "event dropped after max retries",
				zap.String("event_type", item.env.EventType),
				zap.String("aggregate_id", item.env.AggregateID),
				zap.Int("attempts", item.attempts),
				zap.Error(err),
			)
			continue
		}
		// linear backoff
		item.nextAttempt = now.Add(time.Duration(item.attempts) * p.interval)
		p.enqueue(ctx, item)
	}
}
