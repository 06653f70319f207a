package outbox

import (
	"context"
	"time"

	"medishare/internal/events"
	"medishare/pkg/logger"
)

type Runner struct {
	processor *Processor
}

func NewRunner(processor *Processor) *Runner {
	return &Runner{processor: processor}
}

func (r *Runner) Start(ctx context.Context) {
	go r.processor.Run(ctx)
}

func DefaultProcessor(bus events.Bus, log *logger.Logger) *Processor {
	return NewProcessor(bus, log, 100, time.Second*2, 5, 1000)
}
