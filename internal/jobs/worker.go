// Package jobs runs background maintenance for the analysis stores. The only
// processor today is the orphan sweeper, which reconciles blob storage
// against the metadata index.
package jobs

import (
	"context"
	"log"
	"time"
)

// Processor is one unit of periodic background work.
type Processor interface {
	// Name identifies the processor in logs.
	Name() string
	Run(ctx context.Context) error
}

// Worker drives a Processor on a fixed interval. The first run happens
// immediately on Start, then once per interval.
type Worker struct {
	processor Processor
	interval  time.Duration
	stopChan  chan struct{}
	doneChan  chan struct{}
}

func NewWorker(processor Processor, interval time.Duration) *Worker {
	return &Worker{
		processor: processor,
		interval:  interval,
		stopChan:  make(chan struct{}),
		doneChan:  make(chan struct{}),
	}
}

// Start blocks until the context is cancelled or Stop is called.
// Run it in its own goroutine.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	defer close(w.doneChan)

	log.Printf("%s worker started, interval %v", w.processor.Name(), w.interval)

	w.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Printf("%s worker stopped: context cancelled", w.processor.Name())
			return
		case <-w.stopChan:
			log.Printf("%s worker stopped", w.processor.Name())
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *Worker) runOnce(ctx context.Context) {
	if err := w.processor.Run(ctx); err != nil {
		log.Printf("%s worker run failed: %v", w.processor.Name(), err)
	}
}

// Stop signals the worker and waits for the current run to finish.
func (w *Worker) Stop() {
	close(w.stopChan)
	<-w.doneChan
}
