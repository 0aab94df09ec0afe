package coaching

import (
	"context"
	"log"
	"time"
)

// Worker runs the autonomy engine and proactive engagement sweeps on a
// fixed interval
type Worker struct {
	engine          *Engine
	intervalMinutes int
	stopChan        chan struct{}
}

// NewWorker creates the background coaching worker
func NewWorker(engine *Engine, intervalMinutes int) *Worker {
	if intervalMinutes <= 0 {
		intervalMinutes = 60
	}
	return &Worker{
		engine:          engine,
		intervalMinutes: intervalMinutes,
		stopChan:        make(chan struct{}),
	}
}

// Start begins the periodic sweep loop
func (w *Worker) Start() {
	log.Printf("[CoachingWorker] Starting autonomy worker (interval: %d minutes)", w.intervalMinutes)

	// Run first cycle immediately
	w.runCycleSafely()

	go w.scheduleLoop()
}

// Stop gracefully stops the worker
func (w *Worker) Stop() {
	log.Printf("[CoachingWorker] Stopping autonomy worker")
	close(w.stopChan)
}

func (w *Worker) scheduleLoop() {
	interval := time.Duration(w.intervalMinutes) * time.Minute
	for {
		select {
		case <-time.After(interval):
			w.runCycleSafely()
		case <-w.stopChan:
			log.Printf("[CoachingWorker] Stopped")
			return
		}
	}
}

// runCycleSafely runs one sweep with panic recovery
func (w *Worker) runCycleSafely() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[CoachingWorker] PANIC recovered: %v", r)
		}
	}()

	ctx := context.Background()

	adjusted, err := w.engine.RunAutonomyPass(ctx)
	if err != nil {
		log.Printf("[CoachingWorker] ERROR in autonomy pass: %v", err)
	} else if adjusted > 0 {
		log.Printf("[CoachingWorker] Autonomy pass adjusted %d goals", adjusted)
	}

	engaged, err := w.engine.ProactiveEngagement(ctx)
	if err != nil {
		log.Printf("[CoachingWorker] ERROR in proactive sweep: %v", err)
	} else if engaged > 0 {
		log.Printf("[CoachingWorker] Proactively engaged %d users", engaged)
	}
}
