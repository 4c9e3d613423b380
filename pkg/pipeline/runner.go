package pipeline

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// How long the pump loop backs off after a module error before polling again,
// to avoid spinning on a persistently failing module.
const pumpErrorBackoff = 100 * time.Millisecond

// A Runner is a minimal pump for a set of connected modules. It owns the
// module lifecycle (Setup and PrepareRun on Run, Shutdown on Stop) and moves
// update messages along the registered edges on its own goroutines.
//
// This is deliberately not a full module-graph scheduler: there is no
// priority, no buffering beyond what each producer provides, and returned
// messages from a sink with no registered edge are dropped.
type Runner struct {
	logger *slog.Logger

	modules []Module
	pumps   []edge
	drains  []drainEdge

	stop         chan struct{}
	wg           sync.WaitGroup
	shutdownOnce sync.Once
}

type edge struct {
	source Module
	sinks  []Module
}

type drainEdge struct {
	source Producer
	sinks  []Module
}

func NewRunner(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		logger: logger,
		stop:   make(chan struct{}),
	}
}

// Pump registers a pull-driven source: the runner repeatedly calls
// source.ProcessUpdate(nil) and delivers any returned message to the sinks.
func (r *Runner) Pump(source Module, sinks ...Module) {
	r.register(source)
	for _, s := range sinks {
		r.register(s)
	}
	r.pumps = append(r.pumps, edge{source: source, sinks: sinks})
}

// Drain registers a push-driven source: the runner consumes the producer's
// output channel and delivers each message to the sinks.
func (r *Runner) Drain(source Producer, sinks ...Module) {
	r.register(source)
	for _, s := range sinks {
		r.register(s)
	}
	r.drains = append(r.drains, drainEdge{source: source, sinks: sinks})
}

func (r *Runner) register(m Module) {
	for _, existing := range r.modules {
		if existing == m {
			return
		}
	}
	r.modules = append(r.modules, m)
}

// Run sets up and starts every registered module, then starts the pump
// goroutines. On a setup failure the already set up modules are shut down
// again and the error is returned.
func (r *Runner) Run() error {
	for i, m := range r.modules {
		if err := m.Setup(); err != nil {
			r.logger.Error("module setup failed", "err", err)
			for j := i - 1; j >= 0; j-- {
				r.modules[j].Shutdown()
			}
			return fmt.Errorf("module setup: %w", err)
		}
	}
	for _, m := range r.modules {
		if err := m.PrepareRun(); err != nil {
			r.logger.Error("module prepare run failed", "err", err)
			r.Stop()
			return fmt.Errorf("module prepare run: %w", err)
		}
	}

	for _, p := range r.pumps {
		r.wg.Add(1)
		go r.pumpLoop(p)
	}
	for _, d := range r.drains {
		r.wg.Add(1)
		go r.drainLoop(d)
	}
	return nil
}

func (r *Runner) pumpLoop(e edge) {
	defer r.wg.Done()
	for {
		select {
		case <-r.stop:
			return
		default:
		}

		msg, err := e.source.ProcessUpdate(nil)
		if err != nil {
			r.logger.Error("source process update failed", "err", err)
			select {
			case <-r.stop:
				return
			case <-time.After(pumpErrorBackoff):
			}
			continue
		}
		if msg == nil {
			continue
		}
		r.deliver(msg, e.sinks)
	}
}

func (r *Runner) drainLoop(e drainEdge) {
	defer r.wg.Done()
	for {
		select {
		case <-r.stop:
			return
		case msg, ok := <-e.source.Output():
			if !ok {
				return
			}
			r.deliver(msg, e.sinks)
		}
	}
}

func (r *Runner) deliver(msg UpdateMessage, sinks []Module) {
	for _, sink := range sinks {
		out, err := sink.ProcessUpdate(msg)
		if err != nil {
			r.logger.Error("sink process update failed", "err", err)
			continue
		}
		if out != nil {
			// The sink produced a follow-up message but has no outgoing edge.
			r.logger.Debug("dropping unrouted update message", "updates", len(out))
		}
	}
}

// Stop halts the pump goroutines and shuts down every module in reverse
// registration order. Safe to call more than once.
func (r *Runner) Stop() {
	r.shutdownOnce.Do(func() {
		close(r.stop)
		r.wg.Wait()
		for i := len(r.modules) - 1; i >= 0; i-- {
			if err := r.modules[i].Shutdown(); err != nil {
				r.logger.Error("module shutdown failed", "err", err)
			}
		}
	})
}
