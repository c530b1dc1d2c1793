// Package trace provides verbose pipeline tracing backed by zap,
// mirroring the original implementation's stderr tracing of context
// push/pop, allocator phase boundaries, and label emission.
package trace

import (
	"go.uber.org/zap"
)

// Tracer wraps a SugaredLogger that no-ops when tracing is disabled.
type Tracer struct {
	log *zap.SugaredLogger
}

// New builds a Tracer. When enabled is false, every call is a no-op
// (backed by zap.NewNop()) so call sites never branch on verbosity.
func New(enabled bool) *Tracer {
	if !enabled {
		return &Tracer{log: zap.NewNop().Sugar()}
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.DisableStacktrace = true
	logger, err := cfg.Build()
	if err != nil {
		return &Tracer{log: zap.NewNop().Sugar()}
	}
	return &Tracer{log: logger.Sugar()}
}

// ContextPush/ContextPop trace the parser's scope-context stack.
func (t *Tracer) ContextPush(kind string) { t.log.Debugw("context push", "kind", kind) }
func (t *Tracer) ContextPop(kind string)  { t.log.Debugw("context pop", "kind", kind) }

// AllocPhase traces a lifetime-allocator phase boundary.
func (t *Tracer) AllocPhase(function string, phase string) {
	t.log.Debugw("allocator phase", "function", function, "phase", phase)
}

// Use traces a use-range event for a variable.
func (t *Tracer) Use(variable string, step uint32, event string) {
	t.log.Debugw("use", "variable", variable, "step", step, "event", event)
}

// Label traces a label allocation in the emitter.
func (t *Tracer) Label(kind string, count uint32) {
	t.log.Debugw("label", "kind", kind, "count", count)
}

// Sync flushes the underlying logger.
func (t *Tracer) Sync() { _ = t.log.Sync() }
