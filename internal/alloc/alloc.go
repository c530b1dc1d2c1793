// Package alloc implements qcc's lifetime-based register allocator:
// phase 1 collects each variable's use range over a monotonic step
// counter, phase 2 assigns GPR/FPR/stack storage as each variable's
// range opens and closes, and phase 3 lays out the function's stack
// frame for whatever phase 2 left on the stack. Grounded on the
// original implementation's allocator.hpp/allocator.cpp, run once per
// function (register pools do not carry across functions).
package alloc

import (
	"fmt"

	"github.com/qcc-project/qcc/internal/ast"
	"github.com/qcc-project/qcc/internal/config"
	"github.com/qcc-project/qcc/internal/trace"
	"github.com/qcc-project/qcc/internal/types"
)

type useRange struct {
	begin, end uint32
}

// Allocator runs the three allocation phases over one function at a
// time.
type Allocator struct {
	gprCount, fprCount int
	tr                 *trace.Tracer

	usesRange    map[*ast.Variable]*useRange
	usesTimeline []map[*ast.Variable]bool
	callStep     map[*ast.InvokeExpression]uint32
	step         uint32

	globals []Global
}

// Global pairs a file-scope variable with the constant it was
// initialized to, or a nil Init for a zero-initialized one.
// internal/emit uses Init to decide between section .data and .bss.
type Global struct {
	Variable *ast.Variable
	Init     *ast.IntExpression
}

// New builds an Allocator sized by cfg's register pool counts.
func New(cfg config.Options, tr *trace.Tracer) *Allocator {
	return &Allocator{gprCount: cfg.GprCount, fprCount: cfg.FprCount, tr: tr, callStep: map[*ast.InvokeExpression]uint32{}}
}

// Allocate walks every top-level function in tree and assigns storage
// and frame layout to each. Top-level DefineStatements (globals) are
// not functions, so they skip the three function-scoped phases
// entirely and instead get a SourceData slot in program order,
// mirroring how internal/emit already slots string literals into
// section .data by sequential index.
func (a *Allocator) Allocate(tree *ast.Ast) error {
	for _, stmt := range tree.TopScope.Body {
		switch s := stmt.(type) {
		case *ast.FunctionStatement:
			if s.HasBody {
				a.allocateFunction(s.Function)
			}
		case *ast.DefineStatement:
			if err := a.allocateGlobals(s); err != nil {
				return err
			}
		}
	}
	return nil
}

// allocateGlobals assigns a data slot to every variable in a top-level
// comma-chained define. A global's initializer, unlike a local's, must
// already be a folded constant by the time it reaches codegen: there is
// no instruction stream at file scope to evaluate it in, only a static
// image the loader places in memory before _start runs.
func (a *Allocator) allocateGlobals(head *ast.DefineStatement) error {
	for d := head; d != nil; d = d.Next {
		var init *ast.IntExpression
		switch v := d.Initializer.(type) {
		case nil:
			// zero-initialized, lands in .bss
		case *ast.IntExpression:
			init = v
		default:
			return fmt.Errorf("global %q: initializer must be a constant integer", d.Variable.Name)
		}
		d.Variable.Source = ast.Source{Kind: ast.SourceData, DataOffset: len(a.globals)}
		a.globals = append(a.globals, Global{Variable: d.Variable, Init: init})
	}
	return nil
}

// Globals returns every top-level variable Allocate assigned a
// SourceData slot to, in the order internal/emit must lay them out.
func (a *Allocator) Globals() []Global {
	return a.globals
}

// LiveAt returns the register-resident variables alive at the step
// recorded for call, i.e. the set internal/emit must push before the
// call instruction and pop, in reverse, immediately after.
func (a *Allocator) LiveAt(call *ast.InvokeExpression) []*ast.Variable {
	step, ok := a.callStep[call]
	if !ok || int(step) >= len(a.usesTimeline) {
		return nil
	}
	var live []*ast.Variable
	for v := range a.usesTimeline[step] {
		if v.Source.Kind == ast.SourceGpr || v.Source.Kind == ast.SourceFpr {
			live = append(live, v)
		}
	}
	return live
}

func (a *Allocator) allocateFunction(fn *ast.Function) {
	a.usesRange = map[*ast.Variable]*useRange{}
	a.usesTimeline = nil
	a.step = 0

	a.tr.AllocPhase(fn.Name, "use-ranges")
	for _, param := range fn.Parameters {
		a.newUse(param)
	}
	for _, stmt := range fn.Scope.Body {
		a.walkStatement(stmt)
	}

	a.tr.AllocPhase(fn.Name, "storage")
	a.assignStorage(fn)

	a.tr.AllocPhase(fn.Name, "frame-layout")
	a.layoutFrame(fn)
}

func (a *Allocator) ensureTimeline(step uint32) {
	for uint32(len(a.usesTimeline)) <= step {
		a.usesTimeline = append(a.usesTimeline, map[*ast.Variable]bool{})
	}
}

// newUse records a use of v at the allocator's current step, extending
// its range's end forward and re-marking the variable live across
// every intervening step — re-extending liveness across reuse,
// grounded on parse_new_use.
func (a *Allocator) newUse(v *ast.Variable) {
	if v == nil || v.Type == nil || v.Type.Kind == types.Void || v.Source.Kind == ast.SourceData {
		return
	}
	step := a.step
	a.ensureTimeline(step)
	r, ok := a.usesRange[v]
	if !ok {
		a.usesRange[v] = &useRange{begin: step, end: step}
		a.usesTimeline[step][v] = true
		v.UseBegin, v.UseEnd = step, step
		a.tr.Use(v.Name, step, "begin")
		return
	}
	old := r.end
	r.end = step
	for i := old; i <= step; i++ {
		a.ensureTimeline(i)
		a.usesTimeline[i][v] = true
	}
	v.UseEnd = step
	a.tr.Use(v.Name, step, "extend")
}

func (a *Allocator) tick() uint32 {
	s := a.step
	a.step++
	return s
}

func (a *Allocator) walkStatement(stmt ast.Statement) {
	switch s := stmt.(type) {
	case *ast.ScopeStatement:
		for _, b := range s.Scope.Body {
			a.walkStatement(b)
		}
	case *ast.DefineStatement:
		for d := s; d != nil; d = d.Next {
			a.newUse(d.Variable)
			if d.Initializer != nil {
				a.walkExpression(d.Initializer)
			}
		}
	case *ast.ExpressionStatement:
		a.walkExpression(s.Expression)
	case *ast.ConditionStatement:
		a.walkExpression(s.Boolean)
		a.walkStatement(s.Then)
		if s.Else != nil {
			a.walkStatement(s.Else)
		}
	case *ast.WhileStatement:
		a.walkExpression(s.Boolean)
		a.walkStatement(s.Statement)
	case *ast.ForStatement:
		if s.Init != nil {
			a.walkStatement(s.Init)
		}
		if s.Boolean != nil {
			a.walkExpression(s.Boolean)
		}
		if s.Loop != nil {
			a.walkExpression(s.Loop)
		}
		a.walkStatement(s.Statement)
	case *ast.ReturnStatement:
		if s.Expression != nil {
			a.walkExpression(s.Expression)
		}
	}
}

func (a *Allocator) walkExpression(expr ast.Expression) {
	if expr == nil {
		return
	}
	a.tick()
	switch e := expr.(type) {
	case *ast.UnaryExpression:
		a.walkExpression(e.Operand)
	case *ast.BinaryExpression:
		a.walkExpression(e.Lhs)
		a.walkExpression(e.Rhs)
	case *ast.TernaryExpression:
		a.walkExpression(e.Boolean)
		a.walkExpression(e.Then)
		a.walkExpression(e.Else)
	case *ast.InvokeExpression:
		for _, arg := range e.Arguments {
			a.walkExpression(arg)
		}
		a.callStep[e] = a.step
		a.tick()
	case *ast.CommaExpression:
		a.walkExpression(e.Lhs)
		a.walkExpression(e.Rhs)
	case *ast.NestedExpression:
		a.walkExpression(e.Operand)
	case *ast.IdExpression:
		if e.Variable != nil {
			a.newUse(e.Variable)
		}
	case *ast.RefExpression:
		a.newUse(e.Variable)
	case *ast.AssignExpression:
		a.walkExpression(e.Lhs)
		a.walkExpression(e.Rhs)
	case *ast.CastExpression:
		a.walkExpression(e.Operand)
	case *ast.DotExpression:
		a.walkExpression(e.Record)
	case *ast.DerefExpression:
		a.walkExpression(e.Operand)
	case *ast.AddressExpression:
		a.walkExpression(e.Operand)
	}
}
