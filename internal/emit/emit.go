// Package emit renders a type-checked, allocated Ast into x86-64 NASM
// assembly text, grounded on the original implementation's x86.hpp/
// x86.cpp (and asm.hpp/asm.cpp for the label model). Three bugs in the
// original are fixed here rather than reproduced, per DESIGN.md: the
// while-loop's break label used the continue label's type, the cast
// matrix used AT&T mnemonics in a NASM/Intel output, and `%` emitted a
// nonexistent `mod` instruction instead of idiv+remainder. The
// for-loop, which the original left as an empty stub, is fully
// implemented here.
package emit

import (
	"fmt"
	"strings"

	"github.com/qcc-project/qcc/internal/alloc"
	"github.com/qcc-project/qcc/internal/ast"
	"github.com/qcc-project/qcc/internal/trace"
	"github.com/qcc-project/qcc/internal/types"
)

// loopLabels tracks the innermost loop's continue/break targets so
// nested break/continue statements jump to the right labels.
type loopLabels struct {
	cont, brk Label
}

// Emitter renders one Ast into a single NASM source buffer.
type Emitter struct {
	out       strings.Builder
	labels    map[LabelKind]uint32
	alloc     *alloc.Allocator
	tr        *trace.Tracer
	loops     []loopLabels
	strings   []string
	strSeq    int
	curFn     *ast.Function
	returnLbl Label
}

// New builds an Emitter backed by allocator's storage/frame decisions.
func New(allocator *alloc.Allocator, tr *trace.Tracer) *Emitter {
	return &Emitter{labels: map[LabelKind]uint32{}, alloc: allocator, tr: tr}
}

func (e *Emitter) label(kind LabelKind) Label {
	n := e.labels[kind]
	e.labels[kind] = n + 1
	l := Label{Kind: kind, Count: n}
	e.tr.Label(kind.name(), n)
	return l
}

func (e *Emitter) line(format string, args ...any) {
	fmt.Fprintf(&e.out, format+"\n", args...)
}

// Emit renders tree's top-level function statements into NASM text.
func Emit(tree *ast.Ast, allocator *alloc.Allocator, tr *trace.Tracer) (string, error) {
	e := New(allocator, tr)
	e.line("BITS 64")
	e.line("section .text")
	e.line("global _start")
	e.line("")

	for _, stmt := range tree.TopScope.Body {
		if fs, ok := stmt.(*ast.FunctionStatement); ok && fs.HasBody {
			if err := e.emitFunction(fs.Function); err != nil {
				return "", err
			}
		}
	}

	if len(e.strings) > 0 {
		e.line("")
		e.line("section .data")
		for i, s := range e.strings {
			e.line("str%d: db %s, 0", i, dbEncode(s))
		}
	}

	if err := e.emitGlobals(); err != nil {
		return "", err
	}

	return e.out.String(), nil
}

// emitGlobals lays out every SourceData variable the allocator found at
// file scope. A zero-initialized global goes in section .bss as a
// reserved-but-unwritten slot (resb/resw/resd/resq, by size); a
// constant-initialized one goes in section .data next to it, same
// split the loader itself makes between the static image and the
// zero page it maps in.
func (e *Emitter) emitGlobals() error {
	globals := e.alloc.Globals()
	if len(globals) == 0 {
		return nil
	}

	var bss, data []alloc.Global
	for _, g := range globals {
		if g.Init == nil {
			bss = append(bss, g)
		} else {
			data = append(data, g)
		}
	}

	if len(data) > 0 {
		e.line("")
		e.line("section .data")
		for _, g := range data {
			e.line("g%d: %s %d", g.Variable.Source.DataOffset, dataDirective(g.Variable.Type.Size), g.Init.Value)
		}
	}

	if len(bss) > 0 {
		e.line("")
		e.line("section .bss")
		for _, g := range bss {
			e.line("g%d: %s 1", g.Variable.Source.DataOffset, resDirective(g.Variable.Type.Size))
		}
	}

	return nil
}

func dataDirective(size int) string {
	switch {
	case size <= 1:
		return "db"
	case size <= 2:
		return "dw"
	case size <= 4:
		return "dd"
	default:
		return "dq"
	}
}

func resDirective(size int) string {
	switch {
	case size <= 1:
		return "resb"
	case size <= 2:
		return "resw"
	case size <= 4:
		return "resd"
	default:
		return "resq"
	}
}

func dbEncode(s string) string {
	var parts []string
	cur := strings.Builder{}
	flush := func() {
		if cur.Len() > 0 {
			parts = append(parts, fmt.Sprintf("%q", cur.String()))
			cur.Reset()
		}
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 0x20 || c > 0x7e {
			flush()
			parts = append(parts, fmt.Sprintf("%d", c))
		} else {
			cur.WriteByte(c)
		}
	}
	flush()
	if len(parts) == 0 {
		return `""`
	}
	return strings.Join(parts, ", ")
}

func (e *Emitter) emitFunction(fn *ast.Function) error {
	e.curFn = fn
	if fn.IsMain {
		e.line("_start:")
	} else {
		e.line("%s:", fn.Name)
	}
	e.line("\tpush rbp")
	e.line("\tmov rbp, rsp")
	frame := types.AlignUp(fn.StackSize, 16)
	if frame > 0 {
		e.line("\tsub rsp, %d", frame)
	}

	e.returnLbl = e.label(LabelReturn)
	for _, stmt := range fn.Scope.Body {
		if err := e.emitStatement(stmt); err != nil {
			return err
		}
	}
	e.line("%s:", e.returnLbl)
	if fn.IsMain {
		e.line("\tmov rbx, rax")
		e.line("\tmov rax, 1")
		e.line("\tmov rsp, rbp")
		e.line("\tpop rbp")
		e.line("\tint 0x80")
	} else {
		e.line("\tmov rsp, rbp")
		e.line("\tpop rbp")
		e.line("\tret")
	}
	e.line("")
	return nil
}

func (e *Emitter) emitStatement(stmt ast.Statement) error {
	switch s := stmt.(type) {
	case *ast.ScopeStatement:
		for _, b := range s.Scope.Body {
			if err := e.emitStatement(b); err != nil {
				return err
			}
		}
	case *ast.DefineStatement:
		for d := s; d != nil; d = d.Next {
			if d.Initializer != nil {
				if err := e.emitExpression(&ast.AssignExpression{
					Lhs: &ast.IdExpression{Variable: d.Variable, Name: d.Variable.Name}, Rhs: d.Initializer}); err != nil {
					return err
				}
			}
		}
	case *ast.ExpressionStatement:
		return e.emitExpression(s.Expression)
	case *ast.ConditionStatement:
		return e.emitCondition(s)
	case *ast.WhileStatement:
		return e.emitWhile(s)
	case *ast.ForStatement:
		return e.emitFor(s)
	case *ast.ReturnStatement:
		if s.Expression != nil {
			// emitExpression always leaves its result in rax.
			if err := e.emitExpression(s.Expression); err != nil {
				return err
			}
		}
		e.line("\tjmp %s", e.returnLbl)
	case *ast.JumpStatement:
		if len(e.loops) == 0 {
			return fmt.Errorf("break/continue outside of a loop")
		}
		top := e.loops[len(e.loops)-1]
		if s.Kind == ast.StmtBreak {
			e.line("\tjmp %s", top.brk)
		} else {
			e.line("\tjmp %s", top.cont)
		}
	}
	return nil
}

func (e *Emitter) emitCondition(s *ast.ConditionStatement) error {
	elseLbl := e.label(LabelElse)
	endLbl := e.label(LabelIfEnd)
	if err := e.emitBooleanJumpIfFalse(s.Boolean, elseLbl); err != nil {
		return err
	}
	if err := e.emitStatement(s.Then); err != nil {
		return err
	}
	e.line("\tjmp %s", endLbl)
	e.line("%s:", elseLbl)
	if s.Else != nil {
		if err := e.emitStatement(s.Else); err != nil {
			return err
		}
	}
	e.line("%s:", endLbl)
	return nil
}

func (e *Emitter) emitWhile(s *ast.WhileStatement) error {
	contLbl := e.label(LabelContinue)
	breakLbl := e.label(LabelBreak)
	e.line("%s:", contLbl)
	if err := e.emitBooleanJumpIfFalse(s.Boolean, breakLbl); err != nil {
		return err
	}
	e.loops = append(e.loops, loopLabels{cont: contLbl, brk: breakLbl})
	err := e.emitStatement(s.Statement)
	e.loops = e.loops[:len(e.loops)-1]
	if err != nil {
		return err
	}
	e.line("\tjmp %s", contLbl)
	e.line("%s:", breakLbl)
	return nil
}

// emitFor fully implements the for-loop (the original left this
// empty): init, then a condition test before each iteration, the
// body, the loop expression, and a jump back to the test — structured
// like emitWhile but with the extra init/loop clauses.
func (e *Emitter) emitFor(s *ast.ForStatement) error {
	if s.Init != nil {
		if err := e.emitStatement(s.Init); err != nil {
			return err
		}
	}
	testLbl := e.label(LabelContinue)
	breakLbl := e.label(LabelBreak)
	e.line("%s:", testLbl)
	if s.Boolean != nil {
		if err := e.emitBooleanJumpIfFalse(s.Boolean, breakLbl); err != nil {
			return err
		}
	}
	e.loops = append(e.loops, loopLabels{cont: testLbl, brk: breakLbl})
	err := e.emitStatement(s.Statement)
	e.loops = e.loops[:len(e.loops)-1]
	if err != nil {
		return err
	}
	if s.Loop != nil {
		if err := e.emitExpression(s.Loop); err != nil {
			return err
		}
	}
	e.line("\tjmp %s", testLbl)
	e.line("%s:", breakLbl)
	return nil
}

// emitBooleanJumpIfFalse evaluates cond and jumps to falseLbl when it
// is zero.
func (e *Emitter) emitBooleanJumpIfFalse(cond ast.Expression, falseLbl Label) error {
	if err := e.emitExpression(cond); err != nil {
		return err
	}
	size := cond.Type().Decay().Size
	if size < 1 {
		size = 4
	}
	e.line("\tcmp %s, 0", sizedReg("rax", size))
	e.line("\tje %s", falseLbl)
	return nil
}
