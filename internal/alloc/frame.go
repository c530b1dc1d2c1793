package alloc

import (
	"github.com/qcc-project/qcc/internal/ast"
	"github.com/qcc-project/qcc/internal/types"
)

// layoutFrame computes stack offsets for every stack-resident variable
// in fn: parameters get positive offsets starting at +16 (above the
// saved return address and saved rbp), locals get negative offsets,
// each rounded up by AlignUp(offset, size) — the corrected form of the
// original's align_up (DESIGN.md Open Question #1). Parameters are
// always spaced a full 8 bytes apart regardless of their declared
// size: internal/emit deposits every argument with a uniform `push`
// (always 8 bytes on x86-64 regardless of operand width), so the
// callee's frame offsets and the caller's `add rsp, InvokeSize`
// cleanup must agree on that same 8-byte stride.
func (a *Allocator) layoutFrame(fn *ast.Function) {
	const slot = 8
	offset := 16
	for _, param := range fn.Parameters {
		if param.Source.Kind == ast.SourceStack {
			param.Source.StackOffset = offset
		}
		offset += slot
	}
	fn.InvokeSize = slot * len(fn.Parameters)

	local := 0
	walkFrameStatements(fn.Scope.Body, &local)
	fn.StackSize = local
}

func alignedSize(t *types.Type) int {
	size := t.Size
	if size < 1 {
		return 1
	}
	return size
}

func walkFrameStatements(body []ast.Statement, local *int) {
	for _, stmt := range body {
		walkFrameStatement(stmt, local)
	}
}

func walkFrameStatement(stmt ast.Statement, local *int) {
	switch s := stmt.(type) {
	case *ast.ScopeStatement:
		walkFrameStatements(s.Scope.Body, local)
	case *ast.DefineStatement:
		for d := s; d != nil; d = d.Next {
			if d.Variable.Source.Kind == ast.SourceStack {
				size := alignedSize(d.Variable.Type)
				*local = types.AlignUp(*local+size, size)
				d.Variable.Source.StackOffset = -*local
			}
		}
	case *ast.ConditionStatement:
		walkFrameStatement(s.Then, local)
		if s.Else != nil {
			walkFrameStatement(s.Else, local)
		}
	case *ast.WhileStatement:
		walkFrameStatement(s.Statement, local)
	case *ast.ForStatement:
		if s.Init != nil {
			walkFrameStatement(s.Init, local)
		}
		walkFrameStatement(s.Statement, local)
	}
}
