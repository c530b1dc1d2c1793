package emit

import (
	"fmt"
	"strings"

	"github.com/qcc-project/qcc/internal/ast"
	"github.com/qcc-project/qcc/internal/token"
	"github.com/qcc-project/qcc/internal/types"
)

// emitExpression renders expr and leaves its value in rax (sized to
// expr.Type().Size, or the full address for an array, which decays to
// its address rather than a loaded value — see the IdExpression case).
func (e *Emitter) emitExpression(expr ast.Expression) error {
	switch v := expr.(type) {
	case *ast.IntExpression:
		e.line("\tmov rax, %d", v.Value)
		return nil
	case *ast.FloatExpression:
		// Scalar load/store is the only float support this emitter
		// targets (see SPEC_FULL.md's carried-over Non-goals); the
		// literal's truncated integer value stands in for a true
		// floating-point immediate load.
		e.line("\tmov rax, %d", int64(v.Value))
		return nil
	case *ast.StringExpression:
		idx := e.internString(v.Value)
		e.line("\tlea rax, [rel str%d]", idx)
		return nil
	case *ast.IdExpression:
		return e.emitIdExpression(v)
	case *ast.NestedExpression:
		return e.emitExpression(v.Operand)
	case *ast.RefExpression:
		return e.emitExpression(&ast.IdExpression{Variable: v.Variable, Name: v.Variable.Name})
	case *ast.UnaryExpression:
		return e.emitUnary(v)
	case *ast.BinaryExpression:
		return e.emitBinary(v)
	case *ast.TernaryExpression:
		return e.emitTernary(v)
	case *ast.CommaExpression:
		if err := e.emitExpression(v.Lhs); err != nil {
			return err
		}
		return e.emitExpression(v.Rhs)
	case *ast.AssignExpression:
		return e.emitAssign(v)
	case *ast.CastExpression:
		return e.emitCast(v)
	case *ast.DotExpression:
		return e.emitLoad(v)
	case *ast.DerefExpression:
		return e.emitLoad(v)
	case *ast.AddressExpression:
		loc, _, err := e.emitLocation(v.Operand)
		if err != nil {
			return err
		}
		inner, ok := memInner(loc)
		if !ok {
			return fmt.Errorf("cannot take the address of a register-resident value")
		}
		e.line("\tlea rax, [%s]", inner)
		return nil
	case *ast.InvokeExpression:
		return e.emitInvoke(v)
	}
	return fmt.Errorf("emit: unhandled expression %T", expr)
}

func (e *Emitter) internString(s string) int {
	for i, existing := range e.strings {
		if existing == s {
			return i
		}
	}
	e.strings = append(e.strings, s)
	return len(e.strings) - 1
}

func (e *Emitter) emitIdExpression(v *ast.IdExpression) error {
	if v.Function != nil {
		e.line("\tlea rax, [rel %s]", v.Function.Name)
		return nil
	}
	t := v.Variable.Type
	if t.Kind == types.Array {
		loc, _, err := e.emitLocation(v)
		if err != nil {
			return err
		}
		inner, ok := memInner(loc)
		if !ok {
			return fmt.Errorf("array variable has no address")
		}
		e.line("\tlea rax, [%s]", inner)
		return nil
	}
	return e.emitLoad(v)
}

// emitLoad resolves expr's storage location and loads its value into
// rax, sign- or zero-extending a sub-qword memory operand according to
// expr's own signedness so a negative narrow value round-trips correctly
// into later full-width arithmetic. An array-typed expression (a row of
// a multi-dimensional array, or an array member) yields its address.
func (e *Emitter) emitLoad(expr ast.Expression) error {
	loc, size, err := e.emitLocation(expr)
	if err != nil {
		return err
	}
	if expr.Type().Kind == types.Array {
		inner, ok := memInner(loc)
		if !ok {
			return fmt.Errorf("array value has no address")
		}
		e.line("\tlea rax, [%s]", inner)
		return nil
	}
	if !strings.Contains(loc, "[") {
		e.line("\tmov %s, %s", sizedReg("rax", size), loc)
		return nil
	}
	if size >= 8 {
		e.line("\tmov rax, %s", loc)
		return nil
	}
	if expr.Type().Mod&types.Unsigned != 0 {
		e.line("\tmovzx rax, %s", loc)
	} else {
		e.line("\tmovsx rax, %s", loc)
	}
	return nil
}

// emitLocation resolves an lvalue expression to an assembly operand:
// either a bare register alias (no brackets, for a Gpr-resident
// Variable) or a sized memory operand ("qword [rbp-8]",
// "dword [rcx+4]"), grounded on emit_expression_source's recursive
// Source computation.
func (e *Emitter) emitLocation(expr ast.Expression) (string, int, error) {
	switch v := expr.(type) {
	case *ast.NestedExpression:
		return e.emitLocation(v.Operand)
	case *ast.IdExpression:
		size := v.Variable.Type.Size
		switch v.Variable.Source.Kind {
		case ast.SourceGpr:
			return gprAlias(v.Variable.Source.Reg, size), size, nil
		case ast.SourceData:
			return fmt.Sprintf("%s [rel g%d]", spec(size), v.Variable.Source.DataOffset), size, nil
		default:
			return fmt.Sprintf("%s [rbp%+d]", spec(size), v.Variable.Source.StackOffset), size, nil
		}
	case *ast.DerefExpression:
		if err := e.emitExpression(v.Operand); err != nil {
			return "", 0, err
		}
		e.line("\tmov rcx, rax")
		size := v.Type().Size
		return fmt.Sprintf("%s [rcx]", spec(size)), size, nil
	case *ast.DotExpression:
		base, _, err := e.emitLocation(v.Record)
		if err != nil {
			return "", 0, err
		}
		size := v.ResultType.Size
		inner, ok := memInner(base)
		if !ok {
			return "", 0, fmt.Errorf("member access on a register-resident aggregate")
		}
		return fmt.Sprintf("%s [%s%+d]", spec(size), inner, v.Offset), size, nil
	}
	return "", 0, fmt.Errorf("expression is not an lvalue")
}

func memInner(operand string) (string, bool) {
	i := strings.Index(operand, "[")
	j := strings.Index(operand, "]")
	if i < 0 || j < 0 || j < i {
		return "", false
	}
	return operand[i+1 : j], true
}

func (e *Emitter) emitUnary(v *ast.UnaryExpression) error {
	if v.Operation == token.Increment || v.Operation == token.Decrement {
		return e.emitIncrement(v)
	}
	if err := e.emitExpression(v.Operand); err != nil {
		return err
	}
	size := v.ResultType.Size
	reg := sizedReg("rax", size)
	switch v.Operation {
	case token.Sub:
		e.line("\tneg %s", reg)
	case token.BinNot:
		e.line("\tnot %s", reg)
	case token.Not:
		e.line("\tcmp %s, 0", reg)
		e.line("\tsete al")
		e.line("\tmovzx rax, al")
	default:
		return fmt.Errorf("emit: unhandled unary operator %s", v.Operation)
	}
	return nil
}

// emitIncrement handles prefix/postfix ++/--, scaling by the pointee
// size when the operand is a pointer, and preserving the original
// value for a postfix result, grounded on emit_increment_expression.
func (e *Emitter) emitIncrement(v *ast.UnaryExpression) error {
	loc, size, err := e.emitLocation(v.Operand)
	if err != nil {
		return err
	}
	scale := 1
	if t := v.Operand.Type(); t.Kind == types.Pointer && t.Pointee != nil && t.Pointee.Size > 0 {
		scale = t.Pointee.Size
	}
	reg := sizedReg("rax", size)
	if strings.Contains(loc, "[") {
		e.line("\tmov %s, %s", reg, loc)
	} else {
		e.line("\tmov %s, %s", reg, loc)
	}
	if v.Order == ast.Postfix {
		e.line("\tpush rax")
	}
	delta := scale
	if v.Operation == token.Decrement {
		delta = -delta
	}
	e.line("\tadd %s, %d", reg, delta)
	if strings.Contains(loc, "[") {
		e.line("\tmov %s, %s", loc, reg)
	} else {
		e.line("\tmov %s, %s", loc, reg)
	}
	if v.Order == ast.Postfix {
		e.line("\tpop rax")
	}
	return nil
}

func (e *Emitter) emitBinary(v *ast.BinaryExpression) error {
	if v.Operation == token.And || v.Operation == token.Or {
		return e.emitLogical(v)
	}
	if err := e.emitExpression(v.Lhs); err != nil {
		return err
	}
	e.line("\tpush rax")
	if err := e.emitExpression(v.Rhs); err != nil {
		return err
	}
	e.line("\tmov rdi, rax")
	e.line("\tpop rax")

	if (v.Operation == token.Add || v.Operation == token.Sub) && v.ResultType.Kind == types.Pointer {
		if size := v.ResultType.Pointee.Size; size > 1 {
			// Whichever side is the integer operand is the one that
			// needs scaling: for `int + ptr` that is lhs (in rax), for
			// `ptr + int`/`ptr - int` it is rhs (in rdi).
			if v.Rhs.Type().Decay().Kind == types.Pointer {
				e.line("\timul rax, %d", size)
			} else {
				e.line("\timul rdi, %d", size)
			}
		}
	}

	size := v.ResultType.Size
	if size < 1 {
		size = 4
	}
	rax, rdi := sizedReg("rax", size), sizedReg("rdi", size)
	switch v.Operation {
	case token.Add:
		e.line("\tadd %s, %s", rax, rdi)
	case token.Sub:
		e.line("\tsub %s, %s", rax, rdi)
	case token.Star:
		e.line("\timul %s, %s", rax, rdi)
	case token.Div:
		e.line("\tcqo")
		e.line("\tidiv rdi")
	case token.Mod:
		// The original emits a literal "mod" opcode, which does not
		// exist on x86-64; idiv leaves the remainder in rdx.
		e.line("\tcqo")
		e.line("\tidiv rdi")
		e.line("\tmov rax, rdx")
	case token.Ampersand:
		e.line("\tand %s, %s", rax, rdi)
	case token.BinOr:
		e.line("\tor %s, %s", rax, rdi)
	case token.BinXor:
		e.line("\txor %s, %s", rax, rdi)
	case token.ShiftL:
		e.line("\tmov cl, dil")
		e.line("\tsal %s, cl", rax)
	case token.ShiftR:
		e.line("\tmov cl, dil")
		e.line("\tsar %s, cl", rax)
	case token.Eq, token.NotEq, token.Less, token.Greater, token.LessEq, token.GreaterEq:
		e.line("\tcmp rax, rdi")
		e.line("\t%s al", setccFor(v.Operation))
		e.line("\tmovzx rax, al")
	default:
		return fmt.Errorf("emit: unhandled binary operator %s", v.Operation)
	}
	return nil
}

func setccFor(op token.Kind) string {
	switch op {
	case token.Eq:
		return "sete"
	case token.NotEq:
		return "setne"
	case token.Less:
		return "setl"
	case token.Greater:
		return "setg"
	case token.LessEq:
		return "setle"
	case token.GreaterEq:
		return "setge"
	default:
		return "sete"
	}
}

// emitLogical short-circuits && and ||.
func (e *Emitter) emitLogical(v *ast.BinaryExpression) error {
	shortLbl := e.label(LabelTernaryElse)
	endLbl := e.label(LabelTernaryEnd)
	if err := e.emitExpression(v.Lhs); err != nil {
		return err
	}
	e.line("\tcmp rax, 0")
	if v.Operation == token.And {
		e.line("\tje %s", shortLbl)
	} else {
		e.line("\tjne %s", shortLbl)
	}
	if err := e.emitExpression(v.Rhs); err != nil {
		return err
	}
	e.line("\tcmp rax, 0")
	e.line("\tsetne al")
	e.line("\tmovzx rax, al")
	e.line("\tjmp %s", endLbl)
	e.line("%s:", shortLbl)
	if v.Operation == token.And {
		e.line("\tmov rax, 0")
	} else {
		e.line("\tmov rax, 1")
	}
	e.line("%s:", endLbl)
	return nil
}

func (e *Emitter) emitTernary(v *ast.TernaryExpression) error {
	elseLbl := e.label(LabelTernaryElse)
	endLbl := e.label(LabelTernaryEnd)
	if err := e.emitBooleanJumpIfFalse(v.Boolean, elseLbl); err != nil {
		return err
	}
	if err := e.emitExpression(v.Then); err != nil {
		return err
	}
	e.line("\tjmp %s", endLbl)
	e.line("%s:", elseLbl)
	if err := e.emitExpression(v.Else); err != nil {
		return err
	}
	e.line("%s:", endLbl)
	return nil
}

// emitAssign stores rhs into lhs's location. Aggregate (struct/union)
// assignment copies via descending power-of-two chunk sizes from the
// rounded-up total size, grounded on emit_assign_expression.
func (e *Emitter) emitAssign(v *ast.AssignExpression) error {
	if v.Lhs.Type().Kind.Has(types.Record) {
		return e.emitAggregateAssign(v)
	}
	if err := e.emitExpression(v.Rhs); err != nil {
		return err
	}
	loc, size, err := e.emitLocation(v.Lhs)
	if err != nil {
		return err
	}
	e.line("\tmov %s, %s", loc, sizedReg("rax", size))
	return nil
}

func (e *Emitter) emitAggregateAssign(v *ast.AssignExpression) error {
	dstLoc, _, err := e.emitLocation(v.Lhs)
	if err != nil {
		return err
	}
	dstInner, ok := memInner(dstLoc)
	if !ok {
		return fmt.Errorf("aggregate assignment target is not addressable")
	}
	if err := e.emitAddressOf(v.Rhs); err != nil {
		return err
	}
	e.line("\tmov rsi, rax")
	e.line("\tlea rdi, [%s]", dstInner)

	total := types.AlignUp(v.Lhs.Type().Size, 8)
	offset := 0
	for _, chunk := range []int{8, 4, 2, 1} {
		for total-offset >= chunk {
			reg := sizedReg("rax", chunk)
			e.line("\tmov %s, [rsi+%d]", reg, offset)
			e.line("\tmov [rdi+%d], %s", offset, reg)
			offset += chunk
		}
	}
	return nil
}

// emitAddressOf computes expr's address into rax, used when an
// aggregate rvalue (the right side of a struct copy) must be read by
// address rather than loaded as a scalar value.
func (e *Emitter) emitAddressOf(expr ast.Expression) error {
	loc, _, err := e.emitLocation(expr)
	if err != nil {
		return err
	}
	inner, ok := memInner(loc)
	if !ok {
		return fmt.Errorf("aggregate source is not addressable")
	}
	e.line("\tlea rax, [%s]", inner)
	return nil
}

// emitCast renders an explicit or implicit conversion. int<->float
// conversions are out of this emitter's scope (see Non-goals); among
// integer widths this widens via movsx/movzx when the destination is
// wider than the source and emits nothing otherwise, using genuine
// NASM/Intel mnemonics rather than the original's AT&T-flavored
// Cast_Matrix strings (see DESIGN.md).
func (e *Emitter) emitCast(v *ast.CastExpression) error {
	if err := e.emitExpression(v.Operand); err != nil {
		return err
	}
	from := v.Operand.Type().Decay()
	into := v.Target
	if from.Kind.Has(types.Float|types.Double) || into.Kind.Has(types.Float|types.Double) {
		return nil
	}
	fromSize, intoSize := from.Size, into.Size
	if intoSize <= fromSize || intoSize == 0 || fromSize == 0 {
		return nil
	}
	src := sizedReg("rax", fromSize)
	dst := sizedReg("rax", intoSize)
	if from.Mod&types.Unsigned != 0 {
		e.line("\tmovzx %s, %s", dst, src)
	} else {
		e.line("\tmovsx %s, %s", dst, src)
	}
	return nil
}

// emitInvoke emits a call: live register-resident variables are
// pushed before the call and popped back in reverse after, arguments
// are deposited right-to-left (so the first parameter ends up
// topmost, addressable at the callee's lowest positive frame offset),
// and the return value arrives in rax already, grounded on
// emit_invoke_expression.
func (e *Emitter) emitInvoke(v *ast.InvokeExpression) error {
	live := e.alloc.LiveAt(v)
	for _, lv := range live {
		loc, size, err := e.emitLocation(&ast.IdExpression{Variable: lv, Name: lv.Name})
		if err != nil {
			return err
		}
		_ = size
		e.line("\tpush %s", registerQword(loc))
	}

	for i := len(v.Arguments) - 1; i >= 0; i-- {
		value := argumentValue(v.Arguments[i])
		if err := e.emitExpression(value); err != nil {
			return err
		}
		e.line("\tpush rax")
	}

	e.line("\tcall %s", v.Function.Name)
	if v.Function.InvokeSize > 0 {
		e.line("\tadd rsp, %d", v.Function.InvokeSize)
	}

	for i := len(live) - 1; i >= 0; i-- {
		loc, _, err := e.emitLocation(&ast.IdExpression{Variable: live[i], Name: live[i].Name})
		if err != nil {
			return err
		}
		e.line("\tpop %s", registerQword(loc))
	}
	return nil
}

// argumentValue unwraps the parser's synthetic Ref/Assign argument
// node to the raw value expression the emitter must evaluate; the
// wrapper exists only so the parser/allocator can associate each
// argument with its matching parameter.
func argumentValue(arg ast.Expression) ast.Expression {
	if assign, ok := arg.(*ast.AssignExpression); ok {
		return assign.Rhs
	}
	return arg
}

// registerQword widens a (possibly sub-64-bit) register alias back to
// its 64-bit form, since push/pop always operate on full registers in
//64-bit mode.
func registerQword(loc string) string {
	if strings.Contains(loc, "[") {
		return "rax" // unreachable: live variables are always register-resident
	}
	for _, e := range pool {
		if loc == e.q || loc == e.d || loc == e.w || loc == e.b {
			return e.q
		}
	}
	return loc
}
