package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/qcc-project/qcc/internal/ast"
	"github.com/qcc-project/qcc/internal/diag"
	"github.com/qcc-project/qcc/internal/token"
	"github.com/qcc-project/qcc/internal/types"
)

// binaryPrecedence gives each binary operator's binding power; higher
// binds tighter. Grounded on precedence.cpp's table (spec.md §4.4),
// collapsed to the operators this grammar actually dispatches through
// parseBinary (assignment and the ternary `?:` are handled by their
// own, lower-precedence callers).
func binaryPrecedence(k token.Kind) (int, bool) {
	switch k {
	case token.Star, token.Div, token.Mod:
		return 10, true
	case token.Add, token.Sub:
		return 9, true
	case token.ShiftL, token.ShiftR:
		return 8, true
	case token.Less, token.Greater, token.LessEq, token.GreaterEq:
		return 7, true
	case token.Eq, token.NotEq:
		return 6, true
	case token.Ampersand:
		return 5, true
	case token.BinXor:
		return 4, true
	case token.BinOr:
		return 3, true
	case token.And:
		return 2, true
	case token.Or:
		return 1, true
	default:
		return 0, false
	}
}

var compoundAssignOps = map[token.Kind]token.Kind{
	token.AddAssign:    token.Add,
	token.SubAssign:    token.Sub,
	token.MulAssign:    token.Star,
	token.DivAssign:    token.Div,
	token.ModAssign:    token.Mod,
	token.ShiftLAssign: token.ShiftL,
	token.ShiftRAssign: token.ShiftR,
	token.BinAndAssign: token.Ampersand,
	token.BinXorAssign: token.BinXor,
	token.BinOrAssign:  token.BinOr,
}

// parseExpression is the comma-operator entry point.
func (p *Parser) parseExpression() (ast.Expression, error) {
	lhs, err := p.parseAssignment()
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.accept(token.Comma); !ok {
			return lhs, nil
		}
		rhs, err := p.parseAssignment()
		if err != nil {
			return nil, err
		}
		lhs = &ast.CommaExpression{Lhs: lhs, Rhs: rhs}
	}
}

// parseAssignment handles `=` and the compound-assignment operators,
// which desugar fully per DESIGN.md: `a op= b` type-checks `a op b`
// first (so e.g. `%=` on a float is rejected the same way `%` would
// be) and only then wraps the result in a plain assign.
func (p *Parser) parseAssignment() (ast.Expression, error) {
	lhs, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	if _, ok := p.accept(token.Assign); ok {
		rhs, err := p.parseAssignment()
		if err != nil {
			return nil, err
		}
		return p.makeAssign(lhs, rhs)
	}
	if op, ok := compoundAssignOps[p.peek().Kind]; ok {
		p.advance()
		rhs, err := p.parseAssignment()
		if err != nil {
			return nil, err
		}
		binResult, err := p.typecheckBinary(op, lhs, rhs)
		if err != nil {
			return nil, err
		}
		return p.makeAssign(lhs, binResult)
	}
	return lhs, nil
}

func (p *Parser) makeAssign(lhs, rhs ast.Expression) (ast.Expression, error) {
	if !isLvalue(lhs) {
		return nil, p.errorf(diag.Type, "left-hand side of assignment is not assignable")
	}
	rhs, err := p.castIfNeeded(rhs, lhs.Type())
	if err != nil {
		return nil, err
	}
	return &ast.AssignExpression{Lhs: lhs, Rhs: rhs}, nil
}

// parseTernary handles `boolean ? then : otherwise`, right-associative.
func (p *Parser) parseTernary() (ast.Expression, error) {
	cond, err := p.parseBinary(1)
	if err != nil {
		return nil, err
	}
	if _, ok := p.accept(token.Query); !ok {
		return cond, nil
	}
	then, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Colon); err != nil {
		return nil, err
	}
	els, err := p.parseAssignment()
	if err != nil {
		return nil, err
	}
	result := types.Merge(then.Type(), els.Type())
	return &ast.TernaryExpression{Boolean: cond, Then: then, Else: els, ResultType: result}, nil
}

// parseBinary is precedence-climbing over binaryPrecedence.
func (p *Parser) parseBinary(minPrec int) (ast.Expression, error) {
	lhs, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		prec, ok := binaryPrecedence(p.peek().Kind)
		if !ok || prec < minPrec {
			return lhs, nil
		}
		op := p.advance().Kind
		rhs, err := p.parseBinary(prec + 1)
		if err != nil {
			return nil, err
		}
		lhs, err = p.typecheckBinary(op, lhs, rhs)
		if err != nil {
			return nil, err
		}
	}
}

// typecheckBinary validates operand kinds and computes the result
// type, grounded on typecheck_binary_operand/typecheck_binary_expression:
// arrays decay to pointers, only scalars participate, %/bitwise ops
// reject float/double operands, and comparison/logical operators yield
// an int (qcc has no distinct bool type) while other operators
// propagate the (merged) left operand's type.
func (p *Parser) typecheckBinary(op token.Kind, lhs, rhs ast.Expression) (ast.Expression, error) {
	lt := lhs.Type().Decay()
	rt := rhs.Type().Decay()
	if !lt.Kind.Has(types.Scalar) || !rt.Kind.Has(types.Scalar) {
		return nil, p.errorf(diag.Type, "operator %s requires scalar operands", op)
	}
	switch op {
	case token.Mod, token.Ampersand, token.BinOr, token.BinXor, token.ShiftL, token.ShiftR:
		if lt.Kind.Has(types.Float|types.Double) || rt.Kind.Has(types.Float|types.Double) {
			return nil, p.errorf(diag.Type, "operator %s is not valid on floating-point operands", op)
		}
	case token.Add, token.Sub:
		if lt.Kind == types.Pointer && rt.Kind.Has(types.Float | types.Double) {
			return nil, p.errorf(diag.Type, "pointer arithmetic requires an integer operand")
		}
	}

	var result *types.Type
	switch op {
	case token.Eq, token.NotEq, token.Less, token.Greater, token.LessEq, token.GreaterEq, token.And, token.Or:
		result = types.NewScalar(types.Int, 0)
	case token.Add, token.Sub:
		if lt.Kind == types.Pointer {
			result = lt
		} else if rt.Kind == types.Pointer {
			result = rt
		} else {
			result = types.Merge(lt, rt)
		}
	default:
		result = types.Merge(lt, rt)
	}
	return &ast.BinaryExpression{Operation: op, Lhs: lhs, Rhs: rhs, ResultType: result}, nil
}

// parseUnary handles prefix operators and dispatches to parsePostfix
// for the primary expression and its postfix chain.
func (p *Parser) parseUnary() (ast.Expression, error) {
	switch p.peek().Kind {
	case token.Sub, token.Not, token.BinNot:
		op := p.advance().Kind
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		t := operand.Type().Decay()
		if !t.Kind.Has(types.Scalar) {
			return nil, p.errorf(diag.Type, "unary %s requires a scalar operand", op)
		}
		return &ast.UnaryExpression{Operation: op, Operand: operand, ResultType: t}, nil
	case token.Increment, token.Decrement:
		op := p.advance().Kind
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if !isLvalue(operand) {
			return nil, p.errorf(diag.Type, "operand of %s must be an lvalue", op)
		}
		return &ast.UnaryExpression{Operation: op, Operand: operand, Order: ast.Prefix, ResultType: operand.Type()}, nil
	case token.Star:
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		t := operand.Type().Decay()
		if t.Kind != types.Pointer && t.Kind != types.Array {
			return nil, p.errorf(diag.Type, "cannot dereference non-pointer type %s", types.Name(t))
		}
		return &ast.DerefExpression{Operand: operand}, nil
	case token.Ampersand:
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if !isLvalue(operand) {
			return nil, p.errorf(diag.Type, "cannot take the address of a non-lvalue")
		}
		if id, ok := operand.(*ast.IdExpression); ok {
			id.Variable.Source.Kind = ast.SourceStack
		}
		return &ast.AddressExpression{Operand: operand, ResultType: types.NewPointer(operand.Type())}, nil
	case token.Sizeof:
		return p.parseSizeof()
	case token.ParenBegin:
		if p.startsCastAhead() {
			p.advance()
			target, err := p.parseType()
			if err != nil {
				return nil, err
			}
			target2, _, err := p.parseDeclarator(target)
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(token.ParenEnd); err != nil {
				return nil, err
			}
			operand, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			return &ast.CastExpression{Operand: operand, Target: target2}, nil
		}
	}
	return p.parsePostfix()
}

// startsCastAhead looks past the current '(' to decide whether this
// parenthesis opens a cast (a type follows) or a nested expression.
func (p *Parser) startsCastAhead() bool {
	save := p.pos
	defer func() { p.pos = save }()
	p.advance() // '('
	return p.startsType()
}

// parseSizeof folds `sizeof(type-name)` and `sizeof expr` to a
// constant int literal at parse time, grounded on parse_constant's
// need to already know every type's size to fold arithmetic.
func (p *Parser) parseSizeof() (ast.Expression, error) {
	p.advance() // 'sizeof'
	var size int
	if p.at(token.ParenBegin) && p.startsCastAhead() {
		p.advance()
		t, err := p.parseType()
		if err != nil {
			return nil, err
		}
		t, _, err = p.parseDeclarator(t)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.ParenEnd); err != nil {
			return nil, err
		}
		size = t.Size
	} else {
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		size = operand.Type().Size
	}
	return &ast.IntExpression{Value: int64(size), ResultType: types.NewScalar(types.Int, types.Unsigned)}, nil
}

// parsePostfix parses a primary expression and its postfix chain:
// subscript (desugared to `*(a+b)`), call, `.`/`->` member access, and
// postfix ++/--.
func (p *Parser) parsePostfix() (ast.Expression, error) {
	e, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.peek().Kind {
		case token.CrochetBegin:
			p.advance()
			index, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(token.CrochetEnd); err != nil {
				return nil, err
			}
			sum, err := p.typecheckBinary(token.Add, e, index)
			if err != nil {
				return nil, err
			}
			e = &ast.DerefExpression{Operand: sum}
		case token.ParenBegin:
			e, err = p.parseInvoke(e)
			if err != nil {
				return nil, err
			}
		case token.Dot:
			p.advance()
			name, err := p.expect(token.Id)
			if err != nil {
				return nil, err
			}
			e, err = p.makeDot(e, name.Str)
			if err != nil {
				return nil, err
			}
		case token.Arrow:
			p.advance()
			name, err := p.expect(token.Id)
			if err != nil {
				return nil, err
			}
			t := e.Type()
			if t.Kind != types.Pointer {
				return nil, p.errorf(diag.Type, "-> requires a pointer operand")
			}
			e, err = p.makeDot(&ast.DerefExpression{Operand: e}, name.Str)
			if err != nil {
				return nil, err
			}
		case token.Increment, token.Decrement:
			if !isLvalue(e) {
				return e, nil
			}
			op := p.advance().Kind
			e = &ast.UnaryExpression{Operation: op, Operand: e, Order: ast.Postfix, ResultType: e.Type()}
		default:
			return e, nil
		}
	}
}

func (p *Parser) makeDot(record ast.Expression, member string) (ast.Expression, error) {
	t := record.Type()
	if !t.Kind.Has(types.Record) {
		return nil, p.errorf(diag.Type, "member access on non-struct/union type %s", types.Name(t))
	}
	for _, m := range t.Members {
		if m.Name == member {
			return &ast.DotExpression{Record: record, Member: member, Offset: m.Offset, ResultType: m.Type}, nil
		}
	}
	return nil, p.errorf(diag.Type, "no member %q on %s", member, types.Name(t))
}

func (p *Parser) parseInvoke(callee ast.Expression) (ast.Expression, error) {
	id, ok := callee.(*ast.IdExpression)
	if !ok || id.Function == nil {
		return nil, p.errorf(diag.Type, "cannot call a non-function")
	}
	funcObj := id.Function
	p.advance() // '('
	var args []ast.Expression
	if !p.at(token.ParenEnd) {
		for {
			arg, err := p.parseAssignment()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if _, ok := p.accept(token.Comma); ok {
				continue
			}
			break
		}
	}
	if _, err := p.expect(token.ParenEnd); err != nil {
		return nil, err
	}
	if len(args) != len(funcObj.Parameters) {
		return nil, p.errorf(diag.Type, "%q expects %d argument(s), got %d", id.Name, len(funcObj.Parameters), len(args))
	}
	for i, param := range funcObj.Parameters {
		casted, err := p.castIfNeeded(args[i], param.Type)
		if err != nil {
			return nil, err
		}
		args[i] = &ast.AssignExpression{Lhs: &ast.RefExpression{Variable: param}, Rhs: casted}
	}
	return &ast.InvokeExpression{Function: funcObj, Arguments: args, ResultType: funcObj.ReturnType}, nil
}

func (p *Parser) parsePrimary() (ast.Expression, error) {
	t := p.peek()
	switch t.Kind {
	case token.Int:
		p.advance()
		return parseIntLiteral(t.Str, 10)
	case token.IntHex:
		p.advance()
		return parseIntLiteral(strings.TrimPrefix(strings.TrimPrefix(t.Str, "0x"), "0X"), 16)
	case token.IntBin:
		p.advance()
		return parseIntLiteral(strings.TrimPrefix(strings.TrimPrefix(t.Str, "0b"), "0B"), 2)
	case token.Char:
		p.advance()
		v, err := unescapeChar(t.Str)
		if err != nil {
			return nil, p.errorf(diag.Parse, "%s", err)
		}
		return &ast.IntExpression{Value: int64(v), ResultType: types.NewScalar(types.Char, 0)}, nil
	case token.Float:
		p.advance()
		kind := types.Double
		str := t.Str
		if strings.HasSuffix(str, "f") || strings.HasSuffix(str, "F") {
			kind = types.Float
			str = str[:len(str)-1]
		} else {
			str = strings.TrimSuffix(strings.TrimSuffix(str, "l"), "L")
		}
		v, err := strconv.ParseFloat(str, 64)
		if err != nil {
			return nil, p.errorf(diag.Lex, "malformed float literal %q", t.Str)
		}
		return &ast.FloatExpression{Value: v, ResultType: types.NewScalar(kind, 0)}, nil
	case token.String:
		p.advance()
		s := unescapeString(t.Str)
		elem := types.NewScalar(types.Char, 0)
		return &ast.StringExpression{Value: s, ResultType: types.NewArray(elem, len(s)+1)}, nil
	case token.Id:
		p.advance()
		obj := p.scope.Lookup(t.Str)
		if obj == nil {
			return nil, p.errorf(diag.Type, "undeclared identifier %q", t.Str)
		}
		switch o := obj.(type) {
		case *constantVariable:
			return &ast.IntExpression{Value: o.Value, ResultType: o.Variable.Type}, nil
		case *ast.Variable:
			return &ast.IdExpression{Variable: o, Name: t.Str}, nil
		case *ast.Function:
			return &ast.IdExpression{Function: o, Name: t.Str}, nil
		default:
			return nil, p.errorf(diag.Type, "%q does not name a value", t.Str)
		}
	case token.ParenBegin:
		p.advance()
		e, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.ParenEnd); err != nil {
			return nil, err
		}
		return &ast.NestedExpression{Operand: e}, nil
	}
	return nil, p.errorf(diag.Parse, "expected an expression, found %s %q", t.Kind, t.Str)
}

func parseIntLiteral(digits string, base int) (ast.Expression, error) {
	flags := ast.IntFlagNone
	for len(digits) > 0 {
		c := digits[len(digits)-1]
		switch c {
		case 'u', 'U':
			flags |= ast.IntFlagU
		case 'l', 'L':
			if flags&ast.IntFlagL != 0 {
				flags |= ast.IntFlagLL
			}
			flags |= ast.IntFlagL
		default:
			v, err := strconv.ParseInt(digits, base, 64)
			if err != nil {
				uv, uerr := strconv.ParseUint(digits, base, 64)
				if uerr != nil {
					return nil, uerr
				}
				v = int64(uv)
			}
			mod := types.Mod(0)
			if flags&ast.IntFlagU != 0 {
				mod |= types.Unsigned
			}
			if flags&ast.IntFlagL != 0 {
				mod |= types.Long
			}
			return &ast.IntExpression{Value: v, Flags: flags, ResultType: types.NewScalar(types.Int, mod)}, nil
		}
		digits = digits[:len(digits)-1]
	}
	return &ast.IntExpression{Value: 0, ResultType: types.NewScalar(types.Int, 0)}, nil
}

// castIfNeeded wraps expr in a CastExpression when converting it to
// target costs more than types.Same, and rejects conversions types.Cast
// reports as an error, grounded on parser.cpp's cast_if_needed.
func (p *Parser) castIfNeeded(expr ast.Expression, target *types.Type) (ast.Expression, error) {
	from := expr.Type().Decay()
	switch types.CastTo(from, target) {
	case types.Same:
		return expr, nil
	case types.CastError:
		return nil, p.errorf(diag.Type, "cannot convert %s to %s", types.Name(from), types.Name(target))
	default:
		return &ast.CastExpression{Operand: expr, Target: target}, nil
	}
}

// isLvalue is qcc's Lvalue/Rvalue classifier, grounded on
// categorize_expression (spec.md §4.5).
func isLvalue(e ast.Expression) bool {
	switch v := e.(type) {
	case *ast.IdExpression:
		return true
	case *ast.DerefExpression:
		return true
	case *ast.DotExpression:
		return isLvalue(v.Record)
	case *ast.NestedExpression:
		return isLvalue(v.Operand)
	default:
		return false
	}
}

// evalConstInt recursively folds a constant integer expression,
// grounded on parse_constant: int literals, unary -/~/!, binary
// arithmetic/bitwise/comparison operators, nested parens, and ternary.
// Anything else (a function call, an lvalue load, a float literal)
// is rejected, matching the original's "not an integer constant" error.
func (p *Parser) evalConstInt(e ast.Expression) (int64, error) {
	switch v := e.(type) {
	case *ast.IntExpression:
		return v.Value, nil
	case *ast.NestedExpression:
		return p.evalConstInt(v.Operand)
	case *ast.UnaryExpression:
		operand, err := p.evalConstInt(v.Operand)
		if err != nil {
			return 0, err
		}
		switch v.Operation {
		case token.Sub:
			return -operand, nil
		case token.BinNot:
			return ^operand, nil
		case token.Not:
			if operand == 0 {
				return 1, nil
			}
			return 0, nil
		}
	case *ast.BinaryExpression:
		lhs, err := p.evalConstInt(v.Lhs)
		if err != nil {
			return 0, err
		}
		rhs, err := p.evalConstInt(v.Rhs)
		if err != nil {
			return 0, err
		}
		return evalConstBinary(v.Operation, lhs, rhs)
	case *ast.TernaryExpression:
		cond, err := p.evalConstInt(v.Boolean)
		if err != nil {
			return 0, err
		}
		if cond != 0 {
			return p.evalConstInt(v.Then)
		}
		return p.evalConstInt(v.Else)
	}
	return 0, p.errorf(diag.Constant, "expression is not an integer constant")
}

func evalConstBinary(op token.Kind, lhs, rhs int64) (int64, error) {
	switch op {
	case token.Add:
		return lhs + rhs, nil
	case token.Sub:
		return lhs - rhs, nil
	case token.Star:
		return lhs * rhs, nil
	case token.Div:
		return lhs / rhs, nil
	case token.Mod:
		return lhs % rhs, nil
	case token.ShiftL:
		return lhs << uint(rhs), nil
	case token.ShiftR:
		return lhs >> uint(rhs), nil
	case token.Ampersand:
		return lhs & rhs, nil
	case token.BinOr:
		return lhs | rhs, nil
	case token.BinXor:
		return lhs ^ rhs, nil
	case token.Eq:
		return boolToInt(lhs == rhs), nil
	case token.NotEq:
		return boolToInt(lhs != rhs), nil
	case token.Less:
		return boolToInt(lhs < rhs), nil
	case token.Greater:
		return boolToInt(lhs > rhs), nil
	case token.LessEq:
		return boolToInt(lhs <= rhs), nil
	case token.GreaterEq:
		return boolToInt(lhs >= rhs), nil
	case token.And:
		return boolToInt(lhs != 0 && rhs != 0), nil
	case token.Or:
		return boolToInt(lhs != 0 || rhs != 0), nil
	}
	return 0, fmt.Errorf("constant-eval: unhandled binary operator %s", op)
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
